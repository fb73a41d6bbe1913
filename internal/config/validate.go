package config

import (
	"fmt"
	"net/url"
	"slices"
	"strings"

	"golang.org/x/text/language"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError blocks execution.
	SeverityError IssueSeverity = "error"
	// SeverityWarning is surfaced to users but does not block execution.
	SeverityWarning IssueSeverity = "warning"
)

// Issue describes a single lint finding for a Job.
//
// Path is a dotted path into the job (e.g. "storage.db.table").
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

// Error implements the error interface so an Issue can be returned as an
// error.
func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// HasErrors reports whether any issue has SeverityError.
func HasErrors(issues []Issue) bool {
	for _, iss := range issues {
		if iss.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Policies accepted by runtime.policy.
var Policies = []string{"abort", "skip", "collect"}

// Drafts accepted by runtime.draft.
var Drafts = []string{"4", "6", "7", "2019-09", "2020-12"}

// StorageKinds accepted by storage.kind.
var StorageKinds = []string{"arrow", "sqlite", "postgres", "mssql", "mysql"}

// ValidateJob performs static validation of a Job. It does not mutate the job
// and does not touch the filesystem or network.
//
//	j, err := config.Load(path)
//	issues := config.ValidateJob(j)
//	for _, iss := range issues {
//	    fmt.Printf("%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
//	}
func ValidateJob(j Job) []Issue {
	var issues []Issue

	if strings.TrimSpace(j.Job) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "job",
			Message:  "job must not be empty; it labels metrics and log lines",
		})
	}
	issues = append(issues, validateInput(j.Input)...)
	issues = append(issues, validateDocuments(j)...)
	issues = append(issues, validateRuntime(j.Runtime)...)
	issues = append(issues, validateStorage(j.Storage, j.Input)...)

	return issues
}

func validateInput(in Input) []Issue {
	var issues []Issue

	hasPath := strings.TrimSpace(in.Path) != ""
	hasURL := strings.TrimSpace(in.URL) != ""
	switch {
	case !hasPath && !hasURL:
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "input",
			Message:  "input requires a path or a url",
		})
	case hasPath && hasURL:
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "input",
			Message:  "input must set only one of path and url",
		})
	case hasURL:
		u, err := url.Parse(in.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "input.url",
				Message:  fmt.Sprintf("input.url %q is not an http(s) URL", in.URL),
			})
		}
	}
	if in.Retries < 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "input.retries",
			Message:  "retries must not be negative",
		})
	}
	if hasPath && len(in.Headers) > 0 {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "input.headers",
			Message:  "headers are ignored for file inputs",
		})
	}
	return issues
}

func validateDocuments(j Job) []Issue {
	var issues []Issue

	if j.TargetSchema.IsZero() {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "target_schema",
			Message:  "target_schema requires a path or inline document",
		})
	}
	if j.JSONSchema.Path != "" && len(j.JSONSchema.Inline) > 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "json_schema",
			Message:  "json_schema must set only one of path and inline",
		})
	}
	if j.TargetSchema.Path != "" && len(j.TargetSchema.Inline) > 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "target_schema",
			Message:  "target_schema must set only one of path and inline",
		})
	}
	if j.JSONSchema.IsZero() && !j.Runtime.SkipValidation {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "json_schema",
			Message:  "no json_schema configured; lines are converted without validation",
		})
	}
	if !j.JSONSchema.IsZero() && j.Runtime.SkipValidation {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "runtime.skip_validation",
			Message:  "json_schema is configured but skip_validation is set; the schema is ignored",
		})
	}
	return issues
}

func validateRuntime(r RuntimeConfig) []Issue {
	var issues []Issue

	if r.Policy != "" && !slices.Contains(Policies, r.Policy) {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "runtime.policy",
			Message:  fmt.Sprintf("unknown policy %q; want one of %s", r.Policy, strings.Join(Policies, ", ")),
		})
	}
	if r.Draft != "" && !slices.Contains(Drafts, r.Draft) {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "runtime.draft",
			Message:  fmt.Sprintf("unknown draft %q; want one of %s", r.Draft, strings.Join(Drafts, ", ")),
		})
	}
	if r.Lang != "" {
		if _, err := language.Parse(r.Lang); err != nil {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "runtime.lang",
				Message:  fmt.Sprintf("invalid language tag %q: %v", r.Lang, err),
			})
		}
	}
	if r.Workers < 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "runtime.workers",
			Message:  "workers must not be negative",
		})
	}
	if r.MaxErrors < 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "runtime.max_errors",
			Message:  "max_errors must not be negative",
		})
	}
	if r.MaxErrors > 0 && r.Policy != "collect" {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "runtime.max_errors",
			Message:  "max_errors only applies to the collect policy",
		})
	}
	if r.BatchSize < 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "runtime.batch_size",
			Message:  "batch_size must not be negative",
		})
	}
	return issues
}

func validateStorage(s Storage, in Input) []Issue {
	var issues []Issue

	if strings.TrimSpace(s.Kind) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "storage.kind",
			Message:  "storage.kind must not be empty",
		})
		return issues
	}
	if !slices.Contains(StorageKinds, s.Kind) {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "storage.kind",
			Message:  fmt.Sprintf("unknown storage kind %q; want one of %s", s.Kind, strings.Join(StorageKinds, ", ")),
		})
		return issues
	}

	if s.Kind == "arrow" {
		if strings.TrimSpace(s.Arrow.Path) == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "storage.arrow.path",
				Message:  "arrow sink requires a non-empty path",
			})
		}
		switch s.Arrow.Compression {
		case "", "none", "zstd", "lz4":
		default:
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "storage.arrow.compression",
				Message:  fmt.Sprintf("unknown compression %q; want none, zstd or lz4", s.Arrow.Compression),
			})
		}
		return issues
	}

	if strings.TrimSpace(s.DB.DSN) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "storage.db.dsn",
			Message:  "storage.db.dsn must not be empty",
		})
	}
	if strings.TrimSpace(s.DB.Table) == "" {
		if in.Path == "-" || (in.Path == "" && in.URL == "") {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "storage.db.table",
				Message:  "storage.db.table must not be empty unless the input has a name",
			})
			return issues
		}
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "storage.db.table",
			Message:  "storage.db.table is empty; the table is named after the input file",
		})
	}
	return issues
}
