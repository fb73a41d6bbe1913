package config

import (
	"encoding/json"
	"strings"
	"testing"
)

// hasIssue reports whether issues contains an Issue with the given severity,
// path, and a Message containing msgSubstr.
func hasIssue(t *testing.T, issues []Issue, sev IssueSeverity, path, msgSubstr string) bool {
	t.Helper()
	for _, iss := range issues {
		if iss.Severity == sev && iss.Path == path && strings.Contains(iss.Message, msgSubstr) {
			return true
		}
	}
	return false
}

func validJob() Job {
	return Job{
		Job:          "events",
		Input:        Input{Path: "events.ndjson"},
		JSONSchema:   Document{Inline: json.RawMessage(`{"type":"object"}`)},
		TargetSchema: Document{Path: "events.table.yaml"},
		Runtime:      RuntimeConfig{Policy: "abort", Workers: 2},
		Storage: Storage{
			Kind: "sqlite",
			DB:   DBConfig{DSN: ":memory:", Table: "events"},
		},
	}
}

func TestValidateJob_ValidMinimal(t *testing.T) {
	if issues := ValidateJob(validJob()); len(issues) != 0 {
		t.Fatalf("expected no issues; got %+v", issues)
	}
}

/*
TestValidateJob_Cases mutates a valid job one field at a time and checks the
reported issue severity and path.
*/
func TestValidateJob_Cases(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Job)
		sev    IssueSeverity
		path   string
		msg    string
	}{
		{"missing_job", func(j *Job) { j.Job = " " }, SeverityError, "job", "must not be empty"},
		{"no_input", func(j *Job) { j.Input = Input{} }, SeverityError, "input", "path or a url"},
		{"both_inputs", func(j *Job) { j.Input.URL = "https://x/y" }, SeverityError, "input", "only one"},
		{"bad_url", func(j *Job) { j.Input = Input{URL: "ftp://host/x"} }, SeverityError, "input.url", "not an http(s) URL"},
		{"headers_on_file", func(j *Job) { j.Input.Headers = map[string]string{"A": "b"} }, SeverityWarning, "input.headers", "ignored"},
		{"no_target", func(j *Job) { j.TargetSchema = Document{} }, SeverityError, "target_schema", "requires"},
		{"both_schema_sources", func(j *Job) { j.JSONSchema.Path = "s.json" }, SeverityError, "json_schema", "only one"},
		{"no_json_schema", func(j *Job) { j.JSONSchema = Document{} }, SeverityWarning, "json_schema", "without validation"},
		{"skip_with_schema", func(j *Job) { j.Runtime.SkipValidation = true }, SeverityWarning, "runtime.skip_validation", "ignored"},
		{"bad_policy", func(j *Job) { j.Runtime.Policy = "retry" }, SeverityError, "runtime.policy", "unknown policy"},
		{"bad_draft", func(j *Job) { j.Runtime.Draft = "3" }, SeverityError, "runtime.draft", "unknown draft"},
		{"bad_lang", func(j *Job) { j.Runtime.Lang = "not a tag!" }, SeverityError, "runtime.lang", "invalid language tag"},
		{"negative_workers", func(j *Job) { j.Runtime.Workers = -1 }, SeverityError, "runtime.workers", "negative"},
		{"max_errors_without_collect", func(j *Job) { j.Runtime.MaxErrors = 5 }, SeverityWarning, "runtime.max_errors", "collect"},
		{"negative_batch", func(j *Job) { j.Runtime.BatchSize = -2 }, SeverityError, "runtime.batch_size", "negative"},
		{"no_storage_kind", func(j *Job) { j.Storage.Kind = "" }, SeverityError, "storage.kind", "must not be empty"},
		{"unknown_storage_kind", func(j *Job) { j.Storage.Kind = "oracle" }, SeverityError, "storage.kind", "unknown storage kind"},
		{"no_dsn", func(j *Job) { j.Storage.DB.DSN = "" }, SeverityError, "storage.db.dsn", "must not be empty"},
		{"no_table", func(j *Job) { j.Storage.DB.Table = "" }, SeverityWarning, "storage.db.table", "named after the input"},
		{"no_table_stdin", func(j *Job) {
			j.Input = Input{Path: "-"}
			j.Storage.DB.Table = ""
		}, SeverityError, "storage.db.table", "must not be empty"},
		{"negative_retries", func(j *Job) { j.Input = Input{URL: "https://x/y", Retries: -1} }, SeverityError, "input.retries", "negative"},
		{"arrow_no_path", func(j *Job) { j.Storage = Storage{Kind: "arrow"} }, SeverityError, "storage.arrow.path", "non-empty path"},
		{"arrow_bad_compression", func(j *Job) {
			j.Storage = Storage{Kind: "arrow", Arrow: ArrowConfig{Path: "out.arrow", Compression: "gzip"}}
		}, SeverityError, "storage.arrow.compression", "unknown compression"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			j := validJob()
			tc.mutate(&j)
			issues := ValidateJob(j)
			if !hasIssue(t, issues, tc.sev, tc.path, tc.msg) {
				t.Fatalf("expected %s at %s containing %q; got %+v", tc.sev, tc.path, tc.msg, issues)
			}
		})
	}
}

func TestHasErrors(t *testing.T) {
	if HasErrors([]Issue{{Severity: SeverityWarning}}) {
		t.Fatalf("warnings only must not count as errors")
	}
	if !HasErrors([]Issue{{Severity: SeverityWarning}, {Severity: SeverityError}}) {
		t.Fatalf("error not detected")
	}
}

func TestIssue_Error(t *testing.T) {
	iss := Issue{Severity: SeverityError, Path: "job", Message: "bad"}
	if got := iss.Error(); got != "error at job: bad" {
		t.Fatalf("Error() = %q", got)
	}
}
