package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/apache/arrow-go/v18/arrow/memory"

	"fastjsonl/internal/column"
	"fastjsonl/internal/config"
	"fastjsonl/internal/engine"
	"fastjsonl/internal/linereader"
	"fastjsonl/internal/storage"
	"fastjsonl/internal/storage/arrowfile"
	"fastjsonl/internal/tableschema"
)

// errUsage is returned when flags or arguments are wrong; the flag set has
// already printed why.
var errUsage = errors.New("usage")

func newFlagSet(e env, name, args string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(e.stderr)
	fs.Usage = func() {
		fmt.Fprintf(e.stderr, "usage: fastjsonl %s [flags] %s\n", name, args)
		fs.PrintDefaults()
	}
	return fs
}

func parse(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return errHelp
		}
		return errUsage
	}
	return nil
}

// errHelp ends a command successfully after -h.
var errHelp = errors.New("help")

// inputArg returns the single optional positional argument, "-" when absent.
func inputArg(fs *flag.FlagSet) (string, error) {
	switch fs.NArg() {
	case 0:
		return "-", nil
	case 1:
		return fs.Arg(0), nil
	}
	fs.Usage()
	return "", errUsage
}

// printIssues writes config issues to w and reports whether any is an error.
func printIssues(w io.Writer, issues []config.Issue) bool {
	for _, iss := range issues {
		fmt.Fprintf(w, "%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
	}
	return config.HasErrors(issues)
}

func cmdJob(ctx context.Context, e env, args []string) error {
	fs := newFlagSet(e, "job", "")
	cfgPath := fs.String("config", "", "job config JSON path")
	validate := fs.Bool("validate", false, "validate the configuration and exit")
	verbose := fs.Bool("v", false, "enable verbose logs")
	var mf metricsFlags
	mf.register(fs)
	if err := parse(fs, args); err != nil {
		return ignoreHelp(err)
	}
	if *cfgPath == "" || fs.NArg() > 0 {
		fs.Usage()
		return errUsage
	}

	j, err := config.Load(*cfgPath)
	if err != nil {
		return err
	}
	if printIssues(e.stderr, config.ValidateJob(j)) {
		fmt.Fprintf(e.stderr, "configuration is invalid: %s\n", *cfgPath)
		return errFailed
	}
	if *validate {
		fmt.Fprintf(e.stderr, "configuration is valid: %s\n", *cfgPath)
		return nil
	}

	log := newLogger(e.stderr, *verbose)
	mb, flush := newMetrics(mf, j.Job, log)
	defer flush()
	return runJob(ctx, j, filepath.Dir(*cfgPath), log, mb)
}

func cmdConvert(ctx context.Context, e env, args []string) error {
	fs := newFlagSet(e, "convert", "[file|-]")
	j := config.Job{Job: "fastjsonl"}
	var schemaPath, targetPath, out string
	fs.StringVar(&j.Job, "job", j.Job, "job name used in logs and metrics")
	fs.StringVar(&schemaPath, "schema", "", "JSON Schema path; empty converts without validation")
	fs.StringVar(&targetPath, "target", "", "target table schema YAML path (required)")
	fs.StringVar(&j.Storage.Kind, "storage", "arrow", "sink: "+strings.Join(storage.ListKinds(), ", "))
	fs.StringVar(&out, "out", "", "Arrow IPC output path, or DSN for SQL sinks (required)")
	fs.StringVar(&j.Storage.DB.Table, "table", "", "SQL table; defaults to a name derived from the input file")
	fs.BoolVar(&j.Storage.DB.AutoCreateTable, "create-table", true, "create the SQL table when it does not exist")
	fs.StringVar(&j.Storage.Arrow.Compression, "compression", "none", "Arrow IPC compression: none, zstd or lz4")
	fs.IntVar(&j.Input.Retries, "retries", 3, "HTTP retries for URL inputs")
	fs.IntVar(&j.Runtime.BatchSize, "batch-size", 0, "rows per SQL insert batch (default env FASTJSONL_BATCH_SIZE, then 5000)")
	fs.BoolVar(&j.Runtime.SkipValidation, "skip-validation", false, "convert without consulting the JSON Schema")
	verbose := registerRuntimeFlags(fs, &j)
	var mf metricsFlags
	mf.register(fs)
	if err := parse(fs, args); err != nil {
		return ignoreHelp(err)
	}
	input, err := inputArg(fs)
	if err != nil {
		return err
	}
	if targetPath == "" || out == "" {
		fs.Usage()
		return errUsage
	}

	if isURL(input) {
		j.Input.URL = input
	} else {
		j.Input.Path = input
	}
	j.TargetSchema.Path = targetPath
	j.JSONSchema.Path = schemaPath
	if j.Storage.Kind == "arrow" {
		j.Storage.Arrow.Path = out
	} else {
		j.Storage.DB.DSN = out
	}
	if printIssues(e.stderr, config.ValidateJob(j)) {
		return errFailed
	}

	log := newLogger(e.stderr, *verbose)
	mb, flush := newMetrics(mf, j.Job, log)
	defer flush()
	return runJob(ctx, j, "", log, mb)
}

func cmdValidate(ctx context.Context, e env, args []string) error {
	fs := newFlagSet(e, "validate", "[file|-]")
	j := config.Job{Job: "fastjsonl"}
	schemaPath := fs.String("schema", "", "JSON Schema path (required)")
	verbose := registerRuntimeFlags(fs, &j)
	if err := parse(fs, args); err != nil {
		return ignoreHelp(err)
	}
	input, err := inputArg(fs)
	if err != nil {
		return err
	}
	if *schemaPath == "" {
		fs.Usage()
		return errUsage
	}
	schema, err := os.ReadFile(*schemaPath)
	if err != nil {
		return err
	}

	log := newLogger(e.stderr, *verbose)
	opts, err := engineOptions(j, newRuntimeConfig(j), log, nil)
	if err != nil {
		return err
	}

	var rep engine.Report
	if input == "-" {
		rep, err = engine.ValidateReader(ctx, e.stdin, string(schema), opts)
	} else {
		in := config.Input{Path: input}
		if isURL(input) {
			in = config.Input{URL: input, Retries: 3}
		}
		buf, lerr := loadInputFn(ctx, in, log)
		if lerr != nil {
			return lerr
		}
		defer func() { _ = buf.Release() }()
		rep, err = engine.Validate(ctx, buf.Data, string(schema), opts)
	}

	for _, rerr := range rep.Errors {
		fmt.Fprintln(e.stdout, rerr)
	}
	if rep.Truncated {
		fmt.Fprintln(e.stdout, "... more errors omitted")
	}
	log.Info("validate summary", "rows", rep.Rows, "accepted", rep.Accepted, "rejected", rep.Rejected, "blank", rep.Blank)
	if rep.Rejected > 0 {
		return errFailed
	}
	return err
}

func cmdCount(ctx context.Context, e env, args []string) error {
	fs := newFlagSet(e, "count", "[file|-]")
	if err := parse(fs, args); err != nil {
		return ignoreHelp(err)
	}
	input, err := inputArg(fs)
	if err != nil {
		return err
	}

	var n int
	if input == "-" {
		data, err := io.ReadAll(e.stdin)
		if err != nil {
			return err
		}
		n = linereader.Count(data)
	} else {
		buf, err := loadInputFn(ctx, config.Input{Path: input}, newLogger(e.stderr, false))
		if err != nil {
			return err
		}
		defer func() { _ = buf.Release() }()
		n = linereader.Count(buf.Data)
	}
	fmt.Fprintln(e.stdout, n)
	return nil
}

func cmdInspect(_ context.Context, e env, args []string) error {
	fs := newFlagSet(e, "inspect", "file.arrow")
	if err := parse(fs, args); err != nil {
		return ignoreHelp(err)
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return errUsage
	}

	mem := memory.NewGoAllocator()
	schema, recs, err := arrowfile.ReadFile(fs.Arg(0), mem)
	if err != nil {
		return err
	}
	defer func() {
		for _, r := range recs {
			r.Release()
		}
	}()
	rec, err := column.Concat(mem, schema, recs)
	if err != nil {
		return err
	}
	defer rec.Release()

	if err := tableschema.Encode(e.stdout, schema); err != nil {
		return err
	}
	fmt.Fprintf(e.stdout, "# rows: %d\n# fingerprint: %016x\n", rec.NumRows(), engine.Fingerprint(rec))
	return nil
}

// registerRuntimeFlags binds the policy, schema and parser knobs shared by
// validate and convert. It returns the -v flag.
func registerRuntimeFlags(fs *flag.FlagSet, j *config.Job) *bool {
	fs.StringVar(&j.Runtime.Policy, "policy", "abort", "row error policy: abort, skip or collect")
	fs.IntVar(&j.Runtime.MaxErrors, "max-errors", 0, "row errors kept by skip and collect (0 = all)")
	fs.IntVar(&j.Runtime.Workers, "workers", 0, "concurrent conversion chunks (default env FASTJSONL_WORKERS, then GOMAXPROCS)")
	fs.StringVar(&j.Runtime.Draft, "draft", "", "JSON Schema draft when the schema has no $schema: 4, 6, 7, 2019-09 or 2020-12")
	fs.BoolVar(&j.Runtime.AssertFormat, "assert-format", false, "treat the format keyword as an assertion")
	fs.StringVar(&j.Runtime.Lang, "lang", "", "language of validation messages as a BCP 47 tag, e.g. de (default en)")
	verbose := fs.Bool("v", false, "enable verbose logs")

	j.Parser.Options = config.Options{}
	fs.BoolFunc("blank-lines", "skip whitespace-only lines instead of rejecting them", func(s string) error {
		b, err := strconv.ParseBool(s)
		if err != nil {
			return err
		}
		j.Parser.Options["allow_blank_lines"] = b
		return nil
	})
	fs.Func("header-map", "rename a JSON key before conversion, as key=column (repeatable)", func(s string) error {
		k, v, ok := strings.Cut(s, "=")
		if !ok || k == "" || v == "" {
			return fmt.Errorf("want key=column, got %q", s)
		}
		m, _ := j.Parser.Options["header_map"].(map[string]any)
		if m == nil {
			m = map[string]any{}
			j.Parser.Options["header_map"] = m
		}
		m[k] = v
		return nil
	})
	return verbose
}

// ignoreHelp turns -h into success.
func ignoreHelp(err error) error {
	if errors.Is(err, errHelp) {
		return nil
	}
	return err
}

func isURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}
