package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/language"

	"fastjsonl/internal/config"
	"fastjsonl/internal/datasource"
	"fastjsonl/internal/datasource/httpds"
	"fastjsonl/internal/ddl"
	"fastjsonl/internal/engine"
	"fastjsonl/internal/metrics"
	pjson "fastjsonl/internal/parser/json"
	"fastjsonl/internal/storage"
	"fastjsonl/internal/tableschema"
	"fastjsonl/internal/validator"
)

// loggedErrors caps the row errors written to the log after a pass.
const loggedErrors = 10

// Function variables used as test seams.
var (
	newRepositoryFn = storage.New

	loadInputFn = func(ctx context.Context, in config.Input, log *slog.Logger) (*datasource.Buffer, error) {
		client := httpds.NewClient(httpds.Config{
			MaxRetries: pickInt(in.Retries, 3),
			Logger:     log,
		})
		src, err := datasource.FromInput(in, client)
		if err != nil {
			return nil, err
		}
		return datasource.Load(ctx, src)
	}
)

// runtimeConfig holds the resolved parallelism and batching of a run. Job
// values win; FASTJSONL_* environment variables fill the gaps.
type runtimeConfig struct {
	workers   int
	batchSize int
}

func newRuntimeConfig(j config.Job) runtimeConfig {
	return runtimeConfig{
		workers:   pickInt(j.Runtime.Workers, getenvInt("FASTJSONL_WORKERS", runtime.GOMAXPROCS(0))),
		batchSize: pickInt(j.Runtime.BatchSize, getenvInt("FASTJSONL_BATCH_SIZE", storage.DefaultBatchSize)),
	}
}

// engineOptions maps the runtime and parser sections of a job to engine
// options.
func engineOptions(j config.Job, rt runtimeConfig, log *slog.Logger, mb metrics.Backend) (engine.Options, error) {
	policy, err := engine.ParsePolicy(j.Runtime.Policy)
	if err != nil {
		return engine.Options{}, err
	}
	draft, err := validator.DraftByName(j.Runtime.Draft)
	if err != nil {
		return engine.Options{}, err
	}
	vopts := []validator.Option{validator.WithDraft(draft)}
	if j.Runtime.AssertFormat {
		vopts = append(vopts, validator.WithAssertFormat())
	}
	if j.Runtime.Lang != "" {
		tag, err := language.Parse(j.Runtime.Lang)
		if err != nil {
			return engine.Options{}, fmt.Errorf("runtime.lang: %w", err)
		}
		vopts = append(vopts, validator.WithLanguage(tag))
	}
	return engine.Options{
		Policy:         policy,
		MaxErrors:      j.Runtime.MaxErrors,
		Workers:        rt.workers,
		SkipValidation: j.Runtime.SkipValidation,
		Validator:      vopts,
		Parser:         pjson.FromConfigOptions(j.Parser.Options),
		Logger:         log,
		Metrics:        mb,
		Job:            j.Job,
	}, nil
}

// runJob loads the input and both schemas, converts the input into one
// record and writes it to the configured sink. Relative paths in the job,
// the input path included, resolve against baseDir.
func runJob(ctx context.Context, j config.Job, baseDir string, log *slog.Logger, mb metrics.Backend) error {
	start := time.Now()
	rt := newRuntimeConfig(j)

	// The engine adds its own job attribute.
	opts, err := engineOptions(j, rt, log, mb)
	if err != nil {
		return err
	}
	log = log.With("job", j.Job)

	targetDoc, err := j.TargetSchema.Load(baseDir)
	if err != nil {
		return fmt.Errorf("target schema: %w", err)
	}
	target, err := tableschema.Parse(targetDoc)
	if err != nil {
		return err
	}
	var schemaText string
	if !j.JSONSchema.IsZero() {
		b, err := j.JSONSchema.Load(baseDir)
		if err != nil {
			return fmt.Errorf("json schema: %w", err)
		}
		schemaText = string(b)
	}

	in := j.Input
	in.Path = resolve(baseDir, in.Path)
	buf, err := loadInputFn(ctx, in, log)
	if err != nil {
		return err
	}
	defer func() { _ = buf.Release() }()
	log.Debug("input loaded", "bytes", len(buf.Data), "workers", rt.workers, "policy", opts.Policy)

	rec, rep, err := engine.Convert(ctx, buf.Data, schemaText, target, opts)
	logReport(log, rep)
	if err != nil {
		return err
	}
	defer rec.Release()

	cfg := storageConfig(j, baseDir)
	log.Debug("opening sink", "kind", cfg.Kind, "table", cfg.Table)
	repo, err := newRepositoryFn(ctx, cfg)
	if err != nil {
		return fmt.Errorf("init repo: %w", err)
	}
	defer repo.Close()

	if j.Storage.Kind != "arrow" && j.Storage.DB.AutoCreateTable {
		log.Debug("auto-create table enabled", "table", cfg.Table)
		if err := storage.EnsureTable(ctx, cfg.Kind, repo, cfg.Table, rec.Schema()); err != nil {
			return fmt.Errorf("apply DDL: %w", err)
		}
	}

	n, err := storage.WriteRecord(ctx, repo, rec, rt.batchSize, storage.LoadOptions{
		Logger:  log,
		Metrics: mb,
		Job:     j.Job,
	})
	if err != nil {
		return err
	}
	log.Info("job finished",
		"rows", rep.Rows,
		"accepted", rep.Accepted,
		"rejected", rep.Rejected,
		"written", n,
		"kind", cfg.Kind,
		"elapsed", time.Since(start),
	)
	return nil
}

// storageConfig maps the storage section to a repository config. An empty
// table name is derived from the input.
func storageConfig(j config.Job, baseDir string) storage.Config {
	if j.Storage.Kind == "arrow" {
		return storage.Config{
			Kind:        "arrow",
			DSN:         resolve(baseDir, j.Storage.Arrow.Path),
			Compression: j.Storage.Arrow.Compression,
		}
	}
	table := j.Storage.DB.Table
	if strings.TrimSpace(table) == "" {
		table = tableName(j.Input)
	}
	return storage.Config{
		Kind:  j.Storage.Kind,
		DSN:   j.Storage.DB.DSN,
		Table: table,
	}
}

// tableName derives a SQL identifier from the input file or URL path, e.g.
// "Sales 2024.ndjson" becomes "sales_2024".
func tableName(in config.Input) string {
	name := in.Path
	if in.URL != "" {
		if u, err := url.Parse(in.URL); err == nil {
			name = path.Base(u.Path)
		}
	} else {
		name = filepath.Base(name)
	}
	for _, ext := range []string{".gz", ".ndjson", ".jsonl", ".json"} {
		name = strings.TrimSuffix(name, ext)
	}
	return ddl.Ident(name)
}

func logReport(log *slog.Logger, rep engine.Report) {
	log.Info("pass summary",
		"rows", rep.Rows,
		"accepted", rep.Accepted,
		"rejected", rep.Rejected,
		"blank", rep.Blank,
		"truncated", rep.Truncated,
	)
	for i, err := range rep.Errors {
		if i == loggedErrors {
			log.Info("more row errors omitted", "count", len(rep.Errors)-loggedErrors)
			break
		}
		log.Warn("row rejected", "err", err)
	}
}

// resolve joins a relative p onto baseDir. Standard input and empty paths are
// returned unchanged.
func resolve(baseDir, p string) string {
	if p == "" || p == "-" || baseDir == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(baseDir, p)
}

// getenvInt reads an int from environment, returning def when unset/invalid.
func getenvInt(k string, def int) int {
	if s := os.Getenv(k); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			return n
		}
	}
	return def
}

// pickInt chooses the first positive value 'a', otherwise returns 'b'.
func pickInt(a, b int) int {
	if a > 0 {
		return a
	}
	return b
}
