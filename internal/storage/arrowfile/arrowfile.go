// Package arrowfile is a storage sink that writes the converted table to an
// Arrow IPC file, optionally with zstd or lz4 buffer compression.
//
// It registers itself as storage kind "arrow"; storage.Config.DSN is the
// output path. The sink takes whole records through storage.RecordWriter and
// rejects row batches.
package arrowfile

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"fastjsonl/internal/storage"
)

// Compressions lists the accepted compression names.
var Compressions = []string{"none", "zstd", "lz4"}

// Config configures the sink.
type Config struct {
	Path        string
	Compression string // "", "none", "zstd" or "lz4"
}

// Sink writes records to one Arrow IPC file.
type Sink struct {
	cfg Config
}

var (
	_ storage.Repository   = (*Sink)(nil)
	_ storage.RecordWriter = (*Sink)(nil)
)

// ErrRowsUnsupported is returned by CopyFrom.
var ErrRowsUnsupported = errors.New("arrowfile: sink accepts whole records only")

// New validates cfg and returns a Sink. Nothing is created on disk until
// WriteRecord.
func New(cfg Config) (*Sink, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, fmt.Errorf("arrowfile: path must not be empty")
	}
	if _, err := compressionOption(cfg.Compression); err != nil {
		return nil, err
	}
	return &Sink{cfg: cfg}, nil
}

func compressionOption(name string) ([]ipc.Option, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "none":
		return nil, nil
	case "zstd":
		return []ipc.Option{ipc.WithZstd()}, nil
	case "lz4":
		return []ipc.Option{ipc.WithLZ4()}, nil
	default:
		return nil, fmt.Errorf("arrowfile: unknown compression %q (want one of %s)", name, strings.Join(Compressions, ", "))
	}
}

// WriteRecord writes rec to the configured path. The file is written to a
// temporary name in the same directory and renamed into place, so readers
// never see a partial file.
func (s *Sink) WriteRecord(ctx context.Context, rec arrow.Record) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	opts, err := compressionOption(s.cfg.Compression)
	if err != nil {
		return 0, err
	}
	opts = append(opts, ipc.WithSchema(rec.Schema()), ipc.WithAllocator(memory.DefaultAllocator))

	dir := filepath.Dir(s.cfg.Path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.cfg.Path)+".*")
	if err != nil {
		return 0, fmt.Errorf("arrowfile: create: %w", err)
	}
	defer os.Remove(tmp.Name())

	w, err := ipc.NewFileWriter(tmp, opts...)
	if err != nil {
		tmp.Close()
		return 0, fmt.Errorf("arrowfile: writer: %w", err)
	}
	if err := w.Write(rec); err != nil {
		w.Close()
		tmp.Close()
		return 0, fmt.Errorf("arrowfile: write: %w", err)
	}
	if err := w.Close(); err != nil {
		tmp.Close()
		return 0, fmt.Errorf("arrowfile: close writer: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return 0, fmt.Errorf("arrowfile: close: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.cfg.Path); err != nil {
		return 0, fmt.Errorf("arrowfile: rename: %w", err)
	}
	return rec.NumRows(), nil
}

// CopyFrom implements storage.Repository; row batches are not supported.
func (s *Sink) CopyFrom(context.Context, []string, [][]any) (int64, error) {
	return 0, ErrRowsUnsupported
}

// Exec implements storage.Repository; there is no DDL for a file.
func (s *Sink) Exec(context.Context, string) error { return nil }

// Close implements storage.Repository.
func (s *Sink) Close() {}

// ReadFile reads every record of the Arrow IPC file at path. The caller must
// Release each record.
func ReadFile(path string, mem memory.Allocator) (*arrow.Schema, []arrow.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("arrowfile: open: %w", err)
	}
	defer f.Close()

	r, err := ipc.NewFileReader(f, ipc.WithAllocator(mem))
	if err != nil {
		return nil, nil, fmt.Errorf("arrowfile: reader: %w", err)
	}
	defer r.Close()

	recs := make([]arrow.Record, 0, r.NumRecords())
	for i := 0; i < r.NumRecords(); i++ {
		rec, err := r.RecordAt(i)
		if err != nil {
			for _, p := range recs {
				p.Release()
			}
			return nil, nil, fmt.Errorf("arrowfile: record %d: %w", i, err)
		}
		recs = append(recs, rec)
	}
	return r.Schema(), recs, nil
}

func init() {
	storage.Register("arrow", func(_ context.Context, cfg storage.Config) (storage.Repository, error) {
		return New(Config{Path: cfg.DSN, Compression: cfg.Compression})
	})
	storage.RegisterDDL("arrow", func(context.Context, storage.Execer, string, *arrow.Schema) error {
		return nil
	})
}
