// Package storage contains the sink-agnostic contracts used to persist a
// converted table, plus a registry that backends fill at init time.
//
// Callers obtain a Repository by kind:
//
//	repo, err := storage.New(ctx, storage.Config{Kind: "sqlite", DSN: "out.db", Table: "events"})
//	defer repo.Close()
//
// Backends live in subpackages and register themselves; import
// fastjsonl/internal/storage/all to link every one of them.
package storage

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Execer runs statements that return no rows (DDL).
type Execer interface {
	Exec(ctx context.Context, sql string) error
}

// Sink is a repository before it is bound to its release function. SQL
// backends construct one plus a close func and register it via WithClose.
type Sink interface {
	Execer

	// CopyFrom bulk-inserts rows aligned to columns and returns the number of
	// rows the backend reported as written.
	CopyFrom(ctx context.Context, columns []string, rows [][]any) (int64, error)
}

// Repository is the minimal surface a sink must offer.
type Repository interface {
	Sink

	// Close releases the underlying connection or file.
	Close()
}

// WithClose binds release to s. A nil release makes Close a no-op.
func WithClose(s Sink, release func()) Repository {
	return boundSink{Sink: s, release: release}
}

type boundSink struct {
	Sink
	release func()
}

func (b boundSink) Close() {
	if b.release != nil {
		b.release()
	}
}

// Config is the backend-agnostic sink configuration.
type Config struct {
	Kind  string
	DSN   string // driver DSN, or the output path for the arrow sink
	Table string

	// Compression is read by the arrow sink only.
	Compression string
}

// Factory constructs a Repository for one kind.
type Factory func(ctx context.Context, cfg Config) (Repository, error)

var (
	mu        sync.RWMutex
	factories = map[string]Factory{}
)

// Register installs (or replaces) the factory for kind.
func Register(kind string, f Factory) {
	mu.Lock()
	defer mu.Unlock()
	factories[kind] = f
}

// New returns a Repository from the factory registered for cfg.Kind.
func New(ctx context.Context, cfg Config) (Repository, error) {
	mu.RLock()
	f, ok := factories[cfg.Kind]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unsupported storage.kind=%s (registered: %s)", cfg.Kind, strings.Join(ListKinds(), ", "))
	}
	return f(ctx, cfg)
}

// ListKinds returns the registered kinds, sorted.
func ListKinds() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(factories))
	for k := range factories {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
