// Package file implements local datasources: a path on disk or standard
// input.
package file

import (
	"context"
	"fmt"
	"io"
	"os"
)

// Local is a datasource for one file on disk.
type Local struct{ path string }

// NewLocal returns a Local bound to path.
func NewLocal(path string) *Local { return &Local{path: path} }

// Open opens the file for streaming reads. A done ctx short-circuits.
func (l *Local) Open(ctx context.Context) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(l.path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", l.path, err)
	}
	return f, nil
}

// Load returns the whole file as one read-only buffer. Where the platform
// allows it the file is memory-mapped; release unmaps it and must be called
// once the buffer is no longer used.
func (l *Local) Load(ctx context.Context) (data []byte, release func() error, err error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	data, release, err = load(l.path)
	if err != nil {
		return nil, nil, fmt.Errorf("load %s: %w", l.path, err)
	}
	return data, release, nil
}

func (l *Local) String() string { return l.path }

// Stdin is a datasource reading standard input.
type Stdin struct{ r io.Reader }

// NewStdin returns a Stdin reading os.Stdin.
func NewStdin() *Stdin { return &Stdin{r: os.Stdin} }

// Open returns standard input; closing it is a no-op.
func (s *Stdin) Open(ctx context.Context) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return io.NopCloser(s.r), nil
}

func (s *Stdin) String() string { return "-" }
