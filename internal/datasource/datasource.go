// Package datasource resolves a job's input to a Source and loads it into the
// single contiguous buffer the engine works on.
package datasource

import (
	"context"
	"fmt"
	"io"
	"strings"

	"fastjsonl/internal/config"
	"fastjsonl/internal/datasource/file"
	"fastjsonl/internal/datasource/httpds"
)

// Source opens an input stream.
type Source interface {
	Open(ctx context.Context) (io.ReadCloser, error)
}

// Loader is implemented by sources that can produce the whole input as one
// buffer without copying it, such as a memory-mapped file.
type Loader interface {
	Load(ctx context.Context) (data []byte, release func() error, err error)
}

// FromInput picks the source for in: a URL, "-" for standard input, or a
// local path. client is used for URLs and may be nil, in which case a default
// client is built.
func FromInput(in config.Input, client *httpds.Client) (Source, error) {
	switch {
	case in.URL != "" && in.Path != "":
		return nil, fmt.Errorf("input: path and url are mutually exclusive")
	case in.URL != "":
		if !strings.HasPrefix(in.URL, "http://") && !strings.HasPrefix(in.URL, "https://") {
			return nil, fmt.Errorf("input: unsupported url %q", in.URL)
		}
		if client == nil {
			client = httpds.NewClient(httpds.Config{MaxRetries: 3})
		}
		return httpds.NewSource(client, in.URL, in.Headers), nil
	case in.Path == "-":
		return file.NewStdin(), nil
	case in.Path != "":
		return file.NewLocal(in.Path), nil
	default:
		return nil, fmt.Errorf("input: path or url is required")
	}
}

// Buffer is a loaded input. Release must be called when Data is no longer
// referenced.
type Buffer struct {
	Data    []byte
	release func() error
}

// Release frees the buffer. It is safe to call more than once.
func (b *Buffer) Release() error {
	if b.release == nil {
		return nil
	}
	err := b.release()
	b.release = nil
	b.Data = nil
	return err
}

// Load reads src fully. A Loader hands over its buffer directly; any other
// source is read into memory.
func Load(ctx context.Context, src Source) (*Buffer, error) {
	if l, ok := src.(Loader); ok {
		data, release, err := l.Load(ctx)
		if err != nil {
			return nil, err
		}
		return &Buffer{Data: data, release: release}, nil
	}

	rc, err := src.Open(ctx)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	return &Buffer{Data: data}, nil
}
