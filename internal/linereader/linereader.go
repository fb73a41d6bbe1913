// Package linereader splits newline-delimited input into line records.
//
// A Reader yields byte spans in file order without interpreting them:
//
//   - the '\n' delimiter is consumed and never part of a line,
//   - a trailing '\r' is dropped so CRLF files behave like LF files,
//   - a trailing unterminated line is still a line,
//   - line indices are 0-based.
//
// Two sources are supported: an in-memory buffer (New), which never fails and
// returns sub-slices of the caller's buffer without copying, and an io.Reader
// (FromReader) for input that arrives incrementally, where an I/O failure
// surfaces from Err as a line-read error.
package linereader

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"

	"fastjsonl/internal/rowerr"
)

// Reader iterates over the lines of a buffer or stream. It is not safe for
// concurrent use and cannot be rewound; build a new Reader to start over.
type Reader struct {
	// buffer mode
	buf []byte
	pos int

	// stream mode
	br *bufio.Reader

	idx  int
	line []byte
	err  error
	done bool
}

// New returns a Reader over buf. The returned line slices alias buf, which
// must not be modified while they are in use.
func New(buf []byte) *Reader {
	return &Reader{buf: buf, idx: -1}
}

// FromReader returns a Reader consuming r. Line slices are only valid until
// the next call to Next.
func FromReader(r io.Reader) *Reader {
	return &Reader{br: bufio.NewReaderSize(r, 64*1024), idx: -1}
}

// Next advances to the next line. It returns false at end of input or after
// an I/O failure; check Err to tell them apart.
func (r *Reader) Next() bool {
	if r.done {
		return false
	}
	if r.br != nil {
		return r.nextStream()
	}
	if r.pos >= len(r.buf) {
		r.done = true
		r.line = nil
		return false
	}
	rest := r.buf[r.pos:]
	if i := bytes.IndexByte(rest, '\n'); i >= 0 {
		r.line = rest[:i]
		r.pos += i + 1
	} else {
		r.line = rest
		r.pos = len(r.buf)
	}
	r.line = trimCR(r.line)
	r.idx++
	return true
}

func (r *Reader) nextStream() bool {
	b, err := r.br.ReadBytes('\n')
	switch {
	case err == nil:
		r.line = trimCR(b[:len(b)-1])
	case errors.Is(err, io.EOF):
		if len(b) == 0 {
			r.done = true
			r.line = nil
			return false
		}
		r.line = trimCR(b)
	default:
		r.done = true
		r.line = nil
		r.err = &rowerr.Error{
			Kind:    rowerr.KindLineRead,
			Row:     r.idx,
			Message: fmt.Sprintf("read failed after line %d: %v", r.idx, err),
			Err:     err,
		}
		return false
	}
	r.idx++
	return true
}

// Index returns the 0-based index of the current line, or -1 before the
// first call to Next.
func (r *Reader) Index() int { return r.idx }

// Bytes returns the current line without its delimiter.
func (r *Reader) Bytes() []byte { return r.line }

// Err returns the first I/O error met by a stream Reader. Buffer Readers
// always return nil.
func (r *Reader) Err() error { return r.err }

func trimCR(b []byte) []byte {
	if n := len(b); n > 0 && b[n-1] == '\r' {
		return b[:n-1]
	}
	return b
}

// Count returns the number of '\n' bytes in buf.
func Count(buf []byte) int {
	return bytes.Count(buf, []byte{'\n'})
}

// Lines returns the number of lines a Reader over buf yields: the newline
// count plus one for a trailing unterminated line.
func Lines(buf []byte) int {
	n := Count(buf)
	if len(buf) > 0 && buf[len(buf)-1] != '\n' {
		n++
	}
	return n
}
