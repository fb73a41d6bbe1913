package linereader

import "bytes"

// Chunk is a contiguous run of whole lines cut from a larger buffer.
type Chunk struct {
	// First is the buffer-wide index of the chunk's first line.
	First int
	// Buf holds the chunk's bytes, including the delimiters of its lines.
	Buf []byte
}

// Chunks splits buf into at most n contiguous chunks of roughly equal byte
// size, cutting only after a '\n'. Concatenating the chunks' lines in order
// yields exactly the lines of buf, and each chunk's First is the global index
// of its first line. An empty buffer yields no chunks.
func Chunks(buf []byte, n int) []Chunk {
	if len(buf) == 0 {
		return nil
	}
	if n <= 1 {
		return []Chunk{{First: 0, Buf: buf}}
	}

	target := len(buf) / n
	if target == 0 {
		target = 1
	}

	out := make([]Chunk, 0, n)
	start, first := 0, 0
	for start < len(buf) {
		end := len(buf)
		if len(out) < n-1 && start+target < len(buf) {
			if i := bytes.IndexByte(buf[start+target-1:], '\n'); i >= 0 {
				end = start + target + i
			}
		}
		c := Chunk{First: first, Buf: buf[start:end]}
		out = append(out, c)
		first += Lines(c.Buf)
		start = end
	}
	return out
}
