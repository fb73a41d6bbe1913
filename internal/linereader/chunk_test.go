package linereader

import (
	"fmt"
	"strings"
	"testing"
)

/*
TestChunks_PreservesLines splits buffers of varying shape into 1..8 chunks and
checks that reading every chunk in order reproduces the buffer's lines, with
each chunk's First equal to the global index of its first line.
*/
func TestChunks_PreservesLines(t *testing.T) {
	t.Parallel()

	var long strings.Builder
	for i := 0; i < 97; i++ {
		fmt.Fprintf(&long, `{"i":%d,"pad":"%s"}`+"\n", i, strings.Repeat("x", i%13))
	}

	inputs := map[string]string{
		"long":          long.String(),
		"unterminated":  "a\nbb\nccc\ndddd",
		"blank_lines":   "\n\n\n\n",
		"single_line":   "only",
		"one_huge_line": strings.Repeat("z", 1000) + "\nshort\n",
	}

	for name, in := range inputs {
		for n := 1; n <= 8; n++ {
			name, in, n := name, in, n
			t.Run(fmt.Sprintf("%s/n=%d", name, n), func(t *testing.T) {
				t.Parallel()

				want := collect(t, New([]byte(in)))
				chunks := Chunks([]byte(in), n)
				if len(chunks) > n {
					t.Fatalf("got %d chunks; want at most %d", len(chunks), n)
				}

				var got []string
				for ci, c := range chunks {
					if c.First != len(got) {
						t.Fatalf("chunk %d First = %d; want %d", ci, c.First, len(got))
					}
					if len(c.Buf) == 0 {
						t.Fatalf("chunk %d is empty", ci)
					}
					r := New(c.Buf)
					for r.Next() {
						got = append(got, string(r.Bytes()))
					}
				}
				if !equal(got, want) {
					t.Fatalf("chunked lines differ:\n got %q\nwant %q", got, want)
				}
			})
		}
	}
}

func TestChunks_Empty(t *testing.T) {
	if got := Chunks(nil, 4); got != nil {
		t.Fatalf("Chunks(nil) = %v; want nil", got)
	}
}
