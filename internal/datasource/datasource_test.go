package datasource

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"fastjsonl/internal/config"
	"fastjsonl/internal/datasource/file"
	"fastjsonl/internal/datasource/httpds"
)

func TestFromInput(t *testing.T) {
	cases := []struct {
		name    string
		in      config.Input
		want    any
		wantErr string
	}{
		{name: "path", in: config.Input{Path: "a.ndjson"}, want: &file.Local{}},
		{name: "stdin", in: config.Input{Path: "-"}, want: &file.Stdin{}},
		{name: "url", in: config.Input{URL: "https://example.com/a.ndjson"}, want: &httpds.Source{}},
		{name: "both", in: config.Input{Path: "a", URL: "https://x"}, wantErr: "mutually exclusive"},
		{name: "neither", in: config.Input{}, wantErr: "required"},
		{name: "scheme", in: config.Input{URL: "ftp://x/a"}, wantErr: "unsupported url"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			src, err := FromInput(c.in, nil)
			if c.wantErr != "" {
				require.ErrorContains(t, err, c.wantErr)
				return
			}
			require.NoError(t, err)
			require.IsType(t, c.want, src)
		})
	}
}

func TestLoad_LocalFile(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "rows.ndjson")
	require.NoError(t, os.WriteFile(p, []byte("{\"a\":1}\n{\"a\":2}\n"), 0o644))

	buf, err := Load(context.Background(), file.NewLocal(p))
	require.NoError(t, err)
	require.Equal(t, "{\"a\":1}\n{\"a\":2}\n", string(buf.Data))
	require.NoError(t, buf.Release())
	require.NoError(t, buf.Release())
	require.Nil(t, buf.Data)
}

func TestLoad_EmptyFile(t *testing.T) {
	p := filepath.Join(t.TempDir(), "empty.ndjson")
	require.NoError(t, os.WriteFile(p, nil, 0o644))

	buf, err := Load(context.Background(), file.NewLocal(p))
	require.NoError(t, err)
	require.Empty(t, buf.Data)
	require.NoError(t, buf.Release())
}

func TestLoad_Missing(t *testing.T) {
	_, err := Load(context.Background(), file.NewLocal(filepath.Join(t.TempDir(), "nope")))
	require.ErrorIs(t, err, os.ErrNotExist)
}

type readerSource struct{ r io.Reader }

func (s readerSource) Open(context.Context) (io.ReadCloser, error) { return io.NopCloser(s.r), nil }

func TestLoad_Stream(t *testing.T) {
	buf, err := Load(context.Background(), readerSource{strings.NewReader("x\n")})
	require.NoError(t, err)
	require.Equal(t, "x\n", string(buf.Data))
	require.NoError(t, buf.Release())
}

func TestLoad_HTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "{}\n")
	}))
	defer srv.Close()

	src, err := FromInput(config.Input{URL: srv.URL}, nil)
	require.NoError(t, err)
	buf, err := Load(context.Background(), src)
	require.NoError(t, err)
	require.Equal(t, "{}\n", string(buf.Data))
}
