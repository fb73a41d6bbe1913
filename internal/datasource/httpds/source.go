package httpds

import (
	"context"
	"fmt"
	"io"
	"net/http"
)

// Source is a datasource for one URL.
type Source struct {
	client  *Client
	url     string
	headers http.Header
}

// NewSource returns a Source that GETs url through client.
func NewSource(client *Client, url string, headers map[string]string) *Source {
	h := http.Header{}
	for k, v := range headers {
		h.Set(k, v)
	}
	return &Source{client: client, url: url, headers: h}
}

// Open issues the request and returns the body. Any status outside 2xx is an
// error.
func (s *Source) Open(ctx context.Context) (io.ReadCloser, error) {
	resp, err := s.client.Get(ctx, s.url, s.headers)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("httpds: GET %s: %s", s.url, resp.Status)
	}
	return resp.Body, nil
}

func (s *Source) String() string { return s.url }
