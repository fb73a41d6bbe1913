package httpds

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

// scriptedServer answers the n-th request with statuses[n], repeating the last
// status once the script runs out.
func scriptedServer(t *testing.T, statuses ...int) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		n := int(hits.Add(1)) - 1
		w.WriteHeader(statuses[min(n, len(statuses)-1)])
		fmt.Fprint(w, "{}\n")
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

// recordWaits replaces the client's wait with one that records backoffs.
func recordWaits(c *Client) *[]time.Duration {
	var waits []time.Duration
	c.wait = func(_ context.Context, d time.Duration) error {
		waits = append(waits, d)
		return nil
	}
	return &waits
}

func TestClientGet_RetryMatrix(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		statuses   []int
		maxRetries int
		wantHits   int32
		wantStatus int // 0 means an error is expected
		wantWaits  []time.Duration
	}{
		{"ok_first_try", []int{200}, 3, 1, 200, nil},
		{"recovers_after_5xx", []int{500, 502, 200}, 3, 3, 200, []time.Duration{time.Millisecond, 2 * time.Millisecond}},
		{"recovers_after_429", []int{429, 200}, 1, 2, 200, []time.Duration{time.Millisecond}},
		{"gives_up", []int{503}, 2, 3, 0, []time.Duration{time.Millisecond, 2 * time.Millisecond}},
		{"no_retries_configured", []int{503, 200}, 0, 1, 0, nil},
		{"client_error_not_retried", []int{404}, 5, 1, 404, nil},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			srv, hits := scriptedServer(t, tc.statuses...)
			c := NewClient(Config{
				MaxRetries:     tc.maxRetries,
				Timeout:        2 * time.Second,
				InitialBackoff: time.Millisecond,
				MaxBackoff:     2 * time.Millisecond,
			})
			waits := recordWaits(c)

			resp, err := c.Get(context.Background(), srv.URL, nil)
			if tc.wantStatus == 0 {
				if err == nil {
					resp.Body.Close()
					t.Fatalf("expected an error, got status %d", resp.StatusCode)
				}
				if !strings.Contains(err.Error(), "retryable status") {
					t.Fatalf("error = %v", err)
				}
			} else {
				if err != nil {
					t.Fatalf("Get: %v", err)
				}
				resp.Body.Close()
				if resp.StatusCode != tc.wantStatus {
					t.Fatalf("status = %d, want %d", resp.StatusCode, tc.wantStatus)
				}
			}
			if got := hits.Load(); got != tc.wantHits {
				t.Fatalf("attempts = %d, want %d", got, tc.wantHits)
			}
			if !slices.Equal(*waits, tc.wantWaits) {
				t.Fatalf("backoffs = %v, want %v", *waits, tc.wantWaits)
			}
		})
	}
}

func TestClientGet_Headers(t *testing.T) {
	t.Parallel()

	got := make(chan http.Header, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got <- r.Header.Clone()
	}))
	t.Cleanup(srv.Close)

	c := NewClient(Config{BaseHeaders: http.Header{
		"Accept":        {"application/x-ndjson"},
		"Authorization": {"Bearer base"},
	}})
	resp, err := c.Get(context.Background(), srv.URL, http.Header{"Authorization": {"Bearer job"}})
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	resp.Body.Close()

	h := <-got
	if h.Get("Accept") != "application/x-ndjson" {
		t.Fatalf("base header lost: %v", h)
	}
	if v := h.Values("Authorization"); len(v) != 1 || v[0] != "Bearer job" {
		t.Fatalf("per-request header must replace the base one, got %v", v)
	}
}

func TestClientGet_LogsRetries(t *testing.T) {
	t.Parallel()
	srv, _ := scriptedServer(t, 500, 200)

	var logs bytes.Buffer
	c := NewClient(Config{
		MaxRetries:     1,
		InitialBackoff: time.Millisecond,
		Logger:         slog.New(slog.NewTextHandler(&logs, nil)),
	})
	recordWaits(c)

	resp, err := c.Get(context.Background(), srv.URL, nil)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	resp.Body.Close()
	if !strings.Contains(logs.String(), "level=WARN") || !strings.Contains(logs.String(), "attempt=1") {
		t.Fatalf("retry not logged: %s", logs.String())
	}
}

func TestClientGet_ContextEndsRetries(t *testing.T) {
	t.Parallel()
	srv, hits := scriptedServer(t, 503)

	ctx, cancel := context.WithCancel(context.Background())
	c := NewClient(Config{MaxRetries: 10, InitialBackoff: time.Millisecond})
	c.wait = func(ctx context.Context, _ time.Duration) error {
		cancel()
		return ctx.Err()
	}

	_, err := c.Get(ctx, srv.URL, nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if hits.Load() != 1 {
		t.Fatalf("attempts = %d, want 1", hits.Load())
	}

	if _, err := c.Get(context.Background(), "", nil); err == nil {
		t.Fatalf("empty url must be rejected")
	}
}

func TestNewClient_Config(t *testing.T) {
	t.Parallel()

	c := NewClient(Config{MaxRetries: -4, InsecureSkipVerify: true})
	if c.httpClient.Timeout != 30*time.Second || c.maxRetries != 0 {
		t.Fatalf("defaults: timeout=%v retries=%d", c.httpClient.Timeout, c.maxRetries)
	}
	if c.initialBackoff != 200*time.Millisecond || c.maxBackoff != 5*time.Second {
		t.Fatalf("defaults: backoff=%v..%v", c.initialBackoff, c.maxBackoff)
	}
	tr, ok := c.httpClient.Transport.(*http.Transport)
	if !ok || !tr.TLSClientConfig.InsecureSkipVerify {
		t.Fatalf("InsecureSkipVerify not applied to the default transport")
	}

	custom := &http.Transport{}
	c = NewClient(Config{Transport: custom, InsecureSkipVerify: true})
	if c.httpClient.Transport != custom || custom.TLSClientConfig != nil {
		t.Fatalf("a custom transport must be used untouched")
	}
}

func TestBackoffAndRetryable(t *testing.T) {
	t.Parallel()

	const ms = time.Millisecond
	backoffs := []struct {
		initial time.Duration
		attempt int
		want    time.Duration
	}{
		{100 * ms, -1, 100 * ms},
		{100 * ms, 0, 100 * ms},
		{100 * ms, 3, 800 * ms},
		{600 * ms, 1, time.Second},
		{time.Second, 80, time.Second},
	}
	for _, b := range backoffs {
		if got := backoffDuration(b.initial, b.attempt, time.Second); got != b.want {
			t.Errorf("backoffDuration(%v, %d) = %v, want %v", b.initial, b.attempt, got, b.want)
		}
	}

	for code, want := range map[int]bool{200: false, 301: false, 404: false, 429: true, 500: true, 599: true, 600: false} {
		if got := isRetryableStatus(code); got != want {
			t.Errorf("isRetryableStatus(%d) = %v, want %v", code, got, want)
		}
	}
}

func TestSleepWithContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := sleepWithContext(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Fatalf("canceled: err = %v", err)
	}
	if err := sleepWithContext(context.Background(), time.Microsecond); err != nil {
		t.Fatalf("short sleep: %v", err)
	}
}
