package ratelimit

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/riteshkumar/core-ledger/internal/auth"
)

type memoryCounter struct {
	mu     sync.Mutex
	counts map[string]int64
	err    error
}

func (c *memoryCounter) Incr(_ context.Context, key string, _ time.Duration) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return 0, c.err
	}
	if c.counts == nil {
		c.counts = map[string]int64{}
	}
	c.counts[key]++
	return c.counts[key], nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func doRequest(h http.Handler, userID int64) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/transfer", nil)
	if userID != 0 {
		req = req.WithContext(auth.WithIdentity(req.Context(), auth.Identity{UserID: userID, Role: auth.RoleClient}))
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestLimiterBlocksAfterMax(t *testing.T) {
	l := New(&memoryCounter{}, 2, time.Minute, nil, testLogger())
	h := l.Middleware("/transfer")(okHandler())

	for i := 0; i < 2; i++ {
		if rec := doRequest(h, 1); rec.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200 got %d", i, rec.Code)
		}
	}
	rec := doRequest(h, 1)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 got %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") != "60" {
		t.Fatalf("unexpected Retry-After %q", rec.Header().Get("Retry-After"))
	}

	// Another caller has its own window.
	if rec := doRequest(h, 2); rec.Code != http.StatusOK {
		t.Fatalf("other user: expected 200 got %d", rec.Code)
	}
}

func TestLimiterFailsOpen(t *testing.T) {
	l := New(&memoryCounter{err: fmt.Errorf("connection refused")}, 1, time.Minute, nil, testLogger())
	h := l.Middleware("/transfer")(okHandler())

	for i := 0; i < 3; i++ {
		rec := doRequest(h, 1)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200 got %d", rec.Code)
		}
		if rec.Header().Get("X-RateLimit-Error") == "" {
			t.Fatalf("expected X-RateLimit-Error header")
		}
	}
}

func TestNilCounterDisablesLimiting(t *testing.T) {
	h := New(nil, 1, time.Minute, nil, testLogger()).Middleware("/transfer")(okHandler())
	for i := 0; i < 5; i++ {
		if rec := doRequest(h, 1); rec.Code != http.StatusOK {
			t.Fatalf("expected 200 got %d", rec.Code)
		}
	}
}

func TestCallerKey(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.7:51234"
	if got := callerKey(req); got != "ip:10.0.0.7" {
		t.Fatalf("callerKey = %q", got)
	}
	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	if got := callerKey(req); got != "ip:203.0.113.9" {
		t.Fatalf("callerKey = %q", got)
	}
	req = req.WithContext(auth.WithIdentity(req.Context(), auth.Identity{UserID: 12, Role: auth.RoleClient}))
	if got := callerKey(req); got != "user:12" {
		t.Fatalf("callerKey = %q", got)
	}
}

// Integration-style test: runs only if REDIS_ADDR env is set.
func TestRedisLimiterIntegration(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set; skipping integration test")
	}
	db := 0
	if v := os.Getenv("REDIS_DB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			db = n
		}
	}

	client, err := NewRedisClient(context.Background(), addr, os.Getenv("REDIS_PASSWORD"), db)
	if err != nil {
		t.Fatalf("redis: %v", err)
	}
	defer client.Close()

	route := "/it-" + strconv.FormatInt(time.Now().UnixNano(), 10)
	l := New(NewRedisCounter(client), 2, 2*time.Second, nil, testLogger())
	srv := httptest.NewServer(l.Middleware(route)(okHandler()))
	defer srv.Close()

	for i := 0; i < 2; i++ {
		res, err := http.Get(srv.URL)
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		res.Body.Close()
		if res.StatusCode != http.StatusOK {
			t.Fatalf("expected 200 got %d", res.StatusCode)
		}
	}

	res, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	res.Body.Close()
	if res.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("expected 429 got %d", res.StatusCode)
	}
}
