package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dalemusser/drivehub/internal/app/system/auth"
	"go.uber.org/zap"
)

func TestNew_DisabledIsNil(t *testing.T) {
	if l := New(0, 5); l != nil {
		t.Error("expected nil limiter when perMinute is 0")
	}
}

func TestAllow_BurstThenRefill(t *testing.T) {
	l := New(60, 2) // one token per second
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	if !l.Allow("a") || !l.Allow("a") {
		t.Fatal("burst of 2 should be allowed")
	}
	if l.Allow("a") {
		t.Error("third request should be limited")
	}
	if !l.Allow("b") {
		t.Error("other keys have their own bucket")
	}

	now = now.Add(time.Second)
	if !l.Allow("a") {
		t.Error("a token should refill after one second")
	}
}

func TestReset(t *testing.T) {
	l := New(1, 1)
	l.Allow("a")
	if l.Allow("a") {
		t.Fatal("expected limit")
	}
	l.Reset("a")
	if !l.Allow("a") {
		t.Error("Reset should restore the bucket")
	}
}

func TestSweep_DropsIdleBuckets(t *testing.T) {
	l := New(60, 1)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	l.Allow("old")
	now = now.Add(l.idle + time.Minute)
	l.Allow("new")

	if _, ok := l.buckets["old"]; ok {
		t.Error("idle bucket should have been swept")
	}
	if _, ok := l.buckets["new"]; !ok {
		t.Error("fresh bucket should remain")
	}
}

func TestMiddleware(t *testing.T) {
	l := New(1, 1)
	h := l.Middleware(zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	req := auth.WithTestCaller(httptest.NewRequest("POST", "/", nil), auth.CallerContext{ActorID: "a1"})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("first request: %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second request: expected 429, got %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") != "60" {
		t.Errorf("Retry-After: %q", rec.Header().Get("Retry-After"))
	}
}

func TestMiddleware_NilPassesThrough(t *testing.T) {
	var l *Limiter
	called := 0
	h := l.Middleware(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called++ }))
	for i := 0; i < 3; i++ {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/", nil))
	}
	if called != 3 {
		t.Errorf("expected 3 calls, got %d", called)
	}
}

func TestKeyAndClientIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{"forwarded", map[string]string{"X-Forwarded-For": "203.0.113.5, 10.0.0.1"}, "10.0.0.1:1234", "203.0.113.5"},
		{"real ip", map[string]string{"X-Real-IP": " 198.51.100.7 "}, "10.0.0.1:1234", "198.51.100.7"},
		{"remote with port", nil, "192.0.2.1:5555", "192.0.2.1"},
		{"remote without port", nil, "192.0.2.1", "192.0.2.1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/", nil)
			r.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			if got := ClientIP(r); got != tt.want {
				t.Errorf("ClientIP: got %q, want %q", got, tt.want)
			}
			if got := Key(r); got != "ip:"+tt.want {
				t.Errorf("Key: got %q", got)
			}
		})
	}

	r := auth.WithTestCaller(httptest.NewRequest("GET", "/", nil), auth.CallerContext{ActorID: "a9"})
	if got := Key(r); got != "actor:a9" {
		t.Errorf("Key with caller: %q", got)
	}
}
