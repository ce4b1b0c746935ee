package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bryanwahyu/veritas/internal/logger"
)

func init() { logger.Silence() }

func TestValidateURL(t *testing.T) {
	tests := []struct {
		url string
		ok  bool
	}{
		{"https://www.amazon.com/dp/B08N5WRWNW", true},
		{"http://shop.example/item/1", true},
		{"", false},
		{"ftp://shop.example/file", false},
		{"javascript:alert(1)", false},
		{"http://localhost:8080/", false},
		{"http://127.0.0.1/", false},
		{"http://10.1.2.3/", false},
		{"http://172.20.0.1/", false},
		{"http://192.168.1.1/", false},
		{"http://169.254.169.254/latest/meta-data", false},
		{"http://[::1]/", false},
		{"http://metadata.google.internal/", false},
		{"https:///nohost", false},
	}
	for _, tt := range tests {
		if err := ValidateURL(tt.url); (err == nil) != tt.ok {
			t.Errorf("ValidateURL(%q) = %v, want ok=%v", tt.url, err, tt.ok)
		}
	}
}

func TestValidateIDs(t *testing.T) {
	if ValidateSessionID("abc_DEF-123") != nil || ValidateSessionID("bad/id") == nil || ValidateSessionID("") == nil {
		t.Fatal("session id validation")
	}
	if ValidateRecordID("0b7c7b52-6a43-4a8e-9a0f-1f1a2b3c4d5e") != nil || ValidateRecordID("x;drop") == nil {
		t.Fatal("record id validation")
	}
	if ValidateLimit(0) != 20 || ValidateLimit(500) != 100 || ValidatePage(-1) != 1 {
		t.Fatal("paging bounds")
	}
	if SanitizeString(" a\x00b\x07c\n ") != "abc" {
		t.Fatalf("sanitize = %q", SanitizeString(" a\x00b\x07c\n "))
	}
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(ClientFromContext(r.Context())))
	})
}

func TestAPIKeyAuth(t *testing.T) {
	h := APIKeyAuth(map[string]string{"web": "k1"})(okHandler())
	tests := []struct {
		name, path, header, value string
		status                    int
		body                      string
	}{
		{"bearer", "/v1/sessions", "Authorization", "Bearer k1", 200, "web"},
		{"x-api-key", "/v1/sessions", "X-API-Key", "k1", 200, "web"},
		{"missing", "/v1/sessions", "", "", 401, ""},
		{"wrong", "/v1/sessions", "Authorization", "Bearer nope", 401, ""},
		{"open path", "/healthz", "", "", 200, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.header != "" {
				req.Header.Set(tt.header, tt.value)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != tt.status {
				t.Fatalf("status = %d", rec.Code)
			}
			if tt.status == 200 && rec.Body.String() != tt.body {
				t.Fatalf("client = %q", rec.Body.String())
			}
		})
	}

	open := APIKeyAuth(nil)(okHandler())
	rec := httptest.NewRecorder()
	open.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/sessions", nil))
	if rec.Code != 200 {
		t.Fatalf("auth without keys should be disabled, got %d", rec.Code)
	}
}

func TestTokenBucket(t *testing.T) {
	start := time.Unix(0, 0)
	b := NewTokenBucket(2, 1, start)
	if ok, _ := b.Allow(start); !ok {
		t.Fatal("first token")
	}
	if ok, _ := b.Allow(start); !ok {
		t.Fatal("second token")
	}
	ok, wait := b.Allow(start)
	if ok || wait != time.Second {
		t.Fatalf("third = %v wait %s", ok, wait)
	}
	if ok, _ := b.Allow(start.Add(1500 * time.Millisecond)); !ok {
		t.Fatal("refill")
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	rl := NewRateLimiter(1, 0.5)
	now := time.Unix(100, 0)
	rl.now = func() time.Time { return now }
	h := RateLimitMiddleware(rl)(okHandler())

	do := func(path, addr string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}
	if do("/v1/x", "1.2.3.4:1000").Code != 200 {
		t.Fatal("first request limited")
	}
	rec := do("/v1/x", "1.2.3.4:2000")
	if rec.Code != http.StatusTooManyRequests || rec.Header().Get("Retry-After") != "2" {
		t.Fatalf("second request: %d retry=%q", rec.Code, rec.Header().Get("Retry-After"))
	}
	if do("/v1/x", "5.6.7.8:1000").Code != 200 {
		t.Fatal("other client limited")
	}
	if do("/health", "1.2.3.4:1").Code != 200 {
		t.Fatal("health limited")
	}

	now = now.Add(time.Hour)
	rl.Sweep(time.Minute)
	if len(rl.buckets) != 0 {
		t.Fatalf("buckets after sweep = %d", len(rl.buckets))
	}
}

func TestHealthHandler(t *testing.T) {
	h := HealthHandler(map[string]HealthChecker{
		"ok":   CheckFunc(func(context.Context) error { return nil }),
		"down": CheckFunc(func(context.Context) error { return errors.New("refused") }),
	})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d", rec.Code)
	}

	ready := ReadinessHandler(func() error { return nil })
	rec = httptest.NewRecorder()
	ready.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("ready status = %d", rec.Code)
	}
}
