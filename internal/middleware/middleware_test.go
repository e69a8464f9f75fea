package middleware

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)
	logger.SetOutput(io.Discard)
	return logger
}

func newRouter(handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(handlers...)
	r.GET("/ok", func(c *gin.Context) { c.String(http.StatusOK, c.GetString(RequestIDKey)) })
	r.GET("/panic", func(*gin.Context) { panic("boom") })
	return r
}

func serve(r http.Handler, method, path string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRequestID(t *testing.T) {
	r := newRouter(RequestID())
	existing := uuid.New().String()

	tests := []struct {
		name   string
		header string
		keep   bool
	}{
		{name: "generated", header: ""},
		{name: "propagated", header: existing, keep: true},
		{name: "invalid replaced", header: "not-a-uuid"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(r, http.MethodGet, "/ok", map[string]string{RequestIDHeader: tt.header})
			got := w.Header().Get(RequestIDHeader)
			if _, err := uuid.Parse(got); err != nil {
				t.Fatalf("%s = %q, want a UUID", RequestIDHeader, got)
			}
			if tt.keep && got != existing {
				t.Errorf("%s = %q, want %q", RequestIDHeader, got, existing)
			}
			if w.Body.String() != got {
				t.Errorf("context request id = %q, header = %q", w.Body.String(), got)
			}
		})
	}
}

func TestRateLimiter(t *testing.T) {
	r := newRouter(RateLimiter(testLogger(), 1, 2))

	for i := 0; i < 2; i++ {
		if w := serve(r, http.MethodGet, "/ok", nil); w.Code != http.StatusOK {
			t.Fatalf("request %d status = %d, want 200", i, w.Code)
		}
	}

	w := serve(r, http.MethodGet, "/ok", nil)
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", w.Code)
	}
	if w.Header().Get("Retry-After") != "1" {
		t.Errorf("Retry-After = %q, want 1", w.Header().Get("Retry-After"))
	}
	var body struct {
		Error struct {
			Status int `json:"status"`
		} `json:"error"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil || body.Error.Status != http.StatusTooManyRequests {
		t.Errorf("body = %s", w.Body.String())
	}

	other := httptest.NewRequest(http.MethodGet, "/ok", nil)
	other.RemoteAddr = "198.51.100.9:1234"
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, other)
	if rec.Code != http.StatusOK {
		t.Errorf("other clients should have their own limit, got %d", rec.Code)
	}

	unlimited := newRouter(RateLimiter(testLogger(), 0, 0))
	for i := 0; i < 5; i++ {
		if w := serve(unlimited, http.MethodGet, "/ok", nil); w.Code != http.StatusOK {
			t.Fatalf("disabled limiter rejected request %d", i)
		}
	}
}

func TestSecurityHeaders(t *testing.T) {
	w := serve(newRouter(SecurityHeaders()), http.MethodGet, "/ok", nil)
	for _, h := range []string{"X-Content-Type-Options", "X-Frame-Options", "Referrer-Policy"} {
		if w.Header().Get(h) == "" {
			t.Errorf("missing %s", h)
		}
	}
}

func TestRecovery(t *testing.T) {
	logger := testLogger()
	r := newRouter(RequestID(), Recovery(logger), StructuredLogger(logger), PerformanceMonitor(logger, time.Millisecond))

	w := serve(r, http.MethodGet, "/panic", nil)
	if w.Code != http.StatusInternalServerError {
		t.Errorf("panic status = %d, want 500", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("panic Content-Type = %q", ct)
	}

	if w := serve(r, http.MethodGet, "/ok", nil); w.Code != http.StatusOK {
		t.Errorf("status after panic = %d, want 200", w.Code)
	}
}
