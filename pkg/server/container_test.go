package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"lambda-http/internal/config"
	"lambda-http/pkg/handlertest"
)

func testConfig() *config.Config {
	return &config.Config{
		Environment:    "test",
		Port:           "8888",
		LogLevel:       "warn",
		HandlerTimeout: 5 * time.Second,
		Site:           config.SiteConfig{URL: "http://localhost:8888", Name: "test"},
		JWT:            config.JWTConfig{Secret: "test-secret", ExpiryHours: 1, Issuer: "lambda-http"},
		RateLimit:      config.RateLimitConfig{RPS: 1000, Burst: 1000},
	}
}

func newTestContainer(t *testing.T) *Container {
	t.Helper()
	container, err := NewContainer(testConfig())
	if err != nil {
		t.Fatalf("Failed to create container: %v", err)
	}
	container.Logger.SetOutput(io.Discard)
	container.Logger.SetLevel(logrus.WarnLevel)
	return container
}

// TestNewContainer verifies that the container can be created successfully
func TestNewContainer(t *testing.T) {
	container := newTestContainer(t)

	if container.Auth == nil || container.Registry == nil || container.Platform == nil {
		t.Fatal("container dependencies should be initialized")
	}
	if len(container.Registry.Paths()) == 0 {
		t.Error("no functions registered")
	}
	if container.Platform.Site.Name != "test" || container.Platform.Deploy.Context != "test" {
		t.Errorf("Platform = %+v", container.Platform)
	}

	if _, err := NewContainer(nil); err == nil {
		t.Error("NewContainer(nil) should fail")
	}
}

func TestContainer_Serve(t *testing.T) {
	container := newTestContainer(t)

	raw := handlertest.MustRequest(handlertest.NewRequest("http://localhost:8888/api/echo",
		handlertest.WithOrigin("https://example.com")))
	resp := container.Serve(raw, "", "203.0.113.1")

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, body %s", resp.StatusCode, resp.Body)
	}
	if err := handlertest.ShouldSetCookies("foo")(resp, raw); err != nil {
		t.Error(err)
	}

	missing := container.Serve(handlertest.MustRequest(handlertest.NewRequest("http://localhost:8888/api/missing")), "1", "")
	if missing.StatusCode != http.StatusNotFound {
		t.Errorf("missing status = %d, want 404", missing.StatusCode)
	}
}

func TestRouter(t *testing.T) {
	gin.SetMode(gin.TestMode)
	container := newTestContainer(t)
	router := NewRouter(container)

	tests := []struct {
		name       string
		method     string
		path       string
		body       string
		header     map[string]string
		wantStatus int
		check      func(t *testing.T, w *httptest.ResponseRecorder)
	}{
		{
			name: "health", method: http.MethodGet, path: "/health", wantStatus: http.StatusOK,
			check: func(t *testing.T, w *httptest.ResponseRecorder) {
				var body map[string]any
				if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil || body["status"] != "healthy" {
					t.Errorf("health body = %s", w.Body.String())
				}
			},
		},
		{
			name: "echo", method: http.MethodGet, path: "/api/echo?x=1", wantStatus: http.StatusOK,
			header: map[string]string{"Origin": "https://example.com"},
			check: func(t *testing.T, w *httptest.ResponseRecorder) {
				if w.Header().Get("Access-Control-Allow-Origin") != "https://example.com" {
					t.Errorf("ACAO = %q", w.Header().Get("Access-Control-Allow-Origin"))
				}
				if !strings.Contains(w.Body.String(), `"url":"http://example.com/api/echo?x=1"`) {
					t.Errorf("echo should report the request URL, got %s", w.Body.String())
				}
				if len(w.Header().Values("Set-Cookie")) == 0 {
					t.Error("echo should set a cookie")
				}
				if w.Header().Get("X-Request-ID") == "" {
					t.Error("missing request id")
				}
			},
		},
		{
			name: "hash", method: http.MethodPost, path: "/api/hash", body: "abc", wantStatus: http.StatusOK,
			check: func(t *testing.T, w *httptest.ResponseRecorder) {
				if !strings.HasPrefix(w.Body.String(), "ddaf35a1") {
					t.Errorf("hash = %s", w.Body.String())
				}
			},
		},
		{name: "unsupported method", method: "PROPFIND", path: "/api/echo", wantStatus: http.StatusMethodNotAllowed},
		{name: "unknown function", method: http.MethodGet, path: "/api/nope", wantStatus: http.StatusNotFound},
		{name: "unknown path", method: http.MethodGet, path: "/elsewhere", wantStatus: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body io.Reader
			if tt.body != "" {
				body = strings.NewReader(tt.body)
			}
			req := httptest.NewRequest(tt.method, tt.path, body)
			for k, v := range tt.header {
				req.Header.Set(k, v)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (body %s)", w.Code, tt.wantStatus, w.Body.String())
			}
			if tt.check != nil {
				tt.check(t, w)
			}
		})
	}
}

func TestConnectionManager(t *testing.T) {
	calls := 0
	cm := NewConnectionManager(func() (*config.Config, error) {
		calls++
		if calls == 1 {
			return nil, errors.New("not yet")
		}
		return testConfig(), nil
	})

	if _, err := cm.GetContainer(); err == nil {
		t.Fatal("GetContainer() should surface load errors")
	}

	first, err := cm.GetContainer()
	if err != nil {
		t.Fatalf("GetContainer() error = %v", err)
	}
	second, _ := cm.GetContainer()
	if first != second || calls != 2 {
		t.Errorf("container should be reused, calls = %d", calls)
	}
}
