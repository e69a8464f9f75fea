package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"testing"

	"lambda-http/pkg/httperr"
	"lambda-http/pkg/lambda"
	"lambda-http/pkg/request"
)

func newRequest(t *testing.T) *request.Request {
	t.Helper()
	raw, err := lambda.NewRequest(context.Background(), "GET", "http://localhost:8888/api/redirect", nil)
	if err != nil {
		t.Fatalf("NewRequest() error = %v", err)
	}
	req, err := request.New(raw, nil)
	if err != nil {
		t.Fatalf("request.New() error = %v", err)
	}
	return req
}

func TestCoerce_Status(t *testing.T) {
	tests := []struct {
		name   string
		result any
		want   int
	}{
		{name: "nil", result: nil, want: http.StatusNoContent},
		{name: "int", result: 201, want: http.StatusCreated},
		{name: "below range", result: 42, want: 100},
		{name: "negative", result: -1, want: 100},
		{name: "above range", result: 1000, want: 599},
		{name: "int64", result: int64(404), want: 404},
		{name: "uint above range", result: uint(70000), want: 599},
		{name: "float", result: 418.9, want: 418},
		{name: "float above range", result: 1e12, want: 599},
		{name: "nil pointer", result: (*struct{})(nil), want: http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := coerce(tt.result, newRequest(t))
			if err != nil {
				t.Fatalf("coerce() error = %v", err)
			}
			if resp.StatusCode != tt.want {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.want)
			}
			if resp.StatusCode < 100 || resp.StatusCode > 599 {
				t.Errorf("status %d outside [100, 599]", resp.StatusCode)
			}
		})
	}
}

func TestCoerce_Bodies(t *testing.T) {
	header := make(http.Header)
	header.Set("X-Custom", "yes")
	existing := lambda.Text("as is")

	tests := []struct {
		name        string
		result      any
		status      int
		contentType string
		body        string
	}{
		{name: "string", result: "hello", status: 200, contentType: "text/plain;charset=UTF-8", body: "hello"},
		{name: "response", result: existing, status: 200, contentType: "text/plain;charset=UTF-8", body: "as is"},
		{name: "blob", result: lambda.Blob{Type: "image/svg+xml", Data: []byte("<svg/>")}, status: 200, contentType: "image/svg+xml", body: "<svg/>"},
		{name: "bytes", result: []byte{1, 2}, status: 200, contentType: "application/octet-stream", body: "\x01\x02"},
		{name: "raw json", result: json.RawMessage(`{"a":1}`), status: 200, contentType: "application/json", body: `{"a":1}`},
		{name: "map", result: map[string]int{"a": 1}, status: 200, contentType: "application/json", body: `{"a":1}`},
		{name: "struct", result: struct {
			Name string `json:"name"`
		}{Name: "x"}, status: 200, contentType: "application/json", body: `{"name":"x"}`},
		{name: "slice", result: []string{"a"}, status: 200, contentType: "application/json", body: `["a"]`},
		{name: "structured error", result: httperr.NotFound("gone"), status: 404, contentType: "application/json"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := coerce(tt.result, newRequest(t))
			if err != nil {
				t.Fatalf("coerce() error = %v", err)
			}
			if resp.StatusCode != tt.status {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.status)
			}
			if got := resp.Headers.Get("Content-Type"); got != tt.contentType {
				t.Errorf("Content-Type = %q, want %q", got, tt.contentType)
			}
			if tt.body != "" && string(resp.Body) != tt.body {
				t.Errorf("body = %q, want %q", resp.Body, tt.body)
			}
		})
	}

	resp, err := coerce(header, newRequest(t))
	if err != nil || resp.StatusCode != http.StatusNoContent || resp.Headers.Get("X-Custom") != "yes" {
		t.Errorf("header result = %+v, %v", resp, err)
	}
	resp.Headers.Set("X-Custom", "changed")
	if header.Get("X-Custom") != "yes" {
		t.Error("coerced headers should be a copy")
	}
}

func TestCoerce_Redirect(t *testing.T) {
	resp, err := coerce(&url.URL{Path: "/api/echo"}, newRequest(t))
	if err != nil {
		t.Fatalf("coerce() error = %v", err)
	}
	if resp.StatusCode != http.StatusFound {
		t.Errorf("status = %d, want 302", resp.StatusCode)
	}
	if got := resp.Headers.Get("Location"); got != "http://localhost:8888/api/echo" {
		t.Errorf("Location = %q", got)
	}
	if !resp.Immutable() {
		t.Error("redirects should have immutable headers")
	}
}

func TestCoerce_Errors(t *testing.T) {
	tests := []struct {
		name   string
		result any
	}{
		{name: "plain error", result: errors.New("internal")},
		{name: "bool", result: true},
		{name: "func", result: func() {}},
		{name: "channel", result: make(chan int)},
		{name: "complex", result: complex(1, 2)},
		{name: "unencodable", result: map[string]any{"f": func() {}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := coerce(tt.result, newRequest(t))
			if got := httperr.StatusOf(err); got != http.StatusInternalServerError {
				t.Errorf("coerce() error = %v (status %d), want a 500", err, got)
			}
		})
	}
}
