package lambda

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

var (
	// ErrBodyUsed is returned when a request body is read a second time.
	ErrBodyUsed = errors.New("request body has already been used")

	// ErrImmutableHeaders is returned when mutating the headers of a redirect or error response.
	ErrImmutableHeaders = errors.New("response headers are immutable")
)

// Request represents a raw inbound HTTP request for serverless functions.
//
// The body is a one-shot stream: it can be read once through ReadBody. Clone
// buffers an unread body so that both copies can read it.
type Request struct {
	Method string
	URL    string
	Header http.Header

	// Fetch metadata supplied by the platform. Explicit Sec-Fetch-Mode,
	// Sec-Fetch-Dest, Referer and Referrer-Policy headers take priority.
	Mode           string
	Destination    string
	Referrer       string
	ReferrerPolicy string

	ctx      context.Context
	body     io.Reader
	bodyUsed bool
}

// NewRequest creates a request for an absolute URL. A nil body means the request has no body.
func NewRequest(ctx context.Context, method, rawURL string, body io.Reader) (*Request, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid request url: %w", err)
	}
	if !u.IsAbs() {
		return nil, fmt.Errorf("request url must be absolute: %q", rawURL)
	}
	if method == "" {
		method = http.MethodGet
	}
	if ctx == nil {
		ctx = context.Background()
	}

	return &Request{
		Method: strings.ToUpper(method),
		URL:    u.String(),
		Header: make(http.Header),
		Mode:   "cors",
		ctx:    ctx,
		body:   body,
	}, nil
}

// FromHTTP converts a net/http server request. The scheme is taken from TLS
// state or X-Forwarded-Proto; the host from r.Host.
func FromHTTP(r *http.Request) *Request {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	} else if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = strings.ToLower(strings.TrimSpace(strings.Split(proto, ",")[0]))
	}

	header := r.Header.Clone()
	if header == nil {
		header = make(http.Header)
	}
	if r.Host != "" {
		header.Set("Host", r.Host)
	}

	var body io.Reader
	if r.Body != nil && r.Body != http.NoBody {
		body = r.Body
		if r.ContentLength > 0 && header.Get("Content-Length") == "" {
			header.Set("Content-Length", strconv.FormatInt(r.ContentLength, 10))
		}
	}

	return &Request{
		Method:   r.Method,
		URL:      scheme + "://" + r.Host + r.URL.RequestURI(),
		Header:   header,
		Mode:     "cors",
		Referrer: "about:client",
		ctx:      r.Context(),
		body:     body,
	}
}

// Context returns the request's context. It is never nil.
func (r *Request) Context() context.Context {
	if r.ctx == nil {
		return context.Background()
	}
	return r.ctx
}

// WithContext returns a shallow copy of r using ctx.
func (r *Request) WithContext(ctx context.Context) *Request {
	clone := *r
	clone.ctx = ctx
	return &clone
}

// WithHeader returns a shallow copy of r using h.
func (r *Request) WithHeader(h http.Header) *Request {
	clone := *r
	clone.Header = h
	return &clone
}

// HasBody reports whether the request carries a body stream.
func (r *Request) HasBody() bool {
	return r.body != nil
}

// BodyUsed reports whether the body has already been read.
func (r *Request) BodyUsed() bool {
	return r.bodyUsed
}

// ReadBody reads and consumes the body. It returns nil for requests without a body.
func (r *Request) ReadBody() ([]byte, error) {
	if r.bodyUsed {
		return nil, ErrBodyUsed
	}
	r.bodyUsed = true
	if r.body == nil {
		return nil, nil
	}
	if closer, ok := r.body.(io.Closer); ok {
		defer closer.Close()
	}

	data, err := io.ReadAll(r.body)
	if err != nil {
		return nil, fmt.Errorf("failed to read request body: %w", err)
	}
	return data, nil
}

// Clone returns an independent copy of the request. Both copies can read the body.
func (r *Request) Clone() (*Request, error) {
	if r.bodyUsed {
		return nil, ErrBodyUsed
	}

	clone := *r
	clone.Header = r.Header.Clone()
	if r.body != nil {
		data, err := io.ReadAll(r.body)
		if err != nil {
			return nil, fmt.Errorf("failed to buffer request body: %w", err)
		}
		if closer, ok := r.body.(io.Closer); ok {
			closer.Close()
		}
		r.body = bytes.NewReader(data)
		clone.body = bytes.NewReader(data)
	}
	return &clone, nil
}

// Blob is a byte payload with a MIME type.
type Blob struct {
	Type string
	Data []byte
}

// Size returns the payload length in bytes.
func (b Blob) Size() int {
	return len(b.Data)
}

// Response represents an HTTP response produced by a dispatcher.
type Response struct {
	StatusCode int
	Headers    http.Header
	Body       []byte

	immutable bool
}

// NewResponse creates a response. A nil header is replaced with an empty one.
func NewResponse(status int, body []byte, header http.Header) *Response {
	if header == nil {
		header = make(http.Header)
	}
	return &Response{StatusCode: status, Headers: header, Body: body}
}

// NoContent returns an empty 204 response.
func NoContent() *Response {
	return NewResponse(http.StatusNoContent, nil, nil)
}

// Text returns a 200 text/plain response.
func Text(body string) *Response {
	resp := NewResponse(http.StatusOK, []byte(body), nil)
	resp.Headers.Set("Content-Type", "text/plain;charset=UTF-8")
	return resp
}

// JSON returns a response with v encoded as JSON.
func JSON(v any, status int) (*Response, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode response: %w", err)
	}
	resp := NewResponse(status, body, nil)
	resp.Headers.Set("Content-Type", "application/json")
	return resp, nil
}

// BlobResponse returns a 200 response carrying the blob and its content type.
func BlobResponse(b Blob) *Response {
	resp := NewResponse(http.StatusOK, b.Data, nil)
	if b.Type != "" {
		resp.Headers.Set("Content-Type", b.Type)
	}
	resp.Headers.Set("Content-Length", strconv.Itoa(b.Size()))
	return resp
}

// Redirect returns a redirect to location. Its headers are immutable.
// Statuses other than 301, 302, 303, 307 and 308 become 302.
func Redirect(location string, status int) *Response {
	switch status {
	case http.StatusMovedPermanently, http.StatusFound, http.StatusSeeOther,
		http.StatusTemporaryRedirect, http.StatusPermanentRedirect:
	default:
		status = http.StatusFound
	}
	resp := NewResponse(status, nil, nil)
	resp.Headers.Set("Location", location)
	resp.immutable = true
	return resp
}

// ErrorResponse returns a network-error response: status 0, immutable headers, no body.
func ErrorResponse() *Response {
	resp := NewResponse(0, nil, nil)
	resp.immutable = true
	return resp
}

// Immutable reports whether the response headers can be modified.
func (r *Response) Immutable() bool {
	return r.immutable
}

// SetHeader sets a header, failing on immutable responses.
func (r *Response) SetHeader(key, value string) error {
	if r.immutable {
		return ErrImmutableHeaders
	}
	if r.Headers == nil {
		r.Headers = make(http.Header)
	}
	r.Headers.Set(key, value)
	return nil
}

// AddHeader appends a header value, failing on immutable responses.
func (r *Response) AddHeader(key, value string) error {
	if r.immutable {
		return ErrImmutableHeaders
	}
	if r.Headers == nil {
		r.Headers = make(http.Header)
	}
	r.Headers.Add(key, value)
	return nil
}

// DelHeader removes a header, failing on immutable responses.
func (r *Response) DelHeader(key string) error {
	if r.immutable {
		return ErrImmutableHeaders
	}
	r.Headers.Del(key)
	return nil
}

// Write sends the response through a net/http ResponseWriter. Status 0 is written as 500.
func (r *Response) Write(w http.ResponseWriter) error {
	h := w.Header()
	for key, values := range r.Headers {
		h[key] = append([]string(nil), values...)
	}

	status := r.StatusCode
	if status == 0 {
		status = http.StatusInternalServerError
	}
	w.WriteHeader(status)

	if len(r.Body) == 0 {
		return nil
	}
	_, err := w.Write(r.Body)
	return err
}
