// Package request wraps raw function requests with derived, read-only properties.
package request

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"lambda-http/pkg/cookies"
	"lambda-http/pkg/lambda"
	"lambda-http/pkg/origin"
	"lambda-http/pkg/platform"
)

var (
	// ErrInvalidInput is returned when there is no request to wrap.
	ErrInvalidInput = errors.New("cannot create a request from a nil request")

	// ErrBodyUsed is returned when the raw request body was already read.
	ErrBodyUsed = lambda.ErrBodyUsed
)

const (
	CredentialsInclude = "include"
	CredentialsOmit    = "omit"
)

// Request is a normalized view of a raw request. Every derived property is
// computed once in New; only the body is read lazily.
type Request struct {
	raw *lambda.Request
	pc  *platform.Context

	url            *url.URL
	accept         []string
	contentType    string
	contentLength  int64
	cookies        map[string]string
	sameOrigin     bool
	cors           bool
	destination    string
	mode           string
	referrer       string
	referrerPolicy string
	credentials    string
}

// New wraps raw. The URL host is rewritten from an explicit Host header, or
// else from the platform site URL.
func New(raw *lambda.Request, pc *platform.Context) (*Request, error) {
	if raw == nil {
		return nil, ErrInvalidInput
	}
	if raw.BodyUsed() {
		return nil, ErrBodyUsed
	}

	u, err := url.Parse(raw.URL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if raw.Header == nil {
		raw = raw.WithHeader(make(http.Header))
	}
	h := raw.Header

	if host := strings.TrimSpace(h.Get("Host")); host != "" {
		u.Host = host
	} else if site, err := url.Parse(pc.SiteURL()); err == nil && site.Host != "" {
		u.Host = site.Host
	}

	r := &Request{
		raw:           raw,
		pc:            pc,
		url:           u,
		accept:        parseAccept(h.Get("Accept")),
		contentType:   essence(h.Get("Content-Type")),
		contentLength: parseContentLength(h.Get("Content-Length")),
		cookies:       cookies.Parse(strings.Join(h.Values("Cookie"), "; ")),
		credentials:   CredentialsOmit,
	}

	if h.Get("Cookie") != "" || h.Get("Authorization") != "" {
		r.credentials = CredentialsInclude
	}
	r.destination = headerOr(h, "Sec-Fetch-Dest", raw.Destination)
	r.mode = headerOr(h, "Sec-Fetch-Mode", raw.Mode)
	r.referrer = headerOr(h, "Referer", raw.Referrer)
	r.referrerPolicy = headerOr(h, "Referrer-Policy", raw.ReferrerPolicy)
	r.cors = r.mode == "cors" && h.Get("Origin") != ""
	r.sameOrigin = r.computeSameOrigin()

	return r, nil
}

func headerOr(h http.Header, key, fallback string) string {
	if values := h.Values(key); len(values) > 0 {
		return values[0]
	}
	return fallback
}

func parseAccept(header string) []string {
	if strings.TrimSpace(header) == "" {
		return []string{}
	}
	parts := strings.Split(header, ",")
	accept := make([]string, 0, len(parts))
	for _, part := range parts {
		if t := essence(part); t != "" {
			accept = append(accept, t)
		}
	}
	return accept
}

func essence(contentType string) string {
	t, _, _ := strings.Cut(contentType, ";")
	return strings.ToLower(strings.TrimSpace(t))
}

func parseContentLength(v string) int64 {
	if v == "" {
		return -1
	}
	n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	if err != nil || n < 0 {
		return -1
	}
	return n
}

func (r *Request) computeSameOrigin() bool {
	own, hasOrigin := origin.Parse(r.url.String())
	h := r.raw.Header

	if site := h.Get("Sec-Fetch-Site"); site != "" && site != "same-origin" {
		return false
	}
	if !hasOrigin && r.url.Scheme == "file" && strings.HasPrefix(r.referrer, "file:///") {
		return true
	}
	if o := h.Get("Origin"); o != "" && hasOrigin {
		if parsed, ok := origin.Parse(o); ok && parsed == own {
			return true
		}
	}
	if r.referrer == "client" || r.referrer == "about:client" {
		return false
	}
	if parsed, ok := origin.Parse(r.referrer); ok {
		return hasOrigin && parsed == own
	}
	return false
}

// Raw returns the wrapped request.
func (r *Request) Raw() *lambda.Request { return r.raw }

func (r *Request) Method() string { return r.raw.Method }

func (r *Request) Header() http.Header { return r.raw.Header }

// URL returns a copy of the effective request URL.
func (r *Request) URL() *url.URL {
	u := *r.url
	return &u
}

// Href returns the effective request URL as a string.
func (r *Request) Href() string { return r.url.String() }

// Origin returns the serialized origin of the request URL, or "null".
func (r *Request) Origin() string {
	if o, ok := origin.Parse(r.url.String()); ok {
		return o
	}
	return "null"
}

func (r *Request) Host() string     { return r.url.Host }
func (r *Request) Hostname() string { return r.url.Hostname() }
func (r *Request) Port() string     { return r.url.Port() }
func (r *Request) Pathname() string { return r.url.EscapedPath() }
func (r *Request) Protocol() string { return r.url.Scheme + ":" }

// Query returns a fresh copy of the parsed search params.
func (r *Request) Query() url.Values { return r.url.Query() }

// Accept returns the accepted MIME essences in header order.
func (r *Request) Accept() []string { return append([]string(nil), r.accept...) }

// ContentType returns the lower-cased content type without parameters.
func (r *Request) ContentType() string { return r.contentType }

// ContentLength returns the Content-Length header, or -1 when absent or invalid.
func (r *Request) ContentLength() int64 { return r.contentLength }

func (r *Request) IsSameOrigin() bool { return r.sameOrigin }
func (r *Request) IsCORS() bool       { return r.cors }

func (r *Request) Destination() string    { return r.destination }
func (r *Request) Mode() string           { return r.mode }
func (r *Request) Referrer() string       { return r.referrer }
func (r *Request) ReferrerPolicy() string { return r.referrerPolicy }

// Credentials returns "include" when the request carries a Cookie or
// Authorization header, otherwise "omit".
func (r *Request) Credentials() string { return r.credentials }

// Cookie returns the value of the named request cookie.
func (r *Request) Cookie(name string) (string, bool) {
	v, ok := r.cookies[name]
	return v, ok
}

// Cookies returns a copy of the request cookies.
func (r *Request) Cookies() map[string]string {
	m := make(map[string]string, len(r.cookies))
	for k, v := range r.cookies {
		m[k] = v
	}
	return m
}

func (r *Request) Platform() *platform.Context { return r.pc }
func (r *Request) IP() string                  { return r.pc.ClientIP() }
func (r *Request) RequestID() string           { return r.pc.ID() }
func (r *Request) Geo() platform.Geo           { return r.pc.Location() }

func (r *Request) Context() context.Context { return r.raw.Context() }

// WithContext returns a shallow copy of r whose raw request uses ctx.
func (r *Request) WithContext(ctx context.Context) *Request {
	clone := *r
	clone.raw = r.raw.WithContext(ctx)
	return &clone
}

// Accepts reports whether any of types is accepted. An empty Accept header or */* accepts everything.
func (r *Request) Accepts(types ...string) bool {
	if r.acceptsAll() {
		return true
	}
	for _, t := range types {
		for _, a := range r.accept {
			if strings.EqualFold(t, a) {
				return true
			}
		}
	}
	return false
}

// AcceptsMatch reports whether any accepted type matches re.
func (r *Request) AcceptsMatch(re *regexp.Regexp) bool {
	if r.acceptsAll() {
		return true
	}
	for _, a := range r.accept {
		if re.MatchString(a) {
			return true
		}
	}
	return false
}

func (r *Request) acceptsAll() bool {
	if len(r.accept) == 0 {
		return true
	}
	for _, a := range r.accept {
		if a == "*/*" {
			return true
		}
	}
	return false
}

// Clone returns an independent request sharing the platform context. Both
// requests can read the body.
func (r *Request) Clone() (*Request, error) {
	raw, err := r.raw.Clone()
	if err != nil {
		return nil, err
	}
	clone := *r
	clone.raw = raw
	clone.url = r.URL()
	return &clone, nil
}

// Redirect returns a redirect response to location.
func (r *Request) Redirect(location string, status int) *lambda.Response {
	return lambda.Redirect(location, status)
}
