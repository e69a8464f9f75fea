// Package handlertest builds browser-like requests and runs assertions
// against the responses of dispatchers.
package handlertest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"lambda-http/pkg/lambda"
)

var destinations = map[string]bool{
	"": true, "audio": true, "audioworklet": true, "document": true, "embed": true, "fencedframe": true,
	"font": true, "frame": true, "iframe": true, "image": true, "json": true, "manifest": true,
	"object": true, "paintworklet": true, "report": true, "script": true, "sharedworker": true,
	"style": true, "track": true, "video": true, "worker": true, "xslt": true,
}

type options struct {
	ctx          context.Context
	method       string
	header       http.Header
	body         []byte
	hasBody      bool
	token        string
	destination  string
	mode         string
	referrer     string
	searchParams url.Values
}

// Option configures a request built by NewRequest.
type Option func(*options)

func WithContext(ctx context.Context) Option { return func(o *options) { o.ctx = ctx } }
func WithMethod(method string) Option        { return func(o *options) { o.method = method } }
func WithHeader(key, value string) Option    { return func(o *options) { o.header.Set(key, value) } }
func WithToken(token string) Option          { return func(o *options) { o.token = token } }
func WithDestination(dest string) Option     { return func(o *options) { o.destination = dest } }
func WithMode(mode string) Option            { return func(o *options) { o.mode = mode } }
func WithReferrer(referrer string) Option    { return func(o *options) { o.referrer = referrer } }

// WithOrigin sets the Origin header.
func WithOrigin(origin string) Option {
	return WithHeader("Origin", origin)
}

// WithBody sets the request body. Content-Length is derived from it unless set explicitly.
func WithBody(body []byte) Option {
	return func(o *options) {
		o.body = body
		o.hasBody = true
	}
}

// WithSearchParams replaces the URL query.
func WithSearchParams(params url.Values) Option {
	return func(o *options) { o.searchParams = params }
}

// NewRequest builds a raw request the way a browser fetch would: it sets
// Sec-Fetch-Dest, Sec-Fetch-Mode and Referer, and Content-Length for bodies.
func NewRequest(rawURL string, opts ...Option) (*lambda.Request, error) {
	o := options{
		ctx:      context.Background(),
		method:   http.MethodGet,
		header:   make(http.Header),
		mode:     "cors",
		referrer: "about:client",
	}
	for _, opt := range opts {
		opt(&o)
	}

	if !destinations[o.destination] {
		return nil, fmt.Errorf("invalid destination: %q", o.destination)
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid url: %w", err)
	}
	if o.searchParams != nil {
		u.RawQuery = o.searchParams.Encode()
	}

	var body io.Reader
	if o.hasBody {
		body = bytes.NewReader(o.body)
	}
	raw, err := lambda.NewRequest(o.ctx, o.method, u.String(), body)
	if err != nil {
		return nil, err
	}
	raw.Header = o.header

	dest := o.destination
	if dest == "" {
		dest = "empty"
	}
	raw.Destination = o.destination
	raw.Mode = o.mode
	raw.Referrer = o.referrer
	raw.Header.Set("Sec-Fetch-Dest", dest)

	if o.hasBody && raw.Header.Get("Content-Length") == "" {
		raw.Header.Set("Content-Length", strconv.Itoa(len(o.body)))
	}
	if o.token != "" {
		raw.Header.Set("Authorization", "Bearer "+o.token)
	}
	if raw.Header.Get("Sec-Fetch-Mode") == "" {
		raw.Header.Set("Sec-Fetch-Mode", o.mode)
	}
	if raw.Header.Get("Referer") == "" {
		raw.Header.Set("Referer", o.referrer)
	}
	return raw, nil
}

// JSONRequest builds a POST request with v encoded as its JSON body.
func JSONRequest(v any, rawURL string, opts ...Option) (*lambda.Request, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request body: %w", err)
	}
	opts = append([]Option{
		WithMethod(http.MethodPost),
		WithHeader("Content-Type", "application/json"),
	}, opts...)
	return NewRequest(rawURL, append(opts, WithBody(body))...)
}

// MustRequest panics if err is non-nil.
func MustRequest(raw *lambda.Request, err error) *lambda.Request {
	if err != nil {
		panic(err)
	}
	return raw
}
