// Package handler registers method handlers behind a declarative policy and
// dispatches raw requests through validation, response coercion, CORS header
// injection and error mapping.
package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"lambda-http/internal/auth"
	"lambda-http/pkg/httperr"
	"lambda-http/pkg/lambda"
	"lambda-http/pkg/origin"
	"lambda-http/pkg/platform"
	"lambda-http/pkg/request"
)

const unknownErrorMessage = "An unknown error occurred"

// Dispatcher runs requests for one endpoint. It holds no per-request state
// and is safe for concurrent use.
type Dispatcher struct {
	handlers map[string]HandlerFunc
	methods  []string
	allow    string
	policy   Policy
}

// Register builds a Dispatcher. It fails when no handlers are given or the
// policy is inconsistent. OPTIONS is answered automatically, and HEAD too
// when a GET handler exists.
func Register(h Handlers, p Policy) (*Dispatcher, error) {
	if len(h) == 0 {
		return nil, fmt.Errorf("%w: no methods given", ErrInvalidPolicy)
	}
	if err := p.validate(); err != nil {
		return nil, err
	}
	p.normalize()
	if p.TokenDecoder == nil {
		p.TokenDecoder = auth.NewDecoder(nil)
	}

	d := &Dispatcher{
		handlers: make(map[string]HandlerFunc, len(h)+2),
		policy:   p,
	}
	for method, fn := range h {
		method = strings.ToUpper(strings.TrimSpace(method))
		if method == "" || fn == nil {
			return nil, fmt.Errorf("%w: invalid handler for method %q", ErrInvalidPolicy, method)
		}
		d.handlers[method] = fn
		if method != http.MethodOptions {
			d.methods = append(d.methods, method)
		}
	}
	sort.Strings(d.methods)
	d.methods = append(d.methods, http.MethodOptions)
	d.allow = strings.Join(d.methods, ", ")

	if _, ok := d.handlers[http.MethodOptions]; !ok {
		d.handlers[http.MethodOptions] = d.options
	}
	if _, ok := d.handlers[http.MethodGet]; ok {
		if _, ok := d.handlers[http.MethodHead]; !ok {
			d.handlers[http.MethodHead] = func(*request.Request, *platform.Context) (any, error) {
				return http.StatusNoContent, nil
			}
		}
	}
	return d, nil
}

// MustRegister is like Register but panics on error.
func MustRegister(h Handlers, p Policy) *Dispatcher {
	d, err := Register(h, p)
	if err != nil {
		panic(err)
	}
	return d
}

// Methods returns the advertised methods, OPTIONS last.
func (d *Dispatcher) Methods() []string {
	return append([]string(nil), d.methods...)
}

func (d *Dispatcher) options(*request.Request, *platform.Context) (any, error) {
	resp := lambda.NoContent()
	resp.Headers.Set("Allow", d.allow)
	resp.Headers.Set(headerAllowMethods, d.allow)
	return resp, nil
}

// Dispatch handles raw and always returns a response, even when coercion or
// the policy logger panics. A nil platform context is replaced with
// platform.Default.
//
// Handler results are coerced as follows: nil becomes 204, integers become an
// empty response with that status clamped to [100, 599], strings become a
// text body, *lambda.Response is used as is, lambda.Blob and []byte become a
// body, http.Header becomes a 204 carrying those headers, *url.URL becomes a
// redirect, errors become error responses and any other value is encoded as
// JSON.
func (d *Dispatcher) Dispatch(raw *lambda.Request, pc *platform.Context) (resp *lambda.Response) {
	defer func() {
		if r := recover(); r != nil {
			resp = httperr.Internal(unknownErrorMessage).Response()
		}
	}()

	if pc == nil {
		pc = platform.Default()
	}
	if raw == nil {
		return d.fail(request.ErrInvalidInput, nil)
	}
	if raw.Header == nil {
		raw = raw.WithHeader(make(http.Header))
	}

	resp, err := d.run(raw, pc)
	if err != nil {
		return d.fail(err, raw)
	}
	if resp.StatusCode == 0 {
		return d.fail(httperr.Internal(unknownErrorMessage), raw)
	}
	return addCORSHeaders(resp, raw, d.corsOptions())
}

// run performs the checks in order, then dispatches and coerces the result.
func (d *Dispatcher) run(raw *lambda.Request, pc *platform.Context) (*lambda.Response, error) {
	p := &d.policy
	method := strings.ToUpper(raw.Method)

	fn, ok := d.handlers[method]
	if !ok {
		return nil, httperr.MethodNotAllowed("Unsupported request method: "+raw.Method,
			httperr.WithHeader("Allow", d.allow))
	}

	if p.RequireJWT && method != http.MethodOptions {
		token, err := d.decodeBearer(raw.Header.Get("Authorization"))
		if err != nil {
			return nil, err
		}
		raw = raw.WithContext(auth.WithToken(raw.Context(), token))
	}

	if method != http.MethodOptions && method != http.MethodHead {
		if missing := missingHeaders(raw.Header, p.RequireHeaders); len(missing) > 0 {
			for _, name := range missing {
				if strings.EqualFold(name, "Authorization") {
					return nil, httperr.Unauthorized("Missing required Authorization header.")
				}
			}
			return nil, httperr.BadRequest("Request is missing required headers",
				httperr.WithDetails(map[string][]string{"missingHeaders": missing}))
		}
	}

	if cl := raw.Header.Get("Content-Length"); p.MaxContentLength != nil && cl != "" {
		if n, err := strconv.ParseInt(strings.TrimSpace(cl), 10, 64); err == nil && n > *p.MaxContentLength {
			return nil, httperr.PayloadTooLarge(
				fmt.Sprintf("Max Content-Length is %d - sent %d.", *p.MaxContentLength, n),
				httperr.WithDetails(map[string]int64{"contentLength": n, "maxContentLength": *p.MaxContentLength}))
		}
	}

	if p.RequireContentLength && hasBody(method) && raw.HasBody() && raw.Header.Get("Content-Length") == "" {
		return nil, httperr.LengthRequired("Request is missing required Content-Length header.")
	}

	if method != http.MethodOptions && len(p.RequireSearchParams) > 0 {
		if missing := missingParams(raw.URL, p.RequireSearchParams); len(missing) > 0 {
			return nil, httperr.BadRequest("Request is missing required search params.",
				httperr.WithDetails(map[string][]string{"missingSearchParams": missing}))
		}
	}

	req, err := request.New(raw, pc)
	if err != nil {
		return nil, httperr.BadRequest("Invalid request", httperr.WithCause(err))
	}

	if p.RequireSameOrigin && !req.IsSameOrigin() {
		return nil, httperr.Forbidden("Must be a same-origin request.")
	}
	if p.RequireCORS && !req.IsCORS() {
		return nil, httperr.Forbidden("Must be a CORS request.")
	}
	if p.AllowOrigins != nil {
		if o := raw.Header.Get("Origin"); o != "" {
			if _, ok := origin.Parse(o); !ok && !p.AllowOrigins.Allows(origin.Opaque) {
				return nil, httperr.Forbidden("Disallowed Origin: " + origin.Opaque + ".")
			}
		}
		if !req.IsSameOrigin() {
			if o := origin.Of(raw.Header); o != "" && !p.AllowOrigins.Allows(o) {
				return nil, httperr.Forbidden("Disallowed Origin: " + o + ".")
			}
		}
	}

	if p.RequireCredentials && method != http.MethodOptions && req.Credentials() != request.CredentialsInclude {
		return nil, httperr.Unauthorized(req.Href() + " requires credentials.")
	}

	result, err := invoke(req.Context(), fn, req, pc)
	if err != nil {
		return nil, err
	}
	return coerce(result, req)
}

type outcome struct {
	result any
	err    error
}

// invoke calls fn, converting panics into errors. If ctx ends first the call
// is abandoned and its eventual result discarded.
func invoke(ctx context.Context, fn HandlerFunc, req *request.Request, pc *platform.Context) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, abortError(err)
	}

	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("handler panic: %v", r)}
			}
		}()
		result, err := fn(req, pc)
		done <- outcome{result: result, err: err}
	}()

	select {
	case o := <-done:
		return o.result, o.err
	case <-ctx.Done():
		return nil, abortError(ctx.Err())
	}
}

func abortError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return httperr.GatewayTimeout("Request timed out.", httperr.WithCause(err))
	}
	return httperr.ClientClosedRequest("Request was aborted.", httperr.WithCause(err))
}

func (d *Dispatcher) decodeBearer(header string) (any, error) {
	token, ok := auth.ExtractBearer(header)
	if !ok {
		return nil, httperr.Unauthorized("Missing or invalid bearer token.")
	}
	decoded, err := d.policy.TokenDecoder.Decode(token)
	if err != nil || decoded == nil {
		return nil, httperr.Unauthorized("Invalid or expired token.", httperr.WithCause(err))
	}
	return decoded, nil
}

// fail maps err to an error response. Errors without a status never expose their text.
func (d *Dispatcher) fail(err error, raw *lambda.Request) *lambda.Response {
	if d.policy.Logger != nil {
		d.policy.Logger(err, raw)
	}

	herr, ok := httperr.As(err)
	if !ok {
		herr = httperr.Internal(unknownErrorMessage, httperr.WithCause(err))
	}
	resp := herr.Response()
	if raw == nil {
		return resp
	}
	return addCORSHeaders(resp, raw, d.corsOptions())
}

func (d *Dispatcher) corsOptions() corsOptions {
	return corsOptions{
		allowOrigins:     d.policy.AllowOrigins,
		allowHeaders:     d.policy.AllowHeaders,
		exposeHeaders:    d.policy.ExposeHeaders,
		allowCredentials: d.policy.AllowCredentials,
		methods:          d.methods,
	}
}

func missingHeaders(h http.Header, required []string) []string {
	var missing []string
	for _, name := range required {
		if len(h.Values(name)) == 0 {
			missing = append(missing, name)
		}
	}
	return missing
}

func missingParams(rawURL string, required []string) []string {
	var query url.Values
	if u, err := url.Parse(rawURL); err == nil {
		query = u.Query()
	}
	var missing []string
	for _, name := range required {
		if !query.Has(name) {
			missing = append(missing, name)
		}
	}
	return missing
}

// LogrusLogger adapts a logrus logger into a Logger. Client errors are logged
// at debug level, everything else at error level.
func LogrusLogger(log logrus.FieldLogger) Logger {
	return func(err error, raw *lambda.Request) {
		fields := logrus.Fields{"status_code": httperr.StatusOf(err)}
		if raw != nil {
			fields["method"] = raw.Method
			fields["url"] = raw.URL
		}
		entry := log.WithFields(fields).WithError(err)
		if httperr.IsClientError(err) {
			entry.Debug("Request rejected")
			return
		}
		entry.Error("Request failed")
	}
}
