package handlertest

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"lambda-http/pkg/lambda"
	"lambda-http/pkg/platform"
)

// Fetcher produces a response for a raw request. Dispatcher.Dispatch and
// Registry.Fetch both satisfy it as method values.
type Fetcher func(raw *lambda.Request, pc *platform.Context) *lambda.Response

// Assertion checks a response. It returns a descriptive error on failure.
type Assertion func(resp *lambda.Response, req *lambda.Request) error

// Case pairs a request with the assertions its response must satisfy.
type Case struct {
	Request    *lambda.Request
	Platform   *platform.Context
	Assertions []Assertion
}

// Run dispatches every case concurrently and returns all assertion failures joined.
func Run(fetch Fetcher, cases ...Case) error {
	errs := make([]error, len(cases))

	var wg sync.WaitGroup
	for i, c := range cases {
		wg.Add(1)
		go func(i int, c Case) {
			defer wg.Done()
			errs[i] = runCase(fetch, c)
		}(i, c)
	}
	wg.Wait()

	return errors.Join(errs...)
}

func runCase(fetch Fetcher, c Case) (err error) {
	if c.Request == nil {
		return errors.New("test case has no request")
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s <%s> panicked: %v", c.Request.Method, c.Request.URL, r)
		}
	}()

	pc := c.Platform
	if pc == nil {
		pc = platform.Default().ForRequest("", "")
	}

	// Headers are copied so assertions see the request as sent.
	sent := *c.Request
	sent.Header = c.Request.Header.Clone()

	resp := fetch(c.Request, pc)
	if resp == nil {
		return fmt.Errorf("%s <%s> returned no response", sent.Method, sent.URL)
	}
	if err := pc.WriteCookies(resp); err != nil {
		return err
	}

	var failures []error
	for _, assert := range c.Assertions {
		if err := assert(resp, &sent); err != nil {
			failures = append(failures, err)
		}
	}
	return errors.Join(failures...)
}

func describe(req *lambda.Request) string {
	return req.Method + " <" + req.URL + ">"
}

// All combines assertions into one.
func All(assertions ...Assertion) Assertion {
	return func(resp *lambda.Response, req *lambda.Request) error {
		var errs []error
		for _, a := range assertions {
			if err := a(resp, req); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	}
}

func ShouldHaveValidStatus(resp *lambda.Response, req *lambda.Request) error {
	if resp.StatusCode < 100 || resp.StatusCode > 599 {
		return fmt.Errorf("%s returned an invalid status code of %d", describe(req), resp.StatusCode)
	}
	return nil
}

func ShouldBeOK(resp *lambda.Response, req *lambda.Request) error {
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%s should return a 2xx status code, got %d", describe(req), resp.StatusCode)
	}
	return nil
}

func ShouldHaveStatus(status int) Assertion {
	return func(resp *lambda.Response, req *lambda.Request) error {
		if resp.StatusCode != status {
			return fmt.Errorf("%s should have a status code of %d, got %d", describe(req), status, resp.StatusCode)
		}
		return nil
	}
}

func ShouldError(resp *lambda.Response, req *lambda.Request) error {
	if resp.StatusCode < 400 || resp.StatusCode > 599 {
		return fmt.Errorf("%s should return a 4xx or 5xx status code, got %d", describe(req), resp.StatusCode)
	}
	return nil
}

func ShouldClientError(resp *lambda.Response, req *lambda.Request) error {
	if resp.StatusCode < 400 || resp.StatusCode > 499 {
		return fmt.Errorf("%s should return a 4xx status code, got %d", describe(req), resp.StatusCode)
	}
	return nil
}

func ShouldServerError(resp *lambda.Response, req *lambda.Request) error {
	if resp.StatusCode < 500 || resp.StatusCode > 599 {
		return fmt.Errorf("%s should return a 5xx status code, got %d", describe(req), resp.StatusCode)
	}
	return nil
}

// ShouldBeErrorBody checks that the body is a JSON error whose status matches the response.
func ShouldBeErrorBody(resp *lambda.Response, req *lambda.Request) error {
	var body struct {
		Error *struct {
			Message *string `json:"message"`
			Status  int     `json:"status"`
		} `json:"error"`
	}
	if err := json.Unmarshal(resp.Body, &body); err != nil || body.Error == nil || body.Error.Message == nil {
		return fmt.Errorf("%s should have a JSON error body, got %q", describe(req), resp.Body)
	}
	if body.Error.Status != resp.StatusCode {
		return fmt.Errorf("%s error body status %d does not match response status %d", describe(req), body.Error.Status, resp.StatusCode)
	}
	return nil
}

func ShouldHaveHeader(name string) Assertion {
	return func(resp *lambda.Response, req *lambda.Request) error {
		if len(resp.Headers.Values(name)) == 0 {
			return fmt.Errorf("%s should have an HTTP header %s but it was not set", describe(req), name)
		}
		return nil
	}
}

func ShouldNotHaveHeader(name string) Assertion {
	return func(resp *lambda.Response, req *lambda.Request) error {
		if len(resp.Headers.Values(name)) != 0 {
			return fmt.Errorf("%s should not have an HTTP header %s but it was set", describe(req), name)
		}
		return nil
	}
}

func ShouldHaveContentType(mediaType string) Assertion {
	return func(resp *lambda.Response, req *lambda.Request) error {
		ct := resp.Headers.Get("Content-Type")
		if ct == "" {
			return fmt.Errorf("%s should have a Content-Type set", describe(req))
		}
		essence, _, _ := strings.Cut(ct, ";")
		if !strings.EqualFold(strings.TrimSpace(essence), mediaType) {
			return fmt.Errorf("%s should have a Content-Type of %s, got %s", describe(req), mediaType, ct)
		}
		return nil
	}
}

func ShouldBeHTML(resp *lambda.Response, req *lambda.Request) error {
	return ShouldHaveContentType("text/html")(resp, req)
}

func ShouldBeJSON(resp *lambda.Response, req *lambda.Request) error {
	if err := ShouldHaveContentType("application/json")(resp, req); err != nil {
		return err
	}
	if !json.Valid(resp.Body) {
		return fmt.Errorf("%s could not be parsed as JSON", describe(req))
	}
	return nil
}

// ShouldHaveJSONKeys checks that the body is a JSON object containing keys.
func ShouldHaveJSONKeys(keys ...string) Assertion {
	return func(resp *lambda.Response, req *lambda.Request) error {
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(resp.Body, &obj); err != nil || obj == nil {
			return fmt.Errorf("%s should return a JSON object", describe(req))
		}
		var missing []string
		for _, k := range keys {
			if _, ok := obj[k]; !ok {
				missing = append(missing, k)
			}
		}
		if len(missing) > 0 {
			return fmt.Errorf("%s is missing JSON keys: %s", describe(req), strings.Join(missing, ", "))
		}
		return nil
	}
}

func ShouldHaveBody(resp *lambda.Response, req *lambda.Request) error {
	if len(resp.Body) == 0 {
		return fmt.Errorf("%s should have a body", describe(req))
	}
	return nil
}

func ShouldNotHaveBody(resp *lambda.Response, req *lambda.Request) error {
	if len(resp.Body) != 0 {
		return fmt.Errorf("%s should not have a body, got %d bytes", describe(req), len(resp.Body))
	}
	return nil
}

// ShouldRedirect checks for a 3xx status with an absolute Location.
func ShouldRedirect(resp *lambda.Response, req *lambda.Request) error {
	return ShouldRedirectTo("")(resp, req)
}

// ShouldRedirectTo checks that the response redirects to a location starting with prefix.
func ShouldRedirectTo(prefix string) Assertion {
	return func(resp *lambda.Response, req *lambda.Request) error {
		switch resp.StatusCode {
		case http.StatusMovedPermanently, http.StatusFound, http.StatusSeeOther,
			http.StatusTemporaryRedirect, http.StatusPermanentRedirect:
		default:
			return fmt.Errorf("%s should have a 3xx redirect status code, got %d", describe(req), resp.StatusCode)
		}
		location := resp.Headers.Get("Location")
		if location == "" {
			return fmt.Errorf("%s should redirect but is missing the Location header", describe(req))
		}
		if u, err := url.Parse(location); err != nil || !u.IsAbs() {
			return fmt.Errorf("%s should redirect to a valid URL, got %s", describe(req), location)
		}
		if !strings.HasPrefix(location, prefix) {
			return fmt.Errorf("%s should redirect to %s, got %s", describe(req), prefix, location)
		}
		return nil
	}
}

// ShouldBeCORSResponse checks that the response allows the request's origin.
func ShouldBeCORSResponse(resp *lambda.Response, req *lambda.Request) error {
	allowed := resp.Headers.Get("Access-Control-Allow-Origin")
	if allowed == "" {
		return fmt.Errorf("%s is missing the Access-Control-Allow-Origin header", describe(req))
	}
	if o := req.Header.Get("Origin"); o != "" && allowed != "*" && allowed != o {
		return fmt.Errorf("%s should allow origin %s, allows %s", describe(req), o, allowed)
	}
	return nil
}

func ShouldDisallowOrigin(resp *lambda.Response, req *lambda.Request) error {
	allowed := resp.Headers.Get("Access-Control-Allow-Origin")
	if allowed != "" && (allowed == "*" || allowed == req.Header.Get("Origin")) {
		return fmt.Errorf("%s should not allow origin %s", describe(req), req.Header.Get("Origin"))
	}
	return nil
}

// ShouldPassPreflight checks an OPTIONS response for the requested method.
func ShouldPassPreflight(resp *lambda.Response, req *lambda.Request) error {
	if req.Method != http.MethodOptions {
		return fmt.Errorf("%s is not an OPTIONS request", describe(req))
	}
	if resp.Headers.Get("Access-Control-Allow-Methods") == "" {
		return fmt.Errorf("%s is missing Access-Control-Allow-Methods", describe(req))
	}
	return ShouldAllowMethod(resp, req)
}

func ShouldAllowMethod(resp *lambda.Response, req *lambda.Request) error {
	if method := requestedMethod(req); method != "" {
		if !containsFold(resp.Headers.Get("Access-Control-Allow-Methods"), method) {
			return fmt.Errorf("%s should allow method %s", describe(req), method)
		}
		return nil
	}
	if resp.StatusCode == http.StatusMethodNotAllowed {
		return fmt.Errorf("%s should support HTTP method %s", describe(req), req.Method)
	}
	return nil
}

func ShouldNotAllowMethod(resp *lambda.Response, req *lambda.Request) error {
	if method := requestedMethod(req); method != "" {
		if containsFold(resp.Headers.Get("Access-Control-Allow-Methods"), method) {
			return fmt.Errorf("%s should not allow method %s", describe(req), method)
		}
		return nil
	}
	if resp.StatusCode != http.StatusMethodNotAllowed {
		return fmt.Errorf("%s should not support HTTP method %s, got status %d", describe(req), req.Method, resp.StatusCode)
	}
	return nil
}

func requestedMethod(req *lambda.Request) string {
	if req.Method != http.MethodOptions {
		return ""
	}
	return strings.ToUpper(strings.TrimSpace(req.Header.Get("Access-Control-Request-Method")))
}

func ShouldAllowHeaders(names ...string) Assertion {
	return headerListAssertion("Access-Control-Allow-Headers", names, true)
}

func ShouldExposeHeaders(names ...string) Assertion {
	return headerListAssertion("Access-Control-Expose-Headers", names, true)
}

func ShouldNotExposeHeaders(names ...string) Assertion {
	return headerListAssertion("Access-Control-Expose-Headers", names, false)
}

func headerListAssertion(header string, names []string, want bool) Assertion {
	return func(resp *lambda.Response, req *lambda.Request) error {
		list := resp.Headers.Get(header)
		for _, name := range names {
			if containsFold(list, name) != want {
				if want {
					return fmt.Errorf("%s should list %s in %s, got %q", describe(req), name, header, list)
				}
				return fmt.Errorf("%s should not list %s in %s", describe(req), name, header)
			}
		}
		return nil
	}
}

func containsFold(list, name string) bool {
	for _, item := range strings.Split(list, ",") {
		if strings.EqualFold(strings.TrimSpace(item), name) {
			return true
		}
	}
	return false
}

func ShouldSetCookies(names ...string) Assertion {
	return cookieAssertion(names, true)
}

func ShouldNotSetCookies(names ...string) Assertion {
	return cookieAssertion(names, false)
}

func cookieAssertion(names []string, want bool) Assertion {
	return func(resp *lambda.Response, req *lambda.Request) error {
		set := make(map[string]bool)
		for _, line := range resp.Headers.Values("Set-Cookie") {
			if c, err := http.ParseSetCookie(line); err == nil {
				set[c.Name] = true
			}
		}
		for _, name := range names {
			if set[name] != want {
				if want {
					return fmt.Errorf("%s should set cookie %s", describe(req), name)
				}
				return fmt.Errorf("%s should not set cookie %s", describe(req), name)
			}
		}
		return nil
	}
}
