package handler

import (
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"

	"lambda-http/pkg/lambda"
	"lambda-http/pkg/origin"
)

const (
	headerAllowOrigin      = "Access-Control-Allow-Origin"
	headerAllowCredentials = "Access-Control-Allow-Credentials"
	headerAllowMethods     = "Access-Control-Allow-Methods"
	headerAllowHeaders     = "Access-Control-Allow-Headers"
	headerExposeHeaders    = "Access-Control-Expose-Headers"
	headerRequestHeaders   = "Access-Control-Request-Headers"
)

type corsOptions struct {
	allowOrigins     origin.Policy
	allowHeaders     []string
	exposeHeaders    []string
	allowCredentials bool
	methods          []string
}

// addCORSHeaders adds Access-Control-* headers to resp without replacing
// headers the handler already set. Failures are logged and resp is returned
// unchanged from that point on.
func addCORSHeaders(resp *lambda.Response, raw *lambda.Request, opts corsOptions) *lambda.Response {
	if resp == nil || raw == nil || resp.StatusCode == 0 || resp.Immutable() {
		return resp
	}
	if err := applyCORS(resp, raw.Header, opts); err != nil {
		logrus.WithError(err).WithField("url", raw.URL).Warn("Failed to add CORS headers")
	}
	return resp
}

func applyCORS(resp *lambda.Response, h http.Header, opts corsOptions) error {
	if h.Get("Origin") == "" {
		return setAllow(resp, opts.methods)
	}

	reqOrigin, parsed := origin.Parse(h.Get("Origin"))
	permitted := opts.allowOrigins == nil || (parsed && opts.allowOrigins.Allows(reqOrigin))

	if opts.allowCredentials && resp.Headers.Get(headerAllowCredentials) == "" {
		if err := resp.SetHeader(headerAllowCredentials, "true"); err != nil {
			return err
		}
	}

	credentials := resp.Headers.Get(headerAllowCredentials)
	allowOrigin := resp.Headers.Get(headerAllowOrigin)
	switch {
	case credentials != "" && parsed && permitted && (allowOrigin == "" || allowOrigin == origin.Wildcard):
		if err := echoOrigin(resp, reqOrigin); err != nil {
			return err
		}
	case allowOrigin == "" && permitted && credentials != "true":
		if err := resp.SetHeader(headerAllowOrigin, origin.Wildcard); err != nil {
			return err
		}
	}

	// Credentials are never allowed alongside a wildcard origin.
	if resp.Headers.Get(headerAllowCredentials) == "true" && resp.Headers.Get(headerAllowOrigin) == origin.Wildcard {
		if parsed && permitted {
			if err := echoOrigin(resp, reqOrigin); err != nil {
				return err
			}
		} else if err := resp.DelHeader(headerAllowCredentials); err != nil {
			return err
		}
	}

	if resp.Headers.Get(headerAllowHeaders) == "" {
		if len(opts.allowHeaders) > 0 {
			if err := resp.SetHeader(headerAllowHeaders, strings.Join(opts.allowHeaders, ", ")); err != nil {
				return err
			}
		} else if requested := h.Get(headerRequestHeaders); requested != "" {
			if err := resp.SetHeader(headerAllowHeaders, requested); err != nil {
				return err
			}
		}
	}

	if len(opts.exposeHeaders) > 0 && resp.Headers.Get(headerExposeHeaders) == "" {
		if err := resp.SetHeader(headerExposeHeaders, strings.Join(opts.exposeHeaders, ", ")); err != nil {
			return err
		}
	}

	return setAllow(resp, opts.methods)
}

func echoOrigin(resp *lambda.Response, reqOrigin string) error {
	if err := resp.SetHeader(headerAllowOrigin, reqOrigin); err != nil {
		return err
	}
	for _, v := range resp.Headers.Values("Vary") {
		for _, field := range strings.Split(v, ",") {
			if f := strings.TrimSpace(field); f == "*" || strings.EqualFold(f, "Origin") {
				return nil
			}
		}
	}
	return resp.AddHeader("Vary", "Origin")
}

func setAllow(resp *lambda.Response, methods []string) error {
	if resp.StatusCode != http.StatusMethodNotAllowed || resp.Headers.Get("Allow") != "" || len(methods) == 0 {
		return nil
	}
	return resp.SetHeader("Allow", strings.Join(methods, ", "))
}
