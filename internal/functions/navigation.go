package functions

import (
	"net/http"
	"net/url"

	"lambda-http/pkg/handler"
	"lambda-http/pkg/origin"
	"lambda-http/pkg/platform"
	"lambda-http/pkg/request"
)

// redirectFunction redirects to the sibling echo function.
func redirectFunction(cfg Config) function {
	return function{
		name: "redirect",
		handlers: handler.Handlers{
			http.MethodGet: func(*request.Request, *platform.Context) (any, error) {
				return &url.URL{Path: "./echo"}, nil
			},
		},
		policy: handler.Policy{
			AllowOrigins: origin.List("http://localhost:9999", "http://localhost:8888"),
			Logger:       handler.LogrusLogger(cfg.Logger),
		},
	}
}

// resetFunction asks the browser to clear all site data.
func resetFunction() function {
	return function{
		name: "reset",
		handlers: handler.Handlers{
			http.MethodGet: func(*request.Request, *platform.Context) (any, error) {
				h := make(http.Header)
				h.Set("Clear-Site-Data", `"*"`)
				h.Set("Cache-Control", "private, no-store")
				return h, nil
			},
		},
		policy: handler.Policy{RequireSameOrigin: true},
	}
}

func cookieFunction() function {
	return function{
		name: "cookie",
		handlers: handler.Handlers{
			http.MethodGet: func(req *request.Request, _ *platform.Context) (any, error) {
				return req.Cookies(), nil
			},
		},
	}
}
