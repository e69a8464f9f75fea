package functions

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"lambda-http/pkg/handler"
	"lambda-http/pkg/httperr"
	"lambda-http/pkg/lambda"
	"lambda-http/pkg/origin"
	"lambda-http/pkg/platform"
	"lambda-http/pkg/request"
)

func corsFunction() function {
	return function{
		name: "cors",
		handlers: handler.Handlers{
			http.MethodPost: func(req *request.Request, _ *platform.Context) (any, error) {
				return map[string]any{
					"origin":      req.Header().Get("Origin"),
					"mode":        req.Mode(),
					"destination": req.Destination(),
					"headers":     headerMap(req.Header()),
				}, nil
			},
		},
		policy: handler.Policy{
			AllowOrigins:     origin.Any(),
			AllowHeaders:     []string{"Authorization"},
			AllowCredentials: true,
		},
	}
}

// errorFunction always fails with a 502 to exercise error responses.
func errorFunction(cfg Config) function {
	return function{
		name: "error",
		handlers: handler.Handlers{
			http.MethodGet: func(*request.Request, *platform.Context) (any, error) {
				return nil, httperr.BadGateway("Oops. Something broke :(",
					httperr.WithCause(errors.New("testing")))
			},
		},
		policy: handler.Policy{
			AllowOrigins:     origin.List("http://localhost:9999", "http://localhost:8080"),
			AllowHeaders:     []string{"X-Foo"},
			ExposeHeaders:    []string{"X-Foo"},
			AllowCredentials: true,
			Logger: func(err error, _ *lambda.Request) {
				if _, ok := httperr.As(err); !ok {
					cfg.Logger.WithError(err).Error("Unexpected error")
				}
			},
		},
	}
}

// authFunction decodes a Basic Authorization header carrying base64 JSON.
func authFunction() function {
	return function{
		name: "auth",
		handlers: handler.Handlers{
			http.MethodGet: func(req *request.Request, _ *platform.Context) (any, error) {
				header := req.Header().Get("Authorization")
				scheme, encoded, _ := strings.Cut(strings.TrimSpace(header), " ")
				if !strings.EqualFold(scheme, "Basic") {
					return nil, httperr.Unauthorized("Expected Basic authorization.")
				}
				data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(encoded))
				if err != nil {
					return nil, httperr.BadRequest("Invalid base64 credentials.", httperr.WithCause(err))
				}
				if !json.Valid(data) {
					return nil, httperr.BadRequest("Credentials are not valid JSON.")
				}
				return json.RawMessage(data), nil
			},
		},
		policy: handler.Policy{
			AllowOrigins:     origin.Host("localhost", "8888", "9999"),
			RequireHeaders:   []string{"Authorization"},
			AllowCredentials: true,
		},
	}
}
