package functions

import (
	"net/http"
	"time"

	"lambda-http/pkg/handler"
	"lambda-http/pkg/lambda"
	"lambda-http/pkg/origin"
	"lambda-http/pkg/platform"
	"lambda-http/pkg/request"
)

const echoMaxContentLength = 50_000

type echoResponse struct {
	URL     string            `json:"url"`
	Method  string            `json:"method"`
	Headers map[string]string `json:"headers"`
	Body    any               `json:"body"`
}

type fileInfo struct {
	Name string `json:"name"`
	Type string `json:"type"`
	Size int64  `json:"size"`
}

type blobInfo struct {
	Size int    `json:"size"`
	Type string `json:"type"`
}

func echoFunction(cfg Config) function {
	echo := func(req *request.Request, pc *platform.Context) (any, error) {
		pc.CookieJar().Set(&http.Cookie{
			Name:     "foo",
			Value:    "bar",
			Path:     "/",
			Expires:  time.Now().Add(24 * time.Hour),
			HttpOnly: true,
			Secure:   true,
			SameSite: http.SameSiteLaxMode,
		})

		body, err := echoBody(req)
		if err != nil {
			return nil, err
		}
		return echoResponse{
			URL:     req.Href(),
			Method:  req.Method(),
			Headers: headerMap(req.Header()),
			Body:    body,
		}, nil
	}

	return function{
		name: "echo",
		handlers: handler.Handlers{
			http.MethodGet:    echo,
			http.MethodDelete: echo,
			http.MethodPost:   echo,
			http.MethodPatch:  echo,
			http.MethodPut: func(req *request.Request, _ *platform.Context) (any, error) {
				data, err := req.Bytes()
				if err != nil {
					return nil, err
				}
				ct := req.Header().Get("Content-Type")
				if ct == "" {
					ct = "application/octet-stream"
				}
				return lambda.Blob{Type: ct, Data: data}, nil
			},
		},
		policy: handler.Policy{
			AllowOrigins:     origin.Any(),
			AllowCredentials: true,
			MaxContentLength: handler.MaxLength(echoMaxContentLength),
			Logger:           handler.LogrusLogger(cfg.Logger),
		},
	}
}

// echoBody returns a JSON-friendly view of the request body.
func echoBody(req *request.Request) (any, error) {
	switch req.Method() {
	case http.MethodGet, http.MethodDelete, http.MethodHead:
		return nil, nil
	}
	if !req.Raw().HasBody() {
		return nil, nil
	}

	data, err := req.Data()
	if err != nil {
		return nil, err
	}
	switch v := data.(type) {
	case *request.Form:
		return formMap(v), nil
	case lambda.Blob:
		return blobInfo{Size: v.Size(), Type: v.Type}, nil
	default:
		return v, nil
	}
}

func formMap(f *request.Form) map[string][]any {
	m := make(map[string][]any, len(f.Value)+len(f.File))
	for k, values := range f.Value {
		for _, v := range values {
			m[k] = append(m[k], v)
		}
	}
	for k, files := range f.File {
		for _, fh := range files {
			m[k] = append(m[k], fileInfo{
				Name: fh.Filename,
				Type: fh.Header.Get("Content-Type"),
				Size: fh.Size,
			})
		}
	}
	return m
}
