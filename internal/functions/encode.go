package functions

import (
	"crypto/sha512"
	"encoding/base64"
	"encoding/hex"
	"net/http"

	"lambda-http/pkg/handler"
	"lambda-http/pkg/platform"
	"lambda-http/pkg/request"
)

// base64Function returns the request body as a data URL.
func base64Function(cfg Config) function {
	encode := func(req *request.Request, _ *platform.Context) (any, error) {
		data, err := req.Bytes()
		if err != nil {
			return nil, err
		}
		ct := req.Header().Get("Content-Type")
		if ct == "" {
			ct = request.MIMEText
		}
		return "data:" + ct + ";base64," + base64.StdEncoding.EncodeToString(data), nil
	}

	return function{
		name: "base64",
		handlers: handler.Handlers{
			http.MethodPut:  encode,
			http.MethodPost: encode,
		},
		policy: handler.Policy{Logger: handler.LogrusLogger(cfg.Logger)},
	}
}

// hashFunction returns the hex SHA-512 digest of the request body.
func hashFunction() function {
	return function{
		name: "hash",
		handlers: handler.Handlers{
			http.MethodPost: func(req *request.Request, _ *platform.Context) (any, error) {
				data, err := req.Bytes()
				if err != nil {
					return nil, err
				}
				sum := sha512.Sum512(data)
				return hex.EncodeToString(sum[:]), nil
			},
		},
	}
}
