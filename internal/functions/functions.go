// Package functions provides the demo endpoints served under /api.
package functions

import (
	"errors"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"

	"lambda-http/internal/auth"
	"lambda-http/pkg/handler"
	"lambda-http/pkg/registry"
)

// BasePath is the prefix every function is registered under.
const BasePath = "/api"

// Config holds the collaborators shared by the functions.
type Config struct {
	Auth   *auth.Service
	Logger logrus.FieldLogger
}

type function struct {
	name     string
	handlers handler.Handlers
	policy   handler.Policy
}

// Register adds every function to reg under BasePath.
func Register(reg *registry.Registry, cfg Config) error {
	if cfg.Auth == nil {
		return errors.New("functions: auth service is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.StandardLogger()
	}

	fns := []function{
		echoFunction(cfg),
		corsFunction(),
		errorFunction(cfg),
		authFunction(),
		base64Function(cfg),
		hashFunction(),
		redirectFunction(cfg),
		resetFunction(),
		cookieFunction(),
		jwtFunction(cfg),
		jwtgenFunction(cfg),
		svgFunction(cfg),
		pageFunction(),
	}

	for _, fn := range fns {
		d, err := handler.Register(fn.handlers, fn.policy)
		if err != nil {
			return err
		}
		if err := reg.Register(BasePath+"/"+fn.name, d); err != nil {
			return err
		}
	}
	return nil
}

// headerMap flattens h into lower-cased names with comma-joined values.
func headerMap(h http.Header) map[string]string {
	m := make(map[string]string, len(h))
	for k, v := range h {
		m[strings.ToLower(k)] = strings.Join(v, ", ")
	}
	return m
}
