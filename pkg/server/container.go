package server

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"lambda-http/internal/auth"
	"lambda-http/internal/config"
	"lambda-http/internal/functions"
	"lambda-http/pkg/lambda"
	"lambda-http/pkg/platform"
	"lambda-http/pkg/registry"
)

// Container holds all application dependencies
type Container struct {
	Config   *config.Config
	Logger   *logrus.Logger
	Auth     *auth.Service
	Registry *registry.Registry

	// Platform is the base context every request's context is derived from
	Platform *platform.Context
}

// NewContainer creates a new dependency injection container
func NewContainer(cfg *config.Config) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	logger := cfg.NewLogger()
	authService := auth.NewService(auth.Config{
		Secret:        cfg.JWT.Secret,
		TokenDuration: time.Duration(cfg.JWT.ExpiryHours) * time.Hour,
		Issuer:        cfg.JWT.Issuer,
	})

	reg := registry.New()
	if err := functions.Register(reg, functions.Config{Auth: authService, Logger: logger}); err != nil {
		return nil, fmt.Errorf("failed to register functions: %w", err)
	}

	pc := platform.Default()
	if cfg.Site.URL != "" {
		pc.Site.URL = cfg.Site.URL
	}
	if cfg.Site.Name != "" {
		pc.Site.Name = cfg.Site.Name
	}
	if cfg.Site.ID != "" {
		pc.Site.ID = cfg.Site.ID
	}
	pc.Deploy.Context = cfg.Environment
	pc.Deploy.Published = cfg.IsProduction()
	if sc := config.GetServerlessConfig(); sc.IsLambda {
		pc.Server.Region = sc.Region
	}

	return &Container{
		Config:   cfg,
		Logger:   logger,
		Auth:     authService,
		Registry: reg,
		Platform: pc,
	}, nil
}

// Serve dispatches raw to its function within the configured handler
// timeout and writes any cookies the function set. An empty requestID is
// replaced with a new UUID.
func (c *Container) Serve(raw *lambda.Request, requestID, ip string) *lambda.Response {
	if requestID == "" {
		requestID = uuid.New().String()
	}
	pc := c.Platform.ForRequest(requestID, ip)

	if c.Config.HandlerTimeout > 0 {
		ctx, cancel := context.WithTimeout(raw.Context(), c.Config.HandlerTimeout)
		defer cancel()
		raw = raw.WithContext(ctx)
	}

	resp := c.Registry.Fetch(raw, pc)
	if err := pc.WriteCookies(resp); err != nil {
		c.Logger.WithError(err).WithField("request_id", requestID).Error("Failed to write cookies")
	}
	return resp
}
