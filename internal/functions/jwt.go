package functions

import (
	"net/http"

	"lambda-http/internal/auth"
	"lambda-http/pkg/handler"
	"lambda-http/pkg/httperr"
	"lambda-http/pkg/platform"
	"lambda-http/pkg/request"
)

type jwtResponse struct {
	Token  string       `json:"token"`
	Result *auth.Claims `json:"result"`
}

// jwtFunction verifies the bearer token against the auth service.
func jwtFunction(cfg Config) function {
	return function{
		name: "jwt",
		handlers: handler.Handlers{
			http.MethodPost: func(req *request.Request, _ *platform.Context) (any, error) {
				token, _ := auth.ExtractBearer(req.Header().Get("Authorization"))
				claims, err := cfg.Auth.ValidateToken(token)
				if err != nil {
					cfg.Logger.WithError(err).WithField("request_id", req.RequestID()).Warn("Token verification failed")
					return nil, httperr.Unauthorized("Invalid token.", httperr.WithCause(err))
				}
				return jwtResponse{Token: token, Result: claims}, nil
			},
		},
		policy: handler.Policy{
			RequireJWT:       true,
			AllowCredentials: true,
		},
	}
}

// jwtgenFunction issues a token whose audience is the request's origin.
func jwtgenFunction(cfg Config) function {
	return function{
		name: "jwtgen",
		handlers: handler.Handlers{
			http.MethodGet: func(req *request.Request, _ *platform.Context) (any, error) {
				token, err := cfg.Auth.GenerateOriginToken(req.Origin())
				if err != nil {
					return nil, httperr.BadRequest("Cannot issue a token for this origin.", httperr.WithCause(err))
				}
				return map[string]string{"token": token}, nil
			},
		},
	}
}
