// Package auth issues, verifies and decodes the bearer tokens used by functions.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrMissingToken is returned when no bearer token is present.
	ErrMissingToken = errors.New("missing bearer token")

	// ErrInvalidToken is returned for tokens that cannot be decoded or verified.
	ErrInvalidToken = errors.New("invalid token")
)

// Claims represents JWT claims
type Claims struct {
	Origin string   `json:"origin,omitempty"`
	Scope  []string `json:"scope,omitempty"`
	jwt.RegisteredClaims
}

// Config holds token configuration
type Config struct {
	Secret        string
	TokenDuration time.Duration
	Issuer        string
}

// Service signs and verifies HS256 tokens
type Service struct {
	config Config
}

// NewService creates a new token service
func NewService(config Config) *Service {
	if config.TokenDuration == 0 {
		config.TokenDuration = 24 * time.Hour
	}
	if config.Issuer == "" {
		config.Issuer = "lambda-http"
	}
	return &Service{config: config}
}

// GenerateToken generates a token for subject with the given scopes
func (s *Service) GenerateToken(subject string, scope ...string) (string, error) {
	now := time.Now()
	return s.sign(&Claims{
		Scope: scope,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.config.TokenDuration)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    s.config.Issuer,
			Subject:   subject,
		},
	})
}

// GenerateOriginToken generates a token bound to a Web origin. The origin is
// both the subject and the audience.
func (s *Service) GenerateOriginToken(origin string) (string, error) {
	if origin == "" || origin == "null" {
		return "", fmt.Errorf("%w: cannot issue a token for an opaque origin", ErrInvalidToken)
	}
	now := time.Now()
	return s.sign(&Claims{
		Origin: origin,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.config.TokenDuration)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    s.config.Issuer,
			Subject:   origin,
			Audience:  jwt.ClaimStrings{origin},
		},
	})
}

func (s *Service) sign(claims *Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.config.Secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// ValidateToken validates a token and returns its claims
func (s *Service) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.Secret), nil
	}, jwt.WithIssuer(s.config.Issuer))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}
	return nil, ErrInvalidToken
}

// RefreshToken issues a new token with the same subject, scopes and origin
func (s *Service) RefreshToken(tokenString string) (string, error) {
	claims, err := s.ValidateToken(tokenString)
	if err != nil {
		return "", fmt.Errorf("invalid token for refresh: %w", err)
	}
	if claims.Origin != "" {
		return s.GenerateOriginToken(claims.Origin)
	}
	return s.GenerateToken(claims.Subject, claims.Scope...)
}

// Token is a decoded JWT.
type Token struct {
	Header    map[string]any `json:"header"`
	Claims    jwt.MapClaims  `json:"payload"`
	Signature string         `json:"signature"`
	Raw       string         `json:"data"`
	Verified  bool           `json:"verified"`
}

// Decoder decodes bearer tokens. Without a Service it only checks structure;
// with one it also verifies the signature and registered claims.
type Decoder struct {
	service *Service
	parser  *jwt.Parser
}

// NewDecoder creates a decoder. svc may be nil.
func NewDecoder(svc *Service) *Decoder {
	return &Decoder{service: svc, parser: jwt.NewParser()}
}

// Decode parses tokenString into a *Token.
func (d *Decoder) Decode(tokenString string) (any, error) {
	claims := jwt.MapClaims{}
	parsed, parts, err := d.parser.ParseUnverified(tokenString, claims)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	token := &Token{
		Header:    parsed.Header,
		Claims:    claims,
		Signature: parts[2],
		Raw:       parts[0] + "." + parts[1],
	}
	if d.service != nil {
		if _, err := d.service.ValidateToken(tokenString); err != nil {
			return nil, err
		}
		token.Verified = true
	}
	return token, nil
}

// ExtractBearer returns the token from an "Authorization: Bearer <token>" value.
func ExtractBearer(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

type tokenKey struct{}

// WithToken returns a copy of ctx carrying a decoded token.
func WithToken(ctx context.Context, token any) context.Context {
	return context.WithValue(ctx, tokenKey{}, token)
}

// TokenFromContext returns the token stored by WithToken.
func TokenFromContext(ctx context.Context) (any, bool) {
	token := ctx.Value(tokenKey{})
	return token, token != nil
}
