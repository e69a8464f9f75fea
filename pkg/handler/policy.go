package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"golang.org/x/net/http/httpguts"

	"lambda-http/pkg/lambda"
	"lambda-http/pkg/origin"
	"lambda-http/pkg/platform"
	"lambda-http/pkg/request"
)

// ErrInvalidPolicy is returned by Register for unusable handler maps or policies.
var ErrInvalidPolicy = errors.New("invalid handler policy")

// HandlerFunc handles one request. The result is coerced into a response;
// see Dispatcher for the accepted result types.
type HandlerFunc func(req *request.Request, pc *platform.Context) (any, error)

// Handlers maps HTTP methods to handlers. Method names are case-insensitive.
type Handlers map[string]HandlerFunc

// TokenDecoder decodes a bearer token. A non-nil error rejects the request.
type TokenDecoder interface {
	Decode(token string) (any, error)
}

// TokenDecoderFunc adapts a function into a TokenDecoder.
type TokenDecoderFunc func(token string) (any, error)

func (f TokenDecoderFunc) Decode(token string) (any, error) { return f(token) }

// Logger receives the error behind every failed request. It must not panic.
type Logger func(err error, req *lambda.Request)

// Policy configures a dispatcher. The zero value allows any origin and performs no extra checks.
type Policy struct {
	// AllowOrigins restricts cross-origin requests. nil allows every origin;
	// use origin.From to build one from a string, list or pattern.
	AllowOrigins origin.Policy

	AllowHeaders     []string `validate:"dive,header_name"`
	ExposeHeaders    []string `validate:"dive,header_name"`
	AllowCredentials bool

	RequireCORS       bool
	RequireSameOrigin bool

	// MaxContentLength is the largest Content-Length accepted. nil means no limit.
	MaxContentLength     *int64 `validate:"omitempty,min=0"`
	RequireContentLength bool

	RequireHeaders      []string `validate:"dive,header_name"`
	RequireSearchParams []string `validate:"dive,required"`
	RequireCredentials  bool

	// RequireJWT requires an "Authorization: Bearer" token that TokenDecoder
	// accepts. The decoded token is available through TokenFromContext.
	RequireJWT   bool
	TokenDecoder TokenDecoder

	Logger Logger
}

// MaxLength returns a pointer suitable for Policy.MaxContentLength.
func MaxLength(n int64) *int64 {
	return &n
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("header_name", func(fl validator.FieldLevel) bool {
		return httpguts.ValidHeaderFieldName(fl.Field().String())
	})
	return v
}

func (p *Policy) validate() error {
	if p.RequireCORS && p.RequireSameOrigin {
		return fmt.Errorf("%w: cannot require both CORS and same-origin", ErrInvalidPolicy)
	}
	if err := validate.Struct(p); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("%w: %s failed %q validation (value %v)", ErrInvalidPolicy, fe.Namespace(), fe.Tag(), fe.Value())
		}
		return fmt.Errorf("%w: %v", ErrInvalidPolicy, err)
	}
	return nil
}

// normalize merges required headers into the allowed header list and adds
// Authorization when credentials are required.
func (p *Policy) normalize() {
	if len(p.AllowHeaders) > 0 && len(p.RequireHeaders) > 0 {
		p.AllowHeaders = appendUnique(p.AllowHeaders, p.RequireHeaders...)
	} else {
		p.AllowHeaders = append([]string(nil), p.AllowHeaders...)
	}
	if p.RequireCredentials {
		p.AllowHeaders = appendUnique(p.AllowHeaders, "Authorization")
	}
	p.ExposeHeaders = append([]string(nil), p.ExposeHeaders...)
	p.RequireHeaders = append([]string(nil), p.RequireHeaders...)
	p.RequireSearchParams = append([]string(nil), p.RequireSearchParams...)
	if p.MaxContentLength != nil {
		p.MaxContentLength = MaxLength(*p.MaxContentLength)
	}
}

func appendUnique(list []string, names ...string) []string {
	out := append([]string(nil), list...)
	for _, name := range names {
		found := false
		for _, existing := range out {
			if strings.EqualFold(existing, name) {
				found = true
				break
			}
		}
		if !found {
			out = append(out, name)
		}
	}
	return out
}

func hasBody(method string) bool {
	switch method {
	case http.MethodHead, http.MethodGet, http.MethodOptions, http.MethodDelete:
		return false
	}
	return true
}
