// Package cookies provides a per-request cookie store and helpers for building cookies.
package cookies

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// ErrInvalidCookie is returned for cookies with an empty name or an unknown SameSite mode.
var ErrInvalidCookie = errors.New("invalid cookie")

type options struct {
	path        string
	domain      string
	expires     time.Time
	maxAge      int
	sameSite    string
	httpOnly    bool
	secure      bool
	partitioned bool
}

// Option configures a cookie built with New.
type Option func(*options)

func WithPath(path string) Option     { return func(o *options) { o.path = path } }
func WithDomain(domain string) Option { return func(o *options) { o.domain = domain } }
func WithExpires(t time.Time) Option  { return func(o *options) { o.expires = t } }
func WithMaxAge(seconds int) Option   { return func(o *options) { o.maxAge = seconds } }
func WithSameSite(mode string) Option { return func(o *options) { o.sameSite = strings.ToLower(mode) } }
func WithHTTPOnly() Option            { return func(o *options) { o.httpOnly = true } }
func WithSecure() Option              { return func(o *options) { o.secure = true } }
func WithPartitioned() Option         { return func(o *options) { o.partitioned = true } }

// New builds a cookie. The path defaults to "/" and SameSite to lax.
func New(name, value string, opts ...Option) (*http.Cookie, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: name must not be empty", ErrInvalidCookie)
	}

	o := options{path: "/", sameSite: "lax"}
	for _, opt := range opts {
		opt(&o)
	}
	if o.path == "" {
		return nil, fmt.Errorf("%w: path must not be empty", ErrInvalidCookie)
	}

	var sameSite http.SameSite
	switch o.sameSite {
	case "lax":
		sameSite = http.SameSiteLaxMode
	case "strict":
		sameSite = http.SameSiteStrictMode
	case "none":
		sameSite = http.SameSiteNoneMode
	default:
		return nil, fmt.Errorf("%w: SameSite must be \"none\", \"lax\", or \"strict\"", ErrInvalidCookie)
	}

	return &http.Cookie{
		Name:        name,
		Value:       value,
		Path:        o.path,
		Domain:      o.domain,
		Expires:     o.expires,
		MaxAge:      o.maxAge,
		SameSite:    sameSite,
		HttpOnly:    o.httpOnly,
		Secure:      o.secure,
		Partitioned: o.partitioned,
	}, nil
}

// Parse parses a Cookie request header into a name/value map.
// Names and values are percent-decoded; on duplicate names the last one wins.
func Parse(header string) map[string]string {
	result := make(map[string]string)
	if header == "" {
		return result
	}

	for _, part := range strings.Split(header, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, value, _ := strings.Cut(part, "=")
		name = decode(strings.TrimSpace(name))
		if name == "" {
			continue
		}
		result[name] = decode(strings.TrimSpace(value))
	}
	return result
}

func decode(s string) string {
	if decoded, err := url.PathUnescape(s); err == nil {
		return decoded
	}
	return s
}

// Store holds the cookies a handler wants to set on its response. It is safe for concurrent use.
type Store struct {
	mu      sync.RWMutex
	order   []string
	cookies map[string]*http.Cookie
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{cookies: make(map[string]*http.Cookie)}
}

// Get returns the cookie stored under name.
func (s *Store) Get(name string) (*http.Cookie, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.cookies[name]
	return c, ok
}

// Has reports whether a cookie is stored under name.
func (s *Store) Has(name string) bool {
	_, ok := s.Get(name)
	return ok
}

// Set stores c, replacing any cookie with the same name.
func (s *Store) Set(c *http.Cookie) {
	if c == nil || c.Name == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.cookies[c.Name]; !ok {
		s.order = append(s.order, c.Name)
	}
	s.cookies[c.Name] = c
}

// SetValue stores a cookie with default attributes.
func (s *Store) SetValue(name, value string) {
	c, err := New(name, value)
	if err != nil {
		return
	}
	s.Set(c)
}

// Delete expires the cookie stored under name, or records an expired one so
// the client drops its copy.
func (s *Store) Delete(name string) {
	if c, ok := s.Get(name); ok {
		expired := *c
		expired.Value = ""
		expired.Expires = time.Unix(0, 0)
		expired.MaxAge = -1
		s.Set(&expired)
		return
	}
	s.Set(&http.Cookie{Name: name, Path: "/", Expires: time.Unix(0, 0), MaxAge: -1})
}

// All returns the stored cookies in insertion order.
func (s *Store) All() []*http.Cookie {
	s.mu.RLock()
	defer s.mu.RUnlock()
	all := make([]*http.Cookie, 0, len(s.order))
	for _, name := range s.order {
		all = append(all, s.cookies[name])
	}
	return all
}
