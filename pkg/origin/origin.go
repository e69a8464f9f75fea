// Package origin parses Web origins and evaluates origin allow-list policies.
package origin

import (
	"net"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/net/idna"
)

const (
	// Wildcard allows every origin.
	Wildcard = "*"

	// Opaque is the serialization of an origin that cannot be parsed, such as
	// the "null" sent by sandboxed frames and file: documents.
	Opaque = "null"
)

// Policy decides whether an origin is allowed.
type Policy interface {
	Allows(origin string) bool
}

type anyOrigin struct{}

func (anyOrigin) Allows(string) bool { return true }

// Any allows every origin. It is the policy form of "*".
func Any() Policy {
	return anyOrigin{}
}

type exact string

func (e exact) Allows(origin string) bool {
	return string(e) == Wildcard || (origin != "" && string(e) == origin)
}

// Exact allows a single origin. "*" allows every origin.
func Exact(origin string) Policy {
	if normalized, ok := Parse(origin); ok {
		return exact(normalized)
	}
	return exact(origin)
}

type set map[string]struct{}

func (s set) Allows(origin string) bool {
	if _, ok := s[Wildcard]; ok {
		return true
	}
	if origin == "" {
		return false
	}
	_, ok := s[origin]
	return ok
}

// List allows any of the given origins. A "*" member allows every origin.
func List(origins ...string) Policy {
	s := make(set, len(origins))
	for _, o := range origins {
		if normalized, ok := Parse(o); ok {
			o = normalized
		}
		s[o] = struct{}{}
	}
	return s
}

type pattern struct {
	re *regexp.Regexp
}

func (p pattern) Allows(origin string) bool {
	return origin != "" && p.re != nil && p.re.MatchString(origin)
}

// Regexp allows origins matching re.
func Regexp(re *regexp.Regexp) Policy {
	return pattern{re: re}
}

// Func adapts a predicate into a Policy.
type Func func(origin string) bool

func (f Func) Allows(origin string) bool {
	return origin != "" && f != nil && f(origin)
}

type hostPattern struct {
	hostname string
	ports    map[string]struct{}
}

func (h hostPattern) Allows(origin string) bool {
	u, err := url.Parse(origin)
	if err != nil || u.Host == "" {
		return false
	}
	if !strings.EqualFold(u.Hostname(), h.hostname) {
		return false
	}
	if len(h.ports) == 0 {
		return true
	}
	_, ok := h.ports[u.Port()]
	return ok
}

// Host allows origins with the given hostname on any scheme. When ports are
// given, the origin must use one of them explicitly.
func Host(hostname string, ports ...string) Policy {
	h := hostPattern{hostname: strings.ToLower(hostname)}
	if len(ports) > 0 {
		h.ports = make(map[string]struct{}, len(ports))
		for _, p := range ports {
			h.ports[p] = struct{}{}
		}
	}
	return h
}

type deny struct{}

func (deny) Allows(string) bool { return false }

// From converts a loosely typed allow-origins value into a Policy. nil stays
// nil (unset); values of an unrecognized shape deny every origin.
func From(v any) Policy {
	switch p := v.(type) {
	case nil:
		return nil
	case Policy:
		return p
	case string:
		if p == Wildcard {
			return Any()
		}
		return Exact(p)
	case []string:
		return List(p...)
	case map[string]struct{}:
		origins := make([]string, 0, len(p))
		for o := range p {
			origins = append(origins, o)
		}
		return List(origins...)
	case map[string]bool:
		origins := make([]string, 0, len(p))
		for o, ok := range p {
			if ok {
				origins = append(origins, o)
			}
		}
		return List(origins...)
	case *regexp.Regexp:
		return Regexp(p)
	case func(string) bool:
		return Func(p)
	default:
		return deny{}
	}
}

// Parse serializes raw as an origin: lower-case scheme and host, default
// ports elided, internationalized hosts converted to ASCII. Opaque origins
// such as "null" are rejected.
func Parse(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "null" {
		return "", false
	}

	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" || u.Opaque != "" {
		return "", false
	}

	scheme := strings.ToLower(u.Scheme)
	host := strings.ToLower(u.Hostname())
	if ip := net.ParseIP(host); ip != nil {
		host = ip.String()
	} else if host, err = idna.Lookup.ToASCII(host); err != nil {
		return "", false
	}

	port := u.Port()
	if (scheme == "http" && port == "80") || (scheme == "https" && port == "443") {
		port = ""
	}
	switch {
	case port != "":
		host = net.JoinHostPort(host, port)
	case strings.Contains(host, ":"):
		host = "[" + host + "]"
	}
	return scheme + "://" + host, true
}

// Of returns the effective origin of a request: the Origin header, falling
// back to the origin of the Referer. It returns "" when neither is usable.
func Of(h http.Header) string {
	if o, ok := Parse(h.Get("Origin")); ok {
		return o
	}
	if h.Get("Origin") == "" {
		if o, ok := Parse(h.Get("Referer")); ok {
			return o
		}
	}
	return ""
}

// IsAllowed reports whether the request's effective origin is allowed. A nil policy allows everything.
func IsAllowed(h http.Header, p Policy) bool {
	if p == nil {
		return true
	}
	return p.Allows(Of(h))
}
