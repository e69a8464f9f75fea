// Package platform describes the per-request metadata a hosting platform supplies to functions.
package platform

import (
	"fmt"
	"net/http"

	"lambda-http/pkg/cookies"
	"lambda-http/pkg/lambda"
)

const (
	DefaultSiteURL   = "http://localhost:8888"
	DefaultIP        = "::1"
	DefaultRequestID = "0"
)

// CookieStore is the cookie collaborator handlers use to set response cookies.
type CookieStore interface {
	Get(name string) (*http.Cookie, bool)
	Set(c *http.Cookie)
	Delete(name string)
	All() []*http.Cookie
}

type Site struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URL  string `json:"url"`
}

type Account struct {
	ID string `json:"id"`
}

type Deploy struct {
	ID        string `json:"id"`
	Context   string `json:"context"`
	Published bool   `json:"published"`
}

type Server struct {
	Region string `json:"region"`
}

type Country struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

type Subdivision struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// Geo is the approximate client location.
type Geo struct {
	City        string      `json:"city"`
	Country     Country     `json:"country"`
	Subdivision Subdivision `json:"subdivision"`
	Timezone    string      `json:"timezone"`
	Latitude    float64     `json:"latitude"`
	Longitude   float64     `json:"longitude"`
	PostalCode  string      `json:"postalCode"`
}

// Context carries platform metadata for one request.
type Context struct {
	Account   Account           `json:"account"`
	Deploy    Deploy            `json:"deploy"`
	Site      Site              `json:"site"`
	Server    Server            `json:"server"`
	Geo       Geo               `json:"geo"`
	IP        string            `json:"ip"`
	RequestID string            `json:"requestId"`
	Params    map[string]string `json:"params"`
	Flags     map[string]bool   `json:"flags"`
	Cookies   CookieStore       `json:"-"`
}

// Default returns the fallback context used when running outside the platform.
func Default() *Context {
	return &Context{
		Account: Account{ID: "0"},
		Deploy:  Deploy{ID: "0", Context: "dev"},
		Site:    Site{ID: "0", Name: "localhost", URL: DefaultSiteURL},
		Server:  Server{Region: "dev"},
		Geo: Geo{
			City:        "Los Angeles",
			Country:     Country{Code: "US", Name: "United States"},
			Subdivision: Subdivision{Code: "CA", Name: "California"},
			Timezone:    "America/Los_Angeles",
			Latitude:    34.0522,
			Longitude:   -118.2437,
			PostalCode:  "90012",
		},
		IP:        DefaultIP,
		RequestID: DefaultRequestID,
		Params:    map[string]string{},
		Flags:     map[string]bool{},
		Cookies:   cookies.NewStore(),
	}
}

// ForRequest returns a copy of c for a single request with its own cookie
// store. Empty arguments keep the values of c.
func (c *Context) ForRequest(requestID, ip string) *Context {
	if c == nil {
		c = Default()
	}
	clone := *c
	if requestID != "" {
		clone.RequestID = requestID
	}
	if ip != "" {
		clone.IP = ip
	}
	clone.Params = make(map[string]string, len(c.Params))
	for k, v := range c.Params {
		clone.Params[k] = v
	}
	clone.Cookies = cookies.NewStore()
	return &clone
}

// SiteURL returns the configured site URL, or "" for a nil context.
func (c *Context) SiteURL() string {
	if c == nil {
		return ""
	}
	return c.Site.URL
}

// ClientIP returns the client address, defaulting to DefaultIP.
func (c *Context) ClientIP() string {
	if c == nil || c.IP == "" {
		return DefaultIP
	}
	return c.IP
}

// ID returns the request id, defaulting to DefaultRequestID.
func (c *Context) ID() string {
	if c == nil || c.RequestID == "" {
		return DefaultRequestID
	}
	return c.RequestID
}

// Location returns the client geo data. A nil context yields the zero value.
func (c *Context) Location() Geo {
	if c == nil {
		return Geo{}
	}
	return c.Geo
}

// CookieJar returns the cookie store, or nil when none is attached.
func (c *Context) CookieJar() CookieStore {
	if c == nil {
		return nil
	}
	return c.Cookies
}

// WriteCookies appends a Set-Cookie header to resp for every cookie in the
// store. Immutable responses are left untouched.
func (c *Context) WriteCookies(resp *lambda.Response) error {
	jar := c.CookieJar()
	if jar == nil || resp == nil || resp.Immutable() {
		return nil
	}
	for _, cookie := range jar.All() {
		if err := cookie.Valid(); err != nil {
			return fmt.Errorf("invalid cookie %q: %w", cookie.Name, err)
		}
		if err := resp.AddHeader("Set-Cookie", cookie.String()); err != nil {
			return err
		}
	}
	return nil
}

// Flag reports whether the named feature flag is enabled.
func (c *Context) Flag(name string) bool {
	if c == nil {
		return false
	}
	return c.Flags[name]
}
