// Package registry resolves request paths to function dispatchers.
package registry

import (
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"sync"

	"lambda-http/pkg/httperr"
	"lambda-http/pkg/lambda"
	"lambda-http/pkg/platform"
)

var (
	// ErrNotFound is the cause of the 404 returned for unknown paths.
	ErrNotFound = errors.New("function not found")

	// ErrDuplicate is returned when a path is registered twice.
	ErrDuplicate = errors.New("function already registered")
)

// Dispatcher handles requests for one function.
type Dispatcher interface {
	Dispatch(raw *lambda.Request, pc *platform.Context) *lambda.Response
}

// Registry maps URL paths such as "/api/echo" to dispatchers.
type Registry struct {
	mu        sync.RWMutex
	functions map[string]Dispatcher
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{functions: make(map[string]Dispatcher)}
}

// Register adds d under path.
func (r *Registry) Register(path string, d Dispatcher) error {
	if d == nil {
		return fmt.Errorf("nil dispatcher for %q", path)
	}
	key := cleanPath(path)

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.functions[key]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicate, key)
	}
	r.functions[key] = d
	return nil
}

// MustRegister is like Register but panics on error.
func (r *Registry) MustRegister(path string, d Dispatcher) {
	if err := r.Register(path, d); err != nil {
		panic(err)
	}
}

// Load returns the dispatcher for path, or a 404 *httperr.Error.
func (r *Registry) Load(path string) (Dispatcher, error) {
	key := cleanPath(path)

	r.mu.RLock()
	d, ok := r.functions[key]
	r.mu.RUnlock()
	if !ok {
		return nil, httperr.NotFound(key+" not found", httperr.WithCause(ErrNotFound))
	}
	return d, nil
}

// Paths returns the registered paths in sorted order.
func (r *Registry) Paths() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	paths := make([]string, 0, len(r.functions))
	for p := range r.functions {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Fetch dispatches raw to the function registered for its URL path. Unknown
// paths yield a 404 JSON error response.
func (r *Registry) Fetch(raw *lambda.Request, pc *platform.Context) *lambda.Response {
	if raw == nil {
		return httperr.BadRequest("Invalid request").Response()
	}
	u, err := url.Parse(raw.URL)
	if err != nil {
		return httperr.BadRequest("Invalid request URL", httperr.WithCause(err)).Response()
	}

	d, err := r.Load(u.Path)
	if err != nil {
		if herr, ok := httperr.As(err); ok {
			return herr.Response()
		}
		return httperr.Internal("An unknown error occurred", httperr.WithCause(err)).Response()
	}
	return d.Dispatch(raw, pc)
}

func cleanPath(path string) string {
	return "/" + strings.Trim(strings.TrimSpace(path), "/")
}
