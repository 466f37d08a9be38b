// Package router resolves named console routes. Every navigation runs the
// registered guards to completion before the target view is loaded, and
// failures go through the registered error handlers.
package router

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// maxRedirects bounds how many guard redirects a single navigation follows.
const maxRedirects = 8

var (
	// ErrUnknownRoute is returned when navigating to a name that was never
	// registered.
	ErrUnknownRoute = errors.New("unknown route")

	// ErrRedirectLoop is returned when guards keep redirecting.
	ErrRedirectLoop = errors.New("too many navigation redirects")
)

// Page is what a route's loader produces.
type Page struct {
	Title string
	Body  string
}

// Route is a named destination.
type Route struct {
	Name string
	Path string
	// Load fetches and renders the view. A nil Load yields an empty page.
	Load func(ctx context.Context) (Page, error)
}

// Decision is a guard's verdict.
type Decision struct {
	redirect string
}

// Allow lets the navigation proceed.
func Allow() Decision { return Decision{} }

// RedirectTo sends the navigation to the named route instead.
func RedirectTo(name string) Decision { return Decision{redirect: name} }

// Redirect returns the target route name, or "" when the decision allows.
func (d Decision) Redirect() string { return d.redirect }

// GuardFunc inspects a pending navigation. from is nil on the first
// navigation.
type GuardFunc func(to, from *Route) Decision

// ErrorHandler is called when loading a route fails. It returns true when
// it dealt with the error, which stops it from propagating.
type ErrorHandler func(err error, to *Route) bool

// Navigation describes a finished navigation.
type Navigation struct {
	// Requested is the name the caller asked for.
	Requested string
	// Route is where the navigation ended up.
	Route *Route
	// Redirected is true when a guard changed the destination.
	Redirected bool
	Page       Page
	// Recovered is true when an error handler took care of a load failure.
	// Page is empty in that case.
	Recovered bool
}

// Router holds the route table and the current location.
type Router struct {
	mu       sync.Mutex
	routes   map[string]*Route
	guards   []GuardFunc
	handlers []ErrorHandler
	current  *Route
}

// New returns a Router for routes. Duplicate names panic, since the route
// table is static.
func New(routes []Route) *Router {
	r := &Router{routes: make(map[string]*Route, len(routes))}
	for i := range routes {
		route := routes[i]
		if _, dup := r.routes[route.Name]; dup {
			panic(fmt.Sprintf("router: duplicate route %q", route.Name))
		}
		r.routes[route.Name] = &route
	}
	return r
}

// BeforeEach registers a guard. Guards run in registration order and the
// first redirect wins.
func (r *Router) BeforeEach(guard GuardFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.guards = append(r.guards, guard)
}

// OnError registers a handler for load failures.
func (r *Router) OnError(handler ErrorHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers = append(r.handlers, handler)
}

// Lookup returns the route registered under name.
func (r *Router) Lookup(name string) (*Route, bool) {
	route, ok := r.routes[name]
	return route, ok
}

// Current returns the route of the last successful navigation, or nil.
func (r *Router) Current() *Route {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

// Navigate resolves name through the guards and loads the resulting view.
// Navigations are strictly sequential: a second call waits for the first
// to finish. Load errors no handler claims are returned unchanged.
func (r *Router) Navigate(ctx context.Context, name string) (Navigation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	nav := Navigation{Requested: name}

	target, ok := r.routes[name]
	if !ok {
		return nav, fmt.Errorf("%w: %s", ErrUnknownRoute, name)
	}

	for hops := 0; ; hops++ {
		next := r.resolve(target)
		if next == "" {
			break
		}
		if hops >= maxRedirects {
			return nav, fmt.Errorf("%w: last redirect was to %s", ErrRedirectLoop, next)
		}
		redirected, ok := r.routes[next]
		if !ok {
			return nav, fmt.Errorf("%w: %s (redirect from %s)", ErrUnknownRoute, next, target.Name)
		}
		target = redirected
		nav.Redirected = true
	}
	nav.Route = target

	if target.Load != nil {
		page, err := target.Load(ctx)
		if err != nil {
			if r.handle(err, target) {
				nav.Recovered = true
				return nav, nil
			}
			return nav, err
		}
		nav.Page = page
	}

	r.current = target
	return nav, nil
}

// resolve runs the guards for target and returns the first redirect.
func (r *Router) resolve(target *Route) string {
	for _, guard := range r.guards {
		if next := guard(target, r.current).Redirect(); next != "" {
			return next
		}
	}
	return ""
}

func (r *Router) handle(err error, to *Route) bool {
	for _, handler := range r.handlers {
		if handler(err, to) {
			return true
		}
	}
	return false
}
