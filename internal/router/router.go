package router

import (
	"errors"
	"fmt"
	"net/url"
	"slices"
	"sync"
)

// maxRedirects bounds redirect chains between hooks.
const maxRedirects = 8

var (
	// ErrUnknownRoute is returned when navigating to a name not in the table.
	ErrUnknownRoute = errors.New("unknown route")
	// ErrRedirectLoop is returned when hooks keep redirecting.
	ErrRedirectLoop = errors.New("too many redirects")
)

// Decision is a hook's verdict on a navigation.
type Decision struct {
	redirect string
}

// Allow lets the navigation proceed.
func Allow() Decision { return Decision{} }

// Redirect sends the navigation to another route instead.
func Redirect(name string) Decision { return Decision{redirect: name} }

// Redirected returns the redirect target, if any.
func (d Decision) Redirected() (string, bool) {
	return d.redirect, d.redirect != ""
}

// Hook runs before each navigation. from is the zero Route on the first one.
type Hook func(to, from Route) Decision

// Router resolves route names and paths and runs hooks before navigating.
type Router struct {
	mu        sync.Mutex
	routes    []Route
	byName    map[string]Route
	hooks     []Hook
	listeners []func(Route)
	current   Route
}

// New creates a Router over routes.
func New(routes []Route) *Router {
	r := &Router{routes: routes, byName: make(map[string]Route, len(routes))}
	for _, rt := range routes {
		r.byName[rt.Name] = rt
	}
	return r
}

// BeforeEach registers a pre-navigation hook.
func (r *Router) BeforeEach(h Hook) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hooks = append(r.hooks, h)
}

// OnNavigate registers fn to be called after every completed navigation.
func (r *Router) OnNavigate(fn func(Route)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listeners = append(r.listeners, fn)
}

// Current returns the active route.
func (r *Router) Current() Route {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

// Lookup returns the route with the given name.
func (r *Router) Lookup(name string) (Route, bool) {
	rt, ok := r.byName[name]
	return rt, ok
}

// Resolve maps a path (query string allowed) to a route. Unmatched paths
// resolve to the catch-all route, or the zero Route if there is none.
func (r *Router) Resolve(path string) Route {
	if u, err := url.Parse(path); err == nil {
		path = u.Path
	}
	for _, rt := range r.routes {
		if rt.matches(path) {
			return rt
		}
	}
	return Route{}
}

// Push navigates to the named route, following hook redirects, and returns
// the route actually reached.
func (r *Router) Push(name string) (Route, error) {
	r.mu.Lock()
	hooks := slices.Clone(r.hooks)
	from := r.current
	r.mu.Unlock()

	target := name
	for i := 0; ; i++ {
		if i > maxRedirects {
			return Route{}, fmt.Errorf("router.Push %s: %w", name, ErrRedirectLoop)
		}
		to, ok := r.byName[target]
		if !ok {
			return Route{}, fmt.Errorf("router.Push %s: %w", target, ErrUnknownRoute)
		}
		redirected := false
		for _, h := range hooks {
			if next, ok := h(to, from).Redirected(); ok {
				target = next
				redirected = true
				break
			}
		}
		if redirected {
			continue
		}

		r.mu.Lock()
		r.current = to
		listeners := slices.Clone(r.listeners)
		r.mu.Unlock()
		for _, fn := range listeners {
			fn(to)
		}
		return to, nil
	}
}

// PushPath navigates to the route matching path.
func (r *Router) PushPath(path string) (Route, error) {
	rt := r.Resolve(path)
	if rt.Name == "" {
		return Route{}, fmt.Errorf("router.PushPath %s: %w", path, ErrUnknownRoute)
	}
	return r.Push(rt.Name)
}

// Navigate is Push without the resulting route.
func (r *Router) Navigate(name string) error {
	_, err := r.Push(name)
	return err
}

// Revalidate re-runs the hooks for the current route, redirecting if they
// no longer allow it.
func (r *Router) Revalidate() (Route, error) {
	cur := r.Current()
	if cur.Name == "" {
		return cur, nil
	}
	return r.Push(cur.Name)
}
