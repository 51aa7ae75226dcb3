// Package router resolves console destinations against a route table and runs
// pre-navigation hooks before a transition is committed.
package router

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"

	domainauth "github.com/target/forest-console/internal/domain/auth"
)

// DefaultMaxRedirects bounds redirect chains within a single navigation.
const DefaultMaxRedirects = 8

var (
	// ErrRouteNotFound is returned when no route matches a path.
	ErrRouteNotFound = errors.New("route not found")
	// ErrNavigationAborted is returned when a hook returns without calling next.
	ErrNavigationAborted = errors.New("navigation aborted")
	// ErrRedirectLoop is returned when redirects exceed the configured limit.
	ErrRedirectLoop = errors.New("too many redirects")
)

// Route is one entry of the route table.
type Route struct {
	Name        string
	Path        string
	Title       string
	Requirement domainauth.RouteRequirement
	// Redirect, when set, forwards the route to another path before hooks run.
	Redirect string
}

// Destination is a resolved navigation target.
type Destination struct {
	Path     string
	FullPath string
	Query    url.Values
	Route    Route
}

// IsZero reports whether the destination was never resolved.
func (d Destination) IsZero() bool { return d.Path == "" }

// Hook runs before every transition. It must call next exactly once with its
// decision before returning.
type Hook func(ctx context.Context, to, from Destination, next func(domainauth.Decision))

// Options configures a Router.
type Options struct {
	Routes       []Route
	LoginPath    string
	DefaultPath  string
	MaxRedirects int
	Logger       *slog.Logger
}

// Router holds the route table, the current destination and the hook chain.
type Router struct {
	routes       map[string]Route
	order        []Route
	loginPath    string
	defaultPath  string
	maxRedirects int
	logger       *slog.Logger

	mu      sync.RWMutex
	hooks   []Hook
	current Destination
}

// New validates the route table and constructs a Router.
func New(opts Options) (*Router, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	maxRedirects := opts.MaxRedirects
	if maxRedirects <= 0 {
		maxRedirects = DefaultMaxRedirects
	}

	r := &Router{
		routes:       make(map[string]Route, len(opts.Routes)),
		loginPath:    normalizePath(opts.LoginPath),
		defaultPath:  normalizePath(opts.DefaultPath),
		maxRedirects: maxRedirects,
		logger:       logger,
	}

	for _, route := range opts.Routes {
		route.Path = normalizePath(route.Path)
		if !strings.HasPrefix(route.Path, "/") {
			return nil, fmt.Errorf("route %q: path must be absolute", route.Name)
		}
		if _, dup := r.routes[route.Path]; dup {
			return nil, fmt.Errorf("route %q: duplicate path %s", route.Name, route.Path)
		}
		if err := route.Requirement.Validate(); err != nil {
			return nil, fmt.Errorf("route %q: %w", route.Name, err)
		}
		r.routes[route.Path] = route
		r.order = append(r.order, route)
	}

	for _, rt := range r.order {
		if rt.Redirect == "" {
			continue
		}
		if _, ok := r.routes[normalizePath(rt.Redirect)]; !ok {
			return nil, fmt.Errorf("route %q: redirect target %s: %w", rt.Name, rt.Redirect, ErrRouteNotFound)
		}
	}
	for _, p := range []string{r.loginPath, r.defaultPath} {
		if _, ok := r.routes[p]; !ok {
			return nil, fmt.Errorf("entry path %q: %w", p, ErrRouteNotFound)
		}
	}
	return r, nil
}

// Use appends a hook to the chain.
func (r *Router) Use(h Hook) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hooks = append(r.hooks, h)
}

// Routes returns the route table in declaration order.
func (r *Router) Routes() []Route {
	out := make([]Route, len(r.order))
	copy(out, r.order)
	return out
}

// LoginPath returns the login destination path.
func (r *Router) LoginPath() string { return r.loginPath }

// DefaultPath returns the default authenticated destination path.
func (r *Router) DefaultPath() string { return r.defaultPath }

// Current returns the last committed destination.
func (r *Router) Current() Destination {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.current
}

// Resolve matches target (path with optional query) to a route without navigating.
func (r *Router) Resolve(target string) (Destination, error) {
	u, err := url.Parse(target)
	if err != nil {
		return Destination{}, fmt.Errorf("parse destination %q: %w", target, err)
	}
	if u.IsAbs() || u.Host != "" {
		return Destination{}, fmt.Errorf("destination %q must be a local path", target)
	}

	path := normalizePath(u.Path)
	route, ok := r.routes[path]
	if !ok {
		return Destination{}, fmt.Errorf("%s: %w", path, ErrRouteNotFound)
	}

	full := path
	if u.RawQuery != "" {
		full += "?" + u.RawQuery
	}
	return Destination{Path: path, FullPath: full, Query: u.Query(), Route: route}, nil
}

// Push navigates to target, following static and hook redirects, and commits
// the final destination. No lock is held while hooks run.
func (r *Router) Push(ctx context.Context, target string) (Destination, error) {
	from := r.Current()

	for hop := 0; hop <= r.maxRedirects; hop++ {
		if err := ctx.Err(); err != nil {
			return Destination{}, err
		}

		to, err := r.Resolve(target)
		if err != nil {
			return Destination{}, err
		}
		if to.Route.Redirect != "" {
			target = to.Route.Redirect
			continue
		}

		decision, err := r.runHooks(ctx, to, from)
		if err != nil {
			return Destination{}, err
		}
		if decision.Kind == domainauth.DecisionProceed {
			r.mu.Lock()
			r.current = to
			r.mu.Unlock()
			r.logger.DebugContext(ctx, "navigated", "from", from.FullPath, "to", to.FullPath)
			return to, nil
		}

		target = r.redirectTarget(decision)
		r.logger.DebugContext(ctx, "navigation redirected",
			"to", to.FullPath,
			"decision", decision.Kind.String(),
			"target", target,
		)
	}
	return Destination{}, fmt.Errorf("navigate to %s: %w", target, ErrRedirectLoop)
}

func (r *Router) runHooks(ctx context.Context, to, from Destination) (domainauth.Decision, error) {
	r.mu.RLock()
	hooks := make([]Hook, len(r.hooks))
	copy(hooks, r.hooks)
	r.mu.RUnlock()

	for i, h := range hooks {
		var (
			called   atomic.Bool
			decision domainauth.Decision
		)
		next := func(d domainauth.Decision) {
			if !called.CompareAndSwap(false, true) {
				r.logger.WarnContext(ctx, "navigation hook called next more than once",
					"hook", i, "to", to.FullPath)
				return
			}
			decision = d
		}

		h(ctx, to, from, next)

		if !called.Load() {
			return domainauth.Decision{}, fmt.Errorf("hook %d for %s: %w", i, to.FullPath, ErrNavigationAborted)
		}
		if decision.Kind != domainauth.DecisionProceed {
			return decision, nil
		}
	}
	return domainauth.Proceed(), nil
}

func (r *Router) redirectTarget(d domainauth.Decision) string {
	switch d.Kind {
	case domainauth.DecisionRedirectToLogin:
		return LoginURL(r.loginPath, d.ReturnTo)
	default:
		return r.defaultPath
	}
}

// LoginURL builds the login destination carrying returnTo in the redirect query.
func LoginURL(loginPath, returnTo string) string {
	if returnTo == "" {
		return loginPath
	}
	return loginPath + "?" + url.Values{"redirect": {returnTo}}.Encode()
}

func normalizePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return "/"
	}
	if len(p) > 1 {
		p = strings.TrimRight(p, "/")
		if p == "" {
			return "/"
		}
	}
	return p
}
