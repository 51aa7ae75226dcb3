// Package console wires the navigation guard and the session-expired policy
// into the console router.
package console

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"strings"

	domainauth "github.com/target/forest-console/internal/domain/auth"
	"github.com/target/forest-console/internal/ports"
	"github.com/target/forest-console/internal/router"
	"github.com/target/forest-console/internal/service"
)

// ReturnToParam is the login query parameter holding the intended destination.
const ReturnToParam = "redirect"

// Options groups dependencies for Console.
type Options struct {
	Router *router.Router
	Guard  *service.NavigationGuard
	Logger *slog.Logger
}

// Console drives navigation for the host application.
type Console struct {
	router *router.Router
	logger *slog.Logger
}

var _ ports.SessionExpiredHandler = (*Console)(nil)

// New constructs a Console and installs the guard on the router.
func New(opts Options) (*Console, error) {
	if opts.Router == nil {
		return nil, errors.New("router is required")
	}
	if opts.Guard == nil {
		return nil, errors.New("navigation guard is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	opts.Router.Use(GuardHook(opts.Guard))
	return &Console{router: opts.Router, logger: logger}, nil
}

// GuardHook adapts a NavigationGuard to a router hook.
func GuardHook(guard *service.NavigationGuard) router.Hook {
	return func(_ context.Context, to, _ router.Destination, next func(domainauth.Decision)) {
		next(guard.Decide(service.NavigationTarget{
			Path:        to.Path,
			FullPath:    to.FullPath,
			Requirement: to.Route.Requirement,
		}))
	}
}

// Router returns the underlying router.
func (c *Console) Router() *router.Router { return c.router }

// Current returns the committed destination.
func (c *Console) Current() router.Destination { return c.router.Current() }

// Open navigates to path through the guard and returns where the actor landed.
func (c *Console) Open(ctx context.Context, path string) (router.Destination, error) {
	return c.router.Push(ctx, path)
}

// AfterLogin continues to the destination captured when the actor was sent to
// login, or to the default destination.
func (c *Console) AfterLogin(ctx context.Context) (router.Destination, error) {
	target := c.router.DefaultPath()
	cur := c.router.Current()
	if cur.Path == c.router.LoginPath() {
		target = safeReturnTo(cur.Query.Get(ReturnToParam), target)
	}
	d, err := c.router.Push(ctx, target)
	if errors.Is(err, router.ErrRouteNotFound) {
		c.logger.WarnContext(ctx, "return destination not found", "target", target)
		return c.router.Push(ctx, c.router.DefaultPath())
	}
	return d, err
}

// safeReturnTo only admits local paths.
func safeReturnTo(candidate, fallback string) string {
	if candidate == "" {
		return fallback
	}
	u, err := url.Parse(candidate)
	if err != nil || u.IsAbs() || u.Host != "" || !strings.HasPrefix(u.Path, "/") {
		return fallback
	}
	return candidate
}

// AfterLogout returns to the login destination.
func (c *Console) AfterLogout(ctx context.Context) (router.Destination, error) {
	return c.router.Push(ctx, c.router.LoginPath())
}

// SessionExpired sends the actor to login, remembering the current destination.
// It does nothing while the login destination is already showing.
func (c *Console) SessionExpired(ctx context.Context, requestPath string) {
	cur := c.router.Current()
	if cur.Path == c.router.LoginPath() {
		c.logger.DebugContext(ctx, "session expired on login page", "request_path", requestPath)
		return
	}

	target := router.LoginURL(c.router.LoginPath(), cur.FullPath)
	if _, err := c.router.Push(context.WithoutCancel(ctx), target); err != nil {
		c.logger.ErrorContext(ctx, "redirect to login failed", "request_path", requestPath, "error", err)
		return
	}
	c.logger.InfoContext(ctx, "redirected to login", "request_path", requestPath, "return_to", cur.FullPath)
}
