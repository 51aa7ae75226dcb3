package service

import (
	"log/slog"

	domainauth "github.com/target/forest-console/internal/domain/auth"
)

// RootPath is the entry path resolved before any route requirement is evaluated.
const RootPath = "/"

// NavigationTarget is the destination a guard evaluates.
type NavigationTarget struct {
	Path        string
	FullPath    string
	Requirement domainauth.RouteRequirement
}

// NavigationGuardOptions groups dependencies for NavigationGuard.
type NavigationGuardOptions struct {
	State  SessionState
	Logger *slog.Logger
}

// NavigationGuard decides whether a view transition may proceed.
// Decisions are never cached; every call reads the current session state.
type NavigationGuard struct {
	state  SessionState
	logger *slog.Logger
}

// NewNavigationGuard constructs a NavigationGuard.
func NewNavigationGuard(opts NavigationGuardOptions) *NavigationGuard {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &NavigationGuard{state: opts.State, logger: logger}
}

// Decide evaluates one navigation.
func (g *NavigationGuard) Decide(to NavigationTarget) domainauth.Decision {
	active := g.state.HasActiveSession()

	if to.Path == RootPath {
		if active {
			return domainauth.RedirectToDefault()
		}
		return domainauth.RedirectToLogin("")
	}

	req := to.Requirement
	switch {
	case req.RequiresAuthentication && !active:
		returnTo := to.FullPath
		if returnTo == "" {
			returnTo = to.Path
		}
		return domainauth.RedirectToLogin(returnTo)
	case req.RequiresAuthentication && req.RequiresElevatedRole && !g.state.HasElevatedRole():
		g.logger.Debug("elevated role required", "path", to.Path)
		return domainauth.RedirectToDefault()
	case req.RequiresNoSession && active:
		return domainauth.RedirectToDefault()
	default:
		return domainauth.Proceed()
	}
}
