package router

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	domainauth "github.com/target/forest-console/internal/domain/auth"
)

func testRoutes() []Route {
	return []Route{
		{Name: "Root", Path: "/"},
		{Name: "Login", Path: "/login", Requirement: domainauth.RouteRequirement{RequiresNoSession: true}},
		{Name: "Overview", Path: "/overview", Requirement: domainauth.RouteRequirement{RequiresAuthentication: true}},
		{Name: "Home", Path: "/home", Redirect: "/overview"},
		{Name: "Users", Path: "/users", Requirement: domainauth.RouteRequirement{RequiresAuthentication: true, RequiresElevatedRole: true}},
	}
}

func newTestRouter(t *testing.T) *Router {
	t.Helper()
	r, err := New(Options{Routes: testRoutes(), LoginPath: "/login", DefaultPath: "/overview"})
	require.NoError(t, err)
	return r
}

func decide(d domainauth.Decision) Hook {
	return func(_ context.Context, _, _ Destination, next func(domainauth.Decision)) { next(d) }
}

func TestNew_RejectsInvalidTables(t *testing.T) {
	tests := []struct {
		name   string
		routes []Route
		want   error
	}{
		{
			name:   "contradictory requirement",
			routes: append(testRoutes(), Route{Name: "Bad", Path: "/bad", Requirement: domainauth.RouteRequirement{RequiresNoSession: true, RequiresAuthentication: true}}),
			want:   domainauth.ErrContradictoryRequirement,
		},
		{
			name:   "admin without auth",
			routes: append(testRoutes(), Route{Name: "Bad", Path: "/bad", Requirement: domainauth.RouteRequirement{RequiresElevatedRole: true}}),
			want:   domainauth.ErrElevatedWithoutAuth,
		},
		{
			name:   "dangling redirect",
			routes: append(testRoutes(), Route{Name: "Bad", Path: "/bad", Redirect: "/nowhere"}),
			want:   ErrRouteNotFound,
		},
		{
			name:   "missing login route",
			routes: testRoutes()[2:],
			want:   ErrRouteNotFound,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(Options{Routes: tt.routes, LoginPath: "/login", DefaultPath: "/overview"})
			require.ErrorIs(t, err, tt.want)
		})
	}

	_, err := New(Options{Routes: append(testRoutes(), Route{Name: "Dup", Path: "/overview/"}), LoginPath: "/login", DefaultPath: "/overview"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate path")

	_, err = New(Options{Routes: append(testRoutes(), Route{Name: "Rel", Path: "relative"}), LoginPath: "/login", DefaultPath: "/overview"})
	require.Error(t, err)
}

func TestResolve(t *testing.T) {
	r := newTestRouter(t)

	d, err := r.Resolve("/overview/?tab=trees")
	require.NoError(t, err)
	assert.Equal(t, "/overview", d.Path)
	assert.Equal(t, "/overview?tab=trees", d.FullPath)
	assert.Equal(t, "trees", d.Query.Get("tab"))
	assert.Equal(t, "Overview", d.Route.Name)

	_, err = r.Resolve("/missing")
	require.ErrorIs(t, err, ErrRouteNotFound)

	_, err = r.Resolve("https://evil.example/overview")
	require.Error(t, err)
}

func TestPush_WithoutHooks(t *testing.T) {
	r := newTestRouter(t)

	d, err := r.Push(context.Background(), "/users")
	require.NoError(t, err)
	assert.Equal(t, "/users", d.Path)
	assert.Equal(t, d, r.Current())
}

func TestPush_StaticRedirect(t *testing.T) {
	r := newTestRouter(t)

	d, err := r.Push(context.Background(), "/home")
	require.NoError(t, err)
	assert.Equal(t, "/overview", d.Path)
}

func TestPush_RedirectToLoginCarriesReturnTo(t *testing.T) {
	r := newTestRouter(t)
	r.Use(func(_ context.Context, to, _ Destination, next func(domainauth.Decision)) {
		if to.Route.Requirement.RequiresAuthentication {
			next(domainauth.RedirectToLogin(to.FullPath))
			return
		}
		next(domainauth.Proceed())
	})

	d, err := r.Push(context.Background(), "/users?page=2")
	require.NoError(t, err)
	assert.Equal(t, "/login", d.Path)
	assert.Equal(t, "/users?page=2", d.Query.Get("redirect"))
}

func TestPush_RedirectToDefault(t *testing.T) {
	r := newTestRouter(t)
	r.Use(func(_ context.Context, to, _ Destination, next func(domainauth.Decision)) {
		if to.Path == "/users" {
			next(domainauth.RedirectToDefault())
			return
		}
		next(domainauth.Proceed())
	})

	d, err := r.Push(context.Background(), "/users")
	require.NoError(t, err)
	assert.Equal(t, "/overview", d.Path)
}

func TestPush_HookReceivesFrom(t *testing.T) {
	r := newTestRouter(t)
	_, err := r.Push(context.Background(), "/overview")
	require.NoError(t, err)

	var from Destination
	r.Use(func(_ context.Context, _, f Destination, next func(domainauth.Decision)) {
		from = f
		next(domainauth.Proceed())
	})
	_, err = r.Push(context.Background(), "/users")
	require.NoError(t, err)
	assert.Equal(t, "/overview", from.Path)
}

func TestPush_HookMustCallNext(t *testing.T) {
	r := newTestRouter(t)
	r.Use(func(context.Context, Destination, Destination, func(domainauth.Decision)) {})

	_, err := r.Push(context.Background(), "/overview")
	require.ErrorIs(t, err, ErrNavigationAborted)
	assert.True(t, r.Current().IsZero())
}

func TestPush_SecondNextIgnored(t *testing.T) {
	r := newTestRouter(t)
	r.Use(func(_ context.Context, _, _ Destination, next func(domainauth.Decision)) {
		next(domainauth.Proceed())
		next(domainauth.RedirectToDefault())
	})

	d, err := r.Push(context.Background(), "/users")
	require.NoError(t, err)
	assert.Equal(t, "/users", d.Path)
}

func TestPush_FirstRedirectingHookWins(t *testing.T) {
	r := newTestRouter(t)
	var secondRan bool
	r.Use(func(_ context.Context, to, _ Destination, next func(domainauth.Decision)) {
		if to.Path == "/users" {
			next(domainauth.RedirectToDefault())
			return
		}
		next(domainauth.Proceed())
	})
	r.Use(func(_ context.Context, to, _ Destination, next func(domainauth.Decision)) {
		if to.Path == "/users" {
			secondRan = true
		}
		next(domainauth.Proceed())
	})

	_, err := r.Push(context.Background(), "/users")
	require.NoError(t, err)
	assert.False(t, secondRan)
}

func TestPush_RedirectLoop(t *testing.T) {
	r := newTestRouter(t)
	r.Use(decide(domainauth.RedirectToDefault()))

	_, err := r.Push(context.Background(), "/overview")
	require.ErrorIs(t, err, ErrRedirectLoop)
}

func TestPush_CancelledContext(t *testing.T) {
	r := newTestRouter(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.Push(ctx, "/overview")
	require.ErrorIs(t, err, context.Canceled)
}

func TestLoginURL(t *testing.T) {
	assert.Equal(t, "/login", LoginURL("/login", ""))
	assert.Equal(t, "/login?redirect=%2Fusers%3Fpage%3D2", LoginURL("/login", "/users?page=2"))
}
