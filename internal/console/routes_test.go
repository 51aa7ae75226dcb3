package console

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	domainauth "github.com/target/forest-console/internal/domain/auth"
	"github.com/target/forest-console/internal/router"
)

func TestDefaultRoutes(t *testing.T) {
	routes, err := DefaultRoutes()
	require.NoError(t, err)

	byPath := map[string]router.Route{}
	for _, r := range routes {
		byPath[r.Path] = r
	}

	assert.True(t, byPath["/login"].Requirement.RequiresNoSession)
	assert.True(t, byPath["/reset-password"].Requirement.RequiresNoSession)
	assert.True(t, byPath["/overview"].Requirement.RequiresAuthentication)
	assert.Equal(t, "系统概览", byPath["/overview"].Title)
	assert.Equal(t, domainauth.RouteRequirement{RequiresAuthentication: true, RequiresElevatedRole: true}, byPath["/users"].Requirement)
	assert.True(t, byPath["/about"].Requirement.IsPublic())
	assert.Equal(t, "/overview", byPath["/dashboard"].Redirect)

	for _, p := range []string{"/tree-archive", "/forest-classify", "/resource-monitor", "/forest-rights", "/cutting-permit", "/statistics", "/settings"} {
		assert.True(t, byPath[p].Requirement.RequiresAuthentication, p)
		assert.False(t, byPath[p].Requirement.RequiresElevatedRole, p)
	}
}

func TestLoadRoutes_Errors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want error
	}{
		{
			name: "contradictory flags",
			yaml: "routes:\n  - name: Bad\n    path: /bad\n    requiresGuest: true\n    requiresAuth: true\n",
			want: domainauth.ErrContradictoryRequirement,
		},
		{
			name: "admin without auth",
			yaml: "routes:\n  - name: Bad\n    path: /bad\n    requiresAdmin: true\n",
			want: domainauth.ErrElevatedWithoutAuth,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadRoutes([]byte(tt.yaml))
			require.ErrorIs(t, err, tt.want)
		})
	}

	_, err := LoadRoutes([]byte("routes:\n  - name: X\n    path: /x\n    requiresRole: ADMIN\n"))
	require.Error(t, err, "unknown flags are rejected")

	_, err = LoadRoutes([]byte("routes: []\n"))
	require.Error(t, err)

	_, err = LoadRoutes([]byte("routes:\n  - path: /x\n"))
	require.Error(t, err)
}
