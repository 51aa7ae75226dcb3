package main

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/target/forest-console/config"
	"github.com/target/forest-console/internal/adapters/memory"
	"github.com/target/forest-console/internal/bootstrap"
	domainauth "github.com/target/forest-console/internal/domain/auth"
	"github.com/target/forest-console/internal/service"
	"github.com/target/forest-console/internal/testutil"
)

type cliHarness struct {
	server  *testutil.IdentityServer
	storage *memory.SlotStore
	cfg     config.AppConfig
}

func newCLIHarness(t *testing.T) *cliHarness {
	t.Helper()
	srv := testutil.NewIdentityServer(t)
	cfg := config.AppConfig{
		API:     config.APIConfig{BaseURL: srv.BaseURL()},
		Storage: config.StorageConfig{Backend: config.StorageBackendMemory},
	}
	cfg.Sanitize()
	return &cliHarness{server: srv, storage: memory.NewSlotStore(), cfg: cfg}
}

// exec runs one command against a fresh console sharing the harness storage,
// like separate invocations of the binary sharing a session file.
func (h *cliHarness) exec(t *testing.T, name string, stdin string, args ...string) (string, error) {
	t.Helper()
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))

	app, err := bootstrap.BuildConsole(ctx, bootstrap.ConsoleOptions{Config: h.cfg, Logger: logger, Storage: h.storage})
	require.NoError(t, err)
	defer func() { require.NoError(t, app.Close(ctx)) }()

	cmd, ok := commands()[name]
	require.True(t, ok, name)

	var out bytes.Buffer
	err = cmd.run(&commandContext{
		Ctx:    ctx,
		Logger: logger,
		Config: h.cfg,
		App:    app,
		In:     strings.NewReader(stdin),
		Out:    &out,
	}, args)
	return out.String(), err
}

func TestPrintUsage(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printUsage(&buf))

	out := buf.String()
	assert.Contains(t, out, "Usage: forest-console")
	for name := range commands() {
		assert.Contains(t, out, name)
	}
	assert.Less(t, strings.Index(out, "login"), strings.Index(out, "whoami"))
}

func TestLoginWhoamiLogout(t *testing.T) {
	h := newCLIHarness(t)

	out, err := h.exec(t, "login", "", "-username", "admin", "-password", "admin123")
	require.NoError(t, err)
	assert.Contains(t, out, "admin (ADMIN)")
	assert.Contains(t, out, "/overview")

	out, err = h.exec(t, "whoami", "")
	require.NoError(t, err)
	assert.Equal(t, "admin\tADMIN\n", out)

	_, err = h.exec(t, "logout", "")
	require.NoError(t, err)

	_, err = h.exec(t, "whoami", "")
	require.ErrorIs(t, err, errNotLoggedIn)
}

func TestLogin_PasswordFromStdin(t *testing.T) {
	h := newCLIHarness(t)

	_, err := h.exec(t, "login", "user123\n", "-username", "user")
	require.NoError(t, err)

	out, err := h.exec(t, "whoami", "")
	require.NoError(t, err)
	assert.Contains(t, out, "user\tUSER")
}

func TestLogin_Failure(t *testing.T) {
	h := newCLIHarness(t)

	out, err := h.exec(t, "login", "", "-username", "admin", "-password", "nope")
	require.Error(t, err)
	assert.Contains(t, out, "登录失败: 用户名或密码错误")

	_, err = h.exec(t, "login", "", "-password", "x")
	require.Error(t, err)
}

func TestOpen(t *testing.T) {
	h := newCLIHarness(t)

	out, err := h.exec(t, "open", "", "/users")
	require.NoError(t, err)
	assert.Contains(t, out, "/login?redirect=%2Fusers")

	_, err = h.exec(t, "login", "", "-username", "user", "-password", "user123")
	require.NoError(t, err)

	out, err = h.exec(t, "open", "", "/users")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "/overview\t系统概览"), out)

	_, err = h.exec(t, "open", "")
	require.Error(t, err)

	_, err = h.exec(t, "open", "", "/nowhere")
	require.Error(t, err)
}

func TestValidateAndStatus(t *testing.T) {
	h := newCLIHarness(t)

	_, err := h.exec(t, "status", "")
	require.ErrorIs(t, err, errNotLoggedIn)

	_, err = h.exec(t, "login", "", "-username", "admin", "-password", "admin123")
	require.NoError(t, err)

	out, err := h.exec(t, "validate", "")
	require.NoError(t, err)
	assert.Contains(t, out, "Valid session for admin")

	out, err = h.exec(t, "status", "")
	require.NoError(t, err)
	assert.Contains(t, out, "2024-01-01T08:00:00")

	h.server.RevokeAll()
	out, err = h.exec(t, "status", "")
	require.NoError(t, err)
	assert.Contains(t, out, "Session expired")

	_, err = h.exec(t, "whoami", "")
	require.ErrorIs(t, err, errNotLoggedIn)
}

func TestRenderStatus_ValidateRejectionMarksExpired(t *testing.T) {
	base := statusReport{
		identity:   domainauth.Identity{ActorID: "admin", Role: domainauth.RoleAdmin},
		validation: service.Validation{Valid: true},
	}
	assert.NotContains(t, renderStatus(base, true), "Session expired")

	rejected := base
	rejected.validateExpired = true
	assert.Contains(t, renderStatus(rejected, true), "Session expired")

	rejected = base
	rejected.selfExpired = true
	assert.Contains(t, renderStatus(rejected, true), "Session expired")
}

func TestResetPassword(t *testing.T) {
	h := newCLIHarness(t)

	out, err := h.exec(t, "reset-password", "", "-username", "user", "-new-password", "fresh1")
	require.NoError(t, err)
	assert.Contains(t, out, "密码重置成功")

	_, err = h.exec(t, "login", "", "-username", "user", "-password", "fresh1")
	require.NoError(t, err)

	out, err = h.exec(t, "reset-password", "", "-username", "ghost", "-new-password", "x")
	require.Error(t, err)
	assert.Contains(t, out, "密码重置失败: 用户不存在")
}

func TestRoutes(t *testing.T) {
	h := newCLIHarness(t)

	out, err := h.exec(t, "routes", "")
	require.NoError(t, err)
	assert.Contains(t, out, "/users")
	assert.Contains(t, out, "admin")
	assert.Contains(t, out, "-> /overview")
}

func TestAccessLabel(t *testing.T) {
	routes := map[string]string{}
	h := newCLIHarness(t)
	ctx := context.Background()
	app, err := bootstrap.BuildConsole(ctx, bootstrap.ConsoleOptions{Config: h.cfg, Storage: h.storage})
	require.NoError(t, err)
	for _, r := range app.Console.Router().Routes() {
		routes[r.Path] = accessLabel(r.Requirement)
	}
	assert.Equal(t, "guest", routes["/login"])
	assert.Equal(t, "auth", routes["/overview"])
	assert.Equal(t, "admin", routes["/users"])
	assert.Equal(t, "public", routes["/about"])
}
