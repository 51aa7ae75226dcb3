package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	domainauth "github.com/target/forest-console/internal/domain/auth"
	"github.com/target/forest-console/internal/ports"
	"golang.org/x/sync/singleflight"
)

// ErrSessionExpired is returned to callers whose request was rejected for
// authorization. The session has already been cleared when it is seen.
var ErrSessionExpired = domainauth.ErrSessionExpired

// Result is the uniform business outcome of a gateway operation.
type Result struct {
	Success bool
	Message string
}

// LoginResult extends Result with the identity established by a successful login.
type LoginResult struct {
	Result
	Identity domainauth.Identity
}

// Validation reports whether the server still accepts the stored credential.
type Validation struct {
	Valid    bool
	Identity domainauth.Identity
	Message  string
}

// SelfResult carries the server's record for the signed-in actor.
type SelfResult struct {
	Result
	Self domainauth.SelfRecord
}

// IdentityAPIFactory builds the identity service client on top of the
// authorized HTTP client.
type IdentityAPIFactory func(client *http.Client) (ports.IdentityAPI, error)

// SessionGatewayOptions groups dependencies for SessionGateway.
type SessionGatewayOptions struct {
	Session    *Session
	HTTPClient *http.Client
	NewAPI     IdentityAPIFactory
	OnExpired  ports.SessionExpiredHandler
	Logger     *slog.Logger
}

// SessionGateway performs identity service calls and keeps the credential
// store in step with their outcomes.
type SessionGateway struct {
	store     *CredentialStore
	api       ports.IdentityAPI
	client    *http.Client
	onExpired ports.SessionExpiredHandler
	logger    *slog.Logger

	validations singleflight.Group
}

// NewSessionGateway constructs a SessionGateway. The supplied HTTP client is
// copied; its transport is wrapped by an Authorizer bound to the session.
func NewSessionGateway(opts SessionGatewayOptions) (*SessionGateway, error) {
	if opts.Session == nil {
		return nil, errors.New("session is required")
	}
	if opts.NewAPI == nil {
		return nil, errors.New("identity API factory is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	g := &SessionGateway{
		store:     opts.Session.Store(),
		onExpired: opts.OnExpired,
		logger:    logger,
	}

	client := http.Client{}
	if opts.HTTPClient != nil {
		client = *opts.HTTPClient
	}
	client.Transport = NewAuthorizer(AuthorizerOptions{
		Base:        client.Transport,
		Credentials: g.store,
		OnReject:    g.reject,
		Logger:      logger,
	})
	g.client = &client

	api, err := opts.NewAPI(g.client)
	if err != nil {
		return nil, fmt.Errorf("build identity API: %w", err)
	}
	g.api = api
	return g, nil
}

// HTTPClient returns the authorized client. Business API wrappers must use it
// so their calls carry the credential and trigger invalidation on rejection.
func (g *SessionGateway) HTTPClient() *http.Client { return g.client }

// Login exchanges credentials for a session. A business failure leaves any
// existing session untouched. A login overtaken by a sign-out returns ErrSuperseded.
func (g *SessionGateway) Login(ctx context.Context, username, password string) (LoginResult, error) {
	generation := g.store.Generation()

	reply, err := g.api.Login(ctx, username, password)
	if err != nil {
		return LoginResult{}, fmt.Errorf("login: %w", err)
	}
	if !reply.Success {
		g.logger.InfoContext(ctx, "login rejected", "actor", username, "message", reply.Message)
		return LoginResult{Result: Result{Message: reply.Message}}, nil
	}
	if err := ctx.Err(); err != nil {
		return LoginResult{}, fmt.Errorf("login: %w", err)
	}

	if err := g.store.SaveIfGeneration(ctx, generation, reply.Token, reply.Identity); err != nil {
		if errors.Is(err, ErrSuperseded) {
			g.logger.InfoContext(ctx, "discarding login completed after sign-out", "actor", reply.Identity.ActorID)
		}
		return LoginResult{}, fmt.Errorf("login: %w", err)
	}

	g.logger.InfoContext(ctx, "login succeeded",
		"actor", reply.Identity.ActorID,
		"role", string(reply.Identity.Role),
		"expires_in", reply.ExpiresIn,
	)
	return LoginResult{
		Result:   Result{Success: true, Message: reply.Message},
		Identity: reply.Identity,
	}, nil
}

// Logout revokes the session on the server when one exists and always clears
// the local session. Server failures are logged and never returned.
func (g *SessionGateway) Logout(ctx context.Context) error {
	if _, ok := g.store.ReadCredential(); ok {
		reply, err := g.api.Logout(ctx)
		switch {
		case err != nil:
			g.logger.WarnContext(ctx, "server logout failed", "error", err)
		case !reply.Success:
			g.logger.WarnContext(ctx, "server logout rejected", "message", reply.Message)
		}
	}

	// The local clear must happen even when the caller gave up waiting.
	if err := g.store.Clear(context.WithoutCancel(ctx)); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	g.logger.InfoContext(ctx, "signed out")
	return nil
}

// Validate asks the server whether the stored credential is still valid and
// refreshes the cached identity when it is. Concurrent calls share one request;
// the shared request is bounded by the client timeout, not by any one caller,
// and a caller whose ctx ends stops waiting without affecting the others.
func (g *SessionGateway) Validate(ctx context.Context) (Validation, error) {
	ch := g.validations.DoChan("validate", func() (any, error) {
		return g.validate(context.WithoutCancel(ctx))
	})
	select {
	case <-ctx.Done():
		return Validation{}, fmt.Errorf("validate: %w", ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return Validation{}, res.Err
		}
		return res.Val.(Validation), nil
	}
}

func (g *SessionGateway) validate(ctx context.Context) (Validation, error) {
	cred, ok := g.store.ReadCredential()
	if !ok {
		return Validation{Message: "no active session"}, nil
	}

	reply, err := g.api.Validate(ctx)
	if err != nil {
		return Validation{}, fmt.Errorf("validate: %w", err)
	}
	if !reply.Success || !reply.Valid {
		return Validation{Message: reply.Message}, nil
	}

	if current, has := g.store.ReadIdentity(); has && current != reply.Identity && reply.Identity.ActorID != "" {
		replaced, err := g.store.ReplaceIdentity(ctx, cred, reply.Identity)
		if err != nil {
			return Validation{}, fmt.Errorf("validate: %w", err)
		}
		if replaced {
			g.logger.InfoContext(ctx, "identity refreshed",
				"actor", reply.Identity.ActorID,
				"role", string(reply.Identity.Role),
			)
		}
	}
	return Validation{Valid: true, Identity: reply.Identity, Message: reply.Message}, nil
}

// ResetPassword sets a new password for username. No session is established.
func (g *SessionGateway) ResetPassword(ctx context.Context, username, newPassword string) (Result, error) {
	reply, err := g.api.ResetPassword(ctx, username, newPassword)
	if err != nil {
		return Result{}, fmt.Errorf("reset password: %w", err)
	}
	return Result{Success: reply.Success, Message: reply.Message}, nil
}

// FetchSelf returns the server's record for the signed-in actor.
func (g *SessionGateway) FetchSelf(ctx context.Context) (SelfResult, error) {
	reply, err := g.api.Me(ctx)
	if err != nil {
		return SelfResult{}, fmt.Errorf("fetch self: %w", err)
	}
	return SelfResult{
		Result: Result{Success: reply.Success, Message: reply.Message},
		Self:   reply.Self,
	}, nil
}

// reject applies the invalidation policy for one rejected response. Rejections
// of a credential that is no longer current are ignored.
func (g *SessionGateway) reject(ctx context.Context, sent domainauth.Credential, requestPath string) {
	applies, err := g.store.ClearIfCurrent(context.WithoutCancel(ctx), sent)
	if err != nil {
		g.logger.ErrorContext(ctx, "clear rejected session", "error", err)
	}
	if !applies {
		g.logger.DebugContext(ctx, "ignoring rejection of superseded credential", "path", requestPath)
		return
	}

	g.logger.InfoContext(ctx, "session expired", "path", requestPath)
	if g.onExpired != nil {
		g.onExpired.SessionExpired(ctx, requestPath)
	}
}
