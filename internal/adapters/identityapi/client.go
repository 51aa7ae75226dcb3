package identityapi

// Package identityapi is the HTTP adapter for the forest-management identity service.
// It speaks the {success, message, data} envelope and maps responses onto ports replies.

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	jmespath "github.com/jmespath-community/go-jmespath"
	domainauth "github.com/target/forest-console/internal/domain/auth"
	"github.com/target/forest-console/internal/ports"
	"golang.org/x/net/publicsuffix"
)

const (
	// DefaultTimeout matches the console's historical request timeout.
	DefaultTimeout = 10 * time.Second

	maxBodyBytes = 1 << 20

	// identityExpr projects the actor identity out of a response payload.
	// Older server builds send username instead of actorId.
	identityExpr = "{actorId: actorId || username, role: role}"
)

var _ ports.IdentityAPI = (*Client)(nil)

// Fallback messages used when the server reports a failure without one.
const (
	msgLoginFailed    = "登录失败"
	msgLogoutFailed   = "登出失败"
	msgResetFailed    = "密码重置失败"
	msgValidateFailed = "Token验证失败"
	msgMeFailed       = "获取用户信息失败"
)

// TransportError reports a call that produced no usable envelope:
// the network failed, the status was unexpected or the body was malformed.
type TransportError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: unexpected status %d: %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ClientOptions groups dependencies for Client.
type ClientOptions struct {
	// BaseURL is the API root, e.g. http://localhost:8080/api.
	BaseURL string
	// HTTPClient performs the calls. Callers pass the session-aware client so
	// credentials are attached and rejections are observed.
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Client calls the identity service endpoints.
type Client struct {
	base   *url.URL
	http   *http.Client
	logger *slog.Logger
}

// NewHTTPClient builds the base HTTP client for the console: a timeout and a
// cookie jar scoped by the public suffix list.
func NewHTTPClient(timeout time.Duration) (*http.Client, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}
	return &http.Client{
		Timeout:   timeout,
		Jar:       jar,
		Transport: http.DefaultTransport,
	}, nil
}

// NewClient constructs a Client.
func NewClient(opts ClientOptions) (*Client, error) {
	if strings.TrimSpace(opts.BaseURL) == "" {
		return nil, errors.New("base URL is required")
	}
	base, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base URL: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("base URL must be http or https: %q", opts.BaseURL)
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient, err = NewHTTPClient(DefaultTimeout)
		if err != nil {
			return nil, err
		}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{base: base, http: httpClient, logger: logger}, nil
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (e envelope) reply(fallback string) ports.Reply {
	msg := e.Message
	if !e.Success && msg == "" {
		msg = fallback
	}
	return ports.Reply{Success: e.Success, Message: msg}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type resetPasswordRequest struct {
	Username    string `json:"username"`
	NewPassword string `json:"newPassword"`
}

// Login calls POST /auth/login.
func (c *Client) Login(ctx context.Context, username, password string) (ports.LoginReply, error) {
	const op = "login"
	env, err := c.call(ctx, op, http.MethodPost, "/auth/login", loginRequest{Username: username, Password: password})
	if err != nil {
		return ports.LoginReply{}, err
	}
	out := ports.LoginReply{Reply: env.reply(msgLoginFailed)}
	if !env.Success {
		return out, nil
	}

	var data struct {
		Token     string `json:"token"`
		ExpiresIn int64  `json:"expiresIn"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return ports.LoginReply{}, &TransportError{Op: op, Err: fmt.Errorf("decode data: %w", err)}
	}
	if data.Token == "" {
		return ports.LoginReply{}, &TransportError{Op: op, Err: errors.New("response carries no token")}
	}
	identity, err := projectIdentity(env.Data)
	if err != nil {
		return ports.LoginReply{}, &TransportError{Op: op, Err: err}
	}

	out.Token = domainauth.Credential(data.Token)
	out.Identity = identity
	out.ExpiresIn = time.Duration(data.ExpiresIn) * time.Second
	return out, nil
}

// Logout calls POST /auth/logout.
func (c *Client) Logout(ctx context.Context) (ports.Reply, error) {
	env, err := c.call(ctx, "logout", http.MethodPost, "/auth/logout", struct{}{})
	if err != nil {
		return ports.Reply{}, err
	}
	return env.reply(msgLogoutFailed), nil
}

// Validate calls POST /auth/validate.
func (c *Client) Validate(ctx context.Context) (ports.ValidateReply, error) {
	const op = "validate"
	env, err := c.call(ctx, op, http.MethodPost, "/auth/validate", struct{}{})
	if err != nil {
		return ports.ValidateReply{}, err
	}
	out := ports.ValidateReply{Reply: env.reply(msgValidateFailed)}
	if !env.Success {
		return out, nil
	}

	var data struct {
		Valid bool `json:"valid"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return ports.ValidateReply{}, &TransportError{Op: op, Err: fmt.Errorf("decode data: %w", err)}
	}
	out.Valid = data.Valid
	if !data.Valid {
		return out, nil
	}
	identity, err := projectIdentity(env.Data)
	if err != nil {
		return ports.ValidateReply{}, &TransportError{Op: op, Err: err}
	}
	out.Identity = identity
	return out, nil
}

// ResetPassword calls POST /auth/reset-password.
func (c *Client) ResetPassword(ctx context.Context, username, newPassword string) (ports.Reply, error) {
	env, err := c.call(ctx, "reset-password", http.MethodPost, "/auth/reset-password",
		resetPasswordRequest{Username: username, NewPassword: newPassword})
	if err != nil {
		return ports.Reply{}, err
	}
	return env.reply(msgResetFailed), nil
}

// Me calls GET /auth/me.
func (c *Client) Me(ctx context.Context) (ports.SelfReply, error) {
	const op = "me"
	env, err := c.call(ctx, op, http.MethodGet, "/auth/me", nil)
	if err != nil {
		return ports.SelfReply{}, err
	}
	out := ports.SelfReply{Reply: env.reply(msgMeFailed)}
	if !env.Success {
		return out, nil
	}

	var self domainauth.SelfRecord
	if err := json.Unmarshal(env.Data, &self); err != nil {
		return ports.SelfReply{}, &TransportError{Op: op, Err: fmt.Errorf("decode data: %w", err)}
	}
	identity, err := projectIdentity(env.Data)
	if err != nil {
		return ports.SelfReply{}, &TransportError{Op: op, Err: err}
	}
	self.ActorID = identity.ActorID
	self.Role = identity.Role
	out.Self = self
	return out, nil
}

// Get performs a protected GET against any API path and decodes the envelope data into out.
// Business endpoints (trees, forest lands, permits) reuse it.
func (c *Client) Get(ctx context.Context, path string, out any) (ports.Reply, error) {
	env, err := c.call(ctx, "get "+path, http.MethodGet, path, nil)
	if err != nil {
		return ports.Reply{}, err
	}
	if env.Success && out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return ports.Reply{}, &TransportError{Op: "get " + path, Err: fmt.Errorf("decode data: %w", err)}
		}
	}
	return env.reply("请求失败"), nil
}

func (c *Client) call(ctx context.Context, op, method, path string, body any) (envelope, error) {
	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return envelope{}, fmt.Errorf("%s: build request: %w", op, err)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return envelope{}, fmt.Errorf("%s: %w", op, ctxErr)
		}
		return envelope{}, &TransportError{Op: op, Err: err}
	}
	defer func() {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		if cerr := resp.Body.Close(); cerr != nil {
			c.logger.DebugContext(ctx, "close response body", "op", op, "error", cerr)
		}
	}()

	c.logger.DebugContext(ctx, "identity call",
		slog.String("op", op),
		slog.Int("status", resp.StatusCode),
		slog.Duration("duration", time.Since(start)),
	)

	if resp.StatusCode == http.StatusUnauthorized {
		return envelope{}, fmt.Errorf("%s: %w", op, domainauth.ErrSessionExpired)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return envelope{}, &TransportError{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("read body: %w", err)}
	}

	var env envelope
	decodeErr := json.Unmarshal(raw, &env)

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if decodeErr != nil {
			return envelope{}, &TransportError{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("decode envelope: %w", decodeErr)}
		}
		return env, nil
	}

	// Non-2xx with an explicit failure message is a business rejection.
	if decodeErr == nil && !env.Success && env.Message != "" {
		return env, nil
	}
	if decodeErr == nil {
		decodeErr = errors.New(http.StatusText(resp.StatusCode))
	}
	return envelope{}, &TransportError{Op: op, StatusCode: resp.StatusCode, Err: decodeErr}
}

func (c *Client) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	u := *c.base
	u.Path = strings.TrimRight(c.base.Path, "/") + "/" + strings.TrimLeft(path, "/")

	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal body: %w", err)
		}
		rdr = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), rdr)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}

// projectIdentity extracts the actor identity from a payload.
func projectIdentity(data json.RawMessage) (domainauth.Identity, error) {
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return domainauth.Identity{}, fmt.Errorf("decode identity: %w", err)
	}
	res, err := jmespath.Search(identityExpr, doc)
	if err != nil {
		return domainauth.Identity{}, fmt.Errorf("project identity: %w", err)
	}
	m, ok := res.(map[string]any)
	if !ok {
		return domainauth.Identity{}, errors.New("response carries no identity")
	}
	actorID, _ := m["actorId"].(string)
	roleCode, _ := m["role"].(string)
	if actorID == "" {
		return domainauth.Identity{}, errors.New("response carries no actor id")
	}
	role, err := domainauth.ParseRole(roleCode)
	if err != nil {
		return domainauth.Identity{}, err
	}
	return domainauth.Identity{ActorID: actorID, Role: role}, nil
}
