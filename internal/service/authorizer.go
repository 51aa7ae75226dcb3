package service

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	domainauth "github.com/target/forest-console/internal/domain/auth"
	"golang.org/x/oauth2"
)

// HeaderRequestID correlates console calls with server logs.
const HeaderRequestID = "X-Request-ID"

// CredentialReader exposes the current credential, if any.
type CredentialReader interface {
	ReadCredential() (domainauth.Credential, bool)
}

// RejectionFunc is invoked once for every authorization-rejected response.
// sent is the credential that was attached to the rejected request ("" if none).
type RejectionFunc func(ctx context.Context, sent domainauth.Credential, requestPath string)

// AuthorizerOptions groups dependencies for Authorizer.
type AuthorizerOptions struct {
	Base        http.RoundTripper
	Credentials CredentialReader
	OnReject    RejectionFunc
	Logger      *slog.Logger
}

// Authorizer decorates a transport so every outbound call carries the current
// credential and every 401 response runs the rejection policy before the
// caller sees it.
type Authorizer struct {
	base        http.RoundTripper
	credentials CredentialReader
	onReject    RejectionFunc
	logger      *slog.Logger
}

var _ http.RoundTripper = (*Authorizer)(nil)

// NewAuthorizer constructs an Authorizer. A nil Base uses http.DefaultTransport.
func NewAuthorizer(opts AuthorizerOptions) *Authorizer {
	base := opts.Base
	if base == nil {
		base = http.DefaultTransport
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Authorizer{
		base:        base,
		credentials: opts.Credentials,
		onReject:    opts.OnReject,
		logger:      logger,
	}
}

// RoundTrip implements http.RoundTripper.
func (a *Authorizer) RoundTrip(req *http.Request) (*http.Response, error) {
	// RoundTrippers must not mutate the caller's request.
	out := req.Clone(req.Context())

	if out.Header.Get(HeaderRequestID) == "" {
		out.Header.Set(HeaderRequestID, uuid.NewString())
	}

	var sent domainauth.Credential
	if a.credentials != nil {
		if cred, ok := a.credentials.ReadCredential(); ok {
			sent = cred
			tok := &oauth2.Token{AccessToken: string(cred), TokenType: "Bearer"}
			tok.SetAuthHeader(out)
		}
	}

	resp, err := a.base.RoundTrip(out)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusUnauthorized {
		a.logger.InfoContext(out.Context(), "authorization rejected",
			"path", out.URL.Path,
			"request_id", out.Header.Get(HeaderRequestID),
			"had_credential", sent != "",
		)
		if a.onReject != nil {
			a.onReject(out.Context(), sent, out.URL.Path)
		}
	}
	return resp, nil
}
