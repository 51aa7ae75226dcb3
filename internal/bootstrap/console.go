package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/target/forest-console/config"
	"github.com/target/forest-console/internal/adapters/identityapi"
	"github.com/target/forest-console/internal/console"
	"github.com/target/forest-console/internal/ports"
	"github.com/target/forest-console/internal/router"
	"github.com/target/forest-console/internal/service"
)

// ConsoleOptions contains what BuildConsole needs. Storage and HTTPClient are
// optional overrides; when nil they are built from Config.
type ConsoleOptions struct {
	Config     config.AppConfig
	Logger     *slog.Logger
	Storage    ports.SlotStorage
	HTTPClient *http.Client
	Routes     []router.Route
}

// ConsoleApp is the assembled console: session, gateway, router and guard.
type ConsoleApp struct {
	Session *service.Session
	Gateway *service.SessionGateway
	Console *console.Console
	API     *identityapi.Client

	logger *slog.Logger
}

// BuildConsole wires the session core and initializes the session.
func BuildConsole(ctx context.Context, opts ConsoleOptions) (*ConsoleApp, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	cfg := opts.Config

	storage := opts.Storage
	if storage == nil {
		var err error
		storage, err = BuildStorage(ctx, StorageConfig{Storage: cfg.Storage, Redis: cfg.Redis, Logger: logger})
		if err != nil {
			return nil, fmt.Errorf("build storage: %w", err)
		}
	}

	sess, err := service.NewSession(service.SessionOptions{
		Storage: storage,
		Slots:   service.SlotNames{Credential: cfg.Storage.TokenSlot, Identity: cfg.Storage.IdentitySlot},
		Logger:  logger,
	})
	if err != nil {
		return nil, err
	}

	app, err := assemble(sess, opts, logger)
	if err != nil {
		return nil, errors.Join(err, sess.Teardown(ctx))
	}
	if err := sess.Initialize(ctx); err != nil {
		return nil, errors.Join(err, sess.Teardown(ctx))
	}
	return app, nil
}

func assemble(sess *service.Session, opts ConsoleOptions, logger *slog.Logger) (*ConsoleApp, error) {
	cfg := opts.Config

	routes := opts.Routes
	if routes == nil {
		var err error
		if routes, err = console.DefaultRoutes(); err != nil {
			return nil, err
		}
	}
	rt, err := router.New(router.Options{
		Routes:      routes,
		LoginPath:   cfg.Routes.LoginPath,
		DefaultPath: cfg.Routes.DefaultPath,
		Logger:      logger,
	})
	if err != nil {
		return nil, fmt.Errorf("build router: %w", err)
	}

	con, err := console.New(console.Options{
		Router: rt,
		Guard:  service.NewNavigationGuard(service.NavigationGuardOptions{State: sess.Oracle(), Logger: logger}),
		Logger: logger,
	})
	if err != nil {
		return nil, err
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		if httpClient, err = identityapi.NewHTTPClient(cfg.API.Timeout); err != nil {
			return nil, err
		}
	}

	var api *identityapi.Client
	gw, err := service.NewSessionGateway(service.SessionGatewayOptions{
		Session:    sess,
		HTTPClient: httpClient,
		NewAPI: func(hc *http.Client) (ports.IdentityAPI, error) {
			c, err := identityapi.NewClient(identityapi.ClientOptions{
				BaseURL:    cfg.API.BaseURL,
				HTTPClient: hc,
				Logger:     logger,
			})
			api = c
			return c, err
		},
		OnExpired: con,
		Logger:    logger,
	})
	if err != nil {
		return nil, fmt.Errorf("build session gateway: %w", err)
	}

	return &ConsoleApp{Session: sess, Gateway: gw, Console: con, API: api, logger: logger}, nil
}

// Close tears down the session and releases the storage.
func (a *ConsoleApp) Close(ctx context.Context) error {
	return a.Session.Teardown(ctx)
}
