package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/aussiebroadwan/dhadmin/internal/credstore"
	"github.com/aussiebroadwan/dhadmin/pkg/adminsdk"
	"github.com/aussiebroadwan/dhadmin/pkg/httpx"
	"github.com/aussiebroadwan/dhadmin/pkg/slogx"
	evbus "github.com/asaskevich/EventBus"
)

// BuildVersion is overridden at build time via -ldflags.
var BuildVersion = "dev"

// Application holds everything a dhadmin command needs: the logger, the
// credential store and a session against the admin API.
type Application struct {
	cfg    Config
	logger *slog.Logger
	bus    evbus.Bus

	store   credstore.Store
	client  *adminsdk.SDKClient
	session *adminsdk.Session
}

// New opens the credential store and builds the API session.
func New(ctx context.Context, cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "dhadmin",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
			Output:  cfg.LogOutput,
		}),
		bus: newBus(),
	}

	if err := app.initStore(ctx); err != nil {
		return nil, err
	}
	app.initClient()

	return app, nil
}

func (app *Application) initStore(ctx context.Context) error {
	store, err := credstore.New(ctx, app.cfg.StoreConfig())
	if err != nil {
		return fmt.Errorf("failed to open credential store: %w", err)
	}
	app.store = store

	app.logger.Debug("credential store ready", "driver", app.cfg.StoreDriver)
	return nil
}

func (app *Application) initClient() {
	transport := httpx.ChainTransport(http.DefaultTransport,
		func(next http.RoundTripper) http.RoundTripper { return slogx.Transport(next, app.logger) },
		func(next http.RoundTripper) http.RoundTripper { return httpx.RateLimitTransport(next, app.cfg.RateLimit) },
	)

	app.client = adminsdk.NewSDKClient(app.cfg.APIURL)
	app.client.UserAgent = "dhadmin/" + BuildVersion
	app.client.HTTPClient = &http.Client{
		Timeout:   app.cfg.HTTPTimeout,
		Transport: transport,
	}

	app.session = app.client.NewSession(app.store, adminsdk.SessionOptions{
		RefreshTimeout: app.cfg.RefreshTimeout,
		OnSignOut: func(ctx context.Context, cause error) {
			app.publishSessionExpired(cause)
		},
	})
}

// Context returns ctx carrying the application logger.
func (app *Application) Context(ctx context.Context) context.Context {
	return slogx.WithContext(ctx, app.logger)
}

// SignIn authenticates with email and password and stores the credentials.
func (app *Application) SignIn(ctx context.Context, email, password string) (*adminsdk.Principal, error) {
	resp, err := app.client.SignIn(ctx, email, password)
	if err != nil {
		return nil, err
	}
	if err := app.store.Save(ctx, resp.Credentials()); err != nil {
		return nil, fmt.Errorf("failed to store credentials: %w", err)
	}

	app.logger.Info("signed in", "admin_id", resp.Admin.ID)
	admin := resp.Admin
	return &admin, nil
}

func (app *Application) Config() Config               { return app.cfg }
func (app *Application) Logger() *slog.Logger         { return app.logger }
func (app *Application) Store() credstore.Store       { return app.store }
func (app *Application) Session() *adminsdk.Session   { return app.session }
func (app *Application) Client() *adminsdk.SDKClient { return app.client }

// Close releases the credential store.
func (app *Application) Close() error {
	if err := app.store.Close(); err != nil {
		app.logger.Error("error closing credential store", "error", err)
		return err
	}
	return nil
}
