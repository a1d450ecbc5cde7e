package cli

import (
	"context"
	"fmt"

	"github.com/jrsteele09/cmp-client/apiclient"
	"github.com/jrsteele09/cmp-client/guard"
	"github.com/jrsteele09/cmp-client/internal/config"
	"github.com/jrsteele09/cmp-client/session"
	"github.com/jrsteele09/cmp-client/storage"
	"github.com/rs/zerolog"
)

// App wires the session, its storage, the API clients and the navigator for one invocation.
type App struct {
	Config    config.Config
	Repo      storage.Repo
	Session   *session.Store
	API       *apiclient.Client
	Navigator *guard.Navigator
	Logger    zerolog.Logger
}

// OpenApp builds the object graph and reconciles a rehydrated session.
//
// The auth client is built without a token source because login and signup
// run before any token exists; the general client reads the store's token on
// every request.
func OpenApp(ctx context.Context, cfg config.Config, logger zerolog.Logger) (*App, error) {
	repo, err := storage.Open(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("[cli OpenApp] opening %s storage: %w", cfg.GetStorageKind(), err)
	}

	authClient := apiclient.New(cfg, apiclient.WithLogger(logger))
	store, err := session.New(ctx, repo, authClient, session.WithLogger(logger))
	if err != nil {
		_ = repo.Close()
		return nil, fmt.Errorf("[cli OpenApp] %w", err)
	}

	navigator := guard.NewNavigator(guard.MustTable(guard.DefaultRoutes()), store, guard.WithLogger(logger))
	store.SetObserver(navigator)

	app := &App{
		Config:    cfg,
		Repo:      repo,
		Session:   store,
		API:       apiclient.New(cfg, apiclient.WithTokenSource(store), apiclient.WithLogger(logger)),
		Navigator: navigator,
		Logger:    logger,
	}

	store.InitializeAuth(ctx)
	return app, nil
}

func (a *App) Close() error {
	return a.Repo.Close()
}
