// Package app assembles the client: transport, credential store, background
// task runner and the two session managers.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/shopassist/shopchat/internal/core/ports"
	"github.com/shopassist/shopchat/internal/core/service"
	"github.com/shopassist/shopchat/internal/infrastructure/credstore"
	mongostore "github.com/shopassist/shopchat/internal/infrastructure/db/mongo"
	redisstore "github.com/shopassist/shopchat/internal/infrastructure/db/redis"
	"github.com/shopassist/shopchat/internal/infrastructure/queue"
	"github.com/shopassist/shopchat/internal/infrastructure/remote"
	"github.com/shopassist/shopchat/internal/pkg/config"
)

const backgroundWorkers = 2

// App is a fully wired client.
type App struct {
	Auth   *service.AuthService
	Chat   *service.ConversationService
	Client *remote.Client
	Tasks  *queue.Dispatcher

	cancel  context.CancelFunc
	closers []func(context.Context) error
}

// New opens the configured credential store and wires the client around it.
func New(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*App, error) {
	store, closer, err := OpenStore(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	a := NewWithStore(cfg, store, log)
	if closer != nil {
		a.closers = append(a.closers, closer)
	}
	return a, nil
}

// NewWithStore wires the client around an already opened store.
func NewWithStore(cfg *config.Config, store ports.CredentialStore, log zerolog.Logger) *App {
	client := remote.NewClient(cfg.APIURL, cfg.Timeout, log)
	auth := service.NewAuthService(client, store, log)
	client.UseTokenSource(auth)

	tasks := queue.NewDispatcher(backgroundWorkers, cfg.Timeout, log)
	runCtx, cancel := context.WithCancel(context.Background())
	tasks.Start(runCtx)

	return &App{
		Auth:   auth,
		Chat:   service.NewConversationService(client, tasks, log),
		Client: client,
		Tasks:  tasks,
		cancel: cancel,
	}
}

// Logout drops the credential and points the conversation at a fresh draft.
func (a *App) Logout(ctx context.Context) {
	a.Auth.Logout(ctx)
	a.Chat.StartDraft()
}

// Close stops background work and releases the credential store.
func (a *App) Close(ctx context.Context) error {
	a.Tasks.Shutdown(a.cancel)
	var errs []error
	for _, c := range a.closers {
		if err := c(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// OpenStore returns the credential store selected by cfg and an optional
// function releasing its connection.
func OpenStore(ctx context.Context, cfg *config.Config, log zerolog.Logger) (ports.CredentialStore, func(context.Context) error, error) {
	switch cfg.Credentials.Store {
	case config.StoreRedis:
		store, closer, err := redisstore.Open(ctx, redisstore.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Prefix:   cfg.Redis.Prefix,
		})
		if err != nil {
			return nil, nil, err
		}
		log.Debug().Str("addr", cfg.Redis.Addr).Msg("using redis credential store")
		return store, closer, nil

	case config.StoreMongo:
		store, closer, err := mongostore.Open(ctx, mongostore.Config{
			URI:      cfg.Mongo.URI,
			Database: cfg.Mongo.Database,
			Profile:  cfg.Mongo.Profile,
		})
		if err != nil {
			return nil, nil, err
		}
		log.Debug().Str("database", cfg.Mongo.Database).Msg("using mongo credential store")
		return store, closer, nil

	case config.StoreFile, "":
		store, err := credstore.NewFileStore(cfg.Credentials.Path)
		if err != nil {
			return nil, nil, err
		}
		log.Debug().Str("path", store.Path()).Msg("using file credential store")
		return store, nil, nil

	default:
		return nil, nil, fmt.Errorf("unknown credential store %q", cfg.Credentials.Store)
	}
}
