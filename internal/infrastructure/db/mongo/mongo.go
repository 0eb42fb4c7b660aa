package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	defaultTimeout  = 10 * time.Second
	defaultDatabase = "shopchat"
	appName         = "shopchat"
	maxPoolSize     = 2
)

// Config selects the database that holds the credentials collection and
// the profile document inside it.
type Config struct {
	URI      string
	Database string
	Profile  string
	Timeout  time.Duration
}

// Open connects to MongoDB and returns a credential store plus a function
// that disconnects the client.
func Open(ctx context.Context, cfg Config) (*CredentialStore, func(context.Context) error, error) {
	client, db, err := Connect(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	return NewCredentialStore(db, cfg.Profile), client.Disconnect, nil
}

// Connect establishes a client, verifies it with a ping and returns the
// credential database.
func Connect(ctx context.Context, cfg Config) (*mongo.Client, *mongo.Database, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	connectCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, clientOptions(cfg.URI, timeout))
	if err != nil {
		return nil, nil, fmt.Errorf("mongo connect: %w", err)
	}

	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(connectCtx)
		return nil, nil, fmt.Errorf("mongo credential store: %w", err)
	}

	return client, client.Database(databaseName(cfg.Database)), nil
}

func clientOptions(uri string, timeout time.Duration) *options.ClientOptions {
	return options.Client().
		ApplyURI(uri).
		SetAppName(appName).
		SetMaxPoolSize(maxPoolSize).
		SetServerSelectionTimeout(timeout)
}

func databaseName(name string) string {
	if name == "" {
		return defaultDatabase
	}
	return name
}
