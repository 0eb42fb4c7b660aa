package ports

import "context"

// CredentialStore is a durable string key-value store. Get returns "" with a
// nil error for a missing key.
type CredentialStore interface {
	Get(ctx context.Context, key string) (string, error)
	// SetMany writes all pairs or none of them.
	SetMany(ctx context.Context, values map[string]string) error
	Delete(ctx context.Context, keys ...string) error
}
