package storage

import "context"

// Keys under which the session is persisted. The names match the ones the web
// console used so a record can be inspected with the same vocabulary.
const (
	KeyToken           = "token"
	KeyRefreshToken    = "refreshToken"
	KeyIsAuthenticated = "isAuthenticated"
	KeyUser            = "user"
)

// SessionKeys lists every key the session writes.
var SessionKeys = []string{KeyToken, KeyRefreshToken, KeyIsAuthenticated, KeyUser}

// Repo is durable string key-value storage.
// Get returns errors.ErrNotFound for an absent key. Delete of an absent key is not an error.
type Repo interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	Close() error
}
