// Package storage provides the scoped key-value stores that mirror the
// in-memory session state. Two scopes exist at runtime: a persistent one
// (sqlite file, survives restarts) and a session-bound one (redis with a
// TTL, shared by processes of the same terminal session).
package storage

import "context"

// Well-known keys of the session mirror.
const (
	KeyUserInfo    = "userInfo"
	KeyLoginStatus = "loginStatus"
)

// Storage is a narrow key-value store for one scope of the session mirror.
// Get returns (nil, nil) when the key is absent or expired.
type Storage interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
}
