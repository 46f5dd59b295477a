// Package session owns the client's durable authentication state: the access
// token, refresh token, and serialized user snapshot. Stores persist the
// three keys independently; the manager layers atomic session semantics and
// change notification on top.
package session

import (
	"context"
	"errors"
)

// Persisted key names. Each is independently readable and writable.
const (
	KeyAccessToken  = "access_token"
	KeyRefreshToken = "refresh_token"
	KeyUser         = "user"
)

// ErrKeyMissing is returned when a key has never been written or was cleared.
var ErrKeyMissing = errors.New("session: key missing")

// Store is a durable string key-value store for session fields.
type Store interface {
	Set(ctx context.Context, key, value string) error
	Get(ctx context.Context, key string) (string, error)
	Delete(ctx context.Context, keys ...string) error
}
