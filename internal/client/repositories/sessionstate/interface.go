// Package sessionstate persists the small amount of state the client keeps
// between runs: the refresh token and the identity it belongs to.
package sessionstate

import "context"

// Well-known keys.
const (
	KeyRefreshToken = "refresh_token"
	KeyIdentity     = "identity"
)

type Repository interface {
	// Get returns ok=false when the key has never been stored.
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Put(ctx context.Context, key, value string) error
	// PutMany stores all pairs or none of them.
	PutMany(ctx context.Context, values map[string]string) error
	Clear(ctx context.Context) error
}
