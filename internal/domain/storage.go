package domain

import "context"

// Durable storage keys. Nothing else is persisted.
const (
	StorageKeyUserToken = "twitchUserToken"
	StorageKeyUserData  = "twitchUserData"
)

// KeyValueStore is durable string storage for the user session.
// Get returns ErrKeyNotFound when the key is absent. Delete of a missing key is not an error.
type KeyValueStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, keys ...string) error
}
