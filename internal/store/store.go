// Package store provides the string key-value persistence layer backing the
// environment manager: a file-backed store for durable state and an in-memory
// store for temporary sessions and tests.
package store

import (
	"context"
	"errors"
)

// ErrKeyNotFound is returned by Get when no value exists under the key.
var ErrKeyNotFound = errors.New("key not found")

// Store is a string-keyed key-value store. Within one process session a Get
// following a successful Set returns the written value. Delete of an absent
// key is not an error.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	Keys(ctx context.Context) ([]string, error)
}
