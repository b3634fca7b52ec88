package kv

import (
	"context"
	"errors"
)

// ErrStoreClosed is returned when an operation is attempted on a closed store.
var ErrStoreClosed = errors.New("kv store closed")

// ErrStoreUnavailable wraps backend failures (network, disk, driver).
var ErrStoreUnavailable = errors.New("kv store unavailable")

// Store is the durable key-value contract shared by the session store and the
// request pipeline. A missing key is reported as ("", false, nil), never as an
// error. Remove on a missing key is a no-op.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
	Close() error
}
