// Package storage provides the opaque JSON key-value store the storefront
// persists its state into. Writes are best-effort from the caller's point of
// view: a failed write never invalidates in-memory state.
package storage

import (
	"context"

	"github.com/go-faster/errors"
)

// ErrNotFound is returned by Get when the key has never been written.
var ErrNotFound = errors.New("key not found")

// Store is a flat key-value store holding JSON-serialized values.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// prefixed namespaces every key of an underlying store.
type prefixed struct {
	inner  Store
	prefix string
}

// WithPrefix returns a view of store where every key is prepended with
// prefix. Used to give each session its own keyspace.
func WithPrefix(store Store, prefix string) Store {
	return &prefixed{inner: store, prefix: prefix}
}

func (p *prefixed) Get(ctx context.Context, key string) ([]byte, error) {
	return p.inner.Get(ctx, p.prefix+key)
}

func (p *prefixed) Set(ctx context.Context, key string, value []byte) error {
	return p.inner.Set(ctx, p.prefix+key, value)
}

func (p *prefixed) Delete(ctx context.Context, key string) error {
	return p.inner.Delete(ctx, p.prefix+key)
}
