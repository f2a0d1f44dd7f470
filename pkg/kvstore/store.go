package kvstore

import (
	"context"
	"errors"

	jsoniter "github.com/json-iterator/go"
)

var ErrNotFound = errors.New("kvstore: key not found")

// Store is the local persistence used for the capped feedback lists and the
// offline queue. Values are opaque JSON documents.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Remove(ctx context.Context, key string) error
}

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// GetJSON decodes key into dest. A missing key leaves dest untouched and returns false.
func GetJSON(ctx context.Context, s Store, key string, dest interface{}) (bool, error) {
	raw, err := s.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if len(raw) == 0 {
		return false, nil
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return false, err
	}
	return true, nil
}

func SetJSON(ctx context.Context, s Store, key string, value interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return s.Set(ctx, key, raw)
}

type prefixed struct {
	inner  Store
	prefix string
}

// WithPrefix namespaces every key, e.g. per authenticated user.
func WithPrefix(s Store, prefix string) Store {
	return &prefixed{inner: s, prefix: prefix}
}

func (p *prefixed) Get(ctx context.Context, key string) ([]byte, error) {
	return p.inner.Get(ctx, p.prefix+key)
}

func (p *prefixed) Set(ctx context.Context, key string, value []byte) error {
	return p.inner.Set(ctx, p.prefix+key, value)
}

func (p *prefixed) Remove(ctx context.Context, key string) error {
	return p.inner.Remove(ctx, p.prefix+key)
}
