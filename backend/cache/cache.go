package cache

import (
	"context"
	"time"

	"github.com/goccy/go-json"
)

// Default TTLs per cached read, in seconds.
const (
	TTLCourseList      = 600
	TTLCourseDetails   = 600
	TTLModules         = 600
	TTLLessons         = 600
	TTLProfile         = 600
	TTLMyRequests      = 600
	TTLRecommendations = 600
	TTLSession         = 1800
	TTLUserGroups      = 3600
)

// Store is the key-value backend behind the Accessor.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, val []byte, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	DelPrefix(ctx context.Context, prefix string) (int, error)
	Ping(ctx context.Context) error
	Close() error
}

// Value is a cached payload as it was stored.
type Value struct {
	raw []byte
}

func (v Value) Raw() []byte { return v.raw }

func (v Value) Decode(dst interface{}) error {
	return json.Unmarshal(v.raw, dst)
}

// Any returns the decoded JSON document, or the stored text when it is not JSON.
func (v Value) Any() interface{} {
	var out interface{}
	if err := json.Unmarshal(v.raw, &out); err != nil {
		return string(v.raw)
	}
	return out
}

// Accessor serializes values as JSON text over a Store.
// Every method returns its error so callers decide whether a cache failure matters.
type Accessor struct {
	store      Store
	defaultTTL time.Duration
}

func NewAccessor(store Store, defaultTTLSeconds int) *Accessor {
	if defaultTTLSeconds <= 0 {
		defaultTTLSeconds = 3600
	}
	return &Accessor{store: store, defaultTTL: time.Duration(defaultTTLSeconds) * time.Second}
}

func (a *Accessor) Get(ctx context.Context, key string) (Value, bool, error) {
	b, ok, err := a.store.Get(ctx, key)
	if err != nil || !ok {
		return Value{}, false, err
	}
	return Value{raw: b}, true, nil
}

// Set stores v under key; []byte values are stored verbatim. ttlSeconds <= 0 uses the default TTL.
func (a *Accessor) Set(ctx context.Context, key string, v interface{}, ttlSeconds int) error {
	var (
		b   []byte
		err error
	)
	switch val := v.(type) {
	case []byte:
		b = val
	case string:
		b = []byte(val)
	default:
		b, err = json.Marshal(v)
		if err != nil {
			return err
		}
	}
	ttl := a.defaultTTL
	if ttlSeconds > 0 {
		ttl = time.Duration(ttlSeconds) * time.Second
	}
	return a.store.Set(ctx, key, b, ttl)
}

// Delete removes keys; absent keys are not an error.
func (a *Accessor) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return a.store.Del(ctx, keys...)
}

// DeleteByPrefix drops every key starting with prefix.
func (a *Accessor) DeleteByPrefix(ctx context.Context, prefix string) error {
	_, err := a.store.DelPrefix(ctx, prefix)
	return err
}

func (a *Accessor) Close() error { return a.store.Close() }
