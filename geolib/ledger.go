package geolib

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"
)

// boundedLedger keeps a recencyMap in sync with a backing store. Each
// mutation is a load-modify-store transaction under a single mutex, so
// concurrent writers of the same instance can not overwrite an eviction
// of each other.
type boundedLedger[V any] struct {
	mutex    sync.Mutex
	key      string
	ttl      time.Duration
	capacity int
	backend  BackingStore
	logger   Logger
	entries  *recencyMap[V]
	loaded   bool
}

func (b *boundedLedger[V]) Enabled() bool {
	return b.capacity > 0
}

func (b *boundedLedger[V]) EnsureLoaded(ctx context.Context) {
	if !b.Enabled() {
		return
	}

	b.mutex.Lock()
	defer b.mutex.Unlock()

	if !b.loaded {
		b.load(ctx)
	}
}

func (b *boundedLedger[V]) Get(ctx context.Context, key string) (V, bool) {
	var empty V

	if !b.Enabled() {
		return empty, false
	}

	b.mutex.Lock()
	defer b.mutex.Unlock()

	if !b.loaded {
		b.load(ctx)
	}

	return b.entries.Get(key)
}

func (b *boundedLedger[V]) Touch(ctx context.Context, key string, value V, preserve bool) (V, error) {
	if !b.Enabled() {
		return value, nil
	}

	b.mutex.Lock()
	defer b.mutex.Unlock()

	b.load(ctx)

	value = b.entries.Touch(key, value, preserve)

	return value, b.persist(ctx)
}

func (b *boundedLedger[V]) Remove(ctx context.Context, key string) error {
	if !b.Enabled() {
		return nil
	}

	b.mutex.Lock()
	defer b.mutex.Unlock()

	b.load(ctx)

	if !b.entries.Remove(key) {
		return nil
	}

	return b.persist(ctx)
}

func (b *boundedLedger[V]) Entries(ctx context.Context, limit int) []recencyEntry[V] {
	if !b.Enabled() {
		return nil
	}

	b.mutex.Lock()
	defer b.mutex.Unlock()

	if !b.loaded {
		b.load(ctx)
	}

	return b.entries.Entries(limit)
}

// load has to be called under the mutex. If backing store is not
// available, current in-memory snapshot is kept as is.
func (b *boundedLedger[V]) load(ctx context.Context) {
	data, err := b.backend.Load(ctx, b.key)

	switch {
	case errors.Is(err, ErrNoData):
		if !b.loaded {
			b.entries.Replace(nil)
		}
	case err != nil:
		b.logger.StoreError(b.key, err)
	default:
		snapshot := []recencyEntry[V]{}

		if err := json.Unmarshal(data, &snapshot); err != nil {
			b.logger.StoreError(b.key, fmt.Errorf("cannot decode a snapshot: %w", err))
		} else {
			b.entries.Replace(snapshot)
		}
	}

	b.loaded = true
}

func (b *boundedLedger[V]) persist(ctx context.Context) error {
	data, err := json.Marshal(b.entries.Entries(0))
	if err != nil {
		return fmt.Errorf("cannot encode a snapshot: %w", err)
	}

	if err := b.backend.Store(ctx, b.key, data, b.ttl); err != nil {
		b.logger.StoreError(b.key, err)

		return fmt.Errorf("cannot store a snapshot %s: %w", b.key, err)
	}

	return nil
}

func newBoundedLedger[V any](key string,
	capacity int,
	ttl time.Duration,
	backend BackingStore,
	logger Logger) *boundedLedger[V] {
	rv := &boundedLedger[V]{
		key:      key,
		ttl:      ttl,
		capacity: capacity,
		backend:  backend,
		logger:   logger,
	}

	if capacity > 0 {
		rv.entries = newRecencyMap[V](capacity)
	}

	return rv
}
