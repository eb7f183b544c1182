package stores

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/9seconds/whereabouts/geolib"
)

type memoryStore struct {
	cache *cache.Cache
}

func (m memoryStore) Load(_ context.Context, key string) ([]byte, error) {
	value, ok := m.cache.Get(key)
	if !ok {
		return nil, geolib.ErrNoData
	}

	data := value.([]byte)
	rv := make([]byte, len(data))

	copy(rv, data)

	return rv, nil
}

func (m memoryStore) Store(_ context.Context, key string, data []byte, ttl time.Duration) error {
	value := make([]byte, len(data))

	copy(value, data)

	if ttl <= 0 {
		ttl = cache.NoExpiration
	}

	m.cache.Set(key, value, ttl)

	return nil
}

// NewMemory returns an in-process backing store which is shared by all
// users of the same instance.
func NewMemory(cleanupInterval time.Duration) geolib.BackingStore {
	return memoryStore{
		cache: cache.New(cache.NoExpiration, cleanupInterval),
	}
}
