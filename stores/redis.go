package stores

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/9seconds/whereabouts/geolib"
)

type redisStore struct {
	client    redis.UniversalClient
	keyPrefix string
}

func (r redisStore) Load(ctx context.Context, key string) ([]byte, error) {
	data, err := r.client.Get(ctx, r.keyPrefix+key).Bytes()

	switch {
	case errors.Is(err, redis.Nil):
		return nil, geolib.ErrNoData
	case err != nil:
		return nil, fmt.Errorf("cannot get %s from redis: %w", key, err)
	}

	return data, nil
}

func (r redisStore) Store(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	if err := r.client.Set(ctx, r.keyPrefix+key, data, ttl).Err(); err != nil {
		return fmt.Errorf("cannot set %s to redis: %w", key, err)
	}

	return nil
}

// NewRedis returns a backing store on top of redis. All keys are
// prefixed with keyPrefix.
func NewRedis(client redis.UniversalClient, keyPrefix string) geolib.BackingStore {
	return redisStore{
		client:    client,
		keyPrefix: keyPrefix,
	}
}
