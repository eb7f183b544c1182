package providers

import (
	"context"
	"net"
	"time"

	"github.com/dgraph-io/ristretto"

	"github.com/9seconds/whereabouts/geolib"
)

type cachingGeolocator struct {
	geolib.IPGeolocator

	cache *ristretto.Cache
	ttl   time.Duration
}

func (c cachingGeolocator) Geolocate(ctx context.Context, ip net.IP) (geolib.IPLocation, error) {
	cacheKey := ip.String()

	value, ok := c.cache.Get(cacheKey)
	if ok {
		return value.(geolib.IPLocation), nil
	}

	result, err := c.IPGeolocator.Geolocate(ctx, ip)
	if err != nil {
		return geolib.IPLocation{}, err
	}

	c.cache.SetWithTTL(cacheKey, result, 1, c.ttl)

	return result, nil
}

// NewCachingGeolocator memoizes successful results of a geolocator for
// ttl. It keeps up to itemsCount results.
func NewCachingGeolocator(geolocator geolib.IPGeolocator, itemsCount uint, ttl time.Duration) geolib.IPGeolocator {
	cacheConfig := &ristretto.Config{
		MaxCost:     int64(itemsCount),
		NumCounters: 10 * int64(itemsCount),
		Metrics:     false,
		BufferItems: 64,
	}

	cache, err := ristretto.NewCache(cacheConfig)
	if err != nil {
		panic(err)
	}

	return cachingGeolocator{
		IPGeolocator: geolocator,
		cache:        cache,
		ttl:          ttl,
	}
}
