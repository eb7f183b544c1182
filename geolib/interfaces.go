package geolib

import (
	"context"
	"net"
	"net/http"
	"time"
)

// TextGeocoder resolves textual address query into coordinates.
// serviceURL can be empty; in that case a default one is used.
type TextGeocoder interface {
	Geocode(ctx context.Context, serviceURL, query string) (GeocodeResponse, error)
}

// IPGeolocator resolves IP address into location.
type IPGeolocator interface {
	Name() string
	Geolocate(ctx context.Context, ip net.IP) (IPLocation, error)
}

// BackingStore persists serialized snapshots of visitor and robot logs
// between requests and processes. Load has to return ErrNoData if
// nothing is stored. Implementations without TTL support ignore ttl.
type BackingStore interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Store(ctx context.Context, key string, data []byte, ttl time.Duration) error
}

// HTTPClient is an interface for HTTP clients used by collaborators.
type HTTPClient interface {
	Do(*http.Request) (*http.Response, error)
}

type Logger interface {
	LookupError(ip net.IP, name string, err error)
	GeocodeError(query string, err error)
	StoreError(key string, err error)
	RobotDetected(ip net.IP, userAgent string)
}
