package geolib

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
)

const (
	DefaultWorkerPoolSize = 64

	workerPoolExpireTime = time.Minute
)

// ResolveOptions tunes a single Resolve call.
type ResolveOptions struct {
	// ReturnSimple allows a fallback to a simplified (city only) query
	// if full address was not geocoded.
	ReturnSimple bool

	// UseSessionCache memoizes results in Session. It does nothing if
	// Session is nil.
	UseSessionCache bool

	// ServiceURL overrides a base URL of geocoding service.
	ServiceURL string

	Session *Session

	// Traffic describes a requester. If nil, there is no requester: no
	// self IP and no robot/server gating.
	Traffic *TrafficRequest
}

func DefaultResolveOptions() ResolveOptions {
	return ResolveOptions{
		ReturnSimple:    true,
		UseSessionCache: true,
	}
}

type memoizedOutcome struct {
	location ResolvedLocation
	err      error
}

// LocationResolver is a waterfall which tries textual geocoding first
// and falls back to IP geolocation.
type LocationResolver struct {
	geocoder   TextGeocoder
	geolocator IPGeolocator
	visitors   *VisitorLocationStore
	traffic    *TrafficClassifier
	audit      *AuditLog
	logger     Logger
	stats      []*UsageStats
	rwmutex    sync.RWMutex
	closeOnce  sync.Once
	workerPool *ants.PoolWithFunc
	closed     bool
}

// Resolve returns a location for the input. Only 2 kinds of errors are
// possible: ErrNotFound (possibly joined with a cause) and
// *RateLimitedError. The latter carries a delay which caller has to
// respect.
func (l *LocationResolver) Resolve(ctx context.Context, input Input, opts ResolveOptions) (ResolvedLocation, error) {
	l.rwmutex.RLock()
	defer l.rwmutex.RUnlock()

	if l.closed {
		return ResolvedLocation{}, ErrResolverShutdown
	}

	return l.resolve(ctx, input, opts)
}

func (l *LocationResolver) resolve(ctx context.Context, input Input, opts ResolveOptions) (ResolvedLocation, error) {
	cacheKey := ""

	if opts.UseSessionCache && opts.Session != nil {
		cacheKey = input.cacheKey()

		if value, ok := opts.Session.Load(cacheKey); ok {
			outcome := value.(memoizedOutcome)

			return outcome.location, outcome.err
		}
	}

	var (
		location ResolvedLocation
		err      error
	)

	if input.Descriptor.HasTextualFields() {
		location, err = l.resolveText(ctx, input.Descriptor, opts)

		if _, rateLimited := IsRateLimited(err); err != nil && !rateLimited {
			if ip := l.chooseIP(input, opts); ip != "" {
				location, err = l.resolveIP(ctx, ip, opts)
			}
		}
	} else {
		ip := l.chooseIP(input, opts)

		if ip == "" {
			return ResolvedLocation{}, ErrNotFound
		}

		location, err = l.resolveIP(ctx, ip, opts)
	}

	if cacheKey != "" {
		opts.Session.Store(cacheKey, memoizedOutcome{location: location, err: err})
	}

	return location, err
}

func (l *LocationResolver) chooseIP(input Input, opts ResolveOptions) string {
	switch {
	case input.Descriptor == nil && net.ParseIP(input.IP) != nil:
		return input.IP
	case input.Descriptor != nil && input.Descriptor.IP != "":
		return input.Descriptor.IP
	case opts.Traffic != nil:
		return ipString(opts.Traffic.RemoteIP)
	}

	return ""
}

func (l *LocationResolver) resolveText(ctx context.Context,
	descriptor *LocationDescriptor,
	opts ResolveOptions) (ResolvedLocation, error) {
	query, simpleQuery, best := buildGeocodeQueries(descriptor)
	rv := ResolvedLocation{Source: best}

	switch {
	case query == "":
		return rv, ErrNotFound
	case l.geocoder == nil:
		return rv, fmt.Errorf("%w: %w", ErrNotFound, ErrNotConfigured)
	}

	resp, coords, err := l.geocode(ctx, opts.ServiceURL, query)

	if err == nil && coords == nil && opts.ReturnSimple && simpleQuery != "" && simpleQuery != query {
		resp, coords, err = l.geocode(ctx, opts.ServiceURL, simpleQuery)
	}

	switch {
	case err != nil:
		return rv, err
	case coords == nil:
		return rv, ErrNotFound
	}

	rv.Longitude = coords[0]
	rv.Latitude = coords[1]
	rv.Zipcode = resp.PostalCode

	return rv, nil
}

// geocode returns parsed coordinates as [longitude, latitude] or nil.
// The only error it returns is RateLimitedError.
func (l *LocationResolver) geocode(ctx context.Context, serviceURL, query string) (GeocodeResponse, []string, error) {
	resp, err := l.geocoder.Geocode(ctx, serviceURL, query)
	if err != nil {
		l.geocoderStats().Used(err)
		l.logger.GeocodeError(query, err)

		return resp, nil, nil
	}

	switch resp.Status {
	case http.StatusOK:
		l.geocoderStats().Used(nil)

		coords, err := parseCoordinates(resp.Coordinates)
		if err != nil {
			l.logger.GeocodeError(query, err)
		}

		return resp, coords, nil
	case GeoCodeLimitReached:
		err := &RateLimitedError{
			Code:  GeoCodeLimitReached,
			Delay: DefaultRateLimitDelay,
		}

		l.geocoderStats().Used(err)

		return resp, nil, err
	}

	l.geocoderStats().Used(fmt.Errorf("unexpected geocoder status %d", resp.Status))

	return resp, nil, nil
}

func (l *LocationResolver) resolveIP(ctx context.Context, ip string, opts ResolveOptions) (ResolvedLocation, error) {
	parsedIP := net.ParseIP(ip)

	switch {
	case parsedIP == nil:
		return ResolvedLocation{}, fmt.Errorf("%w: incorrect ip address %q", ErrNotFound, ip)
	case l.geolocator == nil:
		return ResolvedLocation{}, fmt.Errorf("%w: %w", ErrNotFound, ErrNotConfigured)
	case opts.Traffic != nil && (l.traffic.IsRobot(ctx, *opts.Traffic) || l.traffic.IsServer(*opts.Traffic)):
		return ResolvedLocation{}, ErrNotFound
	}

	if record, ok := l.visitors.Get(ctx, ip); ok {
		return record.location(), nil
	}

	result, err := l.geolocator.Geolocate(ctx, parsedIP)
	result = cleanNullLocation(result)

	l.geolocatorStats().Used(err)

	l.audit.Record(ip, result, err)

	if err != nil {
		l.logger.LookupError(parsedIP, l.geolocator.Name(), err)

		return ResolvedLocation{}, fmt.Errorf("%w: %w", ErrNotFound, &CollaboratorError{
			Service: l.geolocator.Name(),
			Err:     err,
		})
	}

	if result.Latitude == "" || result.Longitude == "" {
		return ResolvedLocation{}, ErrNotFound
	}

	return ResolvedLocation{
		Latitude:     result.Latitude,
		Longitude:    result.Longitude,
		Zipcode:      result.Zip,
		CountryCode:  result.CountryCode,
		State:        result.State,
		City:         result.City,
		ISP:          result.ISP,
		Organization: result.Organization,
		MetroCode:    result.MetroCode,
		AreaCode:     result.AreaCode,
		Source:       AccuracyIPGuess,
	}, nil
}

// Stats returns usage statistics of collaborators: a geocoder goes
// first, an IP geolocator is the second one.
func (l *LocationResolver) Stats() []*UsageStats {
	return l.stats
}

func (l *LocationResolver) geocoderStats() *UsageStats {
	return l.stats[0]
}

func (l *LocationResolver) geolocatorStats() *UsageStats {
	return l.stats[1]
}

// Shutdown releases a worker pool. Resolver can not be used after that.
func (l *LocationResolver) Shutdown() {
	l.rwmutex.Lock()
	defer l.rwmutex.Unlock()

	l.closed = true

	l.closeOnce.Do(func() {
		l.workerPool.Release()
	})
}

// buildGeocodeQueries returns a full query, a simplified one and the
// best accuracy which full query can give.
func buildGeocodeQueries(descriptor *LocationDescriptor) (string, string, AccuracySource) {
	best := AccuracyEarth

	if descriptor.FreeformLocation != "" {
		return descriptor.FreeformLocation, descriptor.FreeformLocation, MinAccuracy(best, AccuracyCity)
	}

	parts := []string{}
	simpleParts := []string{}

	if descriptor.Street != "" {
		parts = append(parts, descriptor.Street)
		best = MinAccuracy(best, AccuracyPostalAddress)
	}

	if descriptor.City != "" {
		parts = append(parts, descriptor.City)
		simpleParts = append(simpleParts, descriptor.City)
		best = MinAccuracy(best, AccuracyCity)
	}

	// state resets accuracy to Country level, street and city included:
	// a city with a state which does not match may be geocoded anywhere
	// within that state. Only zipcode which goes later can improve it.
	if descriptor.State != "" {
		parts = append(parts, descriptor.State)
		best = AccuracyCountry
	}

	if descriptor.Zipcode != "" {
		parts = append(parts, descriptor.Zipcode)
		best = MinAccuracy(best, AccuracyPostalCode)
	}

	return strings.Join(parts, ","), strings.Join(simpleParts, ","), best
}

var errMalformedCoordinates = errors.New("malformed coordinates")

// parseCoordinates splits "longitude,latitude,altitude" into
// [longitude, latitude] keeping decimal strings intact.
func parseCoordinates(value string) ([]string, error) {
	chunks := strings.Split(value, ",")
	if len(chunks) < 2 {
		return nil, fmt.Errorf("%w: %q", errMalformedCoordinates, value)
	}

	longitude := strings.TrimSpace(chunks[0])
	latitude := strings.TrimSpace(chunks[1])

	if longitude == "" || latitude == "" {
		return nil, fmt.Errorf("%w: %q", errMalformedCoordinates, value)
	}

	return []string{longitude, latitude}, nil
}

const nullPlaceholder = "(null)"

func cleanNull(value string) string {
	if value == nullPlaceholder {
		return ""
	}

	return value
}

func cleanNullLocation(loc IPLocation) IPLocation {
	return IPLocation{
		City:         cleanNull(loc.City),
		State:        cleanNull(loc.State),
		Zip:          cleanNull(loc.Zip),
		CountryCode:  NormalizeAlpha2Code(cleanNull(loc.CountryCode)),
		MetroCode:    cleanNull(loc.MetroCode),
		AreaCode:     cleanNull(loc.AreaCode),
		ISP:          cleanNull(loc.ISP),
		Organization: cleanNull(loc.Organization),
		Latitude:     cleanNull(loc.Latitude),
		Longitude:    cleanNull(loc.Longitude),
	}
}

// NewLocationResolver builds a resolver. geolocator can be nil: this
// means IP geolocation is not configured and IP route always ends up
// with ErrNotFound.
func NewLocationResolver(geocoder TextGeocoder,
	geolocator IPGeolocator,
	visitors *VisitorLocationStore,
	traffic *TrafficClassifier,
	audit *AuditLog,
	logger Logger,
	workerPoolSize int) *LocationResolver {
	rv := &LocationResolver{
		geocoder:   geocoder,
		geolocator: geolocator,
		visitors:   visitors,
		traffic:    traffic,
		audit:      audit,
		logger:     logger,
		stats: []*UsageStats{
			{Name: "geocoder"},
			{Name: "ip_geolocator"},
		},
	}

	if geolocator != nil {
		rv.stats[1].Name = geolocator.Name()
	}

	poolSize := workerPoolSize
	if poolSize <= 0 {
		poolSize = DefaultWorkerPoolSize
	}

	pool, err := ants.NewPoolWithFunc(poolSize, rv.resolveTask,
		ants.WithExpiryDuration(workerPoolExpireTime))
	if err != nil {
		panic(err)
	}

	rv.workerPool = pool

	return rv
}
