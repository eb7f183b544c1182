package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/afero"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/9seconds/whereabouts/geolib"
	"github.com/9seconds/whereabouts/providers"
	"github.com/9seconds/whereabouts/stores"
)

const (
	memoryStoreCleanupInterval = 5 * time.Minute
	httpShutdownTimeout        = 10 * time.Second
)

type app struct {
	resolver *geolib.LocationResolver
	handler  http.Handler
	closers  []io.Closer
}

func (a *app) Close() error {
	a.resolver.Shutdown()

	for _, v := range a.closers {
		v.Close() // nolint: errcheck
	}

	return nil
}

type closerFunc func()

func (c closerFunc) Close() error {
	c()

	return nil
}

func makeRootContext() (context.Context, context.CancelFunc) {
	rootCtx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)

	go func() {
		for range sigChan {
			cancel()
		}
	}()

	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	return rootCtx, cancel
}

func makeApp(conf *config, logger geolib.Logger) (*app, error) {
	rv := &app{}
	fs := afero.NewOsFs()

	store, storeCloser, err := makeStore(conf.Store, fs)
	if err != nil {
		return nil, fmt.Errorf("cannot create a store: %w", err)
	}

	if storeCloser != nil {
		rv.closers = append(rv.closers, storeCloser)
	}

	geocoder, err := makeGeocoder(conf.Geocoder)
	if err != nil {
		return nil, fmt.Errorf("cannot create a geocoder: %w", err)
	}

	geolocator, closer, err := makeGeolocator(conf.IPGeolocation, fs)
	if err != nil {
		return nil, fmt.Errorf("cannot create ip geolocator: %w", err)
	}

	if closer != nil {
		rv.closers = append(rv.closers, closer)
	}

	auditWriter := makeAuditLogWriter(conf.AuditLog)
	if closer, ok := auditWriter.(io.Closer); ok {
		rv.closers = append(rv.closers, closer)
	}

	visitors := geolib.NewVisitorLocationStore(store,
		conf.GetMaxVisitorCount(),
		conf.Store.GetTTL(),
		logger)
	robots := geolib.NewRobotLedger(store,
		conf.GetMaxVisitorCount(),
		conf.Store.GetTTL(),
		logger)
	traffic := geolib.NewTrafficClassifier(robots, logger, conf.DevInstance)
	rv.resolver = geolib.NewLocationResolver(geocoder,
		geolocator,
		visitors,
		traffic,
		geolib.NewAuditLog(auditWriter),
		logger,
		conf.GetWorkerPoolSize())
	manager := geolib.NewLocationManager(rv.resolver, visitors, traffic)
	sessions := geolib.NewSessionRegistry(conf.GetSessionTTL())

	rv.handler = geolib.NewHTTPHandler(rv.resolver, manager, visitors, robots, sessions)

	if conf.HasBasicAuth() {
		rv.handler = &basicAuthMiddleware{
			handler:   rv.handler,
			user:      []byte(conf.BasicAuthUser),
			password:  []byte(conf.BasicAuthPassword),
			protected: []string{"/visitors", "/robots_log"},
		}
	}

	if conf.TrustProxyHeaders {
		rv.handler = middleware.RealIP(rv.handler)
	}

	return rv, nil
}

func makeStore(conf configStore, fs afero.Fs) (geolib.BackingStore, io.Closer, error) {
	switch conf.GetType() {
	case StoreTypeRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     conf.RedisAddr,
			Password: conf.RedisPassword,
			DB:       conf.RedisDB,
		})

		return stores.NewRedis(client, conf.KeyPrefix), client, nil
	case StoreTypeFile:
		store, err := stores.NewFile(fs, conf.GetDirectory())

		return store, nil, err
	}

	return stores.NewMemory(memoryStoreCleanupInterval), nil, nil
}

func makeGeocoder(conf configHTTPService) (geolib.TextGeocoder, error) {
	if conf.AuthToken == "" {
		return nil, nil
	}

	url := conf.URL
	if url == "" {
		url = providers.DefaultGeocoderURL
	}

	return providers.NewGeocoder(makeNewHTTPClient(conf), url, conf.AuthToken)
}

func makeGeolocator(conf configIPGeolocation, fs afero.Fs) (geolib.IPGeolocator, io.Closer, error) {
	var (
		geolocator geolib.IPGeolocator
		closer     io.Closer
	)

	switch conf.Provider {
	case "":
		return nil, nil, nil
	case providers.NameMaxmindWeb:
		url := conf.URL
		if url == "" {
			url = providers.DefaultMaxmindWebURL
		}

		prov, err := providers.NewMaxmindWeb(makeNewHTTPClient(conf.configHTTPService), url, conf.AuthToken)
		if err != nil {
			return nil, nil, fmt.Errorf("cannot create maxmind web provider: %w", err)
		}

		geolocator = prov
	case providers.NameGeoIP2:
		prov, err := providers.NewGeoIP2(fs, conf.CityDB, conf.ISPDB)
		if err != nil {
			return nil, nil, fmt.Errorf("cannot create geoip2 provider: %w", err)
		}

		geolocator = prov
		closer = closerFunc(prov.Close)
	default:
		return nil, nil, fmt.Errorf("unsupported provider name: %s", conf.Provider)
	}

	return providers.NewCachingGeolocator(geolocator, conf.GetCacheSize(), conf.GetCacheTTL()), closer, nil
}

func makeNewHTTPClient(conf configHTTPService) geolib.HTTPClient {
	jar, err := cookiejar.New(nil)
	if err != nil {
		panic(err)
	}

	httpClient := &http.Client{
		Timeout: conf.GetHTTPTimeout(),
		Jar:     jar,
	}

	return geolib.NewHTTPClient(httpClient,
		"whereabouts/"+version,
		conf.GetRateLimitInterval(),
		conf.GetRateLimitBurst(),
		conf.GetCircuitBreakerThreshold(),
		conf.GetCircuitBreakerHalfOpen(),
		conf.GetCircuitBreakerReset())
}

func makeAuditLogWriter(conf configAuditLog) io.Writer {
	if conf.Path == "" {
		return io.Discard
	}

	return &lumberjack.Logger{
		Filename:   conf.Path,
		MaxSize:    conf.GetMaxSize(),
		MaxBackups: conf.MaxBackups,
		MaxAge:     conf.MaxAge,
		Compress:   conf.Compress,
	}
}
