package main

import (
	"encoding/json"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/hjson/hjson-go/v4"

	"github.com/9seconds/whereabouts/geolib"
	"github.com/9seconds/whereabouts/providers"
)

const (
	DefaultHTTPTimeout             = 10 * time.Second
	DefaultRateLimitInterval       = 100 * time.Millisecond
	DefaultRateLimitBurst          = 10
	DefaultCircuitBreakerThreshold = 5
	DefaultCircuitBreakerHalfOpen  = time.Minute
	DefaultCircuitBreakerReset     = 20 * time.Second
	DefaultSessionTTL              = 30 * time.Minute
	DefaultCacheSize               = 10000
	DefaultCacheTTL                = time.Hour
	DefaultAuditLogMaxSize         = 100

	StoreTypeMemory = "memory"
	StoreTypeFile   = "file"
	StoreTypeRedis  = "redis"
)

type duration struct {
	time.Duration
}

func (d *duration) UnmarshalJSON(b []byte) error {
	var v interface{}

	if err := json.Unmarshal(b, &v); err != nil {
		return fmt.Errorf("cannot unmarshal duration: %w", err)
	}

	vv, ok := v.(string)
	if !ok {
		return fmt.Errorf("incorrect duration: %v", v)
	}

	dur, err := time.ParseDuration(vv)
	if err != nil {
		return fmt.Errorf("cannot parse duration: %w", err)
	}

	d.Duration = dur

	return nil
}

type config struct {
	Listen            string              `json:"listen"`
	DevInstance       bool                `json:"dev_instance"`
	TrustProxyHeaders bool                `json:"trust_proxy_headers"`
	BasicAuthUser     string              `json:"basic_auth_user"`
	BasicAuthPassword string              `json:"basic_auth_password"`
	MaxVisitorCount   *int                `json:"max_visitor_count"`
	WorkerPoolSize    uint                `json:"worker_pool_size"`
	SessionTTL        duration            `json:"session_ttl"`
	AuditLog          configAuditLog      `json:"audit_log"`
	Store             configStore         `json:"store"`
	Geocoder          configHTTPService   `json:"geocoder"`
	IPGeolocation     configIPGeolocation `json:"ip_geolocation"`
}

func (c config) GetListen() string {
	return c.Listen
}

func (c config) HasBasicAuth() bool {
	return c.BasicAuthUser != ""
}

func (c config) GetMaxVisitorCount() int {
	if c.MaxVisitorCount == nil {
		return geolib.DefaultMaxVisitorCount
	}

	return *c.MaxVisitorCount
}

func (c config) GetWorkerPoolSize() int {
	return int(c.WorkerPoolSize)
}

func (c config) GetSessionTTL() time.Duration {
	if c.SessionTTL.Duration == 0 {
		return DefaultSessionTTL
	}

	return c.SessionTTL.Duration
}

type configAuditLog struct {
	Path       string `json:"path"`
	MaxSize    int    `json:"max_size"`
	MaxBackups int    `json:"max_backups"`
	MaxAge     int    `json:"max_age"`
	Compress   bool   `json:"compress"`
}

func (c configAuditLog) GetMaxSize() int {
	if c.MaxSize == 0 {
		return DefaultAuditLogMaxSize
	}

	return c.MaxSize
}

type configStore struct {
	Type          string   `json:"type"`
	TTL           duration `json:"ttl"`
	Directory     string   `json:"directory"`
	RedisAddr     string   `json:"redis_addr"`
	RedisPassword string   `json:"redis_password"`
	RedisDB       int      `json:"redis_db"`
	KeyPrefix     string   `json:"key_prefix"`
}

func (c configStore) GetType() string {
	if c.Type == "" {
		return StoreTypeMemory
	}

	return strings.ToLower(c.Type)
}

func (c configStore) GetTTL() time.Duration {
	if c.TTL.Duration == 0 {
		return geolib.DefaultStoreTTL
	}

	return c.TTL.Duration
}

func (c configStore) GetDirectory() string {
	if c.Directory != "" {
		return c.Directory
	}

	return filepath.Join(os.TempDir(), "whereabouts")
}

type configHTTPService struct {
	URL                     string   `json:"url"`
	AuthToken               string   `json:"auth_token"`
	HTTPTimeout             duration `json:"http_timeout"`
	RateLimitInterval       duration `json:"rate_limit_interval"`
	RateLimitBurst          uint     `json:"rate_limit_burst"`
	CircuitBreakerThreshold uint32   `json:"circuit_breaker_threshold"`
	CircuitBreakerHalfOpen  duration `json:"circuit_breaker_half_open"`
	CircuitBreakerReset     duration `json:"circuit_breaker_reset"`
}

func (c configHTTPService) GetHTTPTimeout() time.Duration {
	if c.HTTPTimeout.Duration == 0 {
		return DefaultHTTPTimeout
	}

	return c.HTTPTimeout.Duration
}

func (c configHTTPService) GetRateLimitInterval() time.Duration {
	if c.RateLimitInterval.Duration == 0 {
		return DefaultRateLimitInterval
	}

	return c.RateLimitInterval.Duration
}

func (c configHTTPService) GetRateLimitBurst() int {
	if c.RateLimitBurst == 0 {
		return DefaultRateLimitBurst
	}

	return int(c.RateLimitBurst)
}

func (c configHTTPService) GetCircuitBreakerThreshold() uint32 {
	if c.CircuitBreakerThreshold == 0 {
		return DefaultCircuitBreakerThreshold
	}

	return c.CircuitBreakerThreshold
}

func (c configHTTPService) GetCircuitBreakerHalfOpen() time.Duration {
	if c.CircuitBreakerHalfOpen.Duration == 0 {
		return DefaultCircuitBreakerHalfOpen
	}

	return c.CircuitBreakerHalfOpen.Duration
}

func (c configHTTPService) GetCircuitBreakerReset() time.Duration {
	if c.CircuitBreakerReset.Duration == 0 {
		return DefaultCircuitBreakerReset
	}

	return c.CircuitBreakerReset.Duration
}

type configIPGeolocation struct {
	configHTTPService

	Provider  string   `json:"provider"`
	CityDB    string   `json:"city_db"`
	ISPDB     string   `json:"isp_db"`
	CacheSize uint     `json:"cache_size"`
	CacheTTL  duration `json:"cache_ttl"`
}

func (c configIPGeolocation) GetCacheSize() uint {
	if c.CacheSize == 0 {
		return DefaultCacheSize
	}

	return c.CacheSize
}

func (c configIPGeolocation) GetCacheTTL() time.Duration {
	if c.CacheTTL.Duration == 0 {
		return DefaultCacheTTL
	}

	return c.CacheTTL.Duration
}

func parseConfig(path string) (*config, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read file: %w", err)
	}

	rawMap := map[string]interface{}{}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if _, err := toml.Decode(string(content), &rawMap); err != nil {
			return nil, fmt.Errorf("cannot parse toml: %w", err)
		}
	default:
		if err := hjson.Unmarshal(content, &rawMap); err != nil {
			return nil, fmt.Errorf("cannot parse json: %w", err)
		}
	}

	return decodeConfig(rawMap)
}

func decodeConfig(rawMap map[string]interface{}) (*config, error) {
	conf := config{}

	rawBytes, err := json.Marshal(rawMap)
	if err != nil {
		return nil, fmt.Errorf("cannot encode config: %w", err)
	}

	if err := json.Unmarshal(rawBytes, &conf); err != nil {
		return nil, fmt.Errorf("cannot decode config: %w", err)
	}

	if _, _, err := net.SplitHostPort(conf.Listen); err != nil {
		return nil, fmt.Errorf("incorrect host:port for listen: %w", err)
	}

	if conf.GetMaxVisitorCount() < 0 {
		return nil, fmt.Errorf("incorrect max_visitor_count %d", conf.GetMaxVisitorCount())
	}

	switch conf.Store.GetType() {
	case StoreTypeMemory, StoreTypeFile:
	case StoreTypeRedis:
		if conf.Store.RedisAddr == "" {
			return nil, fmt.Errorf("redis_addr is required for redis store")
		}
	default:
		return nil, fmt.Errorf("unsupported store type: %s", conf.Store.Type)
	}

	switch conf.IPGeolocation.Provider {
	case "", providers.NameMaxmindWeb, providers.NameGeoIP2:
	default:
		return nil, fmt.Errorf("unsupported ip geolocation provider: %s", conf.IPGeolocation.Provider)
	}

	return &conf, nil
}
