package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/9seconds/whereabouts/geolib"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)

	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestConfigHJSONOk(t *testing.T) {
	path := writeConfig(t, "config.hjson", `{
		# comments are allowed
		listen: 127.0.0.1:8080
		dev_instance: true
		max_visitor_count: 0
		worker_pool_size: 8
		session_ttl: 10m
		store: {
			type: redis
			redis_addr: localhost:6379
			ttl: 1h
		}
		geocoder: {
			auth_token: key
			rate_limit_burst: 3
		}
		ip_geolocation: {
			provider: maxmind_web
			auth_token: license
			cache_ttl: 5m
		}
	}`)

	conf, err := parseConfig(path)

	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:8080", conf.GetListen())
	assert.True(t, conf.DevInstance)
	assert.Equal(t, 0, conf.GetMaxVisitorCount())
	assert.Equal(t, 8, conf.GetWorkerPoolSize())
	assert.Equal(t, 10*time.Minute, conf.GetSessionTTL())
	assert.Equal(t, StoreTypeRedis, conf.Store.GetType())
	assert.Equal(t, "localhost:6379", conf.Store.RedisAddr)
	assert.Equal(t, time.Hour, conf.Store.GetTTL())
	assert.Equal(t, "key", conf.Geocoder.AuthToken)
	assert.Equal(t, 3, conf.Geocoder.GetRateLimitBurst())
	assert.Equal(t, "maxmind_web", conf.IPGeolocation.Provider)
	assert.Equal(t, "license", conf.IPGeolocation.AuthToken)
	assert.Equal(t, 5*time.Minute, conf.IPGeolocation.GetCacheTTL())
}

func TestConfigTOMLOk(t *testing.T) {
	path := writeConfig(t, "config.toml", `listen = "0.0.0.0:80"
basic_auth_user = "admin"
basic_auth_password = "secret"

[store]
type = "file"
directory = "/var/lib/whereabouts"

[audit_log]
path = "/var/log/whereabouts/audit.log"
max_backups = 3

[ip_geolocation]
provider = "geoip2"
city_db = "/usr/share/GeoIP/GeoLite2-City.mmdb"
http_timeout = "2s"`)

	conf, err := parseConfig(path)

	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:80", conf.GetListen())
	assert.True(t, conf.HasBasicAuth())
	assert.Equal(t, StoreTypeFile, conf.Store.GetType())
	assert.Equal(t, "/var/lib/whereabouts", conf.Store.GetDirectory())
	assert.Equal(t, "/var/log/whereabouts/audit.log", conf.AuditLog.Path)
	assert.Equal(t, 3, conf.AuditLog.MaxBackups)
	assert.Equal(t, DefaultAuditLogMaxSize, conf.AuditLog.GetMaxSize())
	assert.Equal(t, "geoip2", conf.IPGeolocation.Provider)
	assert.Equal(t, 2*time.Second, conf.IPGeolocation.GetHTTPTimeout())
}

func TestConfigDefaults(t *testing.T) {
	path := writeConfig(t, "config.json", `{"listen": ":8000"}`)

	conf, err := parseConfig(path)

	require.NoError(t, err)
	assert.False(t, conf.HasBasicAuth())
	assert.Equal(t, geolib.DefaultMaxVisitorCount, conf.GetMaxVisitorCount())
	assert.Equal(t, DefaultSessionTTL, conf.GetSessionTTL())
	assert.Equal(t, StoreTypeMemory, conf.Store.GetType())
	assert.Equal(t, geolib.DefaultStoreTTL, conf.Store.GetTTL())
	assert.Equal(t, DefaultHTTPTimeout, conf.Geocoder.GetHTTPTimeout())
	assert.Equal(t, DefaultRateLimitInterval, conf.Geocoder.GetRateLimitInterval())
	assert.Equal(t, DefaultRateLimitBurst, conf.Geocoder.GetRateLimitBurst())
	assert.EqualValues(t, DefaultCircuitBreakerThreshold, conf.Geocoder.GetCircuitBreakerThreshold())
	assert.Equal(t, DefaultCircuitBreakerHalfOpen, conf.Geocoder.GetCircuitBreakerHalfOpen())
	assert.Equal(t, DefaultCircuitBreakerReset, conf.Geocoder.GetCircuitBreakerReset())
	assert.EqualValues(t, DefaultCacheSize, conf.IPGeolocation.GetCacheSize())
	assert.Equal(t, DefaultCacheTTL, conf.IPGeolocation.GetCacheTTL())
	assert.Empty(t, conf.IPGeolocation.Provider)
}

func TestConfigAbsentFile(t *testing.T) {
	_, err := parseConfig(filepath.Join(t.TempDir(), "absent.hjson"))

	assert.Error(t, err)
}

func TestConfigIncorrect(t *testing.T) {
	testData := map[string]string{
		"broken":              `{listen: `,
		"no-listen":           `{}`,
		"bad-listen":          `{"listen": "localhost"}`,
		"negative-visitors":   `{"listen": ":80", "max_visitor_count": -1}`,
		"unknown-store":       `{"listen": ":80", "store": {"type": "mongo"}}`,
		"redis-without-addr":  `{"listen": ":80", "store": {"type": "redis"}}`,
		"unknown-provider":    `{"listen": ":80", "ip_geolocation": {"provider": "ipinfo"}}`,
		"incorrect-duration":  `{"listen": ":80", "session_ttl": 10}`,
		"unparsable-duration": `{"listen": ":80", "session_ttl": "soon"}`,
	}

	for name, content := range testData {
		content := content

		t.Run(name, func(t *testing.T) {
			_, err := parseConfig(writeConfig(t, "config.hjson", content))

			assert.Error(t, err)
		})
	}
}
