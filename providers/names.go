package providers

const (
	// Identifier for XML geocoding service.
	NameGeocoder = "geocoder"

	// Identifier for MaxMind city/ISP/organization web service.
	NameMaxmindWeb = "maxmind_web"

	// Identifier for offline GeoIP2 databases.
	NameGeoIP2 = "geoip2"
)
