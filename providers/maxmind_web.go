package providers

import (
	"context"
	"encoding/csv"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/text/encoding/charmap"

	"github.com/9seconds/whereabouts/geolib"
)

// DefaultMaxmindWebURL is an endpoint of MaxMind city/ISP/organization
// web service.
const DefaultMaxmindWebURL = "https://geoip.maxmind.com/f"

const maxmindWebFieldsCount = 11

type maxmindWebProvider struct {
	client     geolib.HTTPClient
	baseURL    string
	licenseKey string
}

func (m maxmindWebProvider) Name() string {
	return NameMaxmindWeb
}

// Geolocate asks web service which responds with a single CSV line:
// country, region, city, postal, latitude, longitude, metro code, area
// code, isp, organization, error. Response is in ISO-8859-1.
func (m maxmindWebProvider) Geolocate(ctx context.Context, ip net.IP) (geolib.IPLocation, error) {
	result := geolib.IPLocation{}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.buildURL(ip), nil)
	if err != nil {
		return result, fmt.Errorf("cannot build a request: %w", err)
	}

	resp, err := m.client.Do(req)
	if err != nil {
		return result, fmt.Errorf("cannot send a request: %w", err)
	}

	defer flushResponse(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return result, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	csvReader := csv.NewReader(charmap.ISO8859_1.NewDecoder().Reader(resp.Body))
	csvReader.FieldsPerRecord = -1

	record, err := csvReader.Read()
	if err != nil {
		return result, fmt.Errorf("cannot parse a response: %w", err)
	}

	if len(record) < maxmindWebFieldsCount {
		return result, fmt.Errorf("unexpected number of fields: %d", len(record))
	}

	if errCode := strings.TrimSpace(record[10]); errCode != "" {
		return result, fmt.Errorf("failed to geolocate: %s", errCode)
	}

	result.CountryCode = strings.ToUpper(record[0])
	result.State = record[1]
	result.City = record[2]
	result.Zip = record[3]
	result.Latitude = record[4]
	result.Longitude = record[5]
	result.MetroCode = record[6]
	result.AreaCode = record[7]
	result.ISP = record[8]
	result.Organization = record[9]

	return result, nil
}

func (m maxmindWebProvider) buildURL(ip net.IP) string {
	getQuery := url.Values{}

	getQuery.Set("l", m.licenseKey)
	getQuery.Set("i", ip.String())

	return m.baseURL + "?" + getQuery.Encode()
}

// NewMaxmindWeb returns a client of MaxMind web service. License key is
// mandatory.
func NewMaxmindWeb(client geolib.HTTPClient, baseURL, licenseKey string) (geolib.IPGeolocator, error) {
	if licenseKey == "" {
		return nil, ErrAuthTokenIsRequired
	}

	if baseURL == "" {
		baseURL = DefaultMaxmindWebURL
	}

	return maxmindWebProvider{
		client:     client,
		baseURL:    baseURL,
		licenseKey: licenseKey,
	}, nil
}
