package providers

import (
	"bufio"
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/9seconds/whereabouts/geolib"
)

// DefaultGeocoderURL is a base URL of geocoding service.
const DefaultGeocoderURL = "http://maps.google.com/maps/geo"

type geocoderResponse struct {
	Response struct {
		Status struct {
			Code string `xml:"code"`
		} `xml:"Status"`
		Placemarks []struct {
			Coordinates string `xml:"Point>coordinates"`
			PostalCode  string `xml:"AddressDetails>Country>AdministrativeArea>Locality>PostalCode>PostalCodeNumber"`
		} `xml:"Placemark"`
	} `xml:"Response"`
}

type geocoder struct {
	client  geolib.HTTPClient
	baseURL string
	apiKey  string
}

func (g geocoder) Name() string {
	return NameGeocoder
}

func (g geocoder) Geocode(ctx context.Context, serviceURL, query string) (geolib.GeocodeResponse, error) {
	result := geolib.GeocodeResponse{}

	if serviceURL == "" {
		serviceURL = g.baseURL
	}

	requestURL, err := g.buildURL(serviceURL, query)
	if err != nil {
		return result, g.fail(fmt.Errorf("cannot build url: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return result, g.fail(fmt.Errorf("cannot build a request: %w", err))
	}

	req.Header.Set("Accept", "application/xml, text/xml")

	resp, err := g.client.Do(req)
	if err != nil {
		return result, g.fail(fmt.Errorf("cannot send a request: %w", err))
	}

	defer flushResponse(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return result, g.fail(fmt.Errorf("unexpected status code: %d", resp.StatusCode))
	}

	xmlResponse := geocoderResponse{}
	xmlDecoder := xml.NewDecoder(bufio.NewReader(resp.Body))

	if err := xmlDecoder.Decode(&xmlResponse); err != nil {
		return result, g.fail(fmt.Errorf("cannot parse a response: %w", err))
	}

	result.Status, err = strconv.Atoi(strings.TrimSpace(xmlResponse.Response.Status.Code))
	if err != nil {
		return result, g.fail(fmt.Errorf("incorrect status code %q: %w",
			xmlResponse.Response.Status.Code, err))
	}

	if len(xmlResponse.Response.Placemarks) > 0 {
		placemark := xmlResponse.Response.Placemarks[0]
		result.Coordinates = strings.TrimSpace(placemark.Coordinates)
		result.PostalCode = strings.TrimSpace(placemark.PostalCode)
	}

	return result, nil
}

func (g geocoder) buildURL(serviceURL, query string) (string, error) {
	u, err := url.Parse(serviceURL)
	if err != nil {
		return "", err
	}

	getQuery := u.Query()

	getQuery.Set("output", "xml")
	getQuery.Set("key", g.apiKey)
	getQuery.Set("q", query)

	u.RawQuery = getQuery.Encode()

	return u.String(), nil
}

func (g geocoder) fail(err error) error {
	return &geolib.CollaboratorError{
		Service: NameGeocoder,
		Err:     err,
	}
}

// NewGeocoder returns a client of XML geocoding service. If baseURL is
// empty, DefaultGeocoderURL is used.
func NewGeocoder(client geolib.HTTPClient, baseURL, apiKey string) (geolib.TextGeocoder, error) {
	if apiKey == "" {
		return nil, ErrAuthTokenIsRequired
	}

	if baseURL == "" {
		baseURL = DefaultGeocoderURL
	}

	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("incorrect base url: %w", err)
	}

	return geocoder{
		client:  client,
		baseURL: baseURL,
		apiKey:  apiKey,
	}, nil
}
