package providers

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"

	"github.com/oschwald/geoip2-golang"
	"github.com/spf13/afero"

	"github.com/9seconds/whereabouts/geolib"
)

// GeoIP2 geolocates IP addresses with offline GeoIP2 City database.
// Optional GeoIP2 ISP database adds ISP and organization names.
type GeoIP2 struct {
	cityReader   *geoip2.Reader
	ispReader    *geoip2.Reader
	dbReaderLock sync.RWMutex
}

func (g *GeoIP2) Name() string {
	return NameGeoIP2
}

func (g *GeoIP2) Geolocate(ctx context.Context, ip net.IP) (geolib.IPLocation, error) {
	g.dbReaderLock.RLock()
	defer g.dbReaderLock.RUnlock()

	rv := geolib.IPLocation{}

	if g.cityReader == nil {
		return rv, ErrDatabaseIsNotReadyYet
	}

	record, err := g.cityReader.City(ip)
	if err != nil {
		return rv, fmt.Errorf("cannot lookup this ip address: %w", err)
	}

	if record.Location.Latitude == 0 && record.Location.Longitude == 0 {
		return rv, fmt.Errorf("unknown location of %s", ip)
	}

	rv.City = record.City.Names["en"]
	rv.Zip = record.Postal.Code
	rv.CountryCode = strings.ToUpper(record.Country.IsoCode)
	rv.Latitude = strconv.FormatFloat(record.Location.Latitude, 'f', -1, 64)
	rv.Longitude = strconv.FormatFloat(record.Location.Longitude, 'f', -1, 64)

	if len(record.Subdivisions) > 0 {
		rv.State = record.Subdivisions[0].IsoCode
	}

	if record.Location.MetroCode != 0 {
		rv.MetroCode = strconv.FormatUint(uint64(record.Location.MetroCode), 10)
	}

	if g.ispReader != nil {
		if isp, err := g.ispReader.ISP(ip); err == nil {
			rv.ISP = isp.ISP
			rv.Organization = isp.Organization
		}
	}

	return rv, nil
}

// Close releases database readers.
func (g *GeoIP2) Close() {
	g.dbReaderLock.Lock()
	defer g.dbReaderLock.Unlock()

	if g.cityReader != nil {
		g.cityReader.Close()
		g.cityReader = nil
	}

	if g.ispReader != nil {
		g.ispReader.Close()
		g.ispReader = nil
	}
}

// NewGeoIP2 opens databases from a given filesystem. ispPath is
// optional.
func NewGeoIP2(fs afero.Fs, cityPath, ispPath string) (*GeoIP2, error) {
	rv := &GeoIP2{}

	cityReader, err := openGeoIP2(fs, cityPath)
	if err != nil {
		return nil, fmt.Errorf("cannot open city database: %w", err)
	}

	rv.cityReader = cityReader

	if ispPath != "" {
		ispReader, err := openGeoIP2(fs, ispPath)
		if err != nil {
			rv.Close()

			return nil, fmt.Errorf("cannot open isp database: %w", err)
		}

		rv.ispReader = ispReader
	}

	return rv, nil
}

func openGeoIP2(fs afero.Fs, path string) (*geoip2.Reader, error) {
	if path == "" {
		return nil, ErrNoFile
	}

	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	reader, err := geoip2.FromBytes(data)
	if err != nil {
		return nil, fmt.Errorf("cannot initialize a reader of %s: %w", path, err)
	}

	return reader, nil
}
