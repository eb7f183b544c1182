package geolib

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// AccuracySource describes how a coordinate was obtained. Values are
// ordered: the lower the value, the more accurate the provenance
// (accuracy, not precision).
type AccuracySource uint8

const (
	// Axiomatic are pre-defined absolute values, like Greenwich.
	AccuracyAxiomatic AccuracySource = iota
	// DirectEntry comes from GPS readout or similar.
	AccuracyDirectEntry
	// PostalAddress is a lookup of a street address.
	AccuracyPostalAddress
	// UserGuess is a user clicking on a map.
	AccuracyUserGuess
	// PostalCode is a geographic center of the postal code.
	AccuracyPostalCode
	// City is a city within a country.
	AccuracyCity
	// IPGuess depends on ISP service area and country regulations.
	AccuracyIPGuess
	// Country is usually a capital or a geographic center.
	AccuracyCountry
	AccuracyContinent
	// Earth is a bookend.
	AccuracyEarth
)

var accuracySourceNames = [...]string{
	"Axiomatic",
	"DirectEntry",
	"PostalAddress",
	"UserGuess",
	"PostalCode",
	"City",
	"IPGuess",
	"Country",
	"Continent",
	"Earth",
}

var accuracySourceByName = func() map[string]AccuracySource {
	rv := make(map[string]AccuracySource, len(accuracySourceNames))

	for i, v := range accuracySourceNames {
		rv[v] = AccuracySource(i)
	}

	return rv
}()

// String returns a name of the source. It panics on out of range value:
// this is a programming error.
func (a AccuracySource) String() string {
	if !a.Valid() {
		panic(fmt.Sprintf("unknown accuracy source %d", uint8(a)))
	}

	return accuracySourceNames[a]
}

func (a AccuracySource) Valid() bool {
	return int(a) < len(accuracySourceNames)
}

// MoreAccurate reports if a is more trustworthy than other.
func (a AccuracySource) MoreAccurate(other AccuracySource) bool {
	return a < other
}

func (a AccuracySource) MarshalJSON() ([]byte, error) {
	buf := bytes.Buffer{}

	buf.WriteByte('"')
	buf.WriteString(a.String())
	buf.WriteByte('"')

	return buf.Bytes(), nil
}

func (a *AccuracySource) UnmarshalJSON(data []byte) error {
	var name string

	if err := json.Unmarshal(data, &name); err != nil {
		return fmt.Errorf("cannot unmarshal accuracy source: %w", err)
	}

	value, err := ParseAccuracySource(name)
	if err != nil {
		return err
	}

	*a = value

	return nil
}

// MinAccuracy returns the most accurate of given sources.
func MinAccuracy(a, b AccuracySource) AccuracySource {
	if b < a {
		return b
	}

	return a
}

// ParseAccuracySource returns a source by its name. Use it for data
// which comes from outside (config, JSON).
func ParseAccuracySource(name string) (AccuracySource, error) {
	if value, ok := accuracySourceByName[name]; ok {
		return value, nil
	}

	return 0, fmt.Errorf("%w: %s", ErrUnknownAccuracySource, name)
}

// MustParseAccuracySource is ParseAccuracySource which panics on
// unknown name.
func MustParseAccuracySource(name string) AccuracySource {
	value, err := ParseAccuracySource(name)
	if err != nil {
		panic(err)
	}

	return value
}

// AccuracySources returns all known sources, most accurate first.
func AccuracySources() []AccuracySource {
	rv := make([]AccuracySource, len(accuracySourceNames))

	for i := range rv {
		rv[i] = AccuracySource(i)
	}

	return rv
}
