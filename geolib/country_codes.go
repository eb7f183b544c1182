package geolib

import (
	"strings"

	"github.com/pariz/gountries"
)

var countryQuery = gountries.New()

// NormalizeAlpha2Code returns a normalized 2-letter ISO3166 code.
// Normalized code is uppercased with some additional mapping. For
// example, some databases return ZZ as 'unknown' country. This function
// returns "" instead. Some databases still map Serbia to YU. This
// correctly maps YU to CS.
func NormalizeAlpha2Code(alpha2 string) string {
	alpha2 = strings.ToUpper(strings.TrimSpace(alpha2))

	if len(alpha2) != 2 {
		return ""
	}

	switch alpha2 {
	case "ZZ", "AP", "EU", "A1", "A2", "O1":
		return ""
	case "YU":
		return "CS"
	case "FX":
		return "FR"
	case "UK":
		return "GB"
	}

	return alpha2
}

// Alpha3Code returns a 3-letter ISO3166 code for a given 2-letter one.
// If country is unknown, it returns "".
func Alpha3Code(alpha2 string) string {
	country, err := countryQuery.FindCountryByAlpha(NormalizeAlpha2Code(alpha2))
	if err != nil {
		return ""
	}

	return country.Codes.Alpha3
}
