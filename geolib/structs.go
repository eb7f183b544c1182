package geolib

import (
	"encoding/json"
	"net"
	"time"
)

// LocationDescriptor is a set of known textual fields which describe
// location of a person. All fields are optional.
type LocationDescriptor struct {
	Street           string `json:"street,omitempty"`
	City             string `json:"city,omitempty"`
	State            string `json:"state,omitempty"`
	Zipcode          string `json:"zipcode,omitempty"`
	Country          string `json:"country,omitempty"`
	CountryCode      string `json:"country_code,omitempty"`
	CountryIso3      string `json:"country_iso3,omitempty"`
	FreeformLocation string `json:"location,omitempty"`
	IP               string `json:"ip,omitempty"`
}

// HasTextualFields checks if descriptor carries enough text to be
// geocoded. Otherwise resolver falls back to IP geolocation.
func (l *LocationDescriptor) HasTextualFields() bool {
	switch {
	case l == nil:
		return false
	case l.City != "" && l.State != "":
		return true
	case l.City != "" && l.CountryIso3 != "":
		return true
	}

	return l.Zipcode != "" || l.FreeformLocation != "" || l.Country != ""
}

// Input is what resolver accepts: either a bare IP address, a
// descriptor or nothing at all. In the latter case a requester IP is
// used.
type Input struct {
	IP         string              `json:"ip,omitempty"`
	Descriptor *LocationDescriptor `json:"descriptor,omitempty"`
}

func (i Input) Empty() bool {
	return i.IP == "" && i.Descriptor == nil
}

func (i Input) cacheKey() string {
	data, _ := json.Marshal(i) // nolint: errcheck

	return "LocationData:" + string(data)
}

func InputIP(ip string) Input {
	return Input{IP: ip}
}

func InputDescriptor(descriptor LocationDescriptor) Input {
	return Input{Descriptor: &descriptor}
}

// ResolvedLocation is a result of resolving. Latitude and longitude are
// kept as decimal strings, exactly as external service has sent them.
type ResolvedLocation struct {
	Latitude     string         `json:"latitude"`
	Longitude    string         `json:"longitude"`
	Zipcode      string         `json:"zipcode,omitempty"`
	CountryCode  string         `json:"country_code,omitempty"`
	State        string         `json:"state,omitempty"`
	City         string         `json:"city,omitempty"`
	ISP          string         `json:"isp,omitempty"`
	Organization string         `json:"organization,omitempty"`
	MetroCode    string         `json:"metro_code,omitempty"`
	AreaCode     string         `json:"area_code,omitempty"`
	Source       AccuracySource `json:"source"`
}

func (r ResolvedLocation) OK() bool {
	return r.Latitude != "" && r.Longitude != ""
}

// VisitorRecord is an entry of VisitorLocationStore.
type VisitorRecord struct {
	IP          string `json:"ip"`
	Latitude    string `json:"latitude"`
	Longitude   string `json:"longitude"`
	CountryCode string `json:"country_code"`
}

func (v VisitorRecord) location() ResolvedLocation {
	return ResolvedLocation{
		Latitude:    v.Latitude,
		Longitude:   v.Longitude,
		CountryCode: v.CountryCode,
		Source:      AccuracyIPGuess,
	}
}

func newVisitorRecord(ip string, loc ResolvedLocation) VisitorRecord {
	return VisitorRecord{
		IP:          ip,
		Latitude:    loc.Latitude,
		Longitude:   loc.Longitude,
		CountryCode: loc.CountryCode,
	}
}

// RobotRecord is an entry of RobotLedger.
//
// Client and KnownBot are informational: they are parsed from User-Agent
// and never take part in classification.
type RobotRecord struct {
	UserAgent string    `json:"user_agent"`
	Client    string    `json:"client,omitempty"`
	KnownBot  bool      `json:"known_bot"`
	LastVisit time.Time `json:"last_visit"`
}

// String formats a record in a human-readable way.
func (r RobotRecord) String() string {
	return r.UserAgent + " // last visit: " + r.LastVisit.Format(time.RFC1123Z)
}

// IPLocation is a result of IP geolocation collaborator.
type IPLocation struct {
	City         string
	State        string
	Zip          string
	CountryCode  string
	MetroCode    string
	AreaCode     string
	ISP          string
	Organization string
	Latitude     string
	Longitude    string
}

// GeocodeResponse is a parsed response of text geocoding service.
// Coordinates are in "longitude,latitude,altitude" format.
type GeocodeResponse struct {
	Status      int
	Coordinates string
	PostalCode  string
}

// TrafficRequest is a set of request attributes which are required to
// classify traffic.
type TrafficRequest struct {
	Path         string
	RemoteIP     net.IP
	ServerIP     net.IP
	UserAgent    string
	HasUserAgent bool
}
