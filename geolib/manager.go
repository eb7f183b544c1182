package geolib

import (
	"context"
	"errors"
	"strings"
)

// User is an authenticated user profile. Location is a free text which
// user has typed in, CountryCode is ISO3166 alpha-2 code.
type User struct {
	Zipcode     string
	Location    string
	CountryCode string
	Latitude    string
	Longitude   string
}

// HasCoordinates reports if user has nonzero coordinates.
func (u *User) HasCoordinates() bool {
	return !isZeroCoordinate(u.Latitude) && !isZeroCoordinate(u.Longitude)
}

// LocationManager decides whether and how a location of current
// requester should be resolved and stored.
type LocationManager struct {
	resolver *LocationResolver
	visitors *VisitorLocationStore
	traffic  *TrafficClassifier
}

// Manage processes a location of the current requester. For
// authenticated users it returns true if user coordinates were
// updated. Anonymous visitors are recorded into VisitorLocationStore
// once per session.
func (m *LocationManager) Manage(ctx context.Context,
	session *Session,
	traffic TrafficRequest,
	user *User) (bool, error) {
	if user != nil {
		return m.manageUser(ctx, session, traffic, user)
	}

	return false, m.manageVisitor(ctx, session, traffic)
}

func (m *LocationManager) manageUser(ctx context.Context,
	session *Session,
	traffic TrafficRequest,
	user *User) (bool, error) {
	selfIP := ipString(traffic.RemoteIP)

	// Failed writes are reported by the store itself. The in-memory
	// snapshot is already updated, so the caller goes on.
	if selfIP != "" {
		m.visitors.Remove(ctx, selfIP) // nolint: errcheck
	}

	if (user.Zipcode != "" || user.Location != "") && user.HasCoordinates() {
		return false, nil
	}

	descriptor := LocationDescriptor{
		City:    user.Location,
		Zipcode: user.Zipcode,
		IP:      selfIP,
	}

	if country, err := countryQuery.FindCountryByAlpha(NormalizeAlpha2Code(user.CountryCode)); err == nil {
		descriptor.CountryCode = country.Alpha2
		descriptor.CountryIso3 = country.Alpha3
	}

	opts := DefaultResolveOptions()
	opts.Session = session
	opts.Traffic = &traffic

	location, err := m.resolver.Resolve(ctx, InputDescriptor(descriptor), opts)

	switch {
	case errors.Is(err, ErrNotFound):
		return false, nil
	case err != nil:
		return false, err
	}

	user.Latitude = location.Latitude
	user.Longitude = location.Longitude

	return true, nil
}

func (m *LocationManager) manageVisitor(ctx context.Context, session *Session, traffic TrafficRequest) error {
	selfIP := ipString(traffic.RemoteIP)

	switch {
	case !m.visitors.Enabled(), selfIP == "":
		return nil
	case m.traffic.IsRobot(ctx, traffic), m.traffic.IsServer(traffic):
		return nil
	case session != nil && !session.MarkOnce(SessionLocationManaged):
		return nil
	}

	opts := DefaultResolveOptions()
	opts.Session = session
	opts.Traffic = &traffic

	location, err := m.resolver.Resolve(ctx, InputIP(selfIP), opts)

	switch {
	case errors.Is(err, ErrNotFound):
		return nil
	case err != nil:
		return err
	case location.Latitude == "":
		return nil
	}

	m.visitors.Add(ctx, selfIP, newVisitorRecord(selfIP, location)) // nolint: errcheck

	return nil
}

func NewLocationManager(resolver *LocationResolver,
	visitors *VisitorLocationStore,
	traffic *TrafficClassifier) *LocationManager {
	return &LocationManager{
		resolver: resolver,
		visitors: visitors,
		traffic:  traffic,
	}
}

func isZeroCoordinate(value string) bool {
	return strings.Trim(value, "+-0.") == ""
}
