package main

import (
	"net"
	"os"

	"github.com/rs/zerolog"

	"github.com/9seconds/whereabouts/geolib"
)

type logger struct {
	lookupLog  zerolog.Logger
	geocodeLog zerolog.Logger
	storeLog   zerolog.Logger
	robotLog   zerolog.Logger
}

func (l *logger) LookupError(ip net.IP, name string, err error) {
	l.lookupLog.Error().Str("provider", name).Stringer("ip", ip).Err(err).Msg("")
}

func (l *logger) GeocodeError(query string, err error) {
	l.geocodeLog.Warn().Str("query", query).Err(err).Msg("")
}

func (l *logger) StoreError(key string, err error) {
	l.storeLog.Error().Str("key", key).Err(err).Msg("")
}

func (l *logger) RobotDetected(ip net.IP, userAgent string) {
	l.robotLog.Debug().Stringer("ip", ip).Str("user_agent", userAgent).Msg("Robot detected")
}

func newLogger(debug bool) geolib.Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}

	base := zerolog.New(os.Stderr).Level(level).With().Timestamp().Stack()

	return &logger{
		lookupLog:  base.Str("event_name", "lookup").Logger(),
		geocodeLog: base.Str("event_name", "geocode").Logger(),
		storeLog:   base.Str("event_name", "store").Logger(),
		robotLog:   base.Str("event_name", "robot").Logger(),
	}
}
