package geolib

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"
)

// GeoCodeLimitReached is a status code which geocoding service returns
// if we sent geocodes too fast or exhausted a daily quota.
const GeoCodeLimitReached = 620

// DefaultRateLimitDelay is a delay recommended to the caller after
// geocoding service has responded with GeoCodeLimitReached.
const DefaultRateLimitDelay = 100 * time.Millisecond

var (
	// ErrNotFound means that no coordinate could be determined. This is
	// a legitimate outcome, not a failure.
	ErrNotFound = errors.New("location is not found")

	// ErrNotConfigured is returned if IP geolocation is not configured,
	// for example, a license key is absent.
	ErrNotConfigured = errors.New("ip geolocation is not configured")

	// ErrNoData is returned by backing stores if there is nothing
	// stored under the key.
	ErrNoData = errors.New("no data is stored")

	ErrUnknownAccuracySource = errors.New("unknown accuracy source")
	ErrContextIsClosed       = errors.New("context is closed")
	ErrResolverShutdown      = errors.New("resolver instance was shutdown")
)

// RateLimitedError is returned if geocoding service asked us to back
// off. Callers are responsible for waiting Delay before the next
// attempt.
type RateLimitedError struct {
	Code  int
	Delay time.Duration
}

func (r *RateLimitedError) Error() string {
	return "geocoding service has rate limited us: code " + strconv.Itoa(r.Code) +
		", retry in " + r.Delay.String()
}

// CollaboratorError wraps failures of external services: unreachable
// endpoints, malformed responses and so on.
type CollaboratorError struct {
	Service string
	Err     error
}

func (c *CollaboratorError) Error() string {
	if c.Err == nil {
		return c.Service + " has failed"
	}

	return c.Service + " has failed: " + c.Err.Error()
}

func (c *CollaboratorError) Unwrap() error {
	return c.Err
}

// IsRateLimited checks if error is RateLimitedError and returns it.
func IsRateLimited(err error) (*RateLimitedError, bool) {
	var rateLimited *RateLimitedError

	if errors.As(err, &rateLimited) {
		return rateLimited, true
	}

	return nil, false
}

type jsonHTTPError struct {
	Error struct {
		Message string `json:"message"`
		Context string `json:"context"`
	} `json:"error"`
}

type httpError struct {
	message    string
	err        error
	statusCode int
}

func (h *httpError) Message() string {
	if h == nil {
		return ""
	}

	return h.message
}

func (h *httpError) Err() string {
	if err := errors.Unwrap(h); err != nil {
		return err.Error()
	}

	return ""
}

func (h *httpError) StatusCode() int {
	if h != nil && h.statusCode != 0 {
		return h.statusCode
	}

	return http.StatusInternalServerError
}

func (h *httpError) Unwrap() error {
	if h == nil {
		return nil
	}

	return h.err
}

func (h *httpError) Error() string {
	switch {
	case h == nil:
		return ""
	case h.err != nil && h.message != "":
		return h.message + ": " + h.err.Error()
	case h.err != nil:
		return h.err.Error()
	}

	return h.message
}

func (h *httpError) MarshalJSON() ([]byte, error) {
	value := jsonHTTPError{}
	value.Error.Message = h.Message()
	value.Error.Context = h.Err()

	return json.Marshal(&value)
}
