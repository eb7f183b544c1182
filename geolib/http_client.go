package geolib

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

var errRateLimiterClosed = errors.New("rate limiter wait was interrupted")

type httpClient struct {
	userAgent      string
	client         *http.Client
	rateLimiter    *rate.Limiter
	circuitBreaker *gobreaker.CircuitBreaker
}

type cancelOnCloseBody struct {
	io.ReadCloser

	cancel context.CancelFunc
}

func (c cancelOnCloseBody) Close() error {
	err := c.ReadCloser.Close()

	c.cancel()

	return err
}

func (h httpClient) Do(req *http.Request) (*http.Response, error) {
	var (
		ctx    context.Context
		cancel context.CancelFunc
	)

	if h.client.Timeout > 0 {
		ctx, cancel = context.WithTimeout(req.Context(), h.client.Timeout)
	} else {
		ctx, cancel = context.WithCancel(req.Context())
	}

	if err := h.rateLimiter.Wait(ctx); err != nil {
		cancel()

		return nil, fmt.Errorf("%w: %w", errRateLimiterClosed, err)
	}

	req = req.WithContext(ctx)
	req.Header.Set("User-Agent", h.userAgent)

	value, err := h.circuitBreaker.Execute(func() (interface{}, error) {
		resp, err := h.client.Do(req)
		if err != nil {
			return nil, err
		}

		if resp.StatusCode >= http.StatusBadRequest {
			flushResponse(resp.Body)

			return nil, fmt.Errorf("netloc has responded with %s", resp.Status)
		}

		return resp, nil
	})
	if err != nil {
		cancel()

		return nil, err
	}

	resp := value.(*http.Response)
	resp.Body = cancelOnCloseBody{ReadCloser: resp.Body, cancel: cancel}

	return resp, nil
}

func flushResponse(body io.ReadCloser) {
	io.Copy(io.Discard, body) // nolint: errcheck
	body.Close()
}

// NewHTTPClient prepares a new HTTP client, wraps it with rate limiter,
// circuit breaker, sets a user agent etc.
//
// Please see https://pkg.go.dev/golang.org/x/time/rate to get a meaning
// of rate limiter parameters.
//
// circuitBreakerOpenThreshold is a number of consecutive failures after
// which circuit breaker becomes OPEN and blocks access to a target.
// After circuitBreakerHalfOpenTimeout it goes into HALF_OPEN state and
// allows 1 attempt. If this attempt fails, it is OPEN again, if
// succeeds, it is CLOSED. circuitBreakerResetFailuresTimeout is a
// period of CLOSED state after which failure counter is reset.
func NewHTTPClient(client *http.Client,
	userAgent string,
	rateLimiterInterval time.Duration,
	rateLimitBurst int,
	circuitBreakerOpenThreshold uint32,
	circuitBreakerHalfOpenTimeout, circuitBreakerResetFailuresTimeout time.Duration) HTTPClient {
	return httpClient{
		userAgent:   userAgent,
		client:      client,
		rateLimiter: rate.NewLimiter(rate.Every(rateLimiterInterval), rateLimitBurst),
		circuitBreaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        userAgent,
			MaxRequests: 1,
			Interval:    circuitBreakerResetFailuresTimeout,
			Timeout:     circuitBreakerHalfOpenTimeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures > circuitBreakerOpenThreshold
			},
			IsSuccessful: func(err error) bool {
				return err == nil || errors.Is(err, context.Canceled)
			},
		}),
	}
}
