package geolib

import (
	"encoding/json"
	"errors"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/qri-io/jsonschema"
)

const (
	SessionCookieName = "whereabouts_session"

	httpRequestTimeout = time.Minute
)

var handlePostRequestJSONSchema = func() *jsonschema.Schema {
	data := `{
        "type": "object",
        "required": [
            "inputs"
        ],
        "additionalProperties": false,
        "properties": {
            "inputs": {
                "type": "array",
                "minItems": 1,
                "items": {
                    "type": "object",
                    "additionalProperties": false,
                    "properties": {
                        "ip": {
                            "type": "string",
                            "maxLength": 39
                        },
                        "descriptor": {
                            "type": "object",
                            "additionalProperties": false,
                            "properties": {
                                "street": {"type": "string"},
                                "city": {"type": "string"},
                                "state": {"type": "string"},
                                "zipcode": {"type": "string"},
                                "country": {"type": "string"},
                                "country_code": {"type": "string"},
                                "country_iso3": {"type": "string"},
                                "location": {"type": "string"},
                                "ip": {"type": "string", "maxLength": 39}
                            }
                        }
                    }
                }
            },
            "return_simple": {
                "type": "boolean"
            }
        }
    }`

	rv := &jsonschema.Schema{}
	if err := json.Unmarshal([]byte(data), rv); err != nil {
		panic(err)
	}

	return rv
}()

type handlePostRequest struct {
	Inputs       []Input `json:"inputs"`
	ReturnSimple *bool   `json:"return_simple"`
}

type handleResolveResponseItem struct {
	Input      Input             `json:"input"`
	Location   *ResolvedLocation `json:"location"`
	Error      string            `json:"error,omitempty"`
	RetryAfter float64           `json:"retry_after,omitempty"`
}

type httpHandler struct {
	resolver *LocationResolver
	manager  *LocationManager
	visitors *VisitorLocationStore
	robots   *RobotLedger
	sessions *SessionRegistry
}

func (h httpHandler) handleSelf(w http.ResponseWriter, req *http.Request) {
	session := h.session(w, req)
	traffic := NewTrafficRequest(req)

	if _, err := h.manager.Manage(req.Context(), session, traffic, nil); err != nil {
		if _, ok := IsRateLimited(err); !ok {
			h.sendError(w, err, "Cannot manage visitor location", 0)

			return
		}
	}

	opts := DefaultResolveOptions()
	opts.Session = session
	opts.Traffic = &traffic

	resolved, err := h.resolver.Resolve(req.Context(), Input{}, opts)
	if err != nil {
		h.sendResolveError(w, err)

		return
	}

	response := struct {
		Result ResolvedLocation `json:"result"`
	}{
		Result: resolved,
	}

	h.encodeJSON(w, response)
}

func (h httpHandler) handleResolve(w http.ResponseWriter, req *http.Request) {
	if !strings.Contains(req.Header.Get("Content-Type"), "application/json") {
		h.sendError(w, nil, "Incorrect content type", http.StatusUnsupportedMediaType)

		return
	}

	bodyBytes, err := io.ReadAll(req.Body)

	req.Body.Close()

	if err != nil {
		h.sendError(w, err, "Cannot read request body", http.StatusBadRequest)

		return
	}

	errs, err := handlePostRequestJSONSchema.ValidateBytes(req.Context(), bodyBytes)
	if err != nil {
		h.sendError(w, err, "Cannot validate body", http.StatusBadRequest)

		return
	}

	if len(errs) > 0 {
		h.sendError(w, errs[0], "Invalid request body", http.StatusBadRequest)

		return
	}

	parsedRequest := &handlePostRequest{}
	if err := json.Unmarshal(bodyBytes, parsedRequest); err != nil {
		h.sendError(w, err, "Cannot parse request JSON", http.StatusBadRequest)

		return
	}

	traffic := NewTrafficRequest(req)
	opts := DefaultResolveOptions()
	opts.Session = h.session(w, req)
	opts.Traffic = &traffic

	if parsedRequest.ReturnSimple != nil {
		opts.ReturnSimple = *parsedRequest.ReturnSimple
	}

	results, err := h.resolver.ResolveAll(req.Context(), parsedRequest.Inputs, opts)
	if err != nil {
		h.sendError(w, err, "Cannot resolve given inputs", 0)

		return
	}

	response := struct {
		Results []handleResolveResponseItem `json:"results"`
	}{
		Results: make([]handleResolveResponseItem, len(results)),
	}

	for i, v := range results {
		item := &response.Results[i]
		item.Input = v.Input
		item.Location = v.Location

		if v.Err != nil {
			item.Error = v.Err.Error()

			if rateLimited, ok := IsRateLimited(v.Err); ok {
				item.RetryAfter = rateLimited.Delay.Seconds()
			}
		}
	}

	h.encodeJSON(w, response)
}

func (h httpHandler) handleVisitors(w http.ResponseWriter, req *http.Request) {
	limit, err := h.limit(req)
	if err != nil {
		h.sendError(w, err, "Incorrect limit", http.StatusBadRequest)

		return
	}

	response := struct {
		Results []VisitorRecord `json:"results"`
	}{
		Results: h.visitors.Snapshot(req.Context(), limit),
	}

	h.encodeJSON(w, response)
}

func (h httpHandler) handleRobots(w http.ResponseWriter, req *http.Request) {
	limit, err := h.limit(req)
	if err != nil {
		h.sendError(w, err, "Incorrect limit", http.StatusBadRequest)

		return
	}

	response := struct {
		Results []RobotEntry `json:"results"`
	}{
		Results: h.robots.Snapshot(req.Context(), limit),
	}

	h.encodeJSON(w, response)
}

func (h httpHandler) handleAccuracy(w http.ResponseWriter, _ *http.Request) {
	type accuracyItem struct {
		ID   uint8          `json:"id"`
		Name AccuracySource `json:"name"`
	}

	response := struct {
		Results []accuracyItem `json:"results"`
	}{}

	for _, v := range AccuracySources() {
		response.Results = append(response.Results, accuracyItem{ID: uint8(v), Name: v})
	}

	h.encodeJSON(w, response)
}

func (h httpHandler) handleStats(w http.ResponseWriter, _ *http.Request) {
	response := struct {
		Results []*UsageStats `json:"results"`
	}{
		Results: h.resolver.Stats(),
	}

	h.encodeJSON(w, response)
}

func (h httpHandler) limit(req *http.Request) (int, error) {
	value := req.URL.Query().Get("limit")
	if value == "" {
		return 0, nil
	}

	limit, err := strconv.Atoi(value)
	if err == nil && limit < 0 {
		err = strconv.ErrRange
	}

	return limit, err
}

func (h httpHandler) session(w http.ResponseWriter, req *http.Request) *Session {
	if cookie, err := req.Cookie(SessionCookieName); err == nil {
		if _, err := uuid.Parse(cookie.Value); err == nil {
			return h.sessions.Get(cookie.Value)
		}
	}

	id := uuid.New().String()

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	return h.sessions.Get(id)
}

func (h httpHandler) encodeJSON(w http.ResponseWriter, data interface{}) {
	encoder := json.NewEncoder(w)

	w.Header().Set("Content-Type", "application/json")
	encoder.SetEscapeHTML(false)
	encoder.Encode(data) // nolint: errcheck
}

func (h httpHandler) sendResolveError(w http.ResponseWriter, err error) {
	if rateLimited, ok := IsRateLimited(err); ok {
		retryAfter := int(math.Ceil(rateLimited.Delay.Seconds()))

		w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
		h.sendError(w, err, "Geocoding service is rate limited", http.StatusTooManyRequests)

		return
	}

	if errors.Is(err, ErrNotFound) {
		h.sendError(w, err, "Cannot resolve location", http.StatusNotFound)

		return
	}

	h.sendError(w, err, "Cannot resolve location", 0)
}

func (h httpHandler) sendError(w http.ResponseWriter, err error, message string, statusCode int) {
	e := &httpError{
		message:    message,
		statusCode: statusCode,
		err:        err,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.StatusCode())
	json.NewEncoder(w).Encode(e) // nolint: errcheck
}

// NewHTTPHandler returns an HTTP API over resolver and logs.
func NewHTTPHandler(resolver *LocationResolver,
	manager *LocationManager,
	visitors *VisitorLocationStore,
	robots *RobotLedger,
	sessions *SessionRegistry) http.Handler {
	handler := httpHandler{
		resolver: resolver,
		manager:  manager,
		visitors: visitors,
		robots:   robots,
		sessions: sessions,
	}
	router := chi.NewRouter()

	router.Use(middleware.StripSlashes)
	router.Use(middleware.Timeout(httpRequestTimeout))
	router.Use(middleware.Recoverer)

	router.Get("/", handler.handleSelf)
	router.Post("/resolve", handler.handleResolve)
	router.Get("/visitors", handler.handleVisitors)
	router.Get("/robots_log", handler.handleRobots)
	router.Get("/accuracy", handler.handleAccuracy)
	router.Get("/stats", handler.handleStats)

	return router
}
