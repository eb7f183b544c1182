package geolib

import (
	"encoding/json"
	"sync"
	"time"
)

// UsageStats counts calls to a single collaborator.
type UsageStats struct {
	Name string

	mutex            sync.Mutex
	lastUsed         time.Time
	successCount     uint64
	failureCount     uint64
	rateLimitedCount uint64
}

// Used registers a call which ended up with err.
func (u *UsageStats) Used(err error) {
	now := time.Now()

	u.mutex.Lock()
	defer u.mutex.Unlock()

	u.lastUsed = now

	_, rateLimited := IsRateLimited(err)

	switch {
	case err == nil:
		u.successCount++
	case rateLimited:
		u.rateLimitedCount++
	default:
		u.failureCount++
	}
}

func (u *UsageStats) MarshalJSON() ([]byte, error) {
	var lastUsedTime int64

	u.mutex.Lock()

	if !u.lastUsed.IsZero() {
		lastUsedTime = u.lastUsed.Unix()
	}

	rawStruct := struct {
		Name             string `json:"name"`
		LastUsed         int64  `json:"last_used"`
		SuccessCount     uint64 `json:"success_count"`
		FailureCount     uint64 `json:"failure_count"`
		RateLimitedCount uint64 `json:"rate_limited_count"`
	}{
		Name:             u.Name,
		LastUsed:         lastUsedTime,
		SuccessCount:     u.successCount,
		FailureCount:     u.failureCount,
		RateLimitedCount: u.rateLimitedCount,
	}

	u.mutex.Unlock()

	return json.Marshal(&rawStruct)
}
