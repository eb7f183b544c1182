package geolib

import (
	"context"
	"time"
)

const (
	// DefaultMaxVisitorCount is a default capacity of visitor and robot
	// logs. 0 disables visitor logging at all.
	DefaultMaxVisitorCount = 1000

	// DefaultStoreTTL is used for backing stores which support
	// expiration. Snapshot itself never expires.
	DefaultStoreTTL = time.Hour

	VisitorLocationStoreKey = "VisitorLocationLog"
	RobotLedgerKey          = "RobotLog"
)

// VisitorLocationStore is a bounded, recency-ordered log of anonymous
// visitors locations keyed by IP. Most recently touched visitor goes
// first, the oldest one is evicted when capacity is exceeded.
//
// Adding a known IP does not update its location: it only moves the
// entry to the front. A location which was trusted once is not
// overwritten by a possibly stale resolution.
type VisitorLocationStore struct {
	ledger *boundedLedger[VisitorRecord]
}

// Enabled reports if visitor logging is on.
func (v *VisitorLocationStore) Enabled() bool {
	return v.ledger.Enabled()
}

// EnsureLoaded loads a snapshot from the backing store if it was not
// loaded yet.
func (v *VisitorLocationStore) EnsureLoaded(ctx context.Context) {
	v.ledger.EnsureLoaded(ctx)
}

func (v *VisitorLocationStore) Get(ctx context.Context, ip string) (VisitorRecord, bool) {
	return v.ledger.Get(ctx, ip)
}

func (v *VisitorLocationStore) Add(ctx context.Context, ip string, record VisitorRecord) error {
	record.IP = ip
	_, err := v.ledger.Touch(ctx, ip, record, true)

	return err
}

func (v *VisitorLocationStore) Remove(ctx context.Context, ip string) error {
	return v.ledger.Remove(ctx, ip)
}

// Snapshot returns up to limit most recent records. 0 means all of them.
func (v *VisitorLocationStore) Snapshot(ctx context.Context, limit int) []VisitorRecord {
	entries := v.ledger.Entries(ctx, limit)
	rv := make([]VisitorRecord, len(entries))

	for i := range entries {
		rv[i] = entries[i].Value
	}

	return rv
}

func NewVisitorLocationStore(backend BackingStore, maxVisitorCount int, ttl time.Duration, logger Logger) *VisitorLocationStore {
	return &VisitorLocationStore{
		ledger: newBoundedLedger[VisitorRecord](VisitorLocationStoreKey,
			maxVisitorCount, ttl, backend, logger),
	}
}
