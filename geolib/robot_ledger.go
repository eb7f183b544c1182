package geolib

import (
	"context"
	"strings"
	"time"

	"github.com/mileusna/useragent"
)

// NoUserAgent is recorded for robots which have not sent User-Agent.
const NoUserAgent = "no UA header provided"

// RobotLedger remembers IPs which were classified as robots. It has the
// same discipline as VisitorLocationStore but a touch refreshes a
// record.
type RobotLedger struct {
	ledger *boundedLedger[RobotRecord]
}

func (r *RobotLedger) Enabled() bool {
	return r.ledger.Enabled()
}

func (r *RobotLedger) Contains(ctx context.Context, ip string) bool {
	_, ok := r.ledger.Get(ctx, ip)

	return ok
}

func (r *RobotLedger) Get(ctx context.Context, ip string) (RobotRecord, bool) {
	return r.ledger.Get(ctx, ip)
}

func (r *RobotLedger) Touch(ctx context.Context, ip, userAgent string, now time.Time) error {
	record := RobotRecord{
		UserAgent: userAgent,
		LastVisit: now,
	}

	if userAgent == "" || userAgent == NoUserAgent {
		record.UserAgent = NoUserAgent
	} else {
		parsed := useragent.Parse(userAgent)
		record.Client = describeClient(parsed)
		record.KnownBot = parsed.Bot
	}

	_, err := r.ledger.Touch(ctx, ip, record, false)

	return err
}

func describeClient(ua useragent.UserAgent) string {
	parts := make([]string, 0, 3)

	for _, v := range []string{ua.Name, ua.Version, ua.OS} {
		if v != "" {
			parts = append(parts, v)
		}
	}

	return strings.Join(parts, " ")
}

// RobotEntry is a snapshot item of RobotLedger.
type RobotEntry struct {
	IP     string      `json:"ip"`
	Record RobotRecord `json:"record"`
}

// Snapshot returns up to limit most recent robots, newest first.
func (r *RobotLedger) Snapshot(ctx context.Context, limit int) []RobotEntry {
	entries := r.ledger.Entries(ctx, limit)
	rv := make([]RobotEntry, len(entries))

	for i, v := range entries {
		rv[i] = RobotEntry{IP: v.Key, Record: v.Value}
	}

	return rv
}

func NewRobotLedger(backend BackingStore, maxVisitorCount int, ttl time.Duration, logger Logger) *RobotLedger {
	return &RobotLedger{
		ledger: newBoundedLedger[RobotRecord](RobotLedgerKey,
			maxVisitorCount, ttl, backend, logger),
	}
}
