package tracker

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/oshokin/geo-guardian/internal/domain/track"
	"github.com/oshokin/geo-guardian/internal/logger"
	"github.com/oshokin/geo-guardian/internal/repository/membership"
)

// Tracker synthesizes enter/leave/observation events by diffing each
// location snapshot against the device's stored zone membership. It owns
// all membership writes.
type Tracker struct {
	// repo stores per-device membership.
	repo membership.Repository
	// mu protects the locks map.
	mu sync.Mutex
	// locks serializes processing per device so concurrent diffs never
	// run against the same stale membership.
	locks map[string]*sync.Mutex
}

// New creates a tracker backed by the provided membership repository.
func New(repo membership.Repository) *Tracker {
	return &Tracker{
		repo:  repo,
		locks: make(map[string]*sync.Mutex),
	}
}

// Derive computes the events a report produces against prior membership and
// the membership that should be stored afterwards. Pure: no locking, no
// storage access.
//
// For location snapshots: one enter per newly-present zone, one leave per
// newly-absent zone, and always exactly one baseline observation; the new
// membership is the snapshot's region set. For transition reports the
// device is trusted: exactly one event with its asserted kind and zone, and
// membership is left as it was.
func Derive(report *track.Report, prior track.ZoneSet) ([]track.DerivedEvent, track.ZoneSet) {
	if report.Kind == track.ReportKindTransition {
		return []track.DerivedEvent{asserted(report)}, prior
	}

	current := track.NewZoneSet(report.Regions...)

	var events []track.DerivedEvent

	for _, zone := range current.Diff(prior) {
		events = append(events, derived(report, track.EventEnter, zone))
	}

	for _, zone := range prior.Diff(current) {
		events = append(events, derived(report, track.EventLeave, zone))
	}

	// The baseline observation is emitted even when nothing changed.
	events = append(events, derived(report, track.EventNone, ""))

	return events, current
}

// Process derives the report's events against stored membership and updates
// it, serialized per device. A membership write failure still returns the
// derived events along with the error so the caller can degrade instead of
// dropping them.
func (t *Tracker) Process(ctx context.Context, report *track.Report) ([]track.DerivedEvent, error) {
	if report.Kind == track.ReportKindTransition {
		// Transition reports do not touch membership, no lock needed.
		return []track.DerivedEvent{asserted(report)}, nil
	}

	lock := t.deviceLock(report.DeviceID)
	lock.Lock()
	defer lock.Unlock()

	prior, err := t.repo.Get(ctx, report.DeviceID)
	switch {
	case err == nil:
	case errors.Is(err, membership.ErrNotFound):
		// First report for this device: absent membership is the empty
		// set, never "unknown".
		prior = track.NewZoneSet()
	default:
		return nil, fmt.Errorf("load membership: %w", err)
	}

	events, current := Derive(report, prior)

	if err := t.repo.Set(ctx, report.DeviceID, current); err != nil {
		return events, fmt.Errorf("store membership: %w", err)
	}

	if len(events) > 1 {
		logger.InfoKV(ctx, "Zone membership changed",
			"device", report.DeviceID, "zones", current.Names())
	}

	return events, nil
}

// deviceLock returns the mutex serializing one device's reports.
func (t *Tracker) deviceLock(deviceID string) *sync.Mutex {
	t.mu.Lock()
	defer t.mu.Unlock()

	lock, ok := t.locks[deviceID]
	if !ok {
		lock = new(sync.Mutex)
		t.locks[deviceID] = lock
	}

	return lock
}

// asserted builds the single event a transition report carries.
// When the report names no zone, the first reported region stands in.
func asserted(report *track.Report) track.DerivedEvent {
	zone := report.ZoneDesc
	if zone == "" && len(report.Regions) > 0 {
		zone = report.Regions[0]
	}

	return derived(report, report.Event, zone)
}

// derived copies report coordinates and time onto one event.
func derived(report *track.Report, kind track.EventKind, zone string) track.DerivedEvent {
	return track.DerivedEvent{
		DeviceID:  report.DeviceID,
		Lat:       report.Lat,
		Lon:       report.Lon,
		Timestamp: report.Timestamp,
		Event:     kind,
		Zone:      zone,
	}
}
