package encoder

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oshokin/geo-guardian/internal/domain/track"
)

const (
	// SentinelEvent is the category standing in for an absent event.
	SentinelEvent = "no-event"
	// SentinelZone is the category standing in for an absent zone.
	SentinelZone = "no-zone"
)

var (
	// ErrNilEvent is returned when there is nothing to encode.
	ErrNilEvent = errors.New("derived event is not set")
	// errSentinelMissing is returned when a table lacks its sentinel category.
	errSentinelMissing = errors.New("encoding table is missing its sentinel category")
)

// FeatureVector is the fixed numeric representation of one derived event,
// in the column order the classifiers were trained with.
type FeatureVector struct {
	// Lat and Lon are raw coordinates in degrees.
	Lat float64
	Lon float64
	// HourOfDay is the local hour plus fractional minutes, in [0, 24).
	HourOfDay float64
	// Weekday is the local day of week, Monday=0 through Sunday=6.
	Weekday int
	// EventCode and ZoneCode are closed-table categorical codes.
	EventCode int
	ZoneCode  int
}

// Values returns the vector as a slice in training column order.
func (v FeatureVector) Values() []float64 {
	return []float64{v.Lat, v.Lon, v.HourOfDay, float64(v.Weekday), float64(v.EventCode), float64(v.ZoneCode)}
}

// Table maps categorical strings to the integer codes fixed at training time.
// Unknown strings resolve to the sentinel category's code, never an error.
type Table struct {
	// events and zones are the closed category-to-code mappings.
	events map[string]int
	zones  map[string]int
	// eventFallback and zoneFallback are the sentinel codes.
	eventFallback int
	zoneFallback  int
}

// NewTable builds a closed encoding table. Both mappings must include their
// sentinel category so unseen strings have a code to fall back to.
func NewTable(events, zones map[string]int) (*Table, error) {
	eventFallback, ok := events[SentinelEvent]
	if !ok {
		return nil, fmt.Errorf("events: %w", errSentinelMissing)
	}

	zoneFallback, ok := zones[SentinelZone]
	if !ok {
		return nil, fmt.Errorf("zones: %w", errSentinelMissing)
	}

	return &Table{
		events:        events,
		zones:         zones,
		eventFallback: eventFallback,
		zoneFallback:  zoneFallback,
	}, nil
}

// EventCode resolves the code for an event category.
func (t *Table) EventCode(category string) int {
	if code, ok := t.events[category]; ok {
		return code
	}

	return t.eventFallback
}

// ZoneCode resolves the code for a zone category.
func (t *Table) ZoneCode(category string) int {
	if code, ok := t.zones[category]; ok {
		return code
	}

	return t.zoneFallback
}

// Encoder maps derived events onto feature vectors. It is pure and
// deterministic: the table and the UTC offset are fixed at construction.
type Encoder struct {
	// table holds the categorical codes.
	table *Table
	// offset is the fixed local-time offset. No DST adjustment; the
	// classifiers were fitted against this same fixed convention.
	offset time.Duration
}

// New creates an encoder using the provided table and fixed UTC offset.
func New(table *Table, utcOffsetMinutes int) *Encoder {
	return &Encoder{
		table:  table,
		offset: time.Duration(utcOffsetMinutes) * time.Minute,
	}
}

// Encode converts a derived event into its feature vector.
func (e *Encoder) Encode(event *track.DerivedEvent) (FeatureVector, error) {
	if event == nil {
		return FeatureVector{}, ErrNilEvent
	}

	local := event.Timestamp.UTC().Add(e.offset)

	return FeatureVector{
		Lat:       event.Lat,
		Lon:       event.Lon,
		HourOfDay: float64(local.Hour()) + float64(local.Minute())/60,
		Weekday:   mondayIndex(local.Weekday()),
		EventCode: e.table.EventCode(eventCategory(event.Event)),
		ZoneCode:  e.table.ZoneCode(zoneCategory(event.Zone)),
	}, nil
}

// mondayIndex converts Go's Sunday-first weekday to Monday=0..Sunday=6,
// matching the training-time convention.
func mondayIndex(d time.Weekday) int {
	return (int(d) + 6) % 7
}

// eventCategory normalizes a derived event kind to its table category.
func eventCategory(kind track.EventKind) string {
	if kind == track.EventNone {
		return SentinelEvent
	}

	return strings.ToLower(string(kind))
}

// zoneCategory normalizes a zone name to its table category.
func zoneCategory(zone string) string {
	if zone == "" {
		return SentinelZone
	}

	return strings.ToLower(zone)
}
