package track

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrUnrecognizedKind is returned for messages whose _type is outside
	// the recognized set. Callers acknowledge and otherwise ignore them.
	ErrUnrecognizedKind = errors.New("unrecognized report type")
	// ErrMissingCoordinates is returned when a location report lacks
	// lat or lon. Such reports are rejected with no side effects.
	ErrMissingCoordinates = errors.New("location report requires lat and lon")
)

// payload mirrors the OwnTracks JSON message as it arrives on the wire.
// Coordinates are pointers so that absent fields can be told apart from zero.
type payload struct {
	Type      string    `json:"_type"`
	TrackerID string    `json:"tid"`
	Lat       *float64  `json:"lat"`
	Lon       *float64  `json:"lon"`
	Timestamp int64     `json:"tst"`
	Event     string    `json:"event"`
	Desc      string    `json:"desc"`
	InRegions []string  `json:"inregions"`
	Battery   int       `json:"batt"`
}

// DecodeReport parses an OwnTracks JSON message into a Report.
// Messages of an unrecognized _type yield ErrUnrecognizedKind; location
// messages without coordinates yield ErrMissingCoordinates.
func DecodeReport(data []byte) (*Report, error) {
	var p payload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("decode report: %w", err)
	}

	kind := ReportKind(p.Type)
	if kind != ReportKindLocation && kind != ReportKindTransition {
		return nil, ErrUnrecognizedKind
	}

	if kind == ReportKindLocation && (p.Lat == nil || p.Lon == nil) {
		return nil, ErrMissingCoordinates
	}

	report := &Report{
		DeviceID:  p.TrackerID,
		Kind:      kind,
		Timestamp: time.Unix(p.Timestamp, 0).UTC(),
		Event:     EventKind(p.Event),
		ZoneDesc:  p.Desc,
		Regions:   p.InRegions,
		Battery:   p.Battery,
	}

	if p.Lat != nil {
		report.Lat = *p.Lat
	}

	if p.Lon != nil {
		report.Lon = *p.Lon
	}

	return report, nil
}
