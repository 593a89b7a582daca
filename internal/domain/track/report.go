package track

import "time"

// ReportKind is the transport-level type of a device message.
type ReportKind string

const (
	// ReportKindLocation is a periodic position snapshot including the
	// full set of regions the device is currently inside.
	ReportKindLocation ReportKind = "location"
	// ReportKindTransition is a device-asserted geofence crossing.
	ReportKindTransition ReportKind = "transition"
)

// EventKind is the semantic movement captured by a derived event.
type EventKind string

const (
	// EventEnter marks arrival inside a zone.
	EventEnter EventKind = "enter"
	// EventLeave marks departure from a zone.
	EventLeave EventKind = "leave"
	// EventNone is the baseline observation emitted for every location
	// snapshot regardless of zone changes.
	EventNone EventKind = ""
)

// Report is a decoded device message. Immutable once received.
type Report struct {
	// DeviceID identifies the reporting device.
	DeviceID string
	// Kind tells whether this is a snapshot or an asserted transition.
	Kind ReportKind
	// Lat and Lon are the reported coordinates in degrees.
	Lat float64
	Lon float64
	// Timestamp is when the device recorded the report.
	Timestamp time.Time
	// Event is the asserted crossing for transition reports.
	Event EventKind
	// ZoneDesc is the zone named by a transition report, if any.
	ZoneDesc string
	// Regions is the set of zones the device says it is inside.
	// Absent on the wire decodes as empty, never as unknown.
	Regions []string
	// Battery is the device battery percentage, zero when unreported.
	Battery int
}

// DerivedEvent is one synthesized movement record produced from a report.
type DerivedEvent struct {
	// DeviceID identifies the device the event belongs to.
	DeviceID string
	// Lat and Lon are carried over from the originating report.
	Lat float64
	Lon float64
	// Timestamp is carried over from the originating report.
	Timestamp time.Time
	// Event is enter, leave, or EventNone for a baseline observation.
	Event EventKind
	// Zone is the geofence the event refers to, empty for observations.
	Zone string
}

// Clone returns a copy of the event to avoid leaking internal references.
func (e *DerivedEvent) Clone() *DerivedEvent {
	if e == nil {
		return nil
	}

	cloned := *e

	return &cloned
}
