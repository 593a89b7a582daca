// Package track contains core domain types for the location pipeline.
//
// It defines Report (a decoded device message), DerivedEvent (a synthesized
// enter/leave/observation record), ZoneSet (a device's current geofence
// membership) and the OwnTracks wire decoding that produces Reports.
package track
