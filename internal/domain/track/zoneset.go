package track

import "sort"

// ZoneSet is a set of geofence names a device currently occupies.
type ZoneSet map[string]struct{}

// NewZoneSet builds a set from the provided zone names.
func NewZoneSet(zones ...string) ZoneSet {
	s := make(ZoneSet, len(zones))
	for _, z := range zones {
		s[z] = struct{}{}
	}

	return s
}

// Contains reports whether the zone is in the set.
func (s ZoneSet) Contains(zone string) bool {
	_, ok := s[zone]

	return ok
}

// Diff returns the zones present in s but absent from other.
func (s ZoneSet) Diff(other ZoneSet) []string {
	var out []string

	for z := range s {
		if !other.Contains(z) {
			out = append(out, z)
		}
	}

	// Stable output makes logs and tests deterministic; consumers must
	// still treat the events as unordered.
	sort.Strings(out)

	return out
}

// Equal reports whether both sets hold exactly the same zones.
func (s ZoneSet) Equal(other ZoneSet) bool {
	if len(s) != len(other) {
		return false
	}

	for z := range s {
		if !other.Contains(z) {
			return false
		}
	}

	return true
}

// Clone returns a copy of the set to avoid leaking internal references.
func (s ZoneSet) Clone() ZoneSet {
	cloned := make(ZoneSet, len(s))
	for z := range s {
		cloned[z] = struct{}{}
	}

	return cloned
}

// Names returns the zones as a sorted slice.
func (s ZoneSet) Names() []string {
	out := make([]string, 0, len(s))
	for z := range s {
		out = append(out, z)
	}

	sort.Strings(out)

	return out
}
