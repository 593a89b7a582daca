// Package geocoder is the best-effort reverse-geocoding collaborator.
// Failures degrade to an empty address and never touch the critical path.
package geocoder
