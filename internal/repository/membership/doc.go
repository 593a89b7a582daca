// Package membership stores each device's current geofence membership behind
// a small Repository interface.
//
// Two implementations exist: an in-process map for single-instance
// deployments and a Redis-backed store that survives restarts. The transition
// tracker owns all writes; nothing else mutates membership.
package membership
