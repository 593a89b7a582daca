// Package events persists derived location events in sqlite.
//
// Storage is append-only: every derived event is recorded once, scored or
// not, and never updated. Recency queries order by insertion sequence.
package events
