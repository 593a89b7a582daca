// Package tracker diffs location snapshots against stored zone membership
// to synthesize enter, leave and baseline observation events.
//
// Processing is serialized per device; reports for different devices run
// in parallel. Transition reports bypass the diff entirely and never mutate
// membership.
package tracker
