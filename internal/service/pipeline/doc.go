// Package pipeline orchestrates the derive, encode, score, persist and
// alert flow for every ingested device report.
//
// Durably recording the derived events is the primary obligation; anomaly
// scoring, reverse geocoding and alert dispatch are best-effort enrichments
// bounded by the collaborator timeout.
package pipeline
