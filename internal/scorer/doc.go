// Package scorer evaluates encoded feature vectors against two independent
// pre-fitted classifiers and reduces their flags with an OR rule.
//
// The spatial-behavioral classifier sees the full vector; the temporal one
// sees only the hour of day. Both arrive in a YAML bundle exported by the
// offline training run, together with the categorical encoding tables.
// Scoring failures produce an unknown verdict instead of an error so that
// event persistence is never blocked.
package scorer
