// Package encoder turns derived events into the fixed feature vectors the
// anomaly classifiers consume.
//
// Categorical codes come from a closed table frozen at configuration-load
// time; strings the table has never seen resolve to a sentinel code instead
// of failing. Time features use a fixed UTC offset with no DST handling.
package encoder
