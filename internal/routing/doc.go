// Package routing plans walking routes over an OSRM-compatible API from the
// stored location history, downsampling overlong coordinate lists first.
package routing
