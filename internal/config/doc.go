// Package config defines the server settings and provides helpers to load,
// validate and save them in YAML format.
//
// The Config type enumerates everything the observed deployment hard-coded:
// the fixed timezone offset, the responder and voice-call contacts, the model
// bundle location, and the collaborator endpoints.
package config
