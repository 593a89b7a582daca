// Package mqtt subscribes to an OwnTracks MQTT topic and feeds decoded
// reports into the same pipeline as HTTP ingestion.
package mqtt
