// Package notifier implements the outbound SMS/voice channel over a
// form-encoded provider HTTP API. Inbound replies arrive on the HTTP
// webhook endpoint, not here.
package notifier
