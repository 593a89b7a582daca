// Package api exposes the HTTP surface of the service: OwnTracks report
// ingestion, location history queries, the notification-gateway reply
// webhook, weekday route planning, health and metrics.
package api
