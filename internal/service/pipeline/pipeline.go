package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/oshokin/geo-guardian/internal/alert"
	"github.com/oshokin/geo-guardian/internal/domain/track"
	"github.com/oshokin/geo-guardian/internal/encoder"
	"github.com/oshokin/geo-guardian/internal/logger"
	"github.com/oshokin/geo-guardian/internal/metrics"
	"github.com/oshokin/geo-guardian/internal/repository/events"
	"github.com/oshokin/geo-guardian/internal/scorer"
	"github.com/oshokin/geo-guardian/internal/tracker"
)

// EventStore persists derived events.
type EventStore interface {
	Create(ctx context.Context, record *events.Record) error
}

// Geocoder resolves coordinates into addresses, best-effort.
type Geocoder interface {
	Reverse(ctx context.Context, lat, lon float64) (string, error)
}

// Alerter runs the confirmation workflow: opening sessions for anomalous
// events and resolving inbound replies.
type Alerter interface {
	Trigger(ctx context.Context, responder string, subject *track.DerivedEvent) (*alert.Session, error)
	HandleReply(ctx context.Context, from, body string) (*alert.Session, error)
}

// Pipeline runs derive, encode, score, persist and alert for every ingested
// report. Persistence of each derived event is the primary obligation;
// scoring, geocoding and alerting degrade without blocking it.
type Pipeline struct {
	tracker  *tracker.Tracker
	encoder  *encoder.Encoder
	ensemble *scorer.Ensemble
	store    EventStore
	geocoder Geocoder
	alerter  Alerter

	// responder receives confirmation prompts for anomalous events.
	responder string
	// utcOffset localizes stored timestamps; same fixed offset the
	// encoder uses.
	utcOffset time.Duration
	// collaboratorTimeout bounds each outbound collaborator call.
	collaboratorTimeout time.Duration
}

// Options carries the pipeline's collaborators and fixed settings.
type Options struct {
	Tracker             *tracker.Tracker
	Encoder             *encoder.Encoder
	Ensemble            *scorer.Ensemble
	Store               EventStore
	Geocoder            Geocoder
	Alerter             Alerter
	Responder           string
	UTCOffsetMinutes    int
	CollaboratorTimeout time.Duration
}

// New wires the pipeline from its collaborators.
func New(opts Options) *Pipeline {
	return &Pipeline{
		tracker:             opts.Tracker,
		encoder:             opts.Encoder,
		ensemble:            opts.Ensemble,
		store:               opts.Store,
		geocoder:            opts.Geocoder,
		alerter:             opts.Alerter,
		responder:           opts.Responder,
		utcOffset:           time.Duration(opts.UTCOffsetMinutes) * time.Minute,
		collaboratorTimeout: opts.CollaboratorTimeout,
	}
}

// Ingest processes one decoded report through the full pipeline.
// It returns an error only when event derivation itself fails; collaborator
// failures afterwards are logged and degrade to fallback values so the
// report is still acknowledged.
func (p *Pipeline) Ingest(ctx context.Context, report *track.Report) error {
	start := time.Now()
	defer func() {
		metrics.IngestDuration.Observe(time.Since(start).Seconds())
	}()

	metrics.ReportsReceived.WithLabelValues(string(report.Kind)).Inc()

	derived, err := p.tracker.Process(ctx, report)
	if err != nil {
		if len(derived) == 0 {
			return fmt.Errorf("derive events: %w", err)
		}

		// Membership write failed but the events are sound; degrade.
		metrics.CollaboratorFailures.WithLabelValues("membership").Inc()
		logger.Errorf(ctx, "Membership update failed, continuing with derived events: %v", err)
	}

	for i := range derived {
		p.processEvent(ctx, &derived[i])
	}

	return nil
}

// HandleReply forwards an inbound responder reply to the alert workflow.
// The workflow may return a session together with an error when the
// transition happened but a side effect failed; both are passed through.
func (p *Pipeline) HandleReply(ctx context.Context, from, body string) (*alert.Session, error) {
	session, err := p.alerter.HandleReply(ctx, from, body)
	if session != nil {
		metrics.AlertTransitions.WithLabelValues(string(session.Status)).Inc()
	}

	return session, err
}

// processEvent scores, enriches, persists and possibly alerts for one
// derived event. Each step degrades independently.
func (p *Pipeline) processEvent(ctx context.Context, event *track.DerivedEvent) {
	metrics.EventsDerived.WithLabelValues(eventLabel(event.Event)).Inc()

	verdict := p.score(ctx, event)
	metrics.Verdicts.WithLabelValues(string(verdict.Combined)).Inc()

	record := &events.Record{
		DeviceID:  event.DeviceID,
		Lat:       event.Lat,
		Lon:       event.Lon,
		Timestamp: event.Timestamp.UTC().Add(p.utcOffset).Format(events.TimestampLayout),
		Event:     string(event.Event),
		Zone:      event.Zone,
		Anomaly:   string(verdict.Combined),
		Address:   p.reverseGeocode(ctx, event),
	}

	storeCtx, cancel := context.WithTimeout(ctx, p.collaboratorTimeout)
	defer cancel()

	if err := p.store.Create(storeCtx, record); err != nil {
		metrics.CollaboratorFailures.WithLabelValues("persistence").Inc()
		logger.Errorf(ctx, "Failed to persist derived event: %v", err)
	}

	if verdict.Combined != scorer.OutcomeAnomalous {
		return
	}

	logger.WarnKV(ctx, "Anomalous event detected",
		"device", event.DeviceID,
		"event", eventLabel(event.Event),
		"zone", event.Zone,
		"spatial", verdict.SpatialAnomalous,
		"temporal", verdict.TemporalAnomalous,
	)

	alertCtx, cancelAlert := context.WithTimeout(ctx, p.collaboratorTimeout)
	defer cancelAlert()

	session, err := p.alerter.Trigger(alertCtx, p.responder, event)
	if err != nil {
		metrics.CollaboratorFailures.WithLabelValues("notification").Inc()
		logger.Errorf(ctx, "Failed to dispatch alert prompt: %v", err)
	}

	if session != nil {
		metrics.AlertTransitions.WithLabelValues(string(session.Status)).Inc()
	}
}

// score encodes and classifies one event. Any failure yields the unknown
// verdict instead of an error.
func (p *Pipeline) score(ctx context.Context, event *track.DerivedEvent) scorer.Verdict {
	vector, err := p.encoder.Encode(event)
	if err != nil {
		logger.Errorf(ctx, "Failed to encode event: %v", err)

		return scorer.Verdict{Combined: scorer.OutcomeUnknown}
	}

	return p.ensemble.Score(ctx, vector)
}

// reverseGeocode resolves the event address, best-effort.
func (p *Pipeline) reverseGeocode(ctx context.Context, event *track.DerivedEvent) string {
	if p.geocoder == nil {
		return ""
	}

	geoCtx, cancel := context.WithTimeout(ctx, p.collaboratorTimeout)
	defer cancel()

	address, err := p.geocoder.Reverse(geoCtx, event.Lat, event.Lon)
	if err != nil {
		metrics.CollaboratorFailures.WithLabelValues("geocoding").Inc()
		logger.Warnf(ctx, "Reverse geocoding failed: %v", err)

		return ""
	}

	return address
}

// eventLabel names baseline observations in logs and metrics.
func eventLabel(kind track.EventKind) string {
	if kind == track.EventNone {
		return "observation"
	}

	return string(kind)
}
