package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/geo-guardian/internal/alert"
	"github.com/oshokin/geo-guardian/internal/domain/track"
	"github.com/oshokin/geo-guardian/internal/encoder"
	"github.com/oshokin/geo-guardian/internal/repository/events"
	"github.com/oshokin/geo-guardian/internal/repository/membership"
	"github.com/oshokin/geo-guardian/internal/scorer"
	"github.com/oshokin/geo-guardian/internal/tracker"
)

const testResponder = "+5491100000000"

var (
	errTestStore    = errors.New("test store error")
	errTestGeocoder = errors.New("test geocoder error")
)

// memoryStore is an in-memory EventStore.
type memoryStore struct {
	mu      sync.Mutex
	records []events.Record
	err     error
}

func (s *memoryStore) Create(_ context.Context, record *events.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.err != nil {
		return s.err
	}

	record.ID = int64(len(s.records) + 1)
	s.records = append(s.records, *record)

	return nil
}

func (s *memoryStore) stored() []events.Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]events.Record(nil), s.records...)
}

// stubGeocoder returns a fixed address or error.
type stubGeocoder struct {
	address string
	err     error
}

func (g *stubGeocoder) Reverse(context.Context, float64, float64) (string, error) {
	return g.address, g.err
}

// stubAlerter records Trigger calls and answers HandleReply.
type stubAlerter struct {
	mu       sync.Mutex
	subjects []track.DerivedEvent
	session  *alert.Session
	replyErr error
}

func (a *stubAlerter) Trigger(_ context.Context, _ string, subject *track.DerivedEvent) (*alert.Session, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.subjects = append(a.subjects, *subject)

	return &alert.Session{ID: "s1", Status: alert.StatusPending, Subject: subject.Clone()}, nil
}

func (a *stubAlerter) HandleReply(context.Context, string, string) (*alert.Session, error) {
	if a.replyErr != nil {
		return nil, a.replyErr
	}

	return a.session, nil
}

func (a *stubAlerter) triggered() []track.DerivedEvent {
	a.mu.Lock()
	defer a.mu.Unlock()

	return append([]track.DerivedEvent(nil), a.subjects...)
}

// stubClassifier is a fixed-outcome classifier.
type stubClassifier struct {
	flag bool
	err  error
}

func (s *stubClassifier) Score(encoder.FeatureVector) (bool, error) {
	return s.flag, s.err
}

// newTestPipeline assembles a pipeline with a real tracker and encoder and
// the provided stubs.
func newTestPipeline(t *testing.T, store EventStore, geo Geocoder, alerter Alerter, spatial, temporal scorer.Classifier) *Pipeline {
	t.Helper()

	table, err := encoder.NewTable(
		map[string]int{"enter": 0, "leave": 1, encoder.SentinelEvent: 2},
		map[string]int{"casa": 0, encoder.SentinelZone: 1},
	)
	require.NoError(t, err)

	return New(Options{
		Tracker:             tracker.New(membership.NewMemoryRepository()),
		Encoder:             encoder.New(table, -180),
		Ensemble:            scorer.NewEnsemble(spatial, temporal),
		Store:               store,
		Geocoder:            geo,
		Alerter:             alerter,
		Responder:           testResponder,
		UTCOffsetMinutes:    -180,
		CollaboratorTimeout: time.Second,
	})
}

// locationReport builds a snapshot report for the tests.
func locationReport(regions ...string) *track.Report {
	return &track.Report{
		DeviceID:  "ab",
		Kind:      track.ReportKindLocation,
		Lat:       -34.6,
		Lon:       -58.4,
		Timestamp: time.Unix(1700000000, 0).UTC(),
		Regions:   regions,
	}
}

// TestIngest_PersistsEveryDerivedEvent stores the enter and the baseline
// observation of a first snapshot, with addresses and verdicts attached.
func TestIngest_PersistsEveryDerivedEvent(t *testing.T) {
	t.Parallel()

	store := new(memoryStore)
	alerter := new(stubAlerter)
	p := newTestPipeline(t, store, &stubGeocoder{address: "Av. Corrientes 1234"}, alerter,
		&stubClassifier{}, &stubClassifier{})

	require.NoError(t, p.Ingest(context.Background(), locationReport("Casa")))

	records := store.stored()
	require.Len(t, records, 2)

	for _, record := range records {
		require.Equal(t, "ab", record.DeviceID)
		require.Equal(t, string(scorer.OutcomeNormal), record.Anomaly)
		require.Equal(t, "Av. Corrientes 1234", record.Address)
		// Fixed UTC-3 localization of 2023-11-14 22:13:20 UTC.
		require.Equal(t, "2023-11-14 19:13:20", record.Timestamp)
	}

	require.Empty(t, alerter.triggered())
}

// TestIngest_AnomalousEventOpensAlert triggers exactly one alert for a
// transition report flagged by the spatial classifier.
func TestIngest_AnomalousEventOpensAlert(t *testing.T) {
	t.Parallel()

	store := new(memoryStore)
	alerter := new(stubAlerter)
	p := newTestPipeline(t, store, nil, alerter, &stubClassifier{flag: true}, &stubClassifier{})

	report := &track.Report{
		DeviceID:  "ab",
		Kind:      track.ReportKindTransition,
		Lat:       -34.6,
		Lon:       -58.4,
		Timestamp: time.Unix(1700000000, 0).UTC(),
		Event:     track.EventLeave,
		ZoneDesc:  "Casa",
	}

	require.NoError(t, p.Ingest(context.Background(), report))

	require.Len(t, store.stored(), 1)
	require.Equal(t, string(scorer.OutcomeAnomalous), store.stored()[0].Anomaly)

	triggered := alerter.triggered()
	require.Len(t, triggered, 1)
	require.Equal(t, track.EventLeave, triggered[0].Event)
	require.Equal(t, "Casa", triggered[0].Zone)
}

// TestIngest_ClassifierFailureStoresUnknown persists the event with an
// unknown verdict and opens no alert.
func TestIngest_ClassifierFailureStoresUnknown(t *testing.T) {
	t.Parallel()

	store := new(memoryStore)
	alerter := new(stubAlerter)
	p := newTestPipeline(t, store, nil, alerter,
		&stubClassifier{err: errors.New("broken model")}, &stubClassifier{})

	require.NoError(t, p.Ingest(context.Background(), locationReport()))

	records := store.stored()
	require.Len(t, records, 1)
	require.Equal(t, string(scorer.OutcomeUnknown), records[0].Anomaly)
	require.Empty(t, alerter.triggered())
}

// TestIngest_StoreFailureStillAcknowledged keeps ingestion successful when
// persistence degrades.
func TestIngest_StoreFailureStillAcknowledged(t *testing.T) {
	t.Parallel()

	store := &memoryStore{err: errTestStore}
	p := newTestPipeline(t, store, nil, new(stubAlerter), &stubClassifier{}, &stubClassifier{})

	require.NoError(t, p.Ingest(context.Background(), locationReport("Casa")))
}

// TestIngest_GeocoderFailureMeansEmptyAddress degrades enrichment only.
func TestIngest_GeocoderFailureMeansEmptyAddress(t *testing.T) {
	t.Parallel()

	store := new(memoryStore)
	p := newTestPipeline(t, store, &stubGeocoder{err: errTestGeocoder}, new(stubAlerter),
		&stubClassifier{}, &stubClassifier{})

	require.NoError(t, p.Ingest(context.Background(), locationReport()))

	records := store.stored()
	require.Len(t, records, 1)
	require.Empty(t, records[0].Address)
}

// TestHandleReply_Passthrough forwards replies to the workflow.
func TestHandleReply_Passthrough(t *testing.T) {
	t.Parallel()

	alerter := &stubAlerter{session: &alert.Session{ID: "s1", Status: alert.StatusConfirmed}}
	p := newTestPipeline(t, new(memoryStore), nil, alerter, &stubClassifier{}, &stubClassifier{})

	session, err := p.HandleReply(context.Background(), testResponder, "si")
	require.NoError(t, err)
	require.Equal(t, alert.StatusConfirmed, session.Status)

	alerter.replyErr = alert.ErrNoPendingSession
	_, err = p.HandleReply(context.Background(), testResponder, "si")
	require.ErrorIs(t, err, alert.ErrNoPendingSession)
}
