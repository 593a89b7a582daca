package tracker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/geo-guardian/internal/domain/track"
	"github.com/oshokin/geo-guardian/internal/repository/membership"
)

var errTestStore = errors.New("test store error")

// locationReport builds a snapshot report inside the given regions.
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

// kinds extracts (event, zone) pairs for compact assertions.
func kinds(events []track.DerivedEvent) map[track.EventKind][]string {
	out := make(map[track.EventKind][]string)
	for _, e := range events {
		out[e.Event] = append(out[e.Event], e.Zone)
	}

	return out
}

// TestDerive_FirstReport covers the first-ever snapshot with one region.
func TestDerive_FirstReport(t *testing.T) {
	t.Parallel()

	events, current := Derive(locationReport("Casa"), track.NewZoneSet())

	require.Len(t, events, 2)
	byKind := kinds(events)
	require.Equal(t, []string{"Casa"}, byKind[track.EventEnter])
	require.Equal(t, []string{""}, byKind[track.EventNone])
	require.True(t, current.Equal(track.NewZoneSet("Casa")))
}

// TestDerive_LeaveAll covers a snapshot with every region gone.
func TestDerive_LeaveAll(t *testing.T) {
	t.Parallel()

	events, current := Derive(locationReport(), track.NewZoneSet("Casa"))

	require.Len(t, events, 2)
	byKind := kinds(events)
	require.Equal(t, []string{"Casa"}, byKind[track.EventLeave])
	require.Equal(t, []string{""}, byKind[track.EventNone])
	require.True(t, current.Equal(track.NewZoneSet()))
}

// TestDerive_MixedMovement covers simultaneous entries and exits.
func TestDerive_MixedMovement(t *testing.T) {
	t.Parallel()

	prior := track.NewZoneSet("Casa", "Parque")
	events, current := Derive(locationReport("Parque", "Escuela", "Club"), prior)

	byKind := kinds(events)
	require.ElementsMatch(t, []string{"Escuela", "Club"}, byKind[track.EventEnter])
	require.ElementsMatch(t, []string{"Casa"}, byKind[track.EventLeave])
	require.Len(t, byKind[track.EventNone], 1)
	require.True(t, current.Equal(track.NewZoneSet("Parque", "Escuela", "Club")))
}

// TestDerive_Idempotent asserts an unchanged snapshot yields only the
// baseline observation.
func TestDerive_Idempotent(t *testing.T) {
	t.Parallel()

	prior := track.NewZoneSet("Casa")
	events, current := Derive(locationReport("Casa"), prior)

	require.Len(t, events, 1)
	require.Equal(t, track.EventNone, events[0].Event)
	require.True(t, current.Equal(prior))
}

// TestDerive_TransitionTrustsDevice asserts transitions bypass diffing and
// leave membership untouched.
func TestDerive_TransitionTrustsDevice(t *testing.T) {
	t.Parallel()

	report := &track.Report{
		DeviceID:  "ab",
		Kind:      track.ReportKindTransition,
		Timestamp: time.Unix(1700000000, 0).UTC(),
		Event:     track.EventEnter,
		ZoneDesc:  "Casa",
	}

	prior := track.NewZoneSet("Parque")
	events, current := Derive(report, prior)

	require.Len(t, events, 1)
	require.Equal(t, track.EventEnter, events[0].Event)
	require.Equal(t, "Casa", events[0].Zone)
	require.True(t, current.Equal(prior))
}

// TestDerive_TransitionZoneFallback uses the first region when desc is absent.
func TestDerive_TransitionZoneFallback(t *testing.T) {
	t.Parallel()

	report := &track.Report{
		DeviceID: "ab",
		Kind:     track.ReportKindTransition,
		Event:    track.EventLeave,
		Regions:  []string{"Parque", "Casa"},
	}

	events, _ := Derive(report, track.NewZoneSet())
	require.Equal(t, "Parque", events[0].Zone)
}

// TestProcess_ScenarioEnterThenLeave walks the two-report scenario from a
// fresh device through entering and leaving home.
func TestProcess_ScenarioEnterThenLeave(t *testing.T) {
	t.Parallel()

	tr := New(membership.NewMemoryRepository())
	ctx := context.Background()

	events, err := tr.Process(ctx, locationReport("Home"))
	require.NoError(t, err)
	require.Len(t, events, 2)
	byKind := kinds(events)
	require.Equal(t, []string{"Home"}, byKind[track.EventEnter])
	require.Len(t, byKind[track.EventNone], 1)

	events, err = tr.Process(ctx, locationReport())
	require.NoError(t, err)
	require.Len(t, events, 2)
	byKind = kinds(events)
	require.Equal(t, []string{"Home"}, byKind[track.EventLeave])
	require.Len(t, byKind[track.EventNone], 1)
}

// failingRepository wraps the memory store with injectable errors.
type failingRepository struct {
	*membership.MemoryRepository

	getErr error
	setErr error
}

func (f *failingRepository) Get(ctx context.Context, deviceID string) (track.ZoneSet, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}

	return f.MemoryRepository.Get(ctx, deviceID)
}

func (f *failingRepository) Set(ctx context.Context, deviceID string, zones track.ZoneSet) error {
	if f.setErr != nil {
		return f.setErr
	}

	return f.MemoryRepository.Set(ctx, deviceID, zones)
}

// TestProcess_StoreFailures covers read and write failures of the
// membership store.
func TestProcess_StoreFailures(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	// Read failure: nothing can be derived safely.
	tr := New(&failingRepository{MemoryRepository: membership.NewMemoryRepository(), getErr: errTestStore})
	events, err := tr.Process(ctx, locationReport("Casa"))
	require.ErrorIs(t, err, errTestStore)
	require.Nil(t, events)

	// Write failure: events are still returned for downstream persistence.
	tr = New(&failingRepository{MemoryRepository: membership.NewMemoryRepository(), setErr: errTestStore})
	events, err = tr.Process(ctx, locationReport("Casa"))
	require.ErrorIs(t, err, errTestStore)
	require.Len(t, events, 2)
}

// TestProcess_ConcurrentSameDevice hammers one device from many goroutines
// and checks membership ends in a consistent state with no lost updates.
func TestProcess_ConcurrentSameDevice(t *testing.T) {
	t.Parallel()

	repo := membership.NewMemoryRepository()
	tr := New(repo)
	ctx := context.Background()

	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(1)

		regions := []string{"Casa"}
		if i%2 == 1 {
			regions = nil
		}

		go func(regions []string) {
			defer wg.Done()

			_, err := tr.Process(ctx, locationReport(regions...))
			require.NoError(t, err)
		}(regions)
	}

	wg.Wait()

	final, err := repo.Get(ctx, "ab")
	require.NoError(t, err)

	// Every report either set membership to {Casa} or {}; any other
	// result means a lost update.
	ok := final.Equal(track.NewZoneSet("Casa")) || final.Equal(track.NewZoneSet())
	require.True(t, ok)
}
