package track

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestDecodeReport_Location verifies decoding of a full location message.
func TestDecodeReport_Location(t *testing.T) {
	t.Parallel()

	raw := []byte(`{"_type":"location","tid":"ab","lat":-34.6,"lon":-58.4,"tst":1700000000,"inregions":["Casa"],"batt":77}`)

	report, err := DecodeReport(raw)
	require.NoError(t, err)

	require.Equal(t, ReportKindLocation, report.Kind)
	require.Equal(t, "ab", report.DeviceID)
	require.InDelta(t, -34.6, report.Lat, 1e-9)
	require.InDelta(t, -58.4, report.Lon, 1e-9)
	require.Equal(t, time.Unix(1700000000, 0).UTC(), report.Timestamp)
	require.Equal(t, []string{"Casa"}, report.Regions)
	require.Equal(t, 77, report.Battery)
}

// TestDecodeReport_Transition verifies event and zone fields survive decoding.
func TestDecodeReport_Transition(t *testing.T) {
	t.Parallel()

	raw := []byte(`{"_type":"transition","tid":"ab","lat":1,"lon":2,"tst":10,"event":"enter","desc":"Casa"}`)

	report, err := DecodeReport(raw)
	require.NoError(t, err)

	require.Equal(t, ReportKindTransition, report.Kind)
	require.Equal(t, EventEnter, report.Event)
	require.Equal(t, "Casa", report.ZoneDesc)
}

// TestDecodeReport_UnrecognizedKind asserts non-location types are ignored.
func TestDecodeReport_UnrecognizedKind(t *testing.T) {
	t.Parallel()

	_, err := DecodeReport([]byte(`{"_type":"lwt"}`))
	require.ErrorIs(t, err, ErrUnrecognizedKind)
}

// TestDecodeReport_MissingCoordinates asserts location reports need lat/lon.
func TestDecodeReport_MissingCoordinates(t *testing.T) {
	t.Parallel()

	_, err := DecodeReport([]byte(`{"_type":"location","tid":"ab","tst":10}`))
	require.ErrorIs(t, err, ErrMissingCoordinates)

	_, err = DecodeReport([]byte(`{"_type":"location","lat":1,"tst":10}`))
	require.ErrorIs(t, err, ErrMissingCoordinates)
}

// TestZoneSetDiff covers entry/exit diffing including empty sets.
func TestZoneSetDiff(t *testing.T) {
	t.Parallel()

	prior := NewZoneSet("Casa", "Parque")
	current := NewZoneSet("Parque", "Escuela")

	require.Equal(t, []string{"Escuela"}, current.Diff(prior))
	require.Equal(t, []string{"Casa"}, prior.Diff(current))
	require.Empty(t, NewZoneSet().Diff(NewZoneSet()))
}

// TestZoneSetClone verifies clones are independent copies.
func TestZoneSetClone(t *testing.T) {
	t.Parallel()

	s := NewZoneSet("Casa")
	c := s.Clone()
	c["Parque"] = struct{}{}

	require.True(t, s.Equal(NewZoneSet("Casa")))
	require.False(t, s.Equal(c))
}
