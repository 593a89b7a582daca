package scorer

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/geo-guardian/internal/encoder"
)

var errTestClassifier = errors.New("test classifier error")

// stubClassifier returns a fixed flag or error for ensemble tests.
type stubClassifier struct {
	flag bool
	err  error
}

// Score returns the configured flag and error.
func (s *stubClassifier) Score(encoder.FeatureVector) (bool, error) {
	return s.flag, s.err
}

// TestEnsemble_TruthTable pins the OR reduction over both flags.
func TestEnsemble_TruthTable(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		spatial  bool
		temporal bool
		want     Outcome
	}{
		{name: "both normal", spatial: false, temporal: false, want: OutcomeNormal},
		{name: "spatial only", spatial: true, temporal: false, want: OutcomeAnomalous},
		{name: "temporal only", spatial: false, temporal: true, want: OutcomeAnomalous},
		{name: "both anomalous", spatial: true, temporal: true, want: OutcomeAnomalous},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			ensemble := NewEnsemble(
				&stubClassifier{flag: tc.spatial},
				&stubClassifier{flag: tc.temporal},
			)

			verdict := ensemble.Score(context.Background(), encoder.FeatureVector{})
			require.Equal(t, tc.want, verdict.Combined)
			require.Equal(t, tc.spatial, verdict.SpatialAnomalous)
			require.Equal(t, tc.temporal, verdict.TemporalAnomalous)
		})
	}
}

// TestEnsemble_FailureMeansUnknown asserts classifier errors never propagate.
func TestEnsemble_FailureMeansUnknown(t *testing.T) {
	t.Parallel()

	ensemble := NewEnsemble(&stubClassifier{err: errTestClassifier}, &stubClassifier{flag: true})
	verdict := ensemble.Score(context.Background(), encoder.FeatureVector{})
	require.Equal(t, OutcomeUnknown, verdict.Combined)
	require.False(t, verdict.SpatialAnomalous)
	require.False(t, verdict.TemporalAnomalous)

	ensemble = NewEnsemble(&stubClassifier{flag: true}, &stubClassifier{err: errTestClassifier})
	verdict = ensemble.Score(context.Background(), encoder.FeatureVector{})
	require.Equal(t, OutcomeUnknown, verdict.Combined)
}

// TestFitted_Evaluate exercises standardization and the threshold.
func TestFitted_Evaluate(t *testing.T) {
	t.Parallel()

	params := fitted{
		Center:    []float64{10},
		Scale:     []float64{2},
		Weights:   []float64{1},
		Bias:      0,
		Threshold: 0.5,
	}

	// Standardized value 0 -> probability exactly 0.5 -> anomalous.
	flag, err := params.evaluate([]float64{10})
	require.NoError(t, err)
	require.True(t, flag)

	// Below the center the probability drops under the threshold.
	flag, err = params.evaluate([]float64{4})
	require.NoError(t, err)
	require.False(t, flag)
}

// TestFitted_ShapeMismatch asserts bad widths are reported as errors.
func TestFitted_ShapeMismatch(t *testing.T) {
	t.Parallel()

	params := fitted{
		Center:    []float64{0, 0},
		Scale:     []float64{1, 1},
		Weights:   []float64{1, 1},
		Threshold: 0.5,
	}

	_, err := params.evaluate([]float64{1})
	require.ErrorIs(t, err, errShapeMismatch)
}

// TestTemporal_UsesOnlyHour verifies the temporal model ignores every other column.
func TestTemporal_UsesOnlyHour(t *testing.T) {
	t.Parallel()

	temporal := &Temporal{params: fitted{
		Center:    []float64{12},
		Scale:     []float64{6},
		Weights:   []float64{-4},
		Bias:      0,
		Threshold: 0.9,
	}}

	late := encoder.FeatureVector{HourOfDay: 3, Lat: 99, Lon: -99, EventCode: 7}
	flag, err := temporal.Score(late)
	require.NoError(t, err)
	require.True(t, flag)

	noon := encoder.FeatureVector{HourOfDay: 12}
	flag, err = temporal.Score(noon)
	require.NoError(t, err)
	require.False(t, flag)
}
