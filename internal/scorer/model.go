package scorer

import (
	"errors"
	"fmt"
	"math"

	"github.com/oshokin/geo-guardian/internal/encoder"
)

// errShapeMismatch is returned when fitted parameter slices disagree in length.
var errShapeMismatch = errors.New("fitted parameter shape mismatch")

// fitted holds the pre-trained parameters of one logistic classifier along
// with the normalization it was fitted with. The training pipeline exports
// these; this code only evaluates them.
type fitted struct {
	// Center and Scale standardize each input column.
	Center []float64
	Scale  []float64
	// Weights and Bias are the decision-function coefficients.
	Weights []float64
	Bias    float64
	// Threshold is the probability cut-off for the anomalous class.
	Threshold float64
}

// evaluate standardizes the features and applies the decision function.
func (f *fitted) evaluate(features []float64) (bool, error) {
	if len(features) != len(f.Weights) || len(f.Center) != len(f.Weights) || len(f.Scale) != len(f.Weights) {
		return false, fmt.Errorf("%w: got %d features, want %d", errShapeMismatch, len(features), len(f.Weights))
	}

	z := f.Bias

	for i, feature := range features {
		scale := f.Scale[i]
		if scale == 0 {
			scale = 1
		}

		z += f.Weights[i] * (feature - f.Center[i]) / scale
	}

	probability := 1 / (1 + math.Exp(-z))

	return probability >= f.Threshold, nil
}

// Spatial is the spatial-behavioral classifier. It consumes the full
// feature vector.
type Spatial struct {
	params fitted
}

// Score reports whether the vector looks anomalous to the spatial model.
func (s *Spatial) Score(vector encoder.FeatureVector) (bool, error) {
	return s.params.evaluate(vector.Values())
}

// Temporal is the time-of-day classifier. It consumes only the hour-of-day
// feature.
type Temporal struct {
	params fitted
}

// Score reports whether the hour of day looks anomalous to the temporal model.
func (t *Temporal) Score(vector encoder.FeatureVector) (bool, error) {
	return t.params.evaluate([]float64{vector.HourOfDay})
}
