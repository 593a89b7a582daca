package scorer

import (
	"context"

	"github.com/oshokin/geo-guardian/internal/encoder"
	"github.com/oshokin/geo-guardian/internal/logger"
)

// Outcome is the combined verdict for one feature vector.
type Outcome string

const (
	// OutcomeNormal means neither classifier flagged the vector.
	OutcomeNormal Outcome = "normal"
	// OutcomeAnomalous means at least one classifier flagged the vector.
	OutcomeAnomalous Outcome = "anomalous"
	// OutcomeUnknown means scoring failed; the event is still persisted.
	OutcomeUnknown Outcome = "unknown"
)

// Verdict is the ensemble output for one derived event. Computed once,
// never retried.
type Verdict struct {
	// SpatialAnomalous is the spatial-behavioral classifier's flag.
	SpatialAnomalous bool
	// TemporalAnomalous is the temporal classifier's flag.
	TemporalAnomalous bool
	// Combined is the reduced outcome.
	Combined Outcome
}

// Classifier scores a feature vector, reporting true when it looks anomalous.
// Implementations are opaque consumers of pre-fitted parameters.
type Classifier interface {
	Score(vector encoder.FeatureVector) (bool, error)
}

// Ensemble combines the spatial-behavioral and temporal classifiers with an
// OR rule: either flag marks the event anomalous. High recall on purpose;
// false positives are acceptable for a safety-alerting use case.
type Ensemble struct {
	// spatial consumes the full feature vector.
	spatial Classifier
	// temporal consumes only the hour-of-day feature.
	temporal Classifier
}

// NewEnsemble wires the two classifiers into the OR reducer.
func NewEnsemble(spatial, temporal Classifier) *Ensemble {
	return &Ensemble{
		spatial:  spatial,
		temporal: temporal,
	}
}

// Score runs both classifiers and reduces their flags.
// A failure in either classifier yields OutcomeUnknown and never propagates:
// scoring must not block persistence of the underlying event.
func (e *Ensemble) Score(ctx context.Context, vector encoder.FeatureVector) Verdict {
	spatialFlag, err := e.spatial.Score(vector)
	if err != nil {
		logger.Errorf(ctx, "Spatial classifier failed: %v", err)

		return Verdict{Combined: OutcomeUnknown}
	}

	temporalFlag, err := e.temporal.Score(vector)
	if err != nil {
		logger.Errorf(ctx, "Temporal classifier failed: %v", err)

		return Verdict{Combined: OutcomeUnknown}
	}

	return Verdict{
		SpatialAnomalous:  spatialFlag,
		TemporalAnomalous: temporalFlag,
		Combined:          reduce(spatialFlag, temporalFlag),
	}
}

// reduce applies the ensemble OR rule.
func reduce(spatialFlag, temporalFlag bool) Outcome {
	if spatialFlag || temporalFlag {
		return OutcomeAnomalous
	}

	return OutcomeNormal
}
