package scorer

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/oshokin/geo-guardian/internal/encoder"
)

// featureWidth is the number of columns in the encoded feature vector.
const featureWidth = 6

// defaultThreshold is the probability cut-off used when the bundle omits one.
const defaultThreshold = 0.5

var (
	// errSpatialShape is returned when the spatial model does not cover the full vector.
	errSpatialShape = errors.New("spatial model must cover the full feature vector")
	// errTemporalShape is returned when the temporal model is not single-feature.
	errTemporalShape = errors.New("temporal model must consume exactly the hour feature")
)

// Bundle is everything exported by the offline training run: both fitted
// classifiers and the categorical encoding tables they were trained against.
type Bundle struct {
	// Spatial and Temporal are the ready-to-use classifiers.
	Spatial  *Spatial
	Temporal *Temporal
	// Table is the closed categorical encoding table.
	Table *encoder.Table
}

// bundleFile mirrors the YAML layout of the exported bundle.
type bundleFile struct {
	Spatial  modelSection `yaml:"spatial"`
	Temporal modelSection `yaml:"temporal"`
	Encoding struct {
		Events map[string]int `yaml:"events"`
		Zones  map[string]int `yaml:"zones"`
	} `yaml:"encoding"`
}

// modelSection mirrors one classifier's fitted parameters in the bundle.
type modelSection struct {
	Center    []float64 `yaml:"center"`
	Scale     []float64 `yaml:"scale"`
	Weights   []float64 `yaml:"weights"`
	Bias      float64   `yaml:"bias"`
	Threshold float64   `yaml:"threshold"`
}

// toFitted converts a bundle section into evaluation-ready parameters.
func (s modelSection) toFitted() fitted {
	threshold := s.Threshold
	if threshold <= 0 {
		threshold = defaultThreshold
	}

	return fitted{
		Center:    s.Center,
		Scale:     s.Scale,
		Weights:   s.Weights,
		Bias:      s.Bias,
		Threshold: threshold,
	}
}

// LoadBundle reads and validates the classifier bundle at the provided path.
func LoadBundle(path string) (*Bundle, error) {
	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read model bundle: %w", err)
	}

	var file bundleFile
	if err := yaml.Unmarshal(contents, &file); err != nil {
		return nil, fmt.Errorf("unmarshal model bundle: %w", err)
	}

	if len(file.Spatial.Weights) != featureWidth {
		return nil, errSpatialShape
	}

	if len(file.Temporal.Weights) != 1 {
		return nil, errTemporalShape
	}

	table, err := encoder.NewTable(file.Encoding.Events, file.Encoding.Zones)
	if err != nil {
		return nil, fmt.Errorf("encoding table: %w", err)
	}

	return &Bundle{
		Spatial:  &Spatial{params: file.Spatial.toFitted()},
		Temporal: &Temporal{params: file.Temporal.toFitted()},
		Table:    table,
	}, nil
}
