package metrics

import (
	"fmt"
	"math"

	"github.com/montanaflynn/stats"
)

// StructureAggregation selects how per-sample values for one anatomical
// structure are reduced into an epoch value.
type StructureAggregation int

const (
	// AggregateMeanSkipNaN averages the samples, ignoring NaN entries. A NaN
	// sample means the value was undefined for that sample (for Dice: ground
	// truth and prediction both empty) and must not drag the mean down.
	AggregateMeanSkipNaN StructureAggregation = iota
	// AggregateSum totals the samples. Count-style metrics must never be
	// averaged with batch-size weighting, or variable batch sizes corrupt the
	// epoch total.
	AggregateSum
)

// String returns the human-readable aggregation name.
func (a StructureAggregation) String() string {
	switch a {
	case AggregateMeanSkipNaN:
		return "MeanSkipNaN"
	case AggregateSum:
		return "Sum"
	default:
		return fmt.Sprintf("Unknown(%d)", int(a))
	}
}

// NamedValue is one epoch-level metric result.
type NamedValue struct {
	Name  string
	Value float64
}

// MultiStructureMetric accumulates one value per anatomical structure per
// sample, and reduces each structure independently at epoch end. Used for
// Dice scores (mean, NaN-aware) and foreground voxel counts (sum).
type MultiStructureMetric struct {
	metricName     string
	structures     []string
	aggregation    StructureAggregation
	includeAverage bool
	values         [][]float64
}

// NewMultiStructureMetric creates an accumulator for the named metric over
// the given structures. When includeAverage is set, an extra
// average-across-structures series is emitted alongside the per-structure
// values; it only makes sense for mean-style aggregations.
func NewMultiStructureMetric(metricName string, structures []string,
	aggregation StructureAggregation, includeAverage bool) *MultiStructureMetric {
	return &MultiStructureMetric{
		metricName:     metricName,
		structures:     structures,
		aggregation:    aggregation,
		includeAverage: includeAverage,
		values:         make([][]float64, len(structures)),
	}
}

// Update records one sample's value for every structure. The slice must have
// exactly one entry per structure.
func (m *MultiStructureMetric) Update(perStructure []float64) error {
	if len(perStructure) != len(m.structures) {
		return fmt.Errorf("expected %d structure values, got %d", len(m.structures), len(perStructure))
	}
	for i, v := range perStructure {
		m.values[i] = append(m.values[i], v)
	}
	return nil
}

// HasUpdates reports whether any sample has been recorded this epoch.
func (m *MultiStructureMetric) HasUpdates() bool {
	for _, v := range m.values {
		if len(v) > 0 {
			return true
		}
	}
	return false
}

// ComputeAll reduces the accumulated samples into one value per structure,
// named "{metric}/{structure}", plus the average-across-structures entry when
// configured. The average skips structures whose epoch value is NaN.
func (m *MultiStructureMetric) ComputeAll() []NamedValue {
	results := make([]NamedValue, 0, len(m.structures)+1)
	perStructure := make([]float64, len(m.structures))
	for i, name := range m.structures {
		v := m.reduce(m.values[i])
		perStructure[i] = v
		results = append(results, NamedValue{
			Name:  m.metricName + "/" + name,
			Value: v,
		})
	}
	if m.includeAverage {
		results = append(results, NamedValue{
			Name:  m.metricName + "/" + AverageAcrossStructuresKey,
			Value: meanSkipNaN(perStructure),
		})
	}
	return results
}

// Reset clears all accumulated samples for the next epoch.
func (m *MultiStructureMetric) Reset() {
	for i := range m.values {
		m.values[i] = m.values[i][:0]
	}
}

func (m *MultiStructureMetric) reduce(samples []float64) float64 {
	switch m.aggregation {
	case AggregateSum:
		sum, err := stats.Sum(samples)
		if err != nil {
			return math.NaN()
		}
		return sum
	default:
		return meanSkipNaN(samples)
	}
}

// meanSkipNaN averages the non-NaN entries, returning NaN only when every
// entry is NaN (or the input is empty).
func meanSkipNaN(samples []float64) float64 {
	valid := make([]float64, 0, len(samples))
	for _, v := range samples {
		if !math.IsNaN(v) {
			valid = append(valid, v)
		}
	}
	mean, err := stats.Mean(valid)
	if err != nil {
		return math.NaN()
	}
	return mean
}
