package metrics

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// Metric names as they appear in epoch-level logs. The training loop prefixes
// them with the phase ("train/" or "val/") and appends the prediction-target
// suffix for multi-target models.
const (
	AccuracyAt05Name           = "AccuracyAtThreshold05"
	AccuracyAtOptimalName      = "AccuracyAtOptimalThreshold"
	OptimalThresholdName       = "OptimalThreshold"
	FalsePositiveRateName      = "FalsePositiveRateAtOptimalThreshold"
	FalseNegativeRateName      = "FalseNegativeRateAtOptimalThreshold"
	AreaUnderRocCurveName      = "AreaUnderRocCurve"
	AreaUnderPRCurveName       = "AreaUnderPRCurve"
	CrossEntropyName           = "CrossEntropy"
	MeanAbsoluteErrorName      = "MeanAbsoluteError"
	MeanSquaredErrorName       = "MeanSquaredError"
	ExplainedVarianceName      = "ExplainedVariance"
	LossName                   = "Loss"
	SubjectCountName           = "SubjectCount"
	DiceName                   = "Dice"
	VoxelCountName             = "VoxelCount"
	AverageAcrossStructuresKey = "AverageAcrossStructures"
)

// Computer accumulates (model output, label) pairs for one prediction target
// across an epoch and produces a single scalar at epoch end.
//
// Computers whose contract is defined on raw logits rather than posteriors
// report ComputesFromLogits() == true; the caller is responsible for feeding
// the right tensor. A computer that received no updates this epoch reports
// HasUpdates() == false and must be skipped rather than computed.
type Computer interface {
	Name() string
	Update(outputs, labels []float64)
	Compute() float64
	Reset()
	HasUpdates() bool
	ComputesFromLogits() bool
}

// pairAccumulator is the shared full-state accumulator for metrics that need
// the complete epoch sample (curve-based metrics and threshold search).
type pairAccumulator struct {
	outputs []float64
	labels  []float64
}

func (a *pairAccumulator) Update(outputs, labels []float64) {
	a.outputs = append(a.outputs, outputs...)
	a.labels = append(a.labels, labels...)
}

func (a *pairAccumulator) Reset() {
	a.outputs = a.outputs[:0]
	a.labels = a.labels[:0]
}

func (a *pairAccumulator) HasUpdates() bool {
	return len(a.outputs) > 0
}

func (a *pairAccumulator) ComputesFromLogits() bool {
	return false
}

// AccuracyAt05 computes binary accuracy at a fixed 0.5 posterior threshold.
type AccuracyAt05 struct{ pairAccumulator }

// NewAccuracyAt05 creates an accuracy computer with the conventional 0.5 cut.
func NewAccuracyAt05() *AccuracyAt05 { return &AccuracyAt05{} }

func (c *AccuracyAt05) Name() string { return AccuracyAt05Name }

func (c *AccuracyAt05) Compute() float64 {
	return BinaryAccuracy(c.labels, c.outputs, 0.5)
}

// OptimalThreshold reports the Youden-optimal threshold of the epoch's own
// ROC curve.
type OptimalThreshold struct{ pairAccumulator }

// NewOptimalThreshold creates the threshold-search computer.
func NewOptimalThreshold() *OptimalThreshold { return &OptimalThreshold{} }

func (c *OptimalThreshold) Name() string { return OptimalThresholdName }

func (c *OptimalThreshold) Compute() float64 {
	return ChooseThreshold(c.labels, c.outputs)
}

// AccuracyAtOptimalThreshold computes binary accuracy at the Youden-optimal
// threshold derived from the accumulated epoch data itself.
type AccuracyAtOptimalThreshold struct{ pairAccumulator }

// NewAccuracyAtOptimalThreshold creates the optimal-threshold accuracy computer.
func NewAccuracyAtOptimalThreshold() *AccuracyAtOptimalThreshold {
	return &AccuracyAtOptimalThreshold{}
}

func (c *AccuracyAtOptimalThreshold) Name() string { return AccuracyAtOptimalName }

func (c *AccuracyAtOptimalThreshold) Compute() float64 {
	return BinaryAccuracy(c.labels, c.outputs, ChooseThreshold(c.labels, c.outputs))
}

// FalsePositiveRateAtOptimalThreshold computes FPR at the epoch's
// Youden-optimal threshold.
type FalsePositiveRateAtOptimalThreshold struct{ pairAccumulator }

// NewFalsePositiveRateAtOptimalThreshold creates the FPR computer.
func NewFalsePositiveRateAtOptimalThreshold() *FalsePositiveRateAtOptimalThreshold {
	return &FalsePositiveRateAtOptimalThreshold{}
}

func (c *FalsePositiveRateAtOptimalThreshold) Name() string { return FalsePositiveRateName }

func (c *FalsePositiveRateAtOptimalThreshold) Compute() float64 {
	return FalsePositiveRate(c.labels, c.outputs, ChooseThreshold(c.labels, c.outputs))
}

// FalseNegativeRateAtOptimalThreshold computes FNR at the epoch's
// Youden-optimal threshold.
type FalseNegativeRateAtOptimalThreshold struct{ pairAccumulator }

// NewFalseNegativeRateAtOptimalThreshold creates the FNR computer.
func NewFalseNegativeRateAtOptimalThreshold() *FalseNegativeRateAtOptimalThreshold {
	return &FalseNegativeRateAtOptimalThreshold{}
}

func (c *FalseNegativeRateAtOptimalThreshold) Name() string { return FalseNegativeRateName }

func (c *FalseNegativeRateAtOptimalThreshold) Compute() float64 {
	return FalseNegativeRate(c.labels, c.outputs, ChooseThreshold(c.labels, c.outputs))
}

// AreaUnderRocCurve computes epoch-level AUC-ROC. NaN when the epoch saw only
// one label class.
type AreaUnderRocCurve struct{ pairAccumulator }

// NewAreaUnderRocCurve creates the AUC-ROC computer.
func NewAreaUnderRocCurve() *AreaUnderRocCurve { return &AreaUnderRocCurve{} }

func (c *AreaUnderRocCurve) Name() string { return AreaUnderRocCurveName }

func (c *AreaUnderRocCurve) Compute() float64 {
	return AUCROC(c.labels, c.outputs)
}

// AreaUnderPRCurve computes epoch-level AUC-PR. NaN when the epoch saw only
// one label class.
type AreaUnderPRCurve struct{ pairAccumulator }

// NewAreaUnderPRCurve creates the AUC-PR computer.
func NewAreaUnderPRCurve() *AreaUnderPRCurve { return &AreaUnderPRCurve{} }

func (c *AreaUnderPRCurve) Name() string { return AreaUnderPRCurveName }

func (c *AreaUnderPRCurve) Compute() float64 {
	return AUCPR(c.labels, c.outputs)
}

// BinaryCrossEntropyWithLogits computes the mean binary cross entropy of the
// epoch. Its contract is defined on raw logits, not posteriors, for numerical
// stability.
type BinaryCrossEntropyWithLogits struct {
	sum   float64
	count int
}

// NewBinaryCrossEntropyWithLogits creates the BCE computer.
func NewBinaryCrossEntropyWithLogits() *BinaryCrossEntropyWithLogits {
	return &BinaryCrossEntropyWithLogits{}
}

func (c *BinaryCrossEntropyWithLogits) Name() string { return CrossEntropyName }

func (c *BinaryCrossEntropyWithLogits) Update(logits, labels []float64) {
	for i := range logits {
		l, y := logits[i], labels[i]
		// Numerically stable form of -y*log(sigmoid(l)) - (1-y)*log(1-sigmoid(l)).
		c.sum += math.Max(l, 0) - l*y + math.Log1p(math.Exp(-math.Abs(l)))
		c.count++
	}
}

func (c *BinaryCrossEntropyWithLogits) Compute() float64 {
	if c.count == 0 {
		return math.NaN()
	}
	return c.sum / float64(c.count)
}

func (c *BinaryCrossEntropyWithLogits) Reset() {
	c.sum = 0
	c.count = 0
}

func (c *BinaryCrossEntropyWithLogits) HasUpdates() bool { return c.count > 0 }

func (c *BinaryCrossEntropyWithLogits) ComputesFromLogits() bool { return true }

// MeanAbsoluteError accumulates mean absolute error for regression targets.
type MeanAbsoluteError struct {
	sum   float64
	count int
}

// NewMeanAbsoluteError creates the MAE computer.
func NewMeanAbsoluteError() *MeanAbsoluteError { return &MeanAbsoluteError{} }

func (c *MeanAbsoluteError) Name() string { return MeanAbsoluteErrorName }

func (c *MeanAbsoluteError) Update(outputs, labels []float64) {
	for i := range outputs {
		c.sum += math.Abs(outputs[i] - labels[i])
		c.count++
	}
}

func (c *MeanAbsoluteError) Compute() float64 {
	if c.count == 0 {
		return math.NaN()
	}
	return c.sum / float64(c.count)
}

func (c *MeanAbsoluteError) Reset() {
	c.sum = 0
	c.count = 0
}

func (c *MeanAbsoluteError) HasUpdates() bool { return c.count > 0 }

func (c *MeanAbsoluteError) ComputesFromLogits() bool { return false }

// MeanSquaredError accumulates mean squared error for regression targets.
type MeanSquaredError struct {
	sum   float64
	count int
}

// NewMeanSquaredError creates the MSE computer.
func NewMeanSquaredError() *MeanSquaredError { return &MeanSquaredError{} }

func (c *MeanSquaredError) Name() string { return MeanSquaredErrorName }

func (c *MeanSquaredError) Update(outputs, labels []float64) {
	for i := range outputs {
		d := outputs[i] - labels[i]
		c.sum += d * d
		c.count++
	}
}

func (c *MeanSquaredError) Compute() float64 {
	if c.count == 0 {
		return math.NaN()
	}
	return c.sum / float64(c.count)
}

func (c *MeanSquaredError) Reset() {
	c.sum = 0
	c.count = 0
}

func (c *MeanSquaredError) HasUpdates() bool { return c.count > 0 }

func (c *MeanSquaredError) ComputesFromLogits() bool { return false }

// ExplainedVariance computes 1 - Var(label - output) / Var(label) over the
// epoch. A perfect or constant-offset predictor scores 1.
type ExplainedVariance struct{ pairAccumulator }

// NewExplainedVariance creates the explained-variance computer.
func NewExplainedVariance() *ExplainedVariance { return &ExplainedVariance{} }

func (c *ExplainedVariance) Name() string { return ExplainedVarianceName }

func (c *ExplainedVariance) Compute() float64 {
	if len(c.outputs) < 2 {
		return math.NaN()
	}
	errs := make([]float64, len(c.outputs))
	for i := range c.outputs {
		errs[i] = c.labels[i] - c.outputs[i]
	}
	varLabels := stat.Variance(c.labels, nil)
	varErrs := stat.Variance(errs, nil)
	if varLabels == 0 {
		if varErrs == 0 {
			return 1
		}
		return 0
	}
	return 1 - varErrs/varLabels
}

// ClassificationComputers returns the full metric set tracked for one binary
// classification prediction target.
func ClassificationComputers() []Computer {
	return []Computer{
		NewAccuracyAt05(),
		NewAccuracyAtOptimalThreshold(),
		NewOptimalThreshold(),
		NewFalsePositiveRateAtOptimalThreshold(),
		NewFalseNegativeRateAtOptimalThreshold(),
		NewAreaUnderRocCurve(),
		NewAreaUnderPRCurve(),
		NewBinaryCrossEntropyWithLogits(),
	}
}

// RegressionComputers returns the metric set tracked for one regression
// prediction target.
func RegressionComputers() []Computer {
	return []Computer{
		NewMeanAbsoluteError(),
		NewMeanSquaredError(),
		NewExplainedVariance(),
	}
}
