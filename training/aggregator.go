package training

import (
	"math"
	"sort"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/mhartwell/clinimetrics/metrics"
	"github.com/mhartwell/clinimetrics/subjectlog"
)

// NamedMetric is one epoch-level metric value as it appears in the training
// log: phase prefix, metric name, and target suffix for non-default targets
// of multi-target models.
type NamedMetric struct {
	Name  string
	Value float64
}

// EpochAggregator accumulates per-minibatch metrics for one model and one
// phase (training or validation) across an epoch. The metric registry is
// built once at construction from the model's capability set; nothing is
// registered implicitly later.
//
// The aggregator is driven from the training-step goroutine and is not safe
// for concurrent use.
type EpochAggregator struct {
	caps       Capabilities
	epoch      int
	isTraining bool
	registry   map[string][]metrics.Computer
	subjects   *subjectlog.Logger
	log        *zap.Logger

	lossSum   float64
	lossCount int
}

// NewEpochAggregator builds the aggregator and its metric registry. The
// subject logger is optional; pass nil to disable per-subject logging (used
// for phases that should not produce log rows). The logger must already be
// bound to the worker's rank.
func NewEpochAggregator(caps Capabilities, epoch int, isTraining bool,
	subjects *subjectlog.Logger, log *zap.Logger) *EpochAggregator {
	if log == nil {
		log = zap.NewNop()
	}
	registry := make(map[string][]metrics.Computer, len(caps.TargetNames))
	for _, target := range caps.TargetNames {
		registry[target] = caps.NewComputers()
	}
	return &EpochAggregator{
		caps:       caps,
		epoch:      epoch,
		isTraining: isTraining,
		registry:   registry,
		subjects:   subjects,
		log:        log,
	}
}

// prefix returns the phase prefix of emitted metric names.
func (a *EpochAggregator) prefix() string {
	if a.isTraining {
		return "train/"
	}
	return "val/"
}

// split returns the data split stamped onto subject records.
func (a *EpochAggregator) split() subjectlog.DataSplit {
	if a.isTraining {
		return subjectlog.TrainSplit
	}
	return subjectlog.ValSplit
}

// AddLoss records one training-step loss for the epoch average.
func (a *EpochAggregator) AddLoss(loss float64) {
	a.lossSum += loss
	a.lossCount++
}

// Update feeds one minibatch into the registry. Per target, subjects with a
// NaN label are excluded from that target's metrics and log rows without
// affecting sibling targets. Computers with a logit contract receive raw
// logits; all others receive posteriors.
func (a *EpochAggregator) Update(batch *ScalarBatch) error {
	if err := batch.validate(len(a.caps.TargetNames)); err != nil {
		return err
	}
	for ti, target := range a.caps.TargetNames {
		logits := batch.Logits[ti]
		labels := batch.Labels[ti]

		keptLogits := make([]float64, 0, len(labels))
		keptPosteriors := make([]float64, 0, len(labels))
		keptLabels := make([]float64, 0, len(labels))
		keptSubjects := make([]string, 0, len(labels))
		for i, label := range labels {
			if math.IsNaN(label) {
				continue
			}
			keptLogits = append(keptLogits, logits[i])
			keptPosteriors = append(keptPosteriors, a.caps.Posterior(logits[i]))
			keptLabels = append(keptLabels, label)
			keptSubjects = append(keptSubjects, batch.SubjectIDs[i])
		}
		if len(keptLabels) == 0 {
			continue
		}

		for _, computer := range a.registry[target] {
			if computer.ComputesFromLogits() {
				computer.Update(keptLogits, keptLabels)
			} else {
				computer.Update(keptPosteriors, keptLabels)
			}
		}
		if a.subjects != nil {
			for i, subject := range keptSubjects {
				a.subjects.Add(subjectlog.PredictionRecord{
					Hue:         target,
					Epoch:       a.epoch,
					Patient:     subject,
					ModelOutput: keptPosteriors[i],
					Label:       keptLabels[i],
					DataSplit:   a.split(),
				})
			}
		}
	}
	return nil
}

// EpochEnd computes every metric that saw at least one update, resets the
// registry for the next epoch, and flushes buffered subject records to the
// per-rank log file.
func (a *EpochAggregator) EpochEnd() ([]NamedMetric, error) {
	var out []NamedMetric
	if a.lossCount > 0 {
		out = append(out, NamedMetric{
			Name:  a.prefix() + metrics.LossName,
			Value: a.lossSum / float64(a.lossCount),
		})
		a.lossSum, a.lossCount = 0, 0
	}

	multiTarget := len(a.caps.TargetNames) > 1
	for _, target := range a.caps.TargetNames {
		for _, computer := range a.registry[target] {
			if !computer.HasUpdates() {
				continue
			}
			name := a.prefix() + computer.Name()
			if multiTarget && target != subjectlog.DefaultHue {
				name += "/" + target
			}
			out = append(out, NamedMetric{Name: name, Value: computer.Compute()})
			computer.Reset()
		}
	}

	if a.subjects != nil {
		if err := a.subjects.Flush(); err != nil {
			return nil, errors.Wrap(err, "flushing subject log at epoch end")
		}
	}
	a.log.Debug("epoch metrics computed",
		zap.Int("epoch", a.epoch),
		zap.Bool("training", a.isTraining),
		zap.Int("metrics", len(out)))
	return out, nil
}

// SegmentationAggregator accumulates the per-structure epoch metrics of a
// segmentation model: Dice with a NaN-skipping mean, foreground voxel counts
// with a sum, and the number of subjects seen.
type SegmentationAggregator struct {
	epoch      int
	isTraining bool
	dice       *metrics.MultiStructureMetric
	voxels     *metrics.MultiStructureMetric
	subjects   float64
	log        *zap.Logger
}

// NewSegmentationAggregator builds the aggregator for a fixed structure set.
func NewSegmentationAggregator(structures []string, epoch int, isTraining bool,
	log *zap.Logger) *SegmentationAggregator {
	if log == nil {
		log = zap.NewNop()
	}
	return &SegmentationAggregator{
		epoch:      epoch,
		isTraining: isTraining,
		dice:       metrics.NewMultiStructureMetric(metrics.DiceName, structures, metrics.AggregateMeanSkipNaN, true),
		voxels:     metrics.NewMultiStructureMetric(metrics.VoxelCountName, structures, metrics.AggregateSum, false),
		log:        log,
	}
}

// Update records one sample. A NaN Dice entry marks a structure that is
// empty in both ground truth and prediction; it is skipped by the epoch
// mean. Voxel counts are summed across samples, never averaged with batch
// weights.
func (a *SegmentationAggregator) Update(dicePerStructure, voxelsPerStructure []float64) error {
	if err := a.dice.Update(dicePerStructure); err != nil {
		return malformedBatchf("dice values: %v", err)
	}
	if err := a.voxels.Update(voxelsPerStructure); err != nil {
		return malformedBatchf("voxel counts: %v", err)
	}
	a.subjects++
	return nil
}

// EpochEnd emits the per-structure series, the across-structure averages and
// the subject count, then resets for the next epoch. Output is sorted by
// name for deterministic logging.
func (a *SegmentationAggregator) EpochEnd() []NamedMetric {
	prefix := "val/"
	if a.isTraining {
		prefix = "train/"
	}

	var out []NamedMetric
	for _, nv := range a.dice.ComputeAll() {
		out = append(out, NamedMetric{Name: prefix + nv.Name, Value: nv.Value})
	}
	for _, nv := range a.voxels.ComputeAll() {
		out = append(out, NamedMetric{Name: prefix + nv.Name, Value: nv.Value})
	}
	out = append(out, NamedMetric{Name: prefix + metrics.SubjectCountName, Value: a.subjects})
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })

	a.dice.Reset()
	a.voxels.Reset()
	a.subjects = 0
	a.log.Debug("segmentation epoch metrics computed",
		zap.Int("epoch", a.epoch),
		zap.Bool("training", a.isTraining),
		zap.Int("metrics", len(out)))
	return out
}
