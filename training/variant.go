package training

import (
	"github.com/mhartwell/clinimetrics/metrics"
	"github.com/mhartwell/clinimetrics/subjectlog"
)

// ModelKind tags the model family a training run belongs to. The families
// share one aggregation pipeline and differ only in the capability set below.
type ModelKind int

const (
	// SegmentationModel produces per-structure masks scored by Dice.
	SegmentationModel ModelKind = iota
	// ScalarModel produces one scalar output per subject and target.
	ScalarModel
	// SequenceModel produces one scalar output per sequence position.
	SequenceModel
)

// String returns the kind name used in logs.
func (k ModelKind) String() string {
	switch k {
	case SegmentationModel:
		return "Segmentation"
	case ScalarModel:
		return "Scalar"
	case SequenceModel:
		return "Sequence"
	default:
		return "Unknown"
	}
}

// Capabilities parameterizes the epoch aggregator for one model family:
// which prediction targets exist, how raw outputs become posteriors, and
// which metric computers each target tracks.
type Capabilities struct {
	Kind         ModelKind
	TargetNames  []string
	Posterior    Posterior
	NewComputers func() []metrics.Computer
}

// BinaryClassificationCapabilities is the capability set of a single-target
// binary classifier.
func BinaryClassificationCapabilities() Capabilities {
	return Capabilities{
		Kind:         ScalarModel,
		TargetNames:  []string{subjectlog.DefaultHue},
		Posterior:    SigmoidPosterior,
		NewComputers: metrics.ClassificationComputers,
	}
}

// MultiLabelClassificationCapabilities tracks one classification target per
// class name.
func MultiLabelClassificationCapabilities(classNames []string) Capabilities {
	caps := BinaryClassificationCapabilities()
	caps.TargetNames = append([]string(nil), classNames...)
	return caps
}

// RegressionCapabilities is the capability set of a single-target regression
// model.
func RegressionCapabilities() Capabilities {
	return Capabilities{
		Kind:         ScalarModel,
		TargetNames:  []string{subjectlog.DefaultHue},
		Posterior:    IdentityPosterior,
		NewComputers: metrics.RegressionComputers,
	}
}

// SequenceCapabilities tracks one classification target per sequence
// position.
func SequenceCapabilities(positions []int) Capabilities {
	targets := make([]string, len(positions))
	for i, pos := range positions {
		targets[i] = subjectlog.SequenceTargetName(pos)
	}
	return Capabilities{
		Kind:         SequenceModel,
		TargetNames:  targets,
		Posterior:    SigmoidPosterior,
		NewComputers: metrics.ClassificationComputers,
	}
}
