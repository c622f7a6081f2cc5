// Package subjectlog defines the durable per-subject prediction log written
// once per epoch by the training loop and consumed by the report engine.
package subjectlog

import (
	"fmt"
	"strconv"
)

// DefaultHue is the prediction-target name used by binary classification and
// single-target regression models.
const DefaultHue = "Default"

// DefaultCrossValidationSplitIndex marks runs that are not part of a
// cross-validation sweep.
const DefaultCrossValidationSplitIndex = -1

// DataSplit identifies which dataset partition produced a logged row.
type DataSplit string

const (
	// TrainSplit is the training partition.
	TrainSplit DataSplit = "Train"
	// ValSplit is the validation partition.
	ValSplit DataSplit = "Val"
	// TestSplit is the held-out test partition.
	TestSplit DataSplit = "Test"
)

// PredictionRecord is one row of the per-subject metrics log: the model
// output and label for one subject, one prediction target and one epoch.
// Within a fixed (epoch, hue, data split) group the subject must be unique.
type PredictionRecord struct {
	Hue                       string    `csv:"Hue"`
	Epoch                     int       `csv:"Epoch"`
	Patient                   string    `csv:"Patient"`
	ModelOutput               float64   `csv:"ModelOutput"`
	Label                     float64   `csv:"Label"`
	CrossValidationSplitIndex int       `csv:"CrossValidationSplitIndex"`
	DataSplit                 DataSplit `csv:"DataSplit"`
}

// FileNameForRank returns the per-rank log file name, so that independent
// worker processes in distributed training never contend on the same file.
func FileNameForRank(base string, rank int) string {
	return base + ".rank" + strconv.Itoa(rank)
}

// SequenceTargetName returns the prediction-target name used for one
// position of a sequence model.
func SequenceTargetName(position int) string {
	return fmt.Sprintf("Seq_pos %d", position)
}
