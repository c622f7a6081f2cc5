// Package report builds classification evaluation reports from the
// per-subject prediction logs written during training and inference. The
// decision threshold applied to the test split is always derived from the
// validation split's ROC curve rather than assuming a calibrated 0.5 cutoff.
package report

import (
	"fmt"
	"math"
	"sort"

	"github.com/gocarina/gocsv"
	"github.com/pkg/errors"
	"github.com/spf13/afero"

	"github.com/mhartwell/clinimetrics/metrics"
	"github.com/mhartwell/clinimetrics/subjectlog"
)

// LabelsAndPredictions is the materialized view over one (csv, hue) pair:
// parallel slices of subject id, binary label and model output score.
type LabelsAndPredictions struct {
	SubjectIDs   []string
	Labels       []float64
	ModelOutputs []float64
}

// Results partitions a test split into the four confusion categories at a
// fixed threshold. The partition is exhaustive and disjoint: every input row
// lands in exactly one category.
type Results struct {
	TruePositives  []subjectlog.PredictionRecord
	FalsePositives []subjectlog.PredictionRecord
	TrueNegatives  []subjectlog.PredictionRecord
	FalseNegatives []subjectlog.PredictionRecord
}

// Total returns the number of rows across all four categories.
func (r *Results) Total() int {
	return len(r.TruePositives) + len(r.FalsePositives) + len(r.TrueNegatives) + len(r.FalseNegatives)
}

// ReportedMetric enumerates the metrics the report can compute.
type ReportedMetric int

const (
	// OptimalThreshold is the Youden-optimal threshold of the validation split.
	OptimalThreshold ReportedMetric = iota
	// AUCROC is the area under the test split's ROC curve.
	AUCROC
	// AUCPR is the area under the test split's precision-recall curve.
	AUCPR
	// Accuracy is binary accuracy on the test split at the decision threshold.
	Accuracy
	// FalsePositiveRate on the test split at the decision threshold.
	FalsePositiveRate
	// FalseNegativeRate on the test split at the decision threshold.
	FalseNegativeRate
)

// String returns the metric name as used in report output.
func (m ReportedMetric) String() string {
	switch m {
	case OptimalThreshold:
		return "OptimalThreshold"
	case AUCROC:
		return "AUC_ROC"
	case AUCPR:
		return "AUC_PR"
	case Accuracy:
		return "Accuracy"
	case FalsePositiveRate:
		return "FalsePositiveRate"
	case FalseNegativeRate:
		return "FalseNegativeRate"
	default:
		return fmt.Sprintf("Unknown(%d)", int(m))
	}
}

// ReadAllRows loads every record of a per-subject metrics CSV.
func ReadAllRows(fs afero.Fs, csvPath string) ([]subjectlog.PredictionRecord, error) {
	f, err := fs.Open(csvPath)
	if err != nil {
		return nil, errors.Wrapf(err, "opening metrics file %s", csvPath)
	}
	defer f.Close()

	var rows []subjectlog.PredictionRecord
	if err := gocsv.Unmarshal(f, &rows); err != nil {
		return nil, errors.Wrapf(err, "parsing metrics file %s", csvPath)
	}
	return rows, nil
}

// ReadRowsForHue loads a metrics CSV and keeps only the rows of the given
// prediction target. Duplicate subjects within the hue are a data corruption
// signal and fail with DuplicateSubjectError.
func ReadRowsForHue(fs afero.Fs, csvPath, hue string) ([]subjectlog.PredictionRecord, error) {
	rows, err := ReadAllRows(fs, csvPath)
	if err != nil {
		return nil, err
	}
	filtered := make([]subjectlog.PredictionRecord, 0, len(rows))
	seen := make(map[string]struct{}, len(rows))
	for _, row := range rows {
		if row.Hue != hue {
			continue
		}
		if _, dup := seen[row.Patient]; dup {
			return nil, &DuplicateSubjectError{Path: csvPath, Hue: hue, Subject: row.Patient}
		}
		seen[row.Patient] = struct{}{}
		filtered = append(filtered, row)
	}
	return filtered, nil
}

// ReadSplit loads the labels and model outputs of one data split for one
// prediction target.
func ReadSplit(fs afero.Fs, csvPath, hue string) (LabelsAndPredictions, error) {
	rows, err := ReadRowsForHue(fs, csvPath, hue)
	if err != nil {
		return LabelsAndPredictions{}, err
	}
	return labelsAndPredictionsFromRows(rows), nil
}

func labelsAndPredictionsFromRows(rows []subjectlog.PredictionRecord) LabelsAndPredictions {
	lp := LabelsAndPredictions{
		SubjectIDs:   make([]string, len(rows)),
		Labels:       make([]float64, len(rows)),
		ModelOutputs: make([]float64, len(rows)),
	}
	for i, row := range rows {
		lp.SubjectIDs[i] = row.Patient
		lp.Labels[i] = row.Label
		lp.ModelOutputs[i] = row.ModelOutput
	}
	return lp
}

// ChooseThreshold derives the decision threshold from a validation split via
// the Youden-optimal point of its ROC curve.
func ChooseThreshold(val LabelsAndPredictions) float64 {
	return metrics.ChooseThreshold(val.Labels, val.ModelOutputs)
}

// GetMetric computes one reported metric from the validation and test splits.
// When optimalThreshold is nil the threshold is derived from the validation
// split. AUC-ROC and AUC-PR are NaN when the test split contains a single
// label class; callers must propagate NaN rather than treat it as an error.
func GetMetric(val, test LabelsAndPredictions, metric ReportedMetric, optimalThreshold *float64) (float64, error) {
	threshold := 0.0
	if optimalThreshold != nil {
		threshold = *optimalThreshold
	} else {
		threshold = ChooseThreshold(val)
	}

	switch metric {
	case OptimalThreshold:
		return threshold, nil
	case AUCROC:
		return metrics.AUCROC(test.Labels, test.ModelOutputs), nil
	case AUCPR:
		return metrics.AUCPR(test.Labels, test.ModelOutputs), nil
	case Accuracy:
		return metrics.BinaryAccuracy(test.Labels, test.ModelOutputs, threshold), nil
	case FalsePositiveRate:
		return metrics.FalsePositiveRate(test.Labels, test.ModelOutputs, threshold), nil
	case FalseNegativeRate:
		return metrics.FalseNegativeRate(test.Labels, test.ModelOutputs, threshold), nil
	default:
		return math.NaN(), &UnknownMetricError{Metric: metric}
	}
}

// CorrectAndMisclassifiedExamples derives the decision threshold from the
// validation file and buckets every test row into the four confusion
// categories. A score exactly equal to the threshold counts as a positive
// prediction.
func CorrectAndMisclassifiedExamples(fs afero.Fs, valCSV, testCSV, hue string) (*Results, error) {
	valRows, err := ReadRowsForHue(fs, valCSV, hue)
	if err != nil {
		return nil, err
	}
	threshold := ChooseThreshold(labelsAndPredictionsFromRows(valRows))

	testRows, err := ReadRowsForHue(fs, testCSV, hue)
	if err != nil {
		return nil, err
	}

	results := &Results{}
	for _, row := range testRows {
		predicted := row.ModelOutput >= threshold
		actual := row.Label > 0.5
		switch {
		case predicted && actual:
			results.TruePositives = append(results.TruePositives, row)
		case predicted && !actual:
			results.FalsePositives = append(results.FalsePositives, row)
		case !predicted && actual:
			results.FalseNegatives = append(results.FalseNegatives, row)
		default:
			results.TrueNegatives = append(results.TrueNegatives, row)
		}
	}
	return results, nil
}

// TopK ranks each confusion category by model output and keeps the top k
// rows. True positives and false positives are sorted descending (most
// confident positive prediction first); true negatives and false negatives
// ascending (most confident negative prediction first). This surfaces the
// most confidently correct and most confidently wrong examples for
// qualitative review. k larger than a category returns the whole category;
// k <= 0 returns empty categories.
func TopK(results *Results, k int) *Results {
	return &Results{
		TruePositives:  sortAndTruncate(results.TruePositives, k, false),
		FalsePositives: sortAndTruncate(results.FalsePositives, k, false),
		TrueNegatives:  sortAndTruncate(results.TrueNegatives, k, true),
		FalseNegatives: sortAndTruncate(results.FalseNegatives, k, true),
	}
}

// KBestAndWorstPerforming partitions the test split and ranks each category,
// returning the k most confident examples per confusion category.
func KBestAndWorstPerforming(fs afero.Fs, valCSV, testCSV string, k int, hue string) (*Results, error) {
	results, err := CorrectAndMisclassifiedExamples(fs, valCSV, testCSV, hue)
	if err != nil {
		return nil, err
	}
	return TopK(results, k), nil
}

func sortAndTruncate(rows []subjectlog.PredictionRecord, k int, ascending bool) []subjectlog.PredictionRecord {
	if k <= 0 {
		return nil
	}
	sorted := make([]subjectlog.PredictionRecord, len(rows))
	copy(sorted, rows)
	sort.SliceStable(sorted, func(i, j int) bool {
		if ascending {
			return sorted[i].ModelOutput < sorted[j].ModelOutput
		}
		return sorted[i].ModelOutput > sorted[j].ModelOutput
	})
	if k < len(sorted) {
		sorted = sorted[:k]
	}
	return sorted
}

// HueOutput is one (prediction target, model output) pair for a subject.
type HueOutput struct {
	Hue         string
	ModelOutput float64
}

// SubjectOutputs returns the model outputs of every prediction target for
// one subject, in row order. Used to show all class scores next to a
// best/worst example.
func SubjectOutputs(rows []subjectlog.PredictionRecord, subjectID string) []HueOutput {
	var outputs []HueOutput
	for _, row := range rows {
		if row.Patient == subjectID {
			outputs = append(outputs, HueOutput{Hue: row.Hue, ModelOutput: row.ModelOutput})
		}
	}
	return outputs
}
