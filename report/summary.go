package report

import (
	"fmt"
	"io"
	"math"

	"github.com/mhartwell/clinimetrics/subjectlog"
)

// formatMetric renders a metric value, spelling out NaN outcomes (undefined
// AUC under single-class degeneracy) instead of printing a bogus number.
func formatMetric(v float64) string {
	if math.IsNaN(v) {
		return "n/a"
	}
	return fmt.Sprintf("%.4f", v)
}

// WriteSummary writes the headline metrics block for one prediction target:
// AUCs, the derived decision threshold, and accuracy/specificity/sensitivity
// at that threshold.
func WriteSummary(w io.Writer, val, test LabelsAndPredictions) error {
	aucROC, err := GetMetric(val, test, AUCROC, nil)
	if err != nil {
		return err
	}
	aucPR, err := GetMetric(val, test, AUCPR, nil)
	if err != nil {
		return err
	}
	threshold, err := GetMetric(val, test, OptimalThreshold, nil)
	if err != nil {
		return err
	}
	accuracy, err := GetMetric(val, test, Accuracy, &threshold)
	if err != nil {
		return err
	}
	fpr, err := GetMetric(val, test, FalsePositiveRate, &threshold)
	if err != nil {
		return err
	}
	fnr, err := GetMetric(val, test, FalseNegativeRate, &threshold)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "Area under ROC Curve: %s\n", formatMetric(aucROC))
	fmt.Fprintf(w, "Area under PR Curve: %s\n", formatMetric(aucPR))
	fmt.Fprintf(w, "Optimal threshold: %s\n", formatMetric(threshold))
	fmt.Fprintf(w, "Accuracy at optimal threshold: %s\n", formatMetric(accuracy))
	fmt.Fprintf(w, "Specificity at optimal threshold: %s\n", formatMetric(1-fpr))
	fmt.Fprintf(w, "Sensitivity at optimal threshold: %s\n", formatMetric(1-fnr))
	return nil
}

// WriteTopK writes the ranked best/worst example listing for an already
// ranked partition.
func WriteTopK(w io.Writer, results *Results, k int) {
	writeCategory(w, fmt.Sprintf("Top %d false positives", k), results.FalsePositives)
	writeCategory(w, fmt.Sprintf("Top %d false negatives", k), results.FalseNegatives)
	writeCategory(w, fmt.Sprintf("Top %d true positives", k), results.TruePositives)
	writeCategory(w, fmt.Sprintf("Top %d true negatives", k), results.TrueNegatives)
}

func writeCategory(w io.Writer, header string, rows []subjectlog.PredictionRecord) {
	fmt.Fprintf(w, "%s\n", header)
	for i, row := range rows {
		fmt.Fprintf(w, "%d. ID %s Score: %.5f\n", i+1, row.Patient, row.ModelOutput)
	}
}
