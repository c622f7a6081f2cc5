package metrics

import (
	"math"
	"testing"
)

// fixtureLabels and fixtureOutputs mirror a fully symmetric split: six
// positive and six negative subjects, each class scored 0.0 to 1.0 in steps
// of 0.2.
func fixtureLabels() []float64 {
	return []float64{1, 1, 1, 1, 1, 1, 0, 0, 0, 0, 0, 0}
}

func fixtureOutputs() []float64 {
	return []float64{0.0, 0.2, 0.4, 0.6, 0.8, 1.0, 0.0, 0.2, 0.4, 0.6, 0.8, 1.0}
}

func almostEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

// TestROCCurve tests curve construction with tied scores.
func TestROCCurve(t *testing.T) {
	points := ROCCurve(fixtureLabels(), fixtureOutputs())

	// Sentinel plus one point per distinct threshold.
	if len(points) != 7 {
		t.Fatalf("expected 7 ROC points, got %d", len(points))
	}
	if points[0].Threshold != 2.0 || points[0].TPR != 0 || points[0].FPR != 0 {
		t.Errorf("sentinel point wrong: %+v", points[0])
	}
	expectedThresholds := []float64{2.0, 1.0, 0.8, 0.6, 0.4, 0.2, 0.0}
	for i, p := range points {
		if p.Threshold != expectedThresholds[i] {
			t.Errorf("point %d: threshold = %v, expected %v", i, p.Threshold, expectedThresholds[i])
		}
		// Symmetric data keeps the curve on the diagonal.
		if p.TPR != p.FPR {
			t.Errorf("point %d: TPR %v != FPR %v", i, p.TPR, p.FPR)
		}
	}
	last := points[len(points)-1]
	if last.TPR != 1 || last.FPR != 1 {
		t.Errorf("final point should be (1,1), got %+v", last)
	}
}

// TestChooseThreshold tests Youden-optimal threshold selection.
func TestChooseThreshold(t *testing.T) {
	t.Run("SymmetricFixture", func(t *testing.T) {
		// Every point ties at TPR-FPR == 0; the distance tie-break picks the
		// mid-curve point.
		threshold := ChooseThreshold(fixtureLabels(), fixtureOutputs())
		if threshold != 0.6 {
			t.Errorf("threshold = %v, expected 0.6", threshold)
		}
	})

	t.Run("PerfectSeparation", func(t *testing.T) {
		labels := []float64{0, 0, 1, 1}
		outputs := []float64{0.1, 0.2, 0.8, 0.9}
		threshold := ChooseThreshold(labels, outputs)
		if threshold != 0.8 {
			t.Errorf("threshold = %v, expected 0.8", threshold)
		}
	})

	t.Run("Empty", func(t *testing.T) {
		if !math.IsNaN(ChooseThreshold(nil, nil)) {
			t.Error("expected NaN threshold for empty input")
		}
	})
}

// TestAUCROC tests the trapezoidal AUC-ROC including degenerate inputs.
func TestAUCROC(t *testing.T) {
	t.Run("SymmetricFixture", func(t *testing.T) {
		auc := AUCROC(fixtureLabels(), fixtureOutputs())
		if auc != 0.5 {
			t.Errorf("AUC-ROC = %v, expected 0.5", auc)
		}
	})

	t.Run("PerfectClassifier", func(t *testing.T) {
		labels := []float64{0, 0, 1, 1}
		outputs := []float64{0.1, 0.2, 0.8, 0.9}
		auc := AUCROC(labels, outputs)
		if auc != 1.0 {
			t.Errorf("AUC-ROC = %v, expected 1.0", auc)
		}
	})

	t.Run("SingleClassIsNaN", func(t *testing.T) {
		labels := []float64{1, 1, 1}
		outputs := []float64{0.2, 0.5, 0.9}
		if !math.IsNaN(AUCROC(labels, outputs)) {
			t.Error("expected NaN for single-class input")
		}
	})
}

// TestAUCPR tests the trapezoidal AUC-PR against the fixture value.
func TestAUCPR(t *testing.T) {
	t.Run("SymmetricFixture", func(t *testing.T) {
		auc := AUCPR(fixtureLabels(), fixtureOutputs())
		if !almostEqual(auc, 13.0/24.0, 1e-12) {
			t.Errorf("AUC-PR = %v, expected %v", auc, 13.0/24.0)
		}
	})

	t.Run("SingleClassIsNaN", func(t *testing.T) {
		labels := []float64{0, 0}
		outputs := []float64{0.2, 0.5}
		if !math.IsNaN(AUCPR(labels, outputs)) {
			t.Error("expected NaN for single-class input")
		}
	})
}

// TestPRCurveAnchor tests that the PR curve ends in the conventional anchor.
func TestPRCurveAnchor(t *testing.T) {
	points := PRCurve(fixtureLabels(), fixtureOutputs())
	if len(points) != 7 {
		t.Fatalf("expected 7 PR points, got %d", len(points))
	}
	anchor := points[len(points)-1]
	if anchor.Recall != 0 || anchor.Precision != 1 {
		t.Errorf("anchor point wrong: %+v", anchor)
	}
	first := points[0]
	if first.Recall != 1 || first.Precision != 0.5 {
		t.Errorf("lowest-threshold point wrong: %+v", first)
	}
}

// TestThresholdedRates tests accuracy, FPR and FNR at explicit thresholds.
func TestThresholdedRates(t *testing.T) {
	labels := fixtureLabels()
	outputs := fixtureOutputs()

	tests := []struct {
		name      string
		fn        func([]float64, []float64, float64) float64
		threshold float64
		expected  float64
	}{
		{"AccuracyAtDerived", BinaryAccuracy, 0.6, 0.5},
		{"AccuracyAtLowCut", BinaryAccuracy, 0.1, 0.5},
		{"FPRAtDerived", FalsePositiveRate, 0.6, 0.5},
		{"FPRAtLowCut", FalsePositiveRate, 0.1, 5.0 / 6.0},
		{"FNRAtDerived", FalseNegativeRate, 0.6, 0.5},
		{"FNRAtLowCut", FalseNegativeRate, 0.1, 1.0 / 6.0},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			result := test.fn(labels, outputs, test.threshold)
			if !almostEqual(result, test.expected, 1e-12) {
				t.Errorf("got %v, expected %v", result, test.expected)
			}
		})
	}
}

// TestThresholdIsClosedLowerBound tests that a score exactly at the threshold
// counts as positive.
func TestThresholdIsClosedLowerBound(t *testing.T) {
	labels := []float64{1, 0}
	outputs := []float64{0.6, 0.59}
	if acc := BinaryAccuracy(labels, outputs, 0.6); acc != 1.0 {
		t.Errorf("accuracy = %v, expected 1.0 with score == threshold positive", acc)
	}
}
