package training

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/spf13/afero"

	"github.com/mhartwell/clinimetrics/metrics"
	"github.com/mhartwell/clinimetrics/subjectlog"
)

func metricsByName(t *testing.T, emitted []NamedMetric) map[string]float64 {
	t.Helper()
	byName := make(map[string]float64, len(emitted))
	for _, m := range emitted {
		if _, dup := byName[m.Name]; dup {
			t.Errorf("metric %q emitted twice", m.Name)
		}
		byName[m.Name] = m.Value
	}
	return byName
}

// TestModelKindString tests the string representation of ModelKind
func TestModelKindString(t *testing.T) {
	tests := []struct {
		kind     ModelKind
		expected string
	}{
		{SegmentationModel, "Segmentation"},
		{ScalarModel, "Scalar"},
		{SequenceModel, "Sequence"},
		{ModelKind(999), "Unknown"},
	}
	for _, test := range tests {
		if got := test.kind.String(); got != test.expected {
			t.Errorf("ModelKind(%d).String() = %s, expected %s", test.kind, got, test.expected)
		}
	}
}

// TestEpochAggregatorBinary tests a perfect binary classifier over one epoch
func TestEpochAggregatorBinary(t *testing.T) {
	agg := NewEpochAggregator(BinaryClassificationCapabilities(), 3, false, nil, nil)

	batch, err := NewScalarBatch(
		[]string{"s1", "s2", "s3", "s4"},
		[][]float64{{2, 3, -2, -3}},
		[][]float64{{1, 1, 0, 0}},
	)
	if err != nil {
		t.Fatalf("NewScalarBatch failed: %v", err)
	}
	if err := agg.Update(batch); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	emitted, err := agg.EpochEnd()
	if err != nil {
		t.Fatalf("EpochEnd failed: %v", err)
	}
	byName := metricsByName(t, emitted)

	// Single-target model: no target suffix, val/ prefix.
	if v, ok := byName["val/"+metrics.AreaUnderRocCurveName]; !ok || v != 1.0 {
		t.Errorf("val AUC-ROC = %v (present=%v), expected 1.0", v, ok)
	}
	if v := byName["val/"+metrics.AccuracyAt05Name]; v != 1.0 {
		t.Errorf("val accuracy at 0.5 = %v, expected 1.0", v)
	}
	// Cross entropy is computed from logits, not posteriors.
	expectedCE := (math.Log1p(math.Exp(-2)) + math.Log1p(math.Exp(-3))) / 2
	if v := byName["val/"+metrics.CrossEntropyName]; math.Abs(v-expectedCE) > 1e-12 {
		t.Errorf("val cross entropy = %v, expected %v", v, expectedCE)
	}
	for name := range byName {
		if strings.HasPrefix(name, "train/") {
			t.Errorf("validation epoch emitted training metric %q", name)
		}
		if strings.Contains(name, "/"+subjectlog.DefaultHue) {
			t.Errorf("single-target metric %q carries a target suffix", name)
		}
	}
}

// TestEpochAggregatorTrainingPrefixAndLoss tests the train/ prefix and the
// per-epoch loss average
func TestEpochAggregatorTrainingPrefixAndLoss(t *testing.T) {
	agg := NewEpochAggregator(BinaryClassificationCapabilities(), 0, true, nil, nil)
	agg.AddLoss(1.0)
	agg.AddLoss(3.0)

	emitted, err := agg.EpochEnd()
	if err != nil {
		t.Fatalf("EpochEnd failed: %v", err)
	}
	byName := metricsByName(t, emitted)
	if v, ok := byName["train/"+metrics.LossName]; !ok || v != 2.0 {
		t.Errorf("train loss = %v (present=%v), expected 2.0", v, ok)
	}
	if len(byName) != 1 {
		t.Errorf("expected only the loss metric without updates, got %d metrics", len(byName))
	}
}

// TestEpochAggregatorNaNLabelMask tests that NaN labels exclude a subject
// from one target without affecting siblings
func TestEpochAggregatorNaNLabelMask(t *testing.T) {
	caps := SequenceCapabilities([]int{0, 1})
	fs := afero.NewMemMapFs()
	logger := subjectlog.NewLogger(fs, "subjects.csv", subjectlog.DefaultCrossValidationSplitIndex)
	agg := NewEpochAggregator(caps, 1, false, logger, nil)

	batch, err := NewScalarBatch(
		[]string{"s1", "s2"},
		[][]float64{{2, -2}, {2, -2}},
		[][]float64{{1, math.NaN()}, {1, 0}},
	)
	if err != nil {
		t.Fatalf("NewScalarBatch failed: %v", err)
	}
	if err := agg.Update(batch); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	emitted, err := agg.EpochEnd()
	if err != nil {
		t.Fatalf("EpochEnd failed: %v", err)
	}
	byName := metricsByName(t, emitted)

	// Position 0 saw one class only: AUC is NaN. Position 1 saw both.
	auc0 := byName["val/"+metrics.AreaUnderRocCurveName+"/Seq_pos 0"]
	if !math.IsNaN(auc0) {
		t.Errorf("Seq_pos 0 AUC = %v, expected NaN with one surviving class", auc0)
	}
	auc1 := byName["val/"+metrics.AreaUnderRocCurveName+"/Seq_pos 1"]
	if auc1 != 1.0 {
		t.Errorf("Seq_pos 1 AUC = %v, expected 1.0", auc1)
	}

	// The masked subject produced no log row for position 0 but kept its
	// row for position 1.
	content, err := afero.ReadFile(fs, "subjects.csv")
	if err != nil {
		t.Fatalf("reading subject log: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(content)), "\n")
	if len(lines) != 4 { // header + s1 pos0 + s1 pos1 + s2 pos1
		t.Fatalf("expected 4 log lines, got %d: %q", len(lines), lines)
	}
	for _, line := range lines[1:] {
		if strings.HasPrefix(line, "Seq_pos 0,") && strings.Contains(line, ",s2,") {
			t.Errorf("masked subject s2 was logged for Seq_pos 0: %q", line)
		}
	}
}

// TestEpochAggregatorAllMasked tests that a fully masked target emits nothing
func TestEpochAggregatorAllMasked(t *testing.T) {
	agg := NewEpochAggregator(BinaryClassificationCapabilities(), 0, false, nil, nil)
	batch, err := NewScalarBatch(
		[]string{"s1"},
		[][]float64{{2}},
		[][]float64{{math.NaN()}},
	)
	if err != nil {
		t.Fatalf("NewScalarBatch failed: %v", err)
	}
	if err := agg.Update(batch); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	emitted, err := agg.EpochEnd()
	if err != nil {
		t.Fatalf("EpochEnd failed: %v", err)
	}
	if len(emitted) != 0 {
		t.Errorf("expected no metrics without any surviving update, got %v", emitted)
	}
}

// TestEpochAggregatorResetsBetweenEpochs tests that EpochEnd clears state
func TestEpochAggregatorResetsBetweenEpochs(t *testing.T) {
	agg := NewEpochAggregator(RegressionCapabilities(), 0, true, nil, nil)
	batch, err := NewScalarBatch(
		[]string{"s1", "s2"},
		[][]float64{{1, 2}},
		[][]float64{{2, 4}},
	)
	if err != nil {
		t.Fatalf("NewScalarBatch failed: %v", err)
	}
	if err := agg.Update(batch); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	first, err := agg.EpochEnd()
	if err != nil {
		t.Fatalf("EpochEnd failed: %v", err)
	}
	byName := metricsByName(t, first)
	if v := byName["train/"+metrics.MeanAbsoluteErrorName]; v != 1.5 {
		t.Errorf("MAE = %v, expected 1.5", v)
	}

	second, err := agg.EpochEnd()
	if err != nil {
		t.Fatalf("second EpochEnd failed: %v", err)
	}
	if len(second) != 0 {
		t.Errorf("expected empty second epoch, got %v", second)
	}
}

// TestEpochAggregatorMalformedBatch tests the batch contract violations
func TestEpochAggregatorMalformedBatch(t *testing.T) {
	agg := NewEpochAggregator(BinaryClassificationCapabilities(), 0, true, nil, nil)

	tests := []struct {
		name     string
		subjects []string
		logits   [][]float64
		labels   [][]float64
	}{
		{"no subjects", nil, [][]float64{{}}, [][]float64{{}}},
		{"missing label column", []string{"s1"}, [][]float64{{1}}, [][]float64{}},
		{"extra logit column", []string{"s1"}, [][]float64{{1}, {2}}, [][]float64{{1}}},
		{"length mismatch", []string{"s1", "s2"}, [][]float64{{1}}, [][]float64{{1, 0}}},
	}
	for _, test := range tests {
		batch := &ScalarBatch{SubjectIDs: test.subjects, Logits: test.logits, Labels: test.labels}
		err := agg.Update(batch)
		var malformed *MalformedBatchError
		if err == nil {
			t.Errorf("%s: expected MalformedBatchError, got nil", test.name)
			continue
		}
		if !errors.As(err, &malformed) {
			t.Errorf("%s: expected MalformedBatchError, got %T: %v", test.name, err, err)
		}
	}
}

// TestSegmentationAggregator tests Dice NaN skipping and voxel summation
func TestSegmentationAggregator(t *testing.T) {
	agg := NewSegmentationAggregator([]string{"liver", "spleen"}, 2, true, nil)

	if err := agg.Update([]float64{0.5, 0.8}, []float64{10, 3}); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if err := agg.Update([]float64{0.7, math.NaN()}, []float64{5, 0}); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	byName := metricsByName(t, agg.EpochEnd())
	if v := byName["train/Dice/liver"]; math.Abs(v-0.6) > 1e-12 {
		t.Errorf("Dice/liver = %v, expected 0.6", v)
	}
	if v := byName["train/Dice/spleen"]; math.Abs(v-0.8) > 1e-12 {
		t.Errorf("Dice/spleen = %v, expected 0.8 with NaN skipped", v)
	}
	avg := byName["train/Dice/"+metrics.AverageAcrossStructuresKey]
	if math.Abs(avg-0.7) > 1e-12 {
		t.Errorf("Dice average = %v, expected 0.7", avg)
	}
	if v := byName["train/VoxelCount/liver"]; v != 15 {
		t.Errorf("VoxelCount/liver = %v, expected summed 15", v)
	}
	if v := byName["train/VoxelCount/spleen"]; v != 3 {
		t.Errorf("VoxelCount/spleen = %v, expected summed 3", v)
	}
	if v := byName["train/"+metrics.SubjectCountName]; v != 2 {
		t.Errorf("SubjectCount = %v, expected 2", v)
	}
}

// TestSegmentationAggregatorStructureMismatch tests the structure count check
func TestSegmentationAggregatorStructureMismatch(t *testing.T) {
	agg := NewSegmentationAggregator([]string{"liver", "spleen"}, 0, false, nil)
	err := agg.Update([]float64{0.5}, []float64{10, 3})
	var malformed *MalformedBatchError
	if !errors.As(err, &malformed) {
		t.Errorf("expected MalformedBatchError, got %v", err)
	}
}
