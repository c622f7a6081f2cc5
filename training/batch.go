package training

// ScalarBatch is one minibatch of a scalar or sequence model: parallel
// per-subject slices with one logits and labels column per prediction target.
// A NaN label marks missing ground truth for that subject and target only;
// sibling targets are unaffected.
type ScalarBatch struct {
	SubjectIDs []string
	// Logits[target][subject] is the raw model output.
	Logits [][]float64
	// Labels[target][subject] is the ground truth, NaN where missing.
	Labels [][]float64
}

// NewScalarBatch validates the parallel-slice contract and builds a batch.
func NewScalarBatch(subjectIDs []string, logits, labels [][]float64) (*ScalarBatch, error) {
	b := &ScalarBatch{SubjectIDs: subjectIDs, Logits: logits, Labels: labels}
	if err := b.validate(len(logits)); err != nil {
		return nil, err
	}
	return b, nil
}

// validate checks the batch against an expected target count and the
// parallel-slice contract.
func (b *ScalarBatch) validate(targetCount int) error {
	if len(b.SubjectIDs) == 0 {
		return malformedBatchf("batch contains no subjects")
	}
	if len(b.Logits) != targetCount {
		return malformedBatchf("expected %d logit columns, got %d", targetCount, len(b.Logits))
	}
	if len(b.Labels) != targetCount {
		return malformedBatchf("expected %d label columns, got %d", targetCount, len(b.Labels))
	}
	for i := range b.Logits {
		if len(b.Logits[i]) != len(b.SubjectIDs) {
			return malformedBatchf("logit column %d has %d entries for %d subjects",
				i, len(b.Logits[i]), len(b.SubjectIDs))
		}
		if len(b.Labels[i]) != len(b.SubjectIDs) {
			return malformedBatchf("label column %d has %d entries for %d subjects",
				i, len(b.Labels[i]), len(b.SubjectIDs))
		}
	}
	return nil
}
