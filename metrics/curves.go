package metrics

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/integrate"
)

// ROCPoint is one operating point on a receiver-operating-characteristic
// curve. It describes the classifier that predicts positive whenever the
// model output is greater than or equal to Threshold.
type ROCPoint struct {
	Threshold float64
	TPR       float64 // True Positive Rate at this threshold
	FPR       float64 // False Positive Rate at this threshold
}

// PRPoint is one operating point on a precision-recall curve.
type PRPoint struct {
	Threshold float64
	Precision float64
	Recall    float64
}

type scoredLabel struct {
	score float64
	label float64
}

func sortedByScoreDescending(labels, outputs []float64) []scoredLabel {
	pairs := make([]scoredLabel, len(outputs))
	for i := range outputs {
		pairs[i] = scoredLabel{score: outputs[i], label: labels[i]}
	}
	sort.SliceStable(pairs, func(i, j int) bool {
		return pairs[i].score > pairs[j].score
	})
	return pairs
}

func countClasses(labels []float64) (pos, neg int) {
	for _, l := range labels {
		if l > 0.5 {
			pos++
		} else {
			neg++
		}
	}
	return pos, neg
}

// ratio returns num/den, or NaN when the denominator is zero. Rates over an
// empty class are undefined rather than zero.
func ratio(num, den int) float64 {
	if den == 0 {
		return math.NaN()
	}
	return float64(num) / float64(den)
}

// ROCCurve computes the ROC curve for binary labels and unbounded scores.
// The curve has one point per distinct threshold, in descending threshold
// order, preceded by a sentinel point at (FPR=0, TPR=0) whose threshold is
// one above the highest observed score. Tied scores are collapsed into a
// single point so that trapezoidal integration stays exact under ties.
func ROCCurve(labels, outputs []float64) []ROCPoint {
	if len(outputs) == 0 || len(labels) != len(outputs) {
		return nil
	}
	pairs := sortedByScoreDescending(labels, outputs)
	totalPos, totalNeg := countClasses(labels)

	points := make([]ROCPoint, 0, len(pairs)+1)
	points = append(points, ROCPoint{Threshold: pairs[0].score + 1, TPR: 0, FPR: 0})

	tp, fp := 0, 0
	for i := 0; i < len(pairs); {
		j := i
		for j < len(pairs) && pairs[j].score == pairs[i].score {
			if pairs[j].label > 0.5 {
				tp++
			} else {
				fp++
			}
			j++
		}
		points = append(points, ROCPoint{
			Threshold: pairs[i].score,
			TPR:       ratio(tp, totalPos),
			FPR:       ratio(fp, totalNeg),
		})
		i = j
	}
	return points
}

// ChooseThreshold selects the Youden-optimal decision threshold from a
// labelled validation split: the ROC point maximizing TPR - FPR. Ties are
// broken by the smallest Euclidean distance to the perfect classifier at
// (FPR=0, TPR=1), and remaining ties by the first point in threshold-
// descending order.
func ChooseThreshold(labels, outputs []float64) float64 {
	points := ROCCurve(labels, outputs)
	if len(points) == 0 {
		return math.NaN()
	}
	bestIdx := -1
	bestJ := math.Inf(-1)
	bestDist := math.Inf(1)
	for i, p := range points {
		j := p.TPR - p.FPR
		if math.IsNaN(j) {
			continue
		}
		dist := p.FPR*p.FPR + (1-p.TPR)*(1-p.TPR)
		if j > bestJ || (j == bestJ && dist < bestDist) {
			bestIdx, bestJ, bestDist = i, j, dist
		}
	}
	if bestIdx < 0 {
		return math.NaN()
	}
	return points[bestIdx].Threshold
}

// AUCROC computes the area under the ROC curve by trapezoidal integration.
// Returns NaN when only one label class is present, since the curve is
// undefined without both classes.
func AUCROC(labels, outputs []float64) float64 {
	pos, neg := countClasses(labels)
	if pos == 0 || neg == 0 {
		return math.NaN()
	}
	points := ROCCurve(labels, outputs)
	fpr := make([]float64, len(points))
	tpr := make([]float64, len(points))
	for i, p := range points {
		fpr[i] = p.FPR
		tpr[i] = p.TPR
	}
	return integrate.Trapezoidal(fpr, tpr)
}

// PRCurve computes the precision-recall curve for binary labels and scores.
// Points are ordered by ascending threshold (descending recall), one per
// distinct threshold, followed by the conventional (Recall=0, Precision=1)
// anchor point.
func PRCurve(labels, outputs []float64) []PRPoint {
	if len(outputs) == 0 || len(labels) != len(outputs) {
		return nil
	}
	pairs := sortedByScoreDescending(labels, outputs)
	totalPos, _ := countClasses(labels)

	// Walk thresholds in descending order accumulating counts, then reverse
	// into ascending-threshold order.
	descending := make([]PRPoint, 0, len(pairs)+1)
	tp, predicted := 0, 0
	for i := 0; i < len(pairs); {
		j := i
		for j < len(pairs) && pairs[j].score == pairs[i].score {
			if pairs[j].label > 0.5 {
				tp++
			}
			predicted++
			j++
		}
		descending = append(descending, PRPoint{
			Threshold: pairs[i].score,
			Precision: ratio(tp, predicted),
			Recall:    ratio(tp, totalPos),
		})
		i = j
	}

	points := make([]PRPoint, 0, len(descending)+1)
	for i := len(descending) - 1; i >= 0; i-- {
		points = append(points, descending[i])
	}
	points = append(points, PRPoint{Threshold: math.Inf(1), Precision: 1, Recall: 0})
	return points
}

// AUCPR computes the area under the precision-recall curve by trapezoidal
// integration over recall. Returns NaN when only one label class is present.
func AUCPR(labels, outputs []float64) float64 {
	pos, neg := countClasses(labels)
	if pos == 0 || neg == 0 {
		return math.NaN()
	}
	points := PRCurve(labels, outputs)
	// The curve ends at the (Recall=0, Precision=1) anchor; integrate over
	// ascending recall.
	recall := make([]float64, len(points))
	precision := make([]float64, len(points))
	for i := range points {
		p := points[len(points)-1-i]
		recall[i] = p.Recall
		precision[i] = p.Precision
	}
	return integrate.Trapezoidal(recall, precision)
}

// BinaryAccuracy computes the fraction of subjects whose thresholded score
// matches the binary label. A score exactly equal to the threshold counts as
// a positive prediction.
func BinaryAccuracy(labels, outputs []float64, threshold float64) float64 {
	if len(outputs) == 0 {
		return math.NaN()
	}
	correct := 0
	for i := range outputs {
		predicted := outputs[i] >= threshold
		actual := labels[i] > 0.5
		if predicted == actual {
			correct++
		}
	}
	return float64(correct) / float64(len(outputs))
}

// FalsePositiveRate computes FP / (FP + TN) at the given threshold.
func FalsePositiveRate(labels, outputs []float64, threshold float64) float64 {
	fp, tn := 0, 0
	for i := range outputs {
		if labels[i] > 0.5 {
			continue
		}
		if outputs[i] >= threshold {
			fp++
		} else {
			tn++
		}
	}
	return ratio(fp, fp+tn)
}

// FalseNegativeRate computes FN / (FN + TP) at the given threshold.
func FalseNegativeRate(labels, outputs []float64, threshold float64) float64 {
	fn, tp := 0, 0
	for i := range outputs {
		if labels[i] <= 0.5 {
			continue
		}
		if outputs[i] >= threshold {
			tp++
		} else {
			fn++
		}
	}
	return ratio(fn, fn+tp)
}
