package model

// Classification metrics (binary, labels 0/1)

// ConfusionCounts tallies true/false positives and negatives.
type ConfusionCounts struct {
	TP, FP, TN, FN int
}

// Confusion counts predictions against truth. Extra entries in the longer
// slice are ignored.
func Confusion(yTrue, yPred []float64) ConfusionCounts {
	var c ConfusionCounts
	for i := range min(len(yTrue), len(yPred)) {
		switch {
		case yPred[i] == 1 && yTrue[i] == 1:
			c.TP++
		case yPred[i] == 1:
			c.FP++
		case yTrue[i] == 1:
			c.FN++
		default:
			c.TN++
		}
	}
	return c
}

// Accuracy returns the share of exact matches, 0 for empty input.
func Accuracy(yTrue, yPred []float64) float64 {
	n := min(len(yTrue), len(yPred))
	if n == 0 {
		return 0
	}
	c := 0
	for i := range n {
		if yTrue[i] == yPred[i] {
			c++
		}
	}
	return float64(c) / float64(n)
}

// BinaryPredFromProba labels a row 1 when its probability is strictly above
// threshold. A probability equal to the threshold is class 0, so at 0.5 the
// label follows the sign of the decision function.
func BinaryPredFromProba(proba []float64, threshold float64) []float64 {
	out := make([]float64, len(proba))
	for i, p := range proba {
		if p > threshold {
			out[i] = 1
		} else {
			out[i] = 0
		}
	}
	return out
}

func PrecisionRecallF1(yTrue, yPred []float64) (prec, rec, f1 float64) {
	c := Confusion(yTrue, yPred)
	if c.TP+c.FP > 0 {
		prec = float64(c.TP) / float64(c.TP+c.FP)
	}
	if c.TP+c.FN > 0 {
		rec = float64(c.TP) / float64(c.TP+c.FN)
	}
	if prec+rec > 0 {
		f1 = 2 * prec * rec / (prec + rec)
	}
	return
}

// Report bundles the scores printed after training and scoring.
type Report struct {
	Accuracy  float64
	Precision float64
	Recall    float64
	F1        float64
	LogLoss   float64
	Confusion ConfusionCounts
}

// Evaluate scores probabilities against labels at the given threshold.
func Evaluate(yTrue, proba []float64, threshold float64) Report {
	pred := BinaryPredFromProba(proba, threshold)
	r := Report{
		Accuracy:  Accuracy(yTrue, pred),
		LogLoss:   LogLoss(yTrue, proba),
		Confusion: Confusion(yTrue, pred),
	}
	r.Precision, r.Recall, r.F1 = PrecisionRecallF1(yTrue, pred)
	return r
}
