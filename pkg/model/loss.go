package model

import "math"

// Sigmoid is the logistic function, evaluated without overflow for large |x|.
func Sigmoid(x float64) float64 {
	if x >= 0 {
		return 1.0 / (1.0 + math.Exp(-x))
	}
	e := math.Exp(x)
	return e / (1.0 + e)
}

// softplus returns log(1 + exp(x)).
func softplus(x float64) float64 {
	if x > 0 {
		return x + math.Log1p(math.Exp(-x))
	}
	return math.Log1p(math.Exp(x))
}

// logLossFromLogit is the binary cross-entropy of one sample given its
// linear score z and label y in {0, 1}.
func logLossFromLogit(z, y float64) float64 {
	return softplus(z) - y*z
}

// LogLoss returns the mean binary cross-entropy of probabilities p
// against labels y. Probabilities are clipped away from 0 and 1. Extra
// entries in the longer slice are ignored.
func LogLoss(yTrue, p []float64) float64 {
	n := min(len(yTrue), len(p))
	if n == 0 {
		return 0
	}
	s := 0.0
	for i := range n {
		q := math.Min(math.Max(p[i], 1e-15), 1-1e-15)
		y := yTrue[i]
		s += -(y*math.Log(q) + (1-y)*math.Log(1-q))
	}
	return s / float64(n)
}
