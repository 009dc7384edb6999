package optim

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/optimize"
)

// Objective is a smooth function with its gradient.
// Grad writes the gradient at x into grad.
type Objective struct {
	Func func(x []float64) float64
	Grad func(grad, x []float64)
}

// Settings bounds an L-BFGS run. Zero values fall back to gonum defaults.
type Settings struct {
	MaxIterations     int
	GradientTolerance float64
}

// Result is the minimiser found and how the run ended.
type Result struct {
	X               []float64
	F               float64
	Iterations      int
	FuncEvaluations int
	Status          string
	Converged       bool
}

// LBFGS minimizes obj starting from x0, taking at most s.MaxIterations
// steps. Running out of iterations is not an error: the best point so far
// is returned with Converged false.
func LBFGS(obj Objective, x0 []float64, s Settings) (Result, error) {
	// gonum counts the evaluation of x0 as the first major iteration.
	major := s.MaxIterations
	if major > 0 {
		major++
	}
	settings := &optimize.Settings{
		GradientThreshold: s.GradientTolerance,
		MajorIterations:   major,
		Converger: &optimize.FunctionConverge{
			Absolute:   1e-12,
			Relative:   1e-12,
			Iterations: 50,
		},
	}
	problem := optimize.Problem{Func: obj.Func, Grad: obj.Grad}

	res, err := optimize.Minimize(problem, x0, settings, &optimize.LBFGS{})
	stalled := errors.Is(err, optimize.ErrNoProgress) || errors.Is(err, optimize.ErrLinesearcherFailure)
	if err != nil && (!stalled || res == nil) {
		return Result{}, fmt.Errorf("lbfgs: %w", err)
	}

	out := Result{
		X:               res.X,
		F:               res.F,
		Iterations:      max(res.MajorIterations-1, 0),
		FuncEvaluations: res.FuncEvaluations,
		Status:          res.Status.String(),
	}
	switch res.Status {
	case optimize.GradientThreshold, optimize.FunctionConvergence, optimize.StepConvergence, optimize.MethodConverge, optimize.Success:
		out.Converged = true
	}
	if stalled {
		// no representable step left: the point is as good as float64 allows
		out.Converged = true
		out.Status = "NoProgress"
	}
	return out, nil
}
