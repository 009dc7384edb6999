package model

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"runtime"
	"slices"
	"sync"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"survival/pkg/data"
	"survival/pkg/optim"
	"survival/pkg/pipeline"
)

const (
	DefaultC                 = 0.0005
	DefaultThreshold         = 0.5
	DefaultMaxIterations     = 100
	DefaultGradientTolerance = 1e-4
)

// FitStats records how the solver finished.
type FitStats struct {
	Iterations      int
	FuncEvaluations int
	Objective       float64
	Status          string
	Converged       bool
}

// LogisticRegression is a binary classifier with an L2 penalty on the
// weights. Fit minimizes
//
//	C * sum_i logloss(w·x_i + b, y_i) + ||w||^2 / 2
//
// with L-BFGS. The intercept is not penalized.
type LogisticRegression struct {
	C                 float64
	Threshold         float64
	MaxIterations     int
	GradientTolerance float64

	schema    pipeline.Schema
	coef      []float64
	intercept float64
	fitted    bool
	stats     FitStats
}

// Option configures a LogisticRegression.
type Option func(*LogisticRegression)

// WithC sets the inverse regularization strength.
func WithC(c float64) Option { return func(m *LogisticRegression) { m.C = c } }

// WithThreshold sets the probability cut-off for class 1.
func WithThreshold(t float64) Option { return func(m *LogisticRegression) { m.Threshold = t } }

func WithMaxIterations(n int) Option { return func(m *LogisticRegression) { m.MaxIterations = n } }

func WithGradientTolerance(tol float64) Option {
	return func(m *LogisticRegression) { m.GradientTolerance = tol }
}

// NewLogisticRegression returns an unfitted model.
func NewLogisticRegression(opts ...Option) *LogisticRegression {
	m := &LogisticRegression{
		C:                 DefaultC,
		Threshold:         DefaultThreshold,
		MaxIterations:     DefaultMaxIterations,
		GradientTolerance: DefaultGradientTolerance,
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Fit learns weights for every column of t, in column order.
func (m *LogisticRegression) Fit(t *data.Table, y []float64) error {
	if t.NumRows() == 0 || t.NumCols() == 0 {
		return ErrEmpty
	}
	if len(y) != t.NumRows() {
		return fmt.Errorf("%d targets for %d rows: %w", len(y), t.NumRows(), data.ErrLength)
	}
	for i, v := range y {
		if v != 0 && v != 1 {
			return fmt.Errorf("target %d is %v: %w", i, v, ErrLabels)
		}
	}
	if m.C <= 0 {
		return fmt.Errorf("C must be positive, got %v", m.C)
	}

	schema := pipeline.NewSchema(t)
	rows, err := schema.Matrix(t)
	if err != nil {
		return err
	}
	X := dense(rows, len(schema.FeatureNames))

	res, err := optim.LBFGS(m.objective(X, y), make([]float64, len(schema.FeatureNames)+1), optim.Settings{
		MaxIterations:     m.MaxIterations,
		GradientTolerance: m.GradientTolerance,
	})
	if err != nil {
		return fmt.Errorf("logistic regression: %w", err)
	}

	p := len(schema.FeatureNames)
	m.schema = schema
	m.coef = slices.Clone(res.X[:p])
	m.intercept = res.X[p]
	m.stats = FitStats{
		Iterations:      res.Iterations,
		FuncEvaluations: res.FuncEvaluations,
		Objective:       res.F,
		Status:          res.Status,
		Converged:       res.Converged,
	}
	m.fitted = true
	return nil
}

// objective builds the penalized loss over theta = [w..., b].
func (m *LogisticRegression) objective(X *mat.Dense, y []float64) optim.Objective {
	n, p := X.Dims()
	c := m.C
	scores := func(theta []float64) *mat.VecDense {
		z := mat.NewVecDense(n, nil)
		z.MulVec(X, mat.NewVecDense(p, theta[:p]))
		b := theta[p]
		for i := range n {
			z.SetVec(i, z.AtVec(i)+b)
		}
		return z
	}
	return optim.Objective{
		Func: func(theta []float64) float64 {
			z := scores(theta)
			loss := 0.0
			for i := range n {
				loss += logLossFromLogit(z.AtVec(i), y[i])
			}
			w := theta[:p]
			return c*loss + 0.5*floats.Dot(w, w)
		},
		Grad: func(grad, theta []float64) {
			z := scores(theta)
			r := mat.NewVecDense(n, nil)
			sum := 0.0
			for i := range n {
				d := Sigmoid(z.AtVec(i)) - y[i]
				r.SetVec(i, d)
				sum += d
			}
			gw := mat.NewVecDense(p, grad[:p])
			gw.MulVec(X.T(), r)
			gw.ScaleVec(c, gw)
			gw.AddVec(gw, mat.NewVecDense(p, theta[:p]))
			grad[p] = c * sum
		},
	}
}

// PredictProba returns p(y=1) for each row of t. Rows are split across
// workers; each worker writes its own slice range.
func (m *LogisticRegression) PredictProba(t *data.Table) ([]float64, error) {
	if !m.fitted {
		return nil, fmt.Errorf("logistic regression: %w", pipeline.ErrNotFitted)
	}
	X, err := m.schema.Matrix(t)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(X))
	if len(X) == 0 {
		return out, nil
	}

	var wg sync.WaitGroup
	workers := runtime.GOMAXPROCS(0)
	rowsPerWorker := (len(X) + workers - 1) / workers
	for w := 0; w < workers; w++ {
		start := w * rowsPerWorker
		end := min(start+rowsPerWorker, len(X))
		if start >= end {
			continue
		}
		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			for i := start; i < end; i++ {
				out[i] = Sigmoid(floats.Dot(m.coef, X[i]) + m.intercept)
			}
		}(start, end)
	}
	wg.Wait()
	return out, nil
}

// Predict returns 1 where p(y=1) > Threshold, else 0.
func (m *LogisticRegression) Predict(t *data.Table) ([]float64, error) {
	proba, err := m.PredictProba(t)
	if err != nil {
		return nil, err
	}
	return BinaryPredFromProba(proba, m.Threshold), nil
}

// FeatureNames returns the columns the model was fitted on, in weight order.
func (m *LogisticRegression) FeatureNames() []string { return slices.Clone(m.schema.FeatureNames) }

// Coef returns the fitted weights.
func (m *LogisticRegression) Coef() []float64 { return slices.Clone(m.coef) }

func (m *LogisticRegression) Intercept() float64 { return m.intercept }

// Stats reports the last Fit's solver outcome.
func (m *LogisticRegression) Stats() FitStats { return m.stats }

func (m *LogisticRegression) Fitted() bool { return m.fitted }

// logisticState is the gob wire form of a fitted model.
type logisticState struct {
	C                 float64
	Threshold         float64
	MaxIterations     int
	GradientTolerance float64
	Features          []string
	Coef              []float64
	Intercept         float64
}

// MarshalBinary implements encoding.BinaryMarshaler using gob.
func (m *LogisticRegression) MarshalBinary() ([]byte, error) {
	if !m.fitted {
		return nil, fmt.Errorf("logistic regression: %w", pipeline.ErrNotFitted)
	}
	var buf bytes.Buffer
	st := logisticState{
		C:                 m.C,
		Threshold:         m.Threshold,
		MaxIterations:     m.MaxIterations,
		GradientTolerance: m.GradientTolerance,
		Features:          m.schema.FeatureNames,
		Coef:              m.coef,
		Intercept:         m.intercept,
	}
	if err := gob.NewEncoder(&buf).Encode(st); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler using gob.
func (m *LogisticRegression) UnmarshalBinary(b []byte) error {
	var st logisticState
	if err := gob.NewDecoder(bytes.NewReader(b)).Decode(&st); err != nil {
		return err
	}
	if len(st.Features) == 0 || len(st.Coef) != len(st.Features) {
		return fmt.Errorf("logistic regression: %d features, %d weights", len(st.Features), len(st.Coef))
	}
	*m = LogisticRegression{
		C:                 st.C,
		Threshold:         st.Threshold,
		MaxIterations:     st.MaxIterations,
		GradientTolerance: st.GradientTolerance,
		schema:            pipeline.Schema{FeatureNames: st.Features},
		coef:              st.Coef,
		intercept:         st.Intercept,
		fitted:            true,
	}
	return nil
}

func dense(rows [][]float64, cols int) *mat.Dense {
	flat := make([]float64, 0, len(rows)*cols)
	for _, r := range rows {
		flat = append(flat, r...)
	}
	return mat.NewDense(len(rows), cols, flat)
}
