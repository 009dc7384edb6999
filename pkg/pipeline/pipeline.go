package pipeline

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"survival/pkg/data"
)

// ErrNotFitted is returned when a component is used before Fit.
var ErrNotFitted = errors.New("not fitted")

// Transformer interface for fit/transform pattern.
// Transform must not modify its input table.
type Transformer interface {
	Fit(t *data.Table) error
	Transform(t *data.Table) (*data.Table, error)
}

// Estimator is the final, supervised stage of a pipeline.
type Estimator interface {
	Fit(t *data.Table, y []float64) error
	PredictProba(t *data.Table) ([]float64, error)
	Predict(t *data.Table) ([]float64, error)
}

// Step is a named transformer.
type Step struct {
	Name        string
	Transformer Transformer
}

// Pipeline chains multiple transformers and a final estimator.
type Pipeline struct {
	steps     []Step
	estimator Estimator
	logger    *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger used to trace each step.
func WithLogger(l *slog.Logger) Option { return func(p *Pipeline) { p.logger = l } }

func NewPipeline(estimator Estimator, steps []Step, opts ...Option) *Pipeline {
	p := &Pipeline{steps: steps, estimator: estimator}
	for _, o := range opts {
		o(p)
	}
	if p.logger == nil {
		p.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return p
}

// Steps returns the transformer steps in order.
func (p *Pipeline) Steps() []Step { return p.steps }

// Estimator returns the final stage.
func (p *Pipeline) Estimator() Estimator { return p.estimator }

// Step looks a transformer up by name.
func (p *Pipeline) Step(name string) (Transformer, bool) {
	for _, s := range p.steps {
		if s.Name == name {
			return s.Transformer, true
		}
	}
	return nil, false
}

// Fit fits each transformer on the output of the previous one, then fits
// the estimator on the final table. The input table is left untouched.
func (p *Pipeline) Fit(t *data.Table, y []float64) error {
	if len(y) != t.NumRows() {
		return fmt.Errorf("%d targets for %d rows: %w", len(y), t.NumRows(), data.ErrLength)
	}
	for _, step := range p.steps {
		if err := step.Transformer.Fit(t); err != nil {
			return fmt.Errorf("fitting step %q: %w", step.Name, err)
		}
		next, err := step.Transformer.Transform(t)
		if err != nil {
			return fmt.Errorf("transforming at step %q: %w", step.Name, err)
		}
		t = next
		p.logger.Debug("step fitted", "step", step.Name, "rows", t.NumRows(), "cols", t.NumCols())
	}
	if p.estimator == nil {
		return nil
	}
	if err := p.estimator.Fit(t, y); err != nil {
		return fmt.Errorf("fitting estimator: %w", err)
	}
	return nil
}

// Transform runs every transformer with its fitted parameters.
func (p *Pipeline) Transform(t *data.Table) (*data.Table, error) {
	for _, step := range p.steps {
		next, err := step.Transformer.Transform(t)
		if err != nil {
			return nil, fmt.Errorf("transforming at step %q: %w", step.Name, err)
		}
		t = next
		p.logger.Debug("step applied", "step", step.Name, "rows", t.NumRows(), "cols", t.NumCols())
	}
	return t, nil
}

// PredictProba transforms t and returns p(y=1) per row.
func (p *Pipeline) PredictProba(t *data.Table) ([]float64, error) {
	if p.estimator == nil {
		return nil, errors.New("pipeline has no estimator")
	}
	x, err := p.Transform(t)
	if err != nil {
		return nil, err
	}
	return p.estimator.PredictProba(x)
}

// Predict transforms t and returns class labels.
func (p *Pipeline) Predict(t *data.Table) ([]float64, error) {
	if p.estimator == nil {
		return nil, errors.New("pipeline has no estimator")
	}
	x, err := p.Transform(t)
	if err != nil {
		return nil, err
	}
	return p.estimator.Predict(x)
}
