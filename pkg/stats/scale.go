package stats

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"slices"

	"survival/pkg/data"
	"survival/pkg/pipeline"
)

// StandardScaler standardizes numeric columns to zero mean and unit
// variance. Std is the population standard deviation; a constant column
// keeps a divisor of 1.
type StandardScaler struct {
	// Variables to scale. Empty means every column seen at fit time.
	Variables []string

	features []string
	mean     []float64
	std      []float64
}

func NewStandardScaler(vars ...string) *StandardScaler {
	return &StandardScaler{Variables: vars}
}

func (s *StandardScaler) Fit(t *data.Table) error {
	features := s.Variables
	if len(features) == 0 {
		features = t.Names()
	}
	mean := make([]float64, len(features))
	std := make([]float64, len(features))
	for j, name := range features {
		col, err := t.Floats(name)
		if err != nil {
			return fmt.Errorf("standard scaler: %w", err)
		}
		mean[j], std[j] = MeanStd(col)
		if std[j] == 0 {
			std[j] = 1
		}
	}
	s.features = slices.Clone(features)
	s.mean = mean
	s.std = std
	return nil
}

func (s *StandardScaler) Transform(t *data.Table) (*data.Table, error) {
	if s.features == nil {
		return nil, fmt.Errorf("standard scaler: %w", pipeline.ErrNotFitted)
	}
	schema := pipeline.Schema{FeatureNames: s.features}
	if err := schema.Check(t); err != nil {
		return nil, err
	}
	out := t.Clone()
	for j, name := range s.features {
		col, err := t.Floats(name)
		if err != nil {
			return nil, fmt.Errorf("standard scaler: %w", err)
		}
		scaled := make([]data.Value, len(col))
		for i, v := range col {
			scaled[i] = data.Num((v - s.mean[j]) / s.std[j])
		}
		if err := out.Set(name, scaled); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// FeatureNames returns the columns the scaler was fitted on.
func (s *StandardScaler) FeatureNames() []string { return slices.Clone(s.features) }

// Mean returns the fitted per-feature means.
func (s *StandardScaler) Mean() []float64 { return slices.Clone(s.mean) }

// Std returns the fitted per-feature divisors.
func (s *StandardScaler) Std() []float64 { return slices.Clone(s.std) }

// Fitted reports whether Fit or UnmarshalBinary has run.
func (s *StandardScaler) Fitted() bool { return s.features != nil }

// scalerState is the gob wire form of a fitted scaler.
type scalerState struct {
	Variables []string
	Features  []string
	Mean      []float64
	Std       []float64
}

// MarshalBinary implements encoding.BinaryMarshaler using gob.
func (s *StandardScaler) MarshalBinary() ([]byte, error) {
	if !s.Fitted() {
		return nil, fmt.Errorf("standard scaler: %w", pipeline.ErrNotFitted)
	}
	var buf bytes.Buffer
	st := scalerState{Variables: s.Variables, Features: s.features, Mean: s.mean, Std: s.std}
	if err := gob.NewEncoder(&buf).Encode(st); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler using gob.
func (s *StandardScaler) UnmarshalBinary(b []byte) error {
	var st scalerState
	if err := gob.NewDecoder(bytes.NewReader(b)).Decode(&st); err != nil {
		return err
	}
	n := len(st.Features)
	if n == 0 || len(st.Mean) != n || len(st.Std) != n {
		return fmt.Errorf("standard scaler: %d features, %d means, %d stds", n, len(st.Mean), len(st.Std))
	}
	s.Variables, s.features, s.mean, s.std = st.Variables, st.Features, st.Mean, st.Std
	return nil
}
