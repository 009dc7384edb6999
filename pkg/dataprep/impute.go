package dataprep

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"survival/pkg/data"
	"survival/pkg/pipeline"
	"survival/pkg/stats"
)

const (
	// MissingLabel is the sentinel written into null categorical cells.
	MissingLabel = "Missing"
	// MissingSuffix names the indicator column added per numeric variable.
	MissingSuffix = "_NA"
)

// ErrNoObservations is returned when a column has nothing to learn from.
var ErrNoObservations = errors.New("no observed values")

// ---------- Missing indicator ----------

// MissingIndicator adds a binary <name>_NA column per variable.
type MissingIndicator struct {
	Variables []string
	fitted    bool
}

func NewMissingIndicator(vars ...string) *MissingIndicator {
	return &MissingIndicator{Variables: vars}
}

// RestoreMissingIndicator returns an indicator usable without Fit.
func RestoreMissingIndicator(vars ...string) *MissingIndicator {
	return &MissingIndicator{Variables: vars, fitted: true}
}

// Fit checks the variables exist. There is nothing to learn.
func (m *MissingIndicator) Fit(t *data.Table) error {
	if err := t.Require(m.Variables...); err != nil {
		return err
	}
	m.fitted = true
	return nil
}

func (m *MissingIndicator) Transform(t *data.Table) (*data.Table, error) {
	if !m.fitted {
		return nil, fmt.Errorf("missing indicator: %w", pipeline.ErrNotFitted)
	}
	if err := t.Require(m.Variables...); err != nil {
		return nil, err
	}
	out := t.Clone()
	for _, name := range m.Variables {
		col, _ := t.Column(name)
		flags := make([]data.Value, len(col))
		for i, v := range col {
			if v.IsNull() {
				flags[i] = data.Num(1)
			} else {
				flags[i] = data.Num(0)
			}
		}
		if err := out.Set(name+MissingSuffix, flags); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// ---------- Categorical imputer ----------

// CategoricalImputer replaces nulls with a fixed label.
type CategoricalImputer struct {
	Variables []string
	Label     string
	fitted    bool
}

func NewCategoricalImputer(vars ...string) *CategoricalImputer {
	return &CategoricalImputer{Variables: vars, Label: MissingLabel}
}

// RestoreCategoricalImputer returns an imputer usable without Fit.
func RestoreCategoricalImputer(label string, vars ...string) *CategoricalImputer {
	return &CategoricalImputer{Variables: vars, Label: label, fitted: true}
}

func (c *CategoricalImputer) Fit(t *data.Table) error {
	if err := t.Require(c.Variables...); err != nil {
		return err
	}
	c.fitted = true
	return nil
}

func (c *CategoricalImputer) Transform(t *data.Table) (*data.Table, error) {
	if !c.fitted {
		return nil, fmt.Errorf("categorical imputer: %w", pipeline.ErrNotFitted)
	}
	if err := t.Require(c.Variables...); err != nil {
		return nil, err
	}
	out := t.Clone()
	fill := data.Str(c.Label)
	for _, name := range c.Variables {
		col, _ := out.Column(name)
		filled := slices.Clone(col)
		for i, v := range filled {
			if v.IsNull() {
				filled[i] = fill
			}
		}
		if err := out.Set(name, filled); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// ---------- Numerical imputer ----------

// NumericalImputer fills nulls with the per-column median learned at fit.
type NumericalImputer struct {
	Variables []string
	medians   map[string]float64
}

func NewNumericalImputer(vars ...string) *NumericalImputer {
	return &NumericalImputer{Variables: vars}
}

// RestoreNumericalImputer returns an imputer already fitted with medians.
// Every variable needs a median.
func RestoreNumericalImputer(medians map[string]float64, vars ...string) (*NumericalImputer, error) {
	for _, v := range vars {
		if _, ok := medians[v]; !ok {
			return nil, fmt.Errorf("no median for %q: %w", v, pipeline.ErrNotFitted)
		}
	}
	return &NumericalImputer{Variables: vars, medians: maps.Clone(medians)}, nil
}

// Fit learns the median of the observed values of each variable.
func (n *NumericalImputer) Fit(t *data.Table) error {
	medians := make(map[string]float64, len(n.Variables))
	for _, name := range n.Variables {
		col, err := t.Column(name)
		if err != nil {
			return err
		}
		var nums []float64
		for i, v := range col {
			if v.IsNull() {
				continue
			}
			f, ok := v.Float()
			if !ok {
				return &data.ColumnError{Column: name, Err: fmt.Errorf("row %d is %q: %w", i, v.String(), data.ErrColumnType)}
			}
			nums = append(nums, f)
		}
		if len(nums) == 0 {
			return &data.ColumnError{Column: name, Err: ErrNoObservations}
		}
		medians[name] = stats.Median(nums)
	}
	n.medians = medians
	return nil
}

func (n *NumericalImputer) Transform(t *data.Table) (*data.Table, error) {
	if n.medians == nil {
		return nil, fmt.Errorf("numerical imputer: %w", pipeline.ErrNotFitted)
	}
	if err := t.Require(n.Variables...); err != nil {
		return nil, err
	}
	out := t.Clone()
	for _, name := range n.Variables {
		col, _ := out.Column(name)
		fill := data.Num(n.medians[name])
		filled := slices.Clone(col)
		for i, v := range filled {
			if v.IsNull() {
				filled[i] = fill
			}
		}
		if err := out.Set(name, filled); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Medians returns a copy of the learned medians, nil before Fit.
func (n *NumericalImputer) Medians() map[string]float64 {
	return maps.Clone(n.medians)
}
