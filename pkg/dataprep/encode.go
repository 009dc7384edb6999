package dataprep

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"survival/pkg/data"
	"survival/pkg/pipeline"
)

const (
	// RareLabel is the default replacement for infrequent categories.
	RareLabel = "Rare"
	// DefaultRareTolerance is the share a label must exceed to be kept.
	DefaultRareTolerance = 0.05
)

// ---------- Rare label encoder ----------

// RareLabelEncoder groups infrequent labels under Label. A label is
// frequent when count/rows is strictly greater than Tol, nulls counted in
// the row total.
type RareLabelEncoder struct {
	Variables []string
	Tol       float64
	Label     string
	frequent  map[string][]string
}

func NewRareLabelEncoder(tol float64, vars ...string) *RareLabelEncoder {
	return &RareLabelEncoder{Variables: vars, Tol: tol, Label: RareLabel}
}

// RestoreRareLabelEncoder returns an encoder fitted with known frequent labels.
func RestoreRareLabelEncoder(tol float64, frequent map[string][]string, vars ...string) (*RareLabelEncoder, error) {
	labels := make(map[string][]string, len(vars))
	for _, v := range vars {
		l, ok := frequent[v]
		if !ok {
			return nil, fmt.Errorf("no frequent labels for %q: %w", v, pipeline.ErrNotFitted)
		}
		labels[v] = slices.Sorted(slices.Values(l))
	}
	return &RareLabelEncoder{Variables: vars, Tol: tol, Label: RareLabel, frequent: labels}, nil
}

func (r *RareLabelEncoder) Fit(t *data.Table) error {
	if err := t.Require(r.Variables...); err != nil {
		return err
	}
	if t.NumRows() == 0 {
		return fmt.Errorf("rare label encoder: %w", ErrNoObservations)
	}
	total := float64(t.NumRows())
	frequent := make(map[string][]string, len(r.Variables))
	for _, name := range r.Variables {
		col, _ := t.Column(name)
		counts := make(map[string]int)
		for _, v := range col {
			if v.IsNull() {
				continue
			}
			counts[v.String()]++
		}
		labels := []string{}
		for label, n := range counts {
			if float64(n)/total > r.Tol {
				labels = append(labels, label)
			}
		}
		slices.Sort(labels)
		frequent[name] = labels
	}
	r.frequent = frequent
	return nil
}

func (r *RareLabelEncoder) Transform(t *data.Table) (*data.Table, error) {
	if r.frequent == nil {
		return nil, fmt.Errorf("rare label encoder: %w", pipeline.ErrNotFitted)
	}
	if err := t.Require(r.Variables...); err != nil {
		return nil, err
	}
	out := t.Clone()
	rare := data.Str(r.Label)
	for _, name := range r.Variables {
		col, _ := out.Column(name)
		labels := r.frequent[name]
		grouped := make([]data.Value, len(col))
		for i, v := range col {
			if v.IsNull() {
				grouped[i] = rare
				continue
			}
			s := v.String()
			if _, ok := slices.BinarySearch(labels, s); ok {
				grouped[i] = data.Str(s)
			} else {
				grouped[i] = rare
			}
		}
		if err := out.Set(name, grouped); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// FrequentLabels returns the sorted labels kept per variable, nil before Fit.
func (r *RareLabelEncoder) FrequentLabels() map[string][]string {
	if r.frequent == nil {
		return nil
	}
	out := make(map[string][]string, len(r.frequent))
	for k, v := range r.frequent {
		out[k] = slices.Clone(v)
	}
	return out
}

// ---------- Categorical encoder ----------

// CategoricalEncoder replaces each variable with k-1 binary columns, one
// per fitted level except the alphabetically first. Columns are named
// <variable>_<level> and appended in variable order. Levels not seen at
// fit time encode as all zeros.
type CategoricalEncoder struct {
	Variables []string
	levels    map[string][]string
}

func NewCategoricalEncoder(vars ...string) *CategoricalEncoder {
	return &CategoricalEncoder{Variables: vars}
}

// RestoreCategoricalEncoder rebuilds an encoder from its dummy column names.
func RestoreCategoricalEncoder(dummies map[string][]string, vars ...string) (*CategoricalEncoder, error) {
	levels := make(map[string][]string, len(vars))
	for _, v := range vars {
		names, ok := dummies[v]
		if !ok {
			return nil, fmt.Errorf("no dummy variables for %q: %w", v, pipeline.ErrNotFitted)
		}
		prefix := v + "_"
		lv := make([]string, len(names))
		for i, n := range names {
			level, found := strings.CutPrefix(n, prefix)
			if !found {
				return nil, fmt.Errorf("dummy %q does not belong to %q", n, v)
			}
			lv[i] = level
		}
		levels[v] = lv
	}
	return &CategoricalEncoder{Variables: vars, levels: levels}, nil
}

func (c *CategoricalEncoder) Fit(t *data.Table) error {
	if err := t.Require(c.Variables...); err != nil {
		return err
	}
	levels := make(map[string][]string, len(c.Variables))
	for _, name := range c.Variables {
		col, _ := t.Column(name)
		seen := make(map[string]struct{})
		for _, v := range col {
			if !v.IsNull() {
				seen[v.String()] = struct{}{}
			}
		}
		all := slices.Sorted(maps.Keys(seen))
		if len(all) > 0 {
			all = all[1:]
		}
		levels[name] = all
	}
	c.levels = levels
	return nil
}

func (c *CategoricalEncoder) Transform(t *data.Table) (*data.Table, error) {
	if c.levels == nil {
		return nil, fmt.Errorf("categorical encoder: %w", pipeline.ErrNotFitted)
	}
	if err := t.Require(c.Variables...); err != nil {
		return nil, err
	}
	out := t.Clone()
	for _, name := range c.Variables {
		if err := out.Drop(name); err != nil {
			return nil, err
		}
	}
	for _, name := range c.Variables {
		col, _ := t.Column(name)
		for _, level := range c.levels[name] {
			dummy := make([]data.Value, len(col))
			for i, v := range col {
				if !v.IsNull() && v.String() == level {
					dummy[i] = data.Num(1)
				} else {
					dummy[i] = data.Num(0)
				}
			}
			if err := out.Set(name+"_"+level, dummy); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}

// DummyVariables returns the generated column names per variable, nil before Fit.
func (c *CategoricalEncoder) DummyVariables() map[string][]string {
	if c.levels == nil {
		return nil
	}
	out := make(map[string][]string, len(c.levels))
	for name, lv := range c.levels {
		names := make([]string, len(lv))
		for i, l := range lv {
			names[i] = name + "_" + l
		}
		out[name] = names
	}
	return out
}
