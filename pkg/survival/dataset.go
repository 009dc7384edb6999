package survival

import (
	"context"
	"fmt"
	"slices"

	"survival/pkg/config"
	"survival/pkg/data"
)

// LoadData reads cfg.Data.Path with the configured column types, null
// tokens and column selection.
func LoadData(ctx context.Context, cfg *config.Config) (*data.Table, error) {
	return LoadDataFrom(ctx, cfg, cfg.Data.Path)
}

// LoadDataFrom is LoadData for a path other than the configured one.
// Unlabelled files may omit the target column.
func LoadDataFrom(ctx context.Context, cfg *config.Config, path string) (*data.Table, error) {
	t, err := data.Load(ctx, path, data.LoadOptions{
		Numeric:    cfg.Data.Numeric,
		NullValues: cfg.Data.NullValues,
	})
	if err != nil {
		return nil, fmt.Errorf("loading dataset: %w", err)
	}
	if len(cfg.Data.Columns) == 0 {
		return t, nil
	}
	columns := cfg.Data.Columns
	if !t.Has(cfg.Data.Target) {
		columns = slices.DeleteFunc(slices.Clone(columns), func(c string) bool { return c == cfg.Data.Target })
	}
	t, err = t.Select(columns...)
	if err != nil {
		return nil, fmt.Errorf("loading dataset: %w", err)
	}
	return t, nil
}

// Features splits t into the feature table and, when present, the target.
// A table without the target column yields a nil target.
func Features(cfg *config.Config, t *data.Table) (*data.Table, []float64, error) {
	if !t.Has(cfg.Data.Target) {
		return t, nil, nil
	}
	y, err := t.Floats(cfg.Data.Target)
	if err != nil {
		return nil, nil, fmt.Errorf("target: %w", err)
	}
	x := t.Clone()
	if err := x.Drop(cfg.Data.Target); err != nil {
		return nil, nil, err
	}
	return x, y, nil
}
