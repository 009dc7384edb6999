package pipeline

import (
	"fmt"
	"slices"

	"survival/pkg/data"
)

// Schema describes the feature columns a fitted component expects.
type Schema struct {
	FeatureNames []string
}

// NewSchema captures the column order of t.
func NewSchema(t *data.Table) Schema {
	return Schema{FeatureNames: t.Names()}
}

// Check verifies that t carries every feature column.
func (s Schema) Check(t *data.Table) error {
	if err := t.Require(s.FeatureNames...); err != nil {
		return fmt.Errorf("schema check: %w", err)
	}
	return nil
}

// Equal reports whether both schemas name the same columns in the same order.
func (s Schema) Equal(o Schema) bool {
	return slices.Equal(s.FeatureNames, o.FeatureNames)
}

// Matrix extracts the feature columns of t in schema order.
func (s Schema) Matrix(t *data.Table) ([][]float64, error) {
	if err := s.Check(t); err != nil {
		return nil, err
	}
	return t.Matrix(s.FeatureNames)
}
