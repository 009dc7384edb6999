package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"survival/pkg/data"
)

// doubler learns nothing but refuses to transform before Fit.
type doubler struct {
	column string
	fitted bool
}

func (d *doubler) Fit(*data.Table) error { d.fitted = true; return nil }

func (d *doubler) Transform(t *data.Table) (*data.Table, error) {
	if !d.fitted {
		return nil, ErrNotFitted
	}
	f, err := t.Floats(d.column)
	if err != nil {
		return nil, err
	}
	out := t.Clone()
	col := make([]data.Value, len(f))
	for i, v := range f {
		col[i] = data.Num(2 * v)
	}
	return out, out.Set(d.column+"_x2", col)
}

// constant predicts the training base rate for every row.
type constant struct {
	rate  float64
	names []string
}

func (c *constant) Fit(t *data.Table, y []float64) error {
	c.names = t.Names()
	for _, v := range y {
		c.rate += v
	}
	c.rate /= float64(len(y))
	return nil
}

func (c *constant) PredictProba(t *data.Table) ([]float64, error) {
	out := make([]float64, t.NumRows())
	for i := range out {
		out[i] = c.rate
	}
	return out, nil
}

func (c *constant) Predict(t *data.Table) ([]float64, error) {
	p, _ := c.PredictProba(t)
	for i := range p {
		if p[i] >= 0.5 {
			p[i] = 1
		} else {
			p[i] = 0
		}
	}
	return p, nil
}

func newTestPipeline() (*Pipeline, *constant) {
	est := &constant{}
	return NewPipeline(est, []Step{{Name: "double", Transformer: &doubler{column: "fare"}}}), est
}

func TestPipeline_FitPredict(t *testing.T) {
	tbl, err := data.FromColumns([]string{"fare"}, data.Nums(1, 2, 3, 4))
	require.NoError(t, err)
	p, est := newTestPipeline()

	_, err = p.Transform(tbl)
	require.ErrorIs(t, err, ErrNotFitted)

	require.NoError(t, p.Fit(tbl, []float64{1, 1, 1, 0}))
	assert.Equal(t, []string{"fare", "fare_x2"}, est.names)
	assert.Equal(t, []string{"fare"}, tbl.Names(), "Fit must not change its input")

	proba, err := p.PredictProba(tbl)
	require.NoError(t, err)
	assert.Equal(t, []float64{0.75, 0.75, 0.75, 0.75}, proba)
	pred, err := p.Predict(tbl)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 1, 1, 1}, pred)

	tr, ok := p.Step("double")
	require.True(t, ok)
	assert.IsType(t, &doubler{}, tr)
	_, ok = p.Step("scaler")
	assert.False(t, ok)
}

func TestPipeline_Errors(t *testing.T) {
	tbl, err := data.FromColumns([]string{"fare"}, data.Nums(1, 2))
	require.NoError(t, err)
	p, _ := newTestPipeline()
	require.ErrorIs(t, p.Fit(tbl, []float64{1}), data.ErrLength)

	noEst := NewPipeline(nil, nil)
	require.NoError(t, noEst.Fit(tbl, []float64{0, 1}))
	_, err = noEst.PredictProba(tbl)
	require.Error(t, err)
}

func TestSchema(t *testing.T) {
	tbl, err := data.FromColumns([]string{"a", "b"}, data.Nums(1, 2), data.Nums(3, 4))
	require.NoError(t, err)
	s := NewSchema(tbl)
	assert.True(t, s.Equal(Schema{FeatureNames: []string{"a", "b"}}))
	assert.False(t, s.Equal(Schema{FeatureNames: []string{"b", "a"}}))

	reordered, err := tbl.Select("b", "a")
	require.NoError(t, err)
	X, err := s.Matrix(reordered)
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{1, 3}, {2, 4}}, X)

	short, err := tbl.Select("a")
	require.NoError(t, err)
	require.ErrorIs(t, s.Check(short), data.ErrMissingColumn)
}
