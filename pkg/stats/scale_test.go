package stats

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"survival/pkg/data"
	"survival/pkg/pipeline"
)

func features(t *testing.T) *data.Table {
	t.Helper()
	tbl, err := data.FromColumns(
		[]string{"age", "pclass", "sex_male"},
		data.Nums(20, 30, 40, 50),
		data.Nums(3, 3, 3, 3),
		data.Nums(1, 0, 1, 0),
	)
	require.NoError(t, err)
	return tbl
}

func TestStandardScaler_FitTransform(t *testing.T) {
	in := features(t)
	s := NewStandardScaler()
	require.NoError(t, s.Fit(in))

	assert.Equal(t, []string{"age", "pclass", "sex_male"}, s.FeatureNames())
	assert.Equal(t, []float64{35, 3, 0.5}, s.Mean())
	assert.InDelta(t, math.Sqrt(125), s.Std()[0], 1e-12)
	assert.Equal(t, 1.0, s.Std()[1], "constant column keeps divisor 1")

	out, err := s.Transform(in)
	require.NoError(t, err)
	pclass, err := out.Floats("pclass")
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0, 0, 0}, pclass)

	age, err := out.Floats("age")
	require.NoError(t, err)
	assert.InDelta(t, 0, Mean(age), 1e-12)
	assert.InDelta(t, 1, Std(age), 1e-12)

	raw, err := in.Floats("age")
	require.NoError(t, err)
	assert.Equal(t, []float64{20, 30, 40, 50}, raw)
}

func TestStandardScaler_Errors(t *testing.T) {
	s := NewStandardScaler()
	_, err := s.Transform(features(t))
	require.ErrorIs(t, err, pipeline.ErrNotFitted)

	require.NoError(t, s.Fit(features(t)))
	short, err := features(t).Select("age")
	require.NoError(t, err)
	_, err = s.Transform(short)
	require.ErrorIs(t, err, data.ErrMissingColumn)

	withNull, err := data.FromColumns([]string{"age"}, []data.Value{data.Num(1), data.Null})
	require.NoError(t, err)
	require.ErrorIs(t, NewStandardScaler().Fit(withNull), data.ErrColumnType)
}

func TestStandardScaler_BinaryRoundTrip(t *testing.T) {
	s := NewStandardScaler()
	require.NoError(t, s.Fit(features(t)))
	b, err := s.MarshalBinary()
	require.NoError(t, err)

	var restored StandardScaler
	require.NoError(t, restored.UnmarshalBinary(b))
	assert.Equal(t, s.FeatureNames(), restored.FeatureNames())

	want, err := s.Transform(features(t))
	require.NoError(t, err)
	got, err := restored.Transform(features(t))
	require.NoError(t, err)
	assert.Equal(t, want, got)

	_, err = NewStandardScaler().MarshalBinary()
	require.ErrorIs(t, err, pipeline.ErrNotFitted)
}

func TestMedianAndPercentile(t *testing.T) {
	assert.Equal(t, 2.5, Median([]float64{4, 1, 3, 2}))
	assert.Equal(t, 3.0, Median([]float64{5, 3, 1}))
	assert.Zero(t, Median(nil))

	x := []float64{1, 2, 3, 4, 5}
	assert.Equal(t, 1.0, Percentile(x, 0))
	assert.Equal(t, 5.0, Percentile(x, 100))
	assert.Equal(t, []float64{1, 2, 3, 4, 5}, x)
}

func TestMeanStd(t *testing.T) {
	m, s := MeanStd([]float64{2, 4, 4, 4, 5, 5, 7, 9})
	assert.InDelta(t, 5, m, 1e-12)
	assert.InDelta(t, 2, s, 1e-12)
	assert.Zero(t, Skew([]float64{1, 2}))
}
