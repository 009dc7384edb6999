package dataprep

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"survival/pkg/data"
	"survival/pkg/pipeline"
)

func passengers(t *testing.T) *data.Table {
	t.Helper()
	tbl, err := data.FromColumns(
		[]string{"age", "fare", "cabin", "sex"},
		[]data.Value{data.Num(22), data.Null, data.Num(38), data.Num(4)},
		[]data.Value{data.Num(7.25), data.Num(71.28), data.Null, data.Num(8.05)},
		[]data.Value{data.Null, data.Str("C85"), data.Str(""), data.Str("E46")},
		data.Strs("male", "female", "female", "male"),
	)
	require.NoError(t, err)
	return tbl
}

func TestMissingIndicator_AddsFlagColumns(t *testing.T) {
	in := passengers(t)
	m := NewMissingIndicator("age", "fare")
	require.NoError(t, m.Fit(in))

	out, err := m.Transform(in)
	require.NoError(t, err)

	assert.Equal(t, []string{"age", "fare", "cabin", "sex", "age_NA", "fare_NA"}, out.Names())
	ageNA, err := out.Floats("age_NA")
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 1, 0, 0}, ageNA)
	fareNA, err := out.Floats("fare_NA")
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0, 1, 0}, fareNA)

	// input untouched
	assert.Equal(t, 4, in.NumCols())
	age, _ := in.Column("age")
	assert.True(t, age[1].IsNull())
}

func TestMissingIndicator_MissingColumn(t *testing.T) {
	m := NewMissingIndicator("pclass")
	err := m.Fit(passengers(t))
	require.ErrorIs(t, err, data.ErrMissingColumn)
}

func TestCategoricalImputer_FillsAndIsIdempotent(t *testing.T) {
	in := passengers(t)
	c := NewCategoricalImputer("cabin")
	require.NoError(t, c.Fit(in))

	once, err := c.Transform(in)
	require.NoError(t, err)
	twice, err := c.Transform(once)
	require.NoError(t, err)

	col, _ := once.Column("cabin")
	assert.Equal(t, data.Strs("Missing", "C85", "", "E46"), col)
	again, _ := twice.Column("cabin")
	assert.Equal(t, col, again)
}

func TestNumericalImputer_Median(t *testing.T) {
	in := passengers(t)
	n := NewNumericalImputer("age", "fare")
	require.NoError(t, n.Fit(in))

	assert.Equal(t, map[string]float64{"age": 22, "fare": 8.05}, n.Medians())

	out, err := n.Transform(in)
	require.NoError(t, err)
	age, err := out.Floats("age")
	require.NoError(t, err)
	assert.Equal(t, []float64{22, 22, 38, 4}, age)
	fare, err := out.Floats("fare")
	require.NoError(t, err)
	assert.Equal(t, []float64{7.25, 71.28, 8.05, 8.05}, fare)
}

func TestNumericalImputer_EvenCountAveragesMiddle(t *testing.T) {
	tbl, err := data.FromColumns([]string{"age"}, data.Nums(1, 2, 3, 10))
	require.NoError(t, err)
	n := NewNumericalImputer("age")
	require.NoError(t, n.Fit(tbl))
	assert.InDelta(t, 2.5, n.Medians()["age"], 1e-12)
}

func TestNumericalImputer_Errors(t *testing.T) {
	n := NewNumericalImputer("age")
	_, err := n.Transform(passengers(t))
	require.ErrorIs(t, err, pipeline.ErrNotFitted)

	allNull, err := data.FromColumns([]string{"age"}, []data.Value{data.Null, data.Null})
	require.NoError(t, err)
	require.ErrorIs(t, n.Fit(allNull), ErrNoObservations)

	require.ErrorIs(t, NewNumericalImputer("sex").Fit(passengers(t)), data.ErrColumnType)
}

func TestRestoreNumericalImputer(t *testing.T) {
	_, err := RestoreNumericalImputer(map[string]float64{"age": 28}, "age", "fare")
	require.ErrorIs(t, err, pipeline.ErrNotFitted)

	n, err := RestoreNumericalImputer(map[string]float64{"age": 28, "fare": 14.45}, "age", "fare")
	require.NoError(t, err)
	out, err := n.Transform(passengers(t))
	require.NoError(t, err)
	age, err := out.Floats("age")
	require.NoError(t, err)
	assert.Equal(t, 28.0, age[1])
}

func TestTransformBeforeFit(t *testing.T) {
	in := passengers(t)
	for name, tr := range map[string]pipeline.Transformer{
		"missing":   NewMissingIndicator("age"),
		"impute":    NewCategoricalImputer("cabin"),
		"letter":    NewFirstLetterExtractor("cabin"),
		"rare":      NewRareLabelEncoder(DefaultRareTolerance, "sex"),
		"encoder":   NewCategoricalEncoder("sex"),
		"numerical": NewNumericalImputer("age"),
	} {
		t.Run(name, func(t *testing.T) {
			_, err := tr.Transform(in)
			require.ErrorIs(t, err, pipeline.ErrNotFitted)
		})
	}
}

func TestProfile(t *testing.T) {
	profiles := Profile(passengers(t))
	require.Len(t, profiles, 4)

	age := profiles[0]
	assert.Equal(t, "age", age.Name)
	assert.True(t, age.Numeric)
	assert.Equal(t, 1, age.Missing)
	assert.InDelta(t, 0.25, age.MissingRatio, 1e-12)
	assert.InDelta(t, 22, age.Median, 1e-12)
	assert.Equal(t, 4.0, age.Min)
	assert.Equal(t, 38.0, age.Max)
	assert.InDelta(t, math.Sqrt(5208.0/27), age.Std, 1e-9)
	assert.True(t, age.Min <= age.P25 && age.P25 <= age.Median, "p25 %v", age.P25)
	assert.True(t, age.Median <= age.P75 && age.P75 <= age.Max, "p75 %v", age.P75)

	sex := profiles[3]
	assert.False(t, sex.Numeric)
	assert.Equal(t, 2, sex.Levels)
	assert.Zero(t, sex.Missing)
}
