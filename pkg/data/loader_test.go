package data

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const passengersCSV = `pclass,survived,name,sex,age,fare,cabin,embarked
1,1,"Allen, Miss. Elisabeth",female,29,211.3375,B5,S
3,0,"Kelly, Mr. James",male,?,7.8292,?,Q
2,1,"Hart, Mrs. Benjamin",female,45,26,,?
`

func writeCSV(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "passengers.csv")
	require.NoError(t, os.WriteFile(path, []byte(passengersCSV), 0o644))
	return path
}

func TestLoadCSV(t *testing.T) {
	path := writeCSV(t)
	tbl, err := Load(context.Background(), path, LoadOptions{
		Numeric:    []string{"pclass", "survived", "age", "fare"},
		NullValues: []string{"", "?"},
	})
	require.NoError(t, err)

	assert.Equal(t, 3, tbl.NumRows())
	assert.Equal(t, []string{"pclass", "survived", "name", "sex", "age", "fare", "cabin", "embarked"}, tbl.Names())

	age, err := tbl.Column("age")
	require.NoError(t, err)
	assert.Equal(t, []Value{Num(29), Null, Num(45)}, age)

	cabin, err := tbl.Column("cabin")
	require.NoError(t, err)
	assert.Equal(t, []Value{Str("B5"), Null, Null}, cabin)

	names, err := tbl.Column("name")
	require.NoError(t, err)
	assert.Equal(t, Str("Allen, Miss. Elisabeth"), names[0])

	embarked, err := tbl.Column("embarked")
	require.NoError(t, err)
	assert.True(t, embarked[2].IsNull())
}

func TestLoad_Columns(t *testing.T) {
	tbl, err := Load(context.Background(), writeCSV(t), LoadOptions{
		Numeric:    []string{"fare"},
		NullValues: []string{"?"},
		Columns:    []string{"fare", "sex"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"fare", "sex"}, tbl.Names())

	_, err = Load(context.Background(), writeCSV(t), LoadOptions{Columns: []string{"title"}})
	require.ErrorIs(t, err, ErrMissingColumn)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(context.Background(), filepath.Join(t.TempDir(), "nope.csv"), LoadOptions{})
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestParquetRoundTrip(t *testing.T) {
	src, err := FromColumns(
		[]string{"age", "sex", "fare_NA"},
		[]Value{Num(22), Null, Num(38)},
		[]Value{Str("male"), Str("female"), Null},
		Nums(0, 1, 0),
	)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "engineered"+ParquetExt)
	require.NoError(t, WriteParquet(path, src))

	got, err := Load(context.Background(), path, LoadOptions{})
	require.NoError(t, err)
	assert.Equal(t, src.Names(), got.Names())
	for _, name := range src.Names() {
		want, _ := src.Column(name)
		col, err := got.Column(name)
		require.NoError(t, err)
		assert.Equal(t, want, col, name)
	}
}
