package artifact

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"survival/pkg/data"
	"survival/pkg/model"
	"survival/pkg/stats"
)

func fittedScaler(t *testing.T) *stats.StandardScaler {
	t.Helper()
	tbl, err := data.FromColumns([]string{"age", "fare"}, data.Nums(22, 38, 26), data.Nums(7.25, 71.28, 7.92))
	require.NoError(t, err)
	s := stats.NewStandardScaler()
	require.NoError(t, s.Fit(tbl))
	return s
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "scaler.bin")
	runID := uuid.NewString()
	s := fittedScaler(t)
	require.NoError(t, Save(path, KindScaler, runID, s))

	var got stats.StandardScaler
	env, err := Load(path, KindScaler, &got)
	require.NoError(t, err)
	assert.Equal(t, runID, env.RunID)
	assert.Equal(t, KindScaler, env.Kind)
	assert.False(t, env.CreatedAt.IsZero())
	assert.Equal(t, s.Mean(), got.Mean())
	assert.Equal(t, s.Std(), got.Std())

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}

func TestLoad_Errors(t *testing.T) {
	dir := t.TempDir()

	var s stats.StandardScaler
	_, err := Load(filepath.Join(dir, "absent.bin"), KindScaler, &s)
	require.ErrorIs(t, err, fs.ErrNotExist)

	junk := filepath.Join(dir, "junk.bin")
	require.NoError(t, os.WriteFile(junk, []byte("not gob at all"), 0o644))
	_, err = Load(junk, KindScaler, &s)
	require.ErrorIs(t, err, ErrCorrupt)

	path := filepath.Join(dir, "scaler.bin")
	require.NoError(t, Save(path, KindScaler, "run", fittedScaler(t)))
	var m model.LogisticRegression
	_, err = Load(path, KindModel, &m)
	require.ErrorIs(t, err, ErrKindMismatch)
}

func TestSave_UnfittedComponent(t *testing.T) {
	err := Save(filepath.Join(t.TempDir(), "m.bin"), KindModel, "run", model.NewLogisticRegression())
	require.Error(t, err)
}
