package cli

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"survival/pkg/config"
	"survival/pkg/data"
)

// workspace writes a config pointing at the sample dataset with every
// output under a temp dir.
func workspace(t *testing.T) (dir, cfgPath, sample string) {
	t.Helper()
	sample, err := filepath.Abs(filepath.Join("..", "survival", "testdata", "titanic_sample.csv"))
	require.NoError(t, err)

	dir = t.TempDir()
	cfg := config.Default()
	cfg.Data.Path = sample
	cfg.Artifacts.Scaler = filepath.Join(dir, "scaler.bin")
	cfg.Artifacts.Model = filepath.Join(dir, "model.bin")
	cfgPath = filepath.Join(dir, "config.yaml")
	require.NoError(t, cfg.Save(cfgPath))
	return dir, cfgPath, sample
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(buf)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return buf.String(), err
}

func TestTrainScoreTransform(t *testing.T) {
	dir, cfgPath, sample := workspace(t)
	fitted := filepath.Join(dir, "fitted.yaml")

	out, err := execute(t, "--config", cfgPath, "--log-level", "debug", "train", "--fitted-config", fitted, "--folds", "4")
	require.NoError(t, err)
	assert.Contains(t, out, "train accuracy:")
	assert.Contains(t, out, "test accuracy:")
	assert.Contains(t, out, "cv accuracy (4 folds)")
	assert.FileExists(t, filepath.Join(dir, "scaler.bin"))
	assert.FileExists(t, filepath.Join(dir, "model.bin"))

	cfg, err := config.Load(fitted)
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"age": 29, "fare": 26}, cfg.Fitted.Medians)
	require.NotEmpty(t, cfg.Fitted.FeatureNames)

	dbPath := filepath.Join(dir, "scores.db")
	plotPath := filepath.Join(dir, "proba.png")
	out, err = execute(t, "--config", fitted, "score", "--db", dbPath, "--plot", plotPath, sample)
	require.NoError(t, err)
	assert.Contains(t, out, "scored 40 rows")
	assert.Contains(t, out, "score accuracy:")
	assert.Contains(t, out, "stored run")
	assert.FileExists(t, dbPath)
	assert.FileExists(t, plotPath)

	parquetPath := filepath.Join(dir, "engineered.parquet")
	out, err = execute(t, "--config", fitted, "transform", "--preview", "3", "--out", parquetPath)
	require.NoError(t, err)
	assert.Contains(t, out, "title_Mrs")
	assert.Contains(t, out, "Label")

	tbl, err := data.LoadParquet(context.Background(), parquetPath)
	require.NoError(t, err)
	assert.Equal(t, 40, tbl.NumRows())
	assert.Equal(t, append(cfg.Fitted.FeatureNames, "survived"), tbl.Names())
}

func TestScore_UnlabelledFile(t *testing.T) {
	dir, cfgPath, _ := workspace(t)
	fitted := filepath.Join(dir, "fitted.yaml")
	_, err := execute(t, "--config", cfgPath, "train", "--fitted-config", fitted)
	require.NoError(t, err)

	unlabelled := filepath.Join(dir, "new.csv")
	csv := "pclass,name,sex,age,sibsp,parch,ticket,fare,cabin,embarked,title\n" +
		"1,Someone,female,?,1,0,PC 1,71.28,C85,S,Mrs\n" +
		"3,Other,male,40,0,0,A 2,7.9,?,Q,Col\n"
	require.NoError(t, os.WriteFile(unlabelled, []byte(csv), 0o644))

	dbPath := filepath.Join(dir, "scores.db")
	out, err := execute(t, "--config", fitted, "score", "--db", dbPath, unlabelled)
	require.NoError(t, err)
	assert.Contains(t, out, "scored 2 rows")
	assert.NotContains(t, out, "score accuracy:")
	assert.FileExists(t, dbPath)
}

func TestScore_WithoutArtifacts(t *testing.T) {
	_, cfgPath, _ := workspace(t)
	_, err := execute(t, "--config", cfgPath, "score")
	require.Error(t, err)
}

func TestRoot_InvalidLogLevel(t *testing.T) {
	_, cfgPath, _ := workspace(t)
	_, err := execute(t, "--config", cfgPath, "--log-level", "loud", "train")
	require.Error(t, err)
}
