package survival

import (
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"survival/pkg/artifact"
	"survival/pkg/config"
	"survival/pkg/data"
	"survival/pkg/loader"
	"survival/pkg/logging"
	"survival/pkg/model"
	"survival/pkg/pipeline"
	"survival/pkg/stats"
)

// Result is the outcome of a training run.
type Result struct {
	RunID    string
	Pipeline *pipeline.Pipeline
	Split    loader.Split
	Fitted   config.FittedConfig
	Solver   model.FitStats
	Train    model.Report
	Test     model.Report
}

// Train splits t, fits a new pipeline on the training part and scores
// both parts.
func Train(cfg *config.Config, t *data.Table, logger *slog.Logger) (*Result, error) {
	if logger == nil {
		logger = logging.Discard()
	}
	split, err := loader.TrainTestSplit(t, cfg.Data.Target, cfg.Data.TestSize, cfg.Data.Seed)
	if err != nil {
		return nil, fmt.Errorf("splitting data: %w", err)
	}
	runID := uuid.NewString()
	logger = logger.With("run_id", runID)
	logger.Info("data split", "train_rows", split.XTrain.NumRows(), "test_rows", split.XTest.NumRows())

	p := NewPipeline(cfg, logger)
	if err := p.Fit(split.XTrain, split.YTrain); err != nil {
		return nil, fmt.Errorf("fitting pipeline: %w", err)
	}
	clf, err := Classifier(p)
	if err != nil {
		return nil, err
	}
	solver := clf.Stats()
	if !solver.Converged {
		logger.Warn("solver did not converge", "status", solver.Status, "iterations", solver.Iterations)
	}
	logger.Info("classifier fitted",
		"features", len(clf.FeatureNames()),
		"iterations", solver.Iterations,
		"objective", solver.Objective,
		"status", solver.Status,
	)

	fitted, err := Export(p)
	if err != nil {
		return nil, err
	}
	trainReport, err := Evaluate(p, split.XTrain, split.YTrain, cfg.Model.Threshold)
	if err != nil {
		return nil, fmt.Errorf("scoring train part: %w", err)
	}
	testReport, err := Evaluate(p, split.XTest, split.YTest, cfg.Model.Threshold)
	if err != nil {
		return nil, fmt.Errorf("scoring test part: %w", err)
	}
	logger.Info("pipeline trained", "train_accuracy", trainReport.Accuracy, "test_accuracy", testReport.Accuracy)

	return &Result{
		RunID:    runID,
		Pipeline: p,
		Split:    split,
		Fitted:   fitted,
		Solver:   solver,
		Train:    trainReport,
		Test:     testReport,
	}, nil
}

// Evaluate predicts x with p and scores the probabilities against y.
func Evaluate(p *pipeline.Pipeline, x *data.Table, y []float64, threshold float64) (model.Report, error) {
	proba, err := p.PredictProba(x)
	if err != nil {
		return model.Report{}, err
	}
	return model.Evaluate(y, proba, threshold), nil
}

// CrossValidate fits a fresh pipeline on k-1 folds of x and returns the
// accuracy on each held-out fold.
func CrossValidate(cfg *config.Config, x *data.Table, y []float64, k int, logger *slog.Logger) ([]float64, error) {
	if logger == nil {
		logger = logging.Discard()
	}
	folds, err := loader.KFoldSplit(x.NumRows(), k, cfg.Data.Seed)
	if err != nil {
		return nil, err
	}
	scores := make([]float64, 0, k)
	for i, fold := range folds {
		trainIdx := loader.Complement(x.NumRows(), fold)
		xTrain, err := x.Take(trainIdx)
		if err != nil {
			return nil, err
		}
		xVal, err := x.Take(fold)
		if err != nil {
			return nil, err
		}
		p := NewPipeline(cfg, logger)
		if err := p.Fit(xTrain, pick(y, trainIdx)); err != nil {
			return nil, fmt.Errorf("fold %d: %w", i, err)
		}
		pred, err := p.Predict(xVal)
		if err != nil {
			return nil, fmt.Errorf("fold %d: %w", i, err)
		}
		acc := model.Accuracy(pick(y, fold), pred)
		logger.Debug("fold scored", "fold", i, "rows", len(fold), "accuracy", acc)
		scores = append(scores, acc)
	}
	return scores, nil
}

// SaveArtifacts persists the fitted scaler and classifier of res to the
// paths in cfg.Artifacts.
func SaveArtifacts(cfg *config.Config, res *Result) error {
	scaler, err := Scaler(res.Pipeline)
	if err != nil {
		return err
	}
	clf, err := Classifier(res.Pipeline)
	if err != nil {
		return err
	}
	if err := artifact.Save(cfg.Artifacts.Scaler, artifact.KindScaler, res.RunID, scaler); err != nil {
		return err
	}
	return artifact.Save(cfg.Artifacts.Model, artifact.KindModel, res.RunID, clf)
}

// Load reads the artifacts named in cfg and restores the fitted pipeline.
// It returns the run id recorded in the model artifact.
func Load(cfg *config.Config, logger *slog.Logger) (*pipeline.Pipeline, string, error) {
	if logger == nil {
		logger = logging.Discard()
	}
	var scaler stats.StandardScaler
	scalerEnv, err := artifact.Load(cfg.Artifacts.Scaler, artifact.KindScaler, &scaler)
	if err != nil {
		return nil, "", err
	}
	var clf model.LogisticRegression
	modelEnv, err := artifact.Load(cfg.Artifacts.Model, artifact.KindModel, &clf)
	if err != nil {
		return nil, "", err
	}
	if scalerEnv.RunID != modelEnv.RunID {
		logger.Warn("artifacts come from different runs", "scaler_run", scalerEnv.RunID, "model_run", modelEnv.RunID)
	}
	p, err := Restore(cfg, &scaler, &clf, logger)
	if err != nil {
		return nil, "", err
	}
	return p, modelEnv.RunID, nil
}

func pick(y []float64, idx []int) []float64 {
	out := make([]float64, len(idx))
	for i, j := range idx {
		out[i] = y[j]
	}
	return out
}
