// Package survival assembles the Titanic survival pipeline: seven
// preprocessing steps followed by a regularized logistic regression.
package survival

import (
	"errors"
	"fmt"
	"log/slog"

	"survival/pkg/config"
	"survival/pkg/dataprep"
	"survival/pkg/model"
	"survival/pkg/pipeline"
	"survival/pkg/stats"
)

// Step names, in the order they run.
const (
	StepMissingIndicator   = "missing_indicator"
	StepCategoricalImputer = "categorical_imputer"
	StepNumericalImputer   = "numerical_imputer"
	StepFirstLetter        = "extract_first_letter"
	StepRareLabel          = "rare_label_encoder"
	StepCategoricalEncoder = "categorical_encoder"
	StepScaler             = "scaler"
)

// ErrIncompatible is returned when fitted parts disagree on the feature schema.
var ErrIncompatible = errors.New("incompatible fitted components")

// NewPipeline returns an unfitted pipeline configured from cfg.
func NewPipeline(cfg *config.Config, logger *slog.Logger) *pipeline.Pipeline {
	f := cfg.Features

	imputer := dataprep.NewCategoricalImputer(f.Categorical...)
	imputer.Label = f.MissingLabel

	letters := dataprep.NewFirstLetterExtractor(f.FirstLetter...)
	letters.Keep = []string{f.MissingLabel}

	rare := dataprep.NewRareLabelEncoder(f.RareTolerance, f.Categorical...)
	rare.Label = f.RareLabel

	steps := []pipeline.Step{
		{Name: StepMissingIndicator, Transformer: dataprep.NewMissingIndicator(f.Numerical...)},
		{Name: StepCategoricalImputer, Transformer: imputer},
		{Name: StepNumericalImputer, Transformer: dataprep.NewNumericalImputer(f.Numerical...)},
		{Name: StepFirstLetter, Transformer: letters},
		{Name: StepRareLabel, Transformer: rare},
		{Name: StepCategoricalEncoder, Transformer: dataprep.NewCategoricalEncoder(f.Categorical...)},
		{Name: StepScaler, Transformer: stats.NewStandardScaler()},
	}
	return pipeline.NewPipeline(newClassifier(cfg.Model), steps, pipeline.WithLogger(logger))
}

func newClassifier(m config.ModelConfig) *model.LogisticRegression {
	return model.NewLogisticRegression(
		model.WithC(m.C),
		model.WithThreshold(m.Threshold),
		model.WithMaxIterations(m.MaxIterations),
		model.WithGradientTolerance(m.GradientTolerance),
	)
}

// Restore rebuilds a fitted pipeline from the learned values in cfg.Fitted
// and the persisted scaler and classifier. Nothing is refitted.
func Restore(cfg *config.Config, scaler *stats.StandardScaler, clf *model.LogisticRegression, logger *slog.Logger) (*pipeline.Pipeline, error) {
	f := cfg.Features
	fitted := cfg.Fitted

	if !scaler.Fitted() || !clf.Fitted() {
		return nil, fmt.Errorf("restoring pipeline: %w", pipeline.ErrNotFitted)
	}
	modelSchema := pipeline.Schema{FeatureNames: clf.FeatureNames()}
	if !modelSchema.Equal(pipeline.Schema{FeatureNames: scaler.FeatureNames()}) {
		return nil, fmt.Errorf("scaler features %v, model features %v: %w", scaler.FeatureNames(), clf.FeatureNames(), ErrIncompatible)
	}
	if len(fitted.FeatureNames) > 0 && !modelSchema.Equal(pipeline.Schema{FeatureNames: fitted.FeatureNames}) {
		return nil, fmt.Errorf("config features %v, model features %v: %w", fitted.FeatureNames, clf.FeatureNames(), ErrIncompatible)
	}

	medians, err := dataprep.RestoreNumericalImputer(fitted.Medians, f.Numerical...)
	if err != nil {
		return nil, fmt.Errorf("restoring %s: %w", StepNumericalImputer, err)
	}
	rare, err := dataprep.RestoreRareLabelEncoder(f.RareTolerance, fitted.FrequentLabels, f.Categorical...)
	if err != nil {
		return nil, fmt.Errorf("restoring %s: %w", StepRareLabel, err)
	}
	rare.Label = f.RareLabel
	encoder, err := dataprep.RestoreCategoricalEncoder(fitted.DummyVariables, f.Categorical...)
	if err != nil {
		return nil, fmt.Errorf("restoring %s: %w", StepCategoricalEncoder, err)
	}

	steps := []pipeline.Step{
		{Name: StepMissingIndicator, Transformer: dataprep.RestoreMissingIndicator(f.Numerical...)},
		{Name: StepCategoricalImputer, Transformer: dataprep.RestoreCategoricalImputer(f.MissingLabel, f.Categorical...)},
		{Name: StepNumericalImputer, Transformer: medians},
		{Name: StepFirstLetter, Transformer: dataprep.RestoreFirstLetterExtractor([]string{f.MissingLabel}, f.FirstLetter...)},
		{Name: StepRareLabel, Transformer: rare},
		{Name: StepCategoricalEncoder, Transformer: encoder},
		{Name: StepScaler, Transformer: scaler},
	}
	return pipeline.NewPipeline(clf, steps, pipeline.WithLogger(logger)), nil
}

// Export reads the learned parameters out of a fitted pipeline built by
// NewPipeline or Restore.
func Export(p *pipeline.Pipeline) (config.FittedConfig, error) {
	var out config.FittedConfig

	medians, err := stepAs[*dataprep.NumericalImputer](p, StepNumericalImputer)
	if err != nil {
		return out, err
	}
	rare, err := stepAs[*dataprep.RareLabelEncoder](p, StepRareLabel)
	if err != nil {
		return out, err
	}
	encoder, err := stepAs[*dataprep.CategoricalEncoder](p, StepCategoricalEncoder)
	if err != nil {
		return out, err
	}
	clf, err := Classifier(p)
	if err != nil {
		return out, err
	}

	out.Medians = medians.Medians()
	out.FrequentLabels = rare.FrequentLabels()
	out.DummyVariables = encoder.DummyVariables()
	out.FeatureNames = clf.FeatureNames()
	if out.Medians == nil || out.FrequentLabels == nil || out.DummyVariables == nil || !clf.Fitted() {
		return config.FittedConfig{}, fmt.Errorf("exporting parameters: %w", pipeline.ErrNotFitted)
	}
	return out, nil
}

// Scaler returns the pipeline's scaling step.
func Scaler(p *pipeline.Pipeline) (*stats.StandardScaler, error) {
	return stepAs[*stats.StandardScaler](p, StepScaler)
}

// Classifier returns the pipeline's final estimator.
func Classifier(p *pipeline.Pipeline) (*model.LogisticRegression, error) {
	clf, ok := p.Estimator().(*model.LogisticRegression)
	if !ok {
		return nil, fmt.Errorf("estimator is %T, want logistic regression", p.Estimator())
	}
	return clf, nil
}

func stepAs[T pipeline.Transformer](p *pipeline.Pipeline, name string) (T, error) {
	var zero T
	tr, ok := p.Step(name)
	if !ok {
		return zero, fmt.Errorf("pipeline has no step %q", name)
	}
	typed, ok := tr.(T)
	if !ok {
		return zero, fmt.Errorf("step %q is %T, want %T", name, tr, zero)
	}
	return typed, nil
}
