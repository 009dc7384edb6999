package model

import (
	"errors"

	"survival/pkg/pipeline"
)

var (
	// ErrLabels is returned for targets outside {0, 1}.
	ErrLabels = errors.New("labels must be 0 or 1")
	// ErrEmpty is returned when there is nothing to fit on.
	ErrEmpty = errors.New("no training data")
)

// Classifier is a binary classifier over feature tables.
type Classifier interface {
	pipeline.Estimator
	FeatureNames() []string
}

var _ Classifier = (*LogisticRegression)(nil)
