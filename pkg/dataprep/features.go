package dataprep

import (
	"fmt"
	"slices"
	"unicode/utf8"

	"survival/pkg/data"
	"survival/pkg/pipeline"
)

// FirstLetterExtractor reduces string values to their first character.
// Nulls stay null and empty strings become null. Values in Keep pass
// through unchanged, so the missing sentinel survives as its own level.
type FirstLetterExtractor struct {
	Variables []string
	Keep      []string
	fitted    bool
}

func NewFirstLetterExtractor(vars ...string) *FirstLetterExtractor {
	return &FirstLetterExtractor{Variables: vars, Keep: []string{MissingLabel}}
}

// RestoreFirstLetterExtractor returns an extractor usable without Fit.
func RestoreFirstLetterExtractor(keep []string, vars ...string) *FirstLetterExtractor {
	return &FirstLetterExtractor{Variables: vars, Keep: keep, fitted: true}
}

func (f *FirstLetterExtractor) Fit(t *data.Table) error {
	if err := t.Require(f.Variables...); err != nil {
		return err
	}
	f.fitted = true
	return nil
}

func (f *FirstLetterExtractor) Transform(t *data.Table) (*data.Table, error) {
	if !f.fitted {
		return nil, fmt.Errorf("first letter extractor: %w", pipeline.ErrNotFitted)
	}
	if err := t.Require(f.Variables...); err != nil {
		return nil, err
	}
	out := t.Clone()
	for _, name := range f.Variables {
		col, _ := out.Column(name)
		letters := make([]data.Value, len(col))
		for i, v := range col {
			letters[i] = f.firstLetter(v)
		}
		if err := out.Set(name, letters); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (f *FirstLetterExtractor) firstLetter(v data.Value) data.Value {
	if v.IsNull() {
		return data.Null
	}
	s := v.String()
	if s == "" {
		return data.Null
	}
	if slices.Contains(f.Keep, s) {
		return data.Str(s)
	}
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError && size <= 1 {
		return data.Str(s[:1])
	}
	return data.Str(s[:size])
}
