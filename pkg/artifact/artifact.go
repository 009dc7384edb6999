// Package artifact persists fitted components as self-describing files.
//
// Each file is a gob-encoded envelope naming the component kind, the run
// that produced it and the component's own binary form. Loading checks the
// kind before handing the payload to the component.
package artifact

import (
	"bytes"
	"encoding"
	"encoding/gob"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const format = "survival-artifact/v1"

const (
	KindScaler = "standard_scaler"
	KindModel  = "logistic_regression"
)

var (
	// ErrCorrupt is returned when a file is not a readable artifact.
	ErrCorrupt = errors.New("corrupt artifact")
	// ErrKindMismatch is returned when a file holds a different component.
	ErrKindMismatch = errors.New("artifact kind mismatch")
)

// Envelope is the on-disk record around a component payload.
type Envelope struct {
	Format    string
	Kind      string
	RunID     string
	CreatedAt time.Time
	Payload   []byte
}

// Save marshals m and writes it to path. The file is written next to its
// final location and renamed into place.
func Save(path, kind, runID string, m encoding.BinaryMarshaler) error {
	payload, err := m.MarshalBinary()
	if err != nil {
		return fmt.Errorf("marshalling %s: %w", kind, err)
	}
	env := Envelope{
		Format:    format,
		Kind:      kind,
		RunID:     runID,
		CreatedAt: time.Now().UTC(),
		Payload:   payload,
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(env); err != nil {
		return fmt.Errorf("encoding %s envelope: %w", kind, err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating %q: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return fmt.Errorf("writing %q: %w", tmpPath, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing %q: %w", tmpPath, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("renaming into %q: %w", path, err)
	}
	return nil
}

// Load reads path, checks it holds a kind artifact and unmarshals the
// payload into u. A missing file keeps its fs.ErrNotExist cause.
func Load(path, kind string, u encoding.BinaryUnmarshaler) (Envelope, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Envelope{}, fmt.Errorf("reading artifact: %w", err)
	}
	var env Envelope
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&env); err != nil {
		return Envelope{}, fmt.Errorf("%s: %w: %v", path, ErrCorrupt, err)
	}
	if env.Format != format {
		return Envelope{}, fmt.Errorf("%s: %w: format %q", path, ErrCorrupt, env.Format)
	}
	if env.Kind != kind {
		return Envelope{}, fmt.Errorf("%s holds %q, want %q: %w", path, env.Kind, kind, ErrKindMismatch)
	}
	if err := u.UnmarshalBinary(env.Payload); err != nil {
		return Envelope{}, fmt.Errorf("%s: %w: %v", path, ErrCorrupt, err)
	}
	return env, nil
}
