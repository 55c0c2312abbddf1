// Package jsonstore writes the raw search responses of a run as a JSON array.
package jsonstore

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/runoshun/issue-tally/internal/domain"
)

// Ensure RawStore implements domain.EnvelopeSink.
var _ domain.EnvelopeSink = (*RawStore)(nil)

// RawStore saves envelopes to a JSON file.
type RawStore struct {
	path string
}

// New creates a new RawStore for the given file path.
// The file does not need to exist; it is replaced on every Save.
func New(path string) *RawStore {
	return &RawStore{path: path}
}

// Path returns the output file path.
func (s *RawStore) Path() string {
	return s.path
}

// Save writes every envelope's body, in order, as one JSON array.
func (s *RawStore) Save(envelopes []*domain.Envelope) error {
	content, err := marshalEnvelopes(envelopes)
	if err != nil {
		return err
	}

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}

	// Write to temp file first, then rename for atomicity
	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, content, 0o600); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		_ = os.Remove(tmpPath) // Clean up
		return fmt.Errorf("rename temp file: %w", err)
	}

	return nil
}

// WriteEnvelopes writes the envelopes as a JSON array to w.
func WriteEnvelopes(w io.Writer, envelopes []*domain.Envelope) error {
	content, err := marshalEnvelopes(envelopes)
	if err != nil {
		return err
	}
	_, err = w.Write(content)
	return err
}

func marshalEnvelopes(envelopes []*domain.Envelope) ([]byte, error) {
	bodies := make([]json.RawMessage, 0, len(envelopes))
	for i, env := range envelopes {
		if len(env.Raw) == 0 {
			return nil, fmt.Errorf("envelope %d has no raw body", i+1)
		}
		bodies = append(bodies, env.Raw)
	}

	content, err := json.Marshal(bodies)
	if err != nil {
		return nil, fmt.Errorf("marshal envelopes: %w", err)
	}
	return content, nil
}
