// Package store persists a transcript to a single durable slot.
package store

import (
	"fmt"

	"github.com/erg0nix/parley/internal/core"
)

// Store loads and saves the ordered turns of one transcript.
//
// Load returns an empty result for a missing slot. Any other failure is
// reported as a *PersistenceError alongside an empty result so callers can
// fall back to a fresh transcript.
type Store interface {
	Load() ([]core.Message, error)
	Save(messages []core.Message) error
}

// PersistenceError reports a failed load or save of the transcript slot.
type PersistenceError struct {
	Op   string
	Path string
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s transcript %s: %v", e.Op, e.Path, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
