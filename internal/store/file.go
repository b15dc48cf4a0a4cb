package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/erg0nix/parley/internal/core"
)

// FileStore keeps the transcript as an indented JSON array in one file.
// Writes go straight to Path; there is no temp-file rename.
type FileStore struct {
	Path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{Path: path}
}

func (s *FileStore) Load() ([]core.Message, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, s.fail("load", err)
	}

	messages, err := decodeMessages(data)
	if err != nil {
		return nil, s.fail("load", err)
	}

	return messages, nil
}

func (s *FileStore) Save(messages []core.Message) error {
	data, err := encodeMessages(messages)
	if err != nil {
		return s.fail("save", err)
	}

	if dir := filepath.Dir(s.Path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return s.fail("save", fmt.Errorf("create directory: %w", err))
		}
	}

	if err := os.WriteFile(s.Path, data, 0o644); err != nil {
		return s.fail("save", err)
	}

	return nil
}

func (s *FileStore) fail(op string, err error) error {
	return &PersistenceError{Op: op, Path: s.Path, Err: err}
}

func encodeMessages(messages []core.Message) ([]byte, error) {
	if messages == nil {
		messages = []core.Message{}
	}

	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)
	encoder.SetIndent("", "    ")

	if err := encoder.Encode(messages); err != nil {
		return nil, fmt.Errorf("encode: %w", err)
	}

	return buf.Bytes(), nil
}

func decodeMessages(data []byte) ([]core.Message, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, errors.New("empty file")
	}

	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.DisallowUnknownFields()

	var messages []core.Message
	if err := decoder.Decode(&messages); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}

	if _, err := decoder.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("decode: trailing data after transcript")
	}

	for i, msg := range messages {
		if _, err := core.ParseRole(string(msg.Role)); err != nil {
			return nil, fmt.Errorf("message %d: %w", i, err)
		}
	}

	return messages, nil
}
