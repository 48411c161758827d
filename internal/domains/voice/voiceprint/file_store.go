package voiceprint

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

// FileStore keeps the voiceprint as a JSON document on an afero filesystem.
// Tests use a memory fs; production uses the OS fs.
type FileStore struct {
	fs   afero.Fs
	path string
}

func NewFileStore(fs afero.Fs, path string) *FileStore {
	return &FileStore{fs: fs, path: path}
}

// Load implements Store.
func (s *FileStore) Load() (*Voiceprint, error) {
	data, err := afero.ReadFile(s.fs, s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read voiceprint file: %w", err)
	}

	var vp Voiceprint
	if err := json.Unmarshal(data, &vp); err != nil {
		return nil, fmt.Errorf("decode voiceprint file: %w", err)
	}
	return &vp, nil
}

// Save implements Store.
func (s *FileStore) Save(vp *Voiceprint) error {
	data, err := json.MarshalIndent(vp, "", "  ")
	if err != nil {
		return fmt.Errorf("encode voiceprint: %w", err)
	}
	if dir := filepath.Dir(s.path); dir != "." {
		if err := s.fs.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create voiceprint dir: %w", err)
		}
	}
	if err := afero.WriteFile(s.fs, s.path, data, 0o644); err != nil {
		return fmt.Errorf("write voiceprint file: %w", err)
	}
	return nil
}

// Clear implements Store.
func (s *FileStore) Clear() error {
	err := s.fs.Remove(s.path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove voiceprint file: %w", err)
	}
	return nil
}
