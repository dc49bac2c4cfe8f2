// Package prefs persists small per-user UI preferences in a JSON file.
package prefs

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/afero"
)

const (
	KeyLanguage = "language"
	KeyTheme    = "theme"
)

var (
	ErrUnknownKey   = errors.New("unknown preference key")
	ErrInvalidValue = errors.New("invalid preference value")
)

var validatorInstance = validator.New()

// Prefs is the stored document.
type Prefs struct {
	Language string `json:"language,omitempty" validate:"omitempty,bcp47_language_tag"`
	Theme    string `json:"theme,omitempty" validate:"omitempty,oneof=light dark system"`
}

// Keys lists the supported preference keys.
func Keys() []string { return []string{KeyLanguage, KeyTheme} }

func (p *Prefs) field(key string) (*string, error) {
	switch key {
	case KeyLanguage:
		return &p.Language, nil
	case KeyTheme:
		return &p.Theme, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKey, key)
	}
}

// Store reads and writes Prefs at a path on an afero filesystem.
type Store struct {
	fs   afero.Fs
	path string
	mu   sync.Mutex
}

// NewStore returns a Store for path on fs.
func NewStore(fs afero.Fs, path string) *Store {
	return &Store{fs: fs, path: path}
}

// NewOSStore returns a Store on the real filesystem.
func NewOSStore(path string) *Store {
	return NewStore(afero.NewOsFs(), path)
}

// Path returns the file path.
func (s *Store) Path() string { return s.path }

// Load reads the document. A missing file is an empty document.
func (s *Store) Load() (Prefs, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

func (s *Store) load() (Prefs, error) {
	var p Prefs
	data, err := afero.ReadFile(s.fs, s.path)
	if errors.Is(err, os.ErrNotExist) {
		return p, nil
	}
	if err != nil {
		return p, err
	}
	if len(data) == 0 {
		return p, nil
	}
	if err := json.Unmarshal(data, &p); err != nil {
		return Prefs{}, fmt.Errorf("read %s: %w", s.path, err)
	}
	return p, nil
}

// Get returns the value of key, or "" when unset.
func (s *Store) Get(key string) (string, error) {
	p, err := s.Load()
	if err != nil {
		return "", err
	}
	f, err := p.field(key)
	if err != nil {
		return "", err
	}
	return *f, nil
}

// Set validates and stores value under key.
func (s *Store) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.load()
	if err != nil {
		return err
	}
	f, err := p.field(key)
	if err != nil {
		return err
	}
	*f = value
	if err := validatorInstance.Struct(p); err != nil {
		return fmt.Errorf("%w: %s=%q", ErrInvalidValue, key, value)
	}
	return s.save(p)
}

// All returns every set preference keyed by name.
func (s *Store) All() (map[string]string, error) {
	p, err := s.Load()
	if err != nil {
		return nil, err
	}
	out := make(map[string]string)
	for _, k := range Keys() {
		f, _ := p.field(k)
		if *f != "" {
			out[k] = *f
		}
	}
	return out, nil
}

// save writes through a temp file and rename so watchers never see a partial file.
func (s *Store) save(p Prefs) error {
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return err
	}
	if dir := filepath.Dir(s.path); dir != "." {
		if err := s.fs.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	tmp := s.path + ".tmp"
	if err := afero.WriteFile(s.fs, tmp, data, 0o644); err != nil {
		return err
	}
	return s.fs.Rename(tmp, s.path)
}
