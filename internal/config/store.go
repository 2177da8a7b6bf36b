package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// settingsKey is the fixed key the Config is stored under.
const settingsKey = "google_calendar_config"

// Store persists Config in a small keyed JSON file. The whole config is
// written on every save and removed as a unit on Clear.
type Store struct {
	Path string
}

// NewStore creates a Store backed by the file at path.
func NewStore(path string) *Store {
	return &Store{Path: path}
}

func (s *Store) read() (map[string]json.RawMessage, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]json.RawMessage{}, nil
		}
		return nil, fmt.Errorf("failed to read settings file: %w", err)
	}

	entries := map[string]json.RawMessage{}
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse settings file: %w", err)
	}
	return entries, nil
}

func (s *Store) write(entries map[string]json.RawMessage) error {
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.Path), 0700); err != nil {
		return fmt.Errorf("failed to create settings directory: %w", err)
	}
	if err := os.WriteFile(s.Path, data, 0600); err != nil {
		return fmt.Errorf("failed to write settings file: %w", err)
	}
	return nil
}

// Load returns the stored Config. A missing file or missing entry yields the
// zero Config with no error.
func (s *Store) Load() (Config, error) {
	entries, err := s.read()
	if err != nil {
		return Config{}, err
	}

	raw, ok := entries[settingsKey]
	if !ok {
		return Config{}, nil
	}

	var c Config
	if err := json.Unmarshal(raw, &c); err != nil {
		return Config{}, fmt.Errorf("failed to parse stored config: %w", err)
	}
	return c, nil
}

// Save overwrites the stored Config as a whole.
func (s *Store) Save(c Config) error {
	entries, err := s.read()
	if err != nil {
		return err
	}

	raw, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	entries[settingsKey] = raw

	return s.write(entries)
}

// Clear removes the stored Config. Clearing an absent entry is not an error.
func (s *Store) Clear() error {
	entries, err := s.read()
	if err != nil {
		return err
	}
	if _, ok := entries[settingsKey]; !ok {
		return nil
	}
	delete(entries, settingsKey)
	return s.write(entries)
}
