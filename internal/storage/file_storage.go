package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
)

var (
	// ErrNotFound is returned when no fixture has the requested name
	ErrNotFound = errors.New("corpus not found")
	// ErrInvalidName is returned for names outside [A-Za-z0-9_-]
	ErrInvalidName = errors.New("invalid corpus name")
)

var namePattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,100}$`)

// Fixture is a named corpus or text supplied as configuration instead of
// request payload
type Fixture struct {
	Name  string   `json:"name"`
	Texts []string `json:"texts,omitempty"`
	Text  string   `json:"text,omitempty"`
}

// FixtureStorage defines the interface for named corpora
type FixtureStorage interface {
	Save(fixture *Fixture) error
	Get(name string) (*Fixture, error)
	List() ([]string, error)
	Close() error
}

// FileStorage implements FixtureStorage with one JSON file per fixture
type FileStorage struct {
	baseDir string
	mu      sync.RWMutex
}

// NewFileStorage creates a new file-based storage
func NewFileStorage(baseDir string) (*FileStorage, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &FileStorage{
		baseDir: baseDir,
	}, nil
}

// ValidateName checks that name can be used as a fixture file name
func ValidateName(name string) error {
	if !namePattern.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

// Save writes the fixture to <name>.json
func (fs *FileStorage) Save(fixture *Fixture) error {
	if err := ValidateName(fixture.Name); err != nil {
		return err
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	data, err := json.MarshalIndent(fixture, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal fixture: %w", err)
	}

	if err := os.WriteFile(fs.path(fixture.Name), data, 0644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	return nil
}

// Get reads a fixture from disk
func (fs *FileStorage) Get(name string) (*Fixture, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}

	fs.mu.RLock()
	defer fs.mu.RUnlock()

	data, err := os.ReadFile(fs.path(name))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
		}
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var fixture Fixture
	if err := json.Unmarshal(data, &fixture); err != nil {
		return nil, fmt.Errorf("failed to unmarshal fixture: %w", err)
	}
	fixture.Name = name

	return &fixture, nil
}

// List returns the sorted names of all stored fixtures
func (fs *FileStorage) List() ([]string, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	entries, err := os.ReadDir(fs.baseDir)
	if err != nil {
		return nil, fmt.Errorf("failed to list directory: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		name := strings.TrimSuffix(e.Name(), ".json")
		if namePattern.MatchString(name) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

// Close is a no-op for file storage
func (fs *FileStorage) Close() error {
	return nil
}

func (fs *FileStorage) path(name string) string {
	return filepath.Join(fs.baseDir, name+".json")
}
