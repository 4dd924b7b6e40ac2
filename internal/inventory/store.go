package inventory

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/pelletier/go-toml/v2"
)

// DefaultPath is used when no inventory path is configured.
const DefaultPath = "cameras.toml"

// Store persists the camera inventory.
type Store interface {
	Load() error
	Save() error
	Path() string
	Cameras() []Camera
	Camera(id int) (Camera, bool)
	Put(c Camera) error
	Remove(id int) error
}

// file is the on-disk layout.
type file struct {
	Version int      `toml:"version"`
	Cameras []Camera `toml:"cameras"`
}

// tomlStore implements Store using TOML file storage.
type tomlStore struct {
	path string

	mu      sync.RWMutex
	cameras []Camera
}

// NewTOML creates a TOML-backed store. Nothing is read until Load.
func NewTOML(path string) Store {
	if path == "" {
		path = DefaultPath
	}
	return &tomlStore{path: path}
}

// Parse decodes an inventory document.
func Parse(data []byte) ([]Camera, error) {
	var f file
	if err := toml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse inventory: %w", err)
	}
	return f.Cameras, nil
}

// ReadFile reads and parses the inventory at path. A missing file is an
// empty inventory.
func ReadFile(path string) ([]Camera, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read inventory: %w", err)
	}
	return Parse(data)
}

func (s *tomlStore) Path() string { return s.path }

// Load replaces the in-memory inventory with the file contents.
func (s *tomlStore) Load() error {
	cams, err := ReadFile(s.path)
	if err != nil {
		return err
	}
	sortByID(cams)

	s.mu.Lock()
	s.cameras = cams
	s.mu.Unlock()
	return nil
}

// Save writes the inventory to disk, creating the directory if needed.
func (s *tomlStore) Save() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.saveLocked()
}

func (s *tomlStore) saveLocked() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create inventory directory: %w", err)
	}

	data, err := toml.Marshal(file{Version: 1, Cameras: s.cameras})
	if err != nil {
		return fmt.Errorf("failed to marshal inventory: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write inventory: %w", err)
	}
	return nil
}

// Cameras returns a copy of the inventory ordered by id.
func (s *tomlStore) Cameras() []Camera {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.cameras)
}

// Camera looks up a camera by id.
func (s *tomlStore) Camera(id int) (Camera, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := slices.IndexFunc(s.cameras, func(c Camera) bool { return c.ID == id })
	if i < 0 {
		return Camera{}, false
	}
	return s.cameras[i], true
}

// Put inserts or replaces a camera and saves.
func (s *tomlStore) Put(c Camera) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := slices.Clone(s.cameras)
	if i := slices.IndexFunc(next, func(x Camera) bool { return x.ID == c.ID }); i >= 0 {
		next[i] = c
	} else {
		next = append(next, c)
	}
	if err := Validate(next); err != nil {
		return err
	}
	sortByID(next)

	s.cameras = next
	return s.saveLocked()
}

// Remove deletes a camera and saves. Unknown ids are ignored.
func (s *tomlStore) Remove(id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cameras = slices.DeleteFunc(s.cameras, func(c Camera) bool { return c.ID == id })
	return s.saveLocked()
}

func sortByID(cams []Camera) {
	slices.SortStableFunc(cams, func(a, b Camera) int { return a.ID - b.ID })
}
