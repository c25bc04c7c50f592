package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// ErrVersionNotFound indicates no stored version carries the requested id.
var ErrVersionNotFound = errors.New("diagram version not found")

const defaultVersionsBasePath = "./data/versions"

// VersionStore handles the filesystem persistence of diagram versions. Each
// version is one JSON file named <seq>-<id>.json; files are written once and
// never rewritten, so history is append-only.
type VersionStore struct {
	basePath string
	mu       sync.Mutex // serializes sequence-number assignment
}

// NewVersionStore creates a new filesystem store rooted at basePath, creating
// the directory if needed. An empty basePath uses the default location.
func NewVersionStore(basePath string) (*VersionStore, error) {
	resolvedPath := basePath
	if resolvedPath == "" {
		resolvedPath = defaultVersionsBasePath
	}
	absPath, err := filepath.Abs(resolvedPath)
	if err != nil {
		slog.Error("Failed to resolve absolute path", "path", resolvedPath, "error", err)
		return nil, fmt.Errorf("could not resolve versions path '%s': %w", resolvedPath, err)
	}
	if err := os.MkdirAll(absPath, 0o755); err != nil {
		return nil, fmt.Errorf("could not create versions directory '%s': %w", absPath, err)
	}
	return &VersionStore{basePath: absPath}, nil
}

func (s *VersionStore) versionPath(seq int, id string) string {
	return filepath.Join(s.basePath, fmt.Sprintf("%06d-%s.json", seq, sanitizeFilename(id)))
}

// Append persists a new version at the next sequence number. The content is
// written to a temp file and renamed into place, so an interrupted write
// never leaves a half-written version visible to List. An existing file for
// the same slot is a hard error, never silently overwritten.
func (s *VersionStore) Append(v *DiagramVersion) error {
	if v == nil || strings.TrimSpace(v.ID) == "" {
		return fmt.Errorf("cannot store version without an id")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.listFiles()
	if err != nil {
		return err
	}
	path := s.versionPath(len(entries)+1, v.ID)

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("could not marshal version '%s': %w", v.ID, err)
	}
	tmp, err := os.CreateTemp(s.basePath, "version-*.tmp")
	if err != nil {
		return fmt.Errorf("could not create temp file in '%s': %w", s.basePath, err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("could not write version file '%s': %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("could not write version file '%s': %w", path, err)
	}
	if _, err := os.Stat(path); err == nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("version file '%s' already exists", path)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("could not create version file '%s': %w", path, err)
	}
	slog.Info("Stored diagram version", "id", v.ID, "path", path)
	return nil
}

// List returns every stored version in creation order.
func (s *VersionStore) List() ([]*DiagramVersion, error) {
	files, err := s.listFiles()
	if err != nil {
		return nil, err
	}
	versions := make([]*DiagramVersion, 0, len(files))
	for _, name := range files {
		v, err := s.readFile(filepath.Join(s.basePath, name))
		if err != nil {
			slog.Warn("Skipping unreadable version file", "file", name, "error", err)
			continue
		}
		versions = append(versions, v)
	}
	return versions, nil
}

// Get returns the version with the given id, or ErrVersionNotFound.
func (s *VersionStore) Get(id string) (*DiagramVersion, error) {
	files, err := s.listFiles()
	if err != nil {
		return nil, err
	}
	suffix := "-" + sanitizeFilename(id) + ".json"
	for _, name := range files {
		if !strings.HasSuffix(name, suffix) {
			continue
		}
		return s.readFile(filepath.Join(s.basePath, name))
	}
	return nil, fmt.Errorf("version '%s': %w", id, ErrVersionNotFound)
}

// Latest returns the most recently appended version, or ErrVersionNotFound
// when the store is empty.
func (s *VersionStore) Latest() (*DiagramVersion, error) {
	files, err := s.listFiles()
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, ErrVersionNotFound
	}
	return s.readFile(filepath.Join(s.basePath, files[len(files)-1]))
}

// listFiles returns the version file names sorted by sequence prefix.
func (s *VersionStore) listFiles() ([]string, error) {
	entries, err := os.ReadDir(s.basePath)
	if err != nil {
		return nil, fmt.Errorf("could not read versions directory '%s': %w", s.basePath, err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

func (s *VersionStore) readFile(path string) (*DiagramVersion, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not read version file '%s': %w", path, err)
	}
	var v DiagramVersion
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("could not parse version file '%s': %w", path, err)
	}
	return &v, nil
}

// sanitizeFilename keeps ids safe to embed in file names.
func sanitizeFilename(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}
