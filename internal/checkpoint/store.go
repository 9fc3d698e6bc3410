// Package checkpoint persists model parameter snapshots as
// {name}_{step}.{ext} files and enforces the bounded-retention policy.
package checkpoint

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/PietroGiancristofaro2001/Ego4D-NLQ-Project/internal/tensor"
)

// ErrNotFound is returned when a directory holds no matching checkpoints.
var ErrNotFound = errors.New("checkpoint: not found")

// DefaultExt is the checkpoint file extension.
const DefaultExt = "ckpt"

// Snapshot is a deep, independently-owned copy of the model parameters.
type Snapshot map[string]tensor.Mat

// Store saves and retrieves snapshots under a single directory.
type Store struct {
	Dir  string
	Name string
	Ext  string
}

// NewStore creates a store writing {name}_{step}.{ext} files into dir.
func NewStore(dir, name string) *Store {
	return &Store{Dir: dir, Name: name, Ext: DefaultExt}
}

// Path returns the file path for the given step.
func (s *Store) Path(step int) string {
	return filepath.Join(s.Dir, fmt.Sprintf("%s_%d.%s", s.Name, step, s.Ext))
}

// Save writes the snapshot for the given step and returns its location.
func (s *Store) Save(snap Snapshot, step int) (string, error) {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return "", fmt.Errorf("checkpoint: create dir: %w", err)
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return "", fmt.Errorf("checkpoint: encode: %w", err)
	}
	path := s.Path(step)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("checkpoint: write %s: %w", path, err)
	}
	return path, nil
}

// List returns the checkpoint paths in the store directory ordered by
// creation: modification time first, path name as tie-break (the name
// carries the step, so same-second saves still order correctly).
func (s *Store) List() ([]string, error) {
	pattern := filepath.Join(s.Dir, "*."+s.Ext)
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("checkpoint: list %s: %w", s.Dir, err)
	}
	// an empty Name matches every checkpoint in the directory
	prefix := ""
	if s.Name != "" {
		prefix = s.Name + "_"
	}
	paths := matches[:0]
	for _, m := range matches {
		if strings.HasPrefix(filepath.Base(m), prefix) {
			paths = append(paths, m)
		}
	}
	sort.Slice(paths, func(i, j int) bool {
		ti, ei := mtime(paths[i])
		tj, ej := mtime(paths[j])
		if ei != nil || ej != nil || ti == tj {
			return stepOf(paths[i], prefix) < stepOf(paths[j], prefix)
		}
		return ti < tj
	})
	return paths, nil
}

// Prune deletes all but the keep most recently created checkpoints.
func (s *Store) Prune(keep int) error {
	paths, err := s.List()
	if err != nil {
		return err
	}
	if keep < 0 {
		keep = 0
	}
	if len(paths) <= keep {
		return nil
	}
	for _, p := range paths[:len(paths)-keep] {
		if err := os.Remove(p); err != nil {
			return fmt.Errorf("checkpoint: prune %s: %w", p, err)
		}
	}
	return nil
}

// Latest returns the path of the most recently created checkpoint, or
// ErrNotFound when the directory holds none.
func (s *Store) Latest() (string, error) {
	paths, err := s.List()
	if err != nil {
		return "", err
	}
	if len(paths) == 0 {
		return "", fmt.Errorf("%w in %s", ErrNotFound, s.Dir)
	}
	return paths[len(paths)-1], nil
}

// Load reads the snapshot at the given path.
func (s *Store) Load(path string) (Snapshot, error) {
	return LoadFile(path)
}

// LoadLatest reads the most recently created snapshot.
func (s *Store) LoadLatest() (Snapshot, string, error) {
	path, err := s.Latest()
	if err != nil {
		return nil, "", err
	}
	snap, err := s.Load(path)
	if err != nil {
		return nil, "", err
	}
	return snap, path, nil
}

// LoadFile reads a snapshot from an arbitrary path, outside any store.
func LoadFile(path string) (Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("checkpoint: read %s: %w", path, err)
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("checkpoint: decode %s: %w", path, err)
	}
	return snap, nil
}

func mtime(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	return info.ModTime().UnixNano(), nil
}

func stepOf(path, prefix string) int {
	base := filepath.Base(path)
	base = strings.TrimPrefix(base, prefix)
	if i := strings.IndexByte(base, '.'); i >= 0 {
		base = base[:i]
	}
	step := 0
	for _, r := range base {
		if r < '0' || r > '9' {
			return step
		}
		step = step*10 + int(r-'0')
	}
	return step
}
