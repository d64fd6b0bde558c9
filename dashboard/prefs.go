package dashboard

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"
)

// Prefs are the console settings that survive a restart
type Prefs struct {
	Mode          Mode  `yaml:"mode"`
	HiddenColumns []int `yaml:"hidden_columns"`
}

// Normalize replaces an unknown mode with all and drops column indices
// outside the hideable range
func (p Prefs) Normalize() Prefs {
	out := Prefs{Mode: p.Mode}
	if !out.Mode.Valid() {
		out.Mode = ModeAll
	}
	seen := make(map[int]bool)
	for _, col := range p.HiddenColumns {
		if col < FirstColumn || col > LastColumn || seen[col] {
			continue
		}
		seen[col] = true
		out.HiddenColumns = append(out.HiddenColumns, col)
	}
	sort.Ints(out.HiddenColumns)
	return out
}

func (p Prefs) applyTo(s *State) {
	p = p.Normalize()
	s.Mode = p.Mode
	s.Hidden = make(map[int]bool, len(p.HiddenColumns))
	for _, col := range p.HiddenColumns {
		s.Hidden[col] = true
	}
}

func prefsOf(s *State) Prefs {
	return Prefs{Mode: s.Mode, HiddenColumns: s.HiddenColumns()}
}

// PrefsStore loads and saves Prefs
type PrefsStore interface {
	Load() (Prefs, error)
	Save(Prefs) error
}

// FilePrefs keeps Prefs in a YAML file
type FilePrefs struct {
	path string
}

// NewFilePrefs creates a store backed by the file at path
func NewFilePrefs(path string) *FilePrefs {
	return &FilePrefs{path: path}
}

// Load reads the file. A missing file yields the defaults.
func (f *FilePrefs) Load() (Prefs, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return Prefs{Mode: ModeAll}, nil
	}
	if err != nil {
		return Prefs{Mode: ModeAll}, fmt.Errorf("read prefs: %w", err)
	}

	var p Prefs
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Prefs{Mode: ModeAll}, fmt.Errorf("parse prefs %s: %w", f.path, err)
	}
	return p.Normalize(), nil
}

// Save writes the file through a temporary file and rename
func (f *FilePrefs) Save(p Prefs) error {
	data, err := yaml.Marshal(p.Normalize())
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(f.path), ".prefs-*")
	if err != nil {
		return fmt.Errorf("save prefs: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("save prefs: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("save prefs: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("save prefs: %w", err)
	}
	return nil
}

// MemoryPrefs keeps Prefs in memory
type MemoryPrefs struct {
	mu    sync.Mutex
	prefs Prefs
}

// Load returns the stored prefs
func (m *MemoryPrefs) Load() (Prefs, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.prefs.Normalize(), nil
}

// Save stores p
func (m *MemoryPrefs) Save(p Prefs) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prefs = p
	return nil
}
