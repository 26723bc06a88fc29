package session

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// SectionState is what is remembered about a section between editor runs.
type SectionState struct {
	Cursor int `json:"cursor"`
}

// State is the persisted editor state of all projects.
type State struct {
	Sections    map[string]SectionState `json:"sections"`
	LastSection map[string]string       `json:"last_section,omitempty"` // keyed by project path
	LastSaved   time.Time               `json:"last_saved"`
}

// StateStore persists State as JSON. It is safe for concurrent use; an
// autosave goroutine writes it periodically until Stop.
type StateStore struct {
	mu       sync.RWMutex
	state    State
	path     string
	dirty    bool
	stopChan chan struct{}
	stopOnce sync.Once
}

// NewStateStore opens the store under the XDG state directory.
func NewStateStore() (*StateStore, error) {
	path, err := statePath()
	if err != nil {
		return nil, err
	}
	return OpenStateStore(path), nil
}

func OpenStateStore(path string) *StateStore {
	s := &StateStore{
		state: State{
			Sections:    make(map[string]SectionState),
			LastSection: make(map[string]string),
		},
		path:     path,
		stopChan: make(chan struct{}),
	}
	s.load()
	go s.autosaveLoop()
	return s
}

func statePath() (string, error) {
	if v := os.Getenv("SCEDIT_STATE_HOME"); v != "" {
		if err := os.MkdirAll(v, 0o755); err != nil {
			return "", err
		}
		return filepath.Join(v, "state.json"), nil
	}
	stateDir := os.Getenv("XDG_STATE_HOME")
	if stateDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		stateDir = filepath.Join(home, ".local", "state")
	}
	dir := filepath.Join(stateDir, "scedit")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return filepath.Join(dir, "state.json"), nil
}

func (s *StateStore) load() {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return // nothing saved yet
	}
	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		return
	}
	if st.Sections == nil {
		st.Sections = make(map[string]SectionState)
	}
	if st.LastSection == nil {
		st.LastSection = make(map[string]string)
	}
	s.state = st
}

// SectionKey identifies a section across projects.
func SectionKey(project, id string) string {
	return project + "#" + id
}

// Save persists the state if it changed.
func (s *StateStore) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.dirty {
		return nil
	}

	s.state.LastSaved = time.Now()
	data, err := json.MarshalIndent(s.state, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return err
	}

	s.dirty = false
	return nil
}

func (s *StateStore) Section(key string) (SectionState, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.state.Sections[key]
	return st, ok
}

func (s *StateStore) SetSection(key string, st SectionState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Sections[key] = st
	s.dirty = true
}

// LastSection returns the section last edited in a project.
func (s *StateStore) LastSection(project string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.LastSection[project]
}

func (s *StateStore) SetLastSection(project, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.LastSection[project] == id {
		return
	}
	s.state.LastSection[project] = id
	s.dirty = true
}

func (s *StateStore) autosaveLoop() {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			_ = s.Save()
		case <-s.stopChan:
			return
		}
	}
}

// Stop ends autosaving and writes the final state.
func (s *StateStore) Stop() error {
	s.stopOnce.Do(func() { close(s.stopChan) })
	return s.Save()
}
