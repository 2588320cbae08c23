package localstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"codetracker/internal/models"
	"codetracker/internal/urlutil"
)

// state is the durable on-disk contract of the tracker.
type state struct {
	SavedProblemsByUser map[string][]models.SavedProblem `json:"savedProblemsByUser"`
	Session             *models.Session                  `json:"session,omitempty"`
}

// Store is the per-user partitioned local cache of saved problems plus
// the persisted session. It mirrors a subset of server state for fast
// "already saved" checks; the server remains the source of truth.
//
// All operations are read-modify-write under one mutex so overlapping
// saves for the same user cannot lose updates.
type Store struct {
	mu    sync.Mutex
	path  string
	state state
}

// Open loads the store from path, starting empty when the file does not
// exist. An empty path keeps the store in memory only.
func Open(path string) (*Store, error) {
	s := &Store{
		path:  path,
		state: state{SavedProblemsByUser: make(map[string][]models.SavedProblem)},
	}
	if path == "" {
		return s, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read local store: %w", err)
	}
	if err := json.Unmarshal(data, &s.state); err != nil {
		return nil, fmt.Errorf("parse local store: %w", err)
	}
	if s.state.SavedProblemsByUser == nil {
		s.state.SavedProblemsByUser = make(map[string][]models.SavedProblem)
	}
	return s, nil
}

// Session returns the persisted session, or nil when signed out.
func (s *Store) Session() *models.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Session == nil {
		return nil
	}
	session := *s.state.Session
	return &session
}

func (s *Store) SetSession(session *models.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Session = session
	return s.persistLocked()
}

// ClearSession removes the session only. Saved-problem partitions of
// every user survive sign-out.
func (s *Store) ClearSession() error {
	return s.SetSession(nil)
}

// SavedProblems returns a copy of the user's partition, newest last.
func (s *Store) SavedProblems(userID string) []models.SavedProblem {
	s.mu.Lock()
	defer s.mu.Unlock()
	partition := s.state.SavedProblemsByUser[userID]
	out := make([]models.SavedProblem, len(partition))
	copy(out, partition)
	return out
}

// HasProblem reports whether the user's partition holds the URL.
// URLs are compared in normalized form.
func (s *Store) HasProblem(userID, url string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.findLocked(userID, url)
	return ok
}

// SaveProblem writes a record into the user's partition. Saving a URL
// that is already present replaces the existing entry, so a partition
// never holds two records for one URL.
func (s *Store) SaveProblem(userID string, problem models.SavedProblem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i, ok := s.findLocked(userID, problem.URL); ok {
		s.state.SavedProblemsByUser[userID][i] = problem
	} else {
		s.state.SavedProblemsByUser[userID] = append(s.state.SavedProblemsByUser[userID], problem)
	}
	return s.persistLocked()
}

// RemoveProblem deletes the URL from the user's partition, if present.
func (s *Store) RemoveProblem(userID, url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.findLocked(userID, url)
	if !ok {
		return nil
	}
	partition := s.state.SavedProblemsByUser[userID]
	s.state.SavedProblemsByUser[userID] = append(partition[:i], partition[i+1:]...)
	return s.persistLocked()
}

func (s *Store) findLocked(userID, url string) (int, bool) {
	key := urlutil.Normalize(url)
	for i, p := range s.state.SavedProblemsByUser[userID] {
		if urlutil.Normalize(p.URL) == key {
			return i, true
		}
	}
	return 0, false
}

// persistLocked writes the state atomically (temp file + rename).
func (s *Store) persistLocked() error {
	if s.path == "" {
		return nil
	}
	data, err := json.MarshalIndent(s.state, "", "  ")
	if err != nil {
		return fmt.Errorf("encode local store: %w", err)
	}
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create store dir: %w", err)
		}
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("write local store: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace local store: %w", err)
	}
	return nil
}
