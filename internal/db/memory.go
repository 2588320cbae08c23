package db

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"codetracker/internal/models"
	"codetracker/internal/urlutil"
)

// MemoryStore implements Store in memory with the same uniqueness rules
// as the Mongo store. Used by tests and the --memory dev mode.
type MemoryStore struct {
	mu       sync.Mutex
	problems map[string]models.SavedProblem // id -> record
	topics   map[string]models.Topic        // id -> topic
	users    map[string]models.User         // id -> user
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		problems: make(map[string]models.SavedProblem),
		topics:   make(map[string]models.Topic),
		users:    make(map[string]models.User),
	}
}

func (s *MemoryStore) CreateProblem(_ context.Context, p *models.SavedProblem) (*models.SavedProblem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := urlutil.Normalize(p.URL)
	for _, existing := range s.problems {
		if existing.UserID == p.UserID && existing.NormalizedURL == key {
			return nil, ErrDuplicate
		}
	}
	saved := *p
	saved.ID = uuid.NewString()
	saved.NormalizedURL = key
	saved.LastRefreshed = saved.DateAdded
	s.problems[saved.ID] = saved
	out := saved
	return &out, nil
}

func (s *MemoryStore) GetProblemByURL(_ context.Context, userID, url string) (*models.SavedProblem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := urlutil.Normalize(url)
	for _, p := range s.problems {
		if p.UserID == userID && p.NormalizedURL == key {
			out := p
			return &out, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) ListProblems(_ context.Context, userID string, f ProblemFilter) ([]models.SavedProblem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.SavedProblem
	for _, p := range s.problems {
		if p.UserID != userID {
			continue
		}
		if f.Platform != "" && p.Platform != f.Platform {
			continue
		}
		if f.Difficulty != "" && p.Difficulty != f.Difficulty {
			continue
		}
		if f.Topic != "" && p.Topic != f.Topic {
			continue
		}
		if f.Completed != nil && p.Completed != *f.Completed {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DateAdded.After(out[j].DateAdded) })
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (s *MemoryStore) UpdateProblem(_ context.Context, userID, id string, u ProblemUpdate) (*models.SavedProblem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.problems[id]
	if !ok || p.UserID != userID {
		return nil, ErrNotFound
	}
	if u.Completed != nil {
		p.Completed = *u.Completed
	}
	if u.Notes != nil {
		p.Notes = *u.Notes
	}
	s.problems[id] = p
	out := p
	return &out, nil
}

func (s *MemoryStore) DeleteProblem(_ context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.problems[id]
	if !ok || p.UserID != userID {
		return ErrNotFound
	}
	delete(s.problems, id)
	return nil
}

func (s *MemoryStore) ProblemExists(_ context.Context, userID, url string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := urlutil.Normalize(url)
	for _, p := range s.problems {
		if p.UserID == userID && p.NormalizedURL == key {
			return true, nil
		}
	}
	return false, nil
}

func (s *MemoryStore) ListStaleProblems(_ context.Context, refreshedBefore time.Time, limit int) ([]models.SavedProblem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.SavedProblem
	for _, p := range s.problems {
		if p.LastRefreshed.Before(refreshedBefore) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LastRefreshed.Before(out[j].LastRefreshed) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) UpdateProblemMetadata(_ context.Context, id string, draft models.ProblemDraft, refreshedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.problems[id]
	if !ok {
		return ErrNotFound
	}
	p.Title = draft.Title
	p.Difficulty = draft.Difficulty
	p.Topics = draft.Topics
	p.Companies = draft.Companies
	p.Description = draft.Description
	p.LastRefreshed = refreshedAt
	s.problems[id] = p
	return nil
}

func (s *MemoryStore) CreateTopic(_ context.Context, t *models.Topic) (*models.Topic, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.topics {
		if existing.UserID == t.UserID && existing.Slug == t.Slug {
			return nil, ErrDuplicate
		}
	}
	saved := *t
	saved.ID = uuid.NewString()
	s.topics[saved.ID] = saved
	out := saved
	return &out, nil
}

func (s *MemoryStore) ListTopics(_ context.Context, userID string) ([]models.Topic, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.Topic
	for _, t := range s.topics {
		if t.UserID == userID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *MemoryStore) GetTopic(_ context.Context, userID, slug string) (*models.Topic, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, t := range s.topics {
		if t.UserID == userID && t.Slug == slug {
			out := t
			return &out, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) DeleteTopic(_ context.Context, userID, slug string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, t := range s.topics {
		if t.UserID == userID && t.Slug == slug {
			delete(s.topics, id)
			return nil
		}
	}
	return ErrNotFound
}

func (s *MemoryStore) CreateUser(_ context.Context, u *models.User) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.users {
		if existing.Email == u.Email {
			return nil, ErrDuplicate
		}
	}
	saved := *u
	saved.ID = uuid.NewString()
	if saved.CreatedAt.IsZero() {
		saved.CreatedAt = time.Now()
	}
	s.users[saved.ID] = saved
	out := saved
	return &out, nil
}

func (s *MemoryStore) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.Email == email {
			out := u
			return &out, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) GetUserByID(_ context.Context, id string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := u
	return &out, nil
}

func (s *MemoryStore) Close(context.Context) error { return nil }
