package db

import (
	"context"
	"errors"
	"time"

	"codetracker/internal/models"
)

var (
	// ErrNotFound means no matching record owned by the caller.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate means a uniqueness constraint was hit:
	// (user_id, url) for problems, (user_id, slug) for topics,
	// email for users.
	ErrDuplicate = errors.New("record already exists")
)

// ProblemFilter narrows ListProblems. Zero values mean "any".
type ProblemFilter struct {
	Limit      int
	Platform   string
	Difficulty models.Difficulty
	Topic      string
	Completed  *bool
}

// ProblemUpdate carries the two mutable fields of a saved problem.
type ProblemUpdate struct {
	Completed *bool
	Notes     *string
}

// Store is the persistence surface of the API server. The Mongo
// implementation backs production; the memory implementation backs
// tests and local development.
type Store interface {
	CreateProblem(ctx context.Context, p *models.SavedProblem) (*models.SavedProblem, error)
	GetProblemByURL(ctx context.Context, userID, url string) (*models.SavedProblem, error)
	ListProblems(ctx context.Context, userID string, f ProblemFilter) ([]models.SavedProblem, error)
	UpdateProblem(ctx context.Context, userID, id string, u ProblemUpdate) (*models.SavedProblem, error)
	DeleteProblem(ctx context.Context, userID, id string) error
	ProblemExists(ctx context.Context, userID, url string) (bool, error)

	// ListStaleProblems feeds the metadata refresher: records not
	// re-scraped since the cutoff, oldest first.
	ListStaleProblems(ctx context.Context, refreshedBefore time.Time, limit int) ([]models.SavedProblem, error)
	// UpdateProblemMetadata applies re-scraped fields without touching
	// the user-owned ones (topic, notes, completed).
	UpdateProblemMetadata(ctx context.Context, id string, draft models.ProblemDraft, refreshedAt time.Time) error

	CreateTopic(ctx context.Context, t *models.Topic) (*models.Topic, error)
	ListTopics(ctx context.Context, userID string) ([]models.Topic, error)
	GetTopic(ctx context.Context, userID, slug string) (*models.Topic, error)
	DeleteTopic(ctx context.Context, userID, slug string) error

	CreateUser(ctx context.Context, u *models.User) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)

	Close(ctx context.Context) error
}
