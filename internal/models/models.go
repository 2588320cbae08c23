package models

import (
	"strings"
	"time"
)

// Difficulty is the normalized difficulty bucket of a problem.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "Easy"
	DifficultyMedium Difficulty = "Medium"
	DifficultyHard   Difficulty = "Hard"
)

// ParseDifficulty resolves a difficulty from arbitrary element text by substring,
// since the textual label survives site redesigns better than markup does.
// Unrecognized text resolves to Medium.
func ParseDifficulty(text string) Difficulty {
	switch {
	case strings.Contains(text, "Easy"):
		return DifficultyEasy
	case strings.Contains(text, "Medium"):
		return DifficultyMedium
	case strings.Contains(text, "Hard"):
		return DifficultyHard
	default:
		return DifficultyMedium
	}
}

// MaxDescriptionLength caps scraped problem descriptions.
const MaxDescriptionLength = 500

// ProblemDraft is a freshly extracted, not yet persisted problem.
// A draft is immutable once produced; re-extraction yields a new draft.
type ProblemDraft struct {
	Title       string     `json:"title"`
	Difficulty  Difficulty `json:"difficulty"`
	URL         string     `json:"url"`
	Platform    string     `json:"platform"`
	Topics      []string   `json:"topics"`
	Companies   []string   `json:"companies"`
	Description string     `json:"description"`
}

// SavedProblem is a user-owned persisted problem record.
// The backend enforces uniqueness on (user_id, url).
type SavedProblem struct {
	ID    string `json:"id" bson:"-"`
	Title string `json:"title" bson:"title"`
	URL   string `json:"url" bson:"url"`
	// NormalizedURL is the server-side dedup key; derived, never exposed.
	NormalizedURL string     `json:"-" bson:"normalized_url"`
	Difficulty    Difficulty `json:"difficulty" bson:"difficulty"`
	Platform      string     `json:"platform" bson:"platform"`
	Topics        []string   `json:"topics" bson:"topics"`
	Companies     []string   `json:"companies" bson:"companies"`
	Description   string     `json:"description" bson:"description"`
	Topic         string     `json:"topic" bson:"topic"`
	Notes         string     `json:"notes" bson:"notes"`
	Completed     bool       `json:"completed" bson:"completed"`
	UserID        string     `json:"user_id" bson:"user_id"`
	DateAdded     time.Time  `json:"date_added" bson:"date_added"`
	LastSolved    *time.Time `json:"last_solved,omitempty" bson:"last_solved,omitempty"`
	Attempts      int        `json:"attempts" bson:"attempts"`
	// LastRefreshed tracks when scraped metadata was last re-fetched.
	LastRefreshed time.Time `json:"-" bson:"last_refreshed"`
}

// NewSavedProblem builds a record from a draft plus the save-time fields.
func NewSavedProblem(draft ProblemDraft, topic, notes, userID string, now time.Time) SavedProblem {
	platform := draft.Platform
	if platform == "" {
		platform = "unknown"
	}
	return SavedProblem{
		Title:       draft.Title,
		URL:         draft.URL,
		Difficulty:  draft.Difficulty,
		Platform:    platform,
		Topics:      draft.Topics,
		Companies:   draft.Companies,
		Description: draft.Description,
		Topic:       topic,
		Notes:       notes,
		UserID:      userID,
		DateAdded:   now,
	}
}

// Topic is a user-defined problem category.
type Topic struct {
	ID          string    `json:"id" bson:"-"`
	Name        string    `json:"name" bson:"name"`
	Slug        string    `json:"slug" bson:"slug"`
	Description string    `json:"description" bson:"description"`
	Color       string    `json:"color" bson:"color"`
	UserID      string    `json:"user_id" bson:"user_id"`
	CreatedAt   time.Time `json:"created_at" bson:"created_at"`
}

// User is an account record. PasswordHash never leaves the server.
type User struct {
	ID           string    `json:"id" bson:"-"`
	Email        string    `json:"email" bson:"email"`
	PasswordHash string    `json:"-" bson:"password_hash"`
	CreatedAt    time.Time `json:"created_at" bson:"created_at"`
}

// SessionUser is the identity subset carried inside a tracker session.
type SessionUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Session is the persisted tracker session. One active session at a time.
type Session struct {
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token"`
	User         SessionUser `json:"user"`
}
