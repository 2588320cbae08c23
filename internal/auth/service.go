package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"codetracker/internal/db"
	"codetracker/internal/models"
)

var (
	// ErrInvalidCredentials is surfaced verbatim to the sign-in form.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrEmailTaken rejects duplicate registration.
	ErrEmailTaken = errors.New("an account with this email already exists")
)

// Service implements sign-up, sign-in and session refresh against the
// user store.
type Service struct {
	users  db.Store
	tokens *TokenService
}

func NewService(users db.Store, tokens *TokenService) *Service {
	return &Service{users: users, tokens: tokens}
}

func (s *Service) SignUp(ctx context.Context, email, password string) (*models.Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || len(password) < 8 {
		return nil, errors.New("email and a password of at least 8 characters are required")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.users.CreateUser(ctx, &models.User{Email: email, PasswordHash: string(hash)})
	if errors.Is(err, db.ErrDuplicate) {
		return nil, ErrEmailTaken
	}
	if err != nil {
		return nil, err
	}
	return s.tokens.IssueSession(*user)
}

func (s *Service) SignIn(ctx context.Context, email, password string) (*models.Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	user, err := s.users.GetUserByEmail(ctx, email)
	if errors.Is(err, db.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}
	return s.tokens.IssueSession(*user)
}

// Refresh reconstructs a session from a refresh token.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*models.Session, error) {
	userID, err := s.tokens.VerifyRefresh(refreshToken)
	if err != nil {
		return nil, err
	}
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, ErrTokenInvalid
	}
	return s.tokens.IssueSession(*user)
}
