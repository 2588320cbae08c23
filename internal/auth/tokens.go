package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"codetracker/internal/models"
)

var (
	// ErrTokenInvalid covers malformed, mis-signed, or wrong-type tokens.
	ErrTokenInvalid = errors.New("invalid token")
	// ErrTokenExpired is kept distinct so callers can prompt re-auth.
	ErrTokenExpired = errors.New("token expired")
)

// TokenService issues and verifies the HS256 access/refresh token pair.
type TokenService struct {
	secret     []byte
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func NewTokenService(secret, issuer string, accessTTL, refreshTTL time.Duration) *TokenService {
	return &TokenService{
		secret:     []byte(secret),
		issuer:     issuer,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

type tokenClaims struct {
	Email     string `json:"email,omitempty"`
	TokenType string `json:"typ"`
	jwt.RegisteredClaims
}

// IssueSession mints a fresh access/refresh pair for the user.
func (s *TokenService) IssueSession(user models.User) (*models.Session, error) {
	now := time.Now()
	access, err := s.sign(tokenClaims{
		Email:     user.Email,
		TokenType: "access",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			Issuer:    s.issuer,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.accessTTL)),
		},
	})
	if err != nil {
		return nil, err
	}
	refresh, err := s.sign(tokenClaims{
		TokenType: "refresh",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			Issuer:    s.issuer,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.refreshTTL)),
		},
	})
	if err != nil {
		return nil, err
	}
	return &models.Session{
		AccessToken:  access,
		RefreshToken: refresh,
		User:         models.SessionUser{ID: user.ID, Email: user.Email},
	}, nil
}

func (s *TokenService) sign(claims tokenClaims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Identity is the verified content of an access token.
type Identity struct {
	UserID string
	Email  string
}

// VerifyAccess validates an access token and returns the identity.
func (s *TokenService) VerifyAccess(raw string) (Identity, error) {
	claims, err := s.parse(raw, "access")
	if err != nil {
		return Identity{}, err
	}
	return Identity{UserID: claims.Subject, Email: claims.Email}, nil
}

// VerifyRefresh validates a refresh token and returns the user id.
func (s *TokenService) VerifyRefresh(raw string) (string, error) {
	claims, err := s.parse(raw, "refresh")
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

func (s *TokenService) parse(raw, wantType string) (*tokenClaims, error) {
	if raw == "" {
		return nil, ErrTokenInvalid
	}
	parsed, err := jwt.ParseWithClaims(raw, &tokenClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}
	claims, ok := parsed.Claims.(*tokenClaims)
	if !ok || !parsed.Valid {
		return nil, ErrTokenInvalid
	}
	if s.issuer != "" && claims.Issuer != s.issuer {
		return nil, ErrTokenInvalid
	}
	if claims.TokenType != wantType || claims.Subject == "" {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}
