package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"omscore/internal/core/apperror"
	"omscore/pkg/logger"
)

const (
	tokenBytes    = 32
	passwordBytes = 16
)

// Service provides login, logout and user lookups.
type Service struct {
	users    UserRepository
	tokens   TokenRepository
	tokenTTL time.Duration
	now      func() time.Time
}

// NewService creates a new auth service.
func NewService(users UserRepository, tokens TokenRepository, tokenTTL time.Duration) *Service {
	return &Service{
		users:    users,
		tokens:   tokens,
		tokenTTL: tokenTTL,
		now:      time.Now,
	}
}

// Login authenticates user and issues an access token.
func (s *Service) Login(ctx context.Context, creds Credentials) (*LoginResult, error) {
	username := strings.TrimSpace(creds.Username)
	if username == "" || creds.Password == "" {
		return nil, apperror.NewValidation("username and password are required")
	}

	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil, apperror.NewUnauthorized("Login or password are not valid.")
		}
		return nil, fmt.Errorf("find user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(creds.Password)); err != nil {
		logger.Debug(ctx, "password mismatch", "user_id", user.ID)
		return nil, apperror.NewUnauthorized("Login or password are not valid.")
	}

	raw, token, err := s.IssueToken(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "user logged in", "user_id", user.ID, "username", user.Username)

	return &LoginResult{AccessToken: raw, ExpiresAt: token.ExpiresAt, User: user}, nil
}

// IssueToken creates and stores a new access token for the user. The raw
// value is returned once and never stored.
func (s *Service) IssueToken(ctx context.Context, userID int64) (string, *AccessToken, error) {
	raw, err := generateRandomToken(tokenBytes)
	if err != nil {
		return "", nil, fmt.Errorf("generate access token: %w", err)
	}

	now := s.now()
	token := &AccessToken{
		UserID:    userID,
		TokenHash: HashToken(raw),
		ExpiresAt: now.Add(s.tokenTTL),
		CreatedAt: now,
	}
	if err := s.tokens.Save(ctx, token); err != nil {
		return "", nil, fmt.Errorf("save access token: %w", err)
	}
	return raw, token, nil
}

// Logout revokes the token the request was authorized with.
func (s *Service) Logout(ctx context.Context, tokenID int64) error {
	if err := s.tokens.Delete(ctx, tokenID); err != nil {
		return fmt.Errorf("delete access token: %w", err)
	}
	return nil
}

// GetUser retrieves user with memberships.
func (s *Service) GetUser(ctx context.Context, userID int64) (*User, error) {
	return s.users.GetWithMemberships(ctx, userID)
}

// GetUserByUsername looks a user up by username, case-insensitively.
func (s *Service) GetUserByUsername(ctx context.Context, username string) (*User, error) {
	return s.users.GetByUsername(ctx, username)
}

// HashPassword hashes a plain password with bcrypt.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// RandomPasswordHash returns the hash of a throwaway password, for accounts
// created on someone's behalf.
func RandomPasswordHash() (string, error) {
	raw, err := generateRandomToken(passwordBytes)
	if err != nil {
		return "", err
	}
	return HashPassword(raw)
}

// HashToken creates SHA256 hash of token.
func HashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}

// generateRandomToken generates a random token string.
func generateRandomToken(length int) (string, error) {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}
