package auth

import (
	"context"
	"time"

	"omscore/internal/domain/circles"
)

// UserRepository defines user storage operations. Lookups of missing users
// return an apperror with CodeNotFound.
type UserRepository interface {
	// GetByID retrieves user by ID.
	GetByID(ctx context.Context, userID int64) (*User, error)

	// GetByUsername matches the username case-insensitively.
	GetByUsername(ctx context.Context, username string) (*User, error)

	// GetWithMemberships loads the user together with circle and body
	// memberships.
	GetWithMemberships(ctx context.Context, userID int64) (*User, error)

	// Create creates a new user.
	Create(ctx context.Context, user *User) error

	// TouchLastActive records the time of the user's latest authorized request.
	TouchLastActive(ctx context.Context, userID int64, at time.Time) error
}

// TokenRepository defines access token storage operations.
type TokenRepository interface {
	// GetByHash retrieves token by its sha256 hash.
	GetByHash(ctx context.Context, tokenHash string) (*AccessToken, error)

	// Save saves a token and fills its ID.
	Save(ctx context.Context, token *AccessToken) error

	// Delete removes a token.
	Delete(ctx context.Context, tokenID int64) error
}

// HierarchySource builds a fresh circle hierarchy snapshot.
// *circles.Service satisfies it.
type HierarchySource interface {
	Snapshot(ctx context.Context) (*circles.Index, error)
}
