package bodies

import (
	"context"

	"omscore/internal/domain/auth"
	"omscore/internal/domain/circles"
	"omscore/internal/domain/filter"
)

// Repository defines body storage operations.
type Repository interface {
	// List returns a page of bodies. Deleted bodies are skipped unless
	// includeDeleted is set.
	List(ctx context.Context, f filter.List, includeDeleted bool) ([]Body, int, error)

	GetByID(ctx context.Context, bodyID int64) (*Body, error)

	// GetByCode matches the code case-insensitively.
	GetByCode(ctx context.Context, code string) (*Body, error)

	Create(ctx context.Context, body *Body) error

	// Update writes only the given columns of body.
	Update(ctx context.Context, body *Body, columns []string) error

	SetShadowCircle(ctx context.Context, bodyID, circleID int64) error
	SetStatus(ctx context.Context, bodyID int64, status Status) error
}

// MembershipRepository defines body membership storage operations.
type MembershipRepository interface {
	ListByBody(ctx context.Context, bodyID int64, f filter.List) ([]Membership, int, error)
	Create(ctx context.Context, m *Membership) error
	DeleteByBody(ctx context.Context, bodyID int64) (int64, error)
}

// PaymentRepository defines payment storage operations.
type PaymentRepository interface {
	ListByBody(ctx context.Context, bodyID int64, f filter.List) ([]Payment, int, error)
	DeleteByBody(ctx context.Context, bodyID int64) (int64, error)
}

// JoinRequestRepository defines join request storage operations.
type JoinRequestRepository interface {
	DeleteByBody(ctx context.Context, bodyID int64) (int64, error)
}

// CircleStore is the part of circle storage a body needs.
// circles.Repository satisfies it.
type CircleStore interface {
	Create(ctx context.Context, circle *circles.Circle) error
	DeleteByBody(ctx context.Context, bodyID int64) (int64, error)
}

// UserCreator creates accounts for new members.
// auth.UserRepository satisfies it.
type UserCreator interface {
	Create(ctx context.Context, user *auth.User) error
}
