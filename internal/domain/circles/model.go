// Package circles holds the circle model and the in-memory hierarchy index
// the permission core walks on every authorized request.
package circles

import (
	"context"
	"time"

	"omscore/internal/core/apperror"
	"omscore/internal/domain/filter"
)

// Circle is a node in the rooted circle forest. A nil ParentCircleID marks a
// root; a nil BodyID marks a free (unbound) circle.
type Circle struct {
	ID             int64     `db:"id" json:"id"`
	Name           string    `db:"name" json:"name"`
	Description    string    `db:"description" json:"description"`
	Joinable       bool      `db:"joinable" json:"joinable"`
	ParentCircleID *int64    `db:"parent_circle_id" json:"parent_circle_id"`
	BodyID         *int64    `db:"body_id" json:"body_id"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// Validate checks the fields required to persist a circle.
func (c *Circle) Validate() error {
	if c.Name == "" {
		return apperror.NewValidation("name is required").WithDetail("field", "name")
	}
	if c.ParentCircleID != nil && *c.ParentCircleID == c.ID && c.ID != 0 {
		return apperror.NewValidation("circle cannot be its own parent").WithDetail("field", "parent_circle_id")
	}
	return nil
}

// Detail is a circle together with its direct neighbours.
type Detail struct {
	Circle
	Parent   *Circle  `json:"parent_circle"`
	Children []Circle `json:"child_circles"`
}

// Repository defines circle storage operations.
type Repository interface {
	// ListAll returns the id/parent/body projection of every circle.
	ListAll(ctx context.Context) ([]Circle, error)

	List(ctx context.Context, f filter.List) ([]Circle, int, error)
	GetByID(ctx context.Context, circleID int64) (*Circle, error)
	ListChildren(ctx context.Context, circleID int64) ([]Circle, error)
	Create(ctx context.Context, circle *Circle) error

	// DeleteByBody removes every circle bound to the body.
	DeleteByBody(ctx context.Context, bodyID int64) (int64, error)
}
