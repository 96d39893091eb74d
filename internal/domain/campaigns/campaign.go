// Package campaigns holds recruitment campaigns: public sign-up pages that
// may enrol new users straight into a body.
package campaigns

import (
	"context"
	"time"

	"omscore/internal/domain/filter"
)

// Campaign is a sign-up page. Inactive campaigns are hidden from callers
// without global:view:campaign.
type Campaign struct {
	ID               int64     `db:"id" json:"id"`
	Name             string    `db:"name" json:"name"`
	URL              string    `db:"url" json:"url"`
	Active           bool      `db:"active" json:"active"`
	DescriptionShort string    `db:"description_short" json:"description_short"`
	DescriptionLong  string    `db:"description_long" json:"description_long"`
	ActivateUser     bool      `db:"activate_user" json:"activate_user"`
	AutojoinBodyID   *int64    `db:"autojoin_body_id" json:"autojoin_body_id"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time `db:"updated_at" json:"updated_at"`
}

// SortableFields are accepted by the list endpoint's sort parameter.
var SortableFields = []string{"id", "name", "url", "created_at"}

// Repository defines campaign storage operations.
type Repository interface {
	List(ctx context.Context, f filter.List, includeInactive bool) ([]Campaign, int, error)
	GetByID(ctx context.Context, campaignID int64) (*Campaign, error)
}

// Service provides read access to campaigns.
type Service struct {
	repo Repository
}

// NewService creates a new campaign service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// List returns a page of campaigns and the total match count.
func (s *Service) List(ctx context.Context, f filter.List, includeInactive bool) ([]Campaign, int, error) {
	return s.repo.List(ctx, f, includeInactive)
}

// Get returns a campaign by id.
func (s *Service) Get(ctx context.Context, campaignID int64) (*Campaign, error) {
	return s.repo.GetByID(ctx, campaignID)
}
