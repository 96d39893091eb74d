package circles

import (
	"context"
	"fmt"

	"omscore/internal/core/apperror"
	"omscore/internal/domain/filter"
)

// Service provides read access to circles for the HTTP layer.
type Service struct {
	repo Repository
}

// NewService creates a new circle service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// List returns a page of circles and the total match count.
func (s *Service) List(ctx context.Context, f filter.List) ([]Circle, int, error) {
	return s.repo.List(ctx, f)
}

// Get returns a circle along with its parent and direct children.
func (s *Service) Get(ctx context.Context, circleID int64) (*Detail, error) {
	c, err := s.repo.GetByID(ctx, circleID)
	if err != nil {
		return nil, err
	}

	detail := &Detail{Circle: *c}
	if c.ParentCircleID != nil {
		// A dangling parent makes the circle a root, as in the hierarchy index.
		parent, err := s.repo.GetByID(ctx, *c.ParentCircleID)
		switch {
		case err == nil:
			detail.Parent = parent
		case !apperror.IsNotFound(err):
			return nil, fmt.Errorf("get parent circle: %w", err)
		}
	}

	children, err := s.repo.ListChildren(ctx, circleID)
	if err != nil {
		return nil, fmt.Errorf("list child circles: %w", err)
	}
	detail.Children = children
	return detail, nil
}

// Snapshot loads every circle and builds the hierarchy index.
func (s *Service) Snapshot(ctx context.Context) (*Index, error) {
	all, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load circles: %w", err)
	}
	return NewIndex(ctx, all)
}
