package permissions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"omscore/internal/core/apperror"
	"omscore/internal/core/tx"
	"omscore/internal/domain/audit"
	"omscore/internal/domain/filter"
)

// Record is a stored permission definition.
type Record struct {
	ID          int64     `db:"id" json:"id"`
	Scope       string    `db:"scope" json:"scope"`
	Action      string    `db:"action" json:"action"`
	Object      string    `db:"object" json:"object"`
	Combined    string    `db:"combined" json:"combined"`
	Description string    `db:"description" json:"description"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`

	// Loaded relations
	CircleIDs []int64 `db:"-" json:"circles,omitempty"`
}

// Normalize validates the components and recomputes Combined.
func (r *Record) Normalize() error {
	p, err := New(r.Scope, r.Action, r.Object)
	if err != nil {
		return apperror.NewValidation(err.Error()).WithCause(err)
	}
	r.Scope, r.Action, r.Object = string(p.Scope), p.Action, p.Object
	r.Combined = p.Combined()
	return nil
}

// Repository defines permission and circle grant storage.
type Repository interface {
	GrantSource

	List(ctx context.Context, f filter.List) ([]Record, int, error)
	GetByID(ctx context.Context, permissionID int64) (*Record, error)
	Create(ctx context.Context, record *Record) error
	Update(ctx context.Context, record *Record) error
	Delete(ctx context.Context, permissionID int64) error

	// CirclesHolding returns the circles the permission is granted to.
	CirclesHolding(ctx context.Context, permissionID int64) ([]int64, error)

	Assign(ctx context.Context, circleID, permissionID int64, fields []string) error
	Unassign(ctx context.Context, circleID, permissionID int64) error
}

// Service manages permission definitions and their circle grants.
type Service struct {
	repo      Repository
	txManager tx.Manager
	audit     audit.Recorder
}

// NewService creates a new permission service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, txManager: tx.Passthrough}
}

// WithAudit records every write through rec inside txm's transactions.
func (s *Service) WithAudit(txm tx.Manager, rec audit.Recorder) *Service {
	if txm != nil {
		s.txManager = txm
	}
	s.audit = rec
	return s
}

func (s *Service) List(ctx context.Context, f filter.List) ([]Record, int, error) {
	return s.repo.List(ctx, f)
}

// Get returns a permission with the circles it is granted to.
func (s *Service) Get(ctx context.Context, permissionID int64) (*Record, error) {
	r, err := s.repo.GetByID(ctx, permissionID)
	if err != nil {
		return nil, err
	}
	circleIDs, err := s.repo.CirclesHolding(ctx, permissionID)
	if err != nil {
		return nil, fmt.Errorf("load permission circles: %w", err)
	}
	r.CircleIDs = circleIDs
	return r, nil
}

func (s *Service) Create(ctx context.Context, r *Record) error {
	if err := r.Normalize(); err != nil {
		return err
	}
	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, r); err != nil {
			return err
		}
		return audit.Record(ctx, s.audit, audit.Entry{
			EntityType: "permission",
			EntityID:   r.ID,
			Action:     audit.ActionCreate,
			Changes:    map[string]any{"combined": r.Combined, "description": r.Description},
		})
	})
}

// Update applies a partial change to scope, action, object and description.
func (s *Service) Update(ctx context.Context, r *Record, changes Changes) error {
	before := map[string]any{"combined": r.Combined, "description": r.Description}
	if changes.Scope != nil {
		r.Scope = *changes.Scope
	}
	if changes.Action != nil {
		r.Action = *changes.Action
	}
	if changes.Object != nil {
		r.Object = *changes.Object
	}
	if changes.Description != nil {
		r.Description = *changes.Description
	}
	if err := r.Normalize(); err != nil {
		return err
	}
	after := map[string]any{"combined": r.Combined, "description": r.Description}

	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.Update(ctx, r); err != nil {
			return err
		}
		return audit.Record(ctx, s.audit, audit.Entry{
			EntityType: "permission",
			EntityID:   r.ID,
			Action:     audit.ActionUpdate,
			Changes:    audit.Diff(before, after),
		})
	})
}

func (s *Service) Delete(ctx context.Context, permissionID int64) error {
	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.Delete(ctx, permissionID); err != nil {
			return err
		}
		return audit.Record(ctx, s.audit, audit.Entry{
			EntityType: "permission",
			EntityID:   permissionID,
			Action:     audit.ActionDelete,
		})
	})
}

// Assign grants a permission to a circle, optionally limited to fields.
// Assigning an existing grant replaces its filters.
func (s *Service) Assign(ctx context.Context, circleID, permissionID int64, fields []string) error {
	if _, err := s.repo.GetByID(ctx, permissionID); err != nil {
		return err
	}
	fields = normalizeFields(fields)

	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.Assign(ctx, circleID, permissionID, fields); err != nil {
			var appErr *apperror.AppError
			if errors.As(err, &appErr) {
				return err
			}
			return fmt.Errorf("assign permission: %w", err)
		}
		return audit.Record(ctx, s.audit, audit.Entry{
			EntityType: "circle",
			EntityID:   circleID,
			Action:     audit.ActionAssign,
			Changes:    map[string]any{"permission_id": permissionID, "filters": fields},
		})
	})
}

func (s *Service) Unassign(ctx context.Context, circleID, permissionID int64) error {
	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.Unassign(ctx, circleID, permissionID); err != nil {
			return err
		}
		return audit.Record(ctx, s.audit, audit.Entry{
			EntityType: "circle",
			EntityID:   circleID,
			Action:     audit.ActionUnassign,
			Changes:    map[string]any{"permission_id": permissionID},
		})
	})
}

// Changes is a partial update of a permission record.
type Changes struct {
	Scope       *string
	Action      *string
	Object      *string
	Description *string
}
