// Package org_repo provides PostgreSQL implementations for bodies and the
// records bound to them.
package org_repo

import (
	"context"

	"github.com/Masterminds/squirrel"

	"omscore/internal/domain/bodies"
	"omscore/internal/domain/filter"
	"omscore/internal/infrastructure/storage/postgres"
)

var bodySearchColumns = []string{"name", "code", "description", "email"}

// BodyRepo implements bodies.Repository.
type BodyRepo struct {
	postgres.Table[bodies.Body]
}

// NewBodyRepo creates a new body repository.
func NewBodyRepo(txm *postgres.TxManager) *BodyRepo {
	return &BodyRepo{Table: postgres.NewTable[bodies.Body](txm, "bodies", "Body")}
}

func (r *BodyRepo) listQuery(f filter.List, includeDeleted bool) squirrel.SelectBuilder {
	q := postgres.Search(r.SelectAll(), f.Query, bodySearchColumns...)
	if !includeDeleted {
		q = q.Where(squirrel.Eq{"status": bodies.StatusActive})
	}
	return q
}

func (r *BodyRepo) List(ctx context.Context, f filter.List, includeDeleted bool) ([]bodies.Body, int, error) {
	return r.SelectPage(ctx, r.listQuery(f, includeDeleted), f)
}

// GetByCode matches the code case-insensitively.
func (r *BodyRepo) GetByCode(ctx context.Context, code string) (*bodies.Body, error) {
	return r.Get(ctx, squirrel.ILike{"code": code}, code)
}

func (r *BodyRepo) Create(ctx context.Context, body *bodies.Body) error {
	values := postgres.Without(postgres.StructToMap(body), "id", "created_at", "updated_at")
	return r.Insert(ctx, values, "id, created_at, updated_at", &body.ID, &body.CreatedAt, &body.UpdatedAt)
}

// Update writes only the given columns.
func (r *BodyRepo) Update(ctx context.Context, body *bodies.Body, columns []string) error {
	return r.UpdateByID(ctx, body.ID, postgres.StructToMap(body, columns...))
}

func (r *BodyRepo) SetShadowCircle(ctx context.Context, bodyID, circleID int64) error {
	return r.UpdateByID(ctx, bodyID, map[string]any{"shadow_circle_id": circleID})
}

func (r *BodyRepo) SetStatus(ctx context.Context, bodyID int64, status bodies.Status) error {
	return r.UpdateByID(ctx, bodyID, map[string]any{"status": status})
}
