package org_repo

import (
	"context"

	"github.com/Masterminds/squirrel"

	"omscore/internal/domain/circles"
	"omscore/internal/domain/filter"
	"omscore/internal/infrastructure/storage/postgres"
)

// CircleRepo implements circles.Repository.
type CircleRepo struct {
	postgres.Table[circles.Circle]
}

// NewCircleRepo creates a new circle repository.
func NewCircleRepo(txm *postgres.TxManager) *CircleRepo {
	return &CircleRepo{Table: postgres.NewTable[circles.Circle](txm, "circles", "Circle")}
}

// ListAll returns the id/parent/body projection of every circle.
func (r *CircleRepo) ListAll(ctx context.Context) ([]circles.Circle, error) {
	return r.Select(ctx, postgres.Builder().
		Select("id", "parent_circle_id", "body_id").
		From(r.Name()).
		OrderBy("id"))
}

func (r *CircleRepo) List(ctx context.Context, f filter.List) ([]circles.Circle, int, error) {
	return r.SelectPage(ctx, postgres.Search(r.SelectAll(), f.Query, "name", "description"), f)
}

func (r *CircleRepo) ListChildren(ctx context.Context, circleID int64) ([]circles.Circle, error) {
	return r.Select(ctx, r.SelectAll().Where(squirrel.Eq{"parent_circle_id": circleID}).OrderBy("id"))
}

func (r *CircleRepo) Create(ctx context.Context, c *circles.Circle) error {
	values := postgres.Without(postgres.StructToMap(c), "id", "created_at", "updated_at")
	return r.Insert(ctx, values, "id, created_at, updated_at", &c.ID, &c.CreatedAt, &c.UpdatedAt)
}

// DeleteByBody removes every circle bound to the body.
func (r *CircleRepo) DeleteByBody(ctx context.Context, bodyID int64) (int64, error) {
	return r.DeleteWhere(ctx, squirrel.Eq{"body_id": bodyID})
}
