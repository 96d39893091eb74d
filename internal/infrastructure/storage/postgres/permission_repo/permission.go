// Package permission_repo stores permission definitions and the circle
// grants that attach them to circles.
package permission_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"

	"omscore/internal/domain/filter"
	"omscore/internal/domain/permissions"
	"omscore/internal/infrastructure/storage/postgres"
)

const grantsTable = "circle_permissions"

var _ permissions.Repository = (*PermissionRepo)(nil)

// PermissionRepo implements permissions.Repository.
type PermissionRepo struct {
	postgres.Table[permissions.Record]
	txm *postgres.TxManager
}

// NewPermissionRepo creates a new permission repository.
func NewPermissionRepo(txm *postgres.TxManager) *PermissionRepo {
	return &PermissionRepo{
		Table: postgres.NewTable[permissions.Record](txm, "permissions", "Permission"),
		txm:   txm,
	}
}

// grantsQuery joins the grants of circleIDs with their permission.
func grantsQuery(circleIDs []int64) squirrel.SelectBuilder {
	return postgres.Builder().
		Select(
			"cp.circle_id",
			"cp.permission_id",
			"p.combined",
			"p.scope",
			"p.action",
			"p.object",
			"cp.filters",
		).
		From(grantsTable + " cp").
		Join("permissions p ON p.id = cp.permission_id").
		Where(squirrel.Eq{"cp.circle_id": circleIDs}).
		OrderBy("cp.circle_id", "cp.permission_id")
}

// GrantsForCircles returns the grants attached to the given circles.
func (r *PermissionRepo) GrantsForCircles(ctx context.Context, circleIDs []int64) ([]permissions.GrantRow, error) {
	if len(circleIDs) == 0 {
		return nil, nil
	}
	sql, args, err := grantsQuery(circleIDs).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	var rows []permissions.GrantRow
	if err := pgxscan.Select(ctx, r.Querier(ctx), &rows, sql, args...); err != nil {
		return nil, fmt.Errorf("load circle grants: %w", err)
	}
	return rows, nil
}

func (r *PermissionRepo) List(ctx context.Context, f filter.List) ([]permissions.Record, int, error) {
	q := postgres.Search(r.SelectAll(), f.Query, "combined", "description")
	return r.SelectPage(ctx, q, f)
}

func (r *PermissionRepo) Create(ctx context.Context, rec *permissions.Record) error {
	values := postgres.Without(postgres.StructToMap(rec), "id", "created_at", "updated_at")
	return r.Insert(ctx, values, "id, created_at, updated_at", &rec.ID, &rec.CreatedAt, &rec.UpdatedAt)
}

func (r *PermissionRepo) Update(ctx context.Context, rec *permissions.Record) error {
	values := postgres.StructToMap(rec, "scope", "action", "object", "combined", "description")
	return r.UpdateByID(ctx, rec.ID, values)
}

// Delete removes the permission and every grant of it.
func (r *PermissionRepo) Delete(ctx context.Context, permissionID int64) error {
	return r.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		if _, err := postgres.Exec(ctx, r.Querier(ctx), postgres.Builder().
			Delete(grantsTable).
			Where(squirrel.Eq{"permission_id": permissionID})); err != nil {
			return fmt.Errorf("delete grants: %w", err)
		}
		n, err := r.DeleteWhere(ctx, squirrel.Eq{"id": permissionID})
		if err != nil {
			return err
		}
		if n == 0 {
			return postgres.MapError(pgx.ErrNoRows, "delete permission", "Permission", permissionID)
		}
		return nil
	})
}

func (r *PermissionRepo) CirclesHolding(ctx context.Context, permissionID int64) ([]int64, error) {
	sql, args, err := postgres.Builder().
		Select("circle_id").
		From(grantsTable).
		Where(squirrel.Eq{"permission_id": permissionID}).
		OrderBy("circle_id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	ids := make([]int64, 0)
	if err := pgxscan.Select(ctx, r.Querier(ctx), &ids, sql, args...); err != nil {
		return nil, fmt.Errorf("load permission circles: %w", err)
	}
	return ids, nil
}

// assignQuery upserts a grant; reassigning replaces the filters.
func assignQuery(circleID, permissionID int64, fields []string) squirrel.InsertBuilder {
	return postgres.Builder().
		Insert(grantsTable).
		Columns("circle_id", "permission_id", "filters", "created_at", "updated_at").
		Values(circleID, permissionID, fields, squirrel.Expr("now()"), squirrel.Expr("now()")).
		Suffix("ON CONFLICT (circle_id, permission_id) DO UPDATE SET filters = EXCLUDED.filters, updated_at = now()")
}

func (r *PermissionRepo) Assign(ctx context.Context, circleID, permissionID int64, fields []string) error {
	_, err := postgres.Exec(ctx, r.Querier(ctx), assignQuery(circleID, permissionID, fields))
	if err != nil {
		return postgres.MapError(err, "assign permission", "Circle", circleID)
	}
	return nil
}

func (r *PermissionRepo) Unassign(ctx context.Context, circleID, permissionID int64) error {
	n, err := postgres.Exec(ctx, r.Querier(ctx), postgres.Builder().
		Delete(grantsTable).
		Where(squirrel.Eq{"circle_id": circleID, "permission_id": permissionID}))
	if err != nil {
		return fmt.Errorf("unassign permission: %w", err)
	}
	if n == 0 {
		return postgres.MapError(pgx.ErrNoRows, "unassign permission", "Grant", fmt.Sprintf("%d/%d", circleID, permissionID))
	}
	return nil
}

// Grant is one row for AssignAll.
type Grant struct {
	CircleID     int64
	PermissionID int64
	Fields       []string
}

// AssignAll bulk-loads grants with COPY. The target pairs must not exist yet.
func (r *PermissionRepo) AssignAll(ctx context.Context, grants []Grant) (int64, error) {
	rows := make([][]any, 0, len(grants))
	for _, g := range grants {
		rows = append(rows, []any{g.CircleID, g.PermissionID, g.Fields})
	}
	n, err := r.txm.CopyFromSlice(ctx, grantsTable, []string{"circle_id", "permission_id", "filters"}, rows)
	if err != nil {
		return 0, postgres.MapError(err, "copy grants", "Grant", nil)
	}
	return n, nil
}
