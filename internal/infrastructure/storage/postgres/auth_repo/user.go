// Package auth_repo provides PostgreSQL implementations for auth repositories.
package auth_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"omscore/internal/domain/auth"
	"omscore/internal/infrastructure/storage/postgres"
)

const usersTable = "users"

var userColumns = postgres.ExtractDBColumns[auth.User]()

// UserRepo implements auth.UserRepository.
type UserRepo struct {
	txm *postgres.TxManager
}

// NewUserRepo creates a new user repository.
func NewUserRepo(txm *postgres.TxManager) *UserRepo {
	return &UserRepo{txm: txm}
}

func (r *UserRepo) selectUsers() squirrel.SelectBuilder {
	return postgres.Builder().Select(userColumns...).From(usersTable)
}

func (r *UserRepo) get(ctx context.Context, q squirrel.SelectBuilder, key any) (*auth.User, error) {
	sql, args, err := q.Limit(1).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	var user auth.User
	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), &user, sql, args...); err != nil {
		return nil, postgres.MapError(err, "get user", "User", key)
	}
	return &user, nil
}

// GetByID retrieves user by ID.
func (r *UserRepo) GetByID(ctx context.Context, userID int64) (*auth.User, error) {
	return r.get(ctx, r.selectUsers().Where(squirrel.Eq{"id": userID}), userID)
}

// GetByUsername retrieves user by username, ignoring case.
func (r *UserRepo) GetByUsername(ctx context.Context, username string) (*auth.User, error) {
	return r.get(ctx, r.selectUsers().Where(squirrel.Expr("lower(username) = lower(?)", username)), username)
}

// GetWithMemberships loads the user, their circle memberships and their body
// memberships in a single round trip.
func (r *UserRepo) GetWithMemberships(ctx context.Context, userID int64) (*auth.User, error) {
	queries, err := membershipQueries(r.selectUsers(), userID)
	if err != nil {
		return nil, err
	}

	results := postgres.QueueAll(ctx, r.txm.GetQuerier(ctx), queries...)
	defer results.Close()

	var user auth.User
	rows, err := results.Query()
	if err != nil {
		return nil, fmt.Errorf("query user: %w", err)
	}
	if err := pgxscan.ScanOne(&user, rows); err != nil {
		return nil, postgres.MapError(err, "scan user", "User", userID)
	}

	rows, err = results.Query()
	if err != nil {
		return nil, fmt.Errorf("query circle memberships: %w", err)
	}
	if err := pgxscan.ScanAll(&user.CircleIDs, rows); err != nil {
		return nil, fmt.Errorf("scan circle memberships: %w", err)
	}

	rows, err = results.Query()
	if err != nil {
		return nil, fmt.Errorf("query body memberships: %w", err)
	}
	if err := pgxscan.ScanAll(&user.Bodies, rows); err != nil {
		return nil, fmt.Errorf("scan body memberships: %w", err)
	}

	return &user, nil
}

func membershipQueries(selectUser squirrel.SelectBuilder, userID int64) ([]postgres.BatchQuery, error) {
	builders := []squirrel.Sqlizer{
		selectUser.Where(squirrel.Eq{"id": userID}).Limit(1),
		postgres.Builder().
			Select("circle_id").
			From("circle_memberships").
			Where(squirrel.Eq{"user_id": userID}).
			OrderBy("circle_id"),
		postgres.Builder().
			Select("bm.body_id", "b.shadow_circle_id").
			From("body_memberships bm").
			Join("bodies b ON b.id = bm.body_id").
			Where(squirrel.Eq{"bm.user_id": userID}).
			OrderBy("bm.body_id"),
	}

	queries := make([]postgres.BatchQuery, 0, len(builders))
	for _, b := range builders {
		sql, args, err := b.ToSql()
		if err != nil {
			return nil, fmt.Errorf("build membership query: %w", err)
		}
		queries = append(queries, postgres.BatchQuery{SQL: sql, Args: args})
	}
	return queries, nil
}

// Create creates a new user and fills its ID and timestamps.
func (r *UserRepo) Create(ctx context.Context, user *auth.User) error {
	data := postgres.Without(postgres.StructToMap(user), "id", "created_at", "updated_at", "last_active")

	sql, args, err := postgres.Builder().
		Insert(usersTable).
		SetMap(data).
		Suffix("RETURNING id, created_at, updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	err = r.txm.GetQuerier(ctx).QueryRow(ctx, sql, args...).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	return postgres.MapError(err, "insert user", "User", user.Username)
}

// TouchLastActive records the user's latest activity.
func (r *UserRepo) TouchLastActive(ctx context.Context, userID int64, at time.Time) error {
	_, err := postgres.Exec(ctx, r.txm.GetQuerier(ctx), postgres.Builder().
		Update(usersTable).
		Set("last_active", at).
		Where(squirrel.Eq{"id": userID}))
	if err != nil {
		return fmt.Errorf("touch last_active: %w", err)
	}
	return nil
}
