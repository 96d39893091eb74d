package auth_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"omscore/internal/domain/auth"
	"omscore/internal/infrastructure/storage/postgres"
)

const tokensTable = "access_tokens"

// TokenRepo implements auth.TokenRepository.
type TokenRepo struct {
	txm *postgres.TxManager
}

// NewTokenRepo creates a new token repository.
func NewTokenRepo(txm *postgres.TxManager) *TokenRepo {
	return &TokenRepo{txm: txm}
}

// GetByHash retrieves token by hash.
func (r *TokenRepo) GetByHash(ctx context.Context, tokenHash string) (*auth.AccessToken, error) {
	sql, args, err := postgres.Builder().
		Select("id", "user_id", "token_hash", "expires_at", "created_at").
		From(tokensTable).
		Where(squirrel.Eq{"token_hash": tokenHash}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var token auth.AccessToken
	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), &token, sql, args...); err != nil {
		return nil, postgres.MapError(err, "get access token", "Access token", "")
	}
	return &token, nil
}

// Save saves a token.
func (r *TokenRepo) Save(ctx context.Context, token *auth.AccessToken) error {
	sql, args, err := postgres.Builder().
		Insert(tokensTable).
		Columns("user_id", "token_hash", "expires_at", "created_at").
		Values(token.UserID, token.TokenHash, token.ExpiresAt, token.CreatedAt).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	err = r.txm.GetQuerier(ctx).QueryRow(ctx, sql, args...).Scan(&token.ID)
	return postgres.MapError(err, "save access token", "Access token", token.UserID)
}

// Delete removes a token.
func (r *TokenRepo) Delete(ctx context.Context, tokenID int64) error {
	_, err := postgres.Exec(ctx, r.txm.GetQuerier(ctx), postgres.Builder().
		Delete(tokensTable).
		Where(squirrel.Eq{"id": tokenID}))
	if err != nil {
		return fmt.Errorf("delete access token: %w", err)
	}
	return nil
}

// DeleteExpired removes every token whose expiry has passed.
func (r *TokenRepo) DeleteExpired(ctx context.Context) (int64, error) {
	n, err := postgres.Exec(ctx, r.txm.GetQuerier(ctx), postgres.Builder().
		Delete(tokensTable).
		Where("expires_at < now()"))
	if err != nil {
		return 0, fmt.Errorf("delete expired tokens: %w", err)
	}
	return n, nil
}
