package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"omscore/internal/core/apperror"
	"omscore/internal/domain/circles"
	"omscore/internal/domain/permissions"
	"omscore/pkg/logger"
)

const touchTimeout = 5 * time.Second

// Outcome is the result of one pass of the authorization pipeline.
type Outcome string

const (
	OutcomeAnonymous     Outcome = "anonymous"
	OutcomeUnknown       Outcome = "unknown"
	OutcomeExpired       Outcome = "expired"
	OutcomeAuthenticated Outcome = "authenticated"
	OutcomeError         Outcome = "error"
)

// Session is what an authenticated request carries.
type Session struct {
	User        *User
	Token       *AccessToken
	Permissions *permissions.Manager
}

// Authorizer resolves a raw access token into a session with an effective
// permission set. It holds no per-request state and is safe for concurrent
// use.
type Authorizer struct {
	users       UserRepository
	tokens      TokenRepository
	hierarchy   HierarchySource
	grants      permissions.GrantSource
	loadTimeout time.Duration
	now         func() time.Time
	background  func(func())
}

// NewAuthorizer creates the authorization pipeline.
func NewAuthorizer(
	users UserRepository,
	tokens TokenRepository,
	hierarchy HierarchySource,
	grants permissions.GrantSource,
	loadTimeout time.Duration,
) *Authorizer {
	return &Authorizer{
		users:       users,
		tokens:      tokens,
		hierarchy:   hierarchy,
		grants:      grants,
		loadTimeout: loadTimeout,
		now:         time.Now,
		background:  func(fn func()) { go fn() },
	}
}

// WithClock replaces the time source. Used by tests.
func (a *Authorizer) WithClock(now func() time.Time) *Authorizer {
	a.now = now
	return a
}

// Authorize runs the pipeline for one request. Absent, unknown and expired
// tokens yield a nil session and no error; the caller proceeds anonymously.
// A non-nil error is always an *apperror.AppError and fails the request.
func (a *Authorizer) Authorize(ctx context.Context, rawToken string) (*Session, Outcome, error) {
	if rawToken == "" {
		return nil, OutcomeAnonymous, nil
	}

	loadCtx, cancel := context.WithTimeout(ctx, a.loadTimeout)
	defer cancel()

	token, err := a.tokens.GetByHash(loadCtx, HashToken(rawToken))
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil, OutcomeUnknown, nil
		}
		return nil, OutcomeError, loadFailure("load access token", err)
	}

	if token.Expired(a.now()) {
		logger.Debug(ctx, "access token expired", "token_id", token.ID, "user_id", token.UserID, "expired_at", token.ExpiresAt)
		return nil, OutcomeExpired, nil
	}

	user, err := a.users.GetWithMemberships(loadCtx, token.UserID)
	if err != nil {
		if apperror.IsNotFound(err) {
			logger.Warn(ctx, "access token references missing user", "token_id", token.ID, "user_id", token.UserID)
			return nil, OutcomeUnknown, nil
		}
		return nil, OutcomeError, loadFailure("load user", err)
	}

	index, err := a.hierarchy.Snapshot(loadCtx)
	if err != nil {
		if errors.Is(err, circles.ErrHierarchyCorruption) {
			logger.Error(ctx, "circle hierarchy is corrupted", "error", err)
			return nil, OutcomeError, apperror.NewHierarchyCorruption(err)
		}
		return nil, OutcomeError, loadFailure("load circles", err)
	}

	manager, err := permissions.Compute(loadCtx, user.Subject(), index, a.grants)
	if err != nil {
		return nil, OutcomeError, loadFailure("compute permissions", err)
	}

	a.touch(ctx, user.ID)

	return &Session{User: user, Token: token, Permissions: manager}, OutcomeAuthenticated, nil
}

// touch records last activity without holding up the request. Concurrent
// updates for the same user are last-write-wins.
func (a *Authorizer) touch(ctx context.Context, userID int64) {
	ctx = context.WithoutCancel(ctx)
	at := a.now()
	a.background(func() {
		ctx, cancel := context.WithTimeout(ctx, touchTimeout)
		defer cancel()
		if err := a.users.TouchLastActive(ctx, userID, at); err != nil {
			logger.Warn(ctx, "failed to update last_active", "user_id", userID, "error", err)
		}
	})
}

func loadFailure(op string, err error) error {
	if appErr, ok := apperror.AsAppError(err); ok && appErr.HTTPStatus >= 500 {
		return appErr
	}
	return apperror.NewInternal(fmt.Errorf("%s: %w", op, err))
}
