package auth

import (
	"context"
	"strings"
	"sync"
	"time"

	"omscore/internal/core/apperror"
	"omscore/internal/domain/circles"
	"omscore/internal/domain/permissions"
)

type fakeUsers struct {
	mu      sync.Mutex
	users   map[int64]*User
	touched map[int64]time.Time
	err     error
}

func newFakeUsers(users ...*User) *fakeUsers {
	f := &fakeUsers{users: make(map[int64]*User), touched: make(map[int64]time.Time)}
	for _, u := range users {
		f.users[u.ID] = u
	}
	return f
}

func (f *fakeUsers) GetByID(_ context.Context, userID int64) (*User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	u, ok := f.users[userID]
	if !ok {
		return nil, apperror.NewNotFound("User", userID)
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUsers) GetByUsername(_ context.Context, username string) (*User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if strings.EqualFold(u.Username, username) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, apperror.NewNotFound("User", username)
}

func (f *fakeUsers) GetWithMemberships(ctx context.Context, userID int64) (*User, error) {
	return f.GetByID(ctx, userID)
}

func (f *fakeUsers) Create(_ context.Context, user *User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	user.ID = int64(len(f.users) + 1)
	f.users[user.ID] = user
	return nil
}

func (f *fakeUsers) TouchLastActive(_ context.Context, userID int64, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.touched[userID] = at
	return nil
}

func (f *fakeUsers) touchedAt(userID int64) (time.Time, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	at, ok := f.touched[userID]
	return at, ok
}

type fakeTokens struct {
	mu     sync.Mutex
	byHash map[string]*AccessToken
	nextID int64
	err    error
}

func newFakeTokens() *fakeTokens {
	return &fakeTokens{byHash: make(map[string]*AccessToken)}
}

func (f *fakeTokens) GetByHash(_ context.Context, tokenHash string) (*AccessToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	t, ok := f.byHash[tokenHash]
	if !ok {
		return nil, apperror.NewNotFound("Access token", "")
	}
	return t, nil
}

func (f *fakeTokens) Save(_ context.Context, token *AccessToken) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	token.ID = f.nextID
	f.byHash[token.TokenHash] = token
	return nil
}

func (f *fakeTokens) Delete(_ context.Context, tokenID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for hash, t := range f.byHash {
		if t.ID == tokenID {
			delete(f.byHash, hash)
		}
	}
	return nil
}

// put stores a token for raw and returns it.
func (f *fakeTokens) put(raw string, userID int64, expiresAt time.Time) *AccessToken {
	t := &AccessToken{UserID: userID, TokenHash: HashToken(raw), ExpiresAt: expiresAt}
	_ = f.Save(context.Background(), t)
	return t
}

type hierarchyFunc func(ctx context.Context) (*circles.Index, error)

func (f hierarchyFunc) Snapshot(ctx context.Context) (*circles.Index, error) { return f(ctx) }

func staticHierarchy(records ...circles.Circle) hierarchyFunc {
	return func(ctx context.Context) (*circles.Index, error) {
		return circles.NewIndex(ctx, records)
	}
}

type grantRows []permissions.GrantRow

func (g grantRows) GrantsForCircles(_ context.Context, circleIDs []int64) ([]permissions.GrantRow, error) {
	wanted := make(map[int64]bool, len(circleIDs))
	for _, id := range circleIDs {
		wanted[id] = true
	}
	var out []permissions.GrantRow
	for _, r := range g {
		if wanted[r.CircleID] {
			out = append(out, r)
		}
	}
	return out, nil
}

func ptr(v int64) *int64 { return &v }
