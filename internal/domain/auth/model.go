// Package auth provides authentication and the per-request authorization
// pipeline.
package auth

import (
	"strings"
	"time"

	"omscore/internal/core/apperror"
	"omscore/internal/domain/permissions"
)

// User represents a system user.
type User struct {
	ID              int64      `db:"id" json:"id"`
	Username        string     `db:"username" json:"username"`
	Email           string     `db:"email" json:"email"`
	PasswordHash    string     `db:"password_hash" json:"-"`
	FirstName       string     `db:"first_name" json:"first_name"`
	LastName        string     `db:"last_name" json:"last_name"`
	PrimaryBodyID   *int64     `db:"primary_body_id" json:"primary_body_id"`
	LastActive      *time.Time `db:"last_active" json:"last_active,omitempty"`
	MailConfirmedAt *time.Time `db:"mail_confirmed_at" json:"mail_confirmed_at,omitempty"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updated_at"`

	// Loaded relations
	CircleIDs []int64          `db:"-" json:"circles,omitempty"`
	Bodies    []BodyMembership `db:"-" json:"bodies,omitempty"`
}

// BodyMembership is a user's membership in a body, carrying the body's
// shadow circle when it has one.
type BodyMembership struct {
	BodyID         int64  `db:"body_id" json:"body_id"`
	ShadowCircleID *int64 `db:"shadow_circle_id" json:"shadow_circle_id,omitempty"`
}

// Validate checks the fields required to persist a user.
func (u *User) Validate() error {
	u.Username = strings.TrimSpace(u.Username)
	u.Email = strings.TrimSpace(u.Email)
	if u.Username == "" {
		return apperror.NewValidation("username is required").WithDetail("field", "username")
	}
	if strings.ContainsAny(u.Username, " \t\n") {
		return apperror.NewValidation("username must not contain whitespace").WithDetail("field", "username")
	}
	if !strings.Contains(u.Email, "@") {
		return apperror.NewValidation("email is invalid").WithDetail("field", "email")
	}
	return nil
}

// FullName returns user's full name.
func (u *User) FullName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return u.Username
	}
	return name
}

// Subject returns the membership seed the permission manager is built from.
func (u *User) Subject() permissions.Subject {
	s := permissions.Subject{
		UserID:    u.ID,
		CircleIDs: append([]int64(nil), u.CircleIDs...),
	}
	for _, b := range u.Bodies {
		if b.ShadowCircleID != nil {
			s.ShadowCircleIDs = append(s.ShadowCircleIDs, *b.ShadowCircleID)
		}
	}
	return s
}

// AccessToken is a stored login session. Only the sha256 of the raw value is
// persisted.
type AccessToken struct {
	ID        int64     `db:"id"`
	UserID    int64     `db:"user_id"`
	TokenHash string    `db:"token_hash"`
	ExpiresAt time.Time `db:"expires_at"`
	CreatedAt time.Time `db:"created_at"`
}

// Expired reports whether the token's expiry lies strictly before now.
func (t *AccessToken) Expired(now time.Time) bool {
	return t.ExpiresAt.Before(now)
}

// Credentials for login.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResult is returned by a successful login.
type LoginResult struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
	User        *User     `json:"user"`
}
