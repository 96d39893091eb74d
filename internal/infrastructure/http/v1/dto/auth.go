package dto

import (
	"time"

	"omscore/internal/domain/auth"
	"omscore/internal/domain/permissions"
)

// LoginRequest for user login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// ToCredentials converts to domain credentials.
func (r *LoginRequest) ToCredentials() auth.Credentials {
	return auth.Credentials{Username: r.Username, Password: r.Password}
}

// LoginResponse carries the raw access token. It is shown once.
type LoginResponse struct {
	AccessToken string        `json:"access_token"`
	ExpiresAt   time.Time     `json:"expires_at"`
	User        *UserResponse `json:"user"`
}

// FromLoginResult creates the login response.
func FromLoginResult(r *auth.LoginResult) *LoginResponse {
	return &LoginResponse{
		AccessToken: r.AccessToken,
		ExpiresAt:   r.ExpiresAt,
		User:        FromUser(r.User),
	}
}

// UserResponse represents user in API response.
type UserResponse struct {
	ID            int64      `json:"id"`
	Username      string     `json:"username"`
	Email         string     `json:"email"`
	FirstName     string     `json:"first_name"`
	LastName      string     `json:"last_name"`
	FullName      string     `json:"full_name"`
	PrimaryBodyID *int64     `json:"primary_body_id"`
	LastActive    *time.Time `json:"last_active,omitempty"`
	CircleIDs     []int64    `json:"circles"`
	BodyIDs       []int64    `json:"bodies"`
	CreatedAt     time.Time  `json:"created_at"`
}

// FromUser creates response from domain user.
func FromUser(u *auth.User) *UserResponse {
	if u == nil {
		return nil
	}
	bodyIDs := make([]int64, 0, len(u.Bodies))
	for _, b := range u.Bodies {
		bodyIDs = append(bodyIDs, b.BodyID)
	}
	circleIDs := u.CircleIDs
	if circleIDs == nil {
		circleIDs = []int64{}
	}
	return &UserResponse{
		ID:            u.ID,
		Username:      u.Username,
		Email:         u.Email,
		FirstName:     u.FirstName,
		LastName:      u.LastName,
		FullName:      u.FullName(),
		PrimaryBodyID: u.PrimaryBodyID,
		LastActive:    u.LastActive,
		CircleIDs:     circleIDs,
		BodyIDs:       bodyIDs,
		CreatedAt:     u.CreatedAt,
	}
}

// GrantResponse is one effective grant of the caller.
type GrantResponse struct {
	Combined string   `json:"combined"`
	Scope    string   `json:"scope"`
	Action   string   `json:"action"`
	Object   string   `json:"object"`
	Filters  []string `json:"filters"`
	BodyID   *int64   `json:"body_id,omitempty"`
	CircleID int64    `json:"circle_id"`
}

// FromGrants converts effective grants.
func FromGrants(grants []permissions.Grant) []GrantResponse {
	out := make([]GrantResponse, 0, len(grants))
	for _, g := range grants {
		filters := g.Fields
		if filters == nil {
			filters = []string{}
		}
		out = append(out, GrantResponse{
			Combined: g.Combined(),
			Scope:    string(g.Scope),
			Action:   g.Action,
			Object:   g.Object,
			Filters:  filters,
			BodyID:   g.BodyID,
			CircleID: g.CircleID,
		})
	}
	return out
}
