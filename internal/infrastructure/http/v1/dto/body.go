package dto

import (
	"time"

	"omscore/internal/domain/bodies"
	"omscore/internal/domain/circles"
)

// CreateBodyRequest for creating bodies.
type CreateBodyRequest struct {
	Code        string     `json:"code" binding:"required"`
	Name        string     `json:"name" binding:"required"`
	Description string     `json:"description"`
	Email       string     `json:"email" binding:"omitempty,email"`
	Phone       string     `json:"phone"`
	Address     string     `json:"address"`
	Type        string     `json:"type" binding:"required"`
	FeeCurrency string     `json:"fee_currency"`
	PaysFees    bool       `json:"pays_fees"`
	FoundedAt   *time.Time `json:"founded_at"`
}

// ToBody converts to domain body.
func (r *CreateBodyRequest) ToBody() *bodies.Body {
	return &bodies.Body{
		Code:        r.Code,
		Name:        r.Name,
		Description: r.Description,
		Email:       r.Email,
		Phone:       r.Phone,
		Address:     r.Address,
		Type:        r.Type,
		FeeCurrency: r.FeeCurrency,
		PaysFees:    r.PaysFees,
		FoundedAt:   r.FoundedAt,
	}
}

// SetStatusRequest changes a body's lifecycle state.
type SetStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=active deleted"`
}

// CreateMemberRequest creates an account and adds it to the body.
type CreateMemberRequest struct {
	Username  string `json:"username" binding:"required"`
	Email     string `json:"email" binding:"required,email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// ToNewMember converts to the domain request.
func (r *CreateMemberRequest) ToNewMember() bodies.NewMember {
	return bodies.NewMember{
		Username:  r.Username,
		Email:     r.Email,
		FirstName: r.FirstName,
		LastName:  r.LastName,
	}
}

// CreateCircleRequest for creating circles.
type CreateCircleRequest struct {
	Name           string `json:"name" binding:"required"`
	Description    string `json:"description"`
	Joinable       bool   `json:"joinable"`
	ParentCircleID *int64 `json:"parent_circle_id" binding:"omitempty,gt=0"`
}

// ToCircle converts to domain circle.
func (r *CreateCircleRequest) ToCircle() *circles.Circle {
	return &circles.Circle{
		Name:           r.Name,
		Description:    r.Description,
		Joinable:       r.Joinable,
		ParentCircleID: r.ParentCircleID,
	}
}
