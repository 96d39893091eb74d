// Package bodies manages bodies (local organisations), their members and
// the records bound to them.
package bodies

import (
	"net/mail"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"omscore/internal/core/apperror"
)

// Status is the lifecycle state of a body.
type Status string

const (
	StatusActive  Status = "active"
	StatusDeleted Status = "deleted"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	return s == StatusActive || s == StatusDeleted
}

// Body is a local organisation. Every body owns a shadow circle whose
// members are the body's members.
type Body struct {
	ID             int64      `db:"id" json:"id"`
	Code           string     `db:"code" json:"code"`
	Name           string     `db:"name" json:"name"`
	Description    string     `db:"description" json:"description"`
	Email          string     `db:"email" json:"email"`
	Phone          string     `db:"phone" json:"phone"`
	Address        string     `db:"address" json:"address"`
	Type           string     `db:"type" json:"type"`
	FeeCurrency    string     `db:"fee_currency" json:"fee_currency"`
	PaysFees       bool       `db:"pays_fees" json:"pays_fees"`
	FoundedAt      *time.Time `db:"founded_at" json:"founded_at"`
	Status         Status     `db:"status" json:"status"`
	ShadowCircleID *int64     `db:"shadow_circle_id" json:"shadow_circle_id"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updated_at"`
}

// UpdatableFields are the columns a body update may touch. Permission field
// filters narrow this further.
var UpdatableFields = []string{
	"code", "name", "description", "email", "phone",
	"address", "type", "fee_currency", "pays_fees", "founded_at",
}

// SortableFields are accepted by the list endpoint's sort parameter.
var SortableFields = []string{"id", "code", "name", "type", "status", "created_at"}

var bodyTypes = map[string]bool{
	"antenna":         true,
	"contact antenna": true,
	"contact":         true,
	"interest group":  true,
	"working group":   true,
	"commission":      true,
	"committee":       true,
	"project":         true,
	"partner":         true,
	"other":           true,
}

// Validate checks the body and returns a 422 listing every bad field.
func (b *Body) Validate() error {
	b.Code = strings.ToUpper(strings.TrimSpace(b.Code))
	b.Name = strings.TrimSpace(b.Name)
	b.FeeCurrency = strings.ToUpper(strings.TrimSpace(b.FeeCurrency))

	errs := make(map[string][]string)
	if b.Code == "" {
		errs["code"] = append(errs["code"], "Code should be set.")
	}
	if b.Name == "" {
		errs["name"] = append(errs["name"], "Name should be set.")
	}
	if b.Email != "" {
		if _, err := mail.ParseAddress(b.Email); err != nil {
			errs["email"] = append(errs["email"], "Email is not valid.")
		}
	}
	if b.Type == "" {
		errs["type"] = append(errs["type"], "Type should be set.")
	} else if !bodyTypes[b.Type] {
		errs["type"] = append(errs["type"], "Type is not valid.")
	}
	if b.FeeCurrency != "" && len(b.FeeCurrency) != 3 {
		errs["fee_currency"] = append(errs["fee_currency"], "Fee currency should be a 3-letter code.")
	}
	if b.Status == "" {
		b.Status = StatusActive
	}
	if !b.Status.Valid() {
		errs["status"] = append(errs["status"], "Status is not valid.")
	}

	if len(errs) > 0 {
		return apperror.NewUnprocessable("Validation error.").WithDetail("errors", errs)
	}
	return nil
}

// Membership links a user to a body.
type Membership struct {
	ID        int64     `db:"id" json:"id"`
	UserID    int64     `db:"user_id" json:"user_id"`
	BodyID    int64     `db:"body_id" json:"body_id"`
	Comment   string    `db:"comment" json:"comment"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// MembershipSortableFields are accepted by the members listing.
var MembershipSortableFields = []string{"id", "user_id", "created_at"}

// Payment is a membership fee paid by a user to a body.
type Payment struct {
	ID             int64           `db:"id" json:"id"`
	UserID         int64           `db:"user_id" json:"user_id"`
	BodyID         int64           `db:"body_id" json:"body_id"`
	Amount         decimal.Decimal `db:"amount" json:"amount"`
	Currency       string          `db:"currency" json:"currency"`
	StartsAt       time.Time       `db:"starts" json:"starts"`
	ExpiresAt      time.Time       `db:"expires" json:"expires"`
	InvoiceName    string          `db:"invoice_name" json:"invoice_name"`
	InvoiceAddress string          `db:"invoice_address" json:"invoice_address"`
	CreatedAt      time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time       `db:"updated_at" json:"updated_at"`
}

// PaymentSortableFields are accepted by the payments listing.
var PaymentSortableFields = []string{"id", "user_id", "amount", "starts", "expires", "created_at"}

// NewMember is the payload of the add-member operation.
type NewMember struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}
