package bodies

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"omscore/internal/core/apperror"
	"omscore/internal/core/tx"
	"omscore/internal/domain/audit"
	"omscore/internal/domain/auth"
	"omscore/internal/domain/circles"
	"omscore/internal/domain/filter"
	"omscore/pkg/logger"
)

// Deps groups the stores the body service writes through.
type Deps struct {
	Bodies       Repository
	Memberships  MembershipRepository
	Payments     PaymentRepository
	JoinRequests JoinRequestRepository
	Circles      CircleStore
	Users        UserCreator
	TxManager    tx.Manager
	Audit        audit.Recorder
}

// Service implements body operations.
type Service struct {
	bodies       Repository
	memberships  MembershipRepository
	payments     PaymentRepository
	joinRequests JoinRequestRepository
	circles      CircleStore
	users        UserCreator
	txManager    tx.Manager
	audit        audit.Recorder
	now          func() time.Time
}

// NewService creates a new body service.
func NewService(d Deps) *Service {
	txm := d.TxManager
	if txm == nil {
		txm = tx.Passthrough
	}
	return &Service{
		bodies:       d.Bodies,
		memberships:  d.Memberships,
		payments:     d.Payments,
		joinRequests: d.JoinRequests,
		circles:      d.Circles,
		users:        d.Users,
		txManager:    txm,
		audit:        d.Audit,
		now:          time.Now,
	}
}

func (s *Service) List(ctx context.Context, f filter.List, includeDeleted bool) ([]Body, int, error) {
	return s.bodies.List(ctx, f, includeDeleted)
}

func (s *Service) GetByID(ctx context.Context, bodyID int64) (*Body, error) {
	return s.bodies.GetByID(ctx, bodyID)
}

func (s *Service) GetByCode(ctx context.Context, code string) (*Body, error) {
	return s.bodies.GetByCode(ctx, code)
}

// Create stores a new body together with its shadow circle.
func (s *Service) Create(ctx context.Context, body *Body) error {
	body.ID = 0
	body.Status = StatusActive
	body.ShadowCircleID = nil
	if err := body.Validate(); err != nil {
		return err
	}

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.bodies.Create(ctx, body); err != nil {
			return err
		}

		shadow := &circles.Circle{
			Name:        body.Name + " members",
			Description: "Members of " + body.Name,
			BodyID:      &body.ID,
		}
		if err := s.circles.Create(ctx, shadow); err != nil {
			return fmt.Errorf("create shadow circle: %w", err)
		}
		if err := s.bodies.SetShadowCircle(ctx, body.ID, shadow.ID); err != nil {
			return fmt.Errorf("set shadow circle: %w", err)
		}
		body.ShadowCircleID = &shadow.ID

		return audit.Record(ctx, s.audit, audit.Entry{
			EntityType: "body",
			EntityID:   body.ID,
			Action:     audit.ActionCreate,
			Changes:    map[string]any{"code": body.Code, "name": body.Name},
		})
	})
	if err != nil {
		return err
	}

	logger.Info(ctx, "body created", "body_id", body.ID, "code", body.Code)
	return nil
}

// Update applies payload to body. Keys outside UpdatableFields are ignored;
// callers narrow payload to the permitted fields first.
func (s *Service) Update(ctx context.Context, body *Body, payload map[string]any) (*Body, error) {
	patch := make(map[string]any, len(payload))
	columns := make([]string, 0, len(payload))
	for k, v := range payload {
		if slices.Contains(UpdatableFields, k) {
			patch[k] = v
			columns = append(columns, k)
		}
	}
	if len(columns) == 0 {
		return body, nil
	}
	slices.Sort(columns)

	updated := *body
	raw, err := json.Marshal(patch)
	if err != nil {
		return nil, apperror.NewInvalidJSON(err)
	}
	if err := json.Unmarshal(raw, &updated); err != nil {
		return nil, apperror.NewUnprocessable("Validation error.").
			WithDetail("errors", map[string][]string{"body": {err.Error()}})
	}
	if err := updated.Validate(); err != nil {
		return nil, err
	}

	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.bodies.Update(ctx, &updated, columns); err != nil {
			return err
		}
		return audit.Record(ctx, s.audit, audit.Entry{
			EntityType: "body",
			EntityID:   body.ID,
			Action:     audit.ActionUpdate,
			Changes:    audit.Diff(fieldValues(body, columns), fieldValues(&updated, columns)),
		})
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "body updated", "body_id", body.ID, "fields", columns)
	return &updated, nil
}

// SetStatus changes the body's status. Moving to deleted removes the body's
// join requests, memberships, circles and payments in the same transaction.
func (s *Service) SetStatus(ctx context.Context, body *Body, status Status) (*Body, error) {
	if !status.Valid() {
		return nil, apperror.NewUnprocessable("Validation error.").
			WithDetail("errors", map[string][]string{"status": {"Status is not valid."}})
	}

	updated := *body
	updated.Status = status

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.bodies.SetStatus(ctx, body.ID, status); err != nil {
			return err
		}
		err := audit.Record(ctx, s.audit, audit.Entry{
			EntityType: "body",
			EntityID:   body.ID,
			Action:     audit.ActionStatus,
			Changes:    map[string]any{"status": map[string]any{"old": body.Status, "new": status}},
		})
		if err != nil {
			return err
		}
		if status != StatusDeleted {
			return nil
		}

		steps := []struct {
			name string
			fn   func(context.Context, int64) (int64, error)
		}{
			{"join_requests", s.joinRequests.DeleteByBody},
			{"memberships", s.memberships.DeleteByBody},
			{"circles", s.circles.DeleteByBody},
			{"payments", s.payments.DeleteByBody},
		}
		for _, step := range steps {
			n, err := step.fn(ctx, body.ID)
			if err != nil {
				return fmt.Errorf("delete body %s: %w", step.name, err)
			}
			logger.Debug(ctx, "body cascade", "body_id", body.ID, "table", step.name, "deleted", n)
		}
		updated.ShadowCircleID = nil
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "body status changed", "body_id", body.ID, "status", status)
	return &updated, nil
}

// CreateMember creates a confirmed account with a random password and makes
// it a member of the body.
func (s *Service) CreateMember(ctx context.Context, body *Body, member NewMember) (*Membership, error) {
	now := s.now()
	user := &auth.User{
		Username:        member.Username,
		Email:           member.Email,
		FirstName:       member.FirstName,
		LastName:        member.LastName,
		MailConfirmedAt: &now,
	}
	if err := user.Validate(); err != nil {
		return nil, err
	}

	hash, err := auth.RandomPasswordHash()
	if err != nil {
		return nil, apperror.NewInternal(err)
	}
	user.PasswordHash = hash

	membership := &Membership{BodyID: body.ID}
	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.users.Create(ctx, user); err != nil {
			return err
		}
		membership.UserID = user.ID
		return s.memberships.Create(ctx, membership)
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "body member created", "body_id", body.ID, "user_id", user.ID)
	return membership, nil
}

func (s *Service) ListMembers(ctx context.Context, body *Body, f filter.List) ([]Membership, int, error) {
	return s.memberships.ListByBody(ctx, body.ID, f)
}

// CreateBoundCircle creates a circle bound to the body.
func (s *Service) CreateBoundCircle(ctx context.Context, body *Body, circle *circles.Circle) error {
	circle.ID = 0
	circle.BodyID = &body.ID
	if err := circle.Validate(); err != nil {
		return err
	}
	return s.circles.Create(ctx, circle)
}

func (s *Service) ListPayments(ctx context.Context, body *Body, f filter.List) ([]Payment, int, error) {
	return s.payments.ListByBody(ctx, body.ID, f)
}

// fieldValues returns the JSON representation of the given body fields.
func fieldValues(b *Body, fields []string) map[string]any {
	raw, err := json.Marshal(b)
	if err != nil {
		return nil
	}
	var all map[string]any
	if err := json.Unmarshal(raw, &all); err != nil {
		return nil
	}
	out := make(map[string]any, len(fields))
	for _, f := range fields {
		out[f] = all[f]
	}
	return out
}
