package org_repo

import (
	"context"

	"github.com/Masterminds/squirrel"

	"omscore/internal/domain/bodies"
	"omscore/internal/domain/filter"
	"omscore/internal/infrastructure/storage/postgres"
)

// MembershipRepo implements bodies.MembershipRepository.
type MembershipRepo struct {
	postgres.Table[bodies.Membership]
}

// NewMembershipRepo creates a new body membership repository.
func NewMembershipRepo(txm *postgres.TxManager) *MembershipRepo {
	return &MembershipRepo{Table: postgres.NewTable[bodies.Membership](txm, "body_memberships", "Membership")}
}

func (r *MembershipRepo) ListByBody(ctx context.Context, bodyID int64, f filter.List) ([]bodies.Membership, int, error) {
	return r.SelectPage(ctx, r.SelectAll().Where(squirrel.Eq{"body_id": bodyID}), f)
}

func (r *MembershipRepo) Create(ctx context.Context, m *bodies.Membership) error {
	values := map[string]any{"user_id": m.UserID, "body_id": m.BodyID, "comment": m.Comment}
	return r.Insert(ctx, values, "id, created_at, updated_at", &m.ID, &m.CreatedAt, &m.UpdatedAt)
}

func (r *MembershipRepo) DeleteByBody(ctx context.Context, bodyID int64) (int64, error) {
	return r.DeleteWhere(ctx, squirrel.Eq{"body_id": bodyID})
}

// PaymentRepo implements bodies.PaymentRepository.
type PaymentRepo struct {
	postgres.Table[bodies.Payment]
}

// NewPaymentRepo creates a new payment repository.
func NewPaymentRepo(txm *postgres.TxManager) *PaymentRepo {
	return &PaymentRepo{Table: postgres.NewTable[bodies.Payment](txm, "payments", "Payment")}
}

func (r *PaymentRepo) ListByBody(ctx context.Context, bodyID int64, f filter.List) ([]bodies.Payment, int, error) {
	q := postgres.Search(r.SelectAll(), f.Query, "invoice_name", "invoice_address")
	return r.SelectPage(ctx, q.Where(squirrel.Eq{"body_id": bodyID}), f)
}

func (r *PaymentRepo) DeleteByBody(ctx context.Context, bodyID int64) (int64, error) {
	return r.DeleteWhere(ctx, squirrel.Eq{"body_id": bodyID})
}

// JoinRequestRepo implements bodies.JoinRequestRepository.
type JoinRequestRepo struct {
	postgres.Table[joinRequest]
}

type joinRequest struct {
	ID     int64  `db:"id"`
	UserID int64  `db:"user_id"`
	BodyID int64  `db:"body_id"`
	Status string `db:"status"`
}

// NewJoinRequestRepo creates a new join request repository.
func NewJoinRequestRepo(txm *postgres.TxManager) *JoinRequestRepo {
	return &JoinRequestRepo{Table: postgres.NewTable[joinRequest](txm, "join_requests", "Join request")}
}

func (r *JoinRequestRepo) DeleteByBody(ctx context.Context, bodyID int64) (int64, error) {
	return r.DeleteWhere(ctx, squirrel.Eq{"body_id": bodyID})
}
