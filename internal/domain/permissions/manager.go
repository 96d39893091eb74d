package permissions

import (
	"context"
	"fmt"
	"sort"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"omscore/internal/domain/circles"
	"omscore/pkg/logger"
)

var tracer = otel.Tracer("omscore/permissions")

// Subject is the membership seed of an effective permission set.
type Subject struct {
	UserID int64

	// CircleIDs are explicit circle memberships.
	CircleIDs []int64

	// ShadowCircleIDs are the shadow circles of the bodies the user belongs to.
	ShadowCircleIDs []int64
}

// HeldCircles returns the deduplicated union of direct and shadow circles.
func (s Subject) HeldCircles() []int64 {
	seen := make(map[int64]struct{}, len(s.CircleIDs)+len(s.ShadowCircleIDs))
	out := make([]int64, 0, len(s.CircleIDs)+len(s.ShadowCircleIDs))
	for _, group := range [][]int64{s.CircleIDs, s.ShadowCircleIDs} {
		for _, id := range group {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// GrantSource loads the raw grants attached to a set of circles.
type GrantSource interface {
	GrantsForCircles(ctx context.Context, circleIDs []int64) ([]GrantRow, error)
}

// Manager is the effective permission set of one request. It is computed once
// and never mutated afterwards. A nil *Manager denies everything.
type Manager struct {
	userID        int64
	authenticated bool
	grants        []Grant
	byKey         map[string][]int
}

// Anonymous returns a manager with an empty permission set.
func Anonymous() *Manager {
	return &Manager{}
}

// Compute loads the grants reachable from the subject's circles and builds
// the manager. Only grants on held circles and their ancestors are fetched.
func Compute(ctx context.Context, subject Subject, index *circles.Index, source GrantSource) (*Manager, error) {
	ctx, span := tracer.Start(ctx, "permissions.compute")
	defer span.End()

	held := subject.HeldCircles()
	reachable := index.Closure(held)
	span.SetAttributes(
		attribute.Int64("user.id", subject.UserID),
		attribute.Int("circles.held", len(held)),
		attribute.Int("circles.reachable", len(reachable)),
	)

	var rows []GrantRow
	if len(reachable) > 0 {
		var err error
		rows, err = source.GrantsForCircles(ctx, reachable)
		if err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("load circle grants: %w", err)
		}
	}

	m := NewManager(ctx, subject, index, LoadCatalog(ctx, rows))
	span.SetAttributes(attribute.Int("grants.effective", len(m.grants)))
	return m, nil
}

// NewManager folds the catalog over the subject's held circles and their
// ancestor chains. Grants flow down to members of descendant circles and
// never up to members of ancestors.
func NewManager(ctx context.Context, subject Subject, index *circles.Index, catalog Catalog) *Manager {
	m := &Manager{
		userID:        subject.UserID,
		authenticated: true,
		byKey:         make(map[string][]int),
	}
	seen := make(map[string]struct{})

	for _, held := range subject.HeldCircles() {
		chain := index.Ancestors(held)
		if chain == nil {
			logger.Warn(ctx, "membership references unknown circle", "user_id", subject.UserID, "circle_id", held)
			continue
		}
		heldBody, heldBound := index.BodyID(held)

		for _, circleID := range chain {
			for _, g := range catalog.For(circleID) {
				g.CircleID = circleID
				g.BodyID = nil
				if g.Scope == ScopeLocal {
					if body, ok := index.BodyID(circleID); ok {
						g.BodyID = &body
					} else if heldBound {
						body := heldBody
						g.BodyID = &body
					}
				}

				id := g.identity()
				if _, dup := seen[id]; dup {
					continue
				}
				seen[id] = struct{}{}
				m.grants = append(m.grants, g)
			}
		}
	}

	sort.SliceStable(m.grants, func(i, j int) bool {
		return m.grants[i].identity() < m.grants[j].identity()
	})
	for i, g := range m.grants {
		m.byKey[g.key()] = append(m.byKey[g.key()], i)
	}
	return m
}

// Authenticated reports whether the manager belongs to a logged-in user.
func (m *Manager) Authenticated() bool {
	return m != nil && m.authenticated
}

// UserID returns the owner of the permission set, zero for anonymous.
func (m *Manager) UserID() int64 {
	if m == nil {
		return 0
	}
	return m.userID
}

// HasPermission reports whether any effective grant satisfies the action,
// for example "global:create:body" or "update:body".
func (m *Manager) HasPermission(action string) bool {
	return len(m.matching(action, nil)) > 0
}

// HasBodyPermission is HasPermission limited to local grants anchored to the
// given body. Global grants always satisfy it.
func (m *Manager) HasBodyPermission(action string, bodyID int64) bool {
	return len(m.matching(action, &bodyID)) > 0
}

// PermissionFilters returns the sorted union of the writable fields of every
// grant that satisfies the action. An empty result is ambiguous on its own:
// callers must check HasPermission first.
func (m *Manager) PermissionFilters(action string) []string {
	fields, _, _ := m.FieldScope(action, nil)
	return fields
}

// BodyPermissionFilters is PermissionFilters for a body-scoped check.
func (m *Manager) BodyPermissionFilters(action string, bodyID int64) []string {
	fields, _, _ := m.FieldScope(action, &bodyID)
	return fields
}

// FieldScope resolves the writable fields for an action. allowed is false
// when no grant matches; unrestricted is true when at least one matching
// grant carries no field list, in which case fields is nil.
func (m *Manager) FieldScope(action string, bodyID *int64) (fields []string, unrestricted, allowed bool) {
	matched := m.matching(action, bodyID)
	if len(matched) == 0 {
		return nil, false, false
	}

	var union []string
	for _, g := range matched {
		if g.Unrestricted() {
			return nil, true, true
		}
		union = append(union, g.Fields...)
	}
	return normalizeFields(union), false, true
}

// FilterFields returns the subset of payload the caller may write for the
// action. Keys outside the field scope are dropped.
func (m *Manager) FilterFields(action string, bodyID *int64, payload map[string]any) map[string]any {
	fields, unrestricted, allowed := m.FieldScope(action, bodyID)
	out := make(map[string]any, len(payload))
	if !allowed {
		return out
	}
	if unrestricted {
		for k, v := range payload {
			out[k] = v
		}
		return out
	}
	for _, f := range fields {
		if v, ok := payload[f]; ok {
			out[f] = v
		}
	}
	return out
}

// Grants returns a copy of the effective grants in a stable order.
func (m *Manager) Grants() []Grant {
	if m == nil {
		return nil
	}
	return append([]Grant(nil), m.grants...)
}

// Combined returns the distinct effective permission strings.
func (m *Manager) Combined() []string {
	if m == nil {
		return nil
	}
	seen := make(map[string]struct{}, len(m.grants))
	out := make([]string, 0, len(m.grants))
	for _, g := range m.grants {
		c := g.Combined()
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

func (m *Manager) matching(action string, bodyID *int64) []Grant {
	if m == nil || len(m.grants) == 0 {
		return nil
	}
	check, err := Parse(action)
	if err != nil {
		return nil
	}

	var out []Grant
	for _, i := range m.byKey[check.key()] {
		if m.grants[i].satisfies(check, bodyID) {
			out = append(out, m.grants[i])
		}
	}
	return out
}
