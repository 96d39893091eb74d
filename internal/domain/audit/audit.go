// Package audit records administrative changes to authorization data:
// permission definitions, circle grants and body lifecycle.
package audit

import (
	"context"
	"fmt"
	"reflect"

	appctx "omscore/internal/core/context"
)

// Action is the type of audited operation.
type Action string

const (
	ActionCreate   Action = "create"
	ActionUpdate   Action = "update"
	ActionDelete   Action = "delete"
	ActionAssign   Action = "assign"
	ActionUnassign Action = "unassign"
	ActionStatus   Action = "status"
)

// Entry is a single audit record.
type Entry struct {
	EntityType string
	EntityID   int64
	Action     Action
	ActorID    int64
	Changes    map[string]any
}

// Recorder persists audit entries. Implementations write through the
// transaction carried by ctx, so a failed record rolls back the change.
type Recorder interface {
	Record(ctx context.Context, entry Entry) error
}

// Nop discards every entry.
var Nop Recorder = nopRecorder{}

type nopRecorder struct{}

func (nopRecorder) Record(context.Context, Entry) error { return nil }

// Record fills the actor from ctx and hands the entry to r. A nil r is
// treated as Nop.
func Record(ctx context.Context, r Recorder, entry Entry) error {
	if r == nil {
		return nil
	}
	if entry.ActorID == 0 {
		entry.ActorID = appctx.GetUserID(ctx)
	}
	if err := r.Record(ctx, entry); err != nil {
		return fmt.Errorf("record audit entry: %w", err)
	}
	return nil
}

// Diff returns {"field": {"old": x, "new": y}} for every key whose value
// differs between the two states.
func Diff(oldState, newState map[string]any) map[string]any {
	changes := make(map[string]any)
	for key, newVal := range newState {
		oldVal, exists := oldState[key]
		if !exists || !reflect.DeepEqual(oldVal, newVal) {
			changes[key] = map[string]any{"old": oldVal, "new": newVal}
		}
	}
	for key, oldVal := range oldState {
		if _, exists := newState[key]; !exists {
			changes[key] = map[string]any{"old": oldVal, "new": nil}
		}
	}
	return changes
}
