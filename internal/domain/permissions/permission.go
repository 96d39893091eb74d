// Package permissions parses circle grants and evaluates a user's effective
// permission set.
package permissions

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrMalformedPermission is returned for permission strings that cannot be parsed.
var ErrMalformedPermission = errors.New("malformed permission")

// Scope limits where a permission applies.
type Scope string

const (
	// ScopeGlobal grants apply to every body.
	ScopeGlobal Scope = "global"
	// ScopeLocal grants apply to the body the granting circle belongs to.
	ScopeLocal Scope = "local"
)

// Valid reports whether the scope is known.
func (s Scope) Valid() bool {
	return s == ScopeGlobal || s == ScopeLocal
}

// Permission is a parsed "scope:action:object" descriptor.
type Permission struct {
	Scope  Scope  `json:"scope"`
	Action string `json:"action"`
	Object string `json:"object"`
}

// New builds a permission from its components.
func New(scope, action, object string) (Permission, error) {
	p := Permission{
		Scope:  Scope(strings.ToLower(strings.TrimSpace(scope))),
		Action: strings.TrimSpace(action),
		Object: strings.TrimSpace(object),
	}
	if p.Scope == "" {
		p.Scope = ScopeLocal
	}
	if !p.Scope.Valid() {
		return Permission{}, fmt.Errorf("%w: unknown scope %q", ErrMalformedPermission, scope)
	}
	if p.Action == "" || p.Object == "" {
		return Permission{}, fmt.Errorf("%w: action and object are required", ErrMalformedPermission)
	}
	return p, nil
}

// Parse accepts "scope:action:object" or the local shorthand "action:object".
func Parse(combined string) (Permission, error) {
	parts := strings.Split(strings.TrimSpace(combined), ":")
	switch len(parts) {
	case 2:
		return New(string(ScopeLocal), parts[0], parts[1])
	case 3:
		if parts[0] == "" {
			return Permission{}, fmt.Errorf("%w: empty scope in %q", ErrMalformedPermission, combined)
		}
		return New(parts[0], parts[1], parts[2])
	default:
		return Permission{}, fmt.Errorf("%w: %q", ErrMalformedPermission, combined)
	}
}

// MustParse is Parse for package-level constants.
func MustParse(combined string) Permission {
	p, err := Parse(combined)
	if err != nil {
		panic(err)
	}
	return p
}

// Combined renders the full three-part form.
func (p Permission) Combined() string {
	return string(p.Scope) + ":" + p.Action + ":" + p.Object
}

func (p Permission) String() string {
	return p.Combined()
}

func (p Permission) key() string {
	return p.Action + ":" + p.Object
}

// Grant is a permission held through a circle, optionally limited to a set of
// writable fields and anchored to a body.
type Grant struct {
	Permission

	// Fields is nil when the grant does not restrict writable fields.
	Fields []string `json:"fields,omitempty"`

	// BodyID anchors local grants; nil for global grants.
	BodyID *int64 `json:"body_id,omitempty"`

	// CircleID is the circle the grant is attached to.
	CircleID int64 `json:"circle_id"`
}

// Unrestricted reports whether the grant allows writing every field.
func (g Grant) Unrestricted() bool {
	return g.Fields == nil
}

// identity is the dedup key: the source circle is deliberately left out.
func (g Grant) identity() string {
	var b strings.Builder
	b.WriteString(g.Combined())
	b.WriteByte('|')
	if g.Fields == nil {
		b.WriteByte('*')
	} else {
		b.WriteString(strings.Join(g.Fields, ","))
	}
	b.WriteByte('|')
	if g.BodyID != nil {
		fmt.Fprintf(&b, "%d", *g.BodyID)
	}
	return b.String()
}

// satisfies implements the scope-widening rule: global grants satisfy any
// check for the same action and object, local grants satisfy local checks
// that either name no body or name the grant's anchor.
func (g Grant) satisfies(check Permission, bodyID *int64) bool {
	if g.Action != check.Action || g.Object != check.Object {
		return false
	}
	if g.Scope == ScopeGlobal {
		return true
	}
	if check.Scope == ScopeGlobal {
		return false
	}
	if bodyID == nil {
		return true
	}
	return g.BodyID != nil && *g.BodyID == *bodyID
}

// normalizeFields trims, dedupes and sorts a field list. A nil or empty input
// means "no restriction" and stays nil.
func normalizeFields(fields []string) []string {
	if len(fields) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(fields))
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, f)
	}
	if len(out) == 0 {
		return nil
	}
	sort.Strings(out)
	return out
}
