package permissions

import "context"

type managerKey struct{}

// WithManager attaches the request's permission manager to ctx.
func WithManager(ctx context.Context, m *Manager) context.Context {
	return context.WithValue(ctx, managerKey{}, m)
}

// FromContext returns the attached manager, or an anonymous one.
func FromContext(ctx context.Context) *Manager {
	if m, ok := ctx.Value(managerKey{}).(*Manager); ok && m != nil {
		return m
	}
	return Anonymous()
}
