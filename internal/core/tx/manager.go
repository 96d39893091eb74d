// Package tx defines the transaction boundary domain services depend on.
// The pgx implementation lives in infrastructure/storage/postgres.
package tx

import (
	"context"
)

// Manager runs fn inside a database transaction. The transaction travels in
// the context passed to fn; repositories pick it up from there. A non-nil
// error from fn rolls everything back. Nested calls join the outer
// transaction.
type Manager interface {
	RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// Func adapts a plain function to Manager. Handy for services under test.
type Func func(ctx context.Context, fn func(ctx context.Context) error) error

func (f Func) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return f(ctx, fn)
}

// Passthrough runs fn without a transaction.
var Passthrough Manager = Func(func(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
})
