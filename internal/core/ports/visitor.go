package ports

import (
	"context"

	"go.trai.ch/sweet/internal/core/domain"
)

// Visitor is invoked once per target by a traversal.
// A returned error fails the visit of that target only.
type Visitor interface {
	Visit(ctx context.Context, t *domain.Target) error
}

// VisitorFunc adapts a function to a Visitor.
type VisitorFunc func(ctx context.Context, t *domain.Target) error

// Visit calls f(ctx, t).
func (f VisitorFunc) Visit(ctx context.Context, t *domain.Target) error {
	return f(ctx, t)
}
