package tenant

import (
	"context"
	"errors"
)

// Scope identifies who is acting and for which tenant. It travels on the
// request context so it survives every suspension point and stays isolated
// between concurrent requests.
type Scope struct {
	ActorID  string
	TenantID string
}

type scopeKey struct{}

// ErrNoScope indicates no tenant scope is bound to the context.
var ErrNoScope = errors.New("no tenant scope in context")

// WithScope returns a context with the scope bound.
func WithScope(ctx context.Context, s Scope) context.Context {
	return context.WithValue(ctx, scopeKey{}, s)
}

// FromContext extracts the bound scope. Returns ErrNoScope when absent or
// when the tenant id is empty.
func FromContext(ctx context.Context) (Scope, error) {
	s, ok := ctx.Value(scopeKey{}).(Scope)
	if !ok || s.TenantID == "" {
		return Scope{}, ErrNoScope
	}
	return s, nil
}

// Run executes fn with the scope bound for the full call tree it spawns.
func Run(ctx context.Context, s Scope, fn func(context.Context) error) error {
	return fn(WithScope(ctx, s))
}
