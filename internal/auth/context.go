package auth

import (
	"context"

	"github.com/dev-kitchen/api-gateway/internal/wire"
)

type ctxKey int

const principalKey ctxKey = iota

// WithPrincipal attaches p to ctx.
func WithPrincipal(ctx context.Context, p wire.Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// PrincipalFromContext returns the principal attached to ctx, if any.
func PrincipalFromContext(ctx context.Context) (wire.Principal, bool) {
	p, ok := ctx.Value(principalKey).(wire.Principal)
	return p, ok
}
