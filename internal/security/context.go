package security

import (
	"context"
	"internship-auth/internal/model"
)

type contextKey string

const (
	PrincipalContextKey contextKey = "principal"
)

// WithPrincipal кладет аутентифицированного субъекта в контекст запроса
func WithPrincipal(ctx context.Context, principal *model.Principal) context.Context {
	return context.WithValue(ctx, PrincipalContextKey, principal)
}

// PrincipalFromContext возвращает субъекта запроса, false для анонимного запроса
func PrincipalFromContext(ctx context.Context) (*model.Principal, bool) {
	principal, ok := ctx.Value(PrincipalContextKey).(*model.Principal)
	if !ok || principal == nil {
		return nil, false
	}
	return principal, true
}
