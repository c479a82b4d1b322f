package ports

import (
	"context"
	"internship-auth/internal/model"
	"time"
)

// RefreshTokenStore : refresh-токены и их семейства в общем хранилище.
// Каждый метод выполняет одну атомарную операцию над хранилищем
type RefreshTokenStore interface {
	SaveRefreshToken(ctx context.Context, token string, record *model.RefreshTokenRecord, ttl time.Duration) error
	FindRefreshToken(ctx context.Context, token string) (*model.RefreshTokenRecord, error)
	MarkRefreshTokenUsed(ctx context.Context, token string, grace time.Duration) (bool, error)
	InGracePeriod(ctx context.Context, token string) (bool, error)
	RevokeFamily(ctx context.Context, familyID string, ttl time.Duration) error
	DeleteRefreshToken(ctx context.Context, token string) error
}

// RevocationStore : blocklist jti access-токенов
type RevocationStore interface {
	RevokeAccessToken(ctx context.Context, jti string, ttl time.Duration) error
	IsAccessTokenRevoked(ctx context.Context, jti string) (bool, error)
}

// TokenValidator : то, что нужно RequestGate от TokenService
type TokenValidator interface {
	Validate(ctx context.Context, token string) (*model.Principal, error)
}

// TokenIssuer : выдача, ротация и отзыв токенов
type TokenIssuer interface {
	TokenValidator
	Parse(token string) (*model.Principal, error)
	Mint(principalID string, roles []string) (*model.AccessToken, error)
	Revoke(ctx context.Context, jti string, expiresAt time.Time) error
	IssueRefresh(ctx context.Context, principalID string, roles []string) (string, error)
	Rotate(ctx context.Context, oldToken string) (*model.RotationResult, error)
	RevokeRefresh(ctx context.Context, token string) error
}
