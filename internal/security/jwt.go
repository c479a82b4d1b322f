package security

import (
	"context"
	"errors"
	"fmt"
	"internship-auth/config"
	"internship-auth/internal/model"
	"internship-auth/internal/ports"
	"internship-auth/internal/util"
	"log"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type Claims struct {
	Roles []string `json:"roles"`
	jwt.RegisteredClaims
}

// TokenService выдает, проверяет и отзывает access-токены (RS256) и
// ротирует непрозрачные refresh-токены с обнаружением повторного использования
type TokenService struct {
	keys         *KeyStore
	refreshStore ports.RefreshTokenStore
	revocations  ports.RevocationStore
	cfg          config.JWTConfig
	now          func() time.Time
}

type TokenServiceOption func(*TokenService)

// WithClock подменяет источник времени
func WithClock(now func() time.Time) TokenServiceOption {
	return func(s *TokenService) {
		s.now = now
	}
}

func NewTokenService(
	keys *KeyStore,
	refreshStore ports.RefreshTokenStore,
	revocations ports.RevocationStore,
	cfg config.JWTConfig,
	opts ...TokenServiceOption,
) *TokenService {
	service := &TokenService{
		keys:         keys,
		refreshStore: refreshStore,
		revocations:  revocations,
		cfg:          cfg,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

// Mint подписывает новый access-токен. Побочных эффектов нет
func (s *TokenService) Mint(principalID string, roles []string) (*model.AccessToken, error) {
	now := s.now().Truncate(jwt.TimePrecision)
	expiresAt := now.Add(s.cfg.AccessTokenTTL)
	jti := uuid.NewString()

	claims := Claims{
		Roles: roles,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   principalID,
			Issuer:    s.cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	jwtToken := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	jwtToken.Header["kid"] = s.keys.KeyID()

	signed, err := jwtToken.SignedString(s.keys.PrivateKey())
	if err != nil {
		return nil, util.LogError("[TokenService] ошибка подписи токена", err)
	}

	return &model.AccessToken{
		Token:     signed,
		Subject:   principalID,
		Roles:     roles,
		JTI:       jti,
		IssuedAt:  now,
		ExpiresAt: expiresAt,
	}, nil
}

// Validate проверяет подпись, срок действия и blocklist.
// Недоступность хранилища трактуется как отзыв (fail closed)
func (s *TokenService) Validate(ctx context.Context, tokenString string) (*model.Principal, error) {
	principal, err := s.Parse(tokenString)
	if err != nil {
		return nil, err
	}

	revoked, err := s.revocations.IsAccessTokenRevoked(ctx, principal.TokenID)
	if err != nil {
		log.Printf("[TokenService] blocklist недоступен, токен %s отклонен: %v", principal.TokenID, err)
		return nil, model.ErrRevoked
	}
	if revoked {
		return nil, model.ErrRevoked
	}

	return principal, nil
}

// Parse проверяет только подпись, издателя и срок действия, без обращения к blocklist
func (s *TokenService) Parse(tokenString string) (*model.Principal, error) {
	claims := &Claims{}

	_, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return s.keys.PublicKey(), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuer(s.cfg.Issuer),
		jwt.WithTimeFunc(s.now),
	)
	if errors.Is(err, jwt.ErrTokenExpired) {
		return nil, model.ErrExpired
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrInvalidSignature, err)
	}
	if claims.Subject == "" || claims.ID == "" {
		return nil, fmt.Errorf("%w: нет sub или jti", model.ErrInvalidSignature)
	}

	return &model.Principal{
		ID:        claims.Subject,
		Roles:     claims.Roles,
		TokenID:   claims.ID,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// Revoke добавляет jti в blocklist ровно на оставшееся время жизни токена.
// Для уже истекшего токена ничего не делает
func (s *TokenService) Revoke(ctx context.Context, jti string, expiresAt time.Time) error {
	ttl := expiresAt.Sub(s.now())
	if ttl < time.Millisecond {
		return nil
	}

	if err := s.revocations.RevokeAccessToken(ctx, jti, ttl); err != nil {
		return fmt.Errorf("[TokenService] не удалось отозвать токен: %w", err)
	}
	return nil
}

// IssueRefresh открывает новое семейство и выдает в нем первый refresh-токен
func (s *TokenService) IssueRefresh(ctx context.Context, principalID string, roles []string) (string, error) {
	token, err := util.GenerateOpaqueToken()
	if err != nil {
		return "", err
	}

	record := &model.RefreshTokenRecord{
		PrincipalID: principalID,
		Roles:       roles,
		FamilyID:    uuid.NewString(),
	}
	if err := s.refreshStore.SaveRefreshToken(ctx, token, record, s.cfg.RefreshTokenTTL); err != nil {
		return "", fmt.Errorf("[TokenService] не удалось сохранить refresh-токен: %w", err)
	}

	return token, nil
}

// Rotate обменивает refresh-токен на новую пару.
//  1. Неизвестный токен отклоняется так же, как отозванный.
//  2. Использованный токен вне grace-окна считается повторным использованием, отзывается все семейство.
//  3. Использованный токен в grace-окне (параллельный запрос той же ротации) отклоняется,
//     семейство остается живым.
//  4. Иначе токен атомарно помечается использованным и в том же семействе выдается новый.
func (s *TokenService) Rotate(ctx context.Context, oldToken string) (*model.RotationResult, error) {
	record, err := s.refreshStore.FindRefreshToken(ctx, oldToken)
	if err != nil {
		log.Printf("[TokenService] хранилище недоступно при ротации: %v", err)
		return nil, model.ErrUnknownRefreshToken
	}
	if record == nil {
		return nil, model.ErrUnknownRefreshToken
	}

	if record.Used {
		return nil, s.handleUsedToken(ctx, oldToken, record)
	}

	marked, err := s.refreshStore.MarkRefreshTokenUsed(ctx, oldToken, s.cfg.RefreshGracePeriod)
	if err != nil {
		log.Printf("[TokenService] не удалось пометить refresh-токен: %v", err)
		return nil, model.ErrUnknownRefreshToken
	}
	if !marked {
		// параллельная ротация успела раньше
		log.Printf("[TokenService] параллельная ротация в семействе %s", record.FamilyID)
		return nil, model.ErrRotationInProgress
	}

	newToken, err := util.GenerateOpaqueToken()
	if err != nil {
		return nil, err
	}
	next := &model.RefreshTokenRecord{
		PrincipalID: record.PrincipalID,
		Roles:       record.Roles,
		FamilyID:    record.FamilyID,
	}
	if err := s.refreshStore.SaveRefreshToken(ctx, newToken, next, s.cfg.RefreshTokenTTL); err != nil {
		if errors.Is(err, model.ErrFamilyRevoked) {
			return nil, model.ErrReplayDetected
		}
		log.Printf("[TokenService] не удалось сохранить новый refresh-токен: %v", err)
		return nil, model.ErrUnknownRefreshToken
	}

	accessToken, err := s.Mint(record.PrincipalID, record.Roles)
	if err != nil {
		return nil, err
	}

	return &model.RotationResult{
		AccessToken:  accessToken,
		RefreshToken: newToken,
		PrincipalID:  record.PrincipalID,
	}, nil
}

func (s *TokenService) handleUsedToken(ctx context.Context, token string, record *model.RefreshTokenRecord) error {
	inGrace, err := s.refreshStore.InGracePeriod(ctx, token)
	if err != nil {
		log.Printf("[TokenService] не удалось проверить grace-период: %v", err)
		return model.ErrUnknownRefreshToken
	}
	if inGrace {
		log.Printf("[TokenService] повторная ротация в grace-периоде, семейство %s", record.FamilyID)
		return model.ErrRotationInProgress
	}

	log.Printf("[TokenService] повторное использование refresh-токена, отзыв семейства %s", record.FamilyID)
	if err := s.refreshStore.RevokeFamily(ctx, record.FamilyID, s.cfg.RefreshTokenTTL); err != nil {
		log.Printf("[TokenService] не удалось отозвать семейство %s: %v", record.FamilyID, err)
	}
	return model.ErrReplayDetected
}

// RevokeRefresh отзывает семейство токена и сам токен (logout)
func (s *TokenService) RevokeRefresh(ctx context.Context, token string) error {
	record, err := s.refreshStore.FindRefreshToken(ctx, token)
	if err != nil {
		return fmt.Errorf("[TokenService] не удалось найти refresh-токен: %w", err)
	}

	if record != nil {
		if err := s.refreshStore.RevokeFamily(ctx, record.FamilyID, s.cfg.RefreshTokenTTL); err != nil {
			return fmt.Errorf("[TokenService] не удалось отозвать семейство: %w", err)
		}
	}

	if err := s.refreshStore.DeleteRefreshToken(ctx, token); err != nil {
		return fmt.Errorf("[TokenService] не удалось удалить refresh-токен: %w", err)
	}
	return nil
}
