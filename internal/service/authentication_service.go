package service

import (
	"context"
	"errors"
	"fmt"
	"internship-auth/internal/model"
	"internship-auth/internal/model/requestresponse"
	"internship-auth/internal/ports"
	"internship-auth/internal/security"
	"internship-auth/internal/util"
	"log"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

type AuthenticationService struct {
	tokens         ports.TokenIssuer
	userRepository ports.UserRepository
	validate       *validator.Validate
	now            func() time.Time
}

func NewAuthenticationService(tokens ports.TokenIssuer, userRepository ports.UserRepository) *AuthenticationService {
	return &AuthenticationService{
		tokens:         tokens,
		userRepository: userRepository,
		validate:       validator.New(validator.WithRequiredStructEnabled()),
		now:            time.Now,
	}
}

// Register создает пользователя с ролью student или provider и выдает ему пару токенов
func (s *AuthenticationService) Register(ctx context.Context, req *requestresponse.RegisterRequest) (*model.AuthResult, error) {
	req.Email = normalizeEmail(req.Email)
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrValidation, err)
	}

	exists, err := s.userRepository.ExistsByEmail(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("[AuthService] ошибка проверки email: %w", err)
	}
	if exists {
		return nil, model.ErrEmailTaken
	}

	hash, err := security.HashPassword(req.Password)
	if err != nil {
		return nil, util.LogError("[AuthService] не удалось создать хэш пароля", err)
	}

	user, err := s.userRepository.CreateUser(ctx, &model.User{
		UUID:         uuid.NewString(),
		Email:        req.Email,
		PasswordHash: hash,
		FullName:     strings.TrimSpace(req.FullName),
		Roles:        []string{req.Role},
	})
	if err != nil {
		if errors.Is(err, model.ErrEmailTaken) {
			return nil, err
		}
		return nil, fmt.Errorf("[AuthService] ошибка создания пользователя: %w", err)
	}

	return s.issueTokens(ctx, user)
}

// Login проверяет email и пароль. Для неизвестного email и неверного пароля ошибка одна и та же
func (s *AuthenticationService) Login(ctx context.Context, email, password string) (*model.AuthResult, error) {
	user, err := s.userRepository.FindByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, model.ErrUserNotFound) {
		return nil, model.ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("[AuthService] ошибка поиска пользователя: %w", err)
	}

	if !security.CheckPassword(password, user.PasswordHash) {
		return nil, model.ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, model.ErrAccountDisabled
	}

	if err := s.userRepository.UpdateLastLogin(ctx, user.UUID, s.now().UTC()); err != nil {
		log.Printf("[AuthService] не удалось обновить время входа %s: %v", user.UUID, err)
	}

	return s.issueTokens(ctx, user)
}

// Refresh ротирует refresh-токен. Если пользователь удален или деактивирован,
// только что выданное семейство отзывается
func (s *AuthenticationService) Refresh(ctx context.Context, refreshToken string) (*model.AuthResult, error) {
	if refreshToken == "" {
		return nil, model.ErrUnknownRefreshToken
	}

	rotation, err := s.tokens.Rotate(ctx, refreshToken)
	if err != nil {
		return nil, err
	}

	user, err := s.userRepository.FindByUUID(ctx, rotation.PrincipalID)
	if err == nil && !user.IsActive {
		err = model.ErrAccountDisabled
	}
	if err != nil {
		if revokeErr := s.tokens.RevokeRefresh(ctx, rotation.RefreshToken); revokeErr != nil {
			log.Printf("[AuthService] не удалось отозвать семейство: %v", revokeErr)
		}
		if errors.Is(err, model.ErrUserNotFound) || errors.Is(err, model.ErrAccountDisabled) {
			return nil, model.ErrUnknownRefreshToken
		}
		return nil, fmt.Errorf("[AuthService] ошибка поиска пользователя: %w", err)
	}

	return &model.AuthResult{
		AccessToken:  rotation.AccessToken,
		RefreshToken: rotation.RefreshToken,
		User:         user,
	}, nil
}

// Logout отзывает семейство refresh-токена и блокирует jti access-токена.
// Поддельный или истекший access-токен игнорируется, ошибка blocklist возвращается вызывающему
func (s *AuthenticationService) Logout(ctx context.Context, refreshToken, accessToken string) error {
	if refreshToken != "" {
		if err := s.tokens.RevokeRefresh(ctx, refreshToken); err != nil {
			return fmt.Errorf("[AuthService] не удалось отозвать refresh-токен: %w", err)
		}
	}

	if accessToken == "" {
		return nil
	}
	principal, err := s.tokens.Parse(accessToken)
	if err != nil {
		return nil
	}
	if err := s.tokens.Revoke(ctx, principal.TokenID, principal.ExpiresAt); err != nil {
		return fmt.Errorf("[AuthService] не удалось отозвать access-токен: %w", err)
	}
	return nil
}

func (s *AuthenticationService) issueTokens(ctx context.Context, user *model.User) (*model.AuthResult, error) {
	roles := []string(user.Roles)

	accessToken, err := s.tokens.Mint(user.UUID, roles)
	if err != nil {
		return nil, fmt.Errorf("[AuthService] ошибка генерации токенов: %w", err)
	}
	refreshToken, err := s.tokens.IssueRefresh(ctx, user.UUID, roles)
	if err != nil {
		return nil, fmt.Errorf("[AuthService] ошибка сохранения refresh токена: %w", err)
	}

	return &model.AuthResult{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         user,
	}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
