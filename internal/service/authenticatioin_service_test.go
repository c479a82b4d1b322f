package service_test

import (
	"context"
	"errors"
	"internship-auth/internal/model"
	"internship-auth/internal/model/requestresponse"
	"internship-auth/internal/security"
	"internship-auth/internal/service"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// ===== MOCKS =====

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) CreateUser(ctx context.Context, user *model.User) (*model.User, error) {
	args := m.Called(ctx, user)
	if u, ok := args.Get(0).(*model.User); ok {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockUserRepository) FindByUUID(ctx context.Context, uuid string) (*model.User, error) {
	args := m.Called(ctx, uuid)
	if u, ok := args.Get(0).(*model.User); ok {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockUserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	args := m.Called(ctx, email)
	if u, ok := args.Get(0).(*model.User); ok {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockUserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	args := m.Called(ctx, email)
	return args.Bool(0), args.Error(1)
}

func (m *MockUserRepository) UpdateLastLogin(ctx context.Context, uuid string, at time.Time) error {
	args := m.Called(ctx, uuid, at)
	return args.Error(0)
}

type MockTokenIssuer struct {
	mock.Mock
}

func (m *MockTokenIssuer) Validate(ctx context.Context, token string) (*model.Principal, error) {
	args := m.Called(ctx, token)
	if p, ok := args.Get(0).(*model.Principal); ok {
		return p, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockTokenIssuer) Parse(token string) (*model.Principal, error) {
	args := m.Called(token)
	if p, ok := args.Get(0).(*model.Principal); ok {
		return p, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockTokenIssuer) Mint(principalID string, roles []string) (*model.AccessToken, error) {
	args := m.Called(principalID, roles)
	if t, ok := args.Get(0).(*model.AccessToken); ok {
		return t, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockTokenIssuer) Revoke(ctx context.Context, jti string, expiresAt time.Time) error {
	args := m.Called(ctx, jti, expiresAt)
	return args.Error(0)
}

func (m *MockTokenIssuer) IssueRefresh(ctx context.Context, principalID string, roles []string) (string, error) {
	args := m.Called(ctx, principalID, roles)
	return args.String(0), args.Error(1)
}

func (m *MockTokenIssuer) Rotate(ctx context.Context, oldToken string) (*model.RotationResult, error) {
	args := m.Called(ctx, oldToken)
	if r, ok := args.Get(0).(*model.RotationResult); ok {
		return r, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockTokenIssuer) RevokeRefresh(ctx context.Context, token string) error {
	args := m.Called(ctx, token)
	return args.Error(0)
}

// ===== HELPERS =====

const testPassword = "P@ssw0rd123"

var (
	hashOnce     sync.Once
	testPassHash string
)

func passwordHash(t *testing.T) string {
	t.Helper()
	hashOnce.Do(func() {
		var err error
		testPassHash, err = security.HashPassword(testPassword)
		if err != nil {
			panic(err)
		}
	})
	return testPassHash
}

func newTestAuthService() (*service.AuthenticationService, *MockTokenIssuer, *MockUserRepository) {
	tokens := new(MockTokenIssuer)
	users := new(MockUserRepository)
	return service.NewAuthenticationService(tokens, users), tokens, users
}

func accessToken(subject string) *model.AccessToken {
	return &model.AccessToken{Token: "access-" + subject, Subject: subject, JTI: "jti-" + subject}
}

// ===== REGISTER =====

func TestAuthenticationService_Register(t *testing.T) {
	ctx := context.Background()
	validRequest := func() *requestresponse.RegisterRequest {
		return &requestresponse.RegisterRequest{
			Email:    "  Student@Example.com ",
			Password: testPassword,
			FullName: "Ivan Petrov",
			Role:     model.RoleStudent,
		}
	}

	tests := []struct {
		name       string
		mutate     func(r *requestresponse.RegisterRequest)
		setupMocks func(tokens *MockTokenIssuer, users *MockUserRepository)
		expectErr  error
	}{
		{
			name:      "invalid email",
			mutate:    func(r *requestresponse.RegisterRequest) { r.Email = "not-an-email" },
			expectErr: model.ErrValidation,
		},
		{
			name:      "short password",
			mutate:    func(r *requestresponse.RegisterRequest) { r.Password = "short" },
			expectErr: model.ErrValidation,
		},
		{
			name:      "admin role not allowed",
			mutate:    func(r *requestresponse.RegisterRequest) { r.Role = model.RoleAdmin },
			expectErr: model.ErrValidation,
		},
		{
			name: "email taken",
			setupMocks: func(tokens *MockTokenIssuer, users *MockUserRepository) {
				users.On("ExistsByEmail", ctx, "student@example.com").Return(true, nil)
			},
			expectErr: model.ErrEmailTaken,
		},
		{
			name: "email taken on insert",
			setupMocks: func(tokens *MockTokenIssuer, users *MockUserRepository) {
				users.On("ExistsByEmail", ctx, "student@example.com").Return(false, nil)
				users.On("CreateUser", ctx, mock.Anything).Return(nil, model.ErrEmailTaken)
			},
			expectErr: model.ErrEmailTaken,
		},
		{
			name: "success",
			setupMocks: func(tokens *MockTokenIssuer, users *MockUserRepository) {
				users.On("ExistsByEmail", ctx, "student@example.com").Return(false, nil)
				users.On("CreateUser", ctx, mock.MatchedBy(func(u *model.User) bool {
					return u.Email == "student@example.com" &&
						u.UUID != "" &&
						u.PasswordHash != testPassword &&
						security.CheckPassword(testPassword, u.PasswordHash) &&
						len(u.Roles) == 1 && u.Roles[0] == model.RoleStudent
				})).Return(&model.User{UUID: "user-1", Email: "student@example.com", Roles: []string{"student"}, IsActive: true}, nil)
				tokens.On("Mint", "user-1", []string{"student"}).Return(accessToken("user-1"), nil)
				tokens.On("IssueRefresh", ctx, "user-1", []string{"student"}).Return("refresh-1", nil)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			authService, tokens, users := newTestAuthService()
			if tt.setupMocks != nil {
				tt.setupMocks(tokens, users)
			}

			req := validRequest()
			if tt.mutate != nil {
				tt.mutate(req)
			}

			result, err := authService.Register(ctx, req)
			if tt.expectErr != nil {
				assert.ErrorIs(t, err, tt.expectErr)
				assert.Nil(t, result)
			} else {
				require.NoError(t, err)
				assert.Equal(t, "access-user-1", result.AccessToken.Token)
				assert.Equal(t, "refresh-1", result.RefreshToken)
				assert.Equal(t, "user-1", result.User.UUID)
			}

			tokens.AssertExpectations(t)
			users.AssertExpectations(t)
		})
	}
}

// ===== LOGIN =====

func TestAuthenticationService_Login(t *testing.T) {
	ctx := context.Background()
	hash := passwordHash(t)

	activeUser := func() *model.User {
		return &model.User{UUID: "user-1", Email: "student@example.com", PasswordHash: hash, Roles: []string{"student"}, IsActive: true}
	}

	tests := []struct {
		name       string
		password   string
		setupMocks func(tokens *MockTokenIssuer, users *MockUserRepository)
		expectErr  error
	}{
		{
			name:     "user not found",
			password: testPassword,
			setupMocks: func(tokens *MockTokenIssuer, users *MockUserRepository) {
				users.On("FindByEmail", ctx, "student@example.com").Return(nil, model.ErrUserNotFound)
			},
			expectErr: model.ErrInvalidCredentials,
		},
		{
			name:     "wrong password",
			password: "WrongPass123",
			setupMocks: func(tokens *MockTokenIssuer, users *MockUserRepository) {
				users.On("FindByEmail", ctx, "student@example.com").Return(activeUser(), nil)
			},
			expectErr: model.ErrInvalidCredentials,
		},
		{
			name:     "account disabled",
			password: testPassword,
			setupMocks: func(tokens *MockTokenIssuer, users *MockUserRepository) {
				user := activeUser()
				user.IsActive = false
				users.On("FindByEmail", ctx, "student@example.com").Return(user, nil)
			},
			expectErr: model.ErrAccountDisabled,
		},
		{
			name:     "success despite last login failure",
			password: testPassword,
			setupMocks: func(tokens *MockTokenIssuer, users *MockUserRepository) {
				users.On("FindByEmail", ctx, "student@example.com").Return(activeUser(), nil)
				users.On("UpdateLastLogin", ctx, "user-1", mock.Anything).Return(errors.New("db down"))
				tokens.On("Mint", "user-1", []string{"student"}).Return(accessToken("user-1"), nil)
				tokens.On("IssueRefresh", ctx, "user-1", []string{"student"}).Return("refresh-1", nil)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			authService, tokens, users := newTestAuthService()
			tt.setupMocks(tokens, users)

			result, err := authService.Login(ctx, "Student@Example.com", tt.password)
			if tt.expectErr != nil {
				assert.ErrorIs(t, err, tt.expectErr)
				assert.Nil(t, result)
			} else {
				require.NoError(t, err)
				assert.Equal(t, "refresh-1", result.RefreshToken)
			}

			tokens.AssertExpectations(t)
			users.AssertExpectations(t)
		})
	}
}

func TestAuthenticationService_LoginRepositoryError(t *testing.T) {
	authService, _, users := newTestAuthService()
	users.On("FindByEmail", mock.Anything, "student@example.com").Return(nil, errors.New("db down"))

	_, err := authService.Login(context.Background(), "student@example.com", testPassword)
	require.Error(t, err)
	assert.NotErrorIs(t, err, model.ErrInvalidCredentials)
	assert.Contains(t, err.Error(), "[AuthService] ошибка поиска пользователя")
}

// ===== REFRESH =====

func TestAuthenticationService_Refresh(t *testing.T) {
	ctx := context.Background()
	rotation := &model.RotationResult{AccessToken: accessToken("user-1"), RefreshToken: "refresh-2", PrincipalID: "user-1"}

	tests := []struct {
		name       string
		token      string
		setupMocks func(tokens *MockTokenIssuer, users *MockUserRepository)
		expectErr  error
	}{
		{
			name:      "empty token",
			token:     "",
			expectErr: model.ErrUnknownRefreshToken,
		},
		{
			name:  "replay",
			token: "refresh-1",
			setupMocks: func(tokens *MockTokenIssuer, users *MockUserRepository) {
				tokens.On("Rotate", ctx, "refresh-1").Return(nil, model.ErrReplayDetected)
			},
			expectErr: model.ErrReplayDetected,
		},
		{
			name:  "user deleted",
			token: "refresh-1",
			setupMocks: func(tokens *MockTokenIssuer, users *MockUserRepository) {
				tokens.On("Rotate", ctx, "refresh-1").Return(rotation, nil)
				users.On("FindByUUID", ctx, "user-1").Return(nil, model.ErrUserNotFound)
				tokens.On("RevokeRefresh", ctx, "refresh-2").Return(nil)
			},
			expectErr: model.ErrUnknownRefreshToken,
		},
		{
			name:  "user disabled",
			token: "refresh-1",
			setupMocks: func(tokens *MockTokenIssuer, users *MockUserRepository) {
				tokens.On("Rotate", ctx, "refresh-1").Return(rotation, nil)
				users.On("FindByUUID", ctx, "user-1").Return(&model.User{UUID: "user-1", IsActive: false}, nil)
				tokens.On("RevokeRefresh", ctx, "refresh-2").Return(nil)
			},
			expectErr: model.ErrUnknownRefreshToken,
		},
		{
			name:  "success",
			token: "refresh-1",
			setupMocks: func(tokens *MockTokenIssuer, users *MockUserRepository) {
				tokens.On("Rotate", ctx, "refresh-1").Return(rotation, nil)
				users.On("FindByUUID", ctx, "user-1").Return(&model.User{UUID: "user-1", IsActive: true}, nil)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			authService, tokens, users := newTestAuthService()
			if tt.setupMocks != nil {
				tt.setupMocks(tokens, users)
			}

			result, err := authService.Refresh(ctx, tt.token)
			if tt.expectErr != nil {
				assert.ErrorIs(t, err, tt.expectErr)
				assert.Nil(t, result)
			} else {
				require.NoError(t, err)
				assert.Equal(t, "refresh-2", result.RefreshToken)
				assert.Equal(t, "access-user-1", result.AccessToken.Token)
				assert.Equal(t, "user-1", result.User.UUID)
			}

			tokens.AssertExpectations(t)
			users.AssertExpectations(t)
		})
	}
}

// ===== LOGOUT =====

func TestAuthenticationService_Logout(t *testing.T) {
	ctx := context.Background()
	expiresAt := time.Now().Add(10 * time.Minute)

	t.Run("revokes both tokens", func(t *testing.T) {
		authService, tokens, _ := newTestAuthService()
		tokens.On("RevokeRefresh", ctx, "refresh-1").Return(nil)
		tokens.On("Parse", "access-1").Return(&model.Principal{ID: "user-1", TokenID: "jti-1", ExpiresAt: expiresAt}, nil)
		tokens.On("Revoke", ctx, "jti-1", expiresAt).Return(nil)

		require.NoError(t, authService.Logout(ctx, "refresh-1", "access-1"))
		tokens.AssertExpectations(t)
	})

	t.Run("invalid access token ignored", func(t *testing.T) {
		authService, tokens, _ := newTestAuthService()
		tokens.On("RevokeRefresh", ctx, "refresh-1").Return(nil)
		tokens.On("Parse", "access-1").Return(nil, model.ErrExpired)

		require.NoError(t, authService.Logout(ctx, "refresh-1", "access-1"))
		tokens.AssertNotCalled(t, "Revoke", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("no tokens", func(t *testing.T) {
		authService, tokens, _ := newTestAuthService()

		require.NoError(t, authService.Logout(ctx, "", ""))
		tokens.AssertExpectations(t)
	})

	t.Run("blocklist error", func(t *testing.T) {
		authService, tokens, _ := newTestAuthService()
		tokens.On("Parse", "access-1").Return(&model.Principal{ID: "user-1", TokenID: "jti-1", ExpiresAt: expiresAt}, nil)
		tokens.On("Revoke", ctx, "jti-1", expiresAt).Return(errors.New("redis down"))

		err := authService.Logout(ctx, "", "access-1")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "redis down")
		tokens.AssertNotCalled(t, "Validate", mock.Anything, mock.Anything)
	})

	t.Run("store error", func(t *testing.T) {
		authService, tokens, _ := newTestAuthService()
		tokens.On("RevokeRefresh", ctx, "refresh-1").Return(errors.New("redis down"))

		err := authService.Logout(ctx, "refresh-1", "")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "redis down")
	})
}
