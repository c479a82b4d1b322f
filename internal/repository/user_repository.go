package repository

import (
	"context"
	"database/sql"
	"errors"
	"internship-auth/config"
	"internship-auth/internal/model"
	"internship-auth/internal/util"
	"time"

	"github.com/lib/pq"
)

const uniqueViolation = "23505"

type UserRepository struct {
	*config.Database
}

func NewUserRepository(database *config.Database) *UserRepository {
	return &UserRepository{database}
}

// CreateUser : сохраняет нового пользователя вместе с ролями
func (r *UserRepository) CreateUser(ctx context.Context, user *model.User) (*model.User, error) {
	query := `
	INSERT INTO users (uuid, email, password_hash, full_name, roles, is_active) 
	VALUES ($1, $2, $3, $4, $5, TRUE) 
	RETURNING uuid, email, full_name, roles, is_active, created_at
	`

	createdUser := &model.User{}
	err := r.DB.QueryRowxContext(ctx, query, user.UUID, user.Email, user.PasswordHash, user.FullName, pq.Array(user.Roles)).
		Scan(&createdUser.UUID, &createdUser.Email, &createdUser.FullName, &createdUser.Roles, &createdUser.IsActive, &createdUser.CreatedAt)

	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return nil, model.ErrEmailTaken
		}
		return nil, util.LogError("[UserRepo] ошибка вставки данных в БД", err)
	}

	return createdUser, nil
}

// FindByUUID : ищет пользователя по UUID
func (r *UserRepository) FindByUUID(ctx context.Context, uuid string) (*model.User, error) {
	query := `SELECT uuid, email, password_hash, full_name, roles, is_active, last_login_at, created_at FROM users WHERE uuid = $1`
	var user model.User
	err := r.DB.GetContext(ctx, &user, query, uuid)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrUserNotFound
	}
	if err != nil {
		return nil, util.LogError("[UserRepo] не удалось найти пользователя в БД", err)
	}
	return &user, nil
}

// FindByEmail : ищет пользователя по email
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	query := `SELECT uuid, email, password_hash, full_name, roles, is_active, last_login_at, created_at FROM users WHERE email = $1`
	var user model.User
	err := r.DB.GetContext(ctx, &user, query, email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrUserNotFound
	}
	if err != nil {
		return nil, util.LogError("[UserRepo] не удалось найти пользователя по email", err)
	}
	return &user, nil
}

func (r *UserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM users WHERE email = $1)`
	var exists bool
	if err := r.DB.GetContext(ctx, &exists, query, email); err != nil {
		return false, util.LogError("[UserRepo] ошибка проверки email", err)
	}
	return exists, nil
}

// UpdateLastLogin : фиксирует время последнего входа
func (r *UserRepository) UpdateLastLogin(ctx context.Context, uuid string, at time.Time) error {
	query := `UPDATE users SET last_login_at = $2 WHERE uuid = $1`
	_, err := r.DB.ExecContext(ctx, query, uuid, at)
	if err != nil {
		return util.LogError("[UserRepo] не удалось обновить время входа", err)
	}
	return nil
}
