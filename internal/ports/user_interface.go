package ports

import (
	"context"
	"internship-auth/internal/model"
	"time"
)

// UserRepository : внешнее хранилище учетных данных
type UserRepository interface {
	CreateUser(ctx context.Context, user *model.User) (*model.User, error)
	FindByUUID(ctx context.Context, uuid string) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	UpdateLastLogin(ctx context.Context, uuid string, at time.Time) error
}
