package model

import (
	"time"

	"github.com/lib/pq"
)

const (
	RoleStudent  = "student"
	RoleProvider = "provider"
	RoleAdmin    = "admin"
)

type User struct {
	UUID         string         `db:"uuid" json:"id"`
	Email        string         `db:"email" json:"email"`
	PasswordHash string         `db:"password_hash" json:"-"`
	FullName     string         `db:"full_name" json:"fullName"`
	Roles        pq.StringArray `db:"roles" json:"roles"`
	IsActive     bool           `db:"is_active" json:"-"`
	LastLoginAt  *time.Time     `db:"last_login_at" json:"-"`
	CreatedAt    time.Time      `db:"created_at" json:"-"`
}

// AuthResult : пара токенов и пользователь, которому они выданы.
// RefreshToken уходит только в cookie
type AuthResult struct {
	AccessToken  *AccessToken
	RefreshToken string
	User         *User
}
