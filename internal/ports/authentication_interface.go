package ports

import (
	"context"
	"internship-auth/internal/model"
	"internship-auth/internal/model/requestresponse"
)

type AuthenticationService interface {
	Register(ctx context.Context, req *requestresponse.RegisterRequest) (*model.AuthResult, error)
	Login(ctx context.Context, email, password string) (*model.AuthResult, error)
	Refresh(ctx context.Context, refreshToken string) (*model.AuthResult, error)
	Logout(ctx context.Context, refreshToken, accessToken string) error
}
