package requestresponse

// RegisterRequest : тело запроса регистрации
type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email,max=255" example:"student@example.com"`
	Password string `json:"password" validate:"required,min=8,max=128" example:"P@ssw0rd123"`
	FullName string `json:"fullName" validate:"required,max=255" example:"Ivan Petrov"`
	Role     string `json:"role" validate:"required,oneof=student provider" example:"student"`
}

// LoginRequest : тело запроса на аутентификацию
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email" example:"student@example.com"`
	Password string `json:"password" validate:"required" example:"P@ssw0rd123"`
}

// UserInfo : публичные данные пользователя
type UserInfo struct {
	ID       string   `json:"id" example:"b6a1e1c4-4b1d-4f1e-8b29-1234567890ab"`
	Email    string   `json:"email" example:"student@example.com"`
	FullName string   `json:"fullName" example:"Ivan Petrov"`
	Roles    []string `json:"roles" example:"student"`
}

// AuthResponse : ответ на register / login / refresh.
// Refresh-токен в тело никогда не попадает, только в HttpOnly cookie
type AuthResponse struct {
	AccessToken string   `json:"accessToken" example:"eyJhbGciOiJSUzI1NiIsInR5cCI6IkpXVCJ9..."`
	User        UserInfo `json:"user"`
}

// CurrentUserResponse : информация о текущем пользователе
type CurrentUserResponse struct {
	ID    string   `json:"id" example:"b6a1e1c4-4b1d-4f1e-8b29-1234567890ab"`
	Roles []string `json:"roles" example:"student"`
}

// HealthResponse : состояние зависимостей
type HealthResponse struct {
	Status   string `json:"status" example:"ok"`
	Redis    string `json:"redis" example:"ok"`
	Database string `json:"database" example:"ok"`
}

// ErrorResponse : стандартная структура ошибки
type ErrorResponse struct {
	Error   string `json:"error" example:"Unauthorized"`
	Message string `json:"message" example:"не удалось обновить токены"`
	Code    int    `json:"code" example:"401"`
}
