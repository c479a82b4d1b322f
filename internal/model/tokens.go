package model

import "time"

// AccessToken : подписанный токен доступа и его содержимое
type AccessToken struct {
	Token     string
	Subject   string
	Roles     []string
	JTI       string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// RefreshTokenRecord : запись в общем хранилище, ключом служит хэш непрозрачного refresh-токена
type RefreshTokenRecord struct {
	PrincipalID string
	Roles       []string
	FamilyID    string
	Used        bool
}

// RotationResult : результат успешной ротации refresh-токена
type RotationResult struct {
	AccessToken  *AccessToken
	RefreshToken string
	PrincipalID  string
}

// Principal : аутентифицированный субъект запроса
type Principal struct {
	ID        string
	Roles     []string
	TokenID   string
	ExpiresAt time.Time
}

// HasRole проверяет наличие роли у субъекта
func (p *Principal) HasRole(role string) bool {
	for _, r := range p.Roles {
		if r == role {
			return true
		}
	}
	return false
}
