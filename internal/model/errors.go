package model

import (
	"errors"
	"fmt"
)

// Ошибки проверки учетных данных. Ни одна из них не повторяется автоматически:
// клиент должен заново пройти аутентификацию
var (
	ErrInvalidSignature    = errors.New("невалидная подпись токена")
	ErrExpired             = errors.New("срок действия токена истек")
	ErrRevoked             = errors.New("токен отозван")
	ErrUnknownRefreshToken = errors.New("неизвестный refresh-токен")
	ErrReplayDetected      = errors.New("повторное использование refresh-токена")
)

// ErrRotationInProgress : токен уже обменян параллельным запросом в пределах grace-окна.
// Семейство живо, у клиента уже есть (или вот-вот будет) новый токен
var ErrRotationInProgress = fmt.Errorf("%w: ротация уже выполнена", ErrUnknownRefreshToken)

// ErrFamilyRevoked : попытка добавить токен в уже отозванное семейство
var ErrFamilyRevoked = errors.New("семейство refresh-токенов отозвано")

// ErrRateLimitExceeded временная ошибка, клиент может повторить запрос через RetryAfterSeconds
var ErrRateLimitExceeded = errors.New("превышен лимит запросов")

var (
	ErrValidation         = errors.New("некорректные данные запроса")
	ErrInvalidCredentials = errors.New("неверный логин или пароль")
	ErrAccountDisabled    = errors.New("аккаунт деактивирован")
	ErrEmailTaken         = errors.New("email уже зарегистрирован")
	ErrUserNotFound       = errors.New("пользователь не найден")
)
