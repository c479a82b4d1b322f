package handler

import (
	"errors"
	"internship-auth/config"
	"internship-auth/internal/model"
	"internship-auth/internal/model/requestresponse"
	"internship-auth/internal/ports"
	"internship-auth/internal/security"
	"log"
	"net/http"
	"time"
)

type AuthenticationHandler struct {
	ports.AuthenticationService
	cookie     config.CookieConfig
	refreshTTL time.Duration
}

func NewAuthenticationHandler(
	authenticationService ports.AuthenticationService,
	cookie config.CookieConfig,
	refreshTTL time.Duration,
) *AuthenticationHandler {
	return &AuthenticationHandler{
		AuthenticationService: authenticationService,
		cookie:                cookie,
		refreshTTL:            refreshTTL,
	}
}

// Register godoc
// @Summary Регистрация нового пользователя
// @Description Создает студента или работодателя и выдает access-токен. Refresh-токен приходит только в HttpOnly cookie
// @Tags Authentication
// @Accept json
// @Produce json
// @Param body body requestresponse.RegisterRequest true "Тело запроса"
// @Success 201 {object} requestresponse.AuthResponse
// @Failure 400 {object} requestresponse.ErrorResponse
// @Failure 409 {object} requestresponse.ErrorResponse
// @Failure 500 {object} requestresponse.ErrorResponse
// @Router /api/v1/auth/register [post]
func (h *AuthenticationHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req requestresponse.RegisterRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return
	}

	result, err := h.AuthenticationService.Register(r.Context(), &req)
	if err != nil {
		log.Println(err)
		switch {
		case errors.Is(err, model.ErrValidation):
			sendErrorResponse(w, http.StatusBadRequest, "некорректные данные регистрации")
		case errors.Is(err, model.ErrEmailTaken):
			sendErrorResponse(w, http.StatusConflict, "email уже зарегистрирован")
		default:
			sendErrorResponse(w, http.StatusInternalServerError, "внутренняя ошибка сервера")
		}
		return
	}

	h.setRefreshCookie(w, result.RefreshToken)
	sendJSON(w, http.StatusCreated, toAuthResponse(result.AccessToken.Token, result.User))
}

// Login godoc
// @Summary Аутентификация пользователя
// @Description Получение access токена по email и паролю. Refresh-токен приходит только в HttpOnly cookie
// @Tags Authentication
// @Accept json
// @Produce json
// @Param body body requestresponse.LoginRequest true "Тело запроса"
// @Success 200 {object} requestresponse.AuthResponse
// @Failure 400 {object} requestresponse.ErrorResponse
// @Failure 401 {object} requestresponse.ErrorResponse
// @Failure 403 {object} requestresponse.ErrorResponse
// @Failure 500 {object} requestresponse.ErrorResponse
// @Router /api/v1/auth/login [post]
func (h *AuthenticationHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req requestresponse.LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return
	}

	if req.Email == "" || req.Password == "" {
		sendErrorResponse(w, http.StatusBadRequest, "email и password обязательны")
		return
	}

	result, err := h.AuthenticationService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		log.Println(err)
		switch {
		case errors.Is(err, model.ErrInvalidCredentials):
			sendErrorResponse(w, http.StatusUnauthorized, "неверный логин или пароль")
		case errors.Is(err, model.ErrAccountDisabled):
			sendErrorResponse(w, http.StatusForbidden, "доступ запрещён")
		default:
			sendErrorResponse(w, http.StatusInternalServerError, "внутренняя ошибка сервера")
		}
		return
	}

	h.setRefreshCookie(w, result.RefreshToken)
	sendJSON(w, http.StatusOK, toAuthResponse(result.AccessToken.Token, result.User))
}

// RefreshToken godoc
// @Summary Обновление токенов
// @Description Ротирует refresh-токен из cookie и выдает новый access-токен. Повторное использование старого refresh-токена отзывает всю сессию
// @Tags Authentication
// @Produce json
// @Success 200 {object} requestresponse.AuthResponse
// @Failure 401 {object} requestresponse.ErrorResponse
// @Failure 500 {object} requestresponse.ErrorResponse
// @Router /api/v1/auth/refresh [post]
func (h *AuthenticationHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	refreshToken := h.refreshCookie(r)
	if refreshToken == "" {
		sendErrorResponse(w, http.StatusUnauthorized, "refresh-токен не передан")
		return
	}

	result, err := h.AuthenticationService.Refresh(r.Context(), refreshToken)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrRotationInProgress):
			// cookie не трогаем: параллельный запрос уже выдал новый токен
			sendErrorResponse(w, http.StatusUnauthorized, "не удалось обновить токены")
		case errors.Is(err, model.ErrUnknownRefreshToken),
			errors.Is(err, model.ErrReplayDetected):
			h.clearRefreshCookie(w)
			sendErrorResponse(w, http.StatusUnauthorized, "не удалось обновить токены")
		default:
			log.Println(err)
			sendErrorResponse(w, http.StatusInternalServerError, "внутренняя ошибка сервера")
		}
		return
	}

	h.setRefreshCookie(w, result.RefreshToken)
	sendJSON(w, http.StatusOK, toAuthResponse(result.AccessToken.Token, result.User))
}

// Logout godoc
// @Summary Завершение сессии
// @Description Отзывает семейство refresh-токена из cookie и блокирует переданный access-токен до истечения его срока
// @Tags Authentication
// @Param Authorization header string false "Bearer токен" default(Bearer <access_token>)
// @Success 204
// @Failure 500 {object} requestresponse.ErrorResponse
// @Router /api/v1/auth/logout [post]
func (h *AuthenticationHandler) Logout(w http.ResponseWriter, r *http.Request) {
	accessToken, _ := security.BearerToken(r)

	if err := h.AuthenticationService.Logout(r.Context(), h.refreshCookie(r), accessToken); err != nil {
		log.Println(err)
		sendErrorResponse(w, http.StatusInternalServerError, "не удалось завершить сессию")
		return
	}

	h.clearRefreshCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

// GetCurrentUser godoc
// @Summary Текущий пользователь
// @Description Возвращает id и роли пользователя, которому выдан access-токен
// @Tags Authentication
// @Produce json
// @Param Authorization header string true "Bearer токен" default(Bearer <access_token>)
// @Success 200 {object} requestresponse.CurrentUserResponse
// @Failure 401 {object} requestresponse.ErrorResponse
// @Security ApiKeyAuth
// @Router /api/v1/auth/me [get]
func (h *AuthenticationHandler) GetCurrentUser(w http.ResponseWriter, r *http.Request) {
	principal, ok := security.PrincipalFromContext(r.Context())
	if !ok {
		sendErrorResponse(w, http.StatusUnauthorized, "не авторизован")
		return
	}

	sendJSON(w, http.StatusOK, requestresponse.CurrentUserResponse{
		ID:    principal.ID,
		Roles: principal.Roles,
	})
}

func (h *AuthenticationHandler) setRefreshCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookie.Name,
		Value:    token,
		Path:     h.cookie.Path,
		MaxAge:   int(h.refreshTTL.Seconds()),
		HttpOnly: true,
		Secure:   !h.cookie.Insecure,
		SameSite: http.SameSiteStrictMode,
	})
}

func (h *AuthenticationHandler) clearRefreshCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookie.Name,
		Value:    "",
		Path:     h.cookie.Path,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   !h.cookie.Insecure,
		SameSite: http.SameSiteStrictMode,
	})
}

func (h *AuthenticationHandler) refreshCookie(r *http.Request) string {
	cookie, err := r.Cookie(h.cookie.Name)
	if err != nil {
		return ""
	}
	return cookie.Value
}

func toAuthResponse(accessToken string, user *model.User) requestresponse.AuthResponse {
	resp := requestresponse.AuthResponse{AccessToken: accessToken}
	if user != nil {
		resp.User = requestresponse.UserInfo{
			ID:       user.UUID,
			Email:    user.Email,
			FullName: user.FullName,
			Roles:    user.Roles,
		}
	}
	return resp
}
