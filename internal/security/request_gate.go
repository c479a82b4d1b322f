package security

import (
	"errors"
	"internship-auth/internal/model"
	"internship-auth/internal/ports"
	"internship-auth/internal/util"
	"log"
	"net"
	"net/http"
	"strconv"
	"strings"
)

const (
	HeaderRateLimitRemaining  = "X-Rate-Limit-Remaining"
	HeaderRateLimitRetryAfter = "X-Rate-Limit-Retry-After-Seconds"
)

// RequestGate : аутентификация по bearer-токену и rate limit для каждого входящего запроса.
// Собирается один раз при старте из явных зависимостей
type RequestGate struct {
	tokens  ports.TokenValidator
	limiter ports.Admitter
}

// NewRequestGate создает gate. limiter == nil отключает rate limit
func NewRequestGate(tokens ports.TokenValidator, limiter ports.Admitter) *RequestGate {
	return &RequestGate{
		tokens:  tokens,
		limiter: limiter,
	}
}

// Middleware : невалидный токен не прерывает запрос, он просто обрабатывается как анонимный.
// Что разрешено анонимному пользователю, решают обработчики
func (g *RequestGate) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		principal := g.authenticate(r)
		if principal != nil {
			ctx = WithPrincipal(ctx, principal)
			r = r.WithContext(ctx)
		}

		if g.limiter == nil {
			next.ServeHTTP(w, r)
			return
		}

		decision, err := g.limiter.Admit(ctx, RateLimitKey(r, principal))
		if err != nil {
			if !errors.Is(err, model.ErrRateLimitExceeded) {
				log.Printf("[RequestGate] ошибка rate limiter: %v", err)
			}
			retryAfter := "1"
			if decision != nil && decision.RetryAfterSeconds > 0 {
				retryAfter = strconv.FormatInt(decision.RetryAfterSeconds, 10)
			}
			w.Header().Set(HeaderRateLimitRetryAfter, retryAfter)
			w.Header().Set("Retry-After", retryAfter)
			util.HandleError(w, "превышен лимит запросов", http.StatusTooManyRequests)
			return
		}

		if decision.Remaining >= 0 {
			w.Header().Set(HeaderRateLimitRemaining, strconv.FormatInt(decision.Remaining, 10))
		}
		next.ServeHTTP(w, r)
	})
}

func (g *RequestGate) authenticate(r *http.Request) *model.Principal {
	token, ok := BearerToken(r)
	if !ok {
		return nil
	}

	principal, err := g.tokens.Validate(r.Context(), token)
	if err != nil {
		return nil
	}
	return principal
}

// BearerToken извлекает токен из заголовка Authorization: Bearer <token>
func BearerToken(r *http.Request) (string, bool) {
	authorizationHeader := r.Header.Get("Authorization")
	parts := strings.SplitN(authorizationHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}

	token := strings.TrimSpace(parts[1])
	if token == "" || strings.Count(token, ".") != 2 {
		return "", false
	}
	return token, true
}

// RateLimitKey : user:<id> для аутентифицированных запросов, иначе ip:<адрес клиента>
func RateLimitKey(r *http.Request, principal *model.Principal) string {
	if principal != nil {
		return "user:" + principal.ID
	}
	return "ip:" + ClientIP(r)
}

// ClientIP : первый адрес из X-Forwarded-For, иначе адрес соединения
func ClientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
