package handler

import (
	"context"
	"internship-auth/internal/model/requestresponse"
	"log"
	"net/http"
	"time"
)

// Pinger : зависимость, доступность которой проверяет /healthz
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	redis    Pinger
	database Pinger
}

func NewHealthHandler(redis Pinger, database Pinger) *HealthHandler {
	return &HealthHandler{redis: redis, database: database}
}

// Health godoc
// @Summary Проверка состояния
// @Description Проверяет доступность Redis и базы данных
// @Tags Health
// @Produce json
// @Success 200 {object} requestresponse.HealthResponse
// @Failure 503 {object} requestresponse.HealthResponse
// @Router /healthz [get]
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	resp := requestresponse.HealthResponse{
		Status:   "ok",
		Redis:    check(ctx, "redis", h.redis),
		Database: check(ctx, "database", h.database),
	}

	code := http.StatusOK
	if resp.Redis == "down" || resp.Database == "down" {
		resp.Status = "unavailable"
		code = http.StatusServiceUnavailable
	}
	sendJSON(w, code, resp)
}

func check(ctx context.Context, name string, p Pinger) string {
	if p == nil {
		return "disabled"
	}
	if err := p.Ping(ctx); err != nil {
		log.Printf("[HealthHandler] %s недоступен: %v", name, err)
		return "down"
	}
	return "ok"
}
