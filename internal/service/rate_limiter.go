package service

import (
	"context"
	"fmt"
	"internship-auth/config"
	"internship-auth/internal/model"
	"internship-auth/internal/ports"
	"log"
	"math"
	"time"
)

// RateLimiter : распределенный token bucket на каждого пользователя или ip
type RateLimiter struct {
	store ports.BucketStore
	cfg   config.RateLimitConfig
	now   func() time.Time
}

func NewRateLimiter(store ports.BucketStore, cfg config.RateLimitConfig, now func() time.Time) *RateLimiter {
	if now == nil {
		now = time.Now
	}
	return &RateLimiter{
		store: store,
		cfg:   cfg,
		now:   now,
	}
}

// Admit забирает один токен из бакета ключа.
// При отказе возвращает решение вместе с model.ErrRateLimitExceeded.
// Если хранилище недоступно, решение зависит от FailOpen
func (l *RateLimiter) Admit(ctx context.Context, key string) (*model.AdmissionDecision, error) {
	refill := l.cfg.RefillPerSecond()

	state, err := l.store.TakeToken(ctx, key, l.cfg.Capacity, refill, l.now())
	if err != nil {
		log.Printf("[RateLimiter] хранилище бакетов недоступно для %s: %v", key, err)
		if l.cfg.FailOpen {
			return &model.AdmissionDecision{Allowed: true, Remaining: -1}, nil
		}
		decision := &model.AdmissionDecision{RetryAfterSeconds: 1}
		return decision, fmt.Errorf("%w: хранилище недоступно", model.ErrRateLimitExceeded)
	}

	if state.Allowed {
		return &model.AdmissionDecision{
			Allowed:   true,
			Remaining: int64(math.Floor(state.Tokens)),
		}, nil
	}

	decision := &model.AdmissionDecision{
		RetryAfterSeconds: retryAfterSeconds(state.Tokens, refill),
	}
	return decision, model.ErrRateLimitExceeded
}

// retryAfterSeconds : через сколько целых секунд в бакете будет хотя бы один токен
func retryAfterSeconds(tokens, refillPerSecond float64) int64 {
	if refillPerSecond <= 0 {
		return math.MaxInt32
	}
	seconds := int64(math.Ceil((1 - tokens) / refillPerSecond))
	if seconds < 1 {
		return 1
	}
	return seconds
}
