package repository

import (
	"context"
	"fmt"
	"internship-auth/config"
	"internship-auth/internal/model"
	"internship-auth/internal/util"
	"math"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const rateLimitPrefix = "ratelimit:"

// takeTokenScript : greedy token bucket. Пополнение считается по прошедшему времени
// в момент запроса, фоновых таймеров нет.
// KEYS: бакет. ARGV: емкость, скорость (токенов в мс), текущее время (мс), ttl (мс)
var takeTokenScript = redis.NewScript(`
local capacity = tonumber(ARGV[1])
local rate = tonumber(ARGV[2])
local now = tonumber(ARGV[3])
local state = redis.call('HMGET', KEYS[1], 'tokens', 'ts')
local tokens = capacity
local ts = now
if state[1] and state[2] then
	tokens = tonumber(state[1])
	ts = tonumber(state[2])
end
if now > ts then
	tokens = math.min(capacity, tokens + (now - ts) * rate)
	ts = now
end
local allowed = 0
if tokens >= 1 then
	tokens = tokens - 1
	allowed = 1
end
redis.call('HSET', KEYS[1], 'tokens', tostring(tokens), 'ts', tostring(ts))
redis.call('PEXPIRE', KEYS[1], ARGV[4])
return {allowed, tostring(tokens)}
`)

// RateLimitRepository : бакеты rate limit в Redis
type RateLimitRepository struct {
	client *config.RedisClient
}

func NewRateLimitRepository(rdb *config.RedisClient) *RateLimitRepository {
	return &RateLimitRepository{rdb}
}

// TakeToken атомарно пополняет бакет и пытается забрать из него один токен.
// Бакет создается при первом обращении и исчезает сам, когда успел бы полностью наполниться
func (r *RateLimitRepository) TakeToken(ctx context.Context, key string, capacity int64, refillPerSecond float64, now time.Time) (*model.BucketState, error) {
	ctx, cancel := r.client.WithTimeout(ctx)
	defer cancel()

	perMilli := refillPerSecond / 1000
	result, err := takeTokenScript.Run(ctx, r.client.Client, []string{r.key(key)},
		capacity,
		strconv.FormatFloat(perMilli, 'g', -1, 64),
		now.UnixMilli(),
		bucketTTL(capacity, refillPerSecond).Milliseconds(),
	).Slice()
	if err != nil {
		return nil, util.LogError("[RateLimitRepo] ошибка обновления бакета в Redis", err)
	}
	if len(result) != 2 {
		return nil, fmt.Errorf("[RateLimitRepo] неожиданный ответ Redis: %v", result)
	}

	allowed, ok := result[0].(int64)
	if !ok {
		return nil, fmt.Errorf("[RateLimitRepo] неожиданный ответ Redis: %v", result)
	}
	raw, ok := result[1].(string)
	if !ok {
		return nil, fmt.Errorf("[RateLimitRepo] неожиданный ответ Redis: %v", result)
	}
	tokens, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, util.LogError("[RateLimitRepo] ошибка разбора остатка токенов", err)
	}

	return &model.BucketState{Allowed: allowed == 1, Tokens: tokens}, nil
}

func (r *RateLimitRepository) key(key string) string {
	return fmt.Sprintf("%s%s", rateLimitPrefix, key)
}

// bucketTTL : время полного наполнения пустого бакета плюс запас.
// После него отсутствующий бакет эквивалентен полному
func bucketTTL(capacity int64, refillPerSecond float64) time.Duration {
	if refillPerSecond <= 0 {
		return 24 * time.Hour
	}
	seconds := math.Ceil(float64(capacity)/refillPerSecond) + 1
	return time.Duration(seconds) * time.Second
}
