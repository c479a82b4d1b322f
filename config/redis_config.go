package config

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisClient : общее хранилище состояния для всех инстансов сервиса
// (blocklist, refresh-токены, бакеты rate limit)
type RedisClient struct {
	Client           *redis.Client
	OperationTimeout time.Duration
}

func NewRedisClient(cfg *RedisConfig) (*RedisClient, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout(cfg))
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ошибка пинга Redis: %w", err)
	}

	log.Println("Подключение к Redis успешно выполнено")
	return &RedisClient{
		Client:           client,
		OperationTimeout: cfg.OperationTimeout,
	}, nil
}

// WrapRedisClient оборачивает уже созданный клиент (используется в тестах)
func WrapRedisClient(client *redis.Client, operationTimeout time.Duration) *RedisClient {
	return &RedisClient{Client: client, OperationTimeout: operationTimeout}
}

// WithTimeout ограничивает время одного обращения к Redis
func (c *RedisClient) WithTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.OperationTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.OperationTimeout)
}

func (c *RedisClient) Ping(ctx context.Context) error {
	ctx, cancel := c.WithTimeout(ctx)
	defer cancel()
	return c.Client.Ping(ctx).Err()
}

func (c *RedisClient) Close() error {
	if err := c.Client.Close(); err != nil {
		return fmt.Errorf("ошибка закрытия соединения с Redis: %w", err)
	}
	return nil
}

func pingTimeout(cfg *RedisConfig) time.Duration {
	if cfg.DialTimeout > 0 {
		return cfg.DialTimeout
	}
	return 5 * time.Second
}
