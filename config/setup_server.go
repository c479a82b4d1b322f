package config

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"gopkg.in/yaml.v3"
)

type AppConfig struct {
	DatabaseConfig DatabaseConfig  `yaml:"databaseConfig"`
	RedisConfig    RedisConfig     `yaml:"redisConfig"`
	ServerAddr     string          `yaml:"serverAddr"`
	S3Config       S3Config        `yaml:"s3Config"`
	JWT            JWTConfig       `yaml:"jwt"`
	RateLimit      RateLimitConfig `yaml:"rateLimit"`
	Cookie         CookieConfig    `yaml:"cookie"`
}

const (
	defaultServerAddr         = ":8080"
	defaultIssuer             = "nextintern-api"
	defaultAccessTokenTTL     = 15 * time.Minute
	defaultRefreshTokenTTL    = 7 * 24 * time.Hour
	defaultRefreshGracePeriod = 30 * time.Second
	defaultCapacity           = 200
	defaultRefillTokens       = 100
	defaultRefillPeriod       = 60 * time.Second
	defaultOperationTimeout   = 500 * time.Millisecond
	defaultCookieName         = "refreshToken"
	defaultCookiePath         = "/api/v1/auth"
)

// LoadConfig читает yaml-файл конфигурации, применяет переменные окружения
// и значения по умолчанию, затем проверяет результат
func LoadConfig(path string) (*AppConfig, error) {
	file, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// rate limit включен, если в файле явно не указано обратное
	cfg := AppConfig{RateLimit: RateLimitConfig{Enabled: true}}
	if err := yaml.Unmarshal(file, &cfg); err != nil {
		return nil, err
	}

	cfg.applyEnv()
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *AppConfig) applyEnv() {
	overrides := map[string]*string{
		"SERVER_ADDR":              &c.ServerAddr,
		"DATABASE_DSN":             &c.DatabaseConfig.DSN,
		"REDIS_ADDR":               &c.RedisConfig.Addr,
		"REDIS_PASSWORD":           &c.RedisConfig.Password,
		"JWT_PRIVATE_KEY_LOCATION": &c.JWT.PrivateKeyLocation,
		"JWT_PUBLIC_KEY_LOCATION":  &c.JWT.PublicKeyLocation,
	}
	for name, field := range overrides {
		if value, ok := os.LookupEnv(name); ok && strings.TrimSpace(value) != "" {
			*field = value
		}
	}
}

func (c *AppConfig) applyDefaults() {
	if c.ServerAddr == "" {
		c.ServerAddr = defaultServerAddr
	}
	if c.JWT.Issuer == "" {
		c.JWT.Issuer = defaultIssuer
	}
	if c.JWT.AccessTokenTTL == 0 {
		c.JWT.AccessTokenTTL = defaultAccessTokenTTL
	}
	if c.JWT.RefreshTokenTTL == 0 {
		c.JWT.RefreshTokenTTL = defaultRefreshTokenTTL
	}
	if c.JWT.RefreshGracePeriod == 0 {
		c.JWT.RefreshGracePeriod = defaultRefreshGracePeriod
	}
	if c.RateLimit.Capacity == 0 {
		c.RateLimit.Capacity = defaultCapacity
	}
	if c.RateLimit.RefillTokens == 0 {
		c.RateLimit.RefillTokens = defaultRefillTokens
	}
	if c.RateLimit.RefillPeriod == 0 {
		c.RateLimit.RefillPeriod = defaultRefillPeriod
	}
	if c.RedisConfig.OperationTimeout == 0 {
		c.RedisConfig.OperationTimeout = defaultOperationTimeout
	}
	if c.Cookie.Name == "" {
		c.Cookie.Name = defaultCookieName
	}
	if c.Cookie.Path == "" {
		c.Cookie.Path = defaultCookiePath
	}
}

// Validate проверяет значения, без которых сервер не может корректно выдавать токены
func (c *AppConfig) Validate() error {
	var errs []error

	if c.JWT.PrivateKeyLocation == "" || c.JWT.PublicKeyLocation == "" {
		errs = append(errs, errors.New("не указано расположение ключей подписи"))
	}
	if c.JWT.AccessTokenTTL < 0 || c.JWT.RefreshTokenTTL < 0 || c.JWT.RefreshGracePeriod < 0 {
		errs = append(errs, errors.New("время жизни токенов должно быть положительным"))
	}
	if c.JWT.RefreshGracePeriod >= c.JWT.RefreshTokenTTL {
		errs = append(errs, fmt.Errorf("grace-период (%s) должен быть меньше времени жизни refresh-токена (%s)",
			c.JWT.RefreshGracePeriod, c.JWT.RefreshTokenTTL))
	}
	if c.RateLimit.Capacity < 1 || c.RateLimit.RefillTokens < 1 || c.RateLimit.RefillPeriod < 0 {
		errs = append(errs, errors.New("некорректные параметры rate limit"))
	}
	if c.RedisConfig.OperationTimeout < 0 {
		errs = append(errs, errors.New("таймаут операций Redis должен быть положительным"))
	}

	return errors.Join(errs...)
}

func SetupServer(serverAddress string) (*http.Server, *chi.Mux) {
	router := chi.NewRouter()
	server := &http.Server{
		Addr:              serverAddress,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return server, router
}

func SetupDatabase(dsn string) (*Database, error) {
	return NewDatabaseConnection("postgres", dsn)
}

func SetupRedis(cfg *RedisConfig) (*RedisClient, error) {
	return NewRedisClient(cfg)
}
