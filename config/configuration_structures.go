package config

import "time"

type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

type RedisConfig struct {
	Addr             string        `yaml:"addr"`
	Password         string        `yaml:"password"`
	DB               int           `yaml:"db"`
	DialTimeout      time.Duration `yaml:"dial_timeout"`
	ReadTimeout      time.Duration `yaml:"read_timeout"`
	WriteTimeout     time.Duration `yaml:"write_timeout"`
	OperationTimeout time.Duration `yaml:"operation_timeout"`
}

// S3Config : хранилище, из которого можно загрузить ключи подписи (s3://bucket/key)
type S3Config struct {
	Region   string `yaml:"region"`
	Endpoint string `yaml:"endpoint"`
	Local    bool   `yaml:"local"`
}

type JWTConfig struct {
	Issuer             string        `yaml:"issuer"`
	PrivateKeyLocation string        `yaml:"private_key_location"`
	PublicKeyLocation  string        `yaml:"public_key_location"`
	AccessTokenTTL     time.Duration `yaml:"access_token_ttl"`
	RefreshTokenTTL    time.Duration `yaml:"refresh_token_ttl"`
	RefreshGracePeriod time.Duration `yaml:"refresh_grace_period"`
}

// RateLimitConfig : token bucket на каждого пользователя / ip.
// RefillTokens токенов восстанавливаются равномерно за RefillPeriod
type RateLimitConfig struct {
	Enabled      bool          `yaml:"enabled"`
	Capacity     int64         `yaml:"capacity"`
	RefillTokens int64         `yaml:"refill_tokens"`
	RefillPeriod time.Duration `yaml:"refill_period"`
	FailOpen     bool          `yaml:"fail_open"`
}

// RefillPerSecond возвращает скорость пополнения бакета в токенах в секунду
func (c RateLimitConfig) RefillPerSecond() float64 {
	if c.RefillPeriod <= 0 {
		return 0
	}
	return float64(c.RefillTokens) / c.RefillPeriod.Seconds()
}

// CookieConfig : refresh-токен живет только в HttpOnly cookie.
// Insecure нужен только для локальной разработки без TLS
type CookieConfig struct {
	Name     string `yaml:"name"`
	Path     string `yaml:"path"`
	Insecure bool   `yaml:"insecure"`
}
