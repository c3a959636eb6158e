package config

// Redis backs the distributed rate limiter and the table response cache.
// When the server cannot be reached at startup NewRedisClient returns nil and
// callers degrade: caching turns off and rate limiting falls back to an
// in-process limiter.

import (
	"context"
	"crypto/tls"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/redis/go-redis/v9"
)

// RedisConfig holds connection parameters.  REDIS_ADDR wins over host/port
// when both are given.
type RedisConfig struct {
	Host     string `env:"REDIS_HOST"`
	Port     string `env:"REDIS_PORT"`
	Addr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
	TLS      bool   `env:"REDIS_TLS" envDefault:"false"`
	Disabled bool   `env:"REDIS_DISABLED" envDefault:"false"`
}

func LoadRedisConfig() RedisConfig {
	var cfg RedisConfig
	if err := env.Parse(&cfg); err != nil {
		cfg = RedisConfig{Addr: "localhost:6379"}
	}
	return cfg
}

func (c RedisConfig) address() string {
	if c.Addr != "" && (c.Host == "" || c.Port == "") {
		return c.Addr
	}
	if c.Host != "" && c.Port != "" {
		return c.Host + ":" + c.Port
	}
	return "localhost:6379"
}

// NewRedisClient dials Redis and pings it with a short timeout.  The returned
// client is nil when Redis is disabled or unreachable.
func NewRedisClient(cfg RedisConfig) *redis.Client {
	if cfg.Disabled {
		return nil
	}
	var tlsConf *tls.Config
	if cfg.TLS {
		tlsConf = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(&redis.Options{
		Addr:      cfg.address(),
		Password:  cfg.Password,
		DB:        cfg.DB,
		TLSConfig: tlsConf,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil
	}
	return client
}
