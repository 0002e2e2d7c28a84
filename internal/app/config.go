package app

import (
	"time"

	"github.com/veldtops/fieldsuite-backend/internal/platform/envutil"
	"github.com/veldtops/fieldsuite-backend/internal/services"
)

// Config collects the boot-time knobs. Client credentials and tuning envs
// are read where they are used; only values threaded through constructors
// live here.
type Config struct {
	Port string

	Auth services.AuthConfig
	Mail services.MailConfig

	RedisAddr     string
	WorkerEnabled bool
}

func LoadConfig() Config {
	return Config{
		Port: envutil.String("PORT", "8080"),
		Auth: services.AuthConfig{
			JWTSecretKey:    envutil.String("JWT_SECRET_KEY", ""),
			AccessTokenTTL:  envutil.Duration("ACCESS_TOKEN_TTL", time.Hour),
			RefreshTokenTTL: envutil.Duration("REFRESH_TOKEN_TTL", 30*24*time.Hour),
		},
		Mail:          services.MailConfigFromEnv(),
		RedisAddr:     envutil.String("REDIS_ADDR", ""),
		WorkerEnabled: envutil.Bool("WORKER_ENABLED", true),
	}
}
