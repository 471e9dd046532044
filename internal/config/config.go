// Package config handles configuration loading for the API server.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const defaultSecretPrefix = "default_"

// Config holds runtime configuration read from the environment.
type Config struct {
	AppEnv string `envconfig:"APP_ENV" default:"development"`
	Port   string `envconfig:"PORT" default:"8080"`

	DBHost     string `envconfig:"DB_HOST" default:"localhost"`
	DBPort     string `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER" default:"postgres"`
	DBPassword string `envconfig:"DB_PASSWORD" default:"postgres"`
	DBName     string `envconfig:"DB_NAME" default:"postgres"`
	DBSslMode  string `envconfig:"DB_SSLMODE" default:"disable"`

	RedisAddr     string        `envconfig:"REDIS_ADDR"`
	RedisPassword string        `envconfig:"REDIS_PASSWORD"`
	AuthzCacheTTL time.Duration `envconfig:"AUTHZ_CACHE_TTL" default:"5m"`

	JWTAdminSecret  string        `envconfig:"JWT_ADMIN_SECRET" default:"default_admin_secret"`
	JWTClientSecret string        `envconfig:"JWT_CLIENT_SECRET" default:"default_client_secret"`
	JWTDeviceSecret string        `envconfig:"JWT_DEVICE_SECRET" default:"default_device_secret"`
	JWTExpiresIn    time.Duration `envconfig:"JWT_EXPIRES_IN" default:"24h"`

	LoginRetryLimit   int           `envconfig:"LOGIN_RETRY_LIMIT" default:"3"`
	LoginReactiveTime time.Duration `envconfig:"LOGIN_REACTIVE_TIME" default:"2m"`

	PermissionManifest string `envconfig:"PERMISSION_MANIFEST"`
	SeedOnBoot         bool   `envconfig:"SEED_ON_BOOT" default:"true"`

	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"text"`

	CORSOrigins []string `envconfig:"CORS_ORIGINS" default:"http://localhost:5173,http://127.0.0.1:5173"`
}

// Load reads configs/.env when present and then the process environment.
func Load() (*Config, error) {
	// Missing .env is normal outside local development
	_ = godotenv.Load("configs/.env")

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects development fallbacks in production.
func (c *Config) Validate() error {
	if c.JWTExpiresIn <= 0 {
		return errors.New("config: JWT_EXPIRES_IN must be positive")
	}
	if c.LoginRetryLimit > 0 && c.LoginReactiveTime <= 0 {
		return errors.New("config: LOGIN_REACTIVE_TIME must be positive when LOGIN_RETRY_LIMIT is set")
	}
	if !c.IsProduction() {
		return nil
	}
	for name, secret := range map[string]string{
		"JWT_ADMIN_SECRET":  c.JWTAdminSecret,
		"JWT_CLIENT_SECRET": c.JWTClientSecret,
		"JWT_DEVICE_SECRET": c.JWTDeviceSecret,
	} {
		if secret == "" || strings.HasPrefix(secret, defaultSecretPrefix) {
			return fmt.Errorf("config: %s is required in production", name)
		}
	}
	return nil
}

// IsProduction returns true when the application runs in production.
func (c *Config) IsProduction() bool {
	return c != nil && c.AppEnv == "production"
}

// DSN builds the postgres connection string.
func (c *Config) DSN() string {
	return "postgres://" + c.DBUser + ":" + c.DBPassword + "@" + c.DBHost + ":" + c.DBPort + "/" + c.DBName + "?sslmode=" + c.DBSslMode
}
