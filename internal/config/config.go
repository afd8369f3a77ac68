package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	envDevelopment = "development"

	// MinSecretBytes is the shortest HS256 secret accepted outside development.
	MinSecretBytes = 32

	devJWTSecret = "dev-secret-change-me-dev-secret-change-me"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App      AppConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Logger   LoggerConfig
	Auth     AuthConfig
	HTTP     HTTPConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// PostgresConfig holds the user store connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig points at the login throttle store.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type LoggerConfig struct {
	Level string
}

// AuthConfig covers token signing, password hashing and login throttling.
type AuthConfig struct {
	JWTSecret              string
	AccessTokenTTLMinutes  int
	RefreshTokenTTLMinutes int
	BcryptCost             int
	// LoginMaxAttempts failures within LoginLockoutMinutes block further logins. Zero disables throttling.
	LoginMaxAttempts    int
	LoginLockoutMinutes int
	// PublicPrefix is the login/registration surface that skips token processing.
	PublicPrefix string
}

// HTTPConfig holds cross-origin and public file serving settings.
type HTTPConfig struct {
	CORSAllowedOrigin string
	UploadDir         string
	FilesPublicPrefix string
}

// Load reads an optional .env file, then the environment, and validates the result.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redis, err := loadRedis()
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		App:      loadApp(),
		Postgres: loadPostgres(),
		Redis:    redis,
		Logger:   LoggerConfig{Level: envString("LOG_LEVEL", "info")},
		Auth:     loadAuth(),
		HTTP:     loadHTTP(),
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadApp() AppConfig {
	return AppConfig{
		Name:                  envString("APP_NAME", "inventory-auth"),
		Env:                   envString("APP_ENV", envDevelopment),
		Host:                  envString("APP_HOST", "0.0.0.0"),
		Port:                  envString("APP_PORT", "8080"),
		Version:               envString("APP_VERSION", "dev"),
		RequestTimeoutSeconds: envInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
	}
}

func loadPostgres() PostgresConfig {
	return PostgresConfig{
		DSN:            os.Getenv("POSTGRES_DSN"),
		MaxConns:       int32(envInt("POSTGRES_MAX_CONNS", 10)),
		MinConns:       int32(envInt("POSTGRES_MIN_CONNS", 2)),
		RunMigrations:  envBool("POSTGRES_RUN_MIGRATIONS", true),
		ConnMaxIdleSec: int32(envInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
		ConnMaxLifeSec: int32(envInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
	}
}

func loadRedis() (RedisConfig, error) {
	db, err := strconv.Atoi(envString("REDIS_DB", "0"))
	if err != nil {
		return RedisConfig{}, fmt.Errorf("invalid REDIS_DB: %w", err)
	}
	return RedisConfig{
		Addr:     envString("REDIS_ADDR", "127.0.0.1:6379"),
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       db,
	}, nil
}

func loadAuth() AuthConfig {
	return AuthConfig{
		JWTSecret:              os.Getenv("AUTH_JWT_SECRET"),
		AccessTokenTTLMinutes:  envInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
		RefreshTokenTTLMinutes: envInt("AUTH_REFRESH_TOKEN_TTL_MINUTES", 7*24*60),
		BcryptCost:             envInt("AUTH_BCRYPT_COST", 12),
		LoginMaxAttempts:       envInt("AUTH_LOGIN_MAX_ATTEMPTS", 5),
		LoginLockoutMinutes:    envInt("AUTH_LOGIN_LOCKOUT_MINUTES", 15),
		PublicPrefix:           envString("AUTH_PUBLIC_PREFIX", "/api/auth"),
	}
}

func loadHTTP() HTTPConfig {
	return HTTPConfig{
		CORSAllowedOrigin: envString("CORS_ALLOWED_ORIGIN", "http://localhost:4200"),
		UploadDir:         envString("FILES_UPLOAD_DIR", "uploads"),
		FilesPublicPrefix: envString("FILES_PUBLIC_PREFIX", "/api/files/uploads"),
	}
}

func (c *Config) validate() error {
	if c.Auth.JWTSecret == "" {
		if !c.App.IsDevelopment() {
			return errors.New("AUTH_JWT_SECRET is required outside development")
		}
		c.Auth.JWTSecret = devJWTSecret
	}
	if !c.App.IsDevelopment() && len(c.Auth.JWTSecret) < MinSecretBytes {
		return fmt.Errorf("AUTH_JWT_SECRET must be at least %d bytes", MinSecretBytes)
	}
	if c.Auth.LoginMaxAttempts < 0 {
		return errors.New("AUTH_LOGIN_MAX_ATTEMPTS must not be negative")
	}
	return nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return a.Host + ":" + a.Port
}

func (a AppConfig) IsDevelopment() bool {
	return a.Env == envDevelopment
}

// RequestTimeout is zero when timeouts are disabled.
func (a AppConfig) RequestTimeout() time.Duration {
	return durationOr(a.RequestTimeoutSeconds, time.Second, 0)
}

func (a AuthConfig) AccessTokenTTL() time.Duration {
	return durationOr(a.AccessTokenTTLMinutes, time.Minute, time.Hour)
}

func (a AuthConfig) RefreshTokenTTL() time.Duration {
	return durationOr(a.RefreshTokenTTLMinutes, time.Minute, 7*24*time.Hour)
}

// LoginLockout is the window in which failed logins are counted.
func (a AuthConfig) LoginLockout() time.Duration {
	return durationOr(a.LoginLockoutMinutes, time.Minute, 15*time.Minute)
}

func durationOr(n int, unit, fallback time.Duration) time.Duration {
	if n <= 0 {
		return fallback
	}
	return time.Duration(n) * unit
}

func envString(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok && val != "" {
		return val
	}
	return fallback
}

func envInt(key string, fallback int) int {
	parsed, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return parsed
}

func envBool(key string, fallback bool) bool {
	parsed, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return parsed
}
