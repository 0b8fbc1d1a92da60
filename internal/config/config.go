package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const DefaultJWTSecret = "dev-secret-change-me"

type Config struct {
	HTTPAddr string
	GRPCAddr string
	DBPath   string

	JWTSecret      string
	AccessTokenTTL time.Duration
	PageSize       int

	LogLevel  string
	LogFormat string

	MailBackend  string
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	MailFrom     string
}

// Load reads an optional .env file from the working directory, then the
// environment. Variables already set in the environment win over .env.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	return FromEnv(os.LookupEnv)
}

// FromEnv builds a Config from lookup, applying defaults and validation.
func FromEnv(lookup func(string) (string, bool)) (Config, error) {
	get := func(key, def string) string {
		if v, ok := lookup(key); ok {
			return v
		}
		return def
	}

	cfg := Config{
		HTTPAddr:     get("HTTP_ADDR", ":8080"),
		GRPCAddr:     get("GRPC_ADDR", ":50051"),
		DBPath:       get("DB_PATH", "./data/yamdb.db"),
		JWTSecret:    get("JWT_SECRET", DefaultJWTSecret),
		LogLevel:     get("LOG_LEVEL", "info"),
		LogFormat:    get("LOG_FORMAT", "console"),
		MailBackend:  get("MAIL_BACKEND", "console"),
		SMTPHost:     get("SMTP_HOST", ""),
		SMTPUsername: get("SMTP_USERNAME", ""),
		SMTPPassword: get("SMTP_PASSWORD", ""),
		MailFrom:     get("DEFAULT_FROM_EMAIL", "noreply@yamdb.local"),
	}

	var err error
	if cfg.AccessTokenTTL, err = time.ParseDuration(get("ACCESS_TOKEN_TTL", "24h")); err != nil {
		return Config{}, fmt.Errorf("invalid ACCESS_TOKEN_TTL: %w", err)
	}
	if cfg.AccessTokenTTL <= 0 {
		return Config{}, errors.New("ACCESS_TOKEN_TTL must be positive")
	}
	if cfg.PageSize, err = strconv.Atoi(get("PAGE_SIZE", "10")); err != nil || cfg.PageSize <= 0 {
		return Config{}, errors.New("invalid PAGE_SIZE env variable")
	}
	if cfg.SMTPPort, err = strconv.Atoi(get("SMTP_PORT", "25")); err != nil {
		return Config{}, errors.New("invalid SMTP_PORT env variable")
	}

	switch cfg.MailBackend {
	case "console", "memory":
	case "smtp":
		if cfg.SMTPHost == "" {
			return Config{}, errors.New("SMTP_HOST required when MAIL_BACKEND=smtp")
		}
	default:
		return Config{}, fmt.Errorf("unknown MAIL_BACKEND %q", cfg.MailBackend)
	}
	switch cfg.LogFormat {
	case "console", "json":
	default:
		return Config{}, fmt.Errorf("unknown LOG_FORMAT %q", cfg.LogFormat)
	}
	if cfg.JWTSecret == "" {
		return Config{}, errors.New("JWT_SECRET must not be empty")
	}
	if cfg.DBPath == "" {
		return Config{}, errors.New("DB_PATH must not be empty")
	}
	return cfg, nil
}

// InsecureSecret reports whether the built-in development secret is in use.
func (c Config) InsecureSecret() bool {
	return c.JWTSecret == DefaultJWTSecret
}
