package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type ServerConfig struct {
	Port           string `yaml:"port"`
	AllowedOrigins string `yaml:"allowed_origins"`
}

type DatabaseConfig struct {
	Path          string `yaml:"path"`
	EncryptionKey string `yaml:"encryption_key"`
	RunMigrations bool   `yaml:"run_migrations"`
}

type AuthConfig struct {
	JWTSecret           string `yaml:"jwt_secret"`
	RefreshSecret       string `yaml:"refresh_secret"`
	AccessTokenMinutes  int    `yaml:"access_token_minutes"`
	RefreshTokenDays    int    `yaml:"refresh_token_days"`
	RememberRefreshDays int    `yaml:"remember_refresh_days"`
	CookieSecure        bool   `yaml:"cookie_secure"`
	DisableRegistration bool   `yaml:"disable_registration"`
}

type HabitsConfig struct {
	DefaultTimezone string `yaml:"default_timezone"`
}

type PushConfig struct {
	VAPIDPublicKey  string `yaml:"vapid_public_key"`
	VAPIDPrivateKey string `yaml:"vapid_private_key"`
	VAPIDSubject    string `yaml:"vapid_subject"`
	TTL             int    `yaml:"ttl"`
}

type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Auth     AuthConfig     `yaml:"auth"`
	Habits   HabitsConfig   `yaml:"habits"`
	Push     PushConfig     `yaml:"push"`
	Log      LogConfig      `yaml:"log"`
}

// Default returns the configuration used when no file or environment overrides are present.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:           "3000",
			AllowedOrigins: "http://localhost:80,http://localhost:5173",
		},
		Database: DatabaseConfig{Path: "./data/habitd.db"},
		Auth: AuthConfig{
			AccessTokenMinutes:  15,
			RefreshTokenDays:    7,
			RememberRefreshDays: 30,
			CookieSecure:        true,
		},
		Habits: HabitsConfig{DefaultTimezone: "UTC"},
		Push:   PushConfig{TTL: 30},
		Log:    LogConfig{Level: "info"},
	}
}

// Load reads path (if it exists) over the defaults and then applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to decode %s: %w", path, err)
			}
		case errors.Is(err, os.ErrNotExist):
		default:
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
	}
	overrideFromEnv(cfg)
	return cfg, nil
}

func overrideFromEnv(cfg *Config) {
	setString(&cfg.Server.Port, "PORT")
	if v := strings.TrimSpace(os.Getenv("ALLOWED_ORIGINS")); v != "" {
		cfg.Server.AllowedOrigins = normalizeOrigins(v)
	}

	setString(&cfg.Database.Path, "DB_PATH")
	setString(&cfg.Database.EncryptionKey, "DB_ENCRYPTION_KEY")
	setBool(&cfg.Database.RunMigrations, "RUN_MIGRATIONS")

	setString(&cfg.Auth.JWTSecret, "JWT_SECRET")
	setString(&cfg.Auth.RefreshSecret, "JWT_REFRESH_SECRET")
	setPositiveInt(&cfg.Auth.AccessTokenMinutes, "ACCESS_TOKEN_MINUTES")
	setPositiveInt(&cfg.Auth.RefreshTokenDays, "REFRESH_TOKEN_DAYS")
	setPositiveInt(&cfg.Auth.RememberRefreshDays, "REMEMBER_REFRESH_DAYS")
	setBool(&cfg.Auth.CookieSecure, "COOKIE_SECURE")
	setBool(&cfg.Auth.DisableRegistration, "DISABLE_REGISTRATION")

	setString(&cfg.Habits.DefaultTimezone, "DEFAULT_TIMEZONE")

	setString(&cfg.Push.VAPIDPublicKey, "VAPID_PUBLIC_KEY")
	setString(&cfg.Push.VAPIDPrivateKey, "VAPID_PRIVATE_KEY")
	setString(&cfg.Push.VAPIDSubject, "VAPID_SUBJECT")

	setString(&cfg.Log.Level, "LOG_LEVEL")
	setBool(&cfg.Log.Development, "LOG_DEVELOPMENT")
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setPositiveInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			*dst = n
		}
	}
}

func normalizeOrigins(v string) string {
	if v == "*" {
		return v
	}
	parts := strings.Split(v, ",")
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
	}
	return strings.Join(parts, ",")
}

// Validate checks the settings the server cannot start without.
func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return errors.New("JWT_SECRET is required and must not be empty")
	}
	if len(c.Auth.JWTSecret) < 32 {
		return errors.New("JWT_SECRET must be at least 32 characters long")
	}
	if _, err := time.LoadLocation(c.Habits.DefaultTimezone); err != nil {
		return fmt.Errorf("invalid default timezone %q: %w", c.Habits.DefaultTimezone, err)
	}
	return nil
}

// PushEnabled reports whether VAPID keys are configured.
func (c PushConfig) PushEnabled() bool {
	return c.VAPIDPublicKey != "" && c.VAPIDPrivateKey != "" && c.VAPIDSubject != ""
}
