package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "3000", cfg.Server.Port)
	assert.Equal(t, 15, cfg.Auth.AccessTokenMinutes)
	assert.Equal(t, "UTC", cfg.Habits.DefaultTimezone)
	assert.True(t, cfg.Auth.CookieSecure)
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
server:
  port: "8080"
database:
  path: /tmp/h.db
auth:
  jwt_secret: from-file-from-file-from-file-0000
  access_token_minutes: 5
habits:
  default_timezone: America/Bogota
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	t.Setenv("PORT", "9090")
	t.Setenv("ACCESS_TOKEN_MINUTES", "-3")
	t.Setenv("ALLOWED_ORIGINS", " https://a.example , https://b.example ")
	t.Setenv("COOKIE_SECURE", "false")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "/tmp/h.db", cfg.Database.Path)
	assert.Equal(t, 5, cfg.Auth.AccessTokenMinutes, "invalid env values are ignored")
	assert.Equal(t, "https://a.example,https://b.example", cfg.Server.AllowedOrigins)
	assert.False(t, cfg.Auth.CookieSecure)
	assert.Equal(t, "America/Bogota", cfg.Habits.DefaultTimezone)
}

func TestLoad_BadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [unterminated"), 0644))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	assert.Error(t, cfg.Validate())

	cfg.Auth.JWTSecret = "short"
	assert.Error(t, cfg.Validate())

	cfg.Auth.JWTSecret = strings.Repeat("s", 32)
	assert.NoError(t, cfg.Validate())

	cfg.Habits.DefaultTimezone = "Mars/Olympus"
	assert.Error(t, cfg.Validate())
}
