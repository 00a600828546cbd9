package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnv_Defaults(t *testing.T) {
	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0:8080", cfg.Server.Addr())
	assert.Equal(t, []string{"*"}, cfg.Server.CORSOrigins)
	assert.Equal(t, "sqlite", cfg.Store.StoreDriver())
	assert.True(t, cfg.Store.Required)
	assert.Equal(t, 60*time.Second, cfg.Store.CacheTTL)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.False(t, cfg.Auth.DevBypass)
	assert.False(t, cfg.IsProduction())
}

func TestFromEnv_FlatNames(t *testing.T) {
	t.Setenv("APP_PORT", "9090")
	t.Setenv("APP_MONGO_URI", "mongodb://localhost:27017")
	t.Setenv("APP_ADMIN_EMAILS", "a@example.com,b@example.com")
	t.Setenv("APP_MEDIA_PROVIDER", "cloudinary")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "mongo", cfg.Store.StoreDriver())
	assert.Equal(t, []string{"a@example.com", "b@example.com"}, cfg.Auth.AdminEmails)
	assert.Equal(t, "cloudinary", cfg.Media.Provider)
}

func TestFromEnv_DevBypassRejectedInProduction(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("APP_AUTH_DEV_BYPASS", "true")

	_, err := FromEnv()
	assert.ErrorIs(t, err, ErrDevBypassInProduction)
}

func TestFromEnv_DevBypassAllowedInDevelopment(t *testing.T) {
	t.Setenv("APP_AUTH_DEV_BYPASS", "true")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.True(t, cfg.Auth.DevBypass)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"ok", func(*Config) {}, false},
		{"short secret", func(c *Config) { c.Auth.JWTSecret = "short" }, true},
		{"long secret", func(c *Config) { c.Auth.JWTSecret = "0123456789abcdef" }, false},
		{"mongo without uri", func(c *Config) { c.Store.Driver = "mongo" }, true},
		{"unknown driver", func(c *Config) { c.Store.Driver = "postgres" }, true},
		{"memory driver", func(c *Config) { c.Store.Driver = "memory" }, false},
		{"unknown media", func(c *Config) { c.Media.Provider = "s3" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{Env: "development"}
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoginModes(t *testing.T) {
	a := AuthConfig{JWTSecret: "0123456789abcdef"}
	assert.False(t, a.LocalLogin())
	assert.False(t, a.GitHubLogin())

	a.AdminEmail, a.AdminPasswordHash = "me@example.com", "$2a$10$hash"
	a.GitHubClientID, a.GitHubClientSecret = "id", "secret"
	assert.True(t, a.LocalLogin())
	assert.True(t, a.GitHubLogin())
}
