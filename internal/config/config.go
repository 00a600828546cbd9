// Package config loads application configuration from environment variables.
//
// Variables use the APP_ prefix (APP_PORT, APP_MONGO_URI, ...). Each section
// is processed separately so the names stay flat: APP_PORT rather than
// APP_SERVER_PORT. A .env file in the working directory is read first when
// present; real environment variables always win over it.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const prefix = "APP"

// Config holds all application configuration.
type Config struct {
	// Env is the deployment environment: development or production.
	Env string `envconfig:"ENV" default:"development"`

	// Sections are processed one by one in FromEnv.
	Server ServerConfig `ignored:"true"`
	Store  StoreConfig  `ignored:"true"`
	Auth   AuthConfig   `ignored:"true"`
	Media  MediaConfig  `ignored:"true"`
	Log    LogConfig    `ignored:"true"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `envconfig:"PORT" default:"8080"`
	Host            string        `envconfig:"HOST" default:"0.0.0.0"`
	ReadTimeout     time.Duration `envconfig:"READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `envconfig:"WRITE_TIMEOUT" default:"15s"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"30s"`

	// CORSOrigins lists browser origins allowed to call the API.
	CORSOrigins []string `envconfig:"CORS_ORIGINS" default:"*"`

	// BaseURL is the public URL of the site, used for OAuth callbacks.
	BaseURL string `envconfig:"BASE_URL" default:"http://localhost:8080"`
}

// StoreConfig selects and configures the persistence backend.
type StoreConfig struct {
	// Driver is mongo, sqlite or memory. Empty picks mongo when MongoURI is
	// set and sqlite otherwise.
	Driver string `envconfig:"STORE_DRIVER"`

	MongoURI        string `envconfig:"MONGO_URI"`
	MongoDatabase   string `envconfig:"MONGO_DATABASE" default:"showcase"`
	MongoCollection string `envconfig:"MONGO_COLLECTION" default:"resources"`

	SQLitePath string `envconfig:"SQLITE_PATH" default:"data/resources.db"`

	// RedisURL enables the listing cache, e.g. redis://localhost:6379/0.
	RedisURL    string        `envconfig:"REDIS_URL"`
	CacheTTL    time.Duration `envconfig:"CACHE_TTL" default:"60s"`
	CachePrefix string        `envconfig:"CACHE_PREFIX" default:"showcase"`

	// Required makes startup fail when the store cannot be opened. When
	// false the server starts anyway and data endpoints report errors.
	Required bool `envconfig:"STORE_REQUIRED" default:"true"`
}

// AuthConfig holds identity settings.
type AuthConfig struct {
	// FirebaseProjectID enables verification of secure-token ID tokens.
	FirebaseProjectID string `envconfig:"FIREBASE_PROJECT_ID"`

	// JWTSecret signs locally issued tokens. Empty disables local login.
	JWTSecret string        `envconfig:"JWT_SECRET"`
	TokenTTL  time.Duration `envconfig:"TOKEN_TTL" default:"12h"`

	// AdminEmail and AdminPasswordHash (bcrypt) enable POST /auth/token.
	AdminEmail        string `envconfig:"ADMIN_EMAIL"`
	AdminPasswordHash string `envconfig:"ADMIN_PASSWORD_HASH"`

	// AdminEmails, when non-empty, restricts mutations to these emails.
	AdminEmails []string `envconfig:"ADMIN_EMAILS"`

	GitHubClientID     string   `envconfig:"GITHUB_CLIENT_ID"`
	GitHubClientSecret string   `envconfig:"GITHUB_CLIENT_SECRET"`
	GitHubLogins       []string `envconfig:"ADMIN_GITHUB_LOGINS"`

	// DevBypass substitutes a fixed development identity when no identity
	// service is reachable. Never allowed in production.
	DevBypass bool `envconfig:"AUTH_DEV_BYPASS" default:"false"`
}

// MediaConfig configures the CDN delegate.
type MediaConfig struct {
	// Provider is cloudinary, cos or empty (media features disabled).
	Provider string `envconfig:"MEDIA_PROVIDER"`

	CloudinaryCloudName    string `envconfig:"CLOUDINARY_CLOUD_NAME"`
	CloudinaryAPIKey       string `envconfig:"CLOUDINARY_API_KEY"`
	CloudinaryAPISecret    string `envconfig:"CLOUDINARY_API_SECRET"`
	CloudinaryUploadPreset string `envconfig:"CLOUDINARY_UPLOAD_PRESET"`
	Folder                 string `envconfig:"MEDIA_FOLDER" default:"portfolio-resources"`

	COSBucketURL string `envconfig:"COS_BUCKET_URL"`
	COSSecretID  string `envconfig:"COS_SECRET_ID"`
	COSSecretKey string `envconfig:"COS_SECRET_KEY"`

	// DeletePublic lets unauthenticated callers use POST /media/delete.
	DeletePublic bool `envconfig:"MEDIA_DELETE_PUBLIC" default:"false"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	// Level is debug, info, warn or error.
	Level string `envconfig:"LOG_LEVEL" default:"info"`
	// Format is json or text.
	Format string `envconfig:"LOG_FORMAT" default:"json"`
}

// Addr returns the listen address in host:port form.
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// IsProduction reports whether the process runs in production.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// StoreDriver resolves the backend to open.
func (c *StoreConfig) StoreDriver() string {
	if c.Driver != "" {
		return strings.ToLower(c.Driver)
	}
	if c.MongoURI != "" {
		return "mongo"
	}
	return "sqlite"
}

// LocalLogin reports whether POST /auth/token can issue tokens.
func (c *AuthConfig) LocalLogin() bool {
	return c.JWTSecret != "" && c.AdminEmail != "" && c.AdminPasswordHash != ""
}

// GitHubLogin reports whether GitHub sign-in is configured.
func (c *AuthConfig) GitHubLogin() bool {
	return c.JWTSecret != "" && c.GitHubClientID != "" && c.GitHubClientSecret != ""
}

var (
	ErrDevBypassInProduction = errors.New("APP_AUTH_DEV_BYPASS must not be enabled in production")
	ErrWeakJWTSecret         = errors.New("APP_JWT_SECRET must be at least 16 characters")
)

// Validate checks combinations that envconfig cannot express.
func (c *Config) Validate() error {
	if c.Auth.DevBypass && c.IsProduction() {
		return ErrDevBypassInProduction
	}
	if c.Auth.JWTSecret != "" && len(c.Auth.JWTSecret) < 16 {
		return ErrWeakJWTSecret
	}
	switch c.Store.StoreDriver() {
	case "mongo":
		if c.Store.MongoURI == "" {
			return errors.New("APP_MONGO_URI is required for the mongo store")
		}
	case "sqlite", "memory":
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}
	switch strings.ToLower(c.Media.Provider) {
	case "", "none", "cloudinary", "cos":
	default:
		return fmt.Errorf("unknown media provider %q", c.Media.Provider)
	}
	return nil
}

// Load reads an optional .env file, then the environment, then validates.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env: %w", err)
	}
	return FromEnv()
}

// FromEnv reads configuration from the process environment only.
func FromEnv() (*Config, error) {
	var cfg Config

	if err := envconfig.Process(prefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	sections := []struct {
		name string
		dst  any
	}{
		{"server", &cfg.Server},
		{"store", &cfg.Store},
		{"auth", &cfg.Auth},
		{"media", &cfg.Media},
		{"log", &cfg.Log},
	}
	for _, s := range sections {
		if err := envconfig.Process(prefix, s.dst); err != nil {
			return nil, fmt.Errorf("failed to load %s config: %w", s.name, err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
