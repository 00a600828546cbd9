// Command server runs the resource showcase: the JSON API, the HTML pages
// and the static assets.
//
// main only reads configuration and builds dependencies. Every
// collaborator is constructed here once and handed to the server as
// server.Deps; nothing else in the program reaches for globals.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sakif/resource-showcase/internal/auth"
	"github.com/sakif/resource-showcase/internal/config"
	"github.com/sakif/resource-showcase/internal/logger"
	"github.com/sakif/resource-showcase/internal/media"
	"github.com/sakif/resource-showcase/internal/repository"
	"github.com/sakif/resource-showcase/internal/repository/cache"
	"github.com/sakif/resource-showcase/internal/repository/memory"
	"github.com/sakif/resource-showcase/internal/repository/mongo"
	"github.com/sakif/resource-showcase/internal/repository/sqlite"
	"github.com/sakif/resource-showcase/internal/server"
	"github.com/sakif/resource-showcase/internal/service"
	"github.com/sakif/resource-showcase/web"
)

const connectTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}
	log := logger.New(cfg.Log)

	if err := run(context.Background(), cfg, log); err != nil {
		log.Error("server exited", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	store, driver, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()

	verifier, tokens, err := buildVerifier(ctx, cfg, log)
	if err != nil {
		return err
	}

	provider, err := buildMedia(cfg.Media)
	if err != nil {
		return err
	}
	log.Info("media provider ready", slog.String("provider", provider.Name()))

	var github *auth.GitHubProvider
	if cfg.Auth.GitHubLogin() {
		callback := strings.TrimRight(cfg.Server.BaseURL, "/") + "/auth/github/callback"
		github = auth.NewGitHubProvider(cfg.Auth.GitHubClientID, cfg.Auth.GitHubClientSecret, callback, cfg.Auth.GitHubLogins)
	}

	authSvc := service.NewAuthService(tokens, auth.NewPasswordService(auth.DefaultCost), service.AdminCredentials{
		Email:        cfg.Auth.AdminEmail,
		PasswordHash: cfg.Auth.AdminPasswordHash,
	}, logger.WithComponent(log, "auth"))

	srv, err := server.New(server.Deps{
		Config:      cfg,
		Logger:      log,
		Store:       store,
		StoreDriver: driver,
		Verifier:    verifier,
		Media:       provider,
		Auth:        authSvc,
		GitHub:      github,
		Web:         web.FS,
	})
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}
	return srv.Start(ctx)
}

// openStore opens the configured backend and, when a Redis URL is set,
// wraps it in the listing cache. With APP_STORE_REQUIRED=false a store that
// cannot be opened is replaced by repository.Unconfigured so the pages
// still load.
func openStore(ctx context.Context, cfg *config.Config, log *slog.Logger) (server.Store, string, func(), error) {
	driver := cfg.Store.StoreDriver()
	store, closer, err := openBackend(ctx, driver, cfg.Store)
	if err != nil {
		if cfg.Store.Required {
			return nil, "", nil, fmt.Errorf("opening %s store: %w", driver, err)
		}
		log.Warn("store unavailable; data endpoints will fail",
			slog.String("driver", driver),
			slog.String("error", err.Error()),
		)
		return repository.Unconfigured{}, driver, func() {}, nil
	}
	log.Info("store ready", slog.String("driver", driver))

	if cfg.Store.RedisURL == "" {
		return store, driver, closer, nil
	}

	cctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	rdb, err := cache.Connect(cctx, cfg.Store.RedisURL)
	if err != nil {
		log.Warn("redis unavailable; listing cache disabled", slog.String("error", err.Error()))
		return store, driver, closer, nil
	}
	log.Info("listing cache enabled", slog.Duration("ttl", cfg.Store.CacheTTL))

	cached := cache.New(store, rdb, cfg.Store.CachePrefix, cfg.Store.CacheTTL, logger.WithComponent(log, "cache"))
	return cached, driver, func() {
		rdb.Close()
		closer()
	}, nil
}

func openBackend(ctx context.Context, driver string, cfg config.StoreConfig) (server.Store, func(), error) {
	switch driver {
	case "mongo":
		cctx, cancel := context.WithTimeout(ctx, connectTimeout)
		defer cancel()
		s, err := mongo.Connect(cctx, cfg.MongoURI, cfg.MongoDatabase, cfg.MongoCollection)
		if err != nil {
			return nil, nil, err
		}
		return s, func() {
			dctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			s.Close(dctx)
		}, nil

	case "sqlite":
		if dir := filepath.Dir(cfg.SQLitePath); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, nil, fmt.Errorf("creating database directory: %w", err)
			}
		}
		db, err := sqlite.New(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return db, func() { db.Close() }, nil

	case "memory":
		return memory.New(), func() {}, nil
	}
	return nil, nil, fmt.Errorf("unknown store driver %q", driver)
}

// buildVerifier assembles the bearer-token verifier:
//
//	RS256  secure-token ID tokens, when a Firebase project id is set
//	HS256  tokens this server issued, when a JWT secret is set
//
// With neither, every token is reported as "service unavailable". The dev
// fallback wraps the chain only when explicitly enabled; config validation
// already refused it in production.
func buildVerifier(ctx context.Context, cfg *config.Config, log *slog.Logger) (auth.Verifier, *auth.TokenService, error) {
	chain := auth.NewChain()

	if cfg.Auth.FirebaseProjectID != "" {
		client, err := auth.NewFirebaseAuthClient(ctx, cfg.Auth.FirebaseProjectID)
		if err != nil {
			return nil, nil, fmt.Errorf("creating firebase auth client: %w", err)
		}
		chain.Register("RS256", auth.NewSecureTokenVerifier(client))
	}

	var tokens *auth.TokenService
	if cfg.Auth.JWTSecret != "" {
		var err error
		tokens, err = auth.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
		if err != nil {
			return nil, nil, fmt.Errorf("creating token service: %w", err)
		}
		chain.Register("HS256", tokens)
	}

	if chain.Empty() {
		log.Warn("no identity service configured; authenticated endpoints will fail")
	}

	var v auth.Verifier = chain
	if cfg.Auth.DevBypass {
		if cfg.IsProduction() {
			return nil, nil, config.ErrDevBypassInProduction
		}
		log.Warn("development auth bypass enabled")
		v = auth.NewDevFallback(chain, logger.WithComponent(log, "auth"))
	}
	return v, tokens, nil
}

func buildMedia(cfg config.MediaConfig) (media.Provider, error) {
	switch strings.ToLower(cfg.Provider) {
	case "cloudinary":
		p, err := media.NewCloudinary(media.CloudinaryConfig{
			CloudName:    cfg.CloudinaryCloudName,
			APIKey:       cfg.CloudinaryAPIKey,
			APISecret:    cfg.CloudinaryAPISecret,
			UploadPreset: cfg.CloudinaryUploadPreset,
			Folder:       cfg.Folder,
		})
		if err != nil {
			return nil, err
		}
		return p, nil
	case "cos":
		p, err := media.NewCOS(media.COSConfig{
			BucketURL: cfg.COSBucketURL,
			SecretID:  cfg.COSSecretID,
			SecretKey: cfg.COSSecretKey,
			Folder:    cfg.Folder,
		})
		if err != nil {
			return nil, fmt.Errorf("creating COS provider: %w", err)
		}
		return p, nil
	case "", "none":
		return media.Disabled{}, nil
	}
	return nil, errors.New("unknown media provider " + cfg.Provider)
}
