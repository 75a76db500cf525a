// Package app wires the content service from configuration. It is shared by
// the API server and contentctl.
package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gogotex/gogotex/backend/content-service/internal/auth"
	"github.com/gogotex/gogotex/backend/content-service/internal/config"
	"github.com/gogotex/gogotex/backend/content-service/internal/content"
	"github.com/gogotex/gogotex/backend/content-service/internal/content/cache"
	"github.com/gogotex/gogotex/backend/content-service/internal/content/repository"
	"github.com/gogotex/gogotex/backend/content-service/internal/content/service"
	"github.com/gogotex/gogotex/backend/content-service/internal/database"
	"github.com/gogotex/gogotex/backend/content-service/internal/pipeline"
	"github.com/gogotex/gogotex/backend/content-service/internal/revalidate"
	"github.com/gogotex/gogotex/backend/content-service/internal/storage"
	"github.com/gogotex/gogotex/backend/content-service/pkg/middleware"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// App holds the wired components. Optional parts are nil when not configured.
type App struct {
	Config      *config.Config
	Logger      *zap.Logger
	Store       repository.Store
	Service     *service.ContentService
	Pipeline    *pipeline.Pipeline
	Invalidator revalidate.Invalidator
	Redis       *redis.Client
	Archive     *storage.SnapshotArchive

	closers []func(context.Context) error
}

// History returns the version history, or nil for the flat-file backend.
func (a *App) History() service.History {
	if _, ok := a.Store.(*repository.Versioned); !ok {
		return nil
	}
	return a.Service
}

// StoreReady reports whether the store answers. A store with no content yet
// is ready; unparsable content is not.
func (a *App) StoreReady(ctx context.Context) bool {
	_, err := a.Store.Read(ctx)
	if err == nil {
		return true
	}
	if errors.Is(err, content.ErrMalformedContent) {
		return false
	}
	return errors.Is(err, repository.ErrNotFound)
}

// Close releases connections in reverse order of opening.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// Build connects the configured backends. Redis and MinIO failures degrade to
// running without them; a store that cannot be opened is an error.
func Build(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &App{Config: cfg, Logger: logger}

	if addr := cfg.Redis.Addr(); addr != "" {
		client := redis.NewClient(&redis.Options{Addr: addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		if err := client.Ping(ctx).Err(); err != nil {
			logger.Warn("redis unavailable, continuing without it", zap.String("addr", addr), zap.Error(err))
			_ = client.Close()
		} else {
			a.Redis = client
			a.closers = append(a.closers, func(context.Context) error { return client.Close() })
		}
	}

	var hooks []repository.VersionHook
	if cfg.MinIO.Endpoint != "" {
		archive, err := storage.NewSnapshotArchive(ctx, cfg.MinIO)
		if err != nil {
			logger.Warn("snapshot archive disabled", zap.Error(err))
		} else {
			a.Archive = archive
			hooks = append(hooks, archive.Archive)
		}
	}

	store, closer, err := OpenStore(ctx, cfg, logger, hooks...)
	if err != nil {
		_ = a.Close(ctx)
		return nil, err
	}
	a.Store = store
	if closer != nil {
		a.closers = append(a.closers, closer)
	}

	a.Service = service.New(store, service.WithCache(a.cache(), cfg.Content.CacheTTL), service.WithLogger(logger))
	a.Invalidator = a.invalidator()
	a.Pipeline = pipeline.New(a.Service, a.Invalidator,
		pipeline.WithLogger(logger),
		pipeline.WithMaxDepth(cfg.Content.MaxDepth),
	)
	return a, nil
}

func (a *App) cache() cache.Cache {
	switch {
	case a.Config.Content.CacheTTL <= 0:
		return cache.Nop{}
	case a.Redis != nil:
		return cache.NewRedis(a.Redis, "content:current")
	default:
		return cache.NewMemory()
	}
}

func (a *App) invalidator() revalidate.Invalidator {
	var invs revalidate.Multi
	if u := a.Config.Revalidate.URL; u != "" {
		invs = append(invs, revalidate.NewWebhook(u, a.Config.Revalidate.Secret, a.Config.Revalidate.Timeout))
	}
	if a.Redis != nil && a.Config.Revalidate.Channel != "" {
		invs = append(invs, revalidate.NewPublisher(a.Redis, a.Config.Revalidate.Channel))
	}
	if len(invs) == 0 {
		a.Logger.Info("no revalidation target configured; route invalidation is a no-op")
		return revalidate.Nop{}
	}
	return invs
}

// OpenStore opens the backend named by CONTENT_BACKEND. The returned closer
// may be nil.
func OpenStore(ctx context.Context, cfg *config.Config, logger *zap.Logger, hooks ...repository.VersionHook) (repository.Store, func(context.Context) error, error) {
	switch cfg.Content.Backend {
	case config.BackendFile:
		return repository.NewFileRepo(cfg.Content.FilePath), nil, nil

	case config.BackendMemory:
		return repository.NewVersioned(repository.NewMemoryLog(), config.BackendMemory, logger, hooks...), nil, nil

	case config.BackendSQLite:
		db, err := database.OpenSQLite(cfg.Content.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		log, err := repository.NewSQLLog(db)
		if err != nil {
			return nil, nil, err
		}
		closer := func(context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.Close()
		}
		return repository.NewVersioned(log, config.BackendSQLite, logger, hooks...), closer, nil

	case config.BackendMongo:
		client, err := database.ConnectMongoWithRetry(ctx, cfg.MongoDB.URI, cfg.MongoDB.Timeout, 5, time.Second,
			func(attempt int, err error) {
				logger.Warn("mongo connect failed", zap.Int("attempt", attempt), zap.Error(err))
			})
		if err != nil {
			return nil, nil, err
		}
		col := client.Database(cfg.MongoDB.Database).Collection(cfg.Content.Collection)
		log, err := repository.NewMongoLog(ctx, col)
		if err != nil {
			_ = client.Disconnect(ctx)
			return nil, nil, err
		}
		return repository.NewVersioned(log, config.BackendMongo, logger, hooks...), client.Disconnect, nil
	}
	return nil, nil, fmt.Errorf("unknown content backend %q", cfg.Content.Backend)
}

// AdminVerifier is Verifier with revoked tokens rejected when Redis is
// available.
func (a *App) AdminVerifier(ctx context.Context) middleware.Verifier {
	ver := Verifier(ctx, a.Config, a.Logger)
	if ver == nil || a.Redis == nil {
		return ver
	}
	return auth.Revocable(ver, auth.NewRevocations(a.Redis))
}

// Verifier builds the admin token verifier: HS256 tokens signed with
// JWT_SECRET, then Keycloak ID tokens when Keycloak is configured. It returns
// nil when neither is available.
func Verifier(ctx context.Context, cfg *config.Config, logger *zap.Logger) middleware.Verifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	var chain auth.Chain
	if cfg.JWT.Secret != "" {
		iss, err := auth.NewIssuer(cfg.JWT.Secret, cfg.JWT.TokenTTL)
		if err != nil {
			logger.Warn("admin tokens disabled", zap.Error(err))
		} else {
			chain = append(chain, iss)
		}
	}
	if cfg.Keycloak.URL != "" && cfg.Keycloak.ClientID != "" {
		issuer := cfg.Keycloak.URL
		if cfg.Keycloak.Realm != "" {
			issuer = strings.TrimRight(cfg.Keycloak.URL, "/") + "/realms/" + cfg.Keycloak.Realm
		}
		ver, err := auth.NewOIDCVerifier(ctx, issuer, cfg.Keycloak.ClientID)
		if err != nil {
			logger.Warn("failed to initialize OIDC verifier", zap.String("issuer", issuer), zap.Error(err))
		} else {
			chain = append(chain, ver)
		}
	}
	if len(chain) == 0 {
		return nil
	}
	return chain
}
