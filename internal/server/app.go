package server

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/newrelic/go-agent/v3/newrelic"
	"go.uber.org/zap"
	_ "gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/memblob"
	_ "gocloud.dev/blob/s3blob"

	"github.com/noah-isme/study-vault-api/internal/handler"
	"github.com/noah-isme/study-vault-api/internal/models"
	"github.com/noah-isme/study-vault-api/internal/repository"
	"github.com/noah-isme/study-vault-api/internal/service"
	"github.com/noah-isme/study-vault-api/pkg/cache"
	"github.com/noah-isme/study-vault-api/pkg/config"
	"github.com/noah-isme/study-vault-api/pkg/database"
	"github.com/noah-isme/study-vault-api/pkg/jobs"
	"github.com/noah-isme/study-vault-api/pkg/storage"
)

const (
	orphanAttempts = 5
	orphanBackoff  = 2 * time.Second
)

type catalog interface {
	Create(ctx context.Context, note *models.Note) error
	GetByID(ctx context.Context, id string) (*models.Note, error)
	List(ctx context.Context, filter models.NoteFilter) ([]models.Note, error)
	Update(ctx context.Context, id string, changes models.NoteChanges) error
	Delete(ctx context.Context, id string) error
	Ping(ctx context.Context) error
}

// App is the assembled API with the resources it owns.
type App struct {
	Router *gin.Engine

	closers []func() error
}

// Build opens every backing store named by cfg and wires the HTTP surface.
// nrApp may be nil.
func Build(ctx context.Context, cfg *config.Config, logger *zap.Logger, nrApp *newrelic.Application) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	app := &App{}
	ok := false
	defer func() {
		if !ok {
			_ = app.Close()
		}
	}()

	var notes catalog
	switch cfg.Catalog.Driver {
	case config.CatalogPostgres:
		db, err := database.NewPostgres(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		app.closers = append(app.closers, db.Close)
		notes = repository.NewNoteRepository(db)
	case config.CatalogMemory:
		logger.Warn("using in-memory catalog, notes are lost on restart")
		notes = repository.NewMemoryNoteRepository()
	default:
		return nil, fmt.Errorf("unknown catalog driver %q", cfg.Catalog.Driver)
	}

	bucket, err := storage.OpenBucketStore(ctx, cfg.Blob.BucketURL)
	if err != nil {
		return nil, err
	}
	app.closers = append(app.closers, bucket.Close)

	metrics := service.NewMetricsService()
	checks := []handler.ReadinessCheck{
		{Name: "catalog", Ping: notes.Ping},
		{Name: "blob", Ping: bucket.Ping},
	}

	var cacheSvc *service.CacheService
	if cfg.Cache.Enabled {
		client, err := cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		cacheRepo := repository.NewCacheRepository(client)
		app.closers = append(app.closers, cacheRepo.Close)
		cacheSvc = service.NewCacheService(cacheRepo, metrics, cfg.Cache.TTL, logger, true)
		checks = append(checks, handler.ReadinessCheck{Name: "cache", Ping: cacheRepo.Ping})
	}

	passwords, err := passwordVerifier(cfg.Admin)
	if err != nil {
		return nil, err
	}

	validate := validator.New()
	authSvc := service.NewAuthService(passwords, validate, logger, service.AuthConfig{
		Secret: cfg.JWT.Secret,
		Expiry: cfg.JWT.Expiration,
		Issuer: cfg.JWT.Issuer,
	})
	orphans := jobs.New("orphan-blobs", func(ctx context.Context, blobID string) error {
		if err := bucket.Delete(ctx, blobID); err != nil && !errors.Is(err, storage.ErrBlobNotFound) {
			return err
		}
		return nil
	}, jobs.Config{MaxAttempts: orphanAttempts, Backoff: orphanBackoff, Logger: logger})
	orphans.Start(context.Background())
	app.closers = append(app.closers, orphans.Stop)

	noteSvc := service.NewNoteService(notes, bucket, cacheSvc, metrics, validate, logger).
		WithOrphanQueue(orphans)

	app.Router = NewRouter(RouterDeps{
		Config:   cfg,
		Logger:   logger,
		Metrics:  metrics,
		Auth:     authSvc,
		Notes:    handler.NewNoteHandler(noteSvc, cfg.Blob.MaxUploadBytes),
		Login:    handler.NewAuthHandler(authSvc),
		Ops:      handler.NewMetricsHandler(metrics, checks...),
		NewRelic: nrApp,
	})

	logger.Info("application assembled",
		zap.String("catalog", cfg.Catalog.Driver),
		zap.Bool("cache", cfg.Cache.Enabled),
		zap.Duration("jwt_expiry", cfg.JWT.Expiration),
	)
	ok = true
	return app, nil
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func passwordVerifier(cfg config.AdminConfig) (service.PasswordVerifier, error) {
	if cfg.PasswordHash != "" {
		v, err := service.NewBcryptPasswordVerifier(cfg.PasswordHash)
		if err != nil {
			return nil, fmt.Errorf("admin password hash: %w", err)
		}
		return v, nil
	}
	return service.NewStaticPasswordVerifier(cfg.Password), nil
}
