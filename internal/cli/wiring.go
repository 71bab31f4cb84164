package cli

import (
	"context"
	"fmt"

	"cmcs-backend/internal/config"
	"cmcs-backend/internal/database"
	"cmcs-backend/internal/document"
	"cmcs-backend/internal/logger"
	"cmcs-backend/internal/storage"
	"cmcs-backend/internal/workflow"

	"github.com/spf13/afero"
)

// openPrimary opens the Postgres store. Migrations run only when the
// database answers, so an unreachable primary does not block startup.
func openPrimary(ctx context.Context, cfg *config.Config, log logger.Logger) (*storage.GormStore, error) {
	db, err := database.OpenPostgres(cfg.DatabaseDSN)
	if err != nil {
		return nil, err
	}
	store := storage.NewGormStore("postgres", db)

	probeCtx, cancel := context.WithTimeout(ctx, cfg.ProbeTimeout)
	defer cancel()
	if err := store.Ping(probeCtx); err != nil {
		log.Warn("skipping primary migrations", "err", err)
		return store, nil
	}
	if err := database.Migrate(db); err != nil {
		return nil, err
	}
	return store, nil
}

func openSecondary(ctx context.Context, cfg *config.Config) (storage.Backend, error) {
	var store storage.Backend
	switch cfg.SecondaryBackend {
	case "sqlite":
		db, err := database.OpenSQLite(cfg.SecondarySQLitePath)
		if err != nil {
			return nil, err
		}
		if err := database.Migrate(db); err != nil {
			return nil, err
		}
		store = storage.NewGormStore("sqlite", db)
	default:
		store = storage.NewMemoryStore("memory")
	}

	if cfg.SeedDefaultUsers {
		if _, err := database.SeedDefaultUsers(ctx, store); err != nil {
			return nil, fmt.Errorf("seed secondary: %w", err)
		}
	}
	return store, nil
}

func openDocuments(ctx context.Context, cfg *config.Config) (*document.Handler, error) {
	if cfg.DocumentStore == "s3" {
		s3Store, err := document.NewS3StoreFromEnv(ctx, cfg.S3Bucket, cfg.AWSRegion)
		if err != nil {
			return nil, err
		}
		return document.NewHandler(s3Store), nil
	}
	return document.NewHandler(document.NewFileStore(afero.NewOsFs(), cfg.DocumentDir)), nil
}

type runtime struct {
	store   *storage.Resilient
	service *workflow.Service
}

func buildRuntime(ctx context.Context, cfg *config.Config, log logger.Logger) (*runtime, error) {
	ctx = logger.ContextWithLogger(ctx, log)

	primary, err := openPrimary(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	secondary, err := openSecondary(ctx, cfg)
	if err != nil {
		return nil, err
	}
	store := storage.NewResilient(ctx, primary, secondary,
		storage.WithLogger(log), storage.WithProbeTimeout(cfg.ProbeTimeout))

	docs, err := openDocuments(ctx, cfg)
	if err != nil {
		return nil, err
	}
	svc := workflow.NewService(store, docs, workflow.WithLogger(log))
	return &runtime{store: store, service: svc}, nil
}
