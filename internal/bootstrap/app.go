// Package bootstrap assembles the application's shared dependencies for both
// the API and worker binaries.
package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"treasury-backend/internal/artifacts"
	"treasury-backend/internal/datasets"
	"treasury-backend/internal/queue"
	"treasury-backend/internal/shared/config"
	"treasury-backend/internal/shared/server"
	"treasury-backend/internal/shared/storage/db"
	"treasury-backend/internal/shared/storage/object"
	localstore "treasury-backend/internal/shared/storage/object/local"
	s3store "treasury-backend/internal/shared/storage/object/s3"
	"treasury-backend/internal/workorders"
)

// App holds shared dependencies.
type App struct {
	Config config.Config
	Router *gin.Engine
	DB     *sql.DB
	Store  object.ObjectStore
	Queue  queue.Client

	DatasetsRepo   datasets.Repo
	WorkOrdersRepo workorders.Repo
	ArtifactsRepo  artifacts.Repo

	DatasetsService   *datasets.Service
	ArtifactsStore    *artifacts.Store
	WorkOrdersService *workorders.Service

	DatasetsHandler   *datasets.Handler
	WorkOrdersHandler *workorders.Handler
	ArtifactsHandler  *artifacts.Handler
}

// BuildOptions tune which optional dependencies Build wires.
type BuildOptions struct {
	// DisableQueue keeps execution in-process even when a queue URL is
	// configured; the worker binary sets this to avoid self-enqueueing.
	DisableQueue bool
	// DBOptions overrides the connection pool settings.
	DBOptions *db.Options
}

// Build prepares shared dependencies and the router.
func Build(cfg config.Config, opts BuildOptions) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	if strings.TrimSpace(cfg.ObjectStoreType) == "" {
		cfg.ObjectStoreType = "local"
	}
	ctx := context.Background()

	sqlDB, err := buildDB(ctx, cfg, opts)
	if err != nil {
		return nil, err
	}

	store, err := buildStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	var queueClient queue.Client
	if !opts.DisableQueue && strings.TrimSpace(cfg.QueueURL) != "" {
		queueClient, err = queue.NewSQSClient(ctx)
		if err != nil {
			return nil, err
		}
	}

	app := &App{
		Config: cfg,
		DB:     sqlDB,
		Store:  store,
		Queue:  queueClient,
	}

	if sqlDB != nil {
		app.DatasetsRepo = &datasets.PGRepo{DB: sqlDB}
		app.WorkOrdersRepo = &workorders.PGRepo{DB: sqlDB}
		app.ArtifactsRepo = &artifacts.PGRepo{DB: sqlDB}
	} else {
		app.DatasetsRepo = datasets.NewMemoryRepo()
		app.WorkOrdersRepo = workorders.NewMemoryRepo()
		app.ArtifactsRepo = artifacts.NewMemoryRepo()
	}

	app.DatasetsService = &datasets.Service{Store: store, Repo: app.DatasetsRepo}
	app.ArtifactsStore = &artifacts.Store{Objects: store, Repo: app.ArtifactsRepo, Prefix: cfg.ArtifactsPrefix}
	app.WorkOrdersService = &workorders.Service{
		Repo:           app.WorkOrdersRepo,
		Datasets:       app.DatasetsService,
		Artifacts:      app.ArtifactsStore,
		Queue:          queueClient,
		MinCashBalance: decimal.NewFromFloat(cfg.MinCashBalance),
		ForecastWeeks:  cfg.ForecastWeeks,
	}

	app.DatasetsHandler = datasets.NewHandler(app.DatasetsService)
	app.WorkOrdersHandler = workorders.NewHandler(app.WorkOrdersService)
	app.ArtifactsHandler = artifacts.NewHandler(app.ArtifactsStore)

	app.Router = server.NewRouter(server.RouterDeps{
		Config:            cfg,
		DatasetsHandler:   app.DatasetsHandler,
		WorkOrdersHandler: app.WorkOrdersHandler,
		ArtifactsHandler:  app.ArtifactsHandler,
	})

	return app, nil
}

func buildDB(ctx context.Context, cfg config.Config, opts BuildOptions) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: DATABASE_URL empty; using in-memory repositories")
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	dbOpts := db.OptionsFromEnv(db.DefaultServerOptions())
	if opts.DBOptions != nil {
		dbOpts = *opts.DBOptions
	}
	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, dbOpts)
	if err != nil {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: database connect failed; using in-memory repositories: %v", err)
			return nil, nil
		}
		return nil, err
	}
	return sqlDB, nil
}

func buildStore(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID)
	default:
		return localstore.New(cfg.LocalStoreDir), nil
	}
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local":
		return true
	default:
		return false
	}
}
