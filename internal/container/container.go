package container

import (
	"context"
	"fmt"

	"scifig/adapters/api"
	"scifig/adapters/db/postgres/migrations"
	"scifig/adapters/excel"
	"scifig/adapters/memory"
	"scifig/adapters/postgres"
	"scifig/internal/config"
	"scifig/internal/engine"
	"scifig/internal/errors"
	"scifig/ports"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog"
)

// Container holds all application dependencies and manages their lifecycle
type Container struct {
	Config *config.Config
	Logger zerolog.Logger

	// Infrastructure; nil when no database is configured
	DB *sqlx.DB

	Engine     *engine.Engine
	Repository ports.AnalysisRepository
	Reader     *excel.DataReader
}

// New creates a container backed by the in-memory repository. Call
// InitWithDatabase (or Connect) to switch to Postgres.
func New(cfg *config.Config, logger zerolog.Logger) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	eng, err := engine.New(cfg.Engine, logger)
	if err != nil {
		return nil, err
	}

	return &Container{
		Config:     cfg,
		Logger:     logger,
		Engine:     eng,
		Repository: memory.NewAnalysisRepository(memory.DefaultCapacity),
		Reader:     excel.NewDataReader(logger),
	}, nil
}

// Connect opens the configured database, if any, and initializes the
// container with it
func (c *Container) Connect(ctx context.Context) error {
	if c.Config.Database.URL == "" {
		c.Logger.Info().Msg("DATABASE_URL not set, analyses are kept in memory")
		return nil
	}

	db, err := sqlx.ConnectContext(ctx, "postgres", c.Config.Database.URL)
	if err != nil {
		return errors.DatabaseError("failed to connect to database", err)
	}
	if err := c.InitWithDatabase(ctx, db); err != nil {
		db.Close()
		return err
	}
	return nil
}

// InitWithDatabase applies pending migrations and switches storage to
// Postgres
func (c *Container) InitWithDatabase(ctx context.Context, db *sqlx.DB) error {
	if db == nil {
		return fmt.Errorf("database connection cannot be nil")
	}

	if err := db.PingContext(ctx); err != nil {
		return errors.DatabaseError("database connection test failed", err)
	}

	applied, err := migrations.NewMigrator(db.DB, c.Logger).Up(ctx)
	if err != nil {
		return errors.Wrap(err, "database migration failed")
	}

	c.DB = db
	c.Repository = postgres.NewAnalysisRepository(db)
	c.Logger.Info().Int("migrations_applied", applied).Msg("container initialized with database")
	return nil
}

// WebAPI builds the HTTP server over the container's dependencies
func (c *Container) WebAPI() *api.WebAPI {
	return api.NewWebAPI(c.Logger, api.Config{
		Addr:            ":" + c.Config.Server.Port,
		ShutdownTimeout: c.Config.Server.ShutdownTimeout,
		BatchWorkers:    c.Config.Server.BatchWorkers,
		Dependencies: api.Dependencies{
			Engine:     c.Engine,
			Repository: c.Repository,
			Reader:     c.Reader,
		},
	})
}

// Shutdown releases the database connection
func (c *Container) Shutdown() error {
	if c.DB == nil {
		return nil
	}
	return c.DB.Close()
}
