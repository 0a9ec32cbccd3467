// Package infrastructure provides core service initialization for application startup.
// It assembles common dependencies (logging, database, blob storage, upload workers)
// that domain systems require.
package infrastructure

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/JaimeStill/expense-api/internal/config"
	"github.com/JaimeStill/expense-api/pkg/database"
	"github.com/JaimeStill/expense-api/pkg/lifecycle"
	"github.com/JaimeStill/expense-api/pkg/logging"
	"github.com/JaimeStill/expense-api/pkg/storage"
	"github.com/panjf2000/ants/v2"
)

// poolReleaseTimeout bounds how long shutdown waits for in-flight uploads.
const poolReleaseTimeout = 10 * time.Second

// Infrastructure holds the core systems required by all domain modules.
type Infrastructure struct {
	Lifecycle  *lifecycle.Coordinator
	Logger     *slog.Logger
	Database   database.System
	Storage    storage.System
	UploadPool *ants.Pool
}

// New creates an Infrastructure from the application configuration.
// It initializes all systems but does not start them; call Start separately.
func New(cfg *config.Config) (*Infrastructure, error) {
	return NewWithLogger(cfg, logging.New(&cfg.Logging))
}

// NewWithLogger is New with a caller-supplied logger.
func NewWithLogger(cfg *config.Config, logger *slog.Logger) (*Infrastructure, error) {
	lc := lifecycle.New()

	db, err := database.New(&cfg.Database, logger)
	if err != nil {
		return nil, fmt.Errorf("database init failed: %w", err)
	}

	store, err := storage.New(&cfg.Storage, logger)
	if err != nil {
		return nil, fmt.Errorf("storage init failed: %w", err)
	}

	pool, err := ants.NewPool(cfg.Attachments.UploadWorkers, ants.WithExpiryDuration(time.Minute))
	if err != nil {
		return nil, fmt.Errorf("upload pool init failed: %w", err)
	}

	return &Infrastructure{
		Lifecycle:  lc,
		Logger:     logger,
		Database:   db,
		Storage:    store,
		UploadPool: pool,
	}, nil
}

// Start initializes all infrastructure systems and registers them with the lifecycle coordinator.
func (i *Infrastructure) Start() error {
	if err := i.Database.Start(i.Lifecycle); err != nil {
		return fmt.Errorf("database start failed: %w", err)
	}
	if err := i.Storage.Start(i.Lifecycle); err != nil {
		return fmt.Errorf("storage start failed: %w", err)
	}

	i.Lifecycle.OnShutdown(func() {
		<-i.Lifecycle.Context().Done()
		if err := i.UploadPool.ReleaseTimeout(poolReleaseTimeout); err != nil {
			i.Logger.Warn("upload pool release timed out", "error", err)
		}
	})
	return nil
}
