package api

import (
	"github.com/JaimeStill/expense-api/internal/attachments"
	"github.com/JaimeStill/expense-api/internal/config"
	"github.com/JaimeStill/expense-api/internal/infrastructure"
)

// Runtime extends Infrastructure with API-specific configuration.
type Runtime struct {
	*infrastructure.Infrastructure
	UploadPolicy    attachments.Policy
	MaxUploadSize   int64
	StreamChunkSize int
}

// NewRuntime creates an API runtime with a module-scoped logger.
func NewRuntime(cfg *config.Config, infra *infrastructure.Infrastructure) *Runtime {
	return &Runtime{
		Infrastructure: &infrastructure.Infrastructure{
			Lifecycle:  infra.Lifecycle,
			Logger:     infra.Logger.With("module", "api"),
			Database:   infra.Database,
			Storage:    infra.Storage,
			UploadPool: infra.UploadPool,
		},
		UploadPolicy:    cfg.Attachments.Policy(),
		MaxUploadSize:   cfg.Storage.MaxUploadSizeBytes(),
		StreamChunkSize: cfg.Storage.StreamChunkSizeBytes(),
	}
}
