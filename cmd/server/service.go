package main

import (
	"fmt"
	"time"

	"github.com/JaimeStill/expense-api/internal/api"
	"github.com/JaimeStill/expense-api/internal/config"
	"github.com/JaimeStill/expense-api/internal/infrastructure"
	"github.com/JaimeStill/expense-api/internal/server"
)

// Service coordinates the lifecycle of all subsystems.
type Service struct {
	infra  *infrastructure.Infrastructure
	server server.System
}

// NewService creates and initializes the service with all subsystems.
func NewService(cfg *config.Config) (*Service, error) {
	infra, err := infrastructure.New(cfg)
	if err != nil {
		return nil, err
	}

	handler := api.NewHandler(cfg, infra)
	srv := server.New(&cfg.Server, handler, cfg.ShutdownTimeoutDuration(), infra.Logger)

	infra.Logger.Info("service configured",
		"version", cfg.Version,
		"storage", cfg.Storage.Backend,
		"upload_policy", cfg.Attachments.UploadPolicy,
		"upload_workers", cfg.Attachments.UploadWorkers,
	)

	return &Service{infra: infra, server: srv}, nil
}

// Start begins all subsystems and returns once startup hooks have finished.
func (s *Service) Start() error {
	s.infra.Logger.Info("starting service")

	if err := s.infra.Start(); err != nil {
		return err
	}
	if err := s.server.Start(s.infra.Lifecycle); err != nil {
		return fmt.Errorf("server start failed: %w", err)
	}

	s.infra.Lifecycle.WaitForStartup()
	s.infra.Logger.Info("service started", "addr", s.server.Addr())
	return nil
}

// Shutdown gracefully stops all subsystems within timeout.
func (s *Service) Shutdown(timeout time.Duration) error {
	s.infra.Logger.Info("initiating shutdown")

	if err := s.infra.Lifecycle.Shutdown(timeout); err != nil {
		return err
	}

	s.infra.Logger.Info("all subsystems shut down successfully")
	return nil
}
