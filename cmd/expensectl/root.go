package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/JaimeStill/expense-api/internal/config"
	"github.com/JaimeStill/expense-api/internal/infrastructure"
	"github.com/JaimeStill/expense-api/pkg/logging"
	"github.com/spf13/cobra"
)

// app carries state shared by every subcommand.
type app struct {
	configPath string
	jsonOutput bool
	verbose    bool

	cfg    *config.Config
	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:           "expensectl",
		Short:         "Operate the expense service database and blob storage",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load()
		},
	}

	cmd.PersistentFlags().StringVarP(&a.configPath, "config", "c", config.BaseConfigFile, "path to config.toml")
	cmd.PersistentFlags().BoolVar(&a.jsonOutput, "json", false, "output JSON")
	cmd.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "log to stderr")

	cmd.AddCommand(
		newMigrateCmd(a),
		newSeedCmd(a),
		newBlobsCmd(a),
	)

	return cmd
}

func (a *app) load() error {
	cfg, err := config.LoadFile(a.configPath)
	if err != nil {
		return err
	}
	if err := cfg.Finalize(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	a.cfg = cfg

	if a.verbose {
		a.logger = logging.NewWithWriter(&cfg.Logging, os.Stderr)
	} else {
		a.logger = logging.Discard()
	}
	return nil
}

// withInfra starts the database and blob storage, runs fn, and shuts them down.
func (a *app) withInfra(ctx context.Context, fn func(ctx context.Context, infra *infrastructure.Infrastructure) error) error {
	infra, err := infrastructure.NewWithLogger(a.cfg, a.logger)
	if err != nil {
		return err
	}
	if err := infra.Start(); err != nil {
		return err
	}
	infra.Lifecycle.WaitForStartup()

	defer func() {
		if err := infra.Lifecycle.Shutdown(a.cfg.ShutdownTimeoutDuration()); err != nil {
			a.logger.Warn("shutdown incomplete", "error", err)
		}
	}()

	pingCtx, cancel := context.WithTimeout(ctx, a.cfg.Database.ConnTimeoutDuration()+time.Second)
	defer cancel()
	if err := infra.Database.Connection().PingContext(pingCtx); err != nil {
		return fmt.Errorf("connect database: %w", err)
	}

	return fn(ctx, infra)
}

// print writes v as JSON when --json is set, otherwise the text form.
func (a *app) print(v any, text string) error {
	if a.jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	fmt.Println(text)
	return nil
}
