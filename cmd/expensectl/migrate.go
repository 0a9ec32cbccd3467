package main

import (
	"context"
	"fmt"

	"github.com/JaimeStill/expense-api/internal/infrastructure"
	"github.com/JaimeStill/expense-api/internal/migrations"
	"github.com/JaimeStill/expense-api/pkg/database"
	"github.com/spf13/cobra"
)

type migrationStatus struct {
	Version uint `json:"version"`
	Dirty   bool `json:"dirty"`
}

func newMigrateCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply, roll back, or inspect schema migrations",
	}

	var steps int
	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withMigrator(cmd.Context(), func(m *database.Migrator) error {
				if err := m.Down(steps); err != nil {
					return err
				}
				return a.report(m, fmt.Sprintf("Rolled back %d migration(s).", steps))
			})
		},
	}
	down.Flags().IntVar(&steps, "steps", 1, "number of migrations to roll back")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.withMigrator(cmd.Context(), func(m *database.Migrator) error {
					if err := m.Up(); err != nil {
						return err
					}
					return a.report(m, "Migrations applied.")
				})
			},
		},
		down,
		&cobra.Command{
			Use:   "version",
			Short: "Print the current schema version",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.withMigrator(cmd.Context(), func(m *database.Migrator) error {
					return a.report(m, "")
				})
			},
		},
	)

	return cmd
}

func (a *app) withMigrator(ctx context.Context, fn func(m *database.Migrator) error) error {
	return a.withInfra(ctx, func(ctx context.Context, infra *infrastructure.Infrastructure) error {
		m, err := database.NewMigrator(infra.Database.Connection(), migrations.FS, migrations.Dir, a.logger)
		if err != nil {
			return err
		}
		defer m.Close()
		return fn(m)
	})
}

func (a *app) report(m *database.Migrator, msg string) error {
	v, dirty, err := m.Version()
	if err != nil {
		return fmt.Errorf("read version: %w", err)
	}

	text := fmt.Sprintf("Schema version: %d", v)
	if dirty {
		text += " (dirty)"
	}
	if msg != "" {
		text = msg + "\n" + text
	}
	return a.print(migrationStatus{Version: v, Dirty: dirty}, text)
}
