package main

import (
	"context"
	"fmt"
	"time"

	"github.com/JaimeStill/expense-api/internal/attachments"
	"github.com/JaimeStill/expense-api/internal/expenses"
	"github.com/JaimeStill/expense-api/internal/infrastructure"
	"github.com/spf13/cobra"
)

func newBlobsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "blobs",
		Short: "Inspect and clean up attachment blob storage",
	}
	cmd.AddCommand(newBlobsGCCmd(a))
	return cmd
}

func newBlobsGCCmd(a *app) *cobra.Command {
	var (
		apply  bool
		minAge time.Duration
	)

	cmd := &cobra.Command{
		Use:   "gc",
		Short: "Find blobs no expense references and optionally delete them",
		Long: "Lists blobs older than --min-age that no expense references. " +
			"Nothing is deleted unless --apply is given.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if minAge < 0 {
				return fmt.Errorf("--min-age must not be negative")
			}

			return a.withInfra(cmd.Context(), func(ctx context.Context, infra *infrastructure.Infrastructure) error {
				repo := expenses.NewRepository(infra.Database.Connection())

				result, err := attachments.Sweep(ctx, infra.Storage, repo.ReferencedBlobIDs,
					attachments.SweepOptions{MinAge: minAge, Apply: apply}, a.logger)
				if err != nil {
					return err
				}
				return a.print(result, formatSweep(result))
			})
		},
	}

	cmd.Flags().BoolVar(&apply, "apply", false, "delete orphaned blobs (default: dry run)")
	cmd.Flags().DurationVar(&minAge, "min-age", 24*time.Hour, "skip blobs younger than this")
	return cmd
}

func formatSweep(r attachments.SweepResult) string {
	if r.DryRun {
		return fmt.Sprintf("Scanned %d blob(s); %d orphaned, %d byte(s) reclaimable. Re-run with --apply to delete.",
			r.Scanned, r.CandidateCount, r.ReclaimedBytes)
	}
	return fmt.Sprintf("Scanned %d blob(s); deleted %d of %d orphaned (%d failed), reclaimed %d byte(s).",
		r.Scanned, r.DeletedCount, r.CandidateCount, r.FailedCount, r.ReclaimedBytes)
}
