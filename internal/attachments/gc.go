package attachments

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/JaimeStill/expense-api/pkg/storage"
)

// ReferenceSource returns the ids of every blob some expense references.
type ReferenceSource func(ctx context.Context) (map[string]struct{}, error)

// SweepOptions controls an orphaned-blob sweep.
type SweepOptions struct {
	// MinAge skips blobs younger than this, protecting uploads whose
	// expense record has not been written yet.
	MinAge time.Duration
	// Apply deletes the candidates. Without it the sweep only reports them.
	Apply bool
	Now   func() time.Time
}

// SweepResult reports what a sweep found and removed.
type SweepResult struct {
	DryRun         bool     `json:"dryRun"`
	Scanned        int      `json:"scanned"`
	CandidateCount int      `json:"candidateCount"`
	DeletedCount   int      `json:"deletedCount"`
	FailedCount    int      `json:"failedCount"`
	ReclaimedBytes int64    `json:"reclaimedBytes"`
	Candidates     []string `json:"candidates"`
}

// Sweep finds blobs no expense references and, when opts.Apply is set,
// deletes them. Blobs are enumerated before references are loaded, so a
// blob referenced during the walk is seen as referenced.
func Sweep(ctx context.Context, store storage.System, refs ReferenceSource, opts SweepOptions, logger *slog.Logger) (SweepResult, error) {
	logger = logger.With("system", "attachments-gc")
	result := SweepResult{DryRun: !opts.Apply, Candidates: []string{}}

	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}
	cutoff := now().Add(-opts.MinAge)

	var old []storage.Blob
	err := store.Walk(ctx, func(b storage.Blob) error {
		result.Scanned++
		if b.CreatedAt.Before(cutoff) {
			old = append(old, b)
		}
		return nil
	})
	if err != nil {
		return result, fmt.Errorf("walk blobs: %w", err)
	}

	referenced, err := refs(ctx)
	if err != nil {
		return result, fmt.Errorf("load references: %w", err)
	}

	for _, b := range old {
		if _, ok := referenced[b.ID]; ok {
			continue
		}
		result.CandidateCount++
		result.Candidates = append(result.Candidates, b.ID)

		if !opts.Apply {
			result.ReclaimedBytes += b.Size
			continue
		}

		if err := store.Delete(ctx, b.ID); err != nil {
			logger.Warn("orphan delete failed", "blob_id", b.ID, "error", err)
			result.FailedCount++
			continue
		}
		result.DeletedCount++
		result.ReclaimedBytes += b.Size
	}

	logger.Info("sweep complete",
		"dry_run", result.DryRun,
		"scanned", result.Scanned,
		"candidates", result.CandidateCount,
		"deleted", result.DeletedCount,
		"failed", result.FailedCount,
	)
	return result, nil
}
