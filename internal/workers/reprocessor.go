package workers

import (
	"context"
	"fmt"
	"time"

	"github.com/benvon/quicknode/internal/database"
	"github.com/benvon/quicknode/internal/queue"
	"go.uber.org/zap"
)

// DefaultSweepBatch is how many stale nodes one sweep enqueues at most
const DefaultSweepBatch = 200

// Reprocessor finds nodes whose quick input still carries a relative date token
// and enqueues node_reparse jobs that pin those dates in place.
type Reprocessor struct {
	jobQueue queue.Enqueuer
	nodeRepo database.NodeRepositoryInterface
	logger   *zap.Logger
	now      func() time.Time
	batch    int
}

// NewReprocessor creates a new reprocessor
func NewReprocessor(jobQueue queue.Enqueuer, nodeRepo database.NodeRepositoryInterface, logger *zap.Logger) *Reprocessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reprocessor{
		jobQueue: jobQueue,
		nodeRepo: nodeRepo,
		logger:   logger,
		now:      time.Now,
		batch:    DefaultSweepBatch,
	}
}

// ScheduleReparseJobs enqueues an immediate reparse for every unpinned node in one batch
func (r *Reprocessor) ScheduleReparseJobs(ctx context.Context) (int, error) {
	now := r.now()

	nodes, err := r.nodeRepo.ListUnpinned(ctx, r.batch)
	if err != nil {
		return 0, fmt.Errorf("failed to list unpinned nodes: %w", err)
	}

	// Jobs left over at midnight are dropped; the next sweep picks the rows up again
	notAfter := queue.NextMidnight(now, now.Location())

	scheduled := 0
	for _, node := range nodes {
		job := queue.NewReparseJob(node.UserID, node.ID, now)
		job.NotAfter = &notAfter

		if err := r.jobQueue.Enqueue(ctx, job); err != nil {
			r.logger.Warn("failed_to_schedule_reparse_job",
				zap.String("node_id", node.ID.String()),
				zap.Error(err),
			)
			continue
		}
		scheduled++
	}

	r.logger.Info("scheduled_reparse_jobs",
		zap.Int("unpinned_count", len(nodes)),
		zap.Int("scheduled", scheduled),
		zap.Time("expires_at", notAfter),
	)

	return scheduled, nil
}

// Start runs a sweep immediately and then every interval until ctx is cancelled
func (r *Reprocessor) Start(ctx context.Context, interval time.Duration) {
	if _, err := r.ScheduleReparseJobs(ctx); err != nil {
		r.logger.Warn("reparse_sweep_failed", zap.Error(err))
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := r.ScheduleReparseJobs(ctx); err != nil {
				r.logger.Warn("reparse_sweep_failed", zap.Error(err))
			}
		}
	}
}
