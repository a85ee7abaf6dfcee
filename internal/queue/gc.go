package queue

import (
	"context"
	"fmt"
	"slices"
	"time"

	"go.uber.org/zap"
)

const collectTimeout = 2 * time.Minute

// GarbageCollector runs periodic DLQ purges, removing dead-lettered reparse and
// suggest jobs older than retention.
type GarbageCollector struct {
	dlqPurger DLQPurger
	interval  time.Duration
	retention time.Duration
	logger    *zap.Logger
}

// NewGarbageCollector creates a new garbage collector. purger is used to purge DLQ messages
// older than retention; pass a RabbitMQ queue (implements DLQPurger) or another implementation.
func NewGarbageCollector(purger DLQPurger, interval time.Duration, retention time.Duration, logger *zap.Logger) *GarbageCollector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GarbageCollector{
		dlqPurger: purger,
		interval:  interval,
		retention: retention,
		logger:    logger,
	}
}

// Start runs the GC loop until ctx is cancelled.
func (gc *GarbageCollector) Start(ctx context.Context) error {
	ticker := time.NewTicker(gc.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := gc.collect(ctx); err != nil {
				gc.logger.Error("dlq_gc_failed", zap.Error(err))
			}
		}
	}
}

// collect purges DLQ messages older than retention and logs one entry per job type.
func (gc *GarbageCollector) collect(ctx context.Context) error {
	if gc.dlqPurger == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, collectTimeout)
	defer cancel()
	counts, err := gc.dlqPurger.PurgeOlderThan(ctx, gc.retention)
	if counts.Total() > 0 {
		gc.logPurged(counts)
	}
	if err != nil {
		return fmt.Errorf("DLQ purge: %w", err)
	}
	return nil
}

func (gc *GarbageCollector) logPurged(counts PurgeCounts) {
	types := make([]JobType, 0, len(counts))
	for jobType, n := range counts {
		if n > 0 {
			types = append(types, jobType)
		}
	}
	slices.Sort(types)

	total := counts.Total()
	for _, jobType := range types {
		gc.logger.Info("dlq_gc_purged",
			zap.String("job_type", string(jobType)),
			zap.Int("count", counts[jobType]),
			zap.Int("total", total),
			zap.Duration("retention", gc.retention),
		)
	}
}
