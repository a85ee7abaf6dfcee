package queue

import (
	"context"
	"time"
)

// MessageInterface defines the interface for queue messages
// This enables better testability by allowing mock implementations
type MessageInterface interface {
	Ack() error
	Nack(requeue bool) error
	GetJob() *Job
}

// JobQueue is the interface for job queues
type JobQueue interface {
	// Enqueue adds a job to the queue
	Enqueue(ctx context.Context, job *Job) error

	// Consume returns a channel of messages from the queue
	// Messages are delivered asynchronously as they arrive
	// The caller is responsible for acknowledging each message
	// Prefetch controls how many unacknowledged messages each consumer can hold
	// Returns a channel that will be closed when the context is cancelled or an error occurs
	Consume(ctx context.Context, prefetchCount int) (<-chan *Message, <-chan error, error)

	// Close closes the queue connection
	Close() error

	// HealthCheck verifies the queue connection is healthy
	HealthCheck(ctx context.Context) error
}

// Enqueuer is the producer side of a JobQueue
type Enqueuer interface {
	Enqueue(ctx context.Context, job *Job) error
}

// DLQPurger removes dead-lettered messages older than a retention window
type DLQPurger interface {
	PurgeOlderThan(ctx context.Context, retention time.Duration) (PurgeCounts, error)
}

// JobTypeUnknown labels dead-lettered bodies that do not decode as a Job
const JobTypeUnknown JobType = "unknown"

// PurgeCounts tallies purged DLQ messages by job type
type PurgeCounts map[JobType]int

// Total returns the number of purged messages across all job types
func (c PurgeCounts) Total() int {
	total := 0
	for _, n := range c {
		total += n
	}
	return total
}
