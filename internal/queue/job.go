package queue

import (
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// JobType represents the type of job
type JobType string

const (
	// JobTypeNodeReparse re-runs quick-input parsing for a stored node
	JobTypeNodeReparse JobType = "node_reparse"
	// JobTypeNodeSuggest asks the AI provider for ghost child nodes
	JobTypeNodeSuggest JobType = "node_suggest"
)

const (
	// MetadataKeySuggestionCount caps how many ghost nodes a node_suggest job creates
	MetadataKeySuggestionCount = "suggestion_count"

	defaultMaxRetries = 3
)

// Job represents a job in the queue
type Job struct {
	ID         uuid.UUID      `json:"id"`
	Type       JobType        `json:"type"`
	UserID     uuid.UUID      `json:"user_id"`
	NodeID     *uuid.UUID     `json:"node_id,omitempty"`
	NotBefore  *time.Time     `json:"not_before,omitempty"` // Earliest time to process job (nil = immediate)
	NotAfter   *time.Time     `json:"not_after,omitempty"`  // Latest time to process job (nil = no expiration)
	Metadata   map[string]any `json:"metadata,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	RetryCount int            `json:"retry_count"`
	MaxRetries int            `json:"max_retries"`
}

// NewJob creates a new job
func NewJob(jobType JobType, userID uuid.UUID, nodeID *uuid.UUID) *Job {
	return &Job{
		ID:         uuid.New(),
		Type:       jobType,
		UserID:     userID,
		NodeID:     nodeID,
		Metadata:   make(map[string]any),
		CreatedAt:  time.Now(),
		RetryCount: 0,
		MaxRetries: defaultMaxRetries,
	}
}

// JobLogFields returns the fields that identify a job and the node it works on
func JobLogFields(job *Job) []zap.Field {
	if job == nil {
		return nil
	}
	fields := []zap.Field{
		zap.String("job_id", job.ID.String()),
		zap.String("job_type", string(job.Type)),
		zap.String("user_id", job.UserID.String()),
	}
	if job.NodeID != nil {
		fields = append(fields, zap.String("node_id", job.NodeID.String()))
	}
	return fields
}

// NewReparseJob creates a node_reparse job that runs no earlier than notBefore
func NewReparseJob(userID, nodeID uuid.UUID, notBefore time.Time) *Job {
	job := NewJob(JobTypeNodeReparse, userID, &nodeID)
	job.NotBefore = &notBefore
	return job
}

// NewSuggestJob creates a node_suggest job asking for up to count ghost nodes
func NewSuggestJob(userID, nodeID uuid.UUID, count int) *Job {
	job := NewJob(JobTypeNodeSuggest, userID, &nodeID)
	job.Metadata[MetadataKeySuggestionCount] = count
	return job
}

// SuggestionCount reads the requested suggestion count, falling back to def.
// JSON decoding turns numbers into float64, so both forms are accepted.
func (j *Job) SuggestionCount(def int) int {
	switch v := j.Metadata[MetadataKeySuggestionCount].(type) {
	case int:
		if v > 0 {
			return v
		}
	case float64:
		if v > 0 {
			return int(v)
		}
	}
	return def
}

// NextMidnight returns the start of the day after now in loc. Sweep jobs expire there.
func NextMidnight(now time.Time, loc *time.Location) time.Time {
	local := now.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day()+1, 0, 0, 0, 0, loc)
}

// ShouldProcess checks if the job should be processed now
func (j *Job) ShouldProcess() bool {
	now := time.Now()

	if j.NotBefore != nil && now.Before(*j.NotBefore) {
		return false
	}

	if j.NotAfter != nil && now.After(*j.NotAfter) {
		return false
	}

	return true
}

// IsExpired checks if the job has expired
func (j *Job) IsExpired() bool {
	if j.NotAfter == nil {
		return false
	}

	return time.Now().After(*j.NotAfter)
}

// CanRetry checks if the job can be retried
func (j *Job) CanRetry() bool {
	return j.RetryCount < j.MaxRetries
}

// IncrementRetry increments the retry count
func (j *Job) IncrementRetry() {
	j.RetryCount++
}
