package workers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/benvon/quicknode/internal/cache"
	"github.com/benvon/quicknode/internal/database"
	logpkg "github.com/benvon/quicknode/internal/logger"
	"github.com/benvon/quicknode/internal/models"
	"github.com/benvon/quicknode/internal/queue"
	"github.com/benvon/quicknode/internal/quickinput"
	"github.com/benvon/quicknode/internal/services/ai"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Job outcomes reported to the observer
const (
	OutcomeSuccess = "success"
	OutcomeRetry   = "retry"
	OutcomeDLQ     = "dlq"
)

// maxSiblingsForSuggestion bounds the existing children sent to the AI provider
const maxSiblingsForSuggestion = 50

// ErrPermanent marks failures that retrying cannot fix
var ErrPermanent = errors.New("permanent job failure")

// NodeProcessor handles node_reparse and node_suggest jobs
type NodeProcessor struct {
	nodeRepo  database.NodeRepositoryInterface
	parser    *cache.ParseCache
	suggester ai.Suggester
	jobQueue  queue.Enqueuer
	logger    *zap.Logger
	observe   func(jobType, outcome string)
	now       func() time.Time
}

// ProcessorOption configures a NodeProcessor
type ProcessorOption func(*NodeProcessor)

// WithJobObserver reports each job outcome, typically to metrics
func WithJobObserver(fn func(jobType, outcome string)) ProcessorOption {
	return func(p *NodeProcessor) {
		if fn != nil {
			p.observe = fn
		}
	}
}

// WithClock overrides the clock used for retry scheduling and unwritten nodes
func WithClock(now func() time.Time) ProcessorOption {
	return func(p *NodeProcessor) {
		if now != nil {
			p.now = now
		}
	}
}

// NewNodeProcessor creates a node job processor. suggester may be nil, in which case
// node_suggest jobs are discarded.
func NewNodeProcessor(
	nodeRepo database.NodeRepositoryInterface,
	parser *cache.ParseCache,
	suggester ai.Suggester,
	jobQueue queue.Enqueuer,
	logger *zap.Logger,
	opts ...ProcessorOption,
) *NodeProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &NodeProcessor{
		nodeRepo:  nodeRepo,
		parser:    parser,
		suggester: suggester,
		jobQueue:  jobQueue,
		logger:    logger,
		observe:   func(string, string) {},
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ProcessJob processes a job based on its type and settles the message
func (p *NodeProcessor) ProcessJob(ctx context.Context, msg queue.MessageInterface) error {
	job := msg.GetJob()
	if job == nil {
		if nackErr := msg.Nack(false); nackErr != nil {
			p.logger.Warn("job_nack_failed", zap.Error(nackErr))
		}
		return fmt.Errorf("message has no job: %w", ErrPermanent)
	}

	var err error
	switch job.Type {
	case queue.JobTypeNodeReparse:
		err = p.ProcessReparseJob(ctx, job)
	case queue.JobTypeNodeSuggest:
		err = p.ProcessSuggestJob(ctx, job)
	default:
		err = fmt.Errorf("unknown job type %q: %w", job.Type, ErrPermanent)
	}

	if err != nil {
		return p.handleJobError(ctx, msg, job, err)
	}

	if ackErr := msg.Ack(); ackErr != nil {
		return fmt.Errorf("failed to ack job: %w", ackErr)
	}
	p.observe(string(job.Type), OutcomeSuccess)
	return nil
}

// loadNode fetches the job's node and checks ownership
func (p *NodeProcessor) loadNode(ctx context.Context, job *queue.Job) (*models.Node, error) {
	if job.NodeID == nil {
		return nil, fmt.Errorf("node_id is required for %s job: %w", job.Type, ErrPermanent)
	}

	node, err := p.nodeRepo.GetByID(ctx, *job.NodeID)
	if err != nil {
		return nil, fmt.Errorf("failed to get node: %w", err)
	}
	if node.UserID != job.UserID {
		return nil, fmt.Errorf("node does not belong to user: %w", ErrPermanent)
	}
	return node, nil
}

// ProcessReparseJob re-derives a node from its quick input and pins any relative date
// tokens. Relative dates resolve against the day the node was last written, so a
// "^today" node keeps that day as its due date. The job never reschedules itself.
func (p *NodeProcessor) ProcessReparseJob(ctx context.Context, job *queue.Job) error {
	node, err := p.loadNode(ctx, job)
	if errors.Is(err, database.ErrNodeNotFound) {
		p.logger.Info("reparse_node_gone", queue.JobLogFields(job)...)
		return nil
	}
	if err != nil {
		return err
	}
	if node.IsGhost() || node.QuickInput == "" {
		return nil
	}

	// A write after the job was queued already pinned the node
	if node.UpdatedAt.After(job.CreatedAt) && !quickinput.HasRelativeDate(node.QuickInput) {
		p.logger.Debug("reparse_job_superseded", queue.JobLogFields(job)...)
		return nil
	}

	written := node.UpdatedAt
	if written.IsZero() {
		written = p.now()
	}
	pinned := p.parser.Parser().At(written).PinRelativeDates(node.QuickInput)

	data := models.TransformToNodeData(p.parser.Parse(pinned))
	data.Metadata.Suggested = node.Metadata.Suggested

	changed := pinned != node.QuickInput || data.Content != node.Content || !metadataEqual(data.Metadata, node.Metadata)
	if changed {
		node.QuickInput = pinned
		node.Content = data.Content
		node.Metadata = data.Metadata
		if node.Type == models.NodeTypeText || node.Type == models.NodeTypeTask {
			node.Type = data.Type
		}
		if err := p.nodeRepo.Update(ctx, node); err != nil {
			return fmt.Errorf("failed to update node: %w", err)
		}
	}

	p.logger.Info("node_reparsed",
		zap.String("node_id", node.ID.String()),
		zap.Bool("changed", changed),
		zap.String("due_date", node.Metadata.DueDate),
	)
	return nil
}

// ProcessSuggestJob asks the AI provider for child ideas and stores them as ghost nodes.
// Earlier unaccepted suggestions under the node are replaced.
func (p *NodeProcessor) ProcessSuggestJob(ctx context.Context, job *queue.Job) error {
	if p.suggester == nil {
		return fmt.Errorf("no AI provider configured: %w", ErrPermanent)
	}

	node, err := p.loadNode(ctx, job)
	if errors.Is(err, database.ErrNodeNotFound) {
		p.logger.Info("suggest_node_gone", queue.JobLogFields(job)...)
		return nil
	}
	if err != nil {
		return err
	}
	if node.IsGhost() {
		return fmt.Errorf("cannot suggest children for a ghost node: %w", ErrPermanent)
	}

	parentID := node.ID
	children, err := p.nodeRepo.ListByMap(ctx, node.MapID, database.NodeFilter{
		ParentID: &parentID,
		Limit:    maxSiblingsForSuggestion,
	})
	if err != nil {
		return fmt.Errorf("failed to list children: %w", err)
	}
	siblings := make([]string, 0, len(children))
	for _, child := range children {
		if child.Content != "" {
			siblings = append(siblings, child.Content)
		}
	}

	ctx = ai.WithLogFields(ctx, job.UserID, node.ID, job.ID.String())
	ideas, err := p.suggester.SuggestChildren(ctx, ai.SuggestionRequest{
		Content:    node.Content,
		QuickInput: node.QuickInput,
		Tags:       node.Metadata.Tags,
		Siblings:   siblings,
		Count:      job.SuggestionCount(ai.DefaultSuggestionCount),
		Today:      p.parser.Parser().Today(),
	})
	if errors.Is(err, ai.ErrNoSuggestions) {
		p.logger.Info("suggest_no_ideas", zap.String("node_id", node.ID.String()))
		return nil
	}
	if err != nil {
		return err
	}

	removed, err := p.nodeRepo.DeleteGhosts(ctx, node.ID)
	if err != nil {
		return fmt.Errorf("failed to clear previous suggestions: %w", err)
	}

	created := 0
	for _, idea := range ideas {
		idea = p.parser.Parser().PinRelativeDates(idea)
		ghost := newGhostNode(node, idea, models.TransformToNodeData(p.parser.Parse(idea)))
		if ghost == nil {
			continue
		}
		if err := p.nodeRepo.Create(ctx, ghost); err != nil {
			return fmt.Errorf("failed to create ghost node: %w", err)
		}
		created++
	}

	p.logger.Info("ghost_nodes_created",
		zap.String("node_id", node.ID.String()),
		zap.Int("created", created),
		zap.Int64("replaced", removed),
	)
	return nil
}

// newGhostNode builds an unaccepted child suggestion, or nil when the idea has no text
func newGhostNode(parent *models.Node, idea string, data models.NodeData) *models.Node {
	if strings.TrimSpace(data.Content) == "" {
		return nil
	}
	parentID := parent.ID
	meta := data.Metadata
	meta.Suggested = true
	return &models.Node{
		ID:         uuid.New(),
		MapID:      parent.MapID,
		UserID:     parent.UserID,
		ParentID:   &parentID,
		Type:       models.NodeTypeGhost,
		Content:    data.Content,
		QuickInput: idea,
		Metadata:   meta,
	}
}

// handleJobError retries the job later or sends it to the DLQ.
// Retries are published as a new message carrying the incremented retry count, since
// a requeued delivery would replay the old body. Quota waits do not use up retries.
func (p *NodeProcessor) handleJobError(ctx context.Context, msg queue.MessageInterface, job *queue.Job, err error) error {
	fields := append(queue.JobLogFields(job),
		zap.Int("retry_count", job.RetryCount),
		zap.Int("max_retries", job.MaxRetries),
		zap.String("error", logpkg.SanitizeError(err)),
	)

	if errors.Is(err, ErrPermanent) {
		p.logger.Warn("job_failed_permanently", fields...)
		p.nack(msg, false)
		p.observe(string(job.Type), OutcomeDLQ)
		return fmt.Errorf("job failed permanently: %w", err)
	}

	quota := ai.IsQuotaError(err)
	if !quota && !job.CanRetry() {
		p.logger.Error("job_failed_max_retries", fields...)
		p.nack(msg, false)
		p.observe(string(job.Type), OutcomeDLQ)
		return fmt.Errorf("job failed (max retries): %w", err)
	}

	if p.jobQueue == nil {
		p.logger.Warn("job_failed_will_retry", fields...)
		p.nack(msg, true)
		p.observe(string(job.Type), OutcomeRetry)
		return fmt.Errorf("job failed (will retry): %w", err)
	}

	delay := ai.GetRetryDelay(err, job.RetryCount)
	notBefore := p.now().Add(delay)
	retry := *job
	retry.NotBefore = &notBefore
	if !quota {
		retry.IncrementRetry()
	}

	if enqueueErr := p.jobQueue.Enqueue(ctx, &retry); enqueueErr != nil {
		p.logger.Warn("job_retry_enqueue_failed", append(fields, zap.NamedError("enqueue_error", enqueueErr))...)
		p.nack(msg, true)
		p.observe(string(job.Type), OutcomeRetry)
		return fmt.Errorf("failed to re-enqueue job: %w", enqueueErr)
	}
	if ackErr := msg.Ack(); ackErr != nil {
		p.logger.Warn("job_ack_failed", zap.Error(ackErr))
	}

	p.logger.Warn("job_failed_will_retry", append(fields, zap.Duration("delay", delay), zap.Bool("quota", quota))...)
	p.observe(string(job.Type), OutcomeRetry)
	return fmt.Errorf("job failed (will retry): %w", err)
}

func (p *NodeProcessor) nack(msg queue.MessageInterface, requeue bool) {
	if err := msg.Nack(requeue); err != nil {
		p.logger.Warn("job_nack_failed", zap.Bool("requeue", requeue), zap.Error(err))
	}
}

func metadataEqual(a, b models.NodeMetadata) bool {
	if a.Priority != b.Priority || a.DueDate != b.DueDate || a.Status != b.Status ||
		a.Color != b.Color || a.HexColor != b.HexColor || a.FontSize != b.FontSize ||
		a.Suggested != b.Suggested {
		return false
	}
	if (a.Checked == nil) != (b.Checked == nil) || (a.Checked != nil && *a.Checked != *b.Checked) {
		return false
	}
	return stringsEqual(a.Assignees, b.Assignees) && stringsEqual(a.Tags, b.Tags)
}

func stringsEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
