package workers

import (
	"context"
	"sync"
	"time"

	"github.com/benvon/quicknode/internal/cache"
	"github.com/benvon/quicknode/internal/database"
	"github.com/benvon/quicknode/internal/models"
	"github.com/benvon/quicknode/internal/queue"
	"github.com/benvon/quicknode/internal/quickinput"
	"github.com/benvon/quicknode/internal/services/ai"
	"github.com/google/uuid"
)

// testNow is a Wednesday
var testNow = time.Date(2026, time.October, 14, 9, 30, 0, 0, time.UTC)

func newTestCache() *cache.ParseCache {
	parser := quickinput.NewParser(
		quickinput.WithClock(func() time.Time { return testNow }),
		quickinput.WithLocation(time.UTC),
	)
	c, err := cache.NewParseCache(parser, 64)
	if err != nil {
		panic(err)
	}
	return c
}

// mockNodeRepo is a mock implementation of NodeRepositoryInterface
type mockNodeRepo struct {
	mu                    sync.Mutex
	created               []*models.Node
	updated               []*models.Node
	getByIDFunc           func(ctx context.Context, id uuid.UUID) (*models.Node, error)
	listByMapFunc         func(ctx context.Context, mapID uuid.UUID, filter database.NodeFilter) ([]*models.Node, error)
	updateFunc            func(ctx context.Context, node *models.Node) error
	createFunc            func(ctx context.Context, node *models.Node) error
	deleteGhostsFunc      func(ctx context.Context, parentID uuid.UUID) (int64, error)
	listUnpinnedFunc      func(ctx context.Context, limit int) ([]*models.Node, error)
}

func (m *mockNodeRepo) Create(ctx context.Context, node *models.Node) error {
	if m.createFunc != nil {
		if err := m.createFunc(ctx, node); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.created = append(m.created, node)
	return nil
}

func (m *mockNodeRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Node, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, id)
	}
	return nil, database.ErrNodeNotFound
}

func (m *mockNodeRepo) ListByMap(ctx context.Context, mapID uuid.UUID, filter database.NodeFilter) ([]*models.Node, error) {
	if m.listByMapFunc != nil {
		return m.listByMapFunc(ctx, mapID, filter)
	}
	return nil, nil
}

func (m *mockNodeRepo) Update(ctx context.Context, node *models.Node) error {
	if m.updateFunc != nil {
		if err := m.updateFunc(ctx, node); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updated = append(m.updated, node)
	return nil
}

func (m *mockNodeRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return nil
}

func (m *mockNodeRepo) ListGhosts(ctx context.Context, parentID uuid.UUID) ([]*models.Node, error) {
	return nil, nil
}

func (m *mockNodeRepo) DeleteGhosts(ctx context.Context, parentID uuid.UUID) (int64, error) {
	if m.deleteGhostsFunc != nil {
		return m.deleteGhostsFunc(ctx, parentID)
	}
	return 0, nil
}

func (m *mockNodeRepo) AcceptGhost(ctx context.Context, id uuid.UUID) (*models.Node, error) {
	return nil, database.ErrNodeNotFound
}

func (m *mockNodeRepo) ListUnpinned(ctx context.Context, limit int) ([]*models.Node, error) {
	if m.listUnpinnedFunc != nil {
		return m.listUnpinnedFunc(ctx, limit)
	}
	return nil, nil
}

// Ensure mock implements interface
var _ database.NodeRepositoryInterface = (*mockNodeRepo)(nil)

// mockEnqueuer records enqueued jobs
type mockEnqueuer struct {
	mu          sync.Mutex
	jobs        []*queue.Job
	enqueueFunc func(ctx context.Context, job *queue.Job) error
}

func (m *mockEnqueuer) Enqueue(ctx context.Context, job *queue.Job) error {
	if m.enqueueFunc != nil {
		if err := m.enqueueFunc(ctx, job); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs = append(m.jobs, job)
	return nil
}

var _ queue.Enqueuer = (*mockEnqueuer)(nil)

// mockMessage is a mock implementation of MessageInterface
type mockMessage struct {
	job     *queue.Job
	acked   bool
	nacked  bool
	requeue bool
}

func (m *mockMessage) Ack() error {
	m.acked = true
	return nil
}

func (m *mockMessage) Nack(requeue bool) error {
	m.nacked = true
	m.requeue = requeue
	return nil
}

func (m *mockMessage) GetJob() *queue.Job {
	return m.job
}

var _ queue.MessageInterface = (*mockMessage)(nil)

// mockSuggester is a mock implementation of ai.Suggester
type mockSuggester struct {
	suggestFunc func(ctx context.Context, req ai.SuggestionRequest) ([]string, error)
}

func (m *mockSuggester) SuggestChildren(ctx context.Context, req ai.SuggestionRequest) ([]string, error) {
	if m.suggestFunc != nil {
		return m.suggestFunc(ctx, req)
	}
	return []string{"First idea"}, nil
}

var _ ai.Suggester = (*mockSuggester)(nil)

// outcomeRecorder collects observer calls
type outcomeRecorder struct {
	mu       sync.Mutex
	outcomes []string
}

func (r *outcomeRecorder) observe(jobType, outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, jobType+":"+outcome)
}
