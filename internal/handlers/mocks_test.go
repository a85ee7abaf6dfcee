package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/benvon/quicknode/internal/cache"
	"github.com/benvon/quicknode/internal/database"
	"github.com/benvon/quicknode/internal/models"
	"github.com/benvon/quicknode/internal/queue"
	"github.com/benvon/quicknode/internal/quickinput"
	"github.com/benvon/quicknode/internal/request"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

// testNow is a Wednesday
var testNow = time.Date(2026, time.October, 14, 9, 30, 0, 0, time.UTC)

func newTestCache(t *testing.T) *cache.ParseCache {
	t.Helper()
	parser := quickinput.NewParser(
		quickinput.WithClock(func() time.Time { return testNow }),
		quickinput.WithLocation(time.UTC),
	)
	c, err := cache.NewParseCache(parser, 64)
	if err != nil {
		t.Fatalf("Failed to create parse cache: %v", err)
	}
	return c
}

// mockNodeRepo is an in-memory NodeRepositoryInterface
type mockNodeRepo struct {
	mu        sync.Mutex
	nodes     map[uuid.UUID]*models.Node
	lastList  database.NodeFilter
	deleted   []uuid.UUID
	failWrite error
}

func newMockNodeRepo(nodes ...*models.Node) *mockNodeRepo {
	m := &mockNodeRepo{nodes: make(map[uuid.UUID]*models.Node)}
	for _, n := range nodes {
		m.nodes[n.ID] = n
	}
	return m
}

func (m *mockNodeRepo) Create(ctx context.Context, node *models.Node) error {
	if m.failWrite != nil {
		return m.failWrite
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	node.CreatedAt = testNow
	node.UpdatedAt = testNow
	m.nodes[node.ID] = node
	return nil
}

func (m *mockNodeRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Node, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.nodes[id]
	if !ok {
		return nil, database.ErrNodeNotFound
	}
	cp := *n
	return &cp, nil
}

func (m *mockNodeRepo) ListByMap(ctx context.Context, mapID uuid.UUID, filter database.NodeFilter) ([]*models.Node, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastList = filter
	var out []*models.Node
	for _, n := range m.nodes {
		if n.MapID == mapID && n.UserID == filter.UserID && (filter.IncludeGhosts || !n.IsGhost()) {
			out = append(out, n)
		}
	}
	return out, nil
}

func (m *mockNodeRepo) Update(ctx context.Context, node *models.Node) error {
	if m.failWrite != nil {
		return m.failWrite
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.nodes[node.ID]; !ok {
		return database.ErrNodeNotFound
	}
	m.nodes[node.ID] = node
	return nil
}

func (m *mockNodeRepo) Delete(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.nodes, id)
	m.deleted = append(m.deleted, id)
	return nil
}

func (m *mockNodeRepo) ListGhosts(ctx context.Context, parentID uuid.UUID) ([]*models.Node, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Node
	for _, n := range m.nodes {
		if n.IsGhost() && n.ParentID != nil && *n.ParentID == parentID {
			out = append(out, n)
		}
	}
	return out, nil
}

func (m *mockNodeRepo) DeleteGhosts(ctx context.Context, parentID uuid.UUID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var removed int64
	for id, n := range m.nodes {
		if n.IsGhost() && n.ParentID != nil && *n.ParentID == parentID {
			delete(m.nodes, id)
			removed++
		}
	}
	return removed, nil
}

func (m *mockNodeRepo) AcceptGhost(ctx context.Context, id uuid.UUID) (*models.Node, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.nodes[id]
	if !ok || !n.IsGhost() {
		return nil, database.ErrNodeNotFound
	}
	n.Metadata.Suggested = false
	n.Type = models.NodeTypeText
	if n.Metadata.HasTaskFields() {
		n.Type = models.NodeTypeTask
	}
	return n, nil
}

func (m *mockNodeRepo) ListUnpinned(ctx context.Context, limit int) ([]*models.Node, error) {
	return nil, nil
}

var _ database.NodeRepositoryInterface = (*mockNodeRepo)(nil)

// mockEnqueuer records enqueued jobs
type mockEnqueuer struct {
	mu   sync.Mutex
	jobs []*queue.Job
	err  error
}

func (m *mockEnqueuer) Enqueue(ctx context.Context, job *queue.Job) error {
	if m.err != nil {
		return m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs = append(m.jobs, job)
	return nil
}

var _ queue.Enqueuer = (*mockEnqueuer)(nil)

// serve routes req through a fresh router, injecting principal when non-nil
func serve(register func(*mux.Router), principal *models.Principal, method, target string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			_ = json.NewEncoder(&buf).Encode(b)
		}
	}

	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	if principal != nil {
		req = req.WithContext(request.WithPrincipal(req.Context(), principal))
	}

	r := mux.NewRouter()
	register(r)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

// envelope is the decoded success or error wrapper
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Message string          `json:"message"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder, data any) envelope {
	t.Helper()
	var env envelope
	if err := json.NewDecoder(rec.Body).Decode(&env); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if data != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, data); err != nil {
			t.Fatalf("Failed to decode data: %v", err)
		}
	}
	return env
}

func ptr[T any](v T) *T { return &v }
