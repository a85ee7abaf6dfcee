package database

import (
	"context"

	"github.com/benvon/quicknode/internal/models"
	"github.com/google/uuid"
)

// NodeRepositoryInterface defines the node repository operations used by handlers and workers
// This interface enables better testability by allowing mock implementations
type NodeRepositoryInterface interface {
	Create(ctx context.Context, node *models.Node) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Node, error)
	ListByMap(ctx context.Context, mapID uuid.UUID, filter NodeFilter) ([]*models.Node, error)
	Update(ctx context.Context, node *models.Node) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListGhosts(ctx context.Context, parentID uuid.UUID) ([]*models.Node, error)
	DeleteGhosts(ctx context.Context, parentID uuid.UUID) (int64, error)
	AcceptGhost(ctx context.Context, id uuid.UUID) (*models.Node, error)
	ListUnpinned(ctx context.Context, limit int) ([]*models.Node, error)
}

// Ensure concrete types implement the interfaces
var _ NodeRepositoryInterface = (*NodeRepository)(nil)
