package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/benvon/quicknode/internal/models"
)

// ErrNodeNotFound is returned when no node matches. It wraps sql.ErrNoRows.
var ErrNodeNotFound = fmt.Errorf("node not found: %w", sql.ErrNoRows)

const (
	defaultListLimit = 100
	maxListLimit     = 500
)

const nodeColumns = `id, map_id, user_id, parent_id, type, content, quick_input, metadata, created_at, updated_at`

// NodeFilter narrows a node listing
type NodeFilter struct {
	UserID        uuid.UUID
	Type          *models.NodeType
	ParentID      *uuid.UUID
	Tag           string
	Assignee      string
	IncludeGhosts bool
	Limit         int
	Offset        int
}

// NodeRepository handles node database operations
type NodeRepository struct {
	db *DB
}

// NewNodeRepository creates a new node repository
func NewNodeRepository(db *DB) *NodeRepository {
	return &NodeRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanNode(row rowScanner) (*models.Node, error) {
	node := &models.Node{}
	var parentID uuid.NullUUID
	var metadataJSON []byte

	err := row.Scan(
		&node.ID,
		&node.MapID,
		&node.UserID,
		&parentID,
		&node.Type,
		&node.Content,
		&node.QuickInput,
		&metadataJSON,
		&node.CreatedAt,
		&node.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if parentID.Valid {
		id := parentID.UUID
		node.ParentID = &id
	}
	if len(metadataJSON) > 0 {
		if err := json.Unmarshal(metadataJSON, &node.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
		}
	}
	return node, nil
}

func nullableUUID(id *uuid.UUID) uuid.NullUUID {
	if id == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: *id, Valid: true}
}

// Create inserts a new node
func (r *NodeRepository) Create(ctx context.Context, node *models.Node) error {
	query := `
		INSERT INTO nodes (` + nodeColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at, updated_at
	`

	if node.ID == uuid.Nil {
		node.ID = uuid.New()
	}

	metadataJSON, err := json.Marshal(node.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	now := time.Now()
	err = r.db.QueryRowContext(ctx, query,
		node.ID,
		node.MapID,
		node.UserID,
		nullableUUID(node.ParentID),
		node.Type,
		node.Content,
		node.QuickInput,
		metadataJSON,
		now,
		now,
	).Scan(&node.CreatedAt, &node.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create node: %w", err)
	}

	return nil
}

// GetByID retrieves a node by ID
func (r *NodeRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Node, error) {
	query := `SELECT ` + nodeColumns + ` FROM nodes WHERE id = $1`

	node, err := scanNode(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNodeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get node: %w", err)
	}
	return node, nil
}

// buildListQuery assembles the listing query for a map and filter
func buildListQuery(mapID uuid.UUID, filter NodeFilter) (string, []any) {
	var b strings.Builder
	b.WriteString(`SELECT ` + nodeColumns + ` FROM nodes WHERE map_id = $1`)
	args := []any{mapID}
	argIndex := 2

	if filter.UserID != uuid.Nil {
		fmt.Fprintf(&b, " AND user_id = $%d", argIndex)
		args = append(args, filter.UserID)
		argIndex++
	}

	if filter.Type != nil {
		fmt.Fprintf(&b, " AND type = $%d", argIndex)
		args = append(args, string(*filter.Type))
		argIndex++
	} else if !filter.IncludeGhosts {
		fmt.Fprintf(&b, " AND type <> $%d", argIndex)
		args = append(args, string(models.NodeTypeGhost))
		argIndex++
	}

	if filter.ParentID != nil {
		fmt.Fprintf(&b, " AND parent_id = $%d", argIndex)
		args = append(args, *filter.ParentID)
		argIndex++
	}

	if filter.Tag != "" {
		fmt.Fprintf(&b, " AND metadata->'tags' ? $%d", argIndex)
		args = append(args, filter.Tag)
		argIndex++
	}

	if filter.Assignee != "" {
		fmt.Fprintf(&b, " AND metadata->'assignees' ? $%d", argIndex)
		args = append(args, filter.Assignee)
		argIndex++
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	limit = min(limit, maxListLimit)
	offset := max(filter.Offset, 0)

	fmt.Fprintf(&b, " ORDER BY created_at ASC LIMIT $%d OFFSET $%d", argIndex, argIndex+1)
	args = append(args, limit, offset)

	return b.String(), args
}

// ListByMap retrieves the nodes of a map, oldest first
func (r *NodeRepository) ListByMap(ctx context.Context, mapID uuid.UUID, filter NodeFilter) ([]*models.Node, error) {
	query, args := buildListQuery(mapID, filter)
	return r.queryNodes(ctx, query, args...)
}

func (r *NodeRepository) queryNodes(ctx context.Context, query string, args ...any) ([]*models.Node, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query nodes: %w", err)
	}
	defer rows.Close()

	nodes := make([]*models.Node, 0)
	for rows.Next() {
		node, err := scanNode(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan node: %w", err)
		}
		nodes = append(nodes, node)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating nodes: %w", err)
	}

	return nodes, nil
}

// Update saves the mutable fields of a node
func (r *NodeRepository) Update(ctx context.Context, node *models.Node) error {
	query := `
		UPDATE nodes
		SET parent_id = $2, type = $3, content = $4, quick_input = $5, metadata = $6, updated_at = $7
		WHERE id = $1
		RETURNING updated_at
	`

	metadataJSON, err := json.Marshal(node.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	err = r.db.QueryRowContext(ctx, query,
		node.ID,
		nullableUUID(node.ParentID),
		node.Type,
		node.Content,
		node.QuickInput,
		metadataJSON,
		time.Now(),
	).Scan(&node.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNodeNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to update node: %w", err)
	}

	return nil
}

// Delete removes a node and, through the foreign key, its descendants
func (r *NodeRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM nodes WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete node: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNodeNotFound
	}

	return nil
}

// ListGhosts returns the unaccepted suggestions under a parent node
func (r *NodeRepository) ListGhosts(ctx context.Context, parentID uuid.UUID) ([]*models.Node, error) {
	query := `SELECT ` + nodeColumns + ` FROM nodes WHERE parent_id = $1 AND type = $2 ORDER BY created_at ASC`
	return r.queryNodes(ctx, query, parentID, string(models.NodeTypeGhost))
}

// DeleteGhosts removes every unaccepted suggestion under a parent node
func (r *NodeRepository) DeleteGhosts(ctx context.Context, parentID uuid.UUID) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM nodes WHERE parent_id = $1 AND type = $2`, parentID, string(models.NodeTypeGhost))
	if err != nil {
		return 0, fmt.Errorf("failed to delete ghost nodes: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n, nil
}

// AcceptGhost turns a suggestion into a regular node
func (r *NodeRepository) AcceptGhost(ctx context.Context, id uuid.UUID) (*models.Node, error) {
	node, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !node.IsGhost() {
		return node, nil
	}

	AcceptSuggestion(node)
	if err := r.Update(ctx, node); err != nil {
		return nil, err
	}
	return node, nil
}

// AcceptSuggestion clears the ghost markers and picks the node type from its metadata
func AcceptSuggestion(node *models.Node) {
	node.Metadata.Suggested = false
	if node.Metadata.HasTaskFields() {
		node.Type = models.NodeTypeTask
	} else {
		node.Type = models.NodeTypeText
	}
}

// unpinnedPattern matches quick input that still carries a relative date token
const unpinnedPattern = `(^|[[:space:]])\^(yesterday|today|tomorrow|sunday|monday|tuesday|wednesday|thursday|friday|saturday)([[:space:]]|$)`

// ListUnpinned returns nodes whose quick input still holds a relative date
// token, oldest first. Rows written before dates were pinned on save land here.
func (r *NodeRepository) ListUnpinned(ctx context.Context, limit int) ([]*models.Node, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	query := `
		SELECT ` + nodeColumns + `
		FROM nodes
		WHERE type <> $1 AND quick_input ~* $2
		ORDER BY updated_at ASC
		LIMIT $3
	`
	return r.queryNodes(ctx, query, string(models.NodeTypeGhost), unpinnedPattern, min(limit, maxListLimit))
}
