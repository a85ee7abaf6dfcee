package database

import (
	"database/sql"
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/benvon/quicknode/internal/models"
	"github.com/google/uuid"
)

func TestBuildListQuery(t *testing.T) {
	t.Parallel()

	mapID := uuid.New()
	parentID := uuid.New()
	userID := uuid.New()
	task := models.NodeTypeTask

	tests := []struct {
		name     string
		filter   NodeFilter
		contains []string
		absent   []string
		wantArgs []any
	}{
		{
			name:     "default hides ghosts",
			filter:   NodeFilter{},
			contains: []string{"map_id = $1", "type <> $2", "LIMIT $3 OFFSET $4"},
			wantArgs: []any{mapID, "ghost", defaultListLimit, 0},
		},
		{
			name:     "include ghosts",
			filter:   NodeFilter{IncludeGhosts: true, Limit: 10, Offset: 20},
			contains: []string{"LIMIT $2 OFFSET $3"},
			absent:   []string{"type"},
			wantArgs: []any{mapID, 10, 20},
		},
		{
			name:     "type filter wins over ghost exclusion",
			filter:   NodeFilter{Type: &task},
			contains: []string{"type = $2"},
			absent:   []string{"type <>"},
			wantArgs: []any{mapID, "task", defaultListLimit, 0},
		},
		{
			name:     "owner filter comes first",
			filter:   NodeFilter{UserID: userID},
			contains: []string{"user_id = $2", "type <> $3", "LIMIT $4 OFFSET $5"},
			wantArgs: []any{mapID, userID, "ghost", defaultListLimit, 0},
		},
		{
			name:     "every filter",
			filter:   NodeFilter{ParentID: &parentID, Tag: "bug", Assignee: "alice", Limit: 10000, Offset: -5},
			contains: []string{"parent_id = $3", "metadata->'tags' ? $4", "metadata->'assignees' ? $5", "LIMIT $6 OFFSET $7"},
			wantArgs: []any{mapID, "ghost", parentID, "bug", "alice", maxListLimit, 0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			query, args := buildListQuery(mapID, tt.filter)
			for _, fragment := range tt.contains {
				if !strings.Contains(query, fragment) {
					t.Errorf("Expected query to contain %q, got %s", fragment, query)
				}
			}
			where := query[strings.Index(query, "WHERE"):]
			for _, fragment := range tt.absent {
				if strings.Contains(where, fragment) {
					t.Errorf("Expected query not to contain %q, got %s", fragment, query)
				}
			}
			if !reflect.DeepEqual(args, tt.wantArgs) {
				t.Errorf("Expected args %v, got %v", tt.wantArgs, args)
			}
		})
	}
}

type fakeRow struct {
	values []any
	err    error
}

func (f fakeRow) Scan(dest ...any) error {
	if f.err != nil {
		return f.err
	}
	for i, d := range dest {
		switch p := d.(type) {
		case *uuid.UUID:
			*p = f.values[i].(uuid.UUID)
		case *uuid.NullUUID:
			*p = f.values[i].(uuid.NullUUID)
		case *models.NodeType:
			*p = f.values[i].(models.NodeType)
		case *string:
			*p = f.values[i].(string)
		case *[]byte:
			*p = f.values[i].([]byte)
		case *time.Time:
			*p = f.values[i].(time.Time)
		}
	}
	return nil
}

func TestScanNode(t *testing.T) {
	t.Parallel()

	id, mapID, userID, parentID := uuid.New(), uuid.New(), uuid.New(), uuid.New()
	now := time.Date(2026, time.October, 14, 9, 30, 0, 0, time.UTC)
	meta, err := json.Marshal(models.NodeMetadata{Priority: "high", Tags: []string{"bug"}})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	row := fakeRow{values: []any{
		id, mapID, userID, uuid.NullUUID{UUID: parentID, Valid: true},
		models.NodeTypeTask, "Fix it", "Fix it #high [bug]", meta, now, now,
	}}

	node, err := scanNode(row)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if node.ParentID == nil || *node.ParentID != parentID {
		t.Errorf("Expected parent %s, got %v", parentID, node.ParentID)
	}
	if node.Metadata.Priority != "high" || !reflect.DeepEqual(node.Metadata.Tags, []string{"bug"}) {
		t.Errorf("Unexpected metadata %+v", node.Metadata)
	}
	if node.Type != models.NodeTypeTask {
		t.Errorf("Expected type task, got %s", node.Type)
	}
}

func TestScanNode_RootAndBadMetadata(t *testing.T) {
	t.Parallel()

	now := time.Now()
	root := fakeRow{values: []any{
		uuid.New(), uuid.New(), uuid.New(), uuid.NullUUID{},
		models.NodeTypeText, "root", "root", []byte(`{}`), now, now,
	}}
	node, err := scanNode(root)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if node.ParentID != nil {
		t.Errorf("Expected nil parent, got %v", node.ParentID)
	}

	bad := fakeRow{values: []any{
		uuid.New(), uuid.New(), uuid.New(), uuid.NullUUID{},
		models.NodeTypeText, "root", "root", []byte(`{not json`), now, now,
	}}
	if _, err := scanNode(bad); err == nil {
		t.Error("Expected error for malformed metadata")
	}

	if _, err := scanNode(fakeRow{err: sql.ErrNoRows}); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("Expected sql.ErrNoRows, got %v", err)
	}
}

func TestErrNodeNotFound_WrapsNoRows(t *testing.T) {
	t.Parallel()

	if !errors.Is(ErrNodeNotFound, sql.ErrNoRows) {
		t.Error("Expected ErrNodeNotFound to wrap sql.ErrNoRows")
	}
}

func TestAcceptSuggestion(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		meta models.NodeMetadata
		want models.NodeType
	}{
		{"plain idea becomes text", models.NodeMetadata{Suggested: true, Tags: []string{"idea"}}, models.NodeTypeText},
		{"idea with priority becomes task", models.NodeMetadata{Suggested: true, Priority: "high"}, models.NodeTypeTask},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			node := &models.Node{Type: models.NodeTypeGhost, Metadata: tt.meta}
			AcceptSuggestion(node)
			if node.Type != tt.want {
				t.Errorf("Expected type %s, got %s", tt.want, node.Type)
			}
			if node.Metadata.Suggested {
				t.Error("Expected suggested flag to be cleared")
			}
			if node.IsGhost() {
				t.Error("Expected node to no longer be a ghost")
			}
		})
	}
}

func TestNullableUUID(t *testing.T) {
	t.Parallel()

	if nullableUUID(nil).Valid {
		t.Error("Expected nil pointer to be invalid")
	}
	id := uuid.New()
	if got := nullableUUID(&id); !got.Valid || got.UUID != id {
		t.Errorf("Expected valid %s, got %+v", id, got)
	}
}
