package models

import (
	"time"

	"github.com/google/uuid"
)

// NodeType represents what kind of content a mind-map node holds
type NodeType string

const (
	NodeTypeText       NodeType = "text"
	NodeTypeTask       NodeType = "task"
	NodeTypeImage      NodeType = "image"
	NodeTypeCode       NodeType = "code"
	NodeTypeQuestion   NodeType = "question"
	NodeTypeAnnotation NodeType = "annotation"
	NodeTypeComment    NodeType = "comment"
	NodeTypeReference  NodeType = "reference"
	NodeTypeGroup      NodeType = "group"
	NodeTypeGhost      NodeType = "ghost"
)

// NodeTypes lists every node type
var NodeTypes = []NodeType{
	NodeTypeText,
	NodeTypeTask,
	NodeTypeImage,
	NodeTypeCode,
	NodeTypeQuestion,
	NodeTypeAnnotation,
	NodeTypeComment,
	NodeTypeReference,
	NodeTypeGroup,
	NodeTypeGhost,
}

// IsValid reports whether t is a known node type
func (t NodeType) IsValid() bool {
	for _, known := range NodeTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Node represents a single node on a mind map
type Node struct {
	ID         uuid.UUID    `json:"id"`
	MapID      uuid.UUID    `json:"map_id"`
	UserID     uuid.UUID    `json:"user_id"`
	ParentID   *uuid.UUID   `json:"parent_id,omitempty"`
	Type       NodeType     `json:"type"`
	Content    string       `json:"content"`
	QuickInput string       `json:"quick_input"`
	Metadata   NodeMetadata `json:"metadata"`
	CreatedAt  time.Time    `json:"created_at"`
	UpdatedAt  time.Time    `json:"updated_at"`
}

// IsGhost reports whether the node is an unaccepted AI suggestion
func (n *Node) IsGhost() bool {
	return n.Type == NodeTypeGhost || n.Metadata.Suggested
}

// NodeMetadata contains the structured side-fields of a node
type NodeMetadata struct {
	Priority  string   `json:"priority,omitempty"`
	DueDate   string   `json:"due_date,omitempty"`
	Assignees []string `json:"assignees,omitempty"`
	Status    string   `json:"status,omitempty"`
	Tags      []string `json:"tags,omitempty"`
	Color     string   `json:"color,omitempty"`
	HexColor  string   `json:"hex_color,omitempty"`
	FontSize  string   `json:"font_size,omitempty"`
	Checked   *bool    `json:"checked,omitempty"`
	Suggested bool     `json:"suggested,omitempty"`
}

// HasTaskFields reports whether the metadata carries anything that makes a node a task
func (m NodeMetadata) HasTaskFields() bool {
	return m.Priority != "" || m.Status != "" || m.DueDate != "" || m.Checked != nil
}
