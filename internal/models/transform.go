package models

import (
	"strings"

	"github.com/benvon/quicknode/internal/quickinput"
)

// NodeData is the persisted shape derived from one parsed quick-input string
type NodeData struct {
	Type     NodeType     `json:"type"`
	Content  string       `json:"content"`
	Metadata NodeMetadata `json:"metadata"`
}

// NodeFormData is a flat view of a node for edit forms
type NodeFormData struct {
	Content    string   `json:"content"`
	Type       NodeType `json:"type"`
	Priority   string   `json:"priority"`
	DueDate    string   `json:"due_date"`
	Assignees  string   `json:"assignees"`
	Status     string   `json:"status"`
	Tags       string   `json:"tags"`
	Color      string   `json:"color"`
	HexColor   string   `json:"hex_color"`
	FontSize   string   `json:"font_size"`
	Checked    bool     `json:"checked"`
	QuickInput string   `json:"quick_input"`
}

// TransformToNodeData maps a parse result onto node fields.
// A node with priority, status, due date or a checkbox becomes a task.
func TransformToNodeData(result quickinput.ParseResult) NodeData {
	md := result.Metadata
	if md.IsEmpty() {
		return NodeData{Type: NodeTypeText, Content: result.Content}
	}

	meta := NodeMetadata{
		Priority:  md.Priority,
		DueDate:   md.DueDate,
		Assignees: cloneStrings(md.Assignee),
		Status:    md.Status,
		Tags:      nodeTags(result),
		Color:     md.Color,
		FontSize:  md.FontSize,
	}
	if md.Checked != nil {
		checked := *md.Checked
		meta.Checked = &checked
	}
	if meta.Color != "" {
		if hex, ok := quickinput.LookupHex(meta.Color); ok {
			meta.HexColor = hex
		}
	}

	nodeType := NodeTypeText
	if meta.HasTaskFields() {
		nodeType = NodeTypeTask
	}

	return NodeData{
		Type:     nodeType,
		Content:  result.Content,
		Metadata: meta,
	}
}

// nodeTags collects tags, skipping bracket matches that are really checkboxes.
func nodeTags(result quickinput.ParseResult) []string {
	if len(result.Patterns) == 0 {
		return cloneStrings(result.Metadata.Tags)
	}

	checkboxes := make(map[[2]int]bool)
	for _, p := range result.Patterns {
		if p.Type == quickinput.KindCheckbox {
			checkboxes[[2]int{p.StartIndex, p.EndIndex}] = true
		}
	}

	var tags []string
	for _, p := range result.Patterns {
		if p.Type != quickinput.KindTag || checkboxes[[2]int{p.StartIndex, p.EndIndex}] {
			continue
		}
		tags = append(tags, quickinput.SplitTags(p.Value)...)
	}
	return tags
}

// NodeToFormData flattens a node for editing
func NodeToFormData(node *Node) NodeFormData {
	form := NodeFormData{
		Content:    node.Content,
		Type:       node.Type,
		Priority:   node.Metadata.Priority,
		DueDate:    node.Metadata.DueDate,
		Assignees:  strings.Join(node.Metadata.Assignees, ", "),
		Status:     node.Metadata.Status,
		Tags:       strings.Join(node.Metadata.Tags, ", "),
		Color:      node.Metadata.Color,
		HexColor:   node.Metadata.HexColor,
		FontSize:   node.Metadata.FontSize,
		QuickInput: NodeToQuickInput(node),
	}
	if node.Metadata.Checked != nil {
		form.Checked = *node.Metadata.Checked
	}
	return form
}

// NodeToQuickInput rebuilds quick-input text from a node's content and metadata.
// Re-parsing the result yields the same metadata.
func NodeToQuickInput(node *Node) string {
	md := node.Metadata
	parts := make([]string, 0, 8)

	if content := strings.TrimSpace(node.Content); content != "" {
		parts = append(parts, content)
	}
	if md.Priority != "" {
		parts = append(parts, "#"+md.Priority)
	}
	if due := dueToken(md.DueDate); due != "" {
		parts = append(parts, "^"+due)
	}
	for _, a := range md.Assignees {
		if a != "" {
			parts = append(parts, "@"+a)
		}
	}
	if md.Status != "" {
		parts = append(parts, "!"+md.Status)
	}
	if len(md.Tags) > 0 {
		parts = append(parts, "["+strings.Join(md.Tags, ", ")+"]")
	}
	if md.Color != "" {
		parts = append(parts, "color:"+md.Color)
	}
	if md.FontSize != "" {
		parts = append(parts, "sz:"+md.FontSize)
	}
	if md.Checked != nil {
		if *md.Checked {
			parts = append(parts, "[x]")
		} else {
			parts = append(parts, "[ ]")
		}
	}

	return strings.Join(parts, " ")
}

// dueToken returns the date as a single token, or "" when it cannot be written as one.
func dueToken(due string) string {
	compact := strings.Join(strings.Fields(due), "")
	if compact == due {
		return due
	}
	if _, ok := quickinput.ResolveDate(compact); !ok {
		return ""
	}
	return compact
}

func cloneStrings(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
