package quickinput

import "strings"

// ParsedMetadata holds the structured fields aggregated from one quick-input string.
// Single-valued fields keep the last match; list fields accumulate in order.
type ParsedMetadata struct {
	Priority string   `json:"priority,omitempty" yaml:"priority,omitempty"`
	DueDate  string   `json:"dueDate,omitempty" yaml:"dueDate,omitempty"`
	Assignee []string `json:"assignee,omitempty" yaml:"assignee,omitempty"`
	Status   string   `json:"status,omitempty" yaml:"status,omitempty"`
	Tags     []string `json:"tags,omitempty" yaml:"tags,omitempty"`
	Color    string   `json:"color,omitempty" yaml:"color,omitempty"`
	FontSize string   `json:"fontSize,omitempty" yaml:"fontSize,omitempty"`
	Checked  *bool    `json:"checked,omitempty" yaml:"checked,omitempty"`

	// Extra carries extension keys that have no dedicated field.
	Extra map[string]string `json:"extra,omitempty" yaml:"extra,omitempty"`
}

// IsEmpty reports whether no field has been set
func (m ParsedMetadata) IsEmpty() bool {
	return m.Priority == "" &&
		m.DueDate == "" &&
		len(m.Assignee) == 0 &&
		m.Status == "" &&
		len(m.Tags) == 0 &&
		m.Color == "" &&
		m.FontSize == "" &&
		m.Checked == nil &&
		len(m.Extra) == 0
}

func foldMetadata(patterns []ExtractedPattern) ParsedMetadata {
	var md ParsedMetadata
	for _, p := range patterns {
		switch p.Type {
		case KindPriority:
			md.Priority = p.Value
		case KindDate:
			md.DueDate = p.Display
		case KindAssignee:
			md.Assignee = append(md.Assignee, p.Value)
		case KindStatus:
			md.Status = p.Value
		case KindTag:
			md.Tags = append(md.Tags, SplitTags(p.Value)...)
		case KindColor:
			md.Color = p.Value
		case KindFontSize:
			md.FontSize = p.Value
		case KindCheckbox:
			checked := strings.EqualFold(p.Value, "x")
			md.Checked = &checked
		}
	}
	return md
}

// SplitTags splits a bracket interior on commas, dropping empty fragments.
func SplitTags(value string) []string {
	parts := strings.Split(value, ",")
	tags := make([]string, 0, len(parts))
	for _, part := range parts {
		if tag := strings.TrimSpace(part); tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}
