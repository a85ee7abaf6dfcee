package quickinput

var dateCandidates = []CompletionItem{
	{Value: "today", Label: "Today", Description: "Due today", Category: "relative"},
	{Value: "tomorrow", Label: "Tomorrow", Description: "Due tomorrow", Category: "relative"},
	{Value: "yesterday", Label: "Yesterday", Description: "Due yesterday", Category: "relative"},
	{Value: "monday", Label: "Monday", Description: "Next Monday", Category: "weekday"},
	{Value: "tuesday", Label: "Tuesday", Description: "Next Tuesday", Category: "weekday"},
	{Value: "wednesday", Label: "Wednesday", Description: "Next Wednesday", Category: "weekday"},
	{Value: "thursday", Label: "Thursday", Description: "Next Thursday", Category: "weekday"},
	{Value: "friday", Label: "Friday", Description: "Next Friday", Category: "weekday"},
	{Value: "saturday", Label: "Saturday", Description: "Next Saturday", Category: "weekday"},
	{Value: "sunday", Label: "Sunday", Description: "Next Sunday", Category: "weekday"},
}

var priorityCandidates = []CompletionItem{
	{Value: "critical", Label: "Critical", Description: "Drop everything", Category: "level"},
	{Value: "urgent", Label: "Urgent", Description: "Needs attention now", Category: "level"},
	{Value: "high", Label: "High", Description: "High priority", Category: "level"},
	{Value: "asap", Label: "ASAP", Description: "As soon as possible", Category: "level"},
	{Value: "medium", Label: "Medium", Description: "Normal priority", Category: "level"},
	{Value: "low", Label: "Low", Description: "Whenever there is time", Category: "level"},
	{Value: "blocked", Label: "Blocked", Description: "Waiting on a dependency", Category: "state"},
	{Value: "waiting", Label: "Waiting", Description: "Waiting on someone else", Category: "state"},
}

var statusCandidates = []CompletionItem{
	{Value: "todo", Label: "To do", Description: "Not started", Category: "status"},
	{Value: "in-progress", Label: "In progress", Description: "Being worked on", Category: "status"},
	{Value: "review", Label: "Review", Description: "Ready for review", Category: "status"},
	{Value: "done", Label: "Done", Description: "Finished", Category: "status"},
	{Value: "cancelled", Label: "Cancelled", Description: "No longer needed", Category: "status"},
}

var tagCandidates = []CompletionItem{
	{Value: "urgent", Label: "urgent", Category: "common"},
	{Value: "important", Label: "important", Category: "common"},
	{Value: "blocker", Label: "blocker", Category: "common"},
	{Value: "review", Label: "review", Category: "common"},
	{Value: "idea", Label: "idea", Category: "common"},
	{Value: "research", Label: "research", Category: "common"},
	{Value: "bug", Label: "bug", Category: "common"},
	{Value: "feature", Label: "feature", Category: "common"},
	{Value: "design", Label: "design", Category: "common"},
	{Value: "meeting", Label: "meeting", Category: "common"},
	{Value: "followup", Label: "followup", Category: "common"},
	{Value: "docs", Label: "docs", Category: "common"},
}

var assigneeCandidates = []CompletionItem{
	{Value: "me", Label: "Me", Description: "Assign to yourself", Category: "people"},
	{Value: "team", Label: "Team", Description: "Whole team", Category: "people"},
	{Value: "alice", Label: "Alice", Category: "people"},
	{Value: "bob", Label: "Bob", Category: "people"},
	{Value: "carol", Label: "Carol", Category: "people"},
	{Value: "dave", Label: "Dave", Category: "people"},
}

var fontSizeCandidates = []CompletionItem{
	{Value: "12px", Label: "12px", Description: "Extra small", Category: "px"},
	{Value: "14px", Label: "14px", Description: "Small", Category: "px"},
	{Value: "16px", Label: "16px", Description: "Base", Category: "px"},
	{Value: "18px", Label: "18px", Description: "Large", Category: "px"},
	{Value: "20px", Label: "20px", Description: "Extra large", Category: "px"},
	{Value: "24px", Label: "24px", Description: "Heading", Category: "px"},
	{Value: "32px", Label: "32px", Description: "Title", Category: "px"},
	{Value: "0.875rem", Label: "0.875rem", Description: "Small", Category: "rem"},
	{Value: "1rem", Label: "1rem", Description: "Base", Category: "rem"},
	{Value: "1.25rem", Label: "1.25rem", Description: "Large", Category: "rem"},
	{Value: "1.5rem", Label: "1.5rem", Description: "Heading", Category: "rem"},
	{Value: "2rem", Label: "2rem", Description: "Title", Category: "rem"},
}

var colorCandidates = ColorPalette()

var checkboxCandidates = []CompletionItem{
	{Value: " ", Label: "Unchecked", Description: "[ ]", Category: "checkbox"},
	{Value: "x", Label: "Checked", Description: "[x]", Category: "checkbox"},
}

var candidatesByKind = map[PatternKind][]CompletionItem{
	KindDate:     dateCandidates,
	KindPriority: priorityCandidates,
	KindStatus:   statusCandidates,
	KindTag:      tagCandidates,
	KindAssignee: assigneeCandidates,
	KindFontSize: fontSizeCandidates,
	KindColor:    colorCandidates,
	KindCheckbox: checkboxCandidates,
}

// priorityBonus and dateBonus lift the values people pick most often.
var priorityBonus = map[string]int{
	"critical": 30,
	"urgent":   30,
	"high":     30,
	"asap":     25,
	"medium":   15,
	"blocked":  10,
	"waiting":  10,
	"low":      5,
}

var dateBonus = map[string]int{
	"today":     30,
	"tomorrow":  25,
	"monday":    15,
	"tuesday":   15,
	"wednesday": 15,
	"thursday":  15,
	"friday":    15,
	"saturday":  15,
	"sunday":    15,
	"yesterday": 5,
}
