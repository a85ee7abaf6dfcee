package quickinput

import (
	"reflect"
	"sort"
	"strings"
	"testing"
	"time"
)

// wednesday is 2026-10-14, a Wednesday.
var wednesday = time.Date(2026, time.October, 14, 9, 30, 0, 0, time.UTC)

func newTestParser() *Parser {
	return NewParser(
		WithClock(func() time.Time { return wednesday }),
		WithLocation(time.UTC),
	)
}

func TestParseInput_EndToEnd(t *testing.T) {
	t.Parallel()

	p := newTestParser()
	result := p.ParseInput("Ship the release #high ^tomorrow @alice [blocker]")

	if result.Content != "Ship the release" {
		t.Errorf("Expected content 'Ship the release', got '%s'", result.Content)
	}
	if result.Metadata.Priority != "high" {
		t.Errorf("Expected priority 'high', got '%s'", result.Metadata.Priority)
	}
	if result.Metadata.DueDate != "10/15/2026" {
		t.Errorf("Expected due date '10/15/2026', got '%s'", result.Metadata.DueDate)
	}
	if !reflect.DeepEqual(result.Metadata.Assignee, []string{"alice"}) {
		t.Errorf("Expected assignee [alice], got %v", result.Metadata.Assignee)
	}
	if !reflect.DeepEqual(result.Metadata.Tags, []string{"blocker"}) {
		t.Errorf("Expected tags [blocker], got %v", result.Metadata.Tags)
	}

	want := []ExtractedPattern{
		{Type: KindPriority, Value: "high", Display: "High", StartIndex: 16, EndIndex: 22},
		{Type: KindDate, Value: "tomorrow", Display: "10/15/2026", StartIndex: 22, EndIndex: 32},
		{Type: KindAssignee, Value: "alice", Display: "alice", StartIndex: 32, EndIndex: 39},
		{Type: KindTag, Value: "blocker", Display: "blocker", StartIndex: 40, EndIndex: 49},
	}
	if !reflect.DeepEqual(result.Patterns, want) {
		t.Errorf("Expected patterns %+v, got %+v", want, result.Patterns)
	}
}

func TestExtractPatterns_Kinds(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		kind  PatternKind
		value string
		disp  string
	}{
		{"priority at start", "#urgent fix it", KindPriority, "urgent", "Urgent"},
		{"priority any word", "plan #someday", KindPriority, "someday", "Someday"},
		{"status", "write docs !done", KindStatus, "done", "done"},
		{"assignee with dot", "ping @jane.doe", KindAssignee, "jane.doe", "jane.doe"},
		{"color upper-cased display", "box color:Blue", KindColor, "Blue", "BLUE"},
		{"color hex", "box color:#ff0000", KindColor, "#ff0000", "#FF0000"},
		{"color case-insensitive trigger", "box COLOR:red-500", KindColor, "red-500", "RED-500"},
		{"font size px", "title sz:24px", KindFontSize, "24px", "24px"},
		{"font size rem", "title sz:2rem", KindFontSize, "2rem", "2rem"},
		{"font size bare", "title sz:18", KindFontSize, "18", "18"},
		{"tag mid-word", "foo[bar]baz", KindTag, "bar", "bar"},
		{"checkbox upper X", "[X] ship", KindCheckbox, "X", "X"},
	}

	p := newTestParser()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var found *ExtractedPattern
			for _, pattern := range p.ExtractPatterns(tt.input) {
				if pattern.Type == tt.kind {
					pattern := pattern
					found = &pattern
					break
				}
			}
			if found == nil {
				t.Fatalf("Expected a %s pattern in %q", tt.kind, tt.input)
			}
			if found.Value != tt.value {
				t.Errorf("Expected value '%s', got '%s'", tt.value, found.Value)
			}
			if found.Display != tt.disp {
				t.Errorf("Expected display '%s', got '%s'", tt.disp, found.Display)
			}
			if got := tt.input[found.StartIndex:found.EndIndex]; !strings.Contains(got, tt.value) {
				t.Errorf("Expected span %q to contain %q", got, tt.value)
			}
		})
	}
}

func TestExtractPatterns_RequiresWhitespaceBeforeTrigger(t *testing.T) {
	t.Parallel()

	p := newTestParser()
	for _, input := range []string{"email me@example.com", "issue#42", "a^b", "wow!bang", "xsz:12px", "mycolor:red"} {
		for _, pattern := range p.ExtractPatterns(input) {
			t.Errorf("Expected no patterns in %q, got %+v", input, pattern)
		}
	}
}

func TestExtractPatterns_TagAndCheckboxBothMatch(t *testing.T) {
	t.Parallel()

	p := newTestParser()
	patterns := p.ExtractPatterns("[x] finish")

	if len(patterns) != 2 {
		t.Fatalf("Expected 2 patterns, got %d: %+v", len(patterns), patterns)
	}
	if patterns[0].Type != KindTag || patterns[1].Type != KindCheckbox {
		t.Errorf("Expected tag then checkbox, got %s then %s", patterns[0].Type, patterns[1].Type)
	}
	for _, pattern := range patterns {
		if pattern.StartIndex != 0 || pattern.EndIndex != 3 {
			t.Errorf("Expected span [0,3), got [%d,%d)", pattern.StartIndex, pattern.EndIndex)
		}
	}
}

func TestExtractPatterns_SortedByStart(t *testing.T) {
	t.Parallel()

	inputs := []string{
		"",
		"[tag] #high ^today @bob !wip color:red sz:12px [ ]",
		"@a @b @c #x #y [p, q] [x] ^monday",
		"color:blue #low plain [z] sz:3em ^2026-01-02 !ok",
		"  spaced   out   #tokens   ",
	}

	p := newTestParser()
	for _, input := range inputs {
		patterns := p.ExtractPatterns(input)
		if patterns == nil {
			t.Errorf("Expected non-nil slice for %q", input)
		}
		if !sort.SliceIsSorted(patterns, func(i, j int) bool {
			return patterns[i].StartIndex < patterns[j].StartIndex
		}) {
			t.Errorf("Expected patterns sorted by start for %q, got %+v", input, patterns)
		}
	}
}

func TestCleanTextFromPatterns(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", ""},
		{"no patterns", "just some words", "just some words"},
		{"collapses whitespace", "  hello   #high   world  ", "hello world"},
		{"strips every kind", "Call #high ^today @bob !wip [phone] color:red sz:14px mom", "Call mom"},
		{"tag mid-word", "foo[bar]baz", "foobaz"},
		{"newlines collapse", "line one\n\n#low\tline two", "line one line two"},
		// Identical tag and checkbox spans are removed one after the other.
		{"overlapping spans removed positionally", "[x] finish", "nish"},
		{"overlapping spans at end", "do [ ] it", "do"},
	}

	p := newTestParser()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := p.CleanTextFromPatterns(tt.input)
			if got != tt.want {
				t.Errorf("Expected '%s', got '%s'", tt.want, got)
			}
		})
	}
}

func TestCleanTextFromPatterns_NormalizedWhitespace(t *testing.T) {
	t.Parallel()

	inputs := []string{
		"",
		"   ",
		"[[[]]] ^^^ ### @@@ !!!",
		"héllo #höh [ünï, cödé] @ñ",
		"\t#a\n#b\r\n[c]  [x]  [ ]  ",
		"color: sz: [ ] [] [x][x][x]",
		strings.Repeat("#p ", 200),
	}

	p := newTestParser()
	for _, input := range inputs {
		got := p.CleanTextFromPatterns(input)
		if got != strings.TrimSpace(got) {
			t.Errorf("Expected no leading/trailing whitespace for %q, got %q", input, got)
		}
		if strings.Contains(got, "  ") {
			t.Errorf("Expected no doubled whitespace for %q, got %q", input, got)
		}
	}
}

func TestParseMetadata_Aggregation(t *testing.T) {
	t.Parallel()

	checked := true
	unchecked := false

	tests := []struct {
		name  string
		input string
		want  ParsedMetadata
	}{
		{
			name:  "priority last wins",
			input: "#low #high",
			want:  ParsedMetadata{Priority: "high"},
		},
		{
			name:  "assignees accumulate in order",
			input: "@alice @bob",
			want:  ParsedMetadata{Assignee: []string{"alice", "bob"}},
		},
		{
			name:  "tags split on commas",
			input: "[urgent, review]",
			want:  ParsedMetadata{Tags: []string{"urgent", "review"}},
		},
		{
			name:  "tags accumulate across matches and drop empties",
			input: "[a,,b] later [ c ]",
			want:  ParsedMetadata{Tags: []string{"a", "b", "c"}},
		},
		{
			name:  "status color and font size last wins",
			input: "!todo !done color:red color:blue sz:12px sz:16px",
			want:  ParsedMetadata{Status: "done", Color: "blue", FontSize: "16px"},
		},
		{
			name:  "checked checkbox also yields a tag",
			input: "[x] ship",
			want:  ParsedMetadata{Tags: []string{"x"}, Checked: &checked},
		},
		{
			name:  "unchecked checkbox",
			input: "[ ] ship",
			want:  ParsedMetadata{Checked: &unchecked},
		},
		{
			name:  "due date is resolved",
			input: "^today",
			want:  ParsedMetadata{DueDate: "10/14/2026"},
		},
		{
			name:  "nothing to find",
			input: "plain text",
			want:  ParsedMetadata{},
		},
	}

	p := newTestParser()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := p.ParseMetadata(tt.input)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Expected %+v, got %+v", tt.want, got)
			}
		})
	}
}

func TestParseInput_Idempotent(t *testing.T) {
	t.Parallel()

	inputs := []string{
		"Ship the release #high ^tomorrow @alice [blocker]",
		"[x] finish",
		"a #b ^c @d !e [f] color:g sz:1px",
		"nothing here",
	}

	p := newTestParser()
	for _, input := range inputs {
		first := p.ParseInput(input)
		again := p.ParseInput(input)
		if !reflect.DeepEqual(first, again) {
			t.Errorf("Expected identical results for %q", input)
		}

		reparsed := p.ParseInput(first.Content)
		if !isSubset(reparsed.Metadata, first.Metadata) {
			t.Errorf("Expected reparsed metadata %+v to be a subset of %+v", reparsed.Metadata, first.Metadata)
		}
	}
}

func isSubset(sub, full ParsedMetadata) bool {
	if sub.Priority != "" && sub.Priority != full.Priority {
		return false
	}
	if sub.DueDate != "" && sub.DueDate != full.DueDate {
		return false
	}
	if sub.Status != "" && sub.Status != full.Status {
		return false
	}
	if sub.Color != "" && sub.Color != full.Color {
		return false
	}
	if sub.FontSize != "" && sub.FontSize != full.FontSize {
		return false
	}
	return len(sub.Assignee) <= len(full.Assignee) && len(sub.Tags) <= len(full.Tags)
}

func TestParsedMetadata_IsEmpty(t *testing.T) {
	t.Parallel()

	if !(ParsedMetadata{}).IsEmpty() {
		t.Error("Expected zero metadata to be empty")
	}
	if (ParsedMetadata{Tags: []string{"a"}}).IsEmpty() {
		t.Error("Expected metadata with tags to be non-empty")
	}
}

func TestIsValidKind(t *testing.T) {
	t.Parallel()

	for _, k := range Kinds {
		if !IsValidKind(string(k)) {
			t.Errorf("Expected %s to be valid", k)
		}
	}
	if IsValidKind("mood") {
		t.Error("Expected mood to be invalid")
	}
}

func TestExtractPatterns_UnicodeSpaceBeforeTrigger(t *testing.T) {
	t.Parallel()

	p := newTestParser()
	tests := []struct {
		name  string
		input string
		kind  PatternKind
		value string
		start int
		end   int
	}{
		{name: "nbsp priority", input: "a\u00a0#high", kind: KindPriority, value: "high", start: 1, end: 8},
		{name: "em space assignee", input: "a\u2003@sam", kind: KindAssignee, value: "sam", start: 1, end: 8},
		{name: "nbsp ends date value", input: "^today\u00a0later", kind: KindDate, value: "today", start: 0, end: 6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			patterns := p.ExtractPatterns(tt.input)
			if len(patterns) != 1 {
				t.Fatalf("Expected 1 pattern, got %d: %+v", len(patterns), patterns)
			}
			got := patterns[0]
			if got.Type != tt.kind || got.Value != tt.value {
				t.Errorf("Expected %s '%s', got %s '%s'", tt.kind, tt.value, got.Type, got.Value)
			}
			if got.StartIndex != tt.start || got.EndIndex != tt.end {
				t.Errorf("Expected span [%d,%d), got [%d,%d)", tt.start, tt.end, got.StartIndex, got.EndIndex)
			}
		})
	}
}

func TestPinRelativeDates(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "named day", input: "Pay rent ^today", want: "Pay rent ^2026-10-14"},
		{name: "weekday", input: "Call ^Friday @bob", want: "Call ^2026-10-16 @bob"},
		{name: "absolute date untouched", input: "Launch ^2026-12-01 #high", want: "Launch ^2026-12-01 #high"},
		{name: "several tokens", input: "^tomorrow then ^yesterday", want: "^2026-10-15 then ^2026-10-13"},
		{name: "spacing kept", input: "  spaced ^tomorrow  ", want: "  spaced ^2026-10-15  "},
		{name: "no dates", input: "plain [tag]", want: "plain [tag]"},
		{name: "empty", input: "", want: ""},
	}

	p := newTestParser()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := p.PinRelativeDates(tt.input); got != tt.want {
				t.Errorf("Expected '%s', got '%s'", tt.want, got)
			}
		})
	}
}

func TestPinRelativeDates_DueDateSurvivesLaterDays(t *testing.T) {
	t.Parallel()

	pinned := newTestParser().PinRelativeDates("Pay rent ^today")
	later := newTestParser().At(wednesday.AddDate(0, 0, 3))

	if got := later.ParseMetadata(pinned).DueDate; got != "10/14/2026" {
		t.Errorf("Expected due date to stay '10/14/2026', got '%s'", got)
	}
	if HasRelativeDate(pinned) {
		t.Errorf("Expected %q to have no relative dates left", pinned)
	}
	if !HasRelativeDate("Pay rent ^today") {
		t.Error("Expected '^today' to count as relative")
	}
}
