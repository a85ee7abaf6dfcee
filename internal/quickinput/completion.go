package quickinput

import (
	"regexp"
	"sort"
	"strings"
)

// LookbackWindow bounds how many bytes before the cursor are inspected for a trigger
const LookbackWindow = 50

const (
	boostExact    = 100
	boostPrefix   = 50
	boostContains = 10
)

// CompletionItem is a single suggestion for an in-progress token
type CompletionItem struct {
	Value       string `json:"value" yaml:"value"`
	Label       string `json:"label" yaml:"label"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	Category    string `json:"category,omitempty" yaml:"category,omitempty"`
	HexColor    string `json:"hexColor,omitempty" yaml:"hexColor,omitempty"`
	Section     string `json:"section,omitempty" yaml:"section,omitempty"`
	Boost       int    `json:"boost,omitempty" yaml:"boost,omitempty"`
}

// CompletionResult is what the completion source offers at a cursor position.
// From is the byte offset where the replaced token starts.
type CompletionResult struct {
	Kind    PatternKind      `json:"kind" yaml:"kind"`
	Query   string           `json:"query" yaml:"query"`
	From    int              `json:"from" yaml:"from"`
	Options []CompletionItem `json:"options" yaml:"options"`
}

type trigger struct {
	kind PatternKind
	re   *regexp.Regexp
}

// triggers are tried in order and the first match wins.
var triggers = []trigger{
	{kind: KindDate, re: regexp.MustCompile(`\^(\w*)$`)},
	{kind: KindPriority, re: regexp.MustCompile(`#(\w*)$`)},
	{kind: KindColor, re: regexp.MustCompile(`color:(\w*)$`)},
	{kind: KindFontSize, re: regexp.MustCompile(`sz:([\w.]*)$`)},
	{kind: KindAssignee, re: regexp.MustCompile(`@(\w*)$`)},
	{kind: KindTag, re: regexp.MustCompile(`\[([^\]]*?)$`)},
}

// checkboxFragment matches a bracket interior that is a checkbox being typed.
var checkboxFragment = regexp.MustCompile(`^[xX\s,;]+$`)

var sectionOrder = []PatternKind{KindDate, KindPriority, KindAssignee, KindTag, KindColor}

var sectionNames = map[PatternKind]string{
	KindDate:     "Dates",
	KindPriority: "Priority",
	KindAssignee: "Assignees",
	KindTag:      "Tags",
	KindColor:    "Colors",
	KindFontSize: "Font sizes",
	KindStatus:   "Status",
	KindCheckbox: "Checkbox",
}

// sectionRank orders sections; kinds outside sectionOrder share the last rank.
func sectionRank(kind PatternKind) int {
	for i, k := range sectionOrder {
		if k == kind {
			return i
		}
	}
	return len(sectionOrder)
}

// DetectTrigger finds the pattern kind and query being typed at the end of lookback.
func DetectTrigger(lookback string) (kind PatternKind, query string, ok bool) {
	for _, t := range triggers {
		m := t.re.FindStringSubmatch(lookback)
		if m == nil {
			continue
		}
		if t.kind == KindTag && checkboxFragment.MatchString(m[1]) {
			continue
		}
		return t.kind, m[1], true
	}
	return "", "", false
}

// GetCompletionsForPattern returns the candidates of kind matching query, ranked.
// Unknown kinds yield an empty list.
func GetCompletionsForPattern(kind PatternKind, query string) []CompletionItem {
	candidates, ok := candidatesByKind[kind]
	if !ok {
		return []CompletionItem{}
	}

	q := strings.ToLower(query)
	matches := make([]CompletionItem, 0, len(candidates))
	for _, c := range candidates {
		if !strings.Contains(strings.ToLower(c.Value), q) && !strings.Contains(strings.ToLower(c.Label), q) {
			continue
		}
		c.Boost = relevance(kind, c.Value, q)
		c.Section = sectionNames[kind]
		matches = append(matches, c)
	}

	sortCompletions(matches)
	return matches
}

func relevance(kind PatternKind, value, query string) int {
	v := strings.ToLower(value)
	boost := 0
	switch {
	case v == query:
		boost = boostExact
	case strings.HasPrefix(v, query):
		boost = boostPrefix
	case strings.Contains(v, query):
		boost = boostContains
	}

	switch kind {
	case KindPriority:
		boost += priorityBonus[v]
	case KindDate:
		boost += dateBonus[v]
	}
	return boost
}

// sortCompletions orders one section by boost, keeping table order for ties.
func sortCompletions(items []CompletionItem) {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Boost > items[j].Boost
	})
}

// UniversalCompletionSource inspects the text before cursorPosition and returns the
// completions for the token being typed, or nil when nothing applies.
func UniversalCompletionSource(text string, cursorPosition int) *CompletionResult {
	if cursorPosition < 0 {
		cursorPosition = 0
	}
	if cursorPosition > len(text) {
		cursorPosition = len(text)
	}
	start := max(0, cursorPosition-LookbackWindow)
	lookback := text[start:cursorPosition]

	kind, query, ok := DetectTrigger(lookback)
	if !ok {
		return nil
	}

	options := GetCompletionsForPattern(kind, query)
	if len(options) == 0 {
		return nil
	}

	return &CompletionResult{
		Kind:    kind,
		Query:   query,
		From:    cursorPosition - len(query),
		Options: options,
	}
}

// SearchCompletions matches query against every candidate table and returns one list
// grouped by section (dates, priority, assignees, tags, colors, then the rest), each
// section ranked by relevance.
func SearchCompletions(query string) []CompletionItem {
	groups := make(map[PatternKind][]CompletionItem, len(candidatesByKind))
	for kind := range candidatesByKind {
		if items := GetCompletionsForPattern(kind, query); len(items) > 0 {
			groups[kind] = items
		}
	}
	return rankSections(groups)
}

// rankSections merges per-kind completion lists into one list in section order.
func rankSections(groups map[PatternKind][]CompletionItem) []CompletionItem {
	kinds := make([]PatternKind, 0, len(groups))
	for k := range groups {
		kinds = append(kinds, k)
	}
	sort.SliceStable(kinds, func(i, j int) bool {
		ri, rj := sectionRank(kinds[i]), sectionRank(kinds[j])
		if ri != rj {
			return ri < rj
		}
		return kinds[i] < kinds[j]
	})

	merged := make([]CompletionItem, 0)
	for _, k := range kinds {
		merged = append(merged, groups[k]...)
	}
	return merged
}
