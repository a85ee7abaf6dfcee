package quickinput

import (
	"regexp"
	"sort"
	"strings"
)

// PatternKind identifies one of the token categories recognized in quick input
type PatternKind string

const (
	KindDate     PatternKind = "date"
	KindPriority PatternKind = "priority"
	KindTag      PatternKind = "tag"
	KindAssignee PatternKind = "assignee"
	KindColor    PatternKind = "color"
	KindFontSize PatternKind = "fontSize"
	KindStatus   PatternKind = "status"
	KindCheckbox PatternKind = "checkbox"
)

// Kinds lists every pattern kind in matcher order
var Kinds = []PatternKind{
	KindPriority,
	KindDate,
	KindAssignee,
	KindStatus,
	KindTag,
	KindColor,
	KindFontSize,
	KindCheckbox,
}

// IsValidKind reports whether value names a known pattern kind
func IsValidKind(value string) bool {
	for _, k := range Kinds {
		if string(k) == value {
			return true
		}
	}
	return false
}

// ExtractedPattern is one located match in the source text.
// StartIndex and EndIndex are byte offsets; EndIndex is exclusive.
type ExtractedPattern struct {
	Type       PatternKind `json:"type" yaml:"type"`
	Value      string      `json:"value" yaml:"value"`
	Display    string      `json:"display" yaml:"display"`
	StartIndex int         `json:"start_index" yaml:"start_index"`
	EndIndex   int         `json:"end_index" yaml:"end_index"`
}

type matcher struct {
	kind    PatternKind
	re      *regexp.Regexp
	display func(p *Parser, value string) string
}

// matchers is evaluated in order; each one runs over the whole text independently.
// Triggers follow any Unicode space, including NBSP.
var matchers = []matcher{
	{kind: KindPriority, re: regexp.MustCompile(`(?i)(?:^|[\s\p{Z}])#(\w+)`), display: displayCapitalized},
	{kind: KindDate, re: regexp.MustCompile(`(?:^|[\s\p{Z}])\^([^\s\p{Z}^]+)`), display: displayDate},
	{kind: KindAssignee, re: regexp.MustCompile(`(?:^|[\s\p{Z}])@([^\s\p{Z}@]+)`), display: displayVerbatim},
	{kind: KindStatus, re: regexp.MustCompile(`(?:^|[\s\p{Z}])!([^\s\p{Z}!]+)`), display: displayVerbatim},
	{kind: KindTag, re: regexp.MustCompile(`\[([^\[\]]+)\]`), display: displayVerbatim},
	{kind: KindColor, re: regexp.MustCompile(`(?i)(?:^|[\s\p{Z}])color:([\w#-]+)`), display: displayUpper},
	{kind: KindFontSize, re: regexp.MustCompile(`(?:^|[\s\p{Z}])sz:(\d+(?:px|rem|em)?)`), display: displayVerbatim},
	{kind: KindCheckbox, re: regexp.MustCompile(`(?i)\[([ x])\]`), display: displayVerbatim},
}

func displayVerbatim(_ *Parser, value string) string { return value }

func displayUpper(_ *Parser, value string) string { return strings.ToUpper(value) }

func displayCapitalized(_ *Parser, value string) string { return capitalize(value) }

func displayDate(p *Parser, value string) string { return p.ParseDateValue(value) }

// ExtractPatterns runs every matcher against text and returns all matches sorted by start offset.
// Matches from different kinds may overlap; none are dropped.
func (p *Parser) ExtractPatterns(text string) []ExtractedPattern {
	patterns := make([]ExtractedPattern, 0)
	if text == "" {
		return patterns
	}

	for _, m := range matchers {
		for _, loc := range m.re.FindAllStringSubmatchIndex(text, -1) {
			value := text[loc[2]:loc[3]]
			patterns = append(patterns, ExtractedPattern{
				Type:       m.kind,
				Value:      value,
				Display:    m.display(p, value),
				StartIndex: loc[0],
				EndIndex:   loc[1],
			})
		}
	}

	sort.SliceStable(patterns, func(i, j int) bool {
		return patterns[i].StartIndex < patterns[j].StartIndex
	})
	return patterns
}

// CleanTextFromPatterns strips every matched span from text and normalizes whitespace.
func (p *Parser) CleanTextFromPatterns(text string) string {
	return cleanText(text, p.ExtractPatterns(text))
}

// cleanText removes spans last-to-first so pending offsets stay valid.
// Overlapping spans are removed positionally, clamped to the shrinking string.
func cleanText(text string, patterns []ExtractedPattern) string {
	ordered := make([]ExtractedPattern, len(patterns))
	copy(ordered, patterns)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].StartIndex > ordered[j].StartIndex
	})

	cleaned := text
	for _, pattern := range ordered {
		start := min(pattern.StartIndex, len(cleaned))
		end := min(pattern.EndIndex, len(cleaned))
		cleaned = cleaned[:start] + cleaned[end:]
	}

	cleaned = strings.ToValidUTF8(cleaned, "")
	return strings.Join(strings.Fields(cleaned), " ")
}

// PinRelativeDates rewrites every relative date token in text (today, tomorrow, a
// weekday) as the absolute date it resolves to now, so re-parsing the result later
// yields the same due date. Other text is left byte-for-byte intact.
func (p *Parser) PinRelativeDates(text string) string {
	patterns := p.ExtractPatterns(text)
	pinned := text
	for i := len(patterns) - 1; i >= 0; i-- {
		pattern := patterns[i]
		if pattern.Type != KindDate || !IsRelativeDate(pattern.Value) {
			continue
		}
		resolved, ok := p.ResolveDate(pattern.Value)
		if !ok {
			continue
		}
		start := pattern.EndIndex - len(pattern.Value)
		pinned = pinned[:start] + resolved.Format(PinnedDateLayout) + pinned[pattern.EndIndex:]
	}
	return pinned
}

// HasRelativeDate reports whether text holds a date token that PinRelativeDates would rewrite
func HasRelativeDate(text string) bool {
	for _, pattern := range defaultParser.ExtractPatterns(text) {
		if pattern.Type == KindDate && IsRelativeDate(pattern.Value) {
			return true
		}
	}
	return false
}

// ParseMetadata folds the extracted patterns of text into a ParsedMetadata value.
func (p *Parser) ParseMetadata(text string) ParsedMetadata {
	return foldMetadata(p.ExtractPatterns(text))
}

// ParseResult is the outcome of parsing one quick-input string
type ParseResult struct {
	Content  string             `json:"content" yaml:"content"`
	Metadata ParsedMetadata     `json:"metadata" yaml:"metadata"`
	Patterns []ExtractedPattern `json:"patterns" yaml:"patterns"`
}

// ParseInput returns the cleaned content, aggregated metadata and raw matches for text.
func (p *Parser) ParseInput(text string) ParseResult {
	patterns := p.ExtractPatterns(text)
	return ParseResult{
		Content:  cleanText(text, patterns),
		Metadata: foldMetadata(patterns),
		Patterns: patterns,
	}
}

// ExtractPatterns uses the default parser.
func ExtractPatterns(text string) []ExtractedPattern {
	return defaultParser.ExtractPatterns(text)
}

// CleanTextFromPatterns uses the default parser.
func CleanTextFromPatterns(text string) string {
	return defaultParser.CleanTextFromPatterns(text)
}

// ParseMetadata uses the default parser.
func ParseMetadata(text string) ParsedMetadata {
	return defaultParser.ParseMetadata(text)
}

// ParseInput uses the default parser.
func ParseInput(text string) ParseResult {
	return defaultParser.ParseInput(text)
}
