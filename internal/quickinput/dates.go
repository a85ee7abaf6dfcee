package quickinput

import (
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// DisplayDateLayout renders resolved dates the way en-US locale date strings look (M/D/YYYY).
const DisplayDateLayout = "1/2/2006"

// PinnedDateLayout is written in place of relative date tokens when they are pinned
const PinnedDateLayout = "2006-01-02"

var namedDays = map[string]int{
	"yesterday": -1,
	"today":     0,
	"tomorrow":  1,
}

var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// Parser resolves quick input relative to a clock and a location.
// A Parser is immutable after construction and safe for concurrent use.
type Parser struct {
	now func() time.Time
	loc *time.Location
}

// Option configures a Parser
type Option func(*Parser)

// WithClock sets the function used to read the current time
func WithClock(now func() time.Time) Option {
	return func(p *Parser) {
		if now != nil {
			p.now = now
		}
	}
}

// WithLocation sets the location used for named and generic dates
func WithLocation(loc *time.Location) Option {
	return func(p *Parser) {
		if loc != nil {
			p.loc = loc
		}
	}
}

// NewParser creates a parser reading the wall clock in the local time zone unless overridden
func NewParser(opts ...Option) *Parser {
	p := &Parser{
		now: time.Now,
		loc: time.Local,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

var defaultParser = NewParser()

// Today returns the parser's current time in its location
func (p *Parser) Today() time.Time {
	return p.now().In(p.loc)
}

// Location returns the location dates are resolved in
func (p *Parser) Location() *time.Location {
	return p.loc
}

// At returns a copy of the parser whose clock is frozen at t
func (p *Parser) At(t time.Time) *Parser {
	return &Parser{
		now: func() time.Time { return t },
		loc: p.loc,
	}
}

// IsRelativeDate reports whether raw is a named day or weekday, whose date depends on
// when it is resolved
func IsRelativeDate(raw string) bool {
	name := strings.ToLower(raw)
	if _, ok := namedDays[name]; ok {
		return true
	}
	_, ok := weekdays[name]
	return ok
}

// ResolveDate turns a raw date token into a time. ok is false when the token is neither
// a named date nor a parseable date string.
func (p *Parser) ResolveDate(raw string) (t time.Time, ok bool) {
	today := p.Today()
	name := strings.ToLower(raw)

	if offset, found := namedDays[name]; found {
		return today.AddDate(0, 0, offset), true
	}

	if target, found := weekdays[name]; found {
		days := (int(target) - int(today.Weekday()) + 7) % 7
		if days == 0 {
			days = 7
		}
		return today.AddDate(0, 0, days), true
	}

	return p.parseGenericDate(raw)
}

// parseGenericDate never panics; dateparse has panicked on pathological input before.
func (p *Parser) parseGenericDate(raw string) (t time.Time, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			t, ok = time.Time{}, false
		}
	}()

	parsed, err := dateparse.ParseIn(raw, p.loc)
	if err != nil {
		return time.Time{}, false
	}
	return parsed, true
}

// ParseDateValue resolves a raw date token to its display string.
// Unresolvable tokens are returned unchanged.
func (p *Parser) ParseDateValue(raw string) string {
	t, ok := p.ResolveDate(raw)
	if !ok {
		return raw
	}
	return t.In(p.loc).Format(DisplayDateLayout)
}

// ParseDateValue uses the default parser.
func ParseDateValue(raw string) string {
	return defaultParser.ParseDateValue(raw)
}

// ResolveDate uses the default parser.
func ResolveDate(raw string) (time.Time, bool) {
	return defaultParser.ResolveDate(raw)
}
