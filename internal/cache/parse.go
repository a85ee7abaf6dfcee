package cache

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/benvon/quicknode/internal/quickinput"
)

const (
	// DefaultSize is used when a non-positive size is requested.
	DefaultSize = 1024

	dayLayout = "2006-01-02"
)

// ParseCache memoises quick-input parse results.
// Entries are keyed by the parser's calendar day as well as the text, so
// relative dates such as ^tomorrow resolve again once the day changes.
type ParseCache struct {
	parser   *quickinput.Parser
	entries  *lru.Cache[string, quickinput.ParseResult]
	onLookup func(hit bool)
}

// Option configures a ParseCache
type Option func(*ParseCache)

// WithLookupHook registers a callback invoked on every lookup
func WithLookupHook(fn func(hit bool)) Option {
	return func(c *ParseCache) {
		c.onLookup = fn
	}
}

// NewParseCache creates a cache holding at most size results
func NewParseCache(parser *quickinput.Parser, size int, opts ...Option) (*ParseCache, error) {
	if parser == nil {
		parser = quickinput.NewParser()
	}
	if size <= 0 {
		size = DefaultSize
	}

	entries, err := lru.New[string, quickinput.ParseResult](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create parse cache: %w", err)
	}

	c := &ParseCache{
		parser:  parser,
		entries: entries,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Parser returns the parser backing the cache
func (c *ParseCache) Parser() *quickinput.Parser {
	return c.parser
}

// Parse returns the parse result for text, computing it on a miss.
// The returned value never shares slices with the cached entry.
func (c *ParseCache) Parse(text string) quickinput.ParseResult {
	key := c.key(text)

	if result, ok := c.entries.Get(key); ok {
		c.observe(true)
		return cloneResult(result)
	}
	c.observe(false)

	result := c.parser.ParseInput(text)
	c.entries.Add(key, cloneResult(result))
	return result
}

// Len returns the number of cached results
func (c *ParseCache) Len() int {
	return c.entries.Len()
}

// Purge drops every cached result
func (c *ParseCache) Purge() {
	c.entries.Purge()
}

func (c *ParseCache) key(text string) string {
	return c.parser.Today().Format(dayLayout) + "\x00" + text
}

func (c *ParseCache) observe(hit bool) {
	if c.onLookup != nil {
		c.onLookup(hit)
	}
}

func cloneResult(r quickinput.ParseResult) quickinput.ParseResult {
	out := r
	out.Patterns = append([]quickinput.ExtractedPattern(nil), r.Patterns...)
	if out.Patterns == nil {
		out.Patterns = []quickinput.ExtractedPattern{}
	}
	out.Metadata.Assignee = cloneStrings(r.Metadata.Assignee)
	out.Metadata.Tags = cloneStrings(r.Metadata.Tags)
	if r.Metadata.Checked != nil {
		checked := *r.Metadata.Checked
		out.Metadata.Checked = &checked
	}
	if r.Metadata.Extra != nil {
		out.Metadata.Extra = make(map[string]string, len(r.Metadata.Extra))
		for k, v := range r.Metadata.Extra {
			out.Metadata.Extra[k] = v
		}
	}
	return out
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
