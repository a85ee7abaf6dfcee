package ai

import (
	"context"
	"time"
)

// SuggestionRequest describes the node the AI should brainstorm children for
type SuggestionRequest struct {
	// Content is the cleaned body text of the parent node
	Content string
	// QuickInput is the raw text the parent was typed as
	QuickInput string
	Tags       []string
	// Siblings holds the content of existing children so ideas are not repeated
	Siblings []string
	Count    int
	Today    time.Time
}

// Suggester produces child-node ideas written in quick-input syntax
type Suggester interface {
	SuggestChildren(ctx context.Context, req SuggestionRequest) ([]string, error)
}

// ProviderFactory creates a suggester from provider settings
type ProviderFactory func(config map[string]string) (Suggester, error)

// ProviderRegistry stores available AI providers
type ProviderRegistry struct {
	providers map[string]ProviderFactory
}

// NewProviderRegistry creates a new provider registry
func NewProviderRegistry() *ProviderRegistry {
	return &ProviderRegistry{
		providers: make(map[string]ProviderFactory),
	}
}

// Register registers a provider factory
func (r *ProviderRegistry) Register(name string, factory ProviderFactory) {
	r.providers[name] = factory
}

// GetProvider gets a provider by name
func (r *ProviderRegistry) GetProvider(name string, config map[string]string) (Suggester, error) {
	factory, ok := r.providers[name]
	if !ok {
		return nil, &ErrProviderNotFound{Name: name}
	}

	return factory(config)
}

// ErrProviderNotFound is returned when a provider is not found
type ErrProviderNotFound struct {
	Name string
}

func (e *ErrProviderNotFound) Error() string {
	return "AI provider not found: " + e.Name
}
