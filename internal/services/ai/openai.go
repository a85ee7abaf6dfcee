package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"
	"go.uber.org/zap"
)

const (
	// DefaultOpenAIModel is the default model to use
	DefaultOpenAIModel = "gpt-4o-mini"
	// DefaultOpenAIBaseURL is the default OpenAI API base URL
	DefaultOpenAIBaseURL = "https://api.openai.com/v1"
	// DefaultTimeout is the default timeout for API calls
	DefaultTimeout = 30 * time.Second

	// DefaultSuggestionCount is used when a request asks for zero ideas
	DefaultSuggestionCount = 3
	// MaxSuggestionCount caps ideas per request
	MaxSuggestionCount = 10
	// maxSiblingsInPrompt limits how many existing children are listed
	maxSiblingsInPrompt = 20

	systemPrompt = "You are a brainstorming assistant for a mind-map editor. You propose child nodes for a given node. Respond with valid JSON only."
)

// OpenAIProvider implements Suggester using OpenAI's chat completions API
type OpenAIProvider struct {
	client    openai.Client
	model     string
	logger    *zap.Logger
	debugMode bool
}

// NewOpenAIProvider creates a new OpenAI provider
func NewOpenAIProvider(apiKey string, model string) *OpenAIProvider {
	return NewOpenAIProviderWithLogger(apiKey, DefaultOpenAIBaseURL, model, nil, false)
}

// NewOpenAIProviderWithLogger creates a new OpenAI provider with logger support
func NewOpenAIProviderWithLogger(apiKey string, baseURL string, model string, logger *zap.Logger, debugMode bool) *OpenAIProvider {
	if model == "" {
		model = DefaultOpenAIModel
	}
	if baseURL == "" {
		baseURL = DefaultOpenAIBaseURL
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	client := openai.NewClient(
		option.WithAPIKey(apiKey),
		option.WithBaseURL(baseURL),
		option.WithHTTPClient(&http.Client{Timeout: DefaultTimeout}),
	)

	return &OpenAIProvider{
		client:    client,
		model:     model,
		logger:    logger,
		debugMode: debugMode,
	}
}

// SuggestChildren asks the model for child-node ideas in quick-input syntax
func (p *OpenAIProvider) SuggestChildren(ctx context.Context, req SuggestionRequest) ([]string, error) {
	count := clampCount(req.Count)
	prompt := buildSuggestionPrompt(req, count)

	content, err := p.complete(ctx, "suggest_children", prompt)
	if err != nil {
		return nil, err
	}

	ideas, err := parseSuggestionResponse(content, count)
	if err != nil {
		return nil, err
	}
	return ideas, nil
}

func (p *OpenAIProvider) complete(ctx context.Context, operation, prompt string) (string, error) {
	messages := []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(systemPrompt),
		openai.UserMessage(prompt),
	}
	req := openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(p.model),
		Messages: messages,
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		},
	}

	fields := []zap.Field{
		zap.String("operation", operation),
		zap.String("model", p.model),
		zap.String("user_id", extractID(ctx, userIDContextKey)),
		zap.String("node_id", extractID(ctx, nodeIDContextKey)),
		zap.String("request_id", ExtractRequestID(ctx)),
	}

	if p.debugMode {
		p.logger.Debug("llm_api_request", append(fields,
			zap.Int("prompt_length", len(prompt)),
			zap.String("prompt_preview", SanitizeForLog(prompt, true)),
		)...)
	}

	start := time.Now()
	resp, err := p.client.Chat.Completions.New(ctx, req)
	latency := time.Since(start)
	if err != nil {
		if p.debugMode {
			p.logger.Debug("llm_api_error", append(fields,
				zap.Error(err),
				zap.Int64("latency_ms", latency.Milliseconds()),
			)...)
		}
		if apiErr := ExtractAPIError(err); apiErr != nil {
			return "", fmt.Errorf("failed to suggest children: %w", apiErr)
		}
		return "", fmt.Errorf("failed to suggest children: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrNoChoices
	}

	content := resp.Choices[0].Message.Content
	if p.debugMode {
		p.logger.Debug("llm_api_response", append(fields,
			zap.Int("response_length", len(content)),
			zap.String("response_preview", SanitizeForLog(content, true)),
			zap.Int64("latency_ms", latency.Milliseconds()),
		)...)
	}
	return content, nil
}

func clampCount(n int) int {
	if n <= 0 {
		return DefaultSuggestionCount
	}
	return min(n, MaxSuggestionCount)
}

func buildSuggestionPrompt(req SuggestionRequest, count int) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Suggest %d child nodes for the mind-map node below.\n\n", count)
	fmt.Fprintf(&b, "Node: %q\n", req.Content)
	if req.QuickInput != "" && req.QuickInput != req.Content {
		fmt.Fprintf(&b, "Typed as: %q\n", req.QuickInput)
	}
	if len(req.Tags) > 0 {
		fmt.Fprintf(&b, "Tags: %s\n", strings.Join(req.Tags, ", "))
	}
	if !req.Today.IsZero() {
		fmt.Fprintf(&b, "Today is %s.\n", req.Today.Format("Monday, January 2, 2006"))
	}

	if len(req.Siblings) > 0 {
		b.WriteString("\nExisting children (do not repeat these):\n")
		siblings := req.Siblings
		if len(siblings) > maxSiblingsInPrompt {
			siblings = siblings[:maxSiblingsInPrompt]
		}
		for _, s := range siblings {
			fmt.Fprintf(&b, "- %s\n", s)
		}
	}

	b.WriteString(`
Write each idea as a short line of quick-input text. You may add these markers after the text:
- #low, #medium, #high or #urgent for priority
- ^today, ^tomorrow, ^friday, ^next week or ^M/D/YYYY for a due date
- @name for an assignee
- !todo, !wip or !done for status
- [tag1, tag2] for tags
- [ ] for an open checkbox
Only add markers that clearly fit the idea.

Respond with a JSON object in this format:
{
  "ideas": ["first idea #high", "second idea [research]"]
}

Return only valid JSON.`)

	return b.String()
}

// parseSuggestionResponse reads the ideas array, trimming blanks and duplicates.
// It tolerates prose around the JSON object.
func parseSuggestionResponse(content string, limit int) ([]string, error) {
	var parsed struct {
		Ideas []string `json:"ideas"`
	}

	raw := strings.TrimSpace(content)
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		start := strings.Index(raw, "{")
		end := strings.LastIndex(raw, "}")
		if start == -1 || end <= start {
			return nil, fmt.Errorf("failed to parse suggestion response: %w", err)
		}
		if err := json.Unmarshal([]byte(raw[start:end+1]), &parsed); err != nil {
			return nil, fmt.Errorf("failed to parse suggestion response: %w", err)
		}
	}

	seen := make(map[string]bool, len(parsed.Ideas))
	ideas := make([]string, 0, len(parsed.Ideas))
	for _, idea := range parsed.Ideas {
		idea = strings.Join(strings.Fields(idea), " ")
		key := strings.ToLower(idea)
		if idea == "" || seen[key] {
			continue
		}
		seen[key] = true
		ideas = append(ideas, idea)
		if limit > 0 && len(ideas) == limit {
			break
		}
	}

	if len(ideas) == 0 {
		return nil, ErrNoSuggestions
	}
	return ideas, nil
}

// RegisterOpenAI registers the OpenAI provider with the registry
func RegisterOpenAI(registry *ProviderRegistry, logger *zap.Logger, debugMode bool) {
	registry.Register("openai", func(config map[string]string) (Suggester, error) {
		apiKey, ok := config["api_key"]
		if !ok || apiKey == "" {
			return nil, fmt.Errorf("openai api_key is required")
		}

		return NewOpenAIProviderWithLogger(apiKey, config["base_url"], config["model"], logger, debugMode), nil
	})
}

var _ Suggester = (*OpenAIProvider)(nil)
