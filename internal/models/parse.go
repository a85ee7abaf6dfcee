package models

import "github.com/benvon/quicknode/internal/quickinput"

// ParseRequest represents a parse request
type ParseRequest struct {
	Text string `json:"text" validate:"max=10000"`
}

// ParseResponse is the parse result plus the node fields it maps to.
// Pattern offsets index into the submitted text exactly as sent.
type ParseResponse struct {
	quickinput.ParseResult
	Node NodeData `json:"node"`
}

// NewParseResponse pairs a parse result with its node mapping
func NewParseResponse(result quickinput.ParseResult) ParseResponse {
	return ParseResponse{ParseResult: result, Node: TransformToNodeData(result)}
}

// CompletionRequest represents a completion request at a cursor position
type CompletionRequest struct {
	Text   string `json:"text" validate:"max=10000"`
	Cursor *int   `json:"cursor" validate:"omitempty,min=0"`
}
