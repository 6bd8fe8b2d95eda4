package ai

import (
	"context"
)

// Message is one turn of a chat exchange, either from the citizen ("user")
// or from the assistant.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CompletionRequest describes a single call to the text-completion provider.
type CompletionRequest struct {
	Model       string
	Messages    []Message
	MaxTokens   int
	Temperature float64
}

// Provider is the external text-completion service. A nil Provider means the
// service is not configured, which is a normal state: every gateway operation
// degrades to a fixed default instead of failing.
type Provider interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}
