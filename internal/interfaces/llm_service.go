package interfaces

import (
	"context"
)

// Message represents a single message in a chat conversation
type Message struct {
	// Role identifies the message sender: "user", "assistant", or "system"
	Role string

	// Content contains the text content of the message
	Content string
}

// ContentRequest is a provider-agnostic completion request
type ContentRequest struct {
	Messages          []Message
	Model             string // Optional, may carry a provider prefix ("claude/...", "gemini/...", "openai/...")
	Temperature       float32
	MaxTokens         int
	SystemInstruction string
	JSONOutput        bool // Ask the provider for a JSON document where supported
}

// ContentResponse is a provider-agnostic completion response
type ContentResponse struct {
	Text     string
	Provider string
	Model    string
}

// LLMService generates text completions. Implementations route to OpenAI, Claude or Gemini.
type LLMService interface {
	GenerateContent(ctx context.Context, request *ContentRequest) (*ContentResponse, error)

	// Configured reports whether the default provider has a usable API key
	Configured(ctx context.Context) bool
}
