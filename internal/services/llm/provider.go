package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	anthropicoption "github.com/anthropics/anthropic-sdk-go/option"
	"github.com/openai/openai-go"
	openaioption "github.com/openai/openai-go/option"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/marketpulse/internal/common"
	"github.com/ternarybob/marketpulse/internal/interfaces"
	"github.com/ternarybob/marketpulse/internal/models"
	"google.golang.org/genai"
)

// ProviderType identifies a completion backend
type ProviderType string

const (
	ProviderOpenAI ProviderType = "openai"
	ProviderClaude ProviderType = "claude"
	ProviderGemini ProviderType = "gemini"
)

// KV store names of the provider keys, shared with common.ResolveAPIKey
const (
	openAIKeyName    = "openai_api_key"
	anthropicKeyName = "anthropic_api_key"
	geminiKeyName    = "gemini_api_key"
)

// ProviderFactory routes completion requests to OpenAI, Claude or Gemini.
// Clients are created lazily on first use so a missing key only fails the provider that needs it.
type ProviderFactory struct {
	openaiConfig common.OpenAIConfig
	claudeConfig common.ClaudeConfig
	geminiConfig common.GeminiConfig
	llmConfig    common.LLMConfig
	kvStorage    interfaces.KeyValueReader
	logger       arbor.ILogger
	retry        *RetryConfig
	httpClient   *http.Client

	mu           sync.Mutex
	openaiClient *openai.Client
	claudeClient *anthropic.Client
	geminiClient *genai.Client
}

// NewProviderFactory creates a provider factory from the llm, openai, claude and gemini config sections.
func NewProviderFactory(config *common.Config, kvStorage interfaces.KeyValueReader, logger arbor.ILogger) *ProviderFactory {
	timeout := common.ParseDuration(config.LLM.Timeout, 2*time.Minute)
	return &ProviderFactory{
		openaiConfig: config.OpenAI,
		claudeConfig: config.Claude,
		geminiConfig: config.Gemini,
		llmConfig:    config.LLM,
		kvStorage:    kvStorage,
		logger:       logger,
		retry:        NewDefaultRetryConfig(),
		httpClient:   &http.Client{Timeout: timeout},
	}
}

// SetRetryConfig replaces the rate limit retry settings
func (f *ProviderFactory) SetRetryConfig(retry *RetryConfig) {
	if retry != nil {
		f.retry = retry
	}
}

// DefaultProvider returns the configured provider, falling back to OpenAI
func (f *ProviderFactory) DefaultProvider() ProviderType {
	switch provider := ProviderType(strings.ToLower(string(f.llmConfig.DefaultProvider))); provider {
	case ProviderOpenAI, ProviderClaude, ProviderGemini:
		return provider
	default:
		return ProviderOpenAI
	}
}

// DetectProvider determines the provider type from a model string.
// Model strings can be:
// - "gpt-3.5-turbo" or "openai/gpt-4" -> OpenAI
// - "claude-sonnet-4-20250514" or "claude/..." or "anthropic/..." -> Claude
// - "gemini-2.5-flash" or "gemini/..." or "google/..." -> Gemini
// - Empty or unrecognised -> the configured default provider
func (f *ProviderFactory) DetectProvider(model string) ProviderType {
	model = strings.ToLower(model)

	switch {
	case strings.HasPrefix(model, "openai/"):
		return ProviderOpenAI
	case strings.HasPrefix(model, "claude/"), strings.HasPrefix(model, "anthropic/"):
		return ProviderClaude
	case strings.HasPrefix(model, "gemini/"), strings.HasPrefix(model, "google/"):
		return ProviderGemini
	case strings.HasPrefix(model, "gpt-"), strings.HasPrefix(model, "chatgpt-"),
		strings.HasPrefix(model, "o1"), strings.HasPrefix(model, "o3"), strings.HasPrefix(model, "o4"):
		return ProviderOpenAI
	case strings.HasPrefix(model, "claude-"):
		return ProviderClaude
	case strings.HasPrefix(model, "gemini-"):
		return ProviderGemini
	}

	return f.DefaultProvider()
}

// NormalizeModel removes a provider prefix from the model name if present
func (f *ProviderFactory) NormalizeModel(model string) string {
	prefixes := []string{"openai/", "claude/", "anthropic/", "gemini/", "google/"}
	for _, prefix := range prefixes {
		if strings.HasPrefix(strings.ToLower(model), prefix) {
			return model[len(prefix):]
		}
	}
	return model
}

// GetDefaultModel returns the configured model for a provider
func (f *ProviderFactory) GetDefaultModel(provider ProviderType) string {
	switch provider {
	case ProviderClaude:
		return f.claudeConfig.Model
	case ProviderGemini:
		return f.geminiConfig.Model
	default:
		return f.openaiConfig.Model
	}
}

// Configured reports whether the default provider has an API key
func (f *ProviderFactory) Configured(ctx context.Context) bool {
	return f.ProviderConfigured(ctx, f.DefaultProvider())
}

// ProviderConfigured reports whether the given provider has an API key
func (f *ProviderFactory) ProviderConfigured(ctx context.Context, provider ProviderType) bool {
	_, err := f.resolveKey(ctx, provider)
	return err == nil
}

func (f *ProviderFactory) resolveKey(ctx context.Context, provider ProviderType) (string, error) {
	name, fallback := openAIKeyName, f.openaiConfig.APIKey
	switch provider {
	case ProviderClaude:
		name, fallback = anthropicKeyName, f.claudeConfig.APIKey
	case ProviderGemini:
		name, fallback = geminiKeyName, f.geminiConfig.APIKey
	}

	key, err := common.ResolveAPIKey(ctx, f.kvStorage, name, fallback)
	if err != nil {
		return "", models.NewConfigurationError(name)
	}
	return key, nil
}

// GetOpenAIClient returns an OpenAI client, creating one if necessary
func (f *ProviderFactory) GetOpenAIClient(ctx context.Context) (*openai.Client, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.openaiClient != nil {
		return f.openaiClient, nil
	}

	apiKey, err := f.resolveKey(ctx, ProviderOpenAI)
	if err != nil {
		return nil, err
	}

	opts := []openaioption.RequestOption{
		openaioption.WithAPIKey(apiKey),
		openaioption.WithHTTPClient(f.httpClient),
		openaioption.WithMaxRetries(0),
	}
	if f.openaiConfig.BaseURL != "" {
		opts = append(opts, openaioption.WithBaseURL(f.openaiConfig.BaseURL))
	}

	client := openai.NewClient(opts...)
	f.openaiClient = &client
	return f.openaiClient, nil
}

// GetClaudeClient returns a Claude client, creating one if necessary
func (f *ProviderFactory) GetClaudeClient(ctx context.Context) (*anthropic.Client, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.claudeClient != nil {
		return f.claudeClient, nil
	}

	apiKey, err := f.resolveKey(ctx, ProviderClaude)
	if err != nil {
		return nil, err
	}

	client := anthropic.NewClient(
		anthropicoption.WithAPIKey(apiKey),
		anthropicoption.WithHTTPClient(f.httpClient),
		anthropicoption.WithMaxRetries(0),
	)
	f.claudeClient = &client
	return f.claudeClient, nil
}

// GetGeminiClient returns a Gemini client, creating one if necessary
func (f *ProviderFactory) GetGeminiClient(ctx context.Context) (*genai.Client, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.geminiClient != nil {
		return f.geminiClient, nil
	}

	apiKey, err := f.resolveKey(ctx, ProviderGemini)
	if err != nil {
		return nil, err
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: f.httpClient,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	f.geminiClient = client
	return client, nil
}

// GenerateContent generates content using the provider selected by the request model
func (f *ProviderFactory) GenerateContent(ctx context.Context, request *interfaces.ContentRequest) (*interfaces.ContentResponse, error) {
	if request == nil {
		return nil, fmt.Errorf("content request is required")
	}

	provider := f.DetectProvider(request.Model)
	model := f.NormalizeModel(request.Model)
	if model == "" {
		model = f.GetDefaultModel(provider)
	}

	f.logger.Debug().
		Str("provider", string(provider)).
		Str("model", model).
		Int("message_count", len(request.Messages)).
		Msg("Generating content with provider")

	switch provider {
	case ProviderClaude:
		return f.generateWithClaude(ctx, request, model)
	case ProviderGemini:
		return f.generateWithGemini(ctx, request, model)
	default:
		return f.generateWithOpenAI(ctx, request, model)
	}
}

// withRetry runs call until it succeeds, fails with a non rate limit error or retries run out.
func (f *ProviderFactory) withRetry(ctx context.Context, provider ProviderType, call func() error) error {
	var err error
	for attempt := 0; attempt <= f.retry.MaxRetries; attempt++ {
		err = call()
		if err == nil {
			return nil
		}
		if !IsRateLimitError(err) {
			return f.upstreamError(provider, err)
		}
		if attempt == f.retry.MaxRetries {
			break
		}

		backoff := f.retry.CalculateBackoff(attempt, ExtractRetryDelay(err))

		f.logger.Warn().
			Str("provider", string(provider)).
			Int("attempt", attempt+1).
			Int64("backoff_ms", backoff.Milliseconds()).
			Err(err).
			Msg("Retrying rate limited completion")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}

	f.logger.Error().
		Str("provider", string(provider)).
		Int("retries", f.retry.MaxRetries).
		Err(err).
		Msg("Completion still rate limited after retries")

	return &models.RateLimitError{
		Service:    string(provider),
		RetryAfter: f.retry.CalculateBackoff(0, ExtractRetryDelay(err)),
	}
}

// upstreamError converts an SDK error into models.UpstreamError, keeping the HTTP status when known.
func (f *ProviderFactory) upstreamError(provider ProviderType, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	status := http.StatusBadGateway
	var openaiErr *openai.Error
	var anthropicErr *anthropic.Error
	switch {
	case errors.As(err, &openaiErr):
		status = openaiErr.StatusCode
	case errors.As(err, &anthropicErr):
		status = anthropicErr.StatusCode
	}

	return &models.UpstreamError{
		Service:    string(provider),
		StatusCode: status,
		Message:    err.Error(),
		Endpoint:   "completion",
	}
}

func (f *ProviderFactory) temperature(requested, configured float32) float32 {
	if requested > 0 {
		return requested
	}
	return configured
}

func (f *ProviderFactory) generateWithOpenAI(ctx context.Context, request *interfaces.ContentRequest, model string) (*interfaces.ContentResponse, error) {
	client, err := f.GetOpenAIClient(ctx)
	if err != nil {
		return nil, err
	}

	messages, err := convertMessagesToOpenAI(request.Messages, request.SystemInstruction)
	if err != nil {
		return nil, fmt.Errorf("failed to convert messages: %w", err)
	}

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(model),
		Messages: messages,
	}
	if temp := f.temperature(request.Temperature, f.openaiConfig.Temperature); temp > 0 {
		params.Temperature = openai.Float(float64(temp))
	}
	if request.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(request.MaxTokens))
	}

	var resp *openai.ChatCompletion
	err = f.withRetry(ctx, ProviderOpenAI, func() error {
		var callErr error
		resp, callErr = client.Chat.Completions.New(ctx, params)
		return callErr
	})
	if err != nil {
		return nil, err
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return nil, f.upstreamError(ProviderOpenAI, fmt.Errorf("empty response from OpenAI API"))
	}

	return &interfaces.ContentResponse{
		Text:     resp.Choices[0].Message.Content,
		Provider: string(ProviderOpenAI),
		Model:    model,
	}, nil
}

func (f *ProviderFactory) generateWithClaude(ctx context.Context, request *interfaces.ContentRequest, model string) (*interfaces.ContentResponse, error) {
	client, err := f.GetClaudeClient(ctx)
	if err != nil {
		return nil, err
	}

	claudeMessages, systemText, err := convertMessagesToClaude(request.Messages)
	if err != nil {
		return nil, fmt.Errorf("failed to convert messages: %w", err)
	}
	if request.SystemInstruction != "" {
		systemText = request.SystemInstruction
	}

	maxTokens := request.MaxTokens
	if maxTokens <= 0 {
		maxTokens = f.claudeConfig.MaxTokens
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: int64(maxTokens),
		Messages:  claudeMessages,
	}
	if temp := f.temperature(request.Temperature, f.claudeConfig.Temperature); temp > 0 {
		params.Temperature = anthropic.Float(float64(temp))
	}
	if systemText != "" {
		params.System = []anthropic.TextBlockParam{
			{Text: systemText},
		}
	}

	var resp *anthropic.Message
	err = f.withRetry(ctx, ProviderClaude, func() error {
		var callErr error
		resp, callErr = client.Messages.New(ctx, params)
		return callErr
	})
	if err != nil {
		return nil, err
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return nil, f.upstreamError(ProviderClaude, fmt.Errorf("empty response from Claude API"))
	}

	return &interfaces.ContentResponse{
		Text:     text.String(),
		Provider: string(ProviderClaude),
		Model:    model,
	}, nil
}

func (f *ProviderFactory) generateWithGemini(ctx context.Context, request *interfaces.ContentRequest, model string) (*interfaces.ContentResponse, error) {
	client, err := f.GetGeminiClient(ctx)
	if err != nil {
		return nil, err
	}

	contents, systemText, err := convertMessagesToGemini(request.Messages)
	if err != nil {
		return nil, fmt.Errorf("failed to convert messages: %w", err)
	}
	if request.SystemInstruction != "" {
		systemText = request.SystemInstruction
	}

	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(f.temperature(request.Temperature, f.geminiConfig.Temperature)),
	}
	if systemText != "" {
		config.SystemInstruction = genai.NewContentFromText(systemText, genai.RoleUser)
	}
	if request.MaxTokens > 0 {
		config.MaxOutputTokens = int32(request.MaxTokens)
	}
	if request.JSONOutput {
		config.ResponseMIMEType = "application/json"
	}

	var resp *genai.GenerateContentResponse
	err = f.withRetry(ctx, ProviderGemini, func() error {
		var callErr error
		resp, callErr = client.Models.GenerateContent(ctx, model, contents, config)
		return callErr
	})
	if err != nil {
		return nil, err
	}

	if resp == nil || len(resp.Candidates) == 0 || resp.Text() == "" {
		return nil, f.upstreamError(ProviderGemini, fmt.Errorf("empty response from Gemini API"))
	}

	return &interfaces.ContentResponse{
		Text:     resp.Text(),
		Provider: string(ProviderGemini),
		Model:    model,
	}, nil
}

// Close drops the cached provider clients
func (f *ProviderFactory) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.openaiClient = nil
	f.claudeClient = nil
	f.geminiClient = nil
	return nil
}
