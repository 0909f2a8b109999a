// ABOUTME: OpenAI-compatible client for completions, streaming, and embeddings
// ABOUTME: Base URL is configurable so any OpenAI-wire vendor can serve it
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/harper/secondme/internal/util"
)

const (
	// DefaultChatModel is the default model for chat completions
	DefaultChatModel = "gpt-4o-mini"
	// DefaultEmbeddingModel is the default model for embeddings
	DefaultEmbeddingModel = "text-embedding-3-small"
)

// ClientConfig holds configuration for the client
type ClientConfig struct {
	APIKey         string
	BaseURL        string
	ChatModel      string
	EmbeddingModel string
	Timeout        time.Duration
	MaxRetries     int
	RetryDelay     time.Duration
}

// Client wraps an OpenAI-compatible API with retry logic
type Client struct {
	client         *openai.Client
	chatModel  string
	timeout    time.Duration
	maxRetries int
	retryDelay time.Duration

	// embeddingModel is swapped at runtime by the reindex path while
	// turns and extraction timers keep embedding concurrently
	mu             sync.RWMutex
	embeddingModel string
}

// NewClient creates a client for the configured provider
func NewClient(cfg *ClientConfig) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("provider API key is required")
	}

	openaiCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		openaiCfg.BaseURL = cfg.BaseURL
	}

	chatModel := cfg.ChatModel
	if chatModel == "" {
		chatModel = DefaultChatModel
	}
	embeddingModel := cfg.EmbeddingModel
	if embeddingModel == "" {
		embeddingModel = DefaultEmbeddingModel
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		client:         openai.NewClientWithConfig(openaiCfg),
		chatModel:      chatModel,
		embeddingModel: embeddingModel,
		timeout:        timeout,
		maxRetries:     cfg.MaxRetries,
		retryDelay:     cfg.RetryDelay,
	}, nil
}

// EmbeddingModel returns the active embedding model identifier
func (c *Client) EmbeddingModel() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.embeddingModel
}

// SetEmbeddingModel switches the embedding model. Existing vectors become
// incomparable; the caller is responsible for an explicit reindex.
func (c *Client) SetEmbeddingModel(model string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.embeddingModel = model
}

func (c *Client) chatRequest(req CompletionRequest) openai.ChatCompletionRequest {
	messages := make([]openai.ChatCompletionMessage, 0, len(req.Messages)+1)
	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}
	for _, m := range req.Messages {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    m.Role,
			Content: m.Content,
		})
	}

	return openai.ChatCompletionRequest{
		Model:       c.chatModel,
		Messages:    messages,
		Temperature: req.Temperature,
	}
}

// Complete returns the full response in one call, retrying transient
// failures with backoff
func (c *Client) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			time.Sleep(util.CalculateBackoff(c.retryDelay, attempt))
		}

		callCtx, cancel := context.WithTimeout(ctx, c.timeout)
		resp, err := c.client.CreateChatCompletion(callCtx, c.chatRequest(req))
		cancel()

		if err != nil {
			lastErr = fmt.Errorf("attempt %d: %w", attempt+1, err)
			if ctx.Err() != nil {
				break
			}
			continue
		}
		if len(resp.Choices) == 0 {
			lastErr = fmt.Errorf("attempt %d: no completion choices returned", attempt+1)
			continue
		}

		return resp.Choices[0].Message.Content, nil
	}

	return "", &ProviderError{Op: "complete", Err: lastErr}
}

// Stream invokes fn for each token chunk as it arrives. No retry here:
// the orchestrator owns retry policy because it knows whether any bytes
// already reached the caller.
func (c *Client) Stream(ctx context.Context, req CompletionRequest, fn func(chunk string) error) error {
	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	chatReq := c.chatRequest(req)
	chatReq.Stream = true

	stream, err := c.client.CreateChatCompletionStream(callCtx, chatReq)
	if err != nil {
		return &ProviderError{Op: "stream", Err: err}
	}
	defer stream.Close()

	for {
		resp, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return &ProviderError{Op: "stream", Err: err}
		}
		if len(resp.Choices) == 0 {
			continue
		}
		delta := resp.Choices[0].Delta.Content
		if delta == "" {
			continue
		}
		if err := fn(delta); err != nil {
			return err
		}
	}
}

// Embed converts text to a vector, retrying transient failures
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	model := c.EmbeddingModel()
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			time.Sleep(util.CalculateBackoff(c.retryDelay, attempt))
		}

		callCtx, cancel := context.WithTimeout(ctx, c.timeout)
		resp, err := c.client.CreateEmbeddings(callCtx, openai.EmbeddingRequestStrings{
			Input: []string{text},
			Model: openai.EmbeddingModel(model),
		})
		cancel()

		if err != nil {
			lastErr = fmt.Errorf("attempt %d: %w", attempt+1, err)
			if ctx.Err() != nil {
				break
			}
			continue
		}
		if len(resp.Data) == 0 {
			lastErr = fmt.Errorf("attempt %d: no embeddings returned", attempt+1)
			continue
		}

		return resp.Data[0].Embedding, nil
	}

	return nil, &EmbeddingError{Model: model, Err: lastErr}
}

// GenerateTitle produces a short topic title from the first exchange
func (c *Client) GenerateTitle(ctx context.Context, userMessage, assistantMessage string) (string, error) {
	req := CompletionRequest{
		System: titlePrompt,
		Messages: []ChatMessage{
			{Role: openai.ChatMessageRoleUser, Content: fmt.Sprintf("User: %s\n\nAssistant: %s", userMessage, assistantMessage)},
		},
		Temperature: 0.3,
	}

	title, err := c.Complete(ctx, req)
	if err != nil {
		return "", err
	}

	title = strings.TrimSpace(strings.Trim(strings.TrimSpace(title), `"`))
	if title == "" {
		return "", &ProviderError{Op: "title", Err: fmt.Errorf("empty title returned")}
	}
	return title, nil
}

// ExtractMemories distills durable memories from a conversation window
func (c *Client) ExtractMemories(ctx context.Context, transcript string, existing []ExistingMemory) (*ExtractionResult, error) {
	var sb strings.Builder
	sb.WriteString("Conversation:\n")
	sb.WriteString(transcript)
	if len(existing) > 0 {
		sb.WriteString("\n\nExisting related memories:\n")
		for _, m := range existing {
			fmt.Fprintf(&sb, "- [%s] %s\n", m.ID, m.Content)
		}
	}

	req := CompletionRequest{
		System: extractionPrompt,
		Messages: []ChatMessage{
			{Role: openai.ChatMessageRoleUser, Content: sb.String()},
		},
		Temperature: 0.1,
	}

	content, err := c.Complete(ctx, req)
	if err != nil {
		return nil, err
	}

	result, err := parseExtraction(content)
	if err != nil {
		return nil, &ProviderError{Op: "extract", Err: err}
	}
	return result, nil
}

// parseExtraction tolerates markdown fences around the JSON body
func parseExtraction(content string) (*ExtractionResult, error) {
	trimmed := strings.TrimSpace(content)
	if strings.HasPrefix(trimmed, "```") {
		trimmed = strings.TrimPrefix(trimmed, "```json")
		trimmed = strings.TrimPrefix(trimmed, "```")
		if idx := strings.LastIndex(trimmed, "```"); idx >= 0 {
			trimmed = trimmed[:idx]
		}
		trimmed = strings.TrimSpace(trimmed)
	}

	var result ExtractionResult
	if err := json.Unmarshal([]byte(trimmed), &result); err != nil {
		return nil, fmt.Errorf("failed to parse extraction JSON: %w", err)
	}
	return &result, nil
}
