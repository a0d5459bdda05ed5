// Package llm wraps the OpenAI client for direct, single-shot completions and
// tracks token usage per model.
package llm

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// TokenUsage tracks usage counts per model.
type TokenUsage struct {
	CompletionTokens int64 `json:"completion_tokens"`
	PromptTokens     int64 `json:"prompt_tokens"`
	TotalTokens      int64 `json:"total_tokens"`
}

// OpenAIClient wraps the OpenAI client and tracks usage.
type OpenAIClient struct {
	client openai.Client
	model  string
	temp   float64
	mu     sync.Mutex
	usage  map[string]*TokenUsage
}

// NewOpenAIClient creates a wrapper for the given model. An empty apiKey falls
// back to the OPENAI_API_KEY environment variable.
func NewOpenAIClient(apiKey, model string, temp float64) *OpenAIClient {
	var opts []option.RequestOption
	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	}

	return &OpenAIClient{
		client: openai.NewClient(opts...),
		model:  model,
		temp:   temp,
		usage:  make(map[string]*TokenUsage),
	}
}

// Generate calls the chat completion endpoint and tracks usage.
func (o *OpenAIClient) Generate(ctx context.Context, systemPrompt, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 50*time.Second)
	defer cancel()

	var messages []openai.ChatCompletionMessageParamUnion
	if systemPrompt != "" {
		messages = append(messages, openai.SystemMessage(systemPrompt))
	}
	messages = append(messages, openai.UserMessage(prompt))

	chatReq := openai.ChatCompletionNewParams{
		Model:       o.model,
		Messages:    messages,
		Temperature: openai.Float(o.temp),
	}

	res, err := o.client.Chat.Completions.New(ctx, chatReq)
	if err != nil {
		slog.Error("openai error: chat completions failed", "error", err)
		return "", fmt.Errorf("openai generation failed: %w", err)
	}

	o.mu.Lock()
	tu, ok := o.usage[o.model]
	if !ok {
		tu = &TokenUsage{}
		o.usage[o.model] = tu
	}
	tu.CompletionTokens += res.Usage.CompletionTokens
	tu.PromptTokens += res.Usage.PromptTokens
	tu.TotalTokens += res.Usage.TotalTokens
	o.mu.Unlock()

	if len(res.Choices) == 0 {
		return "", fmt.Errorf("openai returned no choices")
	}

	return res.Choices[0].Message.Content, nil
}

// Usage returns a copy of the accumulated per-model token counts.
func (o *OpenAIClient) Usage() map[string]TokenUsage {
	o.mu.Lock()
	defer o.mu.Unlock()

	out := make(map[string]TokenUsage, len(o.usage))
	for model, tu := range o.usage {
		out[model] = *tu
	}
	return out
}
