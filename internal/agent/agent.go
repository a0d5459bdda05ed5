// Package agent runs the conversational scheduling agent: an LLM completion
// loop with tool dispatch against the calendar and the FAQ knowledge base.
package agent

import (
	"context"
	"fmt"
	"log/slog"

	"clinic-agent/internal/clinic"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

const (
	// maxToolRounds bounds the completion/tool-dispatch loop for one user turn.
	maxToolRounds = 10

	defaultTemperature = 0.7
	defaultMaxTokens   = 2048
)

// Turn is one prior message in the conversation.
type Turn struct {
	Role    string // "user" or "assistant"
	Content string
}

// Agent is the scheduling agent for a single clinic.
type Agent struct {
	llm     llms.Model
	toolbox *Toolbox
	system  string
}

// New creates an agent over any langchaingo model. Used directly by tests;
// production wiring goes through NewOpenAI.
func New(model llms.Model, toolbox *Toolbox, info *clinic.Info) *Agent {
	return &Agent{
		llm:     model,
		toolbox: toolbox,
		system:  SystemPrompt(info),
	}
}

// NewOpenAI creates an agent backed by an OpenAI chat model.
func NewOpenAI(apiKey, model string, toolbox *Toolbox, info *clinic.Info) (*Agent, error) {
	client, err := openai.New(openai.WithToken(apiKey), openai.WithModel(model))
	if err != nil {
		return nil, fmt.Errorf("could not create OpenAI client: %w", err)
	}
	return New(client, toolbox, info), nil
}

// Respond produces the assistant reply for a user message, executing any tool
// calls the model requests along the way.
func (a *Agent) Respond(ctx context.Context, history []Turn, message string) (string, error) {
	messages := make([]llms.MessageContent, 0, len(history)+2)
	messages = append(messages, llms.TextParts(llms.ChatMessageTypeSystem, a.system))

	for _, turn := range history {
		role := llms.ChatMessageTypeHuman
		if turn.Role == "assistant" {
			role = llms.ChatMessageTypeAI
		}
		messages = append(messages, llms.TextParts(role, turn.Content))
	}
	messages = append(messages, llms.TextParts(llms.ChatMessageTypeHuman, message))

	for round := 0; round < maxToolRounds; round++ {
		resp, err := a.llm.GenerateContent(ctx, messages,
			llms.WithTools(a.toolbox.Definitions()),
			llms.WithTemperature(defaultTemperature),
			llms.WithMaxTokens(defaultMaxTokens),
		)
		if err != nil {
			return "", fmt.Errorf("llm call failed: %w", err)
		}
		if len(resp.Choices) == 0 {
			return "", fmt.Errorf("llm returned no choices")
		}

		choice := resp.Choices[0]
		if len(choice.ToolCalls) == 0 {
			return choice.Content, nil
		}

		assistant := llms.MessageContent{Role: llms.ChatMessageTypeAI}
		if choice.Content != "" {
			assistant.Parts = append(assistant.Parts, llms.TextContent{Text: choice.Content})
		}
		for _, call := range choice.ToolCalls {
			assistant.Parts = append(assistant.Parts, call)
		}
		messages = append(messages, assistant)

		for _, call := range choice.ToolCalls {
			result := a.toolbox.Dispatch(ctx, call)
			messages = append(messages, llms.MessageContent{
				Role:  llms.ChatMessageTypeTool,
				Parts: []llms.ContentPart{result},
			})
		}

		slog.Debug("agent tool round complete", "round", round, "tool_calls", len(choice.ToolCalls))
	}

	return "", fmt.Errorf("agent exceeded %d tool rounds without a final answer", maxToolRounds)
}
