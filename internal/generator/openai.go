package generator

import (
	"context"
	"fmt"
	"strings"

	"github.com/goccy/go-json"
	"github.com/sashabaranov/go-openai"

	"github.com/Grand-Nord-Developpers-Community/gndc-whatsapp-bot/internal/constants"
	"github.com/Grand-Nord-Developpers-Community/gndc-whatsapp-bot/pkg/errors"
)

// OpenAIBackend talks to an OpenAI-compatible chat completion endpoint.
type OpenAIBackend struct {
	client *openai.Client
	model  string
}

// NewOpenAIBackend creates an OpenAIBackend. baseURL may point at any compatible gateway.
func NewOpenAIBackend(apiKey, baseURL, model string) (*OpenAIBackend, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, ErrMissingAPIKey
	}
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	if model == "" {
		model = constants.GeneratorConfig.OpenAIModel
	}
	return &OpenAIBackend{client: openai.NewClientWithConfig(cfg), model: model}, nil
}

// NewOpenAIBackendWithClient wraps an existing client.
func NewOpenAIBackendWithClient(client *openai.Client, model string) *OpenAIBackend {
	return &OpenAIBackend{client: client, model: model}
}

// Name implements Backend.
func (b *OpenAIBackend) Name() string { return "openai" }

// Complete implements Backend.
func (b *OpenAIBackend) Complete(ctx context.Context, system, prompt string) (string, error) {
	resp, err := b.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    b.model,
		Messages: messagesFor(system, prompt),
	})
	if err != nil {
		return "", errors.NewGenerationError(b.Name(), "", err)
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}

// CallTool implements Backend. The tool choice is forced so the model cannot answer in prose.
func (b *OpenAIBackend) CallTool(ctx context.Context, system, prompt string, tool Tool) (json.RawMessage, error) {
	resp, err := b.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       b.model,
		Messages:    messagesFor(system, prompt),
		Temperature: constants.GeneratorConfig.Temperature,
		Tools: []openai.Tool{{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        tool.Name,
				Description: tool.Description,
				Parameters:  tool.Parameters,
			},
		}},
		ToolChoice: openai.ToolChoice{
			Type:     openai.ToolTypeFunction,
			Function: openai.ToolFunction{Name: tool.Name},
		},
	})
	if err != nil {
		return nil, errors.NewGenerationError(b.Name(), tool.Name, err)
	}
	if len(resp.Choices) == 0 || len(resp.Choices[0].Message.ToolCalls) == 0 {
		return nil, errors.NewGenerationError(b.Name(), tool.Name, ErrNoToolCall)
	}

	call := resp.Choices[0].Message.ToolCalls[0]
	if call.Function.Name != tool.Name {
		return nil, errors.NewGenerationError(b.Name(), tool.Name,
			fmt.Errorf("unexpected tool %q", call.Function.Name))
	}
	return json.RawMessage(call.Function.Arguments), nil
}

func messagesFor(system, prompt string) []openai.ChatCompletionMessage {
	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if system != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: system})
	}
	return append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: prompt})
}
