package generator

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/goccy/go-json"
	"google.golang.org/genai"

	"github.com/Grand-Nord-Developpers-Community/gndc-whatsapp-bot/internal/constants"
	"github.com/Grand-Nord-Developpers-Community/gndc-whatsapp-bot/pkg/errors"
)

// GeminiBackend talks to the Gemini API. Tool calls are served with JSON-schema structured output.
type GeminiBackend struct {
	apiKey string
	model  string

	mu     sync.Mutex
	client *genai.Client
}

// NewGeminiBackend creates a GeminiBackend. The SDK client is created on first use.
func NewGeminiBackend(_ context.Context, apiKey, model string) (*GeminiBackend, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, ErrMissingAPIKey
	}
	if model == "" {
		model = constants.GeneratorConfig.GeminiModel
	}
	return &GeminiBackend{apiKey: apiKey, model: model}, nil
}

// Name implements Backend.
func (b *GeminiBackend) Name() string { return "gemini" }

// Complete implements Backend.
func (b *GeminiBackend) Complete(ctx context.Context, system, prompt string) (string, error) {
	resp, err := b.generate(ctx, system, prompt, nil)
	if err != nil {
		return "", errors.NewGenerationError(b.Name(), "", err)
	}
	return resp.Text(), nil
}

// CallTool implements Backend.
func (b *GeminiBackend) CallTool(ctx context.Context, system, prompt string, tool Tool) (json.RawMessage, error) {
	instruction := system
	if tool.Description != "" {
		instruction = strings.TrimSpace(system + "\n\n" + tool.Description)
	}
	resp, err := b.generate(ctx, instruction, prompt, tool.Parameters)
	if err != nil {
		return nil, errors.NewGenerationError(b.Name(), tool.Name, err)
	}
	payload := strings.TrimSpace(resp.Text())
	if payload == "" {
		return nil, errors.NewGenerationError(b.Name(), tool.Name, ErrNoToolCall)
	}
	return json.RawMessage(payload), nil
}

func (b *GeminiBackend) generate(ctx context.Context, system, prompt string, schema map[string]any) (*genai.GenerateContentResponse, error) {
	client, err := b.sdkClient(ctx)
	if err != nil {
		return nil, err
	}

	cfg := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(constants.GeneratorConfig.Temperature),
		MaxOutputTokens: int32(constants.GeneratorConfig.MaxTokens),
	}
	if system != "" {
		cfg.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}
	if schema != nil {
		cfg.ResponseMIMEType = "application/json"
		cfg.ResponseJsonSchema = schema
	}

	contents := []*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)}
	resp, err := client.Models.GenerateContent(ctx, b.model, contents, cfg)
	if err != nil {
		return nil, fmt.Errorf("generate content: %w", err)
	}
	return resp, nil
}

func (b *GeminiBackend) sdkClient(ctx context.Context) (*genai.Client, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.client != nil {
		return b.client, nil
	}
	client, err := genai.NewClient(context.WithoutCancel(ctx), &genai.ClientConfig{
		APIKey:  b.apiKey,
		Backend: genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{
			Timeout: genai.Ptr(constants.RequestTimeout.Generator),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	b.client = client
	return client, nil
}
