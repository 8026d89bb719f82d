// Package generator produces LLM content for the bot: free-form answers, daily quizzes and
// memes. Two backends are supported: any OpenAI-compatible endpoint and Gemini.
package generator

import (
	"context"
	"errors"
	"fmt"

	"github.com/goccy/go-json"

	"github.com/Grand-Nord-Developpers-Community/gndc-whatsapp-bot/internal/config"
)

var (
	// ErrMissingAPIKey: backend selected without credentials
	ErrMissingAPIKey = errors.New("missing generator api key")
	// ErrNoToolCall: the model answered in prose instead of calling the tool
	ErrNoToolCall = errors.New("model did not call the tool")
)

// Tool describes a structured output the model must produce.
type Tool struct {
	Name        string
	Description string
	Parameters  map[string]any // JSON schema of the arguments
}

// Backend is an LLM provider.
type Backend interface {
	// Complete answers prompt under the system instruction.
	Complete(ctx context.Context, system, prompt string) (string, error)
	// CallTool forces a structured answer matching tool.Parameters and returns its JSON arguments.
	CallTool(ctx context.Context, system, prompt string, tool Tool) (json.RawMessage, error)
	// Name identifies the backend in logs.
	Name() string
}

// NewBackend builds the backend selected in cfg.
func NewBackend(ctx context.Context, cfg config.GeneratorConfig) (Backend, error) {
	switch cfg.Backend {
	case "openai", "":
		return NewOpenAIBackend(cfg.OpenAIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel)
	case "gemini":
		return NewGeminiBackend(ctx, cfg.GeminiKey, cfg.GeminiModel)
	default:
		return nil, fmt.Errorf("unknown generator backend %q", cfg.Backend)
	}
}

// creativeContext is the system instruction shared by the quiz and meme generators.
const creativeContext = `Tu es un assistant créatif pour GNDC (Grand Nord Developers Community), une communauté de développeurs du Grand Nord Cameroun.
GNDC vise à :
- Promouvoir l'innovation technologique
- Partager des compétences en développement
- Résoudre des défis locaux via des solutions collaboratives
- Organiser des événements, hackathons, et ateliers pratiques

Contact : contact@gndc.tech
Site : https://gndc.tech

Tu dois créer du contenu en FRANÇAIS qui résonne avec :
- Les développeurs camerounais du Grand Nord
- La culture tech et geek
- Les défis et réussites de la communauté GNDC
- Les réalités locales

Sois créatif, pertinent et engageant pour l'audience GNDC !`
