package generator

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/Grand-Nord-Developpers-Community/gndc-whatsapp-bot/internal/domain"
	"github.com/Grand-Nord-Developpers-Community/gndc-whatsapp-bot/pkg/errors"
)

// TechDomains are the quiz subject areas.
var TechDomains = []string{
	"Programmation Python",
	"Programmation JavaScript",
	"Développement Web",
	"Bases de données",
	"Réseaux informatiques",
	"Intelligence Artificielle",
	"DevOps et CI/CD",
	"Cloud Computing",
	"Git et Contrôle de version",
	"Sécurité informatique",
}

const (
	quizToolName   = "create_quiz"
	quizIDAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"
)

// QuizRequest narrows a quiz. Empty fields are picked at random.
type QuizRequest struct {
	Domain     string
	Difficulty domain.Difficulty
	Topic      string
}

// QuizGenerator creates multiple-choice quizzes through a Backend.
type QuizGenerator struct {
	backend  Backend
	validate *validator.Validate
	logger   *slog.Logger
	now      func() time.Time
	pick     func(n int) int
}

// NewQuizGenerator creates a QuizGenerator.
func NewQuizGenerator(backend Backend, logger *slog.Logger) *QuizGenerator {
	return &QuizGenerator{
		backend:  backend,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   logger,
		now:      time.Now,
		pick:     rand.IntN,
	}
}

// CreateQuiz generates a quiz on a random domain and difficulty.
func (g *QuizGenerator) CreateQuiz(ctx context.Context) (*domain.Quiz, error) {
	return g.Generate(ctx, QuizRequest{})
}

// Generate asks the backend for a quiz and validates it: four options, exactly one correct,
// points within 10..50.
func (g *QuizGenerator) Generate(ctx context.Context, req QuizRequest) (*domain.Quiz, error) {
	if req.Domain == "" {
		req.Domain = TechDomains[g.pick(len(TechDomains))]
	}
	if req.Difficulty == "" {
		req.Difficulty = domain.Difficulties[g.pick(len(domain.Difficulties))]
	}

	prompt := fmt.Sprintf("Crée un quiz pertinent en %s (Difficulté: %s)", req.Domain, req.Difficulty)
	if req.Topic != "" {
		prompt = fmt.Sprintf("Crée un quiz sur : %q (Domaine: %s, Difficulté: %s)", req.Topic, req.Domain, req.Difficulty)
	}

	g.logger.Info("QUIZ_GENERATION_STARTED",
		slog.String("backend", g.backend.Name()),
		slog.String("domain", req.Domain),
		slog.String("difficulty", string(req.Difficulty)),
	)

	raw, err := g.backend.CallTool(ctx, creativeContext, prompt, quizTool())
	if err != nil {
		return nil, err
	}

	var quiz domain.Quiz
	if err := json.Unmarshal(raw, &quiz); err != nil {
		return nil, errors.NewGenerationError(g.backend.Name(), quizToolName, fmt.Errorf("decode arguments: %w", err))
	}
	id, err := g.newQuizID()
	if err != nil {
		return nil, err
	}
	quiz.ID = id
	if err := g.check(&quiz); err != nil {
		return nil, errors.NewGenerationError(g.backend.Name(), quizToolName, err)
	}

	g.logger.Info("QUIZ_GENERATED", slog.String("id", quiz.ID), slog.String("title", quiz.Titre))
	return &quiz, nil
}

func (g *QuizGenerator) check(quiz *domain.Quiz) error {
	if err := g.validate.Struct(quiz); err != nil {
		return fmt.Errorf("invalid quiz: %w", err)
	}
	correct := 0
	for _, option := range quiz.Options {
		if option.IsCorrect {
			correct++
		}
	}
	if correct != 1 {
		return fmt.Errorf("%d correct answers instead of 1", correct)
	}
	return nil
}

// newQuizID returns quiz_<unix ms>_<9 base36 chars>.
func (g *QuizGenerator) newQuizID() (string, error) {
	suffix, err := gonanoid.Generate(quizIDAlphabet, 9)
	if err != nil {
		return "", fmt.Errorf("generate quiz id: %w", err)
	}
	return fmt.Sprintf("quiz_%d_%s", g.now().UnixMilli(), suffix), nil
}

func quizTool() Tool {
	return Tool{
		Name:        quizToolName,
		Description: "Crée un quiz éducatif en français pour GNDC.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"titre":    map[string]any{"type": "string", "description": "Titre du quiz en français"},
				"question": map[string]any{"type": "string", "description": "La question du quiz"},
				"domaine": map[string]any{
					"type":        "string",
					"description": "Domaine technologique parmi : " + strings.Join(TechDomains, ", "),
				},
				"difficulte": map[string]any{
					"type": "string",
					"enum": []string{string(domain.DifficultyBeginner), string(domain.DifficultyIntermediate), string(domain.DifficultyAdvanced)},
				},
				"options": map[string]any{
					"type": "array",
					"items": map[string]any{
						"type": "object",
						"properties": map[string]any{
							"id":        map[string]any{"type": "string"},
							"text":      map[string]any{"type": "string"},
							"isCorrect": map[string]any{"type": "boolean"},
						},
						"required": []string{"id", "text", "isCorrect"},
					},
					"minItems": 4,
					"maxItems": 4,
				},
				"explication": map[string]any{"type": "string", "description": "Explication de la bonne réponse"},
				"points":      map[string]any{"type": "integer", "description": "Points (10-50)"},
			},
			"required": []string{"titre", "question", "domaine", "difficulte", "options", "explication", "points"},
		},
	}
}
