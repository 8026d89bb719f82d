package generator

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strconv"

	"github.com/goccy/go-json"

	"github.com/Grand-Nord-Developpers-Community/gndc-whatsapp-bot/internal/domain"
	"github.com/Grand-Nord-Developpers-Community/gndc-whatsapp-bot/pkg/errors"
)

// MemeTemplate is an Imgflip template and its number of text boxes.
type MemeTemplate struct {
	ID       string
	Name     string
	BoxCount int
}

// MemeTemplates lists the templates memes are drawn from.
var MemeTemplates = []MemeTemplate{
	{"181913649", "Drake Hotline Bling", 2},
	{"112126428", "Distracted Boyfriend", 3},
	{"87743020", "Two Buttons", 3},
	{"93895088", "Expanding Brain", 4},
	{"129242436", "Change My Mind", 1},
	{"61544", "Success Kid", 2},
	{"61579", "One Does Not Simply", 2},
	{"438680", "Batman Slapping Robin", 2},
	{"100777631", "Is This A Pigeon", 3},
	{"155067746", "Surprised Pikachu", 1},
	{"97984", "Disaster Girl", 2},
	{"27813981", "Hide The Pain Harold", 2},
	{"188390779", "Woman Yelling At Cat", 2},
	{"102156234", "Mocking Spongebob", 2},
	{"84341851", "Evil Kermit", 2},
	{"61539", "First World Problems", 2},
	{"101470", "Ancient Aliens", 2},
	{"61585", "Bad Luck Brian", 2},
	{"217743513", "Roll Safe Think About It", 2},
	{"61556", "Grandma Finds The Internet", 2},
	{"110163934", "I Bet He's Thinking About Other Women", 2},
	{"124822590", "Left Exit 12 Off Ramp", 3},
	{"184801100", "Me And The Boys", 1},
	{"148909805", "Monkey Puppet", 2},
	{"28251713", "Oprah You Get A", 2},
	{"180190441", "They're The Same Picture", 3},
	{"55311130", "This Is Fine", 2},
	{"309868304", "Trade Offer", 3},
	{"4087833", "Waiting Skeleton", 2},
	{"135256802", "Who Killed Hannibal", 3},
	{"61533", "X All The Y", 2},
	{"131940431", "Gru's Plan", 4},
}

// MemeTopics are the subjects a meme is written about.
var MemeTopics = []string{
	"Les coupures d'électricité pendant qu'on code",
	"La connexion internet lente pendant un hackathon GNDC",
	"Debugger du code à 3h du matin",
	"Quand le code fonctionne du premier coup",
	"Les bugs en production pendant une démo GNDC",
	"Apprendre un nouveau framework pour un projet GNDC",
	"La différence entre junior et senior dev à GNDC",
	"Stack Overflow qui sauve la vie",
	"Git merge conflicts",
	"Les attentes vs la réalité du développement",
	"Travailler sur un projet open source GNDC",
	"Les promesses des clients vs le budget",
	"CSS qui ne veut pas s'aligner",
	"Les réunions qui auraient pu être un email",
	"Coder avec VS Code vs Notepad",
	"La documentation qui n'existe pas",
	"Les hackathons GNDC qui durent 48h",
	"Refactorer du vieux code",
	"Les tests en production",
	"L'importance de la communauté GNDC",
	"Partager ses connaissances à GNDC",
	"Les meetups GNDC du weekend",
	"Débuter en programmation avec GNDC",
	"Les opportunités tech au Grand Nord",
	"Résoudre des problèmes locaux avec la tech",
}

const (
	memeToolName    = "create_meme"
	memeInstruction = "\n\nIMPORTANT: Chaque template a un nombre spécifique de zones de texte (boxes). " +
		"Tu dois générer EXACTEMENT le bon nombre de textes, dans le bon ordre, en rapport avec le sujet et le template choisis."
)

// Captioner renders a template with texts.
type Captioner interface {
	Caption(ctx context.Context, templateID string, texts []string) (*Captioned, error)
}

// MemeGenerator writes meme captions with a Backend and renders them with Imgflip.
type MemeGenerator struct {
	backend   Backend
	captioner Captioner
	logger    *slog.Logger
	pick      func(n int) int
}

// NewMemeGenerator creates a MemeGenerator.
func NewMemeGenerator(backend Backend, captioner Captioner, logger *slog.Logger) *MemeGenerator {
	return &MemeGenerator{backend: backend, captioner: captioner, logger: logger, pick: rand.IntN}
}

// RandomMeme renders a meme on a random topic with a random template.
func (g *MemeGenerator) RandomMeme(ctx context.Context) (*domain.Meme, error) {
	template := MemeTemplates[g.pick(len(MemeTemplates))]
	topic := MemeTopics[g.pick(len(MemeTopics))]
	return g.Generate(ctx, template, topic)
}

// Generate renders a meme about topic on template.
func (g *MemeGenerator) Generate(ctx context.Context, template MemeTemplate, topic string) (*domain.Meme, error) {
	prompt := fmt.Sprintf("Crée un mème drôle et original sur le sujet suivant pour la communauté GNDC : %q.\n\n"+
		"Sois créatif et humoristique. Le mème doit résonner avec les développeurs du Grand Nord Cameroun.", topic)

	raw, err := g.backend.CallTool(ctx, creativeContext+memeInstruction, prompt, memeTool(template))
	if err != nil {
		return nil, err
	}

	texts, err := memeTexts(raw, template.BoxCount)
	if err != nil {
		return nil, errors.NewGenerationError(g.backend.Name(), memeToolName, err)
	}

	g.logger.Info("MEME_CAPTIONING",
		slog.String("template", template.Name),
		slog.String("topic", topic),
		slog.Any("texts", texts),
	)

	rendered, err := g.captioner.Caption(ctx, template.ID, texts)
	if err != nil {
		return nil, err
	}
	return &domain.Meme{
		Template: template.Name,
		Topic:    topic,
		URL:      rendered.URL,
		PageURL:  rendered.PageURL,
	}, nil
}

func memeTexts(raw json.RawMessage, boxes int) ([]string, error) {
	var args map[string]any
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, fmt.Errorf("decode arguments: %w", err)
	}
	texts := make([]string, 0, boxes)
	for i := 0; i < boxes; i++ {
		text, _ := args["text"+strconv.Itoa(i)].(string)
		texts = append(texts, text)
	}
	empty := 0
	for _, text := range texts {
		if text == "" {
			empty++
		}
	}
	if empty == boxes {
		return nil, fmt.Errorf("no caption text for %d boxes", boxes)
	}
	return texts, nil
}

func memeTool(template MemeTemplate) Tool {
	properties := map[string]any{
		"template": map[string]any{
			"type":        "string",
			"enum":        []string{template.ID},
			"description": fmt.Sprintf("Template sélectionné: %s (%d zones de texte)", template.Name, template.BoxCount),
		},
	}
	required := []string{"template"}
	for i := 0; i < template.BoxCount; i++ {
		field := "text" + strconv.Itoa(i)
		properties[field] = map[string]any{
			"type":        "string",
			"description": fmt.Sprintf("Texte pour la zone %d du mème (en français, court et percutant)", i+1),
		}
		required = append(required, field)
	}
	return Tool{
		Name: memeToolName,
		Description: fmt.Sprintf("Crée un mème %q avec %d zone(s) de texte pour GNDC. Génère des textes drôles et pertinents en français.",
			template.Name, template.BoxCount),
		Parameters: map[string]any{
			"type":       "object",
			"properties": properties,
			"required":   required,
		},
	}
}
