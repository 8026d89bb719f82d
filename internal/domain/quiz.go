package domain

import "time"

// Difficulty of a quiz.
type Difficulty string

// Quiz difficulties.
const (
	DifficultyBeginner     Difficulty = "debutant"
	DifficultyIntermediate Difficulty = "intermediaire"
	DifficultyAdvanced     Difficulty = "avance"
)

// Difficulties lists every difficulty in increasing order.
var Difficulties = []Difficulty{DifficultyBeginner, DifficultyIntermediate, DifficultyAdvanced}

// QuizOption is one answer of a quiz.
type QuizOption struct {
	ID        string `json:"id" validate:"required"`
	Text      string `json:"text" validate:"required"`
	IsCorrect bool   `json:"isCorrect"`
}

// Quiz: generated multiple-choice question published as a poll
type Quiz struct {
	ID          string       `json:"id" validate:"required"`
	Titre       string       `json:"titre" validate:"required"`
	Question    string       `json:"question" validate:"required"`
	Domaine     string       `json:"domaine" validate:"required"`
	Difficulte  Difficulty   `json:"difficulte" validate:"required,oneof=debutant intermediaire avance"`
	Options     []QuizOption `json:"options" validate:"len=4,dive"`
	Explication string       `json:"explication" validate:"required"`
	Points      int          `json:"points" validate:"min=10,max=50"`
}

// CorrectOption returns the first option flagged correct.
func (q *Quiz) CorrectOption() (QuizOption, bool) {
	if q == nil {
		return QuizOption{}, false
	}
	for _, option := range q.Options {
		if option.IsCorrect {
			return option, true
		}
	}
	return QuizOption{}, false
}

// OptionTexts returns the option labels in order.
func (q *Quiz) OptionTexts() []string {
	texts := make([]string, 0, len(q.Options))
	for _, option := range q.Options {
		texts = append(texts, option.Text)
	}
	return texts
}

// CampaignInstance: a published campaign pending its reveal
type CampaignInstance struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	Quiz      *Quiz     `json:"quiz,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}
