package questions

import (
	"strings"

	"github.com/abhisek/quizdungeon/internal/game"
)

// Type is the answer format of a question.
type Type string

const (
	TypeMultipleChoice Type = "multiple_choice"
	TypeTrueFalse      Type = "true_false"
)

// Record is one immutable question supplied by the pool.
type Record struct {
	ID            string          `json:"id"`
	MaterialID    string          `json:"material_id"`
	Topic         string          `json:"topic"`
	Difficulty    game.Difficulty `json:"difficulty"`
	Type          Type            `json:"question_type"`
	Text          string          `json:"question_text"`
	Options       []string        `json:"options"`
	CorrectAnswer string          `json:"correct_answer"`
	Explanation   string          `json:"explanation"`
}

// Prompt is the learner-facing view of a question. It omits the answer
// and the explanation.
type Prompt struct {
	ID         string          `json:"id"`
	Topic      string          `json:"topic"`
	Difficulty game.Difficulty `json:"difficulty"`
	Type       Type            `json:"question_type"`
	Text       string          `json:"question_text"`
	Options    []string        `json:"options"`
	Review     bool            `json:"is_review,omitempty"`
}

// Prompt returns the learner-facing view of r.
func (r *Record) Prompt() *Prompt {
	return &Prompt{
		ID:         r.ID,
		Topic:      r.Topic,
		Difficulty: r.Difficulty,
		Type:       r.Type,
		Text:       r.Text,
		Options:    append([]string(nil), r.Options...),
	}
}

// CheckAnswer reports whether answer matches the correct answer, ignoring
// case and surrounding whitespace.
func (r *Record) CheckAnswer(answer string) bool {
	return strings.EqualFold(strings.TrimSpace(answer), strings.TrimSpace(r.CorrectAnswer))
}

// Normalize fills defaults: unknown difficulty becomes medium, boolean
// questions get synthesized options and a lowercase true/false answer.
func (r *Record) Normalize() {
	r.Difficulty = game.ParseDifficulty(string(r.Difficulty))
	r.Topic = strings.TrimSpace(r.Topic)
	if r.Topic == "" {
		r.Topic = "General"
	}
	switch Type(strings.ToLower(string(r.Type))) {
	case TypeTrueFalse, "boolean", "true/false":
		r.Type = TypeTrueFalse
		if len(r.Options) == 0 {
			r.Options = []string{"True", "False"}
		}
		r.CorrectAnswer = strings.ToLower(strings.TrimSpace(r.CorrectAnswer))
	default:
		r.Type = TypeMultipleChoice
	}
}
