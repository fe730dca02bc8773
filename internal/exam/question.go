package exam

import (
	"encoding/json"
	"fmt"
	"strings"
)

type QuestionType string

const (
	TypeMultipleChoice QuestionType = "multiple_choice"
	TypeShortAnswer    QuestionType = "short_answer"
	TypeLongAnswer     QuestionType = "long_answer"
)

// QuestionBody carries the fields specific to one question type.
// Implemented by MultipleChoice, ShortAnswer and LongAnswer.
type QuestionBody interface {
	Type() QuestionType
}

// MultipleChoice has a scalar Correct for single-select and a list for multi-select.
type MultipleChoice struct {
	Options []string
	Correct Answer
}

type ShortAnswer struct {
	Correct string
}

// LongAnswer is graded manually and never scored automatically.
type LongAnswer struct{}

func (MultipleChoice) Type() QuestionType { return TypeMultipleChoice }
func (ShortAnswer) Type() QuestionType    { return TypeShortAnswer }
func (LongAnswer) Type() QuestionType     { return TypeLongAnswer }

type Question struct {
	ID     string
	Prompt string
	Points int
	Body   QuestionBody
}

func (q Question) Type() QuestionType {
	if q.Body == nil {
		return ""
	}
	return q.Body.Type()
}

// MultiSelect reports whether a multiple choice question expects a list.
func (q Question) MultiSelect() bool {
	mc, ok := q.Body.(MultipleChoice)
	return ok && mc.Correct.List
}

func (q Question) clone() Question {
	if mc, ok := q.Body.(MultipleChoice); ok {
		opts := make([]string, len(mc.Options))
		copy(opts, mc.Options)
		q.Body = MultipleChoice{Options: opts, Correct: mc.Correct.clone()}
	}
	return q
}

// questionWire is the flat JSON form stored in questions_json and sent by teachers.
type questionWire struct {
	ID      string       `json:"id"`
	Type    QuestionType `json:"type"`
	Prompt  string       `json:"question"`
	Options []string     `json:"options,omitempty"`
	Correct *Answer      `json:"correct_answer,omitempty"`
	Points  int          `json:"points"`
}

func (q Question) MarshalJSON() ([]byte, error) {
	w := questionWire{ID: q.ID, Type: q.Type(), Prompt: q.Prompt, Points: q.Points}
	switch b := q.Body.(type) {
	case MultipleChoice:
		w.Options = b.Options
		c := b.Correct
		w.Correct = &c
	case ShortAnswer:
		c := Text(b.Correct)
		w.Correct = &c
	case LongAnswer:
	default:
		return nil, fmt.Errorf("question %q: missing body", q.ID)
	}
	return json.Marshal(w)
}

func (q *Question) UnmarshalJSON(b []byte) error {
	var w questionWire
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	if strings.TrimSpace(w.ID) == "" {
		return fmt.Errorf("question: id required")
	}
	if w.Points < 0 {
		return fmt.Errorf("question %q: points must be >= 0", w.ID)
	}
	out := Question{ID: w.ID, Prompt: w.Prompt, Points: w.Points}
	switch w.Type {
	case TypeMultipleChoice:
		if w.Correct == nil {
			return fmt.Errorf("question %q: correct_answer required for %s", w.ID, w.Type)
		}
		out.Body = MultipleChoice{Options: w.Options, Correct: *w.Correct}
	case TypeShortAnswer:
		if len(w.Options) > 0 {
			return fmt.Errorf("question %q: options not allowed for %s", w.ID, w.Type)
		}
		if w.Correct == nil || w.Correct.List {
			return fmt.Errorf("question %q: %s needs a single string correct_answer", w.ID, w.Type)
		}
		out.Body = ShortAnswer{Correct: w.Correct.Text}
	case TypeLongAnswer:
		if len(w.Options) > 0 || w.Correct != nil {
			return fmt.Errorf("question %q: %s takes no options or correct_answer", w.ID, w.Type)
		}
		out.Body = LongAnswer{}
	default:
		return fmt.Errorf("question %q: unknown type %q", w.ID, w.Type)
	}
	*q = out
	return nil
}
