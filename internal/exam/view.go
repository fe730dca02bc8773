package exam

import "time"

// StudentQuestion is a question with its answer key stripped.
type StudentQuestion struct {
	ID          string       `json:"id"`
	Type        QuestionType `json:"type"`
	Prompt      string       `json:"question"`
	Options     []string     `json:"options,omitempty"`
	MultiSelect bool         `json:"multi_select,omitempty"`
	Points      int          `json:"points"`
}

type StudentExam struct {
	ID          string            `json:"id"`
	Title       string            `json:"title"`
	Description string            `json:"description,omitempty"`
	CreatedBy   string            `json:"created_by"`
	IsActive    bool              `json:"is_active"`
	TimeLimit   int               `json:"time_limit,omitempty"`
	Questions   []StudentQuestion `json:"questions"`
	CreatedAt   time.Time         `json:"created_at"`
}

// StudentView hides answer keys when serving an exam to students.
func (e Exam) StudentView() StudentExam {
	out := StudentExam{
		ID:          e.ID,
		Title:       e.Title,
		Description: e.Description,
		CreatedBy:   e.CreatedBy,
		IsActive:    e.IsActive,
		TimeLimit:   e.TimeLimit,
		Questions:   make([]StudentQuestion, 0, len(e.Questions)),
		CreatedAt:   e.CreatedAt,
	}
	for _, q := range e.Questions {
		sq := StudentQuestion{ID: q.ID, Type: q.Type(), Prompt: q.Prompt, Points: q.Points}
		if mc, ok := q.Body.(MultipleChoice); ok {
			sq.Options = append([]string(nil), mc.Options...)
			sq.MultiSelect = mc.Correct.List
		}
		out.Questions = append(out.Questions, sq)
	}
	return out
}
