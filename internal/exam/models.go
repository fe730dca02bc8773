package exam

import (
	"encoding/json"
	"time"
)

type Exam struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	CreatedBy   string     `json:"created_by"`
	IsActive    bool       `json:"is_active"`
	TimeLimit   int        `json:"time_limit,omitempty"` // minutes, 0 = untimed
	Questions   []Question `json:"questions"`
	CreatedAt   time.Time  `json:"created_at"`
}

// Question looks a question up by id.
func (e Exam) Question(id string) (Question, bool) {
	for _, q := range e.Questions {
		if q.ID == id {
			return q, true
		}
	}
	return Question{}, false
}

// TimeLimitDuration is zero for untimed exams.
func (e Exam) TimeLimitDuration() time.Duration {
	if e.TimeLimit <= 0 {
		return 0
	}
	return time.Duration(e.TimeLimit) * time.Minute
}

func (e Exam) Clone() Exam {
	qs := make([]Question, len(e.Questions))
	for i, q := range e.Questions {
		qs[i] = q.clone()
	}
	e.Questions = qs
	return e
}

const (
	StatusInProgress = "in_progress"
	StatusSubmitted  = "submitted"
)

type AnsweredQuestion struct {
	QuestionID string `json:"question_id"`
	Answer     Answer `json:"answer"`
}

type Attempt struct {
	ID          string             `json:"id"`
	ExamID      string             `json:"exam_id"`
	StudentID   string             `json:"student_id"`
	Answers     []AnsweredQuestion `json:"answers"`
	StartedAt   time.Time          `json:"started_at"`
	SubmittedAt *time.Time         `json:"submitted_at,omitempty"`
	Score       *float64           `json:"score,omitempty"` // fraction in [0,1]
}

func (a Attempt) Submitted() bool { return a.SubmittedAt != nil }

func (a Attempt) Status() string {
	if a.Submitted() {
		return StatusSubmitted
	}
	return StatusInProgress
}

// AnswerFor returns nil when the question has not been answered.
func (a Attempt) AnswerFor(questionID string) *Answer {
	for i := range a.Answers {
		if a.Answers[i].QuestionID == questionID {
			ans := a.Answers[i].Answer
			return &ans
		}
	}
	return nil
}

// SetAnswer replaces the answer for questionID or appends it. Last write wins.
func (a *Attempt) SetAnswer(questionID string, ans Answer) {
	for i := range a.Answers {
		if a.Answers[i].QuestionID == questionID {
			a.Answers[i].Answer = ans.clone()
			return
		}
	}
	a.Answers = append(a.Answers, AnsweredQuestion{QuestionID: questionID, Answer: ans.clone()})
}

func (a Attempt) Clone() Attempt {
	answers := make([]AnsweredQuestion, len(a.Answers))
	for i, aq := range a.Answers {
		answers[i] = AnsweredQuestion{QuestionID: aq.QuestionID, Answer: aq.Answer.clone()}
	}
	a.Answers = answers
	if a.SubmittedAt != nil {
		t := *a.SubmittedAt
		a.SubmittedAt = &t
	}
	if a.Score != nil {
		s := *a.Score
		a.Score = &s
	}
	return a
}

func (a Attempt) MarshalJSON() ([]byte, error) {
	type plain Attempt
	if a.Answers == nil {
		a.Answers = []AnsweredQuestion{}
	}
	return json.Marshal(struct {
		plain
		Status string `json:"status"`
	}{plain(a), a.Status()})
}
