package grading

import "github.com/mind-engage/examhub/internal/exam"

type QuestionResult struct {
	QuestionID string            `json:"question_id"`
	Type       exam.QuestionType `json:"type"`
	Prompt     string            `json:"question"`
	Points     int               `json:"points"`
	Earned     int               `json:"earned"`
	Verdict    Verdict           `json:"verdict"`
	Submitted  *exam.Answer      `json:"submitted,omitempty"`
	Correct    *exam.Answer      `json:"correct_answer,omitempty"`
}

// Report is the feedback view of a submitted attempt.
type Report struct {
	AttemptID string           `json:"attempt_id"`
	ExamID    string           `json:"exam_id"`
	Earned    int              `json:"earned"`
	Total     int              `json:"total"`
	Score     float64          `json:"score"`
	Pending   int              `json:"pending_review"`
	Questions []QuestionResult `json:"questions"`
}

func Review(e exam.Exam, a exam.Attempt) Report {
	r := Report{AttemptID: a.ID, ExamID: e.ID, Questions: make([]QuestionResult, 0, len(e.Questions))}
	for _, q := range e.Questions {
		sub := a.AnswerFor(q.ID)
		v := IsCorrect(q, sub)
		qr := QuestionResult{
			QuestionID: q.ID,
			Type:       q.Type(),
			Prompt:     q.Prompt,
			Points:     q.Points,
			Verdict:    v,
			Submitted:  sub,
			Correct:    answerKey(q),
		}
		r.Total += q.Points
		switch v {
		case Correct:
			qr.Earned = q.Points
			r.Earned += q.Points
		case Pending:
			r.Pending++
		}
		r.Questions = append(r.Questions, qr)
	}
	r.Score = Fraction(r.Earned, r.Total)
	return r
}

func answerKey(q exam.Question) *exam.Answer {
	switch b := q.Body.(type) {
	case exam.MultipleChoice:
		k := b.Correct
		return &k
	case exam.ShortAnswer:
		k := exam.Text(b.Correct)
		return &k
	}
	return nil
}
