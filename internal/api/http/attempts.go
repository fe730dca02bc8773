// internal/api/http/attempts.go
package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mind-engage/examhub/internal/attempt"
	"github.com/mind-engage/examhub/internal/exam"
)

type timerView struct {
	Active       bool       `json:"active"`
	Deadline     *time.Time `json:"deadline,omitempty"`
	RemainingSec int        `json:"remaining_sec"`
}

func newTimerView(t attempt.Timer, now time.Time) timerView {
	if !t.Active {
		return timerView{}
	}
	d := t.Deadline
	return timerView{Active: true, Deadline: &d, RemainingSec: t.RemainingSeconds(now)}
}

type attemptResponse struct {
	Attempt exam.Attempt `json:"attempt"`
	Timer   *timerView   `json:"timer,omitempty"`
}

// POST /exams/{examID}/attempts starts an attempt or resumes the open one.
func StartAttemptHandler(eng *attempt.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v := viewer(r)
		a, err := eng.Start(r.Context(), chi.URLParam(r, "examID"), v.ID)
		if err != nil {
			writeError(w, err)
			return
		}
		_, t, err := eng.TimerOf(r.Context(), a.ID, v)
		if err != nil {
			writeError(w, err)
			return
		}
		tv := newTimerView(t, eng.Now())
		writeJSON(w, http.StatusOK, attemptResponse{Attempt: a, Timer: &tv})
	}
}

// GET /exams/{examID}/attempts lists attempts for the owning teacher.
func ListExamAttemptsHandler(eng *attempt.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := eng.ListForExam(r.Context(), chi.URLParam(r, "examID"), viewer(r).ID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

// GET /attempts lists the caller's own attempts.
func ListMyAttemptsHandler(eng *attempt.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := eng.ListForStudent(r.Context(), viewer(r).ID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

func GetAttemptHandler(eng *attempt.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a, t, err := eng.TimerOf(r.Context(), chi.URLParam(r, "attemptID"), viewer(r))
		if err != nil {
			writeError(w, err)
			return
		}
		resp := attemptResponse{Attempt: a}
		if !a.Submitted() {
			tv := newTimerView(t, eng.Now())
			resp.Timer = &tv
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// PUT /attempts/{attemptID}/answers/{questionID}  {"answer": "B" | ["A","C"]}
func SaveAnswerHandler(eng *attempt.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Answer *exam.Answer `json:"answer"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Answer == nil {
			http.Error(w, "answer must be a string or an array of strings", http.StatusBadRequest)
			return
		}
		a, err := eng.RecordAnswer(r.Context(),
			chi.URLParam(r, "attemptID"), viewer(r).ID, chi.URLParam(r, "questionID"), *req.Answer)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, a)
	}
}

// POST /attempts/{attemptID}/answers  {"answers": [{"question_id": "...", "answer": ...}]}
func SaveAnswersHandler(eng *attempt.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Answers []struct {
				QuestionID string       `json:"question_id"`
				Answer     *exam.Answer `json:"answer"`
			} `json:"answers"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json: "+err.Error(), http.StatusBadRequest)
			return
		}
		batch := make([]exam.AnsweredQuestion, 0, len(req.Answers))
		for _, aq := range req.Answers {
			if aq.QuestionID == "" || aq.Answer == nil {
				http.Error(w, "each answer needs question_id and answer", http.StatusBadRequest)
				return
			}
			batch = append(batch, exam.AnsweredQuestion{QuestionID: aq.QuestionID, Answer: *aq.Answer})
		}
		a, err := eng.RecordAnswers(r.Context(), chi.URLParam(r, "attemptID"), viewer(r).ID, batch)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, a)
	}
}

func SubmitAttemptHandler(eng *attempt.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a, err := eng.Submit(r.Context(), chi.URLParam(r, "attemptID"), viewer(r).ID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, a)
	}
}

// GET /attempts/{attemptID}/results returns per-question feedback.
func ResultsHandler(eng *attempt.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rep, err := eng.Results(r.Context(), chi.URLParam(r, "attemptID"), viewer(r))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, rep)
	}
}
