// internal/api/http/exams.go
package http

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mind-engage/examhub/internal/attempt"
	"github.com/mind-engage/examhub/internal/exam"
)

// GET /exams: teachers get their own exams with answer keys, everyone else
// the active exams without them.
func ListExamsHandler(cat *exam.Catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v := viewer(r)
		if v.Role == attempt.RoleTeacher {
			list, err := cat.ListOwned(r.Context(), v.ID)
			if err != nil {
				writeError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, list)
			return
		}
		list, err := cat.ListActive(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		out := make([]exam.StudentExam, 0, len(list))
		for _, e := range list {
			out = append(out, e.StudentView())
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func CreateExamHandler(cat *exam.Catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in exam.ExamInput
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			http.Error(w, "bad json: "+err.Error(), http.StatusBadRequest)
			return
		}
		e, err := cat.Create(r.Context(), viewer(r).ID, in)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, e)
	}
}

// GET /exams/{examID}: the owner sees the full exam; other callers see the
// student view of an active exam.
func GetExamHandler(cat *exam.Catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		e, err := cat.Get(r.Context(), chi.URLParam(r, "examID"))
		if err != nil {
			writeError(w, err)
			return
		}
		v := viewer(r)
		if v.Role == attempt.RoleTeacher && e.CreatedBy == v.ID {
			writeJSON(w, http.StatusOK, e)
			return
		}
		if !e.IsActive {
			http.Error(w, exam.ErrExamNotFound.Error(), http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, e.StudentView())
	}
}

func UpdateExamHandler(cat *exam.Catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in exam.ExamInput
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			http.Error(w, "bad json: "+err.Error(), http.StatusBadRequest)
			return
		}
		e, err := cat.Update(r.Context(), viewer(r).ID, chi.URLParam(r, "examID"), in)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, e)
	}
}

func ToggleExamHandler(cat *exam.Catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		e, err := cat.Toggle(r.Context(), viewer(r).ID, chi.URLParam(r, "examID"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, e)
	}
}

func DeleteExamHandler(cat *exam.Catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := cat.Delete(r.Context(), viewer(r).ID, chi.URLParam(r, "examID")); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
