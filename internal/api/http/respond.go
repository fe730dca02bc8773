package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/mind-engage/examhub/internal/attempt"
	authmw "github.com/mind-engage/examhub/internal/auth/middleware"
	"github.com/mind-engage/examhub/internal/exam"
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, attempt.ErrNotAuthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, attempt.ErrExamUnavailable),
		errors.Is(err, attempt.ErrAttemptNotFound),
		errors.Is(err, exam.ErrExamNotFound):
		return http.StatusNotFound
	case errors.Is(err, attempt.ErrAlreadySubmitted),
		errors.Is(err, attempt.ErrNotSubmitted):
		return http.StatusConflict
	case errors.Is(err, attempt.ErrUnknownQuestion),
		errors.Is(err, exam.ErrInvalidExam):
		return http.StatusBadRequest
	case errors.Is(err, attempt.ErrNotOwner),
		errors.Is(err, exam.ErrNotExamOwner):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	code := statusFor(err)
	if code == http.StatusInternalServerError {
		log.Printf("[API] %v", err)
		http.Error(w, "internal error", code)
		return
	}
	http.Error(w, err.Error(), code)
}

func viewer(r *http.Request) attempt.Viewer {
	sub, role := authmw.Identity(r.Context())
	return attempt.Viewer{ID: sub, Role: role}
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if v, err := strconv.Atoi(s); err == nil && v >= 0 {
		return v
	}
	return def
}
