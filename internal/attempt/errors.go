package attempt

import (
	"errors"
	"fmt"

	"github.com/mind-engage/examhub/internal/exam"
)

var (
	ErrNotAuthenticated = errors.New("no authenticated student")
	ErrExamUnavailable  = errors.New("exam is missing or not active")
	ErrAttemptNotFound  = exam.ErrAttemptNotFound
	ErrAlreadySubmitted = exam.ErrAlreadySubmitted
	ErrPersistence      = errors.New("persistence failure")

	ErrUnknownQuestion = errors.New("question does not belong to this exam")
	ErrNotOwner        = errors.New("attempt belongs to another user")
	ErrNotSubmitted    = errors.New("attempt has not been submitted yet")

	errNotDue = errors.New("attempt still has time left")
)

func persistence(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrPersistence, op, err)
}
