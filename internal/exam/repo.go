package exam

import (
	"context"
	"errors"
	"time"
)

var (
	ErrExamNotFound      = errors.New("exam not found")
	ErrAttemptNotFound   = errors.New("attempt not found")
	ErrAlreadySubmitted  = errors.New("attempt already submitted")
	ErrOpenAttemptExists = errors.New("an unsubmitted attempt already exists for this exam and student")

	errIncompleteSubmission = errors.New("submitted attempt needs submitted_at and score")
)

// Store is the persistence collaborator. Exams are returned with answer keys;
// callers decide what to expose.
type Store interface {
	PutExam(ctx context.Context, e Exam) error
	GetExam(ctx context.Context, id string) (Exam, error)
	DeleteExam(ctx context.Context, id string) error
	ListActiveExams(ctx context.Context) ([]Exam, error)
	ListExamsByOwner(ctx context.Context, teacherID string) ([]Exam, error)

	// CreateAttempt fails with ErrOpenAttemptExists when (examID, studentID)
	// already has an unsubmitted attempt.
	CreateAttempt(ctx context.Context, examID, studentID string, startedAt time.Time) (Attempt, error)
	GetAttempt(ctx context.Context, id string) (Attempt, error)
	FindOpenAttempt(ctx context.Context, examID, studentID string) (Attempt, error)
	ListAttemptsByStudent(ctx context.Context, studentID string) ([]Attempt, error)
	ListAttemptsByExam(ctx context.Context, examID string) ([]Attempt, error)
	ListOpenAttempts(ctx context.Context) ([]Attempt, error)

	// SaveAnswers replaces the stored answers of an unsubmitted attempt.
	SaveAnswers(ctx context.Context, attemptID string, answers []AnsweredQuestion) error
	// MarkSubmitted stores answers, submitted_at and score together. A second
	// call for the same attempt fails with ErrAlreadySubmitted.
	MarkSubmitted(ctx context.Context, a Attempt) error
}
