package exam

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

type memoryStore struct {
	mu       sync.RWMutex
	exams    map[string]Exam
	attempts map[string]Attempt
	open     map[openKey]string // (exam, student) -> unsubmitted attempt id
}

type openKey struct{ examID, studentID string }

func NewInMemoryStore() Store {
	return &memoryStore{
		exams:    map[string]Exam{},
		attempts: map[string]Attempt{},
		open:     map[openKey]string{},
	}
}

func (m *memoryStore) PutExam(_ context.Context, e Exam) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.exams[e.ID] = e.Clone()
	return nil
}

func (m *memoryStore) GetExam(_ context.Context, id string) (Exam, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.exams[id]
	if !ok {
		return Exam{}, ErrExamNotFound
	}
	return e.Clone(), nil
}

// DeleteExam cascades to the exam's attempts.
func (m *memoryStore) DeleteExam(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.exams[id]; !ok {
		return ErrExamNotFound
	}
	delete(m.exams, id)
	for aid, a := range m.attempts {
		if a.ExamID == id {
			delete(m.attempts, aid)
			delete(m.open, openKey{a.ExamID, a.StudentID})
		}
	}
	return nil
}

func (m *memoryStore) ListActiveExams(_ context.Context) ([]Exam, error) {
	return m.listExams(func(e Exam) bool { return e.IsActive }), nil
}

func (m *memoryStore) ListExamsByOwner(_ context.Context, teacherID string) ([]Exam, error) {
	return m.listExams(func(e Exam) bool { return e.CreatedBy == teacherID }), nil
}

func (m *memoryStore) listExams(keep func(Exam) bool) []Exam {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []Exam{}
	for _, e := range m.exams {
		if keep(e) {
			out = append(out, e.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (m *memoryStore) CreateAttempt(_ context.Context, examID, studentID string, startedAt time.Time) (Attempt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.exams[examID]; !ok {
		return Attempt{}, ErrExamNotFound
	}
	k := openKey{examID, studentID}
	if _, ok := m.open[k]; ok {
		return Attempt{}, ErrOpenAttemptExists
	}
	a := Attempt{
		ID:        uuid.NewString(),
		ExamID:    examID,
		StudentID: studentID,
		Answers:   []AnsweredQuestion{},
		StartedAt: startedAt,
	}
	m.attempts[a.ID] = a
	m.open[k] = a.ID
	return a.Clone(), nil
}

func (m *memoryStore) GetAttempt(_ context.Context, id string) (Attempt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.attempts[id]
	if !ok {
		return Attempt{}, ErrAttemptNotFound
	}
	return a.Clone(), nil
}

func (m *memoryStore) FindOpenAttempt(_ context.Context, examID, studentID string) (Attempt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.open[openKey{examID, studentID}]
	if !ok {
		return Attempt{}, ErrAttemptNotFound
	}
	return m.attempts[id].Clone(), nil
}

func (m *memoryStore) ListAttemptsByStudent(_ context.Context, studentID string) ([]Attempt, error) {
	return m.listAttempts(func(a Attempt) bool { return a.StudentID == studentID }), nil
}

func (m *memoryStore) ListAttemptsByExam(_ context.Context, examID string) ([]Attempt, error) {
	return m.listAttempts(func(a Attempt) bool { return a.ExamID == examID }), nil
}

func (m *memoryStore) ListOpenAttempts(_ context.Context) ([]Attempt, error) {
	return m.listAttempts(func(a Attempt) bool { return !a.Submitted() }), nil
}

func (m *memoryStore) listAttempts(keep func(Attempt) bool) []Attempt {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []Attempt{}
	for _, a := range m.attempts {
		if keep(a) {
			out = append(out, a.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	return out
}

func (m *memoryStore) SaveAnswers(_ context.Context, attemptID string, answers []AnsweredQuestion) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.attempts[attemptID]
	if !ok {
		return ErrAttemptNotFound
	}
	if a.Submitted() {
		return ErrAlreadySubmitted
	}
	a.Answers = Attempt{Answers: answers}.Clone().Answers
	m.attempts[attemptID] = a
	return nil
}

func (m *memoryStore) MarkSubmitted(_ context.Context, sub Attempt) error {
	if sub.SubmittedAt == nil || sub.Score == nil {
		return errIncompleteSubmission
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.attempts[sub.ID]
	if !ok {
		return ErrAttemptNotFound
	}
	if a.Submitted() {
		return ErrAlreadySubmitted
	}
	sub = sub.Clone()
	a.Answers = sub.Answers
	a.SubmittedAt = sub.SubmittedAt
	a.Score = sub.Score
	m.attempts[a.ID] = a
	delete(m.open, openKey{a.ExamID, a.StudentID})
	return nil
}
