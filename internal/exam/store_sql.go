package exam

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

type SQLStore struct {
	db     *sql.DB
	driver string // "sqlite" or "postgres"
}

func NewSQLStore(db *sql.DB, driver string) *SQLStore {
	return &SQLStore{db: db, driver: driver}
}

const examColumns = `id,title,description,created_by,is_active,time_limit,questions_json,created_at`

func (s *SQLStore) PutExam(ctx context.Context, e Exam) error {
	qj, err := json.Marshal(e.Questions)
	if err != nil {
		return err
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO exams (`+examColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		ON CONFLICT (id) DO UPDATE SET title=EXCLUDED.title, description=EXCLUDED.description,
			is_active=EXCLUDED.is_active, time_limit=EXCLUDED.time_limit, questions_json=EXCLUDED.questions_json`,
		e.ID, e.Title, e.Description, e.CreatedBy, e.IsActive, e.TimeLimit, string(qj), e.CreatedAt.UnixMilli())
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanExam(row rowScanner) (Exam, error) {
	var e Exam
	var qjson string
	var created int64
	if err := row.Scan(&e.ID, &e.Title, &e.Description, &e.CreatedBy, &e.IsActive, &e.TimeLimit, &qjson, &created); err != nil {
		return Exam{}, err
	}
	if err := json.Unmarshal([]byte(qjson), &e.Questions); err != nil {
		return Exam{}, err
	}
	e.CreatedAt = time.UnixMilli(created)
	return e, nil
}

func (s *SQLStore) GetExam(ctx context.Context, id string) (Exam, error) {
	e, err := scanExam(s.db.QueryRowContext(ctx, `SELECT `+examColumns+` FROM exams WHERE id=$1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Exam{}, ErrExamNotFound
	}
	return e, err
}

// DeleteExam relies on ON DELETE CASCADE for attempts.
func (s *SQLStore) DeleteExam(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM exams WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrExamNotFound
	}
	return nil
}

func (s *SQLStore) ListActiveExams(ctx context.Context) ([]Exam, error) {
	return s.queryExams(ctx, `SELECT `+examColumns+` FROM exams WHERE is_active=$1 ORDER BY created_at DESC`, true)
}

func (s *SQLStore) ListExamsByOwner(ctx context.Context, teacherID string) ([]Exam, error) {
	return s.queryExams(ctx, `SELECT `+examColumns+` FROM exams WHERE created_by=$1 ORDER BY created_at DESC`, teacherID)
}

func (s *SQLStore) queryExams(ctx context.Context, q string, args ...any) ([]Exam, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Exam{}
	for rows.Next() {
		e, err := scanExam(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

const attemptColumns = `id,exam_id,student_id,answers_json,started_at,submitted_at,score`

func (s *SQLStore) CreateAttempt(ctx context.Context, examID, studentID string, startedAt time.Time) (Attempt, error) {
	var exist int
	if err := s.db.QueryRowContext(ctx, `SELECT 1 FROM exams WHERE id=$1`, examID).Scan(&exist); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Attempt{}, ErrExamNotFound
		}
		return Attempt{}, err
	}
	a := Attempt{
		ID:        uuid.NewString(),
		ExamID:    examID,
		StudentID: studentID,
		Answers:   []AnsweredQuestion{},
		StartedAt: time.UnixMilli(startedAt.UnixMilli()),
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO attempts (id,exam_id,student_id,answers_json,started_at)
		VALUES ($1,$2,$3,$4,$5)`,
		a.ID, a.ExamID, a.StudentID, "[]", a.StartedAt.UnixMilli())
	if err != nil {
		if isUniqueViolation(err) {
			return Attempt{}, ErrOpenAttemptExists
		}
		return Attempt{}, err
	}
	return a, nil
}

func scanAttempt(row rowScanner) (Attempt, error) {
	var a Attempt
	var ajson string
	var started int64
	var submitted sql.NullInt64
	var score sql.NullFloat64
	if err := row.Scan(&a.ID, &a.ExamID, &a.StudentID, &ajson, &started, &submitted, &score); err != nil {
		return Attempt{}, err
	}
	if err := json.Unmarshal([]byte(ajson), &a.Answers); err != nil {
		return Attempt{}, err
	}
	a.StartedAt = time.UnixMilli(started)
	if submitted.Valid {
		t := time.UnixMilli(submitted.Int64)
		a.SubmittedAt = &t
	}
	if score.Valid {
		v := score.Float64
		a.Score = &v
	}
	return a, nil
}

func (s *SQLStore) GetAttempt(ctx context.Context, id string) (Attempt, error) {
	a, err := scanAttempt(s.db.QueryRowContext(ctx, `SELECT `+attemptColumns+` FROM attempts WHERE id=$1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Attempt{}, ErrAttemptNotFound
	}
	return a, err
}

func (s *SQLStore) FindOpenAttempt(ctx context.Context, examID, studentID string) (Attempt, error) {
	a, err := scanAttempt(s.db.QueryRowContext(ctx, `SELECT `+attemptColumns+` FROM attempts
		WHERE exam_id=$1 AND student_id=$2 AND submitted_at IS NULL`, examID, studentID))
	if errors.Is(err, sql.ErrNoRows) {
		return Attempt{}, ErrAttemptNotFound
	}
	return a, err
}

func (s *SQLStore) ListAttemptsByStudent(ctx context.Context, studentID string) ([]Attempt, error) {
	return s.queryAttempts(ctx, `SELECT `+attemptColumns+` FROM attempts WHERE student_id=$1 ORDER BY started_at DESC`, studentID)
}

func (s *SQLStore) ListAttemptsByExam(ctx context.Context, examID string) ([]Attempt, error) {
	return s.queryAttempts(ctx, `SELECT `+attemptColumns+` FROM attempts WHERE exam_id=$1 ORDER BY started_at DESC`, examID)
}

func (s *SQLStore) ListOpenAttempts(ctx context.Context) ([]Attempt, error) {
	return s.queryAttempts(ctx, `SELECT `+attemptColumns+` FROM attempts WHERE submitted_at IS NULL ORDER BY started_at`)
}

func (s *SQLStore) queryAttempts(ctx context.Context, q string, args ...any) ([]Attempt, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Attempt{}
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *SQLStore) SaveAnswers(ctx context.Context, attemptID string, answers []AnsweredQuestion) error {
	if answers == nil {
		answers = []AnsweredQuestion{}
	}
	buf, err := json.Marshal(answers)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `UPDATE attempts SET answers_json=$1 WHERE id=$2 AND submitted_at IS NULL`,
		string(buf), attemptID)
	if err != nil {
		return err
	}
	return s.explainNoop(ctx, res, attemptID)
}

func (s *SQLStore) MarkSubmitted(ctx context.Context, a Attempt) error {
	if a.SubmittedAt == nil || a.Score == nil {
		return errIncompleteSubmission
	}
	if a.Answers == nil {
		a.Answers = []AnsweredQuestion{}
	}
	buf, err := json.Marshal(a.Answers)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `UPDATE attempts SET answers_json=$1, submitted_at=$2, score=$3
		WHERE id=$4 AND submitted_at IS NULL`,
		string(buf), a.SubmittedAt.UnixMilli(), *a.Score, a.ID)
	if err != nil {
		return err
	}
	return s.explainNoop(ctx, res, a.ID)
}

// explainNoop turns a zero-row guarded update into ErrAttemptNotFound or ErrAlreadySubmitted.
func (s *SQLStore) explainNoop(ctx context.Context, res sql.Result, attemptID string) error {
	n, err := res.RowsAffected()
	if err != nil || n > 0 {
		return err
	}
	if _, err := s.GetAttempt(ctx, attemptID); err != nil {
		return err
	}
	return ErrAlreadySubmitted
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed") // sqlite
}
