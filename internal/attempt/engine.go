// Package attempt runs the lifecycle of a student's exam attempt: start or
// resume, record answers, and score exactly once on submit.
package attempt

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/mind-engage/examhub/internal/exam"
	"github.com/mind-engage/examhub/internal/grading"
	"github.com/mind-engage/examhub/internal/metrics"
	"github.com/mind-engage/examhub/internal/rbac"
	syncx "github.com/mind-engage/examhub/internal/sync"
)

type Trigger string

const (
	TriggerManual Trigger = "manual"
	TriggerTimer  Trigger = "timer"
	TriggerSweep  Trigger = "sweep"
)

const (
	RoleStudent = string(rbac.RoleStudent)
	RoleTeacher = string(rbac.RoleTeacher)
)

// Viewer is the caller reading an attempt.
type Viewer struct {
	ID   string
	Role string
}

// EventSink receives lifecycle events. *syncx.EventRepo and *syncx.MemoryLog
// satisfy it.
type EventSink interface {
	Append(ctx context.Context, e syncx.Event) error
}

type Option func(*Engine)

func WithLocker(l Locker) Option { return func(e *Engine) { e.locks = l } }

func WithClock(now func() time.Time) Option { return func(e *Engine) { e.now = now } }

func WithMetrics(m *metrics.Metrics) Option { return func(e *Engine) { e.metrics = m } }

func WithEvents(sink EventSink, siteID string) Option {
	return func(e *Engine) {
		e.events = sink
		e.siteID = siteID
	}
}

// WithSubmitTimeout bounds the background submit issued when a timer fires.
func WithSubmitTimeout(d time.Duration) Option { return func(e *Engine) { e.submitTimeout = d } }

type Engine struct {
	store   exam.Store
	locks   Locker
	events  EventSink
	metrics *metrics.Metrics
	now     func() time.Time
	siteID  string
	timers  *Watcher

	submitTimeout time.Duration
	onSubmit      []func(exam.Attempt, Trigger)
}

func NewEngine(store exam.Store, opts ...Option) *Engine {
	e := &Engine{
		store:         store,
		locks:         NewLocalLocker(),
		now:           time.Now,
		submitTimeout: 10 * time.Second,
	}
	for _, o := range opts {
		o(e)
	}
	e.timers = NewWatcher(e.expire, e.now)
	return e
}

// OnSubmit registers fn to run after an attempt is scored. Register before
// serving traffic.
func (e *Engine) OnSubmit(fn func(exam.Attempt, Trigger)) { e.onSubmit = append(e.onSubmit, fn) }

func (e *Engine) Now() time.Time { return e.now() }

// stamp is the clock at the precision the SQL store keeps, so a returned
// attempt reads back unchanged.
func (e *Engine) stamp() time.Time { return e.now().Truncate(time.Millisecond) }

// Close cancels pending timers.
func (e *Engine) Close() { e.timers.Stop() }

// Start returns the open attempt of studentID for examID, creating it when
// none exists. Calling it again never creates a second open attempt.
func (e *Engine) Start(ctx context.Context, examID, studentID string) (exam.Attempt, error) {
	if strings.TrimSpace(studentID) == "" {
		return exam.Attempt{}, ErrNotAuthenticated
	}
	ex, err := e.activeExam(ctx, examID)
	if err != nil {
		return exam.Attempt{}, err
	}

	a, err := e.store.FindOpenAttempt(ctx, examID, studentID)
	switch {
	case err == nil:
		e.metrics.AttemptResumed()
		e.arm(a, ex)
		return a, nil
	case !errors.Is(err, exam.ErrAttemptNotFound):
		return exam.Attempt{}, persistence("find open attempt", err)
	}

	a, err = e.store.CreateAttempt(ctx, examID, studentID, e.stamp())
	switch {
	case errors.Is(err, exam.ErrOpenAttemptExists):
		// A concurrent Start won; return its attempt.
		a, err = e.store.FindOpenAttempt(ctx, examID, studentID)
		if err != nil {
			return exam.Attempt{}, persistence("find open attempt", err)
		}
		e.metrics.AttemptResumed()
	case errors.Is(err, exam.ErrExamNotFound):
		return exam.Attempt{}, ErrExamUnavailable
	case err != nil:
		return exam.Attempt{}, persistence("create attempt", err)
	default:
		e.metrics.AttemptStarted()
		e.emit(ctx, syncx.TypeAttemptStarted, a.ID, map[string]any{
			"exam_id": a.ExamID, "student_id": a.StudentID, "started_at": a.StartedAt.UnixMilli(),
		})
		log.Printf("[AttemptEngine] started attempt=%s exam=%s student=%s", a.ID, examID, studentID)
	}
	e.arm(a, ex)
	return a, nil
}

// Resume loads an in-progress attempt for its student together with its
// timer. The timer keeps counting from the stored started_at.
func (e *Engine) Resume(ctx context.Context, attemptID, studentID string) (exam.Attempt, Timer, error) {
	if strings.TrimSpace(studentID) == "" {
		return exam.Attempt{}, Timer{}, ErrNotAuthenticated
	}
	a, err := e.load(ctx, attemptID)
	if err != nil {
		return exam.Attempt{}, Timer{}, err
	}
	if a.StudentID != studentID {
		return exam.Attempt{}, Timer{}, ErrNotOwner
	}
	if a.Submitted() {
		return a, Timer{}, ErrAlreadySubmitted
	}
	ex, err := e.exam(ctx, a.ExamID)
	if err != nil {
		return exam.Attempt{}, Timer{}, err
	}
	e.arm(a, ex)
	return a, TimerFor(ex, a), nil
}

// Get returns an attempt to its student or to the teacher who owns the exam.
func (e *Engine) Get(ctx context.Context, attemptID string, v Viewer) (exam.Attempt, error) {
	if strings.TrimSpace(v.ID) == "" {
		return exam.Attempt{}, ErrNotAuthenticated
	}
	a, err := e.load(ctx, attemptID)
	if err != nil {
		return exam.Attempt{}, err
	}
	if a.StudentID == v.ID {
		return a, nil
	}
	if v.Role == RoleTeacher {
		ex, err := e.exam(ctx, a.ExamID)
		if err != nil {
			return exam.Attempt{}, err
		}
		if ex.CreatedBy == v.ID {
			return a, nil
		}
	}
	return exam.Attempt{}, ErrNotOwner
}

// TimerOf reports the timer of an attempt the viewer may read.
func (e *Engine) TimerOf(ctx context.Context, attemptID string, v Viewer) (exam.Attempt, Timer, error) {
	a, err := e.Get(ctx, attemptID, v)
	if err != nil {
		return exam.Attempt{}, Timer{}, err
	}
	ex, err := e.exam(ctx, a.ExamID)
	if err != nil {
		return exam.Attempt{}, Timer{}, err
	}
	return a, TimerFor(ex, a), nil
}

func (e *Engine) ListForStudent(ctx context.Context, studentID string) ([]exam.Attempt, error) {
	if strings.TrimSpace(studentID) == "" {
		return nil, ErrNotAuthenticated
	}
	out, err := e.store.ListAttemptsByStudent(ctx, studentID)
	if err != nil {
		return nil, persistence("list attempts", err)
	}
	return out, nil
}

// ListForExam lists every attempt of an exam for the teacher who owns it.
func (e *Engine) ListForExam(ctx context.Context, examID, teacherID string) ([]exam.Attempt, error) {
	if strings.TrimSpace(teacherID) == "" {
		return nil, ErrNotAuthenticated
	}
	ex, err := e.exam(ctx, examID)
	if err != nil {
		return nil, err
	}
	if ex.CreatedBy != teacherID {
		return nil, ErrNotOwner
	}
	out, err := e.store.ListAttemptsByExam(ctx, examID)
	if err != nil {
		return nil, persistence("list attempts", err)
	}
	return out, nil
}

// RecordAnswer stores one answer, replacing any earlier answer to the same
// question.
func (e *Engine) RecordAnswer(ctx context.Context, attemptID, studentID, questionID string, ans exam.Answer) (exam.Attempt, error) {
	return e.RecordAnswers(ctx, attemptID, studentID, []exam.AnsweredQuestion{{QuestionID: questionID, Answer: ans}})
}

// RecordAnswers applies a batch of answers in order. Nothing is stored when
// any question is unknown.
func (e *Engine) RecordAnswers(ctx context.Context, attemptID, studentID string, answers []exam.AnsweredQuestion) (exam.Attempt, error) {
	if strings.TrimSpace(studentID) == "" {
		return exam.Attempt{}, ErrNotAuthenticated
	}
	unlock, err := e.locks.Lock(ctx, attemptID)
	if err != nil {
		return exam.Attempt{}, persistence("lock attempt", err)
	}
	defer unlock()

	a, err := e.load(ctx, attemptID)
	if err != nil {
		return exam.Attempt{}, err
	}
	if a.StudentID != studentID {
		return exam.Attempt{}, ErrNotOwner
	}
	if a.Submitted() {
		return a, ErrAlreadySubmitted
	}
	ex, err := e.exam(ctx, a.ExamID)
	if err != nil {
		return exam.Attempt{}, err
	}
	for _, aq := range answers {
		if _, ok := ex.Question(aq.QuestionID); !ok {
			return exam.Attempt{}, fmt.Errorf("%w: %q", ErrUnknownQuestion, aq.QuestionID)
		}
	}
	for _, aq := range answers {
		a.SetAnswer(aq.QuestionID, aq.Answer)
	}
	err = e.store.SaveAnswers(ctx, a.ID, a.Answers)
	switch {
	case errors.Is(err, exam.ErrAlreadySubmitted):
		return exam.Attempt{}, ErrAlreadySubmitted
	case err != nil:
		return exam.Attempt{}, persistence("save answers", err)
	}
	e.metrics.AnswersRecorded(len(answers))
	return a, nil
}

// Submit scores and closes an attempt on behalf of its student. A second
// submit returns the stored attempt with ErrAlreadySubmitted.
func (e *Engine) Submit(ctx context.Context, attemptID, studentID string) (exam.Attempt, error) {
	if strings.TrimSpace(studentID) == "" {
		return exam.Attempt{}, ErrNotAuthenticated
	}
	return e.submit(ctx, attemptID, studentID, TriggerManual)
}

// AutoSubmit closes an attempt whose time ran out. It reports false without
// error when the attempt was already submitted, or when the exam's current
// time limit leaves time on the clock; the timer is then re-armed.
func (e *Engine) AutoSubmit(ctx context.Context, attemptID string, trig Trigger) (exam.Attempt, bool, error) {
	a, err := e.submit(ctx, attemptID, "", trig)
	if errors.Is(err, ErrAlreadySubmitted) || errors.Is(err, errNotDue) {
		return a, false, nil
	}
	if err != nil {
		return exam.Attempt{}, false, err
	}
	return a, true, nil
}

func (e *Engine) submit(ctx context.Context, attemptID, studentID string, trig Trigger) (exam.Attempt, error) {
	unlock, err := e.locks.Lock(ctx, attemptID)
	if err != nil {
		return exam.Attempt{}, persistence("lock attempt", err)
	}
	defer unlock()

	a, err := e.load(ctx, attemptID)
	if err != nil {
		return exam.Attempt{}, err
	}
	if studentID != "" && a.StudentID != studentID {
		return exam.Attempt{}, ErrNotOwner
	}
	if a.Submitted() {
		return a, ErrAlreadySubmitted
	}
	ex, err := e.exam(ctx, a.ExamID)
	if err != nil {
		return exam.Attempt{}, err
	}

	now := e.stamp()
	if trig != TriggerManual {
		// The limit may have changed since the timer was armed.
		if t := TimerFor(ex, a); !t.Expired(now) {
			e.timers.Disarm(a.ID)
			e.arm(a, ex)
			if t.Active {
				log.Printf("[AttemptEngine] expiry of %s deferred, %s left", a.ID, t.Remaining(now))
			}
			return a, errNotDue
		}
	}

	score := grading.ComputeScore(ex, a)
	a.SubmittedAt = &now
	a.Score = &score

	err = e.store.MarkSubmitted(ctx, a)
	switch {
	case errors.Is(err, exam.ErrAlreadySubmitted):
		stored, lerr := e.load(ctx, attemptID)
		if lerr != nil {
			return exam.Attempt{}, lerr
		}
		return stored, ErrAlreadySubmitted
	case err != nil:
		return exam.Attempt{}, persistence("mark submitted", err)
	}

	e.timers.Disarm(a.ID)
	e.metrics.TimersArmed(e.timers.Len())
	e.metrics.AttemptSubmitted(string(trig), score)
	e.emit(ctx, syncx.TypeAttemptSubmitted, a.ID, map[string]any{
		"exam_id": a.ExamID, "student_id": a.StudentID, "score": score,
		"trigger": trig, "submitted_at": now.UnixMilli(),
	})
	log.Printf("[AttemptEngine] submitted attempt=%s trigger=%s score=%.2f", a.ID, trig, score)
	for _, fn := range e.onSubmit {
		fn(a.Clone(), trig)
	}
	return a, nil
}

// Results returns per-question feedback for a submitted attempt.
func (e *Engine) Results(ctx context.Context, attemptID string, v Viewer) (grading.Report, error) {
	a, err := e.Get(ctx, attemptID, v)
	if err != nil {
		return grading.Report{}, err
	}
	if !a.Submitted() {
		return grading.Report{}, ErrNotSubmitted
	}
	ex, err := e.exam(ctx, a.ExamID)
	if err != nil {
		return grading.Report{}, err
	}
	r := grading.Review(ex, a)
	if a.Score != nil {
		r.Score = *a.Score
	}
	return r, nil
}

// Reconcile submits open attempts whose deadline passed and arms timers for
// the rest. It recovers expiries lost across a restart.
func (e *Engine) Reconcile(ctx context.Context) (submitted, armed int, err error) {
	open, err := e.store.ListOpenAttempts(ctx)
	if err != nil {
		return 0, 0, persistence("list open attempts", err)
	}
	exams := map[string]exam.Exam{}
	now := e.now()
	for _, a := range open {
		ex, ok := exams[a.ExamID]
		if !ok {
			ex, err = e.store.GetExam(ctx, a.ExamID)
			if err != nil {
				log.Printf("[AttemptSweeper] exam %s for attempt %s: %v", a.ExamID, a.ID, err)
				continue
			}
			exams[a.ExamID] = ex
		}
		t := TimerFor(ex, a)
		if !t.Active {
			continue
		}
		if t.Expired(now) {
			if _, done, serr := e.AutoSubmit(ctx, a.ID, TriggerSweep); serr != nil {
				log.Printf("[AttemptSweeper] submit %s: %v", a.ID, serr)
			} else if done {
				submitted++
			}
			continue
		}
		if e.timers.Arm(a, ex) {
			armed++
		}
	}
	e.metrics.TimersArmed(e.timers.Len())
	return submitted, armed, nil
}

// ExamChanged reschedules the timers of open attempts after an exam's time
// limit changed. Register it with Catalog.OnSave.
func (e *Engine) ExamChanged(ctx context.Context, ex exam.Exam) {
	list, err := e.store.ListAttemptsByExam(ctx, ex.ID)
	if err != nil {
		log.Printf("[AttemptEngine] rearm exam %s: %v", ex.ID, err)
		return
	}
	for _, a := range list {
		if a.Submitted() {
			continue
		}
		if d, ok := e.timers.Deadline(a.ID); ok && d.Equal(TimerFor(ex, a).Deadline) {
			continue
		}
		e.timers.Disarm(a.ID)
		e.timers.Arm(a, ex)
	}
	e.metrics.TimersArmed(e.timers.Len())
}

func (e *Engine) expire(attemptID string) {
	ctx, cancel := context.WithTimeout(context.Background(), e.submitTimeout)
	defer cancel()
	if _, _, err := e.AutoSubmit(ctx, attemptID, TriggerTimer); err != nil {
		log.Printf("[AttemptEngine] auto-submit %s: %v", attemptID, err)
	}
}

func (e *Engine) arm(a exam.Attempt, ex exam.Exam) {
	if e.timers.Arm(a, ex) {
		e.metrics.TimersArmed(e.timers.Len())
	}
}

func (e *Engine) load(ctx context.Context, attemptID string) (exam.Attempt, error) {
	a, err := e.store.GetAttempt(ctx, attemptID)
	switch {
	case errors.Is(err, exam.ErrAttemptNotFound):
		return exam.Attempt{}, ErrAttemptNotFound
	case err != nil:
		return exam.Attempt{}, persistence("get attempt", err)
	}
	return a, nil
}

// exam loads an exam regardless of its active flag.
func (e *Engine) exam(ctx context.Context, examID string) (exam.Exam, error) {
	ex, err := e.store.GetExam(ctx, examID)
	switch {
	case errors.Is(err, exam.ErrExamNotFound):
		return exam.Exam{}, ErrExamUnavailable
	case err != nil:
		return exam.Exam{}, persistence("get exam", err)
	}
	return ex, nil
}

func (e *Engine) activeExam(ctx context.Context, examID string) (exam.Exam, error) {
	ex, err := e.exam(ctx, examID)
	if err != nil {
		return exam.Exam{}, err
	}
	if !ex.IsActive {
		return exam.Exam{}, ErrExamUnavailable
	}
	return ex, nil
}

func (e *Engine) emit(ctx context.Context, typ, key string, data any) {
	if e.events == nil {
		return
	}
	ev, err := syncx.NewEvent(e.siteID, typ, key, data)
	if err == nil {
		err = e.events.Append(ctx, ev)
	}
	if err != nil {
		log.Printf("[AttemptEngine] event %s %s: %v", typ, key, err)
	}
}
