package exam

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	syncx "github.com/mind-engage/examhub/internal/sync"
)

var (
	ErrInvalidExam  = errors.New("invalid exam")
	ErrNotExamOwner = errors.New("exam belongs to another teacher")
)

// ExamInput is the teacher-supplied body of a create or update.
type ExamInput struct {
	Title       string     `json:"title" validate:"required,max=200"`
	Description string     `json:"description" validate:"max=4000"`
	TimeLimit   int        `json:"time_limit" validate:"gte=0,lte=1440"`
	IsActive    *bool      `json:"is_active"`
	Questions   []Question `json:"questions" validate:"required,min=1"`
}

// Catalog is the teacher-facing exam authoring service.
type Catalog struct {
	store    Store
	validate *validator.Validate
	now      func() time.Time

	events interface {
		Append(ctx context.Context, e syncx.Event) error
	}
	siteID string
	onSave []func(context.Context, Exam)
}

func NewCatalog(store Store) *Catalog {
	return &Catalog{store: store, validate: validator.New(), now: time.Now}
}

// WithEvents records exam.saved and exam.deleted into sink.
func (c *Catalog) WithEvents(sink interface {
	Append(ctx context.Context, e syncx.Event) error
}, siteID string) *Catalog {
	c.events = sink
	c.siteID = siteID
	return c
}

// OnSave registers fn to run after an exam is created or changed. Register
// before serving traffic.
func (c *Catalog) OnSave(fn func(context.Context, Exam)) { c.onSave = append(c.onSave, fn) }

func (c *Catalog) check(in ExamInput) error {
	if err := c.validate.Struct(in); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidExam, err)
	}
	seen := make(map[string]bool, len(in.Questions))
	for _, q := range in.Questions {
		if seen[q.ID] {
			return fmt.Errorf("%w: duplicate question id %q", ErrInvalidExam, q.ID)
		}
		seen[q.ID] = true
		if q.Body == nil {
			return fmt.Errorf("%w: question %q has no type", ErrInvalidExam, q.ID)
		}
		if mc, ok := q.Body.(MultipleChoice); ok {
			if err := checkChoices(mc); err != nil {
				return fmt.Errorf("%w: question %q: %v", ErrInvalidExam, q.ID, err)
			}
		}
	}
	return nil
}

// checkChoices rejects a multiple choice question nobody could answer correctly.
func checkChoices(mc MultipleChoice) error {
	if len(mc.Options) == 0 {
		return errors.New("no options")
	}
	offered := make(map[string]bool, len(mc.Options))
	for _, o := range mc.Options {
		offered[o] = true
	}
	keys := []string{mc.Correct.Text}
	if mc.Correct.List {
		if len(mc.Correct.Values) == 0 {
			return errors.New("no correct option")
		}
		keys = mc.Correct.Values
	}
	for _, k := range keys {
		if !offered[k] {
			return fmt.Errorf("correct answer %q is not an option", k)
		}
	}
	return nil
}

func (c *Catalog) Create(ctx context.Context, teacherID string, in ExamInput) (Exam, error) {
	if err := c.check(in); err != nil {
		return Exam{}, err
	}
	e := Exam{
		ID:          uuid.NewString(),
		Title:       strings.TrimSpace(in.Title),
		Description: in.Description,
		CreatedBy:   teacherID,
		IsActive:    in.IsActive == nil || *in.IsActive,
		TimeLimit:   in.TimeLimit,
		Questions:   in.Questions,
		CreatedAt:   c.now().UTC(),
	}
	if err := c.store.PutExam(ctx, e); err != nil {
		return Exam{}, err
	}
	c.saved(ctx, e)
	return e.Clone(), nil
}

// Update replaces the content of an exam owned by teacherID. The active flag
// is kept unless the input sets it.
func (c *Catalog) Update(ctx context.Context, teacherID, examID string, in ExamInput) (Exam, error) {
	if err := c.check(in); err != nil {
		return Exam{}, err
	}
	e, err := c.owned(ctx, teacherID, examID)
	if err != nil {
		return Exam{}, err
	}
	e.Title = strings.TrimSpace(in.Title)
	e.Description = in.Description
	e.TimeLimit = in.TimeLimit
	e.Questions = in.Questions
	if in.IsActive != nil {
		e.IsActive = *in.IsActive
	}
	if err := c.store.PutExam(ctx, e); err != nil {
		return Exam{}, err
	}
	c.saved(ctx, e)
	return e.Clone(), nil
}

// Toggle flips the active flag and returns the updated exam.
func (c *Catalog) Toggle(ctx context.Context, teacherID, examID string) (Exam, error) {
	e, err := c.owned(ctx, teacherID, examID)
	if err != nil {
		return Exam{}, err
	}
	e.IsActive = !e.IsActive
	if err := c.store.PutExam(ctx, e); err != nil {
		return Exam{}, err
	}
	c.saved(ctx, e)
	return e.Clone(), nil
}

// Delete removes an exam and its attempts.
func (c *Catalog) Delete(ctx context.Context, teacherID, examID string) error {
	if _, err := c.owned(ctx, teacherID, examID); err != nil {
		return err
	}
	if err := c.store.DeleteExam(ctx, examID); err != nil {
		return err
	}
	c.emit(ctx, syncx.TypeExamDeleted, examID, map[string]any{"deleted_by": teacherID})
	return nil
}

func (c *Catalog) Get(ctx context.Context, examID string) (Exam, error) {
	return c.store.GetExam(ctx, examID)
}

func (c *Catalog) ListActive(ctx context.Context) ([]Exam, error) {
	return c.store.ListActiveExams(ctx)
}

func (c *Catalog) ListOwned(ctx context.Context, teacherID string) ([]Exam, error) {
	return c.store.ListExamsByOwner(ctx, teacherID)
}

func (c *Catalog) owned(ctx context.Context, teacherID, examID string) (Exam, error) {
	e, err := c.store.GetExam(ctx, examID)
	if err != nil {
		return Exam{}, err
	}
	if e.CreatedBy != teacherID {
		return Exam{}, ErrNotExamOwner
	}
	return e, nil
}

func (c *Catalog) saved(ctx context.Context, e Exam) {
	for _, fn := range c.onSave {
		fn(ctx, e.Clone())
	}
	c.emit(ctx, syncx.TypeExamSaved, e.ID, map[string]any{
		"created_by": e.CreatedBy, "is_active": e.IsActive,
		"time_limit": e.TimeLimit, "questions": len(e.Questions),
	})
}

func (c *Catalog) emit(ctx context.Context, typ, key string, data any) {
	if c.events == nil {
		return
	}
	ev, err := syncx.NewEvent(c.siteID, typ, key, data)
	if err == nil {
		err = c.events.Append(ctx, ev)
	}
	if err != nil {
		log.Printf("[Catalog] event %s %s: %v", typ, key, err)
	}
}
