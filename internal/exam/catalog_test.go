package exam_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/mind-engage/examhub/internal/exam"
	syncx "github.com/mind-engage/examhub/internal/sync"
)

func decodeInput(t *testing.T, raw string) exam.ExamInput {
	t.Helper()
	var in exam.ExamInput
	if err := json.Unmarshal([]byte(raw), &in); err != nil {
		t.Fatalf("decode input: %v", err)
	}
	return in
}

const validInput = `{
	"title": "  Geography  ",
	"time_limit": 15,
	"questions": [
		{"id":"q1","type":"multiple_choice","question":"Pick","options":["A","B"],"correct_answer":"A","points":1},
		{"id":"q2","type":"short_answer","question":"Capital?","correct_answer":"Paris","points":1}
	]
}`

func TestCatalog_CreateAndOwnership(t *testing.T) {
	ctx := context.Background()
	c := exam.NewCatalog(exam.NewInMemoryStore())

	e, err := c.Create(ctx, "t1", decodeInput(t, validInput))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if e.ID == "" || e.Title != "Geography" || !e.IsActive || e.CreatedBy != "t1" {
		t.Fatalf("created = %+v", e)
	}

	if _, err := c.Toggle(ctx, "t2", e.ID); !errors.Is(err, exam.ErrNotExamOwner) {
		t.Fatalf("foreign toggle err = %v", err)
	}
	off, err := c.Toggle(ctx, "t1", e.ID)
	if err != nil || off.IsActive {
		t.Fatalf("toggle = %+v, %v", off, err)
	}
	active, _ := c.ListActive(ctx)
	if len(active) != 0 {
		t.Fatalf("inactive exam listed: %d", len(active))
	}

	in := decodeInput(t, validInput)
	in.Title = "Geography II"
	up, err := c.Update(ctx, "t1", e.ID, in)
	if err != nil || up.Title != "Geography II" || up.IsActive {
		t.Fatalf("update = %+v, %v", up, err)
	}

	if err := c.Delete(ctx, "t2", e.ID); !errors.Is(err, exam.ErrNotExamOwner) {
		t.Fatalf("foreign delete err = %v", err)
	}
	if err := c.Delete(ctx, "t1", e.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := c.Get(ctx, e.ID); !errors.Is(err, exam.ErrExamNotFound) {
		t.Fatalf("get after delete err = %v", err)
	}
}

func TestCatalog_RejectsInvalidInput(t *testing.T) {
	ctx := context.Background()
	c := exam.NewCatalog(exam.NewInMemoryStore())
	cases := map[string]string{
		"no title":     `{"questions":[{"id":"q","type":"long_answer","points":1}]}`,
		"no questions": `{"title":"x","questions":[]}`,
		"negative limit": `{"title":"x","time_limit":-5,
			"questions":[{"id":"q","type":"long_answer","points":1}]}`,
		"duplicate ids": `{"title":"x","questions":[
			{"id":"q","type":"long_answer","points":1},
			{"id":"q","type":"long_answer","points":1}]}`,
		"choice without options": `{"title":"x","questions":[
			{"id":"q","type":"multiple_choice","correct_answer":"A","points":1}]}`,
		"key not an option": `{"title":"x","questions":[
			{"id":"q","type":"multiple_choice","options":["A","B"],"correct_answer":"C","points":1}]}`,
		"multi key not an option": `{"title":"x","questions":[
			{"id":"q","type":"multiple_choice","options":["A","B"],"correct_answer":["A","C"],"points":1}]}`,
		"empty multi key": `{"title":"x","questions":[
			{"id":"q","type":"multiple_choice","options":["A","B"],"correct_answer":[],"points":1}]}`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := c.Create(ctx, "t1", decodeInput(t, raw)); !errors.Is(err, exam.ErrInvalidExam) {
				t.Fatalf("err = %v, want ErrInvalidExam", err)
			}
		})
	}
}

func TestCatalog_EmitsEvents(t *testing.T) {
	ctx := context.Background()
	events := &syncx.MemoryLog{}
	c := exam.NewCatalog(exam.NewInMemoryStore()).WithEvents(events, "site")

	e, err := c.Create(ctx, "t1", decodeInput(t, validInput))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := c.Toggle(ctx, "t1", e.ID); err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if err := c.Delete(ctx, "t2", e.ID); !errors.Is(err, exam.ErrNotExamOwner) {
		t.Fatalf("foreign delete err = %v", err)
	}
	if err := c.Delete(ctx, "t1", e.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	got, _ := events.Since(ctx, 0, 0)
	want := []string{syncx.TypeExamSaved, syncx.TypeExamSaved, syncx.TypeExamDeleted}
	if len(got) != len(want) {
		t.Fatalf("events = %+v", got)
	}
	for i, ev := range got {
		if ev.Type != want[i] || ev.Key != e.ID || ev.SiteID != "site" {
			t.Fatalf("event %d = %+v", i, ev)
		}
	}
}

func TestCatalog_ToggleReturnsCopy(t *testing.T) {
	ctx := context.Background()
	c := exam.NewCatalog(exam.NewInMemoryStore())
	e, err := c.Create(ctx, "t1", decodeInput(t, validInput))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	off, err := c.Toggle(ctx, "t1", e.ID)
	if err != nil {
		t.Fatalf("toggle: %v", err)
	}
	off.Questions[0].Prompt = "changed"
	off.Questions[0].Body.(exam.MultipleChoice).Options[0] = "changed"

	got, _ := c.Get(ctx, e.ID)
	if got.Questions[0].Prompt != "Pick" || got.Questions[0].Body.(exam.MultipleChoice).Options[0] != "A" {
		t.Fatalf("toggle result aliases stored exam: %+v", got.Questions[0])
	}
}

func TestCatalog_OnSaveHook(t *testing.T) {
	ctx := context.Background()
	c := exam.NewCatalog(exam.NewInMemoryStore())
	var limits []int
	c.OnSave(func(_ context.Context, e exam.Exam) { limits = append(limits, e.TimeLimit) })

	e, err := c.Create(ctx, "t1", decodeInput(t, validInput))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	in := decodeInput(t, validInput)
	in.TimeLimit = 45
	if _, err := c.Update(ctx, "t1", e.ID, in); err != nil {
		t.Fatalf("update: %v", err)
	}
	if _, err := c.Update(ctx, "t2", e.ID, in); !errors.Is(err, exam.ErrNotExamOwner) {
		t.Fatalf("foreign update err = %v", err)
	}
	if len(limits) != 2 || limits[0] != 15 || limits[1] != 45 {
		t.Fatalf("hook saw limits %v", limits)
	}
}
