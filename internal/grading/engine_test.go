package grading_test

import (
	"encoding/json"
	"testing"

	"github.com/mind-engage/examhub/internal/exam"
	"github.com/mind-engage/examhub/internal/grading"
)

func ans(a exam.Answer) *exam.Answer { return &a }

func TestIsCorrect(t *testing.T) {
	single := mc("q1", 1, []string{"A", "B", "C"}, exam.Text("B"))
	multi := mc("q2", 1, []string{"A", "B", "C"}, exam.Choices("A", "B"))
	city := short("q3", 1, "Paris")
	essay := long("q4", 5)

	cases := []struct {
		name string
		q    exam.Question
		sub  *exam.Answer
		want grading.Verdict
	}{
		{"single match", single, ans(exam.Text("B")), grading.Correct},
		{"single mismatch", single, ans(exam.Text("C")), grading.Incorrect},
		{"single answered with list", single, ans(exam.Choices("B")), grading.Incorrect},
		{"single unanswered", single, nil, grading.Incorrect},
		{"multi same order", multi, ans(exam.Choices("A", "B")), grading.Correct},
		{"multi reversed", multi, ans(exam.Choices("B", "A")), grading.Correct},
		{"multi subset", multi, ans(exam.Choices("A")), grading.Incorrect},
		{"multi superset", multi, ans(exam.Choices("A", "B", "C")), grading.Incorrect},
		{"multi duplicate", multi, ans(exam.Choices("A", "B", "A")), grading.Incorrect},
		{"multi answered with scalar", multi, ans(exam.Text("A")), grading.Incorrect},
		{"multi empty list", multi, ans(exam.Choices()), grading.Incorrect},
		{"short exact", city, ans(exam.Text("Paris")), grading.Correct},
		{"short case differs", city, ans(exam.Text("paris")), grading.Incorrect},
		{"short trailing space", city, ans(exam.Text("Paris ")), grading.Incorrect},
		{"short list", city, ans(exam.Choices("Paris")), grading.Incorrect},
		{"short unanswered", city, nil, grading.Incorrect},
		{"long answered", essay, ans(exam.Text("essay")), grading.Pending},
		{"long unanswered", essay, nil, grading.Pending},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := grading.IsCorrect(tc.q, tc.sub); got != tc.want {
				t.Fatalf("IsCorrect = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestIsCorrect_DoesNotReorderSubmission(t *testing.T) {
	q := mc("q", 1, []string{"A", "B", "C"}, exam.Choices("C", "A"))
	sub := exam.Choices("C", "A")
	grading.IsCorrect(q, &sub)
	if sub.Values[0] != "C" || sub.Values[1] != "A" {
		t.Fatalf("submission reordered: %v", sub.Values)
	}
	key := q.Body.(exam.MultipleChoice).Correct
	if key.Values[0] != "C" {
		t.Fatalf("answer key reordered: %v", key.Values)
	}
}

func TestVerdict_JSON(t *testing.T) {
	b, err := json.Marshal([]grading.Verdict{grading.Correct, grading.Incorrect, grading.Pending})
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != `["correct","incorrect","pending"]` {
		t.Fatalf("json = %s", b)
	}
}
