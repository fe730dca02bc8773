package grading_test

import (
	"testing"

	"github.com/mind-engage/examhub/internal/exam"
	"github.com/mind-engage/examhub/internal/grading"
)

/* ---------------- fixtures ---------------- */

func mc(id string, points int, opts []string, correct exam.Answer) exam.Question {
	return exam.Question{ID: id, Prompt: id, Points: points, Body: exam.MultipleChoice{Options: opts, Correct: correct}}
}

func short(id string, points int, correct string) exam.Question {
	return exam.Question{ID: id, Prompt: id, Points: points, Body: exam.ShortAnswer{Correct: correct}}
}

func long(id string, points int) exam.Question {
	return exam.Question{ID: id, Prompt: id, Points: points, Body: exam.LongAnswer{}}
}

func attemptWith(answers map[string]exam.Answer) exam.Attempt {
	a := exam.Attempt{ID: "att-1", ExamID: "exam-1"}
	for qid, ans := range answers {
		a.SetAnswer(qid, ans)
	}
	return a
}

func mixedExam() exam.Exam {
	return exam.Exam{ID: "exam-1", Questions: []exam.Question{
		mc("q1", 1, []string{"A", "B", "C"}, exam.Text("B")),
		mc("q2", 1, []string{"X", "Y", "Z"}, exam.Choices("X", "Z")),
		short("q3", 1, "Dog"),
	}}
}

/* ---------------- ComputeScore ---------------- */

func TestComputeScore_WeightedScenario(t *testing.T) {
	e := exam.Exam{ID: "exam-1", Questions: []exam.Question{
		mc("mc1", 2, []string{"A", "B", "C"}, exam.Text("B")),
		mc("mc2", 3, []string{"X", "Y", "Z"}, exam.Choices("X", "Y")),
		short("sa", 1, "cat"),
	}}
	cases := []struct {
		name    string
		answers map[string]exam.Answer
		earned  int
		want    float64
	}{
		{"all correct", map[string]exam.Answer{
			"mc1": exam.Text("B"), "mc2": exam.Choices("Y", "X"), "sa": exam.Text("cat"),
		}, 6, 1.00},
		{"all wrong", map[string]exam.Answer{
			"mc1": exam.Text("A"), "mc2": exam.Choices("X"), "sa": exam.Text("dog"),
		}, 0, 0.00},
		{"extra choice and wrong case", map[string]exam.Answer{
			"mc1": exam.Text("B"), "mc2": exam.Choices("X", "Y", "Z"), "sa": exam.Text("Cat"),
		}, 2, 0.33},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			a := attemptWith(tc.answers)
			if earned, total := grading.Tally(e, a); earned != tc.earned || total != 6 {
				t.Fatalf("tally = %d/%d, want %d/6", earned, total, tc.earned)
			}
			if got := grading.ComputeScore(e, a); got != tc.want {
				t.Fatalf("score = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestComputeScore_Scenarios(t *testing.T) {
	e := mixedExam()
	cases := []struct {
		name    string
		answers map[string]exam.Answer
		want    float64
	}{
		{"all correct, order independent", map[string]exam.Answer{
			"q1": exam.Text("B"), "q2": exam.Choices("Z", "X"), "q3": exam.Text("Dog"),
		}, 1.00},
		{"all wrong", map[string]exam.Answer{
			"q1": exam.Text("A"), "q2": exam.Choices("X"), "q3": exam.Text("Cat"),
		}, 0.00},
		{"superset fails multi-select", map[string]exam.Answer{
			"q1": exam.Text("B"), "q2": exam.Choices("X", "Y", "Z"), "q3": exam.Text("Cat"),
		}, 0.33},
		{"nothing answered", nil, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := grading.ComputeScore(e, attemptWith(tc.answers))
			if got != tc.want {
				t.Fatalf("score = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestComputeScore_LongAnswerCountsTowardTotalOnly(t *testing.T) {
	e := exam.Exam{Questions: []exam.Question{
		mc("q1", 1, []string{"A", "B"}, exam.Text("A")),
		long("essay", 1),
	}}
	a := attemptWith(map[string]exam.Answer{"q1": exam.Text("A"), "essay": exam.Text("a very good essay")})
	if got := grading.ComputeScore(e, a); got != 0.5 {
		t.Fatalf("score = %v, want 0.5", got)
	}
	earned, total := grading.Tally(e, a)
	if earned != 1 || total != 2 {
		t.Fatalf("tally = %d/%d, want 1/2", earned, total)
	}
}

func TestComputeScore_ZeroPointExam(t *testing.T) {
	e := exam.Exam{Questions: []exam.Question{short("q", 0, "x")}}
	if got := grading.ComputeScore(e, attemptWith(map[string]exam.Answer{"q": exam.Text("x")})); got != 0 {
		t.Fatalf("score = %v, want 0", got)
	}
	if got := grading.ComputeScore(exam.Exam{}, exam.Attempt{}); got != 0 {
		t.Fatalf("empty exam score = %v, want 0", got)
	}
}

func TestComputeScore_WeightedPoints(t *testing.T) {
	e := exam.Exam{Questions: []exam.Question{
		short("q1", 3, "yes"),
		short("q2", 1, "no"),
	}}
	a := attemptWith(map[string]exam.Answer{"q1": exam.Text("yes"), "q2": exam.Text("yes")})
	if got := grading.ComputeScore(e, a); got != 0.75 {
		t.Fatalf("score = %v, want 0.75", got)
	}
}

func TestComputeScore_Idempotent(t *testing.T) {
	e := mixedExam()
	a := attemptWith(map[string]exam.Answer{"q1": exam.Text("B"), "q2": exam.Choices("Z", "X")})
	first := grading.ComputeScore(e, a)
	for i := 0; i < 5; i++ {
		if got := grading.ComputeScore(e, a); got != first {
			t.Fatalf("run %d: score = %v, want %v", i, got, first)
		}
	}
	if got := a.AnswerFor("q2"); got == nil || got.Values[0] != "Z" {
		t.Fatalf("scoring mutated the attempt answers: %+v", got)
	}
}

func TestFraction_Rounding(t *testing.T) {
	cases := []struct {
		earned, total int
		want          float64
	}{
		{1, 3, 0.33},
		{2, 3, 0.67},
		{1, 8, 0.13},
		{3, 8, 0.38},
		{1, 200, 0.01},
		{1, 201, 0},
		{7, 7, 1},
		{0, 5, 0},
		{3, 0, 0},
	}
	for _, tc := range cases {
		if got := grading.Fraction(tc.earned, tc.total); got != tc.want {
			t.Errorf("Fraction(%d, %d) = %v, want %v", tc.earned, tc.total, got, tc.want)
		}
	}
}

/* ---------------- Review ---------------- */

func TestReview_Report(t *testing.T) {
	e := exam.Exam{ID: "exam-1", Questions: []exam.Question{
		mc("q1", 2, []string{"A", "B"}, exam.Text("A")),
		short("q2", 1, "Paris"),
		long("q3", 1),
	}}
	a := attemptWith(map[string]exam.Answer{"q1": exam.Text("A"), "q2": exam.Text("paris")})
	r := grading.Review(e, a)

	if r.Earned != 2 || r.Total != 4 || r.Score != 0.5 || r.Pending != 1 {
		t.Fatalf("report totals = %+v", r)
	}
	if len(r.Questions) != 3 {
		t.Fatalf("questions = %d, want 3", len(r.Questions))
	}
	want := []grading.Verdict{grading.Correct, grading.Incorrect, grading.Pending}
	for i, qr := range r.Questions {
		if qr.Verdict != want[i] {
			t.Errorf("%s verdict = %v, want %v", qr.QuestionID, qr.Verdict, want[i])
		}
	}
	if r.Questions[1].Correct == nil || r.Questions[1].Correct.Text != "Paris" {
		t.Errorf("short answer key = %+v", r.Questions[1].Correct)
	}
	if r.Questions[2].Correct != nil || r.Questions[2].Submitted != nil {
		t.Errorf("unanswered long answer = %+v", r.Questions[2])
	}
}
