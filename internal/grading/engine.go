package grading

import (
	"encoding/json"
	"sort"

	"github.com/mind-engage/examhub/internal/exam"
)

// Verdict is the outcome of matching one answer. Pending means the question
// is not auto-gradable and waits for manual review; it is never scored as wrong.
type Verdict int

const (
	Pending Verdict = iota
	Correct
	Incorrect
)

func (v Verdict) String() string {
	switch v {
	case Correct:
		return "correct"
	case Incorrect:
		return "incorrect"
	default:
		return "pending"
	}
}

func (v Verdict) MarshalJSON() ([]byte, error) { return json.Marshal(v.String()) }

// Strategy matches a submitted answer for one question type.
type Strategy func(q exam.Question, submitted *exam.Answer) Verdict

var strategies = map[exam.QuestionType]Strategy{
	exam.TypeMultipleChoice: multipleChoiceStrategy,
	exam.TypeShortAnswer:    shortAnswerStrategy,
	exam.TypeLongAnswer:     manualStrategy,
}

// IsCorrect routes by question type. A nil submitted answer means unanswered.
// Inputs are never mutated.
func IsCorrect(q exam.Question, submitted *exam.Answer) Verdict {
	s, ok := strategies[q.Type()]
	if !ok {
		return Pending
	}
	return s(q, submitted)
}

// --- Strategies ---

func multipleChoiceStrategy(q exam.Question, submitted *exam.Answer) Verdict {
	mc, ok := q.Body.(exam.MultipleChoice)
	if !ok || submitted == nil {
		return Incorrect
	}
	key := mc.Correct
	if key.List != submitted.List {
		return Incorrect
	}
	if key.List {
		return verdict(sortedEqual(key.Values, submitted.Values))
	}
	return verdict(key.Text == submitted.Text)
}

// shortAnswerStrategy is an exact, case-sensitive comparison with no trimming.
func shortAnswerStrategy(q exam.Question, submitted *exam.Answer) Verdict {
	sa, ok := q.Body.(exam.ShortAnswer)
	if !ok || submitted == nil || submitted.List {
		return Incorrect
	}
	return verdict(sa.Correct == submitted.Text)
}

func manualStrategy(exam.Question, *exam.Answer) Verdict { return Pending }

// helpers

func verdict(ok bool) Verdict {
	if ok {
		return Correct
	}
	return Incorrect
}

// sortedEqual compares sorted copies elementwise. Duplicates are kept, so
// ["A","B","A"] never equals ["A","B"].
func sortedEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	x := append([]string(nil), a...)
	y := append([]string(nil), b...)
	sort.Strings(x)
	sort.Strings(y)
	for i := range x {
		if x[i] != y[i] {
			return false
		}
	}
	return true
}
