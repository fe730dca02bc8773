package grading

import "github.com/mind-engage/examhub/internal/exam"

// Tally sums the points of every question and the points of the correct ones.
// Long answers count toward total but never toward earned.
func Tally(e exam.Exam, a exam.Attempt) (earned, total int) {
	for _, q := range e.Questions {
		total += q.Points
		if IsCorrect(q, a.AnswerFor(q.ID)) == Correct {
			earned += q.Points
		}
	}
	return earned, total
}

// ComputeScore returns earned/total rounded to two decimals, or 0 when the
// exam carries no points.
func ComputeScore(e exam.Exam, a exam.Attempt) float64 {
	return Fraction(Tally(e, a))
}

// Fraction rounds half away from zero on whole percents using integer math,
// so 1/8 is 0.13 and 1/200 is 0.01.
func Fraction(earned, total int) float64 {
	if total <= 0 || earned <= 0 {
		return 0
	}
	e, t := int64(earned), int64(total)
	pct := (200*e + t) / (2 * t)
	return float64(pct) / 100
}
