package domain

// Point values for completing a reading. There is no cutoff after which a
// reading stops being worth points; anything not completed on its own date
// earns the late score, including readings dated in the future.
const (
	FullScore = 10
	LateScore = 5
)

// Score converts a completion attempt into points. onDate is the calendar
// date of the submission (YYYY-MM-DD). The bonus applies only when the
// reading carries a question and chosenOptionID matches the correct option;
// an empty chosenOptionID never errors, it just earns no bonus.
func Score(r Reading, onDate, chosenOptionID string) int {
	score := LateScore
	if onDate == r.Date {
		score = FullScore
	}
	if r.Question != "" && IsCorrect(r, chosenOptionID) {
		score += r.BonusPoints
	}
	return score
}

// IsCorrect reports whether chosenOptionID answers the reading's question.
// False when either side is empty, so quiz-less readings and skipped
// questions never count as correct.
func IsCorrect(r Reading, chosenOptionID string) bool {
	return chosenOptionID != "" && chosenOptionID == r.CorrectOptionID
}
