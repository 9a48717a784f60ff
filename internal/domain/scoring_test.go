package domain

import "testing"

func quizReading() Reading {
	return Reading{
		ID:       "r1",
		Date:     "2024-01-10",
		Title:    "Genesis 1-3",
		Question: "What was created on the first day?",
		Options: []QuizOption{
			{ID: "a", Text: "Light"},
			{ID: "b", Text: "Animals"},
		},
		CorrectOptionID: "a",
		BonusPoints:     2,
	}
}

func TestScoreOnTimeVsLate(t *testing.T) {
	r := quizReading()

	if got := Score(r, "2024-01-10", ""); got != FullScore {
		t.Fatalf("on-time score = %d, want %d", got, FullScore)
	}
	if got := Score(r, "2024-01-11", ""); got != LateScore {
		t.Fatalf("late score = %d, want %d", got, LateScore)
	}
	// There is no cutoff: far-future and far-past dates both earn the late score.
	if got := Score(r, "2030-06-01", ""); got != LateScore {
		t.Fatalf("far-late score = %d, want %d", got, LateScore)
	}
	if got := Score(r, "2020-01-01", ""); got != LateScore {
		t.Fatalf("before-date score = %d, want %d", got, LateScore)
	}
}

func TestScoreBonus(t *testing.T) {
	r := quizReading()

	if got := Score(r, r.Date, "a"); got != FullScore+2 {
		t.Fatalf("correct on-time score = %d, want %d", got, FullScore+2)
	}
	// Bonus is tied to correctness, not timeliness.
	if got := Score(r, "2024-02-01", "a"); got != LateScore+2 {
		t.Fatalf("correct late score = %d, want %d", got, LateScore+2)
	}
	if got := Score(r, r.Date, "b"); got != FullScore {
		t.Fatalf("wrong answer score = %d, want %d", got, FullScore)
	}
	if got := Score(r, r.Date, ""); got != FullScore {
		t.Fatalf("skipped question score = %d, want %d", got, FullScore)
	}
}

func TestScoreNoQuizComponent(t *testing.T) {
	r := Reading{ID: "r2", Date: "2024-01-10", Title: "Genesis 4-6", BonusPoints: 3}

	// Without a question the bonus never applies, whatever the caller sends.
	if got := Score(r, r.Date, "a"); got != FullScore {
		t.Fatalf("quiz-less score = %d, want %d", got, FullScore)
	}
	if IsCorrect(r, "") {
		t.Fatal("empty answer against empty correct option must not count as correct")
	}
}

func TestScoreDeterministic(t *testing.T) {
	r := quizReading()
	first := Score(r, "2024-01-10", "a")
	second := Score(r, "2024-01-10", "a")
	if first != second {
		t.Fatalf("score not deterministic: %d then %d", first, second)
	}
}
