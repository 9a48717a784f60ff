package domain

import "time"

// DateLayout is the calendar-date format used everywhere a date (not a
// timestamp) is compared. ISO dates compare correctly as strings.
const DateLayout = "2006-01-02"

// DateOf reduces a timestamp to its calendar date.
func DateOf(t time.Time) string {
	return t.Format(DateLayout)
}

// Role distinguishes organizers from competitors. Only participants are ranked.
type Role string

const (
	RoleAdmin       Role = "ADMIN"
	RoleParticipant Role = "PARTICIPANT"
)

// QuizOption is one possible answer to a reading's bonus question.
type QuizOption struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// Reading is one dated unit of the marathon, optionally carrying a
// single-choice bonus question. A reading with an empty Question has no
// scorable quiz component. Duplicate dates are legal; each reading is
// scored independently.
type Reading struct {
	ID              string       `json:"id"`
	Date            string       `json:"date"` // YYYY-MM-DD
	Title           string       `json:"title"`
	Question        string       `json:"question,omitempty"`
	Options         []QuizOption `json:"options,omitempty"`
	CorrectOptionID string       `json:"correctOptionId,omitempty"`
	BonusPoints     int          `json:"bonusPoints"`
}

// User is a roster entry. TotalScore is a denormalized running sum kept in
// step with the ledger by the board; admin edits may drift it on purpose.
type User struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Group      string `json:"group"`
	Role       Role   `json:"role"`
	TotalScore int    `json:"totalScore"`
}

// Submission is one ledger entry: a user completing a reading exactly once.
// Score is computed at creation time and never recomputed.
type Submission struct {
	ID           string    `json:"id"`
	UserID       string    `json:"userId"`
	ReadingID    string    `json:"readingId"`
	CompletedAt  time.Time `json:"completedAt"`
	QuizAnswerID string    `json:"quizAnswerId,omitempty"`
	IsCorrect    bool      `json:"isCorrect"`
	Score        int       `json:"score"`
}

// Event is a date-bounded mini-challenge over a subset of readings.
type Event struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	StartDate   string   `json:"startDate"`
	EndDate     string   `json:"endDate"`
	ReadingIDs  []string `json:"readingIds"`
}

// RankedUser is a leaderboard row.
type RankedUser struct {
	UserID string `json:"userId"`
	Name   string `json:"name"`
	Group  string `json:"group"`
	Score  int    `json:"score"`
	Rank   int    `json:"rank"`
}

// GroupStanding is one row of the group leaderboard.
type GroupStanding struct {
	Name  string `json:"name"`
	Score int    `json:"score"`
	Rank  int    `json:"rank"`
}

// Leaderboard captures the ordered individual scoreboard for a marathon.
type Leaderboard struct {
	MarathonID string       `json:"marathonId"`
	Entries    []RankedUser `json:"entries"`
	UpdatedAt  time.Time    `json:"updatedAt"`
}

// EventProgress summarizes one user's completion of an event's readings.
type EventProgress struct {
	EventID   string `json:"eventId"`
	Completed int    `json:"completed"`
	Total     int    `json:"total"`
	Percent   int    `json:"percent"`
	Active    bool   `json:"active"`
}

// CompletionResult is what a participant gets back for a mark-complete.
type CompletionResult struct {
	Submission Submission `json:"submission"`
	TotalScore int        `json:"totalScore"`
}

// BoardSnapshot is the persistence shape of a board: users in join order so
// ranking tie-breaks survive a restore.
type BoardSnapshot struct {
	MarathonID  string       `json:"marathonId"`
	Users       []User       `json:"users"`
	Submissions []Submission `json:"submissions"`
	Groups      []string     `json:"groups"`
	Events      []Event      `json:"events"`
}
