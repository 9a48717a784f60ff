package domain

import "math"

// Progress counts how many of an event's readings the user has submitted.
// Submissions referencing readings deleted from the catalog still count if
// the event lists them; orphans are tolerated, never fatal. The ledger's
// one-entry-per-reading rule keeps completed <= total.
func Progress(event Event, submissions []Submission, userID string) EventProgress {
	wanted := make(map[string]struct{}, len(event.ReadingIDs))
	for _, id := range event.ReadingIDs {
		wanted[id] = struct{}{}
	}

	completed := 0
	for _, s := range submissions {
		if s.UserID != userID {
			continue
		}
		if _, ok := wanted[s.ReadingID]; ok {
			completed++
		}
	}

	total := len(wanted)
	denom := total
	if denom < 1 {
		denom = 1
	}
	return EventProgress{
		EventID:   event.ID,
		Completed: completed,
		Total:     total,
		Percent:   int(math.Round(100 * float64(completed) / float64(denom))),
	}
}

// Active reports whether the event is still running on the given calendar
// date (YYYY-MM-DD). The end date is inclusive; the start date is ignored.
func Active(event Event, today string) bool {
	return today <= event.EndDate
}
