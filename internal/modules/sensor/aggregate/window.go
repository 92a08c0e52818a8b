package aggregate

import "time"

// FloorToHour returns the start of the hour containing t, in UTC. All window
// callers (builder, scheduler, backfill) derive boundaries through these two
// functions so they can never disagree on where a window starts.
func FloorToHour(t time.Time) time.Time {
	return t.UTC().Truncate(time.Hour)
}

// FloorToDay returns midnight UTC of the day containing t.
func FloorToDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
