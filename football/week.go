package football

import "time"

// WeekOf returns the Monday 00:00 that starts the week containing t, in t's
// location.
func WeekOf(t time.Time) time.Time {
	y, m, d := t.Date()
	day := time.Date(y, m, d, 0, 0, 0, 0, t.Location())
	offset := (int(day.Weekday()) + 6) % 7
	return day.AddDate(0, 0, -offset)
}

// FilterWeek keeps fixtures dated within [start, start+7d) in start's
// location. Order is preserved.
func FilterWeek(fixtures []Fixture, start time.Time) []Fixture {
	end := start.AddDate(0, 0, 7)
	out := make([]Fixture, 0)
	for _, f := range fixtures {
		d := f.Date.In(start.Location())
		if !d.Before(start) && d.Before(end) {
			out = append(out, f)
		}
	}
	return out
}
