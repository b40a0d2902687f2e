package contracts

import "time"

// ⭐ SSOT: every date conversion in the app goes through this file.
// Repositories, clients, and templates never hand-roll layouts.

// DateLayout is the canonical date string form (DB keys, API params,
// report file names, log fields)
const DateLayout = "2006-01-02"

// FormatDate renders a time as a canonical date string
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// ParseDate parses a canonical date string
func ParseDate(s string) (time.Time, error) {
	return time.Parse(DateLayout, s)
}

// DateOnly truncates a time to midnight UTC
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// SameDate checks if two times fall on the same calendar day
func SameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// AddMonthsClamped shifts by n calendar months, clamping to the last
// day of the target month. Mar 31 - 1 month = Feb 28 (29 in leap
// years), never Mar 3. Go's AddDate normalizes overflow instead,
// which is the wrong behavior for anchor dates.
func AddMonthsClamped(t time.Time, n int) time.Time {
	first := time.Date(t.Year(), t.Month()+time.Month(n), 1, 0, 0, 0, 0, t.Location())
	lastDay := first.AddDate(0, 1, -1).Day()

	day := t.Day()
	if day > lastDay {
		day = lastDay
	}
	return time.Date(first.Year(), first.Month(), day, 0, 0, 0, 0, t.Location())
}

// AddYearsClamped shifts by n calendar years with the same clamping
// (Feb 29 - 1 year = Feb 28)
func AddYearsClamped(t time.Time, n int) time.Time {
	return AddMonthsClamped(t, 12*n)
}

// AnchorDates are the five calendar dates a snapshot ranking needs
type AnchorDates struct {
	Yesterday        time.Time // D - 1 day
	WeekAgo          time.Time // yesterday - 7 days
	OneMonthAgo      time.Time // yesterday - 1 calendar month
	OneYearAgo       time.Time // yesterday - 1 calendar year
	YearPlusMonthAgo time.Time // one_month_ago - 1 calendar year
}

// AnchorsFor computes the anchor dates for a run on day d
func AnchorsFor(d time.Time) AnchorDates {
	yesterday := DateOnly(d).AddDate(0, 0, -1)
	oneMonthAgo := AddMonthsClamped(yesterday, -1)
	return AnchorDates{
		Yesterday:        yesterday,
		WeekAgo:          yesterday.AddDate(0, 0, -7),
		OneMonthAgo:      oneMonthAgo,
		OneYearAgo:       AddYearsClamped(yesterday, -1),
		YearPlusMonthAgo: AddYearsClamped(oneMonthAgo, -1),
	}
}

// All returns the anchors in fetch order
func (a AnchorDates) All() []time.Time {
	return []time.Time{
		a.Yesterday,
		a.WeekAgo,
		a.OneMonthAgo,
		a.OneYearAgo,
		a.YearPlusMonthAgo,
	}
}

// LastThursday returns the most recent Thursday at or before d.
// Grouped-bars syncs anchor on Thursdays so a weekend run and the
// following Monday run resolve the same session.
func LastThursday(d time.Time) time.Time {
	offset := (int(d.Weekday()) - int(time.Thursday) + 7) % 7
	return DateOnly(d).AddDate(0, 0, -offset)
}

// IsWeekend checks for Saturday or Sunday
func IsWeekend(d time.Time) bool {
	wd := d.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// PrevWeekday returns the closest weekday at or before d
func PrevWeekday(d time.Time) time.Time {
	for IsWeekend(d) {
		d = d.AddDate(0, 0, -1)
	}
	return d
}

// StepBackWeekday returns the weekday strictly before d
func StepBackWeekday(d time.Time) time.Time {
	return PrevWeekday(d.AddDate(0, 0, -1))
}
