package message

import "time"

const (
	LabelToday     = "Today"
	LabelYesterday = "Yesterday"

	// longDateLayout renders days older than yesterday, e.g. "January 2, 2006".
	longDateLayout = "January 2, 2006"
)

// Entry is a message as rendered in a list, with the day separator that precedes it.
type Entry struct {
	Message        Message `json:"message"`
	ShowSeparator  bool    `json:"showSeparator"`
	SeparatorLabel string  `json:"separatorLabel,omitempty"`
}

// Timeline decorates msgs with day separators. A message gets a separator when it has a
// timestamp and is either the first message, follows a message without one, or falls on a
// different calendar day in loc than the message before it.
func Timeline(msgs []Message, now time.Time, loc *time.Location) []Entry {
	if loc == nil {
		loc = time.UTC
	}

	entries := make([]Entry, len(msgs))
	for i, m := range msgs {
		entries[i].Message = m

		if m.CreatedAt.IsZero() {
			continue
		}

		show := i == 0 || msgs[i-1].CreatedAt.IsZero() || !sameDay(m.CreatedAt, msgs[i-1].CreatedAt, loc)
		if show {
			entries[i].ShowSeparator = true
			entries[i].SeparatorLabel = SeparatorLabel(m.CreatedAt, now, loc)
		}
	}

	return entries
}

// SeparatorLabel names the calendar day of t relative to now.
func SeparatorLabel(t, now time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}

	// Noon of the previous calendar date exists even where midnight is skipped.
	y, m, d := now.In(loc).Date()
	yesterday := time.Date(y, m, d-1, 12, 0, 0, 0, loc)

	switch {
	case sameDay(t, now, loc):
		return LabelToday
	case sameDay(t, yesterday, loc):
		return LabelYesterday
	default:
		return t.In(loc).Format(longDateLayout)
	}
}

func sameDay(a, b time.Time, loc *time.Location) bool {
	ay, am, ad := a.In(loc).Date()
	by, bm, bd := b.In(loc).Date()
	return ay == by && am == bm && ad == bd
}
