// Package countdown computes remaining days until a configured exam date and
// renders the user-facing countdown messages. Everything here is pure; the
// caller supplies "today" so behavior stays deterministic under test.
package countdown

import (
	"fmt"
	"sync"
	"time"
)

// DateLayout is the only accepted exam date format.
const DateLayout = "2006-01-02"

// referenceZone is the fixed timezone all day arithmetic is normalized to.
const referenceZone = "Asia/Taipei"

var (
	locationOnce sync.Once
	location     *time.Location
)

// Location returns the reference timezone used for all countdown math.
// Taipei has no daylight saving, so the UTC+8 fallback is equivalent when the
// zone database is missing from the runtime image.
func Location() *time.Location {
	locationOnce.Do(func() {
		loc, err := time.LoadLocation(referenceZone)
		if err != nil {
			loc = time.FixedZone(referenceZone, 8*60*60)
		}
		location = loc
	})

	return location
}

// Today returns the current date at midnight in the reference timezone.
func Today() time.Time {
	return Midnight(time.Now().In(Location()))
}

// Midnight truncates t to midnight in the reference timezone.
func Midnight(t time.Time) time.Time {
	local := t.In(Location())
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, Location())
}

// ParseDate parses a strict YYYY-MM-DD date string. Anything else, including
// shorthand forms the layout would normally tolerate, is rejected.
func ParseDate(value string) (time.Time, error) {
	parsed, err := time.ParseInLocation(DateLayout, value, Location())
	if err != nil {
		return time.Time{}, fmt.Errorf("parse exam date: %w", err)
	}

	// time.Parse accepts single-digit months and days; require the canonical
	// form so stored dates are uniform.
	if parsed.Format(DateLayout) != value {
		return time.Time{}, fmt.Errorf("parse exam date: %q is not in %s form", value, "YYYY-MM-DD")
	}

	return parsed, nil
}

// DaysLeft returns the calendar-day difference between the exam date and
// today, both normalized to midnight in the reference timezone.
func DaysLeft(examDate, today time.Time) int {
	diff := Midnight(examDate).Sub(Midnight(today))
	return int(diff / (24 * time.Hour))
}

// Message renders the countdown message for a stored exam date string. A nil
// or empty date yields the not-configured hint; an unparseable stored value
// yields the format-error text rather than failing.
func Message(examDate *string, today time.Time) string {
	if examDate == nil || *examDate == "" {
		return TextNotConfigured
	}

	target, err := ParseDate(*examDate)
	if err != nil {
		return TextStoredDateInvalid
	}

	daysLeft := DaysLeft(target, today)

	switch {
	case daysLeft == 100:
		return fmt.Sprintf(TextMilestone100, daysLeft)
	case daysLeft == 90:
		return fmt.Sprintf(TextMilestone90, daysLeft)
	case daysLeft == 30:
		return fmt.Sprintf(TextMilestone30, daysLeft)
	case daysLeft == 10:
		return fmt.Sprintf(TextMilestone10, daysLeft)
	case daysLeft > 0:
		return fmt.Sprintf(TextGeneric, daysLeft)
	case daysLeft == 0:
		return TextExamDay
	default:
		return fmt.Sprintf(TextAlreadyEnded, *examDate, -daysLeft)
	}
}
