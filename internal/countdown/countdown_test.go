package countdown

import (
	"fmt"
	"strconv"
	"strings"
	"testing"
	"time"
)

func dateAt(t *testing.T, value string) time.Time {
	t.Helper()

	parsed, err := ParseDate(value)
	if err != nil {
		t.Fatalf("ParseDate(%q) returned error: %v", value, err)
	}

	return parsed
}

func strPtr(s string) *string {
	return &s
}

func TestParseDateAcceptsCanonicalForm(t *testing.T) {
	parsed := dateAt(t, "2025-10-26")

	if parsed.Year() != 2025 || parsed.Month() != time.October || parsed.Day() != 26 {
		t.Fatalf("unexpected parsed date: %v", parsed)
	}
	if parsed.Location() != Location() {
		t.Fatalf("expected date in reference timezone, got %v", parsed.Location())
	}
}

func TestParseDateRejectsOtherForms(t *testing.T) {
	for _, value := range []string{
		"",
		"2025-13-40",
		"2025-02-30",
		"2025-1-2",
		"2025/10/26",
		"26-10-2025",
		"2025-10-26T00:00:00",
		"tomorrow",
	} {
		if _, err := ParseDate(value); err == nil {
			t.Errorf("expected ParseDate(%q) to fail", value)
		}
	}
}

func TestDaysLeftIgnoresTimeOfDay(t *testing.T) {
	target := dateAt(t, "2025-10-26")

	lateEvening := time.Date(2025, 10, 25, 23, 59, 0, 0, Location())
	earlyMorning := time.Date(2025, 10, 25, 0, 1, 0, 0, Location())

	if got := DaysLeft(target, lateEvening); got != 1 {
		t.Fatalf("expected 1 day left at 23:59, got %d", got)
	}
	if got := DaysLeft(target, earlyMorning); got != 1 {
		t.Fatalf("expected 1 day left at 00:01, got %d", got)
	}
}

func TestMessageNotConfigured(t *testing.T) {
	for _, today := range []string{"2025-01-01", "2025-10-26", "2030-12-31"} {
		if got := Message(nil, dateAt(t, today)); got != TextNotConfigured {
			t.Fatalf("expected not-configured text for today=%s, got %q", today, got)
		}
	}

	if got := Message(strPtr(""), dateAt(t, "2025-06-01")); got != TextNotConfigured {
		t.Fatalf("expected not-configured text for empty date, got %q", got)
	}
}

func TestMessageInvalidStoredDate(t *testing.T) {
	if got := Message(strPtr("not-a-date"), dateAt(t, "2025-06-01")); got != TextStoredDateInvalid {
		t.Fatalf("expected stored-date-invalid text, got %q", got)
	}
}

func TestMessageMilestoneSelection(t *testing.T) {
	today := dateAt(t, "2025-01-01")

	cases := []struct {
		daysAhead int
		want      string
	}{
		{100, fmt.Sprintf(TextMilestone100, 100)},
		{90, fmt.Sprintf(TextMilestone90, 90)},
		{30, fmt.Sprintf(TextMilestone30, 30)},
		{10, fmt.Sprintf(TextMilestone10, 10)},
		{99, fmt.Sprintf(TextGeneric, 99)},
		{31, fmt.Sprintf(TextGeneric, 31)},
		{1, fmt.Sprintf(TextGeneric, 1)},
		{365, fmt.Sprintf(TextGeneric, 365)},
	}

	for _, tc := range cases {
		target := today.AddDate(0, 0, tc.daysAhead).Format(DateLayout)
		got := Message(strPtr(target), today)
		if got != tc.want {
			t.Errorf("days_left=%d: expected %q, got %q", tc.daysAhead, tc.want, got)
		}
	}
}

func TestMessageExamDay(t *testing.T) {
	today := dateAt(t, "2025-10-26")

	if got := Message(strPtr("2025-10-26"), today); got != TextExamDay {
		t.Fatalf("expected exam-day text, got %q", got)
	}
}

func TestMessageAlreadyEnded(t *testing.T) {
	today := dateAt(t, "2025-11-05")
	examDate := "2025-10-26"

	got := Message(strPtr(examDate), today)

	if !strings.Contains(got, examDate) {
		t.Fatalf("expected ended message to contain the date %s, got %q", examDate, got)
	}
	if !strings.Contains(got, strconv.Itoa(10)) {
		t.Fatalf("expected ended message to contain the day count 10, got %q", got)
	}
}

func TestMidnightNormalizesToReferenceZone(t *testing.T) {
	// 2025-10-25 18:00 UTC is already 2025-10-26 02:00 in Taipei.
	instant := time.Date(2025, 10, 25, 18, 0, 0, 0, time.UTC)

	midnight := Midnight(instant)

	if midnight.Hour() != 0 || midnight.Minute() != 0 {
		t.Fatalf("expected midnight, got %v", midnight)
	}
	if midnight.Day() != 26 {
		t.Fatalf("expected Taipei-local day 26, got %d", midnight.Day())
	}
}
