package gcal

import (
	"testing"
	"time"

	"google.golang.org/api/calendar/v3"

	"daybook/internal/model"
)

func testNormalizer() *Normalizer {
	// A fixed zone well west of UTC: a naive instant-based parse of an
	// all-day date would land on the previous calendar day here.
	loc := time.FixedZone("UTC-7", -7*60*60)
	return &Normalizer{
		Now:      func() time.Time { return time.Date(2024, 3, 1, 12, 0, 0, 0, loc) },
		Location: loc,
	}
}

func TestNormalize_AllDayEventKeepsCalendarDay(t *testing.T) {
	n := testNormalizer()

	ev := n.Normalize(&calendar.Event{
		Id:      "allday-1",
		Summary: "Company Holiday",
		Start:   &calendar.EventDateTime{Date: "2024-03-10"},
		End:     &calendar.EventDateTime{Date: "2024-03-11"},
	})

	if ev.Start.Year() != 2024 || ev.Start.Month() != time.March || ev.Start.Day() != 10 {
		t.Errorf("expected start on 2024-03-10, got %v", ev.Start)
	}
	if ev.Start.Hour() != 0 || ev.Start.Minute() != 0 {
		t.Errorf("expected local midnight, got %v", ev.Start)
	}
	if ev.End.Day() != 11 {
		t.Errorf("expected end on 2024-03-11, got %v", ev.End)
	}
}

func TestNormalize_TimedEvent(t *testing.T) {
	n := testNormalizer()

	ev := n.Normalize(&calendar.Event{
		Id:      "timed-1",
		Summary: "Team Sync",
		Start:   &calendar.EventDateTime{DateTime: "2024-03-05T10:00:00Z"},
		End:     &calendar.EventDateTime{DateTime: "2024-03-05T11:00:00Z"},
	})

	want := time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)
	if !ev.Start.Equal(want) {
		t.Errorf("expected start %v, got %v", want, ev.Start)
	}
	if ev.Duration() != time.Hour {
		t.Errorf("expected one-hour duration, got %v", ev.Duration())
	}
}

func TestNormalize_StartOnlyMakesZeroDuration(t *testing.T) {
	n := testNormalizer()

	ev := n.Normalize(&calendar.Event{
		Id:    "start-only",
		Start: &calendar.EventDateTime{DateTime: "2024-03-05T10:00:00Z"},
	})

	if !ev.Start.Equal(ev.End) {
		t.Errorf("expected start == end, got start %v end %v", ev.Start, ev.End)
	}
}

func TestNormalize_NoTimesDegradesToNow(t *testing.T) {
	n := testNormalizer()

	ev := n.Normalize(&calendar.Event{Id: "empty", Summary: "Mystery"})

	now := n.Now()
	if !ev.Start.Equal(now) || !ev.End.Equal(now) {
		t.Errorf("expected both times to fall back to now, got start %v end %v", ev.Start, ev.End)
	}
}

func TestNormalize_MissingTitlePlaceholder(t *testing.T) {
	n := testNormalizer()

	ev := n.Normalize(&calendar.Event{
		Id:    "untitled",
		Start: &calendar.EventDateTime{DateTime: "2024-03-05T10:00:00Z"},
	})

	if ev.Title != "No Title" {
		t.Errorf("expected placeholder title, got %q", ev.Title)
	}
	if ev.Category != model.CategoryMeeting {
		t.Errorf("expected default meeting category, got %q", ev.Category)
	}
}

func TestNormalize_MarksGoogleSource(t *testing.T) {
	n := testNormalizer()

	ev := n.Normalize(&calendar.Event{
		Id:    "g-1",
		Start: &calendar.EventDateTime{DateTime: "2024-03-05T10:00:00Z"},
	})

	if !ev.IsGoogleEvent {
		t.Error("expected IsGoogleEvent to be true")
	}
	if ev.GoogleID != "g-1" || ev.ID != "g-1" {
		t.Errorf("expected id and googleId to equal the provider id, got %q / %q", ev.ID, ev.GoogleID)
	}
}

func TestClassifyTitle(t *testing.T) {
	cases := []struct {
		title string
		want  model.Category
	}{
		{"Dentist Appointment", model.CategoryHealth},
		{"Team Standup", model.CategoryWork},
		{"Quarterly Review", model.CategoryMeeting},
		{"Lunch with Sam", model.CategoryPersonal},
		{"Go Course", model.CategoryLearning},
		{"DENTIST", model.CategoryHealth},
		// Priority order: a personal signal beats a work signal.
		{"Work lunch", model.CategoryPersonal},
	}

	for _, tc := range cases {
		if got := ClassifyTitle(tc.title); got != tc.want {
			t.Errorf("ClassifyTitle(%q) = %q, want %q", tc.title, got, tc.want)
		}
	}
}
