package summary

import (
	"fmt"
	"io"
	"math"
	"sort"
	"time"

	"daybook/internal/model"
)

// Summary is a heuristic productivity breakdown over the merged event set
// within a window. It is computed on demand and never persisted.
type Summary struct {
	WindowStart time.Time
	WindowEnd   time.Time

	TotalEvents     int
	TotalHours      float64
	CountByCategory map[model.Category]int
	HoursByCategory map[model.Category]float64

	// BusiestDay is the local calendar day with the most scheduled hours.
	// Zero when no events fall inside the window.
	BusiestDay      time.Time
	BusiestDayHours float64

	// FocusScore is 0-100: the share of scheduled hours spent on work and
	// learning. 0 when no hours are scheduled.
	FocusScore int
}

// Build computes a Summary over events overlapping [windowStart, windowEnd).
func Build(events []model.CalendarEvent, windowStart, windowEnd time.Time) Summary {
	s := Summary{
		WindowStart:     windowStart,
		WindowEnd:       windowEnd,
		CountByCategory: make(map[model.Category]int),
		HoursByCategory: make(map[model.Category]float64),
	}

	hoursByDay := make(map[time.Time]float64)
	for _, ev := range events {
		if !ev.Start.Before(windowEnd) || ev.End.Before(windowStart) {
			continue
		}

		hours := ev.Duration().Hours()
		s.TotalEvents++
		s.TotalHours += hours
		s.CountByCategory[ev.Category]++
		s.HoursByCategory[ev.Category] += hours

		day := ev.Start.Truncate(0)
		day = time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
		hoursByDay[day] += hours
	}

	for day, hours := range hoursByDay {
		if hours > s.BusiestDayHours || (hours == s.BusiestDayHours && (s.BusiestDay.IsZero() || day.Before(s.BusiestDay))) {
			s.BusiestDay = day
			s.BusiestDayHours = hours
		}
	}

	if s.TotalHours > 0 {
		focused := s.HoursByCategory[model.CategoryWork] + s.HoursByCategory[model.CategoryLearning]
		s.FocusScore = int(math.Round(100 * focused / s.TotalHours))
		if s.FocusScore > 100 {
			s.FocusScore = 100
		}
	}

	return s
}

// Render writes a human-readable breakdown.
func (s Summary) Render(w io.Writer) {
	fmt.Fprintf(w, "Summary %s - %s\n", s.WindowStart.Format("2006-01-02"), s.WindowEnd.Format("2006-01-02"))
	fmt.Fprintf(w, "  events: %d, scheduled hours: %.1f\n", s.TotalEvents, s.TotalHours)

	categories := make([]model.Category, 0, len(s.CountByCategory))
	for cat := range s.CountByCategory {
		categories = append(categories, cat)
	}
	sort.Slice(categories, func(i, j int) bool { return categories[i] < categories[j] })
	for _, cat := range categories {
		fmt.Fprintf(w, "  %-10s %d events, %.1f h\n", cat, s.CountByCategory[cat], s.HoursByCategory[cat])
	}

	if !s.BusiestDay.IsZero() {
		fmt.Fprintf(w, "  busiest day: %s (%.1f h)\n", s.BusiestDay.Format("2006-01-02"), s.BusiestDayHours)
	}
	fmt.Fprintf(w, "  focus score: %d/100\n", s.FocusScore)
}
