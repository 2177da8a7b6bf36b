package gcal

import (
	"strings"
	"time"

	"google.golang.org/api/calendar/v3"

	"daybook/internal/model"
)

// placeholderTitle is used when a Google event has no summary.
const placeholderTitle = "No Title"

// categoryRule pairs a set of title keywords with the category they imply.
// Rules are evaluated in order; the first match wins.
type categoryRule struct {
	keywords []string
	category model.Category
}

// categoryRules is the fixed priority order for title classification.
// Personal signals beat health signals beat learning signals beat work
// signals; anything unmatched is treated as a meeting, since that is what
// most calendar entries without a stronger signal turn out to be.
var categoryRules = []categoryRule{
	{[]string{"lunch", "dinner", "party", "birthday", "bday", "anniversary"}, model.CategoryPersonal},
	{[]string{"doctor", "gym", "workout", "meditation", "dentist"}, model.CategoryHealth},
	{[]string{"study", "course", "class", "learning", "tutorial"}, model.CategoryLearning},
	{[]string{"work", "standup", "sync", "meeting", "dev", "code"}, model.CategoryWork},
}

// ClassifyTitle infers an event category from its title using the fixed
// keyword priority order. Matching is case-insensitive.
func ClassifyTitle(title string) model.Category {
	lower := strings.ToLower(title)
	for _, rule := range categoryRules {
		for _, keyword := range rule.keywords {
			if strings.Contains(lower, keyword) {
				return rule.category
			}
		}
	}
	return model.CategoryMeeting
}

// Normalizer converts raw Google Calendar event records into the canonical
// event model. The clock and location are injectable for tests.
type Normalizer struct {
	Now      func() time.Time
	Location *time.Location
}

// NewNormalizer returns a Normalizer using the wall clock and the host's
// local timezone.
func NewNormalizer() *Normalizer {
	return &Normalizer{Now: time.Now, Location: time.Local}
}

// Normalize maps one Google event to a CalendarEvent. It is total over
// well-formed records: an event with neither a timed nor an all-day start
// degrades to a zero-duration event at the current time.
func (n *Normalizer) Normalize(raw *calendar.Event) model.CalendarEvent {
	start, startOK := n.parseEventTime(raw.Start)
	end, endOK := n.parseEventTime(raw.End)

	switch {
	case startOK && !endOK:
		end = start
	case !startOK && endOK:
		start = end
	case !startOK && !endOK:
		now := n.Now()
		start, end = now, now
	}

	title := raw.Summary
	if title == "" {
		title = placeholderTitle
	}

	return model.CalendarEvent{
		ID:            raw.Id,
		Title:         title,
		Description:   raw.Description,
		Start:         start,
		End:           end,
		Category:      ClassifyTitle(title),
		Location:      raw.Location,
		IsGoogleEvent: true,
		GoogleID:      raw.Id,
	}
}

// parseEventTime handles the two shapes a Google EventDateTime takes: a timed
// RFC 3339 instant, or an all-day bare date. All-day dates are parsed as
// local calendar dates; running them through an instant-based parse would
// shift the day for hosts west of UTC.
func (n *Normalizer) parseEventTime(edt *calendar.EventDateTime) (time.Time, bool) {
	if edt == nil {
		return time.Time{}, false
	}
	if edt.DateTime != "" {
		t, err := time.Parse(time.RFC3339, edt.DateTime)
		if err != nil {
			return time.Time{}, false
		}
		return t, true
	}
	if edt.Date != "" {
		t, err := time.ParseInLocation("2006-01-02", edt.Date, n.Location)
		if err != nil {
			return time.Time{}, false
		}
		return t, true
	}
	return time.Time{}, false
}
