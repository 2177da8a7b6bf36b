package model

import "time"

// Category classifies an event for display and for the productivity summary.
type Category string

const (
	CategoryWork     Category = "work"
	CategoryPersonal Category = "personal"
	CategoryHealth   Category = "health"
	CategoryLearning Category = "learning"
	CategoryMeeting  Category = "meeting"
	CategoryOther    Category = "other"
)

// CalendarEvent is the application's unified event representation. Locally
// authored events and Google-sourced events share this shape; the two sets are
// concatenated for display and analytics but never merged into one record.
type CalendarEvent struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	Category    Category  `json:"category"`
	Location    string    `json:"location,omitempty"`

	// IsGoogleEvent marks events mirrored from Google Calendar. Such events
	// are read-only in this application and carry GoogleID == ID.
	IsGoogleEvent bool   `json:"isGoogleEvent"`
	GoogleID      string `json:"googleId,omitempty"`
}

// Duration returns the event length. Zero for point-in-time events.
func (e CalendarEvent) Duration() time.Duration {
	return e.End.Sub(e.Start)
}

// Merge concatenates locally authored and Google-sourced events into a single
// slice for display and analytics. No de-duplication: the two sets are
// disjoint by construction.
func Merge(local, google []CalendarEvent) []CalendarEvent {
	merged := make([]CalendarEvent, 0, len(local)+len(google))
	merged = append(merged, local...)
	merged = append(merged, google...)
	return merged
}
