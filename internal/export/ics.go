package export

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/emersion/go-ical"

	"daybook/internal/model"
)

// WriteICS writes the merged event list as an iCalendar stream. Both locally
// authored and Google-sourced events are emitted the same way; the source is
// carried in an X- property only.
func WriteICS(w io.Writer, events []model.CalendarEvent) error {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, "-//daybook//EN")

	now := time.Now()
	for _, ev := range events {
		vevent := ical.NewComponent(ical.CompEvent)

		uid := ev.ID
		if uid == "" {
			uid = fmt.Sprintf("%d@daybook", now.UnixNano())
		}
		vevent.Props.SetText(ical.PropUID, uid)
		vevent.Props.SetText(ical.PropSummary, ev.Title)
		if ev.Description != "" {
			vevent.Props.SetText(ical.PropDescription, ev.Description)
		}
		if ev.Location != "" {
			vevent.Props.SetText(ical.PropLocation, ev.Location)
		}
		vevent.Props.SetText(ical.PropCategories, strings.ToUpper(string(ev.Category)))
		if ev.IsGoogleEvent {
			vevent.Props.SetText("X-DAYBOOK-SOURCE", "google")
		} else {
			vevent.Props.SetText("X-DAYBOOK-SOURCE", "local")
		}

		vevent.Props.SetDateTime(ical.PropDateTimeStart, ev.Start)
		vevent.Props.SetDateTime(ical.PropDateTimeEnd, ev.End)
		vevent.Props.SetDateTime(ical.PropDateTimeStamp, now)

		cal.Children = append(cal.Children, vevent)
	}

	if err := ical.NewEncoder(w).Encode(cal); err != nil {
		return fmt.Errorf("failed to encode calendar: %w", err)
	}
	return nil
}
