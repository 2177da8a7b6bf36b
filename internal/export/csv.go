package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"daybook/internal/model"
)

// WriteCSV writes the merged event list as CSV with a header row.
func WriteCSV(w io.Writer, events []model.CalendarEvent) error {
	cw := csv.NewWriter(w)

	header := []string{"id", "title", "description", "start", "end", "category", "location", "source"}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}

	for _, ev := range events {
		source := "local"
		if ev.IsGoogleEvent {
			source = "google"
		}
		record := []string{
			ev.ID,
			ev.Title,
			ev.Description,
			ev.Start.Format(time.RFC3339),
			ev.End.Format(time.RFC3339),
			string(ev.Category),
			ev.Location,
			source,
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write csv record: %w", err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("failed to flush csv: %w", err)
	}
	return nil
}
