package sync

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"google.golang.org/api/calendar/v3"

	"daybook/internal/gcal"
	"daybook/internal/model"
)

// EventSource is the slice of the Google Calendar client the engine needs.
// Tests substitute a fake.
type EventSource interface {
	List(ctx context.Context, calendarID string, timeMin, timeMax time.Time) ([]*calendar.Event, error)
}

// Engine performs one time-windowed fetch against the provider and maps
// every returned record through the normalizer. It never retries: retry is a
// deliberate, user-initiated action, so persistent misconfiguration stays
// visible instead of being masked.
type Engine struct {
	source     EventSource
	normalizer *gcal.Normalizer
	ready      func() bool
	hasToken   func() bool
	log        *logrus.Entry
}

// NewEngine creates an Engine. ready and hasToken report the lifecycle and
// session preconditions.
func NewEngine(source EventSource, normalizer *gcal.Normalizer, ready, hasToken func() bool, log *logrus.Entry) *Engine {
	return &Engine{
		source:     source,
		normalizer: normalizer,
		ready:      ready,
		hasToken:   hasToken,
		log:        log,
	}
}

// Fetch issues a single windowed query and normalizes each record.
// Preconditions are checked up front; violating them fails immediately
// without touching the network.
func (e *Engine) Fetch(ctx context.Context, calendarID string, windowStart, windowEnd time.Time) ([]model.CalendarEvent, error) {
	if !e.ready() {
		return nil, ErrNotReady
	}
	if !e.hasToken() {
		return nil, ErrNoToken
	}

	raw, err := e.source.List(ctx, calendarID, windowStart, windowEnd)
	if err != nil {
		return nil, err
	}

	events := make([]model.CalendarEvent, 0, len(raw))
	for _, item := range raw {
		events = append(events, e.normalizer.Normalize(item))
	}

	e.log.WithFields(logrus.Fields{"calendar": calendarID, "count": len(events)}).Info("fetched provider events")
	return events, nil
}
