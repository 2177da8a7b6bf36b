package gcal

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"daybook/internal/config"
)

// maxResultsPerFetch caps one windowed query. Results beyond the cap are
// truncated; pagination is not attempted.
const maxResultsPerFetch = 250

// Client wraps the Google Calendar API service. It starts in an
// uninitialized state, gains a key-only service during lifecycle
// initialization and is rebound with the user's token source once consent
// has been granted.
type Client struct {
	log *logrus.Entry

	mu      sync.Mutex
	apiKey  string
	service *calendar.Service
}

// NewClient creates an unbound Client.
func NewClient(log *logrus.Entry) *Client {
	return &Client{log: log}
}

// Name identifies the client as the data-access library for lifecycle
// tracking.
func (c *Client) Name() string { return "calendar-data" }

// Init builds the base service from the configured API key. Re-running it
// with new credentials replaces the service wholesale.
func (c *Client) Init(ctx context.Context, cfg config.Config) error {
	if cfg.APIKey == "" {
		return fmt.Errorf("api key is required")
	}

	service, err := calendar.NewService(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return fmt.Errorf("failed to create calendar service: %w", err)
	}

	c.mu.Lock()
	c.apiKey = cfg.APIKey
	c.service = service
	c.mu.Unlock()

	return nil
}

// Bind rebuilds the service around the user's token source so subsequent
// fetches run with their consent credentials.
func (c *Client) Bind(ctx context.Context, source oauth2.TokenSource) error {
	service, err := calendar.NewService(ctx, option.WithTokenSource(source))
	if err != nil {
		return fmt.Errorf("failed to create authenticated calendar service: %w", err)
	}

	c.mu.Lock()
	c.service = service
	c.mu.Unlock()

	return nil
}

// List performs one windowed events query. The provider pre-expands
// recurring events to single instances, excludes soft-deleted instances and
// orders by start time; results are capped at maxResultsPerFetch.
func (c *Client) List(ctx context.Context, calendarID string, timeMin, timeMax time.Time) ([]*calendar.Event, error) {
	c.mu.Lock()
	service := c.service
	c.mu.Unlock()

	if service == nil {
		return nil, fmt.Errorf("calendar client is not initialized")
	}

	events, err := service.Events.List(calendarID).
		TimeMin(timeMin.Format(time.RFC3339)).
		TimeMax(timeMax.Format(time.RFC3339)).
		SingleEvents(true).
		ShowDeleted(false).
		OrderBy("startTime").
		MaxResults(maxResultsPerFetch).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}

	c.log.WithFields(logrus.Fields{"calendar": calendarID, "count": len(events.Items)}).Debug("listed events")
	return events.Items, nil
}
