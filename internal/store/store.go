package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/google/uuid"

	"daybook/internal/model"
)

// Store is the local event store: a keyed collection of locally authored
// events written to durable storage on every mutation. Provider-sourced
// events never enter it; they are mirrored elsewhere and immutable here.
type Store struct {
	path string

	mu     sync.Mutex
	events map[string]model.CalendarEvent
}

// Open loads the store from path, starting empty if the file does not exist.
func Open(path string) (*Store, error) {
	s := &Store{path: path, events: make(map[string]model.CalendarEvent)}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("failed to read event store: %w", err)
	}

	if err := json.Unmarshal(data, &s.events); err != nil {
		return nil, fmt.Errorf("failed to parse event store: %w", err)
	}
	return s, nil
}

// persist writes the whole collection. Caller holds the lock.
func (s *Store) persist() error {
	data, err := json.MarshalIndent(s.events, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal events: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return fmt.Errorf("failed to create store directory: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0600); err != nil {
		return fmt.Errorf("failed to write event store: %w", err)
	}
	return nil
}

func validate(ev model.CalendarEvent) error {
	if ev.IsGoogleEvent {
		return fmt.Errorf("google-sourced events are read-only and cannot enter the local store")
	}
	if ev.Title == "" {
		return fmt.Errorf("event title is required")
	}
	if ev.End.Before(ev.Start) {
		return fmt.Errorf("event end precedes its start")
	}
	return nil
}

// Add stores a new locally authored event, generating an id when absent, and
// returns the stored value.
func (s *Store) Add(ev model.CalendarEvent) (model.CalendarEvent, error) {
	if err := validate(ev); err != nil {
		return model.CalendarEvent{}, err
	}
	if ev.Category == "" {
		ev.Category = model.CategoryOther
	}
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.events[ev.ID]; exists {
		return model.CalendarEvent{}, fmt.Errorf("event %q already exists", ev.ID)
	}
	s.events[ev.ID] = ev

	if err := s.persist(); err != nil {
		delete(s.events, ev.ID)
		return model.CalendarEvent{}, err
	}
	return ev, nil
}

// Update replaces an existing event.
func (s *Store) Update(ev model.CalendarEvent) error {
	if err := validate(ev); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	prev, exists := s.events[ev.ID]
	if !exists {
		return fmt.Errorf("event %q not found", ev.ID)
	}
	s.events[ev.ID] = ev

	if err := s.persist(); err != nil {
		s.events[ev.ID] = prev
		return err
	}
	return nil
}

// Remove deletes an event by id.
func (s *Store) Remove(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, exists := s.events[id]
	if !exists {
		return fmt.Errorf("event %q not found", id)
	}
	delete(s.events, id)

	if err := s.persist(); err != nil {
		s.events[id] = prev
		return err
	}
	return nil
}

// List returns all locally authored events ordered by start time.
func (s *Store) List() []model.CalendarEvent {
	s.mu.Lock()
	defer s.mu.Unlock()

	events := make([]model.CalendarEvent, 0, len(s.events))
	for _, ev := range s.events {
		events = append(events, ev)
	}
	sort.Slice(events, func(i, j int) bool {
		if events[i].Start.Equal(events[j].Start) {
			return events[i].ID < events[j].ID
		}
		return events[i].Start.Before(events[j].Start)
	})
	return events
}
