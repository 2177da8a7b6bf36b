package gcal

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"daybook/internal/config"
)

// Library is one of the provider client libraries the integration depends
// on. Each has its own asynchronous initialization; the integration needs
// two, one for data access and one for consent.
type Library interface {
	Name() string
	Init(ctx context.Context, cfg config.Config) error
}

// defaultInitTimeout bounds the wait for the provider libraries.
const defaultInitTimeout = 30 * time.Second

// readyJoin records which prerequisite libraries have completed their
// initialization. Ready means the pending set is empty.
type readyJoin struct {
	pending map[string]struct{}
}

func newReadyJoin(libraries []Library) *readyJoin {
	pending := make(map[string]struct{}, len(libraries))
	for _, lib := range libraries {
		pending[lib.Name()] = struct{}{}
	}
	return &readyJoin{pending: pending}
}

// Manager tracks readiness of the provider client libraries and exposes a
// single Ready signal. A fresh join is created for every Initialize call, so
// a later re-configuration can never observe a stale "already initialized"
// flag.
type Manager struct {
	libraries []Library
	timeout   time.Duration
	log       *logrus.Entry

	mu   sync.Mutex
	join *readyJoin
}

// NewManager creates a Manager over the given libraries.
func NewManager(log *logrus.Entry, libraries ...Library) *Manager {
	return &Manager{libraries: libraries, timeout: defaultInitTimeout, log: log}
}

// Initialize runs every library's initialization and resolves once all have
// completed. It fails if any library errors or does not become ready within
// the bounded wait. Calling it again with new credentials re-runs everything
// from scratch.
func (m *Manager) Initialize(ctx context.Context, cfg config.Config) error {
	join := newReadyJoin(m.libraries)
	m.mu.Lock()
	m.join = join
	m.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	errChan := make(chan error, len(m.libraries))
	for _, lib := range m.libraries {
		go func(lib Library) {
			if err := lib.Init(ctx, cfg); err != nil {
				errChan <- fmt.Errorf("%s library failed to initialize: %w", lib.Name(), err)
				return
			}
			m.mu.Lock()
			if m.join == join {
				delete(join.pending, lib.Name())
			}
			m.mu.Unlock()
			m.log.WithField("library", lib.Name()).Debug("library ready")
			errChan <- nil
		}(lib)
	}

	for range m.libraries {
		select {
		case err := <-errChan:
			if err != nil {
				return err
			}
		case <-ctx.Done():
			return fmt.Errorf("provider libraries did not become ready: %w", ctx.Err())
		}
	}

	return nil
}

// Ready reports whether every library completed the most recent
// initialization.
func (m *Manager) Ready() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.join != nil && len(m.join.pending) == 0
}

// Reset discards readiness, e.g. on disconnect.
func (m *Manager) Reset() {
	m.mu.Lock()
	m.join = nil
	m.mu.Unlock()
}
