package sync

import (
	"context"
	"fmt"
	"strings"
	stdsync "sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"

	"daybook/internal/config"
	"daybook/internal/gcal"
	"daybook/internal/model"
	"daybook/internal/store"
)

// consentSession is the slice of the auth session the controller drives.
// Session initialization itself runs through the lifecycle manager, which
// holds the session as one of its libraries.
type consentSession interface {
	RequestConsent(ctx context.Context) error
	HasValidToken() bool
	TokenSource(ctx context.Context) oauth2.TokenSource
	Invalidate()
	SignOut()
}

// lifecycleManager tracks provider-library readiness.
type lifecycleManager interface {
	Initialize(ctx context.Context, cfg config.Config) error
	Ready() bool
	Reset()
}

// tokenBinder attaches the consent token source to the data client.
type tokenBinder interface {
	Bind(ctx context.Context, source oauth2.TokenSource) error
}

// Snapshot is the read-only view the UI layer observes.
type Snapshot struct {
	State           State
	IsReady         bool
	IsAuthenticated bool
	IsSyncing       bool
	LastError       *SyncError
	VisibleMonth    time.Time
	ProviderEvents  []model.CalendarEvent
}

// Controller owns the sync state machine, the provider-sourced event set and
// the actions the rest of the application calls. All mutation happens behind
// its lock; callers only ever see snapshots.
type Controller struct {
	settings  *config.Store
	locals    *store.Store
	lifecycle lifecycleManager
	session   consentSession
	binder    tokenBinder
	engine    *Engine
	log       *logrus.Entry

	mu             stdsync.Mutex
	state          State
	lastErr        *SyncError
	providerEvents []model.CalendarEvent
	fetchSeq       uint64
	visibleMonth   time.Time
	cfg            config.Config
}

// NewController wires the sync subsystem together. The visible month starts
// at the current month.
func NewController(settings *config.Store, locals *store.Store, lifecycle lifecycleManager, session consentSession, binder tokenBinder, engine *Engine, log *logrus.Entry) *Controller {
	return &Controller{
		settings:     settings,
		locals:       locals,
		lifecycle:    lifecycle,
		session:      session,
		binder:       binder,
		engine:       engine,
		log:          log,
		state:        StateNotConfigured,
		visibleMonth: firstOfMonth(time.Now()),
	}
}

func firstOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}

// Bootstrap loads the persisted config, applies environment overrides and
// re-runs provider initialization when credentials are present. Without
// credentials the controller stays in NotConfigured.
func (c *Controller) Bootstrap(ctx context.Context) error {
	cfg, err := c.settings.Load()
	if err != nil {
		return err
	}

	envCfg, err := config.FromEnv()
	if err != nil {
		return err
	}
	if envCfg.ClientID != "" {
		cfg.ClientID = envCfg.ClientID
	}
	if envCfg.ClientSecret != "" {
		cfg.ClientSecret = envCfg.ClientSecret
	}
	if envCfg.APIKey != "" {
		cfg.APIKey = envCfg.APIKey
	}
	if envCfg.CalendarID != "" {
		cfg.CalendarID = gcal.ResolveCalendarID(envCfg.CalendarID)
	}

	if !cfg.IsConfigured() {
		c.mu.Lock()
		c.cfg = cfg
		c.state = StateNotConfigured
		c.mu.Unlock()
		return nil
	}

	return c.initialize(ctx, cfg)
}

// SaveConfig resolves the pasted calendar identifier, persists the config
// under its fixed key and re-runs provider initialization from scratch.
func (c *Controller) SaveConfig(ctx context.Context, cfg config.Config) error {
	cfg.CalendarID = gcal.ResolveCalendarID(strings.TrimSpace(cfg.CalendarID))
	if !cfg.IsConfigured() {
		return fmt.Errorf("both a client id and an api key are required")
	}

	if err := c.settings.Save(cfg); err != nil {
		return err
	}
	return c.initialize(ctx, cfg)
}

func (c *Controller) initialize(ctx context.Context, cfg config.Config) error {
	c.mu.Lock()
	c.cfg = cfg
	c.state = StateInitializing
	c.lastErr = nil
	c.mu.Unlock()

	if err := c.lifecycle.Initialize(ctx, cfg); err != nil {
		c.mu.Lock()
		c.state = StateNotConfigured
		c.lastErr = Classify(err, cfg.CalendarOrPrimary())
		c.mu.Unlock()
		return err
	}

	authenticated := c.session.HasValidToken()
	if authenticated {
		if err := c.binder.Bind(ctx, c.session.TokenSource(ctx)); err != nil {
			c.log.WithError(err).Warn("failed to bind stored token to the calendar client")
			authenticated = false
		}
	}

	c.mu.Lock()
	if authenticated {
		c.state = StateAuthenticated
	} else {
		c.state = StateReady
	}
	c.mu.Unlock()

	c.log.WithField("calendar", cfg.CalendarOrPrimary()).Info("provider libraries initialized")
	return nil
}

// Authenticate runs the consent flow. It must be called directly from the
// user's action with no intervening suspension, because the flow opens a
// browser window and platforms block windows not tied to a user gesture.
func (c *Controller) Authenticate(ctx context.Context) error {
	c.mu.Lock()
	if !c.lifecycle.Ready() {
		c.mu.Unlock()
		return fmt.Errorf("configure the integration before signing in")
	}
	c.state = StateAuthenticating
	c.mu.Unlock()

	if err := c.session.RequestConsent(ctx); err != nil {
		serr := Classify(err, c.calendarID())
		c.mu.Lock()
		c.lastErr = serr
		c.state = StateReady
		c.mu.Unlock()
		return err
	}

	if err := c.binder.Bind(ctx, c.session.TokenSource(ctx)); err != nil {
		serr := Classify(err, c.calendarID())
		c.mu.Lock()
		c.lastErr = serr
		c.state = StateReady
		c.mu.Unlock()
		return err
	}

	c.mu.Lock()
	c.state = StateAuthenticated
	c.lastErr = nil
	c.mu.Unlock()
	return nil
}

func (c *Controller) calendarID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cfg.CalendarOrPrimary()
}

// TriggerSync starts a fetch for the visible window. A trigger while a fetch
// is already in flight is a no-op: the in-flight fetch completes and a second
// concurrent fetch for the same window is never started. The returned channel
// closes when the started fetch settles; nil means no fetch was started.
func (c *Controller) TriggerSync(ctx context.Context) <-chan struct{} {
	return c.startFetch(ctx, false)
}

// SetVisibleMonth changes the displayed month. When provider events are
// already being shown or fetched, a superseding fetch for the new window is
// started; a still-in-flight result for the old window is discarded when it
// lands.
func (c *Controller) SetVisibleMonth(ctx context.Context, month time.Time) <-chan struct{} {
	c.mu.Lock()
	m := firstOfMonth(month)
	if m.Equal(c.visibleMonth) {
		c.mu.Unlock()
		return nil
	}
	c.visibleMonth = m
	resync := c.state == StateSyncing || c.state == StateSynced
	c.mu.Unlock()

	if !resync {
		return nil
	}
	return c.startFetch(ctx, true)
}

func (c *Controller) startFetch(ctx context.Context, supersede bool) <-chan struct{} {
	c.mu.Lock()
	if !c.cfg.IsConfigured() || !c.lifecycle.Ready() {
		c.state = StateNotConfigured
		c.mu.Unlock()
		return nil
	}
	if c.state == StateSyncing && !supersede {
		c.mu.Unlock()
		return nil
	}
	if !c.session.HasValidToken() {
		c.lastErr = Classify(ErrNoToken, c.cfg.CalendarOrPrimary())
		c.state = StateAuthenticating
		c.mu.Unlock()
		return nil
	}

	c.fetchSeq++
	seq := c.fetchSeq
	c.state = StateSyncing
	calendarID := c.cfg.CalendarOrPrimary()
	windowStart := c.visibleMonth.AddDate(0, -1, 0)
	windowEnd := c.visibleMonth.AddDate(0, 2, 0)
	c.mu.Unlock()

	done := make(chan struct{})
	go func() {
		defer close(done)
		events, err := c.engine.Fetch(ctx, calendarID, windowStart, windowEnd)
		c.finishFetch(seq, calendarID, events, err)
	}()
	return done
}

func (c *Controller) finishFetch(seq uint64, calendarID string, events []model.CalendarEvent, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if seq != c.fetchSeq {
		// A newer window superseded this fetch; its result must not
		// overwrite the newer one.
		c.log.WithField("calendar", calendarID).Debug("discarding stale fetch result")
		return
	}

	if err != nil {
		serr := Classify(err, calendarID)
		c.lastErr = serr
		if serr.Kind == KindAuthRequired {
			// The provider's verdict is authoritative over the local token
			// check: drop the mirrored events and require a fresh consent.
			c.providerEvents = nil
			c.session.Invalidate()
			c.state = StateAuthenticating
		} else {
			c.state = StateError
		}
		c.log.WithFields(logrus.Fields{"kind": serr.Kind.String(), "calendar": calendarID}).Warn(serr.Message)
		return
	}

	// The provider-sourced set is replaced as a single unit.
	c.providerEvents = events
	c.lastErr = nil
	c.state = StateSynced
}

// Sync triggers a fetch and waits for it to settle. Convenience for callers
// that want synchronous behavior, such as the CLI.
func (c *Controller) Sync(ctx context.Context) error {
	done := c.TriggerSync(ctx)
	if done != nil {
		<-done
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.lastErr != nil {
		return c.lastErr
	}
	if done == nil && c.state == StateNotConfigured {
		return fmt.Errorf("the Google Calendar integration is not configured")
	}
	return nil
}

// Disconnect revokes the session, clears the stored config and discards all
// provider-sourced events. Revocation is advisory; disconnect always
// completes.
func (c *Controller) Disconnect() {
	c.session.SignOut()
	if err := c.settings.Clear(); err != nil {
		c.log.WithError(err).Warn("failed to clear stored config")
	}

	c.mu.Lock()
	c.cfg = config.Config{}
	c.providerEvents = nil
	c.lastErr = nil
	c.fetchSeq++ // any in-flight fetch result is now stale
	c.state = StateNotConfigured
	c.mu.Unlock()

	c.lifecycle.Reset()
	c.log.Info("disconnected from Google Calendar")
}

// DismissError clears the displayed error without altering sync state.
func (c *Controller) DismissError() {
	c.mu.Lock()
	c.lastErr = nil
	c.mu.Unlock()
}

// Snapshot returns the observable state for the UI layer.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	events := make([]model.CalendarEvent, len(c.providerEvents))
	copy(events, c.providerEvents)

	return Snapshot{
		State:           c.state,
		IsReady:         c.lifecycle.Ready(),
		IsAuthenticated: c.session.HasValidToken(),
		IsSyncing:       c.state == StateSyncing,
		LastError:       c.lastErr,
		VisibleMonth:    c.visibleMonth,
		ProviderEvents:  events,
	}
}

// Merged concatenates locally authored events with the provider-sourced set.
// Consumers must not distinguish sources beyond the IsGoogleEvent flag.
func (c *Controller) Merged() []model.CalendarEvent {
	local := c.locals.List()

	c.mu.Lock()
	provider := make([]model.CalendarEvent, len(c.providerEvents))
	copy(provider, c.providerEvents)
	c.mu.Unlock()

	return model.Merge(local, provider)
}
