package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"

	"daybook/internal/config"
)

// ErrConsentBlocked is reported when the consent prompt could not be shown at
// all: the platform blocked the browser window, or no loopback listener could
// be opened for the redirect. It is distinguishable from the provider
// rejecting the authorization itself.
var ErrConsentBlocked = errors.New("consent prompt was blocked")

// revokeEndpoint is where held tokens are invalidated on sign-out.
const revokeEndpoint = "https://oauth2.googleapis.com/revoke"

// ConsentFlow obtains a token through a user-facing authorization flow. Each
// Authorize call creates its own completion state; no result is smuggled
// through shared mutable slots between invocations.
type ConsentFlow interface {
	Authorize(ctx context.Context, oauthConfig *oauth2.Config) (*oauth2.Token, error)
}

// autoSaveTokenSource wraps an oauth2.TokenSource and persists refreshed tokens.
type autoSaveTokenSource struct {
	source     oauth2.TokenSource
	tokenStore TokenStore
	mu         sync.Mutex
	lastToken  *oauth2.Token
}

// Token implements oauth2.TokenSource and saves the token if it was refreshed.
func (a *autoSaveTokenSource) Token() (*oauth2.Token, error) {
	token, err := a.source.Token()
	if err != nil {
		return nil, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.lastToken == nil || a.lastToken.AccessToken != token.AccessToken {
		if err := a.tokenStore.SaveToken(token); err != nil {
			return nil, fmt.Errorf("failed to save refreshed token: %w", err)
		}
		a.lastToken = token
	}

	return token, nil
}

// Session manages consent-token acquisition, reuse and revocation for the
// Google Calendar integration.
type Session struct {
	store TokenStore
	flow  ConsentFlow
	log   *logrus.Entry

	// revokeURL and revokeClient are swappable for tests.
	revokeURL    string
	revokeClient *http.Client

	mu          sync.Mutex
	oauthConfig *oauth2.Config
	token       *oauth2.Token
}

// NewSession creates a Session. The oauth2 configuration is supplied later
// through Init, when the integration credentials are known.
func NewSession(store TokenStore, flow ConsentFlow, log *logrus.Entry) *Session {
	return &Session{
		store:        store,
		flow:         flow,
		log:          log,
		revokeURL:    revokeEndpoint,
		revokeClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// Name identifies the session as the consent library for lifecycle tracking.
func (s *Session) Name() string { return "consent" }

// Init builds the oauth2 configuration from the saved credentials and loads
// any persisted token. It can be re-run in full after a credentials change;
// nothing from a previous initialization survives.
func (s *Session) Init(ctx context.Context, cfg config.Config) error {
	if cfg.ClientID == "" {
		return fmt.Errorf("client id is required for the consent flow")
	}

	oauthConfig := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Scopes:       []string{calendar.CalendarReadonlyScope},
		Endpoint:     google.Endpoint,
	}

	token, err := s.store.LoadToken()
	if err != nil {
		return fmt.Errorf("failed to load stored token: %w", err)
	}

	s.mu.Lock()
	s.oauthConfig = oauthConfig
	s.token = token
	s.mu.Unlock()

	return nil
}

// RequestConsent runs the user-facing authorization flow and stores the
// resulting token. It must be invoked directly from the user's action: the
// flow opens a browser window, and platforms block windows that are not tied
// to a user gesture. A blocked prompt surfaces as ErrConsentBlocked.
func (s *Session) RequestConsent(ctx context.Context) error {
	s.mu.Lock()
	oauthConfig := s.oauthConfig
	s.mu.Unlock()

	if oauthConfig == nil {
		return fmt.Errorf("consent requested before initialization")
	}

	token, err := s.flow.Authorize(ctx, oauthConfig)
	if err != nil {
		return err
	}

	if err := s.store.SaveToken(token); err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}

	s.mu.Lock()
	s.token = token
	s.mu.Unlock()

	s.log.Info("consent granted")
	return nil
}

// HasValidToken is a best-effort local check. A true result does not
// guarantee the next fetch will succeed; the provider may still reject a
// stale token, and that rejection is authoritative over this check.
func (s *Session) HasValidToken() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.token == nil {
		return false
	}
	return s.token.Valid() || s.token.RefreshToken != ""
}

// TokenSource returns a source that reuses the held token and persists
// refreshed ones.
func (s *Session) TokenSource(ctx context.Context) oauth2.TokenSource {
	s.mu.Lock()
	oauthConfig := s.oauthConfig
	token := s.token
	s.mu.Unlock()

	return &autoSaveTokenSource{
		source:     oauth2.ReuseTokenSource(token, oauthConfig.TokenSource(ctx, token)),
		tokenStore: s.store,
		lastToken:  token,
	}
}

// Invalidate drops the held token locally after the provider has rejected it.
// The next data access requires a fresh consent.
func (s *Session) Invalidate() {
	s.mu.Lock()
	s.token = nil
	s.mu.Unlock()

	if err := s.store.Clear(); err != nil {
		s.log.WithError(err).Warn("failed to clear stored token")
	}
}

// SignOut revokes the held token with the provider and clears local token
// state. Revocation is advisory cleanup: failures are logged, never returned,
// so the user can always disconnect.
func (s *Session) SignOut() {
	s.mu.Lock()
	token := s.token
	s.token = nil
	s.mu.Unlock()

	if token != nil && token.AccessToken != "" {
		if err := s.revoke(token.AccessToken); err != nil {
			s.log.WithError(err).Warn("token revocation failed")
		}
	}

	if err := s.store.Clear(); err != nil {
		s.log.WithError(err).Warn("failed to clear stored token")
	}
}

func (s *Session) revoke(accessToken string) error {
	form := url.Values{"token": {accessToken}}
	resp, err := s.revokeClient.Post(s.revokeURL, "application/x-www-form-urlencoded", strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to reach revocation endpoint: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("revocation endpoint returned HTTP %d", resp.StatusCode)
	}
	return nil
}
