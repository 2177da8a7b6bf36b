package auth

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os/exec"
	"runtime"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
)

// LoopbackFlow implements ConsentFlow with Google's loopback redirect: it
// starts a local HTTP listener, opens the authorization URL in the user's
// browser and waits for the redirect carrying the authorization code.
type LoopbackFlow struct {
	Log *logrus.Entry

	// OpenBrowser launches the consent URL; replaceable in tests.
	OpenBrowser func(url string) error
}

// NewLoopbackFlow creates a LoopbackFlow using the platform's browser opener.
func NewLoopbackFlow(log *logrus.Entry) *LoopbackFlow {
	return &LoopbackFlow{Log: log, OpenBrowser: openBrowser}
}

// Authorize runs one complete consent round trip. Completion state (listener,
// channels) is created fresh for every invocation.
func (f *LoopbackFlow) Authorize(ctx context.Context, oauthConfig *oauth2.Config) (*oauth2.Token, error) {
	// Try port 8080 first so pre-registered redirect URIs keep working,
	// fall back to a random port.
	listener, err := net.Listen("tcp", "127.0.0.1:8080")
	if err != nil {
		listener, err = net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			return nil, fmt.Errorf("%w: no loopback listener available: %v", ErrConsentBlocked, err)
		}
	}

	port := listener.Addr().(*net.TCPAddr).Port
	codeChan := make(chan string, 1)
	errChan := make(chan error, 1)

	server := &http.Server{
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if code := r.URL.Query().Get("code"); code != "" {
			fmt.Fprint(w, "<html><body><h1>Authorization successful</h1><p>You can close this window.</p></body></html>")
			codeChan <- code
			return
		}
		if errMsg := r.URL.Query().Get("error"); errMsg != "" {
			fmt.Fprintf(w, "<html><body><h1>Authorization failed</h1><p>%s</p></body></html>", errMsg)
			errChan <- fmt.Errorf("authorization error: %s", errMsg)
			return
		}
		fmt.Fprint(w, "<html><body><h1>No authorization code received</h1></body></html>")
		errChan <- fmt.Errorf("no authorization code received")
	})
	server.Handler = mux

	go func() {
		if err := server.Serve(listener); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("callback server error: %w", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	// Copy the config so the caller's RedirectURL is never mutated.
	flowConfig := *oauthConfig
	flowConfig.RedirectURL = fmt.Sprintf("http://127.0.0.1:%d", port)

	authURL := flowConfig.AuthCodeURL("state-token", oauth2.AccessTypeOffline, oauth2.ApprovalForce)
	if err := f.OpenBrowser(authURL); err != nil {
		return nil, fmt.Errorf("%w: could not open the browser: %v", ErrConsentBlocked, err)
	}
	f.Log.Info("waiting for user consent in the browser")

	var code string
	select {
	case code = <-codeChan:
	case err := <-errChan:
		return nil, err
	case <-ctx.Done():
		return nil, fmt.Errorf("consent wait aborted: %w", ctx.Err())
	}

	token, err := flowConfig.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange authorization code: %w", err)
	}
	return token, nil
}

func openBrowser(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	return cmd.Start()
}
