package sync

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/api/googleapi"

	"daybook/internal/auth"
)

// ErrorKind classifies a sync failure for recovery and display.
type ErrorKind int

const (
	// KindGeneric carries the underlying message verbatim for diagnostics.
	KindGeneric ErrorKind = iota
	// KindNotFound means the calendar identifier does not resolve to a
	// resource the user can read.
	KindNotFound
	// KindAuthRequired means the credential is missing or was rejected; the
	// user must re-consent before retrying.
	KindAuthRequired
	// KindConsentBlocked means the consent prompt itself could not be shown.
	KindConsentBlocked
)

func (k ErrorKind) String() string {
	switch k {
	case KindNotFound:
		return "not-found"
	case KindAuthRequired:
		return "auth-required"
	case KindConsentBlocked:
		return "consent-blocked"
	default:
		return "generic"
	}
}

// SyncError is a classified fetch failure. It is transient: held for user
// display only, never persisted.
type SyncError struct {
	Kind    ErrorKind
	Message string
}

func (e *SyncError) Error() string { return e.Message }

// Engine precondition sentinels.
var (
	// ErrNotReady means a fetch was attempted before the provider libraries
	// completed initialization. This is a programming error in the caller.
	ErrNotReady = errors.New("provider libraries are not ready")
	// ErrNoToken means the local check found no usable consent token.
	ErrNoToken = errors.New("no consent token is held")
)

func notFoundError(calendarID string) *SyncError {
	return &SyncError{
		Kind:    KindNotFound,
		Message: fmt.Sprintf("calendar %q was not found; check the calendar identifier in your settings", calendarID),
	}
}

func authRequiredError() *SyncError {
	return &SyncError{
		Kind:    KindAuthRequired,
		Message: "the stored credential was rejected; sign in again to continue syncing",
	}
}

// Classify maps a raw failure onto the error taxonomy. Structured googleapi
// status codes are preferred; the substring table below is a last resort,
// kept in this one place because the provider does not guarantee message
// text.
func Classify(err error, calendarID string) *SyncError {
	if err == nil {
		return nil
	}

	if errors.Is(err, auth.ErrConsentBlocked) {
		return &SyncError{
			Kind:    KindConsentBlocked,
			Message: "the consent window was blocked before it could be shown; allow popups for this application and retry",
		}
	}
	if errors.Is(err, ErrNoToken) {
		return &SyncError{
			Kind:    KindAuthRequired,
			Message: "sign-in is required before events can be fetched",
		}
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusNotFound, http.StatusGone:
			return notFoundError(calendarID)
		case http.StatusUnauthorized:
			return authRequiredError()
		case http.StatusForbidden:
			for _, item := range apiErr.Errors {
				if item.Reason == "authError" || item.Reason == "insufficientPermissions" {
					return authRequiredError()
				}
			}
		}
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "not found"), strings.Contains(msg, "notfound"):
		return notFoundError(calendarID)
	case strings.Contains(msg, "invalid credentials"),
		strings.Contains(msg, "login required"),
		strings.Contains(msg, "invalid_grant"),
		strings.Contains(msg, "unauthorized"):
		return authRequiredError()
	case strings.Contains(msg, "popup"), strings.Contains(msg, "blocked"):
		return &SyncError{
			Kind:    KindConsentBlocked,
			Message: "the consent window was blocked before it could be shown; allow popups for this application and retry",
		}
	}

	return &SyncError{Kind: KindGeneric, Message: err.Error()}
}
