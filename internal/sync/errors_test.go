package sync

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"google.golang.org/api/googleapi"

	"daybook/internal/auth"
)

func TestClassify_NotFoundNamesTheCalendar(t *testing.T) {
	err := fmt.Errorf("failed to list events: %w", &googleapi.Error{Code: http.StatusNotFound, Message: "Not Found"})

	serr := Classify(err, "team@example.com")

	if serr.Kind != KindNotFound {
		t.Fatalf("expected KindNotFound, got %v", serr.Kind)
	}
	if !strings.Contains(serr.Message, "team@example.com") {
		t.Errorf("expected the message to name the calendar identifier, got %q", serr.Message)
	}
}

func TestClassify_UnauthorizedIsAuthRequired(t *testing.T) {
	err := fmt.Errorf("failed to list events: %w", &googleapi.Error{Code: http.StatusUnauthorized, Message: "Invalid Credentials"})

	if serr := Classify(err, "primary"); serr.Kind != KindAuthRequired {
		t.Errorf("expected KindAuthRequired, got %v", serr.Kind)
	}
}

func TestClassify_ForbiddenAuthReasonIsAuthRequired(t *testing.T) {
	apiErr := &googleapi.Error{
		Code:   http.StatusForbidden,
		Errors: []googleapi.ErrorItem{{Reason: "authError"}},
	}

	if serr := Classify(apiErr, "primary"); serr.Kind != KindAuthRequired {
		t.Errorf("expected KindAuthRequired, got %v", serr.Kind)
	}
}

func TestClassify_NoTokenIsAuthRequired(t *testing.T) {
	if serr := Classify(ErrNoToken, "primary"); serr.Kind != KindAuthRequired {
		t.Errorf("expected KindAuthRequired, got %v", serr.Kind)
	}
}

func TestClassify_ConsentBlocked(t *testing.T) {
	err := fmt.Errorf("%w: could not open the browser", auth.ErrConsentBlocked)

	if serr := Classify(err, "primary"); serr.Kind != KindConsentBlocked {
		t.Errorf("expected KindConsentBlocked, got %v", serr.Kind)
	}
}

func TestClassify_SubstringFallback(t *testing.T) {
	// No structured code available; the centralized substring table is the
	// last resort.
	cases := []struct {
		err  error
		want ErrorKind
	}{
		{errors.New("Requested entity was not found"), KindNotFound},
		{errors.New("oauth2: \"invalid_grant\""), KindAuthRequired},
		{errors.New("Login Required"), KindAuthRequired},
		{errors.New("popup window closed by the host"), KindConsentBlocked},
	}

	for _, tc := range cases {
		if serr := Classify(tc.err, "primary"); serr.Kind != tc.want {
			t.Errorf("Classify(%q) = %v, want %v", tc.err, serr.Kind, tc.want)
		}
	}
}

func TestClassify_GenericCarriesMessageVerbatim(t *testing.T) {
	err := errors.New("backend quota exceeded for project")

	serr := Classify(err, "primary")

	if serr.Kind != KindGeneric {
		t.Fatalf("expected KindGeneric, got %v", serr.Kind)
	}
	if serr.Message != err.Error() {
		t.Errorf("expected the underlying message verbatim, got %q", serr.Message)
	}
}

func TestClassify_NilIsNil(t *testing.T) {
	if serr := Classify(nil, "primary"); serr != nil {
		t.Errorf("expected nil for nil error, got %v", serr)
	}
}
