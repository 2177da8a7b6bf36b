package gcal

import (
	"context"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"daybook/internal/config"
)

func testLog() *logrus.Entry {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logrus.NewEntry(logger)
}

// fakeLibrary is a Library whose init outcome is scripted per call.
type fakeLibrary struct {
	name    string
	calls   int
	initFn  func(call int) error
	blockFn func(ctx context.Context) error
}

func (f *fakeLibrary) Name() string { return f.name }

func (f *fakeLibrary) Init(ctx context.Context, cfg config.Config) error {
	f.calls++
	if f.blockFn != nil {
		return f.blockFn(ctx)
	}
	if f.initFn != nil {
		return f.initFn(f.calls)
	}
	return nil
}

func TestManager_ReadyAfterBothLibrariesInit(t *testing.T) {
	data := &fakeLibrary{name: "data"}
	consent := &fakeLibrary{name: "consent"}
	m := NewManager(testLog(), data, consent)

	if m.Ready() {
		t.Error("expected not ready before initialization")
	}

	if err := m.Initialize(context.Background(), config.Config{ClientID: "id", APIKey: "key"}); err != nil {
		t.Fatalf("Initialize() returned an error: %v", err)
	}

	if !m.Ready() {
		t.Error("expected ready after both libraries initialized")
	}
	if data.calls != 1 || consent.calls != 1 {
		t.Errorf("expected one init call per library, got %d and %d", data.calls, consent.calls)
	}
}

func TestManager_FailingLibraryMeansNotReady(t *testing.T) {
	data := &fakeLibrary{name: "data", initFn: func(int) error { return fmt.Errorf("boom") }}
	consent := &fakeLibrary{name: "consent"}
	m := NewManager(testLog(), data, consent)

	if err := m.Initialize(context.Background(), config.Config{}); err == nil {
		t.Fatal("expected Initialize() to fail")
	}
	if m.Ready() {
		t.Error("expected not ready after a library failed")
	}
}

func TestManager_ReinitializeAfterFailureRunsInFull(t *testing.T) {
	// First attempt fails, second succeeds; a stale "already initialized"
	// flag must not suppress the rerun.
	data := &fakeLibrary{name: "data", initFn: func(call int) error {
		if call == 1 {
			return fmt.Errorf("bad credentials")
		}
		return nil
	}}
	consent := &fakeLibrary{name: "consent"}
	m := NewManager(testLog(), data, consent)

	if err := m.Initialize(context.Background(), config.Config{}); err == nil {
		t.Fatal("expected first Initialize() to fail")
	}
	if err := m.Initialize(context.Background(), config.Config{}); err != nil {
		t.Fatalf("second Initialize() returned an error: %v", err)
	}

	if !m.Ready() {
		t.Error("expected ready after successful re-initialization")
	}
	if data.calls != 2 {
		t.Errorf("expected the data library to be re-run, got %d calls", data.calls)
	}
}

func TestManager_BoundedWait(t *testing.T) {
	stuck := &fakeLibrary{name: "data", blockFn: func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}}
	m := NewManager(testLog(), stuck)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if err := m.Initialize(ctx, config.Config{}); err == nil {
		t.Fatal("expected Initialize() to fail when a library never becomes ready")
	}
	if m.Ready() {
		t.Error("expected not ready after timeout")
	}
}

func TestManager_ResetDiscardsReadiness(t *testing.T) {
	m := NewManager(testLog(), &fakeLibrary{name: "data"}, &fakeLibrary{name: "consent"})

	if err := m.Initialize(context.Background(), config.Config{}); err != nil {
		t.Fatalf("Initialize() returned an error: %v", err)
	}
	m.Reset()

	if m.Ready() {
		t.Error("expected not ready after reset")
	}
}
