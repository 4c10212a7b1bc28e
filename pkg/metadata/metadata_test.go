package metadata

import (
	"context"
	"testing"
	"time"

	"github.com/meerkat-commensal/corral/pkg/coordinator"
	"github.com/meerkat-commensal/corral/pkg/eventbus"
)

func TestSplitLifecycle(t *testing.T) {
	cases := []struct {
		raw         string
		wantTyp     string
		wantProduct string
		wantOK      bool
	}{
		{"configure:array_1", "configure", "array_1", true},
		{"deconfigure:array_1", "deconfigure", "array_1", true},
		{"conf_complete:array_1", "conf_complete", "array_1", true},
		{"malformed", "", "", false},
		{"configure:", "", "", false},
	}
	for _, tc := range cases {
		typ, productID, ok := splitLifecycle(tc.raw)
		if ok != tc.wantOK || typ != tc.wantTyp || productID != tc.wantProduct {
			t.Errorf("splitLifecycle(%q) = (%q, %q, %v), want (%q, %q, %v)",
				tc.raw, typ, productID, ok, tc.wantTyp, tc.wantProduct, tc.wantOK)
		}
	}
}

type fakeDialer struct {
	conn *fakeConn
	err  error
}

func (d *fakeDialer) Dial(string) (Conn, error) {
	if d.err != nil {
		return nil, d.err
	}
	return d.conn, nil
}

func TestFetcherRun_ConfigureOpensSessionAndDeconfigureStopsIt(t *testing.T) {
	conn := newFakeConn(
		sensorUpdate{Name: "array_1_script_status", Value: "busy", Status: "nominal"},
	)
	// The single busy script_status frame keeps the session open; after it
	// the session blocks on read until deconfigure cancels it and closes
	// the connection - the test only needs the session to start.

	store := newFakeStore()
	bus := eventbus.NewMemoryBus()
	lifecycleSub, _ := bus.Subscribe(coordinator.SubjectLifecycle)

	cfg := Config{Retry: RetryConfig{Attempts: 1, BaseTimeout: 10 * time.Millisecond, Factor: 1}}
	fetcher := NewFetcher(cfg, &fakeDialer{conn: conn}, store, bus)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	runDone := make(chan error, 1)
	go func() { runDone <- fetcher.Run(ctx) }()

	if err := bus.Publish(coordinator.SubjectLifecycle, []byte("configure:array_1")); err != nil {
		t.Fatalf("publish configure: %v", err)
	}

	var sawConfComplete bool
	deadline := time.After(500 * time.Millisecond)
	for !sawConfComplete {
		select {
		case msg := <-lifecycleSub.C:
			if string(msg.Data) == "conf_complete:array_1" {
				sawConfComplete = true
			}
		case <-deadline:
			t.Fatal("timed out waiting for conf_complete")
		}
	}

	if _, exists := fetcher.sessions.Load("array_1"); !exists {
		t.Error("expected an active session for array_1")
	}

	if err := bus.Publish(coordinator.SubjectLifecycle, []byte("deconfigure:array_1")); err != nil {
		t.Fatalf("publish deconfigure: %v", err)
	}

	deadline = time.After(500 * time.Millisecond)
	for {
		if _, exists := fetcher.sessions.Load("array_1"); !exists {
			break
		}
		select {
		case <-deadline:
			t.Fatal("timed out waiting for session teardown")
		case <-time.After(10 * time.Millisecond):
		}
	}

	cancel()
	select {
	case <-runDone:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after context cancellation")
	}
}

func TestFetcherStartSession_DialFailureIsNonFatal(t *testing.T) {
	store := newFakeStore()
	bus := eventbus.NewMemoryBus()
	cfg := Config{Retry: DefaultRetryConfig()}
	fetcher := NewFetcher(cfg, &fakeDialer{err: context.DeadlineExceeded}, store, bus)

	fetcher.startSession(context.Background(), "array_1")

	if _, exists := fetcher.sessions.Load("array_1"); exists {
		t.Error("no session should be tracked after a dial failure")
	}
}
