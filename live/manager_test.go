package live

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestManagerStartStopsPrevious(t *testing.T) {
	m := NewManager()
	first := newHarness(t)
	second := newHarness(t)

	if err := m.Start(context.Background(), first.session); err != nil {
		t.Fatalf("Start first: %v", err)
	}
	if err := m.Start(context.Background(), second.session); err != nil {
		t.Fatalf("Start second: %v", err)
	}

	select {
	case <-first.session.Done():
	default:
		t.Fatal("first session still running after second started on the same device")
	}
	if got := m.Active(DefaultDevice); got != second.session {
		t.Fatalf("Active() = %v, want second session", got)
	}
	if first.conn.closeCount() != 1 {
		t.Errorf("first conn closed %d times, want 1", first.conn.closeCount())
	}
}

func TestManagerStop(t *testing.T) {
	m := NewManager()
	h := newHarness(t)

	if err := m.Stop(DefaultDevice); err != nil {
		t.Fatalf("Stop with no session: %v", err)
	}
	if err := m.Start(context.Background(), h.session); err != nil {
		t.Fatal(err)
	}
	if err := m.Stop(DefaultDevice); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if m.Active(DefaultDevice) != nil {
		t.Error("session still active after Stop")
	}
	if st := m.Status(DefaultDevice); st.State != "Idle" {
		t.Errorf("Status().State = %q, want Idle", st.State)
	}
}

func TestManagerForgetsEndedSession(t *testing.T) {
	m := NewManager()
	h := newHarness(t)
	if err := m.Start(context.Background(), h.session); err != nil {
		t.Fatal(err)
	}
	h.connector.remote().OnClose("bye")
	<-h.session.Done()

	if m.Active(DefaultDevice) != nil {
		t.Error("Active() returned a session that closed remotely")
	}
}

func TestManagerToggle(t *testing.T) {
	m := NewManager()
	h := newHarness(t)
	build := func() (*Session, error) { return h.session, nil }

	started, err := m.Toggle(context.Background(), DefaultDevice, build)
	if err != nil || !started {
		t.Fatalf("Toggle on = %v, %v; want started", started, err)
	}
	started, err = m.Toggle(context.Background(), DefaultDevice, build)
	if err != nil || started {
		t.Fatalf("Toggle off = %v, %v; want stopped", started, err)
	}
	if h.session.State() != StateIdle {
		t.Errorf("state = %v, want Idle", h.session.State())
	}

	wantErr := errors.New("no key")
	_, err = m.Toggle(context.Background(), DefaultDevice, func() (*Session, error) { return nil, wantErr })
	if !errors.Is(err, wantErr) {
		t.Errorf("Toggle error = %v, want %v", err, wantErr)
	}
}

func TestManagerStopAll(t *testing.T) {
	m := NewManager()
	h := newHarness(t)
	if err := m.Start(context.Background(), h.session); err != nil {
		t.Fatal(err)
	}
	m.StopAll()
	select {
	case <-h.session.Done():
	default:
		t.Fatal("session running after StopAll")
	}
}

func TestManagerStopWhileConnecting(t *testing.T) {
	m := NewManager()
	h := newHarness(t)
	h.connector.block = true

	started := make(chan error, 1)
	go func() { started <- m.Start(context.Background(), h.session) }()

	waitFor(t, "connecting", func() bool {
		return m.Active(DefaultDevice) == h.session && h.connector.remote() != nil
	})
	if st := m.Status(DefaultDevice); st.State != StateConnecting.String() {
		t.Fatalf("Status().State = %q, want %q", st.State, StateConnecting.String())
	}

	stopped := make(chan error, 1)
	go func() { stopped <- m.Stop(DefaultDevice) }()
	select {
	case err := <-stopped:
		if err != nil {
			t.Fatalf("Stop: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Stop blocked behind a connecting session")
	}

	select {
	case err := <-started:
		if err == nil {
			t.Fatal("Start succeeded after the session was stopped")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return after Stop")
	}
	if m.Active(DefaultDevice) != nil {
		t.Error("stopped session still registered")
	}
	if h.capture.stopCount() != 1 {
		t.Errorf("capture stopped %d times, want 1", h.capture.stopCount())
	}
}

func TestManagerStopAllWhileConnecting(t *testing.T) {
	m := NewManager()
	h := newHarness(t)
	h.connector.block = true

	started := make(chan error, 1)
	go func() { started <- m.Start(context.Background(), h.session) }()
	waitFor(t, "connecting", func() bool { return h.connector.remote() != nil })

	m.StopAll()
	select {
	case err := <-started:
		if err == nil {
			t.Fatal("Start succeeded after StopAll")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return after StopAll")
	}
	select {
	case <-h.session.Done():
	default:
		t.Fatal("session running after StopAll")
	}
}
