package app

import (
	"context"
	"log/slog"
	"sync"

	"go.aimuz.me/nexus/internal/types"
	"go.aimuz.me/nexus/live"
)

// ConnectorFunc builds the transport for a new live session.
type ConnectorFunc func(ctx context.Context) (live.Connector, error)

// LiveAdapter manages live sessions on one capture device.
type LiveAdapter struct {
	mu      sync.Mutex
	manager *live.Manager
	cfg     live.Config
	connect ConnectorFunc
	opts    live.Options
}

// NewLiveAdapter creates a LiveAdapter. opts.Connector is ignored; each
// session gets a fresh one from connect.
func NewLiveAdapter(cfg live.Config, connect ConnectorFunc, opts live.Options) *LiveAdapter {
	if cfg.Device == "" {
		cfg.Device = live.DefaultDevice
	}
	return &LiveAdapter{
		manager: live.NewManager(),
		cfg:     cfg,
		connect: connect,
		opts:    opts,
	}
}

// Start begins a new session, stopping any existing one first.
func (la *LiveAdapter) Start(ctx context.Context) (*live.Session, error) {
	la.mu.Lock()
	defer la.mu.Unlock()

	s, err := la.newSession(ctx)
	if err != nil {
		return nil, err
	}
	if err := la.manager.Start(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}

// Toggle stops the running session, or starts a new one when none is
// running. It returns the started session, or nil after a stop.
func (la *LiveAdapter) Toggle(ctx context.Context) (*live.Session, error) {
	la.mu.Lock()
	defer la.mu.Unlock()

	var sess *live.Session
	started, err := la.manager.Toggle(ctx, la.cfg.Device, func() (*live.Session, error) {
		s, err := la.newSession(ctx)
		sess = s
		return s, err
	})
	if err != nil || !started {
		return nil, err
	}
	return sess, nil
}

// Stop stops the running session.
func (la *LiveAdapter) Stop() error {
	return la.manager.Stop(la.cfg.Device)
}

// StopAll stops every session.
func (la *LiveAdapter) StopAll() {
	la.manager.StopAll()
}

// Status returns the current status, safe for concurrent access.
func (la *LiveAdapter) Status() types.LiveStatus {
	return la.manager.Status(la.cfg.Device)
}

func (la *LiveAdapter) newSession(ctx context.Context) (*live.Session, error) {
	connector, err := la.connect(ctx)
	if err != nil {
		return nil, err
	}
	opts := la.opts
	opts.Connector = connector
	return live.NewSession(la.cfg, opts)
}

// ForwardEvents forwards all events from s to emit.
// Blocks until the session ends. Should be called in a goroutine.
func (la *LiveAdapter) ForwardEvents(s *live.Session, emit Emitter) {
	if s == nil {
		return
	}

	var wg sync.WaitGroup

	wg.Go(func() {
		for entry := range s.Transcripts() {
			emit(EventLiveTranscript, entry)
		}
	})

	wg.Go(func() {
		for st := range s.Statuses() {
			emit(EventLiveStatus, st)
		}
	})

	wg.Go(func() {
		for a := range s.Activity() {
			emit(EventLiveVAD, a)
		}
	})

	wg.Go(func() {
		for err := range s.Errors() {
			slog.Error("live session error", "session", s.ID(), "error", err)
			emit(EventLiveError, err)
		}
	})
	wg.Wait()
}
