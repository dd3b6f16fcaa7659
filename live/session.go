package live

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"go.aimuz.me/nexus/audiocapture"
	"go.aimuz.me/nexus/internal/metrics"
	"go.aimuz.me/nexus/internal/types"
	"go.aimuz.me/nexus/pcm"
	"go.aimuz.me/nexus/playback"
)

// Options supplies the collaborators of a Session. Only Connector is required.
type Options struct {
	Connector  Connector
	NewCapture func(audiocapture.Config) (audiocapture.Capturer, error)
	NewOutput  func(pcm.Format) (playback.Output, error)
	Metrics    *metrics.Live
	Logger     *slog.Logger
}

// DeviceOutput opens the default speaker.
func DeviceOutput(format pcm.Format) (playback.Output, error) {
	out, err := playback.NewDeviceOutput(format)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// MutedOutput returns a wall-clock output that discards audio.
func MutedOutput(format pcm.Format) (playback.Output, error) {
	return playback.NewVirtualOutput(format, 0), nil
}

// Session is one live voice interaction. It is single-use: once stopped it
// cannot be restarted.
type Session struct {
	id         string
	cfg        Config
	opts       Options
	log        *slog.Logger
	transcript *TranscriptLog

	mu        sync.Mutex
	state     State
	status    string
	used      bool
	cancel    context.CancelFunc
	startedAt time.Time
	active    int // mirror of sched.Active for Status
	seq       int

	// Set up by Start, then owned by the event loop.
	conn    Conn
	capture audiocapture.Capturer
	output  playback.Output
	sched   *playback.Scheduler

	events chan event
	ended  endedQueue
	frames chan []int16
	done   chan struct{}
	sender sync.WaitGroup

	sent    atomic.Int64
	dropped atomic.Int64

	vad      *audiocapture.VAD // capture thread only
	speaking bool              // guarded by mu
	closed   bool              // observers closed; guarded by mu

	transcripts chan types.TranscriptEntry
	statuses    chan types.LiveStatus
	errs        chan error
	activity    chan types.VoiceActivity
	finishOnce  sync.Once
}

// NewSession prepares a Session. No resources are acquired until Start.
func NewSession(cfg Config, opts Options) (*Session, error) {
	if opts.Connector == nil {
		return nil, ErrNoConnector
	}
	if opts.NewCapture == nil {
		opts.NewCapture = audiocapture.New
	}
	if opts.NewOutput == nil {
		opts.NewOutput = DeviceOutput
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	cfg = cfg.withDefaults()

	id := uuid.NewString()
	return &Session{
		id:          id,
		cfg:         cfg,
		opts:        opts,
		log:         opts.Logger.With("session", id),
		transcript:  NewTranscriptLog(cfg.TranscriptCapacity),
		status:      StatusIdle,
		events:      make(chan event, 64),
		ended:       endedQueue{signal: make(chan struct{}, 1)},
		frames:      make(chan []int16, cfg.SendQueue),
		done:        make(chan struct{}),
		transcripts: make(chan types.TranscriptEntry, 32),
		statuses:    make(chan types.LiveStatus, 16),
		errs:        make(chan error, 8),
		activity:    make(chan types.VoiceActivity, 8),
		vad:         audiocapture.NewDefaultVAD(cfg.InputFormat),
	}, nil
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Config returns the effective configuration.
func (s *Session) Config() Config { return s.cfg }

// Transcripts delivers each transcript fragment as it is appended.
func (s *Session) Transcripts() <-chan types.TranscriptEntry { return s.transcripts }

// Statuses delivers a snapshot on every state change.
func (s *Session) Statuses() <-chan types.LiveStatus { return s.statuses }

// Errors delivers setup and remote failures.
func (s *Session) Errors() <-chan error { return s.errs }

// Activity delivers local speech start and end as seen on the microphone.
func (s *Session) Activity() <-chan types.VoiceActivity { return s.activity }

// Done is closed once the session has released all resources.
func (s *Session) Done() <-chan struct{} { return s.done }

// Transcript returns the bounded transcript, oldest first.
func (s *Session) Transcript() []types.TranscriptEntry {
	return s.transcript.Entries()
}

// State returns the current connection state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Status returns a snapshot of the session.
func (s *Session) Status() types.LiveStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.statusLocked()
}

func (s *Session) statusLocked() types.LiveStatus {
	st := types.LiveStatus{
		SessionID:       s.id,
		State:           s.state.String(),
		Status:          s.status,
		Active:          s.state == StateConnecting || s.state == StateListening,
		StartedAt:       s.startedAt,
		TranscriptCount: s.transcript.Len(),
		UserSpeaking:    s.speaking,
		ActiveChunks:    s.active,
		FramesSent:      s.sent.Load(),
		FramesDropped:   s.dropped.Load(),
	}
	if st.Active {
		st.Duration = time.Since(s.startedAt)
	}
	return st
}

// Start acquires the speaker, the microphone and the remote connection, in
// that order. It returns once the connection is open; the session moves to
// Listening when the endpoint reports ready. Cancelling ctx tears the session
// down like Stop.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.used {
		s.mu.Unlock()
		return ErrSessionUsed
	}
	s.used = true
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.startedAt = time.Now()
	s.setStateLocked(StateConnecting, StatusInitializing)
	s.mu.Unlock()

	s.publishStatus()
	s.opts.Metrics.SessionStarted()
	s.log.Info("live session starting", "model", s.cfg.Model, "voice", s.cfg.Voice, "device", s.cfg.Device)

	if err := s.acquire(ctx); err != nil {
		stopped := ctx.Err() != nil
		cancel()
		s.release()
		s.fail(err, stopped)
		return err
	}

	conn := s.conn
	s.sender.Go(func() { s.sendLoop(ctx, conn) })
	go s.run(ctx)
	return nil
}

// Stop tears the session down and waits until every resource is released.
// It never waits on the remote endpoint, so it also serves to force-close an
// unresponsive session. Stop is idempotent and safe from any goroutine; on a
// session that was never started it does nothing.
func (s *Session) Stop() error {
	s.mu.Lock()
	if !s.used {
		s.mu.Unlock()
		return nil
	}
	cancel := s.cancel
	s.mu.Unlock()

	cancel()
	<-s.done

	s.mu.Lock()
	if s.state == StateError {
		s.setStateLocked(StateIdle, StatusIdle)
	}
	s.mu.Unlock()
	return nil
}

func (s *Session) acquire(ctx context.Context) error {
	out, err := s.opts.NewOutput(s.cfg.OutputFormat)
	if err != nil {
		return fmt.Errorf("open speaker: %w", err)
	}
	s.output = out
	s.sched = playback.NewScheduler(out, s.cfg.OutputFormat, s.ended.push)

	capture, err := s.opts.NewCapture(audiocapture.Config{
		Format:       s.cfg.InputFormat,
		FrameSamples: s.cfg.FrameSamples,
	})
	if err != nil {
		return fmt.Errorf("acquire microphone: %w", err)
	}
	s.capture = capture

	conn, err := s.opts.Connector.Connect(ctx, s.cfg, remote{s})
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	s.conn = conn
	return nil
}

// release closes the remote connection, the microphone and the speaker, in
// that order. Safe on partially acquired sessions.
func (s *Session) release() {
	if s.conn != nil {
		if err := s.conn.Close(); err != nil {
			s.log.Warn("close remote session", "error", err)
		}
		s.conn = nil
	}
	if s.capture != nil {
		if err := s.capture.Stop(); err != nil {
			s.log.Warn("release microphone", "error", err)
		}
		s.capture = nil
	}
	if s.sched != nil {
		if err := s.sched.Close(); err != nil {
			s.log.Warn("close speaker", "error", err)
		}
		s.sched = nil
		s.output = nil
	} else if s.output != nil {
		if err := s.output.Close(); err != nil {
			s.log.Warn("close speaker", "error", err)
		}
		s.output = nil
	}
}

func (s *Session) fail(err error, stopped bool) {
	state, status, outcome := StateError, StatusConnectFailed, "connect_failed"
	if stopped {
		state, status, outcome = StateIdle, StatusClosed, "stopped"
	}

	s.mu.Lock()
	s.setStateLocked(state, status)
	started := s.startedAt
	s.mu.Unlock()

	if stopped {
		s.log.Info("live session cancelled during setup", "error", err)
	} else {
		s.log.Error("live session failed to start", "error", err)
		s.emitError(err)
	}
	s.opts.Metrics.SessionEnded(outcome, time.Since(started))
	s.publishStatus()
	s.finish()
}

// ─────────────────────────────────────────────────────────────────────────────
// Event loop
// ─────────────────────────────────────────────────────────────────────────────

func (s *Session) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			s.teardown(StateIdle, StatusClosed, "stopped", nil)
			return
		case <-s.ended.signal:
			s.releaseEnded()
		case ev := <-s.events:
			if s.handle(ev) {
				return
			}
		}
	}
}

// handle processes one remote event and reports whether the session ended.
func (s *Session) handle(ev event) bool {
	switch ev.kind {
	case evOpen:
		return s.handleOpen()
	case evMessage:
		s.handleMessage(ev.msg)
	case evError:
		s.log.Error("live session error", "error", ev.err)
		s.teardown(StateIdle, StatusError, "remote_error", ev.err)
		return true
	case evClose:
		s.log.Info("live session closed by remote", "reason", ev.reason)
		s.teardown(StateIdle, StatusClosed, "remote_closed", fmt.Errorf("%w: %s", ErrRemoteClosed, ev.reason))
		return true
	}
	return false
}

func (s *Session) handleOpen() bool {
	if s.State() != StateConnecting {
		return false
	}
	if err := s.capture.Start(s.onFrame); err != nil {
		s.log.Error("start microphone", "error", err)
		s.teardown(StateError, StatusError, "capture_failed", fmt.Errorf("start microphone: %w", err))
		return true
	}

	s.mu.Lock()
	s.setStateLocked(StateListening, StatusListening)
	s.mu.Unlock()
	s.publishStatus()
	s.log.Info("live session listening")
	return false
}

// handleMessage applies transcript, audio and interruption in that order.
func (s *Session) handleMessage(msg ServerMessage) {
	if msg.OutputTranscription != "" {
		s.appendTranscript(msg.OutputTranscription)
	}
	for _, data := range msg.Audio {
		s.playAudio(data)
	}
	if msg.Interrupted {
		s.interrupt()
	}
	if msg.TurnComplete {
		s.log.Debug("model turn complete", "active_chunks", s.sched.Active())
	}
}

func (s *Session) appendTranscript(text string) {
	s.mu.Lock()
	s.seq++
	seq := s.seq
	s.mu.Unlock()

	e := types.TranscriptEntry{
		Seq:       seq,
		Speaker:   types.SpeakerAI,
		Text:      text,
		Timestamp: time.Now().UnixMilli(),
	}
	s.transcript.Append(e)
	s.opts.Metrics.TranscriptAppended()

	select {
	case s.transcripts <- e:
	default:
		s.log.Debug("transcript observer full, fragment not delivered", "seq", seq)
	}
}

func (s *Session) playAudio(data []byte) {
	samples := pcm.Decode(data)
	if len(samples) == 0 {
		return
	}
	chunk, err := s.sched.Schedule(samples)
	if err != nil {
		s.log.Warn("schedule audio", "error", err)
		return
	}
	active := s.setActive()
	s.opts.Metrics.ChunkScheduled(chunk.Duration, active)
	s.log.Debug("audio chunk scheduled", "chunk", chunk.ID, "start", chunk.Start, "duration", chunk.Duration)
}

func (s *Session) interrupt() {
	n := s.sched.Interrupt()
	s.opts.Metrics.ChunksChanged(s.setActive())
	s.opts.Metrics.Interrupted()
	s.log.Debug("playback interrupted", "stopped", n)
}

func (s *Session) releaseEnded() {
	if s.sched == nil {
		return
	}
	for _, id := range s.ended.drain() {
		s.sched.Release(id)
	}
	s.opts.Metrics.ChunksChanged(s.setActive())
}

func (s *Session) setActive() int {
	n := s.sched.Active()
	s.mu.Lock()
	s.active = n
	s.mu.Unlock()
	return n
}

// teardown runs on the event loop and leaves the session in final.
func (s *Session) teardown(final State, status, outcome string, err error) {
	s.mu.Lock()
	s.setStateLocked(StateClosing, s.status)
	cancel := s.cancel
	s.mu.Unlock()

	cancel()
	s.release()
	s.sender.Wait()

	s.mu.Lock()
	s.active = 0
	s.setStateLocked(final, status)
	started := s.startedAt
	s.mu.Unlock()

	s.opts.Metrics.ChunksChanged(0)
	s.opts.Metrics.SessionEnded(outcome, time.Since(started))
	if err != nil {
		s.emitError(err)
	}
	s.publishStatus()
	s.log.Info("live session ended", "outcome", outcome, "duration", time.Since(started).Round(time.Millisecond))
	s.finish()
}

func (s *Session) finish() {
	s.finishOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.speaking = false
		close(s.activity)
		s.mu.Unlock()
		close(s.transcripts)
		close(s.statuses)
		close(s.errs)
		close(s.done)
	})
}

// ─────────────────────────────────────────────────────────────────────────────
// Outbound audio
// ─────────────────────────────────────────────────────────────────────────────

// onFrame runs on the capture thread and never blocks.
func (s *Session) onFrame(frame []int16) {
	s.opts.Metrics.FrameCaptured()
	if ev, level := s.vad.Process(frame); ev != audiocapture.VADNone {
		s.setSpeaking(ev == audiocapture.VADSpeechStart, level)
	}
	select {
	case s.frames <- frame:
	default:
		s.dropped.Add(1)
		s.opts.Metrics.FrameDropped("queue_full")
	}
}

func (s *Session) setSpeaking(speaking bool, level float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.speaking = speaking
	select {
	case s.activity <- types.VoiceActivity{Speaking: speaking, Level: level, Timestamp: time.Now().UnixMilli()}:
	default:
	}
}

// sendLoop forwards frames in capture order. A failed send drops the frame.
func (s *Session) sendLoop(ctx context.Context, conn Conn) {
	mime := s.cfg.InputFormat.MIMEType()
	for {
		select {
		case <-ctx.Done():
			return
		case frame := <-s.frames:
			err := conn.SendAudio(ctx, Blob{MIMEType: mime, Data: pcm.Encode(frame)})
			if err != nil {
				s.dropped.Add(1)
				s.opts.Metrics.FrameDropped("send_failed")
				s.log.Debug("drop audio frame", "error", err)
				continue
			}
			s.opts.Metrics.FrameSent()
			if n := s.sent.Add(1); n%100 == 0 {
				s.log.Debug("audio frames sent", "count", n)
			}
		}
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────────────────────────────────────────

func (s *Session) setStateLocked(state State, status string) {
	s.state = state
	s.status = status
}

func (s *Session) publishStatus() {
	st := s.Status()
	select {
	case s.statuses <- st:
	default:
	}
}

func (s *Session) emitError(err error) {
	select {
	case s.errs <- err:
	default:
	}
}

func (s *Session) post(ev event) {
	select {
	case s.events <- ev:
	case <-s.done:
	}
}

type eventKind int

const (
	evOpen eventKind = iota
	evMessage
	evError
	evClose
)

type event struct {
	kind   eventKind
	msg    ServerMessage
	err    error
	reason string
}

// remote adapts transport callbacks into loop events.
type remote struct{ s *Session }

func (r remote) OnOpen()                     { r.s.post(event{kind: evOpen}) }
func (r remote) OnMessage(msg ServerMessage) { r.s.post(event{kind: evMessage, msg: msg}) }
func (r remote) OnError(err error)           { r.s.post(event{kind: evError, err: err}) }
func (r remote) OnClose(reason string)       { r.s.post(event{kind: evClose, reason: reason}) }

// endedQueue carries playback completions from output goroutines to the
// event loop without blocking either side.
type endedQueue struct {
	mu     sync.Mutex
	ids    []uint64
	signal chan struct{}
}

func (q *endedQueue) push(id uint64) {
	q.mu.Lock()
	q.ids = append(q.ids, id)
	q.mu.Unlock()
	select {
	case q.signal <- struct{}{}:
	default:
	}
}

func (q *endedQueue) drain() []uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	ids := q.ids
	q.ids = nil
	return ids
}
