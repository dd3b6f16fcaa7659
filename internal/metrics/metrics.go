// Package metrics exposes Prometheus instrumentation for live sessions.
package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Live holds the counters updated by live sessions. A nil *Live is valid and
// records nothing.
type Live struct {
	registry *prometheus.Registry

	SessionsTotal   *prometheus.CounterVec
	SessionsActive  prometheus.Gauge
	SessionDuration prometheus.Histogram

	FramesCaptured prometheus.Counter
	FramesSent     prometheus.Counter
	FramesDropped  *prometheus.CounterVec

	ChunksScheduled prometheus.Counter
	ChunksActive    prometheus.Gauge
	AudioSeconds    prometheus.Counter
	Interruptions   prometheus.Counter
	Transcripts     prometheus.Counter
}

// NewLive creates a Live with all collectors registered on a private registry.
func NewLive(namespace string) *Live {
	if namespace == "" {
		namespace = "nexus"
	}
	reg := prometheus.NewRegistry()

	m := &Live{
		registry: reg,
		SessionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "live",
			Name:      "sessions_total",
			Help:      "Live sessions ended, by outcome",
		}, []string{"outcome"}),
		SessionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "live",
			Name:      "sessions_active",
			Help:      "Live sessions currently connecting or listening",
		}),
		SessionDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "live",
			Name:      "session_duration_seconds",
			Help:      "Live session duration in seconds",
			Buckets:   []float64{5, 15, 30, 60, 120, 300, 600, 1800},
		}),
		FramesCaptured: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "live",
			Name:      "frames_captured_total",
			Help:      "Microphone frames captured",
		}),
		FramesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "live",
			Name:      "frames_sent_total",
			Help:      "Microphone frames sent to the live endpoint",
		}),
		FramesDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "live",
			Name:      "frames_dropped_total",
			Help:      "Microphone frames dropped, by reason",
		}, []string{"reason"}),
		ChunksScheduled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "live",
			Name:      "chunks_scheduled_total",
			Help:      "Inbound audio chunks scheduled for playback",
		}),
		ChunksActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "live",
			Name:      "chunks_active",
			Help:      "Audio chunks scheduled or playing",
		}),
		AudioSeconds: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "live",
			Name:      "audio_scheduled_seconds_total",
			Help:      "Seconds of synthesized audio scheduled",
		}),
		Interruptions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "live",
			Name:      "interruptions_total",
			Help:      "Barge-in interruptions received",
		}),
		Transcripts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "live",
			Name:      "transcript_fragments_total",
			Help:      "Output transcript fragments received",
		}),
	}

	reg.MustRegister(
		m.SessionsTotal,
		m.SessionsActive,
		m.SessionDuration,
		m.FramesCaptured,
		m.FramesSent,
		m.FramesDropped,
		m.ChunksScheduled,
		m.ChunksActive,
		m.AudioSeconds,
		m.Interruptions,
		m.Transcripts,
	)
	return m
}

// Handler returns the HTTP handler for the metrics endpoint.
func (m *Live) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the Prometheus registry.
func (m *Live) Registry() *prometheus.Registry {
	return m.registry
}

// Serve exposes /metrics on addr until ctx is done.
func (m *Live) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	slog.Info("metrics listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// SessionStarted records a session entering Connecting.
func (m *Live) SessionStarted() {
	if m == nil {
		return
	}
	m.SessionsActive.Inc()
}

// SessionEnded records a session teardown.
func (m *Live) SessionEnded(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.SessionsActive.Dec()
	m.SessionsTotal.WithLabelValues(outcome).Inc()
	m.SessionDuration.Observe(d.Seconds())
}

// FrameCaptured records a microphone frame.
func (m *Live) FrameCaptured() {
	if m == nil {
		return
	}
	m.FramesCaptured.Inc()
}

// FrameSent records a frame handed to the transport.
func (m *Live) FrameSent() {
	if m == nil {
		return
	}
	m.FramesSent.Inc()
}

// FrameDropped records a frame lost to a full queue or a send failure.
func (m *Live) FrameDropped(reason string) {
	if m == nil {
		return
	}
	m.FramesDropped.WithLabelValues(reason).Inc()
}

// ChunkScheduled records an inbound chunk placed on the output.
func (m *Live) ChunkScheduled(d time.Duration, active int) {
	if m == nil {
		return
	}
	m.ChunksScheduled.Inc()
	m.AudioSeconds.Add(d.Seconds())
	m.ChunksActive.Set(float64(active))
}

// ChunksChanged updates the active chunk gauge.
func (m *Live) ChunksChanged(active int) {
	if m == nil {
		return
	}
	m.ChunksActive.Set(float64(active))
}

// Interrupted records a barge-in.
func (m *Live) Interrupted() {
	if m == nil {
		return
	}
	m.Interruptions.Inc()
	m.ChunksActive.Set(0)
}

// TranscriptAppended records a transcript fragment.
func (m *Live) TranscriptAppended() {
	if m == nil {
		return
	}
	m.Transcripts.Inc()
}
