// Package telemetry provides Prometheus metrics and correlation-id aware logging helpers.
package telemetry

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	once sync.Once

	// Counters
	ChatMessages        prometheus.Counter
	ChatDropped         prometheus.Counter
	ChatReconnects      prometheus.Counter
	RoundsPlayed        prometheus.Counter
	AnswersScored       prometheus.Counter
	FramesWritten       prometheus.Counter
	FramesDropped       prometheus.Counter
	EncoderExits        prometheus.Counter
	TriviaFetchFailures prometheus.Counter

	// Histograms (seconds)
	RoundResolveDuration prometheus.Observer

	// Gauges
	PlayersGauge         prometheus.Gauge
	BroadcastActiveGauge prometheus.Gauge // 1=streaming,0=idle
)

// Init registers metrics (idempotent). Components increment through the
// nil-safe helpers below, so tests run fine without calling Init.
func Init() {
	once.Do(func() {
		ChatMessages = promauto.NewCounter(prometheus.CounterOpts{Name: "quiz_chat_messages_total", Help: "Chat messages received"})
		ChatDropped = promauto.NewCounter(prometheus.CounterOpts{Name: "quiz_chat_dropped_total", Help: "Chat messages dropped due to full queue"})
		ChatReconnects = promauto.NewCounter(prometheus.CounterOpts{Name: "quiz_chat_reconnects_total", Help: "Chat connection attempts after the first"})
		RoundsPlayed = promauto.NewCounter(prometheus.CounterOpts{Name: "quiz_rounds_total", Help: "Quiz rounds completed"})
		AnswersScored = promauto.NewCounter(prometheus.CounterOpts{Name: "quiz_answers_total", Help: "Answers scored"})
		FramesWritten = promauto.NewCounter(prometheus.CounterOpts{Name: "quiz_frames_written_total", Help: "Frames written to the encoder"})
		FramesDropped = promauto.NewCounter(prometheus.CounterOpts{Name: "quiz_frames_dropped_total", Help: "Frames dropped because the encoder queue was full"})
		EncoderExits = promauto.NewCounter(prometheus.CounterOpts{Name: "quiz_encoder_exits_total", Help: "Unexpected encoder process exits"})
		TriviaFetchFailures = promauto.NewCounter(prometheus.CounterOpts{Name: "quiz_trivia_fetch_failures_total", Help: "Failed question batch fetches"})
		RoundResolveDuration = promauto.NewHistogram(prometheus.HistogramOpts{Name: "quiz_round_resolve_duration_seconds", Help: "Round resolution duration seconds", Buckets: prometheus.DefBuckets})
		PlayersGauge = promauto.NewGauge(prometheus.GaugeOpts{Name: "quiz_players", Help: "Current real (non-filler) player count"})
		BroadcastActiveGauge = promauto.NewGauge(prometheus.GaugeOpts{Name: "quiz_broadcast_active", Help: "Broadcast pipeline streaming=1 idle=0"})
	})
}

// Nil-safe increment helpers so callers never need to guard on Init.

func IncChatMessages() {
	if ChatMessages != nil {
		ChatMessages.Inc()
	}
}

func IncChatDropped() {
	if ChatDropped != nil {
		ChatDropped.Inc()
	}
}

func IncChatReconnects() {
	if ChatReconnects != nil {
		ChatReconnects.Inc()
	}
}

func IncRoundsPlayed() {
	if RoundsPlayed != nil {
		RoundsPlayed.Inc()
	}
}

func AddAnswersScored(n int) {
	if AnswersScored != nil {
		AnswersScored.Add(float64(n))
	}
}

func IncFramesWritten() {
	if FramesWritten != nil {
		FramesWritten.Inc()
	}
}

func IncFramesDropped() {
	if FramesDropped != nil {
		FramesDropped.Inc()
	}
}

func IncEncoderExits() {
	if EncoderExits != nil {
		EncoderExits.Inc()
	}
}

func IncTriviaFetchFailures() {
	if TriviaFetchFailures != nil {
		TriviaFetchFailures.Inc()
	}
}

// SetPlayers records the current real player count.
func SetPlayers(n int) {
	if PlayersGauge != nil {
		PlayersGauge.Set(float64(n))
	}
}

// UpdateBroadcastGauge sets the gauge to 1 if streaming else 0.
func UpdateBroadcastGauge(active bool) {
	if BroadcastActiveGauge != nil {
		if active {
			BroadcastActiveGauge.Set(1)
		} else {
			BroadcastActiveGauge.Set(0)
		}
	}
}

// TimeFunc measures the duration of fn and records in observer if non-nil.
func TimeFunc(obs prometheus.Observer, fn func()) time.Duration {
	start := time.Now()
	fn()
	d := time.Since(start)
	if obs != nil {
		obs.Observe(d.Seconds())
	}
	return d
}

// Correlation ID helpers ----------------------------------------------------
type corrKeyType struct{}

var corrKey corrKeyType

// WithCorrelation returns a new context embedding correlation id (if absent) and the id.
func WithCorrelation(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, corrKey, id)
}

// GetCorrelation returns correlation id or empty string.
func GetCorrelation(ctx context.Context) string {
	v := ctx.Value(corrKey)
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

// LoggerWithCorr returns a logger with corr attribute if present.
func LoggerWithCorr(ctx context.Context) *slog.Logger {
	if id := GetCorrelation(ctx); id != "" {
		return slog.Default().With(slog.String("corr", id))
	}
	return slog.Default()
}
