// Package server exposes the operational HTTP surface: health, a JSON view of
// the live game state, and Prometheus metrics. It injects correlation IDs
// into request contexts for consistent logging.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/onnwee/quizcast/game"
	"github.com/onnwee/quizcast/telemetry"
)

// SnapshotFunc returns the latest game snapshot, or nil before the first tick.
type SnapshotFunc func() *game.Snapshot

// NewMux returns the HTTP handler with all routes.
func NewMux(snapshot SnapshotFunc) http.Handler {
	mux := http.NewServeMux()

	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	mux.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
		snap := snapshot()
		if snap == nil {
			http.Error(w, `{"error":"not started"}`, http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(newStatusView(snap)); err != nil {
			telemetry.LoggerWithCorr(r.Context()).Error("failed to encode status", slog.Any("err", err))
		}
	})

	// Wrap with correlation ID injector and tracing middleware
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Reuse corr header if provided else generate
		corr := r.Header.Get("X-Correlation-ID")
		if corr == "" {
			corr = uuid.New().String()
		}
		ctx := telemetry.WithCorrelation(r.Context(), corr)
		w.Header().Set("X-Correlation-ID", corr)

		ctx, span := telemetry.StartSpan(ctx, "http-server", r.Method+" "+r.URL.Path,
			telemetry.HTTPMethodAttr(r.Method),
			telemetry.HTTPRouteAttr(r.URL.Path),
		)
		defer span.End()

		telemetry.LoggerWithCorr(ctx).Debug("request start", slog.String("method", r.Method), slog.String("path", r.URL.Path), slog.String("component", "http"))

		wrappedWriter := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}
		mux.ServeHTTP(wrappedWriter, r.WithContext(ctx))

		telemetry.SetSpanHTTPStatus(span, wrappedWriter.statusCode)
		if wrappedWriter.statusCode >= 400 {
			telemetry.RecordError(span, fmt.Errorf("HTTP %d", wrappedWriter.statusCode))
		}
	})
}

// statusView is the wire shape of /status. A trimmed view of the snapshot:
// operational fields only, no per-user answer detail.
type statusView struct {
	State            string  `json:"state"`
	Round            int     `json:"round"`
	Category         string  `json:"category"`
	Players          int     `json:"players"`
	TimeRemaining    float64 `json:"time_remaining"`
	AnswerCount      int     `json:"answer_count"`
	Question         string  `json:"question,omitempty"`
	DoublePoints     bool    `json:"double_points"`
	CompetitionAlert string  `json:"competition_alert,omitempty"`
	UptimeSeconds    float64 `json:"uptime_seconds"`
	Leaderboard      []struct {
		Username string `json:"username"`
		Score    int    `json:"score"`
		Rank     string `json:"rank"`
	} `json:"leaderboard,omitempty"`
}

func newStatusView(snap *game.Snapshot) statusView {
	v := statusView{
		State:            snap.State,
		Round:            snap.Round,
		Category:         snap.Category,
		Players:          snap.PlayerCount,
		TimeRemaining:    snap.TimeRemaining,
		AnswerCount:      snap.AnswerCount,
		DoublePoints:     snap.DoublePoints,
		CompetitionAlert: snap.CompetitionAlert,
		UptimeSeconds:    snap.Uptime,
	}
	if snap.Question != nil {
		v.Question = snap.Question.Text
	}
	for _, p := range snap.Leaderboard {
		v.Leaderboard = append(v.Leaderboard, struct {
			Username string `json:"username"`
			Score    int    `json:"score"`
			Rank     string `json:"rank"`
		}{p.Username, p.Score, p.Rank})
	}
	return v
}

// statusRecorder wraps ResponseWriter to capture status code
type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (r *statusRecorder) WriteHeader(statusCode int) {
	r.statusCode = statusCode
	r.ResponseWriter.WriteHeader(statusCode)
}

// Start runs the HTTP server and shuts down gracefully on context cancellation.
func Start(ctx context.Context, snapshot SnapshotFunc, addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      NewMux(snapshot),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		// Use WithoutCancel to inherit context values but allow shutdown to complete
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("http server shutdown error", slog.Any("err", err))
		}
	}()

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("http server error", slog.Any("err", err))
		return err
	}
	return nil
}
