// Package stream locates which of the configured channels is currently live,
// so the chat source always follows an active broadcast.
package stream

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/onnwee/quizcast/twitchapi"
)

const (
	defaultPageBase = "https://www.twitch.tv"
	liveMarker      = `"isLiveBroadcast"`
	pageReadLimit   = 2 << 20 // channel pages run about 1MB
)

// Watcher polls a priority-ordered list of candidate channels and reports
// which one to join. The channel page heuristic avoids burning Helix quota on
// every poll; Helix is only consulted when the page fetch fails.
type Watcher struct {
	channels []string
	interval time.Duration
	helix    *twitchapi.HelixClient // optional
	client   *http.Client
	pageBase string // override for tests
	log      *slog.Logger
}

// New builds a watcher. helix may be nil, leaving only the page heuristic.
func New(channels []string, interval time.Duration, helix *twitchapi.HelixClient) *Watcher {
	if interval <= 0 {
		interval = 60 * time.Second
	}
	return &Watcher{
		channels: channels,
		interval: interval,
		helix:    helix,
		client:   &http.Client{Timeout: 15 * time.Second},
		pageBase: defaultPageBase,
		log:      slog.Default().With(slog.String("component", "stream")),
	}
}

// Run polls until ctx is canceled, invoking onLive whenever the channel to
// follow changes. The first candidate found live wins; when the followed
// channel goes dark the search starts over.
func (w *Watcher) Run(ctx context.Context, onLive func(channel string)) error {
	var current string
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		live := w.findLive(ctx)
		switch {
		case live != "" && live != current:
			w.log.Info("live channel found", slog.String("channel", live))
			current = live
			onLive(live)
		case live == "" && current != "":
			w.log.Info("followed channel went offline", slog.String("channel", current))
			current = ""
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// findLive returns the first candidate that is live, or "".
func (w *Watcher) findLive(ctx context.Context) string {
	for _, ch := range w.channels {
		if w.isLive(ctx, ch) {
			return ch
		}
	}
	return ""
}

func (w *Watcher) isLive(ctx context.Context, channel string) bool {
	live, err := w.pageLive(ctx, channel)
	if err == nil {
		return live
	}
	w.log.Debug("page check failed", slog.String("channel", channel), slog.Any("err", err))

	if w.helix == nil {
		return false
	}
	streams, err := w.helix.GetStreams(ctx, []string{channel})
	if err != nil {
		w.log.Warn("helix check failed", slog.String("channel", channel), slog.Any("err", err))
		return false
	}
	return len(streams) > 0
}

// pageLive fetches the public channel page and looks for the structured-data
// marker that only appears while the channel broadcasts.
func (w *Watcher) pageLive(ctx context.Context, channel string) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, w.pageBase+"/"+strings.ToLower(channel), nil)
	if err != nil {
		return false, err
	}
	resp, err := w.client.Do(req)
	if err != nil {
		return false, err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			w.log.Warn("failed to close response body", slog.Any("err", err))
		}
	}()
	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("status %d for channel page", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, pageReadLimit))
	if err != nil {
		return false, err
	}
	return strings.Contains(string(body), liveMarker), nil
}
