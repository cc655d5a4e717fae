// Command quizcast runs a perpetual chat-driven trivia broadcast.
// It:
//   - Loads configuration and initializes structured logging.
//   - Connects to Postgres for player stats, degrading to memory-only when
//     the database is unavailable.
//   - Follows a live Twitch channel (or synthesizes chat offline) and feeds
//     messages into the round engine.
//   - Renders frames at the native tick rate and pipes them to ffmpeg for
//     the live stream when a stream key is configured.
//   - Exposes a minimal HTTP server with /healthz, /status, and /metrics.
//
// Shutdown is graceful on SIGINT/SIGTERM.
package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/onnwee/quizcast/broadcast"
	"github.com/onnwee/quizcast/chat"
	"github.com/onnwee/quizcast/config"
	"github.com/onnwee/quizcast/db"
	"github.com/onnwee/quizcast/game"
	"github.com/onnwee/quizcast/render"
	"github.com/onnwee/quizcast/score"
	"github.com/onnwee/quizcast/server"
	"github.com/onnwee/quizcast/stream"
	"github.com/onnwee/quizcast/telemetry"
	"github.com/onnwee/quizcast/trivia"
	"github.com/onnwee/quizcast/twitchapi"
)

func main() {
	// Load .env file if present (local dev convenience only; production relies on real env)
	_ = godotenv.Load(".env")

	setupLogging()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", slog.Any("err", err))
		os.Exit(1)
	}

	telemetry.Init()

	// OpenTelemetry tracing (optional; requires OTEL_EXPORTER_OTLP_ENDPOINT)
	shutdown, err := telemetry.InitTracing("quizcast", "1.0.0")
	if err != nil {
		slog.Error("tracing initialization failed", slog.Any("err", err))
		os.Exit(1)
	}
	defer shutdown()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store := openStore(ctx)
	questions := trivia.New(nil)
	engine := game.New(store, questions, cfg.Game, nil, nil)

	chatSrc := chat.New(chat.Config{
		BotUsername: cfg.TwitchBotUsername,
		BotToken:    cfg.TwitchOAuthToken,
		Offline:     cfg.OfflineMode,
	})

	var helix *twitchapi.HelixClient
	if cfg.TwitchClientID != "" && cfg.TwitchClientSecret != "" {
		helix = &twitchapi.HelixClient{
			AppTokenSource: &twitchapi.TokenSource{ClientID: cfg.TwitchClientID, ClientSecret: cfg.TwitchClientSecret},
			ClientID:       cfg.TwitchClientID,
		}
		if len(cfg.TwitchChannels) > 0 {
			go verifyTwitchSetup(ctx, helix, cfg.TwitchChannels[0])
		}
	}

	bc := broadcast.New(broadcast.Config{
		Enabled:    cfg.StreamEnabled,
		IngestURL:  cfg.IngestURL,
		StreamKey:  cfg.StreamKey,
		Width:      cfg.Width,
		Height:     cfg.Height,
		NativeFPS:  cfg.NativeFPS,
		StreamFPS:  cfg.StreamFPS,
		Bitrate:    cfg.Bitrate,
		FFmpegPath: cfg.FFmpegPath,
	})
	if err := bc.Start(ctx); err != nil {
		// Rendering continues without the stream; the pipeline can come back
		// on the next restart.
		slog.Error("broadcast start failed, continuing without stream", slog.Any("err", err))
	}

	renderer := render.NewFlat(cfg.Width, cfg.Height)

	var latest atomic.Pointer[game.Snapshot]

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return chatSrc.Run(ctx) })
	if !cfg.OfflineMode && len(cfg.TwitchChannels) > 0 {
		watcher := stream.New(cfg.TwitchChannels, cfg.StreamPollInterval, helix)
		g.Go(func() error { return watcher.Run(ctx, chatSrc.ConnectTo) })
	}
	g.Go(func() error { return server.Start(ctx, latest.Load, cfg.HTTPAddr) })
	g.Go(func() error { return runGameLoop(ctx, cfg, engine, store, chatSrc, renderer, bc, &latest) })

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("exited with error", slog.Any("err", err))
	}
	slog.Info("shutting down")
}

// setupLogging configures the default slog logger from LOG_LEVEL and
// LOG_FORMAT (text | json).
func setupLogging() {
	lvl := slog.LevelInfo
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	case "info", "":
		// keep default
	default:
		tmp := slog.New(slog.NewTextHandler(os.Stdout, nil))
		tmp.Warn("unknown LOG_LEVEL, using info", slog.String("value", os.Getenv("LOG_LEVEL")))
	}
	var handler slog.Handler
	if strings.ToLower(os.Getenv("LOG_FORMAT")) == "json" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	}
	slog.SetDefault(slog.New(handler))
	slog.Info("logger initialized", slog.String("level", lvl.String()))
}

// verifyTwitchSetup resolves the primary channel's user id so bad credentials
// or a typoed channel name surface in the logs at boot instead of as a
// silently never-live watcher.
func verifyTwitchSetup(ctx context.Context, helix *twitchapi.HelixClient, channel string) {
	checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	id, err := helix.GetUserID(checkCtx, channel)
	if err != nil {
		slog.Warn("twitch credential check failed", slog.String("channel", channel), slog.Any("err", err))
		return
	}
	slog.Info("twitch credentials verified", slog.String("channel", channel), slog.String("user_id", id))
}

// openStore connects to Postgres and loads player stats. Any failure is
// non-fatal: the game runs memory-only and scores simply do not survive a
// restart.
func openStore(ctx context.Context) *score.Store {
	database, err := db.Connect()
	if err != nil {
		slog.Warn("db open failed, running memory-only", slog.Any("err", err))
		return score.NewMemory()
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := database.PingContext(pingCtx); err != nil {
		slog.Warn("db unreachable, running memory-only", slog.Any("err", err))
		return score.NewMemory()
	}
	if err := db.Migrate(pingCtx, database); err != nil {
		slog.Warn("db migrate failed, running memory-only", slog.Any("err", err))
		return score.NewMemory()
	}
	store, err := score.Open(pingCtx, database)
	if err != nil {
		slog.Warn("player load failed, running memory-only", slog.Any("err", err))
		return score.NewMemory()
	}
	return store
}

// runGameLoop is the single thread that owns the engine: it drains chat,
// advances the state machine, publishes snapshots, renders, and persists
// scores. Everything else talks to it through channels and the snapshot
// pointer.
func runGameLoop(
	ctx context.Context,
	cfg *config.Config,
	engine *game.Engine,
	store *score.Store,
	chatSrc *chat.Source,
	renderer *render.Flat,
	bc *broadcast.Broadcaster,
	latest *atomic.Pointer[game.Snapshot],
) error {
	ticker := time.NewTicker(time.Second / time.Duration(cfg.NativeFPS))
	defer ticker.Stop()
	saveTicker := time.NewTicker(cfg.SaveInterval)
	defer saveTicker.Stop()

	last := time.Now()
	prevRound := 0

	for {
		select {
		case <-ctx.Done():
			bc.Stop()
			saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
			store.SaveAll(saveCtx)
			cancel()
			return ctx.Err()

		case <-saveTicker.C:
			store.SaveAll(ctx)

		case now := <-ticker.C:
			for drained := false; !drained; {
				select {
				case m := <-chatSrc.Messages():
					engine.ProcessMessage(m.Username, m.Text)
				default:
					drained = true
				}
			}

			dt := now.Sub(last).Seconds()
			last = now
			engine.Update(dt)

			snap := engine.Snapshot()
			latest.Store(&snap)

			telemetry.SetPlayers(snap.PlayerCount)
			if snap.Round != prevRound {
				telemetry.IncRoundsPlayed()
				if snap.LastResult != nil {
					telemetry.AddAnswersScored(snap.LastResult.TotalAnswers)
				}
				prevRound = snap.Round
				// Flush freshly scored rounds promptly; the interval save
				// covers everything else.
				store.SaveAll(ctx)
			}

			bc.SendFrame(renderer.Render(&snap))
		}
	}
}
