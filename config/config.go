// Package config loads environment variables and provides a typed Config used across the service.
// It applies sensible defaults so the binary can run locally with minimal setup: no stream key
// means render-only, no Twitch credentials means offline synthetic chat.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/onnwee/quizcast/game"
)

type Config struct {
	// Twitch
	TwitchChannels     []string // priority-ordered candidates to follow
	TwitchBotUsername  string
	TwitchOAuthToken   string
	TwitchClientID     string
	TwitchClientSecret string

	// Chat
	OfflineMode bool

	// Broadcast
	StreamEnabled bool
	StreamKey     string
	IngestURL     string
	Width         int
	Height        int
	NativeFPS     int
	StreamFPS     int
	Bitrate       string
	FFmpegPath    string

	// HTTP
	HTTPAddr string

	// Intervals
	StreamPollInterval time.Duration
	SaveInterval       time.Duration

	// Game tuning
	Game game.Config
}

// Load reads environment variables and applies defaults. Missing optional
// variables disable features rather than failing: the quiz always runs, the
// integrations attach when configured.
func Load() (*Config, error) {
	cfg := &Config{}

	if v := os.Getenv("TWITCH_CHANNELS"); v != "" {
		for _, ch := range strings.Split(v, ",") {
			if ch = strings.TrimSpace(strings.ToLower(ch)); ch != "" {
				cfg.TwitchChannels = append(cfg.TwitchChannels, ch)
			}
		}
	}
	cfg.TwitchBotUsername = os.Getenv("TWITCH_BOT_USERNAME")
	cfg.TwitchOAuthToken = os.Getenv("TWITCH_OAUTH_TOKEN")
	cfg.TwitchClientID = os.Getenv("TWITCH_CLIENT_ID")
	cfg.TwitchClientSecret = os.Getenv("TWITCH_CLIENT_SECRET")

	cfg.OfflineMode = envBool("OFFLINE_MODE", len(cfg.TwitchChannels) == 0)

	cfg.StreamKey = os.Getenv("STREAM_KEY")
	cfg.StreamEnabled = envBool("STREAM_ENABLED", cfg.StreamKey != "")
	cfg.IngestURL = envStr("STREAM_INGEST_URL", "rtmps://a.rtmps.youtube.com/live2")
	cfg.Width = envInt("STREAM_WIDTH", 1920)
	cfg.Height = envInt("STREAM_HEIGHT", 1080)
	cfg.NativeFPS = envInt("NATIVE_FPS", 60)
	cfg.StreamFPS = envInt("STREAM_FPS", 30)
	cfg.Bitrate = envStr("STREAM_BITRATE", "4500k")
	cfg.FFmpegPath = envStr("FFMPEG_PATH", "ffmpeg")

	cfg.HTTPAddr = envStr("HTTP_ADDR", ":8080")

	cfg.StreamPollInterval = envDuration("STREAM_POLL_INTERVAL", 60*time.Second)
	cfg.SaveInterval = envDuration("SAVE_INTERVAL", 30*time.Second)

	g := game.DefaultConfig()
	g.AskingSeconds = envFloat("ASKING_SECONDS", g.AskingSeconds)
	g.RevealSeconds = envFloat("REVEAL_SECONDS", g.RevealSeconds)
	g.LeaderboardSeconds = envFloat("LEADERBOARD_SECONDS", g.LeaderboardSeconds)
	g.VoteSeconds = envFloat("VOTE_SECONDS", g.VoteSeconds)
	g.RoundsBeforeVote = envInt("ROUNDS_BEFORE_VOTE", g.RoundsBeforeVote)
	g.GraceSeconds = envFloat("GRACE_SECONDS", g.GraceSeconds)
	g.MinPlayers = envInt("MIN_PLAYERS", g.MinPlayers)
	g.FillerWindowRounds = envInt("FILLER_WINDOW_ROUNDS", g.FillerWindowRounds)
	if v := os.Getenv("BOT_DIFFICULTY"); v != "" {
		profile, ok := game.FillerProfiles[strings.ToLower(v)]
		if !ok {
			return nil, fmt.Errorf("invalid BOT_DIFFICULTY %q (easy, medium or hard)", v)
		}
		g.Filler = profile
	}
	cfg.Game = g

	if cfg.NativeFPS < cfg.StreamFPS {
		return nil, fmt.Errorf("NATIVE_FPS (%d) must be >= STREAM_FPS (%d)", cfg.NativeFPS, cfg.StreamFPS)
	}
	return cfg, nil
}

func envStr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func envBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
