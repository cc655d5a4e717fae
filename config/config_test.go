package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if !cfg.OfflineMode {
		t.Error("expected offline mode with no channels configured")
	}
	if cfg.StreamEnabled {
		t.Error("expected stream disabled with no key")
	}
	if cfg.IngestURL != "rtmps://a.rtmps.youtube.com/live2" {
		t.Errorf("ingest url = %q", cfg.IngestURL)
	}
	if cfg.NativeFPS != 60 || cfg.StreamFPS != 30 {
		t.Errorf("fps = %d/%d, want 60/30", cfg.NativeFPS, cfg.StreamFPS)
	}
	if cfg.HTTPAddr != ":8080" {
		t.Errorf("http addr = %q", cfg.HTTPAddr)
	}
	if cfg.Game.AskingSeconds != 30 {
		t.Errorf("asking seconds = %v", cfg.Game.AskingSeconds)
	}
}

func TestLoadChannels(t *testing.T) {
	t.Setenv("TWITCH_CHANNELS", "Primary, backup , ")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if len(cfg.TwitchChannels) != 2 || cfg.TwitchChannels[0] != "primary" || cfg.TwitchChannels[1] != "backup" {
		t.Errorf("channels = %v", cfg.TwitchChannels)
	}
	if cfg.OfflineMode {
		t.Error("offline mode should default off with channels configured")
	}
}

func TestLoadStreamEnabledByKey(t *testing.T) {
	t.Setenv("STREAM_KEY", "abcd-efgh")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if !cfg.StreamEnabled {
		t.Error("expected stream enabled when key is set")
	}

	t.Setenv("STREAM_ENABLED", "false")
	cfg, err = Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.StreamEnabled {
		t.Error("explicit STREAM_ENABLED=false should win over the key")
	}
}

func TestLoadGameOverrides(t *testing.T) {
	t.Setenv("ASKING_SECONDS", "15")
	t.Setenv("ROUNDS_BEFORE_VOTE", "3")
	t.Setenv("MIN_PLAYERS", "6")
	t.Setenv("BOT_DIFFICULTY", "hard")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Game.AskingSeconds != 15 || cfg.Game.RoundsBeforeVote != 3 || cfg.Game.MinPlayers != 6 {
		t.Errorf("game overrides not applied: %+v", cfg.Game)
	}
	if cfg.Game.Filler.Accuracy != 0.70 {
		t.Errorf("filler profile = %+v, want hard", cfg.Game.Filler)
	}
}

func TestLoadInvalidDifficulty(t *testing.T) {
	t.Setenv("BOT_DIFFICULTY", "impossible")
	if _, err := Load(); err == nil {
		t.Error("expected error for unknown difficulty")
	}
}

func TestLoadInvalidFPSRelation(t *testing.T) {
	t.Setenv("NATIVE_FPS", "30")
	t.Setenv("STREAM_FPS", "60")
	if _, err := Load(); err == nil {
		t.Error("expected error when native fps below stream fps")
	}
}

func TestLoadIntervals(t *testing.T) {
	t.Setenv("STREAM_POLL_INTERVAL", "2m")
	t.Setenv("SAVE_INTERVAL", "10s")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.StreamPollInterval != 2*time.Minute || cfg.SaveInterval != 10*time.Second {
		t.Errorf("intervals = %v / %v", cfg.StreamPollInterval, cfg.SaveInterval)
	}
}
