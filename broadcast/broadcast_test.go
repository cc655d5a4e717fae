package broadcast

import (
	"context"
	"strings"
	"testing"
	"time"
)

func testBroadcastConfig() Config {
	return Config{
		Enabled:    true,
		IngestURL:  "rtmps://a.rtmps.youtube.com/live2",
		StreamKey:  "abcd-efgh-ijkl",
		Width:      1920,
		Height:     1080,
		NativeFPS:  60,
		StreamFPS:  30,
		Bitrate:    "4500k",
		FFmpegPath: "ffmpeg",
	}
}

func TestDecimationRatio(t *testing.T) {
	tests := []struct {
		native, stream, want int
	}{
		{60, 30, 2},
		{60, 60, 1},
		{30, 60, 1},
		{0, 30, 1},
		{90, 30, 3},
	}
	for _, tt := range tests {
		cfg := testBroadcastConfig()
		cfg.NativeFPS = tt.native
		cfg.StreamFPS = tt.stream
		if got := New(cfg).decimation; got != tt.want {
			t.Errorf("decimation(%d/%d) = %d, want %d", tt.native, tt.stream, got, tt.want)
		}
	}
}

func TestSendFrameDecimatesAndBounds(t *testing.T) {
	b := New(testBroadcastConfig()) // decimation 2, queue 3
	b.active.Store(true)

	frame := make([]byte, 8)
	for i := 0; i < 20; i++ {
		b.SendFrame(frame)
	}
	// 10 frames survive decimation; the queue keeps 3 and drops 7 silently.
	if got := len(b.frames); got != frameQueueSize {
		t.Errorf("queued frames = %d, want %d", got, frameQueueSize)
	}
}

func TestSendFrameCopiesBuffer(t *testing.T) {
	cfg := testBroadcastConfig()
	cfg.NativeFPS = 30 // decimation 1, every frame queued
	b := New(cfg)
	b.active.Store(true)

	frame := []byte{1, 2, 3, 4}
	b.SendFrame(frame)
	frame[0] = 99 // caller reuses its buffer right away

	got := <-b.frames
	if got[0] != 1 {
		t.Errorf("queued frame saw caller mutation: % d", got)
	}
	if &got[0] == &frame[0] {
		t.Error("queued frame aliases the caller's buffer")
	}
}

func TestAdvanceDeadlineFixedSchedule(t *testing.T) {
	interval := time.Second / 30
	base := time.Now()
	next := base.Add(interval)

	// 300 frames with a 2ms sleep overshoot each; the schedule must not slip.
	for i := 0; i < 300; i++ {
		now := next.Add(2 * time.Millisecond)
		next = advanceDeadline(next, now, interval)
	}
	want := base.Add(301 * interval)
	if !next.Equal(want) {
		t.Errorf("deadline drifted by %v over 300 frames", next.Sub(want))
	}
}

func TestAdvanceDeadlineReanchorsAfterStall(t *testing.T) {
	interval := time.Second / 30
	next := time.Now()

	// A 500ms write stall leaves the schedule far behind; the deadline
	// re-anchors instead of demanding a burst of catch-up frames.
	now := next.Add(500 * time.Millisecond)
	got := advanceDeadline(next, now, interval)
	if want := now.Add(interval); !got.Equal(want) {
		t.Errorf("deadline = %v, want re-anchor at %v", got, want)
	}
}

func TestSendFrameInactiveIsNoop(t *testing.T) {
	b := New(testBroadcastConfig())
	b.SendFrame(make([]byte, 8))
	if len(b.frames) != 0 {
		t.Error("inactive broadcaster queued a frame")
	}
}

func TestBuildArgs(t *testing.T) {
	cfg := testBroadcastConfig()
	args := buildArgs(cfg, "libx264", silentAudioArgs())
	joined := strings.Join(args, " ")

	for _, want := range []string{
		"-f rawvideo",
		"-pix_fmt rgb24",
		"-s 1920x1080",
		"-i pipe:0",
		"anullsrc",
		"-map 0:v:0",
		"-map 1:a:0",
		"-c:v libx264",
		"-tune zerolatency",
		"-b:v 4500k",
		"-maxrate 4500k",
		"-bufsize 9000k",
		"-g 60",
		"-c:a aac",
		"-shortest",
		"-flvflags no_duration_filesize",
		"rtmps://a.rtmps.youtube.com/live2/abcd-efgh-ijkl",
	} {
		if !strings.Contains(joined, want) {
			t.Errorf("args missing %q:\n%s", want, joined)
		}
	}
	if args[len(args)-1] != cfg.IngestURL+"/"+cfg.StreamKey {
		t.Errorf("output URL not last: %q", args[len(args)-1])
	}
}

func TestBuildArgsNVENC(t *testing.T) {
	args := buildArgs(testBroadcastConfig(), "h264_nvenc", silentAudioArgs())
	joined := strings.Join(args, " ")
	if !strings.Contains(joined, "-c:v h264_nvenc") || !strings.Contains(joined, "-tune ll") {
		t.Errorf("nvenc tuning missing:\n%s", joined)
	}
}

func TestDoubleBitrate(t *testing.T) {
	tests := []struct{ in, want string }{
		{"4500k", "9000k"},
		{"6000k", "12000k"},
		{"weird", "weird"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := doubleBitrate(tt.in); got != tt.want {
			t.Errorf("doubleBitrate(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestMaskSecret(t *testing.T) {
	tests := []struct {
		name, in, secret, want string
	}{
		{"long key keeps tail", "rtmp://x/live/abcd-efgh", "abcd-efgh", "rtmp://x/live/***efgh"},
		{"short key fully hidden", "key=abc done", "abc", "key=*** done"},
		{"empty secret", "unchanged", "", "unchanged"},
		{"secret absent", "nothing here", "zzz", "nothing here"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := maskSecret(tt.in, tt.secret); got != tt.want {
				t.Errorf("maskSecret = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestStartDisabledNoop(t *testing.T) {
	cfg := testBroadcastConfig()
	cfg.Enabled = false
	b := New(cfg)
	if err := b.Start(context.Background()); err != nil {
		t.Fatalf("disabled start errored: %v", err)
	}
	if b.IsActive() {
		t.Error("disabled broadcaster reports active")
	}
}

func TestStartWithoutKeyNoop(t *testing.T) {
	cfg := testBroadcastConfig()
	cfg.StreamKey = ""
	b := New(cfg)
	if err := b.Start(context.Background()); err != nil {
		t.Fatalf("keyless start errored: %v", err)
	}
	if b.IsActive() {
		t.Error("keyless broadcaster reports active")
	}
}
