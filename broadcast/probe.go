package broadcast

import (
	"bytes"
	"context"
	"log/slog"
	"os/exec"
	"runtime"
	"strings"
	"time"
)

const probeTimeout = 10 * time.Second

// detectEncoder asks ffmpeg whether NVENC hardware encoding is available and
// falls back to software x264 otherwise.
func detectEncoder(ctx context.Context, ffmpegPath string) string {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	out, err := exec.CommandContext(ctx, ffmpegPath, "-hide_banner", "-encoders").Output()
	if err == nil && bytes.Contains(out, []byte("h264_nvenc")) {
		slog.Debug("nvenc encoder available")
		return "h264_nvenc"
	}
	return "libx264"
}

// audioInputArgs probes for a system audio source for input 1. On Linux the
// PulseAudio default sink monitor carries whatever the host is playing; when
// no source can be found the stream gets silent audio so the ingest still
// sees an audio track.
func audioInputArgs(ctx context.Context) []string {
	if runtime.GOOS == "linux" {
		ctx, cancel := context.WithTimeout(ctx, probeTimeout)
		defer cancel()
		out, err := exec.CommandContext(ctx, "pactl", "get-default-sink").Output()
		if err == nil {
			sink := strings.TrimSpace(string(out))
			if sink != "" {
				slog.Debug("using pulse monitor audio", slog.String("sink", sink))
				return []string{"-f", "pulse", "-i", sink + ".monitor"}
			}
		}
	}
	return silentAudioArgs()
}

func silentAudioArgs() []string {
	return []string{"-f", "lavfi", "-i", "anullsrc=channel_layout=stereo:sample_rate=44100"}
}
