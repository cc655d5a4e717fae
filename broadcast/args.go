package broadcast

import (
	"fmt"
	"strconv"
	"strings"
)

// buildArgs assembles the ffmpeg command line: raw RGB frames on stdin as
// input 0, the probed audio source as input 1, encoded to FLV for the RTMPS
// ingest.
func buildArgs(cfg Config, encoder string, audio []string) []string {
	args := []string{
		"-hide_banner",
		"-loglevel", "warning",
		"-f", "rawvideo",
		"-pix_fmt", "rgb24",
		"-s", fmt.Sprintf("%dx%d", cfg.Width, cfg.Height),
		"-r", strconv.Itoa(cfg.StreamFPS),
		"-i", "pipe:0",
	}
	args = append(args, audio...)
	args = append(args,
		"-map", "0:v:0",
		"-map", "1:a:0",
		"-c:v", encoder,
	)
	args = append(args, encoderTuning(encoder)...)
	args = append(args,
		"-b:v", cfg.Bitrate,
		"-maxrate", cfg.Bitrate,
		"-bufsize", doubleBitrate(cfg.Bitrate),
		"-pix_fmt", "yuv420p",
		// Keyframe every 2 seconds, as the ingest endpoints want.
		"-g", strconv.Itoa(cfg.StreamFPS*2),
		"-c:a", "aac",
		"-b:a", "128k",
		"-ar", "44100",
		"-shortest",
		"-f", "flv",
		"-flvflags", "no_duration_filesize",
		cfg.IngestURL+"/"+cfg.StreamKey,
	)
	return args
}

// encoderTuning returns the low-latency preset flags for the chosen encoder.
func encoderTuning(encoder string) []string {
	if encoder == "h264_nvenc" {
		return []string{"-preset", "p4", "-tune", "ll"}
	}
	return []string{"-preset", "veryfast", "-tune", "zerolatency"}
}

// doubleBitrate turns "4500k" into "9000k" for the VBV buffer size. Unknown
// formats are passed through unchanged.
func doubleBitrate(bitrate string) string {
	s := strings.TrimSuffix(bitrate, "k")
	n, err := strconv.Atoi(s)
	if err != nil || s == bitrate {
		return bitrate
	}
	return strconv.Itoa(n*2) + "k"
}
