// Package broadcast pipes rendered RGB frames into an ffmpeg child process
// that encodes and pushes the live stream. The frame path is strictly
// non-blocking for the game loop: frames are decimated to the stream rate,
// queued in a small buffer, and silently dropped when the encoder falls
// behind.
package broadcast

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/onnwee/quizcast/telemetry"
)

const (
	frameQueueSize  = 3
	dequeueTimeout  = time.Second
	stopGracePeriod = 5 * time.Second
	stderrTailSize  = 30
)

// Config holds the encoder settings.
type Config struct {
	Enabled    bool
	IngestURL  string
	StreamKey  string
	Width      int
	Height     int
	NativeFPS  int
	StreamFPS  int
	Bitrate    string
	FFmpegPath string
}

// Broadcaster owns the encoder process. SendFrame is called from the game
// loop at the native tick rate; everything else runs on internal goroutines.
type Broadcaster struct {
	cfg Config
	log *slog.Logger

	frames     chan []byte
	pool       sync.Pool
	decimation int
	frameCount uint64

	active atomic.Bool

	mu     sync.Mutex
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	exited chan error
	tail   []string
}

// New builds a broadcaster. The decimation ratio maps the game loop's native
// frame rate down to the stream frame rate.
func New(cfg Config) *Broadcaster {
	if cfg.FFmpegPath == "" {
		cfg.FFmpegPath = "ffmpeg"
	}
	decimation := 1
	if cfg.NativeFPS > 0 && cfg.StreamFPS > 0 && cfg.NativeFPS > cfg.StreamFPS {
		decimation = cfg.NativeFPS / cfg.StreamFPS
	}
	return &Broadcaster{
		cfg:        cfg,
		log:        slog.Default().With(slog.String("component", "broadcast")),
		frames:     make(chan []byte, frameQueueSize),
		decimation: decimation,
	}
}

// IsActive reports whether the encoder is running and accepting frames.
func (b *Broadcaster) IsActive() bool { return b.active.Load() }

// Start probes the host for an encoder and audio input, launches ffmpeg and
// begins the paced writer. A disabled config or missing stream key is not an
// error; the broadcaster just stays inactive.
func (b *Broadcaster) Start(ctx context.Context) error {
	if !b.cfg.Enabled || b.cfg.StreamKey == "" {
		b.log.Info("broadcast disabled, rendering without stream")
		return nil
	}

	encoder := detectEncoder(ctx, b.cfg.FFmpegPath)
	audio := audioInputArgs(ctx)
	args := buildArgs(b.cfg, encoder, audio)

	cmd := exec.Command(b.cfg.FFmpegPath, args...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("stdin pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start ffmpeg: %w", err)
	}

	b.mu.Lock()
	b.cmd = cmd
	b.stdin = stdin
	b.exited = make(chan error, 1)
	b.mu.Unlock()

	go b.monitorStderr(stderr)
	go func() { b.exited <- cmd.Wait() }()
	go b.writerLoop(ctx)

	b.active.Store(true)
	telemetry.UpdateBroadcastGauge(true)
	b.log.Info("broadcast started",
		slog.String("encoder", encoder),
		slog.Int("fps", b.cfg.StreamFPS),
		slog.String("target", maskSecret(b.cfg.IngestURL+"/"+b.cfg.StreamKey, b.cfg.StreamKey)))
	return nil
}

// SendFrame offers one native-rate frame to the pipeline. Non-blocking: the
// frame is dropped when decimation skips it or the queue is full. Frames that
// survive decimation are copied, so the caller may reuse its buffer
// immediately; the copy stays owned by the pipeline until written or dropped.
func (b *Broadcaster) SendFrame(frame []byte) {
	if !b.active.Load() {
		return
	}
	b.frameCount++
	if b.frameCount%uint64(b.decimation) != 0 {
		return
	}
	buf, _ := b.pool.Get().([]byte)
	if cap(buf) < len(frame) {
		buf = make([]byte, len(frame))
	}
	buf = buf[:len(frame)]
	copy(buf, frame)
	select {
	case b.frames <- buf:
	default:
		b.pool.Put(buf) //nolint:staticcheck // SA6002: the pool holds byte slices
		telemetry.IncFramesDropped()
	}
}

// writerLoop feeds queued frames to ffmpeg at exactly the stream frame rate.
// Pacing follows a fixed schedule: the deadline advances by exactly one
// interval per frame, so sleep overshoot is absorbed by the next sleep
// instead of accumulating into drift.
func (b *Broadcaster) writerLoop(ctx context.Context) {
	interval := time.Second / time.Duration(b.cfg.StreamFPS)
	next := time.Now().Add(interval)

	for {
		var frame []byte
		select {
		case <-ctx.Done():
			return
		case err := <-b.exited:
			b.onEncoderExit(err)
			return
		case frame = <-b.frames:
		case <-time.After(dequeueTimeout):
			// No frames flowing; restart the schedule when they return.
			next = time.Now().Add(interval)
			continue
		}

		if _, err := b.stdin.Write(frame); err != nil {
			// Broken pipe means the encoder died; Wait delivers the reason.
			select {
			case werr := <-b.exited:
				b.onEncoderExit(werr)
			case <-time.After(stopGracePeriod):
				b.onEncoderExit(err)
			}
			return
		}
		b.pool.Put(frame) //nolint:staticcheck // SA6002: the pool holds byte slices
		telemetry.IncFramesWritten()

		if d := time.Until(next); d > 0 {
			time.Sleep(d)
		}
		next = advanceDeadline(next, time.Now(), interval)
	}
}

// advanceDeadline moves the write deadline one interval along the fixed
// schedule. Only when a stalled write has left the loop more than one
// interval behind does it re-anchor to now, shedding the backlog rather than
// bursting frames at the encoder.
func advanceDeadline(next, now time.Time, interval time.Duration) time.Time {
	next = next.Add(interval)
	if now.Sub(next) > interval {
		return now.Add(interval)
	}
	return next
}

func (b *Broadcaster) onEncoderExit(err error) {
	if !b.active.CompareAndSwap(true, false) {
		return // Stop already handled shutdown
	}
	telemetry.UpdateBroadcastGauge(false)
	telemetry.IncEncoderExits()
	b.mu.Lock()
	tail := strings.Join(b.tail, "\n")
	b.mu.Unlock()
	b.log.Error("encoder exited", slog.Any("err", err), slog.String("stderr_tail", tail))
}

// monitorStderr drains ffmpeg's stderr, masking the stream key and skipping
// the per-frame progress spam, and keeps a short tail for exit diagnostics.
func (b *Broadcaster) monitorStderr(r io.Reader) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := maskSecret(scanner.Text(), b.cfg.StreamKey)
		if strings.HasPrefix(line, "frame=") || strings.HasPrefix(line, "size=") {
			continue
		}
		b.mu.Lock()
		b.tail = append(b.tail, line)
		if len(b.tail) > stderrTailSize {
			b.tail = b.tail[len(b.tail)-stderrTailSize:]
		}
		b.mu.Unlock()
		b.log.Debug("ffmpeg", slog.String("line", line))
	}
}

// Stop shuts the encoder down: stop accepting frames, close stdin so ffmpeg
// flushes and exits, and kill it if it overstays the grace period.
func (b *Broadcaster) Stop() {
	if !b.active.CompareAndSwap(true, false) {
		return
	}
	telemetry.UpdateBroadcastGauge(false)

	// Drain whatever the writer has not consumed.
	for {
		select {
		case <-b.frames:
			continue
		default:
		}
		break
	}

	b.mu.Lock()
	stdin, cmd, exited := b.stdin, b.cmd, b.exited
	b.mu.Unlock()
	if stdin != nil {
		if err := stdin.Close(); err != nil {
			b.log.Warn("failed to close encoder stdin", slog.Any("err", err))
		}
	}
	if cmd == nil {
		return
	}
	select {
	case err := <-exited:
		if err != nil {
			b.log.Warn("encoder exit", slog.Any("err", err))
		}
	case <-time.After(stopGracePeriod):
		b.log.Warn("encoder did not exit, killing")
		if err := cmd.Process.Kill(); err != nil {
			b.log.Error("failed to kill encoder", slog.Any("err", err))
		}
		<-exited
	}
	b.log.Info("broadcast stopped")
}

// maskSecret hides secret in s, leaving the last 4 characters for log
// correlation.
func maskSecret(s, secret string) string {
	if secret == "" {
		return s
	}
	masked := "***"
	if len(secret) > 4 {
		masked += secret[len(secret)-4:]
	}
	return strings.ReplaceAll(s, secret, masked)
}
