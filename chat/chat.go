// Package chat turns a Twitch IRC channel into a stream of normalized game
// messages. The connection loop reconnects forever with capped exponential
// backoff, and an offline mode synthesizes chat traffic for local runs.
package chat

import (
	"context"
	"log/slog"
	"math/rand"
	"strconv"
	"strings"
	"sync/atomic"
	"time"
	"unicode"

	twitch "github.com/gempir/go-twitch-irc/v4"

	"github.com/onnwee/quizcast/telemetry"
)

const (
	backoffBase       = 2 * time.Second
	backoffMax        = 60 * time.Second
	heartbeatInterval = 60 * time.Second
	defaultQueueSize  = 256
)

// Message is one normalized chat line.
type Message struct {
	Username string
	Text     string
	At       time.Time
}

// Config holds the chat connection settings. Bot credentials are optional;
// without them the client connects anonymously (read-only, which is all the
// game needs).
type Config struct {
	BotUsername string
	BotToken    string
	Offline     bool
	QueueSize   int
}

// Source owns the IRC connection and hands messages to the game loop over a
// bounded channel. When the game loop falls behind, messages are dropped
// rather than blocking the reader.
type Source struct {
	cfg Config
	log *slog.Logger
	out chan Message

	// reconnect carries the latest target channel; a send interrupts both a
	// backoff wait and a live session.
	reconnect chan string

	connected atomic.Bool
	msgCount  atomic.Int64
}

// New builds a chat source.
func New(cfg Config) *Source {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = defaultQueueSize
	}
	return &Source{
		cfg:       cfg,
		log:       slog.Default().With(slog.String("component", "chat")),
		out:       make(chan Message, cfg.QueueSize),
		reconnect: make(chan string, 1),
	}
}

// Messages is the stream consumed by the game loop.
func (s *Source) Messages() <-chan Message { return s.out }

// Connected reports whether an IRC session is currently up.
func (s *Source) Connected() bool { return s.connected.Load() }

// MessageCount returns the total messages received since start.
func (s *Source) MessageCount() int64 { return s.msgCount.Load() }

// ConnectTo points the source at a channel. Safe to call at any time; the
// current connection (if any) is abandoned and a fresh one made.
func (s *Source) ConnectTo(channel string) {
	// Drop a stale pending target so the latest always wins.
	select {
	case <-s.reconnect:
	default:
	}
	s.reconnect <- strings.ToLower(channel)
}

// Run drives the connection loop until ctx is canceled. In offline mode it
// synthesizes messages instead of connecting anywhere.
func (s *Source) Run(ctx context.Context) error {
	go s.heartbeat(ctx)

	if s.cfg.Offline {
		return s.runOffline(ctx)
	}

	var channel string
	select {
	case <-ctx.Done():
		return ctx.Err()
	case channel = <-s.reconnect:
	}

	attempt := 0
	for {
		ok, err := s.connectOnce(ctx, channel)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if ok {
			attempt = 0
		} else {
			attempt++
		}
		telemetry.IncChatReconnects()
		if err != nil {
			s.log.Warn("chat disconnected", slog.String("channel", channel), slog.Any("err", err))
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case ch := <-s.reconnect:
			channel = ch
			attempt = 0
		case <-time.After(backoffFor(attempt)):
		}
	}
}

// connectOnce runs one IRC session to completion. Returns whether the session
// ever reached a connected state, so the caller can reset its backoff.
func (s *Source) connectOnce(ctx context.Context, channel string) (bool, error) {
	var client *twitch.Client
	if s.cfg.BotUsername != "" && s.cfg.BotToken != "" {
		client = twitch.NewClient(s.cfg.BotUsername, s.cfg.BotToken)
	} else {
		client = twitch.NewAnonymousClient()
	}

	var reached atomic.Bool
	client.OnConnect(func() {
		reached.Store(true)
		s.connected.Store(true)
		s.log.Info("chat connected", slog.String("channel", channel))
	})
	client.OnPrivateMessage(func(msg twitch.PrivateMessage) {
		s.publish(Message{
			Username: strings.ToLower(msg.User.Name),
			Text:     Normalize(msg.Message),
			At:       time.Now(),
		})
	})
	client.Join(channel)

	stop := make(chan struct{})
	go s.watchSession(ctx, stop, func() { _ = client.Disconnect() })

	err := client.Connect()
	close(stop)
	s.connected.Store(false)
	return reached.Load(), err
}

// watchSession tears the live IRC session down when the context ends or a new
// target channel arrives. The target is requeued so the connect loop picks it
// up as soon as the session drops.
func (s *Source) watchSession(ctx context.Context, stop <-chan struct{}, disconnect func()) {
	select {
	case <-ctx.Done():
		disconnect()
	case ch := <-s.reconnect:
		s.ConnectTo(ch)
		disconnect()
	case <-stop:
	}
}

// publish hands a message to the game loop, dropping it if the queue is full.
func (s *Source) publish(m Message) {
	s.msgCount.Add(1)
	telemetry.IncChatMessages()
	select {
	case s.out <- m:
	default:
		telemetry.IncChatDropped()
		s.log.Debug("message dropped, queue full", slog.String("username", m.Username))
	}
}

func (s *Source) heartbeat(ctx context.Context) {
	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.log.Info("chat heartbeat",
				slog.Bool("connected", s.connected.Load()),
				slog.Int64("messages", s.msgCount.Load()))
		}
	}
}

// backoffFor returns the reconnect delay for the given consecutive failure
// count: 2s doubling per attempt, capped at 60s.
func backoffFor(attempt int) time.Duration {
	d := backoffBase
	for i := 0; i < attempt; i++ {
		d *= 2
		if d >= backoffMax {
			return backoffMax
		}
	}
	return d
}

// Normalize lower-cases, trims and strips punctuation so "2!", " 2 " and "2"
// all read the same to the game.
func Normalize(text string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(text)) {
		if unicode.IsPunct(r) || unicode.IsSymbol(r) {
			continue
		}
		b.WriteRune(r)
	}
	return strings.TrimSpace(b.String())
}

// Synthetic chatter names for offline mode.
var offlineChatters = []string{
	"local_hero", "test_tina", "dev_dan", "echo_eli", "sim_sam", "mock_mia",
}

// runOffline emits random digit answers (and the occasional reset) at a
// human-ish cadence so the full game path can run with no network.
func (s *Source) runOffline(ctx context.Context) error {
	s.log.Info("offline chat mode, synthesizing messages")
	s.connected.Store(true)
	defer s.connected.Store(false)
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	for {
		delay := time.Duration((0.3 + rng.Float64()*1.2) * float64(time.Second))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}

		text := strconv.Itoa(1 + rng.Intn(4))
		if rng.Float64() < 0.03 {
			text = "reset"
		}
		s.publish(Message{
			Username: offlineChatters[rng.Intn(len(offlineChatters))],
			Text:     text,
			At:       time.Now(),
		})
	}
}
