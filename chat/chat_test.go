package chat

import (
	"context"
	"testing"
	"time"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"2", "2"},
		{" 2 ", "2"},
		{"2!", "2"},
		{"  RESET  ", "reset"},
		{"Answer: 3!!!", "answer 3"},
		{"¡¿3?!", "3"},
		{"", ""},
		{"!!!", ""},
	}
	for _, tt := range tests {
		if got := Normalize(tt.in); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestBackoffFor(t *testing.T) {
	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 2 * time.Second},
		{1, 4 * time.Second},
		{2, 8 * time.Second},
		{4, 32 * time.Second},
		{5, 60 * time.Second},
		{100, 60 * time.Second},
	}
	for _, tt := range tests {
		if got := backoffFor(tt.attempt); got != tt.want {
			t.Errorf("backoffFor(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}

func TestPublishDropsWhenFull(t *testing.T) {
	s := New(Config{QueueSize: 2})
	for i := 0; i < 5; i++ {
		s.publish(Message{Username: "alice", Text: "1"})
	}
	if got := len(s.out); got != 2 {
		t.Errorf("queued = %d, want 2", got)
	}
	if got := s.MessageCount(); got != 5 {
		t.Errorf("message count = %d, want 5 (drops still counted)", got)
	}
}

func TestConnectToLatestWins(t *testing.T) {
	s := New(Config{})
	s.ConnectTo("First")
	s.ConnectTo("second")
	select {
	case ch := <-s.reconnect:
		if ch != "second" {
			t.Errorf("pending channel = %q, want second", ch)
		}
	default:
		t.Fatal("no pending channel")
	}
}

func TestConnectToInterruptsLiveSession(t *testing.T) {
	s := New(Config{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop := make(chan struct{})
	disconnected := make(chan struct{})
	go s.watchSession(ctx, stop, func() { close(disconnected) })

	s.ConnectTo("NextChannel")

	select {
	case <-disconnected:
	case <-time.After(time.Second):
		t.Fatal("new target did not tear down the live session")
	}
	select {
	case ch := <-s.reconnect:
		if ch != "nextchannel" {
			t.Errorf("requeued channel = %q, want nextchannel", ch)
		}
	default:
		t.Fatal("target not requeued for the connect loop")
	}
	close(stop)
}

func TestWatchSessionStopsQuietly(t *testing.T) {
	s := New(Config{})
	done := make(chan struct{})
	stop := make(chan struct{})
	go func() {
		s.watchSession(context.Background(), stop, func() {
			t.Error("disconnect called on normal session end")
		})
		close(done)
	}()

	close(stop)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("watcher did not exit on session end")
	}
}

func TestRunOfflineEmitsDigits(t *testing.T) {
	s := New(Config{Offline: true, QueueSize: 64})
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	go func() { _ = s.Run(ctx) }()

	select {
	case m := <-s.Messages():
		if m.Username == "" || m.Text == "" {
			t.Errorf("empty synthetic message: %+v", m)
		}
		if m.Text != "reset" && (m.Text < "1" || m.Text > "4") {
			t.Errorf("unexpected synthetic text %q", m.Text)
		}
	case <-ctx.Done():
		t.Fatal("no synthetic message within timeout")
	}
}
