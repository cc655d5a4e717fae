package game

import (
	"math/rand"
	"testing"
	"time"

	"github.com/onnwee/quizcast/score"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time { return c.t }

func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

type stubSource struct {
	q   Question
	cat int
}

func (s *stubSource) Pop() Question      { return s.q }
func (s *stubSource) SetCategory(id int) { s.cat = id }

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.DoublePointsChance = 0
	cfg.MinPlayers = 0
	return cfg
}

func newTestEngine(t *testing.T, cfg Config) (*Engine, *fakeClock, *stubSource, *score.Store) {
	t.Helper()
	clk := &fakeClock{t: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
	src := &stubSource{q: Question{
		Text:         "capital of France?",
		Options:      []string{"London", "Paris", "Berlin", "Rome"},
		CorrectIndex: 1,
		Category:     "Geography",
	}}
	st := score.NewMemory()
	e := New(st, src, cfg, clk, rand.New(rand.NewSource(1)))
	return e, clk, src, st
}

func timeSeconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

// advance moves the clock and the state machine together.
func advance(e *Engine, clk *fakeClock, seconds float64) {
	clk.Advance(timeSeconds(seconds))
	e.Update(seconds)
}

func TestPoints(t *testing.T) {
	e, _, _, _ := newTestEngine(t, testConfig())

	tests := []struct {
		name    string
		elapsed float64
		streak  int
		want    int
	}{
		{"fast tier", 5, 0, 20},
		{"fast tier boundary", 7.5, 0, 20},
		{"medium tier", 10, 0, 15},
		{"medium tier boundary", 15, 0, 15},
		{"slow", 20, 0, 10},
		{"full window", 30, 0, 10},
		{"streak five slow", 20, 5, 15},
		{"streak five fast", 5, 5, 30},
		{"streak capped", 5, 30, 60},
		{"elapsed past window clamps", 45, 0, 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := e.points(tt.elapsed, tt.streak); got != tt.want {
				t.Errorf("points(%v, %d) = %d, want %d", tt.elapsed, tt.streak, got, tt.want)
			}
		})
	}
}

func TestPointsMinimumOne(t *testing.T) {
	cfg := testConfig()
	cfg.BasePoints = 0
	e, _, _, _ := newTestEngine(t, cfg)
	if got := e.points(30, 0); got != 1 {
		t.Errorf("points with zero base = %d, want 1", got)
	}
}

func TestScoreOneWrong(t *testing.T) {
	e, _, src, st := newTestEngine(t, testConfig())
	pts, correct := e.scoreOne("alice", 0, 5, src.q, false)
	if pts != 0 || correct {
		t.Fatalf("wrong answer scored pts=%d correct=%v", pts, correct)
	}
	p := st.GetOrCreate("alice")
	if p.WrongStreak != 1 || p.WrongAnswers != 1 || p.Score != 0 {
		t.Errorf("wrong answer stats = %+v", p)
	}
}

func TestScoreOneDoublePoints(t *testing.T) {
	e, _, src, _ := newTestEngine(t, testConfig())
	pts, correct := e.scoreOne("alice", 1, 30, src.q, true)
	if !correct || pts != 20 {
		t.Errorf("double points = %d correct=%v, want 20 true", pts, correct)
	}
}

func TestScoreOneComebackBonus(t *testing.T) {
	e, _, src, st := newTestEngine(t, testConfig())
	p := st.GetOrCreate("alice")
	p.WrongStreak = 3

	pts, correct := e.scoreOne("alice", 1, 30, src.q, false)
	if !correct || pts != 15 {
		t.Fatalf("comeback points = %d correct=%v, want 15 true", pts, correct)
	}
	if p.WrongStreak != 0 {
		t.Errorf("wrong streak not cleared: %d", p.WrongStreak)
	}
	found := false
	for _, ev := range e.feed {
		if ev.Text == "alice COMEBACK!" {
			found = true
		}
	}
	if !found {
		t.Error("no comeback event in feed")
	}
}

func TestScoreOneStreakMultiplierUsesPriorStreak(t *testing.T) {
	e, _, src, st := newTestEngine(t, testConfig())
	p := st.GetOrCreate("alice")
	p.Streak = 5

	// Multiplier from the streak before the increment: 10 * 1.5 = 15.
	pts, _ := e.scoreOne("alice", 1, 30, src.q, false)
	if pts != 15 {
		t.Errorf("points = %d, want 15", pts)
	}
	if p.Streak != 6 {
		t.Errorf("streak after = %d, want 6", p.Streak)
	}
}
