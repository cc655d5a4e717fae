package game

import (
	"fmt"
	"strings"
	"testing"
)

func TestRecentEventsExpire(t *testing.T) {
	cfg := testConfig()
	e, clk, _, _ := newTestEngine(t, cfg)

	e.pushEvent("hello", ColorDim, "X")
	if got := e.RecentEvents(); len(got) != 1 {
		t.Fatalf("recent = %d, want 1", len(got))
	}
	clk.Advance(timeSeconds(cfg.FeedSeconds + 1))
	if got := e.RecentEvents(); len(got) != 0 {
		t.Errorf("recent after lifetime = %d, want 0", len(got))
	}
}

func TestFeedBounded(t *testing.T) {
	cfg := testConfig()
	e, _, _, _ := newTestEngine(t, cfg)

	for i := 0; i < 50; i++ {
		e.pushEvent(fmt.Sprintf("event %d", i), ColorDim, "X")
	}
	if len(e.feed) > cfg.FeedMax*2 {
		t.Errorf("feed length = %d, exceeds bound %d", len(e.feed), cfg.FeedMax*2)
	}
	recent := e.RecentEvents()
	if len(recent) != cfg.FeedMax {
		t.Fatalf("recent = %d, want %d", len(recent), cfg.FeedMax)
	}
	if recent[len(recent)-1].Text != "event 49" {
		t.Errorf("newest = %q, want event 49", recent[len(recent)-1].Text)
	}
}

func TestFirstBloodEvent(t *testing.T) {
	e, _, src, _ := newTestEngine(t, testConfig())
	e.scoreOne("alice", 1, 10, src.q, false)
	if !hasEvent(e, "alice earned FIRST BLOOD!") {
		t.Errorf("no first blood event: %+v", e.feed)
	}
}

func TestStreakMilestoneEvent(t *testing.T) {
	e, _, src, _ := newTestEngine(t, testConfig())
	for i := 0; i < 3; i++ {
		e.scoreOne("alice", 1, 10, src.q, false)
	}
	found := false
	for _, ev := range e.feed {
		if strings.Contains(ev.Text, "On Fire") {
			found = true
		}
	}
	if !found {
		t.Errorf("no streak milestone at 3: %+v", e.feed)
	}
}

func TestSpeedDemonEvent(t *testing.T) {
	e, _, src, _ := newTestEngine(t, testConfig())
	e.scoreOne("alice", 1, 1.5, src.q, false)
	found := false
	for _, ev := range e.feed {
		if strings.Contains(ev.Text, "SPEED DEMON") {
			found = true
		}
	}
	if !found {
		t.Errorf("no speed demon under 2s: %+v", e.feed)
	}
}

func TestRankUpEvent(t *testing.T) {
	e, _, src, st := newTestEngine(t, testConfig())
	p := st.GetOrCreate("alice")
	p.Score = 95 // one correct answer away from Silver

	e.scoreOne("alice", 1, 30, src.q, false)
	if p.Rank != "Silver" {
		t.Fatalf("rank = %q, want Silver", p.Rank)
	}
	if !hasEvent(e, "alice ranked up to Silver!") {
		t.Errorf("no rank up event: %+v", e.feed)
	}
}

func TestCompetitionAlert(t *testing.T) {
	cfg := testConfig()
	e, _, _, st := newTestEngine(t, cfg)

	st.GetOrCreate("alice").Score = 100
	st.GetOrCreate("bob").Score = 90
	e.enterLeaderboard()
	if e.competitionAlert == "" {
		t.Error("no alert for a 10 point gap")
	}
	if !strings.Contains(e.competitionAlert, "bob") {
		t.Errorf("alert %q does not name the chaser", e.competitionAlert)
	}

	st.GetOrCreate("bob").Score = 10
	e.enterLeaderboard()
	if e.competitionAlert != "" {
		t.Errorf("alert for a wide gap: %q", e.competitionAlert)
	}
}

func TestCompetitionAlertNeedsTwoPlayers(t *testing.T) {
	e, _, _, st := newTestEngine(t, testConfig())
	st.GetOrCreate("alice").Score = 100
	e.enterLeaderboard()
	if e.competitionAlert != "" {
		t.Errorf("alert with one player: %q", e.competitionAlert)
	}
}
