package score

import (
	"testing"
	"time"
)

func TestRankFor(t *testing.T) {
	tests := []struct {
		score int
		want  string
	}{
		{0, "Bronze"},
		{99, "Bronze"},
		{100, "Silver"},
		{499, "Silver"},
		{500, "Gold"},
		{1500, "Platinum"},
		{5000, "Diamond"},
		{15000, "Legend"},
		{999999, "Legend"},
	}
	for _, tt := range tests {
		if got := RankFor(tt.score); got != tt.want {
			t.Errorf("RankFor(%d) = %q, want %q", tt.score, got, tt.want)
		}
	}
}

func TestRecordCorrect(t *testing.T) {
	now := time.Now()
	p := &Player{Username: "alice", Rank: BaseRank(), WrongStreak: 2}

	p.RecordCorrect(60, now)
	p.RecordCorrect(60, now)
	if p.Score != 120 || p.Streak != 2 || p.BestStreak != 2 {
		t.Errorf("after two correct: %+v", p)
	}
	if p.WrongStreak != 0 {
		t.Errorf("wrong streak = %d, want 0", p.WrongStreak)
	}
	if p.Rank != "Silver" {
		t.Errorf("rank = %q, want Silver", p.Rank)
	}
	if p.GamesPlayed != 2 || p.CorrectAnswers != 2 {
		t.Errorf("counters: %+v", p)
	}
}

func TestRecordWrongBreaksStreak(t *testing.T) {
	now := time.Now()
	p := &Player{Username: "alice", Rank: BaseRank()}
	p.RecordCorrect(10, now)
	p.RecordCorrect(10, now)
	p.RecordWrong(now)

	if p.Streak != 0 || p.BestStreak != 2 {
		t.Errorf("streaks after wrong: streak=%d best=%d", p.Streak, p.BestStreak)
	}
	if p.WrongStreak != 1 || p.WrongAnswers != 1 {
		t.Errorf("wrong counters: %+v", p)
	}
	if p.Score != 20 {
		t.Errorf("score changed by wrong answer: %d", p.Score)
	}
}

func TestResetStats(t *testing.T) {
	now := time.Now()
	p := &Player{Username: "alice", Rank: BaseRank()}
	p.RecordCorrect(200, now)
	p.ResetStats()

	if p.Score != 0 || p.Streak != 0 || p.BestStreak != 0 || p.GamesPlayed != 0 {
		t.Errorf("reset left stats: %+v", p)
	}
	if p.Rank != BaseRank() {
		t.Errorf("rank = %q, want %q", p.Rank, BaseRank())
	}
	if p.Username != "alice" {
		t.Error("reset cleared the username")
	}
}
