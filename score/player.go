package score

import "time"

// Rank tiers by score, lowest first. Rank is always recomputed from score,
// never stored independently of it.
var rankThresholds = []struct {
	Min  int
	Name string
}{
	{0, "Bronze"},
	{100, "Silver"},
	{500, "Gold"},
	{1500, "Platinum"},
	{5000, "Diamond"},
	{15000, "Legend"},
}

// RankFor returns the rank tier name for a score.
func RankFor(score int) string {
	name := rankThresholds[0].Name
	for _, t := range rankThresholds {
		if score >= t.Min {
			name = t.Name
		}
	}
	return name
}

// BaseRank is the tier every player starts at (and returns to on reset).
func BaseRank() string { return rankThresholds[0].Name }

// Player holds the persistent per-user stats. All mutation goes through the
// Record/Reset methods so streak and rank bookkeeping stays consistent.
type Player struct {
	Username       string
	Score          int
	Streak         int
	BestStreak     int
	WrongStreak    int
	Rank           string
	GamesPlayed    int
	CorrectAnswers int
	WrongAnswers   int
	LastSeen       time.Time
}

// RecordCorrect applies a correct answer worth points. The caller computes
// points from the streak BEFORE this increments it.
func (p *Player) RecordCorrect(points int, now time.Time) {
	p.WrongStreak = 0
	p.Score += points
	p.Streak++
	p.CorrectAnswers++
	p.GamesPlayed++
	p.LastSeen = now
	if p.Streak > p.BestStreak {
		p.BestStreak = p.Streak
	}
	p.Rank = RankFor(p.Score)
}

// RecordWrong applies a wrong answer: breaks the correct streak and grows
// the wrong streak used for the comeback bonus.
func (p *Player) RecordWrong(now time.Time) {
	p.WrongStreak++
	p.Streak = 0
	p.WrongAnswers++
	p.GamesPlayed++
	p.LastSeen = now
}

// ResetStats zeroes everything back to a fresh player.
func (p *Player) ResetStats() {
	p.Score = 0
	p.Streak = 0
	p.BestStreak = 0
	p.WrongStreak = 0
	p.Rank = BaseRank()
	p.GamesPlayed = 0
	p.CorrectAnswers = 0
	p.WrongAnswers = 0
}
