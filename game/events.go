package game

import (
	"fmt"

	"github.com/onnwee/quizcast/score"
)

// Streak milestone display names.
var streakMilestones = map[int]string{
	3:   "On Fire",
	5:   "Unstoppable",
	10:  "Legendary Streak",
	15:  "Quiz Machine",
	25:  "GODLIKE",
	50:  "Transcendent",
	100: "The Chosen One",
}

// pushEvent appends to the feed, trimming well past the visible maximum so
// the ring stays bounded.
func (e *Engine) pushEvent(text, color, icon string) {
	e.feed = append(e.feed, GameEvent{Text: text, Color: color, Icon: icon, At: e.clock.Now()})
	if max := e.cfg.FeedMax * 2; max > 0 && len(e.feed) > max {
		e.feed = append([]GameEvent(nil), e.feed[len(e.feed)-e.cfg.FeedMax:]...)
	}
}

// RecentEvents returns the events still inside their visible lifetime,
// newest last, capped at the configured feed size.
func (e *Engine) RecentEvents() []GameEvent {
	now := e.clock.Now()
	alive := make([]GameEvent, 0, len(e.feed))
	for _, ev := range e.feed {
		if now.Sub(ev.At).Seconds() < e.cfg.FeedSeconds {
			alive = append(alive, ev)
		}
	}
	if e.cfg.FeedMax > 0 && len(alive) > e.cfg.FeedMax {
		alive = alive[len(alive)-e.cfg.FeedMax:]
	}
	return alive
}

// checkAchievements observes a scored correct answer and populates the event
// feed. Observers never alter scoring.
func (e *Engine) checkAchievements(p *score.Player, elapsed float64, oldStreak int, oldRank string) {
	if p.CorrectAnswers == 1 {
		e.pushEvent(p.Username+" earned FIRST BLOOD!", ColorGold, "ACH")
	}

	if name, ok := streakMilestones[p.Streak]; ok {
		e.pushEvent(fmt.Sprintf("%s: %s (x%d)", p.Username, name, p.Streak), ColorGold, "FIRE")
		e.queueSound(Cue("streak"))
	}

	if elapsed < 2.0 {
		e.pushEvent(fmt.Sprintf("%s SPEED DEMON (%.1fs)", p.Username, elapsed), ColorDiamond, "FAST")
	}

	if p.Rank != oldRank {
		e.pushEvent(p.Username+" ranked up to "+p.Rank+"!", ColorGold, "UP")
		e.queueSound(Cue("rank_up"))
	}

	if p.GamesPlayed == 100 {
		e.pushEvent(p.Username+" played 100 rounds! CENTURION", ColorAmber, "100")
	}
}

// checkCompetition raises a close-race alert when the top two scores are
// within the configured gap.
func (e *Engine) checkCompetition() {
	e.competitionAlert = ""
	if len(e.leaderboard) < 2 {
		return
	}
	top, second := e.leaderboard[0], e.leaderboard[1]
	gap := top.Score - second.Score
	if gap > 0 && gap <= e.cfg.CompetitionGap {
		e.competitionAlert = fmt.Sprintf("%s is only %d pts behind %s!", second.Username, gap, top.Username)
	}
}
