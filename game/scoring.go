package game

import "math"

// points computes the deterministic score for a correct answer.
//
// timeFraction = clamp(elapsed/duration, 0, 1); the speed multiplier is 2.0
// inside the first quarter of the window, 1.5 inside the first half, else
// 1.0. The streak multiplier uses the streak BEFORE this answer increments
// it, capped at MaxStreakMult. The product is floored and never below 1.
func (e *Engine) points(elapsed float64, streak int) int {
	frac := elapsed / e.cfg.AskingSeconds
	if frac < 0 {
		frac = 0
	}
	if frac > 1 {
		frac = 1
	}

	speedMult := 1.0
	switch {
	case frac <= e.cfg.SpeedTier1Frac:
		speedMult = e.cfg.SpeedTier1Mult
	case frac <= e.cfg.SpeedTier2Frac:
		speedMult = e.cfg.SpeedTier2Mult
	}

	streakMult := 1.0 + float64(streak)*e.cfg.StreakBonusPer
	if streakMult > e.cfg.MaxStreakMult {
		streakMult = e.cfg.MaxStreakMult
	}

	total := int(math.Floor(float64(e.cfg.BasePoints) * speedMult * streakMult))
	if total < 1 {
		return 1
	}
	return total
}

// scoreOne scores a single (username, choice) against q, mutating the
// player's persistent stats through the store. Returns the points awarded
// and whether the answer was correct.
func (e *Engine) scoreOne(username string, choice int, elapsed float64, q Question, double bool) (int, bool) {
	p := e.store.GetOrCreate(username)
	oldStreak := p.Streak
	oldRank := p.Rank
	defer e.store.MarkDirty(username)

	if choice != q.CorrectIndex {
		p.RecordWrong(e.clock.Now())
		return 0, false
	}

	pts := e.points(elapsed, p.Streak)
	if double {
		pts = int(float64(pts) * e.cfg.DoublePointsMult)
	}
	if p.WrongStreak >= e.cfg.ComebackThreshold {
		pts += e.cfg.ComebackBonus
		e.pushEvent(username+" COMEBACK!", ColorGreen, "BACK")
		e.queueSound(Cue("streak"))
	}

	p.RecordCorrect(pts, e.clock.Now())
	e.checkAchievements(p, elapsed, oldStreak, oldRank)
	return pts, true
}
