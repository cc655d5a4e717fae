package game

import (
	"sort"
	"time"
)

// fillerNames are the synthetic participants used to keep the game feeling
// populated when real chat participation is low.
var fillerNames = []string{
	"QuizMaster", "BrainiacBob", "TriviaQueen", "Lucky7",
	"NerdAlert", "BookWorm42", "HistoryBuff", "ScienceGuy",
	"MovieFan", "GeoGuesser", "SportsFan99", "MusicLover",
	"GamerzUnite", "PixelPirate", "CosmicCat", "ThinkTank",
}

var fillerSet = func() map[string]struct{} {
	m := make(map[string]struct{}, len(fillerNames))
	for _, n := range fillerNames {
		m[n] = struct{}{}
	}
	return m
}()

// IsFiller reports whether username is a synthetic filler participant.
func IsFiller(username string) bool {
	_, ok := fillerSet[username]
	return ok
}

// fillerAnswer is the single simulated answer scheduled for one filler in
// one ASKING phase.
type fillerAnswer struct {
	fireAt time.Time
	choice int
	fired  bool
}

// scheduleFillers runs at enter-ASKING: it counts distinct real answerers
// over the rolling round window and activates exactly enough fillers to
// reach the configured minimum. Fillers no longer needed are deactivated
// and purged from the score store.
func (e *Engine) scheduleFillers() {
	need := e.cfg.MinPlayers - e.distinctRealAnswerers()
	if need < 0 {
		need = 0
	}
	if need > len(fillerNames) {
		need = len(fillerNames)
	}

	e.fillers = make(map[string]*fillerAnswer, need)
	active := make(map[string]struct{}, need)
	for i := 0; i < need; i++ {
		name := fillerNames[i]
		active[name] = struct{}{}
		frac := e.cfg.Filler.SpeedMin + e.rng.Float64()*(e.cfg.Filler.SpeedMax-e.cfg.Filler.SpeedMin)
		choice := e.question.CorrectIndex
		if e.rng.Float64() >= e.cfg.Filler.Accuracy {
			choice = e.randomWrongOption()
		}
		e.fillers[name] = &fillerAnswer{
			fireAt: e.questionStart.Add(time.Duration(frac * e.cfg.AskingSeconds * float64(time.Second))),
			choice: choice,
		}
	}

	var stale []string
	for _, name := range fillerNames {
		if _, ok := active[name]; !ok {
			stale = append(stale, name)
		}
	}
	e.store.Remove(stale)
}

// randomWrongOption picks a uniformly random incorrect option index.
func (e *Engine) randomWrongOption() int {
	n := len(e.question.Options)
	if n <= 1 {
		return 0
	}
	choice := e.rng.Intn(n - 1)
	if choice >= e.question.CorrectIndex {
		choice++
	}
	return choice
}

// fireDueFillers submits any scheduled filler answers whose fire time has
// passed. The scheduled time (not the tick time) is the answer timestamp so
// filler speed stays a pure function of the difficulty profile.
func (e *Engine) fireDueFillers() {
	now := e.clock.Now()
	names := make([]string, 0, len(e.fillers))
	for name, f := range e.fillers {
		if !f.fired && !now.Before(f.fireAt) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	for _, name := range names {
		f := e.fillers[name]
		f.fired = true
		e.recordAnswer(name, f.choice, f.fireAt, true)
	}
}

// recordRealHistory notes which real usernames answered this round, keeping
// only the configured rolling window.
func (e *Engine) recordRealHistory() {
	round := map[string]struct{}{}
	for name := range e.answers {
		if !IsFiller(name) {
			round[name] = struct{}{}
		}
	}
	e.realHistory = append(e.realHistory, round)
	if w := e.cfg.FillerWindowRounds; w > 0 && len(e.realHistory) > w {
		e.realHistory = e.realHistory[len(e.realHistory)-w:]
	}
}

// distinctRealAnswerers counts distinct real usernames across the window.
func (e *Engine) distinctRealAnswerers() int {
	seen := map[string]struct{}{}
	for _, round := range e.realHistory {
		for name := range round {
			seen[name] = struct{}{}
		}
	}
	return len(seen)
}
