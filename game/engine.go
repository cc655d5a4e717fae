// Package game implements the timer-driven round state machine: question
// presentation, chat-driven answers and votes, deterministic scoring,
// synthetic filler participants, and the per-tick render snapshot.
//
// The engine is single-threaded by contract: Update, ProcessMessage and
// Snapshot are all called from the game loop. Concurrency lives at the I/O
// edges (chat, broadcast, persistence), never here.
package game

import (
	"log/slog"
	"math/rand"
	"sort"
	"time"

	"github.com/onnwee/quizcast/score"
	"github.com/onnwee/quizcast/telemetry"
)

// Clock abstracts time so tests can drive the state machine deterministically.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// QuestionSource supplies the next question without ever blocking, and is
// steered toward a category after theme votes.
type QuestionSource interface {
	Pop() Question
	SetCategory(id int)
}

// closedRound keeps just enough of a finished ASKING phase to score late
// answers arriving inside the grace window.
type closedRound struct {
	question     Question
	start        time.Time
	doublePoints bool
	answered     map[string]struct{}
	result       *RoundResult
}

// Engine is the round state machine.
type Engine struct {
	cfg       Config
	store     *score.Store
	questions QuestionSource
	clock     Clock
	rng       *rand.Rand
	log       *slog.Logger

	phase         Phase
	stateTimer    float64
	stateDuration float64

	question      *Question
	answers       map[string]Answer
	questionStart time.Time
	doublePoints  bool

	askingEnded time.Time
	lastRound   *closedRound

	vote        *VoteState
	voteEnded   time.Time
	votePending bool

	roundCount int
	categoryID int

	leaderboard      []score.Player
	competitionAlert string
	feed             []GameEvent
	sounds           []SoundCue

	fillers     map[string]*fillerAnswer
	realHistory []map[string]struct{}

	sessionStart time.Time
}

// New builds an engine. clock and rng may be nil for production defaults.
func New(store *score.Store, questions QuestionSource, cfg Config, clock Clock, rng *rand.Rand) *Engine {
	if clock == nil {
		clock = realClock{}
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Engine{
		cfg:          cfg,
		store:        store,
		questions:    questions,
		clock:        clock,
		rng:          rng,
		log:          slog.Default().With(slog.String("component", "game")),
		phase:        PhaseWaiting,
		answers:      map[string]Answer{},
		fillers:      map[string]*fillerAnswer{},
		sessionStart: clock.Now(),
	}
}

// Phase returns the current state.
func (e *Engine) Phase() Phase { return e.phase }

// Round returns the number of completed rounds.
func (e *Engine) Round() int { return e.roundCount }

// TimeRemaining returns seconds left in the current state.
func (e *Engine) TimeRemaining() float64 {
	if e.stateTimer < 0 {
		return 0
	}
	return e.stateTimer
}

// TimeFraction returns the remaining fraction of the current state, in [0,1].
func (e *Engine) TimeFraction() float64 {
	if e.stateDuration <= 0 {
		return 0
	}
	f := e.stateTimer / e.stateDuration
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}

// Update advances the state machine by dt seconds. Side effects are limited
// to state/timer mutation and event/sound queueing; scoring happens at phase
// boundaries and on late grace-window answers.
func (e *Engine) Update(dt float64) {
	e.sounds = e.sounds[:0]

	if e.phase == PhaseWaiting {
		// The fallback question bank makes the source always ready.
		e.transition(PhaseAsking)
		return
	}

	e.stateTimer -= dt

	if e.phase == PhaseAsking {
		e.fireDueFillers()
		remaining := e.TimeRemaining()
		frac := e.TimeFraction()
		switch {
		case remaining <= 5:
			e.queueSound(Cue("countdown"))
		case frac < 0.25:
			e.queueSound(Cue("tick_urgent"))
		case frac < 0.5:
			e.queueSound(Cue("tick"))
		}
	}

	e.maybeResolveVote()

	if e.stateTimer <= 0 {
		e.onExpired()
	}
}

func (e *Engine) transition(p Phase) {
	e.phase = p
	e.queueSound(Cue("whoosh"))
	switch p {
	case PhaseAsking:
		e.stateDuration = e.cfg.AskingSeconds
		e.stateTimer = e.cfg.AskingSeconds
		e.enterAsking()
	case PhaseRevealing:
		e.stateDuration = e.cfg.RevealSeconds
		e.stateTimer = e.cfg.RevealSeconds
		e.enterRevealing()
	case PhaseLeaderboard:
		e.stateDuration = e.cfg.LeaderboardSeconds
		e.stateTimer = e.cfg.LeaderboardSeconds
		e.enterLeaderboard()
	case PhaseThemeVote:
		e.stateDuration = e.cfg.VoteSeconds
		e.stateTimer = e.cfg.VoteSeconds
		e.enterThemeVote()
	}
}

func (e *Engine) onExpired() {
	switch e.phase {
	case PhaseAsking:
		e.transition(PhaseRevealing)
	case PhaseRevealing:
		e.transition(PhaseLeaderboard)
	case PhaseLeaderboard:
		if e.roundCount > 0 && e.cfg.RoundsBeforeVote > 0 && e.roundCount%e.cfg.RoundsBeforeVote == 0 {
			e.transition(PhaseThemeVote)
		} else {
			e.transition(PhaseAsking)
		}
	case PhaseThemeVote:
		// Resolution is deferred by the grace window so late votes count.
		e.voteEnded = e.clock.Now()
		e.votePending = true
		e.transition(PhaseAsking)
	}
}

func (e *Engine) enterAsking() {
	q := e.questions.Pop()
	e.question = &q
	e.answers = map[string]Answer{}
	e.questionStart = e.clock.Now()

	e.doublePoints = e.rng.Float64() < e.cfg.DoublePointsChance
	if e.doublePoints {
		e.pushEvent("DOUBLE POINTS ROUND!", ColorGold, "2X")
		// One grouped cue so the fanfare plays on top of the question sting.
		e.queueSound(CueGroup("new_question", "double_points"))
	} else {
		e.queueSound(Cue("new_question"))
	}

	e.scheduleFillers()
}

func (e *Engine) enterRevealing() {
	e.roundCount++
	e.askingEnded = e.clock.Now()
	e.recordRealHistory()

	var result *RoundResult
	telemetry.TimeFunc(telemetry.RoundResolveDuration, func() {
		result = e.resolveRound()
	})
	answered := make(map[string]struct{}, len(e.answers))
	for name := range e.answers {
		answered[name] = struct{}{}
	}
	e.lastRound = &closedRound{
		question:     *e.question,
		start:        e.questionStart,
		doublePoints: e.doublePoints,
		answered:     answered,
		result:       result,
	}

	if len(result.Correct) > 0 {
		e.queueSound(Cue("correct"))
	} else {
		e.queueSound(Cue("wrong"))
	}
}

func (e *Engine) enterLeaderboard() {
	e.leaderboard = e.store.TopN(e.cfg.LeaderboardSize)
	e.queueSound(Cue("fanfare"))
	e.checkCompetition()
}

// ProcessMessage is the single chat entry point. Text arrives pre-normalized
// (trimmed, lower-cased, punctuation stripped) from the chat source.
func (e *Engine) ProcessMessage(username, text string) {
	now := e.clock.Now()

	if text == "reset" {
		e.store.Reset(username)
		e.pushEvent(username+" reset their score", ColorDim, "RST")
		return
	}

	choice, ok := parseChoice(text)
	if !ok {
		e.log.Debug("message ignored", slog.String("username", username), slog.String("state", e.phase.String()))
		return
	}

	switch e.phase {
	case PhaseAsking:
		// A theme vote whose grace window is still open claims the digit
		// first, so late votes do not land as answers to the new question.
		if e.handleLateVote(username, choice, now) {
			return
		}
		e.recordAnswer(username, choice, now, false)
	case PhaseThemeVote:
		e.recordVote(username, choice+1)
	default:
		e.handleLateMessage(username, choice, now)
	}
}

// parseChoice interprets a leading digit 1-4 as a 0-based option index.
func parseChoice(text string) (int, bool) {
	if len(text) == 0 {
		return 0, false
	}
	c := text[0]
	if c < '1' || c > '4' {
		return 0, false
	}
	return int(c - '1'), true
}

// recordAnswer stores a live answer. Changes are freely allowed before the
// deadline; the last choice wins.
func (e *Engine) recordAnswer(username string, choice int, at time.Time, filler bool) {
	if e.question == nil || choice >= len(e.question.Options) {
		e.log.Debug("answer out of range", slog.String("username", username), slog.Int("choice", choice))
		return
	}
	_, existing := e.answers[username]
	e.answers[username] = Answer{Choice: choice, At: at}
	if !existing {
		e.queueSound(Cue("answer_lock"))
		e.welcome(username, filler)
	}
}

// recordVote stores a live theme vote (option numbers are 1-based). Voting
// for a nonexistent option is ignored with a diagnostic.
func (e *Engine) recordVote(username string, option int) {
	if e.vote == nil {
		return
	}
	if _, ok := e.vote.Options[option]; !ok {
		e.log.Debug("vote for nonexistent option", slog.String("username", username), slog.Int("option", option))
		return
	}
	_, had := e.vote.Votes[username]
	e.vote.Votes[username] = option
	if !had {
		e.queueSound(Cue("vote"))
	}
}

// handleLateMessage attributes a digit message arriving outside ASKING and
// THEME_VOTE to the most recently ended of those phases, when the grace
// window is still open. A new late answer scores with no speed bonus; an
// existing answer or vote cannot be changed once the deadline has passed.
func (e *Engine) handleLateMessage(username string, choice int, now time.Time) {
	grace := e.cfg.GraceSeconds

	if e.lastRound != nil && !e.askingEnded.IsZero() &&
		now.Sub(e.askingEnded).Seconds() <= grace && e.askingEnded.After(e.voteEnded) {
		if _, dup := e.lastRound.answered[username]; dup {
			e.log.Debug("late answer change denied", slog.String("username", username))
			return
		}
		e.scoreLateAnswer(username, choice)
		return
	}

	if e.handleLateVote(username, choice, now) {
		return
	}

	e.log.Debug("message outside any window", slog.String("username", username), slog.String("state", e.phase.String()))
}

// handleLateVote consumes a digit while an ended theme vote's grace window is
// still open. New voters count; a user who already voted cannot change it,
// and their digit is swallowed rather than becoming an answer.
func (e *Engine) handleLateVote(username string, choice int, now time.Time) bool {
	if !e.votePending || e.vote == nil || now.Sub(e.voteEnded).Seconds() > e.cfg.GraceSeconds {
		return false
	}
	if _, had := e.vote.Votes[username]; had {
		e.log.Debug("late vote change denied", slog.String("username", username))
		return true
	}
	if _, ok := e.vote.Options[choice+1]; ok {
		e.vote.Votes[username] = choice + 1
		e.queueSound(Cue("vote"))
	}
	return true
}

// welcome emits a first-time event for real players only.
func (e *Engine) welcome(username string, filler bool) {
	if filler || IsFiller(username) {
		return
	}
	if e.store.Known(username) {
		return
	}
	e.store.GetOrCreate(username)
	e.pushEvent("Welcome "+username+"! First time here", ColorGreen, "NEW")
}

func (e *Engine) queueSound(c SoundCue) {
	e.sounds = append(e.sounds, c)
}

// Snapshot returns the render-data copy for this tick. Sound cues are the
// ones queued since the last Update.
func (e *Engine) Snapshot() Snapshot {
	snap := Snapshot{
		State:            e.phase.String(),
		Round:            e.roundCount,
		Category:         e.CategoryName(),
		PlayerCount:      e.realPlayerCount(),
		TimeRemaining:    e.TimeRemaining(),
		TimeFraction:     e.TimeFraction(),
		AnswerCount:      len(e.answers),
		DoublePoints:     e.doublePoints,
		Events:           e.RecentEvents(),
		CompetitionAlert: e.competitionAlert,
		Uptime:           e.clock.Now().Sub(e.sessionStart).Seconds(),
	}
	if e.question != nil {
		q := *e.question
		snap.Question = &q
	}
	if e.lastRound != nil {
		r := *e.lastRound.result
		snap.LastResult = &r
	}
	if len(e.leaderboard) > 0 {
		snap.Leaderboard = append([]score.Player(nil), e.leaderboard...)
	}
	if e.vote != nil {
		v := VoteState{Options: e.vote.Options, Votes: make(map[string]int, len(e.vote.Votes)), Start: e.vote.Start}
		for k, val := range e.vote.Votes {
			v.Votes[k] = val
		}
		snap.Vote = &v
	}
	if len(e.sounds) > 0 {
		snap.Sounds = append([]SoundCue(nil), e.sounds...)
	}
	return snap
}

// realPlayerCount excludes active filler participants.
func (e *Engine) realPlayerCount() int {
	n := e.store.Count() - len(e.fillers)
	if n < 0 {
		return 0
	}
	return n
}

// CategoryName returns the active category's display name.
func (e *Engine) CategoryName() string {
	for _, c := range e.cfg.Categories {
		if c.ID == e.categoryID {
			return c.Name
		}
	}
	return "General"
}

// resolveRound scores every recorded answer exactly once and builds the
// result. Usernames are walked in sorted order so identical inputs always
// yield identical results.
func (e *Engine) resolveRound() *RoundResult {
	result := &RoundResult{TotalAnswers: len(e.answers)}
	if e.question == nil {
		return result
	}
	result.Question = *e.question

	names := make([]string, 0, len(e.answers))
	for name := range e.answers {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		ans := e.answers[name]
		elapsed := ans.At.Sub(e.questionStart).Seconds()
		pts, correct := e.scoreOne(name, ans.Choice, elapsed, *e.question, e.doublePoints)
		if correct {
			result.Correct = append(result.Correct, CorrectAnswer{Username: name, Points: pts, Elapsed: elapsed})
		} else {
			result.Wrong = append(result.Wrong, WrongAnswer{Username: name, Choice: ans.Choice})
		}
	}

	sort.Slice(result.Correct, func(i, j int) bool {
		if result.Correct[i].Elapsed != result.Correct[j].Elapsed {
			return result.Correct[i].Elapsed < result.Correct[j].Elapsed
		}
		return result.Correct[i].Username < result.Correct[j].Username
	})
	if len(result.Correct) > 0 {
		result.FastestPlayer = result.Correct[0].Username
		result.FastestTime = result.Correct[0].Elapsed
	}
	return result
}

// scoreLateAnswer scores a grace-window answer against the previous round:
// full streak/double/comeback treatment, but no speed bonus (elapsed is
// pinned to the full asking duration).
func (e *Engine) scoreLateAnswer(username string, choice int) {
	lr := e.lastRound
	if choice >= len(lr.question.Options) {
		e.log.Debug("late answer out of range", slog.String("username", username), slog.Int("choice", choice))
		return
	}
	lr.answered[username] = struct{}{}
	e.welcome(username, false)
	elapsed := e.cfg.AskingSeconds
	pts, correct := e.scoreOne(username, choice, elapsed, lr.question, lr.doublePoints)
	lr.result.TotalAnswers++
	if correct {
		lr.result.Correct = append(lr.result.Correct, CorrectAnswer{Username: username, Points: pts, Elapsed: elapsed})
	} else {
		lr.result.Wrong = append(lr.result.Wrong, WrongAnswer{Username: username, Choice: choice})
	}
	e.log.Debug("late answer scored", slog.String("username", username), slog.Bool("correct", correct))
}
