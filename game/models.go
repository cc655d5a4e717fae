package game

import (
	"time"

	"github.com/onnwee/quizcast/score"
)

// Phase is the round state machine state.
type Phase int

const (
	PhaseWaiting Phase = iota
	PhaseAsking
	PhaseRevealing
	PhaseLeaderboard
	PhaseThemeVote
)

func (p Phase) String() string {
	switch p {
	case PhaseWaiting:
		return "WAITING"
	case PhaseAsking:
		return "ASKING"
	case PhaseRevealing:
		return "REVEALING"
	case PhaseLeaderboard:
		return "LEADERBOARD"
	case PhaseThemeVote:
		return "THEME_VOTE"
	}
	return "UNKNOWN"
}

// Question is immutable once drawn; options are shuffled at draw time so the
// correct index is randomized per presentation.
type Question struct {
	Text         string
	Options      []string
	CorrectIndex int
	Category     string
	Difficulty   string
}

// Answer is one user's recorded choice during an ASKING phase. Overwritten
// if the user answers again before the deadline.
type Answer struct {
	Choice int
	At     time.Time
}

// CorrectAnswer is one scored correct response in a RoundResult.
type CorrectAnswer struct {
	Username string
	Points   int
	Elapsed  float64
}

// WrongAnswer is one scored wrong response in a RoundResult.
type WrongAnswer struct {
	Username string
	Choice   int
}

// RoundResult is produced once per round at reveal time. Late answers inside
// the grace window are appended after the fact.
type RoundResult struct {
	Question      Question
	Correct       []CorrectAnswer
	Wrong         []WrongAnswer
	TotalAnswers  int
	FastestPlayer string
	FastestTime   float64
}

// Category is a votable question category.
type Category struct {
	ID   int
	Name string
}

// VoteState holds one THEME_VOTE phase: up to 4 numbered options and one
// vote per username (last vote wins during the live phase).
type VoteState struct {
	Options map[int]Category
	Votes   map[string]int
	Start   time.Time
}

// Counts returns votes per option number.
func (v *VoteState) Counts() map[int]int {
	counts := make(map[int]int, len(v.Options))
	for opt := range v.Options {
		counts[opt] = 0
	}
	for _, opt := range v.Votes {
		if _, ok := counts[opt]; ok {
			counts[opt]++
		}
	}
	return counts
}

// Total returns the number of users who voted.
func (v *VoteState) Total() int { return len(v.Votes) }

// GameEvent is a transient feed entry with a fixed visible lifetime.
type GameEvent struct {
	Text  string
	Color string
	Icon  string
	At    time.Time
}

// Event feed color tags resolved by the render layer.
const (
	ColorGold    = "gold"
	ColorGreen   = "green"
	ColorAmber   = "amber"
	ColorDiamond = "diamond"
	ColorDim     = "dim"
)

// SoundCue is either a single sound or a group of sounds played together,
// resolved by the sound layer.
type SoundCue struct {
	names []string
}

// Cue returns a single-sound cue.
func Cue(name string) SoundCue { return SoundCue{names: []string{name}} }

// CueGroup returns a cue that plays several sounds together.
func CueGroup(names ...string) SoundCue { return SoundCue{names: names} }

// Single returns the sound name and true when the cue is a single sound.
func (c SoundCue) Single() (string, bool) {
	if len(c.names) == 1 {
		return c.names[0], true
	}
	return "", false
}

// Names returns all sound names in the cue.
func (c SoundCue) Names() []string { return c.names }

// Snapshot is the per-tick render contract between the engine and the
// renderer/status surfaces. It contains copies only; the engine keeps no
// aliases into it.
type Snapshot struct {
	State            string
	Round            int
	Category         string
	PlayerCount      int
	TimeRemaining    float64
	TimeFraction     float64
	Question         *Question
	AnswerCount      int
	LastResult       *RoundResult
	Leaderboard      []score.Player
	Vote             *VoteState
	DoublePoints     bool
	Events           []GameEvent
	Sounds           []SoundCue
	CompetitionAlert string
	Uptime           float64
}
