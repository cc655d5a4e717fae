package game

// FillerProfile controls how synthetic filler participants behave: accuracy
// is the probability of a correct answer, and the speed bounds are fractions
// of the asking window at which the single scheduled answer fires.
type FillerProfile struct {
	Accuracy float64
	SpeedMin float64
	SpeedMax float64
}

// FillerProfiles are the named difficulty profiles.
var FillerProfiles = map[string]FillerProfile{
	"easy":   {Accuracy: 0.25, SpeedMin: 0.50, SpeedMax: 0.90},
	"medium": {Accuracy: 0.55, SpeedMin: 0.25, SpeedMax: 0.70},
	"hard":   {Accuracy: 0.70, SpeedMin: 0.05, SpeedMax: 0.45},
}

// Config holds every tunable of the round engine. Durations are in seconds;
// the engine only ever sees relative time through its injected clock.
type Config struct {
	AskingSeconds      float64
	RevealSeconds      float64
	LeaderboardSeconds float64
	VoteSeconds        float64
	RoundsBeforeVote   int
	GraceSeconds       float64

	BasePoints     int
	SpeedTier1Frac float64 // elapsed fraction for the 2x tier
	SpeedTier2Frac float64 // elapsed fraction for the 1.5x tier
	SpeedTier1Mult float64
	SpeedTier2Mult float64
	StreakBonusPer float64
	MaxStreakMult  float64

	DoublePointsChance float64
	DoublePointsMult   float64
	ComebackBonus      int
	ComebackThreshold  int

	MinPlayers         int
	FillerWindowRounds int
	Filler             FillerProfile

	LeaderboardSize int
	FeedMax         int
	FeedSeconds     float64
	CompetitionGap  int

	Categories []Category
}

// DefaultCategories mirrors the Open Trivia DB multiple-choice categories
// the game votes over.
func DefaultCategories() []Category {
	return []Category{
		{9, "General Knowledge"},
		{11, "Film"},
		{12, "Music"},
		{15, "Video Games"},
		{17, "Science & Nature"},
		{18, "Computers"},
		{21, "Sports"},
		{22, "Geography"},
		{23, "History"},
		{27, "Animals"},
		{31, "Anime & Manga"},
	}
}

// DefaultConfig returns the production tuning.
func DefaultConfig() Config {
	return Config{
		AskingSeconds:      30,
		RevealSeconds:      8,
		LeaderboardSeconds: 10,
		VoteSeconds:        20,
		RoundsBeforeVote:   5,
		GraceSeconds:       5,

		BasePoints:     10,
		SpeedTier1Frac: 0.25,
		SpeedTier2Frac: 0.50,
		SpeedTier1Mult: 2.0,
		SpeedTier2Mult: 1.5,
		StreakBonusPer: 0.1,
		MaxStreakMult:  3.0,

		DoublePointsChance: 0.12,
		DoublePointsMult:   2.0,
		ComebackBonus:      5,
		ComebackThreshold:  3,

		MinPlayers:         4,
		FillerWindowRounds: 3,
		Filler:             FillerProfiles["medium"],

		LeaderboardSize: 10,
		FeedMax:         6,
		FeedSeconds:     5,
		CompetitionGap:  20,

		Categories: DefaultCategories(),
	}
}
