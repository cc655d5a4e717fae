package game

import "log/slog"

// enterThemeVote presents up to 4 random categories, excluding the one
// currently active.
func (e *Engine) enterThemeVote() {
	available := make([]Category, 0, len(e.cfg.Categories))
	for _, c := range e.cfg.Categories {
		if c.ID != e.categoryID {
			available = append(available, c)
		}
	}
	e.rng.Shuffle(len(available), func(i, j int) {
		available[i], available[j] = available[j], available[i]
	})
	n := len(available)
	if n > 4 {
		n = 4
	}
	options := make(map[int]Category, n)
	for i := 0; i < n; i++ {
		options[i+1] = available[i]
	}
	e.vote = &VoteState{Options: options, Votes: map[string]int{}, Start: e.clock.Now()}
}

// maybeResolveVote finalizes a finished theme vote once its grace window has
// lapsed, so late votes still count.
func (e *Engine) maybeResolveVote() {
	if !e.votePending || e.vote == nil {
		return
	}
	if e.clock.Now().Sub(e.voteEnded).Seconds() < e.cfg.GraceSeconds {
		return
	}
	e.resolveVote()
	e.votePending = false
	e.vote = nil
}

// resolveVote picks the winning category: most votes, ties broken uniformly
// at random; if nobody voted, a uniformly random category from the full set.
func (e *Engine) resolveVote() {
	if len(e.vote.Votes) == 0 {
		if len(e.cfg.Categories) == 0 {
			return
		}
		c := e.cfg.Categories[e.rng.Intn(len(e.cfg.Categories))]
		e.setCategory(c)
		e.log.Info("vote resolved with no votes", slog.String("category", c.Name))
		return
	}

	counts := e.vote.Counts()
	max := 0
	for _, n := range counts {
		if n > max {
			max = n
		}
	}
	var winners []int
	// Walk option numbers in order so the tie set is deterministic before
	// the random pick.
	for opt := 1; opt <= len(e.vote.Options); opt++ {
		if counts[opt] == max {
			winners = append(winners, opt)
		}
	}
	winner := winners[e.rng.Intn(len(winners))]
	c := e.vote.Options[winner]
	e.setCategory(c)
	e.pushEvent("Next category: "+c.Name+"!", ColorGold, "VOTE")
	e.log.Info("vote resolved", slog.String("category", c.Name), slog.Int("votes", max))
}

func (e *Engine) setCategory(c Category) {
	e.categoryID = c.ID
	e.questions.SetCategory(c.ID)
}
