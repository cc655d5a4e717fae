// Package score is the sole authority for per-user quiz statistics. It keeps
// an in-memory map as the source of truth with a dirty-set write-back to
// Postgres; when no database is available the game keeps running memory-only.
package score

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"
)

// Store is mutated only from the single-threaded game loop; SaveAll is called
// from the same loop, so no locking is needed around the player map.
type Store struct {
	db      *sql.DB // nil in memory-only mode
	log     *slog.Logger
	players map[string]*Player
	dirty   map[string]struct{}
}

// NewMemory returns a store with no durable backing.
func NewMemory() *Store {
	return &Store{
		log:     slog.Default().With(slog.String("component", "score")),
		players: map[string]*Player{},
		dirty:   map[string]struct{}{},
	}
}

// Open loads all player rows into memory and returns a store that writes
// dirty players back to db on SaveAll.
func Open(ctx context.Context, db *sql.DB) (*Store, error) {
	s := NewMemory()
	s.db = db
	rows, err := db.QueryContext(ctx, `SELECT username, score, streak, best_streak, wrong_streak, rank, games_played, correct_answers, wrong_answers, last_seen FROM players`)
	if err != nil {
		return nil, fmt.Errorf("load players: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			s.log.Warn("failed to close rows", slog.Any("err", err))
		}
	}()
	for rows.Next() {
		p := &Player{}
		var lastSeen sql.NullTime
		if err := rows.Scan(&p.Username, &p.Score, &p.Streak, &p.BestStreak, &p.WrongStreak, &p.Rank, &p.GamesPlayed, &p.CorrectAnswers, &p.WrongAnswers, &lastSeen); err != nil {
			return nil, fmt.Errorf("scan player: %w", err)
		}
		if lastSeen.Valid {
			p.LastSeen = lastSeen.Time
		}
		s.players[p.Username] = p
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate players: %w", err)
	}
	s.log.Info("loaded players", slog.Int("count", len(s.players)))
	return s, nil
}

// GetOrCreate returns the player for username, creating a fresh one (marked
// dirty) on first sight.
func (s *Store) GetOrCreate(username string) *Player {
	if p, ok := s.players[username]; ok {
		return p
	}
	p := &Player{Username: username, Rank: BaseRank(), LastSeen: time.Now()}
	s.players[username] = p
	s.dirty[username] = struct{}{}
	return p
}

// Known reports whether username has ever been seen.
func (s *Store) Known(username string) bool {
	_, ok := s.players[username]
	return ok
}

// MarkDirty queues username for the next SaveAll.
func (s *Store) MarkDirty(username string) {
	s.dirty[username] = struct{}{}
}

// TopN returns copies of the top n players by score (ties broken by name so
// the leaderboard is stable).
func (s *Store) TopN(n int) []Player {
	all := make([]Player, 0, len(s.players))
	for _, p := range s.players {
		all = append(all, *p)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].Score != all[j].Score {
			return all[i].Score > all[j].Score
		}
		return all[i].Username < all[j].Username
	})
	if n < len(all) {
		all = all[:n]
	}
	return all
}

// Count returns the number of known players.
func (s *Store) Count() int { return len(s.players) }

// Reset zeroes a player's stats (no-op for unknown users).
func (s *Store) Reset(username string) {
	if p, ok := s.players[username]; ok {
		p.ResetStats()
		s.dirty[username] = struct{}{}
	}
}

// Remove deletes players from memory and the database. Used to purge filler
// participants once real players fill the game.
func (s *Store) Remove(usernames []string) {
	removed := make([]string, 0, len(usernames))
	for _, name := range usernames {
		if _, ok := s.players[name]; ok {
			delete(s.players, name)
			delete(s.dirty, name)
			removed = append(removed, name)
		}
	}
	if len(removed) == 0 || s.db == nil {
		return
	}
	placeholders := make([]string, len(removed))
	args := make([]any, len(removed))
	for i, name := range removed {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = name
	}
	q := `DELETE FROM players WHERE username IN (` + strings.Join(placeholders, ",") + `)`
	if _, err := s.db.Exec(q, args...); err != nil {
		s.log.Warn("delete players failed", slog.Any("err", err))
		return
	}
	s.log.Info("purged filler players", slog.Int("count", len(removed)))
}

// SaveAll flushes dirty players in one transaction. Errors are logged, not
// fatal: the in-memory state stays authoritative and will be retried on the
// next save tick.
func (s *Store) SaveAll(ctx context.Context) {
	if len(s.dirty) == 0 || s.db == nil {
		s.dirty = map[string]struct{}{}
		return
	}
	toSave := make([]*Player, 0, len(s.dirty))
	for name := range s.dirty {
		if p, ok := s.players[name]; ok {
			toSave = append(toSave, p)
		}
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		s.log.Warn("save begin tx failed", slog.Any("err", err))
		return
	}
	for _, p := range toSave {
		if _, err := tx.ExecContext(ctx, `INSERT INTO players (username, score, streak, best_streak, wrong_streak, rank, games_played, correct_answers, wrong_answers, last_seen, updated_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,NOW())
			ON CONFLICT (username) DO UPDATE SET
				score=EXCLUDED.score, streak=EXCLUDED.streak, best_streak=EXCLUDED.best_streak,
				wrong_streak=EXCLUDED.wrong_streak, rank=EXCLUDED.rank, games_played=EXCLUDED.games_played,
				correct_answers=EXCLUDED.correct_answers, wrong_answers=EXCLUDED.wrong_answers,
				last_seen=EXCLUDED.last_seen, updated_at=NOW()`,
			p.Username, p.Score, p.Streak, p.BestStreak, p.WrongStreak, p.Rank, p.GamesPlayed, p.CorrectAnswers, p.WrongAnswers, p.LastSeen); err != nil {
			_ = tx.Rollback()
			s.log.Warn("save player failed", slog.String("username", p.Username), slog.Any("err", err))
			return
		}
	}
	if err := tx.Commit(); err != nil {
		s.log.Warn("save commit failed", slog.Any("err", err))
		return
	}
	s.dirty = map[string]struct{}{}
	s.log.Debug("saved players", slog.Int("count", len(toSave)))
}
