package main

import (
	"sort"

	"github.com/abporter521/CS3500-TankWars/internal/world"
)

// Entry is one row of the scoreboard.
type Entry struct {
	TankID int
	Name   string
	Score  int
}

// Scoreboard remembers the last score seen for every tank.
type Scoreboard struct {
	rows map[int]Entry
}

func NewScoreboard() *Scoreboard {
	return &Scoreboard{rows: make(map[int]Entry)}
}

// Update folds in the tanks of a mirror snapshot and reports whether any
// name, score or membership changed.
func (s *Scoreboard) Update(tanks []world.Tank) bool {
	changed := false
	seen := make(map[int]bool, len(tanks))
	for _, t := range tanks {
		seen[t.ID] = true
		row := Entry{TankID: t.ID, Name: t.Name, Score: t.Score}
		if old, ok := s.rows[t.ID]; !ok || old != row {
			s.rows[t.ID] = row
			changed = true
		}
	}
	for id := range s.rows {
		if !seen[id] {
			delete(s.rows, id)
			changed = true
		}
	}
	return changed
}

// Rows returns the entries by descending score, ties by tank id.
func (s *Scoreboard) Rows() []Entry {
	out := make([]Entry, 0, len(s.rows))
	for _, r := range s.rows {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].TankID < out[j].TankID
	})
	return out
}
