// Copyright (c) 2026 TTBT Enterprises LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package scoring

import (
	"maps"
	"slices"
	"time"
)

// PlayRecord is a committed plate appearance. It is never modified after
// commit.
type PlayRecord struct {
	ID              string        `json:"id"`
	MatchID         string        `json:"matchId"`
	Seq             int           `json:"seq"`
	Inning          int           `json:"inning"`
	Half            Half          `json:"half"`
	Slot            int           `json:"battingOrderSlot"`
	BatterID        string        `json:"batterId"`
	PitcherID       string        `json:"pitcherId"`
	Pitches         []PitchEvent  `json:"pitches"`
	Result          BattingResult `json:"battingResult"`
	Bunt            bool          `json:"bunt,omitempty"`
	Fielder         Position      `json:"fielder,omitempty"`
	Direction       Direction     `json:"direction,omitempty"`
	BatType         BatType       `json:"batType,omitempty"`
	OutsBefore      int           `json:"outsBefore"`
	OutsAfter       int           `json:"outsAfter"`
	RunnersBefore   RunnerMap     `json:"runnersBefore"`
	RunnersAfter    RunnerMap     `json:"runnersAfter"`
	ScoredRunnerIDs []string      `json:"scoredRunnerIds"`
	OutDetails      []OutDetail   `json:"outDetails"`
	CommittedAt     time.Time     `json:"committedAt"`
}

// EndsHalf reports whether the play recorded the third out.
func (p PlayRecord) EndsHalf() bool {
	return p.OutsAfter == MaxOuts
}

// Validate checks the accounting invariants of a record.
func (p PlayRecord) Validate() error {
	if p.OutsAfter < p.OutsBefore {
		return invariantf("out count cannot decrease")
	}
	if p.OutsAfter > MaxOuts {
		return invariantf("out count cannot exceed %d", MaxOuts)
	}
	if p.OutsAfter != p.OutsBefore+len(p.OutDetails) {
		return invariantf("outs after play (%d) must equal outs before (%d) plus outs recorded (%d)", p.OutsAfter, p.OutsBefore, len(p.OutDetails))
	}
	if err := p.RunnersAfter.Validate(); err != nil {
		return err
	}
	if got, want := len(p.ScoredRunnerIDs)+len(p.OutDetails)+p.RunnersAfter.Len(), p.RunnersBefore.Len()+1; got != want {
		return invariantf("play accounts for %d runners, expected %d", got, want)
	}
	return nil
}

// Line is a per-half value pair.
type Line struct {
	Top    int `json:"top"`
	Bottom int `json:"bottom"`
}

func (l *Line) of(h Half) *int {
	if h == Bottom {
		return &l.Bottom
	}
	return &l.Top
}

// Get returns the value for half h.
func (l Line) Get(h Half) int {
	return *l.of(h)
}

// InningScores holds runs per inning for each half. Index 0 is the first
// inning.
type InningScores struct {
	Top    []int `json:"top"`
	Bottom []int `json:"bottom"`
}

func (s *InningScores) add(h Half, inning, runs int) {
	row := &s.Top
	if h == Bottom {
		row = &s.Bottom
	}
	for len(*row) < inning {
		*row = append(*row, 0)
	}
	(*row)[inning-1] += runs
}

// GameState is the cumulative state of a match.
type GameState struct {
	MatchID       string         `json:"matchId"`
	Inning        int            `json:"inning"`
	Half          Half           `json:"half"`
	Outs          int            `json:"outs"`
	Count         Count          `json:"count"`
	Runners       RunnerMap      `json:"runners"`
	ScoreByInning InningScores   `json:"scoreByInning"`
	ScoreTotal    Line           `json:"scoreTotal"`
	BattingSlot   Line           `json:"battingSlot"`
	PitchCounts   map[string]int `json:"pitchCounts"`
	Plays         int            `json:"plays"`
}

// NewGameState returns the state of a match before its first pitch.
func NewGameState(matchID string) GameState {
	return GameState{
		MatchID:       matchID,
		Inning:        1,
		Half:          Top,
		Runners:       make(RunnerMap),
		ScoreByInning: InningScores{Top: []int{0}, Bottom: []int{}},
		PitchCounts:   make(map[string]int),
	}
}

// Clone returns a deep copy.
func (s GameState) Clone() GameState {
	s.Runners = s.Runners.Clone()
	s.ScoreByInning.Top = slices.Clone(s.ScoreByInning.Top)
	s.ScoreByInning.Bottom = slices.Clone(s.ScoreByInning.Bottom)
	s.PitchCounts = maps.Clone(s.PitchCounts)
	if s.PitchCounts == nil {
		s.PitchCounts = make(map[string]int)
	}
	return s
}

// Context returns the play context for the next plate appearance.
func (s GameState) Context(batterID, pitcherID string) PlayContext {
	return PlayContext{
		MatchID:       s.MatchID,
		Inning:        s.Inning,
		Half:          s.Half,
		Slot:          s.BattingSlot.Get(s.Half),
		BatterID:      batterID,
		PitcherID:     pitcherID,
		OutsBefore:    s.Outs,
		RunnersBefore: s.Runners.Clone(),
	}
}

// Apply returns the state after rec. The receiver is not modified. lineupLen
// is the size of the batting order of the half at bat; the batting slot
// wraps around it.
func (s GameState) Apply(rec PlayRecord, lineupLen int) (GameState, error) {
	if rec.MatchID != s.MatchID {
		return s, invariantf("play belongs to match %s, not %s", rec.MatchID, s.MatchID)
	}
	if rec.Inning != s.Inning || rec.Half != s.Half {
		return s, invariantf("play is for %s of inning %d but the game is in the %s of inning %d", rec.Half, rec.Inning, s.Half, s.Inning)
	}
	if rec.OutsBefore != s.Outs {
		return s, invariantf("play starts with %d outs but the game has %d", rec.OutsBefore, s.Outs)
	}
	if !rec.RunnersBefore.Equal(s.Runners) {
		return s, invariantf("runners before the play do not match the game state")
	}
	if err := rec.Validate(); err != nil {
		return s, err
	}

	next := s.Clone()
	runs := len(rec.ScoredRunnerIDs)
	*next.ScoreTotal.of(s.Half) += runs
	next.ScoreByInning.add(s.Half, s.Inning, runs)
	if rec.PitcherID != "" {
		next.PitchCounts[rec.PitcherID] += len(rec.Pitches)
	}
	if lineupLen > 0 {
		slot := next.BattingSlot.of(s.Half)
		*slot = (*slot + 1) % lineupLen
	}
	next.Plays++
	next.Count = Count{}

	if rec.EndsHalf() {
		next.Outs = 0
		next.Runners = make(RunnerMap)
		if s.Half == Top {
			next.Half = Bottom
		} else {
			next.Half = Top
			next.Inning++
		}
		next.ScoreByInning.add(next.Half, next.Inning, 0)
	} else {
		next.Outs = rec.OutsAfter
		next.Runners = rec.RunnersAfter.Clone()
	}
	next.Count.Outs = next.Outs
	return next, nil
}
