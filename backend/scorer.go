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

package backend

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ttbt-io/playbyplay/backend/scoring"
)

// Scorer is the single scorer of every match served by this process. All
// operations on one match are serialized by a per-match mutex; readers get
// the last committed state.
type Scorer struct {
	store    MatchRepository
	roster   RosterProvider
	hubs     *HubManager
	commit   *CommitEngine
	archiver Archiver
	debugf   func(string, ...any)
	now      func() time.Time

	locks    sync.Map // Stores *sync.Mutex for each matchId
	sessions sync.Map // Stores *Session for each matchId
}

// ScorerOptions configures a Scorer. Only Store is required.
type ScorerOptions struct {
	Store    MatchRepository
	Roster   RosterProvider
	Hubs     *HubManager
	Metrics  *CommitMetrics
	Archiver Archiver
	Debugf   func(string, ...any)
}

// NewScorer returns a Scorer and registers it as the snapshot source of the
// hubs.
func NewScorer(opts ScorerOptions) *Scorer {
	debugf := opts.Debugf
	if debugf == nil {
		debugf = func(string, ...any) {}
	}
	sc := &Scorer{
		store:    opts.Store,
		roster:   opts.Roster,
		hubs:     opts.Hubs,
		commit:   NewCommitEngine(opts.Store, opts.Hubs, opts.Metrics),
		archiver: opts.Archiver,
		debugf:   debugf,
		now:      time.Now,
	}
	if sc.hubs != nil {
		sc.hubs.SetSnapshot(sc.View)
	}
	return sc
}

func (sc *Scorer) lock(matchId string) func() {
	m, _ := sc.locks.LoadOrStore(matchId, &sync.Mutex{})
	mu := m.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

func (sc *Scorer) name(playerId string) string {
	if sc.roster == nil || playerId == "" {
		return playerId
	}
	return sc.roster.DisplayName(playerId)
}

func (sc *Scorer) broadcast(matchId string, msg Message) {
	if sc.hubs == nil {
		return
	}
	msg.MatchID = matchId
	sc.hubs.BroadcastToMatch(matchId, msg)
}

// CreateMatch registers a new SCHEDULED match. Lineups and pitchers of sides
// with a team id must be on that team's roster.
func (sc *Scorer) CreateMatch(ctx context.Context, req CreateMatchRequest) (*Match, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	for _, side := range []struct {
		name string
		side Side
	}{{"away", req.Away}, {"home", req.Home}} {
		if err := sc.checkRoster(side.name, side.side); err != nil {
			return nil, err
		}
	}

	unlock := sc.lock(req.ID)
	defer unlock()

	if _, err := sc.store.LoadMatch(req.ID); err == nil {
		return nil, fmt.Errorf("match %s: %w", req.ID, ErrExists)
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: loading match %s: %w", ErrRetryable, req.ID, err)
	}

	m := &Match{
		ID:            req.ID,
		SchemaVersion: CurrentSchemaVersion,
		Date:          req.Date,
		Location:      req.Location,
		Event:         req.Event,
		Status:        StatusScheduled,
		Away:          req.Away,
		Home:          req.Home,
		State:         scoring.NewGameState(req.ID),
		Plays:         []scoring.PlayRecord{},
		UpdatedAt:     sc.now().UnixNano(),
	}
	if err := sc.store.SaveMatch(m); err != nil {
		return nil, fmt.Errorf("%w: saving match %s: %w", ErrRetryable, m.ID, err)
	}
	log.Printf("Match %s: created (%s at %s)", m.ID, m.Away.TeamID, m.Home.TeamID)
	return m, nil
}

func (sc *Scorer) checkRoster(name string, s Side) error {
	if s.TeamID == "" || sc.roster == nil {
		return nil
	}
	players, err := sc.roster.Players(s.TeamID)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return badRequestf("%s team %s not found", name, s.TeamID)
		}
		return fmt.Errorf("loading %s team %s: %w", name, s.TeamID, err)
	}
	onRoster := func(id string) bool {
		return slices.ContainsFunc(players, func(p Player) bool { return p.ID == id })
	}
	for _, id := range s.Lineup {
		if !onRoster(id) {
			return badRequestf("player %s is not on the %s roster", id, name)
		}
	}
	if !onRoster(s.PitcherID) {
		return badRequestf("pitcher %s is not on the %s roster", s.PitcherID, name)
	}
	return nil
}

// Match returns the current match document.
func (sc *Scorer) Match(matchId string) (*Match, error) {
	return sc.store.LoadMatch(matchId)
}

// Status returns the lifecycle status of a match.
func (sc *Scorer) Status(matchId string) (string, error) {
	m, err := sc.store.LoadMatch(matchId)
	if err != nil {
		return "", err
	}
	return m.Status, nil
}

// SetStatus moves a match along SCHEDULED -> PLAYING -> FINISHED. Finishing
// a match abandons any plate appearance in progress and archives the match
// when an archiver is configured.
func (sc *Scorer) SetStatus(ctx context.Context, matchId, status string) (*Match, error) {
	unlock := sc.lock(matchId)
	defer unlock()

	m, err := sc.store.LoadMatch(matchId)
	if err != nil {
		return nil, err
	}
	if m.Status == status {
		return m, nil
	}
	switch {
	case m.Status == StatusScheduled && status == StatusPlaying:
	case m.Status == StatusPlaying && status == StatusFinished:
	default:
		return nil, fmt.Errorf("%w: %s -> %s", ErrBadTransition, m.Status, status)
	}

	next := m.clone()
	next.Status = status
	next.UpdatedAt = sc.now().UnixNano()
	if status == StatusFinished {
		if len(next.PendingPitches) > 0 {
			log.Printf("Match %s: finished with %d pitch(es) of an incomplete plate appearance, discarding them", matchId, len(next.PendingPitches))
		}
		next.PendingPitches = nil
		next.State.Count = scoring.Count{Outs: next.State.Outs}
		next.FinishedAt = next.UpdatedAt
	}
	if err := sc.store.SaveMatch(next); err != nil {
		return nil, fmt.Errorf("%w: saving match %s: %w", ErrRetryable, matchId, err)
	}
	if status == StatusFinished {
		sc.sessions.Delete(matchId)
	}
	log.Printf("Match %s: %s -> %s", matchId, m.Status, status)
	sc.broadcast(matchId, Message{Type: MsgTypeStatus, Status: status})
	sc.pushView(next)

	if status == StatusFinished && sc.archiver != nil {
		if err := sc.archiver.Archive(ctx, next); err != nil {
			log.Printf("Match %s: archive failed: %v", matchId, err)
		}
	}
	return next, nil
}

// playContext returns the context of the next plate appearance: the batter
// at the current slot of the batting side and the fielding side's pitcher.
func playContext(m *Match) scoring.PlayContext {
	batting, fielding := m.sides(m.State.Half)
	var batter string
	if n := len(batting.Lineup); n > 0 {
		batter = batting.Lineup[m.State.BattingSlot.Get(m.State.Half)%n]
	}
	return m.State.Context(batter, fielding.PitcherID)
}

// session returns the plate appearance in progress, restoring it from the
// pending pitches after a restart. Callers hold the match lock.
func (sc *Scorer) session(ctx context.Context, m *Match) (*Session, error) {
	if m.Status != StatusPlaying {
		return nil, ErrNotPlaying
	}
	if v, ok := sc.sessions.Load(m.ID); ok {
		return v.(*Session), nil
	}
	if sc.roster != nil {
		for _, teamId := range []string{m.Away.TeamID, m.Home.TeamID} {
			if teamId == "" {
				continue
			}
			if _, err := sc.roster.Players(teamId); err != nil {
				sc.debugf("match %s: roster of team %s unavailable: %v", m.ID, teamId, err)
			}
		}
	}
	s, err := NewSession(ctx, playContext(m), m.PendingPitches, sc.debugf)
	if err != nil {
		return nil, err
	}
	sc.sessions.Store(m.ID, s)
	return s, nil
}

// withSession runs f on the match's session under the match lock and
// pushes the new view to watchers when f succeeds.
func (sc *Scorer) withSession(ctx context.Context, matchId string, f func(m *Match, s *Session) error) error {
	unlock := sc.lock(matchId)
	defer unlock()

	m, err := sc.store.LoadMatch(matchId)
	if err != nil {
		return err
	}
	s, err := sc.session(ctx, m)
	if err != nil {
		return err
	}
	if err := f(m, s); err != nil {
		return err
	}
	sc.pushViewLocked(m, s)
	return nil
}

// Pitch records one pitch of the plate appearance in progress.
func (sc *Scorer) Pitch(ctx context.Context, req PitchRequest) (scoring.CountTransition, error) {
	typ, res, err := req.Parse()
	if err != nil {
		return scoring.CountTransition{}, err
	}
	var ct scoring.CountTransition
	err = sc.withSession(ctx, req.MatchID, func(m *Match, s *Session) error {
		ct, err = s.RecordPitch(ctx, req.Location, typ, res)
		if err != nil {
			return err
		}
		if err := sc.savePending(m, s); err != nil {
			// Rebuilt from the stored pitches on the next call.
			sc.sessions.Delete(m.ID)
			return err
		}
		sc.debugf("match %s: pitch %d %s -> %d-%d", m.ID, ct.Pitch.Seq, res, ct.Count.Balls, ct.Count.Strikes)
		sc.broadcast(m.ID, Message{Type: MsgTypeCount, Count: &ct.Count, Pitch: &ct.Pitch})
		return nil
	})
	return ct, err
}

// savePending keeps the pitches of the open plate appearance on the match
// document. They reach disk with the next flush or commit.
func (sc *Scorer) savePending(m *Match, s *Session) error {
	m.PendingPitches = s.Pitches()
	m.State.Count = s.Count()
	if err := sc.store.SaveMatchInMemory(m, false); err != nil {
		return fmt.Errorf("%w: caching match %s: %w", ErrRetryable, m.ID, err)
	}
	return nil
}

// Select sets the batting result of the plate appearance.
func (sc *Scorer) Select(ctx context.Context, req OutcomeRequest) error {
	result, fielder, err := req.Parse()
	if err != nil {
		return err
	}
	return sc.withSession(ctx, req.MatchID, func(_ *Match, s *Session) error {
		return s.Select(ctx, result, fielder)
	})
}

// Answer answers the current disambiguation step.
func (sc *Scorer) Answer(ctx context.Context, req AnswerRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}
	return sc.withSession(ctx, req.MatchID, func(_ *Match, s *Session) error {
		return s.Answer(ctx, scoring.Step(req.Step), req.Value)
	})
}

// AssignRunner sets the destination of a runner or the batter.
func (sc *Scorer) AssignRunner(ctx context.Context, req RunnerRequest) error {
	t, credit, err := req.Parse()
	if err != nil {
		return err
	}
	return sc.withSession(ctx, req.MatchID, func(_ *Match, s *Session) error {
		return s.AssignRunner(ctx, req.RunnerID, t, credit)
	})
}

// Restart clears the outcome and keeps the terminal pitch.
func (sc *Scorer) Restart(ctx context.Context, matchId string) error {
	return sc.withSession(ctx, matchId, func(_ *Match, s *Session) error {
		return s.Restart(ctx)
	})
}

// Cancel abandons outcome resolution and removes the terminal pitch. The
// game state is never touched.
func (sc *Scorer) Cancel(ctx context.Context, matchId string) error {
	return sc.withSession(ctx, matchId, func(m *Match, s *Session) error {
		if err := s.Cancel(ctx); err != nil {
			return err
		}
		log.Printf("Match %s: outcome cancelled, back to %d-%d", m.ID, s.Count().Balls, s.Count().Strikes)
		if err := sc.savePending(m, s); err != nil {
			sc.sessions.Delete(m.ID)
			return err
		}
		return nil
	})
}

// Commit commits the ready outcome and starts the next plate appearance.
func (sc *Scorer) Commit(ctx context.Context, matchId string) (scoring.PlayRecord, error) {
	var rec scoring.PlayRecord
	err := sc.withSession(ctx, matchId, func(m *Match, s *Session) error {
		next, r, err := sc.commit.Commit(ctx, m, s)
		if err != nil {
			if errors.Is(err, scoring.ErrInvariant) {
				sc.pushViewLocked(m, s)
			}
			return err
		}
		rec = r
		*m = *next
		return s.Reset(ctx, playContext(next))
	})
	return rec, err
}

// Plays returns the committed play history.
func (sc *Scorer) Plays(matchId string) ([]scoring.PlayRecord, error) {
	m, err := sc.store.LoadMatch(matchId)
	if err != nil {
		return nil, err
	}
	return m.Plays, nil
}

// RunnerPrompt asks for the destination of one runner. Candidates lists,
// per destination, the undecided runners who could still reach it.
type RunnerPrompt struct {
	scoring.Assignment
	Name       string                              `json:"name"`
	Options    []scoring.Target                    `json:"options"`
	Candidates map[scoring.Target][]scoring.Runner `json:"candidates,omitempty"`
}

// View is what a front end needs to render the scoring screen.
type View struct {
	MatchID string            `json:"matchId"`
	Status  string            `json:"status"`
	State   scoring.GameState `json:"state"`

	Stage   string               `json:"stage,omitempty"`
	Count   scoring.Count        `json:"count"`
	Pitches []scoring.PitchEvent `json:"pitches,omitempty"`
	Batter  string               `json:"batter,omitempty"`
	Pitcher string               `json:"pitcher,omitempty"`

	Choices []scoring.BattingResult `json:"choices,omitempty"`
	Draft   *scoring.Draft          `json:"draft,omitempty"`
	Prompt  *scoring.Prompt         `json:"prompt,omitempty"`
	Runner  *RunnerPrompt           `json:"runner,omitempty"`
	Summary string                  `json:"summary,omitempty"`
}

// View returns the current view of a match.
func (sc *Scorer) View(matchId string) (*View, error) {
	unlock := sc.lock(matchId)
	defer unlock()

	m, err := sc.store.LoadMatch(matchId)
	if err != nil {
		return nil, err
	}
	if m.Status != StatusPlaying {
		return sc.view(m, nil), nil
	}
	s, err := sc.session(context.Background(), m)
	if err != nil {
		return nil, err
	}
	return sc.view(m, s), nil
}

func (sc *Scorer) view(m *Match, s *Session) *View {
	v := &View{
		MatchID: m.ID,
		Status:  m.Status,
		State:   m.State,
		Count:   m.State.Count,
	}
	if s == nil {
		return v
	}
	pctx := s.Context()
	v.Stage = s.Stage()
	v.Count = s.Count()
	v.Pitches = s.Pitches()
	v.Batter = sc.name(pctx.BatterID)
	v.Pitcher = sc.name(pctx.PitcherID)

	d, ok := s.Draft()
	if !ok {
		return v
	}
	v.Draft = &d
	switch d.Stage() {
	case scoring.StageOutcome:
		v.Choices = d.Choices()
	case scoring.StageResolving:
		if p, ok := d.NextPrompt(); ok {
			v.Prompt = &p
		}
	case scoring.StageAdvancing:
		if as, ok := d.Advance.Next(); ok {
			v.Runner = &RunnerPrompt{
				Assignment: as,
				Name:       sc.name(as.ID),
				Options:    targetsFrom(as.From),
				Candidates: candidatesByTarget(d),
			}
		}
	case scoring.StageReady:
		if rec, err := d.Build("", len(m.Plays)+1, sc.now().UTC()); err == nil {
			v.Summary = Summarize(rec, sc.name)
		} else {
			sc.debugf("match %s: summary: %v", m.ID, err)
		}
	}
	return v
}

// targetsFrom lists the destinations open to a runner starting at from.
func targetsFrom(from scoring.Base) []scoring.Target {
	var out []scoring.Target
	for b := max(from, scoring.BaseFirst); b <= scoring.BaseThird; b++ {
		out = append(out, scoring.TargetFor(b))
	}
	return append(out, scoring.TargetHome, scoring.TargetOut)
}

// candidatesByTarget groups the undecided runners by the destinations they
// could still reach.
func candidatesByTarget(d scoring.Draft) map[scoring.Target][]scoring.Runner {
	out := make(map[scoring.Target][]scoring.Runner)
	for _, t := range targetsFrom(scoring.BaseHome) {
		if c := d.Candidates(t); len(c) > 0 {
			out[t] = c
		}
	}
	return out
}

func (sc *Scorer) pushViewLocked(m *Match, s *Session) {
	if sc.hubs == nil {
		return
	}
	sc.broadcast(m.ID, Message{Type: MsgTypeState, View: sc.view(m, s)})
}

func (sc *Scorer) pushView(m *Match) {
	var s *Session
	if v, ok := sc.sessions.Load(m.ID); ok && m.Status == StatusPlaying {
		s = v.(*Session)
	}
	sc.pushViewLocked(m, s)
}
