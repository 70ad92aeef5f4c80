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
	"fmt"

	"github.com/looplab/fsm"

	"github.com/ttbt-io/playbyplay/backend/scoring"
)

// Session stages. The last four mirror scoring.Stage.
const (
	StagePitching  = "pitching"
	StageOutcome   = string(scoring.StageOutcome)
	StageResolving = string(scoring.StageResolving)
	StageAdvancing = string(scoring.StageAdvancing)
	StageReady     = string(scoring.StageReady)
)

// Session is the plate appearance in progress for one match: the pitch count
// and, once the plate appearance has ended, the draft of its outcome. The
// stage machine only allows the transitions the pipeline can produce.
//
// A Session is not safe for concurrent use; the Scorer serializes access per
// match.
type Session struct {
	MatchID string

	pctx   scoring.PlayContext
	counts *scoring.CountTracker
	draft  *scoring.Draft
	fsm    *fsm.FSM
}

// Events that return the session to pitch input.
const (
	eventCancel     = "cancel"
	eventNextBatter = "next_batter"
)

// newStageMachine builds the stage machine. Events that enter a draft stage
// are named after it; pitching is only re-entered through cancel or, once a
// draft is ready and committed, next_batter.
func newStageMachine(matchId string, debugf func(string, ...any)) *fsm.FSM {
	return fsm.NewFSM(
		StagePitching,
		fsm.Events{
			{Name: StageOutcome, Src: []string{StagePitching, StageResolving, StageAdvancing, StageReady}, Dst: StageOutcome},
			{Name: StageResolving, Src: []string{StageOutcome, StageAdvancing, StageReady}, Dst: StageResolving},
			{Name: StageAdvancing, Src: []string{StagePitching, StageOutcome, StageResolving, StageReady}, Dst: StageAdvancing},
			{Name: StageReady, Src: []string{StagePitching, StageOutcome, StageResolving, StageAdvancing}, Dst: StageReady},
			{Name: eventCancel, Src: []string{StageOutcome, StageResolving, StageAdvancing, StageReady}, Dst: StagePitching},
			{Name: eventNextBatter, Src: []string{StageReady}, Dst: StagePitching},
		},
		fsm.Callbacks{
			"enter_state": func(_ context.Context, e *fsm.Event) {
				debugf("match %s: %s -> %s", matchId, e.Src, e.Dst)
			},
		},
	)
}

// NewSession starts a session for the plate appearance described by pctx.
// Pending pitches from a previous process are replayed; if they already end
// the plate appearance, outcome resolution starts over from the terminal
// pitch.
func NewSession(ctx context.Context, pctx scoring.PlayContext, pending []scoring.PitchEvent, debugf func(string, ...any)) (*Session, error) {
	counts, err := scoring.RestoreCountTracker(pctx.OutsBefore, pending)
	if err != nil {
		return nil, fmt.Errorf("restoring pitches for match %s: %w", pctx.MatchID, err)
	}
	s := &Session{
		MatchID: pctx.MatchID,
		pctx:    pctx,
		counts:  counts,
		fsm:     newStageMachine(pctx.MatchID, debugf),
	}
	if trigger, ended := counts.Ended(); ended {
		if err := s.startDraft(ctx, trigger); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Stage returns the current stage.
func (s *Session) Stage() string {
	return s.fsm.Current()
}

// Context returns the play context of the plate appearance.
func (s *Session) Context() scoring.PlayContext {
	return s.pctx
}

// Count returns the live count.
func (s *Session) Count() scoring.Count {
	return s.counts.Count()
}

// Pitches returns the pitches of the plate appearance so far.
func (s *Session) Pitches() []scoring.PitchEvent {
	return s.counts.Pitches()
}

// Draft returns the outcome draft, if the plate appearance has ended.
func (s *Session) Draft() (scoring.Draft, bool) {
	if s.draft == nil {
		return scoring.Draft{}, false
	}
	return *s.draft, true
}

// moveTo follows the draft into stage.
func (s *Session) moveTo(ctx context.Context, stage string) error {
	if s.fsm.Current() == stage {
		return nil
	}
	return s.fire(ctx, stage)
}

func (s *Session) fire(ctx context.Context, event string) error {
	if err := s.fsm.Event(ctx, event); err != nil {
		return fmt.Errorf("match %s: %s during %s: %w", s.MatchID, event, s.fsm.Current(), err)
	}
	return nil
}

func (s *Session) startDraft(ctx context.Context, trigger scoring.Trigger) error {
	d, err := scoring.NewDraft(s.pctx, s.counts.Pitches(), trigger)
	if err != nil {
		return err
	}
	s.draft = &d
	return s.moveTo(ctx, string(d.Stage()))
}

// RecordPitch records one pitch. When it ends the plate appearance, outcome
// resolution starts.
func (s *Session) RecordPitch(ctx context.Context, loc scoring.Location, typ scoring.PitchType, res scoring.PitchResult) (scoring.CountTransition, error) {
	if !s.fsm.Is(StagePitching) {
		return scoring.CountTransition{}, fmt.Errorf("%w: pitch recorded during %s", ErrWrongStage, s.Stage())
	}
	ct, err := s.counts.RecordPitch(loc, typ, res)
	if err != nil {
		return ct, err
	}
	if ct.Ended {
		if err := s.startDraft(ctx, ct.Trigger); err != nil {
			if rerr := s.counts.Retract(); rerr != nil {
				return scoring.CountTransition{}, fmt.Errorf("%w; retracting terminal pitch: %w", err, rerr)
			}
			return scoring.CountTransition{}, err
		}
	}
	return ct, nil
}

func (s *Session) apply(ctx context.Context, f func(scoring.Draft) (scoring.Draft, error)) error {
	if s.draft == nil {
		return ErrNoSession
	}
	next, err := f(*s.draft)
	if err != nil {
		return err
	}
	s.draft = &next
	return s.moveTo(ctx, string(next.Stage()))
}

// Select sets the primary result of a ball in play.
func (s *Session) Select(ctx context.Context, result scoring.BattingResult, fielder scoring.Position) error {
	return s.apply(ctx, func(d scoring.Draft) (scoring.Draft, error) {
		return d.Select(result, fielder)
	})
}

// Answer answers the current disambiguation step.
func (s *Session) Answer(ctx context.Context, step scoring.Step, value string) error {
	return s.apply(ctx, func(d scoring.Draft) (scoring.Draft, error) {
		return d.Answer(step, value)
	})
}

// AssignRunner sets the destination of a runner or the batter.
func (s *Session) AssignRunner(ctx context.Context, runnerId string, t scoring.Target, credit *scoring.OutCredit) error {
	if !s.fsm.Is(StageAdvancing) && !s.fsm.Is(StageReady) {
		return fmt.Errorf("%w: runner assignment during %s", ErrWrongStage, s.Stage())
	}
	return s.apply(ctx, func(d scoring.Draft) (scoring.Draft, error) {
		return d.AssignRunner(runnerId, t, credit)
	})
}

// Restart discards every selection and answer; the terminal pitch is kept.
func (s *Session) Restart(ctx context.Context) error {
	return s.apply(ctx, func(d scoring.Draft) (scoring.Draft, error) {
		return d.Restart(), nil
	})
}

// Cancel abandons outcome resolution, removes the terminal pitch and returns
// to pitch input.
func (s *Session) Cancel(ctx context.Context) error {
	if s.draft == nil {
		return ErrNoSession
	}
	if err := s.counts.Retract(); err != nil {
		return err
	}
	s.draft = nil
	return s.fire(ctx, eventCancel)
}

// Ready returns the draft if it can be committed.
func (s *Session) Ready() (scoring.Draft, error) {
	if s.draft == nil {
		return scoring.Draft{}, ErrNoSession
	}
	if !s.fsm.Is(StageReady) {
		return scoring.Draft{}, fmt.Errorf("%w: commit during %s", ErrWrongStage, s.Stage())
	}
	return *s.draft, nil
}

// Reset starts the next plate appearance once the current one has been
// committed from the ready stage.
func (s *Session) Reset(ctx context.Context, pctx scoring.PlayContext) error {
	if !s.fsm.Can(eventNextBatter) {
		return fmt.Errorf("%w: next batter during %s", ErrWrongStage, s.Stage())
	}
	if err := s.fire(ctx, eventNextBatter); err != nil {
		return err
	}
	s.pctx = pctx
	s.counts.Reset(pctx.OutsBefore)
	s.draft = nil
	return nil
}
