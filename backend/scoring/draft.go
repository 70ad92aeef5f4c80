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
	"slices"
	"time"
)

// Stage is where a draft stands in the outcome pipeline.
type Stage string

const (
	StageOutcome   Stage = "outcome"
	StageResolving Stage = "resolving"
	StageAdvancing Stage = "advancing"
	StageReady     Stage = "ready"
)

// PlayContext identifies the plate appearance a draft belongs to. It is a
// snapshot of GameState taken when the plate appearance ended.
type PlayContext struct {
	MatchID       string    `json:"matchId"`
	Inning        int       `json:"inning"`
	Half          Half      `json:"half"`
	Slot          int       `json:"battingOrderSlot"`
	BatterID      string    `json:"batterId"`
	PitcherID     string    `json:"pitcherId"`
	OutsBefore    int       `json:"outsBefore"`
	RunnersBefore RunnerMap `json:"runnersBefore"`
}

func (c PlayContext) validate() error {
	if c.BatterID == "" {
		return invalidf("no batter at the plate")
	}
	if c.OutsBefore < 0 || c.OutsBefore >= MaxOuts {
		return invariantf("a plate appearance cannot start with %d outs", c.OutsBefore)
	}
	if err := c.RunnersBefore.Validate(); err != nil {
		return err
	}
	for _, b := range []Base{BaseFirst, BaseSecond, BaseThird} {
		if c.RunnersBefore.Occupant(b) == c.BatterID {
			return invariantf("batter %s is also on base %s", c.BatterID, b)
		}
	}
	return nil
}

// Draft is the in-progress outcome of one plate appearance. Every method
// returns a new Draft and leaves the receiver untouched.
type Draft struct {
	PlayContext
	Pitches []PitchEvent  `json:"pitches"`
	Trigger Trigger       `json:"trigger"`
	Result  BattingResult `json:"result,omitempty"`
	Answers Answers       `json:"answers"`
	Advance *Advancement  `json:"advance,omitempty"`
}

// NewDraft starts outcome resolution for a plate appearance that ended with
// trigger. Results fixed by the trigger are selected immediately.
func NewDraft(ctx PlayContext, pitches []PitchEvent, trigger Trigger) (Draft, error) {
	if err := ctx.validate(); err != nil {
		return Draft{}, err
	}
	if len(pitches) == 0 {
		return Draft{}, invariantf("a plate appearance needs at least one pitch")
	}
	ctx.RunnersBefore = ctx.RunnersBefore.Clone()
	d := Draft{
		PlayContext: ctx,
		Pitches:     slices.Clone(pitches),
		Trigger:     trigger,
	}
	if r, ok := ResultForTrigger(trigger); ok {
		d.Result = r
	} else if trigger != TriggerBallInPlay {
		return Draft{}, invalidf("unknown plate appearance trigger %q", trigger)
	}
	return d.maybeStartAdvancement(), nil
}

func (d Draft) clone() Draft {
	d.Pitches = slices.Clone(d.Pitches)
	d.RunnersBefore = d.RunnersBefore.Clone()
	if d.Advance != nil {
		adv := d.Advance.clone()
		d.Advance = &adv
	}
	return d
}

// Stage reports which input the draft is waiting for.
func (d Draft) Stage() Stage {
	switch {
	case d.Result == "":
		return StageOutcome
	case d.Advance == nil:
		return StageResolving
	case len(d.Advance.Pending()) > 0:
		return StageAdvancing
	}
	if _, err := d.Advance.Resolve(); err != nil {
		return StageAdvancing
	}
	return StageReady
}

// Requirements classifies the selected result.
func (d Draft) Requirements() Requirements {
	return Classify(d.Result, d.Answers.Fielder)
}

// Choices lists the results that may be selected for this draft.
func (d Draft) Choices() []BattingResult {
	return Choices(d.Trigger, d.RunnersBefore, d.OutsBefore)
}

// Select sets the primary result of a ball in play and, optionally, the
// fielder who played the ball. Answers that no longer apply are discarded.
func (d Draft) Select(result BattingResult, fielder Position) (Draft, error) {
	if d.Trigger != TriggerBallInPlay {
		return d, invalidf("result of a %s is fixed", d.Trigger)
	}
	if !validChoice(d.Trigger, result, d.RunnersBefore, d.OutsBefore) {
		return d, invalidf("%s is not a valid result in this situation", result)
	}
	if fielder != 0 && !fielder.Valid() {
		return d, invalidf("unknown fielding position %d", fielder)
	}
	next := d.clone()
	next.Result = result
	next.Advance = nil
	if fielder != 0 {
		next.Answers.Fielder = fielder
	}
	req := Classify(result, next.Answers.Fielder)
	next.Answers = next.Answers.prune(req, fielder != 0)
	return next.maybeStartAdvancement(), nil
}

// NextPrompt returns the next disambiguation question, if any.
func (d Draft) NextPrompt() (Prompt, bool) {
	if d.Stage() != StageResolving {
		return Prompt{}, false
	}
	s, ok := d.Requirements().NextStep(d.Answers)
	if !ok {
		return Prompt{}, false
	}
	return promptFor(s, d.Result, d.OutsBefore), true
}

// Answer records the answer to the current disambiguation step. Steps must be
// answered in order; none may be skipped.
func (d Draft) Answer(step Step, value string) (Draft, error) {
	if d.Stage() != StageResolving {
		return d, invalidf("no disambiguation question is open")
	}
	want, ok := d.Requirements().NextStep(d.Answers)
	if !ok {
		return d, invalidf("no disambiguation question is open")
	}
	if step != want {
		return d, invalidf("expected an answer to %s, got %s", want, step)
	}
	answers, err := d.Answers.with(step, value, d.OutsBefore)
	if err != nil {
		return d, err
	}
	next := d.clone()
	next.Answers = answers
	// The fielder may add or remove later steps.
	next.Answers = next.Answers.prune(next.Requirements(), true)
	return next.maybeStartAdvancement(), nil
}

// Restart discards the selection, every answer and every runner decision,
// returning the draft to outcome resolution from the terminal pitch.
func (d Draft) Restart() Draft {
	next := d.clone()
	next.Answers = Answers{}
	next.Advance = nil
	if _, fixed := ResultForTrigger(d.Trigger); !fixed {
		next.Result = ""
	}
	return next.maybeStartAdvancement()
}

// AssignRunner sets the destination of one runner or the batter.
func (d Draft) AssignRunner(runnerID string, t Target, credit *OutCredit) (Draft, error) {
	if d.Advance == nil {
		return d, invalidf("runner advancement has not started")
	}
	adv, err := d.Advance.Assign(runnerID, t, credit)
	if err != nil {
		return d, err
	}
	next := d.clone()
	next.Advance = &adv
	return next, nil
}

// Candidates lists the runners that may be assigned to target.
func (d Draft) Candidates(t Target) []Runner {
	if d.Advance == nil {
		return nil
	}
	return d.Advance.Candidates(t)
}

func (d Draft) maybeStartAdvancement() Draft {
	if d.Result == "" || d.Advance != nil {
		return d
	}
	if _, open := d.Requirements().NextStep(d.Answers); open {
		return d
	}
	adv := d.seedAdvancement()
	d.Advance = &adv
	return d
}

func batterSuggestion(r BattingResult) Target {
	switch r {
	case Double:
		return TargetSecond
	case Triple:
		return TargetThird
	case HomeRun, RunningHomeRun:
		return TargetHome
	case StrikeoutSwinging, StrikeoutLooking, GroundOut, FlyOut, LineOut, BuntOut, SacrificeFly:
		return TargetOut
	}
	return TargetFirst
}

// batterOutCredit returns the fielders credited with retiring the batter.
func (d Draft) batterOutCredit() OutCredit {
	f := d.Answers.Fielder
	switch d.Result {
	case StrikeoutSwinging, StrikeoutLooking:
		return OutCredit{PuttingOut: Catcher}
	case FlyOut, LineOut, SacrificeFly:
		return OutCredit{PuttingOut: f}
	case GroundOut:
		if f == FirstBase && d.Answers.FirstBaseTouched != nil && !*d.Answers.FirstBaseTouched {
			return OutCredit{Throwing: FirstBase, PuttingOut: d.Answers.PutoutBy}
		}
	}
	if f == FirstBase {
		return OutCredit{PuttingOut: FirstBase}
	}
	return OutCredit{Throwing: f, PuttingOut: FirstBase}
}

// seedAdvancement fixes every destination the batting result implies.
func (d Draft) seedAdvancement() Advancement {
	adv := newAdvancement(d.BatterID, d.RunnersBefore, d.OutsBefore, batterSuggestion(d.Result))
	batter := len(adv.Assignments) - 1
	onBase := func(b Base) int {
		return slices.IndexFunc(adv.Assignments, func(as Assignment) bool { return as.From == b })
	}
	batterOut := func() {
		c := d.batterOutCredit()
		adv.fix(batter, TargetOut, &OutDetail{
			RunnerID:           d.BatterID,
			FromBase:           BaseHome,
			ThrowingPosition:   c.Throwing,
			PuttingOutPosition: c.PuttingOut,
		})
	}

	switch {
	case d.Result.IsHomeRun():
		for i := range adv.Assignments {
			adv.fix(i, TargetHome, nil)
		}
	case d.Result == Walk || d.Result == HitByPitch:
		adv.fix(batter, TargetFirst, nil)
		// Only a continuous chain from first base is forced.
		for b := BaseFirst; b <= BaseThird; b++ {
			i := onBase(b)
			if i < 0 {
				break
			}
			next := TargetHome
			if b < BaseThird {
				next = TargetFor(b + 1)
			}
			adv.fix(i, next, nil)
		}
	case d.Result.IsStrikeout():
		batterOut()
	case d.Result == GroundOut:
		if d.Answers.OutsAfter == nil || *d.Answers.OutsAfter > d.OutsBefore {
			batterOut()
		}
	case d.Result.IsBallInPlayOut():
		batterOut()
	}
	if d.Result == SacrificeFly {
		if i := onBase(BaseThird); i >= 0 {
			adv.Assignments[i].Suggested = TargetHome
		}
	}
	adv.holdIfSideRetired()
	return adv
}

// Resolve validates the complete draft and computes its runner outcome.
func (d Draft) Resolve() (Resolution, error) {
	if d.Result == "" {
		return Resolution{}, invalidf("no batting result selected")
	}
	req := d.Requirements()
	if s, open := req.NextStep(d.Answers); open {
		return Resolution{}, invalidf("missing answer for %s", s)
	}
	if d.Advance == nil {
		return Resolution{}, invalidf("runner advancement has not started")
	}
	res, err := d.Advance.Resolve()
	if err != nil {
		return Resolution{}, err
	}
	if res.OutsAfter < d.OutsBefore {
		return Resolution{}, invariantf("out count cannot decrease")
	}
	if req.NeedsOutsAfterConfirmation && *d.Answers.OutsAfter != res.OutsAfter {
		return Resolution{}, invariantf("recorded outs (%d) do not match the confirmed outs after the play (%d)", res.OutsAfter, *d.Answers.OutsAfter)
	}
	return res, nil
}

// Build turns a complete draft into an immutable play record.
func (d Draft) Build(id string, seq int, at time.Time) (PlayRecord, error) {
	res, err := d.Resolve()
	if err != nil {
		return PlayRecord{}, err
	}
	return PlayRecord{
		ID:              id,
		MatchID:         d.MatchID,
		Seq:             seq,
		Inning:          d.Inning,
		Half:            d.Half,
		Slot:            d.Slot,
		BatterID:        d.BatterID,
		PitcherID:       d.PitcherID,
		Pitches:         slices.Clone(d.Pitches),
		Result:          d.Result,
		Bunt:            d.Answers.SafetyBunt != nil && *d.Answers.SafetyBunt,
		Fielder:         d.Answers.Fielder,
		Direction:       d.Answers.Direction,
		BatType:         d.Answers.BatType,
		OutsBefore:      d.OutsBefore,
		OutsAfter:       res.OutsAfter,
		RunnersBefore:   d.RunnersBefore.Clone(),
		RunnersAfter:    res.RunnersAfter,
		ScoredRunnerIDs: res.ScoredRunnerIDs,
		OutDetails:      res.OutDetails,
		CommittedAt:     at.UTC(),
	}, nil
}
