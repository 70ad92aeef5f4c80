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
	"errors"
	"reflect"
	"testing"
	"time"
)

var testTime = time.Date(2026, 5, 1, 18, 30, 0, 0, time.UTC)

func testContext(outs int, runners RunnerMap) PlayContext {
	return PlayContext{
		MatchID:       "match-1",
		Inning:        1,
		Half:          Top,
		Slot:          3,
		BatterID:      "B",
		PitcherID:     "P",
		OutsBefore:    outs,
		RunnersBefore: runners,
	}
}

func onePitch(r PitchResult) []PitchEvent {
	return []PitchEvent{{Seq: 1, Location: Location{X: 0.5, Y: 0.5}, Type: PitchRise, Result: r}}
}

func mustDraft(t *testing.T, ctx PlayContext, trigger Trigger) Draft {
	t.Helper()
	res := ResultInPlay
	switch trigger {
	case TriggerWalk:
		res = ResultBall
	case TriggerHitByPitch:
		res = ResultDeadball
	case TriggerStrikeoutSwinging:
		res = ResultSwing
	case TriggerStrikeoutLooking:
		res = ResultLooking
	}
	d, err := NewDraft(ctx, onePitch(res), trigger)
	if err != nil {
		t.Fatalf("NewDraft: %v", err)
	}
	return d
}

func mustSelect(t *testing.T, d Draft, r BattingResult, f Position) Draft {
	t.Helper()
	d, err := d.Select(r, f)
	if err != nil {
		t.Fatalf("Select(%s, %d): %v", r, f, err)
	}
	return d
}

func mustAnswer(t *testing.T, d Draft, s Step, v string) Draft {
	t.Helper()
	d, err := d.Answer(s, v)
	if err != nil {
		t.Fatalf("Answer(%s, %s): %v", s, v, err)
	}
	return d
}

func mustAssign(t *testing.T, d Draft, id string, target Target, credit *OutCredit) Draft {
	t.Helper()
	d, err := d.AssignRunner(id, target, credit)
	if err != nil {
		t.Fatalf("AssignRunner(%s, %s): %v", id, target, err)
	}
	return d
}

func mustBuild(t *testing.T, d Draft) PlayRecord {
	t.Helper()
	rec, err := d.Build("play-1", 1, testTime)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return rec
}

func TestDoublePlayEndsHalfInning(t *testing.T) {
	before := RunnerMap{BaseFirst: "P1", BaseSecond: "P2"}
	d := mustDraft(t, testContext(1, before), TriggerBallInPlay)
	d = mustSelect(t, d, GroundOut, Shortstop)

	p, ok := d.NextPrompt()
	if !ok || p.Step != StepBatType || p.Default != string(BatGround) {
		t.Fatalf("Expected bat type prompt defaulting to ground, got %+v %v", p, ok)
	}
	d = mustAnswer(t, d, StepBatType, "ground")
	p, _ = d.NextPrompt()
	if p.Step != StepOutsAfter || !reflect.DeepEqual(p.Options, []string{"1", "2", "3"}) {
		t.Fatalf("Unexpected outs prompt %+v", p)
	}
	d = mustAnswer(t, d, StepOutsAfter, "3")
	if d.Stage() != StageAdvancing {
		t.Fatalf("Expected advancing stage, got %s", d.Stage())
	}

	d = mustAssign(t, d, "P1", TargetOut, &OutCredit{Throwing: Shortstop, PuttingOut: SecondBase})
	if d.Stage() != StageReady {
		t.Fatalf("Expected ready after third out, got %s", d.Stage())
	}
	rec := mustBuild(t, d)
	if rec.OutsAfter != 3 {
		t.Errorf("OutsAfter = %d, want 3", rec.OutsAfter)
	}
	if len(rec.ScoredRunnerIDs) != 0 {
		t.Errorf("Expected no runs, got %v", rec.ScoredRunnerIDs)
	}
	if len(rec.OutDetails) != 2 {
		t.Fatalf("Expected 2 out details, got %+v", rec.OutDetails)
	}
	batter := rec.OutDetails[1]
	if batter.RunnerID != "B" || batter.FromBase != BaseHome || batter.ThrowingPosition != Shortstop || batter.PuttingOutPosition != FirstBase {
		t.Errorf("Unexpected batter out %+v", batter)
	}

	gs := NewGameState("match-1")
	gs.Outs = 1
	gs.Runners = before.Clone()
	next, err := gs.Apply(rec, 9)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if next.Outs != 0 || next.Runners.Len() != 0 || next.Half != Bottom || next.Inning != 1 {
		t.Errorf("Expected bottom of the first with empty bases, got %+v", next)
	}
}

func TestHomeRunBasesEmpty(t *testing.T) {
	d := mustDraft(t, testContext(1, RunnerMap{}), TriggerBallInPlay)
	d = mustSelect(t, d, HomeRun, 0)
	p, ok := d.NextPrompt()
	if !ok || p.Step != StepOutfieldDirection {
		t.Fatalf("Expected direction prompt, got %+v", p)
	}
	d = mustAnswer(t, d, StepOutfieldDirection, "center")
	if d.Stage() != StageReady {
		t.Fatalf("Expected ready, got %s", d.Stage())
	}
	rec := mustBuild(t, d)
	if !reflect.DeepEqual(rec.ScoredRunnerIDs, []string{"B"}) {
		t.Errorf("ScoredRunnerIDs = %v", rec.ScoredRunnerIDs)
	}
	if rec.RunnersAfter.Len() != 0 || rec.OutsAfter != 1 || rec.Direction != DirCenter {
		t.Errorf("Unexpected record %+v", rec)
	}

	gs := NewGameState("match-1")
	gs.Outs = 1
	next, err := gs.Apply(rec, 9)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if next.ScoreTotal.Top != 1 || next.ScoreByInning.Top[0] != 1 || next.Outs != 1 {
		t.Errorf("Unexpected state %+v", next)
	}
}

func TestSafetyBunt(t *testing.T) {
	for _, tc := range []struct {
		answer string
		bunt   bool
	}{{"no", false}, {"yes", true}} {
		t.Run(tc.answer, func(t *testing.T) {
			d := mustDraft(t, testContext(0, RunnerMap{}), TriggerBallInPlay)
			d = mustSelect(t, d, Single, Shortstop)
			if !d.Requirements().NeedsSafetyBuntCheck {
				t.Fatal("Expected safety bunt check")
			}
			d = mustAnswer(t, d, StepSafetyBunt, tc.answer)
			d = mustAssign(t, d, "B", TargetFirst, nil)
			rec := mustBuild(t, d)
			if rec.Result != Single || rec.Bunt != tc.bunt {
				t.Errorf("Result = %s bunt=%v, want single bunt=%v", rec.Result, rec.Bunt, tc.bunt)
			}
			if rec.RunnersAfter.Occupant(BaseFirst) != "B" {
				t.Errorf("Expected batter on first, got %v", rec.RunnersAfter)
			}
		})
	}
}

func TestSelectChangesRequirements(t *testing.T) {
	d := mustDraft(t, testContext(0, RunnerMap{}), TriggerBallInPlay)
	d = mustSelect(t, d, GroundOut, FirstBase)
	d = mustAnswer(t, d, StepBatType, "ground")
	d = mustAnswer(t, d, StepFirstBaseTouch, "no")
	p, _ := d.NextPrompt()
	if p.Step != StepPutoutCredit {
		t.Fatalf("Expected putout credit prompt, got %+v", p)
	}
	for _, o := range p.Options {
		if o == "3" {
			t.Error("first baseman offered as covering fielder")
		}
	}
	if _, err := d.Answer(StepPutoutCredit, "3"); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("Expected invalid input for fielder 3, got %v", err)
	}
	d = mustAnswer(t, d, StepPutoutCredit, "1")
	d = mustAnswer(t, d, StepOutsAfter, "1")
	rec := mustBuild(t, d)
	want := OutDetail{RunnerID: "B", FromBase: BaseHome, ThrowingPosition: FirstBase, PuttingOutPosition: Pitcher}
	if !reflect.DeepEqual(rec.OutDetails, []OutDetail{want}) {
		t.Errorf("OutDetails = %+v, want %+v", rec.OutDetails, want)
	}

	// Moving the play to the shortstop drops the first-base answers.
	d2 := mustSelect(t, d, GroundOut, Shortstop)
	if d2.Answers.FirstBaseTouched != nil || d2.Answers.PutoutBy != 0 {
		t.Errorf("Stale answers kept: %+v", d2.Answers)
	}
	if d2.Answers.BatType != BatGround {
		t.Errorf("Bat type answer lost: %+v", d2.Answers)
	}
	if d.Answers.FirstBaseTouched == nil {
		t.Error("Select modified its receiver")
	}
}

func TestAnswerOrder(t *testing.T) {
	d := mustDraft(t, testContext(0, RunnerMap{}), TriggerBallInPlay)
	d = mustSelect(t, d, FlyOut, 0)
	if _, err := d.Answer(StepFieldingPosition, "8"); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("Expected out of order answer to fail, got %v", err)
	}
	if _, err := d.Answer(StepBatType, "grounder"); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("Expected malformed answer to fail, got %v", err)
	}
	d = mustAnswer(t, d, StepBatType, "fly")
	d = mustAnswer(t, d, StepFieldingPosition, "8")
	rec := mustBuild(t, d)
	if rec.OutsAfter != 1 || rec.OutDetails[0].PuttingOutPosition != CenterField {
		t.Errorf("Unexpected record %+v", rec)
	}
}

func TestOutsAfterCannotDecrease(t *testing.T) {
	d := mustDraft(t, testContext(2, RunnerMap{}), TriggerBallInPlay)
	d = mustSelect(t, d, GroundOut, SecondBase)
	d = mustAnswer(t, d, StepBatType, "ground")
	_, err := d.Answer(StepOutsAfter, "1")
	var re *RuleError
	if !errors.As(err, &re) || re.Rule != "out count cannot decrease" {
		t.Errorf("Expected out count rule, got %v", err)
	}
}

func TestOutsAfterMismatch(t *testing.T) {
	d := mustDraft(t, testContext(0, RunnerMap{BaseFirst: "R1"}), TriggerBallInPlay)
	d = mustSelect(t, d, GroundOut, SecondBase)
	d = mustAnswer(t, d, StepBatType, "ground")
	d = mustAnswer(t, d, StepOutsAfter, "2")
	d = mustAssign(t, d, "R1", TargetSecond, nil)
	if _, err := d.Build("x", 1, testTime); !errors.Is(err, ErrInvariant) {
		t.Errorf("Expected invariant violation, got %v", err)
	}
}

func TestWalkForcesRunners(t *testing.T) {
	d := mustDraft(t, testContext(0, RunnerMap{BaseFirst: "R1", BaseThird: "R3"}), TriggerWalk)
	if d.Result != Walk {
		t.Fatalf("Expected walk selected, got %q", d.Result)
	}
	if d.Stage() != StageAdvancing {
		t.Fatalf("Expected runner on third to need a decision, got %s", d.Stage())
	}
	if _, err := d.AssignRunner("R1", TargetThird, nil); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("Expected forced runner to be fixed, got %v", err)
	}
	d = mustAssign(t, d, "R3", TargetThird, nil)
	rec := mustBuild(t, d)
	want := RunnerMap{BaseFirst: "B", BaseSecond: "R1", BaseThird: "R3"}
	if !rec.RunnersAfter.Equal(want) {
		t.Errorf("RunnersAfter = %v, want %v", rec.RunnersAfter, want)
	}
}

func TestBasesLoadedWalkScoresRun(t *testing.T) {
	before := RunnerMap{BaseFirst: "R1", BaseSecond: "R2", BaseThird: "R3"}
	d := mustDraft(t, testContext(2, before), TriggerHitByPitch)
	if d.Stage() != StageReady {
		t.Fatalf("Expected every runner forced, got %s", d.Stage())
	}
	rec := mustBuild(t, d)
	if !reflect.DeepEqual(rec.ScoredRunnerIDs, []string{"R3"}) {
		t.Errorf("ScoredRunnerIDs = %v", rec.ScoredRunnerIDs)
	}
	if rec.Result != HitByPitch || rec.OutsAfter != 2 {
		t.Errorf("Unexpected record %+v", rec)
	}
}

func TestStrikeoutWithTwoOutsHoldsRunners(t *testing.T) {
	d := mustDraft(t, testContext(2, RunnerMap{BaseSecond: "R2"}), TriggerStrikeoutLooking)
	if d.Stage() != StageReady {
		t.Fatalf("Expected ready after third out, got %s", d.Stage())
	}
	rec := mustBuild(t, d)
	if rec.OutsAfter != 3 || rec.OutDetails[0].PuttingOutPosition != Catcher {
		t.Errorf("Unexpected record %+v", rec)
	}
}

func TestAdvancementDuplicateBase(t *testing.T) {
	d := mustDraft(t, testContext(0, RunnerMap{BaseFirst: "R1"}), TriggerBallInPlay)
	d = mustSelect(t, d, Single, LeftField)
	d = mustAssign(t, d, "R1", TargetSecond, nil)
	_, err := d.AssignRunner("B", TargetSecond, nil)
	var re *RuleError
	if !errors.As(err, &re) || !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("Expected invalid input, got %v", err)
	}
	if want := "base 2 cannot hold both R1 and B"; re.Rule != want {
		t.Errorf("Rule = %q, want %q", re.Rule, want)
	}
	if got := d.Stage(); got != StageAdvancing {
		t.Errorf("Stage = %s, want %s", got, StageAdvancing)
	}
	d = mustAssign(t, d, "B", TargetFirst, nil)
	if _, err := d.Build("x", 1, testTime); err != nil {
		t.Errorf("Build after fix: %v", err)
	}
}

func TestThirdOutForcesHeldRunners(t *testing.T) {
	for _, tc := range []struct {
		name   string
		before RunnerMap
		out    string
		credit OutCredit
		want   RunnerMap
	}{
		{
			name:   "runner from third out at home",
			before: RunnerMap{BaseFirst: "R1", BaseThird: "R3"},
			out:    "R3",
			credit: OutCredit{Throwing: LeftField, PuttingOut: Catcher},
			want:   RunnerMap{BaseFirst: "B", BaseSecond: "R1"},
		},
		{
			name:   "lead runner out with bases loaded",
			before: RunnerMap{BaseFirst: "R1", BaseSecond: "R2", BaseThird: "R3"},
			out:    "R3",
			credit: OutCredit{Throwing: LeftField, PuttingOut: Catcher},
			want:   RunnerMap{BaseFirst: "B", BaseSecond: "R1", BaseThird: "R2"},
		},
		{
			name:   "runner from first out at second",
			before: RunnerMap{BaseFirst: "R1", BaseSecond: "R2"},
			out:    "R1",
			credit: OutCredit{Throwing: LeftField, PuttingOut: SecondBase},
			want:   RunnerMap{BaseFirst: "B", BaseSecond: "R2"},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			d := mustDraft(t, testContext(2, tc.before), TriggerBallInPlay)
			d = mustSelect(t, d, Single, LeftField)
			for _, a := range d.Advance.Assignments {
				if a.Target != "" {
					t.Fatalf("Expected %s undecided before the out, got %s", a.ID, a.Target)
				}
			}
			d = mustAssign(t, d, tc.out, TargetOut, &tc.credit)
			if got := d.Stage(); got != StageReady {
				t.Fatalf("Stage = %s, want %s", got, StageReady)
			}
			rec := mustBuild(t, d)
			if rec.OutsAfter != MaxOuts {
				t.Errorf("OutsAfter = %d, want %d", rec.OutsAfter, MaxOuts)
			}
			if !rec.RunnersAfter.Equal(tc.want) {
				t.Errorf("RunnersAfter = %v, want %v", rec.RunnersAfter, tc.want)
			}
			if len(rec.ScoredRunnerIDs) != 0 {
				t.Errorf("ScoredRunnerIDs = %v, want none", rec.ScoredRunnerIDs)
			}
		})
	}
}

func TestThirdOutReleasedWhenChanged(t *testing.T) {
	d := mustDraft(t, testContext(2, RunnerMap{BaseFirst: "R1", BaseThird: "R3"}), TriggerBallInPlay)
	d = mustSelect(t, d, Single, LeftField)
	d = mustAssign(t, d, "R3", TargetOut, &OutCredit{Throwing: LeftField, PuttingOut: Catcher})
	d = mustAssign(t, d, "R3", TargetHome, nil)
	if got := d.Stage(); got != StageAdvancing {
		t.Fatalf("Stage = %s, want %s", got, StageAdvancing)
	}
	next, ok := d.Advance.Next()
	if !ok || next.ID != "R1" {
		t.Fatalf("Expected R1 to be prompted again, got %+v", next)
	}
}

func TestAssignRunnerRules(t *testing.T) {
	d := mustDraft(t, testContext(0, RunnerMap{BaseSecond: "R2"}), TriggerBallInPlay)
	d = mustSelect(t, d, Double, 0)
	if _, err := d.AssignRunner("R2", TargetFirst, nil); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("Expected backward move to fail, got %v", err)
	}
	if _, err := d.AssignRunner("R2", TargetOut, nil); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("Expected out without credit to fail, got %v", err)
	}
	if _, err := d.AssignRunner("nobody", TargetHome, nil); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("Expected unknown runner to fail, got %v", err)
	}
	if _, err := d.AssignRunner("R2", Target("4"), nil); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("Expected malformed target to fail, got %v", err)
	}

	cands := d.Candidates(TargetHome)
	if len(cands) != 2 {
		t.Errorf("Expected both runners as home candidates, got %v", cands)
	}
	if got := d.Candidates(TargetSecond); len(got) != 1 || got[0].ID != "B" {
		t.Errorf("Expected only the batter for second, got %v", got)
	}
}

func TestRestart(t *testing.T) {
	d := mustDraft(t, testContext(0, RunnerMap{}), TriggerBallInPlay)
	d = mustSelect(t, d, Triple, 0)
	d = mustAnswer(t, d, StepOutfieldDirection, "right")
	d = d.Restart()
	if d.Stage() != StageOutcome || d.Result != "" || d.Answers != (Answers{}) {
		t.Errorf("Expected fresh outcome stage, got %+v", d)
	}
	if len(d.Pitches) != 1 {
		t.Errorf("Expected terminal pitch kept, got %d pitches", len(d.Pitches))
	}

	w := mustDraft(t, testContext(0, RunnerMap{}), TriggerWalk).Restart()
	if w.Result != Walk || w.Stage() != StageReady {
		t.Errorf("Expected walk to stay selected, got %+v", w)
	}
}

func TestSelectRejections(t *testing.T) {
	d := mustDraft(t, testContext(0, RunnerMap{}), TriggerBallInPlay)
	if _, err := d.Select(SacrificeFly, 8); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("Expected sacrifice fly to be rejected with bases empty, got %v", err)
	}
	if _, err := d.Select(Single, 11); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("Expected bad fielder to be rejected, got %v", err)
	}
	w := mustDraft(t, testContext(0, RunnerMap{}), TriggerWalk)
	if _, err := w.Select(Single, 0); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("Expected selection on a walk to fail, got %v", err)
	}
}

func TestNewDraftValidation(t *testing.T) {
	ctx := testContext(0, RunnerMap{BaseFirst: "B"})
	if _, err := NewDraft(ctx, onePitch(ResultInPlay), TriggerBallInPlay); !errors.Is(err, ErrInvariant) {
		t.Errorf("Expected batter on base to be rejected, got %v", err)
	}
	if _, err := NewDraft(testContext(3, nil), onePitch(ResultInPlay), TriggerBallInPlay); !errors.Is(err, ErrInvariant) {
		t.Errorf("Expected 3 outs to be rejected, got %v", err)
	}
	if _, err := NewDraft(testContext(0, nil), nil, TriggerBallInPlay); !errors.Is(err, ErrInvariant) {
		t.Errorf("Expected empty pitch list to be rejected, got %v", err)
	}
}

func TestSacrificeFly(t *testing.T) {
	d := mustDraft(t, testContext(1, RunnerMap{BaseThird: "R3"}), TriggerBallInPlay)
	d = mustSelect(t, d, SacrificeFly, RightField)
	d = mustAnswer(t, d, StepBatType, "fly")
	d = mustAnswer(t, d, StepOutfieldDirection, "right")
	next, ok := d.Advance.Next()
	if !ok || next.ID != "R3" || next.Suggested != TargetHome {
		t.Fatalf("Expected runner on third suggested home, got %+v", next)
	}
	d = mustAssign(t, d, "R3", TargetHome, nil)
	rec := mustBuild(t, d)
	if rec.OutsAfter != 2 || !reflect.DeepEqual(rec.ScoredRunnerIDs, []string{"R3"}) {
		t.Errorf("Unexpected record %+v", rec)
	}
}
