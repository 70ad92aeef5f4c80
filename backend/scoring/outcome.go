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

// Requirements lists the disambiguation steps a batting result needs.
type Requirements struct {
	NeedsOutfieldDirection     bool `json:"needsOutfieldDirection"`
	NeedsFieldingPosition      bool `json:"needsFieldingPosition"`
	NeedsBatType               bool `json:"needsBatType"`
	NeedsFirstBaseTouchCheck   bool `json:"needsFirstBaseTouchCheck"`
	NeedsSafetyBuntCheck       bool `json:"needsSafetyBuntCheck"`
	NeedsOutsAfterConfirmation bool `json:"needsOutsAfterConfirmation"`
}

// Classify computes the requirements of a result given the fielder known so
// far (zero if none). It must be re-evaluated whenever either input changes.
func Classify(result BattingResult, fielder Position) Requirements {
	var req Requirements
	switch result {
	case Triple, HomeRun, RunningHomeRun, SacrificeFly:
		req.NeedsOutfieldDirection = true
	}
	if result.IsBallInPlayOut() {
		req.NeedsFieldingPosition = true
		req.NeedsBatType = true
	}
	if result == FieldersChoice {
		req.NeedsFieldingPosition = true
	}
	if result == GroundOut {
		req.NeedsOutsAfterConfirmation = true
		req.NeedsFirstBaseTouchCheck = fielder == FirstBase
	}
	if result == Single && fielder.Infield() {
		req.NeedsSafetyBuntCheck = true
	}
	return req
}

// ResultForTrigger maps a trigger that fully determines the result. It
// returns false for a ball in play, which needs a user selection.
func ResultForTrigger(t Trigger) (BattingResult, bool) {
	switch t {
	case TriggerWalk:
		return Walk, true
	case TriggerHitByPitch:
		return HitByPitch, true
	case TriggerStrikeoutSwinging:
		return StrikeoutSwinging, true
	case TriggerStrikeoutLooking:
		return StrikeoutLooking, true
	}
	return "", false
}

// Choices enumerates the primary results that can be selected for a trigger
// in the given base/out situation.
func Choices(t Trigger, runners RunnerMap, outs int) []BattingResult {
	if r, ok := ResultForTrigger(t); ok {
		return []BattingResult{r}
	}
	if t != TriggerBallInPlay {
		return nil
	}
	out := make([]BattingResult, 0, len(ballInPlayResults))
	for _, r := range ballInPlayResults {
		switch r {
		case SacrificeFly:
			if runners.Occupant(BaseThird) == "" || outs >= MaxOuts-1 {
				continue
			}
		case FieldersChoice:
			if runners.Len() == 0 {
				continue
			}
		}
		out = append(out, r)
	}
	return out
}

func validChoice(t Trigger, r BattingResult, runners RunnerMap, outs int) bool {
	for _, c := range Choices(t, runners, outs) {
		if c == r {
			return true
		}
	}
	return false
}

// impliedBatType is the pre-selected bat type for results that name one.
func impliedBatType(r BattingResult) BatType {
	switch r {
	case GroundOut, BuntOut:
		return BatGround
	case FlyOut, SacrificeFly:
		return BatFly
	case LineOut:
		return BatLine
	}
	return ""
}
