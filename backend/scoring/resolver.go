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
	"strconv"
)

// Step is a single disambiguation question.
type Step string

const (
	StepBatType           Step = "bat_type"
	StepFieldingPosition  Step = "fielding_position"
	StepOutfieldDirection Step = "outfield_direction"
	StepFirstBaseTouch    Step = "first_base_touch"
	StepPutoutCredit      Step = "putout_credit"
	StepSafetyBunt        Step = "safety_bunt"
	StepOutsAfter         Step = "outs_after"
)

// Answers holds the disambiguation answers collected for a draft.
type Answers struct {
	BatType          BatType   `json:"batType,omitempty"`
	Fielder          Position  `json:"fielder,omitempty"`
	Direction        Direction `json:"direction,omitempty"`
	FirstBaseTouched *bool     `json:"firstBaseTouched,omitempty"`
	PutoutBy         Position  `json:"putoutBy,omitempty"`
	SafetyBunt       *bool     `json:"safetyBunt,omitempty"`
	OutsAfter        *int      `json:"outsAfter,omitempty"`
}

func (a Answers) has(s Step) bool {
	switch s {
	case StepBatType:
		return a.BatType != ""
	case StepFieldingPosition:
		return a.Fielder != 0
	case StepOutfieldDirection:
		return a.Direction != ""
	case StepFirstBaseTouch:
		return a.FirstBaseTouched != nil
	case StepPutoutCredit:
		return a.PutoutBy != 0
	case StepSafetyBunt:
		return a.SafetyBunt != nil
	case StepOutsAfter:
		return a.OutsAfter != nil
	}
	return false
}

// Steps returns the flagged steps in their fixed resolution order. The
// putout-credit step only appears once the first-base-touch answer is "no".
func (r Requirements) Steps(a Answers) []Step {
	var steps []Step
	if r.NeedsBatType {
		steps = append(steps, StepBatType)
	}
	if r.NeedsFieldingPosition {
		steps = append(steps, StepFieldingPosition)
	}
	if r.NeedsOutfieldDirection {
		steps = append(steps, StepOutfieldDirection)
	}
	if r.NeedsFirstBaseTouchCheck {
		steps = append(steps, StepFirstBaseTouch)
		if a.FirstBaseTouched != nil && !*a.FirstBaseTouched {
			steps = append(steps, StepPutoutCredit)
		}
	}
	if r.NeedsSafetyBuntCheck {
		steps = append(steps, StepSafetyBunt)
	}
	if r.NeedsOutsAfterConfirmation {
		steps = append(steps, StepOutsAfter)
	}
	return steps
}

// NextStep returns the first flagged step without an answer.
func (r Requirements) NextStep(a Answers) (Step, bool) {
	for _, s := range r.Steps(a) {
		if !a.has(s) {
			return s, true
		}
	}
	return "", false
}

// prune keeps only the answers that the requirements still ask for. A
// fielder is kept when keepFielder is set because it was part of the
// primary selection.
func (a Answers) prune(r Requirements, keepFielder bool) Answers {
	var out Answers
	if r.NeedsBatType {
		out.BatType = a.BatType
	}
	if r.NeedsFieldingPosition || keepFielder {
		out.Fielder = a.Fielder
	}
	if r.NeedsOutfieldDirection {
		out.Direction = a.Direction
	}
	if r.NeedsFirstBaseTouchCheck {
		out.FirstBaseTouched = a.FirstBaseTouched
		if a.FirstBaseTouched != nil && !*a.FirstBaseTouched {
			out.PutoutBy = a.PutoutBy
		}
	}
	if r.NeedsSafetyBuntCheck {
		out.SafetyBunt = a.SafetyBunt
	}
	if r.NeedsOutsAfterConfirmation {
		out.OutsAfter = a.OutsAfter
	}
	return out
}

// OutsAfterCandidates returns the outs a play may end with: no fewer than
// before, at most two more, never more than three.
func OutsAfterCandidates(outsBefore int) []int {
	var out []int
	for n := outsBefore; n <= outsBefore+2 && n <= MaxOuts; n++ {
		out = append(out, n)
	}
	return out
}

// Prompt describes one question for a front end to render.
type Prompt struct {
	Step    Step     `json:"step"`
	Options []string `json:"options"`
	Default string   `json:"default,omitempty"`
}

func positionOptions(exclude Position) []string {
	var out []string
	for p := Pitcher; p <= ShortFielder; p++ {
		if p == exclude {
			continue
		}
		out = append(out, strconv.Itoa(int(p)))
	}
	return out
}

func promptFor(s Step, result BattingResult, outsBefore int) Prompt {
	p := Prompt{Step: s}
	switch s {
	case StepBatType:
		p.Options = []string{string(BatGround), string(BatFly), string(BatLine)}
		p.Default = string(impliedBatType(result))
	case StepFieldingPosition:
		p.Options = positionOptions(0)
	case StepOutfieldDirection:
		p.Options = []string{string(DirLeft), string(DirLeftCenter), string(DirCenter), string(DirRightCenter), string(DirRight)}
	case StepFirstBaseTouch, StepSafetyBunt:
		p.Options = []string{"yes", "no"}
		p.Default = "no"
	case StepPutoutCredit:
		p.Options = positionOptions(FirstBase)
	case StepOutsAfter:
		for _, n := range OutsAfterCandidates(outsBefore) {
			p.Options = append(p.Options, strconv.Itoa(n))
		}
		p.Default = strconv.Itoa(min(outsBefore+1, MaxOuts))
	}
	return p
}

func parseYesNo(s string) (bool, error) {
	switch s {
	case "yes", "true":
		return true, nil
	case "no", "false":
		return false, nil
	}
	return false, invalidf("answer must be yes or no, got %q", s)
}

// with records the answer to step s.
func (a Answers) with(s Step, value string, outsBefore int) (Answers, error) {
	switch s {
	case StepBatType:
		bt, err := ParseBatType(value)
		if err != nil {
			return a, err
		}
		a.BatType = bt
	case StepFieldingPosition:
		p, err := ParsePosition(value)
		if err != nil {
			return a, err
		}
		a.Fielder = p
	case StepOutfieldDirection:
		d, err := ParseDirection(value)
		if err != nil {
			return a, err
		}
		a.Direction = d
	case StepFirstBaseTouch:
		b, err := parseYesNo(value)
		if err != nil {
			return a, err
		}
		a.FirstBaseTouched = &b
	case StepPutoutCredit:
		p, err := ParsePosition(value)
		if err != nil {
			return a, err
		}
		if p == FirstBase {
			return a, invalidf("covering fielder cannot be the first baseman who fielded the ball")
		}
		a.PutoutBy = p
	case StepSafetyBunt:
		b, err := parseYesNo(value)
		if err != nil {
			return a, err
		}
		a.SafetyBunt = &b
	case StepOutsAfter:
		n, err := strconv.Atoi(value)
		if err != nil {
			return a, invalidf("outs after play must be a number, got %q", value)
		}
		if n < outsBefore {
			return a, invalidf("out count cannot decrease")
		}
		if n > outsBefore+2 || n > MaxOuts {
			return a, invalidf("outs after play must be between %d and %d", outsBefore, min(outsBefore+2, MaxOuts))
		}
		a.OutsAfter = &n
	default:
		return a, invalidf("unknown disambiguation step %q", s)
	}
	return a, nil
}
