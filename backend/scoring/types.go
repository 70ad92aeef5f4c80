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

// Package scoring implements the play-by-play scoring engine: pitch tracking,
// outcome classification, disambiguation, runner advancement and the pure
// application of a committed play to a game's cumulative state.
//
// Nothing in this package performs I/O. Every stage is a function from a
// draft value to a new draft value, so the pipeline can be driven by any
// transport and tested in isolation.
package scoring

import (
	"fmt"
	"strconv"
)

// MaxOuts is the number of outs that ends a half-inning.
const MaxOuts = 3

// Half identifies the top or bottom of an inning.
type Half string

const (
	Top    Half = "top"
	Bottom Half = "bottom"
)

// ParseHalf validates a half-inning identifier.
func ParseHalf(s string) (Half, error) {
	switch Half(s) {
	case Top, Bottom:
		return Half(s), nil
	}
	return "", invalidf("unknown half-inning %q", s)
}

// PitchType is the kind of pitch thrown.
type PitchType string

const (
	PitchRise     PitchType = "rise"
	PitchDrop     PitchType = "drop"
	PitchCut      PitchType = "cut"
	PitchChangeup PitchType = "changeup"
	PitchChenrai  PitchType = "chenrai"
	PitchSlider   PitchType = "slider"
	PitchUnknown  PitchType = "unknown"
)

// ParsePitchType validates a pitch type. An empty string maps to PitchUnknown.
func ParsePitchType(s string) (PitchType, error) {
	switch PitchType(s) {
	case PitchRise, PitchDrop, PitchCut, PitchChangeup, PitchChenrai, PitchSlider, PitchUnknown:
		return PitchType(s), nil
	case "":
		return PitchUnknown, nil
	}
	return "", invalidf("unknown pitch type %q", s)
}

// PitchResult is what happened on a single pitch.
type PitchResult string

const (
	ResultSwing    PitchResult = "swing"
	ResultLooking  PitchResult = "looking"
	ResultBall     PitchResult = "ball"
	ResultFoul     PitchResult = "foul"
	ResultInPlay   PitchResult = "inplay"
	ResultDeadball PitchResult = "deadball"
)

// ParsePitchResult validates a pitch result. Callers must validate input with
// it before handing a result to the CountTracker.
func ParsePitchResult(s string) (PitchResult, error) {
	switch PitchResult(s) {
	case ResultSwing, ResultLooking, ResultBall, ResultFoul, ResultInPlay, ResultDeadball:
		return PitchResult(s), nil
	}
	return "", invalidf("unknown pitch result %q", s)
}

// Location is a pitch location in strike-zone coordinates.
type Location struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// PitchEvent is one recorded pitch.
type PitchEvent struct {
	Seq      int         `json:"seq"`
	Location Location    `json:"location"`
	Type     PitchType   `json:"pitchType"`
	Result   PitchResult `json:"result"`
}

// Count is the balls-strikes-outs display.
type Count struct {
	Balls   int `json:"balls"`
	Strikes int `json:"strikes"`
	Outs    int `json:"outs"`
}

// Trigger is the reason a plate appearance ended.
type Trigger string

const (
	TriggerWalk              Trigger = "walk"
	TriggerHitByPitch        Trigger = "hit_by_pitch"
	TriggerStrikeoutSwinging Trigger = "strikeout_swinging"
	TriggerStrikeoutLooking  Trigger = "strikeout_looking"
	TriggerBallInPlay        Trigger = "ball_in_play"
)

// BattingResult is the classified outcome of a plate appearance.
type BattingResult string

const (
	Single            BattingResult = "single"
	Double            BattingResult = "double"
	Triple            BattingResult = "triple"
	HomeRun           BattingResult = "homerun"
	RunningHomeRun    BattingResult = "running_homerun"
	Walk              BattingResult = "walk"
	HitByPitch        BattingResult = "hit_by_pitch"
	StrikeoutSwinging BattingResult = "strikeout_swinging"
	StrikeoutLooking  BattingResult = "strikeout_looking"
	GroundOut         BattingResult = "groundout"
	FlyOut            BattingResult = "flyout"
	LineOut           BattingResult = "lineout"
	BuntOut           BattingResult = "bunt_out"
	SacrificeFly      BattingResult = "sacrifice_fly"
	FieldersChoice    BattingResult = "fielders_choice"
	Error             BattingResult = "error"
)

// ballInPlayResults is the selection list offered after an in-play pitch, in
// display order.
var ballInPlayResults = []BattingResult{
	Single, Double, Triple, HomeRun, RunningHomeRun,
	GroundOut, FlyOut, LineOut, BuntOut, SacrificeFly,
	FieldersChoice, Error,
}

// ParseBattingResult validates a batting result.
func ParseBattingResult(s string) (BattingResult, error) {
	r := BattingResult(s)
	switch r {
	case Walk, HitByPitch, StrikeoutSwinging, StrikeoutLooking:
		return r, nil
	}
	for _, v := range ballInPlayResults {
		if v == r {
			return r, nil
		}
	}
	return "", invalidf("unknown batting result %q", s)
}

// IsHomeRun reports whether the batter scores automatically.
func (r BattingResult) IsHomeRun() bool {
	return r == HomeRun || r == RunningHomeRun
}

// IsStrikeout reports whether the result is either strikeout variant.
func (r BattingResult) IsStrikeout() bool {
	return r == StrikeoutSwinging || r == StrikeoutLooking
}

// IsBallInPlayOut reports whether the batter is retired on a batted ball.
func (r BattingResult) IsBallInPlayOut() bool {
	switch r {
	case GroundOut, FlyOut, LineOut, BuntOut, SacrificeFly:
		return true
	}
	return false
}

// Position is a defensive fielding position code.
type Position int

const (
	Pitcher      Position = 1
	Catcher      Position = 2
	FirstBase    Position = 3
	SecondBase   Position = 4
	ThirdBase    Position = 5
	Shortstop    Position = 6
	LeftField    Position = 7
	CenterField  Position = 8
	RightField   Position = 9
	ShortFielder Position = 10
)

// Valid reports whether p is a known fielding position.
func (p Position) Valid() bool {
	return p >= Pitcher && p <= ShortFielder
}

// Infield reports whether p is one of positions 1 through 6.
func (p Position) Infield() bool {
	return p >= Pitcher && p <= Shortstop
}

// ParsePosition validates a fielding position code.
func ParsePosition(s string) (Position, error) {
	n, err := strconv.Atoi(s)
	if err != nil || !Position(n).Valid() {
		return 0, invalidf("unknown fielding position %q", s)
	}
	return Position(n), nil
}

// Direction is where an outfield ball was hit.
type Direction string

const (
	DirLeft        Direction = "left"
	DirLeftCenter  Direction = "left_center"
	DirCenter      Direction = "center"
	DirRightCenter Direction = "right_center"
	DirRight       Direction = "right"
)

// ParseDirection validates an outfield direction.
func ParseDirection(s string) (Direction, error) {
	switch Direction(s) {
	case DirLeft, DirLeftCenter, DirCenter, DirRightCenter, DirRight:
		return Direction(s), nil
	}
	return "", invalidf("unknown outfield direction %q", s)
}

// BatType is the batted-ball trajectory recorded for outs.
type BatType string

const (
	BatGround BatType = "ground"
	BatFly    BatType = "fly"
	BatLine   BatType = "line"
)

// ParseBatType validates a batted-ball type.
func ParseBatType(s string) (BatType, error) {
	switch BatType(s) {
	case BatGround, BatFly, BatLine:
		return BatType(s), nil
	}
	return "", invalidf("unknown bat type %q", s)
}

// Base identifies a base. BaseHome is only ever an origin (the batter) or a
// destination (a run scored); it is never stored in a RunnerMap.
type Base int

const (
	BaseHome   Base = 0
	BaseFirst  Base = 1
	BaseSecond Base = 2
	BaseThird  Base = 3
)

func (b Base) String() string {
	switch b {
	case BaseHome:
		return "home"
	case BaseFirst, BaseSecond, BaseThird:
		return strconv.Itoa(int(b))
	}
	return fmt.Sprintf("base(%d)", int(b))
}

// Target is a runner destination offered during advancement.
type Target string

const (
	TargetFirst  Target = "1"
	TargetSecond Target = "2"
	TargetThird  Target = "3"
	TargetHome   Target = "home"
	TargetOut    Target = "out"
)

// ParseTarget validates a runner destination.
func ParseTarget(s string) (Target, error) {
	switch Target(s) {
	case TargetFirst, TargetSecond, TargetThird, TargetHome, TargetOut:
		return Target(s), nil
	}
	return "", invalidf("malformed runner target %q", s)
}

// Base returns the resting base for a base target. It returns false for
// home and out.
func (t Target) Base() (Base, bool) {
	switch t {
	case TargetFirst:
		return BaseFirst, true
	case TargetSecond:
		return BaseSecond, true
	case TargetThird:
		return BaseThird, true
	}
	return 0, false
}

// rank orders targets along the basepaths so that home is furthest.
func (t Target) rank() int {
	if b, ok := t.Base(); ok {
		return int(b)
	}
	if t == TargetHome {
		return 4
	}
	return -1
}

// TargetFor returns the target that keeps a runner on base b.
func TargetFor(b Base) Target {
	switch b {
	case BaseFirst:
		return TargetFirst
	case BaseSecond:
		return TargetSecond
	case BaseThird:
		return TargetThird
	}
	return TargetHome
}
