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
	"fmt"
	"slices"
)

const (
	maxBalls   = 3
	maxStrikes = 2
)

// PitchLog is the ordered list of pitches of the current plate appearance.
type PitchLog struct {
	pitches []PitchEvent
}

// Append records a pitch and assigns it the next sequence number.
func (l *PitchLog) Append(loc Location, typ PitchType, res PitchResult) PitchEvent {
	p := PitchEvent{
		Seq:      len(l.pitches) + 1,
		Location: loc,
		Type:     typ,
		Result:   res,
	}
	l.pitches = append(l.pitches, p)
	return p
}

// Pitches returns a copy of the recorded pitches.
func (l *PitchLog) Pitches() []PitchEvent {
	return slices.Clone(l.pitches)
}

// Len returns the number of recorded pitches.
func (l *PitchLog) Len() int {
	return len(l.pitches)
}

func (l *PitchLog) dropLast() {
	if len(l.pitches) > 0 {
		l.pitches = l.pitches[:len(l.pitches)-1]
	}
}

// CountTransition is the result of recording one pitch.
type CountTransition struct {
	Pitch   PitchEvent `json:"pitch"`
	Ended   bool       `json:"ended"`
	Count   Count      `json:"count"`
	Trigger Trigger    `json:"trigger,omitempty"`
}

// CountTracker keeps the balls and strikes of the current plate appearance
// and decides when it ends.
type CountTracker struct {
	log     PitchLog
	count   Count
	before  Count
	ended   bool
	trigger Trigger
}

// NewCountTracker starts a fresh plate appearance with the given outs.
func NewCountTracker(outs int) *CountTracker {
	return &CountTracker{count: Count{Outs: outs}}
}

// RestoreCountTracker replays previously recorded pitches. It fails if the
// pitches are out of sequence or if a pitch follows a terminal one.
func RestoreCountTracker(outs int, pitches []PitchEvent) (*CountTracker, error) {
	t := NewCountTracker(outs)
	for i, p := range pitches {
		if p.Seq != i+1 {
			return nil, invariantf("pitch sequence number %d out of order", p.Seq)
		}
		if _, err := ParsePitchResult(string(p.Result)); err != nil {
			return nil, err
		}
		if _, err := t.RecordPitch(p.Location, p.Type, p.Result); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// RecordPitch appends the pitch to the log and applies the count rules.
// An unknown result is a programming error and panics.
func (t *CountTracker) RecordPitch(loc Location, typ PitchType, res PitchResult) (CountTransition, error) {
	if t.ended {
		return CountTransition{}, invalidf("plate appearance already ended")
	}
	if typ == "" {
		typ = PitchUnknown
	}
	p := t.log.Append(loc, typ, res)
	t.before = t.count

	switch res {
	case ResultDeadball:
		return t.end(p, TriggerHitByPitch), nil
	case ResultBall:
		if t.count.Balls == maxBalls {
			return t.end(p, TriggerWalk), nil
		}
		t.count.Balls++
	case ResultSwing, ResultLooking:
		if t.count.Strikes == maxStrikes {
			if res == ResultSwing {
				return t.end(p, TriggerStrikeoutSwinging), nil
			}
			return t.end(p, TriggerStrikeoutLooking), nil
		}
		t.count.Strikes++
	case ResultFoul:
		if t.count.Strikes < maxStrikes {
			t.count.Strikes++
		}
	case ResultInPlay:
		return t.end(p, TriggerBallInPlay), nil
	default:
		panic(fmt.Sprintf("scoring: unknown pitch result %q", res))
	}
	return CountTransition{Pitch: p, Count: t.count}, nil
}

func (t *CountTracker) end(p PitchEvent, trigger Trigger) CountTransition {
	t.ended = true
	t.trigger = trigger
	return CountTransition{Pitch: p, Ended: true, Count: t.count, Trigger: trigger}
}

// Count returns the current count.
func (t *CountTracker) Count() Count {
	return t.count
}

// Ended returns the trigger that ended the plate appearance, if any.
func (t *CountTracker) Ended() (Trigger, bool) {
	return t.trigger, t.ended
}

// Pitches returns a copy of the pitch log.
func (t *CountTracker) Pitches() []PitchEvent {
	return t.log.Pitches()
}

// Retract removes the terminal pitch so that pitch input can resume. Pitches
// recorded before it are kept.
func (t *CountTracker) Retract() error {
	if !t.ended {
		return invalidf("no terminal pitch to retract")
	}
	t.log.dropLast()
	t.count = t.before
	t.ended = false
	t.trigger = ""
	return nil
}

// Reset clears the pitch log and count for the next batter.
func (t *CountTracker) Reset(outs int) {
	*t = CountTracker{count: Count{Outs: outs}}
}
