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
	"testing"
)

func feed(t *testing.T, tr *CountTracker, results ...PitchResult) CountTransition {
	t.Helper()
	var last CountTransition
	for i, r := range results {
		ct, err := tr.RecordPitch(Location{X: 0.5, Y: 0.5}, PitchRise, r)
		if err != nil {
			t.Fatalf("pitch %d (%s): %v", i+1, r, err)
		}
		last = ct
	}
	return last
}

func TestCountTracker(t *testing.T) {
	tests := []struct {
		name    string
		pitches []PitchResult
		ended   bool
		trigger Trigger
		count   Count
	}{
		{"FirstBall", []PitchResult{ResultBall}, false, "", Count{Balls: 1}},
		{"FourBallsWalk", []PitchResult{ResultBall, ResultBall, ResultBall, ResultBall}, true, TriggerWalk, Count{Balls: 3}},
		{"BallBallBallDeadball", []PitchResult{ResultBall, ResultBall, ResultBall, ResultDeadball}, true, TriggerHitByPitch, Count{Balls: 3}},
		{"FirstPitchDeadball", []PitchResult{ResultDeadball}, true, TriggerHitByPitch, Count{}},
		{"StrikeoutSwinging", []PitchResult{ResultSwing, ResultLooking, ResultSwing}, true, TriggerStrikeoutSwinging, Count{Strikes: 2}},
		{"StrikeoutLooking", []PitchResult{ResultFoul, ResultFoul, ResultLooking}, true, TriggerStrikeoutLooking, Count{Strikes: 2}},
		{"FoulWithTwoStrikes", []PitchResult{ResultSwing, ResultSwing, ResultFoul, ResultFoul, ResultFoul}, false, "", Count{Strikes: 2}},
		{"FoulIncrementsStrikes", []PitchResult{ResultFoul}, false, "", Count{Strikes: 1}},
		{"InPlay", []PitchResult{ResultBall, ResultInPlay}, true, TriggerBallInPlay, Count{Balls: 1}},
		{"FullCount", []PitchResult{ResultBall, ResultBall, ResultBall, ResultSwing, ResultFoul}, false, "", Count{Balls: 3, Strikes: 2}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tr := NewCountTracker(0)
			ct := feed(t, tr, tc.pitches...)
			if ct.Ended != tc.ended {
				t.Errorf("Ended = %v, want %v", ct.Ended, tc.ended)
			}
			if ct.Trigger != tc.trigger {
				t.Errorf("Trigger = %q, want %q", ct.Trigger, tc.trigger)
			}
			if ct.Count != tc.count {
				t.Errorf("Count = %+v, want %+v", ct.Count, tc.count)
			}
			if got := len(tr.Pitches()); got != len(tc.pitches) {
				t.Errorf("Expected %d pitches in log, got %d", len(tc.pitches), got)
			}
		})
	}
}

func TestCountTrackerAfterEnd(t *testing.T) {
	tr := NewCountTracker(1)
	feed(t, tr, ResultInPlay)
	_, err := tr.RecordPitch(Location{}, PitchDrop, ResultBall)
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("Expected ErrInvalidInput, got %v", err)
	}
	if tr.Count().Outs != 1 {
		t.Errorf("Expected outs to be kept, got %d", tr.Count().Outs)
	}
}

func TestCountTrackerSequence(t *testing.T) {
	tr := NewCountTracker(0)
	feed(t, tr, ResultBall, ResultFoul, ResultBall)
	for i, p := range tr.Pitches() {
		if p.Seq != i+1 {
			t.Errorf("pitch %d has seq %d", i, p.Seq)
		}
	}
	ct, err := tr.RecordPitch(Location{X: 0.1, Y: 0.9}, "", ResultBall)
	if err != nil {
		t.Fatalf("RecordPitch: %v", err)
	}
	if ct.Pitch.Type != PitchUnknown {
		t.Errorf("Expected empty pitch type to become unknown, got %q", ct.Pitch.Type)
	}
}

func TestCountTrackerRetract(t *testing.T) {
	tr := NewCountTracker(2)
	feed(t, tr, ResultBall, ResultSwing, ResultSwing, ResultSwing)
	if trig, ended := tr.Ended(); !ended || trig != TriggerStrikeoutSwinging {
		t.Fatalf("Expected strikeout, got %q %v", trig, ended)
	}
	if err := tr.Retract(); err != nil {
		t.Fatalf("Retract: %v", err)
	}
	if _, ended := tr.Ended(); ended {
		t.Fatal("Expected plate appearance to be open again")
	}
	want := Count{Balls: 1, Strikes: 2, Outs: 2}
	if tr.Count() != want {
		t.Errorf("Count = %+v, want %+v", tr.Count(), want)
	}
	if len(tr.Pitches()) != 3 {
		t.Errorf("Expected 3 pitches after retract, got %d", len(tr.Pitches()))
	}
	if err := tr.Retract(); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("Expected second retract to fail, got %v", err)
	}
	ct := feed(t, tr, ResultFoul)
	if ct.Pitch.Seq != 4 {
		t.Errorf("Expected new pitch to reuse seq 4, got %d", ct.Pitch.Seq)
	}
}

func TestRestoreCountTracker(t *testing.T) {
	src := NewCountTracker(0)
	feed(t, src, ResultBall, ResultSwing, ResultFoul)

	tr, err := RestoreCountTracker(0, src.Pitches())
	if err != nil {
		t.Fatalf("RestoreCountTracker: %v", err)
	}
	if tr.Count() != src.Count() {
		t.Errorf("Restored count %+v, want %+v", tr.Count(), src.Count())
	}

	bad := src.Pitches()
	bad[1].Seq = 7
	if _, err := RestoreCountTracker(0, bad); !errors.Is(err, ErrInvariant) {
		t.Errorf("Expected ErrInvariant for out of order pitches, got %v", err)
	}

	ended := []PitchEvent{{Seq: 1, Result: ResultInPlay}, {Seq: 2, Result: ResultBall}}
	if _, err := RestoreCountTracker(0, ended); err == nil {
		t.Error("Expected error for pitch after terminal pitch")
	}
}

func TestRecordPitchUnknownResultPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("Expected panic for unknown pitch result")
		}
	}()
	NewCountTracker(0).RecordPitch(Location{}, PitchRise, PitchResult("bogus"))
}

func TestCountTrackerReset(t *testing.T) {
	tr := NewCountTracker(0)
	feed(t, tr, ResultBall, ResultInPlay)
	tr.Reset(1)
	if _, ended := tr.Ended(); ended {
		t.Error("Expected fresh plate appearance")
	}
	if tr.Count() != (Count{Outs: 1}) {
		t.Errorf("Unexpected count after reset: %+v", tr.Count())
	}
	if len(tr.Pitches()) != 0 {
		t.Errorf("Expected empty log, got %d pitches", len(tr.Pitches()))
	}
}
