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
	"testing"

	"github.com/ttbt-io/playbyplay/backend/scoring"
)

func sessionContext() scoring.PlayContext {
	st := scoring.NewGameState("m1")
	st.Runners[scoring.BaseSecond] = "r2"
	return st.Context("b1", "p1")
}

func noDebug(string, ...any) {}

func TestSessionStages(t *testing.T) {
	ctx := context.Background()
	s, err := NewSession(ctx, sessionContext(), nil, noDebug)
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	if s.Stage() != StagePitching {
		t.Fatalf("Expected pitching, got %s", s.Stage())
	}
	if _, ok := s.Draft(); ok {
		t.Fatalf("No draft expected before the plate appearance ends")
	}
	if _, err := s.Ready(); !errors.Is(err, ErrNoSession) {
		t.Errorf("Expected ErrNoSession, got %v", err)
	}

	ct, err := s.RecordPitch(ctx, scoring.Location{}, scoring.PitchRise, scoring.ResultInPlay)
	if err != nil || !ct.Ended {
		t.Fatalf("RecordPitch: %+v %v", ct, err)
	}
	if s.Stage() != StageOutcome {
		t.Fatalf("Expected outcome, got %s", s.Stage())
	}
	if _, err := s.RecordPitch(ctx, scoring.Location{}, scoring.PitchRise, scoring.ResultBall); !errors.Is(err, ErrWrongStage) {
		t.Errorf("Expected ErrWrongStage, got %v", err)
	}

	if err := s.Select(ctx, scoring.Triple, scoring.CenterField); err != nil {
		t.Fatalf("Select: %v", err)
	}
	if s.Stage() != StageResolving {
		t.Fatalf("Expected resolving, got %s", s.Stage())
	}
	if err := s.Answer(ctx, scoring.StepOutfieldDirection, "center"); err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if s.Stage() != StageAdvancing {
		t.Fatalf("Expected advancing, got %s", s.Stage())
	}
	if err := s.AssignRunner(ctx, "r2", scoring.TargetHome, nil); err != nil {
		t.Fatalf("AssignRunner(r2): %v", err)
	}
	if err := s.AssignRunner(ctx, "b1", scoring.TargetThird, nil); err != nil {
		t.Fatalf("AssignRunner(b1): %v", err)
	}
	if s.Stage() != StageReady {
		t.Fatalf("Expected ready, got %s", s.Stage())
	}
	d, err := s.Ready()
	if err != nil {
		t.Fatalf("Ready: %v", err)
	}
	if d.Result != scoring.Triple {
		t.Errorf("Unexpected draft %+v", d)
	}

	// Reassigning a runner from ready stays ready.
	if err := s.AssignRunner(ctx, "b1", scoring.TargetSecond, nil); err != nil {
		t.Fatalf("AssignRunner(b1): %v", err)
	}
	if s.Stage() != StageReady {
		t.Errorf("Expected ready after reassignment, got %s", s.Stage())
	}

	next := scoring.NewGameState("m1")
	next.Outs = 1
	if err := s.Reset(ctx, next.Context("b2", "p1")); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if s.Stage() != StagePitching || len(s.Pitches()) != 0 || s.Count().Outs != 1 {
		t.Errorf("Unexpected session after reset: %s %v %+v", s.Stage(), s.Pitches(), s.Count())
	}
}

func TestSessionRestoreAndCancel(t *testing.T) {
	ctx := context.Background()
	pending := []scoring.PitchEvent{
		{Seq: 1, Type: scoring.PitchDrop, Result: scoring.ResultBall},
		{Seq: 2, Type: scoring.PitchDrop, Result: scoring.ResultDeadball},
	}
	s, err := NewSession(ctx, sessionContext(), pending, noDebug)
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	d, ok := s.Draft()
	if !ok || d.Trigger != scoring.TriggerHitByPitch {
		t.Fatalf("Expected a hit-by-pitch draft after restore, got %+v", d)
	}
	if s.Stage() != StageAdvancing {
		t.Fatalf("Expected advancing for a hit by pitch with a runner on second, got %s", s.Stage())
	}

	if err := s.Cancel(ctx); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if s.Stage() != StagePitching || s.Count().Balls != 1 || len(s.Pitches()) != 1 {
		t.Errorf("Unexpected session after cancel: %s %+v", s.Stage(), s.Count())
	}
	if err := s.Cancel(ctx); !errors.Is(err, ErrNoSession) {
		t.Errorf("Expected ErrNoSession, got %v", err)
	}
	if err := s.Restart(ctx); !errors.Is(err, ErrNoSession) {
		t.Errorf("Expected ErrNoSession, got %v", err)
	}
}

func TestSessionFailedDraftRetractsPitch(t *testing.T) {
	ctx := context.Background()
	pctx := sessionContext()
	pctx.BatterID = ""
	s, err := NewSession(ctx, pctx, nil, noDebug)
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	if _, err := s.RecordPitch(ctx, scoring.Location{}, scoring.PitchRise, scoring.ResultInPlay); !errors.Is(err, scoring.ErrInvalidInput) {
		t.Fatalf("Expected invalid input, got %v", err)
	}
	if got, want := s.Stage(), StagePitching; got != want {
		t.Errorf("Stage = %s, want %s", got, want)
	}
	if got := len(s.Pitches()); got != 0 {
		t.Errorf("len(Pitches) = %d, want 0", got)
	}
	if _, ended := s.counts.Ended(); ended {
		t.Error("Expected the plate appearance to be open again")
	}
}

func TestSessionResetRequiresReady(t *testing.T) {
	ctx := context.Background()
	next := scoring.NewGameState("m1").Context("b2", "p1")
	for _, tc := range []struct {
		name    string
		pitches []scoring.PitchResult
		want    string
	}{
		{"pitching", nil, StagePitching},
		{"outcome", []scoring.PitchResult{scoring.ResultInPlay}, StageOutcome},
		{"advancing", []scoring.PitchResult{scoring.ResultDeadball}, StageAdvancing},
	} {
		t.Run(tc.name, func(t *testing.T) {
			s, err := NewSession(ctx, sessionContext(), nil, noDebug)
			if err != nil {
				t.Fatalf("NewSession: %v", err)
			}
			for _, r := range tc.pitches {
				if _, err := s.RecordPitch(ctx, scoring.Location{}, scoring.PitchRise, r); err != nil {
					t.Fatalf("RecordPitch(%s): %v", r, err)
				}
			}
			if err := s.Reset(ctx, next); !errors.Is(err, ErrWrongStage) {
				t.Errorf("Reset during %s: got %v, want ErrWrongStage", tc.want, err)
			}
			if got := s.Stage(); got != tc.want {
				t.Errorf("Stage = %s, want %s", got, tc.want)
			}
			if got := s.Context().BatterID; got != "b1" {
				t.Errorf("BatterID = %q, want b1", got)
			}
			if got := len(s.Pitches()); got != len(tc.pitches) {
				t.Errorf("len(Pitches) = %d, want %d", got, len(tc.pitches))
			}
		})
	}
}
