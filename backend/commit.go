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
	"time"

	"github.com/google/uuid"

	"github.com/ttbt-io/playbyplay/backend/scoring"
)

// CommitEngine turns a ready draft into a PlayRecord and persists it with
// the new game state. A commit either fully succeeds or changes nothing.
type CommitEngine struct {
	store   MatchRepository
	hubs    *HubManager
	metrics *CommitMetrics
	now     func() time.Time
	newID   func() string
}

// NewCommitEngine returns a CommitEngine. hubs and metrics may be nil.
func NewCommitEngine(store MatchRepository, hubs *HubManager, metrics *CommitMetrics) *CommitEngine {
	return &CommitEngine{
		store:   store,
		hubs:    hubs,
		metrics: metrics,
		now:     time.Now,
		newID:   uuid.NewString,
	}
}

func (ce *CommitEngine) reject(reason string) {
	if ce.metrics != nil {
		ce.metrics.ObserveRejection(reason)
	}
}

// Commit records the outcome held by s against m. On success it returns the
// updated match, which replaces m, and the committed record. On an invariant
// violation the draft is restarted so that the scorer can re-enter it.
func (ce *CommitEngine) Commit(ctx context.Context, m *Match, s *Session) (*Match, scoring.PlayRecord, error) {
	start := ce.now()
	if m.Status != StatusPlaying {
		ce.reject("not_playing")
		return nil, scoring.PlayRecord{}, ErrNotPlaying
	}
	d, err := s.Ready()
	if err != nil {
		ce.reject("not_ready")
		return nil, scoring.PlayRecord{}, err
	}

	rec, err := d.Build(ce.newID(), len(m.Plays)+1, start.UTC())
	if err != nil {
		return nil, scoring.PlayRecord{}, ce.invariantFailure(ctx, m.ID, s, err)
	}

	next := m.clone()
	batting, _ := m.sides(m.State.Half)
	state, err := m.State.Apply(rec, len(batting.Lineup))
	if err != nil {
		return nil, scoring.PlayRecord{}, ce.invariantFailure(ctx, m.ID, s, err)
	}
	next.State = state
	next.Plays = append(next.Plays, rec)
	next.PendingPitches = nil
	next.UpdatedAt = start.UnixNano()

	if err := ce.store.SaveMatch(next); err != nil {
		ce.reject("storage")
		log.Printf("Commit: failed to save match %s: %v", m.ID, err)
		return nil, scoring.PlayRecord{}, fmt.Errorf("%w: saving match %s: %w", ErrRetryable, m.ID, err)
	}

	if ce.metrics != nil {
		ce.metrics.ObserveCommit(ce.now().Sub(start))
	}
	if ce.hubs != nil {
		ce.hubs.BroadcastToMatch(m.ID, Message{Type: MsgTypePlay, MatchID: m.ID, Play: &rec})
	}
	log.Printf("Match %s: committed play %d (%s), outs %d -> %d, %d run(s)", m.ID, rec.Seq, rec.Result, rec.OutsBefore, rec.OutsAfter, len(rec.ScoredRunnerIDs))
	return next, rec, nil
}

func (ce *CommitEngine) invariantFailure(ctx context.Context, matchId string, s *Session, err error) error {
	if !errors.Is(err, scoring.ErrInvariant) {
		ce.reject("invalid")
		return err
	}
	ce.reject("invariant")
	log.Printf("Match %s: commit rejected, restarting outcome: %v", matchId, err)
	if rerr := s.Restart(ctx); rerr != nil {
		log.Printf("Match %s: restart failed: %v", matchId, rerr)
	}
	return err
}
