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
	"encoding/json"
	"fmt"
	"iter"
	"log"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/c2FmZQ/storage"

	"github.com/ttbt-io/playbyplay/backend/scoring"
)

// Side is one team's participation in a match.
type Side struct {
	TeamID    string   `json:"teamId,omitempty"`
	Lineup    []string `json:"lineup"`
	PitcherID string   `json:"pitcherId"`
}

// Match is the persisted match document: its lifecycle status, the
// cumulative game state, the committed play history and the pitches of the
// plate appearance in progress.
type Match struct {
	ID            string `json:"id"`
	SchemaVersion int    `json:"schemaVersion"`
	Date          string `json:"date,omitempty"`
	Location      string `json:"location,omitempty"`
	Event         string `json:"event,omitempty"`
	Status        string `json:"status"`
	Away          Side   `json:"away"`
	Home          Side   `json:"home"`

	State          scoring.GameState    `json:"state"`
	Plays          []scoring.PlayRecord `json:"plays"`
	PendingPitches []scoring.PitchEvent `json:"pendingPitches,omitempty"`

	UpdatedAt  int64 `json:"updatedAt,omitempty"`
	FinishedAt int64 `json:"finishedAt,omitempty"`
}

func (m *Match) normalize() {
	if m.SchemaVersion == 0 {
		m.SchemaVersion = CurrentSchemaVersion
	}
	if m.Plays == nil {
		m.Plays = make([]scoring.PlayRecord, 0)
	}
	if m.Away.Lineup == nil {
		m.Away.Lineup = make([]string, 0)
	}
	if m.Home.Lineup == nil {
		m.Home.Lineup = make([]string, 0)
	}
	m.State = m.State.Clone()
}

// clone returns a deep enough copy for the commit path: the state, the play
// slice and the pending pitches are never shared.
func (m *Match) clone() *Match {
	c := *m
	c.State = m.State.Clone()
	c.Plays = slices.Clone(m.Plays)
	c.PendingPitches = slices.Clone(m.PendingPitches)
	c.Away.Lineup = slices.Clone(m.Away.Lineup)
	c.Home.Lineup = slices.Clone(m.Home.Lineup)
	return &c
}

// sides returns the batting and fielding sides for a half-inning. The away
// team bats in the top half.
func (m *Match) sides(h scoring.Half) (batting, fielding Side) {
	if h == scoring.Bottom {
		return m.Home, m.Away
	}
	return m.Away, m.Home
}

// MatchMetadata contains only the fields needed for listing.
type MatchMetadata struct {
	ID         string       `json:"id"`
	Date       string       `json:"date,omitempty"`
	Location   string       `json:"location,omitempty"`
	Event      string       `json:"event,omitempty"`
	Status     string       `json:"status"`
	AwayTeamID string       `json:"awayTeamId,omitempty"`
	HomeTeamID string       `json:"homeTeamId,omitempty"`
	Inning     int          `json:"inning"`
	Half       scoring.Half `json:"half"`
	Score      scoring.Line `json:"score"`
	UpdatedAt  int64        `json:"updatedAt"`
}

func (m *Match) metadata() MatchMetadata {
	return MatchMetadata{
		ID:         m.ID,
		Date:       m.Date,
		Location:   m.Location,
		Event:      m.Event,
		Status:     m.Status,
		AwayTeamID: m.Away.TeamID,
		HomeTeamID: m.Home.TeamID,
		Inning:     m.State.Inning,
		Half:       m.State.Half,
		Score:      m.State.ScoreTotal,
		UpdatedAt:  m.UpdatedAt,
	}
}

// MatchRepository is the persistence used by the scorer.
type MatchRepository interface {
	LoadMatch(matchId string) (*Match, error)
	SaveMatch(match *Match) error
	SaveMatchInMemory(match *Match, forceSync bool) error
}

// MatchStore manages match persistence to disk.
type MatchStore struct {
	DataDir string
	Debug   bool
	storage *storage.Storage
	mu      sync.Map // Stores *sync.RWMutex for each matchId
	cache   sync.Map // Stores the latest []byte (JSON) for each matchId

	dirtyMu sync.Mutex
	dirty   map[string]bool
}

// NewMatchStore creates a new MatchStore.
func NewMatchStore(dataDir string, s *storage.Storage) *MatchStore {
	return &MatchStore{
		DataDir: dataDir,
		storage: s,
		dirty:   make(map[string]bool),
	}
}

func matchFilenames(matchId string) (string, string) {
	encoded := url.PathEscape(matchId)
	return filepath.Join("matches", fmt.Sprintf("%s.json", encoded)),
		filepath.Join("matches", fmt.Sprintf("%s.meta.json", encoded))
}

func (ms *MatchStore) lock(matchId string) *sync.RWMutex {
	m, _ := ms.mu.LoadOrStore(matchId, &sync.RWMutex{})
	return m.(*sync.RWMutex)
}

// SaveMatch writes the match document and its metadata sidecar.
func (ms *MatchStore) SaveMatch(match *Match) error {
	mutex := ms.lock(match.ID)
	mutex.Lock()
	defer mutex.Unlock()

	filename, metaFilename := matchFilenames(match.ID)
	if err := ms.storage.SaveDataFile(filename, match); err != nil {
		return fmt.Errorf("storage.SaveDataFile: %w", err)
	}

	meta := match.metadata()
	if err := ms.storage.SaveDataFile(metaFilename, &meta); err != nil {
		log.Printf("Warning: Failed to save metadata sidecar for match %s: %v", match.ID, err)
	}

	if jsonBytes, err := json.Marshal(match); err == nil {
		ms.cache.Store(match.ID, jsonBytes)
	}

	ms.dirtyMu.Lock()
	delete(ms.dirty, match.ID)
	ms.dirtyMu.Unlock()

	return nil
}

// SaveMatchInMemory updates the in-memory cache and marks the match as dirty.
// If forceSync is true, it writes to disk immediately.
func (ms *MatchStore) SaveMatchInMemory(match *Match, forceSync bool) error {
	jsonBytes, err := json.Marshal(match)
	if err != nil {
		return err
	}
	ms.cache.Store(match.ID, jsonBytes)

	if forceSync {
		return ms.SaveMatch(match)
	}

	ms.dirtyMu.Lock()
	ms.dirty[match.ID] = true
	ms.dirtyMu.Unlock()
	return nil
}

// Flush persists a specific match to disk if it is dirty.
func (ms *MatchStore) Flush(matchId string) error {
	ms.dirtyMu.Lock()
	if !ms.dirty[matchId] {
		ms.dirtyMu.Unlock()
		return nil
	}
	ms.dirtyMu.Unlock()

	val, ok := ms.cache.Load(matchId)
	if !ok {
		ms.dirtyMu.Lock()
		delete(ms.dirty, matchId)
		ms.dirtyMu.Unlock()
		return fmt.Errorf("match %s marked dirty but not found in cache", matchId)
	}

	var m Match
	if err := json.Unmarshal(val.([]byte), &m); err != nil {
		return fmt.Errorf("failed to unmarshal match from cache for flush: %w", err)
	}
	return ms.SaveMatch(&m)
}

// FlushAll persists all dirty matches to disk.
func (ms *MatchStore) FlushAll() error {
	ms.dirtyMu.Lock()
	dirtyIds := make([]string, 0, len(ms.dirty))
	for id := range ms.dirty {
		dirtyIds = append(dirtyIds, id)
	}
	ms.dirtyMu.Unlock()

	for _, id := range dirtyIds {
		if err := ms.Flush(id); err != nil {
			return fmt.Errorf("failed to flush match %s: %w", id, err)
		}
	}
	return nil
}

// DirtyCount returns the number of matches waiting to be flushed.
func (ms *MatchStore) DirtyCount() int {
	ms.dirtyMu.Lock()
	defer ms.dirtyMu.Unlock()
	return len(ms.dirty)
}

// LoadMatch loads a match by ID. The cache is authoritative.
func (ms *MatchStore) LoadMatch(matchId string) (*Match, error) {
	if val, ok := ms.cache.Load(matchId); ok {
		var m Match
		if err := json.Unmarshal(val.([]byte), &m); err == nil {
			if ms.Debug {
				log.Printf("[CACHE] Hit for match %s", matchId)
			}
			m.normalize()
			return &m, nil
		}
		ms.cache.Delete(matchId)
	}
	if ms.Debug {
		log.Printf("[CACHE] Miss for match %s", matchId)
	}

	mutex := ms.lock(matchId)
	mutex.RLock()
	defer mutex.RUnlock()

	filename, _ := matchFilenames(matchId)
	var m Match
	if err := ms.storage.ReadDataFile(filename, &m); err != nil {
		if os.IsNotExist(err) {
			return nil, os.ErrNotExist
		}
		return nil, fmt.Errorf("ReadDataFile: %w", err)
	}
	if m.SchemaVersion > CurrentSchemaVersion {
		return nil, fmt.Errorf("match %s has unsupported schema version %d", matchId, m.SchemaVersion)
	}
	m.normalize()

	if jsonBytes, err := json.Marshal(&m); err == nil {
		ms.cache.Store(matchId, jsonBytes)
	}
	return &m, nil
}

// ListMatchMetadata returns metadata for all matches without loading the
// play histories. Matches that only exist in the dirty cache are included.
func (ms *MatchStore) ListMatchMetadata() iter.Seq2[MatchMetadata, error] {
	return func(yield func(MatchMetadata, error) bool) {
		matchesDir := filepath.Join(ms.DataDir, "matches")
		files, err := os.ReadDir(matchesDir)
		if err != nil && !os.IsNotExist(err) {
			yield(MatchMetadata{}, fmt.Errorf("could not read matches directory: %w", err))
			return
		}

		ms.dirtyMu.Lock()
		dirty := make(map[string]bool, len(ms.dirty))
		for id := range ms.dirty {
			dirty[id] = true
		}
		ms.dirtyMu.Unlock()

		seen := make(map[string]bool)
		for _, file := range files {
			name := file.Name()
			if file.IsDir() || !strings.HasSuffix(name, ".json") || strings.HasSuffix(name, ".meta.json") {
				continue
			}
			id, err := url.PathUnescape(strings.TrimSuffix(name, ".json"))
			if err != nil {
				continue
			}
			seen[id] = true

			if !dirty[id] {
				_, metaFilename := matchFilenames(id)
				var meta MatchMetadata
				if err := ms.storage.ReadDataFile(metaFilename, &meta); err == nil {
					if !yield(meta, nil) {
						return
					}
					continue
				}
			}
			m, err := ms.LoadMatch(id)
			if err != nil {
				log.Printf("Warning: could not load match '%s': %v", id, err)
				continue
			}
			if !yield(m.metadata(), nil) {
				return
			}
		}

		for id := range dirty {
			if seen[id] {
				continue
			}
			m, err := ms.LoadMatch(id)
			if err != nil {
				log.Printf("Error: Failed to load dirty match %s: %v", id, err)
				continue
			}
			if !yield(m.metadata(), nil) {
				return
			}
		}
	}
}
