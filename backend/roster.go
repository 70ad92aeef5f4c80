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
	"fmt"
	"os"

	lru "github.com/hashicorp/golang-lru/v2"
)

// RosterProvider supplies player display names and team rosters.
type RosterProvider interface {
	DisplayName(playerId string) string
	Players(teamId string) ([]Player, error)
}

// TeamRoster is a RosterProvider backed by the TeamStore. Display names are
// kept in an LRU cache filled whenever a roster is read.
type TeamRoster struct {
	ts    *TeamStore
	names *lru.Cache[string, string]
}

// NewTeamRoster creates a TeamRoster caching up to size display names.
func NewTeamRoster(ts *TeamStore, size int) (*TeamRoster, error) {
	names, err := lru.New[string, string](size)
	if err != nil {
		return nil, fmt.Errorf("lru.New: %w", err)
	}
	return &TeamRoster{ts: ts, names: names}, nil
}

// Players returns the roster of a team. A deleted team has no players.
func (r *TeamRoster) Players(teamId string) ([]Player, error) {
	t, err := r.ts.LoadTeam(teamId)
	if err != nil {
		return nil, err
	}
	if t.Status == TeamStatusDeleted {
		return nil, os.ErrNotExist
	}
	for _, p := range t.Roster {
		r.names.Add(p.ID, formatPlayer(p))
	}
	return t.Roster, nil
}

// DisplayName returns "#number name" for a known player, or the id itself.
func (r *TeamRoster) DisplayName(playerId string) string {
	if name, ok := r.names.Get(playerId); ok {
		return name
	}
	return playerId
}

// Forget drops the cached names of a team's players, e.g. after a roster
// update.
func (r *TeamRoster) Forget(t *Team) {
	for _, p := range t.Roster {
		r.names.Remove(p.ID)
	}
}

func formatPlayer(p Player) string {
	switch {
	case p.Name == "":
		return p.ID
	case p.Number == "":
		return p.Name
	}
	return "#" + p.Number + " " + p.Name
}
