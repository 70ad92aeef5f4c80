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
	"errors"
	"os"
	"testing"

	"github.com/c2FmZQ/storage"
)

func newTestTeamStore(t *testing.T) *TeamStore {
	t.Helper()
	tmpDir, err := os.MkdirTemp("", "teamstore_test")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(tmpDir) })
	return NewTeamStore(tmpDir, storage.New(tmpDir, nil))
}

func TestTeamStore(t *testing.T) {
	ts := newTestTeamStore(t)

	team := &Team{
		ID:   "team/1",
		Name: "Owls",
		Roster: []Player{
			{ID: "p1", Name: "Ann", Number: "7"},
			{ID: "p2", Name: "Bea"},
		},
	}
	if err := ts.SaveTeam(team); err != nil {
		t.Fatalf("SaveTeam failed: %v", err)
	}

	loaded, err := ts.LoadTeam("team/1")
	if err != nil {
		t.Fatalf("LoadTeam failed: %v", err)
	}
	if loaded.Name != "Owls" || len(loaded.Roster) != 2 || loaded.SchemaVersion != CurrentSchemaVersion {
		t.Errorf("Unexpected team %+v", loaded)
	}
	if !loaded.Has("p2") || loaded.Has("p3") {
		t.Errorf("Has returned the wrong answer")
	}

	if _, err := ts.LoadTeam("missing"); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Expected ErrNotExist, got %v", err)
	}

	if err := ts.SaveTeam(&Team{ID: "team2", Name: "Hawks"}); err != nil {
		t.Fatalf("SaveTeam failed: %v", err)
	}
	var ids []string
	for tm, err := range ts.ListAllTeams() {
		if err != nil {
			t.Fatalf("ListAllTeams: %v", err)
		}
		ids = append(ids, tm.ID)
	}
	if len(ids) != 2 {
		t.Errorf("Expected 2 teams, got %v", ids)
	}
}

func TestTeamStoreDelete(t *testing.T) {
	ts := newTestTeamStore(t)
	if err := ts.SaveTeam(&Team{ID: "t1", Name: "Owls", Roster: []Player{{ID: "p1"}}}); err != nil {
		t.Fatalf("SaveTeam failed: %v", err)
	}
	if err := ts.DeleteTeam("t1"); err != nil {
		t.Fatalf("DeleteTeam failed: %v", err)
	}
	loaded, err := ts.LoadTeam("t1")
	if err != nil {
		t.Fatalf("Tombstone should still load: %v", err)
	}
	if loaded.Status != TeamStatusDeleted || loaded.DeletedAt == 0 || len(loaded.Roster) != 0 {
		t.Errorf("Expected a tombstone, got %+v", loaded)
	}
	if err := ts.DeleteTeam("never-existed"); err != nil {
		t.Errorf("Deleting a missing team should be a no-op, got %v", err)
	}
}

func TestTeamRoster(t *testing.T) {
	ts := newTestTeamStore(t)
	if err := ts.SaveTeam(&Team{ID: "t1", Roster: []Player{
		{ID: "p1", Name: "Ann", Number: "7"},
		{ID: "p2", Name: "Bea"},
		{ID: "p3"},
	}}); err != nil {
		t.Fatalf("SaveTeam failed: %v", err)
	}
	r, err := NewTeamRoster(ts, 16)
	if err != nil {
		t.Fatalf("NewTeamRoster: %v", err)
	}

	if got := r.DisplayName("p1"); got != "p1" {
		t.Errorf("Unknown player should display as the id, got %q", got)
	}
	players, err := r.Players("t1")
	if err != nil || len(players) != 3 {
		t.Fatalf("Players: %v %v", players, err)
	}
	for id, want := range map[string]string{"p1": "#7 Ann", "p2": "Bea", "p3": "p3"} {
		if got := r.DisplayName(id); got != want {
			t.Errorf("DisplayName(%s) = %q, want %q", id, got, want)
		}
	}

	r.Forget(&Team{Roster: []Player{{ID: "p1"}}})
	if got := r.DisplayName("p1"); got != "p1" {
		t.Errorf("Forget did not drop the cached name, got %q", got)
	}

	if err := ts.DeleteTeam("t1"); err != nil {
		t.Fatalf("DeleteTeam: %v", err)
	}
	if _, err := r.Players("t1"); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Expected ErrNotExist for a deleted team, got %v", err)
	}
}
