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
	"math"
	"regexp"
	"time"

	"github.com/ttbt-io/playbyplay/backend/scoring"
)

// idRegex matches match, team and player ids. UUIDs are a subset.
var idRegex = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.-]{0,63}$`)

// isValidID checks if the string is usable as an id and a file name.
func isValidID(id string) bool {
	return idRegex.MatchString(id)
}

// badRequestf returns an error classified as invalid input.
func badRequestf(format string, args ...any) error {
	return &scoring.RuleError{Kind: scoring.ErrInvalidInput, Rule: fmt.Sprintf(format, args...)}
}

// validateStringLen checks if the string length is within the limit.
func validateStringLen(s string, max int, name string) error {
	if len(s) > max {
		return badRequestf("%s too long (max %d chars)", name, max)
	}
	return nil
}

func validateMatchID(id string) error {
	if !isValidID(id) {
		return badRequestf("invalid match id %q", id)
	}
	return nil
}

// --- Request payloads ---

// CreateMatchRequest registers a match. ID is generated when empty.
type CreateMatchRequest struct {
	ID       string `json:"id,omitempty"`
	Date     string `json:"date,omitempty"`
	Location string `json:"location,omitempty"`
	Event    string `json:"event,omitempty"`
	Away     Side   `json:"away"`
	Home     Side   `json:"home"`
}

func validateSide(s Side, name string) error {
	if s.TeamID != "" && !isValidID(s.TeamID) {
		return badRequestf("invalid %s team id", name)
	}
	if len(s.Lineup) == 0 {
		return badRequestf("%s lineup is empty", name)
	}
	if len(s.Lineup) > maxLineupLen {
		return badRequestf("%s lineup too long (max %d)", name, maxLineupLen)
	}
	seen := make(map[string]bool, len(s.Lineup))
	for _, id := range s.Lineup {
		if !isValidID(id) {
			return badRequestf("invalid player id %q in %s lineup", id, name)
		}
		if seen[id] {
			return badRequestf("player %s appears twice in %s lineup", id, name)
		}
		seen[id] = true
	}
	if !isValidID(s.PitcherID) {
		return badRequestf("%s pitcher is missing", name)
	}
	return nil
}

// Validate checks the request fields.
func (r CreateMatchRequest) Validate() error {
	if r.ID != "" {
		if err := validateMatchID(r.ID); err != nil {
			return err
		}
	}
	if r.Date != "" {
		if _, err := time.Parse(time.RFC3339, r.Date); err != nil {
			return badRequestf("invalid date format: %v", err)
		}
	}
	if err := validateStringLen(r.Location, maxNameLen, "location"); err != nil {
		return err
	}
	if err := validateStringLen(r.Event, maxNameLen, "event"); err != nil {
		return err
	}
	if err := validateSide(r.Away, "away"); err != nil {
		return err
	}
	if err := validateSide(r.Home, "home"); err != nil {
		return err
	}
	for _, id := range r.Away.Lineup {
		for _, other := range r.Home.Lineup {
			if id == other {
				return badRequestf("player %s is in both lineups", id)
			}
		}
	}
	return nil
}

// StatusRequest changes the lifecycle status of a match.
type StatusRequest struct {
	MatchID string `json:"matchId"`
	Status  string `json:"status"`
}

func (r StatusRequest) Validate() error {
	if err := validateMatchID(r.MatchID); err != nil {
		return err
	}
	switch r.Status {
	case StatusScheduled, StatusPlaying, StatusFinished:
		return nil
	}
	return badRequestf("unknown status %q", r.Status)
}

// PitchRequest records one pitch.
type PitchRequest struct {
	MatchID  string           `json:"matchId"`
	Location scoring.Location `json:"location"`
	Type     string           `json:"pitchType"`
	Result   string           `json:"result"`
}

// Parse validates the request and returns the typed pitch fields.
func (r PitchRequest) Parse() (scoring.PitchType, scoring.PitchResult, error) {
	if err := validateMatchID(r.MatchID); err != nil {
		return "", "", err
	}
	for _, v := range []float64{r.Location.X, r.Location.Y} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return "", "", badRequestf("pitch location must be finite")
		}
	}
	typ, err := scoring.ParsePitchType(r.Type)
	if err != nil {
		return "", "", err
	}
	res, err := scoring.ParsePitchResult(r.Result)
	if err != nil {
		return "", "", err
	}
	return typ, res, nil
}

// OutcomeRequest selects the batting result of a ball in play.
type OutcomeRequest struct {
	MatchID string `json:"matchId"`
	Result  string `json:"battingResult"`
	Fielder int    `json:"fielder,omitempty"`
}

func (r OutcomeRequest) Parse() (scoring.BattingResult, scoring.Position, error) {
	if err := validateMatchID(r.MatchID); err != nil {
		return "", 0, err
	}
	result, err := scoring.ParseBattingResult(r.Result)
	if err != nil {
		return "", 0, err
	}
	fielder := scoring.Position(r.Fielder)
	if fielder != 0 && !fielder.Valid() {
		return "", 0, badRequestf("unknown fielder %d", r.Fielder)
	}
	return result, fielder, nil
}

// AnswerRequest answers a disambiguation step.
type AnswerRequest struct {
	MatchID string `json:"matchId"`
	Step    string `json:"step"`
	Value   string `json:"value"`
}

func (r AnswerRequest) Validate() error {
	if err := validateMatchID(r.MatchID); err != nil {
		return err
	}
	if r.Step == "" {
		return badRequestf("missing step")
	}
	return validateStringLen(r.Value, 20, "value")
}

// RunnerRequest assigns the destination of a runner or the batter.
type RunnerRequest struct {
	MatchID    string `json:"matchId"`
	RunnerID   string `json:"runnerId"`
	Target     string `json:"target"`
	Throwing   int    `json:"throwing,omitempty"`
	PuttingOut int    `json:"puttingOut,omitempty"`
}

// Parse validates the request. The credit is only returned for outs.
func (r RunnerRequest) Parse() (scoring.Target, *scoring.OutCredit, error) {
	if err := validateMatchID(r.MatchID); err != nil {
		return "", nil, err
	}
	if !isValidID(r.RunnerID) {
		return "", nil, badRequestf("invalid runner id %q", r.RunnerID)
	}
	t, err := scoring.ParseTarget(r.Target)
	if err != nil {
		return "", nil, err
	}
	if t != scoring.TargetOut {
		return t, nil, nil
	}
	return t, &scoring.OutCredit{
		Throwing:   scoring.Position(r.Throwing),
		PuttingOut: scoring.Position(r.PuttingOut),
	}, nil
}

// MatchRequest names a match.
type MatchRequest struct {
	MatchID string `json:"matchId"`
	// Restart keeps the terminal pitch and only clears the outcome.
	Restart bool `json:"restart,omitempty"`
}

func (r MatchRequest) Validate() error {
	return validateMatchID(r.MatchID)
}

// validateTeam checks a team before it is saved.
func validateTeam(t *Team) error {
	if !isValidID(t.ID) {
		return badRequestf("invalid team id %q", t.ID)
	}
	if err := validateStringLen(t.Name, maxNameLen, "name"); err != nil {
		return err
	}
	if err := validateStringLen(t.ShortName, 10, "short name"); err != nil {
		return err
	}
	if len(t.Roster) > 100 {
		return badRequestf("roster too large (max 100 players)")
	}
	seen := make(map[string]bool, len(t.Roster))
	for _, p := range t.Roster {
		if !isValidID(p.ID) || len(p.ID) > maxPlayerIDLen {
			return badRequestf("invalid player id %q", p.ID)
		}
		if seen[p.ID] {
			return badRequestf("player %s appears twice on the roster", p.ID)
		}
		seen[p.ID] = true
		if err := validateStringLen(p.Name, maxNameLen, "player name"); err != nil {
			return err
		}
		if err := validateStringLen(p.Number, 5, "player number"); err != nil {
			return err
		}
		if err := validateStringLen(p.Pos, 5, "player position"); err != nil {
			return err
		}
	}
	return nil
}
