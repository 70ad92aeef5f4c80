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
	"strconv"
	"strings"

	"github.com/ttbt-io/playbyplay/backend/scoring"
)

var pitchMarks = map[scoring.PitchResult]string{
	scoring.ResultBall:     "B",
	scoring.ResultSwing:    "S",
	scoring.ResultLooking:  "C",
	scoring.ResultFoul:     "F",
	scoring.ResultInPlay:   "X",
	scoring.ResultDeadball: "D",
}

var resultText = map[scoring.BattingResult]string{
	scoring.Single:            "single",
	scoring.Double:            "double",
	scoring.Triple:            "triple",
	scoring.HomeRun:           "home run",
	scoring.RunningHomeRun:    "running home run",
	scoring.Walk:              "walk",
	scoring.HitByPitch:        "hit by pitch",
	scoring.StrikeoutSwinging: "strikeout swinging",
	scoring.StrikeoutLooking:  "strikeout looking",
	scoring.GroundOut:         "ground out",
	scoring.FlyOut:            "fly out",
	scoring.LineOut:           "line out",
	scoring.BuntOut:           "bunt out",
	scoring.SacrificeFly:      "sacrifice fly",
	scoring.FieldersChoice:    "fielder's choice",
	scoring.Error:             "error",
}

func halfName(h scoring.Half) string {
	if h == scoring.Bottom {
		return "Bottom"
	}
	return "Top"
}

// Summarize renders a play as the confirmation text shown to the scorer
// before and after commit. names maps player ids to display names.
func Summarize(rec scoring.PlayRecord, names func(string) string) string {
	if names == nil {
		names = func(id string) string { return id }
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s %d, %d out: %s vs %s\n", halfName(rec.Half), rec.Inning, rec.OutsBefore, names(rec.BatterID), names(rec.PitcherID))

	marks := make([]string, 0, len(rec.Pitches))
	for _, p := range rec.Pitches {
		marks = append(marks, pitchMarks[p.Result])
	}
	fmt.Fprintf(&sb, "Pitches: %d (%s)\n", len(rec.Pitches), strings.Join(marks, " "))

	result := resultText[rec.Result]
	if result == "" {
		result = string(rec.Result)
	}
	if rec.Bunt {
		result += ", bunt"
	}
	if rec.Fielder != 0 {
		result += " to " + strconv.Itoa(int(rec.Fielder))
	}
	if rec.Direction != "" {
		result += " (" + strings.ReplaceAll(string(rec.Direction), "_", " ") + ")"
	}
	if rec.BatType != "" {
		result += ", " + string(rec.BatType) + " ball"
	}
	fmt.Fprintf(&sb, "Result: %s\n", result)

	for _, od := range rec.OutDetails {
		credit := strconv.Itoa(int(od.PuttingOutPosition))
		if od.ThrowingPosition != 0 {
			credit = strconv.Itoa(int(od.ThrowingPosition)) + "-" + credit
		}
		fmt.Fprintf(&sb, "Out: %s from %s (%s)\n", names(od.RunnerID), baseName(od.FromBase), credit)
	}
	if len(rec.ScoredRunnerIDs) > 0 {
		scored := make([]string, 0, len(rec.ScoredRunnerIDs))
		for _, id := range rec.ScoredRunnerIDs {
			scored = append(scored, names(id))
		}
		fmt.Fprintf(&sb, "Scored: %s\n", strings.Join(scored, ", "))
	}

	var bases []string
	for _, b := range []scoring.Base{scoring.BaseFirst, scoring.BaseSecond, scoring.BaseThird} {
		if id := rec.RunnersAfter.Occupant(b); id != "" {
			bases = append(bases, b.String()+"B "+names(id))
		}
	}
	if len(bases) == 0 {
		bases = append(bases, "none")
	}
	fmt.Fprintf(&sb, "Runners: %s\n", strings.Join(bases, ", "))
	fmt.Fprintf(&sb, "Outs: %d -> %d\n", rec.OutsBefore, rec.OutsAfter)
	return sb.String()
}

func baseName(b scoring.Base) string {
	if b == scoring.BaseHome {
		return "home"
	}
	return b.String() + "B"
}
