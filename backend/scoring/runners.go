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
	"cmp"
	"slices"
)

// RunnerMap maps an occupied base to the runner standing on it. Empty bases
// are absent.
type RunnerMap map[Base]string

// Occupant returns the runner on base b, or "" if it is empty.
func (m RunnerMap) Occupant(b Base) string {
	return m[b]
}

// Len returns the number of occupied bases.
func (m RunnerMap) Len() int {
	n := 0
	for _, id := range m {
		if id != "" {
			n++
		}
	}
	return n
}

// Clone returns a copy without empty entries. It never returns nil.
func (m RunnerMap) Clone() RunnerMap {
	out := make(RunnerMap, len(m))
	for b, id := range m {
		if id != "" {
			out[b] = id
		}
	}
	return out
}

// Equal reports whether both maps have the same occupancy.
func (m RunnerMap) Equal(o RunnerMap) bool {
	for _, b := range []Base{BaseFirst, BaseSecond, BaseThird} {
		if m.Occupant(b) != o.Occupant(b) {
			return false
		}
	}
	return m.Len() == o.Len()
}

// Validate checks that only bases 1 to 3 are occupied and that no runner is
// on two bases.
func (m RunnerMap) Validate() error {
	seen := make(map[string]bool)
	for b, id := range m {
		if id == "" {
			continue
		}
		if b < BaseFirst || b > BaseThird {
			return invariantf("runner %s stored on %s, only bases 1 to 3 can be occupied", id, b)
		}
		if seen[id] {
			return invariantf("runner %s occupies more than one base", id)
		}
		seen[id] = true
	}
	return nil
}

// OutDetail records one out made on a play. FromBase is BaseHome for the
// batter.
type OutDetail struct {
	RunnerID           string   `json:"runnerId"`
	FromBase           Base     `json:"fromBase"`
	ThrowingPosition   Position `json:"throwingPosition,omitempty"`
	PuttingOutPosition Position `json:"puttingOutPosition"`
}

// OutCredit names the fielders credited with an out.
type OutCredit struct {
	Throwing   Position `json:"throwing,omitempty"`
	PuttingOut Position `json:"puttingOut"`
}

func (c OutCredit) validate() error {
	if !c.PuttingOut.Valid() {
		return invalidf("an out requires a valid putout fielder")
	}
	if c.Throwing != 0 && !c.Throwing.Valid() {
		return invalidf("unknown throwing fielder %d", c.Throwing)
	}
	return nil
}

// Runner is a participant of the play: a baserunner or the batter (From is
// BaseHome).
type Runner struct {
	ID   string `json:"id"`
	From Base   `json:"from"`
}

// Assignment is the destination chosen for one runner.
type Assignment struct {
	Runner
	Target    Target     `json:"target,omitempty"`
	Suggested Target     `json:"suggested"`
	Auto      bool       `json:"auto,omitempty"`
	Held      bool       `json:"held,omitempty"`
	Out       *OutDetail `json:"out,omitempty"`
}

func (a Assignment) assigned() bool {
	return a.Target != ""
}

// Advancement tracks runner destinations for one play. Assignments are kept
// in resolution order: first base, second, third, then the batter.
type Advancement struct {
	OutsBefore  int          `json:"outsBefore"`
	Assignments []Assignment `json:"assignments"`
}

// Resolution is the fully resolved outcome of an advancement.
type Resolution struct {
	RunnersAfter    RunnerMap   `json:"runnersAfter"`
	ScoredRunnerIDs []string    `json:"scoredRunnerIds"`
	OutDetails      []OutDetail `json:"outDetails"`
	OutsAfter       int         `json:"outsAfter"`
}

// newAdvancement lists the runners on base and the batter, with every
// destination unresolved and runners suggested to hold.
func newAdvancement(batterID string, before RunnerMap, outsBefore int, batterSuggestion Target) Advancement {
	adv := Advancement{OutsBefore: outsBefore}
	for _, b := range []Base{BaseFirst, BaseSecond, BaseThird} {
		if id := before.Occupant(b); id != "" {
			adv.Assignments = append(adv.Assignments, Assignment{
				Runner:    Runner{ID: id, From: b},
				Suggested: TargetFor(b),
			})
		}
	}
	adv.Assignments = append(adv.Assignments, Assignment{
		Runner:    Runner{ID: batterID, From: BaseHome},
		Suggested: batterSuggestion,
	})
	return adv
}

func (a Advancement) clone() Advancement {
	out := Advancement{OutsBefore: a.OutsBefore, Assignments: slices.Clone(a.Assignments)}
	for i, as := range out.Assignments {
		if as.Out != nil {
			od := *as.Out
			out.Assignments[i].Out = &od
		}
	}
	return out
}

func (a Advancement) index(runnerID string) int {
	return slices.IndexFunc(a.Assignments, func(as Assignment) bool { return as.ID == runnerID })
}

// Runners returns every participant in resolution order.
func (a Advancement) Runners() []Runner {
	out := make([]Runner, len(a.Assignments))
	for i, as := range a.Assignments {
		out[i] = as.Runner
	}
	return out
}

// Pending returns the runners still waiting for a destination, in
// resolution order.
func (a Advancement) Pending() []Runner {
	var out []Runner
	for _, as := range a.Assignments {
		if !as.assigned() {
			out = append(out, as.Runner)
		}
	}
	return out
}

// Next returns the next runner to prompt for.
func (a Advancement) Next() (Assignment, bool) {
	for _, as := range a.Assignments {
		if !as.assigned() {
			return as, true
		}
	}
	return Assignment{}, false
}

// OutsRecorded returns the number of outs assigned so far.
func (a Advancement) OutsRecorded() int {
	n := 0
	for _, as := range a.Assignments {
		if as.Target == TargetOut {
			n++
		}
	}
	return n
}

// Candidates lists the unassigned runners that could have reached target:
// those whose current base is behind it. For TargetOut every unassigned
// runner is a candidate.
func (a Advancement) Candidates(t Target) []Runner {
	var out []Runner
	for _, as := range a.Assignments {
		if as.assigned() {
			continue
		}
		if t == TargetOut || int(as.From) < t.rank() {
			out = append(out, as.Runner)
		}
	}
	return out
}

// Assign sets the destination of one runner. Manual assignments may be
// changed; automatic ones are fixed by the batting result.
func (a Advancement) Assign(runnerID string, t Target, credit *OutCredit) (Advancement, error) {
	i := a.index(runnerID)
	if i < 0 {
		return a, invalidf("runner %s is not part of this play", runnerID)
	}
	cur := a.Assignments[i]
	if cur.Auto {
		return a, invalidf("destination of runner %s is fixed by the batting result", runnerID)
	}
	if _, err := ParseTarget(string(t)); err != nil {
		return a, err
	}
	if t != TargetOut {
		if cur.From == BaseHome && t.rank() < int(BaseFirst) {
			return a, invalidf("batter must reach a base, score or be out")
		}
		if t.rank() < int(cur.From) {
			return a, invalidf("runner %s cannot move back from %s to %s", runnerID, cur.From, t)
		}
	}

	if b, ok := t.Base(); ok {
		for j, o := range a.Assignments {
			if j != i && o.Target == t && !o.Held {
				return a, invalidf("base %s cannot hold both %s and %s", b, o.ID, runnerID)
			}
		}
	}

	next := a.clone()
	as := &next.Assignments[i]
	as.Target = t
	as.Held = false
	as.Out = nil
	if t == TargetOut {
		if credit == nil {
			return a, invalidf("an out requires a putout fielder")
		}
		if err := credit.validate(); err != nil {
			return a, err
		}
		as.Out = &OutDetail{
			RunnerID:           runnerID,
			FromBase:           cur.From,
			ThrowingPosition:   credit.Throwing,
			PuttingOutPosition: credit.PuttingOut,
		}
	}
	next.holdIfSideRetired()
	if len(next.Pending()) == 0 {
		if _, err := next.Resolve(); err != nil {
			return a, invalidf("%v", err)
		}
	}
	return next, nil
}

// fix records an automatic destination.
func (a *Advancement) fix(i int, t Target, out *OutDetail) {
	as := &a.Assignments[i]
	as.Target = t
	as.Auto = true
	as.Out = out
}

// holdIfSideRetired puts every unresolved runner at its suggested
// destination once the third out has been recorded, and releases those
// runners again if the out count drops back below three. Held runners are
// placed from the batter forward; a runner whose base is already taken is
// forced up to the next free one.
func (a *Advancement) holdIfSideRetired() {
	retired := a.OutsBefore+a.OutsRecorded() >= MaxOuts
	taken := make(map[Target]bool)
	var held []int
	for i := range a.Assignments {
		as := &a.Assignments[i]
		if as.Held {
			as.Target = ""
			as.Held = false
		}
		switch {
		case !retired:
		case as.assigned():
			taken[as.Target] = true
		default:
			held = append(held, i)
		}
	}
	slices.SortFunc(held, func(x, y int) int {
		return cmp.Compare(a.Assignments[x].From, a.Assignments[y].From)
	})
	for _, i := range held {
		as := &a.Assignments[i]
		t := as.Suggested
		if t == TargetOut || t == "" {
			t = TargetFor(as.From)
			if as.From == BaseHome {
				t = TargetFirst
			}
		}
		for t != TargetHome && taken[t] {
			t = TargetFor(Base(t.rank() + 1))
		}
		as.Target = t
		as.Held = true
		taken[t] = true
	}
}

// Resolve checks that the advancement is complete and consistent and
// computes the resulting base/out state.
func (a Advancement) Resolve() (Resolution, error) {
	res := Resolution{
		RunnersAfter:    make(RunnerMap),
		ScoredRunnerIDs: []string{},
		OutDetails:      []OutDetail{},
	}
	for _, as := range a.Assignments {
		switch as.Target {
		case "":
			return Resolution{}, invalidf("runner %s has no destination", as.ID)
		case TargetHome:
			res.ScoredRunnerIDs = append(res.ScoredRunnerIDs, as.ID)
		case TargetOut:
			if as.Out == nil {
				return Resolution{}, invariantf("out on runner %s has no putout credit", as.ID)
			}
			res.OutDetails = append(res.OutDetails, *as.Out)
		default:
			b, _ := as.Target.Base()
			if other := res.RunnersAfter.Occupant(b); other != "" {
				return Resolution{}, invariantf("base %s cannot hold both %s and %s", b, other, as.ID)
			}
			res.RunnersAfter[b] = as.ID
		}
	}
	if got := len(res.ScoredRunnerIDs) + len(res.OutDetails) + res.RunnersAfter.Len(); got != len(a.Assignments) {
		return Resolution{}, invariantf("play accounts for %d runners, expected %d", got, len(a.Assignments))
	}
	res.OutsAfter = a.OutsBefore + len(res.OutDetails)
	if res.OutsAfter > MaxOuts {
		return Resolution{}, invariantf("out count cannot exceed %d", MaxOuts)
	}
	return res, nil
}
