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
	"slices"
	"strings"

	"github.com/ttbt-io/playbyplay/backend/search"
)

// metadataFields returns the values a filter key is compared against.
var metadataFields = map[string]func(MatchMetadata) []string{
	"id":       func(m MatchMetadata) []string { return []string{m.ID} },
	"status":   func(m MatchMetadata) []string { return []string{m.Status} },
	"event":    func(m MatchMetadata) []string { return []string{m.Event} },
	"location": func(m MatchMetadata) []string { return []string{m.Location} },
	"date":     func(m MatchMetadata) []string { return []string{m.Date} },
	"away":     func(m MatchMetadata) []string { return []string{m.AwayTeamID} },
	"home":     func(m MatchMetadata) []string { return []string{m.HomeTeamID} },
	"team":     func(m MatchMetadata) []string { return []string{m.AwayTeamID, m.HomeTeamID} },
}

// matchFilter compiles a match list query. Every filter must match; every
// free-text term must appear in the id, event, location or a team id.
func matchFilter(query string) (func(MatchMetadata) bool, error) {
	q := search.Parse(query)
	for _, f := range q.Filters {
		if _, ok := metadataFields[f.Key]; !ok {
			return nil, badRequestf("unknown search key %q", f.Key)
		}
	}
	return func(m MatchMetadata) bool {
		for _, f := range q.Filters {
			if !slices.ContainsFunc(metadataFields[f.Key](m), f.Match) {
				return false
			}
		}
		text := strings.ToLower(strings.Join([]string{m.ID, m.Event, m.Location, m.AwayTeamID, m.HomeTeamID}, " "))
		for _, term := range q.Terms {
			if !strings.Contains(text, strings.ToLower(term)) {
				return false
			}
		}
		return true
	}, nil
}
