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

// Package search parses the query language of the match list, e.g.
//
//	status:playing team:owls date:>=2026-04-01 "spring cup"
package search

import (
	"strings"
	"unicode"
)

// Operator defines the type of comparison for a filter.
type Operator string

const (
	OpEqual          Operator = "="
	OpGreater        Operator = ">"
	OpGreaterOrEqual Operator = ">="
	OpLess           Operator = "<"
	OpLessOrEqual    Operator = "<="
	OpRange          Operator = ".." // date:2026-04..2026-05
)

// Filter is one key:value criterion.
type Filter struct {
	Key      string   // e.g. "status", "team", "date"
	Value    string   // e.g. "playing", "owls", "2026-04-01"
	MaxValue string   // Only set for OpRange
	Operator Operator // e.g. "=", ">="
}

// Query is a parsed search query.
type Query struct {
	Filters []Filter
	Terms   []string
}

// Empty reports whether the query matches everything.
func (q Query) Empty() bool {
	return len(q.Filters) == 0 && len(q.Terms) == 0
}

// Match compares v against the filter. Equality is case-insensitive; the
// ordering operators compare strings, which sorts ISO dates correctly. A
// range includes both ends, and a prefix of the upper bound matches, so
// date:2026-04..2026-05 includes every day of May.
func (f Filter) Match(v string) bool {
	switch f.Operator {
	case OpEqual:
		return strings.EqualFold(v, f.Value)
	case OpGreater:
		return v > f.Value
	case OpGreaterOrEqual:
		return v >= f.Value
	case OpLess:
		return v < f.Value
	case OpLessOrEqual:
		return v <= f.Value || strings.HasPrefix(v, f.Value)
	case OpRange:
		return v >= f.Value && (v <= f.MaxValue || strings.HasPrefix(v, f.MaxValue))
	}
	return false
}

var prefixOps = []Operator{OpGreaterOrEqual, OpLessOrEqual, OpGreater, OpLess}

// Parse parses a query string. Tokens are separated by spaces unless quoted.
// A token with a single unquoted colon is a filter; everything else is a
// free-text term.
func Parse(input string) Query {
	var q Query
	for _, token := range tokenize(input) {
		key, val, ok := strings.Cut(token, ":")
		key = strings.ToLower(strings.TrimSpace(key))
		val = strings.TrimSpace(val)
		if !ok || key == "" || val == "" || (strings.Contains(val, ":") && !isQuoted(val)) {
			q.Terms = append(q.Terms, removeQuotes(token))
			continue
		}
		q.Filters = append(q.Filters, parseFilter(key, val))
	}
	return q
}

func parseFilter(key, val string) Filter {
	if lo, hi, ok := strings.Cut(val, ".."); ok && !isQuoted(val) {
		return Filter{Key: key, Value: lo, MaxValue: hi, Operator: OpRange}
	}
	for _, op := range prefixOps {
		if rest, ok := strings.CutPrefix(val, string(op)); ok {
			return Filter{Key: key, Value: removeQuotes(rest), Operator: op}
		}
	}
	return Filter{Key: key, Value: removeQuotes(val), Operator: OpEqual}
}

// tokenize splits the string by spaces, respecting quotes.
func tokenize(input string) []string {
	var tokens []string
	var cur strings.Builder
	var quote rune

	for _, r := range input {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			}
			cur.WriteRune(r)
		case unicode.IsSpace(r):
			if cur.Len() > 0 {
				tokens = append(tokens, cur.String())
				cur.Reset()
			}
		case r == '"' || r == '\'':
			quote = r
			cur.WriteRune(r)
		default:
			cur.WriteRune(r)
		}
	}
	if cur.Len() > 0 {
		tokens = append(tokens, cur.String())
	}
	return tokens
}

func isQuoted(s string) bool {
	return strings.HasPrefix(s, "\"") || strings.HasPrefix(s, "'")
}

func removeQuotes(s string) string {
	if len(s) >= 2 {
		first, last := s[0], s[len(s)-1]
		if (first == '"' && last == '"') || (first == '\'' && last == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}
