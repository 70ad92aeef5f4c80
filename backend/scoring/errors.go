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
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput marks a rejected answer or selection. The caller should
	// re-prompt; nothing has changed.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvariant marks a draft that cannot be committed. The draft must be
	// discarded and outcome resolution restarted from the terminal pitch.
	ErrInvariant = errors.New("invariant violation")
)

// RuleError names the rule a rejected operation violated.
type RuleError struct {
	Kind error
	Rule string
}

func (e *RuleError) Error() string {
	return e.Rule
}

func (e *RuleError) Unwrap() error {
	return e.Kind
}

func invalidf(format string, args ...any) error {
	return &RuleError{Kind: ErrInvalidInput, Rule: fmt.Sprintf(format, args...)}
}

func invariantf(format string, args ...any) error {
	return &RuleError{Kind: ErrInvariant, Rule: fmt.Sprintf(format, args...)}
}
