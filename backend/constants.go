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
)

// Schema Versions
const (
	SchemaVersionV1      = 1
	CurrentSchemaVersion = SchemaVersionV1
)

// Match statuses
const (
	StatusScheduled = "SCHEDULED"
	StatusPlaying   = "PLAYING"
	StatusFinished  = "FINISHED"
)

// Team statuses
const (
	TeamStatusActive  = ""
	TeamStatusDeleted = "deleted"
)

const (
	// retryAfterSave is the Retry-After value returned when a commit could
	// not be persisted.
	retryAfterSave = "5"

	maxNameLen     = 100
	maxLineupLen   = 30
	maxPlayerIDLen = 64
)

var (
	// ErrNotPlaying is returned for pitches and commits on a match that is
	// not in progress.
	ErrNotPlaying = errors.New("match is not in progress")

	// ErrNoSession is returned when an outcome operation is attempted before
	// the plate appearance has ended.
	ErrNoSession = errors.New("no plate appearance outcome in progress")

	// ErrWrongStage is returned for operations that do not apply to the
	// current stage of the plate appearance.
	ErrWrongStage = errors.New("operation not allowed at this stage")

	// ErrRetryable wraps persistence failures. Nothing was changed and the
	// request may be retried.
	ErrRetryable = errors.New("temporarily unavailable")

	// ErrBadTransition is returned for an invalid match status change.
	ErrBadTransition = errors.New("invalid status transition")

	// ErrExists is returned when registering a match id that is taken.
	ErrExists = errors.New("already exists")
)
