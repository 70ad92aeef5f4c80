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
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/c2FmZQ/storage"
)

func TestFlushScheduler(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "scheduler_test")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tmpDir)

	ms := NewMatchStore(tmpDir, storage.New(tmpDir, nil))
	if err := ms.SaveMatchInMemory(newTestMatch("m1"), false); err != nil {
		t.Fatalf("SaveMatchInMemory: %v", err)
	}

	sched, err := startFlushScheduler(ms, 20*time.Millisecond, noDebug)
	if err != nil {
		t.Fatalf("startFlushScheduler: %v", err)
	}
	defer sched.Shutdown()

	deadline := time.Now().Add(5 * time.Second)
	for ms.DirtyCount() > 0 {
		if time.Now().After(deadline) {
			t.Fatalf("Dirty match was never flushed")
		}
		time.Sleep(10 * time.Millisecond)
	}
	if _, err := os.Stat(filepath.Join(tmpDir, "matches", "m1.json")); err != nil {
		t.Errorf("Flushed match missing on disk: %v", err)
	}
}
