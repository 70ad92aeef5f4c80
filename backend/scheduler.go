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
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"
)

const defaultFlushInterval = 30 * time.Second

// flusher is implemented by stores with a dirty in-memory cache.
type flusher interface {
	FlushAll() error
	DirtyCount() int
}

// startFlushScheduler periodically writes dirty match documents to disk.
// The caller must shut the scheduler down.
func startFlushScheduler(store flusher, interval time.Duration, debugf func(string, ...any)) (gocron.Scheduler, error) {
	if interval <= 0 {
		interval = defaultFlushInterval
	}
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("gocron.NewScheduler: %w", err)
	}
	_, err = sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			n := store.DirtyCount()
			if n == 0 {
				return
			}
			if err := store.FlushAll(); err != nil {
				log.Printf("[Scheduler] Flush failed: %v", err)
				return
			}
			debugf("[Scheduler] Flushed %d match(es)", n)
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		sched.Shutdown()
		return nil, fmt.Errorf("scheduling flush job: %w", err)
	}
	sched.Start()
	return sched, nil
}
