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
	"sync"
	"time"
)

const LatencyBuckets = 101
const LatencyBucketSize = 5 * time.Millisecond

// Histogram is a fixed-bucket latency histogram. The last bucket collects
// everything above the range.
type Histogram struct {
	Buckets [LatencyBuckets]uint64 `json:"b"`
	Count   uint64                 `json:"c"`
	Sum     float64                `json:"s"` // Sum of durations in milliseconds
}

func (h *Histogram) Add(d time.Duration) {
	idx := int(d / LatencyBucketSize)
	if idx >= LatencyBuckets {
		idx = LatencyBuckets - 1
	}
	if idx < 0 {
		idx = 0
	}
	h.Buckets[idx]++
	h.Count++
	h.Sum += float64(d) / float64(time.Millisecond)
}

func (h *Histogram) Merge(other *Histogram) {
	if other == nil {
		return
	}
	for i := 0; i < LatencyBuckets; i++ {
		h.Buckets[i] += other.Buckets[i]
	}
	h.Count += other.Count
	h.Sum += other.Sum
}

// Quantile returns the upper bound of the bucket holding quantile q.
func (h *Histogram) Quantile(q float64) time.Duration {
	if h.Count == 0 {
		return 0
	}
	target := uint64(q * float64(h.Count))
	if target == 0 {
		target = 1
	}
	var seen uint64
	for i, n := range h.Buckets {
		seen += n
		if seen >= target {
			return time.Duration(i+1) * LatencyBucketSize
		}
	}
	return LatencyBuckets * LatencyBucketSize
}

// Point represents a single data point in a time series.
type Point[T any] struct {
	Timestamp int64 `json:"t"`
	Value     T     `json:"v"`
}

// RingBuffer is a fixed-size circular buffer for storing time series data.
type RingBuffer[T any] struct {
	Resolution time.Duration `json:"resolution"`
	Data       []Point[T]    `json:"data"`
	Head       int           `json:"head"` // Points to the *next* write position
}

func NewRingBuffer[T any](resolution time.Duration, buckets int) *RingBuffer[T] {
	return &RingBuffer[T]{
		Resolution: resolution,
		Data:       make([]Point[T], buckets),
	}
}

// Update changes the point for timestamp's bucket, creating it if needed.
func (rb *RingBuffer[T]) Update(timestamp int64, f func(*T)) {
	resSec := int64(rb.Resolution.Seconds())
	alignedTs := (timestamp / resSec) * resSec

	prevIdx := (rb.Head - 1 + len(rb.Data)) % len(rb.Data)
	if rb.Data[prevIdx].Timestamp == alignedTs {
		f(&rb.Data[prevIdx].Value)
		return
	}

	var zero T
	rb.Data[rb.Head] = Point[T]{Timestamp: alignedTs, Value: zero}
	f(&rb.Data[rb.Head].Value)
	rb.Head = (rb.Head + 1) % len(rb.Data)
}

// GetPoints returns the data points sorted by time.
func (rb *RingBuffer[T]) GetPoints() []Point[T] {
	points := make([]Point[T], 0, len(rb.Data))
	for i := 0; i < len(rb.Data); i++ {
		idx := (rb.Head + i) % len(rb.Data)
		if rb.Data[idx].Timestamp > 0 {
			points = append(points, rb.Data[idx])
		}
	}
	return points
}

// CommitMetrics records commit outcomes and latency.
type CommitMetrics struct {
	mu         sync.Mutex
	latency    Histogram
	commits    uint64
	rejections map[string]uint64
	perMinute  *RingBuffer[uint64]
	now        func() time.Time
}

// NewCommitMetrics keeps two hours of per-minute commit counts.
func NewCommitMetrics() *CommitMetrics {
	return &CommitMetrics{
		rejections: make(map[string]uint64),
		perMinute:  NewRingBuffer[uint64](time.Minute, 120),
		now:        time.Now,
	}
}

// ObserveCommit records a successful commit.
func (m *CommitMetrics) ObserveCommit(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.latency.Add(d)
	m.commits++
	m.perMinute.Update(m.now().Unix(), func(v *uint64) { *v++ })
}

// ObserveRejection records a refused commit by reason.
func (m *CommitMetrics) ObserveRejection(reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rejections[reason]++
}

// MetricsSnapshot is the JSON view of CommitMetrics.
type MetricsSnapshot struct {
	Commits    uint64            `json:"commits"`
	Rejections map[string]uint64 `json:"rejections"`
	Latency    Histogram         `json:"latency"`
	P50MS      int64             `json:"p50Ms"`
	P99MS      int64             `json:"p99Ms"`
	PerMinute  []Point[uint64]   `json:"perMinute"`
}

// Snapshot returns a copy of the current metrics.
func (m *CommitMetrics) Snapshot() MetricsSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	rej := make(map[string]uint64, len(m.rejections))
	for k, v := range m.rejections {
		rej[k] = v
	}
	return MetricsSnapshot{
		Commits:    m.commits,
		Rejections: rej,
		Latency:    m.latency,
		P50MS:      m.latency.Quantile(0.5).Milliseconds(),
		P99MS:      m.latency.Quantile(0.99).Milliseconds(),
		PerMinute:  m.perMinute.GetPoints(),
	}
}
