// Package telemetry collects in-process query metrics: latency
// histogram, recent query events, zero-result queries, and repeat-query
// counts. Nothing leaves the process; the CLI surfaces a summary and
// the engine logs it at debug level.
package telemetry

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// LatencyBucket represents a latency histogram bucket.
type LatencyBucket string

const (
	BucketP1   LatencyBucket = "p1"   // <1ms
	BucketP5   LatencyBucket = "p5"   // 1-5ms
	BucketP16  LatencyBucket = "p16"  // 5-16ms (one 60Hz frame)
	BucketP100 LatencyBucket = "p100" // 16-100ms
	BucketSlow LatencyBucket = "slow" // >=100ms
)

// LatencyToBucket converts a duration to its histogram bucket.
// Buckets are frame-oriented: the engine targets sub-frame latency, so
// anything past one 60Hz frame (16ms) is worth noticing.
func LatencyToBucket(d time.Duration) LatencyBucket {
	switch {
	case d < time.Millisecond:
		return BucketP1
	case d < 5*time.Millisecond:
		return BucketP5
	case d < 16*time.Millisecond:
		return BucketP16
	case d < 100*time.Millisecond:
		return BucketP100
	default:
		return BucketSlow
	}
}

// QueryEvent represents a single completed query for recording.
type QueryEvent struct {
	Query       string
	StreamID    string
	ResultCount int
	CatalogSize int
	Latency     time.Duration
	Timestamp   time.Time
}

// IsZeroResult returns true if this query returned no results.
func (e QueryEvent) IsZeroResult() bool {
	return e.ResultCount == 0
}

// CircularBuffer is a fixed-capacity FIFO buffer.
type CircularBuffer[T any] struct {
	mu       sync.RWMutex
	items    []T
	head     int // next write position
	size     int
	capacity int
}

// NewCircularBuffer creates a buffer holding at most capacity items.
func NewCircularBuffer[T any](capacity int) *CircularBuffer[T] {
	if capacity <= 0 {
		capacity = 1
	}
	return &CircularBuffer[T]{
		items:    make([]T, capacity),
		capacity: capacity,
	}
}

// Add appends an item, evicting the oldest when full.
func (b *CircularBuffer[T]) Add(item T) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.items[b.head] = item
	b.head = (b.head + 1) % b.capacity
	if b.size < b.capacity {
		b.size++
	}
}

// Items returns the buffered items, oldest first.
func (b *CircularBuffer[T]) Items() []T {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]T, 0, b.size)
	start := (b.head - b.size + b.capacity) % b.capacity
	for i := 0; i < b.size; i++ {
		out = append(out, b.items[(start+i)%b.capacity])
	}
	return out
}

// Len returns the number of buffered items.
func (b *CircularBuffer[T]) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.size
}

// Stats is a point-in-time summary of collected metrics.
type Stats struct {
	TotalQueries int
	ZeroResults  int
	Cancelled    int
	Buckets      map[LatencyBucket]int
}

// QueryMetrics collects query telemetry. Safe for concurrent use.
// Queries are keyed by hash in the repeat-count cache so raw text does
// not accumulate without bound.
type QueryMetrics struct {
	mu      sync.Mutex
	total   int
	zero    int
	cancel  int
	buckets map[LatencyBucket]int
	recent  *CircularBuffer[QueryEvent]
	repeats *lru.Cache[string, int]
}

// NewQueryMetrics creates a metrics collector keeping the given number
// of recent events and distinct repeat-count entries.
func NewQueryMetrics(recentSize, repeatSize int) (*QueryMetrics, error) {
	if repeatSize <= 0 {
		repeatSize = 256
	}
	repeats, err := lru.New[string, int](repeatSize)
	if err != nil {
		return nil, err
	}
	return &QueryMetrics{
		buckets: make(map[LatencyBucket]int),
		recent:  NewCircularBuffer[QueryEvent](recentSize),
		repeats: repeats,
	}, nil
}

// Record registers a completed query.
func (m *QueryMetrics) Record(e QueryEvent) {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}

	m.mu.Lock()
	m.total++
	if e.IsZeroResult() {
		m.zero++
	}
	m.buckets[LatencyToBucket(e.Latency)]++

	// The cache is safe for concurrent use, but the increment is a
	// read-modify-write and must not interleave.
	key := hashQuery(e.Query)
	count, _ := m.repeats.Get(key)
	m.repeats.Add(key, count+1)
	m.mu.Unlock()

	m.recent.Add(e)
}

// RecordCancelled registers a superseded session. Cancellations are
// counted separately; they carry no latency signal.
func (m *QueryMetrics) RecordCancelled() {
	m.mu.Lock()
	m.cancel++
	m.mu.Unlock()
}

// RepeatCount returns how often the given query has been seen, within
// the repeat cache's horizon.
func (m *QueryMetrics) RepeatCount(query string) int {
	count, _ := m.repeats.Get(hashQuery(query))
	return count
}

// Recent returns the most recent query events, oldest first.
func (m *QueryMetrics) Recent() []QueryEvent {
	return m.recent.Items()
}

// Snapshot returns a copy of the aggregate counters.
func (m *QueryMetrics) Snapshot() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	buckets := make(map[LatencyBucket]int, len(m.buckets))
	for k, v := range m.buckets {
		buckets[k] = v
	}
	return Stats{
		TotalQueries: m.total,
		ZeroResults:  m.zero,
		Cancelled:    m.cancel,
		Buckets:      buckets,
	}
}

func hashQuery(q string) string {
	sum := sha256.Sum256([]byte(q))
	return hex.EncodeToString(sum[:8])
}
