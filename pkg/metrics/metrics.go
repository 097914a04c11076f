package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

// MetricsCollector collects real-time performance counters for a buffer
// pool and the hash index(es) layered on top of it.
type MetricsCollector struct {
	// Page fetch metrics: FetchPage calls split into hits (already
	// resident) and misses (faulted in from disk).
	pageFetches     uint64
	pageFetchHits   uint64
	pageFetchMisses uint64
	totalFetchTime  uint64 // nanoseconds

	// Eviction/flush metrics.
	evictions      uint64
	dirtyEvictions uint64
	flushes        uint64

	// Hash table operation metrics.
	hashGets    uint64
	hashInserts uint64
	hashRemoves uint64
	hashResizes uint64
	totalOpTime uint64 // nanoseconds, across get/insert/remove

	mu           sync.RWMutex
	fetchTimings *TimingHistogram
	opTimings    *TimingHistogram

	startTime time.Time
}

// TimingHistogram stores timing data in buckets for histogram generation.
type TimingHistogram struct {
	bucket0_1ms      uint64 // 0-1ms
	bucket1_10ms     uint64 // 1-10ms
	bucket10_100ms   uint64 // 10-100ms
	bucket100_1000ms uint64 // 100-1000ms
	bucket1000ms     uint64 // >1s

	mu               sync.Mutex
	recentTimings    []time.Duration // last maxRecentTimings observations
	maxRecentTimings int
}

// NewMetricsCollector creates a new metrics collector.
func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{
		fetchTimings: NewTimingHistogram(1000),
		opTimings:    NewTimingHistogram(1000),
		startTime:    time.Now(),
	}
}

// NewTimingHistogram creates a new timing histogram.
func NewTimingHistogram(maxRecent int) *TimingHistogram {
	return &TimingHistogram{
		recentTimings:    make([]time.Duration, 0, maxRecent),
		maxRecentTimings: maxRecent,
	}
}

// RecordFetch records one FetchPage call.
func (mc *MetricsCollector) RecordFetch(duration time.Duration, hit bool) {
	atomic.AddUint64(&mc.pageFetches, 1)
	if hit {
		atomic.AddUint64(&mc.pageFetchHits, 1)
	} else {
		atomic.AddUint64(&mc.pageFetchMisses, 1)
	}
	atomic.AddUint64(&mc.totalFetchTime, uint64(duration.Nanoseconds()))
	mc.fetchTimings.Record(duration)
}

// RecordEviction records the buffer pool victimizing a frame.
func (mc *MetricsCollector) RecordEviction(wasDirty bool) {
	atomic.AddUint64(&mc.evictions, 1)
	if wasDirty {
		atomic.AddUint64(&mc.dirtyEvictions, 1)
	}
}

// RecordFlush records one page written back to disk.
func (mc *MetricsCollector) RecordFlush() {
	atomic.AddUint64(&mc.flushes, 1)
}

// RecordHashGet records a LinearProbeHashTable.GetValue call.
func (mc *MetricsCollector) RecordHashGet(duration time.Duration) {
	atomic.AddUint64(&mc.hashGets, 1)
	atomic.AddUint64(&mc.totalOpTime, uint64(duration.Nanoseconds()))
	mc.opTimings.Record(duration)
}

// RecordHashInsert records a LinearProbeHashTable.Insert call.
func (mc *MetricsCollector) RecordHashInsert(duration time.Duration) {
	atomic.AddUint64(&mc.hashInserts, 1)
	atomic.AddUint64(&mc.totalOpTime, uint64(duration.Nanoseconds()))
	mc.opTimings.Record(duration)
}

// RecordHashRemove records a LinearProbeHashTable.Remove call.
func (mc *MetricsCollector) RecordHashRemove(duration time.Duration) {
	atomic.AddUint64(&mc.hashRemoves, 1)
	atomic.AddUint64(&mc.totalOpTime, uint64(duration.Nanoseconds()))
	mc.opTimings.Record(duration)
}

// RecordResize records a LinearProbeHashTable.Resize call.
func (mc *MetricsCollector) RecordResize() {
	atomic.AddUint64(&mc.hashResizes, 1)
}

// Record adds a timing to the histogram.
func (th *TimingHistogram) Record(duration time.Duration) {
	ms := duration.Milliseconds()
	switch {
	case ms < 1:
		atomic.AddUint64(&th.bucket0_1ms, 1)
	case ms < 10:
		atomic.AddUint64(&th.bucket1_10ms, 1)
	case ms < 100:
		atomic.AddUint64(&th.bucket10_100ms, 1)
	case ms < 1000:
		atomic.AddUint64(&th.bucket100_1000ms, 1)
	default:
		atomic.AddUint64(&th.bucket1000ms, 1)
	}

	th.mu.Lock()
	defer th.mu.Unlock()
	if len(th.recentTimings) >= th.maxRecentTimings {
		th.recentTimings = th.recentTimings[1:]
	}
	th.recentTimings = append(th.recentTimings, duration)
}

// GetBuckets returns the histogram bucket counts.
func (th *TimingHistogram) GetBuckets() map[string]uint64 {
	return map[string]uint64{
		"0-1ms":      atomic.LoadUint64(&th.bucket0_1ms),
		"1-10ms":     atomic.LoadUint64(&th.bucket1_10ms),
		"10-100ms":   atomic.LoadUint64(&th.bucket10_100ms),
		"100-1000ms": atomic.LoadUint64(&th.bucket100_1000ms),
		">1000ms":    atomic.LoadUint64(&th.bucket1000ms),
	}
}

// GetPercentiles calculates P50, P95, P99 from recent timings.
func (th *TimingHistogram) GetPercentiles() map[string]time.Duration {
	th.mu.Lock()
	defer th.mu.Unlock()

	if len(th.recentTimings) == 0 {
		return map[string]time.Duration{"p50": 0, "p95": 0, "p99": 0}
	}

	sorted := make([]time.Duration, len(th.recentTimings))
	copy(sorted, th.recentTimings)
	for i := 1; i < len(sorted); i++ {
		key := sorted[i]
		j := i - 1
		for j >= 0 && sorted[j] > key {
			sorted[j+1] = sorted[j]
			j--
		}
		sorted[j+1] = key
	}

	return map[string]time.Duration{
		"p50": sorted[len(sorted)*50/100],
		"p95": sorted[len(sorted)*95/100],
		"p99": sorted[len(sorted)*99/100],
	}
}

// GetMetrics returns a snapshot of all metrics, suitable for JSON encoding.
func (mc *MetricsCollector) GetMetrics() map[string]interface{} {
	fetches := atomic.LoadUint64(&mc.pageFetches)
	hits := atomic.LoadUint64(&mc.pageFetchHits)
	misses := atomic.LoadUint64(&mc.pageFetchMisses)
	totalFetchTime := atomic.LoadUint64(&mc.totalFetchTime)

	evictions := atomic.LoadUint64(&mc.evictions)
	dirtyEvictions := atomic.LoadUint64(&mc.dirtyEvictions)
	flushes := atomic.LoadUint64(&mc.flushes)

	gets := atomic.LoadUint64(&mc.hashGets)
	inserts := atomic.LoadUint64(&mc.hashInserts)
	removes := atomic.LoadUint64(&mc.hashRemoves)
	resizes := atomic.LoadUint64(&mc.hashResizes)
	totalOpTime := atomic.LoadUint64(&mc.totalOpTime)

	var avgFetchTime, avgOpTime float64
	if fetches > 0 {
		avgFetchTime = float64(totalFetchTime) / float64(fetches) / 1e6
	}
	totalOps := gets + inserts + removes
	if totalOps > 0 {
		avgOpTime = float64(totalOpTime) / float64(totalOps) / 1e6
	}

	var hitRate float64
	if fetches > 0 {
		hitRate = float64(hits) / float64(fetches) * 100
	}

	return map[string]interface{}{
		"uptime_seconds": time.Since(mc.startTime).Seconds(),

		"pages": map[string]interface{}{
			"fetches":            fetches,
			"hits":               hits,
			"misses":             misses,
			"hit_rate":           hitRate,
			"avg_fetch_ms":       avgFetchTime,
			"timing_histogram":   mc.fetchTimings.GetBuckets(),
			"timing_percentiles": mc.fetchTimings.GetPercentiles(),
		},

		"evictions": map[string]interface{}{
			"total": evictions,
			"dirty": dirtyEvictions,
		},

		"flushes": flushes,

		"hash_table": map[string]interface{}{
			"gets":               gets,
			"inserts":            inserts,
			"removes":            removes,
			"resizes":            resizes,
			"avg_op_ms":          avgOpTime,
			"timing_histogram":   mc.opTimings.GetBuckets(),
			"timing_percentiles": mc.opTimings.GetPercentiles(),
		},
	}
}

// Reset zeroes every counter and restarts the uptime clock.
func (mc *MetricsCollector) Reset() {
	atomic.StoreUint64(&mc.pageFetches, 0)
	atomic.StoreUint64(&mc.pageFetchHits, 0)
	atomic.StoreUint64(&mc.pageFetchMisses, 0)
	atomic.StoreUint64(&mc.totalFetchTime, 0)

	atomic.StoreUint64(&mc.evictions, 0)
	atomic.StoreUint64(&mc.dirtyEvictions, 0)
	atomic.StoreUint64(&mc.flushes, 0)

	atomic.StoreUint64(&mc.hashGets, 0)
	atomic.StoreUint64(&mc.hashInserts, 0)
	atomic.StoreUint64(&mc.hashRemoves, 0)
	atomic.StoreUint64(&mc.hashResizes, 0)
	atomic.StoreUint64(&mc.totalOpTime, 0)

	mc.mu.Lock()
	mc.fetchTimings = NewTimingHistogram(1000)
	mc.opTimings = NewTimingHistogram(1000)
	mc.mu.Unlock()

	mc.startTime = time.Now()
}
