package observability

import (
	"strconv"
	"sync"
	"time"
)

// Metrics provides basic in-memory counters for the resolution pipeline
// and the HTTP surface.
type Metrics struct {
	mu            sync.Mutex
	requestCount  map[string]int64
	errorCount    map[string]int64
	cacheHits     int64
	cacheMisses   int64
	providerCalls int64
	providerFails int64
	escalations   int64
	autoResolved  int64
}

// NewMetrics initializes metrics storage.
func NewMetrics() *Metrics {
	return &Metrics{
		requestCount: make(map[string]int64),
		errorCount:   make(map[string]int64),
	}
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	key := pathKey(path, method, status)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestCount[key]++
}

// RecordError increments error counters.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	key := path + "|" + method + "|" + code
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorCount[key]++
}

// RecordCacheLookup tracks response-cache effectiveness.
func (m *Metrics) RecordCacheLookup(hit bool) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if hit {
		m.cacheHits++
	} else {
		m.cacheMisses++
	}
}

// RecordProviderCall tracks completion-provider round trips.
func (m *Metrics) RecordProviderCall(failed bool) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.providerCalls++
	if failed {
		m.providerFails++
	}
}

// RecordPipelineOutcome tracks per-turn resolution outcomes.
func (m *Metrics) RecordPipelineOutcome(resolved bool) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if resolved {
		m.autoResolved++
	} else {
		m.escalations++
	}
}

// Snapshot returns current pipeline counters.
func (m *Metrics) Snapshot() map[string]int64 {
	if m == nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return map[string]int64{
		"cache_hits":     m.cacheHits,
		"cache_misses":   m.cacheMisses,
		"provider_calls": m.providerCalls,
		"provider_fails": m.providerFails,
		"escalations":    m.escalations,
		"auto_resolved":  m.autoResolved,
	}
}

func pathKey(path, method string, status int) string {
	return path + "|" + method + "|" + strconv.Itoa(status)
}
