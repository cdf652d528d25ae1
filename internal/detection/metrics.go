package detection

import (
	"sync"
	"time"
)

// Metrics tracks engine counters for the ops endpoint.
type Metrics struct {
	mu sync.Mutex

	batchesProcessed     int64
	samplesProcessed     int64
	transitions          int64
	dangerAlerts         int64
	watcherNotifications int64
	suppressed           int64
	alertsCreated        int64
	notifierFailures     int64
	lastBatchAt          time.Time
}

func (m *Metrics) recordBatch(samples int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batchesProcessed++
	m.samplesProcessed += int64(samples)
	m.lastBatchAt = time.Now()
}

func (m *Metrics) incTransitions() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transitions++
}

func (m *Metrics) incDangerAlerts() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dangerAlerts++
}

func (m *Metrics) incWatcherNotifications() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.watcherNotifications++
}

func (m *Metrics) incSuppressed() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.suppressed++
}

func (m *Metrics) incAlertsCreated() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.alertsCreated++
}

func (m *Metrics) incNotifierFailures() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notifierFailures++
}

// MetricsSnapshot returns a copy of the current counters.
func (e *Engine) MetricsSnapshot() map[string]interface{} {
	e.metrics.mu.Lock()
	defer e.metrics.mu.Unlock()

	snapshot := map[string]interface{}{
		"batches_processed":     e.metrics.batchesProcessed,
		"samples_processed":     e.metrics.samplesProcessed,
		"transitions":           e.metrics.transitions,
		"danger_alerts":         e.metrics.dangerAlerts,
		"watcher_notifications": e.metrics.watcherNotifications,
		"suppressed":            e.metrics.suppressed,
		"alerts_created":        e.metrics.alertsCreated,
		"notifier_failures":     e.metrics.notifierFailures,
	}
	if !e.metrics.lastBatchAt.IsZero() {
		snapshot["last_batch_at"] = e.metrics.lastBatchAt.UTC().Format(time.RFC3339)
	}
	return snapshot
}
