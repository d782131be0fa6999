package processor

import (
	"sync/atomic"
	"time"
)

// ServiceMetrics are in-process counters the processor logs periodically.
type ServiceMetrics struct {
	processed  atomic.Int64
	failed     atomic.Int64
	durationNs atomic.Int64
	startedAt  atomic.Int64
}

func NewServiceMetrics() *ServiceMetrics {
	m := &ServiceMetrics{}
	m.startedAt.Store(time.Now().UnixNano())
	return m
}

func (m *ServiceMetrics) RecordSuccess(duration time.Duration) {
	m.processed.Add(1)
	m.durationNs.Add(int64(duration))
}

func (m *ServiceMetrics) RecordFailure() {
	m.failed.Add(1)
}

type ServiceStats struct {
	Processed     int64
	Failed        int64
	RatePerSecond float64
	AvgDuration   time.Duration
	Uptime        time.Duration
}

func (m *ServiceMetrics) GetStats() ServiceStats {
	processed := m.processed.Load()
	uptime := time.Since(time.Unix(0, m.startedAt.Load()))

	stats := ServiceStats{
		Processed: processed,
		Failed:    m.failed.Load(),
		Uptime:    uptime,
	}
	if s := uptime.Seconds(); s > 0 {
		stats.RatePerSecond = float64(processed) / s
	}
	if processed > 0 {
		stats.AvgDuration = time.Duration(m.durationNs.Load() / processed)
	}
	return stats
}

func (m *ServiceMetrics) Reset() {
	m.processed.Store(0)
	m.failed.Store(0)
	m.durationNs.Store(0)
	m.startedAt.Store(time.Now().UnixNano())
}
