package observability

import (
	"context"
	"log/slog"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/shirou/gopsutil/process"
)

// Stats is one sample of the server's own health, exposed on the status
// surface next to the connectivity counters.
type Stats struct {
	RSSBytes   uint64    `json:"rss_bytes"`
	CPUPercent float64   `json:"cpu_percent"`
	AllocMemMb uint64    `json:"alloc_mem_mb"`
	NumGC      uint32    `json:"num_gc"`
	SampledAt  time.Time `json:"sampled_at"`
}

// Monitor periodically samples process metrics (RSS, CPU, Go heap).
// It runs as a supervised worker and keeps only the latest sample.
type Monitor struct {
	mu       sync.RWMutex
	log      *slog.Logger
	proc     *process.Process
	interval time.Duration
	latest   Stats
}

func NewMonitor(log *slog.Logger, interval time.Duration) (*Monitor, error) {
	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return nil, err
	}
	return &Monitor{log: log, proc: p, interval: interval}, nil
}

// Run samples until the context is canceled. Implements contract.Worker.
func (m *Monitor) Run(ctx context.Context) error {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.sample()
	for {
		select {
		case <-ctx.Done():
			m.log.Debug("Stopping monitor")
			return nil
		case <-ticker.C:
			m.sample()
		}
	}
}

// Latest returns the most recent sample.
func (m *Monitor) Latest() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.latest
}

func (m *Monitor) sample() {
	stats := Stats{SampledAt: time.Now().UTC()}

	if memInfo, err := m.proc.MemoryInfo(); err == nil {
		stats.RSSBytes = memInfo.RSS
	} else {
		m.log.Warn("Failed to collect memory info", "error", err)
	}
	if cpu, err := m.proc.CPUPercent(); err == nil {
		stats.CPUPercent = cpu
	} else {
		m.log.Warn("Failed to collect CPU usage", "error", err)
	}

	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	stats.AllocMemMb = ms.Alloc / 1024 / 1024
	stats.NumGC = ms.NumGC

	m.mu.Lock()
	m.latest = stats
	m.mu.Unlock()
}
