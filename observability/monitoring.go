package observability

import (
	"context"
	"log/slog"
	"os"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shirou/gopsutil/process"
)

// Stats aggregates the runtime metrics served at /statusz.
type Stats struct {
	ActiveSessions  int64   `json:"active_sessions"`
	TotalJoins      uint64  `json:"total_joins"`
	MessagesRelayed uint64  `json:"messages_relayed"`
	StreamLive      bool    `json:"stream_live"`
	StreamPublisher string  `json:"stream_publisher,omitempty"`
	AllocMemMb      uint64  `json:"alloc_mem_mb"`
	RssMb           uint64  `json:"rss_mb"`
	CPUPercent      float64 `json:"cpu_percent"`
	NumGC           uint32  `json:"num_gc"`
	NumGoroutine    int     `json:"num_goroutine"`
}

// Monitor collects chat and ingest telemetry. Counters are atomic so the
// hot path (one increment per relayed message) never takes a lock; the
// stream state is small enough to sit behind a RWMutex.
type Monitor struct {
	log *slog.Logger

	activeSessions  int64
	totalJoins      uint64
	messagesRelayed uint64

	mu              sync.RWMutex
	streamLive      bool
	streamPublisher string

	proc *process.Process
}

func NewMonitor(log *slog.Logger) *Monitor {
	// Process handle errors are not fatal: /statusz simply omits the
	// process metrics on the platforms where gopsutil cannot resolve them.
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		log.Warn("Process metrics unavailable", "error", err)
	}
	return &Monitor{log: log, proc: proc}
}

func (m *Monitor) SessionJoined() {
	atomic.AddInt64(&m.activeSessions, 1)
	atomic.AddUint64(&m.totalJoins, 1)
}

func (m *Monitor) SessionLeft() {
	atomic.AddInt64(&m.activeSessions, -1)
}

func (m *Monitor) MessageRelayed() {
	atomic.AddUint64(&m.messagesRelayed, 1)
}

func (m *Monitor) StreamStarted(publisher string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.streamLive = true
	m.streamPublisher = publisher
}

func (m *Monitor) StreamStopped() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.streamLive = false
	m.streamPublisher = ""
}

// StreamStatus reports whether a publisher is currently live.
func (m *Monitor) StreamStatus() (bool, string) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.streamLive, m.streamPublisher
}

// Snapshot assembles the current Stats, including Go runtime and process
// metrics.
func (m *Monitor) Snapshot() Stats {
	m.mu.RLock()
	live, publisher := m.streamLive, m.streamPublisher
	m.mu.RUnlock()

	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	stats := Stats{
		ActiveSessions:  atomic.LoadInt64(&m.activeSessions),
		TotalJoins:      atomic.LoadUint64(&m.totalJoins),
		MessagesRelayed: atomic.LoadUint64(&m.messagesRelayed),
		StreamLive:      live,
		StreamPublisher: publisher,
		AllocMemMb:      ms.Alloc / 1024 / 1024,
		NumGC:           ms.NumGC,
		NumGoroutine:    runtime.NumGoroutine(),
	}

	if m.proc != nil {
		if mem, err := m.proc.MemoryInfo(); err == nil {
			stats.RssMb = mem.RSS / 1024 / 1024
		}
		if cpu, err := m.proc.CPUPercent(); err == nil {
			stats.CPUPercent = cpu
		}
	}
	return stats
}

// Run periodically logs a telemetry line. Runs under the supervisor like
// the other process-level workers.
func (m *Monitor) Run(ctx context.Context) error {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.log.Debug("Monitoring stopped")
			return nil
		case <-ticker.C:
			stats := m.Snapshot()
			m.log.Info("Telemetry",
				"active_sessions", stats.ActiveSessions,
				"messages_relayed", stats.MessagesRelayed,
				"stream_live", stats.StreamLive,
				"alloc_mem_mb", stats.AllocMemMb,
			)
		}
	}
}
