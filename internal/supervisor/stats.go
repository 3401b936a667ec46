package supervisor

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/process"
)

// latencyWindow bounds the rolling window of health-probe response times.
const latencyWindow = 10

// Tracker accumulates runtime statistics for a single service. Each service
// owns its tracker; readers of one service never block writers of another.
type Tracker struct {
	mu        sync.RWMutex
	startTime time.Time
	latencies []time.Duration
	successes int64
	errors    int64
	pid       int32
}

func newTracker(pid int) *Tracker {
	return &Tracker{
		startTime: time.Now(),
		latencies: make([]time.Duration, 0, latencyWindow),
		pid:       int32(pid),
	}
}

// RecordSuccess appends a latency sample, keeping only the most recent
// window, and bumps the success counter.
func (t *Tracker) RecordSuccess(latency time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.latencies = append(t.latencies, latency)
	if len(t.latencies) > latencyWindow {
		t.latencies = t.latencies[len(t.latencies)-latencyWindow:]
	}
	t.successes++
}

// RecordError bumps the error counter.
func (t *Tracker) RecordError() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.errors++
}

// Snapshot is a point-in-time view of one service's statistics.
type Snapshot struct {
	Name       string
	State      HealthState
	Uptime     time.Duration
	AvgLatency time.Duration
	MinLatency time.Duration
	MaxLatency time.Duration
	Successes  int64
	Errors     int64
	MemoryMB   float64
	CPUPercent float64
}

// Snapshot computes the current view, sampling memory and CPU from the OS
// process. Resource sampling failures (process already gone) yield zeros.
func (t *Tracker) Snapshot(name string, state HealthState) Snapshot {
	t.mu.RLock()
	snap := Snapshot{
		Name:      name,
		State:     state,
		Uptime:    time.Since(t.startTime),
		Successes: t.successes,
		Errors:    t.errors,
	}

	if len(t.latencies) > 0 {
		var total time.Duration
		snap.MinLatency = t.latencies[0]
		snap.MaxLatency = t.latencies[0]
		for _, l := range t.latencies {
			total += l
			if l < snap.MinLatency {
				snap.MinLatency = l
			}
			if l > snap.MaxLatency {
				snap.MaxLatency = l
			}
		}
		snap.AvgLatency = total / time.Duration(len(t.latencies))
	}
	pid := t.pid
	t.mu.RUnlock()

	if proc, err := process.NewProcess(pid); err == nil {
		if memInfo, err := proc.MemoryInfo(); err == nil {
			snap.MemoryMB = float64(memInfo.RSS) / 1024 / 1024
		}
		if cpu, err := proc.CPUPercent(); err == nil {
			snap.CPUPercent = cpu
		}
	}

	return snap
}

// FormatReport renders the multi-service stats block logged on shutdown and
// by the monitoring loop.
func FormatReport(snapshots []Snapshot) string {
	var b strings.Builder
	b.WriteString("service statistics\n")
	for _, s := range snapshots {
		fmt.Fprintf(&b, "  %s: state=%s uptime=%s successes=%d errors=%d mem=%.1fMB cpu=%.1f%%\n",
			s.Name, s.State, s.Uptime.Round(time.Second), s.Successes, s.Errors, s.MemoryMB, s.CPUPercent)
		if s.Successes > 0 {
			fmt.Fprintf(&b, "    latency avg=%s min=%s max=%s\n",
				s.AvgLatency.Round(time.Millisecond),
				s.MinLatency.Round(time.Millisecond),
				s.MaxLatency.Round(time.Millisecond))
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
