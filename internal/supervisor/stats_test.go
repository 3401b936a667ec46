package supervisor

import (
	"os"
	"strings"
	"testing"
	"time"
)

func TestTracker_Window(t *testing.T) {
	tracker := newTracker(os.Getpid())

	// More samples than the window holds; only the most recent 10 count.
	for i := 1; i <= 15; i++ {
		tracker.RecordSuccess(time.Duration(i) * time.Millisecond)
	}
	tracker.RecordError()

	snap := tracker.Snapshot("api", StateHealthy)

	if snap.Successes != 15 {
		t.Errorf("expected 15 successes, got %d", snap.Successes)
	}
	if snap.Errors != 1 {
		t.Errorf("expected 1 error, got %d", snap.Errors)
	}
	if snap.MinLatency != 6*time.Millisecond {
		t.Errorf("expected window min 6ms, got %s", snap.MinLatency)
	}
	if snap.MaxLatency != 15*time.Millisecond {
		t.Errorf("expected window max 15ms, got %s", snap.MaxLatency)
	}
	// avg of 6..15 ms
	if snap.AvgLatency != 10500*time.Microsecond {
		t.Errorf("expected window avg 10.5ms, got %s", snap.AvgLatency)
	}
}

func TestTracker_SamplesOwnProcess(t *testing.T) {
	tracker := newTracker(os.Getpid())
	snap := tracker.Snapshot("self", StateHealthy)

	if snap.MemoryMB <= 0 {
		t.Errorf("expected positive RSS for the test process, got %f", snap.MemoryMB)
	}
	if snap.Uptime <= 0 {
		t.Error("expected positive uptime")
	}
}

func TestTracker_EmptyWindow(t *testing.T) {
	tracker := newTracker(os.Getpid())
	snap := tracker.Snapshot("idle", StateStarting)

	if snap.AvgLatency != 0 || snap.MinLatency != 0 || snap.MaxLatency != 0 {
		t.Errorf("expected zero latencies for an empty window, got %+v", snap)
	}
}

func TestFormatReport(t *testing.T) {
	snapshots := []Snapshot{
		{
			Name:       "tts",
			State:      StateHealthy,
			Uptime:     90 * time.Second,
			AvgLatency: 12 * time.Millisecond,
			MinLatency: 5 * time.Millisecond,
			MaxLatency: 30 * time.Millisecond,
			Successes:  4,
			Errors:     1,
			MemoryMB:   52.3,
		},
		{
			Name:  "stt",
			State: StateStarting,
		},
	}

	report := FormatReport(snapshots)

	for _, want := range []string{"tts", "state=healthy", "successes=4", "errors=1", "latency avg=12ms", "stt", "state=starting"} {
		if !strings.Contains(report, want) {
			t.Errorf("report missing %q:\n%s", want, report)
		}
	}
	// No probe samples yet: the latency line is omitted for stt.
	if strings.Count(report, "latency avg=") != 1 {
		t.Errorf("expected exactly one latency line:\n%s", report)
	}
}
