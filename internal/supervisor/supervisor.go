package supervisor

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/asaskevich/EventBus"

	platformerrors "avatar-server-go/internal/platform/errors"
	"avatar-server-go/internal/platform/logging"
)

// TopicServiceState is the event-bus topic carrying service state
// transitions as (name, oldState, newState).
const TopicServiceState = "supervisor:service_state"

// gracePeriod bounds how long a service gets to exit after SIGTERM before
// it is force-killed.
const gracePeriod = 5 * time.Second

// handle is the mutable runtime record of one launched service. Handles are
// owned exclusively by the Supervisor; other components read Snapshots.
type handle struct {
	descriptor Descriptor
	cmd        *exec.Cmd
	pid        int
	stats      *Tracker
	state      HealthState
	relayDone  sync.WaitGroup
	done       chan struct{}
}

// Supervisor launches the described services, relays their output, detects
// crashes and terminates the fleet on shutdown. A service that crashes after
// a successful startup is logged and forgotten, not restarted.
type Supervisor struct {
	mu           sync.Mutex
	descriptors  []Descriptor
	handles      map[string]*handle
	shuttingDown bool

	prober       *Prober
	logger       *logging.Logger
	bus          EventBus.Bus
	grace        time.Duration
	pollInterval time.Duration
}

func New(descriptors []Descriptor, logger *logging.Logger, bus EventBus.Bus) *Supervisor {
	if bus == nil {
		bus = EventBus.New()
	}
	return &Supervisor{
		descriptors:  descriptors,
		handles:      make(map[string]*handle, len(descriptors)),
		prober:       NewProber(),
		logger:       logger,
		bus:          bus,
		grace:        gracePeriod,
		pollInterval: pollInterval,
	}
}

// Bus exposes the event bus carrying state transitions.
func (s *Supervisor) Bus() EventBus.Bus {
	return s.bus
}

// LaunchAll starts every described service. The first spawn failure aborts
// startup: already-running services are shut down and a launch error is
// returned.
func (s *Supervisor) LaunchAll(ctx context.Context) error {
	for _, d := range s.descriptors {
		if err := s.launch(d); err != nil {
			s.logger.ErrorTag("supervisor", "failed to launch %s: %v", d.Name, err)
			s.ShutdownAll()
			return err
		}
	}
	return nil
}

func (s *Supervisor) launch(d Descriptor) error {
	s.mu.Lock()
	if _, exists := s.handles[d.Name]; exists {
		s.mu.Unlock()
		return platformerrors.New(platformerrors.KindLaunch, "supervisor.launch", d.Name+" is already running")
	}
	s.mu.Unlock()

	cmd := exec.Command(d.Command, d.Args...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindLaunch, "supervisor.launch", d.Name+" stdout pipe", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindLaunch, "supervisor.launch", d.Name+" stderr pipe", err)
	}

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return platformerrors.Wrap(platformerrors.KindLaunch, "supervisor.launch", d.Name+" spawn failed", err)
	}

	h := &handle{
		descriptor: d,
		cmd:        cmd,
		pid:        cmd.Process.Pid,
		stats:      newTracker(cmd.Process.Pid),
		state:      StateStarting,
		done:       make(chan struct{}),
	}

	s.mu.Lock()
	s.handles[d.Name] = h
	s.mu.Unlock()

	s.logger.InfoTag("supervisor", "launched %s on port %d (pid %d) in %s",
		d.Name, d.Port, h.pid, time.Since(start).Round(time.Millisecond))

	h.relayDone.Add(2)
	go s.relay(d.Name, stdout, &h.relayDone)
	go s.relay(d.Name, stderr, &h.relayDone)
	go s.watch(h)

	return nil
}

// relay copies a child output stream into the supervisor log, one line at a
// time, tagged with the service name.
func (s *Supervisor) relay(name string, r io.Reader, done *sync.WaitGroup) {
	defer done.Done()

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 256*1024)
	for scanner.Scan() {
		s.logger.InfoTag(name, "%s", scanner.Text())
	}
}

// watch reaps the child and handles unexpected exits. Output relays must
// drain before Wait so the pipes are not closed under the readers.
func (s *Supervisor) watch(h *handle) {
	h.relayDone.Wait()
	err := h.cmd.Wait()
	close(h.done)

	s.mu.Lock()
	_, present := s.handles[h.descriptor.Name]
	crashed := present && !s.shuttingDown
	if present {
		delete(s.handles, h.descriptor.Name)
	}
	old := h.state
	h.state = StateStopped
	s.mu.Unlock()

	if crashed {
		// Deliberately no restart here: a service that dies after startup
		// stays down until the operator intervenes.
		s.logger.ErrorTag("supervisor", "%s exited unexpectedly: %v", h.descriptor.Name, exitDescription(err))
		s.bus.Publish(TopicServiceState, h.descriptor.Name, string(old), string(StateStopped))
	}
}

func exitDescription(err error) string {
	if err == nil {
		return "exit status 0"
	}
	return err.Error()
}

// AwaitStartup polls each service's health endpoint until it reports
// healthy or its startup timeout elapses. Any timeout fails overall startup.
func (s *Supervisor) AwaitStartup(ctx context.Context) error {
	for _, d := range s.descriptors {
		if err := s.waitHealthy(ctx, d); err != nil {
			return err
		}
	}
	return nil
}

func (s *Supervisor) waitHealthy(ctx context.Context, d Descriptor) error {
	s.logger.InfoTag("supervisor", "waiting for %s to become healthy (timeout %s)", d.Name, d.StartupTimeout)

	deadline := time.Now().Add(d.StartupTimeout)
	start := time.Now()

	for {
		latency, err := s.probeOnce(ctx, d)
		if err == nil {
			s.logger.InfoTag("supervisor", "%s ready in %s (probe %s)",
				d.Name, time.Since(start).Round(time.Millisecond), latency.Round(time.Millisecond))
			return nil
		}

		if time.Now().After(deadline) {
			return platformerrors.New(platformerrors.KindLaunch, "supervisor.startup",
				fmt.Sprintf("%s did not become healthy within %s", d.Name, d.StartupTimeout))
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.pollInterval):
		}
	}
}

// probeOnce probes one service and folds the result into its handle's state
// and stats.
func (s *Supervisor) probeOnce(ctx context.Context, d Descriptor) (time.Duration, error) {
	s.mu.Lock()
	h, ok := s.handles[d.Name]
	s.mu.Unlock()
	if !ok {
		return 0, platformerrors.New(platformerrors.KindUpstream, "probe", d.Name+" is not running")
	}

	latency, err := s.prober.Probe(ctx, d)
	if err != nil {
		h.stats.RecordError()
		s.transition(h, StateUnhealthy)
		return latency, err
	}

	h.stats.RecordSuccess(latency)
	s.transition(h, StateHealthy)
	return latency, nil
}

// transition moves a handle's health state, publishing the change.
// A starting service only leaves starting on its first healthy probe.
func (s *Supervisor) transition(h *handle, next HealthState) {
	s.mu.Lock()
	old := h.state
	if old == next || (old == StateStarting && next == StateUnhealthy) || old == StateStopped {
		s.mu.Unlock()
		return
	}
	h.state = next
	s.mu.Unlock()

	s.logger.InfoTag("supervisor", "%s: %s -> %s", h.descriptor.Name, old, next)
	s.bus.Publish(TopicServiceState, h.descriptor.Name, string(old), string(next))
}

// MonitorLoop probes the whole fleet at the given interval until the
// context is cancelled, logging a periodic stats report.
func (s *Supervisor) MonitorLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			allHealthy := true
			for _, d := range s.descriptors {
				if _, err := s.probeOnce(ctx, d); err != nil {
					if ctx.Err() != nil {
						return
					}
					allHealthy = false
					s.logger.WarnTag("supervisor", "health check failed: %v", err)
				}
			}
			if allHealthy {
				s.logger.InfoTag("supervisor", "all services healthy")
			}
			s.logger.InfoTag("supervisor", "%s", FormatReport(s.Snapshots()))
		}
	}
}

// Snapshots returns the current stats of all live services in launch order.
func (s *Supervisor) Snapshots() []Snapshot {
	s.mu.Lock()
	type entry struct {
		h     *handle
		state HealthState
	}
	entries := make(map[string]entry, len(s.handles))
	for name, h := range s.handles {
		entries[name] = entry{h: h, state: h.state}
	}
	s.mu.Unlock()

	snapshots := make([]Snapshot, 0, len(entries))
	for _, d := range s.descriptors {
		if e, ok := entries[d.Name]; ok {
			snapshots = append(snapshots, e.h.stats.Snapshot(d.Name, e.state))
		}
	}
	return snapshots
}

// ShutdownAll terminates every live service: SIGTERM, a bounded grace wait,
// then SIGKILL for stragglers. It concludes with the final stats report.
func (s *Supervisor) ShutdownAll() {
	snapshots := s.Snapshots()

	s.mu.Lock()
	s.shuttingDown = true
	live := make([]*handle, 0, len(s.handles))
	for _, h := range s.handles {
		live = append(live, h)
	}
	s.mu.Unlock()

	for _, h := range live {
		s.terminate(h)
	}

	s.mu.Lock()
	for _, h := range live {
		delete(s.handles, h.descriptor.Name)
	}
	s.mu.Unlock()

	if len(snapshots) > 0 {
		s.logger.InfoTag("supervisor", "%s", FormatReport(snapshots))
	}
}

func (s *Supervisor) terminate(h *handle) {
	name := h.descriptor.Name
	s.logger.InfoTag("supervisor", "stopping %s (pid %d)", name, h.pid)

	if err := h.cmd.Process.Signal(syscall.SIGTERM); err != nil {
		// Process already gone; watch will have reaped it.
		<-h.done
		return
	}

	select {
	case <-h.done:
	case <-time.After(s.grace):
		s.logger.WarnTag("supervisor", "%s did not exit within %s, killing", name, s.grace)
		_ = h.cmd.Process.Kill()
		<-h.done
	}
}
