package supervisor

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	platformerrors "avatar-server-go/internal/platform/errors"
	platformtesting "avatar-server-go/internal/platform/testing"
)

func sleepDescriptor(name string) Descriptor {
	return Descriptor{
		Name:           name,
		Command:        "/bin/sh",
		Args:           []string{"-c", "sleep 60"},
		Port:           1,
		HealthPath:     "/health",
		StartupTimeout: 2 * time.Second,
		ExpectedStatus: "healthy",
	}
}

func TestSupervisor_LaunchAndShutdown(t *testing.T) {
	logger := platformtesting.SetupTestLogger(t)
	sup := New([]Descriptor{sleepDescriptor("svc")}, logger, nil)

	if err := sup.LaunchAll(context.Background()); err != nil {
		t.Fatalf("launch failed: %v", err)
	}

	snapshots := sup.Snapshots()
	if len(snapshots) != 1 {
		t.Fatalf("expected 1 live service, got %d", len(snapshots))
	}
	if snapshots[0].State != StateStarting {
		t.Errorf("expected starting state after launch, got %s", snapshots[0].State)
	}

	done := make(chan struct{})
	go func() {
		sup.ShutdownAll()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("shutdown did not complete")
	}

	if got := len(sup.Snapshots()); got != 0 {
		t.Errorf("expected empty arena after shutdown, got %d handles", got)
	}
}

func TestSupervisor_LaunchFailureIsFatal(t *testing.T) {
	logger := platformtesting.SetupTestLogger(t)
	bad := Descriptor{
		Name:           "ghost",
		Command:        "/nonexistent/binary",
		Port:           1,
		HealthPath:     "/health",
		StartupTimeout: time.Second,
		ExpectedStatus: "healthy",
	}
	sup := New([]Descriptor{bad}, logger, nil)

	err := sup.LaunchAll(context.Background())
	if err == nil {
		t.Fatal("expected a launch error for a missing executable")
	}
	if !platformerrors.IsKind(err, platformerrors.KindLaunch) {
		t.Errorf("expected launch kind, got %v", err)
	}
}

func TestSupervisor_CrashRemovesHandle(t *testing.T) {
	logger := platformtesting.SetupTestLogger(t)
	crash := Descriptor{
		Name:           "flaky",
		Command:        "/bin/sh",
		Args:           []string{"-c", "exit 3"},
		Port:           1,
		HealthPath:     "/health",
		StartupTimeout: time.Second,
		ExpectedStatus: "healthy",
	}
	sup := New([]Descriptor{crash}, logger, nil)

	var mu sync.Mutex
	var transitions []string
	if err := sup.Bus().Subscribe(TopicServiceState, func(name, old, next string) {
		mu.Lock()
		transitions = append(transitions, name+":"+old+"->"+next)
		mu.Unlock()
	}); err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}

	if err := sup.LaunchAll(context.Background()); err != nil {
		t.Fatalf("launch failed: %v", err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for len(sup.Snapshots()) != 0 {
		if time.Now().After(deadline) {
			t.Fatal("crashed service was not removed from the arena")
		}
		time.Sleep(20 * time.Millisecond)
	}

	deadline = time.Now().Add(time.Second)
	for {
		mu.Lock()
		n := len(transitions)
		mu.Unlock()
		if n > 0 || time.Now().After(deadline) {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(transitions) == 0 {
		t.Fatal("expected a state-transition event for the crash")
	}
	if transitions[0] != "flaky:starting->stopped" {
		t.Errorf("unexpected transition %q", transitions[0])
	}
}

func TestSupervisor_AwaitStartupTimeout(t *testing.T) {
	logger := platformtesting.SetupTestLogger(t)

	// The service runs but never serves its health endpoint.
	d := sleepDescriptor("mute")
	d.StartupTimeout = 300 * time.Millisecond

	sup := New([]Descriptor{d}, logger, nil)
	sup.pollInterval = 50 * time.Millisecond

	if err := sup.LaunchAll(context.Background()); err != nil {
		t.Fatalf("launch failed: %v", err)
	}
	defer sup.ShutdownAll()

	err := sup.AwaitStartup(context.Background())
	if err == nil {
		t.Fatal("expected startup to fail for a service that never reports healthy")
	}
	if !platformerrors.IsKind(err, platformerrors.KindLaunch) {
		t.Errorf("expected launch kind, got %v", err)
	}
}

func TestSupervisor_AwaitStartupHealthy(t *testing.T) {
	logger := platformtesting.SetupTestLogger(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"healthy"}`))
	}))
	defer server.Close()

	d := descriptorFor(t, server)
	d.Name = "probed"
	d.Command = "/bin/sh"
	d.Args = []string{"-c", "sleep 60"}

	sup := New([]Descriptor{d}, logger, nil)
	sup.pollInterval = 20 * time.Millisecond

	if err := sup.LaunchAll(context.Background()); err != nil {
		t.Fatalf("launch failed: %v", err)
	}
	defer sup.ShutdownAll()

	if err := sup.AwaitStartup(context.Background()); err != nil {
		t.Fatalf("expected startup to succeed: %v", err)
	}

	snapshots := sup.Snapshots()
	if len(snapshots) != 1 {
		t.Fatalf("expected 1 service, got %d", len(snapshots))
	}
	if snapshots[0].State != StateHealthy {
		t.Errorf("expected healthy state, got %s", snapshots[0].State)
	}
	if snapshots[0].Successes == 0 {
		t.Error("expected at least one recorded success")
	}
}
