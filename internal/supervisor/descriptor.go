// Package supervisor launches the service fleet, probes each service's
// health endpoint and tracks per-service runtime statistics.
package supervisor

import (
	"fmt"
	"time"

	"avatar-server-go/internal/platform/config"
)

// Descriptor is the immutable launch configuration of one service. Built
// once from static configuration, never mutated afterwards.
type Descriptor struct {
	Name           string
	Command        string
	Args           []string
	Port           int
	HealthPath     string
	StartupTimeout time.Duration
	ExpectedStatus string
}

// DescriptorsFromConfig converts the configured service list into
// descriptors, preserving launch order.
func DescriptorsFromConfig(cfg *config.Config) []Descriptor {
	descriptors := make([]Descriptor, 0, len(cfg.Services))
	for _, svc := range cfg.Services {
		healthPath := svc.HealthPath
		if healthPath == "" {
			healthPath = "/health"
		}
		expected := svc.ExpectedStatus
		if expected == "" {
			expected = "healthy"
		}
		descriptors = append(descriptors, Descriptor{
			Name:           svc.Name,
			Command:        svc.Command,
			Args:           svc.Args,
			Port:           svc.Port,
			HealthPath:     healthPath,
			StartupTimeout: svc.StartupTimeout(),
			ExpectedStatus: expected,
		})
	}
	return descriptors
}

// HealthURL returns the probe target for this service.
func (d Descriptor) HealthURL() string {
	return fmt.Sprintf("http://127.0.0.1:%d%s", d.Port, d.HealthPath)
}
