package supervisor

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/bytedance/sonic"

	platformerrors "avatar-server-go/internal/platform/errors"
)

// HealthState classifies a service's observed health.
type HealthState string

const (
	StateStarting  HealthState = "starting"
	StateHealthy   HealthState = "healthy"
	StateUnhealthy HealthState = "unhealthy"
	StateStopped   HealthState = "stopped"
)

const (
	probeTimeout = 5 * time.Second
	pollInterval = time.Second
)

// HealthPayload is the wire shape every service's /health endpoint returns.
// Service-specific metrics beyond these fields are ignored by the prober.
type HealthPayload struct {
	Status  string `json:"status"`
	Service string `json:"service,omitempty"`
	Message string `json:"message,omitempty"`
}

// Prober issues bounded-timeout GETs against service health endpoints.
type Prober struct {
	client *http.Client
}

func NewProber() *Prober {
	return &Prober{
		client: &http.Client{Timeout: probeTimeout},
	}
}

// Probe checks one service. On success it returns the observed latency; any
// non-200 response, unexpected status value, decode failure or timeout is an
// error of kind transient or upstream.
func (p *Prober) Probe(ctx context.Context, d Descriptor) (time.Duration, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.HealthURL(), nil)
	if err != nil {
		return 0, platformerrors.Wrap(platformerrors.KindInternal, "probe", "build request", err)
	}

	start := time.Now()
	resp, err := p.client.Do(req)
	if err != nil {
		return 0, platformerrors.Wrap(platformerrors.KindTransient, "probe", d.Name+" unreachable", err)
	}
	defer resp.Body.Close()
	latency := time.Since(start)

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return latency, platformerrors.Wrap(platformerrors.KindTransient, "probe", d.Name+" read body", err)
	}

	if resp.StatusCode != http.StatusOK {
		return latency, platformerrors.New(platformerrors.KindUpstream, "probe",
			d.Name+" responded with HTTP "+resp.Status)
	}

	var payload HealthPayload
	if err := sonic.Unmarshal(body, &payload); err != nil {
		return latency, platformerrors.Wrap(platformerrors.KindUpstream, "probe", d.Name+" malformed health payload", err)
	}

	if payload.Status != d.ExpectedStatus {
		msg := d.Name + " reported status " + payload.Status
		if payload.Message != "" {
			msg += ": " + payload.Message
		}
		return latency, platformerrors.New(platformerrors.KindUpstream, "probe", msg)
	}

	return latency, nil
}
