package readiness

import (
	"context"
	"fmt"
	"time"

	"kliharness/internal/scheduler"
	"kliharness/pkg/logging"
)

// Host is the address every node is probed on.
const Host = "127.0.0.1"

// Prober runs one Poller per call inside a bounded scheduler run.
type Prober struct {
	Tick          time.Duration
	Limit         int
	Real          bool
	RetryInterval time.Duration
}

// NewProber returns a real-time prober giving up after timeout.
func NewProber(tick, timeout, retryInterval time.Duration) *Prober {
	if tick <= 0 {
		tick = scheduler.DefaultTick
	}
	if retryInterval <= 0 {
		retryInterval = tick
	}
	return &Prober{
		Tick:          tick,
		Limit:         scheduler.LimitFor(timeout, tick),
		Real:          true,
		RetryInterval: retryInterval,
	}
}

// BaseURL returns the probe address of a node listening on port.
func BaseURL(port int) string {
	return fmt.Sprintf("http://%s:%d", Host, port)
}

// Probe polls GET /oobi on port until a response arrives or the limit is reached.
func (p *Prober) Probe(ctx context.Context, port int) (*Response, error) {
	client := NewHTTPClient(BaseURL(port), p.RetryInterval)
	poller := NewPoller(client, p.Tick)

	res, err := scheduler.New(p.Tick, p.Limit, p.Real).Run(ctx, poller)
	if err != nil {
		poller.Exit()
		return nil, fmt.Errorf("probe of port %d aborted: %w", port, err)
	}

	resp, ok := poller.Response()
	if !ok {
		poller.Exit()
		return nil, fmt.Errorf("%w: port %d after %d ticks", ErrTimeout, port, res.Iterations)
	}

	logging.Debug("Readiness", "port %d answered with status %d after %d ticks", port, resp.Status, res.Iterations)
	return resp, nil
}
