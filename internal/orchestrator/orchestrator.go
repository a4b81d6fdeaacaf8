package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"kliharness/internal/config"
	"kliharness/internal/nodeconfig"
	"kliharness/internal/readiness"
	"kliharness/pkg/logging"
)

// Prober waits for a node to answer on its HTTP port.
type Prober interface {
	Probe(ctx context.Context, port int) (*readiness.Response, error)
}

// PlannedNode is a node Start will launch.
type PlannedNode struct {
	Spec  nodeconfig.Spec
	Probe bool
}

// Orchestrator owns the witness processes of one scenario at a time.
type Orchestrator struct {
	cfg      config.HarnessConfig
	launcher Launcher
	prober   Prober
	registry *Registry
	now      func() time.Time

	mu    sync.Mutex
	state State
}

// Option customizes an Orchestrator.
type Option func(*Orchestrator)

// WithLauncher replaces the kli process launcher.
func WithLauncher(l Launcher) Option {
	return func(o *Orchestrator) { o.launcher = l }
}

// WithProber replaces the GET /oobi readiness prober.
func WithProber(p Prober) Option {
	return func(o *Orchestrator) { o.prober = p }
}

// WithClock sets the time source used to stamp config files.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// New creates an orchestrator for cfg. It does not start anything.
func New(cfg config.HarnessConfig, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		cfg:      cfg,
		launcher: &ExecLauncher{Binary: cfg.Kli},
		prober:   readiness.NewProber(cfg.Tick, cfg.Readiness.Timeout, cfg.Readiness.RetryInterval),
		registry: NewRegistry(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Registry returns the scenario registry.
func (o *Orchestrator) Registry() *Registry {
	return o.registry
}

// State returns the current lifecycle phase.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

func (o *Orchestrator) setState(s State) {
	o.mu.Lock()
	prev := o.state
	o.state = s
	o.mu.Unlock()
	if prev != s {
		logging.Debug("Orchestrator", "State %s -> %s", prev, s)
	}
}

// Plan returns the nodes the tags activate, in profile order. A node alias that
// appears in more than one active profile is launched once, as first configured.
func (o *Orchestrator) Plan(tags []string) []PlannedNode {
	active := make(map[string]bool, len(tags))
	for _, t := range tags {
		active[t] = true
	}

	var plan []PlannedNode
	seen := map[string]bool{}
	for _, p := range o.cfg.Profiles {
		if !active[p.Tag] {
			continue
		}
		for _, n := range p.Nodes {
			if seen[n.Alias] {
				continue
			}
			seen[n.Alias] = true
			plan = append(plan, PlannedNode{Spec: o.spec(n), Probe: p.Probe})
		}
	}
	return plan
}

func (o *Orchestrator) spec(n config.NodeDefinition) nodeconfig.Spec {
	return nodeconfig.Spec{
		Alias:      n.Alias,
		Name:       n.Name,
		HTTPPort:   n.Port,
		ConfigDir:  o.cfg.ConfigDir(),
		ConfigFile: n.ConfigFile,
		BaseDir:    o.cfg.BaseDir(),
		Passcode:   n.Passcode,
	}
}

// Start launches every node the tags activate. Nodes of probed profiles must answer
// GET /oobi before the next node is launched.
//
// Every launched process is recorded before it is probed, so on error the caller
// must still call Stop to reap what was started.
func (o *Orchestrator) Start(ctx context.Context, tags []string) error {
	o.mu.Lock()
	if !o.state.canStart() {
		state := o.state
		o.mu.Unlock()
		return fmt.Errorf("%w (state %s)", ErrAlreadyStarted, state)
	}
	o.mu.Unlock()
	o.setState(StateStarting)

	plan := o.Plan(tags)
	if len(plan) == 0 {
		logging.Debug("Orchestrator", "No witness profile active for tags %v", tags)
	}

	for _, pn := range plan {
		if err := o.startNode(ctx, pn); err != nil {
			return err
		}
	}

	o.setState(StateReady)
	return nil
}

func (o *Orchestrator) startNode(ctx context.Context, pn PlannedNode) error {
	spec := pn.Spec

	path, err := nodeconfig.Write(spec, o.now())
	if err != nil {
		return fmt.Errorf("failed to write config for %s: %w", spec.Alias, err)
	}
	logging.Debug("Orchestrator", "Config file created: %s", path)

	handle, err := o.launcher.Launch(ctx, spec)
	if err != nil {
		return fmt.Errorf("failed to launch %s: %w", spec.Alias, err)
	}
	o.registry.Merge(spec.Alias, Node{Spec: spec, Handle: handle})
	logging.Info("Orchestrator", "Started witness %s on port %d (PID: %d)", spec.Alias, spec.HTTPPort, handle.PID())

	if !pn.Probe {
		return nil
	}

	resp, err := o.prober.Probe(ctx, spec.HTTPPort)
	switch {
	case errors.Is(err, readiness.ErrTimeout):
		if o.cfg.Readiness.Policy == config.PolicyIgnore {
			logging.Warn("Orchestrator", "Witness %s did not answer on port %d, continuing: %v", spec.Alias, spec.HTTPPort, err)
			return nil
		}
		return fmt.Errorf("%w: %s: %v", ErrReadinessTimeout, spec.Alias, err)
	case err != nil:
		return fmt.Errorf("failed to probe %s: %w", spec.Alias, err)
	}

	oobi, err := readiness.ParseOOBI(resp.Body)
	if err != nil {
		logging.Warn("Orchestrator", "Witness %s answered with an unreadable oobi: %v", spec.Alias, err)
		return nil
	}
	o.registry.Merge(spec.Alias, Node{OOBI: oobi})
	logging.Info("Orchestrator", "Witness %s ready with prefix %s", spec.Alias, oobi.Prefix)
	return nil
}

// Stop terminates every recorded process, newest first, waits for each to exit and
// purges the base directory. Failures do not stop the remaining work; they are
// returned together. Stop is idempotent.
func (o *Orchestrator) Stop(ctx context.Context) error {
	o.setState(StateTerminating)

	var errs []error
	names := o.registry.Names()
	for i := len(names) - 1; i >= 0; i-- {
		node, _ := o.registry.Get(names[i])
		if node.Handle == nil {
			continue
		}
		if err := o.reap(ctx, names[i], node.Handle); err != nil {
			logging.Error("Orchestrator", err, "Failed to stop witness %s", names[i])
			errs = append(errs, err)
		}
	}
	o.registry.Reset()

	sentinel := ""
	if o.cfg.PreserveSentinel() {
		sentinel = o.cfg.Cleanup.Sentinel
	}
	if err := Purge(o.cfg.BaseDir(), sentinel); err != nil {
		errs = append(errs, fmt.Errorf("cleanup failed: %w", err))
	}
	logging.Debug("Orchestrator", "Purged %s", o.cfg.BaseDir())

	o.setState(StateCleaned)
	return errors.Join(errs...)
}

func (o *Orchestrator) reap(ctx context.Context, name string, h Handle) error {
	if err := h.Terminate(); err != nil {
		return fmt.Errorf("failed to terminate %s: %w", name, err)
	}

	done := make(chan error, 1)
	go func() { done <- h.Wait() }()

	var escalate <-chan time.Time
	if d := o.cfg.Termination.KillAfter; d > 0 {
		timer := time.NewTimer(d)
		defer timer.Stop()
		escalate = timer.C
	}

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("witness %s exited with error: %w", name, err)
		}
		logging.Info("Orchestrator", "Stopped witness %s", name)
		return nil
	case <-escalate:
		logging.Warn("Orchestrator", "Witness %s ignored SIGTERM for %v, killing", name, o.cfg.Termination.KillAfter)
	case <-ctx.Done():
		logging.Warn("Orchestrator", "Stop of %s interrupted, killing", name)
	}

	if err := h.Kill(); err != nil {
		return fmt.Errorf("failed to kill %s: %w", name, err)
	}
	if err := <-done; err != nil {
		return fmt.Errorf("witness %s exited with error: %w", name, err)
	}
	return nil
}

// Run starts the tagged nodes, runs body and always stops. The first of the start
// or body error is returned, joined with any stop error.
func (o *Orchestrator) Run(ctx context.Context, tags []string, body func(ctx context.Context, reg *Registry) error) error {
	err := o.Start(ctx, tags)
	if err == nil {
		o.setState(StateRunning)
		if body != nil {
			err = body(ctx, o.registry)
		}
	}

	// teardown must run even when ctx was cancelled
	stopErr := o.Stop(context.WithoutCancel(ctx))
	return errors.Join(err, stopErr)
}
