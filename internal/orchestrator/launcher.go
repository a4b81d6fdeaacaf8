package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"syscall"

	"kliharness/internal/nodeconfig"
	"kliharness/pkg/logging"
)

// For mocking in tests
var execCommand = exec.Command

// Handle is a running witness process.
type Handle interface {
	Name() string
	PID() int
	// Terminate asks the process to exit.
	Terminate() error
	// Wait blocks until the process has exited. It may be called more than once.
	Wait() error
	// Kill forces the process, and its process group, to exit.
	Kill() error
}

// Launcher starts witness processes.
type Launcher interface {
	Launch(ctx context.Context, spec nodeconfig.Spec) (Handle, error)
}

// ExecLauncher runs the kli binary.
type ExecLauncher struct {
	Binary string
	// Stdout and Stderr receive the witness output. Nil discards it.
	Stdout io.Writer
	Stderr io.Writer
}

// Launch starts `kli witness start ...` for spec in its own process group, so a
// terminal interrupt reaches only the harness, which then stops the witness itself.
// The process is not bound to ctx.
func (l *ExecLauncher) Launch(_ context.Context, spec nodeconfig.Spec) (Handle, error) {
	cmd := execCommand(l.Binary, spec.Args()...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Stdout = l.Stdout
	cmd.Stderr = l.Stderr

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start %s for %s: %w", l.Binary, spec.Alias, err)
	}

	logging.Debug("Launcher", "Started %s %v (PID: %d)", l.Binary, spec.Args(), cmd.Process.Pid)
	return &processHandle{name: spec.Alias, cmd: cmd}, nil
}

type processHandle struct {
	name string
	cmd  *exec.Cmd

	mu         sync.Mutex
	terminated bool

	waitOnce sync.Once
	waitErr  error
}

func (p *processHandle) Name() string { return p.name }

func (p *processHandle) PID() int { return p.cmd.Process.Pid }

func (p *processHandle) Terminate() error {
	p.markTerminated()
	if err := p.cmd.Process.Signal(syscall.SIGTERM); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return err
	}
	return nil
}

func (p *processHandle) Kill() error {
	p.markTerminated()
	if err := syscall.Kill(-p.cmd.Process.Pid, syscall.SIGKILL); err != nil {
		if err := p.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
			return err
		}
	}
	return nil
}

// Wait reaps the process once. A non-zero exit after Terminate or Kill is the
// expected outcome of the signal and is not reported.
func (p *processHandle) Wait() error {
	p.waitOnce.Do(func() {
		p.waitErr = p.cmd.Wait()
	})

	var exitErr *exec.ExitError
	if errors.As(p.waitErr, &exitErr) && p.wasTerminated() {
		return nil
	}
	return p.waitErr
}

func (p *processHandle) markTerminated() {
	p.mu.Lock()
	p.terminated = true
	p.mu.Unlock()
}

func (p *processHandle) wasTerminated() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.terminated
}
