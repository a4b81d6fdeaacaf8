package testing

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"kliharness/pkg/logging"
)

// For mocking in tests
var execCommandContext = exec.CommandContext

// execExecutor runs step commands on the host.
type execExecutor struct {
	dir string
	env []string
}

// NewCommandExecutor returns an executor running commands in dir with the current
// environment plus env.
func NewCommandExecutor(dir string, env ...string) CommandExecutor {
	return &execExecutor{dir: dir, env: env}
}

func (e *execExecutor) command(ctx context.Context, argv []string) (*exec.Cmd, *bytes.Buffer, *bytes.Buffer, error) {
	if len(argv) == 0 {
		return nil, nil, nil, errors.New("empty command")
	}
	cmd := execCommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = e.dir
	if len(e.env) > 0 {
		cmd.Env = append(os.Environ(), e.env...)
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	return cmd, &stdout, &stderr, nil
}

// Run implements CommandExecutor.
func (e *execExecutor) Run(ctx context.Context, argv []string) (CommandResult, error) {
	cmd, stdout, stderr, err := e.command(ctx, argv)
	if err != nil {
		return CommandResult{}, err
	}
	logging.Debug("Executor", "Running %s", strings.Join(argv, " "))
	return finish(argv, cmd.Run(), cmd, stdout, stderr)
}

// Start implements CommandExecutor.
func (e *execExecutor) Start(ctx context.Context, argv []string) (BackgroundCommand, error) {
	cmd, stdout, stderr, err := e.command(ctx, argv)
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start %s: %w", argv[0], err)
	}
	logging.Debug("Executor", "Started %s in background (PID: %d)", strings.Join(argv, " "), cmd.Process.Pid)
	return &background{argv: argv, cmd: cmd, stdout: stdout, stderr: stderr}, nil
}

type background struct {
	argv   []string
	cmd    *exec.Cmd
	stdout *bytes.Buffer
	stderr *bytes.Buffer
}

func (b *background) Wait() (CommandResult, error) {
	return finish(b.argv, b.cmd.Wait(), b.cmd, b.stdout, b.stderr)
}

func finish(argv []string, runErr error, cmd *exec.Cmd, stdout, stderr *bytes.Buffer) (CommandResult, error) {
	res := CommandResult{Stdout: stdout.String(), Stderr: stderr.String()}
	if cmd.ProcessState != nil {
		res.ExitCode = cmd.ProcessState.ExitCode()
	}
	if runErr == nil {
		return res, nil
	}

	var exitErr *exec.ExitError
	if errors.As(runErr, &exitErr) {
		msg := strings.TrimSpace(res.Stderr)
		if msg == "" {
			msg = exitErr.Error()
		}
		return res, fmt.Errorf("%s exited with code %d: %s", argv[0], res.ExitCode, msg)
	}
	return res, fmt.Errorf("failed to run %s: %w", argv[0], runErr)
}
