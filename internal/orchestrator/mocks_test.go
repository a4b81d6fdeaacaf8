package orchestrator

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"

	"kliharness/internal/nodeconfig"
	"kliharness/internal/readiness"
)

// eventLog records lifecycle calls across handles.
type eventLog struct {
	mu     sync.Mutex
	events []string
}

func (l *eventLog) add(e string) {
	l.mu.Lock()
	l.events = append(l.events, e)
	l.mu.Unlock()
}

func (l *eventLog) all() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.events...)
}

// fakeHandle is a process that exits as soon as it is terminated, unless stubborn.
type fakeHandle struct {
	name     string
	pid      int
	log      *eventLog
	stubborn bool
	waitErr  error
	termErr  error

	exited chan struct{}
	once   sync.Once
}

func newFakeHandle(name string, pid int, log *eventLog) *fakeHandle {
	return &fakeHandle{name: name, pid: pid, log: log, exited: make(chan struct{})}
}

func (h *fakeHandle) Name() string { return h.name }
func (h *fakeHandle) PID() int     { return h.pid }

func (h *fakeHandle) Terminate() error {
	h.log.add("terminate " + h.name)
	if h.termErr != nil {
		return h.termErr
	}
	if !h.stubborn {
		h.exit()
	}
	return nil
}

func (h *fakeHandle) Kill() error {
	h.log.add("kill " + h.name)
	h.exit()
	return nil
}

func (h *fakeHandle) Wait() error {
	<-h.exited
	h.log.add("wait " + h.name)
	return h.waitErr
}

func (h *fakeHandle) exit() {
	h.once.Do(func() { close(h.exited) })
}

// mockLauncher hands out fakeHandles and records the specs it was given.
type mockLauncher struct {
	mock.Mock
	log     *eventLog
	handles map[string]*fakeHandle
	mu      sync.Mutex
}

func newMockLauncher(log *eventLog) *mockLauncher {
	return &mockLauncher{log: log, handles: map[string]*fakeHandle{}}
}

func (m *mockLauncher) Launch(ctx context.Context, spec nodeconfig.Spec) (Handle, error) {
	args := m.Called(ctx, spec)
	if err := args.Error(1); err != nil {
		return nil, err
	}
	h := args.Get(0).(*fakeHandle)
	m.log.add("launch " + spec.Alias)
	m.mu.Lock()
	m.handles[spec.Alias] = h
	m.mu.Unlock()
	return h, nil
}

func (m *mockLauncher) handle(alias string) *fakeHandle {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.handles[alias]
}

type mockProber struct {
	mock.Mock
}

func (m *mockProber) Probe(ctx context.Context, port int) (*readiness.Response, error) {
	args := m.Called(ctx, port)
	resp, _ := args.Get(0).(*readiness.Response)
	return resp, args.Error(1)
}
