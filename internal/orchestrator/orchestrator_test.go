package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"kliharness/internal/config"
	"kliharness/internal/nodeconfig"
	"kliharness/internal/readiness"
)

type harness struct {
	cfg      config.HarnessConfig
	log      *eventLog
	launcher *mockLauncher
	prober   *mockProber
	orch     *Orchestrator
}

func newHarness(t *testing.T, mutate ...func(*config.HarnessConfig)) *harness {
	t.Helper()
	cfg := config.GetDefaultConfig()
	cfg.Root = t.TempDir()
	for _, m := range mutate {
		m(&cfg)
	}

	h := &harness{cfg: cfg, log: &eventLog{}, prober: &mockProber{}}
	h.launcher = newMockLauncher(h.log)
	h.orch = New(cfg,
		WithLauncher(h.launcher),
		WithProber(h.prober),
		WithClock(func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC) }),
	)
	return h
}

func (h *harness) expectLaunch(alias string, pid int) *fakeHandle {
	fh := newFakeHandle(alias, pid, h.log)
	h.launcher.On("Launch", mock.Anything, mock.MatchedBy(func(s nodeconfig.Spec) bool {
		return s.Alias == alias
	})).Return(fh, nil).Once()
	return fh
}

func oobiResponse(prefix string) *readiness.Response {
	return &readiness.Response{Status: 200, Body: []byte(fmt.Sprintf(`{"i":"%s"}-VAi-CABB`, prefix))}
}

func TestStartWithWitness(t *testing.T) {
	h := newHarness(t)
	h.expectLaunch("wit", 100)

	require.NoError(t, h.orch.Start(context.Background(), []string{config.TagWitness}))
	assert.Equal(t, StateReady, h.orch.State())

	h.launcher.AssertNumberOfCalls(t, "Launch", 1)
	spec := h.launcher.Calls[0].Arguments.Get(1).(nodeconfig.Spec)
	assert.Equal(t, 5646, spec.HTTPPort)
	assert.Equal(t, config.DefaultPasscode, spec.Passcode)
	assert.Equal(t, h.cfg.ConfigDir(), spec.ConfigDir)
	assert.Equal(t, h.cfg.BaseDir(), spec.BaseDir)
	h.prober.AssertNotCalled(t, "Probe", mock.Anything, mock.Anything)

	f, err := nodeconfig.Read(spec.Path())
	require.NoError(t, err)
	assert.Equal(t, []string{"http://127.0.0.1:5646"}, f.Node.CURLs)
	assert.Equal(t, "2024-01-02T03:04:05.000000+00:00", f.DT)

	node, err := h.orch.Registry().Lookup("wit")
	require.NoError(t, err)
	assert.Equal(t, 100, node.Handle.PID())

	require.NoError(t, h.orch.Stop(context.Background()))
	assert.Equal(t, []string{"launch wit", "terminate wit", "wait wit"}, h.log.all())
	assert.Equal(t, StateCleaned, h.orch.State())
	assert.Zero(t, h.orch.Registry().Len())
}

func TestStartWithoutRecognizedTag(t *testing.T) {
	h := newHarness(t)

	require.NoError(t, h.orch.Start(context.Background(), []string{"wip", "slow"}))
	require.NoError(t, h.orch.Stop(context.Background()))

	h.launcher.AssertNotCalled(t, "Launch", mock.Anything, mock.Anything)
	assert.Empty(t, h.log.all())
}

func TestStartWitnessPoolProbesEachNodeInOrder(t *testing.T) {
	h := newHarness(t)
	for i, alias := range []string{"wan", "wil", "wes"} {
		h.expectLaunch(alias, 200+i)
		port := 5642 + i
		prefix := "B" + alias
		h.prober.On("Probe", mock.Anything, port).Run(func(mock.Arguments) {
			h.log.add(fmt.Sprintf("probe %d", port))
		}).Return(oobiResponse(prefix), nil).Once()
	}

	require.NoError(t, h.orch.Start(context.Background(), []string{config.TagWitnessPool}))

	assert.Equal(t, []string{
		"launch wan", "probe 5642",
		"launch wil", "probe 5643",
		"launch wes", "probe 5644",
	}, h.log.all())
	assert.Equal(t, []string{"wan", "wil", "wes"}, h.orch.Registry().Names())

	wil, _ := h.orch.Registry().Get("wil")
	require.NotNil(t, wil.OOBI)
	assert.Equal(t, "Bwil", wil.OOBI.Prefix)
	assert.Equal(t, 201, wil.Handle.PID(), "merging the oobi keeps the handle")

	require.NoError(t, h.orch.Stop(context.Background()))
	assert.Equal(t, []string{
		"terminate wes", "wait wes",
		"terminate wil", "wait wil",
		"terminate wan", "wait wan",
	}, h.log.all()[6:])
	h.prober.AssertExpectations(t)
}

func TestStartBothTagsUnionsProfiles(t *testing.T) {
	h := newHarness(t)
	for _, alias := range []string{"wit", "wan", "wil", "wes"} {
		h.expectLaunch(alias, 1)
	}
	h.prober.On("Probe", mock.Anything, mock.Anything).Return(oobiResponse("X"), nil)

	require.NoError(t, h.orch.Start(context.Background(), []string{config.TagWitnessPool, config.TagWitness}))
	assert.Equal(t, []string{"wit", "wan", "wil", "wes"}, h.orch.Registry().Names())
	h.prober.AssertNumberOfCalls(t, "Probe", 3)
	require.NoError(t, h.orch.Stop(context.Background()))
}

func TestReadinessTimeoutFailsStartButStillReaps(t *testing.T) {
	h := newHarness(t)
	h.expectLaunch("wan", 1)
	h.expectLaunch("wil", 2)
	h.prober.On("Probe", mock.Anything, 5642).Return(oobiResponse("A"), nil).Once()
	h.prober.On("Probe", mock.Anything, 5643).Return(nil, fmt.Errorf("%w: port 5643", readiness.ErrTimeout)).Once()

	err := h.orch.Start(context.Background(), []string{config.TagWitnessPool})
	require.ErrorIs(t, err, ErrReadinessTimeout)
	assert.Contains(t, err.Error(), "wil")
	assert.Equal(t, StateStarting, h.orch.State())
	h.launcher.AssertNumberOfCalls(t, "Launch", 2)

	require.NoError(t, h.orch.Stop(context.Background()))
	assert.Equal(t, []string{
		"launch wan", "launch wil",
		"terminate wil", "wait wil",
		"terminate wan", "wait wan",
	}, h.log.all())
}

func TestMalformedOOBIRecordsNoPrefix(t *testing.T) {
	h := newHarness(t)
	for _, alias := range []string{"wan", "wil", "wes"} {
		h.expectLaunch(alias, 1)
	}
	h.prober.On("Probe", mock.Anything, 5642).Return(&readiness.Response{Status: 200, Body: []byte(`{"i": }-VAi-CABB`)}, nil).Once()
	h.prober.On("Probe", mock.Anything, mock.Anything).Return(oobiResponse("X"), nil)

	require.NoError(t, h.orch.Start(context.Background(), []string{config.TagWitnessPool}))

	wan, _ := h.orch.Registry().Get("wan")
	assert.Nil(t, wan.OOBI)
	assert.Equal(t, 1, wan.Handle.PID())
	wil, _ := h.orch.Registry().Get("wil")
	require.NotNil(t, wil.OOBI)
	assert.Equal(t, "X", wil.OOBI.Prefix)
	require.NoError(t, h.orch.Stop(context.Background()))
}

func TestReadinessTimeoutIgnoredByPolicy(t *testing.T) {
	h := newHarness(t, func(c *config.HarnessConfig) { c.Readiness.Policy = config.PolicyIgnore })
	for _, alias := range []string{"wan", "wil", "wes"} {
		h.expectLaunch(alias, 1)
	}
	h.prober.On("Probe", mock.Anything, mock.Anything).Return(nil, readiness.ErrTimeout)

	require.NoError(t, h.orch.Start(context.Background(), []string{config.TagWitnessPool}))
	assert.Equal(t, 3, h.orch.Registry().Len())

	wan, _ := h.orch.Registry().Get("wan")
	assert.Nil(t, wan.OOBI)
	require.NoError(t, h.orch.Stop(context.Background()))
	assert.Len(t, h.log.all(), 9)
}

func TestStartTwiceIsRejected(t *testing.T) {
	h := newHarness(t)
	h.expectLaunch("wit", 1)
	require.NoError(t, h.orch.Start(context.Background(), []string{config.TagWitness}))

	err := h.orch.Start(context.Background(), []string{config.TagWitness})
	assert.ErrorIs(t, err, ErrAlreadyStarted)
	require.NoError(t, h.orch.Stop(context.Background()))

	h.expectLaunch("wit", 2)
	assert.NoError(t, h.orch.Start(context.Background(), []string{config.TagWitness}), "a cleaned orchestrator starts again")
	require.NoError(t, h.orch.Stop(context.Background()))
}

func TestLaunchFailureLeavesEarlierNodesForStop(t *testing.T) {
	h := newHarness(t)
	h.expectLaunch("wan", 1)
	h.prober.On("Probe", mock.Anything, 5642).Return(oobiResponse("A"), nil)
	h.launcher.On("Launch", mock.Anything, mock.Anything).Return(nil, errors.New("exec: kli not found")).Once()

	err := h.orch.Start(context.Background(), []string{config.TagWitnessPool})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to launch wil")

	require.NoError(t, h.orch.Stop(context.Background()))
	assert.Contains(t, h.log.all(), "terminate wan")
}

func TestStopCollectsFailuresAndKeepsGoing(t *testing.T) {
	h := newHarness(t)
	h.expectLaunch("wit", 1)
	require.NoError(t, h.orch.Start(context.Background(), []string{config.TagWitness}))

	other := newFakeHandle("extra", 2, h.log)
	other.termErr = errors.New("operation not permitted")
	h.orch.Registry().Merge("extra", Node{Handle: other})
	h.launcher.handle("wit").waitErr = errors.New("exit status 3")

	err := h.orch.Stop(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to terminate extra")
	assert.Contains(t, err.Error(), "witness wit exited with error")
	assert.Equal(t, StateCleaned, h.orch.State())
}

func TestStopEscalatesAfterKillAfter(t *testing.T) {
	h := newHarness(t, func(c *config.HarnessConfig) { c.Termination.KillAfter = 20 * time.Millisecond })
	fh := h.expectLaunch("wit", 1)
	fh.stubborn = true
	require.NoError(t, h.orch.Start(context.Background(), []string{config.TagWitness}))

	require.NoError(t, h.orch.Stop(context.Background()))
	assert.Equal(t, []string{"launch wit", "terminate wit", "kill wit", "wait wit"}, h.log.all())
}

func TestStopWithoutStartIsNoop(t *testing.T) {
	h := newHarness(t)
	assert.NoError(t, h.orch.Stop(context.Background()))
	assert.NoError(t, h.orch.Stop(context.Background()))
	assert.Empty(t, h.log.all())
}

func TestStopPurgesBaseDirectory(t *testing.T) {
	h := newHarness(t)
	base := h.cfg.BaseDir()
	require.NoError(t, os.MkdirAll(filepath.Join(base, "keri", "db", "wit"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(base, "keri", "db", "wit", "data.mdb"), []byte("x"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(base, "DO_NOT_DELETE"), nil, 0644))

	require.NoError(t, h.orch.Stop(context.Background()))

	entries, err := os.ReadDir(base)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "DO_NOT_DELETE", entries[0].Name())

	// config files survive teardown
	h.expectLaunch("wit", 1)
	require.NoError(t, h.orch.Start(context.Background(), []string{config.TagWitness}))
	require.NoError(t, h.orch.Stop(context.Background()))
	_, err = os.Stat(filepath.Join(h.cfg.ConfigDir(), "keri", "cf", "main", "wit.json"))
	assert.NoError(t, err)
}

func TestRunAlwaysStops(t *testing.T) {
	h := newHarness(t)
	h.expectLaunch("wit", 1)
	boom := errors.New("scenario failed")

	var stateInBody State
	err := h.orch.Run(context.Background(), []string{config.TagWitness}, func(ctx context.Context, reg *Registry) error {
		stateInBody = h.orch.State()
		_, err := reg.Lookup("wit")
		require.NoError(t, err)
		return boom
	})

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, StateRunning, stateInBody)
	assert.Equal(t, StateCleaned, h.orch.State())
	assert.Equal(t, []string{"launch wit", "terminate wit", "wait wit"}, h.log.all())
}

func TestRunSkipsBodyWhenStartFails(t *testing.T) {
	h := newHarness(t)
	h.expectLaunch("wan", 1)
	h.prober.On("Probe", mock.Anything, 5642).Return(nil, readiness.ErrTimeout)

	called := false
	err := h.orch.Run(context.Background(), []string{config.TagWitnessPool}, func(context.Context, *Registry) error {
		called = true
		return nil
	})

	assert.ErrorIs(t, err, ErrReadinessTimeout)
	assert.False(t, called)
	assert.Contains(t, h.log.all(), "terminate wan")
}

func TestPlanUsesConfiguredDirectories(t *testing.T) {
	h := newHarness(t)
	plan := h.orch.Plan([]string{config.TagWitnessPool})

	require.Len(t, plan, 3)
	for _, pn := range plan {
		assert.True(t, pn.Probe)
		assert.Equal(t, filepath.Join(h.cfg.Root, "config"), pn.Spec.ConfigDir)
		assert.Equal(t, filepath.Join(h.cfg.Root, "base"), pn.Spec.BaseDir)
		assert.Empty(t, pn.Spec.Passcode)
	}
	assert.Equal(t, 5644, plan[2].Spec.HTTPPort)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "Terminating", StateTerminating.String())
	assert.Equal(t, "Unknown", State(42).String())
}
