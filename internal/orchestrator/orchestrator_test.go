package orchestrator

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lockwave-io/hostforge/internal/artifacts"
	"github.com/lockwave-io/hostforge/internal/catalog"
	"github.com/lockwave-io/hostforge/internal/collector"
	"github.com/lockwave-io/hostforge/internal/completion"
	"github.com/lockwave-io/hostforge/internal/config"
	"github.com/lockwave-io/hostforge/internal/executor"
	"github.com/lockwave-io/hostforge/internal/state"
	"github.com/lockwave-io/hostforge/internal/steps"
	"github.com/lockwave-io/hostforge/internal/system"
)

const testKey = "ssh-ed25519 AAAAC3NzaC1lZDI1NTE5AAAAIOMqqnkVzrm0SdG6UOoqKLsabgH5C9okWi0dh2l9GKJl ops@laptop"

type recorder struct {
	calls  []string
	failOn map[string]error
}

func (r *recorder) Run(_ context.Context, req executor.Request) error {
	r.calls = append(r.calls, req.Step)
	return r.failOn[req.Step]
}

type fakePreflight struct {
	err    error
	called [][]string
}

func (f *fakePreflight) Preflight(names []string) error {
	f.called = append(f.called, names)
	return f.err
}

func answers(profile string) collector.Answers {
	return collector.Answers{
		collector.KeyDomain:        {"example.com"},
		collector.KeyDomainConfirm: {"example.com"},
		collector.KeySSHKey:        {testKey},
		collector.KeyProfile:       {profile},
		collector.KeySudoMode:      {"password"},
		collector.KeyTunnel:        {"no"},
		collector.KeyConfirm:       {"yes"},
		collector.KeyReuse:         {"yes"},
	}
}

type fakeRecorder struct {
	reports []completion.Report
}

func (f *fakeRecorder) Record(_ state.Store, _ *config.Config, rep completion.Report) error {
	f.reports = append(f.reports, rep)
	return errors.New("textfile dir not writable")
}

type harness struct {
	dir       string
	action    *recorder
	preflight *fakePreflight
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	return &harness{
		dir:       t.TempDir(),
		action:    &recorder{},
		preflight: &fakePreflight{},
	}
}

// build assembles an orchestrator over real file stores so consecutive runs
// see each other's state, the way separate process invocations do.
func (h *harness) build(t *testing.T, a collector.Answers) *Orchestrator {
	t.Helper()
	configs := config.NewFileStore(h.dir)
	store, err := state.OpenFileStore(filepath.Join(h.dir, state.FileName))
	require.NoError(t, err)
	return &Orchestrator{
		StateDir:  h.dir,
		Collector: &collector.Collector{Source: collector.NewScriptedSource(a), Store: configs},
		Configs:   configs,
		State:     store,
		Marker:    state.NewMarker(h.dir),
		Runner: &steps.Runner{
			Steps:     steps.DefaultSteps(),
			State:     store,
			Actions:   h.action,
			Artifacts: &artifacts.Writer{Dir: filepath.Join(h.dir, "artifacts")},
		},
		Preflight: h.preflight,
	}
}

func (h *harness) markerExists(t *testing.T) bool {
	t.Helper()
	ok, err := state.NewMarker(h.dir).Exists()
	require.NoError(t, err)
	return ok
}

func TestRun_FreshHost(t *testing.T) {
	h := newHarness(t)

	out, err := h.build(t, answers("minimal")).Run(context.Background(), Options{})
	require.NoError(t, err)
	assert.True(t, out.Report.Ready)
	assert.Equal(t, catalog.RequiredSteps(config.ProfileMinimal), h.action.calls)
	assert.True(t, h.markerExists(t))
	require.Len(t, h.preflight.called, 1)
	assert.Equal(t, catalog.RequiredSteps(config.ProfileMinimal), h.preflight.called[0])
}

func TestRun_SecondRunDoesNothing(t *testing.T) {
	h := newHarness(t)
	_, err := h.build(t, answers("full-stack")).Run(context.Background(), Options{})
	require.NoError(t, err)
	h.action.calls = nil

	out, err := h.build(t, collector.Answers{}).Run(context.Background(), Options{})
	require.NoError(t, err)
	assert.True(t, out.AlreadyProvisioned)
	assert.Equal(t, "example.com", out.Config.Domain)
	assert.Empty(t, h.action.calls)
}

func TestRun_ResumeOnCompleteHostRunsNothing(t *testing.T) {
	h := newHarness(t)
	_, err := h.build(t, answers("monitoring")).Run(context.Background(), Options{})
	require.NoError(t, err)
	h.action.calls = nil
	h.preflight.called = nil

	out, err := h.build(t, collector.Answers{}).Run(context.Background(), Options{Resume: true})
	require.NoError(t, err)
	assert.False(t, out.AlreadyProvisioned)
	assert.True(t, out.Report.Ready)
	assert.Empty(t, h.action.calls)
	assert.Empty(t, h.preflight.called, "nothing pending, nothing to check")
	assert.True(t, h.markerExists(t))
}

func TestRun_FailureThenResume(t *testing.T) {
	h := newHarness(t)
	h.action.failOn = map[string]error{catalog.StepDockerInstall: errors.New("apt failed")}

	out, err := h.build(t, answers("minimal")).Run(context.Background(), Options{})
	var actionErr *steps.ActionError
	require.ErrorAs(t, err, &actionErr)
	assert.Equal(t, catalog.StepDockerInstall, actionErr.Step)
	assert.False(t, out.Report.Ready)
	assert.Equal(t, catalog.StepDockerInstall, out.Report.Missing[0])
	assert.False(t, h.markerExists(t))

	h.action.failOn = nil
	h.action.calls = nil
	out, err = h.build(t, collector.Answers{}).Run(context.Background(), Options{Resume: true})
	require.NoError(t, err)
	assert.True(t, out.Report.Ready)
	assert.Equal(t, []string{
		catalog.StepDockerInstall,
		catalog.StepDockerNetworks,
		catalog.StepDomainConfig,
		catalog.StepReverseProxy,
	}, h.action.calls)
	assert.True(t, h.markerExists(t))
}

func TestRun_ReadsStateUnderLock(t *testing.T) {
	h := newHarness(t)
	// Built before the other run writes any state.
	late := h.build(t, collector.Answers{})

	h.action.failOn = map[string]error{catalog.StepDockerInstall: errors.New("apt failed")}
	_, err := h.build(t, answers("minimal")).Run(context.Background(), Options{})
	require.Error(t, err)

	h.action.failOn = nil
	h.action.calls = nil
	out, err := late.Run(context.Background(), Options{Resume: true})
	require.NoError(t, err)
	assert.True(t, out.Report.Ready)
	assert.Equal(t, []string{
		catalog.StepDockerInstall,
		catalog.StepDockerNetworks,
		catalog.StepDomainConfig,
		catalog.StepReverseProxy,
	}, h.action.calls)
}

func TestRun_ProfileChangeRefused(t *testing.T) {
	h := newHarness(t)
	h.action.failOn = map[string]error{catalog.StepFirewall: errors.New("boom")}
	_, err := h.build(t, answers("minimal")).Run(context.Background(), Options{})
	require.Error(t, err)
	h.action.calls = nil

	a := answers("full-stack")
	a[collector.KeyReuse] = []string{"no"}
	_, err = h.build(t, a).Run(context.Background(), Options{})
	require.ErrorIs(t, err, ErrProfileChanged)
	assert.Empty(t, h.action.calls)

	saved, err := config.NewFileStore(h.dir).Load()
	require.NoError(t, err)
	assert.Equal(t, config.ProfileMinimal, saved.Profile, "refused config is not saved")
}

func TestRun_ProfileChangeAllowedAfterReset(t *testing.T) {
	h := newHarness(t)
	h.action.failOn = map[string]error{catalog.StepFirewall: errors.New("boom")}
	_, err := h.build(t, answers("minimal")).Run(context.Background(), Options{})
	require.Error(t, err)

	require.NoError(t, h.build(t, nil).Reset(ResetOptions{All: true}))

	h.action.failOn = nil
	h.action.calls = nil
	a := answers("monitoring")
	a[collector.KeyReuse] = []string{"no"}
	out, err := h.build(t, a).Run(context.Background(), Options{})
	require.NoError(t, err)
	assert.True(t, out.Report.Ready)
	assert.Equal(t, catalog.RequiredSteps(config.ProfileMonitoring), h.action.calls)
}

func TestRun_Locked(t *testing.T) {
	h := newHarness(t)
	held, err := system.Lock(filepath.Join(h.dir, LockName))
	require.NoError(t, err)
	defer func() { _ = held.Release() }()

	_, err = h.build(t, answers("minimal")).Run(context.Background(), Options{})
	require.ErrorIs(t, err, system.ErrLocked)
	assert.Empty(t, h.action.calls)
}

func TestRun_PreflightFailureRunsNothing(t *testing.T) {
	h := newHarness(t)
	h.preflight.err = executor.ErrMissingAction

	_, err := h.build(t, answers("minimal")).Run(context.Background(), Options{})
	require.ErrorIs(t, err, executor.ErrMissingAction)
	assert.Empty(t, h.action.calls)
	assert.False(t, h.markerExists(t))
}

func TestRun_Declined(t *testing.T) {
	h := newHarness(t)
	a := answers("minimal")
	a[collector.KeyConfirm] = []string{"no"}

	_, err := h.build(t, a).Run(context.Background(), Options{})
	require.ErrorIs(t, err, ErrAborted)
	assert.Empty(t, h.action.calls)

	_, err = config.NewFileStore(h.dir).Load()
	assert.ErrorIs(t, err, config.ErrNotFound)
}

func TestReset_StepClearsMarker(t *testing.T) {
	h := newHarness(t)
	_, err := h.build(t, answers("minimal")).Run(context.Background(), Options{})
	require.NoError(t, err)
	require.True(t, h.markerExists(t))

	require.NoError(t, h.build(t, nil).Reset(ResetOptions{Step: catalog.StepFirewall}))
	assert.False(t, h.markerExists(t))

	h.action.calls = nil
	_, err = h.build(t, nil).Run(context.Background(), Options{Resume: true})
	require.NoError(t, err)
	assert.Equal(t, []string{catalog.StepFirewall}, h.action.calls)
}

func TestRun_MetricsFailureIsNotFatal(t *testing.T) {
	h := newHarness(t)
	o := h.build(t, answers("minimal"))
	rec := &fakeRecorder{}
	o.Metrics = rec

	out, err := o.Run(context.Background(), Options{})
	require.NoError(t, err)
	require.Len(t, rec.reports, 1)
	assert.Equal(t, out.Report, rec.reports[0])
	assert.True(t, h.markerExists(t))
}

type failureReporter struct {
	nopReporter
	failures []error
}

func (f *failureReporter) Failure(_ *steps.Result, err error) {
	f.failures = append(f.failures, err)
}

type cancelOnFirst struct {
	cancel context.CancelFunc
}

func (c cancelOnFirst) Run(context.Context, executor.Request) error {
	c.cancel()
	return nil
}

func TestRun_InterruptedBetweenStepsIsReported(t *testing.T) {
	h := newHarness(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rep := &failureReporter{}
	o := h.build(t, answers("minimal"))
	o.Runner.Actions = cancelOnFirst{cancel: cancel}
	o.Reporter = rep

	out, err := o.Run(ctx, Options{})
	require.ErrorIs(t, err, context.Canceled)
	assert.True(t, IsReported(err))
	require.Len(t, rep.failures, 1)
	assert.Equal(t, []string{catalog.StepVMSetup}, out.Result.Executed)
	assert.False(t, h.markerExists(t))
}

func TestRun_PreflightErrorIsNotReported(t *testing.T) {
	h := newHarness(t)
	h.preflight.err = executor.ErrMissingAction

	_, err := h.build(t, answers("minimal")).Run(context.Background(), Options{})
	require.ErrorIs(t, err, executor.ErrMissingAction)
	assert.False(t, IsReported(err))
}
