// Package orchestrator drives one provisioning run: it takes the state lock,
// obtains a confirmed configuration, runs the pending steps and records
// whether the host is complete.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/lockwave-io/hostforge/internal/collector"
	"github.com/lockwave-io/hostforge/internal/completion"
	"github.com/lockwave-io/hostforge/internal/config"
	"github.com/lockwave-io/hostforge/internal/state"
	"github.com/lockwave-io/hostforge/internal/steps"
	"github.com/lockwave-io/hostforge/internal/system"
	"github.com/lockwave-io/hostforge/internal/telemetry"
)

// LockName is the advisory lock file inside the state directory.
const LockName = ".lock"

// Preflighter checks that the actions for the named steps can run.
type Preflighter interface {
	Preflight(steps []string) error
}

// Reporter receives the outcome of a run. *ui.Printer implements it.
type Reporter interface {
	AlreadyProvisioned(cfg *config.Config)
	Completion(rep completion.Report)
	Failure(res *steps.Result, err error)
}

// Recorder exports the outcome of a run, e.g. as metrics.
type Recorder interface {
	Record(store state.Store, cfg *config.Config, rep completion.Report) error
}

type nopReporter struct{}

func (nopReporter) AlreadyProvisioned(*config.Config) {}
func (nopReporter) Completion(completion.Report)      {}
func (nopReporter) Failure(*steps.Result, error)      {}

// Orchestrator wires the components of a run together.
type Orchestrator struct {
	StateDir  string
	Collector *collector.Collector
	Configs   config.Store
	State     state.Store
	Marker    *state.Marker
	Runner    *steps.Runner
	Preflight Preflighter
	Reporter  Reporter
	Metrics   Recorder
	Logger    logrus.FieldLogger
}

// Options tunes Run.
type Options struct {
	// Resume reuses the saved configuration without asking and re-verifies
	// an already provisioned host.
	Resume bool
}

// Outcome describes a finished run.
type Outcome struct {
	Config             *config.Config
	Result             *steps.Result
	Report             completion.Report
	AlreadyProvisioned bool
}

// ResetOptions selects what Reset forgets.
type ResetOptions struct {
	Step string
	All  bool
}

func (o *Orchestrator) log() logrus.FieldLogger {
	if o.Logger == nil {
		return telemetry.Discard()
	}
	return o.Logger
}

func (o *Orchestrator) reporter() Reporter {
	if o.Reporter == nil {
		return nopReporter{}
	}
	return o.Reporter
}

// lock creates the state directory if needed, takes the run lock and reloads
// the step state under it.
func (o *Orchestrator) lock() (*system.FileLock, error) {
	if err := system.EnsureDir(o.StateDir, 0o700); err != nil {
		return nil, fmt.Errorf("orchestrator: state dir: %w", err)
	}
	lock, err := system.Lock(filepath.Join(o.StateDir, LockName))
	if err != nil {
		return nil, err
	}
	if err := o.State.Reload(); err != nil {
		_ = lock.Release()
		return nil, err
	}
	return lock, nil
}

// Run performs one provisioning run.
func (o *Orchestrator) Run(ctx context.Context, opts Options) (*Outcome, error) {
	lock, err := o.lock()
	if err != nil {
		return nil, err
	}
	defer func() { _ = lock.Release() }()

	log := o.log()
	out := &Outcome{}

	provisioned, err := o.Marker.Exists()
	if err != nil {
		return nil, err
	}
	if provisioned && !opts.Resume {
		cfg, err := o.Configs.Load()
		if err != nil && !errors.Is(err, config.ErrNotFound) {
			return nil, err
		}
		out.Config = cfg
		out.AlreadyProvisioned = true
		log.Info("completion marker present, nothing to do")
		o.reporter().AlreadyProvisioned(cfg)
		return out, nil
	}

	acq, err := o.Collector.Acquire(ctx, collector.AcquireOptions{
		AssumeReuse: opts.Resume,
		Accept: func(cfg *config.Config) error {
			return o.checkProfile(cfg, o.previousProfile())
		},
	})
	if err != nil {
		return nil, err
	}
	cfg := acq.Config
	out.Config = cfg
	log.WithFields(logrus.Fields{
		"domain":  cfg.Domain,
		"profile": cfg.Profile,
		"reused":  acq.Reused,
	}).Info("configuration ready")

	pending := o.Runner.Pending(cfg)
	if o.Preflight != nil && len(pending) > 0 {
		names := make([]string, len(pending))
		for i, s := range pending {
			names[i] = s.Name
		}
		if err := o.Preflight.Preflight(names); err != nil {
			return out, err
		}
	}

	res, runErr := o.Runner.Run(ctx, cfg)
	out.Result = res
	out.Report = completion.Evaluate(o.State, cfg.Profile, cfg.Tunnel)

	if out.Report.Ready {
		if err := o.Marker.Set(); err != nil {
			return out, err
		}
	} else if err := o.Marker.Clear(); err != nil {
		return out, err
	}
	if o.Metrics != nil {
		if err := o.Metrics.Record(o.State, cfg, out.Report); err != nil {
			log.WithError(err).Warn("could not export metrics")
		}
	}

	if runErr != nil {
		log.WithError(runErr).Error("provisioning stopped")
		o.reporter().Failure(res, runErr)
		return out, &ReportedError{Err: runErr}
	}
	log.WithField("ready", out.Report.Ready).Info("provisioning run finished")
	o.reporter().Completion(out.Report)
	return out, nil
}

func (o *Orchestrator) previousProfile() config.Profile {
	prev, err := o.Configs.Load()
	if err != nil || prev == nil {
		return ""
	}
	return prev.Profile
}

// checkProfile refuses a new profile while steps applied under the previous
// one are still recorded.
func (o *Orchestrator) checkProfile(cfg *config.Config, previous config.Profile) error {
	if previous == "" || previous == cfg.Profile || o.State.CompletedCount() == 0 {
		return nil
	}
	return fmt.Errorf("%w: %s -> %s; run 'hostforge reset --all' first", ErrProfileChanged, previous, cfg.Profile)
}

// Reset forgets recorded steps under the run lock. Any reset clears the
// completion marker.
func (o *Orchestrator) Reset(opts ResetOptions) error {
	lock, err := o.lock()
	if err != nil {
		return err
	}
	defer func() { _ = lock.Release() }()

	switch {
	case opts.All:
		err = o.State.ResetAll()
	case opts.Step != "":
		err = o.State.Reset(opts.Step)
	default:
		return errors.New("orchestrator: reset needs a step or all")
	}
	if err != nil {
		return err
	}
	o.log().WithFields(logrus.Fields{"step": opts.Step, "all": opts.All}).Info("state reset")
	return o.Marker.Clear()
}
