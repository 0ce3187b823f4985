package steps

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/lockwave-io/hostforge/internal/artifacts"
	"github.com/lockwave-io/hostforge/internal/config"
	"github.com/lockwave-io/hostforge/internal/executor"
	"github.com/lockwave-io/hostforge/internal/state"
	"github.com/lockwave-io/hostforge/internal/telemetry"
)

// Observer receives progress as the runner walks the plan.
type Observer interface {
	StepStarted(s Step, index, total int)
	StepSatisfied(s Step)
	StepSkipped(s Step)
	StepCompleted(s Step)
	StepFailed(s Step, err error)
}

type nopObserver struct{}

func (nopObserver) StepStarted(Step, int, int) {}
func (nopObserver) StepSatisfied(Step)         {}
func (nopObserver) StepSkipped(Step)           {}
func (nopObserver) StepCompleted(Step)         {}
func (nopObserver) StepFailed(Step, error)     {}

// Result summarizes a run by step name.
type Result struct {
	Executed  []string
	Satisfied []string
	Skipped   []string
	Failed    string
	// Remaining lists the wanted steps still not completed, the failed one
	// first.
	Remaining []string
}

// Runner executes the plan for a configuration.
type Runner struct {
	Steps     []Step
	State     state.Store
	Actions   executor.Action
	Artifacts *artifacts.Writer
	Observer  Observer
	Logger    logrus.FieldLogger
}

// Pending returns the steps of the plan for cfg that still need to run.
func (r *Runner) Pending(cfg *config.Config) []Step {
	var out []Step
	for _, s := range Plan(r.Steps, cfg.Profile) {
		if !r.State.IsCompleted(s.Name) && s.Wanted(cfg) {
			out = append(out, s)
		}
	}
	return out
}

// Run walks the plan in order. Completed steps are passed over, unwanted
// conditional steps are recorded as skipped, and the first failing step
// stops the run.
func (r *Runner) Run(ctx context.Context, cfg *config.Config) (*Result, error) {
	if cfg == nil {
		return nil, errors.New("steps: no configuration")
	}
	obs := r.Observer
	if obs == nil {
		obs = nopObserver{}
	}
	log := r.Logger
	if log == nil {
		log = telemetry.Discard()
	}

	plan := Plan(r.Steps, cfg.Profile)
	res := &Result{}
	for i, s := range plan {
		if err := ctx.Err(); err != nil {
			res.Remaining = r.remaining(plan[i:], cfg)
			return res, err
		}
		entry := log.WithField("step", s.Name)

		if r.State.IsCompleted(s.Name) {
			res.Satisfied = append(res.Satisfied, s.Name)
			obs.StepSatisfied(s)
			entry.Debug("step already completed")
			continue
		}
		if !s.Wanted(cfg) {
			if err := r.State.MarkSkipped(s.Name); err != nil {
				res.Remaining = r.remaining(plan[i+1:], cfg)
				return res, fmt.Errorf("steps: record %s: %w", s.Name, err)
			}
			res.Skipped = append(res.Skipped, s.Name)
			obs.StepSkipped(s)
			entry.Info("step not requested, skipped")
			continue
		}

		obs.StepStarted(s, i+1, len(plan))
		entry.Info("running step")
		if err := r.execute(ctx, s, cfg, entry); err != nil {
			res.Failed = s.Name
			res.Remaining = r.remaining(plan[i:], cfg)
			obs.StepFailed(s, err)
			entry.WithError(err).Error("step failed")
			return res, &ActionError{Step: s.Name, Err: err}
		}
		if err := r.State.MarkCompleted(s.Name); err != nil {
			res.Remaining = r.remaining(plan[i:], cfg)
			return res, fmt.Errorf("steps: record %s: %w", s.Name, err)
		}
		res.Executed = append(res.Executed, s.Name)
		obs.StepCompleted(s)
		entry.Info("step completed")
	}
	return res, nil
}

func (r *Runner) execute(ctx context.Context, s Step, cfg *config.Config, log logrus.FieldLogger) error {
	paths := map[string]string{}
	if s.Artifacts != nil {
		files, err := s.Artifacts(cfg)
		if err != nil {
			return err
		}
		if len(files) > 0 && r.Artifacts == nil {
			return errors.New("no artifact directory configured")
		}
		for _, f := range files {
			path, changed, err := r.Artifacts.Write(f)
			if err != nil {
				return err
			}
			log.WithFields(logrus.Fields{
				"artifact": path,
				"changed":  changed,
			}).Debug("artifact written")
			paths[f.Name] = path
		}
	}
	return r.Actions.Run(ctx, executor.Request{
		Step:      s.Name,
		Config:    cfg,
		Artifacts: paths,
	})
}

func (r *Runner) remaining(rest []Step, cfg *config.Config) []string {
	var out []string
	for _, s := range rest {
		if !r.State.IsCompleted(s.Name) && s.Wanted(cfg) {
			out = append(out, s.Name)
		}
	}
	return out
}
