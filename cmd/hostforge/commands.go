package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v3"

	"github.com/lockwave-io/hostforge/internal/artifacts"
	"github.com/lockwave-io/hostforge/internal/catalog"
	"github.com/lockwave-io/hostforge/internal/collector"
	"github.com/lockwave-io/hostforge/internal/completion"
	"github.com/lockwave-io/hostforge/internal/config"
	"github.com/lockwave-io/hostforge/internal/executor"
	"github.com/lockwave-io/hostforge/internal/metrics"
	"github.com/lockwave-io/hostforge/internal/orchestrator"
	"github.com/lockwave-io/hostforge/internal/proxyconf"
	"github.com/lockwave-io/hostforge/internal/state"
	"github.com/lockwave-io/hostforge/internal/steps"
	"github.com/lockwave-io/hostforge/internal/telemetry"
	"github.com/lockwave-io/hostforge/internal/ui"
)

// artifactsDir is where generated files land inside the state directory.
const artifactsDir = "artifacts"

// newLogger keeps info entries off an interactive terminal, where they would
// interleave with prompts and step output, unless --debug is set.
func newLogger(cmd *cli.Command) *logrus.Logger {
	debug := cmd.Bool("debug")
	return telemetry.NewLogger(telemetry.Options{
		Debug: debug,
		Quiet: !debug && stderrIsTerminal(),
		File:  cmd.String("log-file"),
	})
}

func stderrIsTerminal() bool {
	fd := os.Stderr.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// inputSource picks how questions are asked: a scripted answers file, huh
// forms on a terminal, or plain lines otherwise.
func inputSource(cmd *cli.Command) (collector.InputSource, error) {
	if path := cmd.String("answers"); path != "" {
		return collector.LoadAnswers(path)
	}
	if isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd()) {
		return &collector.TerminalSource{}, nil
	}
	return collector.NewLineSource(os.Stdin, os.Stdout), nil
}

// newOrchestrator wires every component over the state directory.
func newOrchestrator(cmd *cli.Command, logger logrus.FieldLogger, source collector.InputSource) (*orchestrator.Orchestrator, error) {
	stateDir := cmd.String("state-dir")
	store, err := state.OpenFileStore(filepath.Join(stateDir, state.FileName))
	if err != nil {
		return nil, err
	}
	configs := config.NewFileStore(stateDir)
	printer := ui.New(os.Stdout)
	actions := executor.New(cmd.String("actions-dir"), logger)

	o := &orchestrator.Orchestrator{
		StateDir: stateDir,
		Collector: &collector.Collector{
			Source: source,
			Store:  configs,
			View:   printer,
		},
		Configs: configs,
		State:   store,
		Marker:  state.NewMarker(stateDir),
		Runner: &steps.Runner{
			Steps:     steps.DefaultSteps(),
			State:     store,
			Actions:   actions,
			Artifacts: &artifacts.Writer{Dir: filepath.Join(stateDir, artifactsDir)},
			Observer:  printer,
			Logger:    logger,
		},
		Preflight: actions,
		Reporter:  printer,
		Logger:    logger,
	}
	if path := cmd.String("metrics-file"); path != "" {
		o.Metrics = &metrics.Textfile{Path: path}
	}
	return o, nil
}

func runSetup(ctx context.Context, cmd *cli.Command) error {
	logger := newLogger(cmd)
	logger.WithFields(logrus.Fields{
		"version":   version,
		"state_dir": cmd.String("state-dir"),
		"resume":    cmd.Bool("resume"),
	}).Info("hostforge starting")

	source, err := inputSource(cmd)
	if err != nil {
		return err
	}
	o, err := newOrchestrator(cmd, logger, source)
	if err != nil {
		return err
	}
	_, err = o.Run(ctx, orchestrator.Options{Resume: cmd.Bool("resume")})
	return err
}

func runStatus(stateDir string) error {
	p := ui.New(os.Stdout)

	cfg, err := config.NewFileStore(stateDir).Load()
	if err != nil && !errors.Is(err, config.ErrNotFound) {
		return err
	}
	store, err := state.OpenFileStore(filepath.Join(stateDir, state.FileName))
	if err != nil {
		return err
	}
	provisioned, err := state.NewMarker(stateDir).Exists()
	if err != nil {
		return err
	}

	if cfg == nil {
		p.Info("No configuration saved yet. Run 'hostforge' to set up this host.")
		p.StepTable(store, "")
		return nil
	}
	p.ShowConfig(cfg)
	p.StepTable(store, cfg.Profile)
	p.Completion(completion.Evaluate(store, cfg.Profile, cfg.Tunnel))
	if provisioned {
		p.Info("Completion marker: present")
	} else {
		p.Info("Completion marker: absent")
	}
	return nil
}

func runRender(w io.Writer, domain, profile string, descriptor bool) error {
	d := config.NormalizeDomain(domain)
	if err := config.ValidateDomain(d); err != nil {
		return err
	}
	p, err := config.ParseProfile(profile)
	if err != nil {
		return err
	}

	if descriptor {
		out, err := proxyconf.Descriptor(d, p)
		if err != nil {
			return err
		}
		_, err = w.Write(out)
		return err
	}
	out, err := proxyconf.Generate(d, p)
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, out)
	return err
}

func runReset(ctx context.Context, cmd *cli.Command) error {
	step, all := cmd.String("step"), cmd.Bool("all")
	if err := checkResetArgs(step, all); err != nil {
		return err
	}

	if !cmd.Bool("yes") {
		source, err := inputSource(cmd)
		if err != nil {
			return err
		}
		what := "every recorded step"
		if !all {
			what = "step " + step
		}
		ok, err := source.Confirm(ctx, collector.Prompt{
			Key:     collector.KeyConfirm,
			Title:   fmt.Sprintf("Forget %s?", what),
			Default: "no",
		})
		if err != nil {
			return err
		}
		if !ok {
			return orchestrator.ErrAborted
		}
	}

	logger := newLogger(cmd)
	o, err := newOrchestrator(cmd, logger, nil)
	if err != nil {
		return err
	}
	if err := o.Reset(orchestrator.ResetOptions{Step: step, All: all}); err != nil {
		return err
	}
	ui.New(os.Stdout).Info("State reset. Run 'hostforge --resume' to apply the pending steps.")
	return nil
}

func checkResetArgs(step string, all bool) error {
	switch {
	case step == "" && !all:
		return &config.ValidationError{Field: "reset", Reason: "pass --step NAME or --all"}
	case step != "" && all:
		return &config.ValidationError{Field: "reset", Reason: "--step and --all are mutually exclusive"}
	case step != "" && !catalog.Known(step):
		return &config.ValidationError{Field: "step", Value: step, Reason: "unknown step"}
	}
	return nil
}
