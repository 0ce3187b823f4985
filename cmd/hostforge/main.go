package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/lockwave-io/hostforge/internal/config"
	"github.com/lockwave-io/hostforge/internal/executor"
	"github.com/lockwave-io/hostforge/internal/orchestrator"
	"github.com/lockwave-io/hostforge/internal/state"
	"github.com/lockwave-io/hostforge/internal/steps"
	"github.com/lockwave-io/hostforge/internal/system"
	"github.com/lockwave-io/hostforge/internal/ui"
)

// version is set at build time via -ldflags.
var version = "dev"

// Exit codes.
const (
	exitOK         = 0
	exitGeneric    = 1
	exitValidation = 2
	exitMissing    = 3
	exitStep       = 4
	exitCorrupt    = 5
	exitLocked     = 6
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newApp().Run(ctx, os.Args)
	stop()

	code := exitCode(err)
	if err != nil && code != exitOK && !isReported(err) {
		ui.New(os.Stderr).Error(err.Error(), "", hintFor(err))
	}
	if errors.Is(err, orchestrator.ErrAborted) {
		fmt.Fprintln(os.Stdout, "Aborted. Nothing was changed.")
	}
	os.Exit(code)
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:    "hostforge",
		Usage:   "Provision a fresh VM into a hardened container host",
		Version: version,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "resume",
				Aliases: []string{"rerun"},
				Usage:   "Reuse the saved configuration and continue from the first unfinished step",
			},
			&cli.StringFlag{
				Name:    "state-dir",
				Usage:   "Directory holding configuration, step state and artifacts",
				Value:   config.DefaultStateDir,
				Sources: cli.EnvVars("HOSTFORGE_STATE_DIR"),
			},
			&cli.StringFlag{
				Name:    "actions-dir",
				Usage:   "Directory holding one executable action per step",
				Value:   executor.DefaultDir,
				Sources: cli.EnvVars("HOSTFORGE_ACTIONS_DIR"),
			},
			&cli.StringFlag{
				Name:  "answers",
				Usage: "YAML answers file for unattended setup",
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "Enable debug logging",
			},
			&cli.StringFlag{
				Name:  "log-file",
				Usage: "Also write logs to this file (rotated)",
			},
			&cli.StringFlag{
				Name:    "metrics-file",
				Usage:   "Write step state as a node_exporter textfile (.prom) after each run",
				Sources: cli.EnvVars("HOSTFORGE_METRICS_FILE"),
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return runSetup(ctx, cmd)
		},
		Commands: []*cli.Command{
			statusCommand(),
			renderCommand(),
			resetCommand(),
			versionCommand(),
		},
	}
}

func statusCommand() *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "Show the saved configuration, per-step state and completion",
		Action: func(_ context.Context, cmd *cli.Command) error {
			return runStatus(cmd.String("state-dir"))
		},
	}
}

func renderCommand() *cli.Command {
	return &cli.Command{
		Name:  "render",
		Usage: "Print the generated reverse proxy configuration",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "domain",
				Usage:    "Base domain (required)",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "profile",
				Usage:    "Deployment profile: full-stack, monitoring or minimal (required)",
				Required: true,
			},
			&cli.BoolFlag{
				Name:  "descriptor",
				Usage: "Print the proxy compose descriptor instead of the Caddyfile",
			},
		},
		Action: func(_ context.Context, cmd *cli.Command) error {
			return runRender(os.Stdout, cmd.String("domain"), cmd.String("profile"), cmd.Bool("descriptor"))
		},
	}
}

func resetCommand() *cli.Command {
	return &cli.Command{
		Name:  "reset",
		Usage: "Forget recorded steps so they run again",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "step",
				Usage: "Forget a single step",
			},
			&cli.BoolFlag{
				Name:  "all",
				Usage: "Forget every step and the completion marker",
			},
			&cli.BoolFlag{
				Name:    "yes",
				Aliases: []string{"y"},
				Usage:   "Do not ask for confirmation",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return runReset(ctx, cmd)
		},
	}
}

func versionCommand() *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "Print the hostforge version",
		Action: func(_ context.Context, _ *cli.Command) error {
			fmt.Printf("hostforge %s (%s/%s)\n", version, runtime.GOOS, runtime.GOARCH)
			return nil
		},
	}
}

// exitCode maps an error to the process exit status.
func exitCode(err error) int {
	var (
		actionErr *steps.ActionError
		validErr  *config.ValidationError
	)
	switch {
	case err == nil, errors.Is(err, orchestrator.ErrAborted):
		return exitOK
	case errors.As(err, &actionErr):
		return exitStep
	case errors.Is(err, system.ErrLocked):
		return exitLocked
	case errors.Is(err, config.ErrCorrupt), errors.Is(err, state.ErrCorrupt):
		return exitCorrupt
	case errors.Is(err, executor.ErrMissingAction):
		return exitMissing
	case errors.As(err, &validErr), errors.Is(err, orchestrator.ErrProfileChanged), errors.Is(err, state.ErrUnknownStep):
		return exitValidation
	default:
		return exitGeneric
	}
}

// isReported tells whether the run already printed err to the operator.
func isReported(err error) bool {
	return orchestrator.IsReported(err)
}

func hintFor(err error) string {
	switch {
	case errors.Is(err, system.ErrLocked):
		return "wait for the other hostforge run to finish"
	case errors.Is(err, config.ErrCorrupt), errors.Is(err, state.ErrCorrupt):
		return "inspect the state directory, or run 'hostforge reset --all' and set up again"
	case errors.Is(err, executor.ErrMissingAction):
		return "install the hostforge actions package or point --actions-dir at it"
	case errors.Is(err, orchestrator.ErrProfileChanged):
		return "run 'hostforge reset --all' to provision with a different profile"
	case errors.Is(err, context.Canceled):
		return "rerun with --resume to continue"
	}
	return ""
}
