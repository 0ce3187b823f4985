// Package executor invokes the external per-step actions. Each action is an
// executable named after its step inside the actions directory; hostforge
// hands it the configuration through environment variables and never
// inspects its output.
package executor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/lockwave-io/hostforge/internal/config"
)

// DefaultDir is where packaged actions are installed.
const DefaultDir = "/usr/lib/hostforge/actions"

// ErrMissingAction indicates an action executable is absent or not runnable.
var ErrMissingAction = errors.New("hostforge: external action missing")

// Request is everything an action receives.
type Request struct {
	Step   string
	Config *config.Config
	// Artifacts maps artifact names to the paths they were written to.
	Artifacts map[string]string
}

// Action performs the host mutation for one step.
type Action interface {
	Run(ctx context.Context, req Request) error
}

// ActionFunc adapts a function to Action.
type ActionFunc func(ctx context.Context, req Request) error

// Run calls f.
func (f ActionFunc) Run(ctx context.Context, req Request) error {
	return f(ctx, req)
}

// Executor runs actions as child processes.
type Executor struct {
	Dir    string
	Stdout io.Writer
	Stderr io.Writer
	Logger logrus.FieldLogger

	// RunCommand starts cmd and waits for it. Defaults to cmd.Run.
	RunCommand func(cmd *exec.Cmd) error
}

// New returns an Executor for dir with stdio passed through.
func New(dir string, logger logrus.FieldLogger) *Executor {
	return &Executor{
		Dir:    dir,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
		Logger: logger,
	}
}

// Path returns the executable for step.
func (e *Executor) Path(step string) string {
	return filepath.Join(e.Dir, step)
}

// Run executes the action for req.Step. A context cancellation kills the
// child process.
func (e *Executor) Run(ctx context.Context, req Request) error {
	if req.Config == nil {
		return fmt.Errorf("executor: %s: no configuration", req.Step)
	}
	path := e.Path(req.Step)

	// #nosec G204 -- path is built from a catalog step name, not user input
	cmd := exec.CommandContext(ctx, path)
	cmd.Env = append(os.Environ(), Environment(req)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = e.Stdout
	cmd.Stderr = e.Stderr

	if e.Logger != nil {
		e.Logger.WithFields(logrus.Fields{
			"step":   req.Step,
			"action": path,
		}).Debug("running action")
	}

	run := e.RunCommand
	if run == nil {
		run = (*exec.Cmd).Run
	}
	if err := run(cmd); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("executor: %s: %w", req.Step, ctxErr)
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return fmt.Errorf("executor: %s: exited with status %d", req.Step, exitErr.ExitCode())
		}
		return fmt.Errorf("executor: %s: %w", req.Step, err)
	}
	return nil
}

// Environment returns the HOSTFORGE_* variables for req, artifacts sorted by
// name.
func Environment(req Request) []string {
	cfg := req.Config
	env := []string{
		"HOSTFORGE_STEP=" + req.Step,
		"HOSTFORGE_DOMAIN=" + cfg.Domain,
		"HOSTFORGE_PROFILE=" + string(cfg.Profile),
		"HOSTFORGE_SSH_KEYS=" + strings.Join(cfg.SSHKeys, "\n"),
		"HOSTFORGE_SUDO_MODE=" + string(cfg.SudoMode),
		"HOSTFORGE_TIMEZONE=" + cfg.Timezone,
		"HOSTFORGE_TUNNEL=" + fmt.Sprint(cfg.Tunnel),
		"HOSTFORGE_ADMIN_USER=" + cfg.AdminUser,
	}

	names := make([]string, 0, len(req.Artifacts))
	for name := range req.Artifacts {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		env = append(env, "HOSTFORGE_ARTIFACT_"+envName(name)+"="+req.Artifacts[name])
	}
	return env
}

func envName(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r - 'a' + 'A'
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		default:
			return '_'
		}
	}, name)
}

// Preflight verifies an executable exists for every step, returning
// ErrMissingAction naming all that do not.
func (e *Executor) Preflight(steps []string) error {
	var missing []string
	for _, step := range steps {
		info, err := os.Stat(e.Path(step))
		if err != nil || !info.Mode().IsRegular() || info.Mode().Perm()&0o111 == 0 {
			missing = append(missing, step)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	return fmt.Errorf("%w in %s: %s", ErrMissingAction, e.Dir, strings.Join(missing, ", "))
}
