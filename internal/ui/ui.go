// Package ui prints operator-facing progress and summaries.
package ui

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/lockwave-io/hostforge/internal/artifacts"
	"github.com/lockwave-io/hostforge/internal/catalog"
	"github.com/lockwave-io/hostforge/internal/completion"
	"github.com/lockwave-io/hostforge/internal/config"
	"github.com/lockwave-io/hostforge/internal/state"
	"github.com/lockwave-io/hostforge/internal/steps"
)

const (
	checkMark = "[OK]"
	crossMark = "[!!]"
	runMark   = "[..]"
	skipMark  = "[--]"
	pendMark  = "[  ]"
)

// Printer writes styled lines to w. Colors are only emitted when w is a
// terminal.
type Printer struct {
	w io.Writer

	title   lipgloss.Style
	section lipgloss.Style
	ok      lipgloss.Style
	fail    lipgloss.Style
	warn    lipgloss.Style
	dim     lipgloss.Style
	hint    lipgloss.Style
}

// New returns a Printer for w.
func New(w io.Writer) *Printer {
	r := lipgloss.NewRenderer(w)
	return &Printer{
		w:       w,
		title:   r.NewStyle().Bold(true),
		section: r.NewStyle().Bold(true).Foreground(lipgloss.Color("#3b82f6")),
		ok:      r.NewStyle().Foreground(lipgloss.Color("#16A34A")),
		fail:    r.NewStyle().Foreground(lipgloss.Color("#DC2626")).Bold(true),
		warn:    r.NewStyle().Foreground(lipgloss.Color("#CA8A04")),
		dim:     r.NewStyle().Foreground(lipgloss.Color("#9CA3AF")),
		hint:    r.NewStyle().Foreground(lipgloss.Color("#6B7280")).Italic(true),
	}
}

func (p *Printer) printf(format string, args ...any) {
	fmt.Fprintf(p.w, format, args...)
}

// StepStarted prints the step header.
func (p *Printer) StepStarted(s steps.Step, index, total int) {
	p.printf("%s %s %s\n", p.dim.Render(runMark), p.title.Render(s.Title), p.dim.Render(fmt.Sprintf("(%d/%d %s)", index, total, s.Name)))
}

// StepSatisfied notes a step completed by an earlier run.
func (p *Printer) StepSatisfied(s steps.Step) {
	p.printf("%s %s\n", p.ok.Render(checkMark), p.dim.Render(s.Title+" (already done)"))
}

// StepSkipped notes a conditional step that was not requested.
func (p *Printer) StepSkipped(s steps.Step) {
	p.printf("%s %s\n", p.dim.Render(skipMark), p.dim.Render(s.Title+" (not requested)"))
}

// StepCompleted notes a step that just succeeded.
func (p *Printer) StepCompleted(s steps.Step) {
	p.printf("%s %s\n", p.ok.Render(checkMark), s.Title)
}

// StepFailed notes the failing step.
func (p *Printer) StepFailed(s steps.Step, err error) {
	p.printf("%s %s: %v\n", p.fail.Render(crossMark), s.Title, err)
}

// ShowConfig prints every configuration field. Keys are listed by
// fingerprint when they parse.
func (p *Printer) ShowConfig(cfg *config.Config) {
	p.printf("\n%s\n", p.section.Render("Configuration"))
	row := func(label, value string) {
		p.printf("  %-12s %s\n", label+":", value)
	}
	row("Domain", cfg.Domain)
	row("Profile", string(cfg.Profile))
	row("Admin user", cfg.AdminUser)
	row("Sudo", string(cfg.SudoMode))
	row("Timezone", cfg.Timezone)
	row("Tunnel", yesNo(cfg.Tunnel))
	p.printf("  %-12s %d\n", "SSH keys:", len(cfg.SSHKeys))
	for _, k := range cfg.SSHKeys {
		p.printf("    - %s\n", describeKey(k))
	}
	p.printf("\n")
}

// ShowInvalid reports rejected input before the question is asked again.
func (p *Printer) ShowInvalid(err error) {
	p.printf("  %s %v\n", p.warn.Render("!"), err)
}

// AlreadyProvisioned reports a host whose completion marker is present.
func (p *Printer) AlreadyProvisioned(cfg *config.Config) {
	msg := "This host is already provisioned."
	if cfg != nil {
		msg = fmt.Sprintf("This host is already provisioned for %s (%s).", cfg.Domain, cfg.Profile)
	}
	p.printf("%s\n", p.ok.Render(msg))
	p.printf("  %s\n", p.hint.Render("Hint: rerun with --resume to re-verify, or use 'hostforge reset' to start over"))
}

// Completion prints the completion evaluation.
func (p *Printer) Completion(rep completion.Report) {
	if rep.Ready {
		p.printf("\n%s\n", p.ok.Render(fmt.Sprintf("Provisioning complete: %d/%d steps done.", len(rep.Required), len(rep.Required))))
		return
	}
	done := len(rep.Required) - len(rep.Missing)
	p.printf("\n%s\n", p.warn.Render(fmt.Sprintf("Provisioning incomplete: %d/%d steps done.", done, len(rep.Required))))
	p.printf("  Missing: %s\n", strings.Join(rep.Missing, ", "))
}

// Failure prints the failed step, what is left, and how to continue.
func (p *Printer) Failure(res *steps.Result, err error) {
	var actionErr *steps.ActionError
	if errors.As(err, &actionErr) {
		p.printf("\n%s\n", p.fail.Render("Error: step "+actionErr.Step+" failed"))
		p.printf("  %v\n", actionErr.Err)
	} else {
		p.printf("\n%s\n", p.fail.Render(fmt.Sprintf("Error: %v", err)))
	}
	if res != nil && len(res.Remaining) > 0 {
		p.printf("  Remaining: %s\n", strings.Join(res.Remaining, ", "))
	}
	p.printf("  %s\n", p.hint.Render("Hint: fix the problem and run 'hostforge --resume' to continue"))
}

// Error prints a styled error with optional detail and suggestion.
func (p *Printer) Error(title, detail, suggestion string) {
	p.printf("%s\n", p.fail.Render("Error: "+title))
	if detail != "" {
		p.printf("  %s\n", detail)
	}
	if suggestion != "" {
		p.printf("  %s\n", p.hint.Render("Hint: "+suggestion))
	}
}

// Info prints a plain line.
func (p *Printer) Info(msg string) {
	p.printf("%s\n", msg)
}

// StepTable prints the recorded status of every step in the plan for
// profile, conditional steps included.
func (p *Printer) StepTable(store state.Store, profile config.Profile) {
	p.printf("\n%s\n", p.section.Render("Steps"))
	for _, name := range catalog.StepNames {
		if profile != "" && !catalog.Applies(name, profile) {
			continue
		}
		st := store.Status(name)
		mark := p.dim.Render(pendMark)
		switch st {
		case state.StatusCompleted:
			mark = p.ok.Render(checkMark)
		case state.StatusSkipped:
			mark = p.dim.Render(skipMark)
		}
		p.printf("  %s %-18s %s\n", mark, name, p.dim.Render(st.String()))
	}
}

func describeKey(key string) string {
	fields := strings.Fields(key)
	fp, ok := artifacts.Fingerprint(key)
	if !ok {
		if len(fields) > 0 {
			return fields[0] + " (unparsed)"
		}
		return key
	}
	desc := fields[0] + " " + fp
	if len(fields) > 2 {
		desc += " " + strings.Join(fields[2:], " ")
	}
	return desc
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
