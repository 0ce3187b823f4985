package ui

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/lockwave-io/hostforge/internal/catalog"
	"github.com/lockwave-io/hostforge/internal/collector"
	"github.com/lockwave-io/hostforge/internal/completion"
	"github.com/lockwave-io/hostforge/internal/config"
	"github.com/lockwave-io/hostforge/internal/state"
	"github.com/lockwave-io/hostforge/internal/steps"
)

var (
	_ steps.Observer      = (*Printer)(nil)
	_ collector.Presenter = (*Printer)(nil)
)

func TestPrinter_StepProgress(t *testing.T) {
	var buf bytes.Buffer
	p := New(&buf)
	s := steps.Step{Name: catalog.StepFirewall, Title: "Firewall"}

	p.StepStarted(s, 3, 7)
	p.StepCompleted(s)
	p.StepSatisfied(s)
	p.StepSkipped(s)
	p.StepFailed(s, errors.New("exit 1"))

	out := buf.String()
	assert.Contains(t, out, "[..] Firewall (3/7 firewall)")
	assert.Contains(t, out, "[OK] Firewall\n")
	assert.Contains(t, out, "Firewall (already done)")
	assert.Contains(t, out, "Firewall (not requested)")
	assert.Contains(t, out, "[!!] Firewall: exit 1")
	assert.NotContains(t, out, "\x1b[", "no ANSI codes when the writer is not a terminal")
}

func TestPrinter_ShowConfig(t *testing.T) {
	var buf bytes.Buffer
	New(&buf).ShowConfig(&config.Config{
		Domain:    "example.com",
		Profile:   config.ProfileMonitoring,
		SSHKeys:   []string{"ssh-ed25519 AAAAC3NzaC1lZDI1NTE5AAAAIOMqqnkVzrm0SdG6UOoqKLsabgH5C9okWi0dh2l9GKJl ops@laptop", "ssh-rsa broken"},
		SudoMode:  config.SudoPassword,
		Timezone:  "UTC",
		Tunnel:    true,
		AdminUser: "deploy",
	})

	out := buf.String()
	assert.Contains(t, out, "example.com")
	assert.Contains(t, out, "monitoring")
	assert.Contains(t, out, "Tunnel:      yes")
	assert.Contains(t, out, "ssh-ed25519 SHA256:")
	assert.Contains(t, out, "ops@laptop")
	assert.Contains(t, out, "ssh-rsa (unparsed)")
}

func TestPrinter_Completion(t *testing.T) {
	var buf bytes.Buffer
	p := New(&buf)

	p.Completion(completion.Report{Ready: true, Required: []string{"a", "b"}})
	assert.Contains(t, buf.String(), "Provisioning complete: 2/2")

	buf.Reset()
	p.Completion(completion.Report{Required: []string{"a", "b", "c"}, Missing: []string{"b", "c"}})
	assert.Contains(t, buf.String(), "Provisioning incomplete: 1/3")
	assert.Contains(t, buf.String(), "Missing: b, c")
}

func TestPrinter_Failure(t *testing.T) {
	var buf bytes.Buffer
	res := &steps.Result{Failed: catalog.StepFirewall, Remaining: []string{catalog.StepFirewall, catalog.StepDockerInstall}}
	New(&buf).Failure(res, &steps.ActionError{Step: catalog.StepFirewall, Err: errors.New("exited with status 1")})

	out := buf.String()
	assert.Contains(t, out, "step firewall failed")
	assert.Contains(t, out, "Remaining: firewall, docker_install")
	assert.Contains(t, out, "--resume")
}

func TestPrinter_StepTable(t *testing.T) {
	var buf bytes.Buffer
	store := state.NewMemoryStore(map[string]state.Status{
		catalog.StepVMSetup:          state.StatusCompleted,
		catalog.StepCloudflaredSetup: state.StatusSkipped,
	})
	New(&buf).StepTable(store, config.ProfileMinimal)

	out := buf.String()
	assert.Contains(t, out, "[OK] vm_setup")
	assert.Contains(t, out, "[--] cloudflared_setup")
	assert.Contains(t, out, "[  ] firewall")
	assert.NotContains(t, out, catalog.StepMonitoringStack)
}
