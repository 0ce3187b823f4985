// Package steps describes the provisioning steps and runs them in order,
// resuming from whatever the state store already records.
package steps

import (
	"fmt"
	"slices"

	"github.com/lockwave-io/hostforge/internal/artifacts"
	"github.com/lockwave-io/hostforge/internal/catalog"
	"github.com/lockwave-io/hostforge/internal/config"
	"github.com/lockwave-io/hostforge/internal/proxyconf"
)

// Artifact names. They also name the HOSTFORGE_ARTIFACT_* variables.
const (
	ArtifactAuthorizedKeys = "authorized_keys"
	ArtifactSudoers        = "sudoers"
	ArtifactSSHDropIn      = "sshd_hardening.conf"
	ArtifactCaddyfile      = "Caddyfile"
	ArtifactCompose        = "compose.yaml"
)

// Step is one entry of the ordered step list.
type Step struct {
	Name     string
	Title    string
	Profiles []config.Profile
	// Condition gates conditional steps. Nil means the step always runs
	// when its profile requires it.
	Condition func(*config.Config) bool
	// Artifacts renders the files handed to the step's action. Nil means
	// the step has none.
	Artifacts func(*config.Config) ([]artifacts.File, error)
}

// AppliesTo reports whether the step belongs to the plan for p.
func (s Step) AppliesTo(p config.Profile) bool {
	return slices.Contains(s.Profiles, p)
}

// Wanted reports whether the step should run for cfg.
func (s Step) Wanted(cfg *config.Config) bool {
	return s.Condition == nil || s.Condition(cfg)
}

// DefaultSteps returns the step list in execution order.
func DefaultSteps() []Step {
	titles := map[string]string{
		catalog.StepVMSetup:          "Base system and admin user",
		catalog.StepSSHHardening:     "SSH hardening",
		catalog.StepFirewall:         "Firewall",
		catalog.StepDockerInstall:    "Docker engine",
		catalog.StepDockerNetworks:   "Docker networks",
		catalog.StepDomainConfig:     "Domain configuration",
		catalog.StepCloudflaredSetup: "Cloudflare tunnel",
		catalog.StepReverseProxy:     "Reverse proxy",
		catalog.StepMonitoringStack:  "Monitoring stack",
		catalog.StepAppStack:         "Application stack",
	}

	list := make([]Step, 0, len(catalog.StepNames))
	for _, name := range catalog.StepNames {
		s := Step{
			Name:     name,
			Title:    titles[name],
			Profiles: profilesFor(name),
		}
		switch name {
		case catalog.StepVMSetup:
			s.Artifacts = vmSetupArtifacts
		case catalog.StepSSHHardening:
			s.Artifacts = sshArtifacts
		case catalog.StepCloudflaredSetup:
			s.Condition = func(cfg *config.Config) bool { return cfg.Tunnel }
		case catalog.StepReverseProxy:
			s.Artifacts = proxyArtifacts
		}
		list = append(list, s)
	}
	return list
}

func profilesFor(step string) []config.Profile {
	var out []config.Profile
	for _, p := range config.Profiles {
		if catalog.Applies(step, p) {
			out = append(out, p)
		}
	}
	return out
}

func vmSetupArtifacts(cfg *config.Config) ([]artifacts.File, error) {
	return []artifacts.File{
		{Name: ArtifactAuthorizedKeys, Content: []byte(artifacts.RenderAuthorizedKeys(cfg.SSHKeys))},
		{Name: ArtifactSudoers, Content: []byte(artifacts.RenderSudoers(cfg))},
	}, nil
}

func sshArtifacts(cfg *config.Config) ([]artifacts.File, error) {
	return []artifacts.File{
		{Name: ArtifactSSHDropIn, Content: []byte(artifacts.RenderSSHDropIn(cfg))},
	}, nil
}

func proxyArtifacts(cfg *config.Config) ([]artifacts.File, error) {
	caddyfile, err := proxyconf.Generate(cfg.Domain, cfg.Profile)
	if err != nil {
		return nil, fmt.Errorf("render Caddyfile: %w", err)
	}
	compose, err := proxyconf.Descriptor(cfg.Domain, cfg.Profile)
	if err != nil {
		return nil, fmt.Errorf("render compose descriptor: %w", err)
	}
	return []artifacts.File{
		{Name: ArtifactCaddyfile, Content: []byte(caddyfile), Mode: 0o644},
		{Name: ArtifactCompose, Content: compose, Mode: 0o644},
	}, nil
}

// Plan returns the steps that apply to p, in order.
func Plan(list []Step, p config.Profile) []Step {
	var out []Step
	for _, s := range list {
		if s.AppliesTo(p) {
			out = append(out, s)
		}
	}
	return out
}
