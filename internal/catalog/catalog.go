// Package catalog holds the fixed step universe and the immutable table that
// maps each deployment profile to its required steps and example routes.
package catalog

import (
	"slices"

	"github.com/lockwave-io/hostforge/internal/config"
)

// Step names, in execution order.
const (
	StepVMSetup          = "vm_setup"
	StepSSHHardening     = "ssh_hardening"
	StepFirewall         = "firewall"
	StepDockerInstall    = "docker_install"
	StepDockerNetworks   = "docker_networks"
	StepDomainConfig     = "domain_config"
	StepCloudflaredSetup = "cloudflared_setup"
	StepReverseProxy     = "reverse_proxy"
	StepMonitoringStack  = "monitoring_stack"
	StepAppStack         = "app_stack"
)

// StepNames is the complete, totally ordered step universe.
var StepNames = []string{
	StepVMSetup,
	StepSSHHardening,
	StepFirewall,
	StepDockerInstall,
	StepDockerNetworks,
	StepDomainConfig,
	StepCloudflaredSetup,
	StepReverseProxy,
	StepMonitoringStack,
	StepAppStack,
}

// ConditionalSteps are never required by a profile; they run only when the
// configuration requests them.
var ConditionalSteps = []string{StepCloudflaredSetup}

// Route is a commented example route the proxy config offers for a profile.
type Route struct {
	Subdomain string
	Upstream  string
	Comment   string
}

// ProfileSpec is one row of the profile table.
type ProfileSpec struct {
	Profile  config.Profile
	Steps    []string
	Routes   []Route
	Networks []string
}

var baseSteps = []string{
	StepVMSetup,
	StepSSHHardening,
	StepFirewall,
	StepDockerInstall,
	StepDockerNetworks,
	StepDomainConfig,
	StepReverseProxy,
}

var monitoringRoutes = []Route{
	{Subdomain: "grafana", Upstream: "grafana:3000", Comment: "Grafana dashboards"},
	{Subdomain: "prometheus", Upstream: "prometheus:9090", Comment: "Prometheus UI (keep behind origin_restrict)"},
	{Subdomain: "status", Upstream: "uptime-kuma:3001", Comment: "Uptime Kuma status page"},
}

var appRoutes = []Route{
	{Subdomain: "app", Upstream: "app:8000", Comment: "Example application"},
}

var table = []ProfileSpec{
	{
		Profile:  config.ProfileFullStack,
		Steps:    append(slices.Clone(baseSteps), StepMonitoringStack, StepAppStack),
		Routes:   append(slices.Clone(monitoringRoutes), appRoutes...),
		Networks: []string{"proxy", "monitoring", "apps"},
	},
	{
		Profile:  config.ProfileMonitoring,
		Steps:    append(slices.Clone(baseSteps), StepMonitoringStack),
		Routes:   slices.Clone(monitoringRoutes),
		Networks: []string{"proxy", "monitoring"},
	},
	{
		Profile:  config.ProfileMinimal,
		Steps:    slices.Clone(baseSteps),
		Networks: []string{"proxy"},
	},
}

// Lookup returns the table row for p.
func Lookup(p config.Profile) (ProfileSpec, bool) {
	for _, spec := range table {
		if spec.Profile == p {
			return ProfileSpec{
				Profile:  spec.Profile,
				Steps:    slices.Clone(spec.Steps),
				Routes:   slices.Clone(spec.Routes),
				Networks: slices.Clone(spec.Networks),
			}, true
		}
	}
	return ProfileSpec{}, false
}

// RequiredSteps returns the steps p requires, in execution order.
func RequiredSteps(p config.Profile) []string {
	spec, ok := Lookup(p)
	if !ok {
		return nil
	}
	return spec.Steps
}

// Applies reports whether step is part of the plan for p, either as a
// required step or as a conditional one.
func Applies(step string, p config.Profile) bool {
	return slices.Contains(RequiredSteps(p), step) || IsConditional(step)
}

// IsConditional reports whether step only runs on request.
func IsConditional(step string) bool {
	return slices.Contains(ConditionalSteps, step)
}

// Known reports whether name is in the step universe.
func Known(name string) bool {
	return slices.Contains(StepNames, name)
}

// Index returns the position of name in execution order, or -1.
func Index(name string) int {
	return slices.Index(StepNames, name)
}
