// Package completion decides whether a host is fully provisioned.
package completion

import (
	"slices"

	"github.com/lockwave-io/hostforge/internal/catalog"
	"github.com/lockwave-io/hostforge/internal/config"
	"github.com/lockwave-io/hostforge/internal/state"
)

// Report is the outcome of an evaluation. Missing keeps execution order.
type Report struct {
	Ready    bool
	Required []string
	Missing  []string
}

// Evaluate checks that every step required by profile is completed, plus the
// tunnel step when one was requested. Skipped steps never count as done.
func Evaluate(store state.Store, profile config.Profile, tunnelRequested bool) Report {
	required := catalog.RequiredSteps(profile)
	if tunnelRequested {
		required = append(required, catalog.StepCloudflaredSetup)
	}
	ordered := make([]string, 0, len(required))
	for _, name := range catalog.StepNames {
		if slices.Contains(required, name) {
			ordered = append(ordered, name)
		}
	}

	rep := Report{Required: ordered}
	for _, name := range ordered {
		if !store.IsCompleted(name) {
			rep.Missing = append(rep.Missing, name)
		}
	}
	rep.Ready = len(ordered) > 0 && len(rep.Missing) == 0
	return rep
}
