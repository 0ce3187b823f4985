// Package metrics exports the provisioning state as a node_exporter textfile,
// so a monitoring stack can alert on hosts that never finished.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/lockwave-io/hostforge/internal/catalog"
	"github.com/lockwave-io/hostforge/internal/completion"
	"github.com/lockwave-io/hostforge/internal/config"
	"github.com/lockwave-io/hostforge/internal/state"
)

// Textfile writes a fresh .prom file after every run.
type Textfile struct {
	Path string
	// Now defaults to time.Now.
	Now func() time.Time
}

// Record replaces the textfile with the current step state and completion.
func (t *Textfile) Record(store state.Store, cfg *config.Config, rep completion.Report) error {
	reg := prometheus.NewRegistry()

	stepStatus := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "hostforge",
			Name:      "step_status",
			Help:      "Recorded step status, one series per status; 1 for the current one",
		},
		[]string{"step", "status"},
	)
	provisioned := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "hostforge",
			Name:      "provisioned",
			Help:      "1 when every required step for the profile is completed",
		},
		[]string{"domain", "profile"},
	)
	missing := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "hostforge",
			Name:      "missing_steps",
			Help:      "Number of required steps not yet completed",
		},
	)
	lastRun := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "hostforge",
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time of the last provisioning run",
		},
	)
	reg.MustRegister(stepStatus, provisioned, missing, lastRun)

	for _, name := range catalog.StepNames {
		current := store.Status(name)
		for _, st := range []state.Status{state.StatusCompleted, state.StatusSkipped, state.StatusUnset} {
			v := 0.0
			if st == current {
				v = 1
			}
			stepStatus.WithLabelValues(name, st.String()).Set(v)
		}
	}
	ready := 0.0
	if rep.Ready {
		ready = 1
	}
	provisioned.WithLabelValues(cfg.Domain, string(cfg.Profile)).Set(ready)
	missing.Set(float64(len(rep.Missing)))

	now := time.Now
	if t.Now != nil {
		now = t.Now
	}
	lastRun.Set(float64(now().Unix()))

	if err := os.MkdirAll(filepath.Dir(t.Path), 0o755); err != nil {
		return fmt.Errorf("metrics: mkdir: %w", err)
	}
	if err := prometheus.WriteToTextfile(t.Path, reg); err != nil {
		return fmt.Errorf("metrics: write %s: %w", t.Path, err)
	}
	return nil
}
