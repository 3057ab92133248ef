package metrics

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/alejandrodnm/offerbot/internal/domain"
)

const namespace = "offerbot"

// Textfile implementa ports.MetricsSink escribiendo un fichero para el
// textfile collector de node_exporter. Cada run usa un registry nuevo para que
// el fichero refleje solo el último run.
type Textfile struct {
	path string
}

// NewTextfile crea el sink. El directorio se crea si no existe.
func NewTextfile(path string) (*Textfile, error) {
	if path == "" {
		return nil, fmt.Errorf("metrics.NewTextfile: empty path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("metrics.NewTextfile: %w", err)
	}
	return &Textfile{path: path}, nil
}

// Record vuelca las métricas del run al fichero.
func (t *Textfile) Record(r *domain.RunReport) error {
	reg := Collect(r)
	if err := prometheus.WriteToTextfile(t.path, reg); err != nil {
		return fmt.Errorf("metrics.Record: %w", err)
	}
	return nil
}

// Collect construye un registry con los gauges del run.
func Collect(r *domain.RunReport) *prometheus.Registry {
	reg := prometheus.NewRegistry()

	gauge := func(name, help string, v float64) {
		g := prometheus.NewGauge(prometheus.GaugeOpts{Namespace: namespace, Name: name, Help: help})
		g.Set(v)
		reg.MustRegister(g)
	}

	gauge("balance_sats", "Spendable on-chain balance seen by the last run.", float64(r.Capital.Balance))
	gauge("allocatable_sats", "Capital available for channel sales in the last run.", float64(r.Capital.TotalAllocatable))
	gauge("market_pool_size", "Comparable market offers in the last run.", float64(r.Market.PoolSize))
	gauge("market_unavailable", "1 if the market read failed in the last run.", boolFloat(r.Market.Unavailable))
	gauge("last_run_timestamp_seconds", "Unix time the last run started.", float64(r.StartedAt.Unix()))
	gauge("last_run_aborted", "1 if the last run aborted before applying changes.", boolFloat(r.Aborted != ""))
	gauge("last_run_dry", "1 if the last run was a dry run.", boolFloat(r.DryRun))
	gauge("decision_errors", "Failed decisions in the last run.", float64(len(r.Errors())))

	decisions := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "decisions",
		Help:      "Decisions of the last run by kind.",
	}, []string{"kind"})
	for kind, n := range r.CountByKind() {
		decisions.WithLabelValues(string(kind)).Set(float64(n))
	}
	reg.MustRegister(decisions)

	return reg
}

func boolFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
