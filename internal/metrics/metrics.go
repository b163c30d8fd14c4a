package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"sanctions-risk-engine/internal/types"
)

const namespace = "sanctions"

// Report outcome labels
const (
	StatusOK      = "ok"
	StatusPartial = "partial"
	StatusFailed  = "failed"
)

// Recorder holds the engine's collectors on a private registry
type Recorder struct {
	registry *prometheus.Registry

	sectionDuration *prometheus.HistogramVec
	sectionErrors   *prometheus.CounterVec
	reports         *prometheus.CounterVec

	lastTransactions    prometheus.Gauge
	lastPercentHighRisk prometheus.Gauge
	lastPenalty         prometheus.Gauge
	lastPenaltyAtRisk   prometheus.Gauge
}

// New registers every collector on a fresh registry
func New() *Recorder {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	return &Recorder{
		registry: reg,
		sectionDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "section_duration_seconds",
			Help:      "Time spent computing one report section.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 9),
		}, []string{"section"}),
		sectionErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "section_errors_total",
			Help:      "Report section failures by section and error kind.",
		}, []string{"section", "kind"}),
		reports: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reports_total",
			Help:      "Compliance reports generated by mode and outcome.",
		}, []string{"mode", "status"}),
		lastTransactions: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_report_transactions",
			Help:      "Transactions screened by the last successful report.",
		}),
		lastPercentHighRisk: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_report_percent_high_risk",
			Help:      "Share of high-risk transactions in the last successful report.",
		}),
		lastPenalty: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_report_potential_penalty",
			Help:      "Total potential penalty of the last successful report.",
		}),
		lastPenaltyAtRisk: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_report_penalty_at_risk",
			Help:      "Penalty-at-risk percentile of the last successful report.",
		}),
	}
}

// Registry exposes the private registry for exporting
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// ObserveSection records a section's duration and, when err is set, its failure
func (r *Recorder) ObserveSection(section string, d time.Duration, err error) {
	r.sectionDuration.WithLabelValues(section).Observe(d.Seconds())
	if err != nil {
		r.sectionErrors.WithLabelValues(section, types.ErrorKind(err)).Inc()
	}
}

// ObserveReport counts a finished report. A nil report counts as failed.
func (r *Recorder) ObserveReport(mode types.ReportMode, report *types.ComplianceReport) {
	status := StatusOK
	switch {
	case report == nil:
		status = StatusFailed
	case report.HasErrors():
		status = StatusPartial
	}
	r.reports.WithLabelValues(string(mode), status).Inc()
	if report == nil {
		return
	}

	s := report.Summary
	r.lastTransactions.Set(float64(s.TransactionCount))
	r.lastPercentHighRisk.Set(s.PercentHighRisk)
	r.lastPenalty.Set(s.PotentialPenaltyExposure.InexactFloat64())
	r.lastPenaltyAtRisk.Set(s.PenaltyAtRisk.InexactFloat64())
}

// WriteTextfile writes the current metrics in the text exposition format,
// suitable for the node exporter's textfile collector
func (r *Recorder) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.registry)
}
