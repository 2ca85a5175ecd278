package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/relplan/relplan/internal/errors"
)

type metrics struct {
	checks        *prometheus.CounterVec
	checkDuration *prometheus.HistogramVec
	phaseDuration *prometheus.HistogramVec
	phaseErrors   *prometheus.CounterVec
	packages      *prometheus.GaugeVec
}

func newMetrics(registerer prometheus.Registerer) (*metrics, error) {
	m := &metrics{
		checks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "registry_checks_total",
			Help:      "Registry existence checks by channel and resulting status.",
		}, []string{"channel", "status"}),
		checkDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "registry_check_duration_seconds",
			Help:      "Duration of registry existence checks, retries included.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"channel"}),
		phaseDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "phase_duration_seconds",
			Help:      "Duration of each phase of a run.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"phase"}),
		phaseErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "phase_errors_total",
			Help:      "Failed phases by error kind.",
		}, []string{"phase", "kind"}),
		packages: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "packages",
			Help:      "Packages seen in the last run by state.",
		}, []string{"state"}),
	}

	for _, collector := range []prometheus.Collector{m.checks, m.checkDuration, m.phaseDuration, m.phaseErrors, m.packages} {
		if err := registerer.Register(collector); err != nil {
			return nil, errors.New(err)
		}
	}

	return m, nil
}
