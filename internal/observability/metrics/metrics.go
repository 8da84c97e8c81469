package metrics

import "github.com/prometheus/client_golang/prometheus"

// ConfirmationMetrics exposes counters for the scheduler, its jobs and
// the notification pipeline.
type ConfirmationMetrics struct {
	ticksTotal         prometheus.Counter
	jobRunsTotal       *prometheus.CounterVec
	notificationsTotal *prometheus.CounterVec
	importRowsTotal    *prometheus.CounterVec
}

func NewConfirmationMetrics(reg prometheus.Registerer) *ConfirmationMetrics {
	m := &ConfirmationMetrics{
		ticksTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "confirmor",
			Subsystem: "scheduler",
			Name:      "ticks_total",
			Help:      "Total scheduler ticks",
		}),
		jobRunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "confirmor",
			Subsystem: "scheduler",
			Name:      "job_runs_total",
			Help:      "Total per-clinic job runs",
		}, []string{"job", "outcome"}),
		notificationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "confirmor",
			Subsystem: "notify",
			Name:      "notifications_total",
			Help:      "Total notification attempts by template",
		}, []string{"channel", "template", "status"}),
		importRowsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "confirmor",
			Subsystem: "csvimport",
			Name:      "rows_total",
			Help:      "Total CSV import rows by outcome",
		}, []string{"outcome"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.ticksTotal, m.jobRunsTotal, m.notificationsTotal, m.importRowsTotal)
	return m
}

func (m *ConfirmationMetrics) ObserveTick() {
	if m == nil {
		return
	}
	m.ticksTotal.Inc()
}

func (m *ConfirmationMetrics) ObserveJobRun(job, outcome string) {
	if m == nil {
		return
	}
	m.jobRunsTotal.WithLabelValues(job, outcome).Inc()
}

func (m *ConfirmationMetrics) ObserveNotification(channel, template, status string) {
	if m == nil {
		return
	}
	m.notificationsTotal.WithLabelValues(channel, template, status).Inc()
}

func (m *ConfirmationMetrics) ObserveImportRows(outcome string, n int) {
	if m == nil {
		return
	}
	m.importRowsTotal.WithLabelValues(outcome).Add(float64(n))
}
