package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the pipeline's prometheus collectors.
type Metrics struct {
	EventsDiscovered *prometheus.CounterVec
	FetchErrors      *prometheus.CounterVec
	PollCycles       *prometheus.CounterVec
	CycleDuration    *prometheus.SummaryVec
	Classifications  *prometheus.CounterVec
	ResponsesSent    *prometheus.CounterVec
	AdsCreated       *prometheus.CounterVec
	QueueDepth       prometheus.Gauge
}

// New builds and registers the collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		EventsDiscovered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "salesradar",
			Name:      "events_discovered_total",
			Help:      "Content events emitted by crawlers",
		}, []string{"platform", "kind"}),
		FetchErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "salesradar",
			Name:      "fetch_errors_total",
			Help:      "Per-target fetch failures (watermark not advanced)",
		}, []string{"platform", "target"}),
		PollCycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "salesradar",
			Name:      "poll_cycles_total",
			Help:      "Completed poll cycles per platform",
		}, []string{"platform"}),
		CycleDuration: prometheus.NewSummaryVec(prometheus.SummaryOpts{
			Namespace: "salesradar",
			Name:      "cycle_duration_seconds",
			Help:      "Time spent per poll cycle",
		}, []string{"platform"}),
		Classifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "salesradar",
			Name:      "classifications_total",
			Help:      "Classifier outcomes by result (high_intent|low_intent|error)",
		}, []string{"result"}),
		ResponsesSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "salesradar",
			Name:      "responses_sent_total",
			Help:      "Reply dispatch attempts by status",
		}, []string{"platform", "status"}),
		AdsCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "salesradar",
			Name:      "ads_created_total",
			Help:      "Ad creation jobs by terminal status",
		}, []string{"status"}),
		QueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "salesradar",
			Name:      "queue_depth",
			Help:      "Events waiting in the pipeline queue",
		}),
	}
	reg.MustRegister(
		m.EventsDiscovered, m.FetchErrors, m.PollCycles, m.CycleDuration,
		m.Classifications, m.ResponsesSent, m.AdsCreated, m.QueueDepth,
	)
	return m
}
