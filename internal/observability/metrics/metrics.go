package metrics

import "github.com/prometheus/client_golang/prometheus"

// SchedulingMetrics exposes counters/histograms for availability checks and bookings.
type SchedulingMetrics struct {
	checksTotal   *prometheus.CounterVec
	checkLatency  *prometheus.HistogramVec
	bookingsTotal *prometheus.CounterVec
}

func NewSchedulingMetrics(reg prometheus.Registerer) *SchedulingMetrics {
	m := &SchedulingMetrics{
		checksTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "crm",
			Subsystem: "availability",
			Name:      "checks_total",
			Help:      "Total availability checks by outcome",
		}, []string{"outcome"}),
		checkLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "crm",
			Subsystem: "availability",
			Name:      "check_latency_seconds",
			Help:      "Latency of availability checks including store reads",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		bookingsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "crm",
			Subsystem: "appointments",
			Name:      "bookings_total",
			Help:      "Appointment booking attempts by source and outcome",
		}, []string{"source", "outcome"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.checksTotal, m.checkLatency, m.bookingsTotal)
	return m
}

// ObserveCheck records one availability verdict. outcome is free, conflict or error.
func (m *SchedulingMetrics) ObserveCheck(outcome string) {
	if m == nil {
		return
	}
	m.checksTotal.WithLabelValues(outcome).Inc()
}

func (m *SchedulingMetrics) ObserveCheckLatency(operation string, seconds float64) {
	if m == nil {
		return
	}
	m.checkLatency.WithLabelValues(operation).Observe(seconds)
}

// ObserveBooking records a booking attempt from the REST API or the assistant.
func (m *SchedulingMetrics) ObserveBooking(source, outcome string) {
	if m == nil {
		return
	}
	m.bookingsTotal.WithLabelValues(source, outcome).Inc()
}
