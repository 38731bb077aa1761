package triage

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds Prometheus metrics for the triage subsystem.
type Metrics struct {
	TriagesTotal     *prometheus.CounterVec
	FallbacksTotal   *prometheus.CounterVec
	AdvisorCalls     *prometheus.CounterVec
	AdvisorDuration  prometheus.Histogram
	AdvisorTokensIn  prometheus.Counter
	AdvisorTokensOut prometheus.Counter
}

// NewMetrics registers and returns triage metrics on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		TriagesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sahayak_triages_total",
			Help: "Total classifications by severity and provenance.",
		}, []string{"severity", "provenance"}),
		FallbacksTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sahayak_fallbacks_total",
			Help: "Classifications answered by the rule scorer, by reason.",
		}, []string{"reason"}),
		AdvisorCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sahayak_advisor_calls_total",
			Help: "Advisor calls by outcome.",
		}, []string{"outcome"}),
		AdvisorDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "sahayak_advisor_duration_seconds",
			Help:    "Duration of advisor calls in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 8), // 0.25s .. ~32s
		}),
		AdvisorTokensIn: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sahayak_advisor_tokens_input_total",
			Help: "Total advisor input tokens consumed.",
		}),
		AdvisorTokensOut: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sahayak_advisor_tokens_output_total",
			Help: "Total advisor output tokens consumed.",
		}),
	}

	reg.MustRegister(
		m.TriagesTotal,
		m.FallbacksTotal,
		m.AdvisorCalls,
		m.AdvisorDuration,
		m.AdvisorTokensIn,
		m.AdvisorTokensOut,
	)

	// pre-create fallback series so dashboards see zeros
	for _, r := range FailureReasons() {
		m.FallbacksTotal.WithLabelValues(string(r))
	}

	return m
}

// Hooks returns an EngineHooks that increments the corresponding metrics.
func (m *Metrics) Hooks() EngineHooks {
	return EngineHooks{
		OnAdvisorCall: func(inputTokens, outputTokens int, duration float64, reason FailureReason) {
			outcome := "success"
			if reason != ReasonNone {
				outcome = string(reason)
			}
			m.AdvisorCalls.WithLabelValues(outcome).Inc()
			m.AdvisorTokensIn.Add(float64(inputTokens))
			m.AdvisorTokensOut.Add(float64(outputTokens))
			m.AdvisorDuration.Observe(duration)
		},
		OnOutcome: func(d *Decision) {
			m.TriagesTotal.WithLabelValues(string(d.Result.Severity), string(d.Result.Provenance)).Inc()
			if d.Reason != ReasonNone {
				m.FallbacksTotal.WithLabelValues(string(d.Reason)).Inc()
			}
		},
	}
}
