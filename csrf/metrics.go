package csrf

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

type metrics struct {
	decisions *prometheus.CounterVec
}

func newMetrics(reg prometheus.Registerer) *metrics {
	decisions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "csrf_requests_total",
		Help: "Requests evaluated by the CSRF filter, by decision and reason.",
	}, []string{"decision", "reason"})
	if reg != nil {
		if err := reg.Register(decisions); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
					decisions = existing
				}
			}
		}
	}
	return &metrics{decisions: decisions}
}

func (m *metrics) observe(d Decision, reason string) {
	m.decisions.WithLabelValues(d.String(), reason).Inc()
}
