package ethereum

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// metrics counts contract reads by method so operators can see where quote
// latency goes.
type metrics struct {
	calls  *prometheus.CounterVec
	errors *prometheus.CounterVec
}

func newMetrics(registerer prometheus.Registerer) *metrics {
	if registerer == nil {
		registerer = prometheus.NewRegistry()
	}
	factory := promauto.With(registerer)
	return &metrics{
		calls: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "quoter",
			Subsystem: "chain",
			Name:      "contract_calls_total",
			Help:      "Contract read calls issued, by method.",
		}, []string{"method"}),
		errors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "quoter",
			Subsystem: "chain",
			Name:      "contract_call_errors_total",
			Help:      "Contract read calls that failed, by method.",
		}, []string{"method"}),
	}
}
