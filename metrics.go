package echo

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

/*
Prometheus metrics for RPC transports: a call counter labeled by method and
status, and a call duration histogram labeled by method. A nil
"*TransMetrics" is valid and records nothing.

For "call" requests, the method label is the API method name (e.g.
"call_contract_no_changing_state"), not "call".
*/
type TransMetrics struct {
	calls    *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

/*
Creates transport metrics and registers them with the provided registerer.
Pass "prometheus.DefaultRegisterer" to expose them on the default handler.
Panics if the metrics are already registered with the same registerer.
*/
func NewTransMetrics(reg prometheus.Registerer) *TransMetrics {
	factory := promauto.With(reg)

	return &TransMetrics{
		calls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "echo",
				Subsystem: "rpc",
				Name:      "calls_total",
				Help:      "Total number of RPC calls made to Echo nodes",
			},
			[]string{"method", "status"},
		),
		duration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "echo",
				Subsystem: "rpc",
				Name:      "call_duration_seconds",
				Help:      "RPC call duration in seconds",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10},
			},
			[]string{"method"},
		),
	}
}

func (self *TransMetrics) observe(method string, start time.Time, err error) {
	if self == nil {
		return
	}

	status := "ok"
	if err != nil {
		status = "error"
	}

	self.calls.WithLabelValues(method, status).Inc()
	self.duration.WithLabelValues(method).Observe(time.Since(start).Seconds())
}

// Name of the method being invoked, looking through the "call" envelope.
func metricMethod(method string, params []interface{}) string {
	if method == "call" && len(params) >= 2 {
		if name, ok := params[1].(string); ok {
			return name
		}
	}
	return method
}
