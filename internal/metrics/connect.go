// Package metrics defines the Prometheus instruments for the connect
// flows. Standalone package to avoid import cycles between services
// and HTTP packages.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	ConnectStarts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "connect_start_total",
		Help: "Authorization flows started, by platform",
	}, []string{"platform"})

	ConnectCallbacks = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "connect_callback_total",
		Help: "Callback outcomes, by platform and result code",
	}, []string{"platform", "result"})

	ExchangeDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "connect_exchange_duration_seconds",
		Help:    "Wall time of the token exchange plus profile fetch",
		Buckets: prometheus.DefBuckets,
	}, []string{"platform"})
)

// Register registers the connect metrics on the given registry (or the
// default if nil). Double registration is tolerated so tests can wire
// the service repeatedly.
func Register(reg prometheus.Registerer) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	for _, c := range []prometheus.Collector{ConnectStarts, ConnectCallbacks, ExchangeDuration} {
		if err := reg.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				return err
			}
		}
	}
	return nil
}
