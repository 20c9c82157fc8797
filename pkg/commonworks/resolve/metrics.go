package resolve

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	resultHit   = "hit"
	resultMiss  = "miss"
	resultError = "error"
)

type metricsResolve struct {
	once    sync.Once
	lookups *prometheus.CounterVec
}

var resMetrics metricsResolve

func (m *metricsResolve) init() {
	m.once.Do(func() {
		m.lookups = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "commonworks_resolve_lookups_total",
			Help: "Natural-key lookups by entity kind and result",
		}, []string{"kind", "result"})
		prometheus.MustRegister(m.lookups)
	})
}

func recordLookup(kind, result string) {
	resMetrics.init()
	resMetrics.lookups.WithLabelValues(kind, result).Inc()
}
