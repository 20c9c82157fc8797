package ingest

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/cognicore/commonworks/pkg/commonworks/document"
)

// metricsIngest holds Prometheus metrics for the ingestion pipeline.
type metricsIngest struct {
	once sync.Once

	runs           *prometheus.CounterVec
	transactions   *prometheus.CounterVec
	rejected       *prometheus.CounterVec
	batches        *prometheus.CounterVec
	batchItems     *prometheus.CounterVec
	participations prometheus.Counter
	runDuration    prometheus.Histogram
}

var ingMetrics metricsIngest

func (m *metricsIngest) init() {
	m.once.Do(func() {
		m.runs = prometheus.NewCounterVec(prometheus.CounterOpts{Name: "commonworks_ingest_runs_total", Help: "Ingestion runs by outcome"}, []string{"result"})
		m.transactions = prometheus.NewCounterVec(prometheus.CounterOpts{Name: "commonworks_ingest_transactions_total", Help: "Transactions by group type and outcome"}, []string{"group", "outcome"})
		m.rejected = prometheus.NewCounterVec(prometheus.CounterOpts{Name: "commonworks_ingest_rejected_nodes_total", Help: "Nodes removed by the rejection filter"}, []string{"level"})
		m.batches = prometheus.NewCounterVec(prometheus.CounterOpts{Name: "commonworks_ingest_batches_total", Help: "Store batch writes"}, []string{"kind", "op", "result"})
		m.batchItems = prometheus.NewCounterVec(prometheus.CounterOpts{Name: "commonworks_ingest_batch_items_total", Help: "Entities written in successful batches"}, []string{"kind", "op"})
		m.participations = prometheus.NewCounter(prometheus.CounterOpts{Name: "commonworks_ingest_participation_appends_total", Help: "Participations appended to stored parties"})

		buckets := []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30}
		m.runDuration = prometheus.NewHistogram(prometheus.HistogramOpts{Name: "commonworks_ingest_run_seconds", Help: "Duration of a whole run", Buckets: buckets})

		prometheus.MustRegister(
			m.runs, m.transactions, m.rejected,
			m.batches, m.batchItems, m.participations,
			m.runDuration,
		)
	})
}

const (
	outcomeIngested = "ingested"
	outcomeDropped  = "dropped"
)

func recordRun(result string, d time.Duration) {
	ingMetrics.init()
	ingMetrics.runs.WithLabelValues(result).Inc()
	ingMetrics.runDuration.Observe(d.Seconds())
}

func recordTransaction(group, outcome string) {
	ingMetrics.init()
	ingMetrics.transactions.WithLabelValues(group, outcome).Inc()
}

func recordRejected(s document.FilterStats) {
	ingMetrics.init()
	for level, n := range map[string]int{
		"group":       s.Groups,
		"transaction": s.Transactions,
		"territory":   s.Territories,
		"party":       s.Parties,
		"publisher":   s.Publishers,
		"block":       s.Blocks,
	} {
		if n > 0 {
			ingMetrics.rejected.WithLabelValues(level).Add(float64(n))
		}
	}
}

func recordBatch(kind, op string, n int, err error) {
	ingMetrics.init()
	if err != nil {
		ingMetrics.batches.WithLabelValues(kind, op, "error").Inc()
		return
	}
	ingMetrics.batches.WithLabelValues(kind, op, "ok").Inc()
	ingMetrics.batchItems.WithLabelValues(kind, op).Add(float64(n))
}

func recordParticipationAppend(n int) {
	if n == 0 {
		return
	}
	ingMetrics.init()
	ingMetrics.participations.Add(float64(n))
}
