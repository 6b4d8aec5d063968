// Package metrics exposes Prometheus counters/gauges/histograms for the
// protocol engine: package-level collectors registered in init(), called
// directly from the production code paths they instrument rather than
// injected as a dependency.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	resourcesDeclared = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "zpico_resources_declared",
		Help: "Current number of declared local resources.",
	})

	subscriptionsActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "zpico_subscriptions_active",
		Help: "Current number of active local subscriptions.",
	})

	queryablesActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "zpico_queryables_active",
		Help: "Current number of active local queryables.",
	})

	framesSent = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "zpico_frames_sent_total",
		Help: "Total number of Frame transport messages sent.",
	})

	framesReceived = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "zpico_frames_received_total",
		Help: "Total number of Frame transport messages received.",
	})

	fragmentsSent = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "zpico_fragments_sent_total",
		Help: "Total number of Fragment transport messages sent.",
	})

	fragmentsReceived = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "zpico_fragments_received_total",
		Help: "Total number of Fragment transport messages received.",
	})

	reassembliesCompleted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "zpico_reassemblies_completed_total",
		Help: "Total number of fragment sequences successfully reassembled.",
	})

	reassemblyAborts = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "zpico_reassembly_aborts_total",
		Help: "Total number of fragment reassemblies aborted (sn gap or size limit).",
	})

	pendingQueryTimeouts = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "zpico_pending_query_timeouts_total",
		Help: "Total number of Get() queries finalized by timeout rather than by replies.",
	})

	schedulerTaskLatencyMs = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "zpico_scheduler_task_latency_ms",
		Help:    "Lateness, in milliseconds, between a scheduler task's due time and its actual fire time.",
		Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 250, 500, 1000},
	})

	kafkaRecordsConsumed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "zpico_kafkabridge_records_consumed_total",
		Help: "Total number of Kafka records consumed by the bridge.",
	})

	kafkaRecordsPublished = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "zpico_kafkabridge_records_published_total",
		Help: "Total number of Kafka records republished as a local put().",
	})

	kafkaPublishErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "zpico_kafkabridge_publish_errors_total",
		Help: "Total number of put() failures while republishing a Kafka record.",
	})
)

func init() {
	prometheus.MustRegister(
		resourcesDeclared,
		subscriptionsActive,
		queryablesActive,
		framesSent,
		framesReceived,
		fragmentsSent,
		fragmentsReceived,
		reassembliesCompleted,
		reassemblyAborts,
		pendingQueryTimeouts,
		schedulerTaskLatencyMs,
		kafkaRecordsConsumed,
		kafkaRecordsPublished,
		kafkaPublishErrors,
	)
}

func SetResourcesDeclared(n int)    { resourcesDeclared.Set(float64(n)) }
func SetSubscriptionsActive(n int)  { subscriptionsActive.Set(float64(n)) }
func SetQueryablesActive(n int)     { queryablesActive.Set(float64(n)) }

func RecordFrameSent()              { framesSent.Inc() }
func RecordFrameReceived()          { framesReceived.Inc() }
func RecordFragmentSent()           { fragmentsSent.Inc() }
func RecordFragmentReceived()       { fragmentsReceived.Inc() }
func RecordReassemblyCompleted()    { reassembliesCompleted.Inc() }
func RecordReassemblyAbort()        { reassemblyAborts.Inc() }
func RecordPendingQueryTimeout()    { pendingQueryTimeouts.Inc() }

func ObserveSchedulerTaskLatency(ms uint64) { schedulerTaskLatencyMs.Observe(float64(ms)) }

func RecordKafkaConsumed()  { kafkaRecordsConsumed.Inc() }
func RecordKafkaPublished() { kafkaRecordsPublished.Inc() }
func RecordKafkaPublishError() { kafkaPublishErrors.Inc() }

// Handler serves the Prometheus exposition format at the caller's chosen
// mux pattern (conventionally "/metrics").
func Handler() http.Handler {
	return promhttp.Handler()
}
