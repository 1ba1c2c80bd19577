package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "query_coordinator"

var (
	avgExecutionTimeDesc = prometheus.NewDesc(
		namespace+"_average_execution_time_ms",
		"Running mean execution time per query type in milliseconds",
		[]string{"query_type"}, nil,
	)
	executionsDesc = prometheus.NewDesc(
		namespace+"_executions_total",
		"Number of executions per query type",
		[]string{"query_type"}, nil,
	)
	cacheHitRateDesc = prometheus.NewDesc(
		namespace+"_cache_hit_rate",
		"Fraction of executions served from cache per query type",
		[]string{"query_type"}, nil,
	)
	slowQueriesDesc = prometheus.NewDesc(
		namespace+"_slow_queries_total",
		"Executions above the slow query threshold per query type",
		[]string{"query_type"}, nil,
	)
	indexEfficiencyDesc = prometheus.NewDesc(
		namespace+"_index_efficiency",
		"Index efficiency per query type",
		[]string{"query_type"}, nil,
	)
)

// Collector exposes a Registry to Prometheus. Values are read from a snapshot at
// scrape time.
type Collector struct {
	registry *Registry
}

func NewCollector(registry *Registry) *Collector {
	return &Collector{registry: registry}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- avgExecutionTimeDesc
	ch <- executionsDesc
	ch <- cacheHitRateDesc
	ch <- slowQueriesDesc
	ch <- indexEfficiencyDesc
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	for t, m := range c.registry.Snapshot() {
		label := t.String()
		ch <- prometheus.MustNewConstMetric(avgExecutionTimeDesc, prometheus.GaugeValue, m.AverageExecutionTime, label)
		ch <- prometheus.MustNewConstMetric(executionsDesc, prometheus.CounterValue, float64(m.TotalExecutions), label)
		ch <- prometheus.MustNewConstMetric(cacheHitRateDesc, prometheus.GaugeValue, m.CacheHitRate, label)
		ch <- prometheus.MustNewConstMetric(slowQueriesDesc, prometheus.CounterValue, float64(m.SlowQueries), label)
		ch <- prometheus.MustNewConstMetric(indexEfficiencyDesc, prometheus.GaugeValue, m.IndexEfficiency, label)
	}
}
