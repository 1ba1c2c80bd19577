package model

import "time"

// QueryPerformanceMetrics are the rolling counters kept for one query type.
type QueryPerformanceMetrics struct {
	QueryType            QueryType `json:"query_type"`
	AverageExecutionTime float64   `json:"average_execution_time_ms"`
	TotalExecutions      int64     `json:"total_executions"`
	CacheHitRate         float64   `json:"cache_hit_rate"`
	SlowQueries          int64     `json:"slow_queries"`
	IndexEfficiency      float64   `json:"index_efficiency"`
	LastExecutedAt       time.Time `json:"last_executed_at,omitempty"`
}

// SlowQueryRatio is SlowQueries / TotalExecutions, or 0 with no executions.
func (m QueryPerformanceMetrics) SlowQueryRatio() float64 {
	if m.TotalExecutions == 0 {
		return 0
	}
	return float64(m.SlowQueries) / float64(m.TotalExecutions)
}

// AdvisorReport is the advisor's textual output for one query type.
type AdvisorReport struct {
	QueryType          QueryType `json:"query_type"`
	Recommendations    []string  `json:"recommendations"`
	IndexSuggestions   []string  `json:"index_suggestions"`
	QueryOptimizations []string  `json:"query_optimizations"`
}
