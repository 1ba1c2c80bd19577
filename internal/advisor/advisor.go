package advisor

import (
	"fmt"
	"time"

	"go-query-coordinator/internal/model"
)

// MetricsSource is the read side of the metrics registry.
type MetricsSource interface {
	Get(model.QueryType) (model.QueryPerformanceMetrics, bool)
}

// IndexHints names the indexes a query type is expected to use.
type IndexHints func(model.QueryType) []string

// Advisor turns registry state into recommendations.
type Advisor struct {
	source     MetricsSource
	thresholds model.AdvisorConfig
	hints      IndexHints
}

type Option func(*Advisor)

func WithThresholds(th model.AdvisorConfig) Option {
	return func(a *Advisor) {
		a.thresholds = th
	}
}

// WithIndexHints adds the declared indexes of a type to its index suggestions.
func WithIndexHints(hints IndexHints) Option {
	return func(a *Advisor) {
		a.hints = hints
	}
}

func New(source MetricsSource, opts ...Option) *Advisor {
	a := &Advisor{source: source, thresholds: model.DefaultAdvisorConfig}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Analyze reports on one query type. It never fails: a type without recorded
// executions gets a single informational recommendation.
func (a *Advisor) Analyze(t model.QueryType) model.AdvisorReport {
	m, ok := a.source.Get(t)
	if !ok || m.TotalExecutions == 0 {
		return noData(t)
	}
	var declared []string
	if a.hints != nil {
		declared = a.hints(t)
	}
	return Evaluate(t, m, a.thresholds, declared)
}

// AnalyzeAll reports on every query type in declaration order.
func (a *Advisor) AnalyzeAll() []model.AdvisorReport {
	reports := make([]model.AdvisorReport, 0, len(model.AllQueryTypes()))
	for _, t := range model.AllQueryTypes() {
		reports = append(reports, a.Analyze(t))
	}
	return reports
}

func noData(t model.QueryType) model.AdvisorReport {
	return model.AdvisorReport{
		QueryType:          t,
		Recommendations:    []string{fmt.Sprintf("No performance data available for %s queries", t)},
		IndexSuggestions:   []string{},
		QueryOptimizations: []string{},
	}
}

// Evaluate applies the four independent checks to m. Emission order is slow
// average, cache hit rate, index efficiency, slow query ratio.
func Evaluate(t model.QueryType, m model.QueryPerformanceMetrics, th model.AdvisorConfig, declaredIndexes []string) model.AdvisorReport {
	report := model.AdvisorReport{
		QueryType:          t,
		Recommendations:    []string{},
		IndexSuggestions:   []string{},
		QueryOptimizations: []string{},
	}
	thresholdMs := float64(th.SlowQueryThreshold) / float64(time.Millisecond)

	if m.AverageExecutionTime > thresholdMs {
		report.Recommendations = append(report.Recommendations, fmt.Sprintf(
			"%s queries average %.0fms, above the %.0fms slow query threshold", t, m.AverageExecutionTime, thresholdMs))
		report.QueryOptimizations = append(report.QueryOptimizations,
			"Add a LIMIT clause to unbounded result sets",
			"Review WHERE clause selectivity so filters hit indexed columns first",
		)
	}

	if m.CacheHitRate < th.MinCacheHitRate {
		report.Recommendations = append(report.Recommendations, fmt.Sprintf(
			"%s cache hit rate is %.0f%%, below the %.0f%% target", t, m.CacheHitRate*100, th.MinCacheHitRate*100))
		report.QueryOptimizations = append(report.QueryOptimizations,
			"Increase the result cache TTL for this query type",
			"Review which parameters vary per call and keep cache keys stable",
		)
	}

	if m.IndexEfficiency < th.MinIndexEfficiency {
		report.Recommendations = append(report.Recommendations, fmt.Sprintf(
			"%s index efficiency is %.2f, below %.2f", t, m.IndexEfficiency, th.MinIndexEfficiency))
		report.IndexSuggestions = append(report.IndexSuggestions,
			fmt.Sprintf("Consider composite indexes covering the filter and sort columns of %s queries", t),
			fmt.Sprintf("Review %s query patterns against the existing indexes", t),
		)
		for _, idx := range declaredIndexes {
			report.IndexSuggestions = append(report.IndexSuggestions, fmt.Sprintf("Verify index %s exists and is valid", idx))
		}
	}

	if ratio := m.SlowQueryRatio(); ratio > th.MaxSlowQueryRatio {
		report.Recommendations = append(report.Recommendations, fmt.Sprintf(
			"%.0f%% of %s executions were slow (%d of %d)", ratio*100, t, m.SlowQueries, m.TotalExecutions))
		report.QueryOptimizations = append(report.QueryOptimizations,
			"Rewrite the query to reduce the rows scanned",
			"Review JOINs and correlated subqueries for cheaper equivalents",
		)
	}

	return report
}
