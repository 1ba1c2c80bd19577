package catalog

import (
	"go-query-coordinator/internal/model"
)

// Query templates grouped by concern, written for PostgreSQL. Parameters are
// bound positionally ($1, $2, ...) in declaration order.
var (
	userBehaviorQueries = []model.Query{
		{
			ID:   "user_session_summary",
			Type: model.QueryTypeUserBehavior,
			Body: `SELECT session_id, COUNT(*) AS events, SUM(duration_ms) AS total_duration_ms,
       MIN(created_at) AS started_at, MAX(created_at) AS ended_at
FROM user_events
WHERE user_id = $1 AND created_at >= NOW() - make_interval(days => $2)
GROUP BY session_id
ORDER BY started_at DESC`,
			Parameters:    params("user_id", "days"),
			EstimatedCost: 3,
			Indexes:       []string{idxUserEventsUserCreated, idxUserEventsSession},
		},
		{
			ID:   "user_screen_flow",
			Type: model.QueryTypeUserBehavior,
			Body: `SELECT screen_name, event_type, created_at
FROM user_events
WHERE user_id = $1
ORDER BY created_at DESC
LIMIT $2`,
			Parameters:    params("user_id", "limit"),
			EstimatedCost: 2,
			Indexes:       []string{idxUserEventsUserCreated},
		},
		{
			ID:   "screen_drop_off_points",
			Type: model.QueryTypeUserBehavior,
			Body: `SELECT screen_name, COUNT(DISTINCT session_id) AS exits
FROM user_events
WHERE event_type = 'session_end' AND created_at >= NOW() - make_interval(days => $1)
GROUP BY screen_name
ORDER BY exits DESC`,
			Parameters:    params("days"),
			EstimatedCost: 5,
			Indexes:       []string{idxUserEventsScreenCreated},
		},
	}

	screenPerformanceQueries = []model.Query{
		{
			ID:   "screen_load_times",
			Type: model.QueryTypeScreenPerformance,
			Body: `SELECT screen_name, AVG(load_time_ms) AS avg_load_ms, AVG(render_time_ms) AS avg_render_ms,
       COUNT(*) AS samples
FROM screen_metrics
WHERE created_at >= NOW() - make_interval(hours => $1)
GROUP BY screen_name`,
			Parameters:    params("hours"),
			EstimatedCost: 4,
			Indexes:       []string{idxScreenMetricsScreen},
		},
		{
			ID:   "slowest_screens",
			Type: model.QueryTypeScreenPerformance,
			Body: `SELECT screen_name, device_type, MAX(load_time_ms) AS worst_load_ms, COUNT(*) AS slow_loads
FROM screen_metrics
WHERE load_time_ms > 1000
GROUP BY screen_name, device_type
ORDER BY worst_load_ms DESC
LIMIT $1`,
			Parameters:    params("limit"),
			EstimatedCost: 3,
			Indexes:       []string{idxScreenMetricsSlow},
		},
		{
			ID:   "screen_error_rates",
			Type: model.QueryTypeScreenPerformance,
			Body: `SELECT screen_name, SUM(error_count)::float / NULLIF(COUNT(*), 0) AS error_rate
FROM screen_metrics
WHERE screen_name = $1 AND created_at >= NOW() - make_interval(days => $2)
GROUP BY screen_name`,
			Parameters:    params("screen_name", "days"),
			EstimatedCost: 2,
			Indexes:       []string{idxScreenMetricsScreen},
		},
	}

	trendingQueries = []model.Query{
		{
			ID:   "trending_categories",
			Type: model.QueryTypeTrendingAnalysis,
			Body: `SELECT category, SUM(view_count) AS views, SUM(like_count) AS likes
FROM content_items
WHERE created_at >= NOW() - make_interval(days => $1)
GROUP BY category
ORDER BY views DESC
LIMIT $2`,
			Parameters:    params("days", "limit"),
			EstimatedCost: 6,
			Indexes:       []string{idxContentCategoryViews},
		},
		{
			ID:   "trending_nearby",
			Type: model.QueryTypeTrendingAnalysis,
			Body: `SELECT id, category, view_count
FROM content_items
WHERE location <-> point($1, $2) < $3
ORDER BY view_count DESC
LIMIT 20`,
			Parameters:    params("lat", "lng", "radius"),
			EstimatedCost: 8,
			Indexes:       []string{idxContentLocation},
		},
	}

	recommendationQueries = []model.Query{
		{
			ID:   "user_category_affinity",
			Type: model.QueryTypeRecommendationData,
			Body: `SELECT category, weight
FROM user_preferences
WHERE user_id = $1
ORDER BY weight DESC`,
			Parameters:    params("user_id"),
			EstimatedCost: 1,
			Indexes:       []string{idxPreferencesUserCategory},
		},
		{
			ID:   "items_matching_tags",
			Type: model.QueryTypeRecommendationData,
			Body: `SELECT id, category, tags, view_count
FROM content_items
WHERE tags && $1
ORDER BY view_count DESC
LIMIT $2`,
			Parameters:    params("tags", "limit"),
			EstimatedCost: 5,
			Indexes:       []string{idxContentTags},
		},
		{
			ID:   "popular_unseen_items",
			Type: model.QueryTypeRecommendationData,
			Body: `SELECT c.id, c.category, c.view_count
FROM content_items c
JOIN user_preferences p ON p.category = c.category AND p.user_id = $1
WHERE NOT EXISTS (
    SELECT 1 FROM user_events e WHERE e.user_id = $1 AND e.screen_name = 'item:' || c.id
)
ORDER BY p.weight DESC, c.view_count DESC
LIMIT $2`,
			Parameters:    params("user_id", "limit"),
			EstimatedCost: 9,
			Indexes:       []string{idxPreferencesUserCategory, idxContentCategoryViews, idxUserEventsUserCreated},
		},
	}
)

func params(names ...string) []model.Parameter {
	out := make([]model.Parameter, len(names))
	for i, n := range names {
		out[i] = model.Parameter{Name: n}
	}
	return out
}

// copyQueries hands out fresh slices so callers cannot mutate the templates.
func copyQueries(in []model.Query) []model.Query {
	out := make([]model.Query, len(in))
	for i, q := range in {
		q.Parameters = append([]model.Parameter(nil), q.Parameters...)
		q.Indexes = append([]string(nil), q.Indexes...)
		out[i] = q
	}
	return out
}

func UserBehaviorQueries() []model.Query { return copyQueries(userBehaviorQueries) }

func ScreenPerformanceQueries() []model.Query { return copyQueries(screenPerformanceQueries) }

func TrendingQueries() []model.Query { return copyQueries(trendingQueries) }

func RecommendationQueries() []model.Query { return copyQueries(recommendationQueries) }

// ForType returns the queries of one category. Unknown types yield nil.
func ForType(t model.QueryType) []model.Query {
	switch t {
	case model.QueryTypeUserBehavior:
		return UserBehaviorQueries()
	case model.QueryTypeScreenPerformance:
		return ScreenPerformanceQueries()
	case model.QueryTypeTrendingAnalysis:
		return TrendingQueries()
	case model.QueryTypeRecommendationData:
		return RecommendationQueries()
	}
	return nil
}

// All returns every catalog query, grouped in query type order.
func All() []model.Query {
	var all []model.Query
	for _, t := range model.AllQueryTypes() {
		all = append(all, ForType(t)...)
	}
	return all
}

// Lookup finds a catalog query by id.
func Lookup(id string) (model.Query, bool) {
	for _, q := range All() {
		if q.ID == id {
			return q, true
		}
	}
	return model.Query{}, false
}

// IndexesForType returns the distinct index names declared by a category's queries,
// in first-seen order.
func IndexesForType(t model.QueryType) []string {
	var names []string
	seen := map[string]bool{}
	for _, q := range ForType(t) {
		for _, idx := range q.Indexes {
			if !seen[idx] {
				seen[idx] = true
				names = append(names, idx)
			}
		}
	}
	return names
}
