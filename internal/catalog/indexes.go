package catalog

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"go-query-coordinator/internal/model"
)

// IndexCatalogVersion is bumped whenever an index definition changes.
const IndexCatalogVersion = 3

const (
	idxUserEventsUserCreated   = "idx_user_events_user_created"
	idxUserEventsScreenCreated = "idx_user_events_screen_created"
	idxUserEventsSession       = "idx_user_events_session"
	idxScreenMetricsScreen     = "idx_screen_metrics_screen_created"
	idxScreenMetricsSlow       = "idx_screen_metrics_slow_loads"
	idxContentCategoryViews    = "idx_content_items_category_views"
	idxContentTags             = "idx_content_items_tags"
	idxContentLocation         = "idx_content_items_location"
	idxPreferencesUserCategory = "idx_user_preferences_user_category"
)

var indexDefinitions = []model.IndexDefinition{
	{
		TableName:   "user_events",
		IndexName:   idxUserEventsUserCreated,
		Columns:     []string{"user_id", "created_at"},
		Type:        model.IndexBTree,
		Description: "Per-user event timelines and session summaries",
	},
	{
		TableName:   "user_events",
		IndexName:   idxUserEventsScreenCreated,
		Columns:     []string{"screen_name", "created_at"},
		Type:        model.IndexBTree,
		Description: "Screen flow and drop-off analysis over recent events",
	},
	{
		TableName:   "user_events",
		IndexName:   idxUserEventsSession,
		Columns:     []string{"session_id"},
		Type:        model.IndexHash,
		Description: "Equality lookups of all events in one session",
	},
	{
		TableName:   "screen_metrics",
		IndexName:   idxScreenMetricsScreen,
		Columns:     []string{"screen_name", "created_at"},
		Type:        model.IndexBTree,
		Description: "Load and render time aggregation per screen",
	},
	{
		TableName:   "screen_metrics",
		IndexName:   idxScreenMetricsSlow,
		Columns:     []string{"screen_name", "load_time_ms"},
		Type:        model.IndexBTree,
		Partial:     "load_time_ms > 1000",
		Description: "Slow screen loads only, kept small by the partial predicate",
	},
	{
		TableName:   "content_items",
		IndexName:   idxContentCategoryViews,
		Columns:     []string{"category", "view_count", "created_at"},
		Type:        model.IndexBTree,
		Description: "Trending categories ranked by views",
	},
	{
		TableName:   "content_items",
		IndexName:   idxContentTags,
		Columns:     []string{"tags"},
		Type:        model.IndexGIN,
		Description: "Tag containment for recommendation candidates",
	},
	{
		TableName:   "content_items",
		IndexName:   idxContentLocation,
		Columns:     []string{"location"},
		Type:        model.IndexGiST,
		Description: "Nearby content for location-based trending",
	},
	{
		TableName:   "user_preferences",
		IndexName:   idxPreferencesUserCategory,
		Columns:     []string{"user_id", "category"},
		Type:        model.IndexBTree,
		Unique:      true,
		Description: "One affinity row per user and category",
	},
}

// IndexCatalog is the versioned, static list of recommended indexes.
type IndexCatalog struct {
	Version     int
	definitions []model.IndexDefinition
}

// Indexes returns the built-in index catalog.
func Indexes() IndexCatalog {
	return IndexCatalog{Version: IndexCatalogVersion, definitions: indexDefinitions}
}

// NewIndexCatalog builds a catalog from custom definitions after validating them.
func NewIndexCatalog(version int, definitions []model.IndexDefinition) (IndexCatalog, error) {
	c := IndexCatalog{Version: version, definitions: definitions}
	if err := c.Validate(); err != nil {
		return IndexCatalog{}, err
	}
	return c, nil
}

// Definitions returns a copy of the definitions in declaration order.
func (c IndexCatalog) Definitions() []model.IndexDefinition {
	out := make([]model.IndexDefinition, len(c.definitions))
	for i, d := range c.definitions {
		d.Columns = append([]string(nil), d.Columns...)
		out[i] = d
	}
	return out
}

func (c IndexCatalog) Lookup(indexName string) (model.IndexDefinition, bool) {
	for _, d := range c.definitions {
		if d.IndexName == indexName {
			return d, true
		}
	}
	return model.IndexDefinition{}, false
}

// Validate checks names are unique, columns are present and types are known.
func (c IndexCatalog) Validate() error {
	seen := make(map[string]bool, len(c.definitions))
	for _, d := range c.definitions {
		switch {
		case d.IndexName == "":
			return errors.Errorf("index on %s has no name", d.TableName)
		case seen[d.IndexName]:
			return errors.Errorf("duplicate index name %s", d.IndexName)
		case d.TableName == "":
			return errors.Errorf("index %s has no table", d.IndexName)
		case len(d.Columns) == 0:
			return errors.Errorf("index %s has no columns", d.IndexName)
		case !d.Type.Valid():
			return errors.Errorf("index %s has unknown type %q", d.IndexName, d.Type)
		}
		seen[d.IndexName] = true
	}
	return nil
}

// GenerateCreationStatements emits one idempotent, non-blocking CREATE INDEX per
// definition, in declaration order, each preceded by its description as a comment.
func (c IndexCatalog) GenerateCreationStatements() []string {
	statements := make([]string, 0, len(c.definitions))
	for _, d := range c.definitions {
		statements = append(statements, creationStatement(d))
	}
	return statements
}

func creationStatement(d model.IndexDefinition) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "-- %s\n", d.Description)
	sb.WriteString("CREATE ")
	if d.Unique {
		sb.WriteString("UNIQUE ")
	}
	fmt.Fprintf(&sb, "INDEX CONCURRENTLY IF NOT EXISTS %s ON %s USING %s (%s)",
		d.IndexName, d.TableName, d.Type, strings.Join(d.Columns, ", "))
	if d.Partial != "" {
		fmt.Fprintf(&sb, " WHERE %s", d.Partial)
	}
	sb.WriteByte(';')
	return sb.String()
}
