package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"
)

var (
	ErrUnknownQueryType = errors.New("unknown query type")
	ErrUnknownPriority  = errors.New("unknown priority")
	ErrUnknownParameter = errors.New("unknown query parameter")
)

// SlowQueryThreshold is the latency above which a single execution counts as slow.
const SlowQueryThreshold = 1000 * time.Millisecond

// QueryType is the closed set of query categories used to key metrics.
type QueryType int

const (
	QueryTypeUserBehavior QueryType = iota
	QueryTypeScreenPerformance
	QueryTypeTrendingAnalysis
	QueryTypeRecommendationData

	numQueryTypes
)

var queryTypeNames = [numQueryTypes]string{
	QueryTypeUserBehavior:       "user_behavior",
	QueryTypeScreenPerformance:  "screen_performance",
	QueryTypeTrendingAnalysis:   "trending_analysis",
	QueryTypeRecommendationData: "recommendation_data",
}

// AllQueryTypes returns every query type in declaration order.
func AllQueryTypes() []QueryType {
	types := make([]QueryType, 0, numQueryTypes)
	for t := QueryType(0); t < numQueryTypes; t++ {
		types = append(types, t)
	}
	return types
}

func (t QueryType) Valid() bool {
	return t >= 0 && t < numQueryTypes
}

func (t QueryType) String() string {
	if !t.Valid() {
		return fmt.Sprintf("query_type(%d)", int(t))
	}
	return queryTypeNames[t]
}

func (t QueryType) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, errors.Wrapf(ErrUnknownQueryType, "%d", int(t))
	}
	return []byte(t.String()), nil
}

func (t *QueryType) UnmarshalText(text []byte) error {
	parsed, err := ParseQueryType(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// ParseQueryType accepts the snake_case name of a query type.
func ParseQueryType(s string) (QueryType, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for t, n := range queryTypeNames {
		if n == name {
			return QueryType(t), nil
		}
	}
	return 0, errors.Wrapf(ErrUnknownQueryType, "%q", s)
}

// Priority orders batches for dispatch. Higher values are drained first.
type Priority int

const (
	PriorityLow Priority = iota
	PriorityMedium
	PriorityHigh
)

var priorityNames = map[Priority]string{
	PriorityLow:    "low",
	PriorityMedium: "medium",
	PriorityHigh:   "high",
}

var priorityTimeouts = map[Priority]time.Duration{
	PriorityHigh:   5 * time.Second,
	PriorityMedium: 15 * time.Second,
	PriorityLow:    30 * time.Second,
}

func (p Priority) Valid() bool {
	_, ok := priorityNames[p]
	return ok
}

func (p Priority) String() string {
	if name, ok := priorityNames[p]; ok {
		return name
	}
	return fmt.Sprintf("priority(%d)", int(p))
}

// Timeout is the fixed pending deadline for a batch of this priority.
func (p Priority) Timeout() time.Duration {
	return priorityTimeouts[p]
}

func (p Priority) MarshalText() ([]byte, error) {
	if !p.Valid() {
		return nil, errors.Wrapf(ErrUnknownPriority, "%d", int(p))
	}
	return []byte(p.String()), nil
}

func (p *Priority) UnmarshalText(text []byte) error {
	parsed, err := ParsePriority(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

func ParsePriority(s string) (Priority, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for p, n := range priorityNames {
		if n == name {
			return p, nil
		}
	}
	return 0, errors.Wrapf(ErrUnknownPriority, "%q", s)
}

// Parameter is one named placeholder of a query body.
type Parameter struct {
	Name  string      `json:"name"`
	Value interface{} `json:"value"`
}

// Query is an immutable, parameterized query descriptor. Methods that change it
// return a copy.
type Query struct {
	ID            string      `json:"id"`
	Type          QueryType   `json:"type"`
	Body          string      `json:"body"`
	Parameters    []Parameter `json:"parameters"`
	EstimatedCost int         `json:"estimated_cost"`
	Indexes       []string    `json:"indexes"`
}

// Bind returns a copy of q with the given placeholder values set. Placeholders keep
// their declared order; names q does not declare are rejected.
func (q Query) Bind(params ...Parameter) (Query, error) {
	bound := q.clone()
	for _, p := range params {
		found := false
		for i := range bound.Parameters {
			if bound.Parameters[i].Name == p.Name {
				bound.Parameters[i].Value = p.Value
				found = true
				break
			}
		}
		if !found {
			return Query{}, errors.Wrapf(ErrUnknownParameter, "%s has no parameter %q", q.ID, p.Name)
		}
	}
	return bound, nil
}

// Args returns the parameter values in placeholder order.
func (q Query) Args() []interface{} {
	args := make([]interface{}, len(q.Parameters))
	for i, p := range q.Parameters {
		args[i] = p.Value
	}
	return args
}

// CacheKey identifies the query together with its bound values.
func (q Query) CacheKey() string {
	var sb strings.Builder
	sb.WriteString(q.Type.String())
	sb.WriteByte('/')
	sb.WriteString(q.ID)
	for _, p := range q.Parameters {
		fmt.Fprintf(&sb, "|%s=%v", p.Name, p.Value)
	}
	return sb.String()
}

// DeclaresIndex reports whether name is one of the indexes q is expected to use.
func (q Query) DeclaresIndex(name string) bool {
	for _, idx := range q.Indexes {
		if idx == name {
			return true
		}
	}
	return false
}

func (q Query) clone() Query {
	c := q
	c.Parameters = append([]Parameter(nil), q.Parameters...)
	c.Indexes = append([]string(nil), q.Indexes...)
	return c
}
