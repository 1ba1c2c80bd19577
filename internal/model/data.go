package model

import "time"

// RawResult is what the data-access collaborator returns for one query.
type RawResult struct {
	Data         interface{} `json:"data"`
	RowsAffected int64       `json:"rows_affected"`
	FromCache    bool        `json:"from_cache"`
	IndexesUsed  []string    `json:"indexes_used,omitempty"`
}

// QueryResult is the executor's output for one query of a batch. A non-empty Error
// marks a query that failed while its siblings may have succeeded.
type QueryResult struct {
	QueryID       string        `json:"query_id"`
	Type          QueryType     `json:"type"`
	Data          interface{}   `json:"data,omitempty"`
	ExecutionTime time.Duration `json:"execution_time"`
	RowsAffected  int64         `json:"rows_affected"`
	FromCache     bool          `json:"from_cache"`
	IndexesUsed   []string      `json:"indexes_used"`
	Error         string        `json:"error,omitempty"`
	Err           error         `json:"-"`
}

// ExecutionMillis is the execution time in fractional milliseconds.
func (r QueryResult) ExecutionMillis() float64 {
	return float64(r.ExecutionTime) / float64(time.Millisecond)
}

func (r QueryResult) Failed() bool {
	return r.Err != nil || r.Error != ""
}
