package model

import (
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
)

// StringList is stored as a JSON array in a single text column.
type StringList []string

func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(l))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (l *StringList) Scan(src interface{}) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*l = nil
		return nil
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return errors.Errorf("cannot scan %T into StringList", src)
	}
	return json.Unmarshal(raw, (*[]string)(l))
}

// BatchRecord is the journaled view of a batch.
type BatchRecord struct {
	ID          string       `json:"id" db:"id"`
	Priority    string       `json:"priority" db:"priority"`
	Status      BatchStatus  `json:"status" db:"status"`
	QueryIDs    StringList   `json:"query_ids" db:"query_ids"`
	TimeoutMs   int64        `json:"timeout_ms" db:"timeout_ms"`
	CreatedAt   time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at" db:"updated_at"`
	CompletedAt sql.NullTime `json:"-" db:"completed_at"`
}

// BatchError is one error recorded against a batch. QueryID is empty for
// batch-level failures.
type BatchError struct {
	ID           int64     `json:"id" db:"id"`
	BatchID      string    `json:"batch_id" db:"batch_id"`
	QueryID      string    `json:"query_id,omitempty" db:"query_id"`
	ErrorMessage string    `json:"error_message" db:"error_message"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// QueryExecution is one journaled query run.
type QueryExecution struct {
	ID           int64      `json:"id" db:"id"`
	BatchID      string     `json:"batch_id" db:"batch_id"`
	QueryID      string     `json:"query_id" db:"query_id"`
	QueryType    string     `json:"query_type" db:"query_type"`
	ExecutionMs  float64    `json:"execution_ms" db:"execution_ms"`
	RowsAffected int64      `json:"rows_affected" db:"rows_affected"`
	FromCache    bool       `json:"from_cache" db:"from_cache"`
	IndexesUsed  StringList `json:"indexes_used" db:"indexes_used"`
	Error        string     `json:"error,omitempty" db:"error"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
}

// BatchFilter narrows a batch listing. Zero values match everything.
type BatchFilter struct {
	Status   BatchStatus
	Priority string
	Limit    uint
}
