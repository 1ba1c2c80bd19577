package store

import (
	"context"
	"database/sql"
	"strings"

	"github.com/avast/retry-go"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"go-query-coordinator/internal/model"
)

// Drivers registered for target databases.
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "pgx"
)

var ErrUnknownDriver = errors.New("unknown driver")

// OpenTarget opens the database catalog queries run against.
func OpenTarget(driver, dsn string) (*sql.DB, error) {
	switch driver {
	case DriverSQLite, DriverPostgres:
	default:
		return nil, errors.Wrapf(ErrUnknownDriver, "%q", driver)
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s target", driver)
	}
	return db, nil
}

// SQLAccessor runs queries on a database/sql handle and retries transient
// driver errors.
type SQLAccessor struct {
	db    *sql.DB
	retry model.RetryConfig
}

func NewSQLAccessor(db *sql.DB, retryConfig model.RetryConfig) *SQLAccessor {
	if retryConfig.MaxAttempts <= 0 {
		retryConfig.MaxAttempts = 1
	}
	return &SQLAccessor{db: db, retry: retryConfig}
}

func (a *SQLAccessor) Execute(ctx context.Context, query model.Query) (model.RawResult, error) {
	var rows []map[string]interface{}
	err := a.do(ctx, query.ID, func() error {
		var err error
		rows, err = a.query(ctx, query)
		return err
	})
	if err != nil {
		return model.RawResult{}, err
	}
	return model.RawResult{Data: rows, RowsAffected: int64(len(rows))}, nil
}

// Apply executes statements one by one, stopping at the first failure.
func (a *SQLAccessor) Apply(ctx context.Context, statements []string) error {
	for i, stmt := range statements {
		err := a.do(ctx, "apply", func() error {
			_, err := a.db.ExecContext(ctx, stmt)
			return err
		})
		if err != nil {
			return errors.Wrapf(err, "statement %d", i+1)
		}
	}
	return nil
}

func (a *SQLAccessor) do(ctx context.Context, op string, fn func() error) error {
	return retry.Do(fn,
		retry.Context(ctx),
		retry.Attempts(uint(a.retry.MaxAttempts)),
		retry.Delay(a.retry.InitialDelay),
		retry.MaxDelay(a.retry.MaxDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(a.retryable),
		retry.OnRetry(func(n uint, err error) {
			log.WithFields(log.Fields{"op": op, "attempt": n + 1}).WithError(err).Warn("retrying query")
		}),
	)
}

// retryable matches the error text against the configured transient errors.
func (a *SQLAccessor) retryable(err error) bool {
	msg := strings.ToLower(err.Error())
	for _, candidate := range a.retry.RetryableErrors {
		if candidate != "" && strings.Contains(msg, strings.ToLower(candidate)) {
			return true
		}
	}
	return false
}

func (a *SQLAccessor) query(ctx context.Context, q model.Query) ([]map[string]interface{}, error) {
	rows, err := a.db.QueryContext(ctx, q.Body, q.Args()...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	out := []map[string]interface{}{}
	for rows.Next() {
		values := make([]interface{}, len(columns))
		ptrs := make([]interface{}, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make(map[string]interface{}, len(columns))
		for i, col := range columns {
			if b, ok := values[i].([]byte); ok {
				row[col] = string(b)
				continue
			}
			row[col] = values[i]
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
