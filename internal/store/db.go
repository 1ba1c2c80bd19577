package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
	"k8s.io/utils/clock"

	"go-query-coordinator/internal/model"
)

var ErrNotFound = errors.New("not found")

const defaultListLimit = 100

var (
	batchesTable         = goqu.T("batches")
	batchErrorsTable     = goqu.T("batch_errors")
	queryExecutionsTable = goqu.T("query_executions")
)

var schema = []string{
	`
	CREATE TABLE IF NOT EXISTS batches (
		id TEXT PRIMARY KEY,
		priority TEXT NOT NULL,
		status TEXT NOT NULL,
		query_ids TEXT NOT NULL,
		timeout_ms INTEGER NOT NULL,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		completed_at DATETIME
	);
	`,
	`
	CREATE TABLE IF NOT EXISTS batch_errors (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		batch_id TEXT NOT NULL,
		query_id TEXT NOT NULL DEFAULT '',
		error_message TEXT NOT NULL,
		created_at DATETIME NOT NULL
	);
	`,
	`
	CREATE TABLE IF NOT EXISTS query_executions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		batch_id TEXT NOT NULL,
		query_id TEXT NOT NULL,
		query_type TEXT NOT NULL,
		execution_ms REAL NOT NULL,
		rows_affected INTEGER NOT NULL,
		from_cache BOOLEAN NOT NULL,
		indexes_used TEXT NOT NULL,
		error TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL
	);
	`,
	`CREATE INDEX IF NOT EXISTS idx_batch_errors_batch ON batch_errors (batch_id);`,
	`CREATE INDEX IF NOT EXISTS idx_query_executions_batch ON query_executions (batch_id);`,
}

// DB is the sqlite batch journal.
type DB struct {
	db    *sql.DB
	goqu  *goqu.Database
	clock clock.PassiveClock
}

// Open creates the journal tables at path if needed.
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errors.Wrapf(err, "opening journal %s", path)
	}
	// sqlite allows one writer; a single connection avoids SQLITE_BUSY between
	// the scheduler and executor goroutines.
	db.SetMaxOpenConns(1)

	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, errors.Wrap(err, "creating journal schema")
		}
	}
	return &DB{
		db:    db,
		goqu:  goqu.New("sqlite3", db),
		clock: clock.RealClock{},
	}, nil
}

func (d *DB) Close() error {
	return d.db.Close()
}

func (d *DB) now() time.Time {
	return d.clock.Now().UTC()
}

// SaveBatch stores a newly submitted batch as pending.
func (d *DB) SaveBatch(ctx context.Context, batch *model.Batch) error {
	ids := make(model.StringList, len(batch.Queries))
	for i, q := range batch.Queries {
		ids[i] = q.ID
	}
	now := d.now()
	_, err := d.goqu.Insert(batchesTable).Rows(goqu.Record{
		"id":         batch.ID,
		"priority":   batch.Priority.String(),
		"status":     string(model.BatchPending),
		"query_ids":  ids,
		"timeout_ms": batch.Timeout.Milliseconds(),
		"created_at": batch.CreatedAt.UTC(),
		"updated_at": now,
	}).Prepared(true).Executor().ExecContext(ctx)
	return errors.Wrapf(err, "saving batch %s", batch.ID)
}

// UpdateBatchStatus moves a batch to status, stamping completed_at for terminal
// statuses.
func (d *DB) UpdateBatchStatus(ctx context.Context, batchID string, status model.BatchStatus) error {
	now := d.now()
	record := goqu.Record{"status": string(status), "updated_at": now}
	if status.Terminal() {
		record["completed_at"] = now
	}
	_, err := d.goqu.Update(batchesTable).
		Set(record).
		Where(goqu.C("id").Eq(batchID)).
		Prepared(true).Executor().ExecContext(ctx)
	return errors.Wrapf(err, "updating batch %s", batchID)
}

// SaveBatchError records err against a batch. A nil err is ignored.
func (d *DB) SaveBatchError(ctx context.Context, batchID, queryID string, err error) error {
	if err == nil {
		return nil
	}
	_, e := d.goqu.Insert(batchErrorsTable).Rows(goqu.Record{
		"batch_id":      batchID,
		"query_id":      queryID,
		"error_message": err.Error(),
		"created_at":    d.now(),
	}).Prepared(true).Executor().ExecContext(ctx)
	return errors.Wrapf(e, "saving error for batch %s", batchID)
}

func (d *DB) SaveQueryExecution(ctx context.Context, batchID string, result model.QueryResult) error {
	_, err := d.goqu.Insert(queryExecutionsTable).Rows(goqu.Record{
		"batch_id":      batchID,
		"query_id":      result.QueryID,
		"query_type":    result.Type.String(),
		"execution_ms":  result.ExecutionMillis(),
		"rows_affected": result.RowsAffected,
		"from_cache":    result.FromCache,
		"indexes_used":  model.StringList(result.IndexesUsed),
		"error":         result.Error,
		"created_at":    d.now(),
	}).Prepared(true).Executor().ExecContext(ctx)
	return errors.Wrapf(err, "saving execution of %s", result.QueryID)
}

// ListBatches returns journaled batches, newest first.
func (d *DB) ListBatches(ctx context.Context, filter model.BatchFilter) ([]model.BatchRecord, error) {
	ds := d.goqu.From(batchesTable).Order(goqu.C("created_at").Desc(), goqu.C("id").Asc())
	if filter.Status != "" {
		ds = ds.Where(goqu.C("status").Eq(string(filter.Status)))
	}
	if filter.Priority != "" {
		ds = ds.Where(goqu.C("priority").Eq(filter.Priority))
	}
	limit := filter.Limit
	if limit == 0 {
		limit = defaultListLimit
	}
	ds = ds.Limit(limit)

	batches := []model.BatchRecord{}
	if err := ds.Prepared(true).ScanStructsContext(ctx, &batches); err != nil {
		return nil, errors.Wrap(err, "listing batches")
	}
	return batches, nil
}

// GetBatch returns one batch or ErrNotFound.
func (d *DB) GetBatch(ctx context.Context, batchID string) (model.BatchRecord, error) {
	var batch model.BatchRecord
	found, err := d.goqu.From(batchesTable).
		Where(goqu.C("id").Eq(batchID)).
		Prepared(true).ScanStructContext(ctx, &batch)
	if err != nil {
		return model.BatchRecord{}, errors.Wrapf(err, "fetching batch %s", batchID)
	}
	if !found {
		return model.BatchRecord{}, errors.Wrapf(ErrNotFound, "batch %s", batchID)
	}
	return batch, nil
}

func (d *DB) GetBatchErrors(ctx context.Context, batchID string) ([]model.BatchError, error) {
	batchErrors := []model.BatchError{}
	err := d.goqu.From(batchErrorsTable).
		Where(goqu.C("batch_id").Eq(batchID)).
		Order(goqu.C("id").Asc()).
		Prepared(true).ScanStructsContext(ctx, &batchErrors)
	return batchErrors, errors.Wrapf(err, "fetching errors of batch %s", batchID)
}

func (d *DB) GetQueryExecutions(ctx context.Context, batchID string) ([]model.QueryExecution, error) {
	executions := []model.QueryExecution{}
	err := d.goqu.From(queryExecutionsTable).
		Where(goqu.C("batch_id").Eq(batchID)).
		Order(goqu.C("id").Asc()).
		Prepared(true).ScanStructsContext(ctx, &executions)
	return executions, errors.Wrapf(err, "fetching executions of batch %s", batchID)
}
