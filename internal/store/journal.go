package store

import (
	"context"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"go-query-coordinator/internal/model"
)

const journalWriteTimeout = 5 * time.Second

// Journal writes scheduler and executor events to the DB. Write failures are
// logged and never reach the scheduler.
type Journal struct {
	db *DB
}

func NewJournal(db *DB) *Journal {
	return &Journal{db: db}
}

func (j *Journal) write(batchID, op string, fn func(ctx context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), journalWriteTimeout)
	defer cancel()
	if err := fn(ctx); err != nil {
		log.WithFields(log.Fields{"batch_id": batchID, "op": op}).WithError(err).Error("journal write failed")
	}
}

func (j *Journal) BatchSubmitted(batch *model.Batch) {
	j.write(batch.ID, "submit", func(ctx context.Context) error {
		return j.db.SaveBatch(ctx, batch)
	})
}

func (j *Journal) BatchStatusChanged(id string, status model.BatchStatus) {
	j.write(id, "status", func(ctx context.Context) error {
		return j.db.UpdateBatchStatus(ctx, id, status)
	})
}

func (j *Journal) BatchCompleted(id string, _ []model.QueryResult) {
	j.write(id, "complete", func(ctx context.Context) error {
		return j.db.UpdateBatchStatus(ctx, id, model.BatchCompleted)
	})
}

func (j *Journal) BatchFailed(id string, status model.BatchStatus, err error) {
	j.write(id, "fail", func(ctx context.Context) error {
		if e := j.db.UpdateBatchStatus(ctx, id, status); e != nil {
			return e
		}
		return j.db.SaveBatchError(ctx, id, "", err)
	})
}

func (j *Journal) QueryExecuted(batchID string, result model.QueryResult) {
	j.write(batchID, "execution", func(ctx context.Context) error {
		if err := j.db.SaveQueryExecution(ctx, batchID, result); err != nil {
			return err
		}
		if !result.Failed() {
			return nil
		}
		err := result.Err
		if err == nil {
			err = errors.New(result.Error)
		}
		return j.db.SaveBatchError(ctx, batchID, result.QueryID, err)
	})
}
