package database

import (
	"context"

	"github.com/lib/pq"
)

func (q queries) LockBatchesAtLocation(ctx context.Context, location, quarantineStatus, status string) (int64, error) {
	result, err := q.db.ExecContext(ctx, `
		UPDATE agrion.supply_batches
		SET quarantine_status = $2, status = $3
		WHERE farm_location = $1
	`, location, quarantineStatus, status)
	if err != nil {
		return 0, storageError(err, "failed to lock supply batches")
	}
	return rowsAffected(result, "failed to lock supply batches")
}

func (q queries) TraceLockBatches(ctx context.Context, locations []string, quarantineStatus, status string) (int64, error) {
	if len(locations) == 0 {
		return 0, nil
	}
	result, err := q.db.ExecContext(ctx, `
		UPDATE agrion.supply_batches b
		SET quarantine_status = $2, status = $3
		WHERE b.quarantine_status = ''
		AND EXISTS (
			SELECT 1 FROM agrion.custody_logs c
			WHERE c.batch_id = b.batch_id AND c.location = ANY($1)
		)
	`, pq.Array(locations), quarantineStatus, status)
	if err != nil {
		return 0, storageError(err, "failed to trace-lock supply batches")
	}
	return rowsAffected(result, "failed to trace-lock supply batches")
}

func (q queries) ReleaseBatchesAtLocation(ctx context.Context, location, quarantineStatus, status string) (int64, error) {
	result, err := q.db.ExecContext(ctx, `
		UPDATE agrion.supply_batches
		SET quarantine_status = '', status = $3
		WHERE farm_location = $1 AND quarantine_status = $2
	`, location, quarantineStatus, status)
	if err != nil {
		return 0, storageError(err, "failed to release supply batches")
	}
	return rowsAffected(result, "failed to release supply batches")
}

// ReleaseTracedBatches clears the trace lock on batches that passed through location, except
// those that also passed through any of heldBy.
func (q queries) ReleaseTracedBatches(ctx context.Context, location string, heldBy []string, quarantineStatus, status string) (int64, error) {
	if heldBy == nil {
		heldBy = []string{}
	}
	result, err := q.db.ExecContext(ctx, `
		UPDATE agrion.supply_batches b
		SET quarantine_status = '', status = $3
		WHERE b.quarantine_status = $2
		AND EXISTS (
			SELECT 1 FROM agrion.custody_logs c
			WHERE c.batch_id = b.batch_id AND c.location = $1
		)
		AND NOT EXISTS (
			SELECT 1 FROM agrion.custody_logs c
			WHERE c.batch_id = b.batch_id AND c.location = ANY($4)
		)
	`, location, quarantineStatus, status, pq.Array(heldBy))
	if err != nil {
		return 0, storageError(err, "failed to release traced supply batches")
	}
	return rowsAffected(result, "failed to release traced supply batches")
}
