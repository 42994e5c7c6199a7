package store

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/marcus/fieldsync/internal/models"
)

// appendQueueEntryTx inserts a pending queue entry within an open
// transaction. The payload is the JSON snapshot of the entity at
// enqueue time.
func appendQueueEntryTx(tx *sql.Tx, entityType models.EntityType, entityID string, action models.QueueAction, entity interface{}, now time.Time) error {
	payload, err := marshalPayload(entity)
	if err != nil {
		return err
	}
	_, err = tx.Exec(`
		INSERT INTO sync_queue (entity_type, entity_id, action, payload, status, retry_count, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, 0, ?, ?)
	`, entityType, entityID, action, payload, models.QueuePending, now, now)
	return err
}

// AppendQueueEntry adds a pending mutation outside an entity
// transaction. Entity mutations normally enqueue through their own
// transaction; this exists for repair tooling and tests.
func (s *Store) AppendQueueEntry(entityType models.EntityType, entityID string, action models.QueueAction, entity interface{}) error {
	return s.withWriteLock(func() error {
		tx, err := s.conn.Begin()
		if err != nil {
			return err
		}
		defer tx.Rollback()
		if err := appendQueueEntryTx(tx, entityType, entityID, action, entity, time.Now()); err != nil {
			return err
		}
		return tx.Commit()
	})
}

const queueSelect = `
	SELECT id, entity_type, entity_id, action, payload, status, retry_count, last_error, next_retry_at, created_at, updated_at
	FROM sync_queue`

func scanQueueEntry(rows *sql.Rows) (*models.QueueEntry, error) {
	var e models.QueueEntry
	var payload string
	var nextRetryAt sql.NullTime

	if err := rows.Scan(
		&e.ID, &e.EntityType, &e.EntityID, &e.Action, &payload, &e.Status,
		&e.RetryCount, &e.LastError, &nextRetryAt, &e.CreatedAt, &e.UpdatedAt,
	); err != nil {
		return nil, err
	}

	e.Payload = json.RawMessage(payload)
	if nextRetryAt.Valid {
		e.NextRetryAt = &nextRetryAt.Time
	}

	return &e, nil
}

// ListDueQueueEntries returns retryable entries in insertion order,
// skipping entries whose backoff window has not elapsed
func (s *Store) ListDueQueueEntries(now time.Time) ([]models.QueueEntry, error) {
	rows, err := s.conn.Query(queueSelect+`
		WHERE status IN (?, ?) AND (next_retry_at IS NULL OR next_retry_at <= ?)
		ORDER BY id`,
		models.QueuePending, models.QueueFailed, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []models.QueueEntry
	for rows.Next() {
		e, err := scanQueueEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}

// ListQueueEntriesByStatus returns entries with the given status in
// insertion order
func (s *Store) ListQueueEntriesByStatus(status models.QueueStatus) ([]models.QueueEntry, error) {
	rows, err := s.conn.Query(queueSelect+` WHERE status = ? ORDER BY id`, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []models.QueueEntry
	for rows.Next() {
		e, err := scanQueueEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}

// HasPendingMutation reports whether unconfirmed local changes exist
// for the entity. Pull uses this to avoid clobbering local edits.
func (s *Store) HasPendingMutation(entityType models.EntityType, entityID string) (bool, error) {
	var count int
	err := s.conn.QueryRow(`
		SELECT COUNT(*) FROM sync_queue WHERE entity_type = ? AND entity_id = ? AND status IN (?, ?)
	`, entityType, entityID, models.QueuePending, models.QueueFailed).Scan(&count)
	return count > 0, err
}

// MarkQueueCompleted marks an entry as confirmed by the server
func (s *Store) MarkQueueCompleted(id int64) error {
	return s.withWriteLock(func() error {
		_, err := s.conn.Exec(`
			UPDATE sync_queue SET status = ?, last_error = '', updated_at = ? WHERE id = ?
		`, models.QueueCompleted, time.Now(), id)
		return err
	})
}

// MarkQueueFailed records a failed attempt and schedules the retry
func (s *Store) MarkQueueFailed(id int64, errMsg string, nextRetryAt time.Time) error {
	return s.withWriteLock(func() error {
		_, err := s.conn.Exec(`
			UPDATE sync_queue SET status = ?, retry_count = retry_count + 1, last_error = ?, next_retry_at = ?, updated_at = ?
			WHERE id = ?
		`, models.QueueFailed, errMsg, nextRetryAt, time.Now(), id)
		return err
	})
}

// MarkQueueAbandoned moves an entry past the retry cap to its terminal
// state
func (s *Store) MarkQueueAbandoned(id int64, errMsg string) error {
	return s.withWriteLock(func() error {
		_, err := s.conn.Exec(`
			UPDATE sync_queue SET status = ?, retry_count = retry_count + 1, last_error = ?, next_retry_at = NULL, updated_at = ?
			WHERE id = ?
		`, models.QueueAbandoned, errMsg, time.Now(), id)
		return err
	})
}

// ResetAbandonedQueueEntries puts abandoned entries back in rotation
// with fresh retry budgets. Returns the number of entries reset.
func (s *Store) ResetAbandonedQueueEntries() (int, error) {
	var reset int64
	err := s.withWriteLock(func() error {
		res, err := s.conn.Exec(`
			UPDATE sync_queue SET status = ?, retry_count = 0, last_error = '', next_retry_at = NULL, updated_at = ?
			WHERE status = ?
		`, models.QueuePending, time.Now(), models.QueueAbandoned)
		if err != nil {
			return err
		}
		reset, _ = res.RowsAffected()
		return nil
	})
	return int(reset), err
}

// PruneCompletedQueueEntries deletes completed entries older than the
// cutoff, keeping the queue table from growing without bound
func (s *Store) PruneCompletedQueueEntries(before time.Time) (int, error) {
	var pruned int64
	err := s.withWriteLock(func() error {
		res, err := s.conn.Exec(`
			DELETE FROM sync_queue WHERE status = ? AND updated_at < ?
		`, models.QueueCompleted, before)
		if err != nil {
			return err
		}
		pruned, _ = res.RowsAffected()
		return nil
	})
	return int(pruned), err
}

// GetPendingCounts aggregates what still needs to reach the server
func (s *Store) GetPendingCounts() (models.PendingCounts, error) {
	var c models.PendingCounts

	err := s.conn.QueryRow(`
		SELECT
			(SELECT COUNT(*) FROM properties WHERE sync_status != ? AND deleted_at IS NULL),
			(SELECT COUNT(*) FROM inspections WHERE sync_status != ? AND deleted_at IS NULL),
			(SELECT COUNT(*) FROM evidence WHERE sync_status != ? AND deleted_at IS NULL),
			(SELECT COUNT(*) FROM sync_queue WHERE status IN (?, ?)),
			(SELECT COUNT(*) FROM sync_queue WHERE status = ?)
	`, models.SyncSynced, models.SyncSynced, models.SyncSynced,
		models.QueuePending, models.QueueFailed, models.QueueAbandoned).Scan(
		&c.Properties, &c.Inspections, &c.Evidence, &c.QueueEntries, &c.Abandoned,
	)

	return c, err
}
