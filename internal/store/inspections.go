package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/marcus/fieldsync/internal/models"
)

// CreateInspection inserts an inspection and records a create mutation
// in the sync queue within a single transaction.
func (s *Store) CreateInspection(i *models.Inspection) error {
	if _, err := s.GetProperty(i.PropertyLocalID); err != nil {
		return fmt.Errorf("create inspection: %w", err)
	}

	return s.withWriteLock(func() error {
		id, err := generateID(inspIDPrefix)
		if err != nil {
			return err
		}
		i.LocalID = id
		i.SyncStatus = models.SyncPending
		if i.Kind == "" {
			i.Kind = "standard"
		}

		now := time.Now()
		i.CreatedAt = now
		i.LocalUpdatedAt = now

		tx, err := s.conn.Begin()
		if err != nil {
			return err
		}
		defer tx.Rollback()

		_, err = tx.Exec(`
			INSERT INTO inspections (local_id, server_id, property_local_id, kind, step_data, completed, sync_status, local_updated_at, server_updated_at, created_at, deleted_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, i.LocalID, i.ServerID, i.PropertyLocalID, i.Kind, string(i.StepData), i.Completed, i.SyncStatus, i.LocalUpdatedAt, i.ServerUpdatedAt, i.CreatedAt, i.DeletedAt)
		if err != nil {
			return err
		}

		if err := appendQueueEntryTx(tx, models.EntityInspection, i.LocalID, models.ActionCreate, i, now); err != nil {
			return err
		}

		return tx.Commit()
	})
}

// GetInspection retrieves an inspection by local ID
func (s *Store) GetInspection(localID string) (*models.Inspection, error) {
	return s.getInspectionBy("local_id", localID)
}

// GetInspectionByServerID retrieves an inspection by its server-assigned ID
func (s *Store) GetInspectionByServerID(serverID string) (*models.Inspection, error) {
	return s.getInspectionBy("server_id", serverID)
}

func (s *Store) getInspectionBy(column, value string) (*models.Inspection, error) {
	var i models.Inspection
	var stepData string
	var serverUpdatedAt, deletedAt sql.NullTime

	err := s.conn.QueryRow(fmt.Sprintf(`
		SELECT local_id, server_id, property_local_id, kind, step_data, completed, sync_status,
		       local_updated_at, server_updated_at, created_at, deleted_at
		FROM inspections WHERE %s = ?
	`, column), value).Scan(
		&i.LocalID, &i.ServerID, &i.PropertyLocalID, &i.Kind, &stepData, &i.Completed, &i.SyncStatus,
		&i.LocalUpdatedAt, &serverUpdatedAt, &i.CreatedAt, &deletedAt,
	)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("inspection %s: %w", value, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	if stepData != "" {
		i.StepData = []byte(stepData)
	}
	if serverUpdatedAt.Valid {
		i.ServerUpdatedAt = &serverUpdatedAt.Time
	}
	if deletedAt.Valid {
		i.DeletedAt = &deletedAt.Time
	}

	return &i, nil
}

// ListInspections returns non-deleted inspections, optionally filtered
// by property
func (s *Store) ListInspections(propertyLocalID string) ([]models.Inspection, error) {
	query := `
		SELECT local_id, server_id, property_local_id, kind, step_data, completed, sync_status,
		       local_updated_at, server_updated_at, created_at, deleted_at
		FROM inspections WHERE deleted_at IS NULL`
	var args []interface{}
	if propertyLocalID != "" {
		query += " AND property_local_id = ?"
		args = append(args, propertyLocalID)
	}
	query += " ORDER BY created_at DESC"

	rows, err := s.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var inspections []models.Inspection
	for rows.Next() {
		var i models.Inspection
		var stepData string
		var serverUpdatedAt, deletedAt sql.NullTime
		if err := rows.Scan(
			&i.LocalID, &i.ServerID, &i.PropertyLocalID, &i.Kind, &stepData, &i.Completed, &i.SyncStatus,
			&i.LocalUpdatedAt, &serverUpdatedAt, &i.CreatedAt, &deletedAt,
		); err != nil {
			return nil, err
		}
		if stepData != "" {
			i.StepData = []byte(stepData)
		}
		if serverUpdatedAt.Valid {
			i.ServerUpdatedAt = &serverUpdatedAt.Time
		}
		if deletedAt.Valid {
			i.DeletedAt = &deletedAt.Time
		}
		inspections = append(inspections, i)
	}

	return inspections, rows.Err()
}

// UpdateInspection writes local changes and records an update mutation
// in the sync queue
func (s *Store) UpdateInspection(i *models.Inspection) error {
	return s.withWriteLock(func() error {
		now := time.Now()
		i.LocalUpdatedAt = now
		i.SyncStatus = models.SyncPending

		tx, err := s.conn.Begin()
		if err != nil {
			return err
		}
		defer tx.Rollback()

		_, err = tx.Exec(`
			UPDATE inspections SET kind = ?, step_data = ?, completed = ?, sync_status = ?, local_updated_at = ?
			WHERE local_id = ?
		`, i.Kind, string(i.StepData), i.Completed, i.SyncStatus, i.LocalUpdatedAt, i.LocalID)
		if err != nil {
			return err
		}

		if err := appendQueueEntryTx(tx, models.EntityInspection, i.LocalID, models.ActionUpdate, i, now); err != nil {
			return err
		}

		return tx.Commit()
	})
}

// DeleteInspection removes an inspection, purging unsynced rows
// immediately and tombstoning synced ones for the next sync pass
func (s *Store) DeleteInspection(localID string) error {
	i, err := s.GetInspection(localID)
	if err != nil {
		return err
	}

	return s.withWriteLock(func() error {
		tx, err := s.conn.Begin()
		if err != nil {
			return err
		}
		defer tx.Rollback()

		if i.ServerID == "" {
			if _, err := tx.Exec(`DELETE FROM inspections WHERE local_id = ?`, localID); err != nil {
				return err
			}
			if _, err := tx.Exec(`DELETE FROM sync_queue WHERE entity_type = ? AND entity_id = ? AND status IN (?, ?)`,
				models.EntityInspection, localID, models.QueuePending, models.QueueFailed); err != nil {
				return err
			}
			return tx.Commit()
		}

		now := time.Now()
		if _, err := tx.Exec(`UPDATE inspections SET deleted_at = ?, local_updated_at = ?, sync_status = ? WHERE local_id = ?`,
			now, now, models.SyncPending, localID); err != nil {
			return err
		}
		i.DeletedAt = &now
		if err := appendQueueEntryTx(tx, models.EntityInspection, localID, models.ActionDelete, i, now); err != nil {
			return err
		}

		return tx.Commit()
	})
}

// PurgeInspection hard-deletes an inspection row after the server
// confirmed the delete
func (s *Store) PurgeInspection(localID string) error {
	return s.withWriteLock(func() error {
		_, err := s.conn.Exec(`DELETE FROM inspections WHERE local_id = ?`, localID)
		return err
	})
}

// SetInspectionSynced records server confirmation of an inspection
func (s *Store) SetInspectionSynced(localID, serverID string, serverUpdatedAt time.Time) error {
	return s.withWriteLock(func() error {
		_, err := s.conn.Exec(`
			UPDATE inspections SET server_id = ?, sync_status = ?, server_updated_at = ?
			WHERE local_id = ?
		`, serverID, models.SyncSynced, serverUpdatedAt, localID)
		return err
	})
}

// MarkInspectionSyncFailed flags an inspection whose sync attempt errored
func (s *Store) MarkInspectionSyncFailed(localID string) error {
	return s.withWriteLock(func() error {
		_, err := s.conn.Exec(`UPDATE inspections SET sync_status = ? WHERE local_id = ?`, models.SyncFailed, localID)
		return err
	})
}

// ApplyServerInspection overwrites local fields with the server copy
// without enqueueing a mutation
func (s *Store) ApplyServerInspection(localID string, i *models.Inspection) error {
	return s.withWriteLock(func() error {
		_, err := s.conn.Exec(`
			UPDATE inspections SET server_id = ?, kind = ?, step_data = ?, completed = ?,
			                       sync_status = ?, server_updated_at = ?, local_updated_at = ?
			WHERE local_id = ?
		`, i.ServerID, i.Kind, string(i.StepData), i.Completed,
			models.SyncSynced, i.ServerUpdatedAt, i.LocalUpdatedAt, localID)
		return err
	})
}
