package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/marcus/fieldsync/internal/models"
)

// CreateProperty inserts a property and records a create mutation in the
// sync queue within a single transaction.
func (s *Store) CreateProperty(p *models.Property) error {
	return s.withWriteLock(func() error {
		id, err := generateID(propIDPrefix)
		if err != nil {
			return err
		}
		p.LocalID = id
		p.SyncStatus = models.SyncPending

		now := time.Now()
		p.CreatedAt = now
		p.LocalUpdatedAt = now

		tx, err := s.conn.Begin()
		if err != nil {
			return err
		}
		defer tx.Rollback()

		_, err = tx.Exec(`
			INSERT INTO properties (local_id, server_id, address, city, postal_code, owner_name, notes, sync_status, local_updated_at, server_updated_at, created_at, deleted_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, p.LocalID, p.ServerID, p.Address, p.City, p.PostalCode, p.OwnerName, p.Notes, p.SyncStatus, p.LocalUpdatedAt, p.ServerUpdatedAt, p.CreatedAt, p.DeletedAt)
		if err != nil {
			return err
		}

		if err := appendQueueEntryTx(tx, models.EntityProperty, p.LocalID, models.ActionCreate, p, now); err != nil {
			return err
		}

		return tx.Commit()
	})
}

// GetProperty retrieves a property by local ID
func (s *Store) GetProperty(localID string) (*models.Property, error) {
	return s.getPropertyBy("local_id", localID)
}

// GetPropertyByServerID retrieves a property by its server-assigned ID
func (s *Store) GetPropertyByServerID(serverID string) (*models.Property, error) {
	return s.getPropertyBy("server_id", serverID)
}

func (s *Store) getPropertyBy(column, value string) (*models.Property, error) {
	var p models.Property
	var serverUpdatedAt, deletedAt sql.NullTime

	err := s.conn.QueryRow(fmt.Sprintf(`
		SELECT local_id, server_id, address, city, postal_code, owner_name, notes, sync_status,
		       local_updated_at, server_updated_at, created_at, deleted_at
		FROM properties WHERE %s = ?
	`, column), value).Scan(
		&p.LocalID, &p.ServerID, &p.Address, &p.City, &p.PostalCode, &p.OwnerName, &p.Notes, &p.SyncStatus,
		&p.LocalUpdatedAt, &serverUpdatedAt, &p.CreatedAt, &deletedAt,
	)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("property %s: %w", value, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	if serverUpdatedAt.Valid {
		p.ServerUpdatedAt = &serverUpdatedAt.Time
	}
	if deletedAt.Valid {
		p.DeletedAt = &deletedAt.Time
	}

	return &p, nil
}

// ListProperties returns non-deleted properties, newest first
func (s *Store) ListProperties() ([]models.Property, error) {
	rows, err := s.conn.Query(`
		SELECT local_id, server_id, address, city, postal_code, owner_name, notes, sync_status,
		       local_updated_at, server_updated_at, created_at, deleted_at
		FROM properties WHERE deleted_at IS NULL ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var props []models.Property
	for rows.Next() {
		var p models.Property
		var serverUpdatedAt, deletedAt sql.NullTime
		if err := rows.Scan(
			&p.LocalID, &p.ServerID, &p.Address, &p.City, &p.PostalCode, &p.OwnerName, &p.Notes, &p.SyncStatus,
			&p.LocalUpdatedAt, &serverUpdatedAt, &p.CreatedAt, &deletedAt,
		); err != nil {
			return nil, err
		}
		if serverUpdatedAt.Valid {
			p.ServerUpdatedAt = &serverUpdatedAt.Time
		}
		if deletedAt.Valid {
			p.DeletedAt = &deletedAt.Time
		}
		props = append(props, p)
	}

	return props, rows.Err()
}

// UpdateProperty writes local changes and records an update mutation in
// the sync queue. The queue payload is a snapshot of the row at enqueue
// time; later edits append their own entries.
func (s *Store) UpdateProperty(p *models.Property) error {
	return s.withWriteLock(func() error {
		now := time.Now()
		p.LocalUpdatedAt = now
		p.SyncStatus = models.SyncPending

		tx, err := s.conn.Begin()
		if err != nil {
			return err
		}
		defer tx.Rollback()

		_, err = tx.Exec(`
			UPDATE properties SET address = ?, city = ?, postal_code = ?, owner_name = ?, notes = ?,
			                      sync_status = ?, local_updated_at = ?
			WHERE local_id = ?
		`, p.Address, p.City, p.PostalCode, p.OwnerName, p.Notes, p.SyncStatus, p.LocalUpdatedAt, p.LocalID)
		if err != nil {
			return err
		}

		if err := appendQueueEntryTx(tx, models.EntityProperty, p.LocalID, models.ActionUpdate, p, now); err != nil {
			return err
		}

		return tx.Commit()
	})
}

// DeleteProperty removes a property. Rows the server never saw are
// purged immediately along with their queue entries; synced rows get a
// tombstone plus a delete mutation for the next sync pass.
func (s *Store) DeleteProperty(localID string) error {
	p, err := s.GetProperty(localID)
	if err != nil {
		return err
	}

	return s.withWriteLock(func() error {
		tx, err := s.conn.Begin()
		if err != nil {
			return err
		}
		defer tx.Rollback()

		if p.ServerID == "" {
			if _, err := tx.Exec(`DELETE FROM properties WHERE local_id = ?`, localID); err != nil {
				return err
			}
			if _, err := tx.Exec(`DELETE FROM sync_queue WHERE entity_type = ? AND entity_id = ? AND status IN (?, ?)`,
				models.EntityProperty, localID, models.QueuePending, models.QueueFailed); err != nil {
				return err
			}
			return tx.Commit()
		}

		now := time.Now()
		if _, err := tx.Exec(`UPDATE properties SET deleted_at = ?, local_updated_at = ?, sync_status = ? WHERE local_id = ?`,
			now, now, models.SyncPending, localID); err != nil {
			return err
		}
		p.DeletedAt = &now
		if err := appendQueueEntryTx(tx, models.EntityProperty, localID, models.ActionDelete, p, now); err != nil {
			return err
		}

		return tx.Commit()
	})
}

// PurgeProperty hard-deletes a property row after the server confirmed
// the delete
func (s *Store) PurgeProperty(localID string) error {
	return s.withWriteLock(func() error {
		_, err := s.conn.Exec(`DELETE FROM properties WHERE local_id = ?`, localID)
		return err
	})
}

// SetPropertySynced records server confirmation of a property
func (s *Store) SetPropertySynced(localID, serverID string, serverUpdatedAt time.Time) error {
	return s.withWriteLock(func() error {
		_, err := s.conn.Exec(`
			UPDATE properties SET server_id = ?, sync_status = ?, server_updated_at = ?
			WHERE local_id = ?
		`, serverID, models.SyncSynced, serverUpdatedAt, localID)
		return err
	})
}

// MarkPropertySyncFailed flags a property whose sync attempt errored
func (s *Store) MarkPropertySyncFailed(localID string) error {
	return s.withWriteLock(func() error {
		_, err := s.conn.Exec(`UPDATE properties SET sync_status = ? WHERE local_id = ?`, models.SyncFailed, localID)
		return err
	})
}

// ApplyServerProperty overwrites local fields with the server copy
// without enqueueing a mutation. Used when the server wins a conflict
// and by pull.
func (s *Store) ApplyServerProperty(localID string, p *models.Property) error {
	return s.withWriteLock(func() error {
		_, err := s.conn.Exec(`
			UPDATE properties SET server_id = ?, address = ?, city = ?, postal_code = ?, owner_name = ?, notes = ?,
			                      sync_status = ?, server_updated_at = ?, local_updated_at = ?
			WHERE local_id = ?
		`, p.ServerID, p.Address, p.City, p.PostalCode, p.OwnerName, p.Notes,
			models.SyncSynced, p.ServerUpdatedAt, p.LocalUpdatedAt, localID)
		return err
	})
}

// InsertServerProperty inserts a property discovered during pull. The
// row arrives already synced and never touches the queue.
func (s *Store) InsertServerProperty(p *models.Property) error {
	return s.withWriteLock(func() error {
		id, err := generateID(propIDPrefix)
		if err != nil {
			return err
		}
		p.LocalID = id
		p.SyncStatus = models.SyncSynced
		if p.CreatedAt.IsZero() {
			p.CreatedAt = time.Now()
		}
		if p.LocalUpdatedAt.IsZero() {
			p.LocalUpdatedAt = p.CreatedAt
		}

		_, err = s.conn.Exec(`
			INSERT INTO properties (local_id, server_id, address, city, postal_code, owner_name, notes, sync_status, local_updated_at, server_updated_at, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, p.LocalID, p.ServerID, p.Address, p.City, p.PostalCode, p.OwnerName, p.Notes, p.SyncStatus, p.LocalUpdatedAt, p.ServerUpdatedAt, p.CreatedAt)
		return err
	})
}

func marshalPayload(v interface{}) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("marshal queue payload: %w", err)
	}
	return string(data), nil
}
