package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/marcus/fieldsync/internal/models"
)

// CreateEvidence inserts an evidence record. Evidence reaches the
// server through the upload phase rather than the mutation queue, so
// no queue entry is written.
func (s *Store) CreateEvidence(e *models.Evidence) error {
	if _, err := s.GetInspection(e.InspectionLocalID); err != nil {
		return fmt.Errorf("create evidence: %w", err)
	}

	return s.withWriteLock(func() error {
		id, err := generateID(evidenceIDPrefix)
		if err != nil {
			return err
		}
		e.LocalID = id
		e.SyncStatus = models.SyncPending
		if e.Type == "" {
			e.Type = models.EvidencePhoto
		}

		now := time.Now()
		e.CreatedAt = now
		e.LocalUpdatedAt = now

		_, err = s.conn.Exec(`
			INSERT INTO evidence (local_id, server_id, inspection_local_id, step, type, local_path, remote_url, metadata, latitude, longitude, upload_attempts, last_upload_error, sync_status, local_updated_at, server_updated_at, created_at, deleted_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, e.LocalID, e.ServerID, e.InspectionLocalID, e.Step, e.Type, e.LocalPath, e.RemoteURL, e.Metadata,
			e.Latitude, e.Longitude, e.UploadAttempts, e.LastUploadError, e.SyncStatus, e.LocalUpdatedAt, e.ServerUpdatedAt, e.CreatedAt, e.DeletedAt)
		return err
	})
}

// GetEvidence retrieves an evidence record by local ID
func (s *Store) GetEvidence(localID string) (*models.Evidence, error) {
	rows, err := s.conn.Query(evidenceSelect+` WHERE local_id = ?`, localID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("evidence %s: %w", localID, ErrNotFound)
	}
	return scanEvidence(rows)
}

const evidenceSelect = `
	SELECT local_id, server_id, inspection_local_id, step, type, local_path, remote_url, metadata,
	       latitude, longitude, upload_attempts, last_upload_error, sync_status,
	       local_updated_at, server_updated_at, created_at, deleted_at
	FROM evidence`

func scanEvidence(rows *sql.Rows) (*models.Evidence, error) {
	var e models.Evidence
	var lat, lon sql.NullFloat64
	var serverUpdatedAt, deletedAt sql.NullTime

	if err := rows.Scan(
		&e.LocalID, &e.ServerID, &e.InspectionLocalID, &e.Step, &e.Type, &e.LocalPath, &e.RemoteURL, &e.Metadata,
		&lat, &lon, &e.UploadAttempts, &e.LastUploadError, &e.SyncStatus,
		&e.LocalUpdatedAt, &serverUpdatedAt, &e.CreatedAt, &deletedAt,
	); err != nil {
		return nil, err
	}

	if lat.Valid {
		e.Latitude = &lat.Float64
	}
	if lon.Valid {
		e.Longitude = &lon.Float64
	}
	if serverUpdatedAt.Valid {
		e.ServerUpdatedAt = &serverUpdatedAt.Time
	}
	if deletedAt.Valid {
		e.DeletedAt = &deletedAt.Time
	}

	return &e, nil
}

// ListEvidence returns non-deleted evidence, optionally filtered by
// inspection
func (s *Store) ListEvidence(inspectionLocalID string) ([]models.Evidence, error) {
	query := evidenceSelect + ` WHERE deleted_at IS NULL`
	var args []interface{}
	if inspectionLocalID != "" {
		query += " AND inspection_local_id = ?"
		args = append(args, inspectionLocalID)
	}
	query += " ORDER BY created_at"

	rows, err := s.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []models.Evidence
	for rows.Next() {
		e, err := scanEvidence(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *e)
	}
	return items, rows.Err()
}

// ListUploadableEvidence returns evidence still awaiting upload whose
// parent inspection has a server ID. Failed items past the attempt cap
// are excluded until reset.
func (s *Store) ListUploadableEvidence(maxAttempts int) ([]models.Evidence, error) {
	rows, err := s.conn.Query(evidenceSelect+`
		WHERE deleted_at IS NULL AND server_id = '' AND sync_status IN (?, ?) AND upload_attempts < ?
		ORDER BY created_at`,
		models.SyncPending, models.SyncFailed, maxAttempts)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []models.Evidence
	for rows.Next() {
		e, err := scanEvidence(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *e)
	}
	return items, rows.Err()
}

// DeleteEvidence removes an evidence record locally. Uploaded binaries
// stay on the server; only the local row is affected.
func (s *Store) DeleteEvidence(localID string) error {
	return s.withWriteLock(func() error {
		_, err := s.conn.Exec(`DELETE FROM evidence WHERE local_id = ?`, localID)
		return err
	})
}

// SetEvidenceUploaded records a confirmed upload
func (s *Store) SetEvidenceUploaded(localID, serverID, remoteURL string, uploadedAt time.Time) error {
	return s.withWriteLock(func() error {
		_, err := s.conn.Exec(`
			UPDATE evidence SET server_id = ?, remote_url = ?, sync_status = ?, server_updated_at = ?, last_upload_error = ''
			WHERE local_id = ?
		`, serverID, remoteURL, models.SyncSynced, uploadedAt, localID)
		return err
	})
}

// RecordEvidenceUploadFailure increments the attempt counter and stores
// the error. Once attempts reach maxAttempts the item is marked failed
// and left for manual retry.
func (s *Store) RecordEvidenceUploadFailure(localID, errMsg string, maxAttempts int) error {
	return s.withWriteLock(func() error {
		status := models.SyncPending
		var attempts int
		if err := s.conn.QueryRow(`SELECT upload_attempts FROM evidence WHERE local_id = ?`, localID).Scan(&attempts); err != nil {
			return err
		}
		if attempts+1 >= maxAttempts {
			status = models.SyncFailed
		}
		_, err := s.conn.Exec(`
			UPDATE evidence SET upload_attempts = upload_attempts + 1, last_upload_error = ?, sync_status = ?
			WHERE local_id = ?
		`, errMsg, status, localID)
		return err
	})
}

// ResetEvidenceUploads clears attempt counters on failed evidence so
// the next sync pass retries them. Returns the number of items reset.
func (s *Store) ResetEvidenceUploads() (int, error) {
	var reset int64
	err := s.withWriteLock(func() error {
		res, err := s.conn.Exec(`
			UPDATE evidence SET upload_attempts = 0, last_upload_error = '', sync_status = ?
			WHERE deleted_at IS NULL AND server_id = '' AND sync_status = ?
		`, models.SyncPending, models.SyncFailed)
		if err != nil {
			return err
		}
		reset, _ = res.RowsAffected()
		return nil
	})
	return int(reset), err
}
