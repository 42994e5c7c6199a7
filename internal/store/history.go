package store

import (
	"time"
)

// SyncHistoryEntry represents a row from the sync_history table.
type SyncHistoryEntry struct {
	ID         int64
	Direction  string // "push" or "pull"
	ActionType string // "create", "update", "delete", "upload"
	EntityType string
	EntityID   string
	Outcome    string // "ok", "conflict_local", "conflict_server", "error", "skipped"
	Detail     string
	DeviceID   string
	Timestamp  time.Time
}

// RecordSyncHistory appends one audit row for a sync outcome
func (s *Store) RecordSyncHistory(e SyncHistoryEntry) error {
	return s.withWriteLock(func() error {
		if e.Timestamp.IsZero() {
			e.Timestamp = time.Now()
		}
		_, err := s.conn.Exec(`
			INSERT INTO sync_history (direction, action_type, entity_type, entity_id, outcome, detail, device_id, timestamp)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, e.Direction, e.ActionType, e.EntityType, e.EntityID, e.Outcome, e.Detail, e.DeviceID, e.Timestamp)
		return err
	})
}

// GetSyncHistoryTail returns the last N entries in chronological order (oldest first).
func (s *Store) GetSyncHistoryTail(limit int) ([]SyncHistoryEntry, error) {
	rows, err := s.conn.Query(`
		SELECT id, direction, action_type, entity_type, entity_id, outcome, COALESCE(detail, ''), COALESCE(device_id, ''), timestamp
		FROM sync_history
		ORDER BY id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []SyncHistoryEntry
	for rows.Next() {
		var e SyncHistoryEntry
		var ts string
		if err := rows.Scan(&e.ID, &e.Direction, &e.ActionType, &e.EntityType, &e.EntityID, &e.Outcome, &e.Detail, &e.DeviceID, &ts); err != nil {
			return nil, err
		}
		parsed, parseErr := parseTimestamp(ts)
		if parseErr != nil {
			return nil, parseErr
		}
		e.Timestamp = parsed
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Reverse to chronological order
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}

	return entries, nil
}

// PruneSyncHistory deletes rows not in the newest maxRows entries.
func (s *Store) PruneSyncHistory(maxRows int) error {
	return s.withWriteLock(func() error {
		_, err := s.conn.Exec(`
			DELETE FROM sync_history WHERE id NOT IN (
				SELECT id FROM sync_history ORDER BY id DESC LIMIT ?
			)
		`, maxRows)
		return err
	})
}
