package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/marcus/fieldsync/internal/models"
	"github.com/marcus/fieldsync/internal/store"
)

// PullServerData reconciles the server's property list into the local
// mirror. Unknown records are inserted; known ones are overwritten only
// when the server copy wins last-writer-wins and no local mutation is
// still queued for them.
func (e *Engine) PullServerData(ctx context.Context, userID string) (*PullResult, error) {
	if !e.mon.IsOnline() {
		return nil, fmt.Errorf("network unavailable")
	}

	records, err := e.client.ListProperties(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list server properties: %w", err)
	}

	res := &PullResult{}
	for _, rec := range records {
		serverID := string(rec.ID)
		serverAt := e.parseServerTime(rec.UpdatedAt)

		local, err := e.store.GetPropertyByServerID(serverID)
		if errors.Is(err, store.ErrNotFound) {
			// New on the server
			p := propertyFromRecord(&rec)
			p.ServerUpdatedAt = &serverAt
			p.LocalUpdatedAt = serverAt
			if err := e.store.InsertServerProperty(p); err != nil {
				return res, fmt.Errorf("insert property %s: %w", serverID, err)
			}
			res.Inserted++
			e.recordPullHistory(serverID, "ok", "inserted")
			continue
		}
		if err != nil {
			return res, fmt.Errorf("lookup property %s: %w", serverID, err)
		}

		pending, err := e.store.HasPendingMutation(models.EntityProperty, local.LocalID)
		if err != nil {
			return res, err
		}
		if pending {
			// The queued push will run the conflict through the resolver
			res.SkippedQueued++
			continue
		}

		if Resolve(local.LocalUpdatedAt, serverAt) == KeepLocal {
			res.SkippedLocal++
			continue
		}
		if local.ServerUpdatedAt != nil && !serverAt.After(*local.ServerUpdatedAt) {
			// Nothing new on the server
			continue
		}

		p := propertyFromRecord(&rec)
		p.ServerUpdatedAt = &serverAt
		p.LocalUpdatedAt = serverAt
		if err := e.store.ApplyServerProperty(local.LocalID, p); err != nil {
			return res, fmt.Errorf("apply property %s: %w", serverID, err)
		}
		res.Updated++
		e.recordPullHistory(serverID, "ok", "updated")
	}

	slog.Info("pull finished",
		"inserted", res.Inserted,
		"updated", res.Updated,
		"skipped_local", res.SkippedLocal,
		"skipped_queued", res.SkippedQueued)

	return res, nil
}

func (e *Engine) recordPullHistory(entityID, outcome, detail string) {
	err := e.store.RecordSyncHistory(store.SyncHistoryEntry{
		Direction:  "pull",
		ActionType: "update",
		EntityType: string(models.EntityProperty),
		EntityID:   entityID,
		Outcome:    outcome,
		Detail:     detail,
		DeviceID:   e.deviceID,
		Timestamp:  e.now(),
	})
	if err != nil {
		slog.Warn("record sync history", "error", err)
	}
}
