package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/marcus/fieldsync/internal/models"
	"github.com/marcus/fieldsync/internal/store"
	"github.com/marcus/fieldsync/internal/syncclient"
)

// errNotReady marks an entry whose dependency has not reached the
// server yet. The entry stays pending at no retry cost and is picked
// up again on the next pass.
var errNotReady = errors.New("waiting on dependency")

// processQueue drains due queue entries in insertion order. A failing
// entry never aborts the batch; the returned error covers only a
// store-level failure of the pass itself.
func (e *Engine) processQueue(ctx context.Context, res *Result) error {
	entries, err := e.store.ListDueQueueEntries(e.now())
	if err != nil {
		res.FailedItems++
		res.Errors = append(res.Errors, fmt.Sprintf("queue: %v", err))
		return err
	}

	for _, entry := range entries {
		if ctx.Err() != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("sync cancelled: %v", ctx.Err()))
			return nil
		}

		outcome, err := e.processEntry(ctx, entry)
		switch {
		case err == nil:
			if markErr := e.store.MarkQueueCompleted(entry.ID); markErr != nil {
				slog.Warn("mark queue entry completed", "id", entry.ID, "error", markErr)
			}
			res.SyncedItems++
			e.recordHistory("push", entry, outcome, "")
			slog.Debug("queue entry synced", "id", entry.ID, "entity", entry.EntityID, "action", entry.Action, "outcome", outcome)

		case errors.Is(err, errNotReady):
			// left pending untouched, retried next pass
			e.recordHistory("push", entry, "skipped", err.Error())
			slog.Debug("queue entry deferred", "id", entry.ID, "entity", entry.EntityID, "reason", err)

		default:
			res.FailedItems++
			res.Errors = append(res.Errors, fmt.Sprintf("%s/%s: %v", entry.EntityType, entry.EntityID, err))
			e.failEntry(entry, err)
			e.recordHistory("push", entry, "error", err.Error())
		}
	}

	return nil
}

// failEntry schedules the retry or abandons the entry past the cap,
// and flags the entity row either way
func (e *Engine) failEntry(entry models.QueueEntry, cause error) {
	if entry.RetryCount+1 >= e.maxRetries {
		if err := e.store.MarkQueueAbandoned(entry.ID, cause.Error()); err != nil {
			slog.Warn("abandon queue entry", "id", entry.ID, "error", err)
		}
		slog.Warn("queue entry abandoned after retry cap",
			"id", entry.ID, "entity", entry.EntityID, "retries", entry.RetryCount+1)
	} else {
		nextRetry := e.now().Add(retryBackoff(entry.RetryCount))
		if err := e.store.MarkQueueFailed(entry.ID, cause.Error(), nextRetry); err != nil {
			slog.Warn("mark queue entry failed", "id", entry.ID, "error", err)
		}
	}

	switch entry.EntityType {
	case models.EntityProperty:
		e.store.MarkPropertySyncFailed(entry.EntityID)
	case models.EntityInspection:
		e.store.MarkInspectionSyncFailed(entry.EntityID)
	}
}

func (e *Engine) processEntry(ctx context.Context, entry models.QueueEntry) (string, error) {
	switch entry.EntityType {
	case models.EntityProperty:
		return e.processPropertyEntry(ctx, entry)
	case models.EntityInspection:
		return e.processInspectionEntry(ctx, entry)
	default:
		return "", fmt.Errorf("unsupported entity type %q", entry.EntityType)
	}
}

// --- Properties ---

func (e *Engine) processPropertyEntry(ctx context.Context, entry models.QueueEntry) (string, error) {
	var snap models.Property
	if err := json.Unmarshal(entry.Payload, &snap); err != nil {
		return "", fmt.Errorf("decode payload: %w", err)
	}

	switch entry.Action {
	case models.ActionCreate:
		return e.createProperty(ctx, entry.EntityID, &snap)
	case models.ActionUpdate:
		return e.updateProperty(ctx, entry.EntityID, &snap)
	case models.ActionDelete:
		return e.deleteProperty(ctx, entry.EntityID, &snap)
	default:
		return "", fmt.Errorf("unsupported action %q", entry.Action)
	}
}

func (e *Engine) createProperty(ctx context.Context, localID string, snap *models.Property) (string, error) {
	if _, err := e.store.GetProperty(localID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Row already gone locally; nothing to push
			return "ok", nil
		}
		return "", err
	}

	resp, err := e.client.CreateProperty(ctx, propertyRecord(snap, localID))
	if err != nil {
		return "", err
	}

	serverAt := e.parseServerTime(resp.UpdatedAt)
	return "ok", e.store.SetPropertySynced(localID, string(resp.ID), serverAt)
}

func (e *Engine) updateProperty(ctx context.Context, localID string, snap *models.Property) (string, error) {
	current, err := e.store.GetProperty(localID)
	if errors.Is(err, store.ErrNotFound) {
		return "ok", nil
	}
	if err != nil {
		return "", err
	}
	if current.ServerID == "" {
		// The create entry ahead of this one has not succeeded yet
		return "", fmt.Errorf("%w: property %s has no server id", errNotReady, localID)
	}

	serverCopy, err := e.client.GetProperty(ctx, current.ServerID)
	if errors.Is(err, syncclient.ErrNotFound) {
		// Server lost the record; push the local copy as a new one
		return e.createProperty(ctx, localID, snap)
	}
	if err != nil {
		return "", err
	}

	serverAt := e.parseServerTime(serverCopy.UpdatedAt)
	if Resolve(snap.LocalUpdatedAt, serverAt) == KeepLocal {
		resp, err := e.client.UpdateProperty(ctx, current.ServerID, propertyRecord(snap, localID))
		if err != nil {
			return "", err
		}
		return "conflict_local", e.store.SetPropertySynced(localID, current.ServerID, e.parseServerTime(resp.UpdatedAt))
	}

	// Server wins: overwrite local fields, drop the local change
	p := propertyFromRecord(serverCopy)
	p.LocalUpdatedAt = serverAt
	return "conflict_server", e.store.ApplyServerProperty(localID, p)
}

func (e *Engine) deleteProperty(ctx context.Context, localID string, snap *models.Property) (string, error) {
	serverID := snap.ServerID
	if current, err := e.store.GetProperty(localID); err == nil && current.ServerID != "" {
		serverID = current.ServerID
	}

	if serverID != "" {
		err := e.client.DeleteProperty(ctx, serverID)
		if err != nil && !errors.Is(err, syncclient.ErrNotFound) {
			return "", err
		}
	}

	return "ok", e.store.PurgeProperty(localID)
}

// --- Inspections ---

func (e *Engine) processInspectionEntry(ctx context.Context, entry models.QueueEntry) (string, error) {
	var snap models.Inspection
	if err := json.Unmarshal(entry.Payload, &snap); err != nil {
		return "", fmt.Errorf("decode payload: %w", err)
	}

	switch entry.Action {
	case models.ActionCreate:
		return e.createInspection(ctx, entry.EntityID, &snap)
	case models.ActionUpdate:
		return e.updateInspection(ctx, entry.EntityID, &snap)
	case models.ActionDelete:
		return e.deleteInspection(ctx, entry.EntityID, &snap)
	default:
		return "", fmt.Errorf("unsupported action %q", entry.Action)
	}
}

// parentPropertyServerID resolves the server ID of an inspection's
// parent, deferring the entry while the parent is still local-only
func (e *Engine) parentPropertyServerID(propertyLocalID string) (string, error) {
	parent, err := e.store.GetProperty(propertyLocalID)
	if err != nil {
		return "", fmt.Errorf("parent property %s: %w", propertyLocalID, err)
	}
	if parent.ServerID == "" {
		return "", fmt.Errorf("%w: property %s has no server id", errNotReady, propertyLocalID)
	}
	return parent.ServerID, nil
}

func (e *Engine) createInspection(ctx context.Context, localID string, snap *models.Inspection) (string, error) {
	if _, err := e.store.GetInspection(localID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "ok", nil
		}
		return "", err
	}

	parentServerID, err := e.parentPropertyServerID(snap.PropertyLocalID)
	if err != nil {
		return "", err
	}

	resp, err := e.client.CreateInspection(ctx, inspectionRecord(snap, localID, parentServerID))
	if err != nil {
		return "", err
	}

	serverAt := e.parseServerTime(resp.UpdatedAt)
	return "ok", e.store.SetInspectionSynced(localID, string(resp.ID), serverAt)
}

func (e *Engine) updateInspection(ctx context.Context, localID string, snap *models.Inspection) (string, error) {
	current, err := e.store.GetInspection(localID)
	if errors.Is(err, store.ErrNotFound) {
		return "ok", nil
	}
	if err != nil {
		return "", err
	}
	if current.ServerID == "" {
		return "", fmt.Errorf("%w: inspection %s has no server id", errNotReady, localID)
	}

	serverCopy, err := e.client.GetInspection(ctx, current.ServerID)
	if errors.Is(err, syncclient.ErrNotFound) {
		return e.createInspection(ctx, localID, snap)
	}
	if err != nil {
		return "", err
	}

	serverAt := e.parseServerTime(serverCopy.UpdatedAt)
	if Resolve(snap.LocalUpdatedAt, serverAt) == KeepLocal {
		parentServerID, err := e.parentPropertyServerID(snap.PropertyLocalID)
		if err != nil {
			return "", err
		}
		resp, err := e.client.UpdateInspection(ctx, current.ServerID, inspectionRecord(snap, localID, parentServerID))
		if err != nil {
			return "", err
		}
		return "conflict_local", e.store.SetInspectionSynced(localID, current.ServerID, e.parseServerTime(resp.UpdatedAt))
	}

	i := inspectionFromRecord(serverCopy, current.PropertyLocalID)
	i.LocalUpdatedAt = serverAt
	return "conflict_server", e.store.ApplyServerInspection(localID, i)
}

func (e *Engine) deleteInspection(ctx context.Context, localID string, snap *models.Inspection) (string, error) {
	serverID := snap.ServerID
	if current, err := e.store.GetInspection(localID); err == nil && current.ServerID != "" {
		serverID = current.ServerID
	}

	if serverID != "" {
		err := e.client.DeleteInspection(ctx, serverID)
		if err != nil && !errors.Is(err, syncclient.ErrNotFound) {
			return "", err
		}
	}

	return "ok", e.store.PurgeInspection(localID)
}

// --- Record conversion ---

func propertyRecord(p *models.Property, clientRef string) *syncclient.PropertyRecord {
	return &syncclient.PropertyRecord{
		ClientRef:  clientRef,
		Address:    p.Address,
		City:       p.City,
		PostalCode: p.PostalCode,
		OwnerName:  p.OwnerName,
		Notes:      p.Notes,
	}
}

func propertyFromRecord(r *syncclient.PropertyRecord) *models.Property {
	p := &models.Property{
		ServerID:   string(r.ID),
		Address:    r.Address,
		City:       r.City,
		PostalCode: r.PostalCode,
		OwnerName:  r.OwnerName,
		Notes:      r.Notes,
	}
	return p
}

func inspectionRecord(i *models.Inspection, clientRef, propertyServerID string) *syncclient.InspectionRecord {
	return &syncclient.InspectionRecord{
		ClientRef:  clientRef,
		PropertyID: propertyServerID,
		Kind:       i.Kind,
		StepData:   i.StepData,
		Completed:  i.Completed,
	}
}

func inspectionFromRecord(r *syncclient.InspectionRecord, propertyLocalID string) *models.Inspection {
	return &models.Inspection{
		ServerID:        string(r.ID),
		PropertyLocalID: propertyLocalID,
		Kind:            r.Kind,
		StepData:        r.StepData,
		Completed:       r.Completed,
	}
}

func (e *Engine) recordHistory(direction string, entry models.QueueEntry, outcome, detail string) {
	err := e.store.RecordSyncHistory(store.SyncHistoryEntry{
		Direction:  direction,
		ActionType: string(entry.Action),
		EntityType: string(entry.EntityType),
		EntityID:   entry.EntityID,
		Outcome:    outcome,
		Detail:     detail,
		DeviceID:   e.deviceID,
		Timestamp:  e.now(),
	})
	if err != nil {
		slog.Warn("record sync history", "error", err)
	}
}
