package engine

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"strings"

	"github.com/marcus/fieldsync/internal/models"
	"github.com/marcus/fieldsync/internal/store"
	"github.com/marcus/fieldsync/internal/syncclient"
)

// uploadEvidence runs the second sync phase: push captured binaries
// whose parent inspection the server already knows about. Upload
// failures never touch the mutation queue; the returned error covers
// only a store-level failure of the scan itself.
func (e *Engine) uploadEvidence(ctx context.Context, res *Result) error {
	items, err := e.store.ListUploadableEvidence(e.maxUploadAttempts)
	if err != nil {
		res.FailedItems++
		res.Errors = append(res.Errors, fmt.Sprintf("evidence: %v", err))
		return err
	}

	for _, ev := range items {
		if ctx.Err() != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("sync cancelled: %v", ctx.Err()))
			return nil
		}

		parent, err := e.store.GetInspection(ev.InspectionLocalID)
		if err != nil || parent.ServerID == "" {
			// Parent not on the server yet; retried next pass at no cost
			slog.Debug("evidence deferred", "id", ev.LocalID, "inspection", ev.InspectionLocalID)
			continue
		}

		resp, err := e.upload(ctx, &ev, parent.ServerID)
		if err != nil {
			res.FailedItems++
			res.Errors = append(res.Errors, fmt.Sprintf("%s/%s: %v", models.EntityEvidence, ev.LocalID, err))
			if recErr := e.store.RecordEvidenceUploadFailure(ev.LocalID, err.Error(), e.maxUploadAttempts); recErr != nil {
				slog.Warn("record upload failure", "id", ev.LocalID, "error", recErr)
			}
			e.recordUploadHistory(ev.LocalID, "error", err.Error())
			continue
		}

		if err := e.store.SetEvidenceUploaded(ev.LocalID, string(resp.ID), resp.URL, e.now()); err != nil {
			res.FailedItems++
			res.Errors = append(res.Errors, fmt.Sprintf("%s/%s: %v", models.EntityEvidence, ev.LocalID, err))
			continue
		}
		res.SyncedItems++
		e.recordUploadHistory(ev.LocalID, "ok", "")
		slog.Debug("evidence uploaded", "id", ev.LocalID, "url", resp.URL)
	}

	return nil
}

func (e *Engine) upload(ctx context.Context, ev *models.Evidence, inspectionServerID string) (*syncclient.EvidenceUploadResponse, error) {
	meta := syncclient.EvidenceUpload{
		InspectionID: inspectionServerID,
		Step:         ev.Step,
		Type:         string(ev.Type),
		Metadata:     ev.Metadata,
		Latitude:     ev.Latitude,
		Longitude:    ev.Longitude,
	}

	// Captures stored inline as data URIs are decoded rather than read
	// from disk
	if strings.HasPrefix(ev.LocalPath, "data:") {
		data, err := decodeDataURI(ev.LocalPath)
		if err != nil {
			return nil, err
		}
		return e.client.UploadEvidenceReader(ctx, bytes.NewReader(data), ev.LocalID, meta)
	}

	return e.client.UploadEvidence(ctx, ev.LocalPath, meta)
}

// decodeDataURI extracts the payload from "data:<mime>;base64,<data>"
func decodeDataURI(uri string) ([]byte, error) {
	idx := strings.Index(uri, ",")
	if idx < 0 {
		return nil, fmt.Errorf("malformed data URI")
	}
	header, payload := uri[:idx], uri[idx+1:]
	if !strings.HasSuffix(header, ";base64") {
		return []byte(payload), nil
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("decode data URI: %w", err)
	}
	return data, nil
}

func (e *Engine) recordUploadHistory(entityID, outcome, detail string) {
	err := e.store.RecordSyncHistory(store.SyncHistoryEntry{
		Direction:  "push",
		ActionType: "upload",
		EntityType: string(models.EntityEvidence),
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
