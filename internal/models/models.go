package models

import (
	"encoding/json"
	"time"
)

// SyncStatus represents an entity's relationship to the server copy
type SyncStatus string

const (
	// SyncPending means local mutations exist that the server has not confirmed
	SyncPending SyncStatus = "pending"
	// SyncSynced means local and server state matched as of ServerUpdatedAt
	SyncSynced SyncStatus = "synced"
	// SyncFailed means the last sync attempt errored and needs retry or manual action
	SyncFailed SyncStatus = "failed"
)

// EntityType identifies which mirrored table a queue entry refers to
type EntityType string

const (
	EntityProperty   EntityType = "property"
	EntityInspection EntityType = "inspection"
	EntityEvidence   EntityType = "evidence"
)

// QueueAction represents the kind of mutation a queue entry carries
type QueueAction string

const (
	ActionCreate QueueAction = "create"
	ActionUpdate QueueAction = "update"
	ActionDelete QueueAction = "delete"
)

// QueueStatus represents the processing state of a queue entry
type QueueStatus string

const (
	QueuePending   QueueStatus = "pending"
	QueueCompleted QueueStatus = "completed"
	QueueFailed    QueueStatus = "failed"
	// QueueAbandoned is terminal: the retry cap was reached and the
	// entry will not retry without manual intervention
	QueueAbandoned QueueStatus = "abandoned"
)

// EvidenceType represents the kind of captured artifact
type EvidenceType string

const (
	EvidencePhoto   EvidenceType = "photo"
	EvidenceThermal EvidenceType = "thermal"
	EvidenceVoice   EvidenceType = "voice"
)

// Property represents a property under assessment
type Property struct {
	LocalID         string     `json:"local_id"`
	ServerID        string     `json:"server_id,omitempty"`
	Address         string     `json:"address"`
	City            string     `json:"city,omitempty"`
	PostalCode      string     `json:"postal_code,omitempty"`
	OwnerName       string     `json:"owner_name,omitempty"`
	Notes           string     `json:"notes,omitempty"`
	SyncStatus      SyncStatus `json:"sync_status"`
	LocalUpdatedAt  time.Time  `json:"local_updated_at"`
	ServerUpdatedAt *time.Time `json:"server_updated_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	DeletedAt       *time.Time `json:"deleted_at,omitempty"`
}

// Inspection represents one assessment visit against a property.
// StepData is an opaque JSON document owned by the capture workflow;
// the sync engine only reads identifiers and timestamps.
type Inspection struct {
	LocalID         string          `json:"local_id"`
	ServerID        string          `json:"server_id,omitempty"`
	PropertyLocalID string          `json:"property_local_id"`
	Kind            string          `json:"kind"`
	StepData        json.RawMessage `json:"step_data,omitempty"`
	Completed       bool            `json:"completed"`
	SyncStatus      SyncStatus      `json:"sync_status"`
	LocalUpdatedAt  time.Time       `json:"local_updated_at"`
	ServerUpdatedAt *time.Time      `json:"server_updated_at,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	DeletedAt       *time.Time      `json:"deleted_at,omitempty"`
}

// Evidence represents a binary capture (photo, thermal image, voice
// memo) tied to an inspection step. The binary lives at LocalPath
// until the uploader confirms RemoteURL.
type Evidence struct {
	LocalID           string       `json:"local_id"`
	ServerID          string       `json:"server_id,omitempty"`
	InspectionLocalID string       `json:"inspection_local_id"`
	Step              int          `json:"step"`
	Type              EvidenceType `json:"type"`
	LocalPath         string       `json:"local_path"`
	RemoteURL         string       `json:"remote_url,omitempty"`
	Metadata          string       `json:"metadata,omitempty"`
	Latitude          *float64     `json:"latitude,omitempty"`
	Longitude         *float64     `json:"longitude,omitempty"`
	UploadAttempts    int          `json:"upload_attempts"`
	LastUploadError   string       `json:"last_upload_error,omitempty"`
	SyncStatus        SyncStatus   `json:"sync_status"`
	LocalUpdatedAt    time.Time    `json:"local_updated_at"`
	ServerUpdatedAt   *time.Time   `json:"server_updated_at,omitempty"`
	CreatedAt         time.Time    `json:"created_at"`
	DeletedAt         *time.Time   `json:"deleted_at,omitempty"`
}

// QueueEntry is a durable record of one pending local mutation.
// Payload is a snapshot of the entity at enqueue time and is never
// mutated afterwards; later local edits append a new entry instead.
type QueueEntry struct {
	ID          int64           `json:"id"`
	EntityType  EntityType      `json:"entity_type"`
	EntityID    string          `json:"entity_id"`
	Action      QueueAction     `json:"action"`
	Payload     json.RawMessage `json:"payload"`
	Status      QueueStatus     `json:"status"`
	RetryCount  int             `json:"retry_count"`
	LastError   string          `json:"last_error,omitempty"`
	NextRetryAt *time.Time      `json:"next_retry_at,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// PendingCounts aggregates what still needs to reach the server, for
// status output and the monitor dashboard
type PendingCounts struct {
	Properties   int `json:"properties"`
	Inspections  int `json:"inspections"`
	Evidence     int `json:"evidence"`
	QueueEntries int `json:"queue_entries"`
	Abandoned    int `json:"abandoned"`
}

// Total returns the sum of entity-level pending counts
func (c PendingCounts) Total() int {
	return c.Properties + c.Inspections + c.Evidence
}
