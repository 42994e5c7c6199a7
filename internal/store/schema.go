package store

// SchemaVersion is the current database schema version
const SchemaVersion = 3

const schema = `
-- Properties table
CREATE TABLE IF NOT EXISTS properties (
    local_id TEXT PRIMARY KEY,
    server_id TEXT DEFAULT '',
    address TEXT NOT NULL,
    city TEXT DEFAULT '',
    postal_code TEXT DEFAULT '',
    owner_name TEXT DEFAULT '',
    notes TEXT DEFAULT '',
    sync_status TEXT NOT NULL DEFAULT 'pending',
    local_updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    server_updated_at DATETIME,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    deleted_at DATETIME
);

-- Inspections table
CREATE TABLE IF NOT EXISTS inspections (
    local_id TEXT PRIMARY KEY,
    server_id TEXT DEFAULT '',
    property_local_id TEXT NOT NULL,
    kind TEXT NOT NULL DEFAULT 'standard',
    step_data TEXT DEFAULT '',
    completed INTEGER DEFAULT 0,
    sync_status TEXT NOT NULL DEFAULT 'pending',
    local_updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    server_updated_at DATETIME,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    deleted_at DATETIME,
    FOREIGN KEY (property_local_id) REFERENCES properties(local_id)
);

-- Evidence table
CREATE TABLE IF NOT EXISTS evidence (
    local_id TEXT PRIMARY KEY,
    server_id TEXT DEFAULT '',
    inspection_local_id TEXT NOT NULL,
    step INTEGER NOT NULL DEFAULT 0,
    type TEXT NOT NULL DEFAULT 'photo',
    local_path TEXT NOT NULL,
    remote_url TEXT DEFAULT '',
    metadata TEXT DEFAULT '',
    latitude REAL,
    longitude REAL,
    upload_attempts INTEGER DEFAULT 0,
    last_upload_error TEXT DEFAULT '',
    sync_status TEXT NOT NULL DEFAULT 'pending',
    local_updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    server_updated_at DATETIME,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    deleted_at DATETIME,
    FOREIGN KEY (inspection_local_id) REFERENCES inspections(local_id)
);

-- Durable queue of pending local mutations
CREATE TABLE IF NOT EXISTS sync_queue (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    entity_type TEXT NOT NULL,
    entity_id TEXT NOT NULL,
    action TEXT NOT NULL,
    payload TEXT NOT NULL DEFAULT '{}',
    status TEXT NOT NULL DEFAULT 'pending',
    retry_count INTEGER DEFAULT 0,
    last_error TEXT DEFAULT '',
    next_retry_at DATETIME,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

-- Schema info table for version tracking
CREATE TABLE IF NOT EXISTS schema_info (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL
);

-- Indexes
CREATE INDEX IF NOT EXISTS idx_properties_sync_status ON properties(sync_status);
CREATE INDEX IF NOT EXISTS idx_properties_deleted ON properties(deleted_at);
CREATE INDEX IF NOT EXISTS idx_inspections_property ON inspections(property_local_id);
CREATE INDEX IF NOT EXISTS idx_inspections_sync_status ON inspections(sync_status);
CREATE INDEX IF NOT EXISTS idx_evidence_inspection ON evidence(inspection_local_id);
CREATE INDEX IF NOT EXISTS idx_evidence_sync_status ON evidence(sync_status);
CREATE INDEX IF NOT EXISTS idx_queue_status ON sync_queue(status);
`

// Migration defines a database migration
type Migration struct {
	Version     int
	Description string
	SQL         string
}

// Migrations is the list of all database migrations in order
var Migrations = []Migration{
	// Version 1 is the initial schema - no migration needed
	{
		Version:     2,
		Description: "Add sync_history table for per-item audit of sync outcomes",
		SQL: `
CREATE TABLE IF NOT EXISTS sync_history (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    direction TEXT NOT NULL,
    action_type TEXT NOT NULL,
    entity_type TEXT NOT NULL,
    entity_id TEXT NOT NULL,
    outcome TEXT NOT NULL DEFAULT 'ok',
    detail TEXT DEFAULT '',
    device_id TEXT DEFAULT '',
    timestamp DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_sync_history_timestamp ON sync_history(timestamp);
`,
	},
	{
		Version:     3,
		Description: "Add retry scheduling columns to sync_queue",
		SQL: `CREATE INDEX IF NOT EXISTS idx_queue_next_retry ON sync_queue(next_retry_at);
CREATE INDEX IF NOT EXISTS idx_sync_history_entity ON sync_history(entity_type, entity_id);`,
	},
}
