package database

// SchemaVersion is bumped whenever Schema changes shape.
const SchemaVersion = 1

// Schema is the SQLite schema. Devices are keyed by IP for upserts since
// legacy firmware does not always surface a MAC before the first full
// collection pass.
const Schema = `
CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS devices (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    ip TEXT NOT NULL UNIQUE,
    mac TEXT,
    hostname TEXT,
    model TEXT,
    dialect TEXT NOT NULL,
    firmware_version TEXT,
    online INTEGER DEFAULT 1,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    last_seen_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_devices_mac ON devices(mac);
CREATE INDEX IF NOT EXISTS idx_devices_model ON devices(model);

CREATE TABLE IF NOT EXISTS snapshots (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    device_id INTEGER NOT NULL,
    taken_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    hashrate REAL,
    expected_hashrate REAL,
    uptime_seconds INTEGER,
    is_mining INTEGER,
    fault_light INTEGER,
    failed_fields TEXT DEFAULT '',
    FOREIGN KEY (device_id) REFERENCES devices(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_snapshots_device ON snapshots(device_id, taken_at);

CREATE TABLE IF NOT EXISTS snapshot_boards (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    snapshot_id INTEGER NOT NULL,
    slot INTEGER NOT NULL,
    chips INTEGER,
    hashrate REAL,
    temp REAL,
    chip_temp REAL,
    serial TEXT,
    missing INTEGER NOT NULL,
    FOREIGN KEY (snapshot_id) REFERENCES snapshots(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS snapshot_fans (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    snapshot_id INTEGER NOT NULL,
    slot INTEGER NOT NULL,
    speed_rpm INTEGER NOT NULL,
    FOREIGN KEY (snapshot_id) REFERENCES snapshots(id) ON DELETE CASCADE
);
`
