// Package database persists discovered devices and their collected
// telemetry snapshots to SQLite. It is owned by the harvest CLI; the
// collection core itself holds no on-disk state.
package database

import "time"

// Device is the stored identity of one fleet device.
type Device struct {
	ID              int64
	IP              string
	MAC             string
	Hostname        string
	Model           string
	Dialect         string
	FirmwareVersion string
	Online          bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
	LastSeenAt      time.Time
}

// SnapshotRow is one stored collection pass. Nullable readings stay
// pointers, mirroring the in-memory snapshot's absent-vs-zero split.
type SnapshotRow struct {
	ID       int64
	DeviceID int64
	TakenAt  time.Time

	Hashrate         *float64
	ExpectedHashrate *float64
	UptimeSeconds    *int64
	IsMining         *bool
	FaultLight       *bool

	// FailedFields records which canonical fields fell back to their
	// defaults in this pass, comma-separated. Empty means a clean pass.
	FailedFields string
}

// BoardRow is one hashboard reading within a snapshot.
type BoardRow struct {
	ID         int64
	SnapshotID int64
	Slot       int
	Chips      int
	Hashrate   *float64
	Temp       *float64
	ChipTemp   *float64
	Serial     string
	Missing    bool
}

// FanRow is one fan reading within a snapshot.
type FanRow struct {
	ID         int64
	SnapshotID int64
	Slot       int
	SpeedRPM   int
}
