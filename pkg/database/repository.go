package database

import (
	"context"
	"time"
)

// Stored bundles a snapshot row with its board and fan readings.
type Stored struct {
	Snapshot SnapshotRow
	Boards   []BoardRow
	Fans     []FanRow
}

// Repository is the storage interface the harvester writes through.
type Repository interface {
	Close() error

	// UpsertDevice inserts or refreshes a device keyed by IP and
	// returns its row ID.
	UpsertDevice(ctx context.Context, d *Device) (int64, error)

	// SetOnline flips a device's online flag and, when online,
	// refreshes last_seen_at.
	SetOnline(ctx context.Context, deviceID int64, online bool) error

	// ListDevices returns all known devices, most recently seen first.
	ListDevices(ctx context.Context) ([]*Device, error)

	// GetDeviceByIP fetches one device record.
	GetDeviceByIP(ctx context.Context, ip string) (*Device, error)

	// InsertSnapshot stores one collection pass with its board and fan
	// readings.
	InsertSnapshot(ctx context.Context, deviceID int64, takenAt time.Time, s *Stored) (int64, error)

	// LatestSnapshot fetches a device's most recent stored pass, or
	// nil when none exists.
	LatestSnapshot(ctx context.Context, deviceID int64) (*Stored, error)
}
