package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteRepository implements Repository on a local SQLite file.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository opens (and if needed creates) the database at
// path; ":memory:" works for tests.
func NewSQLiteRepository(path string) (*SQLiteRepository, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	r := &SQLiteRepository{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	return r, nil
}

func (r *SQLiteRepository) migrate() error {
	var version int
	err := r.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_version").Scan(&version)
	if err != nil {
		if _, err := r.db.Exec(Schema); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
		_, err = r.db.Exec("INSERT INTO schema_version (version) VALUES (?)", SchemaVersion)
		return err
	}
	if version > SchemaVersion {
		return fmt.Errorf("database schema version %d newer than supported %d", version, SchemaVersion)
	}
	return nil
}

// Close closes the underlying database.
func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

// UpsertDevice inserts or refreshes a device keyed by IP.
func (r *SQLiteRepository) UpsertDevice(ctx context.Context, d *Device) (int64, error) {
	now := time.Now()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO devices (ip, mac, hostname, model, dialect, firmware_version, online, created_at, updated_at, last_seen_at)
		VALUES (?, ?, ?, ?, ?, ?, 1, ?, ?, ?)
		ON CONFLICT(ip) DO UPDATE SET
			mac = CASE WHEN excluded.mac != '' THEN excluded.mac ELSE devices.mac END,
			hostname = CASE WHEN excluded.hostname != '' THEN excluded.hostname ELSE devices.hostname END,
			model = excluded.model,
			dialect = excluded.dialect,
			firmware_version = CASE WHEN excluded.firmware_version != '' THEN excluded.firmware_version ELSE devices.firmware_version END,
			online = 1,
			updated_at = excluded.updated_at,
			last_seen_at = excluded.last_seen_at`,
		d.IP, d.MAC, d.Hostname, d.Model, d.Dialect, d.FirmwareVersion, now, now, now)
	if err != nil {
		return 0, fmt.Errorf("upsert device %s: %w", d.IP, err)
	}

	var id int64
	if err := r.db.QueryRowContext(ctx, "SELECT id FROM devices WHERE ip = ?", d.IP).Scan(&id); err != nil {
		return 0, fmt.Errorf("resolve device id %s: %w", d.IP, err)
	}
	d.ID = id
	return id, nil
}

// SetOnline flips a device's online flag.
func (r *SQLiteRepository) SetOnline(ctx context.Context, deviceID int64, online bool) error {
	var err error
	if online {
		_, err = r.db.ExecContext(ctx,
			"UPDATE devices SET online = 1, last_seen_at = ?, updated_at = ? WHERE id = ?",
			time.Now(), time.Now(), deviceID)
	} else {
		_, err = r.db.ExecContext(ctx,
			"UPDATE devices SET online = 0, updated_at = ? WHERE id = ?",
			time.Now(), deviceID)
	}
	if err != nil {
		return fmt.Errorf("set online %d: %w", deviceID, err)
	}
	return nil
}

// ListDevices returns all known devices, most recently seen first.
func (r *SQLiteRepository) ListDevices(ctx context.Context) ([]*Device, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, ip, mac, hostname, model, dialect, firmware_version, online, created_at, updated_at, last_seen_at
		FROM devices ORDER BY last_seen_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list devices: %w", err)
	}
	defer rows.Close()

	var out []*Device
	for rows.Next() {
		d, err := scanDevice(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// GetDeviceByIP fetches one device record.
func (r *SQLiteRepository) GetDeviceByIP(ctx context.Context, ip string) (*Device, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, ip, mac, hostname, model, dialect, firmware_version, online, created_at, updated_at, last_seen_at
		FROM devices WHERE ip = ?`, ip)
	return scanDevice(row)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDevice(row rowScanner) (*Device, error) {
	var d Device
	var mac, hostname, model, fw sql.NullString
	err := row.Scan(&d.ID, &d.IP, &mac, &hostname, &model, &d.Dialect, &fw,
		&d.Online, &d.CreatedAt, &d.UpdatedAt, &d.LastSeenAt)
	if err != nil {
		return nil, fmt.Errorf("scan device: %w", err)
	}
	d.MAC = mac.String
	d.Hostname = hostname.String
	d.Model = model.String
	d.FirmwareVersion = fw.String
	return &d, nil
}

// InsertSnapshot stores one collection pass with its board and fan rows
// in a single transaction.
func (r *SQLiteRepository) InsertSnapshot(ctx context.Context, deviceID int64, takenAt time.Time, s *Stored) (int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin snapshot tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO snapshots (device_id, taken_at, hashrate, expected_hashrate, uptime_seconds, is_mining, fault_light, failed_fields)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		deviceID, takenAt,
		s.Snapshot.Hashrate, s.Snapshot.ExpectedHashrate, s.Snapshot.UptimeSeconds,
		s.Snapshot.IsMining, s.Snapshot.FaultLight, s.Snapshot.FailedFields)
	if err != nil {
		return 0, fmt.Errorf("insert snapshot: %w", err)
	}
	snapID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("snapshot id: %w", err)
	}

	for _, b := range s.Boards {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO snapshot_boards (snapshot_id, slot, chips, hashrate, temp, chip_temp, serial, missing)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			snapID, b.Slot, b.Chips, b.Hashrate, b.Temp, b.ChipTemp, b.Serial, b.Missing)
		if err != nil {
			return 0, fmt.Errorf("insert board %d: %w", b.Slot, err)
		}
	}
	for _, f := range s.Fans {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO snapshot_fans (snapshot_id, slot, speed_rpm) VALUES (?, ?, ?)`,
			snapID, f.Slot, f.SpeedRPM)
		if err != nil {
			return 0, fmt.Errorf("insert fan %d: %w", f.Slot, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit snapshot: %w", err)
	}
	return snapID, nil
}

// LatestSnapshot fetches a device's most recent stored pass.
func (r *SQLiteRepository) LatestSnapshot(ctx context.Context, deviceID int64) (*Stored, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, device_id, taken_at, hashrate, expected_hashrate, uptime_seconds, is_mining, fault_light, failed_fields
		FROM snapshots WHERE device_id = ? ORDER BY taken_at DESC, id DESC LIMIT 1`, deviceID)

	var s SnapshotRow
	var hashrate, expected sql.NullFloat64
	var uptime sql.NullInt64
	var mining, light sql.NullBool
	err := row.Scan(&s.ID, &s.DeviceID, &s.TakenAt, &hashrate, &expected, &uptime, &mining, &light, &s.FailedFields)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest snapshot %d: %w", deviceID, err)
	}
	if hashrate.Valid {
		s.Hashrate = &hashrate.Float64
	}
	if expected.Valid {
		s.ExpectedHashrate = &expected.Float64
	}
	if uptime.Valid {
		s.UptimeSeconds = &uptime.Int64
	}
	if mining.Valid {
		s.IsMining = &mining.Bool
	}
	if light.Valid {
		s.FaultLight = &light.Bool
	}

	stored := &Stored{Snapshot: s}

	boards, err := r.db.QueryContext(ctx, `
		SELECT id, snapshot_id, slot, chips, hashrate, temp, chip_temp, serial, missing
		FROM snapshot_boards WHERE snapshot_id = ? ORDER BY slot`, s.ID)
	if err != nil {
		return nil, fmt.Errorf("snapshot boards %d: %w", s.ID, err)
	}
	defer boards.Close()
	for boards.Next() {
		var b BoardRow
		var rate, temp, chipTemp sql.NullFloat64
		var serial sql.NullString
		if err := boards.Scan(&b.ID, &b.SnapshotID, &b.Slot, &b.Chips, &rate, &temp, &chipTemp, &serial, &b.Missing); err != nil {
			return nil, fmt.Errorf("scan board: %w", err)
		}
		if rate.Valid {
			b.Hashrate = &rate.Float64
		}
		if temp.Valid {
			b.Temp = &temp.Float64
		}
		if chipTemp.Valid {
			b.ChipTemp = &chipTemp.Float64
		}
		b.Serial = serial.String
		stored.Boards = append(stored.Boards, b)
	}
	if err := boards.Err(); err != nil {
		return nil, err
	}

	fans, err := r.db.QueryContext(ctx, `
		SELECT id, snapshot_id, slot, speed_rpm
		FROM snapshot_fans WHERE snapshot_id = ? ORDER BY slot`, s.ID)
	if err != nil {
		return nil, fmt.Errorf("snapshot fans %d: %w", s.ID, err)
	}
	defer fans.Close()
	for fans.Next() {
		var f FanRow
		if err := fans.Scan(&f.ID, &f.SnapshotID, &f.Slot, &f.SpeedRPM); err != nil {
			return nil, fmt.Errorf("scan fan: %w", err)
		}
		stored.Fans = append(stored.Fans, f)
	}
	if err := fans.Err(); err != nil {
		return nil, err
	}

	return stored, nil
}

// Ensure SQLiteRepository implements Repository.
var _ Repository = (*SQLiteRepository)(nil)
