package main

import (
	"strings"
	"time"

	"github.com/rigpulse/rigpulse/pkg/database"
	"github.com/rigpulse/rigpulse/pkg/telemetry"
)

// buildStored flattens one collection pass into database rows. Readings
// that failed stay NULL; the failed field names land in FailedFields so
// a pass is auditable after the fact.
func buildStored(snap telemetry.Snapshot, report telemetry.Report, takenAt time.Time) *database.Stored {
	row := database.SnapshotRow{
		TakenAt:          takenAt,
		Hashrate:         snap.Hashrate,
		ExpectedHashrate: snap.ExpectedHashrate,
		IsMining:         snap.IsMining,
		FaultLight:       snap.FaultLight,
		UptimeSeconds:    snap.Uptime,
	}

	if failed := report.Failed(); len(failed) > 0 {
		names := make([]string, len(failed))
		for i, f := range failed {
			names[i] = string(f)
		}
		row.FailedFields = strings.Join(names, ",")
	}

	stored := &database.Stored{Snapshot: row}

	for _, b := range snap.Hashboards {
		stored.Boards = append(stored.Boards, database.BoardRow{
			Slot:     b.Slot,
			Chips:    b.Chips,
			Hashrate: b.Hashrate,
			Temp:     b.Temp,
			ChipTemp: b.ChipTemp,
			Serial:   b.SerialNumber,
			Missing:  b.Missing,
		})
	}
	for i, f := range snap.Fans {
		stored.Fans = append(stored.Fans, database.FanRow{
			Slot:     i,
			SpeedRPM: f.Speed,
		})
	}

	return stored
}
