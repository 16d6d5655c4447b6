package main

import (
	"errors"
	"testing"
	"time"

	"github.com/rigpulse/rigpulse/pkg/telemetry"
)

func TestBuildStored(t *testing.T) {
	rate := 95000.12
	mining := true
	uptime := int64(3600)
	boardRate := 31666.67
	temp := 56.0

	snap := telemetry.Snapshot{
		Hashrate: &rate,
		IsMining: &mining,
		Uptime:   &uptime,
		Hashboards: []telemetry.HashBoard{
			{Slot: 0, Chips: 76, Hashrate: &boardRate, Temp: &temp, SerialNumber: "SN0"},
			{Slot: 1, Missing: true},
		},
		Fans: []telemetry.Fan{{Speed: 4440}, {Speed: 4560}},
	}
	report := telemetry.Report{
		telemetry.FieldHashrate:   nil,
		telemetry.FieldMAC:        errors.New("no data"),
		telemetry.FieldFaultLight: errors.New("no data"),
	}

	takenAt := time.Now()
	stored := buildStored(snap, report, takenAt)

	s := stored.Snapshot
	if s.Hashrate == nil || *s.Hashrate != rate {
		t.Errorf("Hashrate = %v, want %v", s.Hashrate, rate)
	}
	if s.UptimeSeconds == nil || *s.UptimeSeconds != uptime {
		t.Errorf("UptimeSeconds = %v, want %v", s.UptimeSeconds, uptime)
	}
	if s.FailedFields != "mac,fault_light" {
		t.Errorf("FailedFields = %q, want mac,fault_light in canonical order", s.FailedFields)
	}

	if len(stored.Boards) != 2 {
		t.Fatalf("got %d board rows, want 2", len(stored.Boards))
	}
	if stored.Boards[0].Serial != "SN0" || stored.Boards[0].Chips != 76 {
		t.Errorf("board 0 = %+v", stored.Boards[0])
	}
	if !stored.Boards[1].Missing {
		t.Error("board 1 not marked missing")
	}

	if len(stored.Fans) != 2 {
		t.Fatalf("got %d fan rows, want 2", len(stored.Fans))
	}
	if stored.Fans[1].Slot != 1 || stored.Fans[1].SpeedRPM != 4560 {
		t.Errorf("fan 1 = %+v", stored.Fans[1])
	}
}

func TestBuildStoredCleanPass(t *testing.T) {
	stored := buildStored(telemetry.Snapshot{}, telemetry.Report{}, time.Now())
	if stored.Snapshot.FailedFields != "" {
		t.Errorf("FailedFields = %q, want empty", stored.Snapshot.FailedFields)
	}
	if stored.Snapshot.Hashrate != nil {
		t.Error("Hashrate set with no reading")
	}
}
