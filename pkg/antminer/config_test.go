package antminer

import (
	"testing"

	"github.com/rigpulse/rigpulse/pkg/telemetry"
)

func TestConfigFromModernConf(t *testing.T) {
	data := map[string]any{
		"bitmain-work-mode":  "1",
		"bitmain-freq-level": "100",
		"pools": []any{
			map[string]any{"url": "stratum+tcp://pool:3333", "user": "worker.1", "pass": "x"},
			map[string]any{"url": "", "user": "ignored", "pass": ""},
		},
	}

	cfg := configFromModernConf(data)
	if cfg.Mode != telemetry.ModeSleep {
		t.Errorf("Mode = %v, want sleep", cfg.Mode)
	}
	if cfg.FreqLevel != "100" {
		t.Errorf("FreqLevel = %q, want 100", cfg.FreqLevel)
	}
	if len(cfg.Pools) != 1 {
		t.Fatalf("got %d pools, want 1 (empty url dropped)", len(cfg.Pools))
	}
	if cfg.Pools[0].URL != "stratum+tcp://pool:3333" || cfg.Pools[0].User != "worker.1" {
		t.Errorf("pool = %+v", cfg.Pools[0])
	}
}

func TestConfigAsModernConf(t *testing.T) {
	cfg := &telemetry.Config{
		Mode:      telemetry.ModeNormal,
		FreqLevel: "90",
		Pools:     []telemetry.Pool{{URL: "stratum+tcp://pool:3333", User: "w", Password: "x"}},
	}

	params := configAsModernConf(cfg)
	if params["miner-mode"] != 0 {
		t.Errorf("miner-mode = %v, want 0", params["miner-mode"])
	}
	if params["freq-level"] != "90" {
		t.Errorf("freq-level = %v, want 90", params["freq-level"])
	}

	cfg.FreqLevel = ""
	if _, ok := configAsModernConf(cfg)["freq-level"]; ok {
		t.Error("empty freq-level should be omitted")
	}
}

func TestConfigLegacyRoundTrip(t *testing.T) {
	data := map[string]any{
		"bitmain-work-mode": 1.0,
		"pools": []any{
			map[string]any{"url": "stratum+tcp://pool:3333", "user": "w", "pass": "x"},
		},
	}

	cfg := configFromLegacyConf(data)
	if cfg.Mode != telemetry.ModeSleep {
		t.Errorf("Mode = %v, want sleep", cfg.Mode)
	}

	params := configAsLegacyConf(cfg)
	if params["bitmain-work-mode"] != 1 {
		t.Errorf("bitmain-work-mode = %v, want 1", params["bitmain-work-mode"])
	}
	pools, ok := params["pools"].([]any)
	if !ok || len(pools) != 1 {
		t.Errorf("pools = %v, want 1 entry", params["pools"])
	}
}

func TestConfigClone(t *testing.T) {
	orig := &telemetry.Config{
		Mode:  telemetry.ModeNormal,
		Pools: []telemetry.Pool{{URL: "a"}},
	}

	clone := orig.Clone()
	clone.Mode = telemetry.ModeSleep
	clone.Pools[0].URL = "b"

	if orig.Mode != telemetry.ModeNormal {
		t.Error("clone mutation leaked into the original mode")
	}
	if orig.Pools[0].URL != "a" {
		t.Error("clone mutation leaked into the original pools")
	}
}
