package antminer

import (
	"strconv"

	"github.com/rigpulse/rigpulse/pkg/telemetry"
)

// Config mapping between the canonical form and the firmware's
// get_miner_conf / set_miner_conf representations. Both generations keep
// pools as an array of url/user/pass objects; the work-mode encoding is
// where they drift (string digits on modern, bare numbers on legacy).

func poolsFromConf(data map[string]any) []telemetry.Pool {
	raw, ok := telemetry.List(data, "pools")
	if !ok {
		return nil
	}
	var pools []telemetry.Pool
	for i := range raw {
		entry, ok := telemetry.MapAt(raw, i)
		if !ok {
			continue
		}
		url, _ := telemetry.Str(entry, "url")
		user, _ := telemetry.Str(entry, "user")
		pass, _ := telemetry.Str(entry, "pass")
		if url == "" {
			continue
		}
		pools = append(pools, telemetry.Pool{URL: url, User: user, Password: pass})
	}
	return pools
}

func poolsAsConf(pools []telemetry.Pool) []any {
	out := make([]any, len(pools))
	for i, p := range pools {
		out[i] = map[string]any{
			"url":  p.URL,
			"user": p.User,
			"pass": p.Password,
		}
	}
	return out
}

func configFromModernConf(data map[string]any) *telemetry.Config {
	cfg := &telemetry.Config{
		Mode:  telemetry.ModeNormal,
		Pools: poolsFromConf(data),
	}
	if raw, ok := telemetry.Str(data, "bitmain-work-mode"); ok {
		if mode, err := strconv.Atoi(raw); err == nil && mode == 1 {
			cfg.Mode = telemetry.ModeSleep
		}
	}
	if level, ok := telemetry.Str(data, "bitmain-freq-level"); ok {
		cfg.FreqLevel = level
	}
	return cfg
}

func configAsModernConf(cfg *telemetry.Config) map[string]any {
	mode := 0
	if cfg.Mode == telemetry.ModeSleep {
		mode = 1
	}
	params := map[string]any{
		"miner-mode": mode,
		"pools":      poolsAsConf(cfg.Pools),
	}
	if cfg.FreqLevel != "" {
		params["freq-level"] = cfg.FreqLevel
	}
	return params
}

func configFromLegacyConf(data map[string]any) *telemetry.Config {
	cfg := &telemetry.Config{
		Mode:  telemetry.ModeNormal,
		Pools: poolsFromConf(data),
	}
	if mode, ok := telemetry.Num(data, "bitmain-work-mode"); ok && int(mode) == 1 {
		cfg.Mode = telemetry.ModeSleep
	}
	return cfg
}

func configAsLegacyConf(cfg *telemetry.Config) map[string]any {
	mode := 0
	if cfg.Mode == telemetry.ModeSleep {
		mode = 1
	}
	return map[string]any{
		"bitmain-work-mode": mode,
		"pools":             poolsAsConf(cfg.Pools),
	}
}
