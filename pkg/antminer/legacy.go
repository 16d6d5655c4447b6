package antminer

import (
	"context"
	"fmt"

	"github.com/rigpulse/rigpulse/pkg/telemetry"
)

// newLegacyRegistry declares the legacy dialect. The shape differs from
// modern in three ways: stats come back as one flat map with positional
// offsets, the blink sentinel is a boolean rather than a code string, and
// the MAC has no declared source at all (the extractor queries the web
// API itself).
func newLegacyRegistry(d *Device) telemetry.Registry {
	return telemetry.Registry{
		telemetry.FieldMAC: {Extract: d.legacyMAC},
		telemetry.FieldAPIVersion: {
			Extract: extractAPIVersion,
			Sources: []telemetry.Source{telemetry.RPCSource("api_version", "version")},
		},
		telemetry.FieldFirmwareVersion: {
			Extract: extractFirmwareVersion,
			Sources: []telemetry.Source{telemetry.RPCSource("api_version", "version")},
		},
		telemetry.FieldHostname: {
			Extract: extractHostname,
			Sources: []telemetry.Source{telemetry.WebSource("web_get_system_info", "get_system_info")},
		},
		telemetry.FieldHashrate: {
			Extract: extractSummaryHashrate,
			Sources: []telemetry.Source{telemetry.RPCSource("api_summary", "summary")},
		},
		telemetry.FieldExpectedHashrate: {
			Extract: extractExpectedHashrate,
			Sources: []telemetry.Source{telemetry.RPCSource("api_stats", "stats")},
		},
		telemetry.FieldHashboards: {
			Extract: d.legacyHashboards,
			Sources: []telemetry.Source{telemetry.RPCSource("api_stats", "stats")},
		},
		telemetry.FieldEnvironmentTemp: {Extract: extractAbsent},
		telemetry.FieldWattage:         {Extract: extractAbsent},
		telemetry.FieldWattageLimit:    {Extract: extractAbsent},
		telemetry.FieldFans: {
			Extract: d.legacyFans,
			Sources: []telemetry.Source{telemetry.RPCSource("api_stats", "stats")},
		},
		telemetry.FieldErrors:     {Extract: extractNoErrors},
		telemetry.FieldFaultLight: {Extract: d.legacyFaultLight},
		telemetry.FieldIsMining: {
			Extract: d.legacyIsMining,
			Sources: []telemetry.Source{telemetry.WebSource("web_get_conf", "get_miner_conf")},
		},
		telemetry.FieldUptime: {
			Extract: extractUptime,
			Sources: []telemetry.Source{telemetry.RPCSource("api_stats", "stats")},
		},
		telemetry.FieldConfig: {Extract: d.extractConfig},
	}
}

// extractNoErrors is the legacy error binding: the firmware has no error
// feed, so the documented default is an empty list.
func extractNoErrors(ctx context.Context, p telemetry.Payload) (telemetry.Apply, error) {
	return func(s *telemetry.Snapshot) { s.Errors = []telemetry.DeviceError{} }, nil
}

// legacyMAC has no declared source; it reads system info directly.
func (d *Device) legacyMAC(ctx context.Context, p telemetry.Payload) (telemetry.Apply, error) {
	data, err := d.web.Send(ctx, "get_system_info", nil)
	if err != nil {
		return nil, telemetry.ErrNoData
	}
	mac, ok := telemetry.Str(data, "macaddr")
	if !ok {
		return nil, telemetry.ErrNoData
	}
	return func(s *telemetry.Snapshot) { s.MAC = mac }, nil
}

// legacyHashboards extracts the board group from the flat stats map. The
// populated range's start offset is resolved heuristically per pass, then
// exactly the expected number of consecutive slots is read. The result
// always has the expected length; unreadable slots stay missing.
func (d *Device) legacyHashboards(ctx context.Context, p telemetry.Payload) (telemetry.Apply, error) {
	boards := make([]telemetry.HashBoard, d.spec.ExpectedHashboards)
	for i := range boards {
		boards[i] = telemetry.NewHashBoard(i, d.spec.ExpectedChips)
	}
	apply := func(s *telemetry.Snapshot) { s.Hashboards = boards }

	stats, ok := statsRecord(p, 1)
	if !ok {
		return apply, nil
	}

	offset := resolveBoardOffset(stats)
	for slot := range boards {
		i := offset + slot
		board := &boards[slot]

		if chips, ok := telemetry.Num(stats, fmt.Sprintf("chain_acn%d", i)); ok && chips > 0 {
			board.Chips = int(chips)
			board.Missing = false
		}
		if raw, ok := telemetry.Num(stats, fmt.Sprintf("chain_rate%d", i)); ok && raw != 0 {
			rate := telemetry.Round2(raw / 1000)
			board.Hashrate = &rate
		}
		if temp, ok := telemetry.Num(stats, fmt.Sprintf("temp2_%d", i)); ok && temp != 0 {
			t := telemetry.Round2(temp)
			board.Temp = &t
		}
		if temp, ok := telemetry.Num(stats, fmt.Sprintf("temp%d", i)); ok && temp != 0 {
			t := telemetry.Round2(temp)
			board.ChipTemp = &t
		}
	}
	return apply, nil
}

// legacyFans reads fan speeds from the flat stats map, starting at the
// resolved fan offset. Unreported slots stay at 0 RPM.
func (d *Device) legacyFans(ctx context.Context, p telemetry.Payload) (telemetry.Apply, error) {
	fans := make([]telemetry.Fan, d.spec.ExpectedFans)
	apply := func(s *telemetry.Snapshot) { s.Fans = fans }

	stats, ok := statsRecord(p, 1)
	if !ok {
		return apply, nil
	}

	offset := resolveFanOffset(stats)
	for n := range fans {
		if speed, ok := telemetry.Num(stats, fmt.Sprintf("fan%d", offset+n)); ok {
			fans[n].Speed = int(speed)
		}
	}
	return apply, nil
}

// legacyFaultLight mirrors modernFaultLight with the legacy boolean
// sentinel.
func (d *Device) legacyFaultLight(ctx context.Context, p telemetry.Payload) (telemetry.Apply, error) {
	if d.lightOn() {
		on := true
		return func(s *telemetry.Snapshot) { s.FaultLight = &on }, nil
	}

	data, err := d.web.Send(ctx, "get_blink_status", nil)
	if err != nil {
		return nil, telemetry.ErrNoData
	}
	on, ok := telemetry.Bool(data, "isBlinking")
	if !ok {
		return nil, telemetry.ErrNoData
	}
	d.setLight(on)
	return func(s *telemetry.Snapshot) { s.FaultLight = &on }, nil
}

// legacyIsMining tries the configured work mode first and falls back to
// whether the RPC summary returns a non-empty payload at all.
func (d *Device) legacyIsMining(ctx context.Context, p telemetry.Payload) (telemetry.Apply, error) {
	if conf := p.Get("web_get_conf"); conf != nil {
		if mode, ok := telemetry.Num(conf, "bitmain-work-mode"); ok {
			mining := int(mode) != 1
			return func(s *telemetry.Snapshot) { s.IsMining = &mining }, nil
		}
	}

	data, err := d.rpc.Send(ctx, "summary")
	if err != nil {
		return nil, telemetry.ErrNoData
	}
	mining := len(data) > 0
	return func(s *telemetry.Snapshot) { s.IsMining = &mining }, nil
}

// legacySetFaultLight issues the blink command, then confirms the
// transition by re-reading the blink status; the boolean there is the
// dialect's sentinel.
func (d *Device) legacySetFaultLight(ctx context.Context, on bool) (bool, error) {
	if _, err := d.web.Send(ctx, "blink", map[string]any{"blink": on}); err != nil {
		return d.lightOn(), err
	}

	data, err := d.web.Send(ctx, "get_blink_status", nil)
	if err != nil {
		return d.lightOn(), nil
	}
	if blinking, ok := telemetry.Bool(data, "isBlinking"); ok && blinking == on {
		d.setLight(on)
	}
	return d.lightOn(), nil
}
