package antminer

import (
	"context"
	"strconv"

	"github.com/rigpulse/rigpulse/pkg/telemetry"
)

// blinkConfirmOn and blinkConfirmOff are the modern firmware's sentinel
// codes embedded in the blink response body. Transport status says
// nothing; only these codes confirm the transition.
const (
	blinkConfirmOn  = "B000"
	blinkConfirmOff = "B100"
)

// newModernRegistry declares the modern dialect: structured, array-indexed
// responses, one canonical field per binding. Built once per device.
func newModernRegistry(d *Device) telemetry.Registry {
	return telemetry.Registry{
		telemetry.FieldMAC: {
			Extract: d.modernMAC,
			Sources: []telemetry.Source{telemetry.WebSource("web_get_system_info", "get_system_info")},
		},
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
			Extract: d.modernHashboards,
			Sources: []telemetry.Source{telemetry.RPCSource("api_stats", "stats")},
		},
		telemetry.FieldEnvironmentTemp: {Extract: extractAbsent},
		telemetry.FieldWattage:         {Extract: extractAbsent},
		telemetry.FieldWattageLimit:    {Extract: extractAbsent},
		telemetry.FieldFans: {
			Extract: d.modernFans,
			Sources: []telemetry.Source{telemetry.RPCSource("api_stats", "stats")},
		},
		telemetry.FieldErrors: {
			Extract: extractWebSummaryErrors,
			Sources: []telemetry.Source{telemetry.WebSource("web_summary", "summary")},
		},
		telemetry.FieldFaultLight: {Extract: d.modernFaultLight},
		telemetry.FieldIsMining: {
			Extract: extractModernIsMining,
			Sources: []telemetry.Source{telemetry.WebSource("web_get_conf", "get_miner_conf")},
		},
		telemetry.FieldUptime: {
			Extract: extractUptime,
			Sources: []telemetry.Source{telemetry.RPCSource("api_stats", "stats")},
		},
		telemetry.FieldConfig: {Extract: d.extractConfig},
	}
}

// extractAbsent is the binding for fields this dialect declares but has
// no data source for; the documented default is absence.
func extractAbsent(ctx context.Context, p telemetry.Payload) (telemetry.Apply, error) {
	return nil, telemetry.ErrNoData
}

// modernMAC reads the MAC from system info, falling back to a secondary
// network-info query when the primary payload lacks it.
func (d *Device) modernMAC(ctx context.Context, p telemetry.Payload) (telemetry.Apply, error) {
	if mac, ok := telemetry.Str(p.Get("web_get_system_info"), "macaddr"); ok {
		return func(s *telemetry.Snapshot) { s.MAC = mac }, nil
	}

	data, err := d.web.Send(ctx, "get_network_info", nil)
	if err != nil {
		return nil, telemetry.ErrNoData
	}
	if mac, ok := telemetry.Str(data, "macaddr"); ok {
		return func(s *telemetry.Snapshot) { s.MAC = mac }, nil
	}
	return nil, telemetry.ErrNoData
}

func versionRecord(p telemetry.Payload) (map[string]any, bool) {
	l, ok := telemetry.List(p.Get("api_version"), "VERSION")
	if !ok {
		return nil, false
	}
	return telemetry.MapAt(l, 0)
}

func extractAPIVersion(ctx context.Context, p telemetry.Payload) (telemetry.Apply, error) {
	rec, ok := versionRecord(p)
	if !ok {
		return nil, telemetry.ErrNoData
	}
	ver, ok := telemetry.Str(rec, "API")
	if !ok {
		return nil, telemetry.ErrNoData
	}
	return func(s *telemetry.Snapshot) { s.APIVersion = ver }, nil
}

func extractFirmwareVersion(ctx context.Context, p telemetry.Payload) (telemetry.Apply, error) {
	rec, ok := versionRecord(p)
	if !ok {
		return nil, telemetry.ErrNoData
	}
	ver, ok := telemetry.Str(rec, "CompileTime")
	if !ok {
		return nil, telemetry.ErrNoData
	}
	return func(s *telemetry.Snapshot) { s.FirmwareVersion = ver }, nil
}

func extractHostname(ctx context.Context, p telemetry.Payload) (telemetry.Apply, error) {
	host, ok := telemetry.Str(p.Get("web_get_system_info"), "hostname")
	if !ok {
		return nil, telemetry.ErrNoData
	}
	return func(s *telemetry.Snapshot) { s.Hostname = host }, nil
}

// extractSummaryHashrate reads the 5-second rate from the RPC summary.
// The value is reported in GH/s.
func extractSummaryHashrate(ctx context.Context, p telemetry.Payload) (telemetry.Apply, error) {
	l, ok := telemetry.List(p.Get("api_summary"), "SUMMARY")
	if !ok {
		return nil, telemetry.ErrNoData
	}
	rec, ok := telemetry.MapAt(l, 0)
	if !ok {
		return nil, telemetry.ErrNoData
	}
	raw, ok := telemetry.Num(rec, "GHS 5s")
	if !ok {
		return nil, telemetry.ErrNoData
	}
	rate := telemetry.ConvertRate(raw, "GH")
	return func(s *telemetry.Snapshot) { s.Hashrate = &rate }, nil
}

// extractExpectedHashrate reads the ideal rate from stats. The unit comes
// from the same record and defaults to GH when the firmware omits it.
func extractExpectedHashrate(ctx context.Context, p telemetry.Payload) (telemetry.Apply, error) {
	rec, ok := statsRecord(p, 1)
	if !ok {
		return nil, telemetry.ErrNoData
	}
	raw, ok := telemetry.Num(rec, "total_rateideal")
	if !ok {
		return nil, telemetry.ErrNoData
	}
	unit, ok := telemetry.Str(rec, "rate_unit")
	if !ok {
		unit = "GH"
	}
	rate := telemetry.ConvertRate(raw, unit)
	return func(s *telemetry.Snapshot) { s.ExpectedHashrate = &rate }, nil
}

// statsRecord returns STATS[i] from an api_stats payload.
func statsRecord(p telemetry.Payload, i int) (map[string]any, bool) {
	l, ok := telemetry.List(p.Get("api_stats"), "STATS")
	if !ok {
		return nil, false
	}
	return telemetry.MapAt(l, i)
}

// modernHashboards builds the board collection from the indexed chain
// records. The result always has exactly the expected number of slots;
// slots without a confirmed chain record stay at their missing defaults.
func (d *Device) modernHashboards(ctx context.Context, p telemetry.Payload) (telemetry.Apply, error) {
	boards := make([]telemetry.HashBoard, d.spec.ExpectedHashboards)
	for i := range boards {
		boards[i] = telemetry.NewHashBoard(i, d.spec.ExpectedChips)
	}
	apply := func(s *telemetry.Snapshot) { s.Hashboards = boards }

	rec, ok := statsRecord(p, 0)
	if !ok {
		return apply, nil
	}
	chains, ok := telemetry.List(rec, "chain")
	if !ok {
		return apply, nil
	}

	for i := range chains {
		chain, ok := telemetry.MapAt(chains, i)
		if !ok {
			continue
		}
		idxF, ok := telemetry.Num(chain, "index")
		if !ok {
			continue
		}
		idx := int(idxF)
		if idx < 0 || idx >= len(boards) {
			continue
		}
		board := &boards[idx]

		if raw, ok := telemetry.Num(chain, "rate_real"); ok {
			rate := telemetry.Round2(raw / 1000)
			board.Hashrate = &rate
		}
		if chips, ok := telemetry.Num(chain, "asic_num"); ok && chips > 0 {
			board.Chips = int(chips)
			board.Missing = false
		}
		if temps, ok := telemetry.List(chain, "temp_pcb"); ok {
			if mean, ok := telemetry.MeanNonZero(telemetry.Nums(temps)); ok {
				board.Temp = &mean
			}
		}
		if temps, ok := telemetry.List(chain, "temp_chip"); ok {
			if mean, ok := telemetry.MeanNonZero(telemetry.Nums(temps)); ok {
				board.ChipTemp = &mean
			}
		}
		if sn, ok := telemetry.Str(chain, "sn"); ok {
			board.SerialNumber = sn
		}
	}
	return apply, nil
}

// modernFans reads the RPM array from stats. Slots the firmware does not
// report stay at 0.
func (d *Device) modernFans(ctx context.Context, p telemetry.Payload) (telemetry.Apply, error) {
	fans := make([]telemetry.Fan, d.spec.ExpectedFans)
	apply := func(s *telemetry.Snapshot) { s.Fans = fans }

	rec, ok := statsRecord(p, 0)
	if !ok {
		return apply, nil
	}
	speeds, ok := telemetry.List(rec, "fan")
	if !ok {
		return apply, nil
	}
	for i, raw := range telemetry.Nums(speeds) {
		if i >= len(fans) {
			break
		}
		fans[i].Speed = int(raw)
	}
	return apply, nil
}

// extractWebSummaryErrors collects firmware status items that are not
// marked success.
func extractWebSummaryErrors(ctx context.Context, p telemetry.Payload) (telemetry.Apply, error) {
	errs := []telemetry.DeviceError{}
	apply := func(s *telemetry.Snapshot) { s.Errors = errs }

	l, ok := telemetry.List(p.Get("web_summary"), "SUMMARY")
	if !ok {
		return apply, nil
	}
	rec, ok := telemetry.MapAt(l, 0)
	if !ok {
		return apply, nil
	}
	statuses, ok := telemetry.List(rec, "status")
	if !ok {
		return apply, nil
	}
	for i := range statuses {
		item, ok := telemetry.MapAt(statuses, i)
		if !ok {
			continue
		}
		code, ok := telemetry.Str(item, "status")
		if !ok || code == "s" {
			continue
		}
		if msg, ok := telemetry.Str(item, "msg"); ok {
			errs = append(errs, telemetry.DeviceError{Kind: "X19", Message: msg})
		}
	}
	return apply, nil
}

// modernFaultLight reads the locator light. A cached ON short-circuits
// without touching the device; otherwise the blink status is queried and
// the cache refreshed.
func (d *Device) modernFaultLight(ctx context.Context, p telemetry.Payload) (telemetry.Apply, error) {
	if d.lightOn() {
		on := true
		return func(s *telemetry.Snapshot) { s.FaultLight = &on }, nil
	}

	data, err := d.web.Send(ctx, "get_blink_status", nil)
	if err != nil {
		return nil, telemetry.ErrNoData
	}
	on, ok := telemetry.Bool(data, "blink")
	if !ok {
		return nil, telemetry.ErrNoData
	}
	d.setLight(on)
	return func(s *telemetry.Snapshot) { s.FaultLight = &on }, nil
}

// extractModernIsMining derives the mining state from the configured work
// mode. Mode 1 is sleep; a non-numeric mode string reads as not mining.
func extractModernIsMining(ctx context.Context, p telemetry.Payload) (telemetry.Apply, error) {
	conf := p.Get("web_get_conf")
	if conf == nil {
		return nil, telemetry.ErrNoData
	}
	raw, ok := telemetry.Str(conf, "bitmain-work-mode")
	if !ok {
		return nil, telemetry.ErrNoData
	}
	mining := false
	if mode, err := strconv.Atoi(raw); err == nil {
		mining = mode != 1
	}
	return func(s *telemetry.Snapshot) { s.IsMining = &mining }, nil
}

func extractUptime(ctx context.Context, p telemetry.Payload) (telemetry.Apply, error) {
	rec, ok := statsRecord(p, 1)
	if !ok {
		return nil, telemetry.ErrNoData
	}
	raw, ok := telemetry.Num(rec, "Elapsed")
	if !ok {
		return nil, telemetry.ErrNoData
	}
	uptime := int64(raw)
	return func(s *telemetry.Snapshot) { s.Uptime = &uptime }, nil
}

// extractConfig fetches the device configuration through the handle's
// config path, so the held config cache stays in sync.
func (d *Device) extractConfig(ctx context.Context, p telemetry.Payload) (telemetry.Apply, error) {
	cfg, err := d.GetConfig(ctx)
	if err != nil {
		return nil, telemetry.ErrNoData
	}
	return func(s *telemetry.Snapshot) { s.Config = cfg }, nil
}

// modernSetFaultLight issues the blink command and flips the cache only
// on the firmware's confirmation code.
func (d *Device) modernSetFaultLight(ctx context.Context, on bool) (bool, error) {
	data, err := d.web.Send(ctx, "blink", map[string]any{"blink": on})
	if err != nil {
		return d.lightOn(), err
	}

	want := blinkConfirmOff
	if on {
		want = blinkConfirmOn
	}
	if code, ok := telemetry.Str(data, "code"); ok && code == want {
		d.setLight(on)
	}
	return d.lightOn(), nil
}
