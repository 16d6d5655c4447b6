// Package antminer implements the Antminer firmware dialects: the modern
// generation with structured, array-indexed API responses and the legacy
// generation whose stats come back as one flat key/value dump with
// positional offsets. Both are driven through the same telemetry registry
// and dispatcher; only the registry contents differ.
package antminer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rigpulse/rigpulse/pkg/catalog"
	"github.com/rigpulse/rigpulse/pkg/telemetry"
	"github.com/rigpulse/rigpulse/pkg/transport"
)

// Dialect selects which firmware generation a device speaks.
type Dialect int

const (
	// DialectModern covers X19-generation firmware: indexed chain
	// records, string sentinel codes ("B000") on mutations.
	DialectModern Dialect = iota

	// DialectLegacy covers X17-and-older firmware: flat stats maps with
	// heuristic slot offsets, boolean blink status as the sentinel.
	DialectLegacy
)

func (d Dialect) String() string {
	switch d {
	case DialectModern:
		return "antminer-modern"
	case DialectLegacy:
		return "antminer-legacy"
	default:
		return "unknown"
	}
}

// Device is one Antminer. The registry is built at construction and never
// changes; telemetry values are collected fresh on every pass, and the
// only state that survives between calls is the fault-light cache and the
// last known configuration.
type Device struct {
	host    string
	spec    catalog.Spec
	dialect Dialect

	rpc  transport.RPC
	web  transport.Web
	disp *telemetry.Dispatcher

	registry   telemetry.Registry
	fieldLimit int

	// mu guards light and config. Handles are not meant to be polled
	// concurrently with themselves, but the lock keeps a shared handle
	// safe anyway.
	mu     sync.Mutex
	light  bool
	config *telemetry.Config
}

// Option configures a Device.
type Option func(*Device)

// WithRPC replaces the RPC channel (used by tests and custom transports).
func WithRPC(rpc transport.RPC) Option {
	return func(d *Device) {
		d.rpc = rpc
	}
}

// WithWeb replaces the web channel.
func WithWeb(web transport.Web) Option {
	return func(d *Device) {
		d.web = web
	}
}

// WithCredentials sets the web API login used by the default web channel.
func WithCredentials(creds transport.Credentials) Option {
	return func(d *Device) {
		d.web = transport.NewHTTPClient(d.host, creds)
	}
}

// WithTimeout sets the per-command timeout on the default channels.
// Apply it before WithCredentials when combining the two.
func WithTimeout(timeout time.Duration) Option {
	return func(d *Device) {
		d.rpc = transport.NewTCPClient(d.host, transport.WithRPCTimeout(timeout))
		d.web = transport.NewHTTPClient(d.host, transport.DefaultCredentials(), transport.WithWebTimeout(timeout))
	}
}

// WithFieldConcurrency bounds concurrent field dispatch per pass.
func WithFieldConcurrency(n int) Option {
	return func(d *Device) {
		d.fieldLimit = n
	}
}

// NewModern creates a handle for a modern-dialect Antminer.
func NewModern(host string, spec catalog.Spec, opts ...Option) *Device {
	return newDevice(host, spec, DialectModern, opts...)
}

// NewLegacy creates a handle for a legacy-dialect Antminer.
func NewLegacy(host string, spec catalog.Spec, opts ...Option) *Device {
	return newDevice(host, spec, DialectLegacy, opts...)
}

func newDevice(host string, spec catalog.Spec, dialect Dialect, opts ...Option) *Device {
	d := &Device{
		host:    host,
		spec:    spec,
		dialect: dialect,
		rpc:     transport.NewTCPClient(host),
		web:     transport.NewHTTPClient(host, transport.DefaultCredentials()),
	}

	for _, opt := range opts {
		opt(d)
	}

	dispOpts := []telemetry.DispatcherOption{}
	if d.fieldLimit > 0 {
		dispOpts = append(dispOpts, telemetry.WithFieldConcurrency(d.fieldLimit))
	}
	d.disp = telemetry.NewDispatcher(d.rpc, d.web, dispOpts...)

	switch dialect {
	case DialectLegacy:
		d.registry = newLegacyRegistry(d)
	default:
		d.registry = newModernRegistry(d)
	}

	return d
}

// Host returns the device host address.
func (d *Device) Host() string {
	return d.host
}

// Model returns the hardware model name.
func (d *Device) Model() string {
	return d.spec.Model
}

// Spec returns the model's static attributes.
func (d *Device) Spec() catalog.Spec {
	return d.spec
}

// Fields returns the canonical fields this dialect declares.
func (d *Device) Fields() []telemetry.Field {
	return d.registry.Fields()
}

// Collect runs one collection pass. With no fields given, every field the
// dialect declares is collected. The snapshot is always returned; the
// report carries per-field failure reasons, and the only error is a
// request for an undeclared field.
func (d *Device) Collect(ctx context.Context, fields ...telemetry.Field) (telemetry.Snapshot, telemetry.Report, error) {
	if len(fields) == 0 {
		fields = d.registry.Fields()
	}
	return d.disp.Collect(ctx, d.registry, fields...)
}

// FaultLightOn enables the locator light. The cached state flips only on
// the dialect's confirmation sentinel; an unconfirmed response keeps the
// prior state without an error.
func (d *Device) FaultLightOn(ctx context.Context) (bool, error) {
	return d.setFaultLight(ctx, true)
}

// FaultLightOff disables the locator light.
func (d *Device) FaultLightOff(ctx context.Context) (bool, error) {
	return d.setFaultLight(ctx, false)
}

func (d *Device) setFaultLight(ctx context.Context, on bool) (bool, error) {
	switch d.dialect {
	case DialectLegacy:
		return d.legacySetFaultLight(ctx, on)
	default:
		return d.modernSetFaultLight(ctx, on)
	}
}

// Reboot issues a one-shot reboot. Any returned payload counts as
// success; the result is not verified by a follow-up query.
func (d *Device) Reboot(ctx context.Context) error {
	if _, err := d.web.Send(ctx, "reboot", nil); err != nil {
		return fmt.Errorf("reboot %s: %w", d.host, err)
	}
	return nil
}

// StopMining puts the device to sleep by re-sending its configuration
// with the work mode flipped.
func (d *Device) StopMining(ctx context.Context) error {
	return d.setMode(ctx, telemetry.ModeSleep)
}

// ResumeMining returns the device to normal mining.
func (d *Device) ResumeMining(ctx context.Context) error {
	return d.setMode(ctx, telemetry.ModeNormal)
}

func (d *Device) setMode(ctx context.Context, mode telemetry.MiningMode) error {
	cfg, err := d.GetConfig(ctx)
	if err != nil {
		return err
	}
	cfg = cfg.Clone()
	cfg.Mode = mode
	return d.SendConfig(ctx, cfg)
}

// GetConfig fetches and caches the device configuration.
func (d *Device) GetConfig(ctx context.Context) (*telemetry.Config, error) {
	data, err := d.web.Send(ctx, "get_miner_conf", nil)
	if err != nil {
		return nil, fmt.Errorf("get config %s: %w", d.host, err)
	}

	var cfg *telemetry.Config
	if d.dialect == DialectLegacy {
		cfg = configFromLegacyConf(data)
	} else {
		cfg = configFromModernConf(data)
	}

	d.mu.Lock()
	d.config = cfg
	d.mu.Unlock()
	return cfg, nil
}

// SendConfig pushes a full configuration to the device and remembers it
// as the held config.
func (d *Device) SendConfig(ctx context.Context, cfg *telemetry.Config) error {
	var params map[string]any
	if d.dialect == DialectLegacy {
		params = configAsLegacyConf(cfg)
	} else {
		params = configAsModernConf(cfg)
	}

	if _, err := d.web.Send(ctx, "set_miner_conf", params); err != nil {
		return fmt.Errorf("send config %s: %w", d.host, err)
	}

	d.mu.Lock()
	d.config = cfg
	d.mu.Unlock()
	return nil
}

// lightOn reads the cached fault-light state.
func (d *Device) lightOn() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.light
}

func (d *Device) setLight(on bool) {
	d.mu.Lock()
	d.light = on
	d.mu.Unlock()
}
