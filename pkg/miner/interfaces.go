// Package miner provides the shared device-handle abstractions that
// decouple discovery and the CLIs from specific firmware dialect
// implementations like antminer.Device.
package miner

import (
	"context"

	"github.com/rigpulse/rigpulse/pkg/telemetry"
)

// Handle is one device as seen by callers: a collection entry point plus
// the small set of control operations every supported dialect exposes.
type Handle interface {
	// Host returns the device's host address (IP or hostname).
	Host() string

	// Model returns the hardware model name, e.g. "Antminer S19".
	Model() string

	// Collect runs one collection pass for the requested fields and
	// returns the snapshot together with a per-field report. The only
	// error is a request for a field the dialect does not declare.
	Collect(ctx context.Context, fields ...telemetry.Field) (telemetry.Snapshot, telemetry.Report, error)

	// FaultLightOn and FaultLightOff toggle the locator light. The
	// returned bool is the light state as cached after the attempt;
	// an unconfirmed response leaves the prior state unchanged.
	FaultLightOn(ctx context.Context) (bool, error)
	FaultLightOff(ctx context.Context) (bool, error)

	// StopMining and ResumeMining switch the work mode by re-sending
	// the full device configuration.
	StopMining(ctx context.Context) error
	ResumeMining(ctx context.Context) error

	// Reboot issues a one-shot reboot. Success means the transport
	// returned a payload; the result is not verified afterwards.
	Reboot(ctx context.Context) error
}

// Prober attempts to detect a specific firmware dialect on a host.
// Each dialect provides its own prober; discovery tries them in order.
type Prober interface {
	// Probe attempts to identify the device on the given host. It
	// returns an error when this dialect is not detected.
	Probe(ctx context.Context, host string) (*Identity, error)

	// Dialect names the firmware dialect this prober detects.
	Dialect() string

	// NewHandle creates a handle for a host confirmed to run this
	// dialect.
	NewHandle(host string, ident *Identity) (Handle, error)
}

// Identity is what a probe learns about a device before a handle exists.
type Identity struct {
	// MinerType is the self-reported model string, e.g. "Antminer S19 Pro".
	MinerType string

	// FirmwareVersion is the reported firmware/filesystem version.
	FirmwareVersion string

	// MAC is the reported hardware address, if the probe surfaced one.
	MAC string

	// Hostname is the device's hostname.
	Hostname string
}
