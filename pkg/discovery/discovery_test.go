package discovery

import (
	"context"
	"errors"
	"testing"

	"github.com/rigpulse/rigpulse/pkg/miner"
	"github.com/rigpulse/rigpulse/pkg/telemetry"
)

// fakeProber recognizes a fixed set of hosts.
type fakeProber struct {
	dialect string
	known   map[string]*miner.Identity
}

func (f *fakeProber) Probe(_ context.Context, host string) (*miner.Identity, error) {
	ident, ok := f.known[host]
	if !ok {
		return nil, errors.New("not recognized")
	}
	return ident, nil
}

func (f *fakeProber) Dialect() string { return f.dialect }

func (f *fakeProber) NewHandle(host string, ident *miner.Identity) (miner.Handle, error) {
	return &fakeHandle{host: host, model: ident.MinerType}, nil
}

type fakeHandle struct {
	host  string
	model string
}

func (h *fakeHandle) Host() string  { return h.host }
func (h *fakeHandle) Model() string { return h.model }
func (h *fakeHandle) Collect(context.Context, ...telemetry.Field) (telemetry.Snapshot, telemetry.Report, error) {
	return telemetry.Snapshot{}, telemetry.Report{}, nil
}
func (h *fakeHandle) FaultLightOn(context.Context) (bool, error)  { return true, nil }
func (h *fakeHandle) FaultLightOff(context.Context) (bool, error) { return false, nil }
func (h *fakeHandle) StopMining(context.Context) error            { return nil }
func (h *fakeHandle) ResumeMining(context.Context) error          { return nil }
func (h *fakeHandle) Reboot(context.Context) error                { return nil }

func TestIdentifyTriesProbersInOrder(t *testing.T) {
	modern := &fakeProber{
		dialect: "modern",
		known:   map[string]*miner.Identity{"10.0.0.1": {MinerType: "Antminer S19"}},
	}
	legacy := &fakeProber{
		dialect: "legacy",
		known:   map[string]*miner.Identity{"10.0.0.2": {MinerType: "Antminer S9"}},
	}

	s := NewScanner([]miner.Prober{modern, legacy})

	dev, err := s.Identify(context.Background(), "10.0.0.2")
	if err != nil {
		t.Fatalf("Identify: %v", err)
	}
	if dev.Dialect != "legacy" {
		t.Errorf("Dialect = %q, want legacy", dev.Dialect)
	}
	if dev.Identity.MinerType != "Antminer S9" {
		t.Errorf("MinerType = %q, want Antminer S9", dev.Identity.MinerType)
	}
	if dev.Handle == nil || dev.Handle.Host() != "10.0.0.2" {
		t.Error("handle not built for the probed host")
	}
}

func TestIdentifyFirstMatchWins(t *testing.T) {
	// Both probers recognize the host; the first one declared wins.
	first := &fakeProber{
		dialect: "first",
		known:   map[string]*miner.Identity{"10.0.0.1": {MinerType: "Antminer S19"}},
	}
	second := &fakeProber{
		dialect: "second",
		known:   map[string]*miner.Identity{"10.0.0.1": {MinerType: "Antminer S19"}},
	}

	s := NewScanner([]miner.Prober{first, second})
	dev, err := s.Identify(context.Background(), "10.0.0.1")
	if err != nil {
		t.Fatalf("Identify: %v", err)
	}
	if dev.Dialect != "first" {
		t.Errorf("Dialect = %q, want first", dev.Dialect)
	}
}

func TestIdentifyUnrecognized(t *testing.T) {
	s := NewScanner([]miner.Prober{
		&fakeProber{dialect: "modern", known: map[string]*miner.Identity{}},
	})

	if _, err := s.Identify(context.Background(), "10.0.0.9"); err == nil {
		t.Error("Identify of an unrecognized host succeeded")
	}
}

func TestIdentifyNoProbers(t *testing.T) {
	s := NewScanner(nil)
	_, err := s.Identify(context.Background(), "10.0.0.1")
	if !errors.Is(err, ErrNoDialect) {
		t.Errorf("err = %v, want ErrNoDialect", err)
	}
}
