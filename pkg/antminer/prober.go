package antminer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rigpulse/rigpulse/pkg/catalog"
	"github.com/rigpulse/rigpulse/pkg/miner"
	"github.com/rigpulse/rigpulse/pkg/transport"
)

var (
	// ErrNotAntminer indicates the host did not answer like an Antminer
	// web API.
	ErrNotAntminer = errors.New("host is not a recognized antminer")

	// ErrWrongDialect indicates an Antminer answered, but of the other
	// firmware generation than this prober detects.
	ErrWrongDialect = errors.New("antminer speaks a different dialect")

	// ErrUnknownModel indicates the reported model is not in the catalog.
	ErrUnknownModel = errors.New("model not in catalog")
)

// Prober implements miner.Prober for one Antminer dialect. Discovery
// typically runs a modern prober first, then a legacy one.
type Prober struct {
	dialect Dialect
	creds   transport.Credentials
	timeout time.Duration
}

// ProberOption configures a Prober.
type ProberOption func(*Prober)

// WithProberTimeout sets the probe timeout.
func WithProberTimeout(timeout time.Duration) ProberOption {
	return func(p *Prober) {
		p.timeout = timeout
	}
}

// WithProberCredentials sets the web API login used for probing and for
// handles created afterwards.
func WithProberCredentials(creds transport.Credentials) ProberOption {
	return func(p *Prober) {
		p.creds = creds
	}
}

// NewProber creates a prober for the given dialect.
func NewProber(dialect Dialect, opts ...ProberOption) *Prober {
	p := &Prober{
		dialect: dialect,
		creds:   transport.DefaultCredentials(),
		timeout: 3 * time.Second,
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Probe fetches system info over the web channel and checks that the
// reported model is a catalogued Antminer of this prober's generation.
func (p *Prober) Probe(ctx context.Context, host string) (*miner.Identity, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	web := transport.NewHTTPClient(host, p.creds, transport.WithWebTimeout(p.timeout))
	info, err := web.Send(ctx, "get_system_info", nil)
	if err != nil {
		return nil, err
	}

	minerType, ok := stringAt(info, "minertype")
	if !ok {
		return nil, ErrNotAntminer
	}
	spec, ok := catalog.Lookup(minerType)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownModel, minerType)
	}
	if dialectFor(spec.Model) != p.dialect {
		return nil, ErrWrongDialect
	}

	ident := &miner.Identity{MinerType: minerType}
	ident.FirmwareVersion, _ = stringAt(info, "system_filesystem_version")
	ident.MAC, _ = stringAt(info, "macaddr")
	ident.Hostname, _ = stringAt(info, "hostname")
	return ident, nil
}

// Dialect names the firmware dialect this prober detects.
func (p *Prober) Dialect() string {
	return p.dialect.String()
}

// NewHandle creates a device handle for a host confirmed to run this
// dialect.
func (p *Prober) NewHandle(host string, ident *miner.Identity) (miner.Handle, error) {
	spec, ok := catalog.Lookup(ident.MinerType)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownModel, ident.MinerType)
	}

	opts := []Option{
		WithRPC(transport.NewTCPClient(host, transport.WithRPCTimeout(p.timeout))),
		WithWeb(transport.NewHTTPClient(host, p.creds, transport.WithWebTimeout(p.timeout))),
	}
	if p.dialect == DialectLegacy {
		return NewLegacy(host, spec, opts...), nil
	}
	return NewModern(host, spec, opts...), nil
}

// dialectFor maps a catalogued model to its firmware generation: the X19
// series speaks the modern API, everything older the legacy one.
func dialectFor(model string) Dialect {
	if strings.Contains(model, "S19") || strings.Contains(model, "T19") {
		return DialectModern
	}
	return DialectLegacy
}

func stringAt(m map[string]any, key string) (string, bool) {
	s, ok := m[key].(string)
	return s, ok
}

// Ensure the package satisfies the shared abstractions.
var (
	_ miner.Prober = (*Prober)(nil)
	_ miner.Handle = (*Device)(nil)
)
