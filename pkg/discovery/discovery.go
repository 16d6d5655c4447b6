// Package discovery finds devices on the network and turns them into
// ready device handles: a port sweep narrows a CIDR down to responsive
// hosts, then the dialect probers identify what each host speaks.
package discovery

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rigpulse/rigpulse/internal/netutil"
	"github.com/rigpulse/rigpulse/pkg/miner"
)

// ErrNoDialect indicates no prober recognized the host.
var ErrNoDialect = errors.New("no dialect prober recognized the host")

// Device is one discovered device.
type Device struct {
	// IP is the device's address.
	IP string

	// Dialect names the firmware dialect that answered.
	Dialect string

	// Identity is what the probe learned.
	Identity miner.Identity

	// Handle is a ready device handle for the detected dialect.
	Handle miner.Handle

	// DiscoveredAt is when the probe succeeded.
	DiscoveredAt time.Time
}

// Result aggregates one scan.
type Result struct {
	Devices []Device

	// Errors maps hosts that answered on the port but failed probing.
	Errors map[string]error

	ScannedIPs      int
	ResponsiveHosts int
	Duration        time.Duration
}

// Scanner sweeps address ranges for devices.
type Scanner struct {
	probers     []miner.Prober
	probe       *netutil.PortProbe
	port        int
	concurrency int
	timeout     time.Duration
}

// ScannerOption configures a Scanner.
type ScannerOption func(*Scanner)

// WithScanTimeout sets the per-host timeout.
func WithScanTimeout(timeout time.Duration) ScannerOption {
	return func(s *Scanner) {
		s.timeout = timeout
	}
}

// WithScanConcurrency bounds concurrent hosts in flight.
func WithScanConcurrency(n int) ScannerOption {
	return func(s *Scanner) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithScanPort overrides the port used to find responsive hosts.
func WithScanPort(port int) ScannerOption {
	return func(s *Scanner) {
		s.port = port
	}
}

// NewScanner creates a scanner that tries the given probers in order on
// every responsive host.
func NewScanner(probers []miner.Prober, opts ...ScannerOption) *Scanner {
	s := &Scanner{
		probers:     probers,
		port:        80,
		concurrency: 50,
		timeout:     3 * time.Second,
	}

	for _, opt := range opts {
		opt(s)
	}

	s.probe = netutil.NewPortProbe(
		netutil.WithProbeTimeout(s.timeout),
		netutil.WithProbeConcurrency(s.concurrency),
	)

	return s
}

// ScanCIDR sweeps a CIDR range, e.g. "192.168.1.0/24".
func (s *Scanner) ScanCIDR(ctx context.Context, cidr string) (*Result, error) {
	ips, err := netutil.ExpandCIDR(cidr)
	if err != nil {
		return nil, err
	}
	return s.ScanHosts(ctx, ips)
}

// ScanHosts sweeps a fixed host list.
func (s *Scanner) ScanHosts(ctx context.Context, hosts []string) (*Result, error) {
	start := time.Now()
	result := &Result{
		Errors:     make(map[string]error),
		ScannedIPs: len(hosts),
	}

	responsive := s.probe.OpenHosts(ctx, hosts, s.port)
	result.ResponsiveHosts = len(responsive)

	var (
		mu  sync.Mutex
		wg  sync.WaitGroup
		sem = make(chan struct{}, s.concurrency)
	)

sweep:
	for _, host := range responsive {
		select {
		case <-ctx.Done():
			break sweep
		default:
		}

		wg.Add(1)
		sem <- struct{}{}
		go func(host string) {
			defer wg.Done()
			defer func() { <-sem }()

			dev, err := s.Identify(ctx, host)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.Errors[host] = err
				return
			}
			result.Devices = append(result.Devices, *dev)
		}(host)
	}
	wg.Wait()

	result.Duration = time.Since(start)
	return result, nil
}

// Identify tries each prober against one host and builds a handle from
// the first that recognizes it.
func (s *Scanner) Identify(ctx context.Context, host string) (*Device, error) {
	probeCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var lastErr error
	for _, p := range s.probers {
		ident, err := p.Probe(probeCtx, host)
		if err != nil {
			lastErr = err
			continue
		}

		handle, err := p.NewHandle(host, ident)
		if err != nil {
			lastErr = err
			continue
		}

		return &Device{
			IP:           host,
			Dialect:      p.Dialect(),
			Identity:     *ident,
			Handle:       handle,
			DiscoveredAt: time.Now(),
		}, nil
	}

	if lastErr != nil {
		return nil, lastErr
	}
	return nil, ErrNoDialect
}
