// Package netutil provides IP range enumeration and a bounded concurrent
// TCP port probe, the plumbing underneath fleet discovery.
package netutil

import (
	"context"
	"encoding/binary"
	"fmt"
	"net"
	"sync"
	"time"
)

// ExpandCIDR returns every usable IPv4 address in the CIDR, excluding the
// network and broadcast addresses.
func ExpandCIDR(cidr string) ([]string, error) {
	ip, ipnet, err := net.ParseCIDR(cidr)
	if err != nil {
		return nil, fmt.Errorf("invalid CIDR: %w", err)
	}

	var ips []string
	for ip := ip.Mask(ipnet.Mask); ipnet.Contains(ip); incIP(ip) {
		ips = append(ips, ip.String())
	}
	if len(ips) > 2 {
		ips = ips[1 : len(ips)-1]
	}
	return ips, nil
}

// ExpandRange returns every IPv4 address between start and end inclusive.
func ExpandRange(start, end string) ([]string, error) {
	a := net.ParseIP(start).To4()
	b := net.ParseIP(end).To4()
	if a == nil || b == nil {
		return nil, fmt.Errorf("invalid IPv4 range %q-%q", start, end)
	}

	lo := binary.BigEndian.Uint32(a)
	hi := binary.BigEndian.Uint32(b)
	if lo > hi {
		return nil, fmt.Errorf("range start %s after end %s", start, end)
	}

	ips := make([]string, 0, hi-lo+1)
	for i := lo; i <= hi; i++ {
		var buf [4]byte
		binary.BigEndian.PutUint32(buf[:], i)
		ips = append(ips, net.IP(buf[:]).String())
	}
	return ips, nil
}

func incIP(ip net.IP) {
	for i := len(ip) - 1; i >= 0; i-- {
		ip[i]++
		if ip[i] != 0 {
			break
		}
	}
}

// PortProbe checks hosts for an open TCP port with bounded concurrency.
type PortProbe struct {
	timeout     time.Duration
	concurrency int
}

// ProbeOption configures a PortProbe.
type ProbeOption func(*PortProbe)

// WithProbeTimeout sets the per-host dial timeout.
func WithProbeTimeout(timeout time.Duration) ProbeOption {
	return func(p *PortProbe) {
		p.timeout = timeout
	}
}

// WithProbeConcurrency bounds concurrent dials.
func WithProbeConcurrency(n int) ProbeOption {
	return func(p *PortProbe) {
		if n > 0 {
			p.concurrency = n
		}
	}
}

// NewPortProbe creates a probe with sane fleet-scan defaults.
func NewPortProbe(opts ...ProbeOption) *PortProbe {
	p := &PortProbe{
		timeout:     2 * time.Second,
		concurrency: 100,
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Open reports whether the TCP port accepts a connection.
func (p *PortProbe) Open(ctx context.Context, host string, port int) bool {
	dialer := net.Dialer{Timeout: p.timeout}
	conn, err := dialer.DialContext(ctx, "tcp", net.JoinHostPort(host, fmt.Sprintf("%d", port)))
	if err != nil {
		return false
	}
	conn.Close()
	return true
}

// OpenHosts filters hosts down to those accepting connections on port,
// preserving input order.
func (p *PortProbe) OpenHosts(ctx context.Context, hosts []string, port int) []string {
	open := make([]bool, len(hosts))

	var wg sync.WaitGroup
	sem := make(chan struct{}, p.concurrency)
	for i, host := range hosts {
		select {
		case <-ctx.Done():
			wg.Wait()
			return collect(hosts, open)
		default:
		}

		wg.Add(1)
		sem <- struct{}{}
		go func(i int, host string) {
			defer wg.Done()
			defer func() { <-sem }()
			open[i] = p.Open(ctx, host, port)
		}(i, host)
	}
	wg.Wait()
	return collect(hosts, open)
}

func collect(hosts []string, open []bool) []string {
	var out []string
	for i, host := range hosts {
		if open[i] {
			out = append(out, host)
		}
	}
	return out
}
