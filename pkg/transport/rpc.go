package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"time"
)

// DefaultRPCPort is the cgminer-family API port.
const DefaultRPCPort = 4028

// TCPClient is the line-based RPC implementation used by cgminer, bmminer
// and their descendants: one TCP connection per command, a single JSON
// request object, response read to EOF.
type TCPClient struct {
	host    string
	port    int
	timeout time.Duration
	dialer  net.Dialer
}

// TCPOption configures a TCPClient.
type TCPOption func(*TCPClient)

// WithRPCPort overrides the API port.
func WithRPCPort(port int) TCPOption {
	return func(c *TCPClient) {
		c.port = port
	}
}

// WithRPCTimeout sets the per-command deadline.
func WithRPCTimeout(timeout time.Duration) TCPOption {
	return func(c *TCPClient) {
		c.timeout = timeout
	}
}

// NewTCPClient creates an RPC client for the given host.
func NewTCPClient(host string, opts ...TCPOption) *TCPClient {
	c := &TCPClient{
		host:    host,
		port:    DefaultRPCPort,
		timeout: 10 * time.Second,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Host returns the device host address.
func (c *TCPClient) Host() string {
	return c.host
}

// Send issues one command and decodes the response.
func (c *TCPClient) Send(ctx context.Context, command string) (map[string]any, error) {
	fail := func(err error) (map[string]any, error) {
		return nil, &Error{Channel: "rpc", Command: command, Err: err}
	}

	dialCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	addr := net.JoinHostPort(c.host, fmt.Sprintf("%d", c.port))
	conn, err := c.dialer.DialContext(dialCtx, "tcp", addr)
	if err != nil {
		return fail(fmt.Errorf("dial: %w", err))
	}
	defer conn.Close()

	if deadline, ok := dialCtx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	req, err := json.Marshal(map[string]string{"command": command})
	if err != nil {
		return fail(fmt.Errorf("encode request: %w", err))
	}
	if _, err := conn.Write(req); err != nil {
		return fail(fmt.Errorf("write: %w", err))
	}

	raw, err := io.ReadAll(conn)
	if err != nil {
		return fail(fmt.Errorf("read: %w", err))
	}

	result, err := decodeRPCResponse(raw)
	if err != nil {
		return fail(err)
	}
	return result, nil
}

// decodeRPCResponse turns a raw API response into a map. The firmware
// terminates responses with a NUL byte, and the stats command emits a
// malformed nested object (`}{` between the version header and the stats
// body) that has to be repaired before it will parse.
func decodeRPCResponse(raw []byte) (map[string]any, error) {
	raw = bytes.TrimRight(raw, "\x00")
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, fmt.Errorf("empty response")
	}

	raw = bytes.ReplaceAll(raw, []byte(`"}{"`), []byte(`"},{"`))

	var result map[string]any
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return result, nil
}

// Ensure TCPClient implements the RPC channel.
var _ RPC = (*TCPClient)(nil)
