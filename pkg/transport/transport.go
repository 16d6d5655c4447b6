// Package transport implements the two channels an Antminer-class device
// speaks: a line-based RPC API on a TCP socket and an HTTP web API. The
// collection core consumes only the RPC and Web interfaces; the concrete
// clients here are the default collaborators wired in by the dialect
// packages and the CLIs.
package transport

import (
	"context"
	"errors"
	"fmt"
)

// RPC sends one command on the line-based RPC channel and returns the
// decoded response. Implementations fail with *Error on connection or
// protocol problems.
type RPC interface {
	Send(ctx context.Context, command string) (map[string]any, error)
}

// Web sends one command on the HTTP web channel. Mutating commands signal
// success through a dialect-specific sentinel code embedded in the body,
// not through transport status, so the body is returned whenever it could
// be decoded.
type Web interface {
	Send(ctx context.Context, command string, params map[string]any) (map[string]any, error)
}

// Error is a channel-level failure: connection refused, timeout, protocol
// error, or an undecodable response. The dispatcher catches it at the
// source-command boundary and falls through to the next source.
type Error struct {
	// Channel is "rpc" or "web".
	Channel string

	// Command is the command that was being sent.
	Command string

	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s %q: %v", e.Channel, e.Command, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// IsTransport reports whether err is a channel-level failure.
func IsTransport(err error) bool {
	var te *Error
	return errors.As(err, &te)
}
