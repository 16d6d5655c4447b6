package telemetry

// Channel selects which transport a source command goes out on.
type Channel int

const (
	// ChannelRPC is the line-based RPC API (cgminer-style socket).
	ChannelRPC Channel = iota

	// ChannelWeb is the HTTP web API.
	ChannelWeb
)

func (c Channel) String() string {
	switch c {
	case ChannelRPC:
		return "rpc"
	case ChannelWeb:
		return "web"
	default:
		return "unknown"
	}
}

// Source is an immutable descriptor of one request to one transport
// channel. Alias keys the raw response in the payload handed to the
// extractor; it defaults to the command name.
type Source struct {
	Channel Channel
	Command string
	Alias   string
}

// RPCSource declares a source on the RPC channel.
func RPCSource(alias, command string) Source {
	return Source{Channel: ChannelRPC, Command: command, Alias: alias}
}

// WebSource declares a source on the web channel.
func WebSource(alias, command string) Source {
	return Source{Channel: ChannelWeb, Command: command, Alias: alias}
}

// Payload carries the raw responses fetched for a field, keyed by source
// alias. Extractors tolerate any subset being absent, including all of it.
type Payload map[string]map[string]any

// Get returns the raw response for an alias, or nil when the source was
// not fetched (failed, or never declared).
func (p Payload) Get(alias string) map[string]any {
	if p == nil {
		return nil
	}
	return p[alias]
}
