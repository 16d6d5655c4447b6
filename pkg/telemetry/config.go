package telemetry

// MiningMode is the device's configured work mode.
type MiningMode int

const (
	// ModeNormal is regular mining.
	ModeNormal MiningMode = iota

	// ModeSleep keeps the control board up but stops the hashboards.
	ModeSleep
)

// Pool is one stratum pool entry in the device configuration.
type Pool struct {
	URL      string
	User     string
	Password string
}

// Config is the canonical device configuration. Dialect packages map it to
// and from their firmware's own representation.
type Config struct {
	Mode  MiningMode
	Pools []Pool

	// FreqLevel is the firmware's frequency/power level setting, kept as
	// the raw string since its meaning differs per firmware generation.
	FreqLevel string
}

// Clone returns a deep copy, so a caller can mutate the mode without
// aliasing the device handle's held config.
func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}
	out := *c
	out.Pools = append([]Pool(nil), c.Pools...)
	return &out
}
