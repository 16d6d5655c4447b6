package telemetry

import "fmt"

// HashBoard is the canonical per-board record. A board starts out Missing
// and is only confirmed present once a non-zero chip count has been read.
type HashBoard struct {
	// Slot is the board's position, starting at 0.
	Slot int

	// Chips is the number of chips detected on the board.
	Chips int

	// ExpectedChips is the chip count the model should have per board.
	ExpectedChips int

	// Hashrate is the board hashrate in MH/s, rounded to 2 decimals.
	// Nil means the reading was unavailable.
	Hashrate *float64

	// Temp is the board (PCB) temperature in °C. Nil means unavailable.
	Temp *float64

	// ChipTemp is the chip temperature in °C. Nil means unavailable.
	ChipTemp *float64

	// SerialNumber is the board serial, if the firmware reports one.
	SerialNumber string

	// Missing reports whether the board slot is unpopulated or unreadable.
	Missing bool
}

// NewHashBoard returns a board record for the given slot with the
// documented defaults: no readings, Missing set.
func NewHashBoard(slot, expectedChips int) HashBoard {
	return HashBoard{
		Slot:          slot,
		ExpectedChips: expectedChips,
		Missing:       true,
	}
}

// Fan is one chassis fan reading. Speed defaults to 0 RPM when the
// firmware does not report the slot.
type Fan struct {
	Speed int
}

// DeviceError is a tagged error code reported by the device itself,
// as opposed to a failure talking to it.
type DeviceError struct {
	// Kind tags the error family, e.g. "X19".
	Kind string

	// Message is the firmware's error text.
	Message string
}

func (e DeviceError) String() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Snapshot is the merged result of one collection pass. Every field is
// independently present or at its documented default; a failed field never
// invalidates the rest of the snapshot. Pointer fields are nil when the
// reading was unavailable.
type Snapshot struct {
	MAC             string
	APIVersion      string
	FirmwareVersion string
	Hostname        string

	// Hashrate and ExpectedHashrate are in MH/s, rounded to 2 decimals.
	Hashrate         *float64
	ExpectedHashrate *float64

	// Hashboards always has one entry per expected board slot.
	Hashboards []HashBoard

	// Fans always has one entry per expected fan slot.
	Fans []Fan

	// EnvironmentTemp is the intake air temperature in °C.
	EnvironmentTemp *float64

	// Wattage and WattageLimit are in watts.
	Wattage      *int
	WattageLimit *int

	Errors []DeviceError

	FaultLight *bool
	IsMining   *bool

	// Uptime is in seconds.
	Uptime *int64

	Config *Config
}
