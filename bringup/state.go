package bringup

// State is a step of the bring-up state machine.
type State int32

// Bring-up states. ProbeFailed and ConfigFailed accept Enable like PoweredOff does.
const (
	PoweredOff State = iota
	PoweringOn
	ResetAsserted
	Probing
	Configuring
	Configured
	ProbeFailed
	ConfigFailed
)

func (s State) String() string {
	switch s {
	case PoweredOff:
		return "powered_off"
	case PoweringOn:
		return "powering_on"
	case ResetAsserted:
		return "reset_asserted"
	case Probing:
		return "probing"
	case Configuring:
		return "configuring"
	case Configured:
		return "configured"
	case ProbeFailed:
		return "probe_failed"
	case ConfigFailed:
		return "config_failed"
	default:
		return "unknown"
	}
}

// Latch controls whether Enable repeats the bring-up of a configured device.
type Latch int

const (
	// LatchNone runs the whole sequence on every Enable.
	LatchNone Latch = iota
	// LatchUntilPowerOff makes Enable a no-op once configured, until Disable.
	LatchUntilPowerOff
)

// LatchFromString parses "none" or "until_power_off". The empty string is LatchUntilPowerOff.
func LatchFromString(s string) (Latch, bool) {
	switch s {
	case "", "until_power_off":
		return LatchUntilPowerOff, true
	case "none":
		return LatchNone, true
	default:
		return LatchNone, false
	}
}

func (l Latch) String() string {
	if l == LatchNone {
		return "none"
	}
	return "until_power_off"
}
