// Package iecbus describes the Commodore serial bus as seen by a drive:
// the driver interface the command dispatcher consumes, the decoded ATN
// command, and the critical-section guard that brackets every octet
// transfer.
//
// The bit-level driver (ATN/CLOCK/DATA timing, turnaround, EOI handshake)
// lives outside this module. VirtualBus implements the same interface in
// memory so the dispatcher can be driven by a simulated host computer.
package iecbus

// ATNCheck is the result of a single attention check.
type ATNCheck int

const (
	// ATNIdle means nothing on the bus concerned this device.
	ATNIdle ATNCheck = iota
	// ATNCmd means a command was received with no data phase following.
	ATNCmd
	// ATNCmdListen means a command was received and data is coming to us.
	ATNCmdListen
	// ATNCmdTalk means a command was received and we must talk now.
	ATNCmdTalk
	// ATNError means the bus transaction failed and communication must be reset.
	ATNError
	// ATNReset means the RESET line is asserted.
	ATNReset
)

// String returns the name of the check result.
func (c ATNCheck) String() string {
	switch c {
	case ATNIdle:
		return "IDLE"
	case ATNCmd:
		return "CMD"
	case ATNCmdListen:
		return "CMD_LISTEN"
	case ATNCmdTalk:
		return "CMD_TALK"
	case ATNError:
		return "ERROR"
	case ATNReset:
		return "RESET"
	default:
		return "UNKNOWN"
	}
}

// State is the driver's flag set after the last transfer.
type State uint8

const (
	// StateEOI is set by Receive when the talker flagged the last octet.
	StateEOI State = 1 << iota
	// StateATN is set by Receive when ATN was asserted mid-transfer.
	StateATN
	// StateError is set when a transfer failed.
	StateError
)

// Has reports whether all flags in f are set.
func (s State) Has(f State) bool {
	return s&f == f
}

// DefaultDevice is the device number a drive answers to unless configured.
const DefaultDevice = 8

// Bus is the interface of the bit-level bus driver.
//
// All methods are called from the single dispatcher goroutine. Send,
// SendEOI, SendFNF and Receive move a single octet and are expected to run
// with interrupts disabled; callers bracket them with a Guard.
type Bus interface {
	// CheckATN checks for an attention sequence addressed to this device
	// and, when one was received, decodes it into cmd.
	CheckATN(cmd *Command) ATNCheck

	// Send transmits one octet. It returns false if the listener went away.
	Send(b byte) bool

	// SendEOI transmits the last octet of a transfer with the EOI marker.
	SendEOI(b byte) bool

	// SendFNF signals "file not found" to the host computer.
	SendFNF() bool

	// Receive reads one octet from the talker. State reports EOI/error.
	Receive() byte

	// State returns the flags of the last transfer.
	State() State

	DeviceNumber() byte
	SetDeviceNumber(n byte)

	// ResetAsserted reports the raw level of the RESET line.
	ResetAsserted() bool
}
