package iecbus

import "sync/atomic"

// Event is one ATN sequence queued on a VirtualBus.
type Event struct {
	Check ATNCheck
	Cmd   Command
}

// Octet is one octet the drive put on the bus.
type Octet struct {
	Value byte
	EOI   bool
}

// VirtualBus is an in-memory Bus. The host computer side queues ATN
// events and octets to be received; the drive side consumes them through
// the Bus interface and everything it talks is recorded.
//
// VirtualBus also implements Interrupts and records how deeply they were
// disabled, so tests can check that every transfer was guarded exactly once.
//
// Only SetReset and ResetAsserted are safe for concurrent use.
type VirtualBus struct {
	device byte
	state  State
	reset  atomic.Bool // driven from other goroutines

	events []Event
	talked []Octet
	fnf    int

	listen    []byte
	listenEOI bool

	sendLimit int // octets accepted before Send fails; negative means unlimited
	sent      int

	irqDepth    int
	irqMaxDepth int
	unguarded   int
}

// NewVirtualBus returns a bus for the given device number.
func NewVirtualBus(device byte) *VirtualBus {
	return &VirtualBus{device: device, sendLimit: -1}
}

// Queue appends an attention event for the drive.
func (v *VirtualBus) Queue(check ATNCheck, cmd Command) {
	text := append([]byte(nil), cmd.Text...)
	v.events = append(v.events, Event{Check: check, Cmd: Command{Code: cmd.Code, Text: text}})
}

// Pending returns the number of queued attention events.
func (v *VirtualBus) Pending() int {
	return len(v.events)
}

// Feed queues octets the drive will read with Receive. The last octet
// carries EOI.
func (v *VirtualBus) Feed(data []byte) {
	v.listen = append(v.listen, data...)
	v.listenEOI = true
}

// Unread returns how many fed octets the drive has not received yet.
func (v *VirtualBus) Unread() int {
	return len(v.listen)
}

// Discard drops everything fed but not yet received.
func (v *VirtualBus) Discard() {
	v.listen = nil
	v.listenEOI = false
}

// TakeTalked returns the octets sent by the drive since the previous call.
func (v *VirtualBus) TakeTalked() []Octet {
	out := v.talked
	v.talked = nil
	return out
}

// FNFCount returns how many times the drive signalled "file not found".
func (v *VirtualBus) FNFCount() int {
	return v.fnf
}

// SetReset drives the RESET line.
func (v *VirtualBus) SetReset(asserted bool) {
	v.reset.Store(asserted)
}

// FailSendAfter makes Send and SendEOI fail once n more octets were
// accepted. A negative n removes the limit.
func (v *VirtualBus) FailSendAfter(n int) {
	v.sendLimit = n
	v.sent = 0
}

// CheckATN pops the next queued event.
func (v *VirtualBus) CheckATN(cmd *Command) ATNCheck {
	if v.reset.Load() {
		return ATNReset
	}
	if len(v.events) == 0 {
		return ATNIdle
	}
	e := v.events[0]
	v.events = v.events[1:]
	cmd.Code = e.Cmd.Code
	cmd.Text = append(cmd.Text[:0], e.Cmd.Text...)
	return e.Check
}

func (v *VirtualBus) send(b byte, eoi bool) bool {
	v.checkGuarded()
	if v.sendLimit >= 0 && v.sent >= v.sendLimit {
		v.state = StateError
		return false
	}
	v.sent++
	v.state = 0
	v.talked = append(v.talked, Octet{Value: b, EOI: eoi})
	return true
}

func (v *VirtualBus) Send(b byte) bool    { return v.send(b, false) }
func (v *VirtualBus) SendEOI(b byte) bool { return v.send(b, true) }

func (v *VirtualBus) SendFNF() bool {
	v.checkGuarded()
	v.fnf++
	return true
}

// Receive pops one fed octet. With nothing fed it reports an error, as a
// real driver does when the talker never starts.
func (v *VirtualBus) Receive() byte {
	v.checkGuarded()
	if len(v.listen) == 0 {
		v.state = StateError
		return 0
	}
	b := v.listen[0]
	v.listen = v.listen[1:]
	v.state = 0
	if len(v.listen) == 0 && v.listenEOI {
		v.state = StateEOI
		v.listenEOI = false
	}
	return b
}

func (v *VirtualBus) State() State           { return v.state }
func (v *VirtualBus) DeviceNumber() byte     { return v.device }
func (v *VirtualBus) SetDeviceNumber(n byte) { v.device = n }
func (v *VirtualBus) ResetAsserted() bool    { return v.reset.Load() }

// Disable implements Interrupts.
func (v *VirtualBus) Disable() {
	v.irqDepth++
	if v.irqDepth > v.irqMaxDepth {
		v.irqMaxDepth = v.irqDepth
	}
}

// Enable implements Interrupts.
func (v *VirtualBus) Enable() {
	if v.irqDepth > 0 {
		v.irqDepth--
	}
}

// InterruptDepth returns the current and the maximum nesting of Disable.
func (v *VirtualBus) InterruptDepth() (current, maxDepth int) {
	return v.irqDepth, v.irqMaxDepth
}

// UnguardedTransfers counts octet transfers made with interrupts enabled.
func (v *VirtualBus) UnguardedTransfers() int {
	return v.unguarded
}

func (v *VirtualBus) checkGuarded() {
	if v.irqDepth == 0 {
		v.unguarded++
	}
}
