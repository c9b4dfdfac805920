package iecbus

// Interrupts switches asynchronous interrupts (timers, the host-link UART)
// off and on around time-critical bus transfers.
type Interrupts interface {
	Disable()
	Enable()
}

// NoInterrupts is used where no interrupt controller exists.
type NoInterrupts struct{}

func (NoInterrupts) Disable() {}
func (NoInterrupts) Enable()  {}

// Guard holds interrupts disabled until Release. Release is idempotent so
// it can be deferred and also called early.
type Guard struct {
	irq  Interrupts
	held bool
}

// Lock disables interrupts and returns the guard that re-enables them.
func Lock(irq Interrupts) *Guard {
	if irq == nil {
		irq = NoInterrupts{}
	}
	irq.Disable()
	return &Guard{irq: irq, held: true}
}

// Release re-enables interrupts once.
func (g *Guard) Release() {
	if !g.held {
		return
	}
	g.held = false
	g.irq.Enable()
}
