package iecbus

import (
	"context"
	"errors"
	"fmt"
)

// Errors reported to the host computer side.
var (
	// ErrFileNotFound is returned when the drive signalled "file not found".
	ErrFileNotFound = errors.New("file not found")

	// ErrBusReset is returned when the drive saw RESET during a sequence.
	ErrBusReset = errors.New("bus reset")

	// ErrBusError is returned when the drive reported a bus error.
	ErrBusError = errors.New("bus error")

	// ErrNoEOI is returned when a talk phase ended without an EOI octet.
	ErrNoEOI = errors.New("transfer ended without EOI")

	// ErrNotAccepted is returned when the drive did not take the data of a SAVE.
	ErrNotAccepted = errors.New("drive did not accept data")

	// ErrEmptyProgram is returned when asked to SAVE nothing.
	ErrEmptyProgram = errors.New("nothing to save")
)

// Drive is one poll of a drive's ATN handler.
type Drive interface {
	Handle(ctx context.Context) ATNCheck
}

// Computer plays the host computer on a VirtualBus. Each method queues the
// ATN sequences a C64 kernal would issue and polls the drive until all of
// them were handled.
type Computer struct {
	bus   *VirtualBus
	drive Drive
}

// NewComputer connects a host computer to a drive over bus.
func NewComputer(bus *VirtualBus, drive Drive) *Computer {
	return &Computer{bus: bus, drive: drive}
}

// Bus returns the virtual bus the computer drives.
func (c *Computer) Bus() *VirtualBus {
	return c.bus
}

// run polls the drive until every queued event was consumed.
func (c *Computer) run(ctx context.Context) error {
	for c.bus.Pending() > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
		switch c.drive.Handle(ctx) {
		case ATNReset:
			return ErrBusReset
		case ATNError:
			return ErrBusError
		}
	}
	return nil
}

// talk runs the queued sequence and returns what the drive talked.
func (c *Computer) talk(ctx context.Context) ([]byte, error) {
	c.bus.TakeTalked()
	fnf := c.bus.FNFCount()

	if err := c.run(ctx); err != nil {
		c.bus.TakeTalked()
		return nil, err
	}
	octets := c.bus.TakeTalked()
	if c.bus.FNFCount() > fnf {
		return nil, ErrFileNotFound
	}
	if len(octets) == 0 || !octets[len(octets)-1].EOI {
		return nil, ErrNoEOI
	}
	data := make([]byte, len(octets))
	for i, o := range octets {
		data[i] = o.Value
	}
	return data, nil
}

// Load performs LOAD "name",dev and returns the program including its
// two-octet load address.
func (c *Computer) Load(ctx context.Context, name string) ([]byte, error) {
	c.bus.Queue(ATNCmd, NewCommand(OpOpen, ReadPrgChannel, name))
	c.bus.Queue(ATNCmdTalk, NewCommand(OpData, ReadPrgChannel, ""))
	c.bus.Queue(ATNCmd, NewCommand(OpClose, ReadPrgChannel, ""))
	data, err := c.talk(ctx)
	if err != nil {
		return nil, fmt.Errorf("load %q: %w", name, err)
	}
	return data, nil
}

// Directory performs LOAD "$",dev and decodes the listing program.
func (c *Computer) Directory(ctx context.Context) ([]BasicLine, error) {
	prg, err := c.Load(ctx, "$")
	if err != nil {
		return nil, err
	}
	return ParseProgram(prg)
}

// Save performs SAVE "name",dev with data (load address included).
func (c *Computer) Save(ctx context.Context, name string, data []byte) error {
	if len(data) == 0 {
		return ErrEmptyProgram
	}
	c.bus.Feed(data)
	c.bus.Queue(ATNCmd, NewCommand(OpOpen, WritePrgChannel, name))
	c.bus.Queue(ATNCmdListen, NewCommand(OpData, WritePrgChannel, ""))
	c.bus.Queue(ATNCmd, NewCommand(OpClose, WritePrgChannel, ""))

	err := c.run(ctx)
	unread := c.bus.Unread()
	c.bus.Discard()
	if err != nil {
		return fmt.Errorf("save %q: %w", name, err)
	}
	if unread > 0 {
		return fmt.Errorf("save %q: %w (%d of %d octets left)", name, ErrNotAccepted, unread, len(data))
	}
	return nil
}

// Status reads the command channel, as OPEN 1,8,15:INPUT#1,A$ does.
func (c *Computer) Status(ctx context.Context) (string, error) {
	c.bus.Queue(ATNCmdTalk, NewCommand(OpData, CommandChannel, ""))
	data, err := c.talk(ctx)
	if err != nil {
		return "", fmt.Errorf("status: %w", err)
	}
	return string(data), nil
}

// Command sends a drive command over the command channel, as
// OPEN 15,8,15,"text":CLOSE 15 does.
func (c *Computer) Command(ctx context.Context, text string) error {
	c.bus.Queue(ATNCmd, NewCommand(OpOpen, CommandChannel, text))
	c.bus.Queue(ATNCmd, NewCommand(OpClose, CommandChannel, ""))
	if err := c.run(ctx); err != nil {
		return fmt.Errorf("command %q: %w", text, err)
	}
	return nil
}

// Reset pulses the RESET line for one poll of the drive.
func (c *Computer) Reset(ctx context.Context) ATNCheck {
	c.bus.SetReset(true)
	defer c.bus.SetReset(false)
	return c.drive.Handle(ctx)
}
