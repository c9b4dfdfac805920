package iecprotocol

import (
	"time"

	"github.com/iecbridge/iecbridge/iecbus"
	log "github.com/sirupsen/logrus"
)

// Host-link verbs sent by the drive.
const (
	VerbOpen    = 'O'
	VerbStatus  = 'E'
	VerbListing = 'L'
	VerbSize    = 'S'
	VerbRead    = 'R'
	VerbWrite   = 'W'
	VerbClose   = 'C'
	VerbLog     = 'D'
)

// Markers sent by the host service.
const (
	// ReplySync precedes the two-octet result of an OPEN.
	ReplySync = '>'
	// StatusSync precedes a CR-terminated status string.
	StatusSync = ':'
	// StatusEnd terminates a status string.
	StatusEnd = '\r'

	ListingMore = 'L'
	ListingLast = 'l'

	BufferMore = 'B'
	BufferEnd  = 'E'

	CloseLoaded = 'N'
	CloseSaved  = 'n'
	CloseDevice = 'C'
)

const (
	// MaxBytesPerRequest is the size of the drive's frame buffer.
	MaxBytesPerRequest = 256

	// MaxFrameLength is the longest frame whose length octet counts the
	// whole frame.
	MaxFrameLength = 0xFF

	// SaveChunkSize is the most payload one W frame carries.
	SaveChunkSize = MaxFrameLength - writeFrameHeader

	// LineOverhead is what a BASIC line adds to its payload: the link
	// pointer and the terminating zero. The line number is part of the
	// payload the host service sends.
	LineOverhead = 3

	// openFrameHeader is verb, length and channel.
	openFrameHeader = 3

	// writeFrameHeader is verb and length.
	writeFrameHeader = 2

	// logFrameHeader is verb, severity and facility.
	logFrameHeader = 3

	// receiveBufferSize is the depth of the host-link receive queue.
	receiveBufferSize = 4096
)

// Default timings.
const (
	// DefaultReadTimeout bounds every wait for the host service.
	DefaultReadTimeout = 2 * time.Second

	// DefaultPollInterval is how often a wait checks for bus reset.
	DefaultPollInterval = 10 * time.Millisecond

	// DefaultIdleInterval is how long Run sleeps after an idle or reset poll.
	DefaultIdleInterval = time.Millisecond
)

// Config holds the tunables of a HostLink and an Interface.
type Config struct {
	// ReadTimeout bounds each host-link read call.
	ReadTimeout time.Duration

	// PollInterval is how often a blocked read checks the reset line.
	PollInterval time.Duration

	// IdleInterval is slept by Run after a poll found the bus idle or held
	// in reset.
	IdleInterval time.Duration

	// Interrupts brackets every octet moved on the bus. Nil means none.
	Interrupts iecbus.Interrupts

	// Logger receives protocol diagnostics. Nil means the logrus standard logger.
	Logger log.FieldLogger
}

// DefaultConfig returns the configuration used by the firmware.
func DefaultConfig() Config {
	return Config{
		ReadTimeout:  DefaultReadTimeout,
		PollInterval: DefaultPollInterval,
		IdleInterval: DefaultIdleInterval,
	}
}

func (c Config) withDefaults() Config {
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = DefaultReadTimeout
	}
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.Interrupts == nil {
		c.Interrupts = iecbus.NoInterrupts{}
	}
	if c.Logger == nil {
		c.Logger = log.StandardLogger()
	}
	return c
}
