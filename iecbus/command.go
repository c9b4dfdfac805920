package iecbus

import "fmt"

// Opcode is the upper nibble of an ATN command octet.
type Opcode byte

// ATN command codes. UNLISTEN and UNTALK are complete octets; the others
// carry a device number or a channel in the lower nibble.
const (
	OpListen   Opcode = 0x20
	OpUnlisten Opcode = 0x3F
	OpTalk     Opcode = 0x40
	OpUntalk   Opcode = 0x5F
	OpData     Opcode = 0x60
	OpClose    Opcode = 0xE0
	OpOpen     Opcode = 0xF0
)

// Kind is the tagged form of an ATN command used for dispatch.
type Kind int

const (
	KindUnknown Kind = iota
	KindListen
	KindUnlisten
	KindTalk
	KindUntalk
	KindData
	KindClose
	KindOpen
)

// String returns the bus name of the kind.
func (k Kind) String() string {
	switch k {
	case KindListen:
		return "LISTEN"
	case KindUnlisten:
		return "UNLISTEN"
	case KindTalk:
		return "TALK"
	case KindUntalk:
		return "UNTALK"
	case KindData:
		return "DATA"
	case KindClose:
		return "CLOSE"
	case KindOpen:
		return "OPEN"
	default:
		return "UNKNOWN"
	}
}

// Logical channels with a fixed meaning.
const (
	// ReadPrgChannel is used by LOAD.
	ReadPrgChannel = 0
	// WritePrgChannel is used by SAVE.
	WritePrgChannel = 1
	// CommandChannel carries drive commands and the status string.
	CommandChannel = 15
)

// MaxCommandLength is the longest filename or command text the driver decodes.
const MaxCommandLength = 40

// Command is a decoded ATN sequence: the command octet and the text sent
// after it (filename or drive command). Text is not terminated.
type Command struct {
	Code byte
	Text []byte
}

// NewCommand builds a command from an opcode, a channel and text. Text
// beyond MaxCommandLength is dropped, as the driver would.
func NewCommand(op Opcode, channel byte, text string) Command {
	b := []byte(text)
	if len(b) > MaxCommandLength {
		b = b[:MaxCommandLength]
	}
	return Command{Code: byte(op) | channel&0x0F, Text: b}
}

// Channel returns the lower nibble of the command octet.
func (c Command) Channel() byte {
	return c.Code & 0x0F
}

// Op returns the upper nibble of the command octet.
func (c Command) Op() Opcode {
	return Opcode(c.Code & 0xF0)
}

// Kind classifies the command octet.
func (c Command) Kind() Kind {
	switch Opcode(c.Code) {
	case OpUnlisten:
		return KindUnlisten
	case OpUntalk:
		return KindUntalk
	}
	switch c.Op() {
	case OpListen, OpListen + 0x10:
		return KindListen
	case OpTalk, OpTalk + 0x10:
		return KindTalk
	case OpData:
		return KindData
	case OpClose:
		return KindClose
	case OpOpen:
		return KindOpen
	default:
		return KindUnknown
	}
}

// String formats the command for logs.
func (c Command) String() string {
	return fmt.Sprintf("%s ch=%d code=$%02X text=%q", c.Kind(), c.Channel(), c.Code, c.Text)
}
