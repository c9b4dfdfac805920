package iecbus

import (
	"fmt"
	"strings"
)

// BasicStart is where C64 BASIC programs, and so directory listings, load.
const BasicStart = 0x0801

// BasicLine is one line of a tokenized BASIC program.
type BasicLine struct {
	Link   uint16
	Number uint16
	Text   []byte
}

// String renders the line the way LIST does for a directory: the line
// number (block count) followed by the raw text.
func (l BasicLine) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d ", l.Number)
	for _, c := range l.Text {
		if c >= 0x20 && c < 0x7F {
			sb.WriteByte(c)
		} else {
			sb.WriteByte('.')
		}
	}
	return sb.String()
}

// ParseProgram splits a BASIC program (load address first) into lines.
// The program ends at a zero link.
func ParseProgram(prg []byte) ([]BasicLine, error) {
	if len(prg) < 4 {
		return nil, fmt.Errorf("program too short: %d octets", len(prg))
	}
	if addr := uint16(prg[0]) | uint16(prg[1])<<8; addr != BasicStart {
		return nil, fmt.Errorf("unexpected load address $%04X", addr)
	}

	var lines []BasicLine
	pos := 2
	for {
		if pos+2 > len(prg) {
			return lines, fmt.Errorf("truncated link at offset %d", pos)
		}
		link := uint16(prg[pos]) | uint16(prg[pos+1])<<8
		if link == 0 {
			return lines, nil
		}
		if pos+4 > len(prg) {
			return lines, fmt.Errorf("truncated line number at offset %d", pos)
		}
		line := BasicLine{
			Link:   link,
			Number: uint16(prg[pos+2]) | uint16(prg[pos+3])<<8,
		}
		end := pos + 4
		for end < len(prg) && prg[end] != 0 {
			end++
		}
		if end == len(prg) {
			return lines, fmt.Errorf("unterminated line %d", line.Number)
		}
		line.Text = prg[pos+4 : end]
		lines = append(lines, line)
		pos = end + 1
	}
}
