// =============================================================================
// translate.go - Console Line Translation
// =============================================================================
//
// Turns a console line into an action for the bench. DOS mode speaks in
// the terms of a BASIC user (load, save, dir, @ commands); Bus mode names
// the ATN sequences directly, one per line, so each step of the protocol
// can be watched on its own.
//
// =============================================================================

package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/iecbridge/iecbridge/iecbus"
)

// actionKind selects what the bench does.
type actionKind int

const (
	actionLoad actionKind = iota
	actionSave
	actionDir
	actionStatus
	actionCommand
	actionReset
	actionEvent
)

// action is one translated console line.
type action struct {
	kind actionKind

	// name is the file name, or the command text of actionCommand.
	name string

	// path is the local file of a load or save.
	path string

	// check, cmd and feed describe a raw ATN sequence (actionEvent).
	check iecbus.ATNCheck
	cmd   iecbus.Command
	feed  []byte
}

var errUsage = errors.New("usage")

func usageError(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{errUsage}, args...)...)
}

// translateLine parses a console line in the given mode.
func translateLine(line string, mode REPLMode) (action, error) {
	trimmed := strings.TrimSpace(line)

	// "@" is the command channel in both modes, as in DOS wedges.
	if strings.HasPrefix(trimmed, "@") {
		if text := strings.TrimSpace(trimmed[1:]); text != "" {
			return action{kind: actionCommand, name: text}, nil
		}
		return action{kind: actionStatus}, nil
	}

	words := splitWords(trimmed)
	if len(words) == 0 {
		return action{}, usageError("empty line")
	}
	keyword := strings.ToLower(words[0])
	args := words[1:]

	if keyword == "reset" {
		return action{kind: actionReset}, nil
	}

	switch mode {
	case ModeBus:
		return translateBusCommand(keyword, args)
	default:
		return translateDOSCommand(keyword, args)
	}
}

func translateDOSCommand(keyword string, args []string) (action, error) {
	switch keyword {
	case "load":
		if len(args) < 1 || len(args) > 2 {
			return action{}, usageError("load NAME [FILE]")
		}
		if len(args) == 1 && args[0] == "$" {
			return action{kind: actionDir}, nil
		}
		act := action{kind: actionLoad, name: args[0]}
		if len(args) == 2 {
			act.path = args[1]
		}
		return act, nil

	case "save":
		if len(args) != 2 {
			return action{}, usageError("save NAME FILE")
		}
		return action{kind: actionSave, name: args[0], path: args[1]}, nil

	case "dir", "$":
		return action{kind: actionDir}, nil

	case "status", "st":
		return action{kind: actionStatus}, nil

	case "cmd":
		if len(args) == 0 {
			return action{}, usageError("cmd TEXT")
		}
		return action{kind: actionCommand, name: strings.Join(args, " ")}, nil
	}
	return action{}, fmt.Errorf("unknown command %q", keyword)
}

func translateBusCommand(keyword string, args []string) (action, error) {
	if len(args) == 0 {
		return action{}, usageError("%s CHANNEL ...", keyword)
	}
	ch, err := parseChannel(args[0])
	if err != nil {
		return action{}, err
	}
	text := strings.Join(args[1:], " ")
	act := action{kind: actionEvent, check: iecbus.ATNCmd}

	switch keyword {
	case "open":
		act.cmd = iecbus.NewCommand(iecbus.OpOpen, ch, text)
	case "close":
		act.cmd = iecbus.NewCommand(iecbus.OpClose, ch, "")
	case "data":
		act.cmd = iecbus.NewCommand(iecbus.OpData, ch, text)
	case "talk":
		act.check = iecbus.ATNCmdTalk
		act.cmd = iecbus.NewCommand(iecbus.OpData, ch, text)
	case "listen":
		act.check = iecbus.ATNCmdListen
		act.cmd = iecbus.NewCommand(iecbus.OpData, ch, "")
		if act.feed, err = parseOctets(args[1:]); err != nil {
			return action{}, err
		}
		if len(act.feed) == 0 {
			return action{}, usageError("listen CHANNEL OCTET...")
		}
	default:
		return action{}, fmt.Errorf("unknown bus command %q", keyword)
	}
	return act, nil
}

// parseChannel accepts a secondary address 0-15.
func parseChannel(s string) (byte, error) {
	n, err := strconv.ParseUint(s, 10, 8)
	if err != nil || n > 15 {
		return 0, fmt.Errorf("invalid channel %q", s)
	}
	return byte(n), nil
}

// parseOctets accepts hex octets written as 0A, $0A or 0x0A.
func parseOctets(words []string) ([]byte, error) {
	out := make([]byte, 0, len(words))
	for _, w := range words {
		s := strings.TrimPrefix(strings.TrimPrefix(strings.ToLower(w), "$"), "0x")
		n, err := strconv.ParseUint(s, 16, 8)
		if err != nil {
			return nil, fmt.Errorf("invalid octet %q", w)
		}
		out = append(out, byte(n))
	}
	return out, nil
}

// splitWords splits on spaces, keeping "quoted names" together without
// their quotes.
func splitWords(s string) []string {
	var (
		words  []string
		cur    strings.Builder
		quoted bool
		inWord bool
	)
	for _, r := range s {
		switch {
		case r == '"':
			quoted = !quoted
			inWord = true
		case r == ' ' && !quoted:
			if inWord {
				words = append(words, cur.String())
				cur.Reset()
				inWord = false
			}
		default:
			cur.WriteRune(r)
			inWord = true
		}
	}
	if inWord {
		words = append(words, cur.String())
	}
	return words
}
