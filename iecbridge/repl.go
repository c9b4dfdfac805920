// =============================================================================
// repl.go - Console Loop
// =============================================================================

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// REPLMode represents the current operating mode of the console.
type REPLMode int

const (
	// ModeDOS takes LOAD/SAVE style commands.
	ModeDOS REPLMode = iota
	// ModeBus takes raw ATN sequences.
	ModeBus
)

// prompt returns the display prompt for the mode.
func (m REPLMode) prompt() string {
	switch m {
	case ModeDOS:
		return "[dos] > "
	case ModeBus:
		return "[bus] > "
	default:
		return "> "
	}
}

// runREPL reads console lines until .quit, end of input or ctx is done.
func runREPL(ctx context.Context, b *bench, editor *LineEditor) {
	mode := ModeDOS
	editor.SetCompletions(consoleWords(mode))

	for ctx.Err() == nil {
		line, err := editor.GetLine(mode.prompt())
		if err != nil {
			if !errors.Is(err, io.EOF) {
				printError(err.Error())
			}
			fmt.Println()
			return
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, ".") {
			fields := strings.Fields(line)
			switch strings.ToLower(fields[0]) {
			case ".quit":
				return
			case ".dos":
				mode = ModeDOS
				editor.SetCompletions(consoleWords(mode))
				fmt.Println("Switched to DOS mode")
			case ".bus":
				mode = ModeBus
				editor.SetCompletions(consoleWords(mode))
				fmt.Println("Switched to Bus mode")
			case ".help":
				printHelp(mode, strings.Join(fields[1:], " "))
			case ".device":
				fmt.Printf("Drive is device %d\n", b.bus.DeviceNumber())
			default:
				printError(fmt.Sprintf("Unknown command %s. Type .help for a list.", fields[0]))
			}
			continue
		}

		act, err := translateLine(line, mode)
		if err != nil {
			printError(err.Error())
			continue
		}
		if err := b.execute(ctx, act, os.Stdout); err != nil {
			printError(err.Error())
		}
	}
}
