// =============================================================================
// lineeditor.go - Console Line Editing
// =============================================================================
//
// On a terminal the console uses readline: editing, history kept in the
// home directory, and tab completion of the commands of the current mode.
// Piped input (scripts, Emacs comint, tests) is read line by line with a
// bufio.Scanner so no escape sequences reach the input.
//
// =============================================================================

package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ergochat/readline"
	"golang.org/x/term"
)

const (
	// historyFileName is kept in the user's home directory.
	historyFileName = ".iecbridge_history"

	historySize = 500
)

// LineEditor reads console lines.
type LineEditor struct {
	// Exactly one of rl and scanner is set.
	rl      *readline.Instance
	scanner *bufio.Scanner

	// out receives the prompt when reading piped input.
	out io.Writer

	complete *completer
}

// NewLineEditor creates an editor for the process's stdin and stdout.
func NewLineEditor() *LineEditor {
	return newLineEditor(os.Stdin, os.Stdout, filepath.Join(homeDir(), historyFileName))
}

// GO CONCEPT: Choosing an Implementation at Construction Time
// -----------------------------------------------------------
// Whether input is a terminal is decided once, here. GetLine then follows
// whichever reader was set up, and callers never see the difference.
func newLineEditor(in *os.File, out io.Writer, history string) *LineEditor {
	le := &LineEditor{out: out, complete: &completer{}}

	if !term.IsTerminal(int(in.Fd())) || os.Getenv("INSIDE_EMACS") != "" {
		le.scanner = bufio.NewScanner(in)
		return le
	}

	rl, err := readline.NewFromConfig(&readline.Config{
		HistoryFile:            history,
		HistoryLimit:           historySize,
		DisableAutoSaveHistory: true,
		AutoComplete:           le.complete,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: line editing unavailable (%v)\n", err)
		le.scanner = bufio.NewScanner(in)
		return le
	}
	le.rl = rl
	return le
}

// GetLine shows prompt and returns the next line without its newline. End
// of input and ^C both return io.EOF.
func (le *LineEditor) GetLine(prompt string) (string, error) {
	if le.rl == nil {
		fmt.Fprint(le.out, prompt)
		if le.scanner.Scan() {
			return le.scanner.Text(), nil
		}
		if err := le.scanner.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}

	le.rl.SetPrompt(prompt)
	line, err := le.rl.Readline()
	switch {
	case err == readline.ErrInterrupt:
		return "", io.EOF
	case err != nil:
		return "", err
	}
	if entry := strings.TrimSpace(line); entry != "" {
		le.rl.SaveToHistory(entry)
	}
	return line, nil
}

// SetCompletions replaces the words offered on tab.
func (le *LineEditor) SetCompletions(words []string) {
	le.complete.words = words
}

// Close restores the terminal. Calling it again does nothing.
func (le *LineEditor) Close() {
	if le.rl == nil {
		return
	}
	le.rl.Close()
	le.rl = nil
}

// IsInteractive reports whether the editor reads from a terminal.
func (le *LineEditor) IsInteractive() bool {
	return le.rl != nil
}

// completer completes the first word of a line. It implements
// readline.AutoCompleter.
type completer struct {
	words []string
}

func (c *completer) Do(line []rune, pos int) ([][]rune, int) {
	typed := string(line[:pos])
	if strings.ContainsAny(typed, " \t") {
		return nil, 0
	}
	lower := strings.ToLower(typed)

	var out [][]rune
	for _, w := range c.words {
		if strings.HasPrefix(w, lower) {
			out = append(out, []rune(w[len(lower):]+" "))
		}
	}
	return out, len(typed)
}

// consoleWords lists what can start a line in mode.
func consoleWords(mode REPLMode) []string {
	words := []string{".dos", ".bus", ".help", ".device", ".quit", "reset"}
	for k := range modeHelp(mode) {
		words = append(words, k)
	}
	sort.Strings(words)
	return words
}
