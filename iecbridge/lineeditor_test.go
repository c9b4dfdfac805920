// =============================================================================
// lineeditor_test.go - Tests for Console Line Editing (lineeditor.go)
// =============================================================================
//
// The interactive path needs a real terminal, so these tests feed the
// editor from a pipe. That is also how the bench runs under Emacs comint or
// with a script piped in.
//
// =============================================================================

package main

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

// newTestEditor returns an editor reading input from a pipe and writing
// prompts to the returned buffer.
func newTestEditor(t *testing.T, input string) (*LineEditor, *bytes.Buffer) {
	t.Helper()

	reader, writer, err := os.Pipe()
	if err != nil {
		t.Fatalf("failed to create pipe: %v", err)
	}
	t.Cleanup(func() { reader.Close() })

	var out bytes.Buffer
	editor := newLineEditor(reader, &out, filepath.Join(t.TempDir(), historyFileName))
	t.Cleanup(editor.Close)

	fmt.Fprint(writer, input)
	writer.Close()
	return editor, &out
}

// =============================================================================
// Construction Tests
// =============================================================================

func TestNewLineEditorNonInteractive(t *testing.T) {
	editor, _ := newTestEditor(t, "")
	if editor.IsInteractive() {
		t.Error("editor should be non-interactive when input is a pipe")
	}
}

func TestNewLineEditorWithEmacsEnv(t *testing.T) {
	t.Setenv("INSIDE_EMACS", "29.1,comint")

	editor, _ := newTestEditor(t, "")
	if editor.IsInteractive() {
		t.Error("editor should be non-interactive when INSIDE_EMACS is set")
	}
}

// GO CONCEPT: Redirecting os.Stdin
// --------------------------------
// NewLineEditor reads os.Stdin when it is called, so the pipe has to be in
// place first. t.Cleanup puts the real stdin back after the test.
func TestNewLineEditorUsesStdin(t *testing.T) {
	oldStdin := os.Stdin
	reader, writer, err := os.Pipe()
	if err != nil {
		t.Fatalf("failed to create pipe: %v", err)
	}
	os.Stdin = reader
	t.Cleanup(func() {
		os.Stdin = oldStdin
		reader.Close()
	})

	editor := NewLineEditor()
	defer editor.Close()

	fmt.Fprint(writer, "dir\n")
	writer.Close()

	// The prompt goes to the real stdout; only the line matters here.
	line, err := editor.GetLine("")
	if err != nil || line != "dir" {
		t.Errorf("GetLine() = %q, %v", line, err)
	}
}

// =============================================================================
// GetLine Tests
// =============================================================================

func TestGetLineReadsLines(t *testing.T) {
	editor, _ := newTestEditor(t, "load ELITE\n  dir  \n\n.quit")

	want := []string{"load ELITE", "  dir  ", "", ".quit"}
	for i, w := range want {
		line, err := editor.GetLine("> ")
		if err != nil {
			t.Fatalf("line %d: GetLine() error = %v", i, err)
		}
		if line != w {
			t.Errorf("line %d = %q, want %q", i, line, w)
		}
	}

	if _, err := editor.GetLine("> "); err != io.EOF {
		t.Errorf("GetLine() after input error = %v, want io.EOF", err)
	}
}

func TestGetLineEOFOnEmptyInput(t *testing.T) {
	editor, _ := newTestEditor(t, "")

	line, err := editor.GetLine("> ")
	if err != io.EOF {
		t.Errorf("GetLine() error = %v, want io.EOF", err)
	}
	if line != "" {
		t.Errorf("GetLine() = %q, want empty", line)
	}
}

func TestGetLinePrintsPrompt(t *testing.T) {
	editor, out := newTestEditor(t, "x\ny\n")

	editor.GetLine("[bus] > ")
	editor.GetLine("[dos] > ")

	if got := out.String(); got != "[bus] > [dos] > " {
		t.Errorf("prompts = %q", got)
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	editor, _ := newTestEditor(t, "")
	editor.Close()
	editor.Close()
}

func TestHistorySettings(t *testing.T) {
	if !strings.HasPrefix(historyFileName, ".") {
		t.Errorf("history file %q should be hidden", historyFileName)
	}
	if historySize <= 0 {
		t.Errorf("historySize = %d, want positive", historySize)
	}
}

// =============================================================================
// Completion Tests
// =============================================================================

func TestCompleterFirstWord(t *testing.T) {
	c := &completer{words: consoleWords(ModeBus)}

	tests := []struct {
		name       string
		line       string
		want       []string
		wantLength int
	}{
		{"unique", "ta", []string{"lk "}, 2},
		{"several", "c", []string{"lose "}, 1},
		{"dot commands", ".d", []string{"evice ", "os "}, 2},
		{"case", "LIS", []string{"ten "}, 3},
		{"complete word", "open", []string{" "}, 4},
		{"no match", "zz", nil, 2},
		{"past first word", "talk 0", nil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			line := []rune(tt.line)
			got, n := c.Do(line, len(line))

			var words []string
			for _, r := range got {
				words = append(words, string(r))
			}
			if !reflect.DeepEqual(words, tt.want) || n != tt.wantLength {
				t.Errorf("Do(%q) = %q, %d, want %q, %d", tt.line, words, n, tt.want, tt.wantLength)
			}
		})
	}
}

func TestConsoleWordsFollowMode(t *testing.T) {
	dos := strings.Join(consoleWords(ModeDOS), " ")
	bus := strings.Join(consoleWords(ModeBus), " ")

	if !strings.Contains(dos, "load") || strings.Contains(dos, "talk") {
		t.Errorf("DOS words = %s", dos)
	}
	if !strings.Contains(bus, "talk") || strings.Contains(bus, "load") {
		t.Errorf("Bus words = %s", bus)
	}
	if !strings.Contains(bus, ".quit") || !strings.Contains(dos, ".quit") {
		t.Error(".quit should complete in every mode")
	}
}

func TestSetCompletions(t *testing.T) {
	editor, _ := newTestEditor(t, "")
	editor.SetCompletions([]string{"alpha"})

	got, _ := editor.complete.Do([]rune("al"), 2)
	if len(got) != 1 || string(got[0]) != "pha " {
		t.Errorf("completion = %q", got)
	}
}
