// =============================================================================
// main_test.go - Tests for the Command Tree (main.go)
// =============================================================================
//
// GO CONCEPT: Testing a cobra Command
// -----------------------------------
// newRootCommand returns a fresh tree on every call, so each test builds
// its own, sets the arguments with SetArgs and runs Execute. Nothing
// touches os.Args and no test can leak flag values into another.
//
// =============================================================================

package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
)

// =============================================================================
// Version and Banner Tests
// =============================================================================

func TestFullTitle(t *testing.T) {
	if got, want := fullTitle(), "iecbridge v"+version; got != want {
		t.Errorf("fullTitle() = %q, want %q", got, want)
	}
}

func TestWelcomeBanner(t *testing.T) {
	banner := welcomeBanner(9)

	for _, want := range []string{fullTitle(), "Drive 9 is listening.", ".help", ".quit"} {
		if !strings.Contains(banner, want) {
			t.Errorf("banner missing %q:\n%s", want, banner)
		}
	}
	if !strings.HasSuffix(banner, "\n") {
		t.Error("banner should end with a newline")
	}
}

func TestVersionFlag(t *testing.T) {
	root, _ := newRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"--version"})

	if err := root.Execute(); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !strings.Contains(out.String(), version) {
		t.Errorf("--version printed %q", out.String())
	}
}

// =============================================================================
// Flag Tests
// =============================================================================

func TestFlagDefaults(t *testing.T) {
	_, opts := newRootCommand()

	if opts.baud != defaultBaud || opts.device != 8 || opts.logLevel != "warn" {
		t.Errorf("defaults = %+v", *opts)
	}
	if opts.port != "" || opts.socket != "" || opts.addr != "" {
		t.Errorf("no transport should be set by default: %+v", *opts)
	}
	if opts.timeout <= 0 {
		t.Errorf("timeout = %v, want positive", opts.timeout)
	}
}

func TestFlagParsing(t *testing.T) {
	root, opts := newRootCommand()

	err := root.PersistentFlags().Parse([]string{
		"--port", "/dev/ttyUSB1",
		"--baud", "115200",
		"--wait", "3s",
		"--device", "9",
		"--timeout", "500ms",
		"--log-level", "debug",
		"--remote-log",
	})
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	want := options{
		port:      "/dev/ttyUSB1",
		baud:      115200,
		wait:      3 * time.Second,
		device:    9,
		timeout:   500 * time.Millisecond,
		logLevel:  "debug",
		remoteLog: true,
	}
	if *opts != want {
		t.Errorf("options = %+v, want %+v", *opts, want)
	}
}

func TestDeviceFlagRange(t *testing.T) {
	root, _ := newRootCommand()
	if err := root.PersistentFlags().Parse([]string{"--device", "300"}); err == nil {
		t.Error("a device number above 255 should be rejected")
	}
}

// =============================================================================
// Execution Tests
// =============================================================================

// execute runs the command tree with args, keeping the logger quiet.
func execute(t *testing.T, args ...string) error {
	t.Helper()

	level := log.GetLevel()
	t.Cleanup(func() { log.SetLevel(level) })

	root, _ := newRootCommand()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs(append([]string{"--log-level", "error"}, args...))
	return root.ExecuteContext(context.Background())
}

func TestExecuteWithoutTransport(t *testing.T) {
	if err := execute(t, "dir"); !errors.Is(err, errNoTransport) {
		t.Errorf("Execute() error = %v, want errNoTransport", err)
	}
}

func TestExecuteBadLogLevel(t *testing.T) {
	if err := execute(t, "--log-level", "loud", "dir"); err == nil {
		t.Error("an unknown log level should fail")
	}
}

func TestExecuteArgumentValidation(t *testing.T) {
	tests := [][]string{
		{"load"},
		{"load", "A", "B", "C"},
		{"save", "ONLY"},
		{"dir", "extra"},
		{"status", "extra"},
		{"cmd"},
	}

	for _, args := range tests {
		t.Run(strings.Join(args, "_"), func(t *testing.T) {
			if err := execute(t, args...); err == nil {
				t.Errorf("%v should be rejected", args)
			}
		})
	}
}

func TestExecuteDirOverSocket(t *testing.T) {
	host := newMockHostService()
	host.dir = []string{`"WORK" 01 2A`, "12 BLOCKS FREE."}
	path := listenUnix(t, host)

	var err error
	output := captureStdout(t, func() {
		err = execute(t, "--socket", path, "dir")
	})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	want := "0 \"WORK\" 01 2A\n1 12 BLOCKS FREE.\n"
	if output != want {
		t.Errorf("output = %q, want %q", output, want)
	}
}

func TestExecuteCommandOverSocket(t *testing.T) {
	host := newMockHostService()
	path := listenUnix(t, host)

	var err error
	output := captureStdout(t, func() {
		err = execute(t, "--socket", path, "cmd", "N0:DISK,01")
	})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !strings.HasPrefix(output, "31,") {
		t.Errorf("output = %q, want the not-implemented status", output)
	}
}
