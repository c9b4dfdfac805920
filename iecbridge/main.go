// =============================================================================
// main.go - iecbridge Entry Point
// =============================================================================
//
// iecbridge is a bench tool for the drive side of the serial bus bridge. It
// connects to a host service (the PC-side file server) over a serial port
// or a socket, runs the drive's command dispatcher against a virtual bus,
// and plays the host computer on that bus: LOAD, SAVE, directory listings,
// the status channel and drive commands.
//
// Usage:
//
//	iecbridge --port /dev/ttyUSB0             Interactive console over serial
//	iecbridge --addr localhost:6464 dir       One directory listing over TCP
//	iecbridge --socket /tmp/host.sock load X  LOAD "X" and hex-dump it
//	iecbridge --help                          Show help
//
// The console supports two modes:
//   - DOS: what a BASIC user would type (load, save, dir, @ commands)
//   - Bus: raw ATN sequences (open, talk, listen, close) for protocol work
//
// =============================================================================

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/iecbridge/iecbridge/iecbus"
	"github.com/iecbridge/iecbridge/iecprotocol"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// =============================================================================
// Version Information
// =============================================================================

const (
	version = "0.3.0"

	appName = "iecbridge"
)

func fullTitle() string {
	return fmt.Sprintf("%s v%s", appName, version)
}

func welcomeBanner(device byte) string {
	return fmt.Sprintf(`%s - serial bus drive bridge
Drive %d is listening.

Type '.help' for available commands.
Type '.quit' to exit.
`, fullTitle(), device)
}

// =============================================================================
// Command-Line Options
// =============================================================================

// options holds the persistent flags shared by every sub-command.
type options struct {
	// port is the serial device of the host link, e.g. /dev/ttyUSB0.
	port string
	baud uint

	// wait is how long to wait for the serial device to appear.
	wait time.Duration

	// socket and addr reach a host service that listens on a Unix
	// socket or TCP instead of a serial port.
	socket string
	addr   string

	device  uint8
	timeout time.Duration

	logLevel  string
	remoteLog bool
}

func defaultOptions() options {
	return options{
		baud:     defaultBaud,
		device:   iecbus.DefaultDevice,
		timeout:  iecprotocol.DefaultReadTimeout,
		logLevel: "warn",
	}
}

// GO CONCEPT: Command Trees with cobra
// ------------------------------------
// cobra builds a CLI as a tree of *cobra.Command values. Flags declared on
// PersistentFlags() are inherited by every child command, so the transport
// flags only need to be declared once on the root. RunE returns an error
// instead of calling os.Exit, which keeps every command testable: a test
// can build the tree, set its arguments and call Execute().
//
// PersistentPreRunE runs before any command in the tree. It is the natural
// place for setup every command needs, here the logging configuration.

// newRootCommand builds the command tree. The returned options are filled
// in when the command is executed.
func newRootCommand() (*cobra.Command, *options) {
	opts := defaultOptions()

	root := &cobra.Command{
		Use:           appName,
		Short:         "Commodore serial bus drive bridge",
		Long:          "Run the drive side of a serial bus to host-service bridge against a virtual bus",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return configureLogging(opts.logLevel)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withBench(cmd.Context(), opts, runConsole)
		},
	}

	f := root.PersistentFlags()
	f.StringVar(&opts.port, "port", "", "serial device of the host link")
	f.UintVar(&opts.baud, "baud", opts.baud, "serial baud rate")
	f.DurationVar(&opts.wait, "wait", 0, "wait this long for the serial device to appear")
	f.StringVar(&opts.socket, "socket", "", "Unix socket of the host service")
	f.StringVar(&opts.addr, "addr", "", "TCP address of the host service")
	f.Uint8Var(&opts.device, "device", opts.device, "bus device number")
	f.DurationVar(&opts.timeout, "timeout", opts.timeout, "host link read timeout")
	f.StringVar(&opts.logLevel, "log-level", opts.logLevel, "trace|debug|info|warn|error")
	f.BoolVar(&opts.remoteLog, "remote-log", false, "forward log entries to the host service")

	root.AddCommand(
		&cobra.Command{
			Use:   "load NAME [OUT]",
			Short: "LOAD a file; write it to OUT or hex-dump it",
			Args:  cobra.RangeArgs(1, 2),
			RunE: func(cmd *cobra.Command, args []string) error {
				act := action{kind: actionLoad, name: args[0]}
				if len(args) == 2 {
					act.path = args[1]
				}
				return withBench(cmd.Context(), opts, oneShot(act))
			},
		},
		&cobra.Command{
			Use:   "save NAME IN",
			Short: "SAVE the contents of file IN as NAME",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withBench(cmd.Context(), opts, oneShot(action{kind: actionSave, name: args[0], path: args[1]}))
			},
		},
		&cobra.Command{
			Use:   "dir",
			Short: `LOAD "$" and list the directory`,
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withBench(cmd.Context(), opts, oneShot(action{kind: actionDir}))
			},
		},
		&cobra.Command{
			Use:   "status",
			Short: "read the command channel",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withBench(cmd.Context(), opts, oneShot(action{kind: actionStatus}))
			},
		},
		&cobra.Command{
			Use:   "cmd TEXT",
			Short: "send a drive command and print the resulting status",
			Args:  cobra.MinimumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				text := strings.Join(args, " ")
				return withBench(cmd.Context(), opts, oneShot(action{kind: actionCommand, name: text}))
			},
		},
		&cobra.Command{
			Use:   "console",
			Short: "interactive console (the default)",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withBench(cmd.Context(), opts, runConsole)
			},
		},
	)

	return root, &opts
}

// configureLogging sets up the standard logrus logger.
func configureLogging(level string) error {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return err
	}
	log.SetLevel(lvl)
	log.SetOutput(os.Stderr)
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	return nil
}

// withBench connects to the host service, builds the bench and runs fn.
func withBench(ctx context.Context, opts options, fn func(context.Context, *bench) error) error {
	rw, err := openTransport(opts)
	if err != nil {
		return err
	}
	b := newBench(rw, opts)
	defer b.Close()

	return fn(ctx, b)
}

// oneShot runs a single action and prints its result.
func oneShot(act action) func(context.Context, *bench) error {
	return func(ctx context.Context, b *bench) error {
		return b.execute(ctx, act, os.Stdout)
	}
}

func runConsole(ctx context.Context, b *bench) error {
	editor := NewLineEditor()
	defer editor.Close()

	fmt.Print(welcomeBanner(b.bus.DeviceNumber()))
	fmt.Println()

	runREPL(ctx, b, editor)
	return nil
}

func printError(message string) {
	fmt.Fprintf(os.Stderr, "Error: %s\n", message)
}

// =============================================================================
// Main Entry Point
// =============================================================================

// GO CONCEPT: Cancelling Work on a Signal
// ---------------------------------------
// signal.NotifyContext returns a context that is cancelled when one of the
// listed signals arrives. Every host-link wait watches that context, so ^C
// during a LOAD ends the transfer cleanly instead of killing the process
// halfway through a frame.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	root, _ := newRootCommand()
	if err := root.ExecuteContext(ctx); err != nil {
		if !errors.Is(err, context.Canceled) {
			printError(err.Error())
		}
		stop()
		os.Exit(1)
	}
}
