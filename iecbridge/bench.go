// =============================================================================
// bench.go - Drive on a Virtual Bus
// =============================================================================
//
// A bench wires the drive's dispatcher to a host link and a virtual bus,
// and puts a simulated host computer on the other end of that bus. Every
// console command and one-shot sub-command becomes an action executed
// here.
//
// =============================================================================

package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/iecbridge/iecbridge/iecbus"
	"github.com/iecbridge/iecbridge/iecprotocol"
	log "github.com/sirupsen/logrus"
)

// bench is one drive session.
type bench struct {
	link  *iecprotocol.HostLink
	bus   *iecbus.VirtualBus
	drive *iecprotocol.Interface
	pc    *iecbus.Computer
}

// newBench takes ownership of rw.
func newBench(rw io.ReadWriter, opts options) *bench {
	cfg := iecprotocol.DefaultConfig()
	cfg.ReadTimeout = opts.timeout

	bus := iecbus.NewVirtualBus(opts.device)
	cfg.Interrupts = bus

	// A logger of our own so the remote hook goes away with the bench.
	std := log.StandardLogger()
	logger := log.New()
	logger.SetLevel(std.GetLevel())
	logger.SetFormatter(std.Formatter)
	logger.SetOutput(std.Out)
	cfg.Logger = logger

	link := iecprotocol.NewHostLink(rw, cfg)
	if opts.remoteLog {
		logger.AddHook(iecprotocol.NewLogHook(link, log.InfoLevel))
	}

	drive := iecprotocol.New(bus, link, cfg)
	return &bench{
		link:  link,
		bus:   bus,
		drive: drive,
		pc:    iecbus.NewComputer(bus, drive),
	}
}

// Close closes the host link.
func (b *bench) Close() error {
	return b.link.Close()
}

// execute performs act and writes its result to out.
func (b *bench) execute(ctx context.Context, act action, out io.Writer) error {
	switch act.kind {
	case actionLoad:
		data, err := b.pc.Load(ctx, act.name)
		if err != nil {
			return err
		}
		if act.path != "" {
			if err := os.WriteFile(expandHome(act.path), data, 0o644); err != nil {
				return err
			}
			fmt.Fprintf(out, "LOADED %q: %d octets to %s\n", act.name, len(data), act.path)
			return nil
		}
		fmt.Fprintf(out, "LOADED %q: %d octets%s\n", act.name, len(data), loadRange(data))
		fmt.Fprint(out, hex.Dump(data))

	case actionSave:
		data, err := os.ReadFile(expandHome(act.path))
		if err != nil {
			return err
		}
		if err := b.pc.Save(ctx, act.name, data); err != nil {
			return err
		}
		fmt.Fprintf(out, "SAVED %q: %d octets\n", act.name, len(data))

	case actionDir:
		lines, err := b.pc.Directory(ctx)
		if err != nil {
			return err
		}
		for _, l := range lines {
			fmt.Fprintln(out, l)
		}

	case actionStatus:
		status, err := b.pc.Status(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, status)

	case actionCommand:
		if err := b.pc.Command(ctx, act.name); err != nil {
			return err
		}
		status, err := b.pc.Status(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, status)

	case actionReset:
		fmt.Fprintln(out, b.pc.Reset(ctx))

	case actionEvent:
		return b.event(ctx, act, out)

	default:
		return fmt.Errorf("unknown action %d", act.kind)
	}
	return nil
}

// event runs one raw ATN sequence and shows what the drive did with it.
func (b *bench) event(ctx context.Context, act action, out io.Writer) error {
	if len(act.feed) > 0 {
		b.bus.Feed(act.feed)
	}
	fnf := b.bus.FNFCount()
	b.bus.TakeTalked()
	b.bus.Queue(act.check, act.cmd)

	var check iecbus.ATNCheck
	for b.bus.Pending() > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
		check = b.drive.Handle(ctx)
	}
	unread := b.bus.Unread()
	b.bus.Discard()

	fmt.Fprintf(out, "%v %v\n", check, act.cmd)
	if talked := b.bus.TakeTalked(); len(talked) > 0 {
		fmt.Fprintln(out, formatOctets(talked))
	}
	if b.bus.FNFCount() > fnf {
		fmt.Fprintln(out, "FILE NOT FOUND")
	}
	if unread > 0 {
		fmt.Fprintf(out, "%d octets not taken\n", unread)
	}
	return nil
}

// loadRange formats the memory range a program loads to.
func loadRange(data []byte) string {
	if len(data) < 2 {
		return ""
	}
	start := int(data[0]) | int(data[1])<<8
	return fmt.Sprintf(", $%04X-$%04X", start, start+len(data)-2)
}

// formatOctets renders talked octets as hex, marking the EOI octet.
func formatOctets(octets []iecbus.Octet) string {
	var sb strings.Builder
	for i, o := range octets {
		if i > 0 {
			sb.WriteByte(' ')
		}
		fmt.Fprintf(&sb, "%02X", o.Value)
		if o.EOI {
			sb.WriteString("*")
		}
	}
	return sb.String()
}
