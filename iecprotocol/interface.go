package iecprotocol

import (
	"context"
	"errors"
	"time"

	"github.com/iecbridge/iecbridge/iecbus"
	log "github.com/sirupsen/logrus"
)

// Interface is the drive's command dispatcher. It turns ATN sequences from
// the bus into host-link requests and moves the replies back onto the bus.
//
// All session state lives here: the open state reported by the host for
// the next TALK, the error queued for the next status read, and the
// buffers used to stage command text, host-link frames and listing lines.
type Interface struct {
	bus  iecbus.Bus
	link *HostLink
	irq  iecbus.Interrupts
	log  log.FieldLogger
	cfg  Config

	cmd     iecbus.Command
	cmdText [iecbus.MaxCommandLength]byte
	frame   [MaxBytesPerRequest]byte
	line    [MaxBytesPerRequest]byte

	openState   OpenState
	queuedError IOError

	// pendingOpens counts O frames whose '>' reply was not read yet.
	pendingOpens int
}

// New creates the dispatcher for bus, talking to the host service on link.
// The link's reads are aborted whenever the bus RESET line is asserted.
func New(bus iecbus.Bus, link *HostLink, cfg Config) *Interface {
	cfg = cfg.withDefaults()
	i := &Interface{
		bus:  bus,
		link: link,
		irq:  cfg.Interrupts,
		log:  cfg.Logger.WithField(FieldFacility, string(rune(FacilityInterface))),
		cfg:  cfg,
	}
	i.cmd.Text = make([]byte, 0, iecbus.MaxCommandLength)
	link.SetAbort(bus.ResetAsserted)
	i.Reset()
	return i
}

// Reset returns the session to its power-on state.
func (i *Interface) Reset() {
	i.openState = OpenNothing
	i.queuedError = ErrIntro
	i.pendingOpens = 0
}

// OpenState returns what the last OPEN reply announced.
func (i *Interface) OpenState() OpenState {
	return i.openState
}

// QueuedError returns the code the next status read will report.
func (i *Interface) QueuedError() IOError {
	return i.queuedError
}

// Handle performs one poll of the bus and services whatever arrived. It
// returns the attention-check result.
func (i *Interface) Handle(ctx context.Context) iecbus.ATNCheck {
	if i.bus.ResetAsserted() {
		i.busReset()
		return iecbus.ATNReset
	}

	g := iecbus.Lock(i.irq)
	check := i.bus.CheckATN(&i.cmd)
	g.Release()

	switch check {
	case iecbus.ATNIdle:
		return check
	case iecbus.ATNReset:
		i.busReset()
		return check
	case iecbus.ATNError:
		i.log.Error("ATNCMD: IEC_ERROR!")
		i.busReset()
		return check
	}

	// The driver's buffer is reused on the next poll; work on a copy.
	n := copy(i.cmdText[:], i.cmd.Text)
	cmd := iecbus.Command{Code: i.cmd.Code, Text: i.cmdText[:n]}

	i.log.WithFields(log.Fields{
		"atn":     check.String(),
		"kind":    cmd.Kind().String(),
		"channel": cmd.Channel(),
		"text":    string(cmd.Text),
	}).Debug("ATN")

	err := i.dispatch(ctx, check, cmd)
	switch {
	case err == nil:
	case errors.Is(err, ErrBusReset):
		i.busReset()
		return iecbus.ATNReset
	default:
		i.log.WithFields(log.Fields{
			"kind":    cmd.Kind().String(),
			"channel": cmd.Channel(),
		}).WithError(err).Warn("command failed")
	}
	return check
}

// Run polls the bus until ctx is done.
func (i *Interface) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		// A held RESET line is waited out like an idle bus.
		switch i.Handle(ctx) {
		case iecbus.ATNIdle, iecbus.ATNReset:
		default:
			continue
		}
		if i.cfg.IdleInterval <= 0 {
			continue
		}
		t := time.NewTimer(i.cfg.IdleInterval)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
}

// busReset discards the session and anything half received.
func (i *Interface) busReset() {
	i.Reset()
	if n := i.link.Flush(); n > 0 {
		i.log.WithField("octets", n).Debug("flushed host link after reset")
	}
}

func (i *Interface) dispatch(ctx context.Context, check iecbus.ATNCheck, cmd iecbus.Command) error {
	ch := cmd.Channel()

	switch cmd.Kind() {
	case iecbus.KindOpen:
		// Only forward. The reply is read by the TALK or LISTEN that
		// follows, so the bus is not kept waiting here.
		return i.open(ch, cmd.Text)

	case iecbus.KindData:
		switch check {
		case iecbus.ATNCmdTalk:
			if ch == iecbus.CommandChannel {
				if err := i.open(ch, cmd.Text); err != nil {
					return err
				}
			}
			return i.talk(ctx, ch)
		case iecbus.ATNCmdListen:
			return i.listen(ctx)
		case iecbus.ATNCmd:
			// The host keeps the result for a later status read.
			return i.open(ch, cmd.Text)
		}

	case iecbus.KindClose:
		return i.closeFile(ctx)

	case iecbus.KindListen, iecbus.KindUnlisten, iecbus.KindTalk, iecbus.KindUntalk:
		i.log.Debug(cmd.Kind().String())

	default:
		i.log.WithField("code", cmd.Code).Debug("ignoring unknown ATN code")
	}
	return nil
}

// open forwards an OPEN to the host service without waiting for the reply.
func (i *Interface) open(channel byte, text []byte) error {
	if err := i.link.SendOpen(channel, text); err != nil {
		return err
	}
	i.pendingOpens++
	return nil
}

// closeFile tells the host service the file was closed.
func (i *Interface) closeFile(ctx context.Context) error {
	if err := i.skipReplies(ctx, i.pendingOpens); err != nil {
		return err
	}
	if err := i.link.Send(VerbClose); err != nil {
		return err
	}
	if n, err := i.link.ReadFull(ctx, i.frame[:2]); err != nil {
		i.link.Flush()
		return newShortReadError("close", 2, n, err)
	}

	switch resp := i.frame[0]; resp {
	case CloseLoaded, CloseSaved:
		length := int(i.frame[1])
		n, err := i.link.ReadFull(ctx, i.frame[:length])
		if err != nil {
			i.link.Flush()
			return newShortReadError("close name", length, n, err)
		}
		action := "LOADED"
		if resp == CloseSaved {
			action = "SAVED"
		}
		i.log.WithField("name", string(i.frame[:length])).Info(action)

	case CloseDevice:
		if dev := i.frame[1]; dev != i.bus.DeviceNumber() {
			i.bus.SetDeviceNumber(dev)
			i.log.WithField("device", dev).Info("device number changed")
		}

	default:
		i.link.Flush()
		return &UnexpectedReplyError{Op: "close", Reply: resp}
	}
	return nil
}
