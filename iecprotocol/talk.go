package iecprotocol

import (
	"context"
	"errors"

	"github.com/iecbridge/iecbridge/iecbus"
	log "github.com/sirupsen/logrus"
)

// Octet transfers on the bus. Each one holds interrupts off for exactly
// its own duration so the host link keeps receiving in between.

func (i *Interface) send(b byte) bool {
	g := iecbus.Lock(i.irq)
	defer g.Release()
	return i.bus.Send(b)
}

func (i *Interface) sendEOI(b byte) bool {
	g := iecbus.Lock(i.irq)
	defer g.Release()
	return i.bus.SendEOI(b)
}

func (i *Interface) sendFNF() {
	g := iecbus.Lock(i.irq)
	defer g.Release()
	i.bus.SendFNF()
}

func (i *Interface) receive() (byte, iecbus.State) {
	g := iecbus.Lock(i.irq)
	defer g.Release()
	b := i.bus.Receive()
	return b, i.bus.State()
}

// interrupted reports errors after which nothing more should be sent.
func interrupted(ctx context.Context, err error) bool {
	return errors.Is(err, ErrBusReset) || ctx.Err() != nil
}

// skipReplies reads and drops n OPEN replies nobody asked for.
func (i *Interface) skipReplies(ctx context.Context, n int) error {
	for ; n > 0; n-- {
		i.pendingOpens--
		if err := i.link.Find(ctx, ReplySync); err != nil {
			if interrupted(ctx, err) {
				return err
			}
			i.log.WithError(err).Warn("stale open reply missing")
			i.pendingOpens = 0
			return nil
		}
		if _, err := i.link.ReadFull(ctx, i.frame[:2]); err != nil && interrupted(ctx, err) {
			return err
		}
	}
	if i.pendingOpens < 0 {
		i.pendingOpens = 0
	}
	return nil
}

// awaitReply reads the '>' reply to the most recent OPEN and returns its
// result octet.
func (i *Interface) awaitReply(ctx context.Context, op string) (byte, error) {
	if i.pendingOpens > 1 {
		if err := i.skipReplies(ctx, i.pendingOpens-1); err != nil {
			return 0, err
		}
	}
	i.pendingOpens = 0

	if err := i.link.Find(ctx, ReplySync); err != nil {
		if interrupted(ctx, err) {
			return 0, err
		}
		return 0, newSyncError(op, err)
	}
	if n, err := i.link.ReadFull(ctx, i.frame[:2]); err != nil {
		return 0, newShortReadError(op, 2, n, err)
	}
	return i.frame[0], nil
}

// talk answers a TALK on channel ch with whatever the host service
// prepared for the preceding OPEN.
func (i *Interface) talk(ctx context.Context, ch byte) error {
	result, err := i.awaitReply(ctx, "talk")
	if err != nil {
		if interrupted(ctx, err) {
			return err
		}
		i.sendFNF()
		i.log.WithError(err).Error("response not sync")
		return nil
	}

	if ch == iecbus.CommandChannel {
		i.queuedError = IOError(result)
		err := i.sendStatus(ctx)
		i.queuedError = ErrOK
		return err
	}

	i.openState = OpenState(result)
	i.log.WithFields(log.Fields{"channel": ch, "state": i.openState.String()}).Debug("talk")

	switch i.openState {
	case OpenInfo:
		i.Reset()
		return i.sendListing(ctx)
	case OpenFileErr, OpenNothing:
		i.sendFNF()
	case OpenFile:
		return i.sendFile(ctx)
	case OpenDir:
		return i.sendListing(ctx)
	default:
		i.sendFNF()
		return &UnexpectedReplyError{Op: "talk", Reply: result}
	}
	return nil
}

// listen accepts data from the host computer if the host service is ready
// for it.
//
// Unlike talk, a failed sync is not reported to the host computer with a
// "file not found": the host computer recovers on its own once the drive
// stops listening.
func (i *Interface) listen(ctx context.Context) error {
	result, err := i.awaitReply(ctx, "listen")
	if err != nil {
		if interrupted(ctx, err) {
			return err
		}
		i.log.WithError(err).Error("response not sync")
		return nil
	}
	if code := IOError(result); code != ErrOK {
		i.log.WithField("result", code.String()).Debug("host refused save")
		return nil
	}
	return i.saveFile(ctx)
}

// sendStatus asks the host service for the text of the queued error and
// relays it to the host computer, the last character with EOI.
func (i *Interface) sendStatus(ctx context.Context) error {
	if err := i.link.SendStatusRequest(i.queuedError); err != nil {
		return err
	}
	if err := i.link.Find(ctx, StatusSync); err != nil {
		if interrupted(ctx, err) {
			return err
		}
		return newSyncError("status", err)
	}
	n, err := i.link.ReadUntil(ctx, StatusEnd, i.frame[:])
	if err != nil {
		return err
	}
	if n == 0 {
		return nil
	}

	for k := 0; k < n-1; k++ {
		if !i.send(i.frame[k]) {
			return &SendError{Op: "status", Sent: k}
		}
	}
	if !i.sendEOI(i.frame[n-1]) {
		return &SendError{Op: "status", Sent: n - 1}
	}
	return nil
}
