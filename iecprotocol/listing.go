package iecprotocol

import (
	"context"

	"github.com/iecbridge/iecbridge/iecbus"
	log "github.com/sirupsen/logrus"
)

// sendListing streams a directory as a BASIC program, one line per 'L'
// request, and ends it with the two zero octets of a null link.
func (i *Interface) sendListing(ctx context.Context) error {
	ptr := uint16(iecbus.BasicStart)
	if !i.send(byte(ptr)) || !i.send(byte(ptr>>8)) {
		return &SendError{Op: "listing", Sent: 0}
	}

	lines := 0
	for {
		if err := i.link.Send(VerbListing); err != nil {
			return err
		}
		if n, err := i.link.ReadFull(ctx, i.frame[:2]); err != nil {
			if interrupted(ctx, err) {
				return err
			}
			i.log.WithError(newShortReadError("listing header", 2, n, err)).Warn("listing ended early")
			break
		}

		status, length := i.frame[0], int(i.frame[1])
		if status == ListingMore {
			n, err := i.link.ReadFull(ctx, i.line[:length])
			if err != nil {
				if interrupted(ctx, err) {
					return err
				}
				i.link.Flush()
				i.log.WithError(newShortReadError("listing line", length, n, err)).Warn("listing mismatch")
				break
			}
			if err := i.sendLine(i.line[:length], &ptr); err != nil {
				return err
			}
			lines++
			continue
		}

		if status != ListingLast {
			stray := i.link.Flush()
			i.log.WithFields(log.Fields{
				"char":  status,
				"stray": stray,
			}).Warn("listing ending at unexpected char")
		}
		break
	}

	if !i.send(0) || !i.sendEOI(0) {
		return &SendError{Op: "listing", Sent: lines}
	}
	i.log.WithField("lines", lines).Debug("listing sent")
	return nil
}

// sendLine sends one BASIC line: link to the next line, the payload
// (line number and text) and the terminating zero.
func (i *Interface) sendLine(payload []byte, ptr *uint16) error {
	*ptr += uint16(len(payload)) + LineOverhead

	if !i.send(byte(*ptr)) || !i.send(byte(*ptr>>8)) {
		return &SendError{Op: "listing line", Sent: 0}
	}
	for k, b := range payload {
		if !i.send(b) {
			return &SendError{Op: "listing line", Sent: k + 2}
		}
	}
	if !i.send(0) {
		return &SendError{Op: "listing line", Sent: len(payload) + 2}
	}
	return nil
}
