package iecprotocol

import (
	"context"

	"github.com/iecbridge/iecbridge/iecbus"
	log "github.com/sirupsen/logrus"
)

// sendFile streams the opened file to the host computer, one 'R' buffer
// at a time.
//
// The last octet of every buffer is held back until the next header shows
// whether more data follows, so the EOI lands on the true last octet even
// when the final 'E' buffer is empty.
func (i *Interface) sendFile(ctx context.Context) error {
	if err := i.link.Send(VerbSize); err != nil {
		return err
	}
	if n, err := i.link.ReadFull(ctx, i.frame[:3]); err != nil {
		if interrupted(ctx, err) {
			return err
		}
		i.link.Flush()
		return newShortReadError("size", 3, n, err)
	}
	if i.frame[0] != VerbSize {
		i.link.Flush()
		return &UnexpectedReplyError{Op: "size", Reply: i.frame[0]}
	}
	size := int(i.frame[1])<<8 | int(i.frame[2])
	i.log.WithField("size", size).Debug("sending file")

	var (
		pending byte
		held    bool
		sent    int
	)
	for {
		if err := i.link.Send(VerbRead); err != nil {
			return err
		}
		if n, err := i.link.ReadFull(ctx, i.frame[:2]); err != nil {
			if interrupted(ctx, err) {
				return err
			}
			i.link.Flush()
			return newShortReadError("buffer header", 2, n, err)
		}

		marker, length := i.frame[0], int(i.frame[1])
		if marker != BufferMore && marker != BufferEnd {
			i.link.Flush()
			return &UnexpectedReplyError{Op: "buffer header", Reply: marker}
		}
		if n, err := i.link.ReadFull(ctx, i.frame[:length]); err != nil {
			if interrupted(ctx, err) {
				return err
			}
			i.link.Flush()
			return newShortReadError("buffer", length, n, err)
		}

		for _, b := range i.frame[:length] {
			if held {
				if !i.send(pending) {
					i.link.Flush()
					return &SendError{Op: "sendFile", Sent: sent}
				}
				sent++
			}
			pending, held = b, true
		}
		if marker == BufferEnd {
			break
		}
	}

	if !held {
		i.sendFNF()
		return ErrEmptyFile
	}
	if !i.sendEOI(pending) {
		i.link.Flush()
		return &SendError{Op: "sendFile", Sent: sent}
	}
	sent++

	i.log.WithFields(log.Fields{"bytes": sent, "size": size}).Debug("sendFile completed")
	return nil
}

// saveFile forwards data from the host computer to the host service until
// the talker marks the end or the bus reports an error.
func (i *Interface) saveFile(ctx context.Context) error {
	total := 0
	for {
		n := 0
		done := false
		for n < SaveChunkSize && !done {
			b, st := i.receive()
			i.frame[n] = b
			n++
			done = st&(iecbus.StateEOI|iecbus.StateError) != 0
		}
		if err := i.link.SendWrite(i.frame[:n]); err != nil {
			return err
		}
		total += n
		if done {
			break
		}
		if err := ctx.Err(); err != nil {
			return err
		}
	}
	i.log.WithField("bytes", total).Debug("saveFile completed")
	return nil
}
