package iecprotocol

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"
)

// HostLink is the drive's end of the serial link to the host service.
//
// A receive goroutine moves incoming octets into a buffered queue, the way
// the UART interrupt fills the firmware's receive buffer while the bus is
// being serviced. Reads take octets from that queue and give up after the
// configured timeout, when ctx is done, or when the abort check (the bus
// RESET line) fires.
//
// Thread Safety:
// Send methods serialize on a mutex and may be used from any goroutine.
// Read methods are meant for a single consumer.
type HostLink struct {
	wmu sync.Mutex
	w   io.Writer
	out [MaxBytesPerRequest]byte

	in      chan byte
	done    chan struct{}
	errMu   sync.Mutex
	readErr error

	closer    io.Closer
	closeOnce sync.Once

	timeout time.Duration
	poll    time.Duration
	abort   func() bool
}

// NewHostLink starts receiving from rw. If rw is also an io.Closer, Close
// closes it.
func NewHostLink(rw io.ReadWriter, cfg Config) *HostLink {
	cfg = cfg.withDefaults()
	h := &HostLink{
		w:       rw,
		in:      make(chan byte, receiveBufferSize),
		done:    make(chan struct{}),
		timeout: cfg.ReadTimeout,
		poll:    cfg.PollInterval,
	}
	if c, ok := rw.(io.Closer); ok {
		h.closer = c
	}
	go h.receiveLoop(rw)
	return h
}

// SetAbort installs the check polled while a read is blocked. When it
// returns true the read fails with ErrBusReset.
func (h *HostLink) SetAbort(abort func() bool) {
	h.abort = abort
}

// Close stops the receive goroutine and closes the underlying transport.
func (h *HostLink) Close() error {
	var err error
	h.closeOnce.Do(func() {
		close(h.done)
		if h.closer != nil {
			err = h.closer.Close()
		}
	})
	return err
}

// receiveLoop continuously reads from the transport into the queue.
func (h *HostLink) receiveLoop(r io.Reader) {
	defer close(h.in)

	buf := make([]byte, 64)
	for {
		n, err := r.Read(buf)
		for _, b := range buf[:n] {
			select {
			case h.in <- b:
			case <-h.done:
				return
			}
		}
		if err != nil {
			h.errMu.Lock()
			h.readErr = err
			h.errMu.Unlock()
			return
		}
	}
}

func (h *HostLink) closedError() error {
	h.errMu.Lock()
	defer h.errMu.Unlock()
	if h.readErr != nil && h.readErr != io.EOF {
		return fmt.Errorf("%w: %v", ErrLinkClosed, h.readErr)
	}
	return ErrLinkClosed
}

// wait is the deadline shared by all octets of one read call.
type wait struct {
	deadline *time.Timer
	tick     *time.Ticker
}

func (h *HostLink) newWait() *wait {
	return &wait{
		deadline: time.NewTimer(h.timeout),
		tick:     time.NewTicker(h.poll),
	}
}

func (w *wait) stop() {
	w.deadline.Stop()
	w.tick.Stop()
}

// next returns the next received octet.
func (h *HostLink) next(ctx context.Context, w *wait) (byte, error) {
	// Fast path: data already queued.
	select {
	case b, ok := <-h.in:
		if !ok {
			return 0, h.closedError()
		}
		return b, nil
	default:
	}

	for {
		select {
		case b, ok := <-h.in:
			if !ok {
				return 0, h.closedError()
			}
			return b, nil
		case <-w.deadline.C:
			return 0, ErrTimeout
		case <-w.tick.C:
			if h.abort != nil && h.abort() {
				return 0, ErrBusReset
			}
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}
}

// ReadFull fills buf. It returns the number of octets read before an error.
func (h *HostLink) ReadFull(ctx context.Context, buf []byte) (int, error) {
	if len(buf) == 0 {
		return 0, nil
	}
	w := h.newWait()
	defer w.stop()

	for i := range buf {
		b, err := h.next(ctx, w)
		if err != nil {
			return i, err
		}
		buf[i] = b
	}
	return len(buf), nil
}

// Find discards octets until marker was read.
func (h *HostLink) Find(ctx context.Context, marker byte) error {
	w := h.newWait()
	defer w.stop()

	for {
		b, err := h.next(ctx, w)
		if err != nil {
			return err
		}
		if b == marker {
			return nil
		}
	}
}

// ReadUntil reads into buf until delim, which is consumed but not stored.
// A full buffer without delim is a malformed reply.
func (h *HostLink) ReadUntil(ctx context.Context, delim byte, buf []byte) (int, error) {
	w := h.newWait()
	defer w.stop()

	n := 0
	for {
		b, err := h.next(ctx, w)
		if err != nil {
			return n, err
		}
		if b == delim {
			return n, nil
		}
		if n == len(buf) {
			return n, fmt.Errorf("%w: no terminator within %d octets", ErrMalformedReply, len(buf))
		}
		buf[n] = b
		n++
	}
}

// Flush drops everything already received and returns how many octets
// were dropped.
func (h *HostLink) Flush() int {
	n := 0
	for {
		select {
		case _, ok := <-h.in:
			if !ok {
				return n
			}
			n++
		default:
			return n
		}
	}
}

// Buffered returns the number of received octets not read yet.
func (h *HostLink) Buffered() int {
	return len(h.in)
}

// Send writes one frame.
func (h *HostLink) Send(frame ...byte) error {
	h.wmu.Lock()
	defer h.wmu.Unlock()
	return h.write(frame)
}

func (h *HostLink) write(frame []byte) error {
	if _, err := h.w.Write(frame); err != nil {
		return fmt.Errorf("host link write: %w", err)
	}
	return nil
}

// SendOpen sends an OPEN request: verb, total frame length, channel, text.
func (h *HostLink) SendOpen(channel byte, text []byte) error {
	if len(text) > MaxFrameLength-openFrameHeader {
		text = text[:MaxFrameLength-openFrameHeader]
	}
	h.wmu.Lock()
	defer h.wmu.Unlock()

	n := openFrameHeader + len(text)
	h.out[0] = VerbOpen
	h.out[1] = byte(n)
	h.out[2] = channel
	copy(h.out[openFrameHeader:], text)
	return h.write(h.out[:n])
}

// SendStatusRequest asks for the status string of code.
func (h *HostLink) SendStatusRequest(code IOError) error {
	return h.Send(VerbStatus, byte(code))
}

// SendWrite forwards one chunk of SAVE data: verb, total frame length
// (2 + payload), payload.
func (h *HostLink) SendWrite(chunk []byte) error {
	if len(chunk) > SaveChunkSize {
		return fmt.Errorf("write chunk of %d octets exceeds %d", len(chunk), SaveChunkSize)
	}
	h.wmu.Lock()
	defer h.wmu.Unlock()

	n := writeFrameHeader + len(chunk)
	h.out[0] = VerbWrite
	h.out[1] = byte(n)
	copy(h.out[writeFrameHeader:], chunk)
	return h.write(h.out[:n])
}

// SendLog forwards a diagnostic message to the host service as one line:
// verb, severity, facility, message, CR LF. Line breaks inside the message
// become spaces so the frame ends only at its own terminator.
func (h *HostLink) SendLog(severity, facility byte, msg string) error {
	if limit := MaxBytesPerRequest - logFrameHeader - 2; len(msg) > limit {
		msg = msg[:limit]
	}
	h.wmu.Lock()
	defer h.wmu.Unlock()

	h.out[0] = VerbLog
	h.out[1] = severity
	h.out[2] = facility
	n := logFrameHeader
	for i := 0; i < len(msg); i++ {
		c := msg[i]
		if c == '\r' || c == '\n' {
			c = ' '
		}
		h.out[n] = c
		n++
	}
	h.out[n], h.out[n+1] = '\r', '\n'
	return h.write(h.out[:n+2])
}
