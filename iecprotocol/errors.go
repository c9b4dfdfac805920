package iecprotocol

import (
	"errors"
	"fmt"
)

// Sentinel errors for the host link.
var (
	// ErrTimeout indicates the host service did not answer in time.
	ErrTimeout = errors.New("host link timed out")

	// ErrBusReset indicates the RESET line was asserted during a wait.
	ErrBusReset = errors.New("bus reset")

	// ErrLinkClosed indicates the host link reached end of input.
	ErrLinkClosed = errors.New("host link closed")

	// ErrOutOfSync indicates an expected sync marker never arrived.
	ErrOutOfSync = errors.New("response not in sync")

	// ErrMalformedReply indicates a reply that did not fit its frame.
	ErrMalformedReply = errors.New("malformed reply")

	// ErrEmptyFile indicates the host service served a file with no data.
	ErrEmptyFile = errors.New("empty file")
)

// ShortReadError reports fewer octets than a frame declared.
type ShortReadError struct {
	Op   string
	Want int
	Got  int
	Err  error
}

// Error implements the error interface.
func (e *ShortReadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: expected %d octets, got %d: %v", e.Op, e.Want, e.Got, e.Err)
	}
	return fmt.Sprintf("%s: expected %d octets, got %d", e.Op, e.Want, e.Got)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *ShortReadError) Unwrap() error {
	return e.Err
}

// SendError reports that the host computer stopped accepting octets.
type SendError struct {
	Op   string
	Sent int
}

// Error implements the error interface.
func (e *SendError) Error() string {
	return fmt.Sprintf("%s: bus send failed after %d octets", e.Op, e.Sent)
}

// UnexpectedReplyError reports a reply marker the protocol does not know.
type UnexpectedReplyError struct {
	Op    string
	Reply byte
}

// Error implements the error interface.
func (e *UnexpectedReplyError) Error() string {
	return fmt.Sprintf("%s: unexpected reply $%02X", e.Op, e.Reply)
}

// Is makes every UnexpectedReplyError match ErrMalformedReply.
func (e *UnexpectedReplyError) Is(target error) bool {
	return target == ErrMalformedReply
}

func newShortReadError(op string, want, got int, err error) error {
	return &ShortReadError{Op: op, Want: want, Got: got, Err: err}
}

func newSyncError(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrOutOfSync, err)
}
