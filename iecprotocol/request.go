package iecprotocol

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
)

// Request is one drive-to-host frame as the host service sees it.
type Request struct {
	Verb byte

	// Channel is set for O.
	Channel byte
	// Code is set for E.
	Code IOError
	// Severity and Facility are set for D.
	Severity byte
	Facility byte
	// Payload is the text of O, the data of W and the message of D.
	Payload []byte
}

// String formats the request for traces.
func (r Request) String() string {
	switch r.Verb {
	case VerbOpen:
		return fmt.Sprintf("O ch=%d %q", r.Channel, r.Payload)
	case VerbStatus:
		return fmt.Sprintf("E %d", r.Code)
	case VerbWrite:
		return fmt.Sprintf("W %d octets", len(r.Payload))
	case VerbLog:
		return fmt.Sprintf("D %c%c %s", r.Severity, r.Facility, r.Payload)
	default:
		return string(rune(r.Verb))
	}
}

// ReadRequest decodes the next drive request from r.
func ReadRequest(r *bufio.Reader) (Request, error) {
	verb, err := r.ReadByte()
	if err != nil {
		return Request{}, err
	}
	req := Request{Verb: verb}

	switch verb {
	case VerbOpen:
		var hdr [2]byte
		if _, err := io.ReadFull(r, hdr[:]); err != nil {
			return req, fmt.Errorf("open header: %w", err)
		}
		if hdr[0] < openFrameHeader {
			return req, fmt.Errorf("%w: open length %d", ErrMalformedReply, hdr[0])
		}
		req.Channel = hdr[1]
		req.Payload, err = readPayload(r, int(hdr[0])-openFrameHeader)
	case VerbStatus:
		var code byte
		code, err = r.ReadByte()
		req.Code = IOError(code)
	case VerbWrite:
		var n byte
		if n, err = r.ReadByte(); err != nil {
			break
		}
		if n < writeFrameHeader {
			return req, fmt.Errorf("%w: write length %d", ErrMalformedReply, n)
		}
		req.Payload, err = readPayload(r, int(n)-writeFrameHeader)
	case VerbLog:
		var hdr [2]byte
		if _, err = io.ReadFull(r, hdr[:]); err != nil {
			break
		}
		req.Severity, req.Facility = hdr[0], hdr[1]
		var line []byte
		if line, err = r.ReadBytes('\n'); err == nil {
			req.Payload = bytes.TrimRight(line, "\r\n")
		}
	case VerbListing, VerbSize, VerbRead, VerbClose:
	default:
		return req, &UnexpectedReplyError{Op: "request", Reply: verb}
	}
	if err != nil {
		return req, fmt.Errorf("request %c: %w", verb, err)
	}
	return req, nil
}

func readPayload(r io.Reader, n int) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}
