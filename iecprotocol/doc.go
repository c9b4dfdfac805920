// Package iecprotocol implements the drive side of a Commodore serial bus
// to host-service bridge.
//
// A microcontroller sits on the host computer's serial bus and answers as
// a disk drive. It owns no file system: every OPEN, TALK, LISTEN and CLOSE
// addressed to it is translated into short framed requests on a second,
// buffered serial link (the host link) to a program on a PC or phone that
// serves files and directory listings.
//
// # Host Link
//
// Requests are a single verb octet, usually followed by a length octet and
// a payload. Replies are framed the same way:
//
//	Drive -> Host                      Host -> Drive
//	O <len> <chan> <text...>           > <result> <reserved>
//	E <code>                           : <status text> CR
//	L                                  L|l <len> <line...>
//	S                                  S <hi> <lo>
//	R                                  B|E <len> <data...>
//	W <len> <data...>
//	C                                  N|n <len> <name...>  or  C <device>
//	D <sev> <fac> <len> <message...>
//
// # Basic Usage
//
//	link := iecprotocol.NewHostLink(port, iecprotocol.DefaultConfig())
//	defer link.Close()
//
//	drive := iecprotocol.New(bus, link, iecprotocol.DefaultConfig())
//	if err := drive.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
//	    log.Fatal(err)
//	}
//
// # Thread Safety
//
// Interface is not safe for concurrent use: a single goroutine polls it,
// as the firmware's main loop does. HostLink runs its own receive
// goroutine and its send methods may be called from any goroutine.
package iecprotocol
