// =============================================================================
// mockhost_test.go - Mock Host Service for Testing
// =============================================================================
//
// A small in-memory host service that answers the drive the way the PC-side
// file server does: files by name, a directory listing, SAVE capture and a
// status string. Tests connect to it over net.Pipe, or over a Unix socket
// when the transport code itself is under test.
//
// =============================================================================

package main

import (
	"bufio"
	"net"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/iecbridge/iecbridge/iecbus"
	"github.com/iecbridge/iecbridge/iecprotocol"
)

// mockHostService holds the files the host serves and what it was sent.
type mockHostService struct {
	mu sync.Mutex

	files map[string][]byte
	dir   []string
	saved map[string][]byte

	// per-connection state
	channel byte
	name    string
	data    []byte
	pos     int
	line    int
	lastErr iecprotocol.IOError

	wg sync.WaitGroup
}

func newMockHostService() *mockHostService {
	return &mockHostService{
		files:   map[string][]byte{},
		saved:   map[string][]byte{},
		lastErr: iecprotocol.ErrIntro,
	}
}

// serve answers requests on conn until it is closed.
func (h *mockHostService) serve(conn net.Conn) {
	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		r := bufio.NewReader(conn)
		for {
			req, err := iecprotocol.ReadRequest(r)
			if err != nil {
				return
			}
			if reply := h.handle(req); len(reply) > 0 {
				if _, err := conn.Write(reply); err != nil {
					return
				}
			}
		}
	}()
}

func (h *mockHostService) handle(req iecprotocol.Request) []byte {
	h.mu.Lock()
	defer h.mu.Unlock()

	switch req.Verb {
	case iecprotocol.VerbOpen:
		h.channel, h.name = req.Channel, string(req.Payload)
		switch {
		case h.channel == iecbus.CommandChannel:
			result := h.lastErr
			if h.name != "" {
				// Scratch is the only command understood.
				h.lastErr = iecprotocol.ErrNotImplemented
				if len(h.name) > 3 && h.name[:3] == "S0:" {
					delete(h.files, h.name[3:])
					h.lastErr = iecprotocol.ErrOK
				}
				result = h.lastErr
			}
			return []byte{'>', byte(result), 0}
		case h.channel == iecbus.WritePrgChannel:
			return []byte{'>', byte(iecprotocol.ErrOK), 0}
		case h.name == "$":
			h.line = 0
			return []byte{'>', byte(iecprotocol.OpenDir), 0}
		}
		data, ok := h.files[h.name]
		if !ok {
			h.lastErr = iecprotocol.ErrFileNotFound
			return []byte{'>', byte(iecprotocol.OpenFileErr), 0}
		}
		h.data, h.pos = data, 0
		return []byte{'>', byte(iecprotocol.OpenFile), 0}

	case iecprotocol.VerbStatus:
		return []byte(":" + req.Code.String() + ",00,00\r")

	case iecprotocol.VerbListing:
		if h.line >= len(h.dir) {
			return []byte{'l', 0}
		}
		payload := append([]byte{byte(h.line), 0}, h.dir[h.line]...)
		h.line++
		return append([]byte{'L', byte(len(payload))}, payload...)

	case iecprotocol.VerbSize:
		return []byte{'S', byte(len(h.data) >> 8), byte(len(h.data))}

	case iecprotocol.VerbRead:
		n := min(100, len(h.data)-h.pos)
		chunk := h.data[h.pos : h.pos+n]
		h.pos += n
		marker := byte('B')
		if h.pos == len(h.data) {
			marker = 'E'
		}
		return append([]byte{marker, byte(n)}, chunk...)

	case iecprotocol.VerbWrite:
		h.saved[h.name] = append(h.saved[h.name], req.Payload...)

	case iecprotocol.VerbClose:
		switch {
		case h.channel == iecbus.WritePrgChannel:
			return append([]byte{'n', byte(len(h.name))}, h.name...)
		case h.channel == iecbus.CommandChannel:
			return []byte{'C', iecbus.DefaultDevice}
		default:
			return append([]byte{'N', byte(len(h.name))}, h.name...)
		}
	}
	return nil
}

func (h *mockHostService) savedFile(name string) []byte {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.saved[name]
}

// newTestBench connects a bench to host over net.Pipe.
func newTestBench(t *testing.T, host *mockHostService) *bench {
	t.Helper()

	drive, service := net.Pipe()
	host.serve(service)

	b := newBench(drive, defaultOptions())
	t.Cleanup(func() {
		b.Close()
		service.Close()
		host.wg.Wait()
	})
	return b
}

// listenUnix serves host on a temporary Unix socket and returns its path.
func listenUnix(t *testing.T, host *mockHostService) string {
	t.Helper()

	// Short path: Unix socket paths are limited to about 104 octets.
	dir, err := os.MkdirTemp("/tmp", "iecb-")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })
	path := filepath.Join(dir, "h.sock")

	l, err := net.Listen("unix", path)
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			conn, err := l.Accept()
			if err != nil {
				return
			}
			host.serve(conn)
		}
	}()
	t.Cleanup(func() {
		l.Close()
		<-done
	})
	return path
}

// sampleProgram is 10 PRINT "HI" at $0801.
var sampleProgram = []byte{0x01, 0x08, 0x0B, 0x08, 0x0A, 0x00, 0x99, 0x22, 0x48, 0x49, 0x22, 0x00, 0x00, 0x00}
