package iecprotocol

import (
	"bufio"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/iecbridge/iecbridge/iecbus"
	log "github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
)

// mockHost is the host-service end of a net.Pipe. Every decoded request
// is passed to handler, recorded, and the handler's reply written back.
type mockHost struct {
	conn    net.Conn
	handler func(req Request) []byte

	mu       sync.Mutex
	requests []Request

	wg sync.WaitGroup
}

// testConfig returns timings short enough for tests and a logger whose
// entries can be inspected.
func testConfig(t *testing.T) (Config, *logtest.Hook) {
	t.Helper()
	logger, hook := logtest.NewNullLogger()
	logger.SetLevel(log.DebugLevel)
	return Config{
		ReadTimeout:  200 * time.Millisecond,
		PollInterval: 2 * time.Millisecond,
		Logger:       logger,
	}, hook
}

// startMockHost connects a HostLink to a mock host service. A nil handler
// never replies. Both ends are closed when the test finishes.
func startMockHost(t *testing.T, cfg Config, handler func(req Request) []byte) (*HostLink, *mockHost) {
	t.Helper()

	drive, host := net.Pipe()
	if handler == nil {
		handler = func(Request) []byte { return nil }
	}
	mh := &mockHost{conn: host, handler: handler}

	mh.wg.Add(1)
	go mh.serve()

	link := NewHostLink(drive, cfg)
	t.Cleanup(func() {
		link.Close()
		host.Close()
		mh.wg.Wait()
	})
	return link, mh
}

func (mh *mockHost) serve() {
	defer mh.wg.Done()

	r := bufio.NewReader(mh.conn)
	for {
		req, err := ReadRequest(r)
		if err != nil {
			return
		}
		reply := mh.handler(req)
		mh.mu.Lock()
		mh.requests = append(mh.requests, req)
		mh.mu.Unlock()

		if len(reply) > 0 {
			if _, err := mh.conn.Write(reply); err != nil {
				return
			}
		}
	}
}

// write sends octets to the drive unprompted.
func (mh *mockHost) write(t *testing.T, b []byte) {
	t.Helper()
	if _, err := mh.conn.Write(b); err != nil {
		t.Fatalf("host write: %v", err)
	}
}

// Requests returns a snapshot of everything received so far.
func (mh *mockHost) Requests() []Request {
	mh.mu.Lock()
	defer mh.mu.Unlock()
	return append([]Request(nil), mh.requests...)
}

// Verbs returns the verbs received so far, in order.
func (mh *mockHost) Verbs() string {
	var b []byte
	for _, r := range mh.Requests() {
		b = append(b, r.Verb)
	}
	return string(b)
}

// waitRequests waits until at least n requests arrived.
func (mh *mockHost) waitRequests(t *testing.T, n int) []Request {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for {
		reqs := mh.Requests()
		if len(reqs) >= n {
			return reqs
		}
		if time.Now().After(deadline) {
			t.Fatalf("got %d requests (%q), want %d", len(reqs), mh.Verbs(), n)
		}
		time.Sleep(time.Millisecond)
	}
}

// fakeHost is a small host service with in-memory files, the way a
// PC-side server would answer the drive.
type fakeHost struct {
	mu sync.Mutex

	files  map[string][]byte
	dir    [][]byte
	chunk  int  // R buffer size
	padEnd bool // finish files with an empty E buffer
	refuse bool // refuse SAVE
	result IOError
	device byte

	channel  byte
	name     string
	data     []byte
	pos      int
	line     int
	saved    map[string][]byte
	commands []string
}

func newFakeHost() *fakeHost {
	return &fakeHost{
		files:  map[string][]byte{},
		chunk:  64,
		device: iecbus.DefaultDevice,
		saved:  map[string][]byte{},
	}
}

// basicPayload is a listing line as the host service sends it: line
// number, low octet first, then the text.
func basicPayload(number uint16, text string) []byte {
	return append([]byte{byte(number), byte(number >> 8)}, text...)
}

func (h *fakeHost) handle(req Request) []byte {
	h.mu.Lock()
	defer h.mu.Unlock()

	switch req.Verb {
	case VerbOpen:
		h.channel, h.name = req.Channel, string(req.Payload)
		var result byte
		switch h.channel {
		case iecbus.CommandChannel:
			if h.name != "" {
				h.commands = append(h.commands, h.name)
			}
			result = byte(h.result)
		case iecbus.WritePrgChannel:
			result = byte(ErrOK)
			if h.refuse {
				result = byte(ErrWriteProtectOn)
			}
		default:
			switch data, ok := h.files[h.name]; {
			case h.name == "$":
				h.line = 0
				result = byte(OpenDir)
			case ok:
				h.data, h.pos = data, 0
				result = byte(OpenFile)
			default:
				result = byte(OpenFileErr)
			}
		}
		return []byte{ReplySync, result, 0}

	case VerbStatus:
		reply := append([]byte{StatusSync}, req.Code.String()+",00,00"...)
		return append(reply, StatusEnd)

	case VerbListing:
		if h.line >= len(h.dir) {
			return []byte{ListingLast, 0}
		}
		line := h.dir[h.line]
		h.line++
		return append([]byte{ListingMore, byte(len(line))}, line...)

	case VerbSize:
		return []byte{VerbSize, byte(len(h.data) >> 8), byte(len(h.data))}

	case VerbRead:
		n := min(h.chunk, len(h.data)-h.pos)
		buf := h.data[h.pos : h.pos+n]
		h.pos += n
		marker := byte(BufferEnd)
		if h.pos < len(h.data) || (h.padEnd && n > 0) {
			marker = BufferMore
		}
		return append([]byte{marker, byte(n)}, buf...)

	case VerbWrite:
		h.saved[h.name] = append(h.saved[h.name], req.Payload...)

	case VerbClose:
		defer func() { h.channel, h.name = 0, "" }()
		switch {
		case h.channel == iecbus.WritePrgChannel:
			return append([]byte{CloseSaved, byte(len(h.name))}, h.name...)
		case h.channel != iecbus.CommandChannel && h.name != "":
			return append([]byte{CloseLoaded, byte(len(h.name))}, h.name...)
		default:
			return []byte{CloseDevice, h.device}
		}
	}
	return nil
}

func (h *fakeHost) savedFile(name string) []byte {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.saved[name]
}

// newTestDrive wires a dispatcher to a VirtualBus and a fake host service.
func newTestDrive(t *testing.T, host *fakeHost) (*Interface, *iecbus.VirtualBus, *mockHost, *logtest.Hook) {
	t.Helper()
	cfg, hook := testConfig(t)
	return newTestDriveWith(t, cfg, host.handle, hook)
}

func newTestDriveWith(t *testing.T, cfg Config, handler func(Request) []byte, hook *logtest.Hook) (*Interface, *iecbus.VirtualBus, *mockHost, *logtest.Hook) {
	t.Helper()
	bus := iecbus.NewVirtualBus(iecbus.DefaultDevice)
	cfg.Interrupts = bus
	link, mh := startMockHost(t, cfg, handler)
	return New(bus, link, cfg), bus, mh, hook
}

// octetValues strips the EOI flags.
func octetValues(octets []iecbus.Octet) []byte {
	out := make([]byte, len(octets))
	for i, o := range octets {
		out[i] = o.Value
	}
	return out
}

// eoiPositions returns the indexes of octets sent with EOI.
func eoiPositions(octets []iecbus.Octet) []int {
	var pos []int
	for i, o := range octets {
		if o.EOI {
			pos = append(pos, i)
		}
	}
	return pos
}
