// =============================================================================
// link.go - Host Link Transport
// =============================================================================
//
// Opens the byte stream the drive uses to reach the host service. On real
// hardware this is the microcontroller's UART; on the bench it is a USB
// serial adapter, or a socket when the host service runs on the same
// machine.
//
// =============================================================================

package main

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/jacobsa/go-serial/serial"
	log "github.com/sirupsen/logrus"
)

const (
	// defaultBaud matches the host service's default line speed.
	defaultBaud = 57600

	// dialTimeout bounds connecting to a socket host service.
	dialTimeout = 4 * time.Second

	// devicePollInterval is how often waitForDevice looks for the port.
	devicePollInterval = 100 * time.Millisecond
)

var errNoTransport = errors.New("no host link: use --port, --socket or --addr")

// openTransport opens the first configured transport: serial port, Unix
// socket, then TCP address.
func openTransport(opts options) (io.ReadWriteCloser, error) {
	switch {
	case opts.port != "":
		if err := waitForDevice(opts.port, opts.wait); err != nil {
			return nil, err
		}
		port, err := serial.Open(serial.OpenOptions{
			PortName:        opts.port,
			BaudRate:        opts.baud,
			DataBits:        8,
			StopBits:        1,
			MinimumReadSize: 1,
		})
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", opts.port, err)
		}
		log.WithFields(log.Fields{"port": opts.port, "baud": opts.baud}).Info("host link open")
		return port, nil

	case opts.socket != "":
		return dial("unix", opts.socket)

	case opts.addr != "":
		return dial("tcp", opts.addr)
	}
	return nil, errNoTransport
}

func dial(network, address string) (io.ReadWriteCloser, error) {
	conn, err := net.DialTimeout(network, address, dialTimeout)
	if err != nil {
		return nil, fmt.Errorf("connect to host service: %w", err)
	}
	log.WithFields(log.Fields{"network": network, "address": address}).Info("host link open")
	return conn, nil
}

// waitForDevice waits up to timeout for path to exist. USB serial adapters
// show up a moment after they are plugged in.
func waitForDevice(path string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		_, err := os.Stat(path)
		if err == nil {
			return nil
		}
		if !errors.Is(err, os.ErrNotExist) || !time.Now().Before(deadline) {
			return fmt.Errorf("serial device %s: %w", path, err)
		}
		time.Sleep(devicePollInterval)
	}
}

// homeDir returns the user's home directory, or "" if unknown.
func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return home
}

// expandHome replaces a leading "~/" with the home directory.
func expandHome(path string) string {
	if len(path) >= 2 && path[:2] == "~/" {
		if home := homeDir(); home != "" {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}
