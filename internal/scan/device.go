package scan

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
)

// DeviceSource reads decoded payloads from a line-oriented scanner device
// (USB keyboard-wedge and serial QR scanners emit one line per decode).
// The capture Config is accepted for interface symmetry but the hardware
// decodes with its own settings.
//
// Start/Stop may alternate: each Start reopens the device.
type DeviceSource struct {
	path  string
	codes chan string

	mu   sync.Mutex
	file *os.File
}

// NewDeviceSource points at a scanner device path such as /dev/ttyACM0.
func NewDeviceSource(path string, _ Config) *DeviceSource {
	return &DeviceSource{path: path, codes: make(chan string)}
}

// Start opens the device and begins delivering trimmed non-empty lines.
func (d *DeviceSource) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.file != nil {
		return nil
	}
	f, err := os.Open(d.path)
	if err != nil {
		return fmt.Errorf("scan: open device %s: %w", d.path, err)
	}
	d.file = f
	go d.read(ctx, f)
	return nil
}

func (d *DeviceSource) read(ctx context.Context, f *os.File) {
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		code := strings.TrimSpace(scanner.Text())
		if code == "" {
			continue
		}
		select {
		case d.codes <- code:
		case <-ctx.Done():
			return
		}
	}
	// Read errors (device unplugged, file closed by Stop) end the feed
	// silently; the session's inactivity timeout covers the silence.
}

// Stop closes the device, ending the feed until the next Start.
func (d *DeviceSource) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.file != nil {
		_ = d.file.Close()
		d.file = nil
	}
}

// Codes returns the decode stream.
func (d *DeviceSource) Codes() <-chan string { return d.codes }
