// Package serial sends frames to a microcontroller-driven strip over a serial port.
package serial

import (
	"context"
	"io"
	"log"
	"sync"

	"github.com/pkg/errors"
	"go.bug.st/serial"

	"github.com/bbernstein/lacylights-strip/pkg/ledserial"
	"github.com/bbernstein/lacylights-strip/pkg/rgb"
)

// Config holds serial output configuration.
type Config struct {
	Device string
	Baud   int
	Pixels int
}

// DefaultConfig returns a configuration with default values.
func DefaultConfig() Config {
	return Config{
		Device: "/dev/ttyUSB0",
		Baud:   115200,
		Pixels: 50,
	}
}

// Sink writes one set packet per frame. The controller is initialized with the
// pixel count before the first frame.
type Sink struct {
	mu          sync.Mutex
	port        io.ReadWriteCloser
	pixels      int
	buf         []byte
	initialized bool
	closed      bool
}

// Open opens the serial device.
func Open(cfg Config) (*Sink, error) {
	port, err := serial.Open(cfg.Device, &serial.Mode{
		BaudRate: cfg.Baud,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open serial port %s", cfg.Device)
	}
	log.Printf("🔌 Serial output on %s at %d baud", cfg.Device, cfg.Baud)
	return New(port, cfg.Pixels), nil
}

// New creates a sink on an already open port.
func New(port io.ReadWriteCloser, pixels int) *Sink {
	if pixels < 0 {
		pixels = 0
	}
	if pixels > 0xffff {
		pixels = 0xffff
	}
	return &Sink{port: port, pixels: pixels}
}

// Show sends a frame. Frames longer than the strip are cut, shorter ones padded black.
func (s *Sink) Show(frame rgb.Frame) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return errors.New("serial sink closed")
	}

	if !s.initialized {
		if err := ledserial.WriteCommand(s.port, ledserial.Initialize{Pixels: uint16(s.pixels)}); err != nil {
			return errors.Wrap(err, "failed to initialize controller")
		}
		s.initialized = true
	}

	s.buf = s.buf[:0]
	for i := 0; i < s.pixels; i++ {
		c := rgb.Black
		if i < len(frame) {
			c = frame[i]
		}
		s.buf = append(s.buf, c.R, c.G, c.B)
	}

	if err := ledserial.WriteCommand(s.port, ledserial.Set{Pix: s.buf}); err != nil {
		// resend the initialize packet in case the controller was reset
		s.initialized = false
		return err
	}
	return nil
}

// Run logs what the controller reports until ctx is done or the port fails.
func (s *Sink) Run(ctx context.Context) error {
	if p, ok := s.port.(serial.Port); ok {
		if err := p.SetReadTimeout(serial.NoTimeout); err != nil {
			return errors.Wrap(err, "failed to reset read timeout")
		}
	}

	for ctx.Err() == nil {
		p, err := ledserial.ReadReport(s.port)
		if err != nil {
			if errors.Is(err, io.EOF) {
				// short read on timeout
				continue
			}
			if ctx.Err() != nil {
				break
			}
			return errors.Wrap(err, "failed to read controller packet")
		}

		switch p := p.(type) {
		case ledserial.Error:
			log.Printf("⚠️  Controller error: %s", p.Message)
		case ledserial.Log:
			log.Printf("🔌 Controller: %s", p.Message)
		}
	}
	return ctx.Err()
}

// Close clears the strip and closes the port.
func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	_ = ledserial.WriteCommand(s.port, ledserial.Clear{})
	if err := s.port.Close(); err != nil {
		return errors.Wrap(err, "failed to close serial port")
	}
	return nil
}
