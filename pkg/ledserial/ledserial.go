// Package ledserial implements the packet protocol between the server and a
// microcontroller driving the strip over a serial line.
//
// Every packet is a type byte, a type specific payload and a little-endian CRC-32
// (IEEE) of type and payload.
package ledserial

import (
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
)

// Endianness defines the endianness of the protocol.
var Endianness = binary.LittleEndian

// ErrChecksum is returned when a packet's checksum does not match its contents.
var ErrChecksum = errors.New("ledserial: checksum mismatch")

// CommandType is the type of a packet sent to the controller.
type CommandType uint8

const (
	TypeInitialize CommandType = iota
	TypeClear
	TypeSet
)

// String returns a string representation of the packet type.
func (t CommandType) String() string {
	switch t {
	case TypeInitialize:
		return "initialize"
	case TypeClear:
		return "clear"
	case TypeSet:
		return "set"
	default:
		return fmt.Sprintf("CommandType(%d)", t)
	}
}

// Command is a packet sent to the controller.
type Command interface {
	Type() CommandType
}

// Initialize tells the controller how many pixels the strip has.
type Initialize struct {
	Pixels uint16
}

// Clear turns every pixel off.
type Clear struct{}

// Set sets every pixel; Pix holds R, G, B per pixel.
type Set struct {
	Pix []byte
}

func (Initialize) Type() CommandType { return TypeInitialize }
func (Clear) Type() CommandType      { return TypeClear }
func (Set) Type() CommandType        { return TypeSet }

// ReportType is the type of a packet sent by the controller.
type ReportType uint8

const (
	TypeAck ReportType = iota
	TypeError
	TypeLog
)

// String returns a string representation of the packet type.
func (t ReportType) String() string {
	switch t {
	case TypeAck:
		return "ack"
	case TypeError:
		return "error"
	case TypeLog:
		return "log"
	default:
		return fmt.Sprintf("ReportType(%d)", t)
	}
}

// Report is a packet sent by the controller.
type Report interface {
	Type() ReportType
}

// Ack acknowledges a command.
type Ack struct {
	For CommandType
}

// Error reports a failed command.
type Error struct {
	Message string
}

// Log carries a log line from the controller.
type Log struct {
	Message string
}

func (Ack) Type() ReportType   { return TypeAck }
func (Error) Type() ReportType { return TypeError }
func (Log) Type() ReportType   { return TypeLog }

// AppendCommand appends the encoded command to dst.
func AppendCommand(dst []byte, c Command) ([]byte, error) {
	start := len(dst)
	dst = append(dst, byte(c.Type()))

	switch c := c.(type) {
	case Initialize:
		dst = Endianness.AppendUint16(dst, c.Pixels)
	case Clear:
	case Set:
		if len(c.Pix)%3 != 0 {
			return dst[:start], fmt.Errorf("pixel data length %d is not a multiple of 3", len(c.Pix))
		}
		dst = append(dst, c.Pix...)
	default:
		return dst[:start], fmt.Errorf("unknown command type: %T", c)
	}

	return Endianness.AppendUint32(dst, crc32.ChecksumIEEE(dst[start:])), nil
}

// WriteCommand writes one command in a single Write call.
func WriteCommand(w io.Writer, c Command) error {
	buf, err := AppendCommand(nil, c)
	if err != nil {
		return err
	}
	if _, err := w.Write(buf); err != nil {
		return fmt.Errorf("failed to write %s packet: %w", c.Type(), err)
	}
	return nil
}

// ReadCommand reads one command. pixels is the strip length announced by the last
// Initialize and sizes Set packets.
func ReadCommand(r io.Reader, pixels uint16) (Command, error) {
	hash := crc32.NewIEEE()
	tr := io.TeeReader(r, hash)

	var typ [1]byte
	if _, err := io.ReadFull(tr, typ[:]); err != nil {
		return nil, fmt.Errorf("failed to read packet type: %w", err)
	}

	var c Command
	switch t := CommandType(typ[0]); t {
	case TypeInitialize:
		var p Initialize
		if err := binary.Read(tr, Endianness, &p.Pixels); err != nil {
			return nil, fmt.Errorf("failed to read pixel count: %w", err)
		}
		c = p
	case TypeClear:
		c = Clear{}
	case TypeSet:
		p := Set{Pix: make([]byte, 3*int(pixels))}
		if _, err := io.ReadFull(tr, p.Pix); err != nil {
			return nil, fmt.Errorf("failed to read pixel data: %w", err)
		}
		c = p
	default:
		return nil, fmt.Errorf("unknown packet type: %s", t)
	}

	if err := readChecksum(r, hash.Sum32()); err != nil {
		return nil, err
	}
	return c, nil
}

// WriteReport writes one report in a single Write call.
func WriteReport(w io.Writer, p Report) error {
	buf := []byte{byte(p.Type())}

	switch p := p.(type) {
	case Ack:
		buf = append(buf, byte(p.For))
	case Error:
		buf = appendMessage(buf, p.Message)
	case Log:
		buf = appendMessage(buf, p.Message)
	default:
		return fmt.Errorf("unknown report type: %T", p)
	}

	buf = Endianness.AppendUint32(buf, crc32.ChecksumIEEE(buf))
	if _, err := w.Write(buf); err != nil {
		return fmt.Errorf("failed to write %s packet: %w", p.Type(), err)
	}
	return nil
}

// ReadReport reads one report.
func ReadReport(r io.Reader) (Report, error) {
	hash := crc32.NewIEEE()
	tr := io.TeeReader(r, hash)

	var typ [1]byte
	if _, err := io.ReadFull(tr, typ[:]); err != nil {
		return nil, fmt.Errorf("failed to read packet type: %w", err)
	}

	var p Report
	switch t := ReportType(typ[0]); t {
	case TypeAck:
		var b [1]byte
		if _, err := io.ReadFull(tr, b[:]); err != nil {
			return nil, fmt.Errorf("failed to read acked type: %w", err)
		}
		p = Ack{For: CommandType(b[0])}
	case TypeError:
		msg, err := readMessage(tr)
		if err != nil {
			return nil, err
		}
		p = Error{Message: msg}
	case TypeLog:
		msg, err := readMessage(tr)
		if err != nil {
			return nil, err
		}
		p = Log{Message: msg}
	default:
		return nil, fmt.Errorf("unknown packet type: %s", t)
	}

	if err := readChecksum(r, hash.Sum32()); err != nil {
		return nil, err
	}
	return p, nil
}

func appendMessage(dst []byte, msg string) []byte {
	if len(msg) > 0xffff {
		msg = msg[:0xffff]
	}
	dst = Endianness.AppendUint16(dst, uint16(len(msg)))
	return append(dst, msg...)
}

func readMessage(r io.Reader) (string, error) {
	var length uint16
	if err := binary.Read(r, Endianness, &length); err != nil {
		return "", fmt.Errorf("failed to read message length: %w", err)
	}
	buf := make([]byte, length)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", fmt.Errorf("failed to read message: %w", err)
	}
	return string(buf), nil
}

func readChecksum(r io.Reader, want uint32) error {
	var got uint32
	if err := binary.Read(r, Endianness, &got); err != nil {
		return fmt.Errorf("failed to read packet checksum: %w", err)
	}
	if got != want {
		return ErrChecksum
	}
	return nil
}
