// Package artnet builds and parses Art-Net ArtDMX packets and maps RGB pixels onto
// DMX universes.
package artnet

import (
	"bytes"
	"encoding/binary"
	"errors"
)

const (
	// OpCodeDMX is the Art-Net operation code for DMX data.
	OpCodeDMX uint16 = 0x5000
	// ProtocolVersion is the Art-Net protocol version.
	ProtocolVersion uint16 = 14
	// DMXDataLength is the number of DMX channels per universe.
	DMXDataLength uint16 = 512
	// HeaderSize is the size of the ArtDMX header in front of the channel data.
	HeaderSize = 18
	// PacketSize is the total size of an Art-Net DMX packet.
	PacketSize = HeaderSize + DMXDataLength
	// DefaultPort is the standard Art-Net UDP port.
	DefaultPort = 6454

	// ChannelsPerPixel is the number of DMX channels of one RGB pixel.
	ChannelsPerPixel = 3
	// PixelsPerUniverse is how many whole RGB pixels fit in one universe.
	PixelsPerUniverse = int(DMXDataLength) / ChannelsPerPixel
)

// ArtNetID is the Art-Net packet identifier.
var ArtNetID = []byte{'A', 'r', 't', '-', 'N', 'e', 't', 0x00}

// ErrNotArtDMX is returned by ParseDMXPacket for anything but an ArtDMX packet.
var ErrNotArtDMX = errors.New("artnet: not an ArtDMX packet")

// BuildDMXPacket creates an Art-Net DMX packet for the specified universe.
// Universe is 1-based as used in the application; on the wire it is 0-based.
// Channels shorter than 512 bytes are zero padded.
// Sequence should increment for each packet (wrapping at 255) so receivers can
// detect out-of-order UDP packets.
func BuildDMXPacket(universe int, channels []byte, sequence byte) []byte {
	packet := make([]byte, PacketSize)

	copy(packet[0:8], ArtNetID)                                      // ID: "Art-Net\0"
	binary.LittleEndian.PutUint16(packet[8:10], OpCodeDMX)           // OpCode
	binary.BigEndian.PutUint16(packet[10:12], ProtocolVersion)       // Protocol version
	packet[12] = sequence                                            // Sequence
	packet[13] = 0                                                   // Physical input port
	binary.LittleEndian.PutUint16(packet[14:16], uint16(universe-1)) // Universe, 0-based
	binary.BigEndian.PutUint16(packet[16:18], DMXDataLength)         // Data length

	n := min(len(channels), int(DMXDataLength))
	copy(packet[HeaderSize:HeaderSize+n], channels[:n])

	return packet
}

// DMXPacket is a decoded ArtDMX packet.
type DMXPacket struct {
	Universe int // 1-based
	Sequence byte
	Data     []byte
}

// ParseDMXPacket decodes an ArtDMX packet.
func ParseDMXPacket(packet []byte) (DMXPacket, error) {
	if len(packet) < HeaderSize || !bytes.Equal(packet[0:8], ArtNetID) {
		return DMXPacket{}, ErrNotArtDMX
	}
	if binary.LittleEndian.Uint16(packet[8:10]) != OpCodeDMX {
		return DMXPacket{}, ErrNotArtDMX
	}

	length := int(binary.BigEndian.Uint16(packet[16:18]))
	if length > len(packet)-HeaderSize {
		return DMXPacket{}, errors.New("artnet: truncated ArtDMX packet")
	}

	data := make([]byte, length)
	copy(data, packet[HeaderSize:HeaderSize+length])
	return DMXPacket{
		Universe: int(binary.LittleEndian.Uint16(packet[14:16])) + 1,
		Sequence: packet[12],
		Data:     data,
	}, nil
}

// UniverseCount returns the number of universes needed for the given number of pixels.
// Pixels never straddle two universes.
func UniverseCount(pixels int) int {
	if pixels <= 0 {
		return 0
	}
	return (pixels + PixelsPerUniverse - 1) / PixelsPerUniverse
}

// PixelAddress returns the 0-based universe offset and the 0-based channel of the
// red component of a pixel.
func PixelAddress(pixel int) (universe, channel int) {
	return pixel / PixelsPerUniverse, (pixel % PixelsPerUniverse) * ChannelsPerPixel
}
