// Package remote receives direct pixel writes from outside: raw UDP datagrams and
// MQTT messages carrying 4-byte (index, r, g, b) records.
package remote

import (
	"github.com/bbernstein/lacylights-strip/internal/services/override"
	"github.com/bbernstein/lacylights-strip/pkg/rgb"
)

// RecordSize is the size of one pixel record on the wire.
const RecordSize = 4

// DefaultPort is the UDP port of the pixel write channel: 'N'<<8 | 'X'.
const DefaultPort = 'N'<<8 | 'X'

// Submitter accepts external writes without blocking.
type Submitter interface {
	Submit(w override.Write) bool
}

// Decode splits a payload into pixel writes. A trailing partial record is dropped.
func Decode(payload []byte) []override.Write {
	n := len(payload) / RecordSize
	writes := make([]override.Write, n)
	for i := range writes {
		rec := payload[i*RecordSize : (i+1)*RecordSize]
		writes[i] = override.Write{
			Pixel: int(rec[0]),
			Color: rgb.Color{R: rec[1], G: rec[2], B: rec[3]},
		}
	}
	return writes
}

// Encode builds a payload from pixel writes. Pixels outside 0..255 cannot be
// addressed on the wire and are skipped.
func Encode(writes []override.Write) []byte {
	buf := make([]byte, 0, len(writes)*RecordSize)
	for _, w := range writes {
		if w.Pixel < 0 || w.Pixel > 0xff {
			continue
		}
		buf = append(buf, byte(w.Pixel), w.Color.R, w.Color.G, w.Color.B)
	}
	return buf
}

// submitAll pushes writes into s and returns how many were dropped.
func submitAll(s Submitter, writes []override.Write) int {
	dropped := 0
	for _, w := range writes {
		if !s.Submit(w) {
			dropped++
		}
	}
	return dropped
}
