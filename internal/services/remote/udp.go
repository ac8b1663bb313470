package remote

import (
	"context"
	"log"
	"net"
	"sync/atomic"

	"github.com/pkg/errors"
)

// maxDatagram covers every record of a 256 pixel strip.
const maxDatagram = 256 * RecordSize

// Listener receives pixel writes as UDP datagrams.
type Listener struct {
	conn   net.PacketConn
	target Submitter

	datagrams atomic.Uint64
	records   atomic.Uint64
	dropped   atomic.Uint64
}

// Listen binds the UDP socket. addr is host:port; an empty host listens on all interfaces.
func Listen(addr string, target Submitter) (*Listener, error) {
	conn, err := net.ListenPacket("udp", addr)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to listen on %s", addr)
	}
	return &Listener{conn: conn, target: target}, nil
}

// LocalAddr returns the bound address.
func (l *Listener) LocalAddr() net.Addr {
	return l.conn.LocalAddr()
}

// Run receives datagrams until ctx is done. The socket is closed on return.
func (l *Listener) Run(ctx context.Context) error {
	log.Printf("📡 Pixel write listener on udp %s", l.conn.LocalAddr())

	stop := context.AfterFunc(ctx, func() {
		_ = l.conn.Close()
	})
	defer stop()
	defer func() { _ = l.conn.Close() }()

	buf := make([]byte, maxDatagram)
	for {
		n, _, err := l.conn.ReadFrom(buf)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return errors.Wrap(err, "failed to read datagram")
		}

		writes := Decode(buf[:n])
		l.datagrams.Add(1)
		l.records.Add(uint64(len(writes)))
		if dropped := submitAll(l.target, writes); dropped > 0 {
			l.dropped.Add(uint64(dropped))
		}
	}
}

// Stats returns the number of datagrams and records received and records dropped.
func (l *Listener) Stats() (datagrams, records, dropped uint64) {
	return l.datagrams.Load(), l.records.Load(), l.dropped.Load()
}
