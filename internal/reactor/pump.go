package reactor

import (
	"errors"
	"io"

	"github.com/sumpurns/uoproxy/internal/session"
)

// ErrClosed is returned by a PacketSource once its underlying
// transport has gone away, signaling Pump to stop.
var ErrClosed = errors.New("reactor: packet source closed")

// PacketSource is the external collaborator that reads one decoded
// packet at a time from either the upstream server link or one
// attached client's link. It is the read side of the same boundary
// session.ClientSender and session.ServerSender cover for writes.
type PacketSource interface {
	RecvPacket() (any, error)
}

// Pump blocks reading packets from src and enqueues handle against the
// reactor for each one, until src reports ErrClosed, returns io.EOF, or
// any other error occurs. It returns that terminal error. Call it in
// its own goroutine per upstream link or attached client; the reactor
// itself only ever runs handle calls serialized on its own goroutine.
func (r *Reactor) Pump(src PacketSource, handle func(*session.Connection, any)) error {
	for {
		pkt, err := src.RecvPacket()
		if err != nil {
			if errors.Is(err, ErrClosed) || errors.Is(err, io.EOF) {
				return err
			}
			r.log.Logf(1, "reactor: packet source error: %v", err)
			return err
		}
		r.Enqueue(func(c *session.Connection) {
			handle(c, pkt)
		})
	}
}
