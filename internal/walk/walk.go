// Package walk implements the lock-step walk-request state machine:
// queueing, sequence assignment, ACK/reject correlation against the
// upstream server, and rollback of the world mirror on rejection.
package walk

import (
	"github.com/sumpurns/uoproxy/internal/protocol"
	"github.com/sumpurns/uoproxy/internal/world"
)

// MaxQueue bounds how many walk requests may be in flight to the
// server at once for a single connection.
const MaxQueue = 4

// Logger is the minimal logging contract the walk state machine
// needs, matching world.Logger so both can share one implementation.
type Logger interface {
	Logf(verbosity int, format string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Logf(int, string, ...any) {}

type entry struct {
	packet    protocol.Walk
	serverSeq uint8
	x, y      uint16
	dir       protocol.Direction
}

// State is one connection's walk state machine. Only one attached
// client — the "walking client" — may have walk requests in flight at
// a time; its identity is held as a weak (identity-only) reference
// that must be cleared by ServerRemoved when that client detaches, so
// a later lookup never resolves a dangling client.
type State struct {
	world *world.Mirror
	log   Logger

	server  any
	queue   []entry
	seqNext uint8
}

// New returns an idle walk state machine bound to the given world
// mirror, which Ack and Cancel apply rollback/advance to.
func New(w *world.Mirror, log Logger) *State {
	if log == nil {
		log = nopLogger{}
	}
	return &State{world: w, log: log, seqNext: 1}
}

// QueueSize reports how many walk requests are currently in flight to
// the server.
func (s *State) QueueSize() int { return len(s.queue) }

// Server reports the current walking client, or nil if none.
func (s *State) Server() any { return s.server }

// nextSeq assigns the next server-bound sequence number, skipping the
// reserved value 0 on wrap.
func (s *State) nextSeq() uint8 {
	seq := s.seqNext
	if s.seqNext == 255 {
		s.seqNext = 1
	} else {
		s.seqNext++
	}
	return seq
}

func (s *State) rejectAt(clientSeq uint8) *protocol.WalkCancel {
	return &protocol.WalkCancel{
		Seq:       clientSeq,
		X:         s.world.Start.X,
		Y:         s.world.Start.Y,
		Direction: s.world.Start.Direction,
	}
}

// RequestResult is the outcome of Request: exactly one of Forward or
// Reject is set.
type RequestResult struct {
	// Forward, if non-nil, must be sent upstream to the server.
	Forward *protocol.Walk
	// Reject, if non-nil, must be sent back to the requesting client
	// instead of being forwarded.
	Reject *protocol.WalkCancel
}

// Request queues a walk request from client. If no client currently
// owns the queue, client adopts it. A request from any other client,
// or one that arrives while the queue is full, is rejected back to
// the requester with a synthetic walk-cancel echoing the world
// mirror's current known position; seqNext is not advanced in that
// case.
func (s *State) Request(client any, p *protocol.Walk) RequestResult {
	if s.server == nil {
		s.server = client
	}
	if client != s.server {
		return RequestResult{Reject: s.rejectAt(p.Seq)}
	}
	if len(s.queue) >= MaxQueue {
		return RequestResult{Reject: s.rejectAt(p.Seq)}
	}

	baseX, baseY := s.world.Start.X, s.world.Start.Y
	if n := len(s.queue); n > 0 {
		baseX, baseY = s.queue[n-1].x, s.queue[n-1].y
	}
	x, y := protocol.Step(baseX, baseY, p.Direction)

	seq := s.nextSeq()
	s.queue = append(s.queue, entry{packet: *p, serverSeq: seq, x: x, y: y, dir: p.Direction})

	return RequestResult{Forward: &protocol.Walk{Direction: p.Direction, Seq: seq}}
}

// AckResult is the outcome of Ack.
type AckResult struct {
	// Desync is true when the server's ack didn't match the head of
	// the queue; the caller should log and pass the packet through
	// unchanged rather than treat it as fatal.
	Desync bool
	// ToClient, when Desync is false, is the walk-ack to deliver to
	// the walking client, with its own original sequence restored.
	ToClient *protocol.WalkAck
	// Client is the walking client the ack should be delivered to.
	Client any
}

// Ack applies a server acknowledgement. The head of the queue must
// match the acknowledged sequence; on match, the world mirror is
// advanced to the predicted post-step position *before* the ack is
// handed back to the caller for delivery to the walking client.
func (s *State) Ack(p *protocol.WalkAck) AckResult {
	if len(s.queue) == 0 || s.queue[0].serverSeq != p.Seq {
		s.log.Logf(1, "walk ack seq %d does not match queue head", p.Seq)
		return AckResult{Desync: true}
	}

	head := s.queue[0]
	s.queue = s.queue[1:]

	s.world.Walked(head.x, head.y, head.dir, p.Notoriety)

	return AckResult{
		Client:   s.server,
		ToClient: &protocol.WalkAck{Seq: head.packet.Seq, Notoriety: p.Notoriety},
	}
}

// CancelResult is the outcome of Cancel.
type CancelResult struct {
	Desync   bool
	ToClient *protocol.WalkCancel
	Client   any
}

// Cancel applies a server rejection of a specific sequence. The
// rejected entry and every entry queued after it are dropped, since
// their predicted coordinates chained off the now-invalid step. The
// world mirror snaps back to the server's authoritative position
// before the cancel is handed back to the caller for delivery.
func (s *State) Cancel(p *protocol.WalkCancel) CancelResult {
	idx := -1
	for i, e := range s.queue {
		if e.serverSeq == p.Seq {
			idx = i
			break
		}
	}
	if idx == -1 {
		s.log.Logf(1, "walk cancel seq %d not found in queue", p.Seq)
		return CancelResult{Desync: true}
	}

	rejected := s.queue[idx]
	s.queue = s.queue[:idx]

	s.world.WalkCancel(p.X, p.Y, p.Direction)

	return CancelResult{
		Client:   s.server,
		ToClient: &protocol.WalkCancel{Seq: rejected.packet.Seq, X: p.X, Y: p.Y, Direction: p.Direction},
	}
}

// ServerRemoved clears the walking-client reference when client
// detaches while holding the queue. seqNext is not reset: the
// upstream server's sequence space continues regardless of which
// attached client is driving it.
func (s *State) ServerRemoved(client any) {
	if s.server == client {
		s.server = nil
		s.queue = nil
	}
}
