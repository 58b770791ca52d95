package session

import "github.com/sumpurns/uoproxy/internal/protocol"

// ServerSender is the external collaborator that writes a decoded
// packet to the upstream server link.
type ServerSender interface {
	SendPacket(p any) error
}

// HandleWalkRequest routes a walk request from an attached client
// through the walk state machine: either forwarded upstream with a
// server-assigned sequence, or rejected straight back to the
// requester. A walk request from an already-zombified client is
// dropped outright: it must never adopt the walker slot or advance
// seqNext.
func (c *Connection) HandleWalkRequest(upstream ServerSender, client *AttachedClient, p *protocol.Walk) error {
	if client.Zombie() {
		return nil
	}
	res := c.Walk.Request(client, p)
	if res.Reject != nil {
		return client.Sender.SendPacket(res.Reject)
	}
	return upstream.SendPacket(res.Forward)
}

// HandleWalkAck applies a server walk-ack to the walk state machine
// and, if it matched the queue, forwards it to the walking client
// with that client's original sequence restored. A desynchronized ack
// is logged internally by the walk state machine and otherwise
// ignored here, per the pass-through-over-correctness policy.
func (c *Connection) HandleWalkAck(p *protocol.WalkAck) error {
	res := c.Walk.Ack(p)
	if res.Desync || res.Client == nil {
		return nil
	}
	client, ok := res.Client.(*AttachedClient)
	if !ok {
		return nil
	}
	return client.Sender.SendPacket(res.ToClient)
}

// HandleWalkCancel applies a server walk-cancel and, if it matched a
// queued entry, forwards it to the walking client with that client's
// original sequence restored.
func (c *Connection) HandleWalkCancel(p *protocol.WalkCancel) error {
	res := c.Walk.Cancel(p)
	if res.Desync || res.Client == nil {
		return nil
	}
	client, ok := res.Client.(*AttachedClient)
	if !ok {
		return nil
	}
	return client.Sender.SendPacket(res.ToClient)
}
