package session

import "github.com/sumpurns/uoproxy/internal/protocol"

// Broadcast hands p to every attached client's Sender, in list order.
// Zombified clients are skipped. A per-client send failure zombifies
// that client and is logged; it never aborts the fan-out to the rest
// of the list.
func (c *Connection) Broadcast(p any) {
	c.broadcastExcept(p, nil)
}

// BroadcastExcept is Broadcast, skipping one client — used to avoid
// echoing a client's own packet back to it.
func (c *Connection) BroadcastExcept(p any, excluded *AttachedClient) {
	c.broadcastExcept(p, excluded)
}

func (c *Connection) broadcastExcept(p any, excluded *AttachedClient) {
	for _, cl := range c.clients {
		if cl == excluded || cl.Zombie() {
			continue
		}
		if err := cl.Sender.SendPacket(p); err != nil {
			c.log.Logf(1, "connection %s: broadcast to %s failed: %v", c.ID, cl.ID, err)
			c.Zombify(cl)
		}
	}
}

// BroadcastDivert sends oldPkt to every attached client whose
// negotiated dialect differs from newProtocol, and newPkt to every
// client matching it. Used when a packet exists in two on-wire shapes
// (e.g. container_open vs container_open_7) and the right one has
// already been chosen per dialect, rather than produced by per-send
// translation.
func (c *Connection) BroadcastDivert(oldPkt, newPkt any, newProtocol protocol.Version) {
	for _, cl := range c.clients {
		if cl.Zombie() {
			continue
		}
		pkt := oldPkt
		if cl.Sender.Version() == newProtocol {
			pkt = newPkt
		}
		if err := cl.Sender.SendPacket(pkt); err != nil {
			c.log.Logf(1, "connection %s: diverted broadcast to %s failed: %v", c.ID, cl.ID, err)
			c.Zombify(cl)
		}
	}
}
