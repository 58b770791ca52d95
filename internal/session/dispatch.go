package session

import "github.com/sumpurns/uoproxy/internal/protocol"

// DispatchServerPacket is component F's handler dispatch for the
// server-link direction of the data flow: apply the decoded packet to
// the world mirror (or, for a walk ack/cancel, the walk state
// machine), then fan it out to the attached clients it concerns. A
// packet shape the mirror doesn't recognize is forwarded unchanged,
// matching the pass-through-over-correctness policy applied elsewhere
// to protocol desynchronization.
func (c *Connection) DispatchServerPacket(pkt any) error {
	switch p := pkt.(type) {
	case *protocol.Start:
		c.World.SetStart(p)
		c.InGame = true
		c.Broadcast(p)
	case *protocol.MapChange:
		c.World.SetMapChange(p)
		c.Broadcast(p)
	case *protocol.MapPatches:
		c.World.SetMapPatches(p)
		c.Broadcast(p)
	case *protocol.Season:
		c.World.SetSeason(p)
		c.Broadcast(p)
	case *protocol.GlobalLightLevel:
		c.World.SetGlobalLightLevel(p)
		c.Broadcast(p)
	case *protocol.PersonalLightLevel:
		c.World.SetPersonalLightLevel(p)
		c.Broadcast(p)
	case *protocol.WarMode:
		c.World.SetWarMode(p)
		c.Broadcast(p)
	case *protocol.Target:
		c.World.SetTarget(p)
		c.Broadcast(p)

	case *protocol.WorldItemV6:
		c.World.WorldItem(p)
		c.Broadcast(p)
	case *protocol.GroundItem:
		c.World.WorldItem7(p)
		v6 := protocol.WorldItemV6{Serial: p.Serial, Item: *p}
		c.BroadcastDivert(&v6, p, protocol.V7)

	case *protocol.Equip:
		c.World.Equip(p)
		c.Broadcast(p)

	case *protocol.ContainerOpen:
		c.World.ContainerOpen(p)
		c.Broadcast(p)
	case *protocol.ContainerOpen7:
		c.World.ContainerOpen7(p)
		old := protocol.ReduceContainerOpen7(p)
		c.BroadcastDivert(&old, p, protocol.V7)
	case *protocol.ContainerUpdate:
		c.World.ContainerUpdate(p)
		c.Broadcast(p)
	case *protocol.ContainerContent:
		c.World.ContainerContent(p)
		c.Broadcast(p)

	case *protocol.MobileIncoming:
		c.World.MobileIncoming(p)
		c.Broadcast(p)
	case *protocol.MobileStatus:
		c.World.MobileStatus(p)
		c.Broadcast(p)
	case *protocol.MobileUpdate:
		c.World.MobileUpdatePacket(p)
		c.Broadcast(p)
	case *protocol.MobileMoving:
		c.World.MobileMoving(p)
		c.Broadcast(p)
	case *protocol.ZoneChange:
		c.World.ZoneChange(p)
		c.Broadcast(p)

	case *protocol.Remove:
		c.World.RemoveSerial(p.Serial)
		c.Broadcast(p)

	case *protocol.WalkAck:
		return c.HandleWalkAck(p)
	case *protocol.WalkCancel:
		return c.HandleWalkCancel(p)

	default:
		c.Broadcast(p)
	}
	return nil
}

// DispatchClientPacket is component F's dispatch for the client
// direction: a walk request is routed through the walk state
// machine; everything else passes straight through to the upstream
// link, per spec's packet vocabulary note that only walk is consumed
// on this side. A zombified client's packets are dropped, matching
// the walk-request edge case applied uniformly here.
func (c *Connection) DispatchClientPacket(upstream ServerSender, client *AttachedClient, pkt any) error {
	if client.Zombie() || upstream == nil {
		return nil
	}
	switch p := pkt.(type) {
	case *protocol.Walk:
		return c.HandleWalkRequest(upstream, client, p)
	default:
		return upstream.SendPacket(p)
	}
}
