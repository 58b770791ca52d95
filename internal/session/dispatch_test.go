package session

import (
	"testing"

	"github.com/sumpurns/uoproxy/internal/protocol"
)

func TestDispatchServerPacketAppliesAndBroadcasts(t *testing.T) {
	c := New(false, false, nil)
	sender := &recordingSender{failAt: -1}
	client := NewAttachedClient(sender)
	c.Attach(client)

	if err := c.DispatchServerPacket(&protocol.MobileIncoming{Serial: 1, X: 5, Y: 5}); err != nil {
		t.Fatalf("DispatchServerPacket: %v", err)
	}

	if _, ok := c.World.Mobiles.Find(1); !ok {
		t.Fatal("mobile_incoming must be applied to the world mirror")
	}
	if len(sender.packets) != 1 {
		t.Fatalf("attached client got %d packets, want 1", len(sender.packets))
	}
}

func TestDispatchServerPacketDivertsGroundItem(t *testing.T) {
	c := New(false, false, nil)
	v6 := NewAttachedClient(&recordingSender{version: protocol.V6, failAt: -1})
	v7 := NewAttachedClient(&recordingSender{version: protocol.V7, failAt: -1})
	c.Attach(v6)
	c.Attach(v7)

	if err := c.DispatchServerPacket(&protocol.GroundItem{Serial: 0x40000001}); err != nil {
		t.Fatalf("DispatchServerPacket: %v", err)
	}

	v6Packets := v6.Sender.(*recordingSender).packets
	v7Packets := v7.Sender.(*recordingSender).packets
	if _, ok := v6Packets[0].(*protocol.WorldItemV6); !ok {
		t.Fatalf("v6 client got %#v, want *protocol.WorldItemV6", v6Packets[0])
	}
	if _, ok := v7Packets[0].(*protocol.GroundItem); !ok {
		t.Fatalf("v7 client got %#v, want *protocol.GroundItem", v7Packets[0])
	}
}

func TestDispatchServerPacketWalkAckGoesOnlyToWalkingClient(t *testing.T) {
	c := New(false, false, nil)
	walker := NewAttachedClient(&recordingSender{failAt: -1})
	bystander := NewAttachedClient(&recordingSender{failAt: -1})
	c.Attach(walker)
	c.Attach(bystander)

	upstream := &recordingSender{failAt: -1}
	if err := c.DispatchClientPacket(upstream, walker, &protocol.Walk{Seq: 0}); err != nil {
		t.Fatalf("DispatchClientPacket: %v", err)
	}
	forwarded := upstream.packets[0].(*protocol.Walk)

	if err := c.DispatchServerPacket(&protocol.WalkAck{Seq: forwarded.Seq, Notoriety: 1}); err != nil {
		t.Fatalf("DispatchServerPacket: %v", err)
	}

	if got := len(walker.Sender.(*recordingSender).packets); got != 1 {
		t.Fatalf("walking client got %d packets, want 1", got)
	}
	if got := len(bystander.Sender.(*recordingSender).packets); got != 0 {
		t.Fatalf("bystander got %d packets, want 0", got)
	}
}

func TestDispatchClientPacketRoutesWalkAndForwardsOthers(t *testing.T) {
	c := New(false, false, nil)
	client := NewAttachedClient(&recordingSender{failAt: -1})
	c.Attach(client)
	upstream := &recordingSender{failAt: -1}

	if err := c.DispatchClientPacket(upstream, client, &protocol.Walk{Seq: 0}); err != nil {
		t.Fatalf("DispatchClientPacket(walk): %v", err)
	}
	if _, ok := upstream.packets[0].(*protocol.Walk); !ok {
		t.Fatalf("walk request must reach upstream as a walk packet, got %#v", upstream.packets[0])
	}

	if err := c.DispatchClientPacket(upstream, client, &protocol.Speak{Text: "hi"}); err != nil {
		t.Fatalf("DispatchClientPacket(speak): %v", err)
	}
	if _, ok := upstream.packets[1].(*protocol.Speak); !ok {
		t.Fatalf("non-walk packet must pass through unchanged, got %#v", upstream.packets[1])
	}
}

func TestDispatchClientPacketDropsZombieClient(t *testing.T) {
	c := New(false, false, nil)
	client := NewAttachedClient(&recordingSender{failAt: -1})
	c.Attach(client)
	c.Zombify(client)
	upstream := &recordingSender{failAt: -1}

	if err := c.DispatchClientPacket(upstream, client, &protocol.Speak{Text: "hi"}); err != nil {
		t.Fatalf("DispatchClientPacket: %v", err)
	}
	if len(upstream.packets) != 0 {
		t.Fatalf("zombified client's packet must be dropped, got %d forwarded", len(upstream.packets))
	}
}
