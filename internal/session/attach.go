package session

import (
	"github.com/sumpurns/uoproxy/internal/protocol"
	"github.com/sumpurns/uoproxy/internal/world"
)

// Replay synthesizes, from the world mirror, the stream of
// server-origin packets that brings a freshly attached client to
// parity with the live session (4.G). Packets are sent in the order
// the protocol's client state machine expects: the player's own
// identity and surroundings first, then every other mobile and its
// equipment, then ground items, then open containers and their
// contents.
func (c *Connection) Replay(client *AttachedClient) error {
	w := c.World

	if w.HasStart {
		if err := client.Sender.SendPacket(&w.Start); err != nil {
			return err
		}
	}

	if w.HasMapChange {
		if err := client.Sender.SendPacket(&w.MapChange); err != nil {
			return err
		}
	}
	if w.HasMapPatches {
		if err := client.Sender.SendPacket(&w.MapPatches); err != nil {
			return err
		}
	}
	if w.HasSeason {
		if err := client.Sender.SendPacket(&w.Season); err != nil {
			return err
		}
	}

	if w.HasGlobalLightLevel {
		if err := client.Sender.SendPacket(&w.GlobalLightLevel); err != nil {
			return err
		}
	}
	if w.HasPersonalLightLevel {
		if err := client.Sender.SendPacket(&w.PersonalLightLevel); err != nil {
			return err
		}
	}
	if w.HasWarMode {
		if err := client.Sender.SendPacket(&w.WarMode); err != nil {
			return err
		}
	}
	if w.HasTarget {
		if err := client.Sender.SendPacket(&w.Target); err != nil {
			return err
		}
	}

	if w.HasStart {
		if err := client.Sender.SendPacket(&w.MobileUpdate); err != nil {
			return err
		}
		if player, ok := w.Mobiles.Find(w.PlayerSerial()); ok && player.Incoming != nil {
			if err := client.Sender.SendPacket(player.Incoming); err != nil {
				return err
			}
		}
	}

	var replayErr error
	w.Mobiles.Each(func(m *world.Mobile) {
		if replayErr != nil || m.Serial == w.PlayerSerial() || m.Incoming == nil {
			return
		}
		if err := client.Sender.SendPacket(m.Incoming); err != nil {
			replayErr = err
			return
		}
		for _, it := range w.Items.ChildrenOf(m.Serial) {
			if it.Placement != world.PlacementEquipped {
				continue
			}
			if err := client.Sender.SendPacket(&it.Equip); err != nil {
				replayErr = err
				return
			}
		}
	})
	if replayErr != nil {
		return replayErr
	}

	w.Items.Each(func(it *world.Item) {
		if replayErr != nil || it.Placement != world.PlacementGround {
			return
		}
		if err := client.Sender.SendPacket(&it.Ground); err != nil {
			replayErr = err
		}
	})
	if replayErr != nil {
		return replayErr
	}

	w.Items.Each(func(it *world.Item) {
		if replayErr != nil || it.ContainerOpen == nil {
			return
		}
		if err := client.Sender.SendPacket(it.ContainerOpen); err != nil {
			replayErr = err
			return
		}
		for _, child := range w.Items.ChildrenOf(it.Serial) {
			if child.Placement != world.PlacementContainer {
				continue
			}
			if err := client.Sender.SendPacket(&protocol.ContainerUpdate{Item: child.Container}); err != nil {
				replayErr = err
				return
			}
		}
	})
	return replayErr
}
