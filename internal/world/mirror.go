// Package world mirrors the server-side entity state observed on the
// wire: items, mobiles, container trees, and a handful of
// player-centric one-shot packets. Handlers here are idempotent with
// respect to re-delivery of identical packets and never fail; a
// resource-exhaustion condition is logged and the update is dropped,
// leaving prior state intact.
package world

import (
	"github.com/sumpurns/uoproxy/internal/protocol"
	"github.com/sumpurns/uoproxy/internal/serial"
)

// Logger is the minimal logging contract the mirror needs. Verbosity
// follows the project-wide taxonomy: 1 for resource exhaustion and
// protocol desync, 3 for informational warnings.
type Logger interface {
	Logf(verbosity int, format string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Logf(int, string, ...any) {}

// Mirror owns an item table and a mobile table plus the fixed set of
// player-centric last-seen packets, keyed by nothing but their own
// identity: there is exactly one of each.
type Mirror struct {
	log Logger

	Items   *ItemStore
	Mobiles *MobileStore

	Start    protocol.Start
	HasStart bool

	MapChange    protocol.MapChange
	HasMapChange bool

	MapPatches    protocol.MapPatches
	HasMapPatches bool

	Season    protocol.Season
	HasSeason bool

	// MobileUpdate is the player's own cached mobile_update packet,
	// kept coherent with Start by every handler that touches the
	// player's position (invariant 3).
	MobileUpdate protocol.MobileUpdate

	GlobalLightLevel    protocol.GlobalLightLevel
	HasGlobalLightLevel bool

	PersonalLightLevel    protocol.PersonalLightLevel
	HasPersonalLightLevel bool

	WarMode    protocol.WarMode
	HasWarMode bool

	Target    protocol.Target
	HasTarget bool

	sweepEpoch uint64
}

// New returns an empty world mirror. A nil Logger is replaced with a
// no-op one.
func New(log Logger) *Mirror {
	if log == nil {
		log = nopLogger{}
	}
	return &Mirror{
		log:     log,
		Items:   NewItemStore(),
		Mobiles: NewMobileStore(),
	}
}

// Clear discards all observed state, as happens on reconnect (the
// mirror is never persisted across a reconnect).
func (w *Mirror) Clear() {
	*w = *New(w.log)
}

// PlayerSerial reports the local player's mobile serial, as named by
// the cached Start packet.
func (w *Mirror) PlayerSerial() uint32 {
	return w.Start.Serial
}

func (w *Mirror) syncPlayerPosition(body, x, y uint16, z int8, dir protocol.Direction, hue uint16, flags uint8) {
	w.Start.Body = body
	w.Start.X = x
	w.Start.Y = y
	w.Start.Z = int16(z)
	w.Start.Direction = dir
	w.Start.Hue = hue
	w.Start.Flags = flags

	w.MobileUpdate.Body = body
	w.MobileUpdate.Hue = hue
	w.MobileUpdate.Flags = flags
	w.MobileUpdate.X = x
	w.MobileUpdate.Y = y
	w.MobileUpdate.Direction = dir
	w.MobileUpdate.Z = z
}

// SetStart caches the login "you are this mobile" packet. Everything
// the mirror knows about the player is anchored to Start.Serial from
// this point on.
func (w *Mirror) SetStart(p *protocol.Start) {
	w.Start = *p
	w.HasStart = true
}

// SetMapChange, SetMapPatches, SetSeason, SetGlobalLightLevel,
// SetPersonalLightLevel, SetWarMode and SetTarget cache their
// respective one-shot player-centric packets verbatim for replay.

func (w *Mirror) SetMapChange(p *protocol.MapChange) {
	w.MapChange, w.HasMapChange = *p, true
}

func (w *Mirror) SetMapPatches(p *protocol.MapPatches) {
	w.MapPatches, w.HasMapPatches = *p, true
}

func (w *Mirror) SetSeason(p *protocol.Season) {
	w.Season, w.HasSeason = *p, true
}

func (w *Mirror) SetGlobalLightLevel(p *protocol.GlobalLightLevel) {
	w.GlobalLightLevel, w.HasGlobalLightLevel = *p, true
}

func (w *Mirror) SetPersonalLightLevel(p *protocol.PersonalLightLevel) {
	w.PersonalLightLevel, w.HasPersonalLightLevel = *p, true
}

func (w *Mirror) SetWarMode(p *protocol.WarMode) {
	w.WarMode, w.HasWarMode = *p, true
}

func (w *Mirror) SetTarget(p *protocol.Target) {
	w.Target, w.HasTarget = *p, true
}

// WorldItem applies a legacy v6 world-item packet: mask the protocol
// flag bit out of the serial, upsert the item, and store its ground
// placement translated into the canonical v7 shape.
func (w *Mirror) WorldItem(p *protocol.WorldItemV6) {
	serial := p.Serial & 0x7FFF_FFFF
	it := w.Items.Upsert(serial)
	it.Placement = PlacementGround
	it.Ground = protocol.GroundFromV6(p)
	it.Ground.Serial = serial
}

// WorldItem7 applies a canonical v7 world-item packet verbatim.
func (w *Mirror) WorldItem7(p *protocol.GroundItem) {
	it := w.Items.Upsert(p.Serial)
	it.Placement = PlacementGround
	it.Ground = *p
}

// Equip applies an equip packet, placing the named item on a mobile.
func (w *Mirror) Equip(p *protocol.Equip) {
	it := w.Items.Upsert(p.Serial)
	it.Placement = PlacementEquipped
	it.Equip = *p
}

// ContainerOpen caches the verbatim container_open packet for a
// container, keyed by the container's own serial.
func (w *Mirror) ContainerOpen(p *protocol.ContainerOpen) {
	it := w.Items.Upsert(p.Serial)
	cp := *p
	it.ContainerOpen = &cp
}

// ContainerOpen7 reduces the v7 dialect to its v6-shaped base before
// caching it; the v7-specific tail is not part of the mirror.
func (w *Mirror) ContainerOpen7(p *protocol.ContainerOpen7) {
	base := protocol.ReduceContainerOpen7(p)
	w.ContainerOpen(&base)
}

// ContainerUpdate places a single item inside a container.
func (w *Mirror) ContainerUpdate(p *protocol.ContainerUpdate) {
	it := w.Items.Upsert(p.Item.Serial)
	it.Placement = PlacementContainer
	it.Container = p.Item
}

// ContainerContent applies an authoritative snapshot of a single
// container's contents. Every item named in the batch is stamped with
// a fresh sweep epoch; once the batch is applied, any pre-existing
// child of that container absent from the batch is swept away, since
// the batch is authoritative for the container's contents.
func (w *Mirror) ContainerContent(p *protocol.ContainerContent) {
	w.sweepEpoch++
	epoch := w.sweepEpoch

	for _, frag := range p.Items {
		it := w.Items.Upsert(frag.Serial)
		it.Placement = PlacementContainer
		it.Container = frag
		it.SweepEpoch = epoch
	}

	if len(p.Items) != 0 {
		w.Items.SweepChildrenOf(p.Items[0].ParentSerial, epoch)
	}
}

// MobileIncoming applies a full mobile announcement, including its
// packed equipment list.
func (w *Mirror) MobileIncoming(p *protocol.MobileIncoming) {
	if p.Serial == w.Start.Serial {
		w.syncPlayerPosition(p.Body, p.X, p.Y, p.Z, p.Direction, p.Hue, p.Flags)
	}

	m := w.Mobiles.Upsert(p.Serial)
	m.Incoming = p.Clone()

	for _, frag := range p.Items {
		if frag.Serial == 0 {
			break
		}
		eq := protocol.Equip{
			Serial:       frag.Serial,
			ParentSerial: p.Serial,
			ItemID:       frag.ItemID & 0x3FFF,
			Layer:        frag.Layer,
		}
		if frag.HasHue {
			eq.Hue = frag.Hue
		}
		w.Equip(&eq)
	}
}

// MobileStatus applies a status-bar packet. The cache is replaced
// when empty, or when the incoming Flags is greater than or equal to
// the cached one: status packets come in layered variants of
// increasing richness, and Flags is a monotone version indicator.
func (w *Mirror) MobileStatus(p *protocol.MobileStatus) {
	m := w.Mobiles.Upsert(p.Serial)
	if m.Status == nil || m.Status.Flags <= p.Flags {
		m.Status = p.Clone()
	}
}

// applyMobileUpdate applies a moving-fields update. A non-player mobile
// that has never been observed is logged and dropped: there is
// nothing to patch. A known mobile's cached incoming packet is
// patched in place, preserving its equipment list.
func (w *Mirror) applyMobileUpdate(serial uint32, body, x, y uint16, z int8, dir protocol.Direction, hue uint16, flags uint8, notoriety *uint8) {
	if serial == w.Start.Serial {
		w.syncPlayerPosition(body, x, y, z, dir, hue, flags)
	}

	m, ok := w.Mobiles.Find(serial)
	if !ok {
		w.log.Logf(3, "mobile update for unknown mobile 0x%08X", serial)
		return
	}

	if m.Incoming == nil {
		return
	}
	m.Incoming.Body = body
	m.Incoming.X = x
	m.Incoming.Y = y
	m.Incoming.Z = z
	m.Incoming.Direction = dir
	m.Incoming.Hue = hue
	m.Incoming.Flags = flags
	if notoriety != nil {
		m.Incoming.Notoriety = *notoriety
	}
}

// MobileUpdatePacket applies a plain moving-fields update (no notoriety).
func (w *Mirror) MobileUpdatePacket(p *protocol.MobileUpdate) {
	w.applyMobileUpdate(p.Serial, p.Body, p.X, p.Y, p.Z, p.Direction, p.Hue, p.Flags, nil)
}

// MobileMoving applies a moving-fields update that also carries
// notoriety.
func (w *Mirror) MobileMoving(p *protocol.MobileMoving) {
	n := p.Notoriety
	w.applyMobileUpdate(p.Serial, p.Body, p.X, p.Y, p.Z, p.Direction, p.Hue, p.Flags, &n)
}

// ZoneChange updates the player's cached coordinates only; direction
// is left untouched, unlike every other position-bearing handler.
func (w *Mirror) ZoneChange(p *protocol.ZoneChange) {
	w.Start.X = p.X
	w.Start.Y = p.Y
	w.Start.Z = int16(p.Z)

	w.MobileUpdate.X = p.X
	w.MobileUpdate.Y = p.Y
	w.MobileUpdate.Z = p.Z
}

// Walked applies a server-acknowledged step: the player's position,
// direction and (if cached) own incoming packet advance together,
// along with the server-reported notoriety.
func (w *Mirror) Walked(x, y uint16, dir protocol.Direction, notoriety uint8) {
	w.Start.X = x
	w.Start.Y = y
	w.Start.Direction = dir

	w.MobileUpdate.X = x
	w.MobileUpdate.Y = y
	w.MobileUpdate.Direction = dir

	if m, ok := w.Mobiles.Find(w.Start.Serial); ok && m.Incoming != nil {
		m.Incoming.X = x
		m.Incoming.Y = y
		m.Incoming.Direction = dir
		m.Incoming.Notoriety = notoriety
	}
}

// WalkCancel applies a server-rejected step: same as Walked, but
// notoriety is left untouched since the server's cancel doesn't carry
// one.
func (w *Mirror) WalkCancel(x, y uint16, dir protocol.Direction) {
	w.Start.X = x
	w.Start.Y = y
	w.Start.Direction = dir

	w.MobileUpdate.X = x
	w.MobileUpdate.Y = y
	w.MobileUpdate.Direction = dir

	if m, ok := w.Mobiles.Find(w.Start.Serial); ok && m.Incoming != nil {
		m.Incoming.X = x
		m.Incoming.Y = y
		m.Incoming.Direction = dir
	}
}

// RemoveSerial classifies the given serial and removes the matching
// mobile or item, along with its equipped/contained subtree. Serials
// in the ignored range (see the serial package) are dropped silently,
// matching the wire protocol's own behavior of never assigning that
// range to a removable entity.
func (w *Mirror) RemoveSerial(s uint32) {
	switch serial.Classify(s) {
	case serial.Mobile:
		if m, ok := w.Mobiles.Find(s); ok {
			w.Mobiles.Remove(m)
		}
		w.Items.RemoveSubtree(s)
	case serial.Item:
		if it, ok := w.Items.Find(s); ok {
			w.Items.Remove(it)
		}
		w.Items.RemoveSubtree(s)
	}
}
