// Package protocol defines the decoded packet vocabulary the world
// mirror and walk state machine operate on. Framing (turning a TCP
// byte stream into length-delimited packets) and the 6↔7 dialect
// translators are external collaborators per the project's scope; this
// package only carries the shapes the core needs to read and write.
package protocol

// Direction is a facing/movement direction byte as used on the wire.
// The high nibble carries movement-mode flags (running, etc.); callers
// that only need the compass direction should mask with DirectionMask.
type Direction uint8

// DirectionMask isolates the compass portion of a Direction byte.
const DirectionMask Direction = 0x07

// deltas indexed by the compass portion of a Direction, matching the
// client's eight-way facing order (north, northeast, east, ...).
var deltas = [8][2]int16{
	{0, -1}, {1, -1}, {1, 0}, {1, 1},
	{0, 1}, {-1, 1}, {-1, 0}, {-1, -1},
}

// Step returns the (x, y) the given direction moves a mobile by one
// tile, used by the walk state machine to predict the server-side
// position of a pending step before the server's ACK confirms it.
func Step(x, y uint16, dir Direction) (uint16, uint16) {
	d := deltas[dir&DirectionMask]
	return uint16(int32(x) + int32(d[0])), uint16(int32(y) + int32(d[1]))
}

// GroundItem is the canonical (v7) on-ground item placement payload.
type GroundItem struct {
	Serial    uint32
	ItemID    uint16
	Amount    uint16
	X, Y      uint16
	Z         int8
	Direction Direction
	Hue       uint16
	Flags     uint8
}

// WorldItemV6 is the legacy on-wire world-item packet. The high bit of
// Serial is a protocol flag, not part of the entity identity, and must
// be masked off before the serial is used as a store key.
type WorldItemV6 struct {
	Serial uint32
	Item   GroundItem
}

// GroundFromV6 translates a v6 world-item payload into the canonical
// v7 ground-item shape, masking the protocol flag bit out of the
// serial.
func GroundFromV6(p *WorldItemV6) GroundItem {
	g := p.Item
	g.Serial = p.Serial & 0x7FFF_FFFF
	return g
}

// Equip is a single item equipped on a mobile.
type Equip struct {
	Serial       uint32
	ParentSerial uint32
	ItemID       uint16
	Layer        uint8
	Hue          uint16
}

// ContainerOpen is the v6-shaped "open this container's gump" packet.
// The v7 dialect carries additional tail fields that are not part of
// the mirror; see ReduceContainerOpen7.
type ContainerOpen struct {
	Serial   uint32
	GumpID   uint16
	ItemType uint16
}

// ContainerOpen7 is the v7 dialect of ContainerOpen. Base is the
// v6-compatible header; the GumpType fields exist only on the wire.
type ContainerOpen7 struct {
	Base      ContainerOpen
	GumpTypeX uint16
	GumpTypeY uint16
}

// ReduceContainerOpen7 discards the v7-specific tail and returns the
// v6-shaped base, which is what the mirror caches.
func ReduceContainerOpen7(p *ContainerOpen7) ContainerOpen {
	return p.Base
}

// ContainerItem is one item as described by a container-update or
// container-content packet.
type ContainerItem struct {
	Serial       uint32
	ItemID       uint16
	Amount       uint16
	X, Y         uint16
	GridIndex    uint8
	ParentSerial uint32
	Hue          uint16
}

// ContainerUpdate places a single item inside a container.
type ContainerUpdate struct {
	Item ContainerItem
}

// ContainerContent is an authoritative snapshot of everything inside
// one container, as sent right after the container is opened.
type ContainerContent struct {
	Items []ContainerItem
}

// MobileItemFragment is one equipped-item entry packed into a
// mobile_incoming packet. HasHue reflects the high bit of the
// on-wire ItemID, which determines whether the Hue field was present
// in that fragment's encoding.
type MobileItemFragment struct {
	Serial uint32
	ItemID uint16
	Layer  uint8
	Hue    uint16
	HasHue bool
}

// MobileIncoming announces (or re-announces) a mobile along with its
// full equipment list.
type MobileIncoming struct {
	Serial    uint32
	Body      uint16
	X, Y      uint16
	Z         int8
	Direction Direction
	Hue       uint16
	Flags     uint8
	Notoriety uint8
	Items     []MobileItemFragment
}

// Clone makes an independent copy, since the mirror owns its cached
// copy and the caller may reuse its buffer.
func (m *MobileIncoming) Clone() *MobileIncoming {
	if m == nil {
		return nil
	}
	c := *m
	c.Items = append([]MobileItemFragment(nil), m.Items...)
	return &c
}

// MobileStatus is a (possibly partial) status-bar snapshot. Flags is
// a monotone richness indicator: a later packet with Flags >= the
// cached one's replaces it.
type MobileStatus struct {
	Serial uint32
	Name   string
	Flags  uint8
	Body   []byte // remaining layered fields, opaque to the mirror
}

// Clone makes an independent copy.
func (m *MobileStatus) Clone() *MobileStatus {
	if m == nil {
		return nil
	}
	c := *m
	c.Body = append([]byte(nil), m.Body...)
	return &c
}

// MobileUpdate carries a mobile's moving fields without its equipment.
type MobileUpdate struct {
	Serial    uint32
	Body      uint16
	X, Y      uint16
	Z         int8
	Direction Direction
	Hue       uint16
	Flags     uint8
}

// MobileMoving is MobileUpdate plus a notoriety byte.
type MobileMoving struct {
	MobileUpdate
	Notoriety uint8
}

// ZoneChange carries a teleport/zone-change coordinate update. Unlike
// MobileUpdate and MobileMoving, it never carries a direction.
type ZoneChange struct {
	X, Y uint16
	Z    int8
}

// Start is the "you are this mobile, here is the world" packet sent
// once at login and cached for replay. Z is carried at the packet's
// native width (16 bits), unlike every other cached packet's 8-bit Z,
// and that width difference must never be silently normalized away
// when the two caches are kept coherent (see invariant 3).
type Start struct {
	Serial    uint32
	Body      uint16
	X, Y      uint16
	Z         int16
	Direction Direction
	Hue       uint16
	Flags     uint8
}

// MapChange, MapPatches, Season, GlobalLightLevel, PersonalLightLevel,
// WarMode and Target are one-shot player-centric packets the mirror
// caches verbatim for replay and never interprets.
type (
	MapChange struct {
		MapID uint8
	}
	MapPatches struct {
		Body []byte
	}
	Season struct {
		Season uint8
		Music  uint8
	}
	GlobalLightLevel struct {
		Level int8
	}
	PersonalLightLevel struct {
		Serial uint32
		Level  int8
	}
	WarMode struct {
		War bool
	}
	Target struct {
		Body []byte
	}
)

// Walk is a client-originated movement request.
type Walk struct {
	Direction Direction
	Seq       uint8
}

// WalkAck is the server's acknowledgement of a walk request. It
// carries only the sequence and the server's notoriety; the post-step
// position is predicted by the proxy from the queued client packet.
type WalkAck struct {
	Seq       uint8
	Notoriety uint8
}

// WalkCancel is the server's rejection of a walk request, snapping the
// client back to an authoritative position.
type WalkCancel struct {
	Seq       uint8
	X, Y      uint16
	Direction Direction
}

// Remove names an entity (mobile or item) that no longer exists.
type Remove struct {
	Serial uint32
}

// Speak is a console/system chat line, used by the console-speak
// helper to synthesize "reconnecting…" notices to attached clients.
type Speak struct {
	Serial uint32
	Name   string
	Hue    uint16
	Font   uint16
	Text   string
}
