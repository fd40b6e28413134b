package protocol

import "github.com/evgenius1424/need-for-fun/internal/game"

// SnapshotEncoder serializes periodic world snapshots into a small ring of
// reusable buffers so the 30 Hz broadcast path never allocates. The
// returned slice aliases a ring slot: callers must hand it to the
// transport before encoding SnapshotRing more snapshots.
type SnapshotEncoder struct {
	ring [SnapshotRing][]byte
	next int
}

// NewSnapshotEncoder pre-sizes every ring slot for a full 8-player room.
func NewSnapshotEncoder() *SnapshotEncoder {
	enc := &SnapshotEncoder{}
	for i := range enc.ring {
		enc.ring[i] = make([]byte, 0, 4096)
	}
	return enc
}

// EncodeSnapshot writes the snapshot header, player/item/projectile
// tables and the accumulated effect events into the next ring buffer.
func (enc *SnapshotEncoder) EncodeSnapshot(
	tick uint64,
	serverTimeMs uint64,
	players []PlayerRecord,
	items []ItemRecord,
	projectiles []ProjectileRecord,
	events []game.EffectEvent,
) []byte {
	slot := enc.next
	enc.next = (enc.next + 1) % SnapshotRing
	out := enc.ring[slot][:0]

	playerCount := min255(len(players))
	itemCount := min255(len(items))
	projectileCount := len(projectiles)
	if projectileCount > 0xFFFF {
		projectileCount = 0xFFFF
	}
	eventCount := min255(len(events))

	out = append(out, MsgSnapshot)
	out = putU64(out, tick)
	out = putU64(out, serverTimeMs)
	out = append(out, byte(playerCount), byte(itemCount))
	out = putU16(out, uint16(projectileCount))
	out = append(out, byte(eventCount))

	for i := 0; i < playerCount; i++ {
		out = appendPlayerRecord(out, &players[i])
	}

	for i := 0; i < itemCount; i++ {
		var flags byte
		if items[i].Active {
			flags |= 0x01
		}
		out = append(out, flags)
		out = putI16(out, items[i].RespawnTimer)
	}

	for i := 0; i < projectileCount; i++ {
		p := &projectiles[i]
		out = putU64(out, p.ID)
		out = putF32(out, p.X)
		out = putF32(out, p.Y)
		out = putF32(out, p.VX)
		out = putF32(out, p.VY)
		out = putI64(out, p.OwnerID)
		out = append(out, p.Kind)
	}

	for i := 0; i < eventCount; i++ {
		out = appendEvent(out, events[i])
	}

	enc.ring[slot] = out
	return out
}

func min255(v int) int {
	if v > 255 {
		return 255
	}
	return v
}
