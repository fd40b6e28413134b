package protocol

import (
	"encoding/binary"
	"math"

	"github.com/evgenius1424/need-for-fun/internal/game"
)

// EncodeHello frames a Hello message; used by tests and tooling (the
// server only decodes it).
func EncodeHello(username string) []byte {
	name := truncate(username, MaxUsernameLen)
	out := make([]byte, 0, 2+len(name))
	out = append(out, MsgHello, byte(len(name)))
	return append(out, name...)
}

// EncodeJoinRoom frames a JoinRoom message; zero-length fields select the
// server defaults.
func EncodeJoinRoom(roomID, mapName string) []byte {
	room := truncate(roomID, 255)
	m := truncate(mapName, 255)
	out := make([]byte, 0, 3+len(room)+len(m))
	out = append(out, MsgJoinRoom, byte(len(room)), byte(len(m)))
	out = append(out, room...)
	return append(out, m...)
}

// EncodeInput frames an Input message.
func EncodeInput(in Input) []byte {
	out := make([]byte, 0, 16)
	out = append(out, MsgInput)
	out = putU64(out, in.Seq)
	out = putF32(out, in.AimAngle)
	var flags byte
	if in.KeyUp {
		flags |= InputFlagUp
	}
	if in.KeyDown {
		flags |= InputFlagDown
	}
	if in.KeyLeft {
		flags |= InputFlagLeft
	}
	if in.KeyRight {
		flags |= InputFlagRight
	}
	if in.MouseDown {
		flags |= InputFlagMouseDown
	}
	if in.FacingLeft {
		flags |= InputFlagFacingLeft
	}
	out = append(out, flags, byte(in.WeaponSwitch), byte(in.WeaponScroll))
	return out
}

// EncodePing frames a Ping message.
func EncodePing(clientTimeMs uint64) []byte {
	out := make([]byte, 0, 9)
	out = append(out, MsgPing)
	return putU64(out, clientTimeMs)
}

// EncodeWelcome frames the player's server-assigned id.
func EncodeWelcome(playerID uint64) []byte {
	out := make([]byte, 0, 9)
	out = append(out, MsgWelcome)
	return putU64(out, playerID)
}

// EncodePlayerJoined announces a new member to a room.
func EncodePlayerJoined(id uint64, username string) []byte {
	name := truncate(username, 255)
	out := make([]byte, 0, 10+len(name))
	out = append(out, MsgPlayerJoined)
	out = putU64(out, id)
	out = append(out, byte(len(name)))
	return append(out, name...)
}

// EncodePlayerLeft announces a departure.
func EncodePlayerLeft(id uint64) []byte {
	out := make([]byte, 0, 9)
	out = append(out, MsgPlayerLeft)
	return putU64(out, id)
}

// EncodePong frames the RTT reply.
func EncodePong(clientTimeMs, serverTimeMs uint64) []byte {
	out := make([]byte, 0, 17)
	out = append(out, MsgPong)
	out = putU64(out, clientTimeMs)
	return putU64(out, serverTimeMs)
}

// EncodeJoinRejected frames a join rejection reason ("room_full",
// "room_closing", "room_not_found").
func EncodeJoinRejected(reason string) []byte {
	return encodeReasonFrame(MsgJoinRejected, reason)
}

// EncodeRoomClosed frames the room shutdown notice.
func EncodeRoomClosed(reason string) []byte {
	return encodeReasonFrame(MsgRoomClosed, reason)
}

// EncodeKicked frames the kick notice sent to the removed player.
func EncodeKicked(reason string) []byte {
	return encodeReasonFrame(MsgKicked, reason)
}

func encodeReasonFrame(tag byte, reason string) []byte {
	r := truncate(reason, 255)
	out := make([]byte, 0, 2+len(r))
	out = append(out, tag, byte(len(r)))
	return append(out, r...)
}

// EncodeRoomState frames the full room roster returned to a joining
// player.
func EncodeRoomState(roomID, mapName string, players []NamedRecord) []byte {
	room := truncate(roomID, 255)
	m := truncate(mapName, 255)
	count := len(players)
	if count > 255 {
		count = 255
	}

	out := make([]byte, 0, 4+len(room)+len(m)+count*(1+16+PlayerRecordSize))
	out = append(out, MsgRoomState, byte(len(room)), byte(len(m)), byte(count))
	out = append(out, room...)
	out = append(out, m...)
	for _, p := range players[:count] {
		name := truncate(p.Username, 255)
		out = append(out, byte(len(name)))
		out = append(out, name...)
		out = appendPlayerRecord(out, &p.Record)
	}
	return out
}

func appendPlayerRecord(out []byte, rec *PlayerRecord) []byte {
	out = putU64(out, rec.ID)
	out = putF32(out, rec.X)
	out = putF32(out, rec.Y)
	out = putF32(out, rec.VX)
	out = putF32(out, rec.VY)
	out = putF32(out, rec.AimAngle)
	out = putI16(out, clampI16(rec.Health))
	out = putI16(out, clampI16(rec.Armor))
	out = append(out, byte(rec.CurrentWeapon), clampU8(rec.FireCooldown))

	var weaponBits uint16
	for i, has := range rec.Weapons {
		if has {
			weaponBits |= 1 << i
		}
	}
	out = putU16(out, weaponBits)

	for i := 0; i < WeaponCount; i++ {
		out = putI16(out, clampI16(rec.Ammo[i]))
	}

	out = putU64(out, rec.LastInputSeq)

	var flags byte
	if rec.FacingLeft {
		flags |= PlayerFlagFacingLeft
	}
	if rec.Crouch {
		flags |= PlayerFlagCrouch
	}
	if rec.Dead {
		flags |= PlayerFlagDead
	}
	if rec.KeyLeft {
		flags |= PlayerFlagLeft
	}
	if rec.KeyRight {
		flags |= PlayerFlagRight
	}
	if rec.KeyUp {
		flags |= PlayerFlagUp
	}
	if rec.KeyDown {
		flags |= PlayerFlagDown
	}
	return append(out, flags)
}

func appendEvent(out []byte, ev game.EffectEvent) []byte {
	switch e := ev.(type) {
	case game.EventWeaponFired:
		out = append(out, EventWeaponFired)
		out = putU64(out, e.PlayerID)
		out = append(out, byte(e.WeaponID))
	case game.EventProjectileSpawn:
		out = append(out, EventProjectileSpawn)
		out = putU64(out, e.ID)
		out = append(out, byte(e.Kind))
		out = putF32(out, e.X)
		out = putF32(out, e.Y)
		out = putF32(out, e.VelocityX)
		out = putF32(out, e.VelocityY)
		out = putU64(out, e.OwnerID)
	case game.EventRail:
		out = append(out, EventRail)
		out = putF32(out, e.StartX)
		out = putF32(out, e.StartY)
		out = putF32(out, e.EndX)
		out = putF32(out, e.EndY)
	case game.EventShaft:
		out = append(out, EventShaft)
		out = putF32(out, e.StartX)
		out = putF32(out, e.StartY)
		out = putF32(out, e.EndX)
		out = putF32(out, e.EndY)
	case game.EventBulletImpact:
		out = append(out, EventBulletImpact)
		out = putF32(out, e.X)
		out = putF32(out, e.Y)
		out = putF32(out, e.Radius)
	case game.EventGauntlet:
		out = append(out, EventGauntlet)
		out = putF32(out, e.X)
		out = putF32(out, e.Y)
	case game.EventExplosion:
		out = append(out, EventExplosion)
		out = putF32(out, e.X)
		out = putF32(out, e.Y)
		out = append(out, byte(e.Kind))
	case game.EventDamage:
		out = append(out, EventDamage)
		out = putU64(out, e.AttackerID)
		out = putU64(out, e.TargetID)
		out = putI16(out, clampI16(e.Amount))
		var flags byte
		if e.Killed {
			flags |= 0x01
		}
		out = append(out, flags)
	case game.EventProjectileRemove:
		out = append(out, EventProjectileRemove)
		out = putU64(out, e.ID)
		out = putF32(out, e.X)
		out = putF32(out, e.Y)
		out = append(out, byte(e.Kind))
	}
	return out
}

func putU16(out []byte, v uint16) []byte {
	return binary.LittleEndian.AppendUint16(out, v)
}

func putI16(out []byte, v int16) []byte {
	return binary.LittleEndian.AppendUint16(out, uint16(v))
}

func putU64(out []byte, v uint64) []byte {
	return binary.LittleEndian.AppendUint64(out, v)
}

func putI64(out []byte, v int64) []byte {
	return binary.LittleEndian.AppendUint64(out, uint64(v))
}

func putF32(out []byte, v float32) []byte {
	return binary.LittleEndian.AppendUint32(out, math.Float32bits(v))
}

// clampI16 narrows with saturation; health and ammo can exceed i16 only
// through pickup stacking and must not wrap on the wire.
func clampI16(v int32) int16 {
	if v > math.MaxInt16 {
		return math.MaxInt16
	}
	if v < math.MinInt16 {
		return math.MinInt16
	}
	return int16(v)
}

func clampU8(v int32) byte {
	if v > 255 {
		return 255
	}
	if v < 0 {
		return 0
	}
	return byte(v)
}

func truncate(s string, max int) string {
	if len(s) > max {
		return s[:max]
	}
	return s
}
