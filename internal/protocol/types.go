package protocol

import (
	"errors"
	"fmt"

	"github.com/evgenius1424/need-for-fun/internal/game"
)

// Decode errors. Unknown tags carry the offending byte so the session can
// log it before dropping the frame.
var (
	ErrEmpty       = errors.New("empty buffer")
	ErrOutOfBounds = errors.New("buffer too short")
	ErrInvalidUTF8 = errors.New("invalid UTF-8")
)

// UnknownTypeError is returned for an unrecognized message tag.
type UnknownTypeError struct {
	Tag byte
}

func (e *UnknownTypeError) Error() string {
	return fmt.Sprintf("unknown message type: %#x", e.Tag)
}

// ClientMsg is a decoded client → server message. Dispatch is by concrete
// type.
type ClientMsg interface {
	clientMsg()
}

// Hello sets the session username before joining a room.
type Hello struct {
	Username string
}

// JoinRoom requests membership in a room; empty strings mean the server
// defaults.
type JoinRoom struct {
	RoomID  string
	MapName string
}

// Input is one input sample. WeaponSwitch is -1 when no explicit switch is
// requested.
type Input struct {
	Seq          uint64
	AimAngle     float32
	KeyUp        bool
	KeyDown      bool
	KeyLeft      bool
	KeyRight     bool
	MouseDown    bool
	FacingLeft   bool
	WeaponSwitch int8
	WeaponScroll int8
}

// Ping carries the client clock for RTT measurement.
type Ping struct {
	ClientTimeMs uint64
}

func (Hello) clientMsg()    {}
func (JoinRoom) clientMsg() {}
func (Input) clientMsg()    {}
func (Ping) clientMsg()     {}

// PlayerRecord is the 63-byte wire form of one player inside RoomState and
// Snapshot frames.
type PlayerRecord struct {
	ID            uint64
	X, Y          float32
	VX, VY        float32
	AimAngle      float32
	Health        int32
	Armor         int32
	CurrentWeapon int32
	FireCooldown  int32
	Weapons       [WeaponCount]bool
	Ammo          [WeaponCount]int32
	LastInputSeq  uint64
	FacingLeft    bool
	Crouch        bool
	Dead          bool
	KeyLeft       bool
	KeyRight      bool
	KeyUp         bool
	KeyDown       bool
}

// PlayerRecordSize is the encoded size of one PlayerRecord.
const PlayerRecordSize = 63

// PlayerRecordFromState flattens live player state plus the connection's
// input sequence into a wire record.
func PlayerRecordFromState(lastInputSeq uint64, s *game.PlayerState) PlayerRecord {
	return PlayerRecord{
		ID:            s.ID,
		X:             s.X,
		Y:             s.Y,
		VX:            s.VelocityX,
		VY:            s.VelocityY,
		AimAngle:      s.AimAngle,
		Health:        s.Health,
		Armor:         s.Armor,
		CurrentWeapon: s.CurrentWeapon,
		FireCooldown:  s.FireCooldown,
		Weapons:       s.Weapons,
		Ammo:          s.Ammo,
		LastInputSeq:  lastInputSeq,
		FacingLeft:    s.FacingLeft,
		Crouch:        s.Crouch,
		Dead:          s.Dead,
		KeyLeft:       s.KeyLeft,
		KeyRight:      s.KeyRight,
		KeyUp:         s.KeyUp,
		KeyDown:       s.KeyDown,
	}
}

// ItemRecord is the 3-byte wire form of one map item.
type ItemRecord struct {
	Active       bool
	RespawnTimer int16
}

// ProjectileRecord is the wire form of one projectile, kept for codec
// symmetry; the server currently ships projectiles through spawn/remove
// events instead of snapshot tables.
type ProjectileRecord struct {
	ID        uint64
	X, Y      float32
	VX, VY    float32
	OwnerID   int64
	Kind      uint8
}

// NamedRecord pairs a username with its player record for RoomState.
type NamedRecord struct {
	Username string
	Record   PlayerRecord
}
