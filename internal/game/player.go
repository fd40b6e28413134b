package game

import "math"

// PlayerInput is the per-tick directional input applied to a player.
type PlayerInput struct {
	KeyUp    bool
	KeyDown  bool
	KeyLeft  bool
	KeyRight bool
}

// PlayerState is the full simulation state of one player. It is created on
// first join, mutated exclusively by the owning room task, and destroyed on
// leave, kick or room close.
type PlayerState struct {
	ID        uint64
	X, Y      float32
	PrevX     float32
	PrevY     float32
	VelocityX float32
	VelocityY float32

	KeyUp    bool
	KeyDown  bool
	KeyLeft  bool
	KeyRight bool
	Crouch   bool

	DoublejumpCountdown int32
	SpeedJump           int32
	SpeedJumpDir        int32
	LastKeyUp           bool
	LastWasJump         bool

	// Collision caches, keyed on the truncated pixel position. Refreshed
	// only when the integer part of (x, y) changes.
	cacheOnGround          bool
	cacheBrickOnHead       bool
	cacheBrickCrouchOnHead bool
	lastCacheX             int32
	lastCacheY             int32

	Health          int32
	Armor           int32
	Dead            bool
	RespawnTimer    int32
	SpawnProtection int32

	AimAngle   float32
	FacingLeft bool

	CurrentWeapon int32
	FireCooldown  int32
	Weapons       [WeaponCount]bool
	Ammo          [WeaponCount]int32

	QuadDamage bool
	QuadTimer  int32
}

// NewPlayerState returns a player with the default loadout: full health,
// every weapon owned, Rocket selected.
func NewPlayerState(id uint64) *PlayerState {
	p := &PlayerState{
		ID:            id,
		Health:        MaxHealth,
		CurrentWeapon: WeaponRocket,
		Ammo:          DefaultAmmo,
		lastCacheX:    math.MinInt32,
		lastCacheY:    math.MinInt32,
	}
	for i := range p.Weapons {
		p.Weapons[i] = true
	}
	return p
}

// SetXY moves the player and refreshes the collision caches if the
// position actually changed.
func (p *PlayerState) SetXY(x, y float32, m TileMap) {
	if absf(p.X-x) > epsilon || absf(p.Y-y) > epsilon {
		p.X = x
		p.Y = y
		p.updateCaches(m)
	}
}

// RecomputeCaches forces a cache refresh regardless of position. Needed
// after teleports onto the same integer pixel.
func (p *PlayerState) RecomputeCaches(m TileMap) {
	p.lastCacheX = math.MinInt32
	p.lastCacheY = math.MinInt32
	p.updateCaches(m)
}

// TickCounters advances the per-tick timers: fire cooldown, spawn
// protection, respawn countdown while dead, and the quad timer.
func (p *PlayerState) TickCounters() {
	if p.FireCooldown > 0 {
		p.FireCooldown--
	}
	if p.SpawnProtection > 0 {
		p.SpawnProtection--
	}
	if p.Dead && p.RespawnTimer > 0 {
		p.RespawnTimer--
	}
	if p.QuadDamage {
		p.QuadTimer--
		if p.QuadTimer <= 0 {
			p.QuadDamage = false
		}
	}
}

func (p *PlayerState) updateCaches(m TileMap) {
	cacheX := truncI32(p.X)
	cacheY := truncI32(p.Y)
	if cacheX == p.lastCacheX && cacheY == p.lastCacheY {
		return
	}
	p.lastCacheX = cacheX
	p.lastCacheY = cacheY

	colL := truncI32((p.X - PlayerHalfW) / TileW)
	colR := truncI32((p.X + PlayerHalfW) / TileW)
	colLNarrow := truncI32((p.X - PlayerCrouchHalfW) / TileW)
	colRNarrow := truncI32((p.X + PlayerCrouchHalfW) / TileW)

	p.cacheOnGround = checkGround(m, colL, colR, p.Y)
	p.cacheBrickOnHead = checkHead(m, colL, colR, p.Y)
	p.cacheBrickCrouchOnHead = checkCrouchHead(m, colLNarrow, colRNarrow, p.Y)
}

func (p *PlayerState) IsOnGround() bool          { return p.cacheOnGround }
func (p *PlayerState) IsBrickOnHead() bool       { return p.cacheBrickOnHead }
func (p *PlayerState) IsBrickCrouchOnHead() bool { return p.cacheBrickCrouchOnHead }

// checkGround probes the rows below the player: a probe row must be solid
// while the row the body occupies is not, so standing inside a brick never
// reads as grounded.
func checkGround(m TileMap, colL, colR int32, y float32) bool {
	rowProbe := truncI32((y + GroundProbe) / TileH)
	if rowProbe >= m.Rows() {
		return true
	}

	rowInside := truncI32((y + PlayerHalfH - 1.0) / TileH)
	rowBody := truncI32((y + PlayerCrouchHalfH) / TileH)
	rowFeet := truncI32((y + PlayerHalfH) / TileH)

	return (m.IsSolid(colL, rowProbe) && !m.IsSolid(colL, rowInside)) ||
		(m.IsSolid(colR, rowProbe) && !m.IsSolid(colR, rowInside)) ||
		(m.IsSolid(colL, rowFeet) && !m.IsSolid(colL, rowBody)) ||
		(m.IsSolid(colR, rowFeet) && !m.IsSolid(colR, rowBody))
}

func checkHead(m TileMap, colL, colR int32, y float32) bool {
	rowProbe := truncI32((y - HeadProbe) / TileH)
	if rowProbe < 0 {
		return true
	}

	rowInside := truncI32((y - PlayerHalfH + 1.0) / TileH)
	rowBody := truncI32((y - PlayerCrouchHalfH) / TileH)
	rowHead := truncI32((y - PlayerHalfH) / TileH)

	return (m.IsSolid(colL, rowProbe) && !m.IsSolid(colL, rowInside)) ||
		(m.IsSolid(colR, rowProbe) && !m.IsSolid(colR, rowInside)) ||
		(m.IsSolid(colL, rowHead) && !m.IsSolid(colL, rowBody)) ||
		(m.IsSolid(colR, rowHead) && !m.IsSolid(colR, rowBody))
}

func checkCrouchHead(m TileMap, colL, colR int32, y float32) bool {
	rowProbe := truncI32((y - CrouchHeadProbe) / TileH)
	rowInside := truncI32((y - 7.0) / TileH)

	return (m.IsSolid(colL, rowProbe) && !m.IsSolid(colL, rowInside)) ||
		(m.IsSolid(colR, rowProbe) && !m.IsSolid(colR, rowInside)) ||
		m.IsSolid(colL, truncI32((y-23.0)/TileH)) ||
		m.IsSolid(colR, truncI32((y-23.0)/TileH)) ||
		m.IsSolid(colL, truncI32((y-16.0)/TileH)) ||
		m.IsSolid(colR, truncI32((y-16.0)/TileH))
}

const epsilon = 1.1920929e-07 // float32 machine epsilon

func truncI32(v float32) int32 {
	return int32(v)
}

func clampf(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func absf(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}

func sqrtf(v float32) float32 {
	return float32(math.Sqrt(float64(v)))
}

func cosf(v float32) float32 {
	return float32(math.Cos(float64(v)))
}

func sinf(v float32) float32 {
	return float32(math.Sin(float64(v)))
}

func floorf(v float32) float32 {
	return float32(math.Floor(float64(v)))
}

func roundf(v float32) float32 {
	return float32(math.Round(float64(v)))
}

func signf(v float32) float32 {
	if v < 0 {
		return -1
	}
	return 1
}
