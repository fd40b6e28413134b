package game

// Tile and player geometry (pixels). These values are load-bearing for
// determinism: the physics step, collision probes and wire snapshots all
// assume them.
const (
	TileW = 32.0
	TileH = 16.0

	PlayerHalfW       = 9.0
	PlayerHalfH       = 24.0
	PlayerCrouchHalfW = 8.0
	PlayerCrouchHalfH = 8.0

	PlayerMaxVelocityX  = 3.0
	PlayerVelocityClamp = 5.0

	GroundProbe     = 25.0
	HeadProbe       = 25.0
	CrouchHeadProbe = 9.0
	WallProbeXLeft  = -11.0
	WallProbeXRight = 11.0
	WallSnapLeft    = 9.0
	WallSnapRight   = 22.0
	CrouchHeadOff   = 8.0
	StandHeadOff    = 16.0

	SpawnOffsetX = 10.0
)

// Speed-jump ramp tables, indexed by the player's speed_jump counter (0..6).
var (
	SpeedJumpY = [7]float32{0.0, 0.0, 0.4, 0.8, 1.0, 1.2, 1.4}
	SpeedJumpX = [7]float32{0.0, 0.33, 0.8, 1.1, 1.4, 1.8, 2.2}
)

// WeaponCount is the number of weapon slots.
// Slot order: Gauntlet, Machine, Shotgun, Grenade, Rocket, Rail, Plasma, Shaft, BFG.
const WeaponCount = 9

const (
	WeaponGauntlet = 0
	WeaponMachine  = 1
	WeaponShotgun  = 2
	WeaponGrenade  = 3
	WeaponRocket   = 4
	WeaponRail     = 5
	WeaponPlasma   = 6
	WeaponShaft    = 7
	WeaponBFG      = 8
)

// Per-weapon tables, indexed by weapon id.
var (
	WeaponDamage     = [WeaponCount]float32{35, 5, 7, 65, 100, 75, 14, 3, 100}
	WeaponFireRate   = [WeaponCount]int32{25, 5, 50, 45, 40, 85, 5, 1, 100}
	ProjectileSpeed  = [WeaponCount]float32{0, 0, 0, 5, 6, 0, 7, 0, 7}
	ProjectileOffset = [WeaponCount]float32{0, 0, 0, 14, 18, 0, 12, 0, 12}
	SplashRadius     = [WeaponCount]float32{0, 0, 0, 70, 60, 0, 0, 0, 90}
	WeaponPush       = [WeaponCount]float32{0.8, 0.2, 1.2, 2.4, 3.0, 1.6, 0.5, 0.3, 3.5}
)

// DefaultAmmo is the loadout on join and respawn; -1 means infinite.
var DefaultAmmo = [WeaponCount]int32{-1, 100, 10, 5, 20, 10, 30, 50, 10}

// Hitscan weapon ranges (pixels).
const (
	MachineRange  = 1000.0
	ShotgunRange  = 800.0
	RailRange     = 2000.0
	ShaftRange    = TileW * 3.0
	GauntletRange = 50.0

	ShotgunPellets = 11
	ShotgunSpread  = 0.15

	HitscanPlayerRadius  = 14.0
	GauntletPlayerRadius = 22.0
)

// Projectile physics.
const (
	ProjectileGravity     = 0.18
	GrenadeLoft           = 2.0
	GrenadeRiseDamping    = 1.05
	GrenadeAirFriction    = 1.005
	GrenadeMaxFallSpeed   = 5.0
	GrenadeBounceFriction = 1.35
	GrenadeMinVelocity    = 0.5
	GrenadeFuse           = 120
	BoundsMargin          = 100.0
	SelfHitGrace          = 8
	GrenadeHitGrace       = 12

	HitRadiusRocket  = 28.0
	HitRadiusGrenade = 16.0
	HitRadiusPlasma  = 20.0
	HitRadiusBFG     = 28.0

	PlasmaSplashRadius = 24.0
	PlasmaSplashPush   = 0.5
)

// Health, armor and damage pipeline.
const (
	MaxHealth           = 100
	MegaHealth          = 200
	MaxArmor            = 200
	ArmorAbsorption     = 0.67
	SelfDamageReduction = 0.5
	QuadMultiplier      = 3.0
	QuadDuration        = 900
	RespawnTime         = 180
	SpawnProtection     = 120
	PickupRadius        = 16.0
)
