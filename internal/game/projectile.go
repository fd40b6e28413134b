package game

// ProjectileKind enumerates the physical projectile bodies.
type ProjectileKind uint8

const (
	ProjRocket  ProjectileKind = 0
	ProjGrenade ProjectileKind = 1
	ProjPlasma  ProjectileKind = 2
	ProjBFG     ProjectileKind = 3
)

// HitRadius is the kind-specific player collision radius.
func (k ProjectileKind) HitRadius() float32 {
	switch k {
	case ProjGrenade:
		return HitRadiusGrenade
	case ProjPlasma:
		return HitRadiusPlasma
	case ProjBFG:
		return HitRadiusBFG
	default:
		return HitRadiusRocket
	}
}

// DirectDamage is applied on body contact. Only plasma bolts damage
// directly; the heavier kinds rely entirely on splash.
func (k ProjectileKind) DirectDamage() float32 {
	if k == ProjPlasma {
		return WeaponDamage[WeaponPlasma]
	}
	return 0
}

// Projectile is a live body stepped each tick. Ids are strictly
// increasing within a room.
type Projectile struct {
	ID        uint64
	Kind      ProjectileKind
	X, Y      float32
	PrevX     float32
	PrevY     float32
	VelocityX float32
	VelocityY float32
	OwnerID   uint64
	Age       int32
	Active    bool
}

// Explosion is produced during a tick and consumed within the same tick;
// it is never stored across ticks.
type Explosion struct {
	X, Y    float32
	Kind    ProjectileKind
	OwnerID uint64
}

// UpdateProjectiles advances every live projectile one tick: grenade
// physics, wall collision (bounce or detonate), fuse expiry and the
// out-of-bounds cull. Inactive projectiles are filtered out in place.
func UpdateProjectiles(m TileMap, projectiles *[]Projectile, events *[]EffectEvent, explosions *[]Explosion) {
	maxX := float32(m.Cols())*TileW + BoundsMargin
	maxY := float32(m.Rows())*TileH + BoundsMargin

	list := *projectiles
	n := 0
	for i := range list {
		proj := &list[i]
		if !proj.Active {
			continue
		}

		proj.PrevX = proj.X
		proj.PrevY = proj.Y
		proj.Age++

		if proj.Kind == ProjGrenade {
			applyGrenadePhysics(proj)
		}

		newX := proj.X + proj.VelocityX
		newY := proj.Y + proj.VelocityY

		if checkWallCollision(m, proj, newX, newY) {
			if proj.Kind != ProjGrenade {
				explode(proj, events, explosions)
				continue
			}
			// Grenade bounced; position stays put this tick.
		} else {
			proj.X = newX
			proj.Y = newY
		}

		if proj.Kind == ProjGrenade && proj.Age > GrenadeFuse {
			explode(proj, events, explosions)
			continue
		}

		if proj.X < -BoundsMargin || proj.X > maxX || proj.Y < -BoundsMargin || proj.Y > maxY {
			proj.Active = false
			*events = append(*events, EventProjectileRemove{ID: proj.ID, X: proj.X, Y: proj.Y, Kind: proj.Kind})
			continue
		}

		list[n] = *proj
		n++
	}
	*projectiles = list[:n]
}

// applyGrenadePhysics: gravity, damping on the rising arc, air friction
// and a terminal fall speed.
func applyGrenadePhysics(proj *Projectile) {
	proj.VelocityY += ProjectileGravity
	if proj.VelocityY < 0 {
		proj.VelocityY /= GrenadeRiseDamping
	}
	proj.VelocityX /= GrenadeAirFriction
	if proj.VelocityY > GrenadeMaxFallSpeed {
		proj.VelocityY = GrenadeMaxFallSpeed
	}
}

// checkWallCollision reports whether the projectile's next cell is solid.
// Grenades reflect the velocity components whose tile axis changed and
// come to rest once both components drop below GrenadeMinVelocity.
func checkWallCollision(m TileMap, proj *Projectile, newX, newY float32) bool {
	colX := truncI32(floorf(newX / TileW))
	colY := truncI32(floorf(newY / TileH))
	if !m.IsSolid(colX, colY) {
		return false
	}

	if proj.Kind != ProjGrenade {
		return true
	}

	oldColX := truncI32(floorf(proj.X / TileW))
	oldColY := truncI32(floorf(proj.Y / TileH))
	if oldColX != colX {
		proj.VelocityX = -proj.VelocityX / GrenadeBounceFriction
	}
	if oldColY != colY {
		proj.VelocityY = -proj.VelocityY / GrenadeBounceFriction
	}
	if absf(proj.VelocityX) < GrenadeMinVelocity && absf(proj.VelocityY) < GrenadeMinVelocity {
		proj.VelocityX = 0
		proj.VelocityY = 0
	}
	return true
}

// ApplyProjectileHits resolves projectile-vs-player contact after
// stepping. The owner is immune until SelfHitGrace; grenades arm only
// after GrenadeHitGrace. Contact detonates the projectile; plasma also
// deals its direct damage.
func ApplyProjectileHits(projectiles *[]Projectile, players []*PlayerState, events *[]EffectEvent, explosions *[]Explosion) {
	list := *projectiles
	n := 0
	for i := range list {
		proj := &list[i]
		if !proj.Active {
			continue
		}
		for _, p := range players {
			if p.Dead {
				continue
			}
			if proj.OwnerID == p.ID && proj.Age < SelfHitGrace {
				continue
			}
			if proj.Kind == ProjGrenade && proj.Age < GrenadeHitGrace {
				continue
			}
			dx := p.X - proj.X
			dy := p.Y - proj.Y
			radius := proj.Kind.HitRadius()
			if dx*dx+dy*dy >= radius*radius {
				continue
			}
			if direct := proj.Kind.DirectDamage(); direct > 0 {
				ApplyDamage(proj.OwnerID, p.ID, direct, players, events)
			}
			explode(proj, events, explosions)
			break
		}
		if proj.Active {
			list[n] = *proj
			n++
		}
	}
	*projectiles = list[:n]
}

func explode(proj *Projectile, events *[]EffectEvent, explosions *[]Explosion) {
	proj.Active = false
	*events = append(*events, EventProjectileRemove{ID: proj.ID, X: proj.X, Y: proj.Y, Kind: proj.Kind})
	*explosions = append(*explosions, Explosion{
		X:       proj.X,
		Y:       proj.Y,
		Kind:    proj.Kind,
		OwnerID: proj.OwnerID,
	})
}
