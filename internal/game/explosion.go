package game

const pushLateralFactor = 5.0 / 6.0

// PendingHit defers splash damage so knockback for every explosion is
// applied before any health changes; collect-then-apply avoids aliasing
// the player slice while iterating it.
type PendingHit struct {
	AttackerID uint64
	TargetID   uint64
	Damage     float32
}

// splashParams returns the radius and push magnitude for an explosion
// kind. Rocket, grenade and BFG read the weapon tables; plasma has its
// own small splash.
func splashParams(kind ProjectileKind) (radius, push float32) {
	switch kind {
	case ProjRocket:
		return SplashRadius[WeaponRocket], WeaponPush[WeaponRocket]
	case ProjGrenade:
		return SplashRadius[WeaponGrenade], WeaponPush[WeaponGrenade]
	case ProjBFG:
		return SplashRadius[WeaponBFG], WeaponPush[WeaponBFG]
	default:
		return PlasmaSplashRadius, PlasmaSplashPush
	}
}

func splashBaseDamage(kind ProjectileKind) float32 {
	switch kind {
	case ProjRocket:
		return WeaponDamage[WeaponRocket]
	case ProjGrenade:
		return WeaponDamage[WeaponGrenade]
	case ProjBFG:
		return WeaponDamage[WeaponBFG]
	default:
		return WeaponDamage[WeaponPlasma]
	}
}

// ApplyExplosions applies every explosion of the tick to every alive
// player in radius: directional knockback immediately, splash damage via
// the two-phase pending list.
func ApplyExplosions(explosions []Explosion, players []*PlayerState, events *[]EffectEvent, pending *[]PendingHit) {
	*pending = (*pending)[:0]

	for i := range explosions {
		expl := &explosions[i]
		radius, push := splashParams(expl.Kind)
		if radius <= 0 {
			continue
		}

		ownerQuad := false
		for _, p := range players {
			if p.ID == expl.OwnerID {
				ownerQuad = p.QuadDamage
				break
			}
		}
		if ownerQuad {
			push *= QuadMultiplier
		}

		base := splashBaseDamage(expl.Kind)
		for _, p := range players {
			if p.Dead {
				continue
			}
			dx := expl.X - p.X
			dy := expl.Y - p.Y
			distance := sqrtf(dx*dx + dy*dy)
			if distance >= radius {
				continue
			}

			damage := SplashFalloff(base, radius, distance)
			if damage > 0 {
				*pending = append(*pending, PendingHit{
					AttackerID: expl.OwnerID,
					TargetID:   p.ID,
					Damage:     damage,
				})
			}
			applyDirectionalPush(p, expl.X, expl.Y, push)
		}
	}

	for _, hit := range *pending {
		ApplyDamage(hit.AttackerID, hit.TargetID, hit.Damage, players, events)
	}
}

// applyDirectionalPush shoves the player away from a source point. A
// source strictly left pushes right at full strength, strictly right
// pushes left at 5/6, and only a source below kicks upward.
func applyDirectionalPush(p *PlayerState, sourceX, sourceY, push float32) {
	dx := sourceX - p.X
	dy := sourceY - p.Y

	if dx < -0.01 {
		p.VelocityX += push
	} else if dx > 0.01 {
		p.VelocityX -= push * pushLateralFactor
	}
	if dy > 0.01 {
		p.VelocityY -= push * pushLateralFactor
	}
}

// SplashFalloff maps distance to damage in three bands around radius/3:
// full damage inside the inner third, then two linear tails.
func SplashFalloff(base, radius, distance float32) float32 {
	if radius <= 0 || distance <= 0 {
		return base
	}
	r3 := radius / 3
	switch {
	case distance <= r3:
		return base
	case distance < 2*r3:
		scale := (2*radius - 3*distance + 40) / 100
		if scale < 0 {
			scale = 0
		}
		return base * scale
	default:
		scale := ((radius-distance)*60/radius + 20) / 100
		if scale < 0 {
			scale = 0
		}
		return base * scale
	}
}
