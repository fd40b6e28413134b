package game

import "math/rand"

// HitAction is a pending hitscan or melee hit recorded during firing and
// resolved against the player table after every player has fired.
type HitAction struct {
	AttackerID uint64
	Weapon     int32
	StartX     float32
	StartY     float32
	HitX       float32
	HitY       float32
	Damage     float32
	Melee      bool
}

// CanFire reports whether the player may pull the trigger this tick.
func CanFire(p *PlayerState) bool {
	if p.Dead || p.FireCooldown > 0 {
		return false
	}
	ammo := p.Ammo[p.CurrentWeapon]
	return ammo == -1 || ammo > 0
}

// TryFire fires the player's current weapon: decrements ammo, starts the
// cooldown, emits a WeaponFired event and dispatches by weapon class.
// Hitscan weapons record HitActions, projectile weapons append to the
// projectile list and emit a ProjectileSpawn event.
func TryFire(
	p *PlayerState,
	projectiles *[]Projectile,
	m TileMap,
	nextProjectileID *uint64,
	hitActions *[]HitAction,
	events *[]EffectEvent,
	rng *rand.Rand,
) {
	if !CanFire(p) {
		return
	}

	weapon := p.CurrentWeapon
	if weapon < 0 || weapon >= WeaponCount {
		return
	}

	if p.Ammo[weapon] != -1 {
		p.Ammo[weapon]--
	}
	p.FireCooldown = WeaponFireRate[weapon]
	*events = append(*events, EventWeaponFired{PlayerID: p.ID, WeaponID: weapon})

	originX, originY := weaponOrigin(p)

	switch weapon {
	case WeaponGauntlet:
		hitX := originX + cosf(p.AimAngle)*GauntletRange
		hitY := originY + sinf(p.AimAngle)*GauntletRange
		*hitActions = append(*hitActions, HitAction{
			AttackerID: p.ID,
			Weapon:     weapon,
			StartX:     originX,
			StartY:     originY,
			HitX:       hitX,
			HitY:       hitY,
			Damage:     WeaponDamage[weapon],
			Melee:      true,
		})
		*events = append(*events, EventGauntlet{X: hitX, Y: hitY})

	case WeaponShotgun:
		for i := 0; i < ShotgunPellets; i++ {
			angle := p.AimAngle + (rng.Float32()-0.5)*ShotgunSpread
			trace := RayTrace(m, originX, originY, angle, ShotgunRange)
			*hitActions = append(*hitActions, HitAction{
				AttackerID: p.ID,
				Weapon:     weapon,
				StartX:     originX,
				StartY:     originY,
				HitX:       trace.X,
				HitY:       trace.Y,
				Damage:     WeaponDamage[weapon],
			})
		}

	case WeaponMachine, WeaponRail, WeaponShaft:
		var rangePx float32
		switch weapon {
		case WeaponMachine:
			rangePx = MachineRange
		case WeaponRail:
			rangePx = RailRange
		case WeaponShaft:
			rangePx = ShaftRange
		}
		trace := RayTrace(m, originX, originY, p.AimAngle, rangePx)
		*hitActions = append(*hitActions, HitAction{
			AttackerID: p.ID,
			Weapon:     weapon,
			StartX:     originX,
			StartY:     originY,
			HitX:       trace.X,
			HitY:       trace.Y,
			Damage:     WeaponDamage[weapon],
		})

	case WeaponGrenade, WeaponRocket, WeaponPlasma, WeaponBFG:
		kind := projectileKindForWeapon(weapon)
		speed := ProjectileSpeed[weapon]
		offset := ProjectileOffset[weapon]
		cos := cosf(p.AimAngle)
		sin := sinf(p.AimAngle)

		velocityX := cos * speed
		velocityY := sin * speed
		if kind == ProjGrenade {
			velocityY -= GrenadeLoft
			const slow = 0.8
			velocityX *= slow
			velocityY = velocityY*slow + 0.9
		}

		projX := originX + cos*offset
		projY := originY + sin*offset

		*nextProjectileID++
		id := *nextProjectileID
		*events = append(*events, EventProjectileSpawn{
			ID:        id,
			Kind:      kind,
			X:         projX,
			Y:         projY,
			VelocityX: velocityX,
			VelocityY: velocityY,
			OwnerID:   p.ID,
		})
		*projectiles = append(*projectiles, Projectile{
			ID:        id,
			Kind:      kind,
			X:         projX,
			Y:         projY,
			PrevX:     originX,
			PrevY:     originY,
			VelocityX: velocityX,
			VelocityY: velocityY,
			OwnerID:   p.ID,
			Active:    true,
		})
	}
}

// weaponOrigin is the muzzle position; crouching lowers the muzzle 4 px
// (y grows downward) toward the compressed hitbox center.
func weaponOrigin(p *PlayerState) (float32, float32) {
	const crouchLift = 4.0
	y := p.Y
	if p.Crouch {
		y += crouchLift
	}
	return p.X, y
}

func projectileKindForWeapon(weapon int32) ProjectileKind {
	switch weapon {
	case WeaponGrenade:
		return ProjGrenade
	case WeaponPlasma:
		return ProjPlasma
	case WeaponBFG:
		return ProjBFG
	default:
		return ProjRocket
	}
}

// TraceResult is where a ray stopped and whether it entered a solid tile.
type TraceResult struct {
	HitWall  bool
	X, Y     float32
	Distance float32
}

// RayTrace walks tile boundaries with a DDA: step whichever axis has the
// smaller next-boundary parameter, stop on the first solid tile or when
// the distance budget runs out. Starting inside a solid tile returns the
// start position with HitWall set.
func RayTrace(m TileMap, startX, startY, angle, maxDistance float32) TraceResult {
	dirX := cosf(angle)
	dirY := sinf(angle)

	mapX := truncI32(floorf(startX / TileW))
	mapY := truncI32(floorf(startY / TileH))

	if m.IsSolid(mapX, mapY) {
		return TraceResult{HitWall: true, X: startX, Y: startY, Distance: 0}
	}

	deltaDistX := float32(1e30)
	if dirX != 0 {
		deltaDistX = absf(1.0 / dirX)
	}
	deltaDistY := float32(1e30)
	if dirY != 0 {
		deltaDistY = absf(1.0 / dirY)
	}

	stepX := int32(1)
	if dirX < 0 {
		stepX = -1
	}
	stepY := int32(1)
	if dirY < 0 {
		stepY = -1
	}

	var sideDistX float32
	if dirX < 0 {
		sideDistX = (startX/TileW - float32(mapX)) * deltaDistX
	} else {
		sideDistX = (float32(mapX) + 1.0 - startX/TileW) * deltaDistX
	}
	var sideDistY float32
	if dirY < 0 {
		sideDistY = (startY/TileH - float32(mapY)) * deltaDistY
	} else {
		sideDistY = (float32(mapY) + 1.0 - startY/TileH) * deltaDistY
	}

	maxDistSq := maxDistance * maxDistance
	hit := false
	side := 0

	for !hit {
		if sideDistX < sideDistY {
			sideDistX += deltaDistX
			mapX += stepX
			side = 0
		} else {
			sideDistY += deltaDistY
			mapY += stepY
			side = 1
		}

		checkX := (float32(mapX)+0.5)*TileW - startX
		checkY := (float32(mapY)+0.5)*TileH - startY
		if checkX*checkX+checkY*checkY > maxDistSq {
			break
		}

		if m.IsSolid(mapX, mapY) {
			hit = true
		}
	}

	if !hit {
		return TraceResult{
			HitWall:  false,
			X:        startX + dirX*maxDistance,
			Y:        startY + dirY*maxDistance,
			Distance: maxDistance,
		}
	}

	if side == 0 {
		edge := mapX
		if stepX == -1 {
			edge++
		}
		x := float32(edge) * TileW
		y := startY + ((x-startX)/dirX)*dirY
		return TraceResult{HitWall: true, X: x, Y: y, Distance: absf((x - startX) / dirX)}
	}
	edge := mapY
	if stepY == -1 {
		edge++
	}
	y := float32(edge) * TileH
	x := startX + ((y-startY)/dirY)*dirX
	return TraceResult{HitWall: true, X: x, Y: y, Distance: absf((y - startY) / dirY)}
}

// ApplyHitActions resolves the tick's recorded hitscan and melee hits
// against the player table, applying damage and weapon push.
func ApplyHitActions(actions []HitAction, players []*PlayerState, events *[]EffectEvent) {
	for i := range actions {
		action := &actions[i]
		if action.Melee {
			target := findMeleeTarget(action.AttackerID, action.HitX, action.HitY, players)
			if target == nil {
				continue
			}
			ApplyDamage(action.AttackerID, target.ID, action.Damage, players, events)
			applyDirectionalPush(target, action.StartX, action.StartY, WeaponPush[action.Weapon])
			continue
		}

		target, t := findHitscanTarget(action.AttackerID, action.StartX, action.StartY, action.HitX, action.HitY, players)
		impactX := action.HitX
		impactY := action.HitY
		if target != nil {
			impactX = action.StartX + (action.HitX-action.StartX)*t
			impactY = action.StartY + (action.HitY-action.StartY)*t
		}

		switch action.Weapon {
		case WeaponRail:
			*events = append(*events, EventRail{StartX: action.StartX, StartY: action.StartY, EndX: impactX, EndY: impactY})
		case WeaponShaft:
			*events = append(*events, EventShaft{StartX: action.StartX, StartY: action.StartY, EndX: impactX, EndY: impactY})
		default:
			radius := float32(2.0)
			if action.Weapon == WeaponMachine {
				radius = 2.5
			}
			*events = append(*events, EventBulletImpact{X: impactX, Y: impactY, Radius: radius})
		}

		if target != nil {
			ApplyDamage(action.AttackerID, target.ID, action.Damage, players, events)
			applyDirectionalPush(target, action.StartX, action.StartY, WeaponPush[action.Weapon])
		}
	}
}

// findHitscanTarget projects each alive non-attacker onto the shot segment
// and accepts the closest one within HitscanPlayerRadius of the line.
func findHitscanTarget(attackerID uint64, startX, startY, endX, endY float32, players []*PlayerState) (*PlayerState, float32) {
	dx := endX - startX
	dy := endY - startY
	lenSq := dx*dx + dy*dy
	if lenSq == 0 {
		lenSq = 1
	}

	var closest *PlayerState
	closestT := float32(0)
	found := false

	for _, target := range players {
		if target.Dead || target.ID == attackerID {
			continue
		}
		t := ((target.X-startX)*dx + (target.Y-startY)*dy) / lenSq
		if t < 0 || t > 1 {
			continue
		}
		hitX := startX + dx*t
		hitY := startY + dy*t
		distX := target.X - hitX
		distY := target.Y - hitY
		if distX*distX+distY*distY > HitscanPlayerRadius*HitscanPlayerRadius {
			continue
		}
		if !found || t < closestT {
			found = true
			closestT = t
			closest = target
		}
	}
	return closest, closestT
}

// findMeleeTarget picks the nearest live non-attacker within
// GauntletPlayerRadius of the swing's hit point.
func findMeleeTarget(attackerID uint64, hitX, hitY float32, players []*PlayerState) *PlayerState {
	var closest *PlayerState
	closestDistSq := float32(0)

	for _, target := range players {
		if target.Dead || target.ID == attackerID {
			continue
		}
		dx := target.X - hitX
		dy := target.Y - hitY
		distSq := dx*dx + dy*dy
		if distSq > GauntletPlayerRadius*GauntletPlayerRadius {
			continue
		}
		if closest == nil || distSq < closestDistSq {
			closest = target
			closestDistSq = distSq
		}
	}
	return closest
}

// ApplyDamage runs the damage pipeline: quad multiplier, halved
// self-damage, armor absorption, floored health subtraction, death and a
// Damage event. Spawn protection blocks everything.
func ApplyDamage(attackerID, targetID uint64, damage float32, players []*PlayerState, events *[]EffectEvent) {
	attackerQuad := false
	for _, p := range players {
		if p.ID == attackerID {
			attackerQuad = p.QuadDamage
			break
		}
	}

	actual := damage
	if attackerQuad {
		actual *= QuadMultiplier
	}

	for _, p := range players {
		if p.ID != targetID {
			continue
		}
		if p.Dead || p.SpawnProtection > 0 {
			return
		}
		if attackerID == targetID {
			actual *= SelfDamageReduction
		}

		if p.Armor > 0 {
			armorDamage := int32(floorf(actual * ArmorAbsorption))
			absorbed := mini32(armorDamage, p.Armor)
			p.Armor -= absorbed
			actual -= float32(absorbed)
		}

		rounded := int32(floorf(actual))
		p.Health -= rounded
		killed := p.Health <= 0
		if killed {
			p.Dead = true
			p.RespawnTimer = RespawnTime
		}
		if rounded > 0 {
			*events = append(*events, EventDamage{
				AttackerID: attackerID,
				TargetID:   targetID,
				Amount:     rounded,
				Killed:     killed,
			})
		}
		return
	}
}

// RespawnIfReady revives a dead player whose respawn timer has elapsed:
// fresh loadout at a random spawn cell with spawn protection.
func RespawnIfReady(p *PlayerState, m *GridMap, rng *rand.Rand) {
	if !p.Dead || p.RespawnTimer > 0 {
		return
	}
	if row, col, ok := m.RandomRespawn(rng); ok {
		x := float32(col)*TileW + SpawnOffsetX
		y := float32(row)*TileH - PlayerHalfH
		p.SetXY(x, y, m)
		p.PrevX = p.X
		p.PrevY = p.Y
	}
	p.Health = MaxHealth
	p.Armor = 0
	p.Dead = false
	p.VelocityX = 0
	p.VelocityY = 0
	for i := range p.Weapons {
		p.Weapons[i] = true
	}
	p.Ammo = DefaultAmmo
	p.CurrentWeapon = WeaponRocket
	p.QuadDamage = false
	p.QuadTimer = 0
	p.SpawnProtection = SpawnProtection
}
