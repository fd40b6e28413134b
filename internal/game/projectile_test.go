package game

import "testing"

func spawnProjectile(kind ProjectileKind, x, y, vx, vy float32) Projectile {
	return Projectile{
		ID:        1,
		Kind:      kind,
		X:         x,
		Y:         y,
		PrevX:     x,
		PrevY:     y,
		VelocityX: vx,
		VelocityY: vy,
		OwnerID:   1,
		Active:    true,
	}
}

func TestRocketExplodesOnWall(t *testing.T) {
	m := emptyMap(8, 8)
	m.SetBrick(4, 2, true) // wall at x 128..160, y 32..48

	projectiles := []Projectile{spawnProjectile(ProjRocket, 120, 40, 6, 0)}
	var events []EffectEvent
	var explosions []Explosion

	for i := 0; i < 5 && len(explosions) == 0; i++ {
		UpdateProjectiles(m, &projectiles, &events, &explosions)
	}

	if len(explosions) != 1 {
		t.Fatalf("expected 1 explosion, got %d", len(explosions))
	}
	if explosions[0].Kind != ProjRocket {
		t.Errorf("wrong explosion kind: %v", explosions[0].Kind)
	}
	if len(projectiles) != 0 {
		t.Error("exploded projectile must be removed")
	}

	removed := false
	for _, ev := range events {
		if _, ok := ev.(EventProjectileRemove); ok {
			removed = true
		}
	}
	if !removed {
		t.Error("expected a ProjectileRemove event")
	}
}

func TestGrenadeBouncesOffWall(t *testing.T) {
	m := emptyMap(8, 8)
	m.SetBrick(4, 2, true)

	projectiles := []Projectile{spawnProjectile(ProjGrenade, 124, 40, 6, 0)}
	var events []EffectEvent
	var explosions []Explosion

	UpdateProjectiles(m, &projectiles, &events, &explosions)

	if len(explosions) != 0 {
		t.Fatal("grenade must bounce, not explode")
	}
	if len(projectiles) != 1 {
		t.Fatal("grenade removed on bounce")
	}
	if projectiles[0].VelocityX >= 0 {
		t.Errorf("x velocity not reflected: %v", projectiles[0].VelocityX)
	}
}

func TestGrenadeRestsWhenSlow(t *testing.T) {
	m := emptyMap(8, 8)
	m.SetBrick(4, 2, true)

	// Slow enough that the reflected components both fall below the
	// minimum velocity on impact. A small upward (negative) vertical
	// velocity keeps gravity from pushing |vy| past the threshold, and the
	// start x puts the first step into the brick column.
	projectiles := []Projectile{spawnProjectile(ProjGrenade, 127.8, 40, 0.5, -0.4)}
	var events []EffectEvent
	var explosions []Explosion

	UpdateProjectiles(m, &projectiles, &events, &explosions)

	if len(projectiles) != 1 {
		t.Fatal("grenade should persist at rest")
	}
	g := projectiles[0]
	if g.VelocityX != 0 || g.VelocityY != 0 {
		t.Errorf("expected rest, got v=(%v, %v)", g.VelocityX, g.VelocityY)
	}
}

func TestGrenadeFuseExpiry(t *testing.T) {
	m := emptyMap(64, 64)
	projectiles := []Projectile{spawnProjectile(ProjGrenade, 512, 100, 0, 0)}
	var events []EffectEvent
	var explosions []Explosion

	for i := 0; i <= GrenadeFuse+1 && len(explosions) == 0; i++ {
		UpdateProjectiles(m, &projectiles, &events, &explosions)
	}

	if len(explosions) != 1 {
		t.Fatalf("grenade fuse did not fire within %d ticks", GrenadeFuse+1)
	}
	if explosions[0].Kind != ProjGrenade {
		t.Errorf("wrong kind: %v", explosions[0].Kind)
	}
}

func TestProjectileOutOfBoundsDeactivatesWithoutExplosion(t *testing.T) {
	m := emptyMap(8, 8) // 256x128 px playfield

	// Out-of-range cells are solid, so other kinds explode at the perimeter;
	// a grenade bounces there and is culled once it is past the margin.
	projectiles := []Projectile{spawnProjectile(ProjGrenade, 250, -110, 0, -20)}
	var events []EffectEvent
	var explosions []Explosion

	UpdateProjectiles(m, &projectiles, &events, &explosions)

	if len(projectiles) != 0 {
		t.Fatal("out-of-bounds projectile must be culled")
	}
	if len(explosions) != 0 {
		t.Error("bounds cull must not explode")
	}
	removed := false
	for _, ev := range events {
		if _, ok := ev.(EventProjectileRemove); ok {
			removed = true
		}
	}
	if !removed {
		t.Error("bounds cull must still emit ProjectileRemove")
	}
}

func TestProjectileHitRespectsSelfGrace(t *testing.T) {
	owner := NewPlayerState(1)
	owner.X, owner.Y = 100, 100
	players := []*PlayerState{owner}

	proj := spawnProjectile(ProjRocket, 100, 100, 0, 0)
	proj.Age = SelfHitGrace - 1
	projectiles := []Projectile{proj}
	var events []EffectEvent
	var explosions []Explosion

	ApplyProjectileHits(&projectiles, players, &events, &explosions)
	if len(explosions) != 0 {
		t.Fatal("owner must be immune inside the grace window")
	}

	projectiles[0].Age = SelfHitGrace
	ApplyProjectileHits(&projectiles, players, &events, &explosions)
	if len(explosions) != 1 {
		t.Fatal("owner contact after grace should detonate")
	}
}

func TestGrenadeHitGraceAppliesToEveryone(t *testing.T) {
	victim := NewPlayerState(2)
	victim.X, victim.Y = 100, 100
	players := []*PlayerState{victim}

	proj := spawnProjectile(ProjGrenade, 100, 100, 0, 0)
	proj.Age = GrenadeHitGrace - 1
	projectiles := []Projectile{proj}
	var events []EffectEvent
	var explosions []Explosion

	ApplyProjectileHits(&projectiles, players, &events, &explosions)
	if len(explosions) != 0 {
		t.Fatal("grenade must not arm before its grace window elapses")
	}
}

func TestPlasmaDirectDamage(t *testing.T) {
	owner := NewPlayerState(1)
	owner.X, owner.Y = 0, 0
	victim := NewPlayerState(2)
	victim.X, victim.Y = 100, 100
	players := []*PlayerState{owner, victim}

	proj := spawnProjectile(ProjPlasma, 100, 100, 0, 0)
	proj.Age = SelfHitGrace
	projectiles := []Projectile{proj}
	var events []EffectEvent
	var explosions []Explosion

	ApplyProjectileHits(&projectiles, players, &events, &explosions)

	if victim.Health != MaxHealth-int32(WeaponDamage[WeaponPlasma]) {
		t.Errorf("plasma direct damage missing: health=%d", victim.Health)
	}
	if len(explosions) != 1 {
		t.Error("plasma contact should still splash")
	}
}

func TestRocketHasNoDirectDamage(t *testing.T) {
	owner := NewPlayerState(1)
	victim := NewPlayerState(2)
	victim.X, victim.Y = 500, 500
	players := []*PlayerState{owner, victim}

	proj := spawnProjectile(ProjRocket, 500, 500, 0, 0)
	proj.Age = SelfHitGrace
	projectiles := []Projectile{proj}
	var events []EffectEvent
	var explosions []Explosion

	ApplyProjectileHits(&projectiles, players, &events, &explosions)

	// Contact detonates but direct damage is zero; the splash phase is
	// responsible for the hurt.
	if victim.Health != MaxHealth {
		t.Errorf("rocket should not deal direct damage: health=%d", victim.Health)
	}
	if len(explosions) != 1 {
		t.Error("rocket contact should detonate")
	}
}

func TestExplosionSplashAndKnockback(t *testing.T) {
	attacker := NewPlayerState(1)
	attacker.X, attacker.Y = 100, 100
	victim := NewPlayerState(2)
	victim.X, victim.Y = 120, 100
	players := []*PlayerState{attacker, victim}

	// Rocket explosion just left of the victim.
	explosions := []Explosion{{X: 118, Y: 100, Kind: ProjRocket, OwnerID: 1}}
	var events []EffectEvent
	var pending []PendingHit

	ApplyExplosions(explosions, players, &events, &pending)

	if victim.Health >= MaxHealth {
		t.Error("victim in splash radius should take damage")
	}
	if victim.VelocityX <= 0 {
		t.Errorf("source left of victim must push right: vx=%v", victim.VelocityX)
	}
}

func TestExplosionFalloffBands(t *testing.T) {
	const base = 100.0
	const radius = 60.0

	if got := SplashFalloff(base, radius, 0); got != base {
		t.Errorf("zero distance should deal full damage, got %v", got)
	}
	if got := SplashFalloff(base, radius, 10); got != base {
		t.Errorf("inner band should deal full damage, got %v", got)
	}
	// Middle band at d=30: (2*60 - 90 + 40)/100 = 0.7
	if got := SplashFalloff(base, radius, 30); absf(got-70) > 1e-3 {
		t.Errorf("middle band wrong: got %v want 70", got)
	}
	// Outer band at d=50: ((60-50)*60/60 + 20)/100 = 0.3
	if got := SplashFalloff(base, radius, 50); absf(got-30) > 1e-3 {
		t.Errorf("outer band wrong: got %v want 30", got)
	}
}

func TestExplosionSkipsDeadPlayers(t *testing.T) {
	attacker := NewPlayerState(1)
	dead := NewPlayerState(2)
	dead.X, dead.Y = 110, 100
	dead.Dead = true
	players := []*PlayerState{attacker, dead}

	explosions := []Explosion{{X: 100, Y: 100, Kind: ProjRocket, OwnerID: 1}}
	var events []EffectEvent
	var pending []PendingHit

	ApplyExplosions(explosions, players, &events, &pending)

	if dead.VelocityX != 0 {
		t.Error("dead players must not be pushed")
	}
}

func TestQuadScalesExplosionPush(t *testing.T) {
	run := func(quad bool) float32 {
		attacker := NewPlayerState(1)
		attacker.QuadDamage = quad
		victim := NewPlayerState(2)
		victim.X, victim.Y = 120, 100
		players := []*PlayerState{attacker, victim}

		explosions := []Explosion{{X: 110, Y: 100, Kind: ProjRocket, OwnerID: 1}}
		var events []EffectEvent
		var pending []PendingHit
		ApplyExplosions(explosions, players, &events, &pending)
		return victim.VelocityX
	}

	plain := run(false)
	quad := run(true)
	if absf(quad-plain*QuadMultiplier) > 1e-4 {
		t.Errorf("quad push should be tripled: plain=%v quad=%v", plain, quad)
	}
}
