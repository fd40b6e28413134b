package game

import (
	"math"
	"testing"
)

// goldenVector pins the physics step against known trajectories; y and vy
// must match to within 1e-4 after the given number of ticks.
type goldenVector struct {
	name       string
	m          *GridMap
	startX     float32
	startY     float32
	ticks      int
	expectedY  float32
	expectedVY float32
}

func goldenVectors() []goldenVector {
	openMap := NewGridMap(8, 8, make([]uint8, 64))

	floorBricks := make([]uint8, 64)
	for col := 0; col < 8; col++ {
		floorBricks[7*8+col] = 1
	}
	floorMap := NewGridMap(8, 8, floorBricks)

	return []goldenVector{
		{
			name:       "open map fall",
			m:          openMap,
			startX:     64,
			startY:     32,
			ticks:      10,
			expectedY:  36.639202,
			expectedVY: 0.98174554,
		},
		{
			name:       "floor collision",
			m:          floorMap,
			startX:     64,
			startY:     80,
			ticks:      20,
			expectedY:  88.0,
			expectedVY: 0.0,
		},
	}
}

func TestStepPlayerGoldenVectors(t *testing.T) {
	for _, vector := range goldenVectors() {
		t.Run(vector.name, func(t *testing.T) {
			p := NewPlayerState(1)
			p.X = vector.startX
			p.Y = vector.startY
			p.RecomputeCaches(vector.m)

			for i := 0; i < vector.ticks; i++ {
				StepPlayer(p, PlayerInput{}, vector.m)
			}

			if math.Abs(float64(p.Y-vector.expectedY)) > 1e-4 {
				t.Errorf("y mismatch: got %v expected %v", p.Y, vector.expectedY)
			}
			if math.Abs(float64(p.VelocityY-vector.expectedVY)) > 1e-4 {
				t.Errorf("vy mismatch: got %v expected %v", p.VelocityY, vector.expectedVY)
			}
		})
	}
}

func TestStepPlayerVelocityStaysClamped(t *testing.T) {
	m := NewGridMap(32, 32, make([]uint8, 32*32))
	p := NewPlayerState(1)
	p.X = 256
	p.Y = 64
	p.RecomputeCaches(m)

	input := PlayerInput{KeyRight: true}
	for i := 0; i < 200; i++ {
		StepPlayer(p, input, m)

		if absf(p.VelocityX) > PlayerVelocityClamp || absf(p.VelocityY) > PlayerVelocityClamp {
			t.Fatalf("tick %d: velocity escaped clamp: vx=%v vy=%v", i, p.VelocityX, p.VelocityY)
		}
		if math.IsNaN(float64(p.X)) || math.IsNaN(float64(p.Y)) ||
			math.IsInf(float64(p.X), 0) || math.IsInf(float64(p.Y), 0) {
			t.Fatalf("tick %d: position not finite: x=%v y=%v", i, p.X, p.Y)
		}
	}
}

func TestStepPlayerDeadSkipsPhysics(t *testing.T) {
	m := NewGridMap(8, 8, make([]uint8, 64))
	p := NewPlayerState(1)
	p.X = 64
	p.Y = 32
	p.RecomputeCaches(m)
	p.Dead = true
	p.RespawnTimer = 10

	StepPlayer(p, PlayerInput{}, m)

	if p.Y != 32 || p.VelocityY != 0 {
		t.Errorf("dead player moved: y=%v vy=%v", p.Y, p.VelocityY)
	}
	if p.RespawnTimer != 9 {
		t.Errorf("respawn timer not decremented: %d", p.RespawnTimer)
	}
}

func TestJumpFromGround(t *testing.T) {
	bricks := make([]uint8, 64)
	for col := 0; col < 8; col++ {
		bricks[7*8+col] = 1
	}
	m := NewGridMap(8, 8, bricks)

	p := NewPlayerState(1)
	p.X = 64
	p.Y = 88 // resting on the floor row
	p.RecomputeCaches(m)

	// Settle first so the ground cache is authoritative.
	for i := 0; i < 5; i++ {
		StepPlayer(p, PlayerInput{}, m)
	}
	StepPlayer(p, PlayerInput{KeyUp: true}, m)

	if p.VelocityY >= 0 {
		t.Errorf("expected upward velocity after jump, got vy=%v", p.VelocityY)
	}
	if !p.LastWasJump {
		t.Error("jump flag not set")
	}
}

func TestHeldJumpDoesNotRetriggerMidAir(t *testing.T) {
	bricks := make([]uint8, 64)
	for col := 0; col < 8; col++ {
		bricks[7*8+col] = 1
	}
	m := NewGridMap(8, 8, bricks)

	p := NewPlayerState(1)
	p.X = 64
	p.Y = 88
	p.RecomputeCaches(m)
	for i := 0; i < 5; i++ {
		StepPlayer(p, PlayerInput{}, m)
	}

	// Holding the key: the first grounded tick jumps, and the tick after it
	// is airborne, so it must not jump again.
	StepPlayer(p, PlayerInput{KeyUp: true}, m)
	firstJump := p.LastWasJump
	StepPlayer(p, PlayerInput{KeyUp: true}, m)

	if !firstJump {
		t.Fatal("first grounded key_up tick should jump")
	}
	if p.LastWasJump {
		t.Error("held key_up must not re-trigger a jump mid-air")
	}
}

func TestSpeedJumpResetsOnDirectionChange(t *testing.T) {
	p := NewPlayerState(1)
	p.SpeedJump = 3
	p.SpeedJumpDir = 1
	p.KeyLeft = true
	p.LastKeyUp = p.KeyUp

	handleJump(p)

	if p.SpeedJump != 0 {
		t.Errorf("speed_jump should reset on direction change, got %d", p.SpeedJump)
	}
}

func TestCrouchRequiresGroundOrLowCeiling(t *testing.T) {
	p := NewPlayerState(1)

	// Airborne with down held: no crouch.
	p.KeyDown = true
	p.cacheOnGround = false
	p.cacheBrickCrouchOnHead = false
	handleCrouch(p)
	if p.Crouch {
		t.Error("airborne crouch without ceiling should not engage")
	}

	// Grounded with down held: crouch.
	p.cacheOnGround = true
	handleCrouch(p)
	if !p.Crouch {
		t.Error("grounded crouch should engage")
	}

	// Down released but stuck under a low ceiling: crouch stays forced.
	p.KeyDown = false
	p.cacheBrickCrouchOnHead = true
	handleCrouch(p)
	if !p.Crouch {
		t.Error("low ceiling must force crouch")
	}
}

func TestHorizontalMovementCapsAtMax(t *testing.T) {
	p := NewPlayerState(1)
	p.KeyRight = true

	for i := 0; i < 50; i++ {
		handleHorizontalMovement(p)
	}
	if p.VelocityX != PlayerMaxVelocityX {
		t.Errorf("expected vx capped at %v, got %v", float32(PlayerMaxVelocityX), p.VelocityX)
	}

	p.Crouch = true
	handleHorizontalMovement(p)
	if p.VelocityX != PlayerMaxVelocityX-1 {
		t.Errorf("crouch should lower the cap to %v, got %v", float32(PlayerMaxVelocityX-1), p.VelocityX)
	}
}

func BenchmarkStepPlayer(b *testing.B) {
	bricks := make([]uint8, 64*64)
	for col := 0; col < 64; col++ {
		bricks[63*64+col] = 1
	}
	m := NewGridMap(64, 64, bricks)
	p := NewPlayerState(1)
	p.X = 512
	p.Y = 200
	p.RecomputeCaches(m)
	input := PlayerInput{KeyRight: true}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		StepPlayer(p, input, m)
	}
}
