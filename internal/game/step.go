package game

// StepPlayer advances one player by one fixed 16 ms tick: counters, then
// integration and tile collision, then the jump state machine, crouch
// selection and horizontal acceleration. Dead players only tick counters.
//
// The order of operations and every constant here are exact; tests pin the
// trajectory with golden vectors.
func StepPlayer(p *PlayerState, input PlayerInput, m TileMap) {
	p.KeyUp = input.KeyUp
	p.KeyDown = input.KeyDown
	p.KeyLeft = input.KeyLeft
	p.KeyRight = input.KeyRight

	p.PrevX = p.X
	p.PrevY = p.Y

	p.TickCounters()
	if p.Dead {
		return
	}

	applyPhysics(p, m)
	if p.DoublejumpCountdown > 0 {
		p.DoublejumpCountdown--
	}
	if p.IsOnGround() {
		p.VelocityY = 0
	}

	handleJump(p)
	handleCrouch(p)
	handleHorizontalMovement(p)
}

func applyPhysics(p *PlayerState, m TileMap) {
	startX := p.X
	startY := p.Y

	// Gravity, with damping on the rising arc and acceleration on the way
	// down; the asymmetry is what gives jumps their snappy feel.
	p.VelocityY += 0.056
	if p.VelocityY > -1.0 && p.VelocityY < 0.0 {
		p.VelocityY /= 1.11
	}
	if p.VelocityY > 0.0 && p.VelocityY < 5.0 {
		p.VelocityY *= 1.1
	}

	if absf(p.VelocityX) > 0.2 {
		if p.KeyLeft == p.KeyRight {
			if p.IsOnGround() {
				p.VelocityX /= 1.14
			} else {
				p.VelocityX /= 1.025
			}
		}
	} else {
		p.VelocityX = 0
	}

	speedX := speedJumpBonus(p)
	p.SetXY(p.X+p.VelocityX+speedX, p.Y+p.VelocityY, m)

	if p.Crouch {
		if p.IsOnGround() && (p.IsBrickCrouchOnHead() || p.VelocityY > 0) {
			p.VelocityY = 0
			snap := float32(truncI32(roundf(p.Y)/TileH))*TileH + TileH/2
			p.SetXY(p.X, snap, m)
		} else if p.IsBrickCrouchOnHead() && p.VelocityY < 0 {
			p.VelocityY = 0
			p.DoublejumpCountdown = 3
			snap := float32(truncI32(roundf(p.Y)/TileH))*TileH + TileH/2
			p.SetXY(p.X, snap, m)
		}
	}

	if p.VelocityX != 0 {
		probeX := startX + WallProbeXRight
		if p.VelocityX < 0 {
			probeX = startX + WallProbeXLeft
		}
		col := truncI32(roundf(probeX) / TileW)

		checkY := startY
		headOff := float32(StandHeadOff)
		if p.Crouch {
			checkY = p.Y
			headOff = CrouchHeadOff
		}

		if m.IsSolid(col, truncI32(roundf(checkY-headOff)/TileH)) ||
			m.IsSolid(col, truncI32(roundf(checkY)/TileH)) ||
			m.IsSolid(col, truncI32(roundf(checkY+TileH)/TileH)) {
			snap := float32(truncI32(startX/TileW)) * TileW
			if p.VelocityX < 0 {
				snap += WallSnapLeft
			} else {
				snap += WallSnapRight
			}
			p.SetXY(snap, p.Y, m)
			p.VelocityX = 0
			p.SpeedJump = 0
		}
	}

	if p.IsOnGround() && (p.IsBrickOnHead() || p.VelocityY > 0) {
		p.VelocityY = 0
		snap := float32(truncI32(roundf(p.Y)/TileH))*TileH + TileH/2
		p.SetXY(p.X, snap, m)
	} else if p.IsBrickOnHead() && p.VelocityY < 0 {
		p.VelocityY = 0
		p.DoublejumpCountdown = 3
	}

	p.VelocityX = clampf(p.VelocityX, -PlayerVelocityClamp, PlayerVelocityClamp)
	p.VelocityY = clampf(p.VelocityY, -PlayerVelocityClamp, PlayerVelocityClamp)
}

func handleJump(p *PlayerState) {
	keysChanged := p.KeyUp != p.LastKeyUp ||
		(p.KeyLeft && p.SpeedJumpDir != -1) ||
		(p.KeyRight && p.SpeedJumpDir != 1)

	if p.SpeedJump > 0 && keysChanged {
		p.SpeedJump = 0
	}

	p.LastKeyUp = p.KeyUp
	jumped := false

	if p.KeyUp && p.IsOnGround() && !p.IsBrickOnHead() && !p.LastWasJump {
		isDoubleJump := p.DoublejumpCountdown > 4 && p.DoublejumpCountdown < 11

		if isDoubleJump {
			p.DoublejumpCountdown = 14
			p.VelocityY = -3.0

			var totalSpeedX float32
			if p.VelocityX != 0 {
				totalSpeedX = absf(p.VelocityX) + SpeedJumpX[p.SpeedJump]
			}
			if totalSpeedX > 3.0 {
				p.VelocityY -= totalSpeedX - 3.0
			}
			p.Crouch = false
		} else {
			if p.DoublejumpCountdown == 0 {
				p.DoublejumpCountdown = 14
			}
			p.VelocityY = -2.9 + SpeedJumpY[p.SpeedJump]

			if p.SpeedJump < 6 && !p.LastWasJump && p.KeyLeft != p.KeyRight {
				if p.KeyLeft {
					p.SpeedJumpDir = -1
				} else {
					p.SpeedJumpDir = 1
				}
				p.SpeedJump++
			}
		}
		jumped = true
	} else if p.IsOnGround() && p.SpeedJump > 0 && !p.KeyDown {
		p.SpeedJump = 0
	}

	p.LastWasJump = jumped
}

func handleCrouch(p *PlayerState) {
	if !p.KeyUp && p.KeyDown {
		p.Crouch = p.IsOnGround() || p.IsBrickCrouchOnHead()
	} else {
		p.Crouch = p.IsOnGround() && p.IsBrickCrouchOnHead()
	}
}

func handleHorizontalMovement(p *PlayerState) {
	if p.KeyLeft == p.KeyRight {
		return
	}

	maxVel := float32(PlayerMaxVelocityX)
	if p.Crouch {
		maxVel -= 1.0
	}

	sign := float32(1)
	if p.KeyLeft {
		sign = -1
	}
	if p.VelocityX*sign < 0 {
		p.VelocityX += sign * 0.8
	}

	absVel := absf(p.VelocityX)
	if absVel < maxVel {
		p.VelocityX += sign * 0.35
	} else if absVel > maxVel {
		p.VelocityX = sign * maxVel
	}
}

func speedJumpBonus(p *PlayerState) float32 {
	if p.VelocityX == 0 {
		return 0
	}
	return signf(p.VelocityX) * SpeedJumpX[p.SpeedJump]
}
