package game

import "testing"

func itemAt(kind ItemKind, row, col int32) MapItem {
	return MapItem{Kind: kind, Row: row, Col: col, Active: true}
}

func playerAtItem(item *MapItem) *PlayerState {
	p := NewPlayerState(1)
	p.X = item.CenterX()
	p.Y = item.CenterY()
	return p
}

func TestPickupHealthCaps(t *testing.T) {
	tests := []struct {
		name       string
		kind       ItemKind
		health     int32
		wantHealth int32
	}{
		{"health5", ItemHealth5, 50, 55},
		{"health25", ItemHealth25, 90, 100},
		{"health50 caps at max", ItemHealth50, 80, 100},
		{"mega goes over max", ItemHealth100, 90, 190},
		{"mega caps at 200", ItemHealth100, 150, 200},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items := []MapItem{itemAt(tt.kind, 2, 2)}
			p := playerAtItem(&items[0])
			p.Health = tt.health

			ProcessItemPickups([]*PlayerState{p}, items)

			if p.Health != tt.wantHealth {
				t.Errorf("health = %d, want %d", p.Health, tt.wantHealth)
			}
			if items[0].Active {
				t.Error("item should deactivate on pickup")
			}
			if items[0].RespawnTimer != tt.kind.RespawnTime() {
				t.Errorf("respawn timer = %d, want %d", items[0].RespawnTimer, tt.kind.RespawnTime())
			}
		})
	}
}

func TestPickupArmorCaps(t *testing.T) {
	items := []MapItem{itemAt(ItemArmor100, 2, 2)}
	p := playerAtItem(&items[0])
	p.Armor = 150

	ProcessItemPickups([]*PlayerState{p}, items)

	if p.Armor != MaxArmor {
		t.Errorf("armor = %d, want %d", p.Armor, MaxArmor)
	}
}

func TestPickupQuad(t *testing.T) {
	items := []MapItem{itemAt(ItemQuad, 2, 2)}
	p := playerAtItem(&items[0])

	ProcessItemPickups([]*PlayerState{p}, items)

	if !p.QuadDamage || p.QuadTimer != QuadDuration {
		t.Errorf("quad not granted: flag=%v timer=%d", p.QuadDamage, p.QuadTimer)
	}
}

func TestPickupWeaponAmmo(t *testing.T) {
	items := []MapItem{itemAt(ItemWeaponMachine, 2, 2)}
	p := playerAtItem(&items[0])
	p.Ammo[WeaponMachine] = 10

	ProcessItemPickups([]*PlayerState{p}, items)

	if p.Ammo[WeaponMachine] != 60 {
		t.Errorf("machine ammo = %d, want 60", p.Ammo[WeaponMachine])
	}
}

func TestPickupRequiresProximity(t *testing.T) {
	items := []MapItem{itemAt(ItemHealth25, 2, 2)}
	p := playerAtItem(&items[0])
	p.X += PickupRadius + 1
	p.Health = 50

	ProcessItemPickups([]*PlayerState{p}, items)

	if p.Health != 50 || !items[0].Active {
		t.Error("out-of-range player must not pick up the item")
	}
}

func TestPickupIgnoresDeadPlayers(t *testing.T) {
	items := []MapItem{itemAt(ItemHealth25, 2, 2)}
	p := playerAtItem(&items[0])
	p.Dead = true
	p.Health = 0

	ProcessItemPickups([]*PlayerState{p}, items)

	if !items[0].Active {
		t.Error("dead players must not consume items")
	}
}

func TestFirstPlayerWinsPickup(t *testing.T) {
	items := []MapItem{itemAt(ItemHealth50, 2, 2)}
	first := playerAtItem(&items[0])
	first.Health = 50
	second := NewPlayerState(2)
	second.X = items[0].CenterX()
	second.Y = items[0].CenterY()
	second.Health = 50

	ProcessItemPickups([]*PlayerState{first, second}, items)

	if first.Health != 100 {
		t.Errorf("first player should consume the item: health=%d", first.Health)
	}
	if second.Health != 50 {
		t.Errorf("second player must not also consume it: health=%d", second.Health)
	}
}

func TestItemRespawnCycle(t *testing.T) {
	items := []MapItem{itemAt(ItemHealth5, 2, 2)}
	p := playerAtItem(&items[0])
	p.Health = 50

	ProcessItemPickups([]*PlayerState{p}, items)
	if items[0].Active {
		t.Fatal("item should be inactive after pickup")
	}

	// No player nearby; run the respawn countdown dry.
	far := NewPlayerState(2)
	far.X, far.Y = 500, 500
	for i := int32(0); i < items[0].Kind.RespawnTime(); i++ {
		ProcessItemPickups([]*PlayerState{far}, items)
	}

	if !items[0].Active {
		t.Error("item should reactivate after its respawn time")
	}
}
