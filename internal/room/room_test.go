package room

import (
	"testing"
	"time"

	"github.com/evgenius1424/need-for-fun/internal/game"
	"github.com/evgenius1424/need-for-fun/internal/protocol"
)

func testMap() *game.GridMap {
	m := game.NewGridMap(16, 16, make([]uint8, 256))
	m.SetRespawns([][2]int32{{8, 4}})
	return m
}

func testConfig(name string, maxPlayers int) Config {
	return Config{
		Name:            name,
		MaxPlayers:      maxPlayers,
		MapID:           "test",
		Mode:            "deathmatch",
		TickRate:        60,
		ProtocolVersion: "1",
	}
}

func newTestRoom(t *testing.T, name string, maxPlayers int) *Handle {
	t.Helper()
	h := NewHandle("room-"+name, testMap(), testConfig(name, maxPlayers), time.Now(), nil)
	t.Cleanup(func() { h.BeginClose("test_teardown") })
	return h
}

// drain keeps an outbound queue empty so broadcasts never evict the
// player under test.
func drain(t *testing.T, out *Outbound) {
	t.Helper()
	done := make(chan struct{})
	t.Cleanup(func() { close(done) })
	go func() {
		for {
			select {
			case <-out.Recv():
			case <-done:
				return
			}
		}
	}()
}

func TestJoinReturnsRoomState(t *testing.T) {
	h := newTestRoom(t, "alpha", 8)
	out := NewOutbound()
	drain(t, out)

	frame, err := h.Join(1, "alice", out)
	if err != nil {
		t.Fatalf("join failed: %v", err)
	}
	if frame[0] != protocol.MsgRoomState {
		t.Fatalf("expected RoomState frame, got tag %#x", frame[0])
	}
	if frame[3] != 1 {
		t.Errorf("expected 1 player in room state, got %d", frame[3])
	}
	if !h.ContainsPlayer(1) {
		t.Error("player should be a member after join")
	}
}

func TestJoinIdempotentRejoin(t *testing.T) {
	h := newTestRoom(t, "rejoin", 8)
	out1 := NewOutbound()
	drain(t, out1)

	if _, err := h.Join(7, "old-name", out1); err != nil {
		t.Fatalf("first join: %v", err)
	}

	// A fresh sender and name; membership must stay size 1 and the
	// physics state must survive.
	out2 := NewOutbound()
	drain(t, out2)
	frame, err := h.Join(7, "new-name", out2)
	if err != nil {
		t.Fatalf("rejoin: %v", err)
	}
	if frame[3] != 1 {
		t.Errorf("rejoin must not duplicate the player: count=%d", frame[3])
	}

	info, ok := h.Info()
	if !ok {
		t.Fatal("info failed")
	}
	if len(info.Players) != 1 {
		t.Fatalf("expected 1 member, got %d", len(info.Players))
	}
	if info.Players[0].Username != "new-name" {
		t.Errorf("username should update on rejoin: %q", info.Players[0].Username)
	}
}

func TestJoinRejectsWhenFull(t *testing.T) {
	h := newTestRoom(t, "beta", 1)
	out1 := NewOutbound()
	drain(t, out1)
	out2 := NewOutbound()

	if _, err := h.Join(1, "p1", out1); err != nil {
		t.Fatalf("first join: %v", err)
	}
	if _, err := h.Join(2, "p2", out2); err != ErrRoomFull {
		t.Fatalf("expected ErrRoomFull, got %v", err)
	}

	// P1 must not have seen a PlayerJoined for the rejected P2. The only
	// frames on out1 should be snapshots.
	deadline := time.After(100 * time.Millisecond)
	for {
		select {
		case frame := <-out1.Recv():
			if frame[0] == protocol.MsgPlayerJoined {
				t.Fatal("rejected join must not be broadcast")
			}
		case <-deadline:
			return
		}
	}
}

func TestLeaveIsIdempotentAndClosesEmptyRoom(t *testing.T) {
	h := NewHandle("room-gone", testMap(), testConfig("gone", 4), time.Now(), nil)
	out := NewOutbound()
	drain(t, out)

	if _, err := h.Join(5, "p5", out); err != nil {
		t.Fatalf("join: %v", err)
	}

	h.Leave(5)
	h.Leave(5) // second leave is a no-op

	select {
	case <-h.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("empty room should terminate")
	}
}

func TestKickSendsKickedFrame(t *testing.T) {
	h := newTestRoom(t, "kick", 4)
	kicked := NewOutbound()
	observer := NewOutbound()
	drain(t, observer)

	if _, err := h.Join(1, "victim", kicked); err != nil {
		t.Fatalf("join: %v", err)
	}
	if _, err := h.Join(2, "observer", observer); err != nil {
		t.Fatalf("join: %v", err)
	}

	if !h.Kick(1, "admin_kick") {
		t.Fatal("kick should report removal")
	}
	if h.ContainsPlayer(1) {
		t.Error("kicked player should be gone")
	}

	sawKicked := false
	deadline := time.After(200 * time.Millisecond)
	for !sawKicked {
		select {
		case frame := <-kicked.Recv():
			if frame[0] == protocol.MsgKicked {
				sawKicked = true
			}
		case <-deadline:
			t.Fatal("kicked player never received the Kicked frame")
		}
	}

	if h.Kick(1, "again") {
		t.Error("kicking an absent player should report false")
	}
}

func TestInputSequenceFiltering(t *testing.T) {
	h := newTestRoom(t, "seq", 4)
	out := NewOutbound()
	drain(t, out)

	if _, err := h.Join(3, "p3", out); err != nil {
		t.Fatalf("join: %v", err)
	}

	h.SetInput(3, 10, Input{KeyUp: true, WeaponSwitch: -1})
	h.SetInput(3, 9, Input{KeyDown: true, WeaponSwitch: -1}) // stale, must be ignored

	waitForTicks(t, h, 2)

	snap := awaitSnapshot(t, out)
	rec := parseFirstPlayerRecord(t, snap)
	if rec.lastInputSeq != 10 {
		t.Errorf("last_input_seq = %d, want 10", rec.lastInputSeq)
	}
	if !rec.keyUp || rec.keyDown {
		t.Errorf("stored input should reflect seq 10: up=%v down=%v", rec.keyUp, rec.keyDown)
	}
}

func TestSnapshotCadence(t *testing.T) {
	h := newTestRoom(t, "cadence", 4)
	out := NewOutboundWithCapacity(256)

	if _, err := h.Join(1, "alice", out); err != nil {
		t.Fatalf("join: %v", err)
	}

	// Over ~32 ticks (533 ms) at SnapshotIntervalTicks=2 we expect about
	// 16 snapshots; allow scheduler slack in both directions.
	time.Sleep(533 * time.Millisecond)
	h.BeginClose("done")
	<-h.Done()

	snapshots := 0
	for {
		select {
		case frame := <-out.Recv():
			if frame[0] == protocol.MsgSnapshot {
				snapshots++
			}
		default:
			if snapshots < 10 || snapshots > 22 {
				t.Errorf("expected ~16 snapshots over 533ms, got %d", snapshots)
			}
			return
		}
	}
}

func TestSlowClientIsEvicted(t *testing.T) {
	h := NewHandle("room-slow", testMap(), testConfig("slow", 4), time.Now(), nil)
	// Capacity 1 and nobody draining: fills immediately.
	slow := NewOutboundWithCapacity(1)

	if _, err := h.Join(1, "laggard", slow); err != nil {
		t.Fatalf("join: %v", err)
	}

	// Once the queue jams, the room evicts the player and, being empty,
	// shuts down.
	select {
	case <-h.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("slow client was not evicted")
	}
}

func TestClosedSessionIsDropped(t *testing.T) {
	h := NewHandle("room-closed-q", testMap(), testConfig("closedq", 4), time.Now(), nil)
	out := NewOutbound()

	if _, err := h.Join(1, "ghost", out); err != nil {
		t.Fatalf("join: %v", err)
	}
	out.Close()

	select {
	case <-h.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("closed-queue client was not dropped")
	}
}

func TestBeginCloseBroadcastsReason(t *testing.T) {
	h := NewHandle("room-closing", testMap(), testConfig("closing", 4), time.Now(), nil)
	out := NewOutboundWithCapacity(256)

	if _, err := h.Join(1, "p1", out); err != nil {
		t.Fatalf("join: %v", err)
	}

	h.BeginClose("maintenance")
	<-h.Done()

	sawClose := false
	for {
		select {
		case frame := <-out.Recv():
			if frame[0] == protocol.MsgRoomClosed {
				sawClose = true
				reason := string(frame[2 : 2+int(frame[1])])
				if reason != "maintenance" {
					t.Errorf("close reason = %q", reason)
				}
			}
		default:
			if !sawClose {
				t.Error("RoomClosed frame not broadcast")
			}
			return
		}
	}
}

func TestJoinAfterCloseRejected(t *testing.T) {
	h := NewHandle("room-dead", testMap(), testConfig("dead", 4), time.Now(), nil)
	h.BeginClose("teardown")
	<-h.Done()

	out := NewOutbound()
	if _, err := h.Join(1, "late", out); err != ErrRoomClosing {
		t.Fatalf("expected ErrRoomClosing, got %v", err)
	}
}

func TestSetMaxPlayersRejectsBelowPopulation(t *testing.T) {
	h := newTestRoom(t, "resize", 4)
	out1 := NewOutbound()
	out2 := NewOutbound()
	drain(t, out1)
	drain(t, out2)

	h.Join(1, "a", out1)
	h.Join(2, "b", out2)

	if err := h.SetMaxPlayers(1); err == nil {
		t.Error("shrinking below the population must fail")
	}
	if err := h.SetMaxPlayers(4); err != nil {
		t.Errorf("valid resize failed: %v", err)
	}
}

func TestRenameUpdatesSummary(t *testing.T) {
	h := newTestRoom(t, "old", 4)
	h.Rename("new")

	deadline := time.After(time.Second)
	for {
		summary, ok := h.Summary()
		if !ok {
			t.Fatal("summary failed")
		}
		if summary.Name == "new" {
			return
		}
		select {
		case <-deadline:
			t.Fatalf("rename not applied, name=%q", summary.Name)
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestWeaponScrollSkipsUnowned(t *testing.T) {
	state := game.NewPlayerState(1)
	state.CurrentWeapon = game.WeaponRocket
	state.Weapons[game.WeaponRail] = false

	in := Input{WeaponSwitch: -1, WeaponScroll: 1}
	applyInputToState(&in, state)

	if state.CurrentWeapon != game.WeaponPlasma {
		t.Errorf("scroll should skip unowned rail: weapon=%d", state.CurrentWeapon)
	}
}

func TestWeaponScrollWrapsAround(t *testing.T) {
	state := game.NewPlayerState(1)
	state.CurrentWeapon = game.WeaponBFG

	in := Input{WeaponSwitch: -1, WeaponScroll: 1}
	applyInputToState(&in, state)

	if state.CurrentWeapon != game.WeaponGauntlet {
		t.Errorf("scroll should wrap to slot 0: weapon=%d", state.CurrentWeapon)
	}
}

func TestWeaponSwitchRequiresOwnership(t *testing.T) {
	state := game.NewPlayerState(1)
	state.Weapons[game.WeaponRail] = false

	in := Input{WeaponSwitch: game.WeaponRail}
	applyInputToState(&in, state)
	if state.CurrentWeapon == game.WeaponRail {
		t.Error("switch to unowned weapon must be ignored")
	}

	in = Input{WeaponSwitch: game.WeaponShotgun}
	applyInputToState(&in, state)
	if state.CurrentWeapon != game.WeaponShotgun {
		t.Error("switch to owned weapon should apply")
	}
}

func TestPlayerStoreSwapRemove(t *testing.T) {
	s := newPlayerStore()
	for id := uint64(1); id <= 4; id++ {
		s.insert(playerConn{id: id}, game.NewPlayerState(id))
	}

	if !s.remove(2) {
		t.Fatal("remove failed")
	}
	if s.remove(2) {
		t.Fatal("double remove should be a no-op")
	}
	if !s.validate() {
		t.Fatal("store invariants broken after swap-remove")
	}
	if s.len() != 3 {
		t.Errorf("len = %d, want 3", s.len())
	}
	for _, id := range []uint64{1, 3, 4} {
		if !s.contains(id) {
			t.Errorf("player %d lost during swap-remove", id)
		}
	}
}

func TestSeedFromRoomIDDeterministic(t *testing.T) {
	a := SeedFromRoomID("room-1")
	b := SeedFromRoomID("room-1")
	c := SeedFromRoomID("room-2")
	if a != b {
		t.Error("same id must produce the same seed")
	}
	if a == c {
		t.Error("different ids should produce different seeds")
	}

	// The fold is acc*31 + byte.
	var want uint64
	for _, ch := range []byte("room-1") {
		want = want*31 + uint64(ch)
	}
	if a != want {
		t.Errorf("seed = %d, want %d", a, want)
	}
}

// --- snapshot parsing helpers ---

type parsedPlayerRecord struct {
	id           uint64
	lastInputSeq uint64
	keyUp        bool
	keyDown      bool
}

func awaitSnapshot(t *testing.T, out *Outbound) []byte {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case frame := <-out.Recv():
			if frame[0] == protocol.MsgSnapshot {
				return frame
			}
		case <-deadline:
			t.Fatal("no snapshot arrived")
		}
	}
}

func parseFirstPlayerRecord(t *testing.T, snap []byte) parsedPlayerRecord {
	t.Helper()
	if snap[17] < 1 {
		t.Fatal("snapshot carries no players")
	}
	rec := snap[22 : 22+protocol.PlayerRecordSize]
	flags := rec[62]
	return parsedPlayerRecord{
		id:           leU64(rec[0:8]),
		lastInputSeq: leU64(rec[54:62]),
		keyUp:        flags&protocol.PlayerFlagUp != 0,
		keyDown:      flags&protocol.PlayerFlagDown != 0,
	}
}

func leU64(b []byte) uint64 {
	var v uint64
	for i := 7; i >= 0; i-- {
		v = v<<8 | uint64(b[i])
	}
	return v
}

// waitForTicks waits until the room's tick counter has advanced by at
// least n from the moment of the call.
func waitForTicks(t *testing.T, h *Handle, n uint64) {
	t.Helper()
	start, ok := h.Info()
	if !ok {
		t.Fatal("info failed")
	}
	deadline := time.After(2 * time.Second)
	for {
		info, ok := h.Info()
		if !ok {
			t.Fatal("info failed")
		}
		if info.Tick >= start.Tick+n {
			return
		}
		select {
		case <-deadline:
			t.Fatal("room ticks did not advance")
		case <-time.After(5 * time.Millisecond):
		}
	}
}
